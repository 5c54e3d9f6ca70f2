package main

import (
	"context"
	"fmt"
	"io"

	http "github.com/bogdanfinn/fhttp"
)

const reserveInfoURL = "https://yushou.jd.com/youshouinfo.action"

// MakeReserve registers the account for the presale of the configured SKU.
// It polls the reservation endpoint until JD confirms, then notifies.
func (jc *JdClient) MakeReserve(ctx context.Context) error {
	jc.logger.Log("User: %s", jc.UserInfo())
	if title, err := jc.SkuTitle(); err == nil {
		jc.logger.Log("Item: %s", title)
	} else {
		jc.logger.Log("Could not read item title: %v", err)
	}

	reserveURL, err := jc.fetchReserveURL()
	if err != nil {
		return err
	}

	return jc.reservePoll.Do(ctx, func() (bool, error) {
		req, err := http.NewRequest(http.MethodGet, "https:"+reserveURL, nil)
		if err != nil {
			return false, err
		}
		jc.jdHeaders(req, jc.itemURL())

		resp, err := jc.do(req)
		if err != nil {
			jc.logger.Log("Reservation attempt failed: %v", err)
			return false, nil
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if !respOK(resp.StatusCode) {
			jc.logger.Log("Reservation attempt returned %d", resp.StatusCode)
			return false, nil
		}

		jc.logger.Log("Reservation confirmed")
		jc.notifier.Send(fmt.Sprintf("Reservation confirmed for SKU %s", jc.cfg.SkuID))
		return true, nil
	})
}

// fetchReserveURL reads the presale descriptor for the SKU and extracts the
// reservation link. The link comes back protocol-relative.
func (jc *JdClient) fetchReserveURL() (string, error) {
	req, err := http.NewRequest(http.MethodGet, reserveInfoURL, nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("callback", "fetchJSON")
	q.Set("sku", jc.cfg.SkuID)
	q.Set("_", timestampMS())
	req.URL.RawQuery = q.Encode()
	jc.jdHeaders(req, jc.itemURL())

	resp, err := jc.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := readResponseBody(resp)
	if err != nil {
		return "", err
	}

	dec := DecodeBody(body)
	if dec.Kind != DecodeParsed {
		return "", fmt.Errorf("presale descriptor unreadable: %s", preview(string(body), 120))
	}
	reserveURL := dec.JSON.Get("url").String()
	if reserveURL == "" {
		return "", fmt.Errorf("presale descriptor has no reservation url")
	}
	return reserveURL, nil
}
