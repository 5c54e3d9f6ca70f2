package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"
)

const (
	itemShowBtnURL  = "https://itemko.jd.com/itemShowBtn"
	checkoutPageURL = "https://marathon.jd.com/seckill/seckill.action"
	orderInitURL    = "https://marathon.jd.com/seckillnew/orderService/pc/init.action"
	orderSubmitURL  = "https://marathon.jd.com/seckillnew/orderService/pc/submitOrder.action"

	urlPollInterval  = 100 * time.Millisecond
	maxOrderAttempts = 3
)

// OrderResult is a successfully placed order.
type OrderResult struct {
	OrderID    int64
	TotalMoney string
	PayURL     string
}

// rewriteSeckillURL turns the routing link JD hands out into the checkout
// entry URL: the divide host becomes marathon and the user_routing path
// becomes the captcha page. The link comes back protocol-relative.
func rewriteSeckillURL(routing string) (string, error) {
	u, err := url.Parse(routing)
	if err != nil {
		return "", fmt.Errorf("parsing routing url %q: %w", routing, err)
	}
	u.Scheme = "https"
	u.Host = strings.Replace(u.Host, "divide", "marathon", 1)
	u.Path = strings.Replace(u.Path, "user_routing", "captcha.html", 1)
	return u.String(), nil
}

// DiscoverSeckillURL polls the button endpoint until JD publishes the
// checkout routing link. Before the sale opens the endpoint answers with an
// empty url field, so this loops until ctx is cancelled or the link shows.
func (jc *JdClient) DiscoverSeckillURL(ctx context.Context) (string, error) {
	var seckillURL string
	policy := RetryPolicy{} // unbounded, paced inline below
	err := policy.Do(ctx, func() (bool, error) {
		req, err := http.NewRequest(http.MethodGet, itemShowBtnURL, nil)
		if err != nil {
			return false, err
		}
		q := req.URL.Query()
		q.Set("callback", jqueryCallback())
		q.Set("skuId", jc.cfg.SkuID)
		q.Set("from", "pc")
		q.Set("_", timestampMS())
		req.URL.RawQuery = q.Encode()
		jc.jdHeaders(req, jc.itemURL())

		resp, err := jc.do(req)
		if err != nil {
			if !IsRetryableError(err) {
				return false, err
			}
			return false, nil
		}
		defer resp.Body.Close()
		if !respOK(resp.StatusCode) {
			return false, nil
		}
		body, err := readResponseBody(resp)
		if err != nil {
			return false, nil
		}

		dec := DecodeBody(body)
		if dec.Kind != DecodeParsed {
			jc.logger.Log("Routing response unreadable: %s", preview(string(body), 120))
			return false, nil
		}
		routing := dec.JSON.Get("url").String()
		if routing == "" {
			jc.logger.Log("Checkout link not published yet, retrying")
			sleepCtx(ctx, urlPollInterval)
			return false, nil
		}

		seckillURL, err = rewriteSeckillURL(routing)
		if err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return "", err
	}
	jc.logger.Log("Checkout link: %s", seckillURL)
	return seckillURL, nil
}

// RequestSeckillURL visits the discovered checkout link. The visit only
// exists to pick up the marathon session cookies.
func (jc *JdClient) RequestSeckillURL(seckillURL string) {
	req, err := http.NewRequest(http.MethodGet, seckillURL, nil)
	if err != nil {
		return
	}
	jc.jdHeaders(req, jc.itemURL())
	jc.discard(req)
}

// RequestCheckoutPage loads the seckill checkout page, again for cookies.
func (jc *JdClient) RequestCheckoutPage() {
	req, err := http.NewRequest(http.MethodGet, checkoutPageURL, nil)
	if err != nil {
		return
	}
	q := req.URL.Query()
	q.Set("skuId", jc.cfg.SkuID)
	q.Set("num", "1")
	q.Set("rid", timestampS())
	req.URL.RawQuery = q.Encode()
	jc.jdHeaders(req, jc.itemURL())
	jc.discard(req)
}

// FetchInitInfo asks the order service for the checkout snapshot: address
// book, invoice defaults and the submission token. Under load the endpoint
// answers "null" until a slot frees up.
func (jc *JdClient) FetchInitInfo(ctx context.Context) (gjson.Result, error) {
	var info gjson.Result
	policy := RetryPolicy{Attempts: maxOrderAttempts}
	err := policy.Do(ctx, func() (bool, error) {
		form := url.Values{}
		form.Set("sku", jc.cfg.SkuID)
		form.Set("num", "1")
		form.Set("isModifyAddress", "false")

		req, err := http.NewRequest(http.MethodPost, orderInitURL, strings.NewReader(form.Encode()))
		if err != nil {
			return false, err
		}
		jc.jdHeaders(req, checkoutPageURL)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := jc.do(req)
		if err != nil {
			return false, nil
		}
		defer resp.Body.Close()
		if !respOK(resp.StatusCode) {
			return false, nil
		}
		body, err := readResponseBody(resp)
		if err != nil {
			return false, nil
		}

		dec := DecodeBody(body)
		switch dec.Kind {
		case DecodeParsed:
			info = dec.JSON
			return true, nil
		case DecodeMalformed:
			jc.logger.Log("Checkout snapshot unreadable: %s", preview(string(body), 120))
			return false, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("checkout snapshot unavailable: %w", err)
	}
	return info, nil
}

// BuildOrderData assembles the submission form from the checkout snapshot.
// Everything JD needs is echoed back from the snapshot's default address and
// invoice, plus the configured risk fingerprints.
func (jc *JdClient) BuildOrderData(info gjson.Result) (url.Values, error) {
	address := info.Get("addressList.0")
	if !address.Exists() {
		return nil, fmt.Errorf("checkout snapshot has no address")
	}
	if !address.Get("id").Exists() {
		return nil, fmt.Errorf("checkout snapshot address has no id")
	}
	token := info.Get("token").String()
	if token == "" {
		return nil, fmt.Errorf("checkout snapshot has no token")
	}

	invoice := info.Get("invoiceInfo")
	hasInvoice := invoice.IsObject() && len(invoice.Map()) > 0

	invoiceTitle := "-1"
	invoiceContent := "1"
	if hasInvoice {
		if v := invoice.Get("invoiceTitle"); v.Exists() {
			invoiceTitle = v.String()
		}
		if v := invoice.Get("invoiceContentType"); v.Exists() {
			invoiceContent = v.String()
		}
	}

	data := url.Values{}
	data.Set("skuId", jc.cfg.SkuID)
	data.Set("num", "1")
	data.Set("addressId", address.Get("id").String())
	data.Set("yuShou", "true")
	data.Set("isModifyAddress", "false")
	data.Set("name", address.Get("name").String())
	data.Set("provinceId", address.Get("provinceId").String())
	data.Set("cityId", address.Get("cityId").String())
	data.Set("countyId", address.Get("countyId").String())
	data.Set("townId", address.Get("townId").String())
	data.Set("addressDetail", address.Get("addressDetail").String())
	data.Set("mobile", address.Get("mobile").String())
	data.Set("mobileKey", address.Get("mobileKey").String())
	data.Set("email", address.Get("email").String())
	data.Set("postCode", "")
	data.Set("invoiceTitle", invoiceTitle)
	data.Set("invoiceCompanyName", "")
	data.Set("invoiceContent", invoiceContent)
	data.Set("invoiceTaxpayerNO", "")
	data.Set("invoiceEmail", "")
	data.Set("invoicePhone", invoice.Get("invoicePhone").String())
	data.Set("invoicePhoneKey", invoice.Get("invoicePhoneKey").String())
	if hasInvoice {
		data.Set("invoice", "true")
	} else {
		data.Set("invoice", "false")
	}
	data.Set("password", "")
	data.Set("codTimeType", "3")
	data.Set("paymentType", "4")
	data.Set("areaCode", "")
	data.Set("overseas", "0")
	data.Set("phone", "")
	data.Set("eid", jc.cfg.Eid)
	data.Set("fp", jc.cfg.Fp)
	data.Set("token", token)
	data.Set("pru", "")
	return data, nil
}

// SubmitSeckillOrder runs one full submission pass: pull the checkout
// snapshot, build the form and post it. A nil result with a nil error means
// this pass failed recoverably and the caller may race again.
func (jc *JdClient) SubmitSeckillOrder(ctx context.Context) (*OrderResult, error) {
	info, err := jc.FetchInitInfo(ctx)
	if err != nil {
		jc.logger.Log("Could not get checkout snapshot: %v", err)
		return nil, nil
	}
	data, err := jc.BuildOrderData(info)
	if err != nil {
		jc.logger.Log("Could not build order form: %v", err)
		return nil, nil
	}

	var result *OrderResult
	policy := RetryPolicy{Attempts: maxOrderAttempts}
	submitErr := policy.Do(ctx, func() (bool, error) {
		req, err := http.NewRequest(http.MethodPost, orderSubmitURL+"?skuId="+jc.cfg.SkuID, strings.NewReader(data.Encode()))
		if err != nil {
			return false, err
		}
		referer := fmt.Sprintf("%s?skuId=%s&num=1&rid=%s", checkoutPageURL, jc.cfg.SkuID, timestampS())
		jc.jdHeaders(req, referer)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := jc.do(req)
		if err != nil {
			return false, nil
		}
		defer resp.Body.Close()
		if !respOK(resp.StatusCode) {
			return false, nil
		}
		body, err := readResponseBody(resp)
		if err != nil {
			return false, nil
		}

		dec := DecodeBody(body)
		switch dec.Kind {
		case DecodeMalformed:
			jc.logger.Log("Submission response unreadable: %s", preview(string(body), 120))
			return false, nil
		case DecodeEmpty:
			return false, nil
		}

		if !dec.JSON.Get("success").Bool() {
			rejection := &BusinessRejection{
				Code:    dec.JSON.Get("resultCode").Int(),
				Message: dec.JSON.Get("errorMessage").String(),
			}
			jc.logger.Log("Submission rejected: %v", rejection)
			jc.notifier.Send(fmt.Sprintf("Order rejected for SKU %s: %v", jc.cfg.SkuID, rejection))
			return false, nil
		}

		result = &OrderResult{
			OrderID:    dec.JSON.Get("orderId").Int(),
			TotalMoney: dec.JSON.Get("totalMoney").String(),
			PayURL:     "https:" + dec.JSON.Get("pcUrl").String(),
		}
		jc.logger.Log("Order placed: id %d, total %s, pay at %s", result.OrderID, result.TotalMoney, result.PayURL)
		jc.notifier.Send(fmt.Sprintf("Order %d placed for SKU %s, total %s", result.OrderID, jc.cfg.SkuID, result.TotalMoney))
		return true, nil
	})
	if submitErr != nil && !errors.Is(submitErr, ErrRetriesExhausted) {
		return nil, submitErr
	}
	return result, nil
}

// RaceOnce runs a single end-to-end seckill pass.
func (jc *JdClient) RaceOnce(ctx context.Context) (*OrderResult, error) {
	seckillURL, err := jc.DiscoverSeckillURL(ctx)
	if err != nil {
		return nil, err
	}
	jc.RequestSeckillURL(seckillURL)
	jc.RequestCheckoutPage()
	return jc.SubmitSeckillOrder(ctx)
}
