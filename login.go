package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

const (
	loginPageURL        = "https://passport.jd.com/new/login.aspx"
	qrShowURL           = "https://qr.m.jd.com/show"
	qrCheckURL          = "https://qr.m.jd.com/check"
	qrTicketValidateURL = "https://passport.jd.com/uc/qrCodeTicketValidation"
	userInfoURL         = "https://passport.jd.com/user/petName/getUserInfoForMiniJd.action"

	qrCodeFile     = "QRcode.png"
	qrPollAttempts = 85
	qrPollInterval = 2 * time.Second
)

// Login checks that the session holds valid cookies, retrying validation a
// few times before giving up. It never starts the QR flow itself.
func (jc *JdClient) Login(ctx context.Context) error {
	policy := RetryPolicy{Attempts: 3, Interval: time.Second}
	err := policy.Do(ctx, func() (bool, error) {
		return jc.ValidateCookies(), nil
	})
	if errors.Is(err, ErrRetriesExhausted) {
		return ErrNotLoggedIn
	}
	return err
}

// LoginByQRCode runs the scan-to-login flow: fetch the QR image, write it to
// disk for the user to scan, poll for the ticket and validate it. A no-op
// when the session is already logged in.
func (jc *JdClient) LoginByQRCode(ctx context.Context) error {
	if jc.isLogin {
		jc.logger.Log("Already logged in, skipping QR flow")
		return nil
	}

	if err := jc.fetchLoginPage(); err != nil {
		return fmt.Errorf("loading login page: %w", err)
	}
	if err := jc.fetchQRCode(); err != nil {
		return fmt.Errorf("fetching QR code: %w", err)
	}
	jc.logger.Log("QR code written to %s, scan it with the JD app", jc.qrFile)

	var ticket string
	err := jc.qrPoll.Do(ctx, func() (bool, error) {
		t, err := jc.qrTicket()
		if err != nil {
			return false, err
		}
		ticket = t
		return ticket != "", nil
	})
	if errors.Is(err, ErrRetriesExhausted) {
		return fmt.Errorf("QR code expired, restart to get a fresh one")
	}
	if err != nil {
		return err
	}

	if err := jc.validateQRTicket(ticket); err != nil {
		return err
	}

	jc.isLogin = true
	jc.nickname = jc.UserInfo()
	jc.logger.Log("QR login complete, welcome %s", jc.Nickname())
	return nil
}

// fetchLoginPage warms the passport cookies the QR endpoints depend on.
func (jc *JdClient) fetchLoginPage() error {
	req, err := http.NewRequest(http.MethodGet, loginPageURL, nil)
	if err != nil {
		return err
	}
	jc.jdHeaders(req, "")
	jc.discard(req)
	return nil
}

// fetchQRCode downloads the QR image and writes it next to the binary.
func (jc *JdClient) fetchQRCode() error {
	req, err := http.NewRequest(http.MethodGet, qrShowURL, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	q.Set("appid", "133")
	q.Set("size", "147")
	q.Set("t", timestampMS())
	req.URL.RawQuery = q.Encode()
	jc.jdHeaders(req, loginPageURL)

	resp, err := jc.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !respOK(resp.StatusCode) {
		return fmt.Errorf("QR image request returned %d", resp.StatusCode)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	return os.WriteFile(jc.qrFile, body, 0o644)
}

// qrTicket polls the QR status once. It returns an empty ticket while the
// code has not been scanned yet; only transport failures are errors.
func (jc *JdClient) qrTicket() (string, error) {
	req, err := http.NewRequest(http.MethodGet, qrCheckURL, nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("appid", "133")
	q.Set("callback", jqueryCallback())
	q.Set("token", jc.cookieValue("wlfstk_smdl"))
	q.Set("_", timestampMS())
	req.URL.RawQuery = q.Encode()
	jc.jdHeaders(req, loginPageURL)

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
		jc.logger.Log("QR status response unreadable: %s", preview(string(body), 120))
		return "", nil
	}
	code := dec.JSON.Get("code").Int()
	if code != 200 {
		jc.logger.Log("Waiting for scan: code %d, %s", code, dec.JSON.Get("msg").String())
		return "", nil
	}
	return dec.JSON.Get("ticket").String(), nil
}

// validateQRTicket exchanges the scan ticket for the session cookies.
func (jc *JdClient) validateQRTicket(ticket string) error {
	req, err := http.NewRequest(http.MethodGet, qrTicketValidateURL, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	q.Set("t", ticket)
	req.URL.RawQuery = q.Encode()
	jc.jdHeaders(req, "https://passport.jd.com/uc/login?ltype=logout")

	resp, err := jc.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}

	dec := DecodeBody(body)
	if dec.Kind != DecodeParsed {
		return fmt.Errorf("ticket validation response unreadable: %s", preview(string(body), 120))
	}
	if code := dec.JSON.Get("returnCode").Int(); code != 0 {
		return fmt.Errorf("ticket validation rejected with code %d", code)
	}
	return nil
}

// UserInfo fetches the account nickname, falling back to the "jd"
// placeholder when not logged in or when the endpoint misbehaves.
func (jc *JdClient) UserInfo() string {
	if !jc.isLogin {
		return "jd"
	}
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodGet, userInfoURL, nil)
		if err != nil {
			return "jd"
		}
		q := req.URL.Query()
		q.Set("callback", jqueryCallback())
		q.Set("_", timestampMS())
		req.URL.RawQuery = q.Encode()
		jc.jdHeaders(req, orderListURL)

		resp, err := jc.do(req)
		if err != nil {
			continue
		}
		body, err := readResponseBody(resp)
		resp.Body.Close()
		if err != nil {
			continue
		}

		dec := DecodeBody(body)
		if dec.Kind != DecodeParsed {
			continue
		}
		if nick := dec.JSON.Get("nickName").String(); nick != "" {
			return nick
		}
	}
	return "jd"
}
