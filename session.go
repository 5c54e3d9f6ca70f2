package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

const orderListURL = "https://order.jd.com/center/list.action"

// jdCookieHosts are the hosts whose cookies make up a login session. Cookie
// persistence walks this list.
var jdCookieHosts = []string{
	"https://www.jd.com",
	"https://passport.jd.com",
	"https://order.jd.com",
	"https://qr.m.jd.com",
	"https://item.jd.com",
	"https://itemko.jd.com",
	"https://yushou.jd.com",
	"https://marathon.jd.com",
}

// JdClient drives the JD session: login state, reservation, and the seckill
// race. It owns the underlying HTTP client wholesale and replaces it with a
// fresh one whenever cookie validation fails; cookies are never merged
// across replacements.
type JdClient struct {
	client   httpClient
	cfg      *Config
	logger   Logger
	notifier *Notifier

	isLogin  bool
	nickname string
	timeDiff time.Duration // local clock minus JD server clock

	qrPoll      RetryPolicy
	reservePoll RetryPolicy
	qrFile      string

	// newClient builds the replacement session after invalidation.
	newClient func() (httpClient, error)
}

func NewJdClient(client httpClient, cfg *Config, logger Logger, notifier *Notifier) *JdClient {
	return &JdClient{
		client:      client,
		cfg:         cfg,
		logger:      logger,
		notifier:    notifier,
		qrPoll:      RetryPolicy{Attempts: qrPollAttempts, Interval: qrPollInterval},
		reservePoll: RetryPolicy{Interval: time.Second},
		qrFile:      qrCodeFile,
		newClient: func() (httpClient, error) {
			return NewClient(nil)
		},
	}
}

// Nickname returns the logged-in display name, or the "jd" placeholder.
func (jc *JdClient) Nickname() string {
	if jc.nickname == "" {
		return "jd"
	}
	return jc.nickname
}

// do executes the request and logs method, path and status.
func (jc *JdClient) do(req *http.Request) (*http.Response, error) {
	resp, err := jc.client.Do(req)
	if err != nil {
		jc.logger.Log("%s %s -> error: %v", req.Method, req.URL.Path, err)
		return nil, err
	}
	jc.logger.Log("%s %s -> %d", req.Method, req.URL.Path, resp.StatusCode)
	return resp, nil
}

// discard runs req and throws the response away. Warm-up requests only exist
// for their Set-Cookie side effects.
func (jc *JdClient) discard(req *http.Request) {
	resp, err := jc.do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
}

// jdHeaders installs the browser header surface JD expects. UA, Referer and
// Host are the ones its endpoints actually key on; the order key keeps the
// wire shape browser-like.
func (jc *JdClient) jdHeaders(req *http.Request, referer string) {
	req.Header = http.Header{
		"Host":            {req.URL.Host},
		"User-Agent":      {jc.cfg.UserAgent},
		"Accept":          {"*/*"},
		"Accept-Encoding": {"gzip, deflate, br"},
		"Accept-Language": {"zh-CN,zh;q=0.9,en;q=0.8"},
		http.HeaderOrderKey: {
			"Host",
			"User-Agent",
			"Accept",
			"Referer",
			"Content-Type",
			"Accept-Encoding",
			"Accept-Language",
			"Cookie",
		},
		http.PHeaderOrderKey: PseudoHeaderOrder,
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
}

func (jc *JdClient) itemURL() string {
	return fmt.Sprintf("https://item.jd.com/%s.html", jc.cfg.SkuID)
}

// resetSession replaces the HTTP client wholesale and drops the login state.
// Cookies are deliberately not carried over.
func (jc *JdClient) resetSession() {
	jc.isLogin = false
	client, err := jc.newClient()
	if err != nil {
		jc.logger.Log("Failed to create fresh session: %v", err)
		return
	}
	jc.client = client
}

// ValidateCookies probes the order-list page without following redirects.
// A redirect to passport means the cookies are stale. Network errors degrade
// the same way: neither leaves a usable session behind.
func (jc *JdClient) ValidateCookies() bool {
	req, err := http.NewRequest(http.MethodGet, orderListURL, nil)
	if err != nil {
		jc.resetSession()
		return false
	}
	q := req.URL.Query()
	q.Set("rid", timestampMS())
	req.URL.RawQuery = q.Encode()
	jc.jdHeaders(req, "")

	resp, err := jc.do(req)
	if err != nil {
		jc.resetSession()
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !respOK(resp.StatusCode) {
		jc.resetSession()
		return false
	}
	jc.isLogin = true
	return true
}

// cookieValue scans the JD hosts for a cookie by name.
func (jc *JdClient) cookieValue(name string) string {
	for _, host := range jdCookieHosts {
		u, err := url.Parse(host)
		if err != nil {
			continue
		}
		for _, c := range jc.client.GetCookies(u) {
			if c.Name == name {
				return c.Value
			}
		}
	}
	return ""
}

// storedCookie is the on-disk shape of one cookie. The file round-trips
// name/value plus the domain/path metadata the jar needs to rebuild itself.
type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain"`
	Path    string    `json:"path"`
	Expires time.Time `json:"expires,omitempty"`
}

// SaveCookies persists the current jar under <nickname>.cookies.
func (jc *JdClient) SaveCookies() error {
	seen := map[string]bool{}
	var stored []storedCookie
	for _, host := range jdCookieHosts {
		u, err := url.Parse(host)
		if err != nil {
			continue
		}
		for _, c := range jc.client.GetCookies(u) {
			domain := c.Domain
			if domain == "" {
				domain = u.Host
			}
			key := c.Name + "|" + domain + "|" + c.Path
			if seen[key] {
				continue
			}
			seen[key] = true
			stored = append(stored, storedCookie{
				Name:    c.Name,
				Value:   c.Value,
				Domain:  domain,
				Path:    c.Path,
				Expires: c.Expires,
			})
		}
	}
	if len(stored) == 0 {
		return fmt.Errorf("no cookies to save")
	}

	if err := os.MkdirAll(jc.cfg.CookieDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(jc.cfg.CookieDir, jc.Nickname()+".cookies")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	jc.logger.Log("Saved %d cookies to %s", len(stored), path)
	return nil
}

// LoadCookies restores the first saved cookie jar found under the cookie
// directory and validates it. Returns whether the session is logged in.
func (jc *JdClient) LoadCookies() bool {
	path, ok := jc.findCookieFile()
	if !ok {
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		jc.logger.Log("Reading cookie file: %v", err)
		return false
	}
	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		jc.logger.Log("Cookie file %s is corrupt: %v", path, err)
		return false
	}

	byDomain := map[string][]*http.Cookie{}
	for _, sc := range stored {
		byDomain[sc.Domain] = append(byDomain[sc.Domain], &http.Cookie{
			Name:    sc.Name,
			Value:   sc.Value,
			Domain:  sc.Domain,
			Path:    sc.Path,
			Expires: sc.Expires,
		})
	}
	for domain, cookies := range byDomain {
		u, err := url.Parse("https://" + strings.TrimPrefix(domain, "."))
		if err != nil {
			continue
		}
		jc.client.SetCookies(u, cookies)
	}

	jc.logger.Log("Restored %d cookies from %s", len(stored), path)
	jc.isLogin = jc.ValidateCookies()
	return jc.isLogin
}

func (jc *JdClient) findCookieFile() (string, bool) {
	entries, err := os.ReadDir(jc.cfg.CookieDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".cookies") {
			return filepath.Join(jc.cfg.CookieDir, e.Name()), true
		}
	}
	return "", false
}
