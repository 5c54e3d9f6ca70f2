package main

import (
	"io"
	"net/url"
	"strings"
	"testing"

	http "github.com/bogdanfinn/fhttp"
)

// fakeResponse is one scripted reply.
type fakeResponse struct {
	status int
	body   string
}

// fakeClient replays scripted responses and records every request so tests
// can assert on the wire traffic without a network.
type fakeClient struct {
	t         *testing.T
	responses []fakeResponse
	requests  []*http.Request
	cookies   map[string][]*http.Cookie
}

func newFakeClient(t *testing.T, responses ...fakeResponse) *fakeClient {
	t.Helper()
	return &fakeClient{
		t:         t,
		responses: responses,
		cookies:   map[string][]*http.Cookie{},
	}
}

func (f *fakeClient) Do(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		f.t.Fatalf("unexpected request %s %s", req.Method, req.URL)
	}
	next := f.responses[0]
	f.responses = f.responses[1:]
	return &http.Response{
		StatusCode: next.status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(next.body)),
	}, nil
}

// GetCookies matches like a real jar: an exact host hit or a parent-domain
// cookie both apply.
func (f *fakeClient) GetCookies(u *url.URL) []*http.Cookie {
	var out []*http.Cookie
	for host, cookies := range f.cookies {
		if u.Host == host || strings.HasSuffix(u.Host, "."+host) {
			out = append(out, cookies...)
		}
	}
	return out
}

func (f *fakeClient) SetCookies(u *url.URL, cookies []*http.Cookie) {
	f.cookies[u.Host] = append(f.cookies[u.Host], cookies...)
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Log(format string, args ...any) {
	l.t.Logf(format, args...)
}

// newTestClient wires a JdClient around a fake transport with tight retry
// pacing so tests run instantly.
func newTestClient(t *testing.T, fake *fakeClient) *JdClient {
	t.Helper()
	cfg := &Config{
		SkuID:     "100012043978",
		Eid:       "test-eid",
		Fp:        "test-fp",
		UserAgent: DefaultProfile.UserAgent,
		CookieDir: t.TempDir(),
	}
	logger := testLogger{t}
	jc := NewJdClient(fake, cfg, logger, NewNotifier(false, "", logger))
	jc.qrPoll = RetryPolicy{Attempts: qrPollAttempts}
	jc.reservePoll = RetryPolicy{}
	jc.qrFile = t.TempDir() + "/qr.png"
	jc.newClient = func() (httpClient, error) {
		return newFakeClient(t), nil
	}
	return jc
}
