package main

import (
	"net/url"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// BrowserProfile bundles a TLS client profile with its corresponding browser headers.
type BrowserProfile struct {
	TLSProfile profiles.ClientProfile
	UserAgent  string
	SecChUa    string
}

// DefaultProfile is the browser identity presented to JD on every request.
var DefaultProfile = &BrowserProfile{
	TLSProfile: profiles.Chrome_133,
	UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36",
	SecChUa:    `"Chromium";v="133", "Not(A:Brand";v="99", "Google Chrome";v="133"`,
}

// httpClient is the subset of tls_client.HttpClient the bot touches. Narrow
// on purpose so every flow can run against a scripted fake in tests.
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
	GetCookies(u *url.URL) []*http.Cookie
	SetCookies(u *url.URL, cookies []*http.Cookie)
}

// NewClient builds the cookie-bearing session client: browser TLS profile,
// redirects disabled (the login probe and the routing hops depend on seeing
// the 302s), 30 second timeout.
func NewClient(logger tls_client.Logger) (tls_client.HttpClient, error) {
	if logger == nil {
		logger = tls_client.NewNoopLogger()
	}

	jar := tls_client.NewCookieJar()
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(30),
		tls_client.WithClientProfile(DefaultProfile.TLSProfile),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(jar),
	}

	return tls_client.NewHttpClient(logger, options...)
}
