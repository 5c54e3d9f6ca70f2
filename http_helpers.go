package main

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

// PseudoHeaderOrder is the standard HTTP/2 pseudo-header order for all requests.
var PseudoHeaderOrder = []string{
	":method",
	":authority",
	":scheme",
	":path",
}

// readResponseBody decompresses and reads the full response body.
// Caller should defer resp.Body.Close() before calling this.
func readResponseBody(resp *http.Response) ([]byte, error) {
	body := http.DecompressBody(resp)
	defer body.Close()
	return io.ReadAll(body)
}

// respOK reports whether the status counts as success for the JD flows.
// Redirects are not ok: with redirects disabled a 302 means "go log in".
func respOK(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// timestampMS is the cache-busting value JD expects in its "_", "rid" and
// "t" query parameters.
func timestampMS() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// timestampS is the coarse variant used by the checkout page rid.
func timestampS() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

// jqueryCallback mimics the JSONP callback names jQuery generates in the
// browser. JD's endpoints echo it back as the response wrapper.
func jqueryCallback() string {
	return fmt.Sprintf("jQuery%d", 1000000+rand.Intn(9000000))
}

// preview truncates a body for logging.
func preview(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
