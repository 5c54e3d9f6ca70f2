package main

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrNotLoggedIn indicates the session failed validation after every pass.
var ErrNotLoggedIn = errors.New("not logged in")

// ErrRetriesExhausted is returned by a bounded RetryPolicy once every
// attempt has been spent without the operation reporting done.
var ErrRetriesExhausted = errors.New("retries exhausted")

// BusinessRejection is a well-formed refusal from the seckill backend:
// sold out, rate limited, backend hiccup. The payload always carries a
// numeric code and a human-readable reason.
type BusinessRejection struct {
	Code    int64
	Message string
}

func (e *BusinessRejection) Error() string {
	return fmt.Sprintf("order rejected (code %d): %s", e.Code, e.Message)
}

// retryableErrorPatterns contains error message substrings that indicate retryable errors.
var retryableErrorPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"context deadline exceeded",
	"TLS handshake timeout",
	"EOF",
	"malformed HTTP response",
	"transport connection broken",
	"use of closed network connection",
}

// IsRetryableError checks if the error is temporary and worth another
// attempt on the same session.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if isNetworkTimeout(err) {
		return true
	}

	return containsRetryablePattern(err.Error())
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || netErr.Temporary()
	}
	return false
}

func containsRetryablePattern(errStr string) bool {
	for _, pattern := range retryableErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
