package main

import (
	"context"
	"fmt"
	"time"

	http "github.com/bogdanfinn/fhttp"
)

const serverTimeURL = "https://a.jd.com//ajax/queryServerData.html"

// ServerTime reads JD's clock. The endpoint returns milliseconds.
func (jc *JdClient) ServerTime() (time.Time, error) {
	req, err := http.NewRequest(http.MethodGet, serverTimeURL, nil)
	if err != nil {
		return time.Time{}, err
	}
	jc.jdHeaders(req, "")

	resp, err := jc.do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()
	body, err := readResponseBody(resp)
	if err != nil {
		return time.Time{}, err
	}

	dec := DecodeBody(body)
	if dec.Kind != DecodeParsed {
		return time.Time{}, fmt.Errorf("server time response unreadable: %s", preview(string(body), 120))
	}
	ms := dec.JSON.Get("serverTime").Int()
	if ms == 0 {
		return time.Time{}, fmt.Errorf("server time response missing serverTime")
	}
	return time.UnixMilli(ms), nil
}

// SyncTime measures the offset between the local clock and JD's. Scheduling
// uses the offset so a skewed local clock still fires on JD time. A failed
// sync falls back to zero offset.
func (jc *JdClient) SyncTime() {
	server, err := jc.ServerTime()
	if err != nil {
		jc.logger.Log("Time sync failed, using local clock: %v", err)
		jc.timeDiff = 0
		return
	}
	jc.timeDiff = time.Since(server)
	jc.logger.Log("Local clock is %v ahead of JD", jc.timeDiff)
}

// WaitUntil sleeps until t on JD's clock, checking in coarse steps and
// tightening near the deadline.
func (jc *JdClient) WaitUntil(ctx context.Context, t time.Time) error {
	target := t.Add(jc.timeDiff)
	jc.logger.Log("Waiting until %s (local %s)", t.Format("15:04:05.000"), target.Format("15:04:05.000"))
	for {
		remaining := time.Until(target)
		if remaining <= 0 {
			return nil
		}
		step := time.Second
		if remaining < 2*time.Second {
			step = 100 * time.Millisecond
		}
		if step > remaining {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}
	}
}
