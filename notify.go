package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/valyala/fasthttp"
)

const notifyTimeout = 10 * time.Second

// Notifier pushes milestone messages through ServerChan. Delivery is best
// effort: failures are logged and swallowed so the race never blocks on the
// side channel. It runs on its own bare client rather than the cookie-bearing
// JD session.
type Notifier struct {
	enabled bool
	key     string
	logger  Logger
	client  *fasthttp.Client
}

func NewNotifier(enabled bool, key string, logger Logger) *Notifier {
	return &Notifier{
		enabled: enabled,
		key:     key,
		logger:  logger,
		client: &fasthttp.Client{
			ReadTimeout:  notifyTimeout,
			WriteTimeout: notifyTimeout,
		},
	}
}

// Send delivers msg if notifications are enabled.
func (n *Notifier) Send(msg string) {
	if !n.enabled || n.key == "" {
		return
	}

	uri := fmt.Sprintf("https://sc.ftqq.com/%s.send?text=%s", n.key, url.QueryEscape(msg))
	status, _, err := n.client.GetTimeout(nil, uri, notifyTimeout)
	if err != nil {
		n.logger.Log("Notify failed: %v", err)
		return
	}
	if status != fasthttp.StatusOK {
		n.logger.Log("Notify failed: status %d", status)
	}
}
