package httpclient

import (
	"net/http"
	"time"
)

// sharedTransport is reused across all pooled clients. The traffic shape is
// few hosts, many sequential requests: generation, moderation and grounding
// hit one or two model endpoints per pipeline run, and a harvest pages
// through a single catalogue API for minutes. Warm per-host connections
// matter more here than a large total pool.
var sharedTransport = &http.Transport{
	MaxIdleConns:        20,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
	DisableKeepAlives:   false,
}

// NewPooledClient creates an http.Client that shares a connection pool with
// other pooled clients.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
