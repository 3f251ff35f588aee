// Package netx builds the outbound HTTP clients used to talk to the OAuth
// provider and the Sheets API.
package netx

import (
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"time"
)

// NewClient constructs an *http.Client whose every request is bounded by
// timeout. A zero timeout falls back to 15 seconds; nothing outbound may
// block indefinitely.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// ReadLimited reads at most limit bytes of the body for diagnostics and
// drains the rest so the connection can be reused.
func ReadLimited(body io.ReadCloser, limit int64) []byte {
	defer body.Close()
	b, _ := io.ReadAll(io.LimitReader(body, limit))
	_, _ = io.Copy(io.Discard, body)
	return b
}
