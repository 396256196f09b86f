// Package httpclient provides the HTTP client used by the directory and
// platform clients. Every request is attempted exactly once; failures are
// returned to the caller, which records them.
package httpclient

import (
	"net/http"
	"time"

	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *Client satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps an HTTPDoer and logs each round trip.
type Client struct {
	client HTTPDoer
	name   string
}

// New creates a Client named after the remote system it talks to.
// If client is nil, a default http.Client with the given timeout is used.
func New(client HTTPDoer, name string, timeout time.Duration) *Client {
	if client == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{client: client, name: name}
}

// Do executes the request once. Non-2xx responses are returned as-is so
// the caller can read the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Warn("http request failed",
			"remote", c.name, "method", req.Method, "path", req.URL.Path,
			"elapsed", elapsed.String(), "error", err)
		return nil, err
	}

	logger.Debug("http request",
		"remote", c.name, "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "elapsed", elapsed.String())
	return resp, nil
}

// IsSuccess reports whether the status code is 2xx.
func IsSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
