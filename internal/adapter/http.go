package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient defines an interface for HTTP client operations to enable
// test doubles
type HTTPClient interface {
	// PostWithHeadersNoRetry performs a single POST attempt with custom headers.
	// The caller is responsible for closing the response body. Retry policy is
	// left to the caller.
	PostWithHeadersNoRetry(ctx context.Context, url string, headers map[string]string, body io.Reader) (*http.Response, error)
}

// RealHTTPClient implements HTTPClient using the standard http package
type RealHTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a new real HTTP client
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &RealHTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// PostWithHeadersNoRetry performs a single POST attempt with custom headers
func (c *RealHTTPClient) PostWithHeadersNoRetry(ctx context.Context, url string, headers map[string]string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}

	return resp, nil
}
