package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTarget POSTs JSON bodies to one endpoint.
type HTTPTarget struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewHTTPTarget builds a target. An empty token sends no Authorization header.
func NewHTTPTarget(url, token string, timeout time.Duration) *HTTPTarget {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPTarget{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// URL returns the endpoint.
func (t *HTTPTarget) URL() string { return t.url }

// Post sends body and returns the response status. A non-2xx status is
// not an error; the error is set only when no response was received. The
// returned detail is the start of the response body for non-200 replies.
func (t *HTTPTarget) Post(ctx context.Context, body []byte) (status int, detail string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("post %s: %w", t.url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, string(respBody), nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, "", nil
}
