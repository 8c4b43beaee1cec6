// Package client holds the shared plumbing for the gateway's outbound HTTP
// clients. Every remote call is a single request/response pass-through: no
// retries, no caching, no batching.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single remote call when the caller does not
// supply its own http.Client.
const DefaultTimeout = 30 * time.Second

// maxErrorBody limits how much of a failed response is kept for diagnostics.
const maxErrorBody = 4096

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	URL        string
	// Detail is the server-supplied "detail" message when the error body
	// was JSON, otherwise the raw (truncated) body.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Detail)
	}
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// HTTPStatusCode exposes the upstream status for handlers that map it.
func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// PostJSON marshals in, POSTs it to url, and decodes the 2xx response body
// into out. A non-2xx status yields a *StatusError.
func PostJSON(ctx context.Context, hc *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return do(hc, req, out)
}

// GetJSON GETs url and decodes the 2xx response body into out (out may be
// nil when only the status matters).
func GetJSON(ctx context.Context, hc *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return do(hc, req, out)
}

func do(hc *http.Client, req *http.Request, out any) error {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}

	res, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return newStatusError(res, req.URL.String())
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newStatusError(res *http.Response, url string) *StatusError {
	buf, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))

	// FastAPI-style services wrap error messages as {"detail": "..."}.
	var payload struct {
		Detail string `json:"detail"`
	}
	detail := strings.TrimSpace(string(buf))
	if err := json.Unmarshal(buf, &payload); err == nil && payload.Detail != "" {
		detail = payload.Detail
	}

	return &StatusError{StatusCode: res.StatusCode, URL: url, Detail: detail}
}

// JoinURL concatenates a base URL and a path without doubling slashes.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
