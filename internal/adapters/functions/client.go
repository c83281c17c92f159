// Package functions calls the hosted edge functions (checkout session, roadmap email)
// over HTTP with the bearer key the browser client would use.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single function call.
const DefaultTimeout = 15 * time.Second

// maxBody caps how much of a response body is read.
const maxBody = 1 << 20

// ResponseError is a non-2xx answer. Message is the function's own error text when it
// sent one, or the caller's fallback otherwise.
type ResponseError struct {
	Function string
	Status   int
	Message  string
}

// Error implements error.
func (e *ResponseError) Error() string {
	return e.Message
}

// errorBody is the shape both functions use for failures.
type errorBody struct {
	Error string `json:"error"`
}

type caller struct {
	url        string
	key        string
	httpClient *http.Client
}

func newCaller(url, key string, hc *http.Client) caller {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return caller{url: url, key: key, httpClient: hc}
}

// post sends payload as JSON and decodes a 2xx body into out.
// A non-2xx status becomes a *ResponseError carrying the body's error field or fallback.
func (c caller) post(ctx context.Context, name string, payload, out any, fallback string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("function_call_failed", "function", name, "error", err)
		return fmt.Errorf("call %s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read %s response: %w", name, err)
	}
	slog.Debug("function_call", "function", name, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fallback
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			msg = eb.Error
		}
		return &ResponseError{Function: name, Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", name, err)
	}
	return nil
}
