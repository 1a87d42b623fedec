// Package remote holds the HTTP plumbing shared by the outbound API clients:
// JSON decoding, status errors and retry with exponential backoff.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NewHTTPClient returns an http.Client with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// StatusError is returned for any response with status >= 400.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the failure is worth another attempt.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Retry controls DoJSON's backoff. The zero value makes a single attempt.
type Retry struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetry makes up to four attempts starting at 200ms.
var DefaultRetry = Retry{Attempts: 4, Backoff: 200 * time.Millisecond}

// DoJSON sends the request built by makeReq and decodes a JSON body into dst.
// Network errors and 429/5xx responses are retried according to r while the
// context allows it.
func DoJSON(ctx context.Context, client *http.Client, r Retry, makeReq func() (*http.Request, error), dst any) error {
	attempts := max(1, r.Attempts)
	backoff := r.Backoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		req, err := makeReq()
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		lastErr = do(client, req, dst)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == attempts {
			return lastErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return lastErr
}

func do(client *http.Client, req *http.Request, dst any) error {
	endpoint := req.URL.Host + req.URL.Path
	resp, err := client.Do(req)
	if err != nil {
		// *url.Error repeats the full URL, query-string keys included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("%s %s: %w", req.Method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}
	return nil
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
