// Package backend is the HTTP client for the ClassAccess REST API. The API
// owns every business rule; this package only moves JSON back and forth.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"classaccess/internal/metrics"
)

// Credential authenticates a call as a signed-in user or as the service.
type Credential struct {
	// Cookie is a Cookie header value captured from the login response.
	Cookie string `json:"cookie,omitempty"`
	// Token is sent as a bearer token.
	Token string `json:"token,omitempty"`
}

// IsZero reports whether the credential carries nothing.
func (c Credential) IsZero() bool { return c.Cookie == "" && c.Token == "" }

func (c Credential) apply(req *http.Request) {
	if c.Cookie != "" {
		req.Header.Set("Cookie", c.Cookie)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

// APIError is a non-2xx response or a {success:false} envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error %d", e.Status)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether the backend rejected the session.
func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }

// IsForbidden reports whether the backend denied access to the resource.
func IsForbidden(err error) bool { return StatusOf(err) == http.StatusForbidden }

// MessageOf returns the backend's own message for err when there is one.
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// Client calls the ClassAccess REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// envelope is the {success, message, data} wrapper most endpoints use.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends in as JSON (when non-nil), decodes the response into out (when
// non-nil) and returns the cookies the backend set. endpoint labels metrics.
func (c *Client) do(ctx context.Context, cred Credential, method, path, endpoint string, in, out any) ([]*http.Cookie, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	cred.apply(req)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		metrics.ObserveBackend(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveBackend(endpoint, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}
	if err := decode(raw, out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.Status = resp.StatusCode
			return nil, apiErr
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.Cookies(), nil
}

// decode accepts either a bare JSON value or the success envelope. A
// {success:false} envelope becomes an *APIError.
func decode(raw []byte, out any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] != '{' {
		if out == nil {
			return nil
		}
		return json.Unmarshal(trimmed, out)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	if env.Success != nil && !*env.Success {
		return &APIError{Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(trimmed, out)
}

func errorMessage(raw []byte, status string) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return env.Message
	}
	if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 200 && !strings.HasPrefix(s, "<") {
		return s
	}
	return status
}
