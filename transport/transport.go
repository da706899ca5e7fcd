// Package transport is the HTTP collaborator the SDK fetches definitions
// through and flushes telemetry to. The core never retries or pools here;
// it only composes paths and decodes bodies. Any transport or status failure
// surfaces as a *NetworkError.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Transport performs the two HTTP verbs the Flagship API needs.
// Both return the parsed JSON body and fail with *NetworkError on any
// non-success outcome.
type Transport interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// NetworkError carries the underlying status and message of a failed
// transport call. Status is zero when the request never reached the server.
type NetworkError struct {
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("flagship API error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("flagship request failed: %s", e.Message)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// maxErrorBodySize limits how much of an error response body we keep (1KB).
const maxErrorBodySize = 1024

// HTTP is the production Transport over net/http.
type HTTP struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewHTTP creates a transport against baseURL authenticating with apiKey.
func NewHTTP(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *HTTP {
	return &HTTP{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Get performs a GET against path (which includes any query string).
func (h *HTTP) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return h.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST of the JSON-encoded body against path.
func (h *HTTP) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &NetworkError{Message: "failed to marshal request body", Err: err}
	}
	return h.do(ctx, http.MethodPost, path, payload)
}

func (h *HTTP) do(ctx context.Context, method, path string, payload []byte) (json.RawMessage, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, &NetworkError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, &NetworkError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		h.log.Debug().Int("status", resp.StatusCode).Str("method", method).Str("path", path).Msg("non-2xx response")
		return nil, &NetworkError{Status: resp.StatusCode, Message: string(excerpt)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Message: "failed to read response body", Err: err}
	}

	h.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")
	return json.RawMessage(raw), nil
}
