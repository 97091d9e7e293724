package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mshogin/flownodes/internal/domain/models"
	"github.com/mshogin/flownodes/internal/infrastructure/config"
)

// transport is shared by every per-message client of one service: it owns the
// connection pool and the outbound rate limiter. Credentials are not part of it.
type transport struct {
	config     config.ServiceConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newTransport(cfg config.ServiceConfig, rt http.RoundTripper) *transport {
	if rt == nil {
		rt = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &transport{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: rt,
		},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// request describes one remote call.
type request struct {
	operation   string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// jsonBody marshals v as a request body.
func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// do executes the call and decodes the JSON response. Every failure comes back
// as a *models.RemoteServiceError; there is no retry.
func (t *transport) do(ctx context.Context, creds models.Credentials, r request) (any, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, &models.RemoteServiceError{Operation: r.operation, Err: err}
	}

	query := r.query
	if query == nil {
		query = url.Values{}
	}
	if t.config.Version != "" {
		query.Set("version", t.config.Version)
	}

	endpoint := strings.TrimRight(t.config.BaseURL, "/") + r.path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.method, endpoint, r.body)
	if err != nil {
		return nil, &models.RemoteServiceError{Operation: r.operation, Err: err}
	}
	httpReq.SetBasicAuth(creds.Username, creds.Password)
	httpReq.Header.Set("Accept", "application/json")
	if r.body != nil {
		contentType := r.contentType
		if contentType == "" {
			contentType = "application/json"
		}
		httpReq.Header.Set("Content-Type", contentType)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, &models.RemoteServiceError{Operation: r.operation, Err: fmt.Errorf("HTTP request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.RemoteServiceError{Operation: r.operation, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.RemoteServiceError{
			Operation:  r.operation,
			StatusCode: resp.StatusCode,
			Payload:    errorPayload(data),
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &models.RemoteServiceError{
			Operation:  r.operation,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return out, nil
}

// errorPayload decodes a service error body, falling back to the raw text.
func errorPayload(data []byte) map[string]any {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err == nil && payload != nil {
		return payload
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil
	}
	return map[string]any{"error": text}
}
