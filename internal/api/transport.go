package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"imsenvista/internal/metrics"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultAuthScheme = "Bearer"
	maxErrorBody      = 4096
)

// Transport issues authenticated GET requests against the Envista API.
// It holds no mutable state; concurrency safety is that of httpClient.
type Transport struct {
	httpClient *http.Client
	baseURL    string
	token      string
	authScheme string
	language   Language
	logger     *slog.Logger
}

// Get performs req and returns the raw response body. A 204 response
// returns a nil body and no error.
func (t *Transport) Get(ctx context.Context, req Request) ([]byte, error) {
	url := req.URL(t.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", t.authScheme+" "+t.token)
	if t.language != "" {
		httpReq.Header.Set("Accept-Language", string(t.language))
	}

	t.logger.Debug("HTTP request", "method", http.MethodGet, "url", url, "op", req.Op)

	start := time.Now()
	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordAPIRequest(req.Op, "error", time.Since(start))
		t.logger.Debug("HTTP request failed", "url", url, "err", err)
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	metrics.RecordAPIRequest(req.Op, strconv.Itoa(resp.StatusCode), duration)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("read response body: %w", err)}
	}

	t.logger.Debug("HTTP response",
		"url", url,
		"status", resp.StatusCode,
		"duration", duration,
		"bytes", len(body),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthenticationError{StatusCode: resp.StatusCode, URL: url}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &NotFoundError{URL: url}
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &ServiceError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
	}

	return body, nil
}
