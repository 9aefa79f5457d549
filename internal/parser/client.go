// Package parser calls the downstream service that decodes a replay and
// stores its match statistics.
//
// The service receives the absolute replay path, not the file contents, so
// it must run on a host that can read the watched directories.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"recwatch/internal/logging"
	"recwatch/internal/services"
)

const (
	userAgent      = "recwatch/0.1.0"
	maxBodyExcerpt = 512
)

// Client parses one replay per call.
type Client interface {
	Parse(ctx context.Context, path string) (Response, error)
}

// Response summarizes a successful call.
type Response struct {
	StatusCode int
	RequestID  string
	Duration   time.Duration
	Body       string
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("parse service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("parse service returned %d: %s", e.StatusCode, e.Body)
}

type request struct {
	ReplayFile string `json:"replay_file"`
}

// HTTPClient posts {"replay_file": path} to the configured endpoint.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPClient builds a client with the given per-call timeout.
func NewHTTPClient(endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "parser"),
	}
}

// Endpoint returns the URL requests are sent to.
func (c *HTTPClient) Endpoint() string { return c.endpoint }

// Parse sends one request. Every failure is classified with a services
// marker: transport errors are ErrTransient, deadlines ErrTimeout, 4xx
// ErrValidation, and other statuses ErrExternalTool wrapping *StatusError.
func (c *HTTPClient) Parse(ctx context.Context, path string) (Response, error) {
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	resp := Response{RequestID: requestID}

	body, err := json.Marshal(request{ReplayFile: path})
	if err != nil {
		return resp, services.Wrap(services.ErrValidation, "parser", "encode request", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return resp, services.Wrap(services.ErrConfiguration, "parser", "build request", c.endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	httpResp, err := c.client.Do(req)
	resp.Duration = time.Since(started)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return resp, services.Wrap(services.ErrTimeout, "parser", "post", "no response before deadline", err)
		}
		return resp, services.Wrap(services.ErrTransient, "parser", "post", "service unreachable", err)
	}
	defer httpResp.Body.Close()

	excerpt, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyExcerpt))
	_, _ = io.Copy(io.Discard, httpResp.Body)
	resp.StatusCode = httpResp.StatusCode
	resp.Body = strings.TrimSpace(string(excerpt))

	c.logger.Debug("parse service responded",
		logging.String(logging.FieldCorrelationID, requestID),
		logging.Int("status", httpResp.StatusCode),
		logging.Duration("duration", resp.Duration))

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		return resp, nil
	}
	statusErr := &StatusError{StatusCode: httpResp.StatusCode, Body: resp.Body}
	marker := services.ErrExternalTool
	if httpResp.StatusCode >= 400 && httpResp.StatusCode < 500 {
		marker = services.ErrValidation
	}
	return resp, services.Wrap(marker, "parser", "post", "", statusErr)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
