// Package hubapi is the client for the hub backend's REST API.
package hubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBody = 4096

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hub api status %d: %s", e.StatusCode, e.Message)
}

// Config configures the backend base URL and HTTP behavior.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	tracer  trace.Tracer
}

func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("hub api base url is required")
	}
	base, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse hub api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("hub api base url %q must be absolute", raw)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		transport := http.DefaultTransport
		hc = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		}
	}

	return &Client{
		baseURL: base,
		http:    hc,
		tracer:  otel.Tracer("github.com/emilythestrangee/reddit-clone/community/internal/hubapi"),
	}, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends a request and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "hubapi."+op, trace.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("hubapi.path", path),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer res.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return decodeError(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, io.LimitReader(res.Body, maxErrorBody))
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func decodeError(res *http.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	if err == nil && len(raw) > 0 {
		var payload struct {
			Detail  json.RawMessage `json:"detail"`
			Error   string          `json:"error"`
			Message string          `json:"message"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			var detail string
			if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) != nil {
				// FastAPI validation errors carry a list; keep it as JSON
				detail = string(payload.Detail)
			}
			switch {
			case detail != "":
				apiErr.Message = detail
			case payload.Error != "":
				apiErr.Message = payload.Error
			case payload.Message != "":
				apiErr.Message = payload.Message
			}
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(res.StatusCode)
	}
	return apiErr
}

// Health checks the backend and reports a status map, "up" or "down".
func (c *Client) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stats := map[string]string{"url": c.baseURL.String()}
	start := time.Now()
	if err := c.do(ctx, "health", http.MethodGet, "/health", nil, nil, nil); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}
	stats["status"] = "up"
	stats["latency_ms"] = fmt.Sprintf("%d", time.Since(start).Milliseconds())
	return stats
}
