// Package rest is the shared JSON transport used by every collaborator
// client. Retry policy lives here, per the service boundary: orchestration
// code never retries, the HTTP client does.
package rest

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

	"github.com/approva/simulado-backend/internal/platform/httpx"
	"github.com/approva/simulado-backend/internal/platform/logger"
)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	name       string
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	maxRetries int
}

func New(log *logger.Logger, name string, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%s: missing base URL", name)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Client{
		name:       name,
		log:        log.With("client", name),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

type HTTPError struct {
	Collaborator string
	StatusCode   int
	Body         string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("%s http %d: %s", e.Collaborator, e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// DoJSON performs one logical round trip with transport-level retries.
// `bearer` is forwarded as-is when non-empty; `out` may be nil when the
// response body is irrelevant.
func (c *Client) DoJSON(ctx context.Context, method, path, bearer string, body, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, bearer, body)
		if err == nil {
			if out == nil || len(raw) == 0 {
				return nil
			}
			if uerr := json.Unmarshal(raw, out); uerr != nil {
				return fmt.Errorf("%s: malformed response body: %w", c.name, uerr)
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}

	return errors.New("unreachable retry loop")
}

func (c *Client) doOnce(ctx context.Context, method, path, bearer string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	if bearer != "" {
		if !strings.HasPrefix(bearer, "Bearer ") {
			bearer = "Bearer " + bearer
		}
		req.Header.Set("Authorization", bearer)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{Collaborator: c.name, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
