// Package backend implements the client side of the three-step sync protocol
// shared by every data kind:
//
//	POST /api/{kind}/sync/setup  -> source_id
//	GET  /api/{kind}/sync/status -> last_sync_at watermark
//	POST /api/{kind}/sync        -> upsert one batch
//
// The client carries no source-specific logic; the kind only selects the URL
// segment. Transient failures (transport, 5xx) are retried a bounded number
// of times within a call; non-transient failures surface immediately as a
// typed *Error so the sync session can classify them.
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

	"github.com/cenkalti/backoff/v5"

	"github.com/fountainhq/fountain-agent/internal/platform"
)

const (
	defaultTimeout = 30 * time.Second

	// maxTries bounds in-call retries of transient failures. A run that still
	// fails is retried on the next scheduled tick, never within the run.
	maxTries = 3

	// maxErrorBody caps how much of an error response is kept in messages.
	maxErrorBody = 512
)

// Client talks to the sync backend. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a backend client. apiKey may be empty; the header is
// omitted in that case and the backend decides whether to accept the call.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type setupRequest struct {
	Platform       string `json:"platform"`
	PlatformUserID string `json:"platform_user_id"`
}

type setupResponse struct {
	SourceID json.RawMessage `json:"source_id"`
}

type statusResponse struct {
	LastSyncAt *string `json:"last_sync_at"`
}

// Setup registers (or re-confirms) a source with the backend and returns the
// stable source identifier scoping all subsequent calls. Idempotent; called
// on every sync attempt.
func (c *Client) Setup(ctx context.Context, kind platform.Kind, p platform.Platform, userID string) (string, error) {
	url := fmt.Sprintf("%s/api/%s/sync/setup", c.baseURL, kind)
	body, err := json.Marshal(setupRequest{Platform: string(p), PlatformUserID: userID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal setup request: %w", err)
	}

	data, err := c.do(ctx, "setup", http.MethodPost, url, body)
	if err != nil {
		return "", err
	}

	var resp setupResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to parse setup response: %w", err)
	}
	id, err := decodeSourceID(resp.SourceID)
	if err != nil {
		return "", fmt.Errorf("missing source_id in setup response: %w", err)
	}
	return id, nil
}

// Status returns the backend's last-confirmed sync watermark for a source, or
// nil if the source has never completed a sync.
func (c *Client) Status(ctx context.Context, kind platform.Kind, sourceID string) (*time.Time, error) {
	url := fmt.Sprintf("%s/api/%s/sync/status?source_id=%s", c.baseURL, kind, sourceID)

	data, err := c.do(ctx, "status", http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	var resp statusResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	if resp.LastSyncAt == nil || *resp.LastSyncAt == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, *resp.LastSyncAt)
	if err != nil {
		return nil, fmt.Errorf("invalid last_sync_at in status response: %w", err)
	}
	return &t, nil
}

// Push upserts one batch of items. The payload carries its own source_id;
// repeating a batch after a retry must not duplicate data, which the backend
// guarantees by upserting on the items' external identifiers.
func (c *Client) Push(ctx context.Context, kind platform.Kind, payload any) error {
	url := fmt.Sprintf("%s/api/%s/sync", c.baseURL, kind)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	_, err = c.do(ctx, "push", http.MethodPost, url, body)
	return err
}

// Health probes the backend, used by the settings surface to test a
// connection before saving it.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, "health", http.MethodGet, c.baseURL+"/api/health", nil)
	return err
}

// do performs one protocol call with bounded retries of transient failures.
func (c *Client) do(ctx context.Context, op, method, url string, body []byte) ([]byte, error) {
	operation := func() ([]byte, error) {
		data, err := c.doOnce(ctx, op, method, url, body)
		if err != nil {
			var be *Error
			if errors.As(err, &be) && !be.retryable() {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return data, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTries),
	)
}

func (c *Client) doOnce(ctx context.Context, op, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), maxErrorBody),
		}
	}
	return data, nil
}

// decodeSourceID accepts both string and numeric source identifiers; the
// backend historically returned a number.
func decodeSourceID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("source_id is empty")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("source_id is empty")
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("source_id has unexpected type")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
