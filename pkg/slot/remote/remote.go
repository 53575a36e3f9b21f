// Package remote stores cart slots in a remote key/value service over HTTP.
// The service exposes:
//
//	GET  /get?key=<key>      -> {"result": "<json-encoded value>"} or null
//	POST /set                <- {"key": "<key>", "value": "<json-encoded value>"}
//	GET  /get_status         -> {"result": {"keys": [...]}}
//
// cmd/cafecart-sandbox serves the same API for local development.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eightbitcafe/cart_sdk_go/internal/httpx"
	"github.com/eightbitcafe/cart_sdk_go/internal/slotapi"
	"github.com/eightbitcafe/cart_sdk_go/pkg/slot"
)

// Client is a slot backend talking to the remote service.
type Client struct {
	http         *httpx.Client
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithPollInterval sets how often Watch polls the slot.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New constructs a Client bound to baseURL.
func New(baseURL string, httpOpts []httpx.Option, opts ...Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("remote slot: %w", err)
	}
	return NewWithHTTPClient(cl, opts...), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(cl *httpx.Client, opts ...Option) *Client {
	c := &Client{http: cl, pollInterval: slot.DefaultPollInterval}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements slot.Backend.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, slot.ErrKeyRequired
	}
	data, err := c.http.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "get",
		Query:  url.Values{"key": {key}},
	})
	if err != nil {
		return nil, classify("get", err)
	}
	payload, err := slotapi.ExtractResult(data)
	if err != nil {
		return nil, fmt.Errorf("remote slot: decode get response: %w", err)
	}
	if slotapi.IsNull(payload) {
		return nil, nil
	}
	return payload, nil
}

// Set implements slot.Backend.
func (c *Client) Set(ctx context.Context, key string, raw []byte) error {
	if strings.TrimSpace(key) == "" {
		return slot.ErrKeyRequired
	}
	body, err := httpx.JSONBody(map[string]any{
		"key":   key,
		"value": string(raw),
	})
	if err != nil {
		return fmt.Errorf("remote slot: encode set request: %w", err)
	}
	_, err = c.http.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "set",
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
	if err != nil {
		return classify("set", err)
	}
	return nil
}

// Keys lists the slots known to the service.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	data, err := c.http.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "get_status",
	})
	if err != nil {
		return nil, classify("get_status", err)
	}
	var payload struct {
		Keys []string `json:"keys"`
	}
	if err := slotapi.DecodeResult(data, &payload); err != nil {
		return nil, fmt.Errorf("remote slot: decode get_status response: %w", err)
	}
	return payload.Keys, nil
}

// Watch implements slot.Watcher by polling.
func (c *Client) Watch(ctx context.Context, key string, fn func()) (func(), error) {
	if strings.TrimSpace(key) == "" {
		return nil, slot.ErrKeyRequired
	}
	return slot.Poll(ctx, c.pollInterval, key, c.Get, fn), nil
}

// classify maps transport failures onto the slot error kinds while keeping the
// original error in the chain.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch code := httpx.StatusCode(err); {
	case code == http.StatusRequestEntityTooLarge:
		return fmt.Errorf("remote slot: %s: %w: %w", op, slot.ErrQuotaExceeded, err)
	case code == 0 || code >= 500:
		return fmt.Errorf("remote slot: %s: %w: %w", op, slot.ErrUnavailable, err)
	default:
		return fmt.Errorf("remote slot: %s: %w", op, err)
	}
}

var (
	_ slot.Backend = (*Client)(nil)
	_ slot.Watcher = (*Client)(nil)
)
