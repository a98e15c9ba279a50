// Package api implements the remote gateway against the expense
// service's REST API.
package api

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

	"kakebo/internal/log"
	"kakebo/internal/remote"
)

// TokenFunc supplies the current bearer credential for a request. The
// auth layer owns rotation; the client just asks on every call.
type TokenFunc func(ctx context.Context) (string, error)

// StaticToken returns a TokenFunc that always yields the same token.
func StaticToken(token string) TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

type Config struct {
	// BaseURL is the root of the expense API, e.g. http://localhost:8080/api
	BaseURL string

	// Token supplies the bearer credential per request. Required.
	Token TokenFunc

	// Timeout bounds each call. Defaults to 30s. The sync engine adds
	// no timeout of its own, so this is the only bound on a call.
	Timeout time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client talks JSON to the expense API and maps non-2xx responses to
// *remote.APIError so callers can classify outcomes.
type Client struct {
	baseURL string
	token   TokenFunc
	http    *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %w", err)
	}
	if cfg.Token == nil {
		return nil, fmt.Errorf("api: token func is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: log.NewHTTPTransport(nil),
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
	}, nil
}

// CreateExpense implements remote.Gateway.
func (c *Client) CreateExpense(ctx context.Context, p remote.ExpensePayload) (remote.Record, error) {
	var rec remote.Record
	if err := c.do(ctx, http.MethodPost, "/expenses", p, &rec); err != nil {
		return remote.Record{}, fmt.Errorf("create expense: %w", err)
	}
	return rec, nil
}

// UpdateExpense implements remote.Gateway.
func (c *Client) UpdateExpense(ctx context.Context, id string, p remote.ExpensePayload) (remote.Record, error) {
	var rec remote.Record
	if err := c.do(ctx, http.MethodPut, "/expenses/"+url.PathEscape(id), p, &rec); err != nil {
		return remote.Record{}, fmt.Errorf("update expense %s: %w", id, err)
	}
	return rec, nil
}

// DeleteExpense implements remote.Gateway.
func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/expenses/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	return nil
}

// ListExpenses implements remote.Gateway.
func (c *Client) ListExpenses(ctx context.Context) ([]remote.Record, error) {
	var recs []remote.Record
	if err := c.do(ctx, http.MethodGet, "/expenses", nil, &recs); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return recs, nil
}

// Ping implements remote.Gateway.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) apiError(resp *http.Response) error {
	apiErr := &remote.APIError{StatusCode: resp.StatusCode}

	// Error bodies are {"message": "..."} when the server bothers.
	var body struct {
		Message string `json:"message"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(raw) > 0 {
		if json.Unmarshal(raw, &body) == nil {
			apiErr.Message = body.Message
		}
	}
	return apiErr
}
