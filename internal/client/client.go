// Package client is a typed HTTP client for the ragstore API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/ragstore/internal/models"
)

// DefaultServerURL is where the server listens by default.
const DefaultServerURL = "http://localhost:8000"

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to one ragstore server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for baseURL (DefaultServerURL when empty).
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Insert stores text and returns its position.
func (c *Client) Insert(ctx context.Context, text string) (int, error) {
	var out models.InsertResponse
	if err := c.do(ctx, http.MethodPost, "/insert", models.InsertRequest{Text: text}, &out); err != nil {
		return -1, err
	}
	return out.Position, nil
}

// Query returns the k most similar texts, with scores when withScores is set.
// k <= 0 lets the server apply its default.
func (c *Client) Query(ctx context.Context, query string, k int, withScores bool) (*models.QueryResponse, error) {
	req := models.QueryRequest{Query: query, WithScores: withScores}
	if k > 0 {
		req.K = &k
	}
	var out models.QueryResponse
	if err := c.do(ctx, http.MethodPost, "/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the record at position.
func (c *Client) Get(ctx context.Context, position int) (*models.RecordResponse, error) {
	var out models.RecordResponse
	if err := c.do(ctx, http.MethodGet, "/records/"+strconv.Itoa(position), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status returns the store status, optionally with an alignment check.
func (c *Client) Status(ctx context.Context, verify bool) (*models.StatusResponse, error) {
	path := "/status"
	if verify {
		path += "?verify=true"
	}
	var out models.StatusResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports whether the server answers /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e models.ErrorResponse
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
