// Package client talks to the price-drop-tracker HTTP API on behalf of the
// pdt CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
)

// Client calls the price-drop-tracker API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// APIError is a response with status >= 400. Detail holds the problem
// message when the server sent one, otherwise the raw body.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.StatusCode, e.Detail)
}

// IsStatus reports whether err carries an APIError with the given status.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// problem is the subset of an RFC 9457 body the server emits.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func newAPIError(status int, body []byte) *APIError {
	var p problem
	if err := json.Unmarshal(body, &p); err == nil {
		switch {
		case p.Detail != "":
			return &APIError{StatusCode: status, Detail: p.Detail}
		case p.Title != "":
			return &APIError{StatusCode: status, Detail: p.Title}
		}
	}
	return &APIError{StatusCode: status, Detail: strings.TrimSpace(string(body))}
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, dst)
	return err
}

func (c *Client) del(ctx context.Context, path string, dst any) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, dst)
	return err
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		r = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends one request and decodes a successful JSON response into dst. The
// status code is returned so callers can tell 200 from 201.
func (c *Client) do(ctx context.Context, method, path string, body, dst any) (int, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return 0, fmt.Errorf("API server not running at %s", c.baseURL)
		}
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading %s %s response: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, newAPIError(resp.StatusCode, payload)
	}
	if dst == nil || len(payload) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return resp.StatusCode, nil
}
