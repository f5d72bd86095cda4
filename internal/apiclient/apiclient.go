// Package apiclient is a thin HTTP client for executing plan steps against
// a live backend. The simulated executor is the default; this client backs
// live execution when a base URL is configured.
package apiclient

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
)

// Result is the outcome of one HTTP call. Body holds the decoded JSON
// response when the server sent JSON, the raw text otherwise.
type Result struct {
	Success bool
	Status  int
	Body    any
}

type Client struct {
	base  string
	token string
	hc    *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithToken sets a bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call performs one request. GET and DELETE encode params as query values;
// other methods send them as a JSON body.
func (c *Client) Call(ctx context.Context, path, method string, params map[string]any) (*Result, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	endpoint := c.base + "/" + strings.TrimLeft(path, "/")

	var body io.Reader
	if method == http.MethodGet || method == http.MethodDelete {
		if len(params) > 0 {
			q := url.Values{}
			for k, v := range params {
				q.Set(k, fmt.Sprintf("%v", v))
			}
			endpoint += "?" + q.Encode()
		}
	} else {
		payload, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", path, err)
	}

	res := &Result{
		Success: resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:  resp.StatusCode,
	}
	var decoded any
	if json.Unmarshal(raw, &decoded) == nil {
		res.Body = decoded
	} else {
		res.Body = string(raw)
	}
	return res, nil
}
