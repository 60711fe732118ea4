// Package rest provides JSON-focused typed method wrappers over the fetchkit
// client. Successful JSON bodies decode into the caller's type; 204 No
// Content yields a Result with nil Data; pipeline errors propagate unchanged.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/fetchkit"
)

// Client wraps the base client with typed JSON helpers.
type Client struct {
	http *fetchkit.Client
}

// New creates a REST client from the given config.
func New(cfg fetchkit.Config) (*Client, error) {
	c, err := fetchkit.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{http: c}, nil
}

// NewFromClient creates a REST client from an existing client.
func NewFromClient(c *fetchkit.Client) *Client {
	return &Client{http: c}
}

// HTTP returns the underlying client.
func (c *Client) HTTP() *fetchkit.Client {
	return c.http
}

// Option configures a single REST request.
type Option func(*fetchkit.Options)

// WithHeaders adds call-specific headers.
func WithHeaders(headers map[string]string) Option {
	return func(o *fetchkit.Options) {
		o.Headers = headers
	}
}

// WithQuery adds URL query parameters.
func WithQuery(params map[string]string) Option {
	return func(o *fetchkit.Options) {
		o.Query = params
	}
}

// WithTimeout overrides the client default timeout for this call.
func WithTimeout(timeout time.Duration) Option {
	return func(o *fetchkit.Options) {
		o.Timeout = timeout
	}
}

// Result is a typed REST response.
type Result[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers http.Header
	// Data is the decoded body. Nil for 204 No Content and empty bodies;
	// non-nil (but zero) for a body holding JSON null.
	Data *T
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](ctx context.Context, c *Client, endpoint string, opts ...Option) (*Result[T], error) {
	return do[T](ctx, c, http.MethodGet, endpoint, nil, opts...)
}

// Post performs a POST request with a JSON-encoded body.
func Post[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...Option) (*Result[T], error) {
	return do[T](ctx, c, http.MethodPost, endpoint, body, opts...)
}

// Put performs a PUT request with a JSON-encoded body.
func Put[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...Option) (*Result[T], error) {
	return do[T](ctx, c, http.MethodPut, endpoint, body, opts...)
}

// Patch performs a PATCH request with a JSON-encoded body.
func Patch[T any](ctx context.Context, c *Client, endpoint string, body any, opts ...Option) (*Result[T], error) {
	return do[T](ctx, c, http.MethodPatch, endpoint, body, opts...)
}

// Delete performs a DELETE request.
func Delete[T any](ctx context.Context, c *Client, endpoint string, opts ...Option) (*Result[T], error) {
	return do[T](ctx, c, http.MethodDelete, endpoint, nil, opts...)
}

func do[T any](ctx context.Context, c *Client, method, endpoint string, body any, opts ...Option) (*Result[T], error) {
	o := fetchkit.Options{Method: method}
	for _, opt := range opts {
		opt(&o)
	}
	if body != nil {
		// Multipart bodies pass through unencoded; anything else is JSON.
		if form, ok := body.(*fetchkit.FormBody); ok {
			o.Body = form
		} else {
			o.Body = fetchkit.JSON{Value: body}
		}
	}

	resp, err := c.http.Do(ctx, endpoint, &o)
	if err != nil {
		return nil, err
	}

	result := &Result[T]{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
	}
	if resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0 {
		return result, nil
	}

	var data T
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("rest: decode response: %w", err)
	}
	result.Data = &data
	return result, nil
}
