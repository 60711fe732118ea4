package fetchkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kbukum/fetchkit/sse"
)

// InterceptorChains holds the request- and response-phase interceptor
// registries of a client.
type InterceptorChains struct {
	Request  *Chain[*RequestConfig]
	Response *Chain[*Response]
}

// Client is an HTTP client with interceptor chains, per-call timeout
// control, unified error classification and SSE streaming. Safe for
// concurrent use.
type Client struct {
	config    Config
	transport http.RoundTripper
	jar       http.CookieJar
	baseHost  string
	logger    zerolog.Logger
	metrics   *Metrics

	// Interceptors are the request and response interceptor registries.
	Interceptors InterceptorChains
}

// New creates a Client from the given configuration.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("fetchkit: create cookie jar: %w", err)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	baseHost := ""
	if u, err := url.Parse(cfg.BaseURL); err == nil {
		baseHost = u.Host
	}

	return &Client{
		config:    cfg,
		transport: http.DefaultTransport,
		jar:       jar,
		baseHost:  baseHost,
		logger:    logger,
		metrics:   cfg.Metrics,
		Interceptors: InterceptorChains{
			Request:  &Chain[*RequestConfig]{},
			Response: &Chain[*Response]{},
		},
	}, nil
}

// Do executes a buffered request. opts may be nil.
func (c *Client) Do(ctx context.Context, endpoint string, opts *Options) (*Response, error) {
	return c.request(ctx, endpoint, opts, false)
}

// DoStream executes a streaming request: no timeout is armed and the
// response body is returned open. The caller owns Response.Stream.
func (c *Client) DoStream(ctx context.Context, endpoint string, opts *Options) (*Response, error) {
	return c.request(ctx, endpoint, opts, true)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, opts *Options) (*Response, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, opts)
}

// Post performs a POST request with the given body.
func (c *Client) Post(ctx context.Context, endpoint string, body Body, opts *Options) (*Response, error) {
	return c.do(ctx, http.MethodPost, endpoint, body, opts)
}

// Put performs a PUT request with the given body.
func (c *Client) Put(ctx context.Context, endpoint string, body Body, opts *Options) (*Response, error) {
	return c.do(ctx, http.MethodPut, endpoint, body, opts)
}

// Patch performs a PATCH request with the given body.
func (c *Client) Patch(ctx context.Context, endpoint string, body Body, opts *Options) (*Response, error) {
	return c.do(ctx, http.MethodPatch, endpoint, body, opts)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, opts *Options) (*Response, error) {
	return c.do(ctx, http.MethodDelete, endpoint, nil, opts)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body Body, opts *Options) (*Response, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.Method = method
	if body != nil {
		o.Body = body
	}
	return c.request(ctx, endpoint, &o, false)
}

// SSE opens a Server-Sent Events connection. The returned handle is live
// immediately; the network call and read loop run in the background. The
// method is forced to GET, and Accept/Cache-Control headers are forced over
// any caller-specified ones.
func (c *Client) SSE(ctx context.Context, endpoint string, opts sse.Options) (*sse.Connection, error) {
	headers := make(map[string]string, len(opts.Headers)+2)
	for k, v := range opts.Headers {
		headers[k] = v
	}
	headers["Accept"] = "text/event-stream"
	headers["Cache-Control"] = "no-cache"

	dial := func(ctx context.Context) (io.ReadCloser, error) {
		resp, err := c.request(ctx, endpoint, &Options{Method: http.MethodGet, Headers: headers}, true)
		if err != nil {
			return nil, err
		}
		if resp.Stream == nil {
			return nil, errors.New("sse: response has no readable body")
		}
		if !resp.IsSuccess() {
			_ = resp.Stream.Close()
			return nil, fmt.Errorf("sse: unexpected status %d", resp.StatusCode)
		}
		return resp.Stream, nil
	}

	log := c.logger.With().Str("endpoint", endpoint).Logger()
	wrapped := opts
	if opts.OnMessage != nil {
		userOnMessage := opts.OnMessage
		wrapped.OnMessage = func(ev *sse.Event) {
			if c.metrics != nil {
				c.metrics.sseEvent()
			}
			userOnMessage(ev)
		}
	}
	// A failed dial closes without ever opening; the gauge only moves for
	// connections that actually opened.
	var opened atomic.Bool
	userOnOpen := opts.OnOpen
	wrapped.OnOpen = func() {
		opened.Store(true)
		if c.metrics != nil {
			c.metrics.sseOpened()
		}
		log.Debug().Msg("sse connection open")
		if userOnOpen != nil {
			userOnOpen()
		}
	}
	userOnClose := opts.OnClose
	wrapped.OnClose = func() {
		if c.metrics != nil && opened.Load() {
			c.metrics.sseClosed()
		}
		log.Debug().Msg("sse connection closed")
		if userOnClose != nil {
			userOnClose()
		}
	}
	userOnError := opts.OnError
	wrapped.OnError = func(err error) {
		log.Debug().Err(err).Msg("sse connection failed")
		if userOnError != nil {
			userOnError(err)
		}
	}

	return sse.Connect(ctx, wrapped, dial)
}

// request is the central pipeline: configuration merge, request interceptor
// chain, transport call with timeout control, response interceptor chain,
// and failure classification.
func (c *Client) request(parent context.Context, endpoint string, opts *Options, stream bool) (*Response, error) {
	if opts == nil {
		opts = &Options{}
	}
	cfg := c.newRequestConfig(endpoint, opts, stream)

	// Streaming calls are long-lived by design and get no deadline;
	// cancellation is caller-driven.
	ctx := parent
	cancel := context.CancelFunc(func() {})
	if !stream {
		ctx, cancel = context.WithTimeout(parent, cfg.Timeout)
	}
	defer cancel()

	start := time.Now()
	c.logger.Debug().
		Str("request_id", cfg.ID).
		Str("method", cfg.Method).
		Str("url", cfg.URL).
		Bool("stream", stream).
		Msg("request started")

	if next, ierr := c.Interceptors.Request.run(cfg); ierr != nil {
		return nil, c.finishError(parent, ctx, cfg, ierr)
	} else if next != nil {
		cfg = next
	}

	resp, err := c.transportCall(ctx, cfg, stream)
	if err == nil && !stream {
		// Release the timer before response interceptors run.
		cancel()
	}
	if err == nil {
		next, ierr := c.Interceptors.Response.run(resp)
		if ierr == nil && next == nil {
			ierr = errors.New("response interceptor returned no response")
		}
		if ierr != nil && resp.Stream != nil {
			// The caller never sees the response, so the open body is
			// released here.
			_ = resp.Stream.Close()
		}
		resp, err = next, ierr
	}
	if err != nil {
		return nil, c.finishError(parent, ctx, cfg, err)
	}

	if stream {
		return resp, nil
	}

	if c.metrics != nil {
		c.metrics.recordRequest(cfg.Method, resp.StatusCode, time.Since(start))
	}
	c.logger.Debug().
		Str("request_id", cfg.ID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	if !resp.IsSuccess() {
		return nil, c.finishError(parent, ctx, cfg, classifyStatus(cfg, resp))
	}

	// 204 resolves to a response with no body, distinct from a body that
	// decodes to JSON null.
	if resp.StatusCode == http.StatusNoContent {
		resp.Body = nil
	}
	return resp, nil
}

// transportCall encodes the body, builds the wire request and performs the
// round trip.
func (c *Client) transportCall(ctx context.Context, cfg *RequestConfig, stream bool) (*Response, error) {
	reader, formContentType, err := encodeBody(cfg.Body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, reader)
	if err != nil {
		return nil, err
	}
	req.Header = cfg.Headers.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if formContentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", formContentType)
	}

	if len(cfg.Query) > 0 {
		q := req.URL.Query()
		for k, v := range cfg.Query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	httpClient := &http.Client{
		Transport: c.transport,
		Jar:       c.jarFor(cfg, req.URL),
	}
	raw, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		StatusCode: raw.StatusCode,
		Headers:    raw.Header,
		Config:     cfg,
	}
	if stream {
		resp.Stream = raw.Body
		return resp, nil
	}

	defer func() { _ = raw.Body.Close() }()
	body, err := io.ReadAll(raw.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = body
	return resp, nil
}

// newRequestConfig merges the auto content-type, client defaults and
// call-specific options into the effective per-call configuration.
func (c *Client) newRequestConfig(endpoint string, opts *Options, stream bool) *RequestConfig {
	headers := make(http.Header)

	// Lowest precedence: the default user agent and the inferred content
	// type. Multipart bodies carry the boundary parameter in their own
	// encoding and never get a content type here.
	headers.Set("User-Agent", userAgent())
	if _, isForm := opts.Body.(*FormBody); !isForm {
		headers.Set("Content-Type", "application/json")
	}
	for k, v := range c.config.Headers {
		headers.Set(k, v)
	}
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := c.config.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	credentials := c.config.Credentials
	if opts.Credentials != "" {
		credentials = opts.Credentials
	}

	return &RequestConfig{
		ID:          uuid.NewString(),
		Method:      method,
		BaseURL:     c.config.BaseURL,
		Endpoint:    endpoint,
		URL:         BuildURL(c.config.BaseURL, endpoint),
		Headers:     headers,
		Query:       opts.Query,
		Body:        opts.Body,
		Timeout:     timeout,
		Stream:      stream,
		Credentials: credentials,
	}
}

// jarFor applies the credentials policy: omit disables cookies, same-origin
// restricts them to the base URL host, include always sends them.
func (c *Client) jarFor(cfg *RequestConfig, u *url.URL) http.CookieJar {
	switch cfg.Credentials {
	case CredentialsOmit:
		return nil
	case CredentialsInclude:
		return c.jar
	default:
		if c.baseHost != "" && u.Host == c.baseHost {
			return c.jar
		}
		return nil
	}
}

// finishError is the single normalization point for pipeline failures.
func (c *Client) finishError(parent, ctx context.Context, cfg *RequestConfig, err error) error {
	ce := normalizeError(parent, ctx, cfg, err)
	if c.metrics != nil {
		c.metrics.recordError(ce.Code)
	}
	c.logger.Debug().
		Str("request_id", cfg.ID).
		Str("code", ce.Code.String()).
		Err(err).
		Msg("request failed")
	return ce
}

// normalizeError classifies a failure: a timer-driven deadline becomes an
// abort error, an existing *Error passes through unchanged, and everything
// else wraps as a network failure.
func normalizeError(parent, ctx context.Context, cfg *RequestConfig, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if !cfg.Stream && errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		return newAbortError(cfg, err)
	}
	return newNetworkError(cfg, err)
}

// classifyStatus builds the bad-response error for a non-success status,
// drawing the message from a JSON "message" field when the body has one.
func classifyStatus(cfg *RequestConfig, resp *Response) *Error {
	message := fmt.Sprintf("request failed with status %d", resp.StatusCode)
	var payload struct {
		Message string `json:"message"`
	}
	// Decode failure is tolerated; the generic message stands.
	if err := json.Unmarshal(resp.Body, &payload); err == nil && payload.Message != "" {
		message = payload.Message
	}
	return newBadResponseError(cfg, resp, message)
}
