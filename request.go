package fetchkit

import (
	"io"
	"net/http"
	"time"
)

// CredentialsPolicy controls whether cookies travel with a request.
type CredentialsPolicy string

const (
	// CredentialsOmit never sends cookies.
	CredentialsOmit CredentialsPolicy = "omit"
	// CredentialsSameOrigin sends cookies only to the client's base URL host.
	CredentialsSameOrigin CredentialsPolicy = "same-origin"
	// CredentialsInclude always sends cookies.
	CredentialsInclude CredentialsPolicy = "include"
)

// Options configures a single call. All fields are optional; zero values
// fall back to the client defaults.
type Options struct {
	// Method is the HTTP method. Set by the method wrappers; defaults to GET.
	Method string
	// Headers are call-specific headers. They win over client defaults on
	// key collision.
	Headers map[string]string
	// Query are URL query parameters.
	Query map[string]string
	// Body is the request body.
	Body Body
	// Timeout overrides the client default timeout for this call.
	Timeout time.Duration
	// Credentials overrides the client default credentials policy.
	Credentials CredentialsPolicy
}

// RequestConfig is the effective per-call configuration: the result of
// merging the auto-detected content type, the client defaults and the
// call-specific options. It is threaded mutably through the request
// interceptor chain, frozen when the transport call is issued, and attached
// to the resulting response or error for inspection.
type RequestConfig struct {
	// ID uniquely identifies the call (for logs and diagnostics).
	ID string
	// Method is the HTTP method.
	Method string
	// BaseURL is the client base URL the call was made against.
	BaseURL string
	// Endpoint is the endpoint as given by the caller.
	Endpoint string
	// URL is the resolved absolute URL.
	URL string
	// Headers are the fully merged request headers.
	Headers http.Header
	// Query are URL query parameters.
	Query map[string]string
	// Body is the request body.
	Body Body
	// Timeout is the effective timeout. Not applied to streaming calls.
	Timeout time.Duration
	// Stream marks a streaming call (no timeout, body left open).
	Stream bool
	// Credentials is the effective credentials policy.
	Credentials CredentialsPolicy
}

// Response is the outcome of a call, carrying the configuration that
// produced it.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers http.Header
	// Body is the buffered response body. Nil for streaming calls and for
	// 204 No Content.
	Body []byte
	// Stream is the open response body for streaming calls. The consumer
	// owns it and must close it.
	Stream io.ReadCloser
	// Config is the finalized request configuration that produced this
	// response.
	Config *RequestConfig
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}
