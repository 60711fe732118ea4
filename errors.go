package fetchkit

import (
	"errors"
	"fmt"
)

// ErrorCode classifies request pipeline failures.
type ErrorCode int

const (
	// ErrCodeNetwork indicates a transport-level failure (DNS, connection
	// reset, body read, interceptor rejection) not otherwise classified.
	ErrCodeNetwork ErrorCode = iota
	// ErrCodeBadResponse indicates the server completed the exchange with a
	// non-success status.
	ErrCodeBadResponse
	// ErrCodeAborted indicates the call was cancelled because the effective
	// timeout elapsed before completion.
	ErrCodeAborted
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNetwork:
		return "network"
	case ErrCodeBadResponse:
		return "bad_response"
	case ErrCodeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Error is the unified client error raised for every request pipeline
// failure. It carries the finalized request configuration so callers can
// branch on failure kind without string-matching the message.
type Error struct {
	// Code classifies the failure.
	Code ErrorCode
	// StatusCode is the HTTP status code (0 for transport-level failures).
	StatusCode int
	// Message describes the error.
	Message string
	// Config is the finalized request configuration that failed.
	Config *RequestConfig
	// Response is the raw response, when the transport completed (bad
	// response failures only).
	Response *Response
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetchkit: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetchkit: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// newNetworkError wraps a transport-level failure.
func newNetworkError(cfg *RequestConfig, err error) *Error {
	return &Error{
		Code:    ErrCodeNetwork,
		Message: err.Error(),
		Config:  cfg,
		Err:     err,
	}
}

// newAbortError reports a timeout-driven cancellation.
func newAbortError(cfg *RequestConfig, err error) *Error {
	return &Error{
		Code:    ErrCodeAborted,
		Message: fmt.Sprintf("request timed out after %dms", cfg.Timeout.Milliseconds()),
		Config:  cfg,
		Err:     err,
	}
}

// newBadResponseError reports a completed exchange with a non-success status.
func newBadResponseError(cfg *RequestConfig, resp *Response, message string) *Error {
	return &Error{
		Code:       ErrCodeBadResponse,
		StatusCode: resp.StatusCode,
		Message:    message,
		Config:     cfg,
		Response:   resp,
	}
}

// IsNetwork checks if an error is a network error.
func IsNetwork(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeNetwork
}

// IsBadResponse checks if an error is a bad-response error.
func IsBadResponse(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeBadResponse
}

// IsAborted checks if an error is a timeout/abort error.
func IsAborted(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeAborted
}
