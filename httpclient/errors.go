package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType identifies the category of a client error.
type ErrorType string

const (
	// NetworkError indicates a transport-level failure with no HTTP status
	NetworkError ErrorType = "network"
	// TimeoutError indicates the request exceeded its deadline
	TimeoutError ErrorType = "timeout"
	// CancelledError indicates the request context was cancelled by the caller
	CancelledError ErrorType = "cancelled"
	// HTTPError indicates a non-2xx HTTP response
	HTTPError ErrorType = "http"
	// ValidationError indicates invalid input before any network activity
	ValidationError ErrorType = "validation"
	// InterceptorError indicates a request or response interceptor failed
	InterceptorError ErrorType = "interceptor"
	// AuthError indicates a credential or token refresh failure
	AuthError ErrorType = "auth"
)

// ClientError is the normalized failure type surfaced by the client.
// Error interceptors may attach arbitrary annotations (category, suggestions)
// without losing the underlying failure information.
type ClientError interface {
	error
	Type() ErrorType
	// Annotate attaches an ad-hoc key/value to the error and returns the error
	// so calls can be chained inside interceptors.
	Annotate(key string, value any) ClientError
	// Annotations returns the annotation bag. It is never nil after the first
	// Annotate call; callers must treat it as read-mostly.
	Annotations() map[string]any
}

// annotations is embedded by every concrete error type to provide the open
// extension map described by the error interceptor contract.
type annotations struct {
	bag map[string]any
}

func (a *annotations) attach(key string, value any) {
	if a.bag == nil {
		a.bag = make(map[string]any)
	}
	a.bag[key] = value
}

func (a *annotations) Annotations() map[string]any {
	return a.bag
}

type networkError struct {
	annotations
	message string
	err     error
}

func (e *networkError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.err)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType { return NetworkError }

func (e *networkError) Unwrap() error { return e.err }

func (e *networkError) Annotate(key string, value any) ClientError {
	e.attach(key, value)
	return e
}

// NewNetworkError creates a transport-level error, optionally wrapping the
// underlying cause for errors.Is/As chains.
func NewNetworkError(message string, err error) ClientError {
	return &networkError{message: message, err: err}
}

type timeoutError struct {
	annotations
	message string
	timeout time.Duration
}

func (e *timeoutError) Error() string {
	if e.timeout <= 0 {
		return fmt.Sprintf("timeout error: %s", e.message)
	}
	return fmt.Sprintf("timeout error: %s (after %s)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType { return TimeoutError }

func (e *timeoutError) Timeout() time.Duration { return e.timeout }

func (e *timeoutError) Annotate(key string, value any) ClientError {
	e.attach(key, value)
	return e
}

// NewTimeoutError creates an error for a request that exceeded its deadline.
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{message: message, timeout: timeout}
}

type cancelledError struct {
	annotations
	message string
	err     error
}

func (e *cancelledError) Error() string {
	return fmt.Sprintf("cancelled: %s", e.message)
}

func (e *cancelledError) Type() ErrorType { return CancelledError }

func (e *cancelledError) Unwrap() error { return e.err }

func (e *cancelledError) Annotate(key string, value any) ClientError {
	e.attach(key, value)
	return e
}

// NewCancelledError creates an error for a caller-cancelled request.
func NewCancelledError(message string, err error) ClientError {
	return &cancelledError{message: message, err: err}
}

type httpError struct {
	annotations
	message    string
	statusCode int
	body       []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error: %s (status %d)", e.message, e.statusCode)
}

func (e *httpError) Type() ErrorType { return HTTPError }

func (e *httpError) StatusCode() int { return e.statusCode }

func (e *httpError) Body() []byte { return e.body }

func (e *httpError) Annotate(key string, value any) ClientError {
	e.attach(key, value)
	return e
}

// NewHTTPError creates an error for a non-2xx HTTP response. The response body
// is retained so callers can inspect structured error payloads.
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &httpError{message: message, statusCode: statusCode, body: body}
}

type validationError struct {
	annotations
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field %q)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType { return ValidationError }

func (e *validationError) Field() string { return e.field }

func (e *validationError) Annotate(key string, value any) ClientError {
	e.attach(key, value)
	return e
}

// NewValidationError creates an error for invalid request input.
func NewValidationError(message, field string) ClientError {
	return &validationError{message: message, field: field}
}

type interceptorError struct {
	annotations
	message string
	stage   string
	err     error
}

func (e *interceptorError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("interceptor error: %s (stage %s): %v", e.message, e.stage, e.err)
	}
	return fmt.Sprintf("interceptor error: %s (stage %s)", e.message, e.stage)
}

func (e *interceptorError) Type() ErrorType { return InterceptorError }

func (e *interceptorError) Stage() string { return e.stage }

func (e *interceptorError) Unwrap() error { return e.err }

func (e *interceptorError) Annotate(key string, value any) ClientError {
	e.attach(key, value)
	return e
}

// NewInterceptorError creates an error for a failed request or response
// interceptor. Stage is "request" or "response".
func NewInterceptorError(message, stage string, err error) ClientError {
	return &interceptorError{message: message, stage: stage, err: err}
}

type authError struct {
	annotations
	message string
	err     error
}

func (e *authError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("auth error: %s: %v", e.message, e.err)
	}
	return fmt.Sprintf("auth error: %s", e.message)
}

func (e *authError) Type() ErrorType { return AuthError }

func (e *authError) Unwrap() error { return e.err }

func (e *authError) Annotate(key string, value any) ClientError {
	e.attach(key, value)
	return e
}

// NewAuthError creates an error for a credential lifecycle failure.
func NewAuthError(message string, err error) ClientError {
	return &authError{message: message, err: err}
}

// IsErrorType reports whether err (or anything it wraps) is a ClientError of
// the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError reports whether err is an HTTP error with the given
// status code.
func IsHTTPStatusError(err error, statusCode int) bool {
	if err == nil {
		return false
	}
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.statusCode == statusCode
	}
	return false
}

// StatusCodeOf extracts the HTTP status code carried by err, if any.
// Transport-level failures carry no status code.
func StatusCodeOf(err error) (int, bool) {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.statusCode, true
	}
	return 0, false
}

// IsSuccessStatus reports whether the status code is in the 2xx range.
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

// IsRetryableStatus reports whether the status code is in the 5xx range,
// which the default retry condition treats as transient.
func IsRetryableStatus(statusCode int) bool {
	return statusCode >= http.StatusInternalServerError && statusCode < 600
}

// statusDescription returns a human-readable description for an HTTP status
// code, falling back to a generic label for unregistered codes.
func statusDescription(statusCode int) string {
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return "Unknown Status"
}
