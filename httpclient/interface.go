package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	fetchtrace "github.com/myopentrip/fetch-client/trace"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = fetchtrace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = fetchtrace.HeaderTraceParent
	// HeaderAuthorization carries the credential injected by the auth interceptor
	HeaderAuthorization = "Authorization"
)

// Client defines the REST client interface for making HTTP requests
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)

	// Interceptors exposes the request/response/error chains for registration.
	Interceptors() *Interceptors
	// UpdateRetryPolicy replaces the client-wide retry policy for subsequent calls.
	UpdateRetryPolicy(policy *RetryPolicy)
	// UploadFile sends a multipart upload with optional progress reporting.
	UploadFile(ctx context.Context, req *UploadRequest) (*Response, error)
}

// Request represents an HTTP request with all necessary data.
// Path may be absolute (used as-is) or relative (joined with the client's
// base URL). Headers use last-write-wins semantics per key.
type Request struct {
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
	// Timeout overrides the client default for this call only.
	Timeout time.Duration
	// Retry overrides the client-wide retry policy for this call only.
	Retry *RetryPolicy
}

// Response represents an HTTP response with tracking information.
// Data holds the JSON-decoded body when the content type indicates JSON;
// otherwise it is nil and Body carries the raw payload. Annotations is an
// open extension map response interceptors may populate.
type Response struct {
	StatusCode  int
	Status      string
	Headers     nethttp.Header
	Body        []byte
	Data        any
	Annotations map[string]any
	Stats       Stats
}

// Annotate attaches an ad-hoc key/value to the response for downstream
// interceptors and callers.
func (r *Response) Annotate(key string, value any) *Response {
	if r.Annotations == nil {
		r.Annotations = make(map[string]any)
	}
	r.Annotations[key] = value
	return r
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	// Attempts counts transport calls made for this logical request,
	// including retries.
	Attempts int64
}

// Config holds the REST client configuration
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	Retry          *RetryPolicy
	DefaultHeaders map[string]string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new trace ID when none is present (default: uuid)
	NewTraceID func() string
	// EnableW3CTrace enables W3C traceparent propagation and generation
	EnableW3CTrace bool
	// SSL configures TLS failure classification on the error chain
	SSL SSLConfig
}

// Trace ID utility functions

// WithTraceID adds a trace ID to the context for HTTP client propagation
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return fetchtrace.WithTraceID(ctx, traceID)
}

// TraceIDFromContext returns a trace ID from context if present
func TraceIDFromContext(ctx context.Context) (string, bool) { return fetchtrace.IDFromContext(ctx) }

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string { return fetchtrace.EnsureTraceID(ctx) }

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return fetchtrace.WithTraceParent(ctx, traceParent)
}

// TraceParentFromContext returns a traceparent from context if present
func TraceParentFromContext(ctx context.Context) (string, bool) {
	return fetchtrace.ParentFromContext(ctx)
}

// GenerateTraceParent creates a minimal W3C traceparent header value.
func GenerateTraceParent() string { return fetchtrace.GenerateTraceParent() }

// NewTraceIDInterceptor creates a request interceptor that adds trace ID headers
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, EnsureTraceID(ctx))
		}
		return nil
	}
}
