package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/myopentrip/fetch-client/logger"
)

const defaultTimeout = 30 * time.Second

// Builder assembles a Client. Every client is an independent instance; there
// is no shared default client.
type Builder struct {
	log       logger.Logger
	config    *Config
	transport Transport
	auth      UnauthorizedHandler
	limit     float64
	burst     int
	disabled  bool
}

// NewBuilder creates a client builder with production defaults: 30s timeout,
// the default retry policy, payload logging off with a 1024-byte preview cap.
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		log: log,
		config: &Config{
			Timeout:            defaultTimeout,
			MaxPayloadLogBytes: defaultMaxPayloadLogBytes,
			DefaultHeaders:     make(map[string]string),
		},
	}
}

// WithBaseURL sets the base URL joined with relative request paths.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.BaseURL = baseURL
	return b
}

// WithTimeout sets the default per-call timeout.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	if timeout > 0 {
		b.config.Timeout = timeout
	}
	return b
}

// WithRetryPolicy sets the client-wide retry policy.
func (b *Builder) WithRetryPolicy(policy *RetryPolicy) *Builder {
	if policy != nil {
		b.config.Retry = policy
	}
	return b
}

// WithDefaultHeader adds a header applied to every request unless the
// request overrides it.
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithTransport replaces the underlying transport collaborator.
func (b *Builder) WithTransport(transport Transport) *Builder {
	b.transport = transport
	return b
}

// WithRateLimit applies a client-side request rate limit.
func (b *Builder) WithRateLimit(limit float64, burst int) *Builder {
	b.limit = limit
	b.burst = burst
	return b
}

// WithUnauthorizedHandler wires the credential coordinator's reaction to
// 401 responses.
func (b *Builder) WithUnauthorizedHandler(handler UnauthorizedHandler) *Builder {
	b.auth = handler
	return b
}

// WithPayloadLogging enables debug-level header and body logging, previews
// capped at maxBytes (0 keeps the default cap).
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithTraceHeader overrides the header used for request-ID propagation.
func (b *Builder) WithTraceHeader(header string) *Builder {
	b.config.TraceIDHeader = header
	return b
}

// WithW3CTrace enables traceparent propagation and generation.
func (b *Builder) WithW3CTrace() *Builder {
	b.config.EnableW3CTrace = true
	return b
}

// WithSSLErrorHandling enables TLS failure classification on the error chain.
func (b *Builder) WithSSLErrorHandling(cfg SSLConfig) *Builder {
	cfg.Enabled = true
	b.config.SSL = cfg
	return b
}

// WithInterceptorsDisabled builds the client with the interceptor pipeline
// switched off; it can be re-enabled later via Interceptors().SetEnabled.
func (b *Builder) WithInterceptorsDisabled() *Builder {
	b.disabled = true
	return b
}

// Build assembles the client. The trace-ID request interceptor is always
// registered first so every later interceptor and the transport observe the
// propagated request ID.
func (b *Builder) Build() Client {
	transport := b.transport
	if transport == nil {
		transport = nethttp.DefaultTransport
	}
	if b.limit > 0 {
		transport = NewRateLimitedTransport(transport, b.limit, b.burst)
	}

	retry := b.config.Retry
	if retry == nil {
		retry = DefaultRetryPolicy()
	}

	interceptors := NewInterceptors(b.log)
	if b.disabled {
		interceptors.SetEnabled(false)
	}

	c := &client{
		config:       b.config,
		logger:       b.log,
		transport:    transport,
		interceptors: interceptors,
		auth:         b.auth,
		retry:        retry,
	}

	if b.config.NewTraceID != nil {
		header := c.traceHeader()
		generate := b.config.NewTraceID
		interceptors.AddRequest(func(_ context.Context, req *nethttp.Request) error {
			if req.Header.Get(header) == "" {
				req.Header.Set(header, generate())
			}
			return nil
		})
	} else {
		interceptors.AddRequest(NewTraceIDInterceptorFor(c.traceHeader()))
	}

	if b.config.SSL.Enabled {
		interceptors.AddError(NewSSLErrorInterceptor(b.config.SSL))
	}

	return c
}
