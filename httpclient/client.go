package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/myopentrip/fetch-client/logger"
)

// UnauthorizedHandler reacts to 401 responses, typically by refreshing or
// expiring credentials. The client fires it as a side effect after the error
// chain has run; it never blocks the call that observed the 401.
type UnauthorizedHandler interface {
	HandleUnauthorized(ctx context.Context)
}

type client struct {
	config       *Config
	logger       logger.Logger
	transport    Transport
	interceptors *Interceptors
	auth         UnauthorizedHandler

	retryMu sync.RWMutex
	retry   *RetryPolicy
}

var _ Client = (*client)(nil)

func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

func (c *client) Interceptors() *Interceptors {
	return c.interceptors
}

func (c *client) UpdateRetryPolicy(policy *RetryPolicy) {
	if policy == nil {
		return
	}
	c.retryMu.Lock()
	c.retry = policy
	c.retryMu.Unlock()
}

func (c *client) retryPolicy() *RetryPolicy {
	c.retryMu.RLock()
	defer c.retryMu.RUnlock()
	return c.retry
}

// Do executes one logical request: request interceptors, transport call with
// derived timeout, response interceptors, retries per policy, and a single
// error-interceptor pass on the terminal failure.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if req == nil {
		return nil, NewValidationError("request must not be nil", "")
	}
	target, verr := c.resolveURL(req.Path, req.Query)
	if verr != nil {
		return nil, verr
	}

	bodyFactory := func() (io.Reader, int64) {
		if len(req.Body) == 0 {
			return nil, 0
		}
		return bytes.NewReader(req.Body), int64(len(req.Body))
	}

	resp, clientErr := c.execute(ctx, method, target, req.Headers, req.Body, bodyFactory, req.Timeout, req.Retry)
	if clientErr != nil {
		final := c.interceptors.applyError(ctx, clientErr)
		c.triggerUnauthorized(ctx, final)
		return nil, final
	}
	return resp, nil
}

// execute is the shared per-call core used by Do and UploadFile. bodyFactory
// produces a fresh body reader per attempt so retries resend the exact same
// payload; logBody is the payload handed to request logging.
func (c *client) execute(
	ctx context.Context,
	method, target string,
	headers map[string]string,
	logBody []byte,
	bodyFactory func() (io.Reader, int64),
	timeoutOverride time.Duration,
	retryOverride *RetryPolicy,
) (*Response, ClientError) {
	timeout := timeoutOverride
	if timeout <= 0 {
		timeout = c.config.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	policy := retryOverride
	if policy == nil {
		policy = c.retryPolicy()
	}

	start := time.Now()
	var attempts int64

	return policy.ExecuteWithRetry(ctx, func(ctx context.Context) (*Response, ClientError) {
		attempts++

		httpReq, cerr := c.buildRequest(ctx, method, target, headers, bodyFactory)
		if cerr != nil {
			return nil, cerr
		}
		if err := c.interceptors.applyRequest(ctx, httpReq); err != nil {
			return nil, asClientError(err)
		}

		traceID := httpReq.Header.Get(c.traceHeader())
		if traceID == "" {
			traceID = EnsureTraceID(ctx)
		}
		c.logRequest(httpReq, logBody, traceID)

		raw, err := c.transport.RoundTrip(httpReq)
		if err != nil {
			return nil, c.classifyTransportError(ctx, err, timeout)
		}

		body, err := io.ReadAll(raw.Body)
		raw.Body.Close()
		if err != nil {
			return nil, NewNetworkError("reading response body", err)
		}

		resp := &Response{
			StatusCode: raw.StatusCode,
			Status:     raw.Status,
			Headers:    raw.Header,
			Body:       body,
			Stats: Stats{
				ElapsedTime: time.Since(start),
				Attempts:    attempts,
			},
		}
		decodeBody(resp, raw.Header.Get("Content-Type"))
		c.logResponse(resp, traceID)

		if !IsSuccessStatus(resp.StatusCode) {
			message := fmt.Sprintf("%s %s returned %d %s",
				method, target, resp.StatusCode, statusDescription(resp.StatusCode))
			return nil, NewHTTPError(message, resp.StatusCode, body)
		}

		final, err := c.interceptors.applyResponse(ctx, resp)
		if err != nil {
			return nil, asClientError(err)
		}
		return final, nil
	})
}

func (c *client) buildRequest(
	ctx context.Context,
	method, target string,
	headers map[string]string,
	bodyFactory func() (io.Reader, int64),
) (*nethttp.Request, ClientError) {
	body, size := bodyFactory()
	if body == nil {
		body = nethttp.NoBody
	}
	httpReq, err := nethttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, NewValidationError(err.Error(), "url")
	}
	if size > 0 {
		httpReq.ContentLength = size
	}

	for k, v := range c.config.DefaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	if size > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.config.EnableW3CTrace && httpReq.Header.Get(HeaderTraceParent) == "" {
		if tp, ok := TraceParentFromContext(ctx); ok {
			httpReq.Header.Set(HeaderTraceParent, tp)
		} else {
			httpReq.Header.Set(HeaderTraceParent, GenerateTraceParent())
		}
	}
	return httpReq, nil
}

// resolveURL returns the final request URL. Absolute paths pass through
// untouched; relative paths are joined to the base URL with exactly one slash
// at the seam.
func (c *client) resolveURL(path string, query map[string]string) (string, ClientError) {
	target := path
	if !isAbsoluteURL(path) {
		if c.config.BaseURL == "" {
			return "", NewValidationError("relative path requires a base URL", "path")
		}
		target = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", NewValidationError(fmt.Sprintf("invalid URL %q", target), "path")
	}
	if len(query) > 0 {
		values := parsed.Query()
		for k, v := range query {
			values.Set(k, v)
		}
		parsed.RawQuery = values.Encode()
	}
	return parsed.String(), nil
}

// classifyTransportError maps transport failures onto the error taxonomy:
// deadline expiry becomes a timeout, caller cancellation stays a
// cancellation, everything else is a network error.
func (c *client) classifyTransportError(ctx context.Context, err error, timeout time.Duration) ClientError {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return NewTimeoutError("request timed out", timeout)
	case errors.Is(err, context.Canceled):
		return NewCancelledError("request cancelled", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return NewTimeoutError("request timed out", timeout)
	}
	return NewNetworkError("request failed", err)
}

// triggerUnauthorized fires the unauthorized handler after a terminal 401.
// The handler runs detached so the 401 still surfaces to the caller
// immediately; a later call picks up the refreshed credentials.
func (c *client) triggerUnauthorized(ctx context.Context, clientErr ClientError) {
	if c.auth == nil || !IsHTTPStatusError(clientErr, nethttp.StatusUnauthorized) {
		return
	}
	go c.auth.HandleUnauthorized(context.WithoutCancel(ctx))
}

func (c *client) traceHeader() string {
	if c.config.TraceIDHeader != "" {
		return c.config.TraceIDHeader
	}
	return HeaderXRequestID
}

// decodeBody populates resp.Data when the content type indicates JSON.
// Payloads that fail to decode stay available as raw bytes only.
func decodeBody(resp *Response, contentType string) {
	if len(resp.Body) == 0 || !strings.Contains(contentType, "application/json") {
		return
	}
	var data any
	if err := json.Unmarshal(resp.Body, &data); err == nil {
		resp.Data = data
	}
}

func asClientError(err error) ClientError {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr
	}
	return NewNetworkError(err.Error(), err)
}

func isAbsoluteURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
