package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/myopentrip/fetch-client/logger"
)

// RequestInterceptor is called before sending the request. It may mutate the
// request in place. Returning an error aborts the call.
type RequestInterceptor func(ctx context.Context, req *http.Request) error

// ResponseInterceptor is called after receiving a successful response. It
// receives the previous interceptor's output and returns the (possibly new)
// response. Returning nil keeps the current response. Returning an error
// aborts the call.
type ResponseInterceptor func(ctx context.Context, resp *Response) (*Response, error)

// ErrorInterceptor is called on the terminal failure of a request, after all
// retry attempts are exhausted. It may replace the error or attach
// annotations. Returning nil, or panicking, leaves the record as it stood
// before this interceptor; a failing error interceptor never masks the
// original failure.
type ErrorInterceptor func(ctx context.Context, err ClientError) ClientError

type requestEntry struct {
	id uint64
	fn RequestInterceptor
}

type responseEntry struct {
	id uint64
	fn ResponseInterceptor
}

type errorEntry struct {
	id uint64
	fn ErrorInterceptor
}

// Interceptors holds the ordered request, response, and error chains.
// Registration order is invocation order. Each apply call iterates over a
// snapshot of the chain taken when the call starts, so removing an
// interceptor during another call's in-flight pass does not affect that pass.
type Interceptors struct {
	mu       sync.Mutex
	disabled bool
	nextID   uint64
	request  []requestEntry
	response []responseEntry
	errors   []errorEntry
	log      logger.Logger
}

// NewInterceptors creates an empty, enabled interceptor registry.
// The logger is used only to report swallowed error-interceptor failures.
func NewInterceptors(log logger.Logger) *Interceptors {
	return &Interceptors{log: log}
}

// SetEnabled toggles the whole pipeline. When disabled, every apply method is
// an identity pass-through.
func (i *Interceptors) SetEnabled(enabled bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.disabled = !enabled
}

// Enabled reports whether the pipeline is active.
func (i *Interceptors) Enabled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return !i.disabled
}

// AddRequest appends fn to the request chain and returns a removal handle.
// The handle removes exactly that registration; calling it more than once is
// a no-op.
func (i *Interceptors) AddRequest(fn RequestInterceptor) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.nextID++
	id := i.nextID
	i.request = append(i.request, requestEntry{id: id, fn: fn})
	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		for idx, e := range i.request {
			if e.id == id {
				i.request = append(i.request[:idx], i.request[idx+1:]...)
				return
			}
		}
	}
}

// AddResponse appends fn to the response chain and returns a removal handle.
func (i *Interceptors) AddResponse(fn ResponseInterceptor) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.nextID++
	id := i.nextID
	i.response = append(i.response, responseEntry{id: id, fn: fn})
	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		for idx, e := range i.response {
			if e.id == id {
				i.response = append(i.response[:idx], i.response[idx+1:]...)
				return
			}
		}
	}
}

// AddError appends fn to the error chain and returns a removal handle.
func (i *Interceptors) AddError(fn ErrorInterceptor) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.nextID++
	id := i.nextID
	i.errors = append(i.errors, errorEntry{id: id, fn: fn})
	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		for idx, e := range i.errors {
			if e.id == id {
				i.errors = append(i.errors[:idx], i.errors[idx+1:]...)
				return
			}
		}
	}
}

func (i *Interceptors) snapshotRequest() []requestEntry {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.disabled {
		return nil
	}
	out := make([]requestEntry, len(i.request))
	copy(out, i.request)
	return out
}

func (i *Interceptors) snapshotResponse() []responseEntry {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.disabled {
		return nil
	}
	out := make([]responseEntry, len(i.response))
	copy(out, i.response)
	return out
}

func (i *Interceptors) snapshotError() []errorEntry {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.disabled {
		return nil
	}
	out := make([]errorEntry, len(i.errors))
	copy(out, i.errors)
	return out
}

// applyRequest runs the request chain in registration order. The first
// interceptor failure aborts the chain and surfaces as an InterceptorError.
func (i *Interceptors) applyRequest(ctx context.Context, req *http.Request) error {
	for _, e := range i.snapshotRequest() {
		if err := e.fn(ctx, req); err != nil {
			return NewInterceptorError("request interceptor failed", "request", err)
		}
	}
	return nil
}

// applyResponse runs the response chain in registration order, feeding each
// interceptor the previous one's output.
func (i *Interceptors) applyResponse(ctx context.Context, resp *Response) (*Response, error) {
	current := resp
	for _, e := range i.snapshotResponse() {
		next, err := e.fn(ctx, current)
		if err != nil {
			return nil, NewInterceptorError("response interceptor failed", "response", err)
		}
		if next != nil {
			current = next
		}
	}
	return current, nil
}

// applyError runs the error chain in registration order. A failing error
// interceptor (panic or nil result) is skipped and the chain continues with
// the record as it stood before that interceptor. Annotations attached by
// earlier interceptors in the same pass are retained.
func (i *Interceptors) applyError(ctx context.Context, clientErr ClientError) ClientError {
	current := clientErr
	for _, e := range i.snapshotError() {
		if next := i.runErrorInterceptor(ctx, e.fn, current); next != nil {
			current = next
		}
	}
	return current
}

func (i *Interceptors) runErrorInterceptor(ctx context.Context, fn ErrorInterceptor, in ClientError) (out ClientError) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			if i.log != nil {
				i.log.Debug().
					Str("stage", "error").
					Str("panic", fmt.Sprint(r)).
					Msg("error interceptor failure swallowed")
			}
		}
	}()
	return fn(ctx, in)
}
