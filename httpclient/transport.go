package httpclient

import (
	nethttp "net/http"

	"golang.org/x/time/rate"
)

// Transport is the collaborator that performs the actual HTTP exchange.
// Any http.RoundTripper satisfies it; the client supplies cancellation and
// timeouts through the request context.
type Transport = nethttp.RoundTripper

// rateLimitedTransport waits for a limiter token before each attempt.
// Waiting respects the request context, so a cancelled or timed-out call
// never blocks on the limiter.
type rateLimitedTransport struct {
	base    Transport
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// NewRateLimitedTransport wraps base with a client-side request rate limit of
// limit requests per second and the given burst. A nil base uses
// http.DefaultTransport.
func NewRateLimitedTransport(base Transport, limit float64, burst int) Transport {
	if base == nil {
		base = nethttp.DefaultTransport
	}
	return &rateLimitedTransport{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
	}
}
