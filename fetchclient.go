// Package fetchclient assembles the configured HTTP client stack: structured
// logging, the REST client with retries and interceptors, and the optional
// credential coordinator.
package fetchclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/myopentrip/fetch-client/auth"
	"github.com/myopentrip/fetch-client/config"
	"github.com/myopentrip/fetch-client/httpclient"
	"github.com/myopentrip/fetch-client/logger"
)

// Stack bundles the wired components. Client is ready for use; Auth is nil
// unless auth was enabled in the configuration.
type Stack struct {
	Client httpclient.Client
	Auth   *auth.Coordinator
	Log    logger.Logger

	cfg *config.Config
}

// New wires a Stack from the given configuration. With auth enabled it also
// restores persisted credentials, so a previously logged-in session survives
// a restart.
func New(ctx context.Context, cfg *config.Config) (*Stack, error) {
	if cfg == nil {
		return nil, fmt.Errorf("fetchclient: nil config")
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	retry := retryPolicyFromConfig(&cfg.Retry)

	var coordinator *auth.Coordinator
	if cfg.Auth.Enabled {
		c, err := buildCoordinator(ctx, cfg, log, retry)
		if err != nil {
			return nil, err
		}
		coordinator = c
	}

	builder := httpclient.NewBuilder(log).
		WithBaseURL(cfg.Client.BaseURL).
		WithTimeout(cfg.Client.Timeout).
		WithRetryPolicy(retry).
		WithTraceHeader(cfg.Trace.Header)
	for key, value := range cfg.Client.Headers {
		builder = builder.WithDefaultHeader(key, value)
	}
	if cfg.Log.Payloads {
		builder = builder.WithPayloadLogging(cfg.Log.MaxPayloadBytes)
	}
	if cfg.Trace.W3C {
		builder = builder.WithW3CTrace()
	}
	if cfg.SSL.Enabled {
		builder = builder.WithSSLErrorHandling(httpclient.SSLConfig{
			IncludeTechnicalDetails: cfg.SSL.TechnicalDetails,
			IncludeSuggestions:      cfg.SSL.Suggestions,
		})
	}
	if cfg.RateLimit.Limit > 0 {
		builder = builder.WithRateLimit(cfg.RateLimit.Limit, cfg.RateLimit.Burst)
	}
	if coordinator != nil {
		builder = builder.WithUnauthorizedHandler(coordinator)
	}

	client := builder.Build()
	if coordinator != nil {
		client.Interceptors().AddRequest(coordinator.RequestInterceptor())
	}

	return &Stack{Client: client, Auth: coordinator, Log: log, cfg: cfg}, nil
}

// NewFromFile loads the configuration from path and wires the stack.
func NewFromFile(ctx context.Context, path string) (*Stack, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg)
}

// Login posts the given payload to the configured login endpoint and stores
// the returned credentials.
func (s *Stack) Login(ctx context.Context, payload any) (*auth.Credentials, error) {
	if s.Auth == nil {
		return nil, fmt.Errorf("fetchclient: auth is not enabled")
	}
	if s.cfg.Auth.LoginEndpoint == "" {
		return nil, fmt.Errorf("fetchclient: no login endpoint configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding login payload: %w", err)
	}
	resp, err := s.Client.Post(ctx, &httpclient.Request{Path: s.cfg.Auth.LoginEndpoint, Body: body})
	if err != nil {
		return nil, err
	}

	creds, err := auth.DefaultTokenExtractor(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing login response: %w", err)
	}
	if err := s.Auth.SetTokens(ctx, creds); err != nil {
		return nil, err
	}
	return s.Auth.Credentials(), nil
}

// Logout notifies the configured logout endpoint, then clears credentials.
// A failing logout call does not keep the local session alive.
func (s *Stack) Logout(ctx context.Context) error {
	if s.Auth == nil {
		return fmt.Errorf("fetchclient: auth is not enabled")
	}
	if s.cfg.Auth.LogoutEndpoint != "" {
		if _, err := s.Client.Post(ctx, &httpclient.Request{Path: s.cfg.Auth.LogoutEndpoint}); err != nil {
			s.Log.Warn().Err(err).Msg("logout endpoint call failed")
		}
	}
	return s.Auth.ClearTokens(ctx)
}

// buildCoordinator wires credential storage and the refresh path. The
// refresher uses its own bare client so refresh calls never recurse through
// the auth interceptor or the 401 handler.
func buildCoordinator(ctx context.Context, cfg *config.Config, log logger.Logger, retry *httpclient.RetryPolicy) (*auth.Coordinator, error) {
	var storage auth.TokenStorage
	switch cfg.Auth.Storage {
	case config.StorageFile:
		fs, err := auth.NewFileStorage(cfg.Auth.StorageDir)
		if err != nil {
			return nil, fmt.Errorf("creating token storage: %w", err)
		}
		storage = fs
	default:
		storage = auth.NewMemoryStorage()
	}

	var refresh auth.RefreshFunc
	if cfg.Auth.RefreshEndpoint != "" {
		refreshClient := httpclient.NewBuilder(log).
			WithBaseURL(cfg.Client.BaseURL).
			WithTimeout(cfg.Client.Timeout).
			WithRetryPolicy(retry).
			Build()
		refresh = auth.NewEndpointRefresher(refreshClient, cfg.Auth.RefreshEndpoint)
	}

	coordinator := auth.NewCoordinator(auth.Config{
		Storage:          storage,
		Refresh:          refresh,
		AutoRefresh:      cfg.Auth.AutoRefresh,
		RefreshThreshold: cfg.Auth.RefreshThreshold,
	}, log)

	if err := coordinator.LoadTokens(ctx); err != nil {
		return nil, err
	}
	return coordinator, nil
}

func retryPolicyFromConfig(rc *config.RetryConfig) *httpclient.RetryPolicy {
	policy := httpclient.DefaultRetryPolicy()
	policy.MaxRetries = rc.MaxRetries
	if rc.BaseDelay > 0 {
		policy.BaseDelay = rc.BaseDelay
	}
	if rc.MaxDelay > 0 {
		policy.MaxDelay = rc.MaxDelay
	}
	if rc.BackoffFactor > 1 {
		policy.BackoffFactor = rc.BackoffFactor
	}
	policy.Jitter = rc.Jitter
	return policy
}
