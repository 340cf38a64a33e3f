package auth

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/myopentrip/fetch-client/httpclient"
	"github.com/myopentrip/fetch-client/logger"
)

const (
	defaultStorageKey       = "fetch_client_credentials"
	defaultRefreshThreshold = 5 * time.Minute

	refreshKey = "refresh"
)

// RefreshFunc exchanges a refresh token for a new token payload at the
// configured refresh endpoint.
type RefreshFunc func(ctx context.Context, refreshToken string) ([]byte, error)

// Config holds the coordinator configuration.
type Config struct {
	// Storage persists credentials across calls (default: in-memory).
	Storage TokenStorage
	// StorageKey is the key credentials are stored under.
	StorageKey string
	// Refresh performs the token exchange; without it every refresh fails.
	Refresh RefreshFunc
	// Extractor parses the refresh response (default: DefaultTokenExtractor).
	Extractor TokenExtractor
	// AutoRefresh proactively refreshes tokens nearing expiry from the
	// request interceptor.
	AutoRefresh bool
	// RefreshThreshold is how long before expiry a token counts as expiring
	// (default: 5m).
	RefreshThreshold time.Duration
}

// State is the derived view of the coordinator: whether credentials exist,
// whether a refresh is in flight, and when the last refresh completed.
type State struct {
	IsAuthenticated bool
	IsRefreshing    bool
	LastRefresh     time.Time
}

// Coordinator owns the credential lifecycle. At most one refresh is in
// flight at any time; concurrent refresh requests join the in-flight
// operation and share its outcome.
type Coordinator struct {
	cfg Config
	log logger.Logger

	mu          sync.RWMutex
	creds       *Credentials
	lastRefresh time.Time

	refreshing atomic.Bool
	group      singleflight.Group
	events     *events
}

// NewCoordinator creates a coordinator. Missing config fields fall back to
// defaults: in-memory storage, the default extractor, a 5-minute refresh
// threshold.
func NewCoordinator(cfg Config, log logger.Logger) *Coordinator {
	if cfg.Storage == nil {
		cfg.Storage = NewMemoryStorage()
	}
	if cfg.StorageKey == "" {
		cfg.StorageKey = defaultStorageKey
	}
	if cfg.Extractor == nil {
		cfg.Extractor = DefaultTokenExtractor
	}
	if cfg.RefreshThreshold <= 0 {
		cfg.RefreshThreshold = defaultRefreshThreshold
	}
	return &Coordinator{
		cfg:    cfg,
		log:    log,
		events: newEvents(),
	}
}

var _ httpclient.UnauthorizedHandler = (*Coordinator)(nil)

// On registers a lifecycle listener and returns a removal handle.
func (c *Coordinator) On(event Event, fn Listener) func() {
	return c.events.on(event, fn)
}

// LoadTokens restores persisted credentials from storage. Missing
// credentials are not an error.
func (c *Coordinator) LoadTokens(ctx context.Context) error {
	value, err := c.cfg.Storage.GetItem(ctx, c.cfg.StorageKey)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	if value == "" {
		return nil
	}
	creds, err := unmarshalCredentials(value)
	if err != nil {
		return fmt.Errorf("decoding stored credentials: %w", err)
	}
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
	return nil
}

// SetTokens stores the credentials, converting a relative ExpiresIn into an
// absolute expiry. Setting tokens while unauthenticated fires EventLogin.
func (c *Coordinator) SetTokens(ctx context.Context, creds *Credentials) error {
	if creds == nil || creds.AccessToken == "" {
		return fmt.Errorf("auth: credentials require an access token")
	}
	stored := creds.Clone()
	if stored.ExpiresAt.IsZero() && stored.ExpiresIn > 0 {
		stored.ExpiresAt = time.Now().Add(stored.ExpiresIn)
	}
	stored.ExpiresIn = 0

	value, err := stored.marshal()
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := c.cfg.Storage.SetItem(ctx, c.cfg.StorageKey, value); err != nil {
		return fmt.Errorf("persisting credentials: %w", err)
	}

	c.mu.Lock()
	wasAuthenticated := c.creds != nil
	c.creds = stored
	c.mu.Unlock()

	if !wasAuthenticated {
		c.events.emit(EventLogin, stored.Clone())
	}
	return nil
}

// ClearTokens removes credentials from storage and fires EventLogout. The
// auth request interceptor becomes a pass-through on its own once no
// credentials exist.
func (c *Coordinator) ClearTokens(ctx context.Context) error {
	if err := c.cfg.Storage.RemoveItem(ctx, c.cfg.StorageKey); err != nil {
		return fmt.Errorf("removing credentials: %w", err)
	}
	c.mu.Lock()
	c.creds = nil
	c.mu.Unlock()
	c.events.emit(EventLogout, nil)
	return nil
}

// Credentials returns a copy of the current credentials, or nil.
func (c *Coordinator) Credentials() *Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds.Clone()
}

// IsAuthenticated reports whether credentials are present.
func (c *Coordinator) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds != nil
}

// State returns the derived auth state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State{
		IsAuthenticated: c.creds != nil,
		IsRefreshing:    c.refreshing.Load(),
		LastRefresh:     c.lastRefresh,
	}
}

// IsTokenExpired reports whether the access token expires within threshold.
// It is true only when a stored expiry exists and falls inside the window;
// credentials without an expiry never expire.
func (c *Coordinator) IsTokenExpired(threshold time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.creds == nil || c.creds.ExpiresAt.IsZero() {
		return false
	}
	return !time.Now().Add(threshold).Before(c.creds.ExpiresAt)
}

// RefreshTokens performs one token refresh. Concurrent callers join the
// in-flight refresh and receive the same outcome; exactly one call reaches
// the refresh endpoint. On success the new credentials are stored and
// EventRefreshed fires; on failure credentials are cleared and EventExpired
// fires.
func (c *Coordinator) RefreshTokens(ctx context.Context) (*Credentials, error) {
	result, err, _ := c.group.Do(refreshKey, func() (any, error) {
		c.refreshing.Store(true)
		defer c.refreshing.Store(false)
		return c.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Credentials), nil
}

func (c *Coordinator) refresh(ctx context.Context) (*Credentials, error) {
	c.mu.RLock()
	var refreshToken string
	if c.creds != nil {
		refreshToken = c.creds.RefreshToken
	}
	c.mu.RUnlock()

	if refreshToken == "" {
		c.expire(ctx)
		return nil, httpclient.NewAuthError("no refresh token available", nil)
	}
	if c.cfg.Refresh == nil {
		c.expire(ctx)
		return nil, httpclient.NewAuthError("no refresh function configured", nil)
	}

	payload, err := c.cfg.Refresh(ctx, refreshToken)
	if err != nil {
		c.expire(ctx)
		return nil, httpclient.NewAuthError("token refresh failed", err)
	}
	creds, err := c.cfg.Extractor(payload)
	if err != nil {
		c.expire(ctx)
		return nil, httpclient.NewAuthError("token refresh response rejected", err)
	}
	// Token endpoints may rotate only the access token; keep the refresh
	// token we already hold in that case.
	if creds.RefreshToken == "" {
		creds.RefreshToken = refreshToken
	}
	if err := c.SetTokens(ctx, creds); err != nil {
		c.expire(ctx)
		return nil, httpclient.NewAuthError("storing refreshed credentials", err)
	}

	c.mu.Lock()
	c.lastRefresh = time.Now()
	stored := c.creds.Clone()
	c.mu.Unlock()

	c.events.emit(EventRefreshed, stored.Clone())
	if c.log != nil {
		c.log.Debug().Msg("credentials refreshed")
	}
	return stored, nil
}

// HandleUnauthorized reacts to a 401. With a refresh token present the
// coordinator attempts exactly one refresh cycle (joining any refresh
// already in flight); without one it clears credentials and fires
// EventExpired immediately, making no network call.
func (c *Coordinator) HandleUnauthorized(ctx context.Context) {
	c.mu.RLock()
	creds := c.creds
	hasRefreshToken := creds != nil && creds.RefreshToken != ""
	c.mu.RUnlock()

	if creds == nil {
		return
	}
	if !hasRefreshToken {
		c.expire(ctx)
		return
	}
	// The failure path inside RefreshTokens already expires credentials.
	_, _ = c.RefreshTokens(ctx)
}

// expire clears credentials and fires EventExpired exactly once per call.
func (c *Coordinator) expire(ctx context.Context) {
	c.mu.Lock()
	hadCreds := c.creds != nil
	c.creds = nil
	c.mu.Unlock()

	if err := c.cfg.Storage.RemoveItem(ctx, c.cfg.StorageKey); err != nil && c.log != nil {
		c.log.Warn().Err(err).Msg("failed to remove expired credentials")
	}
	if hadCreds {
		c.events.emit(EventExpired, nil)
	}
}

// RequestInterceptor returns the request interceptor that injects
// "<scheme> <accessToken>" into the Authorization header. Without
// credentials it passes the request through unmodified. With AutoRefresh
// enabled it first refreshes tokens that are expiring within the configured
// threshold, joining any in-flight refresh.
func (c *Coordinator) RequestInterceptor() httpclient.RequestInterceptor {
	return func(ctx context.Context, req *nethttp.Request) error {
		if c.cfg.AutoRefresh && c.canAutoRefresh() && c.IsTokenExpired(c.cfg.RefreshThreshold) {
			// Best effort: a failed proactive refresh clears credentials and
			// the request proceeds unauthenticated.
			_, _ = c.RefreshTokens(ctx)
		}

		c.mu.RLock()
		creds := c.creds
		c.mu.RUnlock()
		if creds == nil || creds.AccessToken == "" {
			return nil
		}
		if req.Header.Get(httpclient.HeaderAuthorization) == "" {
			req.Header.Set(httpclient.HeaderAuthorization, creds.Scheme()+" "+creds.AccessToken)
		}
		return nil
	}
}

func (c *Coordinator) canAutoRefresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds != nil && c.creds.RefreshToken != "" && c.cfg.Refresh != nil
}

// NewEndpointRefresher returns a RefreshFunc that POSTs the refresh token to
// the given endpoint and hands the raw response payload to the extractor.
func NewEndpointRefresher(client httpclient.Client, endpoint string) RefreshFunc {
	return func(ctx context.Context, refreshToken string) ([]byte, error) {
		body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
		if err != nil {
			return nil, err
		}
		resp, err := client.Post(ctx, &httpclient.Request{Path: endpoint, Body: body})
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}
}
