package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/lexsync/internal/api"
	"github.com/teemow/lexsync/internal/calendar"
	"github.com/teemow/lexsync/internal/credential"
	"github.com/teemow/lexsync/internal/drive"
	"github.com/teemow/lexsync/internal/gmail"
	"github.com/teemow/lexsync/internal/google"
	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/kv"
	"github.com/teemow/lexsync/internal/logging"
	"github.com/teemow/lexsync/internal/reconcile"
)

// Config is the OAuth client identity of a session.
type Config struct {
	ClientID     string
	ClientSecret string

	// APIKey is sent with every resource call when set.
	APIKey string

	RedirectURI string
	Scopes      []string

	// Endpoint and RevokeURL default to Google's.
	Endpoint  oauth2.Endpoint
	RevokeURL string
}

// Endpoints overrides the resource API roots, e.g. to point a session at a
// test server. Empty fields keep the production endpoints.
type Endpoints struct {
	Gmail    string
	Calendar string
	Drive    string
	UserInfo string
}

// Option configures a Session.
type Option func(*options)

type options struct {
	secrets       kv.Store
	pending       kv.Store
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
	clock         func() time.Time
	httpClient    *http.Client
	transport     http.RoundTripper
	endpoints     Endpoints
	refreshMargin time.Duration
	verifierTTL   *time.Duration
	timeout       time.Duration
	userAgent     string
}

// WithSecrets sets where the refresh secret is kept. Defaults to memory.
func WithSecrets(s kv.Store) Option {
	return func(o *options) {
		o.secrets = s
	}
}

// WithPending sets where pending redirect flows are kept. Defaults to the
// secret store.
func WithPending(s kv.Store) Option {
	return func(o *options) {
		o.pending = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithOAuthHTTPClient sets the client for token, refresh and revocation calls.
func WithOAuthHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithTransport sets the base transport for resource calls.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithEndpoints overrides the resource API roots.
func WithEndpoints(e Endpoints) Option {
	return func(o *options) {
		o.endpoints = e
	}
}

// WithRefreshMargin sets how early a token is refreshed before it expires.
func WithRefreshMargin(d time.Duration) Option {
	return func(o *options) {
		o.refreshMargin = d
	}
}

// WithVerifierTTL sets the lifetime of a pending redirect flow; zero
// disables expiry.
func WithVerifierTTL(d time.Duration) Option {
	return func(o *options) {
		o.verifierTTL = &d
	}
}

// WithRequestTimeout sets the per-request timeout of resource calls.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent sets the User-Agent of resource calls.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// Session is one authenticated identity with its resource adapters.
type Session struct {
	store     *credential.Store
	auth      *google.Authenticator
	refresher *google.Refresher
	executor  *api.Executor

	messages *gmail.Client
	events   *calendar.Client
	files    *drive.Client
	engine   *reconcile.Engine

	logger *slog.Logger
}

// Status summarizes the credential for display.
type Status struct {
	Authenticated bool      `json:"authenticated"`
	Refreshable   bool      `json:"refreshable"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	Scopes        []string  `json:"scopes,omitempty"`
}

// Initialize builds a Session. An empty client id fails with an
// *google.AuthError coded client_not_initialized. A refresh secret left in
// the secret store by an earlier process is picked up, so the session can
// refresh without a new login.
func Initialize(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, google.NewAuthError(google.CodeClientNotInitialized, "client id is required", nil)
	}

	o := &options{
		logger: logging.Discard(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.secrets == nil {
		o.secrets = kv.NewMemory()
	}
	if o.pending == nil {
		o.pending = o.secrets
	}

	store := credential.New(o.secrets,
		credential.WithClock(o.clock),
		credential.WithLogger(o.logger))
	if _, err := store.Restore(ctx); err != nil {
		return nil, fmt.Errorf("session: restoring credential: %w", err)
	}

	authOpts := []google.AuthOption{
		google.WithClock(o.clock),
		google.WithLogger(o.logger),
		google.WithMetrics(o.metrics),
		google.WithHTTPClient(o.httpClient),
	}
	if o.verifierTTL != nil {
		authOpts = append(authOpts, google.WithVerifierTTL(*o.verifierTTL))
	}
	auth, err := google.NewAuthenticator(google.OAuthConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		Endpoint:     cfg.Endpoint,
		RevokeURL:    cfg.RevokeURL,
	}, store, o.pending, authOpts...)
	if err != nil {
		return nil, err
	}
	refresher := google.NewRefresher(auth, o.refreshMargin)

	execOpts := []api.Option{
		api.WithMetrics(o.metrics),
		api.WithLogger(o.logger),
	}
	if cfg.APIKey != "" {
		execOpts = append(execOpts, api.WithAPIKey(cfg.APIKey))
	}
	if o.transport != nil {
		execOpts = append(execOpts, api.WithBaseTransport(o.transport))
	}
	if o.timeout > 0 {
		execOpts = append(execOpts, api.WithTimeout(o.timeout))
	}
	if o.userAgent != "" {
		execOpts = append(execOpts, api.WithUserAgent(o.userAgent))
	}
	if o.endpoints.UserInfo != "" {
		execOpts = append(execOpts, api.WithUserInfoURL(o.endpoints.UserInfo))
	}
	executor := api.NewExecutor(refresher, store, execOpts...)
	hc := executor.HTTPClient()

	s := &Session{
		store:     store,
		auth:      auth,
		refresher: refresher,
		executor:  executor,
		logger:    o.logger,
	}

	gmailOpts := []gmail.Option{gmail.WithMetrics(o.metrics), gmail.WithLogger(o.logger)}
	if o.endpoints.Gmail != "" {
		gmailOpts = append(gmailOpts, gmail.WithEndpoint(o.endpoints.Gmail))
	}
	if s.messages, err = gmail.New(ctx, hc, gmailOpts...); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	calendarOpts := []calendar.Option{calendar.WithMetrics(o.metrics), calendar.WithLogger(o.logger)}
	if o.endpoints.Calendar != "" {
		calendarOpts = append(calendarOpts, calendar.WithEndpoint(o.endpoints.Calendar))
	}
	if s.events, err = calendar.New(ctx, hc, calendarOpts...); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	driveOpts := []drive.Option{drive.WithMetrics(o.metrics), drive.WithLogger(o.logger)}
	if o.endpoints.Drive != "" {
		driveOpts = append(driveOpts, drive.WithEndpoint(o.endpoints.Drive))
	}
	if s.files, err = drive.New(ctx, hc, driveOpts...); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s.engine = reconcile.New(s.files,
		reconcile.WithLogger(o.logger),
		reconcile.WithMetrics(o.metrics))

	return s, nil
}

// Login starts the implicit (popup) flow. The caller sends the user to the
// flow's AuthURL and hands the provider response to ResolveImplicit.
func (s *Session) Login(ctx context.Context) (*google.ImplicitFlow, error) {
	return s.auth.BeginImplicit(ctx)
}

// ResolveImplicit completes the implicit flow the response belongs to.
func (s *Session) ResolveImplicit(values url.Values) error {
	return s.auth.ResolveImplicit(values)
}

// LoginWithRedirect starts the redirect flow and returns the provider URL.
// Starting a new flow invalidates any earlier one.
func (s *Session) LoginWithRedirect(ctx context.Context, state string) (string, error) {
	return s.auth.BeginRedirect(ctx, state)
}

// HandleRedirectCallback completes the redirect flow and returns the state
// passed to LoginWithRedirect.
func (s *Session) HandleRedirectCallback(ctx context.Context, values url.Values) (string, error) {
	return s.auth.HandleRedirectCallback(ctx, values)
}

// IsAuthenticated reports whether an unexpired access token is held.
func (s *Session) IsAuthenticated() bool {
	return s.store.IsValid()
}

// Status returns a snapshot of the credential. Refreshable also covers a
// refresh secret restored from an earlier process.
func (s *Session) Status(ctx context.Context) Status {
	st := Status{Authenticated: s.store.IsValid()}
	if cred, ok := s.store.Get(); ok {
		st.ExpiresAt = cred.ExpiresAt
		st.Scopes = cred.Scopes
	}
	secret, err := s.store.RefreshSecret(ctx)
	if err != nil {
		s.logger.Warn("reading refresh secret", logging.Err(err))
	}
	st.Refreshable = secret != ""
	return st
}

// EnsureValid refreshes the access token when it is about to expire.
func (s *Session) EnsureValid(ctx context.Context) error {
	return s.refresher.EnsureValid(ctx)
}

// Logout revokes the access token and then the refresh secret at the
// provider, best effort, and clears the local credential. The access token is
// revoked on its own so it stops working even when the provider keeps it
// valid after the refresh grant is gone. Only a failure to clear is returned.
func (s *Session) Logout(ctx context.Context) error {
	secret, err := s.store.RefreshSecret(ctx)
	if err != nil {
		s.logger.Warn("reading refresh secret for revocation", logging.Err(err))
	}
	token, _ := s.store.AccessToken()

	if token != "" {
		s.auth.Revoke(ctx, token)
	}
	if secret != "" && secret != token {
		s.auth.Revoke(ctx, secret)
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	s.logger.Info("logged out")
	return nil
}

// Messages returns the messages adapter.
func (s *Session) Messages() *gmail.Client {
	return s.messages
}

// Events returns the events adapter.
func (s *Session) Events() *calendar.Client {
	return s.events
}

// Files returns the files adapter.
func (s *Session) Files() *drive.Client {
	return s.files
}

// Reconcile converges local documents with the remote folder.
func (s *Session) Reconcile(ctx context.Context, local []reconcile.LocalFile, folderID string, notify reconcile.DownloadFunc) (reconcile.Outcome, error) {
	return s.engine.Reconcile(ctx, local, folderID, notify)
}

// UserInfo returns the profile of the authenticated user.
func (s *Session) UserInfo(ctx context.Context) (*api.GoogleUserInfo, error) {
	return s.executor.UserInfo(ctx)
}
