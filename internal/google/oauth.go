package google

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/lexsync/internal/credential"
	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/kv"
	"github.com/teemow/lexsync/internal/logging"
)

const (
	// DefaultRevokeURL is Google's token revocation endpoint.
	DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

	// DefaultVerifierTTL bounds how long a started redirect flow stays valid.
	DefaultVerifierTTL = 10 * time.Minute

	// defaultHTTPTimeout applies to token endpoint calls when no client is injected.
	defaultHTTPTimeout = 30 * time.Second
)

// OAuthConfig identifies the OAuth client and the provider endpoints.
type OAuthConfig struct {
	ClientID string

	// ClientSecret is optional; installed-app clients may have none.
	ClientSecret string

	RedirectURI string

	// Scopes defaults to DefaultScopes.
	Scopes []string

	// Endpoint defaults to Google's authorization and token endpoints.
	Endpoint oauth2.Endpoint

	// RevokeURL defaults to DefaultRevokeURL.
	RevokeURL string
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithRandom sets the entropy source for verifiers and state values.
func WithRandom(r io.Reader) AuthOption {
	return func(a *Authenticator) {
		if r != nil {
			a.random = r
		}
	}
}

// WithHTTPClient sets the client used for token, refresh and revocation calls.
func WithHTTPClient(c *http.Client) AuthOption {
	return func(a *Authenticator) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// WithClock overrides the time source used for verifier expiry.
func WithClock(now func() time.Time) AuthOption {
	return func(a *Authenticator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AuthOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) AuthOption {
	return func(a *Authenticator) {
		a.metrics = m
	}
}

// WithVerifierTTL sets how long a pending redirect flow stays valid.
// Zero disables expiry; the verifier then lives until it is consumed or
// replaced by the next flow.
func WithVerifierTTL(ttl time.Duration) AuthOption {
	return func(a *Authenticator) {
		a.verifierTTL = ttl
	}
}

// Authenticator runs the login flows and owns the OAuth client identity.
type Authenticator struct {
	cfg     OAuthConfig
	oauth   *oauth2.Config
	store   *credential.Store
	pending kv.Store

	random      io.Reader
	httpClient  *http.Client
	now         func() time.Time
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	verifierTTL time.Duration

	mu       sync.Mutex
	implicit map[string]*ImplicitFlow
}

// NewAuthenticator creates an Authenticator writing grants into store and
// keeping pending redirect state in pending.
func NewAuthenticator(cfg OAuthConfig, store *credential.Store, pending kv.Store, opts ...AuthOption) (*Authenticator, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, NewAuthError(CodeClientNotInitialized, "client id is required", nil)
	}
	if store == nil {
		return nil, errors.New("google: credential store is required")
	}
	if pending == nil {
		return nil, errors.New("google: pending flow store is required")
	}

	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.Endpoint.AuthURL == "" || cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}
	// One request per exchange: auto-detection would retry with the other
	// auth style after a rejection.
	cfg.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = DefaultRevokeURL
	}

	a := &Authenticator{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     cfg.Endpoint,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
		},
		store:       store,
		pending:     pending,
		random:      rand.Reader,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		now:         time.Now,
		logger:      logging.Discard(),
		verifierTTL: DefaultVerifierTTL,
		implicit:    make(map[string]*ImplicitFlow),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.WithService(a.logger, "oauth")

	return a, nil
}

// Store returns the credential store the Authenticator writes into.
func (a *Authenticator) Store() *credential.Store {
	return a.store
}

// Config returns the effective OAuth configuration.
func (a *Authenticator) Config() OAuthConfig {
	return a.cfg
}

// exchangeContext makes the oauth2 package use the injected HTTP client.
func (a *Authenticator) exchangeContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// grantFromToken converts a token endpoint response into a credential grant.
func grantFromToken(tok *oauth2.Token) credential.Grant {
	g := credential.Grant{
		AccessToken: tok.AccessToken,
		TokenType:   tok.Type(),
	}

	switch {
	case tok.ExpiresIn > 0:
		g.Lifetime = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		g.Lifetime = time.Until(tok.Expiry)
	}

	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		g.Scopes = strings.Fields(scope)
	}
	return g
}

// exchangeError turns a token endpoint failure into an AuthError carrying
// the provider's description when there is one.
func exchangeError(code string, err error) *AuthError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		desc := re.ErrorDescription
		if desc == "" {
			desc = re.ErrorCode
		}
		if desc == "" && re.Response != nil {
			desc = fmt.Sprintf("token endpoint returned %s", re.Response.Status)
		}
		return NewAuthError(code, desc, err)
	}
	return NewAuthError(code, "token endpoint request failed", err)
}
