package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/lexsync/internal/kv"
	"github.com/teemow/lexsync/internal/logging"
)

// RefreshSecretKey is the key under which the refresh secret is kept in the
// injected secret store.
const RefreshSecretKey = "oauth.refresh_token"

// Credential is a snapshot of the current access grant.
// The refresh secret itself is never part of the snapshot.
type Credential struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	Scopes      []string

	// Refreshable reports whether a refresh secret was registered with the grant.
	Refreshable bool
}

// Grant describes a freshly issued access token.
type Grant struct {
	AccessToken string
	TokenType   string

	// Lifetime is the provider-declared lifetime (expires_in).
	Lifetime time.Duration

	// Scopes granted by the provider. Nil keeps the current scopes.
	Scopes []string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry computation.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store holds the current credential in memory and the refresh secret behind
// an injected key-value handle.
type Store struct {
	mu          sync.RWMutex
	cred        Credential
	refreshable bool

	secrets kv.Store
	now     func() time.Time
	logger  *slog.Logger
}

// New creates an empty store. secrets holds the refresh secret; pass
// kv.NewMemory() when nothing should outlive the process.
func New(secrets kv.Store, opts ...Option) *Store {
	s := &Store{
		secrets: secrets,
		now:     time.Now,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Set replaces the access token and computes its expiry from ttl.
func (s *Store) Set(token string, ttl time.Duration) {
	s.Replace(Grant{AccessToken: token, TokenType: "Bearer", Lifetime: ttl})
}

// Replace swaps token, type, expiry and scopes under one lock so that no
// reader observes a new token paired with a stale expiry.
func (s *Store) Replace(g Grant) {
	expiresAt := s.now().Add(g.Lifetime)

	s.mu.Lock()
	s.cred.AccessToken = g.AccessToken
	s.cred.TokenType = g.TokenType
	s.cred.ExpiresAt = expiresAt
	if g.Scopes != nil {
		s.cred.Scopes = append([]string(nil), g.Scopes...)
	}
	s.mu.Unlock()

	s.logger.Debug("credential replaced",
		logging.Token("access_token", g.AccessToken),
		logging.ExpiresIn(g.Lifetime))
}

// Get returns the current credential, or false when none is held.
func (s *Store) Get() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cred.AccessToken == "" {
		return Credential{}, false
	}
	c := s.cred
	c.Scopes = append([]string(nil), s.cred.Scopes...)
	c.Refreshable = s.refreshable
	return c, true
}

// IsValid reports whether an access token is present and not yet expired.
func (s *Store) IsValid() bool {
	return s.ValidFor(0)
}

// ValidFor reports whether the access token stays valid for more than margin.
func (s *Store) ValidFor(margin time.Duration) bool {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cred.AccessToken == "" {
		return false
	}
	if margin <= 0 {
		return now.Before(s.cred.ExpiresAt)
	}
	return s.cred.ExpiresAt.Sub(now) > margin
}

// AccessToken returns the current access token and its type.
func (s *Store) AccessToken() (token, tokenType string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred.AccessToken, s.cred.TokenType
}

// RefreshSecret returns the registered refresh secret, or "" when none exists.
func (s *Store) RefreshSecret(ctx context.Context) (string, error) {
	secret, err := s.secrets.Get(ctx, RefreshSecretKey)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credential: reading refresh secret: %w", err)
	}
	return secret, nil
}

// SetRefreshSecret registers the refresh secret. An empty secret is ignored.
func (s *Store) SetRefreshSecret(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}
	if err := s.secrets.Set(ctx, RefreshSecretKey, secret); err != nil {
		return fmt.Errorf("credential: storing refresh secret: %w", err)
	}

	s.mu.Lock()
	s.refreshable = true
	s.mu.Unlock()
	return nil
}

// Restore marks the store refreshable when a refresh secret survives from an
// earlier process. It does not create an access token; the next
// EnsureValid call will refresh one.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	secret, err := s.RefreshSecret(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.refreshable = secret != ""
	s.mu.Unlock()
	return secret != "", nil
}

// Clear drops the credential and deletes the refresh secret handle.
// The in-memory credential is always cleared, even if the secret store fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cred = Credential{}
	s.refreshable = false
	s.mu.Unlock()

	if err := s.secrets.Delete(ctx, RefreshSecretKey); err != nil {
		return fmt.Errorf("credential: deleting refresh secret: %w", err)
	}

	s.logger.Debug("credential cleared")
	return nil
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}
