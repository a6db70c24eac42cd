package google

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/lexsync/internal/credential"
	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/logging"
)

// DefaultRefreshMargin is how close to expiry a token may get before it is
// refreshed ahead of a call.
const DefaultRefreshMargin = 60 * time.Second

// Refresher keeps the credential store fresh before outbound calls.
type Refresher struct {
	auth   *Authenticator
	store  *credential.Store
	margin time.Duration
	group  singleflight.Group
}

// NewRefresher creates a Refresher using auth's client identity and store.
// A non-positive margin selects DefaultRefreshMargin.
func NewRefresher(auth *Authenticator, margin time.Duration) *Refresher {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	return &Refresher{
		auth:   auth,
		store:  auth.store,
		margin: margin,
	}
}

// Margin returns the configured safety margin.
func (r *Refresher) Margin() time.Duration {
	return r.margin
}

// EnsureValid returns nil when the stored token stays valid for longer than
// the margin. Otherwise it exchanges the refresh secret for a new token.
// Without a refresh secret, or when the exchange fails, it returns an
// AuthError with CodeReauthenticationRequired; starting an interactive login
// is left to the caller.
//
// Concurrent callers share a single refresh request.
func (r *Refresher) EnsureValid(ctx context.Context) error {
	if r.store.ValidFor(r.margin) {
		return nil
	}

	_, err, _ := r.group.Do("refresh", func() (any, error) {
		// an earlier flight may have refreshed while this caller waited
		if r.store.ValidFor(r.margin) {
			return nil, nil
		}
		return nil, r.refresh(context.WithoutCancel(ctx))
	})
	return err
}

func (r *Refresher) refresh(ctx context.Context) error {
	a := r.auth

	secret, err := r.store.RefreshSecret(ctx)
	if err != nil {
		a.metrics.RecordTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return NewAuthError(CodeReauthenticationRequired, "refresh secret is unavailable", err)
	}
	if secret == "" {
		a.metrics.RecordTokenRefresh(ctx, instrumentation.OAuthResultNoToken)
		return NewAuthError(CodeReauthenticationRequired, "no refresh secret available, log in again", nil)
	}

	start := time.Now()
	src := a.oauth.TokenSource(a.exchangeContext(ctx), &oauth2.Token{RefreshToken: secret})
	tok, err := src.Token()
	if err != nil {
		a.metrics.RecordTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		a.logger.Warn("token refresh failed", logging.Err(err), logging.Duration(time.Since(start)))
		return exchangeError(CodeReauthenticationRequired, err)
	}

	r.store.Replace(grantFromToken(tok))

	// An omitted refresh_token means the old secret stays in force.
	rotated := tok.RefreshToken != "" && tok.RefreshToken != secret
	if rotated {
		if err := r.store.SetRefreshSecret(ctx, tok.RefreshToken); err != nil {
			return err
		}
	}

	a.metrics.RecordTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	a.logger.Debug("token refreshed",
		slog.Bool("rotated", rotated),
		logging.Token("access_token", tok.AccessToken),
		logging.Duration(time.Since(start)))
	return nil
}
