package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/kv"
	"github.com/teemow/lexsync/internal/logging"
)

// PendingFlowKey is the single slot holding the in-flight redirect flow.
const PendingFlowKey = "oauth.pkce_verifier"

// pendingFlow is what survives the browser round trip. FlowID is sent to the
// provider as the OAuth state parameter; State is the caller's own value,
// handed back once the flow completes.
type pendingFlow struct {
	FlowID    string    `json:"flow_id"`
	Verifier  string    `json:"verifier"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BeginRedirect starts a redirect + PKCE login and returns the URL to send
// the user to. state is returned unchanged by HandleRedirectCallback.
//
// Only one redirect flow is pending at a time: starting a new one replaces
// the verifier of any earlier flow, whose callback then fails with
// ErrNoVerifier.
func (a *Authenticator) BeginRedirect(ctx context.Context, state string) (string, error) {
	verifier, err := generateVerifier(a.random)
	if err != nil {
		return "", fmt.Errorf("google: generating code verifier: %w", err)
	}
	flowID, err := generateState(a.random)
	if err != nil {
		return "", fmt.Errorf("google: generating state: %w", err)
	}

	raw, err := json.Marshal(pendingFlow{
		FlowID:    flowID,
		Verifier:  verifier,
		State:     state,
		CreatedAt: a.now(),
	})
	if err != nil {
		return "", fmt.Errorf("google: encoding pending flow: %w", err)
	}
	if err := a.pending.Set(ctx, PendingFlowKey, string(raw)); err != nil {
		return "", fmt.Errorf("google: saving pending flow: %w", err)
	}

	a.logger.Info("redirect login started", slog.String("flow_id", flowID))

	return a.oauth.AuthCodeURL(flowID,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	), nil
}

// HandleRedirectCallback completes a redirect login from the query
// parameters of the provider's callback. On success the access token and,
// when present, the refresh secret are stored and the caller's state from
// BeginRedirect is returned.
//
// The verifier is consumed before the code exchange, so every callback gets
// at most one exchange attempt. A failed exchange leaves the credential
// store untouched.
func (a *Authenticator) HandleRedirectCallback(ctx context.Context, values url.Values) (string, error) {
	flow, err := a.consumePending(ctx, values.Get("state"))
	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.FlowRedirect, instrumentation.OAuthResultFailure)
		return "", err
	}

	if code := values.Get("error"); code != "" {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.FlowRedirect, instrumentation.OAuthResultFailure)
		a.logger.Warn("provider reported login error", slog.String("code", code))
		return "", providerError(code, values.Get("error_description"))
	}

	code := values.Get("code")
	if code == "" {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.FlowRedirect, instrumentation.OAuthResultFailure)
		return "", NewAuthError(CodeInvalidResponse, "callback carries neither code nor error", nil)
	}

	tok, err := a.oauth.Exchange(a.exchangeContext(ctx), code, oauth2.VerifierOption(flow.Verifier))
	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.FlowRedirect, instrumentation.OAuthResultFailure)
		a.logger.Warn("authorization code exchange failed", logging.Err(err))
		return "", exchangeError(CodeExchangeFailed, err)
	}

	a.store.Replace(grantFromToken(tok))
	if err := a.store.SetRefreshSecret(ctx, tok.RefreshToken); err != nil {
		return "", err
	}

	a.metrics.RecordOAuthAuth(ctx, instrumentation.FlowRedirect, instrumentation.OAuthResultSuccess)
	a.logger.Info("redirect login completed",
		slog.Bool("refreshable", tok.RefreshToken != ""),
		logging.Token("access_token", tok.AccessToken))

	return flow.State, nil
}

// consumePending takes the pending flow out of its slot if it belongs to
// flowID. A flow that does not match is left in place for its own callback.
func (a *Authenticator) consumePending(ctx context.Context, flowID string) (*pendingFlow, error) {
	noVerifier := func(detail string) error {
		return NewAuthError(CodeExchangeFailed, detail, ErrNoVerifier)
	}

	raw, err := a.pending.Get(ctx, PendingFlowKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, noVerifier("no verifier found: login was not started or already completed")
	}
	if err != nil {
		return nil, fmt.Errorf("google: reading pending flow: %w", err)
	}

	var flow pendingFlow
	if err := json.Unmarshal([]byte(raw), &flow); err != nil {
		_ = a.pending.Delete(ctx, PendingFlowKey)
		return nil, noVerifier("no verifier found: pending flow is unreadable")
	}
	if flow.FlowID != flowID {
		return nil, noVerifier("no verifier found for this callback: a newer login replaced it")
	}

	taken, err := a.pending.Take(ctx, PendingFlowKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, noVerifier("no verifier found: callback already handled")
	}
	if err != nil {
		return nil, fmt.Errorf("google: consuming pending flow: %w", err)
	}
	if taken != raw {
		// A new flow started between the read and the take; it keeps its slot.
		if err := a.pending.Set(ctx, PendingFlowKey, taken); err != nil {
			a.logger.Warn("failed to restore superseding flow", logging.Err(err))
		}
		return nil, noVerifier("no verifier found for this callback: a newer login replaced it")
	}

	if a.verifierTTL > 0 && a.now().Sub(flow.CreatedAt) > a.verifierTTL {
		return nil, NewAuthError(CodeExchangeFailed, "login took too long, start again", ErrVerifierExpired)
	}

	return &flow, nil
}
