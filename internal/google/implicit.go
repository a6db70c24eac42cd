package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/lexsync/internal/credential"
	"github.com/teemow/lexsync/internal/instrumentation"
)

// FlowState is the lifecycle position of an ImplicitFlow.
type FlowState string

const (
	FlowIdle     FlowState = "idle"
	FlowAwaiting FlowState = "awaiting_provider_response"
	FlowGranted  FlowState = "granted"
	FlowFailed   FlowState = "failed"
)

// ImplicitFlow is one popup-style login attempt. It resolves exactly once,
// either with a grant written to the credential store or with an error.
// There is no retry; a new attempt needs a new flow.
type ImplicitFlow struct {
	auth    *Authenticator
	state   string
	authURL string
	created time.Time

	once sync.Once
	done chan struct{}

	mu     sync.Mutex
	status FlowState
	err    error
}

// BeginImplicit registers a pending implicit flow and returns it. The flow
// is registered before its AuthURL is handed out, so a provider response can
// never arrive for an unknown flow.
func (a *Authenticator) BeginImplicit(ctx context.Context) (*ImplicitFlow, error) {
	state, err := generateState(a.random)
	if err != nil {
		return nil, fmt.Errorf("google: generating state: %w", err)
	}

	a.sweepImplicit()

	f := &ImplicitFlow{
		auth:    a,
		state:   state,
		created: a.now(),
		done:    make(chan struct{}),
		status:  FlowIdle,
	}

	a.mu.Lock()
	a.implicit[state] = f
	a.mu.Unlock()

	f.authURL = a.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("response_type", "token"))

	f.mu.Lock()
	f.status = FlowAwaiting
	f.mu.Unlock()

	a.logger.Info("implicit login started")
	return f, nil
}

// ResolveImplicit routes a provider response to the pending implicit flow
// named by its state parameter.
func (a *Authenticator) ResolveImplicit(values url.Values) error {
	a.mu.Lock()
	f, ok := a.implicit[values.Get("state")]
	a.mu.Unlock()

	if !ok {
		return NewAuthError(CodeInvalidResponse, "no pending login for this response", ErrStateMismatch)
	}
	return f.Resolve(values)
}

func (a *Authenticator) forgetImplicit(state string) {
	a.mu.Lock()
	delete(a.implicit, state)
	a.mu.Unlock()
}

// sweepImplicit fails pending flows that outlived the verifier TTL.
func (a *Authenticator) sweepImplicit() {
	if a.verifierTTL <= 0 {
		return
	}

	now := a.now()
	var stale []*ImplicitFlow
	a.mu.Lock()
	for _, f := range a.implicit {
		if now.Sub(f.created) > a.verifierTTL {
			stale = append(stale, f)
		}
	}
	a.mu.Unlock()

	for _, f := range stale {
		f.abandon(NewAuthError(CodeInvalidResponse, "login took too long, start again", ErrVerifierExpired))
	}
}

// AuthURL is the provider URL the user must visit.
func (f *ImplicitFlow) AuthURL() string {
	return f.authURL
}

// StateParam is the OAuth state value identifying this flow.
func (f *ImplicitFlow) StateParam() string {
	return f.state
}

// State returns the current lifecycle position.
func (f *ImplicitFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Done is closed once the flow has resolved.
func (f *ImplicitFlow) Done() <-chan struct{} {
	return f.done
}

// Err returns the resolution error, or nil while pending or after success.
func (f *ImplicitFlow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Wait blocks until the flow resolves or ctx ends. When ctx ends first the
// flow is abandoned: it fails with ctx's error and a late provider response
// is rejected as unknown.
func (f *ImplicitFlow) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.Err()
	case <-ctx.Done():
		f.abandon(ctx.Err())
		return ctx.Err()
	}
}

// abandon fails a flow that is still pending. It is a no-op once the flow
// has resolved.
func (f *ImplicitFlow) abandon(err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.err = err
		f.status = FlowFailed
		f.mu.Unlock()

		f.auth.forgetImplicit(f.state)
		close(f.done)
		f.auth.logger.Info("implicit login abandoned", slog.String("reason", err.Error()))
	})
}

// Resolve completes the flow from the provider's response parameters
// (access_token, expires_in, token_type, scope, state, or error and
// error_description). Only the first call has an effect; later calls return
// ErrFlowResolved.
func (f *ImplicitFlow) Resolve(values url.Values) error {
	first := false
	var err error

	f.once.Do(func() {
		first = true
		err = f.complete(values)

		f.mu.Lock()
		f.err = err
		if err != nil {
			f.status = FlowFailed
		} else {
			f.status = FlowGranted
		}
		f.mu.Unlock()

		f.auth.forgetImplicit(f.state)
		close(f.done)
	})

	if !first {
		return ErrFlowResolved
	}
	return err
}

func (f *ImplicitFlow) complete(values url.Values) error {
	a := f.auth
	ctx := context.Background()

	fail := func(err error) error {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.FlowImplicit, instrumentation.OAuthResultFailure)
		a.logger.Warn("implicit login failed", slog.String("error", err.Error()))
		return err
	}

	if values.Get("state") != f.state {
		return fail(NewAuthError(CodeInvalidResponse, "response does not belong to this login", ErrStateMismatch))
	}
	if code := values.Get("error"); code != "" {
		return fail(providerError(code, values.Get("error_description")))
	}

	grant, err := parseImplicitGrant(values)
	if err != nil {
		return fail(err)
	}

	a.store.Replace(grant)
	a.metrics.RecordOAuthAuth(ctx, instrumentation.FlowImplicit, instrumentation.OAuthResultSuccess)
	a.logger.Info("implicit login completed")
	return nil
}

func parseImplicitGrant(values url.Values) (credential.Grant, error) {
	token := values.Get("access_token")
	if token == "" {
		return credential.Grant{}, NewAuthError(CodeInvalidResponse, "response is missing access_token", nil)
	}

	seconds, err := strconv.ParseInt(values.Get("expires_in"), 10, 64)
	if err != nil || seconds <= 0 {
		return credential.Grant{}, NewAuthError(CodeInvalidResponse, "response has no valid expires_in", err)
	}

	g := credential.Grant{
		AccessToken: token,
		TokenType:   (&oauth2.Token{TokenType: values.Get("token_type")}).Type(),
		Lifetime:    time.Duration(seconds) * time.Second,
	}
	if scope := values.Get("scope"); scope != "" {
		g.Scopes = strings.Fields(scope)
	}
	return g, nil
}
