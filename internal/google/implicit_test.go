package google

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func implicitResponse(f *ImplicitFlow) url.Values {
	return url.Values{
		"state":        {f.StateParam()},
		"access_token": {"ya29.implicit"},
		"expires_in":   {"3599"},
		"token_type":   {"Bearer"},
		"scope":        {"openid email"},
	}
}

func TestBeginImplicit(t *testing.T) {
	env := newTestEnv(t, okExchange)

	f, err := env.auth.BeginImplicit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, FlowAwaiting, f.State())

	u, err := url.Parse(f.AuthURL())
	require.NoError(t, err)
	assert.Equal(t, "token", u.Query().Get("response_type"))
	assert.Equal(t, f.StateParam(), u.Query().Get("state"))
	assert.Empty(t, u.Query().Get("code_challenge"))
}

func TestImplicitFlow_Granted(t *testing.T) {
	env := newTestEnv(t, okExchange)
	ctx := context.Background()

	f, err := env.auth.BeginImplicit(ctx)
	require.NoError(t, err)

	require.NoError(t, env.auth.ResolveImplicit(implicitResponse(f)))
	require.NoError(t, f.Wait(ctx))

	assert.Equal(t, FlowGranted, f.State())
	c, ok := env.store.Get()
	require.True(t, ok)
	assert.Equal(t, "ya29.implicit", c.AccessToken)
	assert.Equal(t, env.clock.Now().Add(3599*time.Second), c.ExpiresAt)
	assert.Equal(t, []string{"openid", "email"}, c.Scopes)
	assert.False(t, c.Refreshable, "implicit grants carry no refresh secret")
}

func TestImplicitFlow_ProviderError(t *testing.T) {
	env := newTestEnv(t, okExchange)
	ctx := context.Background()

	f, err := env.auth.BeginImplicit(ctx)
	require.NoError(t, err)

	err = f.Resolve(url.Values{
		"state":             {f.StateParam()},
		"error":             {"access_denied"},
		"error_description": {"consent declined"},
	})

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "access_denied", ae.Code)
	assert.Equal(t, FlowFailed, f.State())
	assert.Equal(t, err, f.Wait(ctx))
	assert.False(t, env.store.IsValid())
}

func TestImplicitFlow_ResolvesOnce(t *testing.T) {
	env := newTestEnv(t, okExchange)

	f, err := env.auth.BeginImplicit(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.Resolve(implicitResponse(f)))

	err = f.Resolve(url.Values{"state": {f.StateParam()}, "error": {"access_denied"}})
	assert.ErrorIs(t, err, ErrFlowResolved)
	assert.Equal(t, FlowGranted, f.State())
	assert.NoError(t, f.Err())

	// the flow is no longer routable once resolved
	err = env.auth.ResolveImplicit(implicitResponse(f))
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestImplicitFlow_StateMismatchFails(t *testing.T) {
	env := newTestEnv(t, okExchange)

	f, err := env.auth.BeginImplicit(context.Background())
	require.NoError(t, err)

	values := implicitResponse(f)
	values.Set("state", "forged")
	err = f.Resolve(values)

	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.Equal(t, FlowFailed, f.State())
	assert.False(t, env.store.IsValid())
}

func TestImplicitFlow_InvalidResponse(t *testing.T) {
	tests := []struct {
		name  string
		patch func(url.Values)
	}{
		{"missing token", func(v url.Values) { v.Del("access_token") }},
		{"missing expiry", func(v url.Values) { v.Del("expires_in") }},
		{"bad expiry", func(v url.Values) { v.Set("expires_in", "soon") }},
		{"zero expiry", func(v url.Values) { v.Set("expires_in", "0") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, okExchange)
			f, err := env.auth.BeginImplicit(context.Background())
			require.NoError(t, err)

			values := implicitResponse(f)
			tt.patch(values)

			var ae *AuthError
			require.ErrorAs(t, f.Resolve(values), &ae)
			assert.Equal(t, CodeInvalidResponse, ae.Code)
			assert.False(t, env.store.IsValid())
		})
	}
}

func TestImplicitFlow_WaitHonoursContext(t *testing.T) {
	env := newTestEnv(t, okExchange)

	f, err := env.auth.BeginImplicit(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = f.Wait(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, FlowFailed, f.State())
	assert.ErrorIs(t, f.Err(), context.DeadlineExceeded)

	select {
	case <-f.Done():
	default:
		t.Fatal("abandoned flow must be resolved")
	}

	// a late provider response no longer finds the flow
	err = env.auth.ResolveImplicit(implicitResponse(f))
	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.Empty(t, env.auth.implicit)
	assert.False(t, env.store.IsValid())
}

func TestBeginImplicit_SweepsExpiredFlows(t *testing.T) {
	env := newTestEnv(t, okExchange, WithVerifierTTL(time.Minute))

	stale, err := env.auth.BeginImplicit(context.Background())
	require.NoError(t, err)

	env.clock.Advance(2 * time.Minute)
	fresh, err := env.auth.BeginImplicit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, FlowFailed, stale.State())
	assert.ErrorIs(t, stale.Err(), ErrVerifierExpired)
	assert.ErrorIs(t, env.auth.ResolveImplicit(implicitResponse(stale)), ErrStateMismatch)

	require.NoError(t, env.auth.ResolveImplicit(implicitResponse(fresh)))
	assert.Equal(t, FlowGranted, fresh.State())
}

func TestResolveImplicit_UnknownState(t *testing.T) {
	env := newTestEnv(t, okExchange)

	err := env.auth.ResolveImplicit(url.Values{"state": {"nope"}})
	assert.ErrorIs(t, err, ErrStateMismatch)
}
