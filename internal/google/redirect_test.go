package google

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/lexsync/internal/credential"
	"github.com/teemow/lexsync/internal/kv"
)

func okExchange(w http.ResponseWriter, form url.Values) {
	writeJSON(w, http.StatusOK, tokenResponse("ya29.access", 3600, "1//refresh"))
}

func readPending(t *testing.T, env *testEnv) pendingFlow {
	t.Helper()
	raw, err := env.pending.Get(context.Background(), PendingFlowKey)
	require.NoError(t, err)
	var flow pendingFlow
	require.NoError(t, json.Unmarshal([]byte(raw), &flow))
	return flow
}

func callbackFor(t *testing.T, authURL string, extra url.Values) url.Values {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	values := url.Values{"state": {u.Query().Get("state")}}
	for k, v := range extra {
		values[k] = v
	}
	return values
}

func TestNewAuthenticator_RequiresClientID(t *testing.T) {
	store := credential.New(kv.NewMemory())
	_, err := NewAuthenticator(OAuthConfig{}, store, kv.NewMemory())

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeClientNotInitialized, ae.Code)
}

func TestBeginRedirect_AuthURL(t *testing.T) {
	env := newTestEnv(t, okExchange)

	authURL, err := env.auth.BeginRedirect(context.Background(), "/invoices")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()

	flow := readPending(t, env)
	sum := sha256.Sum256([]byte(flow.Verifier))

	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(sum[:]), q.Get("code_challenge"))
	assert.Equal(t, "client-123.apps.googleusercontent.com", q.Get("client_id"))
	assert.Equal(t, "http://127.0.0.1:8085/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, flow.FlowID, q.Get("state"))
	assert.Equal(t, "/invoices", flow.State)
	assert.Len(t, flow.Verifier, 43)
	assert.Equal(t, env.clock.Now(), flow.CreatedAt.UTC())
}

func TestBeginRedirect_InjectedRandom(t *testing.T) {
	zeros := make([]byte, 256)
	env := newTestEnv(t, okExchange, WithRandom(bytesReader(zeros)))

	_, err := env.auth.BeginRedirect(context.Background(), "")
	require.NoError(t, err)

	flow := readPending(t, env)
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(make([]byte, 32)), flow.Verifier)
}

func TestBeginRedirect_RandomFailure(t *testing.T) {
	env := newTestEnv(t, okExchange, WithRandom(bytesReader(nil)))

	_, err := env.auth.BeginRedirect(context.Background(), "")
	assert.Error(t, err)
	assert.Equal(t, 0, env.pending.Len())
}

func TestHandleRedirectCallback_Success(t *testing.T) {
	env := newTestEnv(t, okExchange)
	ctx := context.Background()

	authURL, err := env.auth.BeginRedirect(ctx, "/leads")
	require.NoError(t, err)
	verifier := readPending(t, env).Verifier

	state, err := env.auth.HandleRedirectCallback(ctx, callbackFor(t, authURL, url.Values{"code": {"4/auth-code"}}))
	require.NoError(t, err)
	assert.Equal(t, "/leads", state)

	form := env.server.lastForm()
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "4/auth-code", form.Get("code"))
	assert.Equal(t, verifier, form.Get("code_verifier"))
	assert.Equal(t, "client-123.apps.googleusercontent.com", form.Get("client_id"))
	assert.Equal(t, "shh", form.Get("client_secret"))
	assert.Equal(t, "http://127.0.0.1:8085/auth/callback", form.Get("redirect_uri"))

	c, ok := env.store.Get()
	require.True(t, ok)
	assert.Equal(t, "ya29.access", c.AccessToken)
	assert.Equal(t, env.clock.Now().Add(time.Hour), c.ExpiresAt)
	assert.Equal(t, []string{"openid", "https://www.googleapis.com/auth/drive"}, c.Scopes)
	assert.True(t, c.Refreshable)

	secret, err := env.store.RefreshSecret(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1//refresh", secret)

	_, err = env.pending.Get(ctx, PendingFlowKey)
	assert.ErrorIs(t, err, kv.ErrNotFound, "verifier must be erased after use")
}

func TestHandleRedirectCallback_DuplicateCallback(t *testing.T) {
	env := newTestEnv(t, okExchange)
	ctx := context.Background()

	authURL, err := env.auth.BeginRedirect(ctx, "")
	require.NoError(t, err)
	values := callbackFor(t, authURL, url.Values{"code": {"4/auth-code"}})

	_, err = env.auth.HandleRedirectCallback(ctx, values)
	require.NoError(t, err)

	_, err = env.auth.HandleRedirectCallback(ctx, values)
	assert.ErrorIs(t, err, ErrNoVerifier)
	assert.Equal(t, int32(1), env.server.hits.Load())
}

func TestHandleRedirectCallback_SecondFlowInvalidatesFirst(t *testing.T) {
	env := newTestEnv(t, okExchange)
	ctx := context.Background()

	firstURL, err := env.auth.BeginRedirect(ctx, "first")
	require.NoError(t, err)
	secondURL, err := env.auth.BeginRedirect(ctx, "second")
	require.NoError(t, err)

	_, err = env.auth.HandleRedirectCallback(ctx, callbackFor(t, firstURL, url.Values{"code": {"code-1"}}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoVerifier)
	assert.Contains(t, err.Error(), "no verifier found")
	assert.Equal(t, int32(0), env.server.hits.Load(), "no exchange for a superseded flow")
	assert.False(t, env.store.IsValid())

	// the newer flow is unaffected
	state, err := env.auth.HandleRedirectCallback(ctx, callbackFor(t, secondURL, url.Values{"code": {"code-2"}}))
	require.NoError(t, err)
	assert.Equal(t, "second", state)
}

func TestHandleRedirectCallback_NeverStarted(t *testing.T) {
	env := newTestEnv(t, okExchange)

	_, err := env.auth.HandleRedirectCallback(context.Background(), url.Values{"code": {"x"}, "state": {"y"}})
	assert.ErrorIs(t, err, ErrNoVerifier)

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeExchangeFailed, ae.Code)
}

func TestHandleRedirectCallback_ProviderError(t *testing.T) {
	env := newTestEnv(t, okExchange)
	ctx := context.Background()

	authURL, err := env.auth.BeginRedirect(ctx, "")
	require.NoError(t, err)

	_, err = env.auth.HandleRedirectCallback(ctx, callbackFor(t, authURL, url.Values{
		"error":             {"access_denied"},
		"error_description": {"The user denied access"},
	}))

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "access_denied", ae.Code)
	assert.Equal(t, "The user denied access", ae.Description)
	assert.False(t, env.store.IsValid())
	assert.Equal(t, int32(0), env.server.hits.Load())
	assert.Equal(t, 0, env.pending.Len())
}

func TestHandleRedirectCallback_ProviderErrorWithoutDescription(t *testing.T) {
	env := newTestEnv(t, okExchange)
	ctx := context.Background()

	authURL, err := env.auth.BeginRedirect(ctx, "")
	require.NoError(t, err)

	_, err = env.auth.HandleRedirectCallback(ctx, callbackFor(t, authURL, url.Values{"error": {"access_denied"}}))

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.NotEmpty(t, ae.Description)
}

func TestHandleRedirectCallback_ExchangeRejected(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, form url.Values) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Bad Request",
		})
	})
	ctx := context.Background()

	authURL, err := env.auth.BeginRedirect(ctx, "")
	require.NoError(t, err)

	_, err = env.auth.HandleRedirectCallback(ctx, callbackFor(t, authURL, url.Values{"code": {"stale"}}))

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeExchangeFailed, ae.Code)
	assert.Equal(t, "Bad Request", ae.Description)
	assert.Equal(t, int32(1), env.server.hits.Load(), "exactly one exchange attempt")
	assert.False(t, env.store.IsValid())

	secret, err := env.store.RefreshSecret(ctx)
	require.NoError(t, err)
	assert.Empty(t, secret)
}

func TestHandleRedirectCallback_MissingCode(t *testing.T) {
	env := newTestEnv(t, okExchange)
	ctx := context.Background()

	authURL, err := env.auth.BeginRedirect(ctx, "")
	require.NoError(t, err)

	_, err = env.auth.HandleRedirectCallback(ctx, callbackFor(t, authURL, nil))

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeInvalidResponse, ae.Code)
}

func TestHandleRedirectCallback_VerifierExpired(t *testing.T) {
	env := newTestEnv(t, okExchange, WithVerifierTTL(5*time.Minute))
	ctx := context.Background()

	authURL, err := env.auth.BeginRedirect(ctx, "")
	require.NoError(t, err)
	env.clock.Advance(6 * time.Minute)

	_, err = env.auth.HandleRedirectCallback(ctx, callbackFor(t, authURL, url.Values{"code": {"late"}}))
	assert.ErrorIs(t, err, ErrVerifierExpired)
	assert.Equal(t, 0, env.pending.Len())
	assert.Equal(t, int32(0), env.server.hits.Load())
}

func TestHandleRedirectCallback_NoTTL(t *testing.T) {
	env := newTestEnv(t, okExchange, WithVerifierTTL(0))
	ctx := context.Background()

	authURL, err := env.auth.BeginRedirect(ctx, "")
	require.NoError(t, err)
	env.clock.Advance(48 * time.Hour)

	_, err = env.auth.HandleRedirectCallback(ctx, callbackFor(t, authURL, url.Values{"code": {"late"}}))
	assert.NoError(t, err)
}

func TestHandleRedirectCallback_SurvivesProcessBoundary(t *testing.T) {
	env := newTestEnv(t, okExchange)
	ctx := context.Background()

	authURL, err := env.auth.BeginRedirect(ctx, "resume")
	require.NoError(t, err)

	// a second authenticator sharing only the pending store handles the callback
	other, err := NewAuthenticator(env.auth.Config(), env.store, env.pending,
		WithHTTPClient(env.server.Client()), WithClock(env.clock.Now))
	require.NoError(t, err)

	state, err := other.HandleRedirectCallback(ctx, callbackFor(t, authURL, url.Values{"code": {"c"}}))
	require.NoError(t, err)
	assert.Equal(t, "resume", state)
}

func TestAuthError_Format(t *testing.T) {
	err := NewAuthError(CodeExchangeFailed, "Bad Request", errors.New("cause"))
	assert.Equal(t, "exchange_failed: Bad Request", err.Error())
	assert.EqualError(t, errors.Unwrap(err), "cause")
	assert.Equal(t, "access_denied", (&AuthError{Code: "access_denied"}).Error())
	assert.True(t, IsReauthenticationRequired(NewAuthError(CodeReauthenticationRequired, "", nil)))
	assert.False(t, IsReauthenticationRequired(errors.New("other")))
}
