package google

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/lexsync/internal/credential"
	"github.com/teemow/lexsync/internal/kv"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// tokenServer is a fake provider token endpoint.
type tokenServer struct {
	*httptest.Server

	hits  atomic.Int32
	mu    sync.Mutex
	forms []url.Values

	// respond writes the response for one request.
	respond func(w http.ResponseWriter, form url.Values)
}

func newTokenServer(t *testing.T, respond func(w http.ResponseWriter, form url.Values)) *tokenServer {
	t.Helper()

	ts := &tokenServer{respond: respond}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ts.mu.Lock()
		ts.forms = append(ts.forms, r.PostForm)
		ts.mu.Unlock()
		ts.respond(w, r.PostForm)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) lastForm() url.Values {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.forms) == 0 {
		return nil
	}
	return ts.forms[len(ts.forms)-1]
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func tokenResponse(access string, expiresIn int, refresh string) map[string]any {
	body := map[string]any{
		"access_token": access,
		"expires_in":   expiresIn,
		"token_type":   "Bearer",
		"scope":        "openid https://www.googleapis.com/auth/drive",
	}
	if refresh != "" {
		body["refresh_token"] = refresh
	}
	return body
}

type testEnv struct {
	auth    *Authenticator
	store   *credential.Store
	secrets *kv.Memory
	pending *kv.Memory
	clock   *fakeClock
	server  *tokenServer
}

func newTestEnv(t *testing.T, respond func(w http.ResponseWriter, form url.Values), opts ...AuthOption) *testEnv {
	t.Helper()

	server := newTokenServer(t, respond)
	clock := newFakeClock()
	secrets := kv.NewMemory()
	pending := kv.NewMemory()
	store := credential.New(secrets, credential.WithClock(clock.Now))

	all := append([]AuthOption{
		WithClock(clock.Now),
		WithHTTPClient(server.Client()),
	}, opts...)

	auth, err := NewAuthenticator(OAuthConfig{
		ClientID:     "client-123.apps.googleusercontent.com",
		ClientSecret: "shh",
		RedirectURI:  "http://127.0.0.1:8085/auth/callback",
		Scopes:       []string{"openid", "https://www.googleapis.com/auth/drive"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/o/oauth2/auth",
			TokenURL: server.URL + "/token",
		},
		RevokeURL: server.URL + "/revoke",
	}, store, pending, all...)
	require.NoError(t, err)

	return &testEnv{
		auth:    auth,
		store:   store,
		secrets: secrets,
		pending: pending,
		clock:   clock,
		server:  server,
	}
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
