// Package tooltest builds signed-in server contexts against a fake Google
// API for tool tests.
package tooltest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/lexsync/internal/logging"
	"github.com/teemow/lexsync/internal/server"
	"github.com/teemow/lexsync/internal/session"
)

// API is a fake Google API. Requests other than the token exchange go to
// the handler passed to New.
type API struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
}

// Requests returns "METHOD /path" for every resource request served.
func (a *API) Requests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.requests...)
}

// New starts a fake API and returns a server context whose session is
// signed in when signedIn is true.
func New(t *testing.T, signedIn bool, h http.HandlerFunc) (*server.ServerContext, *API) {
	t.Helper()

	a := &API{}
	a.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "ya29.tool",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"refresh_token": "1//tool-refresh",
			})
			return
		}
		a.mu.Lock()
		a.requests = append(a.requests, r.Method+" "+r.URL.Path)
		a.mu.Unlock()
		h(w, r)
	}))
	t.Cleanup(a.Close)

	ctx := context.Background()
	sess, err := session.Initialize(ctx, session.Config{
		ClientID:     "client-123.apps.googleusercontent.com",
		ClientSecret: "shh",
		RedirectURI:  "http://127.0.0.1:8085/auth/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/o/oauth2/auth",
			TokenURL: a.URL + "/token",
		},
		RevokeURL: a.URL + "/revoke",
	},
		session.WithOAuthHTTPClient(a.Client()),
		session.WithTransport(a.Client().Transport),
		session.WithEndpoints(session.Endpoints{
			Gmail:    a.URL + "/",
			Calendar: a.URL + "/",
			Drive:    a.URL + "/",
			UserInfo: a.URL + "/userinfo",
		}),
	)
	require.NoError(t, err)

	if signedIn {
		authURL, err := sess.LoginWithRedirect(ctx, "")
		require.NoError(t, err)
		u, err := url.Parse(authURL)
		require.NoError(t, err)
		_, err = sess.HandleRedirectCallback(ctx, url.Values{
			"state": {u.Query().Get("state")},
			"code":  {"4/tool-code"},
		})
		require.NoError(t, err)
	}

	sc := server.NewServerContext(ctx, sess, logging.Discard(), nil)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, a
}

// Request builds a tool call.
func Request(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// Text returns the text of the first content item of a result.
func Text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "first content item is not text")
	return tc.Text
}
