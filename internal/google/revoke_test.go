package google

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRevoke_PostsToken(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, form url.Values) {
		w.WriteHeader(http.StatusOK)
	})

	env.auth.Revoke(context.Background(), "ya29.revoke-me")

	assert.Equal(t, int32(1), env.server.hits.Load())
	assert.Equal(t, "ya29.revoke-me", env.server.lastForm().Get("token"))
}

func TestRevoke_FailuresAreSwallowed(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, form url.Values) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_token"})
	})

	// must not panic or block
	env.auth.Revoke(context.Background(), "ya29.unknown")
	assert.Equal(t, int32(1), env.server.hits.Load())

	env.server.Close()
	env.auth.Revoke(context.Background(), "ya29.unreachable")
}

func TestRevoke_EmptyTokenIsNoop(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, form url.Values) {})

	env.auth.Revoke(context.Background(), "")
	assert.Equal(t, int32(0), env.server.hits.Load())
}
