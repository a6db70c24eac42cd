package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/teemow/lexsync/internal/google"
	"github.com/teemow/lexsync/internal/logging"
)

// LoginResult is reported to an AuthHandler's completion hook.
type LoginResult struct {
	// State is the caller state of a redirect login, empty for implicit.
	State string
	Err   error
}

// AuthOption configures an AuthHandler.
type AuthOption func(*AuthHandler)

// WithLoginHook registers a function called after every completed or failed
// login callback. The CLI uses it to stop its loopback listener.
func WithLoginHook(fn func(LoginResult)) AuthOption {
	return func(h *AuthHandler) {
		h.onLogin = fn
	}
}

// AuthHandler serves the /auth endpoints on top of a session.
type AuthHandler struct {
	sc      *ServerContext
	logger  *slog.Logger
	onLogin func(LoginResult)
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(sc *ServerContext, opts ...AuthOption) *AuthHandler {
	h := &AuthHandler{
		sc:      sc,
		logger:  logging.WithService(sc.Logger(), "auth"),
		onLogin: func(LoginResult) {},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the auth routes to mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /auth/login", h.handleLogin)
	mux.HandleFunc("GET /auth/callback", h.handleCallback)
	mux.HandleFunc("POST /auth/implicit", h.handleImplicit)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /auth/status", h.handleStatus)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	returnTo := safeReturnPath(r.URL.Query().Get("return_to"))

	authURL, err := h.sc.Session().LoginWithRedirect(r.Context(), returnTo)
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// An implicit grant arrives in the fragment, which only the browser sees.
	if q.Get("state") == "" && q.Get("code") == "" && q.Get("error") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = fragmentPage.Execute(w, nil)
		return
	}

	state, err := h.sc.Session().HandleRedirectCallback(r.Context(), q)
	h.onLogin(LoginResult{State: state, Err: err})
	if err != nil {
		h.writeError(w, err)
		return
	}

	if state != "" {
		http.Redirect(w, r, state, http.StatusFound)
		return
	}
	writeDone(w)
}

func (h *AuthHandler) handleImplicit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	err := h.sc.Session().ResolveImplicit(r.PostForm)
	h.onLogin(LoginResult{Err: err})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDone(w)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sc.Session().Logout(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(h.sc.Session().Status(r.Context()))
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// writeError reports auth failures in the OAuth error shape.
func (h *AuthHandler) writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: "server_error"}
	status := http.StatusInternalServerError

	var ae *google.AuthError
	if errors.As(err, &ae) {
		body = errorBody{Error: ae.Code, Description: ae.Description}
		status = http.StatusBadRequest
	} else {
		h.logger.Error("auth request failed", logging.Err(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDone(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Login complete. You can close this window.\n"))
}

// safeReturnPath keeps post-login redirects on this host.
func safeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return ""
	}
	u, err := url.Parse(p)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return p
}

var fragmentPage = template.Must(template.New("fragment").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>lexsync login</title></head>
<body>
<p id="msg">Completing login&hellip;</p>
<script>
(function () {
  var params = new URLSearchParams(window.location.hash.slice(1));
  history.replaceState(null, "", window.location.pathname);
  fetch("/auth/implicit", {
    method: "POST",
    headers: {"Content-Type": "application/x-www-form-urlencoded"},
    body: params.toString()
  }).then(function (r) {
    document.getElementById("msg").textContent = r.ok
      ? "Login complete. You can close this window."
      : "Login failed.";
  });
})();
</script>
</body></html>
`))
