package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/teemow/lexsync/internal/logging"
)

// HTTPServer is the application listener: auth endpoints, health probes and
// anything mounted with Handle.
type HTTPServer struct {
	sc         *ServerContext
	mux        *http.ServeMux
	httpServer *http.Server
	addr       string
}

// NewHTTPServer creates an HTTPServer with the auth and health routes
// registered.
func NewHTTPServer(sc *ServerContext, addr string, health *Health, auth *AuthHandler) *HTTPServer {
	mux := http.NewServeMux()
	auth.Register(mux)
	health.Register(mux)

	s := &HTTPServer{
		sc:   sc,
		mux:  mux,
		addr: addr,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handle mounts an additional handler, e.g. the MCP endpoint.
func (s *HTTPServer) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the instrumented root handler.
func (s *HTTPServer) Handler() http.Handler {
	return instrument(s.sc, s.mux)
}

// Start listens on the configured address and serves until Shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. A clean shutdown returns nil.
func (s *HTTPServer) Serve(ln net.Listener) error {
	s.sc.Logger().Info("starting http server", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// instrument logs and counts every request. The matched route pattern is
// used as the metric label so that query strings never reach it.
func instrument(sc *ServerContext, next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		_, pattern := next.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}

		next.ServeHTTP(rec, r)

		sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, pattern, rec.status)
		sc.Logger().Debug("http request",
			slog.String("method", r.Method),
			slog.String("route", pattern),
			slog.Int("status", rec.status),
			logging.Duration(time.Since(start)))
	})
}
