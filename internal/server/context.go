package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/logging"
	"github.com/teemow/lexsync/internal/session"
)

// ServerContext carries the session and shared infrastructure to HTTP
// handlers and MCP tools.
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	session *session.Session
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a ServerContext whose context ends on Shutdown
// or when ctx ends.
func NewServerContext(ctx context.Context, sess *session.Session, logger *slog.Logger, metrics *instrumentation.Metrics) *ServerContext {
	if logger == nil {
		logger = logging.Discard()
	}
	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		session: sess,
		logger:  logger,
		metrics: metrics,
	}
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Session returns the authenticated session.
func (sc *ServerContext) Session() *session.Session {
	return sc.session
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Metrics returns the metrics recorder; nil disables recording.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
