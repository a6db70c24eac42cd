package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/teemow/lexsync/internal/config"
	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/kv"
	"github.com/teemow/lexsync/internal/logging"
	"github.com/teemow/lexsync/internal/session"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	storage    string
}

var globals globalOptions

// loadConfig resolves the configuration (file, then environment) and
// applies the persistent flag overrides.
func loadConfig(opts globalOptions, env config.Env) (*config.Config, error) {
	cfg, err := config.Resolve(opts.configPath, env)
	if err != nil {
		return nil, err
	}

	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	if opts.storage != "" {
		cfg.Storage.Path = opts.storage
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs go to stderr so that stdout
// stays clean for command output and the MCP stdio transport.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(os.Stderr, level, cfg.Logging.Format)
}

// app is what a command needs to talk to the provider.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	db       *kv.SQLite
	session  *session.Session
}

// newApp loads the configuration and builds a session backed by the
// configured store. Instrumentation is only started when instrumented is
// set and the configuration enables it.
func newApp(ctx context.Context, instrumented bool) (*app, error) {
	cfg, err := loadConfig(globals, config.OSEnv{})
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireClient(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	instCfg := cfg.InstrumentationSettings(version)
	instCfg.Enabled = instCfg.Enabled && instrumented
	provider, err := instrumentation.NewProvider(ctx, instCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	rt := &app{cfg: cfg, logger: logger, provider: provider}

	var secrets kv.Store = kv.NewMemory()
	if cfg.Storage.Path != config.MemoryStorage {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o700); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		rt.db, err = kv.OpenSQLite(ctx, cfg.Storage.Path, logger)
		if err != nil {
			rt.Close(ctx)
			return nil, err
		}
		secrets = rt.db
	}

	rt.session, err = session.Initialize(ctx, session.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		APIKey:       cfg.APIKey,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
	},
		session.WithSecrets(secrets),
		session.WithLogger(logger),
		session.WithMetrics(provider.Metrics()),
		session.WithRefreshMargin(cfg.RefreshMargin),
		session.WithVerifierTTL(cfg.Storage.VerifierTTL),
		session.WithRequestTimeout(cfg.RequestTimeout),
		session.WithUserAgent("lexsync/"+version),
	)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return rt, nil
}

func (rt *app) metrics() *instrumentation.Metrics {
	return rt.provider.Metrics()
}

// Close releases the store and flushes telemetry.
func (rt *app) Close(ctx context.Context) {
	var errs []error
	if rt.db != nil {
		errs = append(errs, rt.db.Close())
	}
	if rt.provider != nil {
		errs = append(errs, rt.provider.Shutdown(context.WithoutCancel(ctx)))
	}
	if err := errors.Join(errs...); err != nil {
		rt.logger.Warn("shutdown", logging.Err(err))
	}
}
