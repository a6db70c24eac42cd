package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/lexsync/internal/config"
	"github.com/teemow/lexsync/internal/server"
)

type serveOptions struct {
	addr        string
	metricsAddr string
	readWrite   bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the lexsync HTTP server. It serves:

  /auth/login, /auth/callback, /auth/implicit  sign in to Google
  /auth/logout, /auth/status                    manage the stored credential
  /healthz, /readyz, /healthz/detailed          health checks
  /mcp                                          MCP over streamable HTTP

Prometheus metrics are served on a separate address when instrumentation
is enabled. Only read tools are registered unless --read-write is given.

The server has no client authentication of its own, so it only listens on
a loopback address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Loopback listen address (default from config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Metrics listen address (default from config)")
	cmd.Flags().BoolVar(&opts.readWrite, "read-write", false, "Register tools that send mail or change events and files")

	return cmd
}

// resolveListenAddrs fills unset addresses from the config. The HTTP address
// must be loopback whichever way it was given.
func resolveListenAddrs(cfg *config.Config, opts serveOptions) (serveOptions, error) {
	if opts.addr == "" {
		opts.addr = cfg.Server.Addr
	}
	if opts.metricsAddr == "" {
		opts.metricsAddr = cfg.Server.MetricsAddr
	}
	if err := config.CheckLoopbackAddr(opts.addr); err != nil {
		return opts, fmt.Errorf("serve: %w", err)
	}
	return opts, nil
}

func runServe(ctx context.Context, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	opts, err = resolveListenAddrs(rt.cfg, opts)
	if err != nil {
		return err
	}

	sc := server.NewServerContext(ctx, rt.session, rt.logger, rt.metrics())
	defer func() {
		_ = sc.Shutdown()
	}()

	health := server.NewHealth(sc)
	httpSrv := server.NewHTTPServer(sc, opts.addr, health, server.NewAuthHandler(sc))

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, sc, !opts.readWrite); err != nil {
		return err
	}
	httpSrv.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv, mcpserver.WithEndpointPath("/mcp")))

	if opts.readWrite {
		rt.logger.Warn("write tools enabled")
	} else {
		rt.logger.Info("read-only mode (use --read-write to enable write tools)")
	}

	var metricsSrv *server.MetricsServer
	if rt.provider.Enabled() && rt.provider.MetricsHandler() != nil {
		metricsSrv, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			InstrumentationProvider: rt.provider,
			Logger:                  rt.logger,
		})
		if err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpSrv.Serve(ln)
	})
	if metricsSrv != nil {
		g.Go(metricsSrv.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		rt.logger.Info("shutting down")
		health.SetReady(false)
		_ = sc.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), server.DefaultShutdownTimeout)
		defer cancel()

		err := httpSrv.Shutdown(shutdownCtx)
		if metricsSrv != nil {
			if merr := metricsSrv.Shutdown(shutdownCtx); merr != nil && err == nil {
				err = merr
			}
		}
		return err
	})

	health.SetReady(true)
	rt.logger.Info("lexsync serving", slog.String("addr", ln.Addr().String()), slog.Duration("shutdown_timeout", server.DefaultShutdownTimeout.Round(time.Second)))

	return g.Wait()
}
