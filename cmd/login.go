package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/lexsync/internal/config"
	"github.com/teemow/lexsync/internal/logging"
	"github.com/teemow/lexsync/internal/server"
)

// loginTimeout bounds how long login waits for the browser to come back.
const loginTimeout = 5 * time.Minute

func newLoginCmd() *cobra.Command {
	var (
		implicit  bool
		noBrowser bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Google",
		Long: `Sign in to Google in the browser. lexsync listens on the configured
redirect URI (a loopback address) for the provider's response.

By default the authorization-code grant with PKCE is used, which yields a
refresh secret so later commands keep working without signing in again.
--implicit uses the popup-style grant instead; its access token is not
refreshable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), implicit, !noBrowser)
		},
	}

	cmd.Flags().BoolVar(&implicit, "implicit", false, "Use the implicit grant (no refresh secret)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the sign-in URL instead of opening a browser")

	return cmd
}

func runLogin(ctx context.Context, implicit, launch bool) error {
	rt, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	addr, err := callbackAddr(rt.cfg.RedirectURI)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	sc := server.NewServerContext(ctx, rt.session, rt.logger, rt.metrics())
	defer func() {
		_ = sc.Shutdown()
	}()

	results := make(chan server.LoginResult, 1)
	auth := server.NewAuthHandler(sc, server.WithLoginHook(func(r server.LoginResult) {
		select {
		case results <- r:
		default:
		}
	}))

	mux := http.NewServeMux()
	auth.Register(mux)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening for the login callback on %s: %w", addr, err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error("login callback server failed", logging.Err(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if implicit {
		err = loginImplicit(ctx, rt, launch)
	} else {
		err = loginRedirect(ctx, rt, launch, results)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("timed out waiting for the browser after %s", loginTimeout)
		}
		return err
	}

	info, err := rt.session.UserInfo(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Signed in.")
		return nil
	}
	fmt.Fprintf(os.Stderr, "Signed in as %s.\n", info.Email)
	return nil
}

func loginRedirect(ctx context.Context, rt *app, launch bool, results <-chan server.LoginResult) error {
	authURL, err := rt.session.LoginWithRedirect(ctx, "")
	if err != nil {
		return err
	}
	openBrowser(os.Stderr, authURL, launch)

	select {
	case r := <-results:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func loginImplicit(ctx context.Context, rt *app, launch bool) error {
	flow, err := rt.session.Login(ctx)
	if err != nil {
		return err
	}
	openBrowser(os.Stderr, flow.AuthURL(), launch)
	return flow.Wait(ctx)
}

// callbackAddr returns the listen address for a loopback redirect URI.
func callbackAddr(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid redirect_uri %q", redirectURI)
	}
	if u.Scheme != "http" {
		return "", fmt.Errorf("redirect_uri %q: login needs a plain http loopback address", redirectURI)
	}

	host := u.Hostname()
	if !config.IsLoopbackHost(host) {
		return "", fmt.Errorf("redirect_uri %q is not a loopback address; register a loopback redirect URI such as http://127.0.0.1:8085/auth/callback", redirectURI)
	}

	port := u.Port()
	if port == "" {
		port = "80"
	}
	return net.JoinHostPort(host, port), nil
}
