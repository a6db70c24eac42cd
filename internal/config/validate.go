package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/teemow/lexsync/internal/logging"
)

// Validate checks all values and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.RedirectURI != "" {
		u, err := url.Parse(cfg.RedirectURI)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("redirect_uri: must be an absolute URL, got %q", cfg.RedirectURI))
		}
	}
	if len(cfg.Scopes) == 0 {
		errs = append(errs, errors.New("scopes: at least one scope is required"))
	}
	if cfg.RefreshMargin < 0 {
		errs = append(errs, fmt.Errorf("refresh_margin: must not be negative, got %s", cfg.RefreshMargin))
	}
	if cfg.RequestTimeout < time.Second {
		errs = append(errs, fmt.Errorf("request_timeout: must be at least 1s, got %s", cfg.RequestTimeout))
	}
	if cfg.Storage.Path == "" {
		errs = append(errs, fmt.Errorf("storage.path: must be a file path or %q", MemoryStorage))
	}
	if cfg.Storage.VerifierTTL < 0 {
		errs = append(errs, fmt.Errorf("storage.verifier_ttl: must not be negative, got %s", cfg.Storage.VerifierTTL))
	}
	if cfg.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr: must not be empty"))
	} else if err := CheckLoopbackAddr(cfg.Server.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.addr: %w", err))
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch cfg.Logging.Format {
	case logging.FormatAuto, logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("logging.format: must be auto, text or json, got %q", cfg.Logging.Format))
	}

	inst := cfg.InstrumentationSettings("")
	if err := inst.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("instrumentation: %w", err))
	}

	return errors.Join(errs...)
}

// RequireClient reports a missing OAuth client identity. Commands that talk
// to the provider call it; version and help do not.
func (c *Config) RequireClient() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is not configured (set it in the config file or %s)", EnvClientID)
	}
	return nil
}

// CheckLoopbackAddr rejects listen addresses reachable from other hosts.
// The HTTP server exposes /mcp and the auth endpoints without client
// authentication, so it only binds to loopback. An empty host means every
// interface and is rejected too.
func CheckLoopbackAddr(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if !IsLoopbackHost(host) {
		return fmt.Errorf("listen address %q is not a loopback address", addr)
	}
	return nil
}

// IsLoopbackHost reports whether host is "localhost" or a loopback IP.
func IsLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
