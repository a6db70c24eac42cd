package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	EnvConfig         = "LEXSYNC_CONFIG"
	EnvClientID       = "LEXSYNC_CLIENT_ID"
	EnvClientSecret   = "LEXSYNC_CLIENT_SECRET"
	EnvAPIKey         = "LEXSYNC_API_KEY"
	EnvRedirectURI    = "LEXSYNC_REDIRECT_URI"
	EnvScopes         = "LEXSYNC_SCOPES"
	EnvRequestTimeout = "LEXSYNC_REQUEST_TIMEOUT"
	EnvStoragePath    = "LEXSYNC_STORAGE_PATH"
	EnvServerAddr     = "LEXSYNC_SERVER_ADDR"
	EnvMetricsAddr    = "LEXSYNC_METRICS_ADDR"
	EnvLogLevel       = "LEXSYNC_LOG_LEVEL"
	EnvLogFormat      = "LEXSYNC_LOG_FORMAT"
)

// Env looks up environment variables.
type Env interface {
	Get(key string) string
}

// OSEnv reads the process environment.
type OSEnv struct{}

// Get implements Env.
func (OSEnv) Get(key string) string {
	return os.Getenv(key)
}

// MapEnv is an Env backed by a map, for tests.
type MapEnv map[string]string

// Get implements Env.
func (m MapEnv) Get(key string) string {
	return m[key]
}

// ApplyEnv overrides cfg with the LEXSYNC_* variables that are set.
func ApplyEnv(cfg *Config, env Env) error {
	setString := func(key string, dst *string) {
		if v := env.Get(key); v != "" {
			*dst = v
		}
	}

	setString(EnvClientID, &cfg.ClientID)
	setString(EnvClientSecret, &cfg.ClientSecret)
	setString(EnvAPIKey, &cfg.APIKey)
	setString(EnvRedirectURI, &cfg.RedirectURI)
	setString(EnvStoragePath, &cfg.Storage.Path)
	setString(EnvServerAddr, &cfg.Server.Addr)
	setString(EnvMetricsAddr, &cfg.Server.MetricsAddr)
	setString(EnvLogLevel, &cfg.Logging.Level)
	setString(EnvLogFormat, &cfg.Logging.Format)

	if v := env.Get(EnvScopes); v != "" {
		cfg.Scopes = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	}

	if v := env.Get(EnvRequestTimeout); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequestTimeout, err)
		}
		cfg.RequestTimeout = d
	}

	return nil
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
