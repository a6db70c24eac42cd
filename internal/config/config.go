package config

import (
	"path/filepath"
	"time"

	"github.com/teemow/lexsync/internal/api"
	"github.com/teemow/lexsync/internal/google"
	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/logging"
)

// Config is the complete lexsync configuration.
type Config struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	APIKey       string   `toml:"api_key"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`

	RefreshMargin  time.Duration `toml:"refresh_margin"`
	RequestTimeout time.Duration `toml:"request_timeout"`

	Storage         StorageConfig         `toml:"storage"`
	Server          ServerConfig          `toml:"server"`
	Logging         LoggingConfig         `toml:"logging"`
	Instrumentation InstrumentationConfig `toml:"instrumentation"`
}

// StorageConfig controls where the refresh secret and pending logins live.
type StorageConfig struct {
	// Path of the SQLite database. "memory" keeps everything in process.
	Path string `toml:"path"`

	VerifierTTL time.Duration `toml:"verifier_ttl"`
}

// ServerConfig controls the HTTP listeners of serve and login.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	MetricsAddr string `toml:"metrics_addr"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `toml:"level"`

	// Format is "text", "json" or "auto" (text on a terminal).
	Format string `toml:"format"`
}

// InstrumentationConfig mirrors instrumentation.Config in the file.
type InstrumentationConfig struct {
	Enabled           bool    `toml:"enabled"`
	MetricsExporter   string  `toml:"metrics_exporter"`
	TracingExporter   string  `toml:"tracing_exporter"`
	OTLPEndpoint      string  `toml:"otlp_endpoint"`
	OTLPInsecure      bool    `toml:"otlp_insecure"`
	TraceSamplingRate float64 `toml:"trace_sampling_rate"`
}

// Storage path sentinel for an in-process store.
const MemoryStorage = "memory"

const (
	defaultRedirectURI = "http://127.0.0.1:8085/auth/callback"
	defaultAddr        = "127.0.0.1:8085"
	defaultMetricsAddr = "127.0.0.1:9090"
	dbFileName         = "lexsync.db"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	storage := MemoryStorage
	if dir := DefaultDataDir(); dir != "" {
		storage = filepath.Join(dir, dbFileName)
	}

	inst := instrumentation.DefaultConfig()

	return &Config{
		RedirectURI:    defaultRedirectURI,
		Scopes:         append([]string(nil), google.DefaultScopes...),
		RefreshMargin:  google.DefaultRefreshMargin,
		RequestTimeout: api.DefaultTimeout,
		Storage: StorageConfig{
			Path:        storage,
			VerifierTTL: google.DefaultVerifierTTL,
		},
		Server: ServerConfig{
			Addr:        defaultAddr,
			MetricsAddr: defaultMetricsAddr,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
		Instrumentation: InstrumentationConfig{
			Enabled:           inst.Enabled,
			MetricsExporter:   inst.MetricsExporter,
			TracingExporter:   inst.TracingExporter,
			OTLPEndpoint:      inst.OTLPEndpoint,
			OTLPInsecure:      inst.OTLPInsecure,
			TraceSamplingRate: inst.TraceSamplingRate,
		},
	}
}

// InstrumentationSettings converts the file section into the provider
// configuration.
func (c *Config) InstrumentationSettings(version string) instrumentation.Config {
	out := instrumentation.DefaultConfig()
	out.ServiceVersion = version
	out.Enabled = c.Instrumentation.Enabled
	out.MetricsExporter = c.Instrumentation.MetricsExporter
	out.TracingExporter = c.Instrumentation.TracingExporter
	out.OTLPEndpoint = c.Instrumentation.OTLPEndpoint
	out.OTLPInsecure = c.Instrumentation.OTLPInsecure
	out.TraceSamplingRate = c.Instrumentation.TraceSamplingRate
	return out
}
