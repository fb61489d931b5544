package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment before flags are parsed, so each
// field is the default for the matching flag.
type Config struct {
	Database string `env:"REFLUX_DB"`
	StoreID  string `env:"REFLUX_STORE_ID" envDefault:"main"`
	Format   string `env:"REFLUX_FORMAT"    envDefault:"text"`
	LogLevel string `env:"REFLUX_LOG_LEVEL" envDefault:"warn"`

	// OTelEndpoint, when set, ships spans to an OTLP/HTTP collector.
	OTelEndpoint string `env:"REFLUX_OTEL_ENDPOINT"`
}

// LoadConfig parses Config from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// loadConfigFrom parses Config from an explicit environment map.
func loadConfigFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// parseLevel maps a level name to slog.Level.
func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", name)
	}
	return level, nil
}
