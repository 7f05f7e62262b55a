// Package config loads the nativekit.yaml configuration.
//
// Values are resolved in three steps: built-in defaults, then the YAML
// file, then NATIVEKIT_* environment variables.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/go-drift/nativekit/pkg/errors"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "nativekit.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NATIVEKIT_"

// Log levels and formats.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	LogFormatConsole = "console"
	LogFormatText    = "text"
	LogFormatJSON    = "json"
)

// Config is the full configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Events  EventsConfig  `yaml:"events" envPrefix:"EVENTS_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	HTTP    HTTPConfig    `yaml:"http" envPrefix:"HTTP_"`
}

// LogConfig controls log outputs.
type LogConfig struct {
	Level   string           `yaml:"level" env:"LEVEL"`
	Console ConsoleLogConfig `yaml:"console" envPrefix:"CONSOLE_"`
	File    FileLogConfig    `yaml:"file" envPrefix:"FILE_"`
}

// ConsoleLogConfig controls stdout logging.
type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Format  string `yaml:"format" env:"FORMAT"`
	Level   string `yaml:"level" env:"LEVEL"`
}

// FileLogConfig controls rotated file logging.
type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled" env:"ENABLED"`
	Path     string         `yaml:"path" env:"PATH"`
	Format   string         `yaml:"format" env:"FORMAT"`
	Level    string         `yaml:"level" env:"LEVEL"`
	Rotation RotationConfig `yaml:"rotation" envPrefix:"ROTATION_"`
}

// RotationConfig mirrors lumberjack's rotation settings.
type RotationConfig struct {
	MaxSize    int  `yaml:"max_size" env:"MAX_SIZE"`       // megabytes
	MaxAge     int  `yaml:"max_age" env:"MAX_AGE"`         // days
	MaxBackups int  `yaml:"max_backups" env:"MAX_BACKUPS"` // files
	Compress   bool `yaml:"compress" env:"COMPRESS"`
}

// EventsConfig controls the event composition layer.
type EventsConfig struct {
	// Strict makes registration for unrecognized events an error.
	Strict bool `yaml:"strict" env:"STRICT"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	Listen    string `yaml:"listen" env:"LISTEN"`
	Path      string `yaml:"path" env:"PATH"`
}

// HTTPConfig tunes the desktop HTTP transport.
type HTTPConfig struct {
	Timeout         time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host" env:"MAX_CONNS_PER_HOST"`
	UserAgent       string        `yaml:"user_agent" env:"USER_AGENT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: LogLevelInfo,
			Console: ConsoleLogConfig{
				Enabled: true,
				Format:  LogFormatConsole,
			},
			File: FileLogConfig{
				Format: LogFormatText,
				Rotation: RotationConfig{
					MaxSize:    100,
					MaxAge:     7,
					MaxBackups: 3,
				},
			},
		},
		Metrics: MetricsConfig{
			Namespace: "nativekit",
			Listen:    "127.0.0.1:9464",
			Path:      "/metrics",
		},
		HTTP: HTTPConfig{
			Timeout:         30 * time.Second,
			MaxConnsPerHost: 16,
			UserAgent:       "nativekit",
		},
	}
}

// Load resolves the configuration. An empty path reads FileName from the
// working directory if it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = FileName
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := unmarshalStrict(data, cfg); err != nil {
			return nil, configError("config.Load", pkgerrors.Wrapf(err, "parse %s", filepath.Base(path)))
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, configError("config.Load", pkgerrors.Wrapf(err, "read %s", path))
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, configError("config.Load", pkgerrors.Wrap(err, "parse env"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// unmarshalStrict rejects unknown fields to catch typos.
func unmarshalStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "field") && strings.Contains(msg, "not found") {
			return pkgerrors.Wrap(err, "unknown configuration field (check for typos)")
		}
		return err
	}
	return nil
}

// Validate checks value ranges and combinations.
func (c *Config) Validate() error {
	const op = "config.Validate"
	for name, level := range map[string]string{
		"log.level":         c.Log.Level,
		"log.console.level": c.Log.Console.Level,
		"log.file.level":    c.Log.File.Level,
	} {
		if level != "" && !validLevel(level) {
			return configError(op, pkgerrors.Errorf("%s: unknown level %q", name, level))
		}
	}
	for name, format := range map[string]string{
		"log.console.format": c.Log.Console.Format,
		"log.file.format":    c.Log.File.Format,
	} {
		if format != "" && format != LogFormatConsole && format != LogFormatText && format != LogFormatJSON {
			return configError(op, pkgerrors.Errorf("%s: unknown format %q", name, format))
		}
	}
	if !c.Log.Console.Enabled && !c.Log.File.Enabled {
		return configError(op, pkgerrors.New("at least one log output (console or file) must be enabled"))
	}
	if c.Log.File.Enabled && c.Log.File.Path == "" {
		return configError(op, pkgerrors.New("log.file.path must be set when file logging is enabled"))
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return configError(op, pkgerrors.New("metrics.listen must be set when metrics are enabled"))
	}
	if c.Metrics.Path != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return configError(op, pkgerrors.Errorf("metrics.path must start with '/' (got %q)", c.Metrics.Path))
	}
	if c.HTTP.Timeout < 0 {
		return configError(op, pkgerrors.New("http.timeout must not be negative"))
	}
	if c.HTTP.MaxConnsPerHost < 0 {
		return configError(op, pkgerrors.New("http.max_conns_per_host must not be negative"))
	}
	return nil
}

func validLevel(level string) bool {
	switch level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

func configError(op string, err error) *errors.KitError {
	return &errors.KitError{Op: op, Kind: errors.KindConfig, Err: err}
}
