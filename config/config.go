package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomtomtong/comfyTrade/errors"
)

// Duration wraps time.Duration so intervals read naturally in YAML
// ("2s", "500ms").
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// BridgeConfig configures the terminal bridge connection.
type BridgeConfig struct {
	URL            string   `yaml:"url"`
	DialTimeout    Duration `yaml:"dial_timeout,omitempty"`
	RequestTimeout Duration `yaml:"request_timeout,omitempty"`
}

// NATSConfig configures persistence. An empty URL selects in-memory
// stores; flows are never persisted either way.
type NATSConfig struct {
	URL         string `yaml:"url,omitempty"`
	GraphBucket string `yaml:"graph_bucket,omitempty"`
	StoreBucket string `yaml:"store_bucket,omitempty"`
}

// TrailingConfig configures the trailing stop controller.
type TrailingConfig struct {
	Interval Duration `yaml:"interval,omitempty"`
	Bucket   string   `yaml:"bucket,omitempty"`
}

// SchedulerConfig configures flow scheduling defaults.
type SchedulerConfig struct {
	DefaultInterval Duration `yaml:"default_interval,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint. Port 0 disables it.
type MetricsConfig struct {
	Port int `yaml:"port,omitempty"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // json, text
}

// Config is the complete application configuration.
type Config struct {
	Bridge    BridgeConfig    `yaml:"bridge"`
	NATS      NATSConfig      `yaml:"nats,omitempty"`
	Trailing  TrailingConfig  `yaml:"trailing,omitempty"`
	Scheduler SchedulerConfig `yaml:"scheduler,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Bridge: BridgeConfig{
			URL:            "ws://127.0.0.1:8765",
			DialTimeout:    Duration(5 * time.Second),
			RequestTimeout: Duration(10 * time.Second),
		},
		NATS: NATSConfig{
			GraphBucket: "comfytrade_graphs",
			StoreBucket: "comfytrade_plugin_store",
		},
		Trailing: TrailingConfig{
			Interval: Duration(2 * time.Second),
			Bucket:   "comfytrade_trailing",
		},
		Scheduler: SchedulerConfig{
			DefaultInterval: Duration(time.Second),
		},
		Metrics: MetricsConfig{Port: 9091},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads a YAML file over the defaults. Environment expansion applies
// to the raw file so secrets can come from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "Load", "read "+path)
	}
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "parse "+path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the application cannot start with.
func (c *Config) Validate() error {
	if c.Bridge.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate",
			"bridge.url is required")
	}
	if c.Trailing.Interval < 0 || c.Scheduler.DefaultInterval < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"intervals must not be negative")
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"logging.level must be debug, info, warn or error")
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"logging.format must be json or text")
	}

	return nil
}
