// Package config loads sinema settings from defaults, an optional config
// file, .env files and SINEMA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/jerbs/sinema-sub001/core"
)

// EnvPrefix prefixes every environment override, e.g. SINEMA_TIMER_INTERVAL.
const EnvPrefix = "SINEMA"

// Timer backends.
const (
	TimerBackendOS       = "os"
	TimerBackendPortable = "portable"
)

// Config holds application configuration.
type Config struct {
	Processor ProcessorConfig `mapstructure:"processor"`
	Timer     TimerConfig     `mapstructure:"timer"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// ProcessorConfig configures the event processor.
type ProcessorConfig struct {
	Name            string `mapstructure:"name"`
	HistoryCapacity int    `mapstructure:"history_capacity"`
	LockOSThread    bool   `mapstructure:"lock_os_thread"`
}

// TimerConfig configures the demo timer.
type TimerConfig struct {
	Backend  string        `mapstructure:"backend"`
	Initial  time.Duration `mapstructure:"initial"`
	Interval time.Duration `mapstructure:"interval"`
}

// MetricsConfig configures the Prometheus exporter and HTTP endpoint.
type MetricsConfig struct {
	Namespace    string        `mapstructure:"namespace"`
	Listen       string        `mapstructure:"listen"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LogConfig configures the zerolog backend.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("processor.name", "sinema")
	v.SetDefault("processor.history_capacity", 100)
	v.SetDefault("processor.lock_os_thread", false)
	v.SetDefault("timer.backend", TimerBackendOS)
	v.SetDefault("timer.initial", time.Second)
	v.SetDefault("timer.interval", time.Second)
	v.SetDefault("metrics.namespace", "sinema")
	v.SetDefault("metrics.listen", ":9090")
	v.SetDefault("metrics.poll_interval", 5*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)
}

// Default returns the built-in configuration.
func Default() Config {
	c, err := decode(newViper())
	if err != nil {
		// Defaults always decode.
		panic(err)
	}
	return c
}

// Load reads configuration. path names an optional config file (YAML, TOML
// or JSON by extension); an empty path uses the defaults and the
// environment only. Env var overrides use prefix SINEMA_.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. With no paths it loads ./.env;
// a missing default file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Validate rejects settings the core would refuse at runtime.
func (c Config) Validate() error {
	var errs []error
	switch c.Timer.Backend {
	case TimerBackendOS, TimerBackendPortable:
	default:
		errs = append(errs, fmt.Errorf("timer.backend: unknown backend %q", c.Timer.Backend))
	}
	if c.Timer.Initial < 0 {
		errs = append(errs, fmt.Errorf("timer.initial: negative duration %s", c.Timer.Initial))
	}
	if c.Timer.Interval < 0 {
		errs = append(errs, fmt.Errorf("timer.interval: negative duration %s", c.Timer.Interval))
	}
	if c.Metrics.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("metrics.poll_interval: negative duration %s", c.Metrics.PollInterval))
	}
	if c.Processor.HistoryCapacity < 0 {
		errs = append(errs, fmt.Errorf("processor.history_capacity: negative value %d", c.Processor.HistoryCapacity))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Logger builds the zerolog-backed core logger described by c.Log.
func (c Config) Logger() core.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.Log.Console {
		zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
		return core.NewZerologLogger(zl)
	}
	return core.NewWriterLogger(os.Stderr, level)
}

// ProcessorOptions turns c.Processor into a core.ProcessorConfig using the
// given logger and metrics.
func (c Config) ProcessorOptions(logger core.Logger, metrics core.Metrics) *core.ProcessorConfig {
	cfg := core.DefaultProcessorConfig()
	cfg.Name = c.Processor.Name
	cfg.HistoryCapacity = c.Processor.HistoryCapacity
	cfg.LockOSThread = c.Processor.LockOSThread
	if logger != nil {
		cfg.Logger = logger
	}
	if metrics != nil {
		cfg.Metrics = metrics
	}
	return cfg
}

// NewTimer creates a timer on the configured backend, configured with the
// initial expiry and interval. It is not armed.
func (c Config) NewTimer() (*core.Timer, error) {
	var (
		t   *core.Timer
		err error
	)
	switch c.Timer.Backend {
	case TimerBackendPortable:
		t, err = core.NewPortableTimer()
	default:
		t, err = core.NewTimer()
	}
	if err != nil {
		return nil, err
	}
	return t.Relative(c.Timer.Initial).Periodic(c.Timer.Interval), nil
}
