package tock

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
	"github.com/hashicorp/go-multierror"
)

// Config mirrors config.yml
type Config struct {
	IntervalMS  int    `yaml:"interval_ms"`  // 10 (by default)
	BootstrapMS int    `yaml:"bootstrap_ms"` // 100 (by default), delay before the first tick
	Countdown   bool   `yaml:"countdown"`    // count down to zero instead of up
	Duration    string `yaml:"duration"`     // "MM:SS", countdown target
	LogLevel    string `yaml:"log_level"`    // debug, info, warn, error
	LogJSON     bool   `yaml:"log_json"`
	LogSource   bool   `yaml:"log_source"`   // add source file:line to log records
	TraceCSV    string `yaml:"trace_csv"`    // optional CSV event trace path
	MetricsAddr string `yaml:"metrics_addr"` // optional listen address for /metrics
}

// DefaultConfig is used when no config file is found.
func DefaultConfig() Config {
	return Config{
		IntervalMS:  10,
		BootstrapMS: 100,
		LogLevel:    "info",
	}
}

// Load reads YAML and overrides defaults; empty path or missing file = defaults only.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}

	// sanity clamps
	if cfg.IntervalMS <= 0 {
		cfg.IntervalMS = 10
	}
	if cfg.BootstrapMS <= 0 {
		cfg.BootstrapMS = 100
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate reports every problem in cfg at once.
func (c Config) Validate() error {
	var result error

	if c.IntervalMS <= 0 {
		result = multierror.Append(result, fmt.Errorf("interval_ms must be positive, got %d", c.IntervalMS))
	}
	if c.BootstrapMS <= 0 {
		result = multierror.Append(result, fmt.Errorf("bootstrap_ms must be positive, got %d", c.BootstrapMS))
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		result = multierror.Append(result, fmt.Errorf("log_level: %w", err))
	}
	if c.Countdown {
		if _, err := c.CountdownDuration(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

// Interval returns the nominal tick period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// Bootstrap returns the fixed delay before the first tick.
func (c Config) Bootstrap() time.Duration {
	return time.Duration(c.BootstrapMS) * time.Millisecond
}

// Mode returns CountDown when the countdown flag is set.
func (c Config) Mode() Mode {
	if c.Countdown {
		return CountDown
	}
	return CountUp
}

// CountdownDuration parses Duration.
func (c Config) CountdownDuration() (time.Duration, error) {
	if c.Duration == "" {
		return 0, errors.New("duration is required for a countdown")
	}
	ms, err := TimeToMS(c.Duration)
	if err != nil {
		return 0, fmt.Errorf("duration: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
