package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/vburojevic/eruption-sensor/internal/pipe"
	"github.com/vburojevic/eruption-sensor/internal/source"
)

const (
	// Name is the config file base name (eruption-sensor.yaml).
	Name = "eruption-sensor"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ERUPTION_SENSOR"
	// EnvConfigFile names an explicit config file.
	EnvConfigFile = EnvPrefix + "_CONFIG"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format   string `mapstructure:"format"`
	LogLevel string `mapstructure:"log_level"`
	Quiet    bool   `mapstructure:"quiet"`
	Verbose  bool   `mapstructure:"verbose"`

	Pipe    PipeConfig    `mapstructure:"pipe"`
	Sources SourcesConfig `mapstructure:"sources"`

	// File is the config file that was read, empty when running on defaults.
	File string `mapstructure:"-"`
}

// PipeConfig controls the sensor pipe.
type PipeConfig struct {
	Path         string        `mapstructure:"path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Watch        bool          `mapstructure:"watch"`
}

// SourcesConfig selects the focus sources. It is read once per enable.
type SourcesConfig struct {
	WindowTracker       bool     `mapstructure:"window_tracker"`
	Accessibility       bool     `mapstructure:"accessibility"`
	AccessibilityEvents []string `mapstructure:"accessibility_events"`
	// CallTimeout bounds each D-Bus method call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format:   "ndjson",
		LogLevel: "info",
		Quiet:    false,
		Verbose:  false,
		Pipe: PipeConfig{
			Path:         pipe.DefaultPath(),
			PollInterval: pipe.DefaultPollInterval,
			Watch:        true,
		},
		Sources: SourcesConfig{
			WindowTracker:       true,
			Accessibility:       true,
			AccessibilityEvents: append([]string(nil), source.DefaultAccessibilityEvents...),
			CallTimeout:         source.DefaultCallTimeout,
		},
	}
}

// SearchPaths returns the directories searched for eruption-sensor.yaml,
// most specific first. The first file found wins.
func SearchPaths() []string {
	paths := []string{"."}
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, Name))
	}
	return append(paths, filepath.Join("/etc", Name))
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := newViper()

	if explicit := os.Getenv(EnvConfigFile); explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}
	}

	// Try to read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile loads configuration from a specific file. Environment
// overrides still apply.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

// ConfigFile returns the path of the config file Load would read, or an
// empty string when there is none.
func ConfigFile() string {
	return findConfigFile()
}

func findConfigFile() string {
	if explicit := os.Getenv(EnvConfigFile); explicit != "" {
		return explicit
	}
	for _, dir := range SearchPaths() {
		for _, ext := range []string{".yaml", ".yml"} {
			candidate := filepath.Join(dir, Name+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				if abs, err := filepath.Abs(candidate); err == nil {
					return abs
				}
				return candidate
			}
		}
	}
	return ""
}

func newViper() *viper.Viper {
	v := viper.New()

	// ERUPTION_SENSOR_PIPE_PATH overrides pipe.path, and so on.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := Default()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("pipe.path", cfg.Pipe.Path)
	v.SetDefault("pipe.poll_interval", cfg.Pipe.PollInterval)
	v.SetDefault("pipe.watch", cfg.Pipe.Watch)
	v.SetDefault("sources.window_tracker", cfg.Sources.WindowTracker)
	v.SetDefault("sources.accessibility", cfg.Sources.Accessibility)
	v.SetDefault("sources.accessibility_events", cfg.Sources.AccessibilityEvents)
	v.SetDefault("sources.call_timeout", cfg.Sources.CallTimeout)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Format {
	case "ndjson", "text":
	default:
		return fmt.Errorf("invalid format %q: must be ndjson or text", c.Format)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	if c.Pipe.Path == "" {
		return errors.New("pipe.path must not be empty")
	}
	if c.Pipe.PollInterval <= 0 {
		return fmt.Errorf("pipe.poll_interval must be positive, got %s", c.Pipe.PollInterval)
	}
	if c.Sources.CallTimeout <= 0 {
		return fmt.Errorf("sources.call_timeout must be positive, got %s", c.Sources.CallTimeout)
	}
	return nil
}
