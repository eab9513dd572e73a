package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmal/impact/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the JSON configuration file.
	ConfigFileName = "impact.json"

	// YAMLConfigFileName is the name of the YAML configuration file.
	YAMLConfigFileName = "impact.yaml"

	// DefaultAddr is the default devtools listen address.
	DefaultAddr = "localhost:7070"

	// DefaultEventBuffer is the default number of events kept by devtools.
	DefaultEventBuffer = 512

	// DefaultMaxRunsPerFlush is the default run budget of one flush pass.
	DefaultMaxRunsPerFlush = 10000

	// DefaultTick is the default interval of the serve demo.
	DefaultTick = "1s"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "impact"
)

// Config represents the complete impact.json / impact.yaml configuration.
type Config struct {
	// Name identifies the process in logs and traces.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// LogLevel is one of debug, info, warn, error (default: info).
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`

	// Runtime contains reactive runtime settings.
	Runtime RuntimeConfig `json:"runtime,omitempty" yaml:"runtime,omitempty"`

	// Devtools contains inspector server settings.
	Devtools DevtoolsConfig `json:"devtools,omitempty" yaml:"devtools,omitempty"`

	// Metrics contains Prometheus settings.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Tracing contains OpenTelemetry settings.
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RuntimeConfig contains reactive runtime settings.
type RuntimeConfig struct {
	// MaxRunsPerFlush bounds effect runs in one flush pass.
	MaxRunsPerFlush int `json:"maxRunsPerFlush,omitempty" yaml:"maxRunsPerFlush,omitempty"`

	// CheckGoroutine panics when the runtime is used from another goroutine.
	CheckGoroutine bool `json:"checkGoroutine,omitempty" yaml:"checkGoroutine,omitempty"`

	// Tick is the interval between demo writes in serve (e.g., "500ms").
	Tick string `json:"tick,omitempty" yaml:"tick,omitempty"`
}

// DevtoolsConfig contains inspector server settings.
type DevtoolsConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// EventBuffer is the number of recent events kept.
	EventBuffer int `json:"eventBuffer,omitempty" yaml:"eventBuffer,omitempty"`

	// AllowedOrigins lists websocket origins accepted besides same-origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled turns on Prometheus instrumentation and /metrics.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Namespace is the metrics namespace.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled turns on span creation through the global tracer provider.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// TracerName is the tracer name (default: Config.Name or "impact").
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Name:     "impact",
		LogLevel: "info",
		Runtime: RuntimeConfig{
			MaxRunsPerFlush: DefaultMaxRunsPerFlush,
			Tick:            DefaultTick,
		},
		Devtools: DevtoolsConfig{
			Addr:        DefaultAddr,
			EventBuffer: DefaultEventBuffer,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
	}
}

// Load loads configuration from the given directory. impact.json takes
// precedence over impact.yaml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName, "impact.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E100").
		WithDetail("No impact.json or impact.yaml found in " + dir).
		WithSuggestion("Create impact.json, or run without --config to use defaults")
}

// LoadFile loads configuration from a specific file. The format is chosen
// by extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No configuration file at " + path).
				Wrap(err)
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E101").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E101").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	default:
		return nil, errors.New("E103").WithDetail("Unsupported extension " + ext)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to the path it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo saves the configuration to the specified path, as YAML when the
// extension is .yaml or .yml and as JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E101").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E101").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return "."
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "impact"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Runtime.MaxRunsPerFlush == 0 {
		c.Runtime.MaxRunsPerFlush = DefaultMaxRunsPerFlush
	}
	if c.Runtime.Tick == "" {
		c.Runtime.Tick = DefaultTick
	}
	if c.Devtools.Addr == "" {
		c.Devtools.Addr = DefaultAddr
	}
	if c.Devtools.EventBuffer == 0 {
		c.Devtools.EventBuffer = DefaultEventBuffer
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = c.Name
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return errors.New("E102").
			WithDetail(err.Error()).
			WithSuggestion("Use one of debug, info, warn, error")
	}
	if c.Runtime.MaxRunsPerFlush < 0 {
		return errors.New("E102").
			WithDetail(fmt.Sprintf("runtime.maxRunsPerFlush must be positive, got %d", c.Runtime.MaxRunsPerFlush))
	}
	if d, err := time.ParseDuration(c.Runtime.Tick); err != nil || d <= 0 {
		return errors.New("E102").
			WithDetail(fmt.Sprintf("runtime.tick must be a positive duration, got %q", c.Runtime.Tick)).
			WithSuggestion(`Use a Go duration such as "500ms" or "2s"`)
	}
	if c.Devtools.EventBuffer < 0 {
		return errors.New("E102").
			WithDetail(fmt.Sprintf("devtools.eventBuffer must be positive, got %d", c.Devtools.EventBuffer))
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// TickInterval returns the serve demo interval.
func (c *Config) TickInterval() time.Duration {
	d, err := time.ParseDuration(c.Runtime.Tick)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTick)
	}
	return d
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid logLevel %q", s)
	}
	return level, nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName, "impact.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No impact.json or impact.yaml found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
