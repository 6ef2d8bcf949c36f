package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Quiet   bool   `mapstructure:"quiet"`
	Verbose bool   `mapstructure:"verbose"`

	Storage  StorageConfig  `mapstructure:"storage"`
	Recorder RecorderConfig `mapstructure:"recorder"`
	Trace    TraceConfig    `mapstructure:"trace"`
	UI       UIConfig       `mapstructure:"ui"`
}

// StorageConfig selects where the session is persisted
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // file or sqlite
	Path    string `mapstructure:"path"`    // empty means .buildtl/ under the project dir
}

// RecorderConfig tunes iteration classification and sanity guards.
// Durations are Go duration strings.
type RecorderConfig struct {
	ContinuationWindow string `mapstructure:"continuation_window"`
	ImplausibleSpan    string `mapstructure:"implausible_span"`
	ClockSkew          string `mapstructure:"clock_skew"`
	Retention          string `mapstructure:"retention"`
	MaxIterations      int    `mapstructure:"max_iterations"`
	Pipeline           string `mapstructure:"pipeline"`
}

// TraceConfig locates and parses the build trace artifact
type TraceConfig struct {
	Path       string `mapstructure:"path"` // relative paths resolve against the project dir
	StepName   string `mapstructure:"step_name"`
	UnitPrefix string `mapstructure:"unit_prefix"`
	ProcessID  string `mapstructure:"process_id"`
}

// UIConfig holds live viewer settings
type UIConfig struct {
	Refresh     string `mapstructure:"refresh"`
	ShowReloads bool   `mapstructure:"show_reloads"`
}

// Durations are the parsed recorder durations
type Durations struct {
	ContinuationWindow time.Duration
	ImplausibleSpan    time.Duration
	ClockSkew          time.Duration
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Format:  "ndjson",
		Quiet:   false,
		Verbose: false,
		Storage: StorageConfig{
			Backend: "file",
		},
		Recorder: RecorderConfig{
			ContinuationWindow: "5s",
			ImplausibleSpan:    "30m",
			ClockSkew:          "50ms",
			Retention:          "append",
			MaxIterations:      10,
			Pipeline:           "modern",
		},
		Trace: TraceConfig{
			Path:     filepath.Join("Library", "Bee", "profiler.json"),
			StepName: "Csc",
		},
		UI: UIConfig{
			Refresh: "500ms",
		},
	}
}

// Durations parses the recorder duration strings
func (c RecorderConfig) Durations() (Durations, error) {
	var d Durations
	var err error
	if d.ContinuationWindow, err = parseDuration("recorder.continuation_window", c.ContinuationWindow); err != nil {
		return d, err
	}
	if d.ImplausibleSpan, err = parseDuration("recorder.implausible_span", c.ImplausibleSpan); err != nil {
		return d, err
	}
	if d.ClockSkew, err = parseDuration("recorder.clock_skew", c.ClockSkew); err != nil {
		return d, err
	}
	return d, nil
}

// RefreshInterval parses ui.refresh
func (c UIConfig) RefreshInterval() (time.Duration, error) {
	return parseDuration("ui.refresh", c.Refresh)
}

func parseDuration(key, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, value)
	}
	return d, nil
}

// Validate checks enumerated values and durations
func (c *Config) Validate() error {
	switch c.Format {
	case "ndjson", "text":
	default:
		return fmt.Errorf("invalid format %q (want ndjson or text)", c.Format)
	}
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("invalid storage.backend %q (want file or sqlite)", c.Storage.Backend)
	}
	switch c.Recorder.Retention {
	case "append", "replace":
	default:
		return fmt.Errorf("invalid recorder.retention %q (want append or replace)", c.Recorder.Retention)
	}
	switch c.Recorder.Pipeline {
	case "modern", "legacy", "finish-only":
	default:
		return fmt.Errorf("invalid recorder.pipeline %q (want modern, legacy or finish-only)", c.Recorder.Pipeline)
	}
	if c.Recorder.MaxIterations < 0 {
		return fmt.Errorf("invalid recorder.max_iterations %d: must not be negative", c.Recorder.MaxIterations)
	}
	if _, err := c.Recorder.Durations(); err != nil {
		return err
	}
	_, err := c.UI.RefreshInterval()
	return err
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("format", cfg.Format)
	v.SetDefault("quiet", cfg.Quiet)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("recorder.continuation_window", cfg.Recorder.ContinuationWindow)
	v.SetDefault("recorder.implausible_span", cfg.Recorder.ImplausibleSpan)
	v.SetDefault("recorder.clock_skew", cfg.Recorder.ClockSkew)
	v.SetDefault("recorder.retention", cfg.Recorder.Retention)
	v.SetDefault("recorder.max_iterations", cfg.Recorder.MaxIterations)
	v.SetDefault("recorder.pipeline", cfg.Recorder.Pipeline)
	v.SetDefault("trace.path", cfg.Trace.Path)
	v.SetDefault("trace.step_name", cfg.Trace.StepName)
	v.SetDefault("trace.unit_prefix", cfg.Trace.UnitPrefix)
	v.SetDefault("trace.process_id", cfg.Trace.ProcessID)
	v.SetDefault("ui.refresh", cfg.UI.Refresh)
	v.SetDefault("ui.show_reloads", cfg.UI.ShowReloads)
}

// Load loads configuration from files and environment
func Load() (*Config, error) {
	v := viper.New()

	// A config file in the current directory wins over the search path
	if found := findConfigFile(); found != "" {
		v.SetConfigFile(found)
		v.SetConfigType("yaml")
	} else {
		v.SetConfigName("buildtl")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/buildtl/")
		if configDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(configDir, "buildtl"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	// Environment variables: BUILDTL_RECORDER_PIPELINE -> recorder.pipeline
	v.SetEnvPrefix("BUILDTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFile returns the path to the config file Load would read, or ""
func ConfigFile() string {
	if found := findConfigFile(); found != "" {
		return found
	}

	v := viper.New()
	v.SetConfigName("buildtl")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/buildtl/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "buildtl"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err == nil {
		return v.ConfigFileUsed()
	}
	return ""
}

// findConfigFile looks for a project config in the current directory
func findConfigFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"buildtl.yaml", ".buildtl.yaml", ".buildtl.yml", ".buildtlrc"} {
		path := filepath.Join(cwd, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// applyEnvOverrides applies the short environment aliases on top of the
// loaded config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BUILDTL_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("BUILDTL_QUIET"); v == "true" || v == "1" {
		cfg.Quiet = true
	}
	if v := os.Getenv("BUILDTL_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("BUILDTL_TRACE"); v != "" {
		cfg.Trace.Path = v
	}
	if v := os.Getenv("BUILDTL_PIPELINE"); v != "" {
		cfg.Recorder.Pipeline = v
	}
}

// Template is a commented config file with every key at its default
const Template = `# buildtl configuration
format: ndjson          # ndjson or text
quiet: false
verbose: false

storage:
  backend: file         # file or sqlite
  path: ""              # default: .buildtl/session.json (or session.db)

recorder:
  continuation_window: 5s
  implausible_span: 30m
  clock_skew: 50ms
  retention: append     # append or replace
  max_iterations: 10
  pipeline: modern      # modern, legacy or finish-only

trace:
  path: Library/Bee/profiler.json
  step_name: Csc
  unit_prefix: ""
  process_id: ""

ui:
  refresh: 500ms
  show_reloads: false
`
