package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "ndjson", cfg.Format)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Empty(t, cfg.Storage.Path)
	assert.Equal(t, "5s", cfg.Recorder.ContinuationWindow)
	assert.Equal(t, "30m", cfg.Recorder.ImplausibleSpan)
	assert.Equal(t, "append", cfg.Recorder.Retention)
	assert.Equal(t, 10, cfg.Recorder.MaxIterations)
	assert.Equal(t, "modern", cfg.Recorder.Pipeline)
	assert.Equal(t, filepath.Join("Library", "Bee", "profiler.json"), cfg.Trace.Path)
	assert.Equal(t, "Csc", cfg.Trace.StepName)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		chdir(t, t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "ndjson", cfg.Format)
		assert.Equal(t, "modern", cfg.Recorder.Pipeline)
	})

	t.Run("reads project config from the current directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		chdir(t, tmpDir)
		content := `
format: text
storage:
  backend: sqlite
recorder:
  pipeline: legacy
`
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "buildtl.yaml"), []byte(content), 0o644))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "text", cfg.Format)
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
		assert.Equal(t, "legacy", cfg.Recorder.Pipeline)
		// untouched keys keep defaults
		assert.Equal(t, "5s", cfg.Recorder.ContinuationWindow)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("returns error for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0o644))

		cfg, err := LoadFromFile(configPath)
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("parses all config fields", func(t *testing.T) {
		configContent := `
format: ndjson
quiet: true
verbose: true
storage:
  backend: sqlite
  path: /tmp/session.db
recorder:
  continuation_window: 3s
  implausible_span: 1h
  clock_skew: 10ms
  retention: replace
  max_iterations: 4
  pipeline: finish-only
trace:
  path: out/trace.json
  step_name: Compile
  unit_prefix: Library/ScriptAssemblies/
  process_id: "42"
ui:
  refresh: 1s
  show_reloads: true
`
		configPath := filepath.Join(t.TempDir(), "buildtl.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)

		assert.True(t, cfg.Quiet)
		assert.True(t, cfg.Verbose)
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
		assert.Equal(t, "/tmp/session.db", cfg.Storage.Path)
		assert.Equal(t, "replace", cfg.Recorder.Retention)
		assert.Equal(t, 4, cfg.Recorder.MaxIterations)
		assert.Equal(t, "finish-only", cfg.Recorder.Pipeline)
		assert.Equal(t, "out/trace.json", cfg.Trace.Path)
		assert.Equal(t, "Compile", cfg.Trace.StepName)
		assert.Equal(t, "Library/ScriptAssemblies/", cfg.Trace.UnitPrefix)
		assert.Equal(t, "42", cfg.Trace.ProcessID)
		assert.True(t, cfg.UI.ShowReloads)

		d, err := cfg.Recorder.Durations()
		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, d.ContinuationWindow)
		assert.Equal(t, time.Hour, d.ImplausibleSpan)
		assert.Equal(t, 10*time.Millisecond, d.ClockSkew)

		refresh, err := cfg.UI.RefreshInterval()
		require.NoError(t, err)
		assert.Equal(t, time.Second, refresh)
		require.NoError(t, cfg.Validate())
	})
}

func TestConfigEnvironmentVariables(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BUILDTL_FORMAT", "text")
	t.Setenv("BUILDTL_RECORDER_MAX_ITERATIONS", "3")
	t.Setenv("BUILDTL_TRACE_STEP_NAME", "Compile")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 3, cfg.Recorder.MaxIterations)
	assert.Equal(t, "Compile", cfg.Trace.StepName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"format", func(c *Config) { c.Format = "xml" }},
		{"backend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"retention", func(c *Config) { c.Recorder.Retention = "forever" }},
		{"pipeline", func(c *Config) { c.Recorder.Pipeline = "quantum" }},
		{"max iterations", func(c *Config) { c.Recorder.MaxIterations = -1 }},
		{"duration", func(c *Config) { c.Recorder.ContinuationWindow = "soon" }},
		{"negative duration", func(c *Config) { c.Recorder.ClockSkew = "-1s" }},
		{"refresh", func(c *Config) { c.UI.Refresh = "often" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationsAllowEmpty(t *testing.T) {
	d, err := RecorderConfig{}.Durations()
	require.NoError(t, err)
	assert.Zero(t, d.ContinuationWindow)
}

func TestFindConfigFile(t *testing.T) {
	t.Run("finds buildtl.yaml in current directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		chdir(t, tmpDir)

		configPath := filepath.Join(tmpDir, "buildtl.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("format: text"), 0o644))

		found := findConfigFile()
		// Resolve symlinks for comparison (macOS /var -> /private/var)
		expectedPath, _ := filepath.EvalSymlinks(configPath)
		foundPath, _ := filepath.EvalSymlinks(found)
		assert.Equal(t, expectedPath, foundPath)
	})

	t.Run("finds .buildtlrc in current directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		chdir(t, tmpDir)

		configPath := filepath.Join(tmpDir, ".buildtlrc")
		require.NoError(t, os.WriteFile(configPath, []byte("format: text"), 0o644))

		found := findConfigFile()
		expectedPath, _ := filepath.EvalSymlinks(configPath)
		foundPath, _ := filepath.EvalSymlinks(found)
		assert.Equal(t, expectedPath, foundPath)
	})

	t.Run("prefers buildtl.yaml over .buildtl.yml", func(t *testing.T) {
		tmpDir := t.TempDir()
		chdir(t, tmpDir)

		yamlPath := filepath.Join(tmpDir, "buildtl.yaml")
		ymlPath := filepath.Join(tmpDir, ".buildtl.yml")
		require.NoError(t, os.WriteFile(yamlPath, []byte("format: yaml"), 0o644))
		require.NoError(t, os.WriteFile(ymlPath, []byte("format: yml"), 0o644))

		found := findConfigFile()
		expectedPath, _ := filepath.EvalSymlinks(yamlPath)
		foundPath, _ := filepath.EvalSymlinks(found)
		assert.Equal(t, expectedPath, foundPath)
	})

	t.Run("returns empty string when no config found", func(t *testing.T) {
		chdir(t, t.TempDir())
		assert.Empty(t, findConfigFile())
	})
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Run("overrides format from env", func(t *testing.T) {
		cfg := Default()
		t.Setenv("BUILDTL_FORMAT", "text")

		applyEnvOverrides(cfg)
		assert.Equal(t, "text", cfg.Format)
	})

	t.Run("overrides quiet from env with 1", func(t *testing.T) {
		cfg := Default()
		t.Setenv("BUILDTL_QUIET", "1")

		applyEnvOverrides(cfg)
		assert.True(t, cfg.Quiet)
	})

	t.Run("does not override quiet with other values", func(t *testing.T) {
		cfg := Default()
		t.Setenv("BUILDTL_QUIET", "yes")

		applyEnvOverrides(cfg)
		assert.False(t, cfg.Quiet)
	})

	t.Run("short aliases", func(t *testing.T) {
		cfg := Default()
		t.Setenv("BUILDTL_BACKEND", "sqlite")
		t.Setenv("BUILDTL_TRACE", "/tmp/profiler.json")
		t.Setenv("BUILDTL_PIPELINE", "legacy")

		applyEnvOverrides(cfg)
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
		assert.Equal(t, "/tmp/profiler.json", cfg.Trace.Path)
		assert.Equal(t, "legacy", cfg.Recorder.Pipeline)
	})
}

func TestTemplateMatchesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildtl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(Template), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	def := Default()
	def.Trace.Path = "Library/Bee/profiler.json"
	assert.Equal(t, def, cfg)
}
