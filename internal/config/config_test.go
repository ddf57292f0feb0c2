package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory with no user config.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	t.Setenv(EnvConfigFile, "")
	return tmpDir
}

func TestDefault(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	cfg := Default()

	require.NotNil(t, cfg)
	assert.Equal(t, "ndjson", cfg.Format)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Quiet)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "/run/user/1000/eruption-sensor", cfg.Pipe.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Pipe.PollInterval)
	assert.True(t, cfg.Pipe.Watch)
	assert.True(t, cfg.Sources.WindowTracker)
	assert.True(t, cfg.Sources.Accessibility)
	assert.Equal(t, []string{"object:state-changed:focused"}, cfg.Sources.AccessibilityEvents)
	assert.Equal(t, time.Second, cfg.Sources.CallTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("returns defaults when no config file exists", func(t *testing.T) {
		isolate(t)

		cfg, err := Load()
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "ndjson", cfg.Format)
		assert.Equal(t, "/run/user/1000/eruption-sensor", cfg.Pipe.Path)
		assert.Empty(t, cfg.File)
	})

	t.Run("reads eruption-sensor.yaml from the current directory", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "eruption-sensor.yaml"), []byte("format: text\n"), 0o644))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "text", cfg.Format)
		assert.NotEmpty(t, cfg.File)
	})

	t.Run("reads the user config directory", func(t *testing.T) {
		dir := isolate(t)
		userDir := filepath.Join(dir, "xdg", Name)
		require.NoError(t, os.MkdirAll(userDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(userDir, "eruption-sensor.yaml"), []byte("log_level: debug\n"), 0o644))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("explicit config file from environment", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pipe:\n  watch: false\n"), 0o644))
		t.Setenv(EnvConfigFile, path)

		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.Pipe.Watch)
		assert.Equal(t, path, cfg.File)
	})

	t.Run("environment overrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("ERUPTION_SENSOR_FORMAT", "text")
		t.Setenv("ERUPTION_SENSOR_PIPE_PATH", "/tmp/sensor")
		t.Setenv("ERUPTION_SENSOR_PIPE_POLL_INTERVAL", "1s")
		t.Setenv("ERUPTION_SENSOR_SOURCES_ACCESSIBILITY", "false")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "text", cfg.Format)
		assert.Equal(t, "/tmp/sensor", cfg.Pipe.Path)
		assert.Equal(t, time.Second, cfg.Pipe.PollInterval)
		assert.False(t, cfg.Sources.Accessibility)
		assert.True(t, cfg.Sources.WindowTracker)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		isolate(t)
		t.Setenv("ERUPTION_SENSOR_FORMAT", "xml")

		cfg, err := Load()
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}

func TestLoadFromFile(t *testing.T) {
	t.Run("returns error for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromFile("/nonexistent/path/config.yaml")
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "bad.yaml")
		err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("parses all config fields", func(t *testing.T) {
		tmpDir := t.TempDir()
		configContent := `
format: text
log_level: warn
quiet: true
verbose: true
pipe:
  path: /run/user/1000/eruption-sensor
  poll_interval: 500ms
  watch: false
sources:
  window_tracker: false
  accessibility: true
  accessibility_events:
    - object:state-changed:focused
    - object:state-changed:selected
  call_timeout: 300ms
`
		configPath := filepath.Join(tmpDir, "eruption-sensor.yaml")
		err := os.WriteFile(configPath, []byte(configContent), 0644)
		require.NoError(t, err)

		cfg, err := LoadFromFile(configPath)
		require.NoError(t, err)

		assert.Equal(t, "text", cfg.Format)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.True(t, cfg.Quiet)
		assert.True(t, cfg.Verbose)
		assert.Equal(t, "/run/user/1000/eruption-sensor", cfg.Pipe.Path)
		assert.Equal(t, 500*time.Millisecond, cfg.Pipe.PollInterval)
		assert.False(t, cfg.Pipe.Watch)
		assert.False(t, cfg.Sources.WindowTracker)
		assert.True(t, cfg.Sources.Accessibility)
		assert.Equal(t, []string{"object:state-changed:focused", "object:state-changed:selected"}, cfg.Sources.AccessibilityEvents)
		assert.Equal(t, 300*time.Millisecond, cfg.Sources.CallTimeout)
		assert.Equal(t, configPath, cfg.File)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"text format", func(c *Config) { c.Format = "text" }, true},
		{"unknown format", func(c *Config) { c.Format = "yaml" }, false},
		{"unknown level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"empty pipe path", func(c *Config) { c.Pipe.Path = "" }, false},
		{"zero poll interval", func(c *Config) { c.Pipe.PollInterval = 0 }, false},
		{"zero call timeout", func(c *Config) { c.Sources.CallTimeout = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestSearchPaths(t *testing.T) {
	isolate(t)
	xdg := os.Getenv("XDG_CONFIG_HOME")

	assert.Equal(t, []string{".", filepath.Join(xdg, "eruption-sensor"), "/etc/eruption-sensor"}, SearchPaths())
}

func TestFindConfigFile(t *testing.T) {
	t.Run("finds eruption-sensor.yaml in current directory", func(t *testing.T) {
		tmpDir := isolate(t)

		configPath := filepath.Join(tmpDir, "eruption-sensor.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("format: text"), 0644))

		found := findConfigFile()
		expectedPath, _ := filepath.EvalSymlinks(configPath)
		foundPath, _ := filepath.EvalSymlinks(found)
		assert.Equal(t, expectedPath, foundPath)
	})

	t.Run("prefers .yaml over .yml", func(t *testing.T) {
		tmpDir := isolate(t)

		yamlPath := filepath.Join(tmpDir, "eruption-sensor.yaml")
		ymlPath := filepath.Join(tmpDir, "eruption-sensor.yml")
		require.NoError(t, os.WriteFile(yamlPath, []byte("format: ndjson"), 0644))
		require.NoError(t, os.WriteFile(ymlPath, []byte("format: text"), 0644))

		found := findConfigFile()
		expectedPath, _ := filepath.EvalSymlinks(yamlPath)
		foundPath, _ := filepath.EvalSymlinks(found)
		assert.Equal(t, expectedPath, foundPath)
	})

	t.Run("current directory wins over user config", func(t *testing.T) {
		tmpDir := isolate(t)

		userDir := filepath.Join(tmpDir, "xdg", "eruption-sensor")
		require.NoError(t, os.MkdirAll(userDir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(userDir, "eruption-sensor.yaml"), []byte("format: text"), 0644))
		localPath := filepath.Join(tmpDir, "eruption-sensor.yaml")
		require.NoError(t, os.WriteFile(localPath, []byte("format: ndjson"), 0644))

		expectedPath, _ := filepath.EvalSymlinks(localPath)
		foundPath, _ := filepath.EvalSymlinks(findConfigFile())
		assert.Equal(t, expectedPath, foundPath)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "ndjson", cfg.Format)
	})

	t.Run("explicit file wins", func(t *testing.T) {
		isolate(t)
		t.Setenv(EnvConfigFile, "/etc/custom.yaml")
		assert.Equal(t, "/etc/custom.yaml", ConfigFile())
	})

	t.Run("returns empty string when no config found", func(t *testing.T) {
		isolate(t)
		if _, err := os.Stat("/etc/eruption-sensor/eruption-sensor.yaml"); err == nil {
			t.Skip("system config present")
		}
		assert.Empty(t, findConfigFile())
	})
}
