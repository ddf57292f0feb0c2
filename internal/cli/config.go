package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/vburojevic/eruption-sensor/internal/config"
	"github.com/vburojevic/eruption-sensor/internal/output"
)

// ConfigCmd groups configuration subcommands
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"1" help:"Show the effective configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show which config file is used"`
	Generate ConfigGenerateCmd `cmd:"" help:"Print a sample configuration file"`
}

// ConfigShowCmd prints the effective configuration.
type ConfigShowCmd struct{}

// ConfigOutput is the NDJSON form of config show.
type ConfigOutput struct {
	Type          string              `json:"type"` // "config"
	SchemaVersion int                 `json:"schemaVersion"`
	File          string              `json:"file"`
	Format        string              `json:"format"`
	LogLevel      string              `json:"log_level"`
	Quiet         bool                `json:"quiet"`
	Verbose       bool                `json:"verbose"`
	Pipe          ConfigPipeOutput    `json:"pipe"`
	Sources       ConfigSourcesOutput `json:"sources"`
}

// ConfigPipeOutput mirrors config.PipeConfig.
type ConfigPipeOutput struct {
	Path         string `json:"path"`
	PollInterval string `json:"poll_interval"`
	Watch        bool   `json:"watch"`
}

// ConfigSourcesOutput mirrors config.SourcesConfig.
type ConfigSourcesOutput struct {
	WindowTracker       bool     `json:"window_tracker"`
	Accessibility       bool     `json:"accessibility"`
	AccessibilityEvents []string `json:"accessibility_events"`
	CallTimeout         string   `json:"call_timeout"`
}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteRecord(&ConfigOutput{
			Type:          "config",
			SchemaVersion: output.SchemaVersion,
			File:          cfg.File,
			Format:        cfg.Format,
			LogLevel:      cfg.LogLevel,
			Quiet:         cfg.Quiet,
			Verbose:       cfg.Verbose,
			Pipe: ConfigPipeOutput{
				Path:         cfg.Pipe.Path,
				PollInterval: cfg.Pipe.PollInterval.String(),
				Watch:        cfg.Pipe.Watch,
			},
			Sources: ConfigSourcesOutput{
				WindowTracker:       cfg.Sources.WindowTracker,
				Accessibility:       cfg.Sources.Accessibility,
				AccessibilityEvents: cfg.Sources.AccessibilityEvents,
				CallTimeout:         cfg.Sources.CallTimeout.String(),
			},
		})
	}

	file := cfg.File
	if file == "" {
		file = "(defaults)"
	}
	fmt.Fprintln(globals.Stdout, "Current Configuration:")
	fmt.Fprintf(globals.Stdout, "Config file: %s\n\n", file)

	table := tablewriter.NewWriter(globals.Stdout)
	table.Header("Key", "Value")
	rows := [][]string{
		{"format", cfg.Format},
		{"log_level", cfg.LogLevel},
		{"quiet", strconv.FormatBool(cfg.Quiet)},
		{"verbose", strconv.FormatBool(cfg.Verbose)},
		{"pipe.path", cfg.Pipe.Path},
		{"pipe.poll_interval", cfg.Pipe.PollInterval.String()},
		{"pipe.watch", strconv.FormatBool(cfg.Pipe.Watch)},
		{"sources.window_tracker", strconv.FormatBool(cfg.Sources.WindowTracker)},
		{"sources.accessibility", strconv.FormatBool(cfg.Sources.Accessibility)},
		{"sources.accessibility_events", strings.Join(cfg.Sources.AccessibilityEvents, ", ")},
		{"sources.call_timeout", cfg.Sources.CallTimeout.String()},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// ConfigPathCmd shows which config file is used.
type ConfigPathCmd struct{}

// ConfigPathOutput is the NDJSON form of config path.
type ConfigPathOutput struct {
	Type          string   `json:"type"` // "config_path"
	SchemaVersion int      `json:"schemaVersion"`
	Path          string   `json:"path"`
	SearchPaths   []string `json:"search_paths"`
	EnvVar        string   `json:"env_var"`
}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).WriteRecord(&ConfigPathOutput{
			Type:          "config_path",
			SchemaVersion: output.SchemaVersion,
			Path:          path,
			SearchPaths:   config.SearchPaths(),
			EnvVar:        config.EnvConfigFile,
		})
	}

	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found")
		fmt.Fprintln(globals.Stdout, "Searched:")
		for _, p := range config.SearchPaths() {
			fmt.Fprintf(globals.Stdout, "  %s/%s.yaml\n", p, config.Name)
		}
		fmt.Fprintf(globals.Stdout, "Set %s to use another file.\n", config.EnvConfigFile)
		return nil
	}
	fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	return nil
}

// ConfigGenerateCmd prints a sample configuration file.
type ConfigGenerateCmd struct{}

const sampleConfig = `# eruption-sensor configuration file
# Place in ./eruption-sensor.yaml, $XDG_CONFIG_HOME/eruption-sensor/eruption-sensor.yaml
# or /etc/eruption-sensor/eruption-sensor.yaml.
# Every key can be overridden with ERUPTION_SENSOR_<KEY>, e.g. ERUPTION_SENSOR_PIPE_PATH.

# Output format for commands: ndjson or text
format: ndjson

# Log level: debug, info, warn, error
log_level: info

quiet: false
verbose: false

pipe:
  # Defaults to $XDG_RUNTIME_DIR/eruption-sensor
  # path: /run/user/1000/eruption-sensor
  # How often a pending open re-checks for a reader
  poll_interval: 250ms
  # Reopen as soon as the consumer creates the pipe
  watch: true

sources:
  # GNOME Shell window tracker
  window_tracker: true
  # AT-SPI accessibility focus events
  accessibility: true
  accessibility_events:
    - object:state-changed:focused
  # Give up on a D-Bus call to a busy or hung application after this long
  call_timeout: 1s
`

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	_, err := fmt.Fprint(globals.Stdout, sampleConfig)
	return err
}
