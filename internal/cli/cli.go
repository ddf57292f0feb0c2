// Package cli implements the eruption-sensor command line.
package cli

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/vburojevic/eruption-sensor/internal/config"
)

// Build information, set with -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

// CLI is the kong command tree.
type CLI struct {
	Format  string `short:"f" default:"${config_format}" enum:"ndjson,text" help:"Output format (ndjson or text)"`
	Quiet   bool   `short:"q" help:"Suppress informational records and raise the log level to warn"`
	Verbose bool   `short:"v" help:"Enable debug logging"`

	Run     RunCmd     `cmd:"" default:"withargs" help:"Forward focused-window changes to the sensor pipe (default)"`
	Listen  ListenCmd  `cmd:"" help:"Read records from the sensor pipe and print them"`
	UI      UICmd      `cmd:"" name:"ui" help:"Interactive view of records read from the sensor pipe"`
	Send    SendCmd    `cmd:"" help:"Write one record to the sensor pipe"`
	Config  ConfigCmd  `cmd:"" help:"Show or generate configuration"`
	Schema  SchemaCmd  `cmd:"" help:"Print JSON Schema for the pipe record and command output"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// Globals is passed to every command's Run method.
type Globals struct {
	Format   string
	LogLevel string
	Quiet    bool
	Verbose  bool
	Stdout   io.Writer
	Stderr   io.Writer
	Config   *config.Config

	logger *zap.Logger
}

// NewGlobalsWithConfig merges parsed flags with the loaded configuration.
// Flags win; quiet and verbose are enabled by either source.
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	format := c.Format
	if format == "" {
		format = cfg.Format
	}
	return &Globals{
		Format:   format,
		LogLevel: cfg.LogLevel,
		Quiet:    c.Quiet || cfg.Quiet,
		Verbose:  c.Verbose || cfg.Verbose,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Config:   cfg,
	}
}

// Logger returns the process logger, building it on first use. A logger
// that cannot be built from the configured level falls back to info.
func (g *Globals) Logger() *zap.Logger {
	if g.logger != nil {
		return g.logger
	}
	logger, err := newLogger(g.LogLevel, g.Verbose, g.Quiet, g.Stderr)
	if err != nil {
		logger, _ = newLogger("info", g.Verbose, g.Quiet, g.Stderr)
	}
	g.logger = logger
	return g.logger
}

// Debug logs a formatted debug message.
func (g *Globals) Debug(format string, args ...interface{}) {
	g.Logger().Sugar().Debugf(format, args...)
}

// Sync flushes buffered log entries.
func (g *Globals) Sync() {
	if g.logger != nil {
		_ = g.logger.Sync()
	}
}
