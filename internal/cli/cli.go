package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/vburojevic/buildtl/internal/config"
)

// Version and Commit are set at build time
var (
	Version = "dev"
	Commit  = "none"
)

// CLI is the root command
type CLI struct {
	Format  string `short:"f" default:"${config_format}" enum:"ndjson,text" help:"Output format (ndjson or text)"`
	Quiet   bool   `short:"q" help:"Suppress non-essential output"`
	Verbose bool   `short:"v" help:"Debug logging to stderr"`
	Project string `short:"C" default:"." type:"path" help:"Project directory holding .buildtl/ and the trace artifact"`

	Hook    HookCmd    `cmd:"" help:"Record a build hook event"`
	Show    ShowCmd    `cmd:"" help:"Show the recorded timeline"`
	Ingest  IngestCmd  `cmd:"" help:"Merge a trace artifact into the current iteration"`
	Clear   ClearCmd   `cmd:"" help:"Discard the recorded history"`
	Prune   PruneCmd   `cmd:"" help:"Keep only the most recent iterations"`
	UI      UICmd      `cmd:"" help:"Live timeline viewer"`
	Schema  SchemaCmd  `cmd:"" help:"JSON Schema for ndjson output records"`
	Config  ConfigCmd  `cmd:"" help:"Show or generate configuration"`
	Version VersionCmd `cmd:"" help:"Show version and upgrade instructions"`
}

// Globals carries global flags and shared dependencies into commands
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	Project string
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
	Clock   clock.Clock

	logger *zap.Logger
}

// NewGlobalsWithConfig creates globals from parsed flags with config fallbacks
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Globals{
		Format:  c.Format,
		Quiet:   c.Quiet || cfg.Quiet,
		Verbose: c.Verbose || cfg.Verbose,
		Project: c.Project,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
		Clock:   clock.New(),
	}
	if g.Format == "" {
		g.Format = cfg.Format
	}
	if g.Project == "" {
		g.Project = "."
	}
	return g
}

// Logger returns the shared logger, building it on first use
func (g *Globals) Logger() *zap.Logger {
	if g.logger == nil {
		g.logger = newLogger(g.Verbose, g.Stderr)
	}
	return g.logger
}

// Debug logs a formatted message when verbose
func (g *Globals) Debug(format string, args ...interface{}) {
	if !g.Verbose {
		return
	}
	g.Logger().Debug(fmt.Sprintf(format, args...))
}

// Sync flushes buffered log entries
func (g *Globals) Sync() {
	if g.logger != nil {
		_ = g.logger.Sync()
	}
}
