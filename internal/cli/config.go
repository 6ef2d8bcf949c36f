package cli

import (
	"fmt"

	"github.com/vburojevic/buildtl/internal/config"
	"github.com/vburojevic/buildtl/internal/output"
)

// ConfigCmd groups configuration subcommands
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"1" help:"Show the effective configuration"`
	Path     ConfigPathCmd     `cmd:"" help:"Show which config file is in use"`
	Generate ConfigGenerateCmd `cmd:"" help:"Print a commented config file with defaults"`
}

// ConfigShowCmd prints the effective configuration
type ConfigShowCmd struct{}

// ConfigOutput is the ndjson form of the effective configuration
type ConfigOutput struct {
	Type          string         `json:"type"`
	SchemaVersion int            `json:"schemaVersion"`
	File          string         `json:"file,omitempty"`
	Format        string         `json:"format"`
	Quiet         bool           `json:"quiet"`
	Verbose       bool           `json:"verbose"`
	Storage       map[string]any `json:"storage"`
	Recorder      map[string]any `json:"recorder"`
	Trace         map[string]any `json:"trace"`
	UI            map[string]any `json:"ui"`
}

// Run executes the config show command
func (c *ConfigShowCmd) Run(globals *Globals) error {
	cfg := globals.Config
	if cfg == nil {
		cfg = config.Default()
	}
	file := config.ConfigFile()

	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(ConfigOutput{
			Type:          "config",
			SchemaVersion: output.SchemaVersion,
			File:          file,
			Format:        cfg.Format,
			Quiet:         cfg.Quiet,
			Verbose:       cfg.Verbose,
			Storage: map[string]any{
				"backend": cfg.Storage.Backend,
				"path":    cfg.Storage.Path,
			},
			Recorder: map[string]any{
				"continuation_window": cfg.Recorder.ContinuationWindow,
				"implausible_span":    cfg.Recorder.ImplausibleSpan,
				"clock_skew":          cfg.Recorder.ClockSkew,
				"retention":           cfg.Recorder.Retention,
				"max_iterations":      cfg.Recorder.MaxIterations,
				"pipeline":            cfg.Recorder.Pipeline,
			},
			Trace: map[string]any{
				"path":        cfg.Trace.Path,
				"step_name":   cfg.Trace.StepName,
				"unit_prefix": cfg.Trace.UnitPrefix,
				"process_id":  cfg.Trace.ProcessID,
			},
			UI: map[string]any{
				"refresh":      cfg.UI.Refresh,
				"show_reloads": cfg.UI.ShowReloads,
			},
		})
	}

	w := globals.Stdout
	fmt.Fprintln(w, "Current Configuration:")
	if file != "" {
		fmt.Fprintf(w, "  (from %s)\n", file)
	}
	fmt.Fprintf(w, "  format: %s\n", cfg.Format)
	fmt.Fprintf(w, "  quiet: %t\n", cfg.Quiet)
	fmt.Fprintf(w, "  verbose: %t\n", cfg.Verbose)
	fmt.Fprintln(w, "  storage:")
	fmt.Fprintf(w, "    backend: %s\n", cfg.Storage.Backend)
	fmt.Fprintf(w, "    path: %s\n", cfg.Storage.Path)
	fmt.Fprintln(w, "  recorder:")
	fmt.Fprintf(w, "    continuation_window: %s\n", cfg.Recorder.ContinuationWindow)
	fmt.Fprintf(w, "    implausible_span: %s\n", cfg.Recorder.ImplausibleSpan)
	fmt.Fprintf(w, "    clock_skew: %s\n", cfg.Recorder.ClockSkew)
	fmt.Fprintf(w, "    retention: %s\n", cfg.Recorder.Retention)
	fmt.Fprintf(w, "    max_iterations: %d\n", cfg.Recorder.MaxIterations)
	fmt.Fprintf(w, "    pipeline: %s\n", cfg.Recorder.Pipeline)
	fmt.Fprintln(w, "  trace:")
	fmt.Fprintf(w, "    path: %s\n", cfg.Trace.Path)
	fmt.Fprintf(w, "    step_name: %s\n", cfg.Trace.StepName)
	fmt.Fprintf(w, "    unit_prefix: %s\n", cfg.Trace.UnitPrefix)
	fmt.Fprintf(w, "    process_id: %s\n", cfg.Trace.ProcessID)
	fmt.Fprintln(w, "  ui:")
	fmt.Fprintf(w, "    refresh: %s\n", cfg.UI.Refresh)
	fmt.Fprintf(w, "    show_reloads: %t\n", cfg.UI.ShowReloads)
	return nil
}

// ConfigPathCmd prints the config file in use
type ConfigPathCmd struct{}

// ConfigPathOutput is the ndjson form of config path
type ConfigPathOutput struct {
	Type          string `json:"type"`
	SchemaVersion int    `json:"schemaVersion"`
	Path          string `json:"path"`
	Found         bool   `json:"found"`
}

// Run executes the config path command
func (c *ConfigPathCmd) Run(globals *Globals) error {
	path := config.ConfigFile()
	if globals.Format == "ndjson" {
		return output.NewNDJSONWriter(globals.Stdout).Write(ConfigPathOutput{
			Type:          "config_path",
			SchemaVersion: output.SchemaVersion,
			Path:          path,
			Found:         path != "",
		})
	}
	if path == "" {
		fmt.Fprintln(globals.Stdout, "No configuration file found")
		fmt.Fprintln(globals.Stdout, "Searched: ./buildtl.yaml, ./.buildtl.yaml, ./.buildtl.yml, ./.buildtlrc, /etc/buildtl/, user config dir, home")
		return nil
	}
	fmt.Fprintf(globals.Stdout, "Config file: %s\n", path)
	return nil
}

// ConfigGenerateCmd prints a config template
type ConfigGenerateCmd struct{}

// Run executes the config generate command
func (c *ConfigGenerateCmd) Run(globals *Globals) error {
	_, err := fmt.Fprint(globals.Stdout, config.Template)
	return err
}
