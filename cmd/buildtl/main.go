package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/buildtl/internal/cli"
	"github.com/vburojevic/buildtl/internal/config"
)

const quickStart = `buildtl - compilation timeline recorder

Quick start (call from your build hooks):
  buildtl hook compile-start
  buildtl hook unit-start Game.dll
  buildtl hook unit-finish Game.dll --diag warning:"unused variable"
  buildtl hook compile-finish
  buildtl hook before-reload && buildtl hook after-reload

Inspect:
  buildtl show --format text --bars     Bars per slot
  buildtl show --report                 Unit rows plus a report record
  buildtl ui                            Live viewer

For help:
  buildtl --help                        All commands and flags
  buildtl schema                        ndjson record schemas
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config defaults, overridden by CLI flags if specified
	vars := kong.Vars{
		"config_format": cfg.Format,
	}

	ctx := kong.Parse(&c,
		kong.Name("buildtl"),
		kong.Description("buildtl: record and render per-unit compilation timelines from build hooks"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	globals.Sync()
	if err != nil {
		var ce *cli.CommandError
		if errors.As(err, &ce) {
			os.Exit(ce.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "buildtl: %v\n", err)
		os.Exit(cli.ExitFailure)
	}
}
