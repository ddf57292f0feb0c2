package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/vburojevic/eruption-sensor/internal/cli"
	"github.com/vburojevic/eruption-sensor/internal/config"
)

func main() {
	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config values become flag defaults; explicit flags still win.
	vars := kong.Vars{
		"config_format": cfg.Format,
		"config_pipe":   cfg.Pipe.Path,
	}

	ctx := kong.Parse(&c,
		kong.Name("eruption-sensor"),
		kong.Description("Forward focused-window changes on the GNOME desktop to the Eruption sensor pipe"),
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
		os.Exit(cli.ExitCode(err))
	}
}
