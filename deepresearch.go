package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/deepresearch/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	// -v is taken by --verbose
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}

	app := &cli.App{
		Name:    "deepresearch",
		Usage:   "Deep research agent: a thinking supervisor model plus neural web search",
		Version: version,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load credentials from `FILE`",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "env-override",
				Usage: "Let the env file override variables already set",
			},
		}, cmd.ResearchFlags()...),
		Action: cmd.RunResearch,
		Commands: []*cli.Command{
			cmd.ResearchCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
