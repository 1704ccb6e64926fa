package main

import (
	"context"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/slipway-dev/slipway/cli"
	urfave "github.com/urfave/cli/v3"
)

var verbose bool

func main() {
	// Pretty output adapts to the terminal's color support.
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).Profile)

	logger := log.Default()
	logger.SetTimeFormat("")
	urfaveLogWriter := logger.StandardLog(log.StandardLogOptions{
		ForceLevel: log.ErrorLevel,
	}).Writer()
	urfave.ErrWriter = urfaveLogWriter

	cmd := &urfave.Command{
		Name:                  "slipway",
		Usage:                 "Analyze apps and turn them into build plans and container images",
		EnableShellCompletion: true,
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:        "verbose",
				Aliases:     []string{"v"},
				Usage:       "Enable verbose logging",
				Value:       false,
				Destination: &verbose,
			},
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			configureLogging(verbose)

			return ctx, nil
		},
		Commands: []*urfave.Command{
			cli.PlanCommand,
			cli.InfoCommand,
			cli.DockerfileCommand,
			cli.BuildCommand,
			cli.PrepareCommand,
			cli.FrontendCommand,
			cli.SchemaCommand,
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func configureLogging(verbose bool) {
	log.SetTimeFormat("")

	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
