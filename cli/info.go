package cli

import (
	"context"
	"encoding/json"

	"github.com/slipway-dev/slipway/core"
	"github.com/urfave/cli/v3"
)

var InfoCommand = &cli.Command{
	Name:                  "info",
	Aliases:               []string{"i"},
	Usage:                 "get as much information as possible about an app",
	ArgsUsage:             "DIRECTORY",
	EnableShellCompletion: true,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Usage: "output format. one of: pretty, json",
			Value: "pretty",
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "output file name",
		},
	}, commonPlanFlags()...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		buildResult, _, _, err := GenerateBuildResultForCommand(cmd)
		if err != nil {
			return cli.Exit(err, 1)
		}

		var buildResultString string
		if cmd.String("format") == "json" {
			serializedResult, err := json.MarshalIndent(buildResult, "", "  ")
			if err != nil {
				return cli.Exit(err, 1)
			}
			buildResultString = string(serializedResult)
		} else {
			buildResultString = core.FormatBuildResult(buildResult, core.PrintOptions{
				Metadata: true,
			})
		}

		if err := writeOutput(cmd, buildResultString); err != nil {
			return cli.Exit(err, 1)
		}

		if !buildResult.Success {
			printBuildLogs(buildResult)
			return cli.Exit("", 1)
		}

		return nil
	},
}
