package cli

import (
	"context"
	"encoding/json"

	"github.com/slipway-dev/slipway/core"
	"github.com/urfave/cli/v3"
)

var PlanCommand = &cli.Command{
	Name:                  "plan",
	Aliases:               []string{"p"},
	Usage:                 "generate a build plan for a directory",
	ArgsUsage:             "DIRECTORY",
	EnableShellCompletion: true,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "output file name",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "output format. one of: pretty, json",
			Value: "pretty",
		},
	}, commonPlanFlags()...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		buildResult, _, _, err := GenerateBuildResultForCommand(cmd)
		if err != nil {
			return cli.Exit(err, 1)
		}

		var buildResultString string
		if cmd.String("format") == "json" {
			serializedPlan, err := json.MarshalIndent(buildResult.Plan, "", "  ")
			if err != nil {
				return cli.Exit(err, 1)
			}
			buildResultString = string(serializedPlan)
		} else {
			buildResultString = core.FormatBuildResult(buildResult)
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
