package cli

import (
	"context"

	"github.com/slipway-dev/slipway/dockerfile"
	"github.com/urfave/cli/v3"
)

var DockerfileCommand = &cli.Command{
	Name:                  "dockerfile",
	Usage:                 "generate a Dockerfile for a directory",
	ArgsUsage:             "DIRECTORY",
	EnableShellCompletion: true,
	Flags: append([]cli.Flag{
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

		if !buildResult.Success {
			printBuildLogs(buildResult)
			return cli.Exit("failed to generate a build plan for this app", 1)
		}

		contents, err := dockerfile.Render(buildResult.Plan)
		if err != nil {
			return cli.Exit(err, 1)
		}

		if err := writeOutput(cmd, contents); err != nil {
			return cli.Exit(err, 1)
		}

		return nil
	},
}
