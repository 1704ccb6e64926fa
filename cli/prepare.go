package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/slipway-dev/slipway/buildkit"
	"github.com/slipway-dev/slipway/core"
	"github.com/urfave/cli/v3"
)

var PrepareCommand = &cli.Command{
	Name:                  "prepare",
	Usage:                 "prepare the files a platform needs to build an app with the BuildKit frontend",
	ArgsUsage:             "DIRECTORY",
	EnableShellCompletion: true,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "plan-out",
			Usage: "output file for the JSON serialized build plan",
			Value: buildkit.DefaultPlanFilename,
		},
		&cli.StringFlag{
			Name:  "info-out",
			Usage: "output file for the JSON serialized build result info",
		},
	}, commonPlanFlags()...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		buildResult, _, _, err := GenerateBuildResultForCommand(cmd)
		if err != nil {
			return cli.Exit(err, 1)
		}

		core.PrettyPrintBuildResult(buildResult)

		if !buildResult.Success {
			printBuildLogs(buildResult)
			return cli.Exit("failed to generate a build plan for this app", 1)
		}

		if planOut := cmd.String("plan-out"); planOut != "" {
			if err := writeJSONFile(planOut, buildResult.Plan, "Build plan written to %s"); err != nil {
				return cli.Exit(err, 1)
			}
		}

		if infoOut := cmd.String("info-out"); infoOut != "" {
			// The info file carries everything about the result except the
			// plan itself, which lives in its own file.
			buildResult.Plan = nil
			if err := writeJSONFile(infoOut, buildResult, "Build result info written to %s"); err != nil {
				return cli.Exit(err, 1)
			}
		}

		return nil
	},
}

func writeJSONFile(path string, data interface{}, logMessage string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	serialized, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, serialized, 0644); err != nil {
		return err
	}

	log.Debugf(logMessage, path)
	return nil
}
