package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/slipway-dev/slipway/core"
	a "github.com/slipway-dev/slipway/core/app"
	"github.com/slipway-dev/slipway/core/logger"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/urfave/cli/v3"
)

func commonPlanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "env",
			Usage: "environment variables to set. format: KEY=VALUE",
		},
		&cli.StringFlag{
			Name:  "build-cmd",
			Usage: "build command to use",
		},
		&cli.StringFlag{
			Name:  "start-cmd",
			Usage: "start command to use",
		},
		&cli.StringFlag{
			Name:  "config-file",
			Usage: "config file to use instead of slipway.json",
		},
		&cli.BoolFlag{
			Name:  "error-missing-start",
			Usage: "fail the plan when no start command can be determined",
		},
	}
}

// GenerateBuildResultForCommand runs plan generation for the directory
// argument of the given command.
func GenerateBuildResultForCommand(cmd *cli.Command) (*core.BuildResult, *a.App, *a.Environment, error) {
	directory := cmd.Args().First()

	if directory == "" {
		return nil, nil, nil, cli.Exit("directory argument is required", 1)
	}

	app, err := a.NewApp(directory)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error creating app: %w", err)
	}

	log.Debugf("Generating plan for %s", app.Source)

	env, err := a.FromEnvs(cmd.StringSlice("env"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error creating env: %w", err)
	}

	generateOptions := &core.GenerateBuildPlanOptions{
		BuildCommand:             cmd.String("build-cmd"),
		StartCommand:             cmd.String("start-cmd"),
		ConfigFilePath:           cmd.String("config-file"),
		ErrorMissingStartCommand: cmd.Bool("error-missing-start"),
	}

	buildResult, err := core.GenerateBuildPlan(app, env, generateOptions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error generating build plan: %w", err)
	}

	return buildResult, app, env, nil
}

// printBuildLogs replays the messages collected during plan generation
// through the CLI logger, keeping their order.
func printBuildLogs(buildResult *core.BuildResult) {
	for _, msg := range buildResult.Logs {
		switch msg.Level {
		case logger.Error:
			log.Error(msg.Msg)
		case logger.Warn:
			log.Warn(msg.Msg)
		default:
			log.Info(msg.Msg)
		}
	}
}

// writeOutput writes contents to the --out file when one was given, stdout
// otherwise.
func writeOutput(cmd *cli.Command, contents string) error {
	output := cmd.String("out")
	if output == "" {
		os.Stdout.WriteString(contents)
		os.Stdout.WriteString("\n")
		return nil
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	if err := os.WriteFile(output, []byte(contents), 0644); err != nil {
		return err
	}

	log.Infof("Written to %s", output)
	return nil
}

// secretsFromEnv collects the values of the plan's declared secrets from the
// generation environment. Secrets without a value are left out so the build
// does not mount empty strings.
func secretsFromEnv(buildPlan *plan.BuildPlan, env *a.Environment) map[string]string {
	secrets := map[string]string{}
	for _, name := range buildPlan.Secrets {
		if value := env.GetVariable(name); value != "" {
			secrets[name] = value
		}
	}
	return secrets
}
