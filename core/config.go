package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/slipway-dev/slipway/core/app"
	"github.com/slipway-dev/slipway/core/config"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/slipway-dev/slipway/core/utils"
)

// GenerateConfigFromFileAndEnvironment layers the three config sources.
// The config file is the base, environment variables override it, and
// explicit options override both.
func GenerateConfigFromFileAndEnvironment(app *app.App, env *app.Environment, options *GenerateBuildPlanOptions) (*config.Config, error) {
	fileConfig, err := generateConfigFromFile(app, env, options)
	if err != nil {
		return nil, err
	}

	envConfig := GenerateConfigFromEnvironment(env)
	optionsConfig := generateConfigFromOptions(options)

	return fileConfig.Merge(envConfig).Merge(optionsConfig), nil
}

func generateConfigFromFile(app *app.App, env *app.Environment, options *GenerateBuildPlanOptions) (*config.Config, error) {
	configFileName := defaultConfigFileName
	explicit := false

	if options != nil && options.ConfigFilePath != "" {
		configFileName = options.ConfigFilePath
		explicit = true
	}

	if name, _ := env.GetConfigVariable("CONFIG_FILE"); name != "" {
		configFileName = name
		explicit = true
	}

	if !app.HasMatch(configFileName) {
		if explicit {
			return nil, fmt.Errorf("config file %s not found", configFileName)
		}
		return config.EmptyConfig(), nil
	}

	fileConfig := config.EmptyConfig()
	if err := app.ReadJSON(configFileName, fileConfig); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFileName, err)
	}

	log.Debugf("Reading config from %s", configFileName)

	return fileConfig, nil
}

// GenerateConfigFromEnvironment builds a config from SLIPWAY_* variables.
// The names of the variables consumed are recorded as secrets so builds are
// invalidated when their values change.
func GenerateConfigFromEnvironment(env *app.Environment) *config.Config {
	envConfig := config.EmptyConfig()

	if env == nil {
		return envConfig
	}

	if installCommand, varName := env.GetConfigVariable("INSTALL_CMD"); installCommand != "" {
		installStep := envConfig.GetOrCreateStep("install")
		commands := []plan.Command{
			plan.NewCopyCommand("."),
			plan.NewExecCommand(installCommand),
		}
		installStep.Commands = &commands
		envConfig.Secrets = append(envConfig.Secrets, varName)
	}

	if buildCommand, varName := env.GetConfigVariable("BUILD_CMD"); buildCommand != "" {
		buildStep := envConfig.GetOrCreateStep("build")
		commands := []plan.Command{
			plan.NewCopyCommand("."),
			plan.NewExecCommand(buildCommand),
		}
		buildStep.Commands = &commands
		envConfig.Secrets = append(envConfig.Secrets, varName)
	}

	if startCommand, varName := env.GetConfigVariable("START_CMD"); startCommand != "" {
		envConfig.Start.Command = startCommand
		envConfig.Secrets = append(envConfig.Secrets, varName)
	}

	if packages, varName := env.GetConfigVariable("PACKAGES"); packages != "" {
		envConfig.Packages = utils.ParsePackageWithVersion(strings.Split(packages, " "))
		envConfig.Secrets = append(envConfig.Secrets, varName)
	}

	if aptPackages, varName := env.GetConfigVariable("APT_PACKAGES"); aptPackages != "" {
		envConfig.AptPackages = strings.Split(aptPackages, " ")
		envConfig.Secrets = append(envConfig.Secrets, varName)
	}

	slices.Sort(envConfig.Secrets)

	return envConfig
}

func generateConfigFromOptions(options *GenerateBuildPlanOptions) *config.Config {
	optionsConfig := config.EmptyConfig()

	if options == nil {
		return optionsConfig
	}

	if options.BuildCommand != "" {
		buildStep := optionsConfig.GetOrCreateStep("build")
		commands := []plan.Command{
			plan.NewCopyCommand("."),
			plan.NewExecCommand(options.BuildCommand),
		}
		buildStep.Commands = &commands
	}

	if options.StartCommand != "" {
		optionsConfig.Start.Command = options.StartCommand
	}

	return optionsConfig
}
