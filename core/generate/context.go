package generate

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	a "github.com/slipway-dev/slipway/core/app"
	"github.com/slipway-dev/slipway/core/config"
	"github.com/slipway-dev/slipway/core/images"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/slipway-dev/slipway/core/resolver"
	"github.com/slipway-dev/slipway/core/utils"
)

const (
	// Base image used when no provider requests a runtime image
	DefaultBaseImage = "debian:bookworm-slim"
)

type BuildStepOptions struct {
	ResolvedPackages map[string]*resolver.ResolvedPackage
	Caches           *CacheContext
}

type StepBuilder interface {
	Name() string
	Build(options *BuildStepOptions) (*plan.Step, error)
}

type GenerateContext struct {
	App *a.App
	Env *a.Environment

	// BaseImage overrides the resolved runtime image when set (user config)
	BaseImage string

	Variables map[string]string
	Steps     []StepBuilder
	Start     StartContext

	Caches  *CacheContext
	Secrets []string

	SubContexts []string

	Metadata *Metadata

	Resolver *resolver.Resolver

	imageStepBuilder *ImageStepBuilder
}

func NewGenerateContext(app *a.App, env *a.Environment) (*GenerateContext, error) {
	catalog := images.NewCatalog()
	if env.IsConfigVariableTruthy("REFRESH_IMAGES") {
		catalog.Refresh(images.Python)
	}

	return &GenerateContext{
		App:       app,
		Env:       env,
		Variables: map[string]string{},
		Steps:     make([]StepBuilder, 0),
		Start:     *NewStartContext(),
		Caches:    NewCacheContext(),
		Secrets:   []string{},
		Metadata:  NewMetadata(),
		Resolver:  resolver.NewResolver(catalog),
	}, nil
}

// GetImageStepBuilder returns the singleton builder for the packages step,
// which selects the runtime base image for the whole plan
func (c *GenerateContext) GetImageStepBuilder() *ImageStepBuilder {
	if c.imageStepBuilder == nil {
		c.imageStepBuilder = c.newImageStepBuilder()
	}
	return c.imageStepBuilder
}

func (c *GenerateContext) EnterSubContext(subContext string) *GenerateContext {
	c.SubContexts = append(c.SubContexts, subContext)
	return c
}

func (c *GenerateContext) ExitSubContext() *GenerateContext {
	c.SubContexts = c.SubContexts[:len(c.SubContexts)-1]
	return c
}

func (c *GenerateContext) GetStepName(name string) string {
	subContextNames := strings.Join(c.SubContexts, ":")
	if subContextNames != "" {
		return name + ":" + subContextNames
	}
	return name
}

func (c *GenerateContext) GetStepByName(name string) *StepBuilder {
	for _, step := range c.Steps {
		if step.Name() == name {
			return &step
		}
	}
	return nil
}

func (c *GenerateContext) ResolvePackages() (map[string]*resolver.ResolvedPackage, error) {
	return c.Resolver.ResolvePackages()
}

// Generate a build plan from the context
func (c *GenerateContext) Generate() (*plan.BuildPlan, map[string]*resolver.ResolvedPackage, error) {
	// Resolve all package versions into a fully qualified and valid version
	resolvedPackages, err := c.ResolvePackages()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve packages: %w", err)
	}

	buildPlan := plan.NewBuildPlan()

	buildPlan.BaseImage = c.BaseImage
	if buildPlan.BaseImage == "" && c.imageStepBuilder != nil {
		baseImage, err := c.imageStepBuilder.BaseImage(resolvedPackages)
		if err != nil {
			return nil, nil, err
		}
		buildPlan.BaseImage = baseImage
	}
	if buildPlan.BaseImage == "" {
		buildPlan.BaseImage = DefaultBaseImage
	}

	buildPlan.Variables = c.Variables

	buildStepOptions := &BuildStepOptions{
		ResolvedPackages: resolvedPackages,
		Caches:           c.Caches,
	}

	for _, stepBuilder := range c.Steps {
		step, err := stepBuilder.Build(buildStepOptions)

		if err != nil {
			return nil, nil, fmt.Errorf("failed to build step: %w", err)
		}

		buildPlan.AddStep(*step)
	}

	buildPlan.Caches = c.Caches.Caches

	buildPlan.Secrets = utils.RemoveDuplicates(c.Secrets)

	buildPlan.Start.BaseImage = c.Start.BaseImage
	buildPlan.Start.Command = c.Start.Command
	buildPlan.Start.Outputs = utils.RemoveDuplicates(c.Start.outputs)
	buildPlan.Start.Paths = utils.RemoveDuplicates(c.Start.paths)
	buildPlan.Start.Variables = c.Start.variables
	buildPlan.Start.Ports = utils.RemoveDuplicates(c.Start.ports)
	buildPlan.Start.Labels = c.Start.labels

	return buildPlan, resolvedPackages, nil
}

func (c *GenerateContext) ApplyConfig(config *config.Config) error {
	// Base image config
	if config.BaseImage != "" {
		c.BaseImage = config.BaseImage
	}

	// Runtime package config
	imageStep := c.GetImageStepBuilder()
	for _, pkg := range slices.Sorted(maps.Keys(config.Packages)) {
		version := config.Packages[pkg]
		pkgRef := imageStep.Default(pkg, version)
		imageStep.Version(pkgRef, version, "custom config")
	}

	// Apt package config
	aptStepName := ""
	if len(config.AptPackages) > 0 {
		aptStep := c.NewAptStepBuilder("config")
		aptStepName = aptStep.Name()
		aptStep.Packages = config.AptPackages
	}

	// Step config
	for _, name := range slices.Sorted(maps.Keys(config.Steps)) {
		configStep := config.Steps[name]

		var commandStepBuilder *CommandStepBuilder

		// We need to use the key as the step name and not `configStep.Name`
		if existingStep := c.GetStepByName(name); existingStep != nil {
			if csb, ok := (*existingStep).(*CommandStepBuilder); ok {
				commandStepBuilder = csb
			} else {
				log.Warnf("Step `%s` exists, but it is not a command step. Skipping...", name)
				continue
			}
		} else {
			commandStepBuilder = c.NewCommandStep(name)
		}

		// Overwrite the step with values from the config if they exist
		if len(configStep.DependsOn) > 0 {
			commandStepBuilder.DependsOn = configStep.DependsOn
		}

		if aptStepName != "" {
			commandStepBuilder.DependsOn = append(commandStepBuilder.DependsOn, aptStepName)
		}

		if configStep.Commands != nil {
			commandStepBuilder.Commands = spreadCommands(commandStepBuilder.Commands, *configStep.Commands)
		}

		if configStep.Outputs != nil {
			var generated []string
			if commandStepBuilder.Outputs != nil {
				generated = *commandStepBuilder.Outputs
			}
			merged := plan.SpreadStrings(*configStep.Outputs, generated)
			commandStepBuilder.Outputs = &merged
		}

		for k, v := range configStep.Assets {
			commandStepBuilder.Assets[k] = v
		}

		if configStep.Secrets != nil {
			commandStepBuilder.Secrets = configStep.Secrets
		}

		if len(configStep.Caches) > 0 {
			commandStepBuilder.Caches = append(commandStepBuilder.Caches, configStep.Caches...)
		}

		if configStep.Variables != nil {
			commandStepBuilder.AddEnvVars(configStep.Variables)
		}
	}

	// Cache config
	for name, cache := range config.Caches {
		c.Caches.SetCache(name, *cache)
	}

	// Secret config
	c.Secrets = append(c.Secrets, config.Secrets...)

	// Start config
	if config.Start.BaseImage != "" {
		c.Start.BaseImage = config.Start.BaseImage
	}

	if config.Start.Command != "" {
		c.Start.Command = config.Start.Command
	}

	if config.Start.Variables != nil {
		c.Start.AddEnvVars(config.Start.Variables)
	}

	c.Start.AddPaths(config.Start.Paths)
	c.Start.AddPorts(config.Start.Ports)

	for k, v := range config.Start.Labels {
		c.Start.AddLabel(k, v)
	}

	if len(config.Start.Outputs) > 0 {
		c.Start.outputs = config.Start.Outputs
	}

	return nil
}

// spreadCommands splices generated commands into a configured list where the
// config uses the "..." marker, so user config can extend instead of replace
func spreadCommands(generated, configured []plan.Command) []plan.Command {
	result := make([]plan.Command, 0, len(configured))
	for _, cmd := range configured {
		if exec, ok := cmd.(plan.ExecCommand); ok && exec.Cmd == "..." {
			result = append(result, generated...)
			continue
		}
		result = append(result, cmd)
	}
	return result
}

func (o *BuildStepOptions) NewAptInstallCommand(pkgs []string) plan.Command {
	pkgs = utils.RemoveDuplicates(pkgs)
	sort.Strings(pkgs)

	return plan.NewExecCommand("sh -c 'apt-get update && apt-get install -y "+strings.Join(pkgs, " ")+"'", plan.ExecOptions{
		CustomName: "install apt packages: " + strings.Join(pkgs, " "),
		Caches:     o.Caches.GetAptCaches(),
	})
}
