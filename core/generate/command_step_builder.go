package generate

import (
	"maps"
	"slices"

	"github.com/slipway-dev/slipway/core/plan"
	"github.com/slipway-dev/slipway/core/utils"
)

type CommandStepBuilder struct {
	DisplayName string
	DependsOn   []string
	Commands    []plan.Command
	Outputs     *[]string
	Assets      map[string]string
	Variables   map[string]string
	Caches      []string
	Secrets     *[]string
}

func (c *GenerateContext) NewCommandStep(name string) *CommandStepBuilder {
	step := &CommandStepBuilder{
		DisplayName: c.GetStepName(name),
		DependsOn:   []string{PackagesStepName},
		Commands:    []plan.Command{},
		Assets:      map[string]string{},
		Variables:   map[string]string{},
	}

	c.Steps = append(c.Steps, step)

	return step
}

func (b *CommandStepBuilder) DependOn(name string) {
	b.DependsOn = append(b.DependsOn, name)
}

func (b *CommandStepBuilder) AddCommand(command plan.Command) {
	b.Commands = append(b.Commands, command)
}

func (b *CommandStepBuilder) AddCommands(commands []plan.Command) {
	b.Commands = append(b.Commands, commands...)
}

func (b *CommandStepBuilder) AddEnvVars(envVars map[string]string) {
	maps.Copy(b.Variables, envVars)
}

// AddPaths appends PATH commands in sorted order so generated plans are stable
func (b *CommandStepBuilder) AddPaths(paths []string) {
	for _, path := range slices.Sorted(slices.Values(paths)) {
		b.AddCommand(plan.NewPathCommand(path))
	}
}

func (b *CommandStepBuilder) Name() string {
	return b.DisplayName
}

func (b *CommandStepBuilder) Build(options *BuildStepOptions) (*plan.Step, error) {
	step := plan.NewStep(b.DisplayName)

	step.DependsOn = utils.RemoveDuplicates(b.DependsOn)
	step.Outputs = b.Outputs
	step.Assets = b.Assets
	step.Variables = b.Variables
	step.Caches = utils.RemoveDuplicates(b.Caches)

	if len(b.Commands) > 0 {
		commands := b.Commands
		step.Commands = &commands
	}

	if b.Secrets != nil {
		step.Secrets = b.Secrets
	}

	return step, nil
}
