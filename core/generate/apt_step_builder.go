package generate

import (
	"github.com/slipway-dev/slipway/core/plan"
)

type AptStepBuilder struct {
	DisplayName string
	DependsOn   []string
	Packages    []string
}

// NewAptStepBuilder creates a step that installs system packages with apt.
// The step name is prefixed so config patches can target it predictably.
func (c *GenerateContext) NewAptStepBuilder(name string) *AptStepBuilder {
	step := &AptStepBuilder{
		DisplayName: c.GetStepName("apt:" + name),
		DependsOn:   []string{PackagesStepName},
		Packages:    []string{},
	}

	c.Steps = append(c.Steps, step)

	return step
}

func (b *AptStepBuilder) AddAptPackage(pkg string) {
	b.Packages = append(b.Packages, pkg)
}

func (b *AptStepBuilder) Name() string {
	return b.DisplayName
}

func (b *AptStepBuilder) Build(options *BuildStepOptions) (*plan.Step, error) {
	step := plan.NewStep(b.DisplayName)
	step.DependsOn = b.DependsOn
	step.Secrets = &[]string{}

	if len(b.Packages) > 0 {
		step.AddCommands([]plan.Command{
			options.NewAptInstallCommand(b.Packages),
		})
	}

	return step, nil
}
