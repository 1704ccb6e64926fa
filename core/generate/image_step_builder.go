package generate

import (
	a "github.com/slipway-dev/slipway/core/app"
	"github.com/slipway-dev/slipway/core/images"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/slipway-dev/slipway/core/resolver"
	"github.com/slipway-dev/slipway/core/utils"
)

const (
	PackagesStepName = "packages"
)

// ImageStepBuilder produces the packages step every other step builds on.
// Instead of installing runtimes into a generic base, the requested runtime
// selects the base image itself (python:3.10-slim for a python 3.10 request).
type ImageStepBuilder struct {
	DisplayName           string
	Resolver              *resolver.Resolver
	Packages              []*resolver.PackageRef
	Variant               string
	SupportingAptPackages []string
	DependsOn             []string

	env *a.Environment
}

func (c *GenerateContext) newImageStepBuilder() *ImageStepBuilder {
	step := &ImageStepBuilder{
		DisplayName:           c.GetStepName(PackagesStepName),
		Resolver:              c.Resolver,
		Packages:              []*resolver.PackageRef{},
		Variant:               images.DefaultVariant,
		SupportingAptPackages: []string{},
		DependsOn:             []string{},
		env:                   c.Env,
	}

	c.Steps = append(c.Steps, step)

	return step
}

func (b *ImageStepBuilder) AddSupportingAptPackage(name string) {
	b.SupportingAptPackages = append(b.SupportingAptPackages, name)
}

func (b *ImageStepBuilder) Default(name string, defaultVersion string) resolver.PackageRef {
	for _, pkg := range b.Packages {
		if pkg.Name == name {
			return *pkg
		}
	}

	pkg := b.Resolver.Default(name, defaultVersion)
	b.Packages = append(b.Packages, &pkg)
	return pkg
}

func (b *ImageStepBuilder) Version(name resolver.PackageRef, version string, source string) {
	b.Resolver.Version(name, version, source)
}

func (b *ImageStepBuilder) Name() string {
	return b.DisplayName
}

// BaseImage returns the image the plan builds on. The first requested runtime
// wins; with no runtime requested the plain debian base is used.
func (b *ImageStepBuilder) BaseImage(resolvedPackages map[string]*resolver.ResolvedPackage) (string, error) {
	if len(b.Packages) == 0 {
		return DefaultBaseImage, nil
	}

	pkg := b.Packages[0]
	resolved, ok := resolvedPackages[pkg.Name]
	if !ok || resolved.ResolvedVersion == nil {
		return DefaultBaseImage, nil
	}

	requested := ""
	if resolved.RequestedVersion != nil {
		requested = *resolved.RequestedVersion
	}

	tagVersion := images.TagVersion(requested, *resolved.ResolvedVersion)
	return images.Tag(pkg.Name, tagVersion, b.Variant), nil
}

func (b *ImageStepBuilder) Build(options *BuildStepOptions) (*plan.Step, error) {
	step := plan.NewStep(b.DisplayName)
	step.DependsOn = utils.RemoveDuplicates(b.DependsOn)
	step.Secrets = &[]string{}

	if len(b.SupportingAptPackages) > 0 {
		step.AddCommands([]plan.Command{
			options.NewAptInstallCommand(b.SupportingAptPackages),
		})
	}

	return step, nil
}
