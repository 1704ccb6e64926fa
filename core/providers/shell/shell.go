package shell

import (
	"github.com/charmbracelet/log"
	"github.com/slipway-dev/slipway/core/generate"
	"github.com/slipway-dev/slipway/core/plan"
)

const (
	StartScriptName = "start.sh"
)

type ShellProvider struct {
	scriptName string
}

func (p *ShellProvider) Name() string {
	return "shell"
}

func (p *ShellProvider) Detect(ctx *generate.GenerateContext) (bool, error) {
	return getScript(ctx) != "", nil
}

func (p *ShellProvider) Initialize(ctx *generate.GenerateContext) error {
	p.scriptName = getScript(ctx)
	return nil
}

func (p *ShellProvider) StartCommandHelp() string {
	return "To start your application with a shell script, Slipway will look for a start.sh " +
		"file in your project root. You can point at a different script with the " +
		"SLIPWAY_SHELL_SCRIPT environment variable"
}

func (p *ShellProvider) Plan(ctx *generate.GenerateContext) error {
	ctx.GetImageStepBuilder()

	build := ctx.NewCommandStep("build")
	build.AddCommands([]plan.Command{
		plan.NewCopyCommand("."),
		plan.NewExecCommand("chmod +x " + p.scriptName),
	})

	ctx.Start.Command = "sh " + p.scriptName
	ctx.Start.AddOutputs([]string{"."})

	ctx.Metadata.Set("shellScript", p.scriptName)

	return nil
}

func getScript(ctx *generate.GenerateContext) string {
	if scriptName, envVarName := ctx.Env.GetConfigVariable("SHELL_SCRIPT"); scriptName != "" {
		hasScript := ctx.App.HasMatch(scriptName)
		if hasScript {
			return scriptName
		}

		log.Warnf("%s %s script not found", envVarName, scriptName)
	}

	hasScript := ctx.App.HasMatch(StartScriptName)
	if hasScript {
		return StartScriptName
	}

	return ""
}
