package procfile

import "github.com/slipway-dev/slipway/core/generate"

// ProcfileProvider is not a language provider. It runs after one has planned
// the build and overrides the start command with the Procfile web or worker
// entry when present.
type ProcfileProvider struct{}

func (p *ProcfileProvider) Name() string {
	return "procfile"
}

func (p *ProcfileProvider) Plan(ctx *generate.GenerateContext) (bool, error) {
	if _, err := ctx.App.ReadFile("Procfile"); err != nil {
		return false, nil
	}

	parsedProcfile := map[string]string{}
	if err := ctx.App.ReadYAML("Procfile", &parsedProcfile); err != nil {
		return false, err
	}

	webCommand := parsedProcfile["web"]
	workerCommand := parsedProcfile["worker"]

	if webCommand != "" {
		ctx.Start.Command = webCommand
		return true, nil
	}

	if workerCommand != "" {
		ctx.Start.Command = workerCommand
		return true, nil
	}

	return false, nil
}
