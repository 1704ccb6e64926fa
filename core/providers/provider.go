package providers

import (
	"github.com/slipway-dev/slipway/core/generate"
	"github.com/slipway-dev/slipway/core/providers/python"
	"github.com/slipway-dev/slipway/core/providers/shell"
)

type Provider interface {
	Name() string
	Detect(ctx *generate.GenerateContext) (bool, error)
	Initialize(ctx *generate.GenerateContext) error
	Plan(ctx *generate.GenerateContext) error
	StartCommandHelp() string
}

// GetLanguageProviders returns all language providers in detection order.
// The first provider that matches an app directory is used.
func GetLanguageProviders() []Provider {
	return []Provider{
		&python.PythonProvider{},
		&shell.ShellProvider{},
	}
}

func GetProvider(name string) Provider {
	for _, provider := range GetLanguageProviders() {
		if provider.Name() == name {
			return provider
		}
	}

	return nil
}
