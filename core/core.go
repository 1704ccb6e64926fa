package core

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/slipway-dev/slipway/core/app"
	"github.com/slipway-dev/slipway/core/generate"
	"github.com/slipway-dev/slipway/core/logger"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/slipway-dev/slipway/core/providers"
	"github.com/slipway-dev/slipway/core/providers/procfile"
	"github.com/slipway-dev/slipway/core/resolver"
	"github.com/slipway-dev/slipway/core/scm"
)

const (
	Version = "0.1.0"

	defaultConfigFileName = "slipway.json"
)

type GenerateBuildPlanOptions struct {
	BuildCommand             string
	StartCommand             string
	ConfigFilePath           string
	ErrorMissingStartCommand bool
}

type BuildResult struct {
	Plan             *plan.BuildPlan                      `json:"plan"`
	ResolvedPackages map[string]*resolver.ResolvedPackage `json:"resolvedPackages"`
	Metadata         map[string]string                    `json:"metadata"`
	Logs             []logger.Msg                         `json:"logs,omitempty"`
	Success          bool                                 `json:"success"`
}

func GenerateBuildPlan(app *app.App, env *app.Environment, options *GenerateBuildPlanOptions) (*BuildResult, error) {
	buildLogger := logger.NewLogger()

	ctx, err := generate.NewGenerateContext(app, env)
	if err != nil {
		return nil, err
	}

	config, err := GenerateConfigFromFileAndEnvironment(app, env, options)
	if err != nil {
		return nil, err
	}

	providerToUse, err := getProvider(ctx, env)
	if err != nil {
		return nil, err
	}

	if providerToUse != nil {
		if err := providerToUse.Plan(ctx); err != nil {
			return nil, fmt.Errorf("failed to run provider: %w", err)
		}

		ctx.Metadata.Set("provider", providerToUse.Name())
	}

	// A Procfile entry overrides whatever start command the provider found
	procfileProvider := &procfile.ProcfileProvider{}
	if _, err := procfileProvider.Plan(ctx); err != nil {
		return nil, fmt.Errorf("failed to read Procfile: %w", err)
	}

	if err := ctx.ApplyConfig(config); err != nil {
		return nil, fmt.Errorf("failed to apply config: %w", err)
	}

	if repoInfo := scm.Describe(app.Source); repoInfo != nil {
		ctx.Start.AddLabel("org.opencontainers.image.revision", repoInfo.Revision)
		if repoInfo.Source != "" {
			ctx.Start.AddLabel("org.opencontainers.image.source", repoInfo.Source)
		}
	}

	buildPlan, resolvedPackages, err := ctx.Generate()
	if err != nil {
		return nil, err
	}

	success := ValidatePlan(buildPlan, app, buildLogger, &ValidatePlanOptions{
		ErrorMissingStartCommand: options.ErrorMissingStartCommand,
		ProviderToUse:            providerToUse,
	})

	buildResult := &BuildResult{
		Plan:             buildPlan,
		ResolvedPackages: resolvedPackages,
		Metadata:         ctx.Metadata.Properties,
		Logs:             buildLogger.Logs,
		Success:          success,
	}

	return buildResult, nil
}

// getProvider returns the provider named by SLIPWAY_PROVIDER, or the first
// provider whose detection matches the app.
func getProvider(ctx *generate.GenerateContext, env *app.Environment) (providers.Provider, error) {
	if name, varName := env.GetConfigVariable("PROVIDER"); name != "" {
		provider := providers.GetProvider(name)
		if provider == nil {
			return nil, fmt.Errorf("%s: unknown provider %s", varName, name)
		}

		if err := provider.Initialize(ctx); err != nil {
			return nil, err
		}

		return provider, nil
	}

	for _, provider := range providers.GetLanguageProviders() {
		matched, err := provider.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to detect provider: %w", err)
		}

		if !matched {
			continue
		}

		if err := provider.Initialize(ctx); err != nil {
			return nil, err
		}

		log.Debugf("Detected %s app", provider.Name())

		return provider, nil
	}

	return nil, nil
}
