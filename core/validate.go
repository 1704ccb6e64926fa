package core

import (
	"fmt"

	"github.com/slipway-dev/slipway/core/app"
	"github.com/slipway-dev/slipway/core/graph"
	"github.com/slipway-dev/slipway/core/logger"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/slipway-dev/slipway/core/providers"
	"github.com/slipway-dev/slipway/core/utils"
)

type ValidatePlanOptions struct {
	ErrorMissingStartCommand bool
	ProviderToUse            providers.Provider
}

func ValidatePlan(buildPlan *plan.BuildPlan, app *app.App, logger *logger.Logger, options *ValidatePlanOptions) bool {
	if !validateCommands(buildPlan, app, logger) {
		return false
	}

	if options.ErrorMissingStartCommand && !validateStartCommand(buildPlan, logger, options.ProviderToUse) {
		return false
	}

	if !validateSteps(buildPlan, logger) {
		return false
	}

	return validateCaches(buildPlan, logger)
}

// validateCommands checks if the plan has at least one command
func validateCommands(buildPlan *plan.BuildPlan, app *app.App, logger *logger.Logger) bool {
	var atLeastOneCommand = false
	for _, step := range buildPlan.Steps {
		if step.Commands != nil && len(*step.Commands) > 0 {
			atLeastOneCommand = true
		}
	}

	if !atLeastOneCommand {
		logger.LogError("%s", getNoProviderError(app))
		return false
	}

	return true
}

// validateStartCommand checks if the plan has a start command
func validateStartCommand(buildPlan *plan.BuildPlan, logger *logger.Logger, provider providers.Provider) bool {
	if buildPlan.Start.Command == "" {
		startCmdHelp := "No start command was found."

		if provider != nil {
			if providerHelp := provider.StartCommandHelp(); providerHelp != "" {
				startCmdHelp += "\n\n" + providerHelp
			}
		}

		logger.LogError("%s", startCmdHelp)

		return false
	}

	return true
}

// validateSteps checks that every step dependency names a step in the plan
// and that the dependencies form a DAG.
func validateSteps(buildPlan *plan.BuildPlan, logger *logger.Logger) bool {
	g := graph.NewGraph()
	for i := range buildPlan.Steps {
		g.AddNode(&stepNode{step: &buildPlan.Steps[i]})
	}

	for _, step := range buildPlan.Steps {
		node, _ := g.GetNode(step.Name)

		for _, dep := range step.DependsOn {
			parent, ok := g.GetNode(dep)
			if !ok {
				logger.LogError("step %s depends on unknown step %s", step.Name, dep)
				return false
			}

			graph.Link(parent, node)
		}
	}

	if _, err := g.TopologicalOrder(); err != nil {
		logger.LogError("%s", err.Error())
		return false
	}

	return true
}

// validateCaches checks that every cache a step mounts is defined in the plan
func validateCaches(buildPlan *plan.BuildPlan, logger *logger.Logger) bool {
	for _, step := range buildPlan.Steps {
		for _, cache := range step.Caches {
			if _, ok := buildPlan.Caches[cache]; !ok {
				logger.LogError("step %s mounts undefined cache %s", step.Name, cache)
				return false
			}
		}

		if step.Commands == nil {
			continue
		}

		for _, cmd := range *step.Commands {
			execCmd, ok := cmd.(plan.ExecCommand)
			if !ok {
				continue
			}

			for _, cache := range execCmd.Caches {
				if _, ok := buildPlan.Caches[cache]; !ok {
					logger.LogError("step %s mounts undefined cache %s", step.Name, cache)
					return false
				}
			}
		}
	}

	return true
}

type stepNode struct {
	step     *plan.Step
	parents  []graph.Node
	children []graph.Node
}

func (n *stepNode) GetName() string            { return n.step.Name }
func (n *stepNode) GetParents() []graph.Node   { return n.parents }
func (n *stepNode) GetChildren() []graph.Node  { return n.children }
func (n *stepNode) SetParents(p []graph.Node)  { n.parents = p }
func (n *stepNode) SetChildren(c []graph.Node) { n.children = c }

func getNoProviderError(app *app.App) string {
	providerNames := []string{}
	for _, provider := range providers.GetLanguageProviders() {
		providerNames = append(providerNames, utils.CapitalizeFirst(provider.Name()))
	}

	rules := app.IgnoreRules()
	fileTree, err := app.ContextTree(rules, 2)
	if err != nil {
		fileTree = ""
	}

	errorMsg := "Slipway could not determine how to build the app.\n\n"
	errorMsg += "The following languages are supported:\n"
	for _, provider := range providerNames {
		errorMsg += fmt.Sprintf("- %s\n", provider)
	}

	if fileTree != "" {
		errorMsg += "\nThe app contents that Slipway analyzed:\n\n"
		errorMsg += fileTree
	}

	return errorMsg
}
