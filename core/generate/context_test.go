package generate

import (
	"encoding/json"
	"testing"

	"github.com/slipway-dev/slipway/core/app"
	"github.com/slipway-dev/slipway/core/config"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestProvider struct{}

func (p *TestProvider) Plan(ctx *GenerateContext) error {
	// runtime image
	packages := ctx.GetImageStepBuilder()
	pythonRef := packages.Default("python", "3.10")
	packages.Version(pythonRef, "3.11", "test")

	// apt
	aptStep := ctx.NewAptStepBuilder("test")
	aptStep.AddAptPackage("git")
	aptStep.AddAptPackage("libpq-dev")

	// commands
	installStep := ctx.NewCommandStep("install")
	installStep.AddCommand(plan.NewCopyCommand("requirements.txt"))
	installStep.AddCommand(plan.NewExecCommand("pip install --no-cache-dir -r requirements.txt"))
	installStep.DependsOn = append(installStep.DependsOn, aptStep.Name())

	buildStep := ctx.NewCommandStep("build")
	buildStep.AddCommand(plan.NewCopyCommand("."))
	buildStep.DependsOn = []string{installStep.Name()}

	ctx.Start.Command = "python main.py"

	return nil
}

func CreateTestContext(t *testing.T, path string) *GenerateContext {
	t.Helper()

	userApp, err := app.NewApp(path)
	require.NoError(t, err)

	env := app.NewEnvironment(nil)

	ctx, err := NewGenerateContext(userApp, env)
	require.NoError(t, err)

	return ctx
}

func TestGenerateContext(t *testing.T) {
	ctx := CreateTestContext(t, "../../examples/python-pip")
	provider := &TestProvider{}
	require.NoError(t, provider.Plan(ctx))

	// User defined config
	configJSON := `{
		"packages": {
			"python": "3.12"
		},
		"aptPackages": ["curl"],
		"steps": {
			"build": {
				"commands": ["...", "echo building"]
			}
		},
		"secrets": ["DB_PASSWORD", "DB_HOST"],
		"start": {
			"variables": {
				"HELLO": "world"
			},
			"ports": ["8000"]
		}
	}`

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(configJSON), &cfg))

	require.NoError(t, ctx.ApplyConfig(&cfg))

	buildPlan, resolvedPackages, err := ctx.Generate()
	require.NoError(t, err)

	// config version wins over the provider version
	python := resolvedPackages["python"]
	require.NotNil(t, python)
	require.NotNil(t, python.ResolvedVersion)
	assert.Equal(t, "3.12.8", *python.ResolvedVersion)
	assert.Equal(t, "custom config", python.Source)

	assert.Equal(t, "python:3.12-slim", buildPlan.BaseImage)
	assert.Equal(t, "/app", buildPlan.WorkDir)

	stepNames := []string{}
	for _, step := range buildPlan.Steps {
		stepNames = append(stepNames, step.Name)
	}
	assert.Equal(t, []string{"packages", "apt:test", "install", "build", "apt:config"}, stepNames)

	// the "..." marker splices the generated commands ahead of the config ones
	buildStep := buildPlan.GetStep("build")
	require.NotNil(t, buildStep)
	require.NotNil(t, buildStep.Commands)
	require.Len(t, *buildStep.Commands, 2)
	assert.Equal(t, plan.NewCopyCommand("."), (*buildStep.Commands)[0])
	assert.Equal(t, plan.NewExecCommand("echo building"), (*buildStep.Commands)[1])
	assert.Contains(t, buildStep.DependsOn, "apt:config")

	assert.ElementsMatch(t, []string{"DB_PASSWORD", "DB_HOST"}, buildPlan.Secrets)
	assert.Equal(t, "world", buildPlan.Start.Variables["HELLO"])
	assert.Equal(t, []string{"8000"}, buildPlan.Start.Ports)
	assert.Equal(t, "python main.py", buildPlan.Start.Command)

	// apt steps carry the locked caches
	aptStep := buildPlan.GetStep("apt:test")
	require.NotNil(t, aptStep)
	require.NotNil(t, aptStep.Commands)
	exec, ok := (*aptStep.Commands)[0].(plan.ExecCommand)
	require.True(t, ok)
	assert.Contains(t, exec.Cmd, "apt-get install -y git libpq-dev")
	assert.Equal(t, []string{APT_CACHE_KEY, APT_LISTS_CACHE_KEY}, exec.Caches)
}

func TestGenerateContextSubContexts(t *testing.T) {
	ctx := CreateTestContext(t, "../../examples/python-pip")

	assert.Equal(t, "install", ctx.GetStepName("install"))

	ctx.EnterSubContext("api")
	assert.Equal(t, "install:api", ctx.GetStepName("install"))
	ctx.ExitSubContext()

	assert.Equal(t, "install", ctx.GetStepName("install"))
}

func TestGenerateContextDefaultBaseImage(t *testing.T) {
	ctx := CreateTestContext(t, "../../examples/shell-script")

	ctx.GetImageStepBuilder()
	setup := ctx.NewCommandStep("setup")
	setup.AddCommand(plan.NewExecCommand("chmod +x start.sh"))

	buildPlan, _, err := ctx.Generate()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseImage, buildPlan.BaseImage)
}
