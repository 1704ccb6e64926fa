package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/slipway-dev/slipway/core/app"
	"github.com/stretchr/testify/require"
)

func TestGenerateBuildPlanForExamples(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	// Get all the examples
	examplesDir := filepath.Join(filepath.Dir(wd), "examples")
	entries, err := os.ReadDir(examplesDir)
	require.NoError(t, err)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		// For each example, generate a build plan that we can snapshot test
		t.Run(entry.Name(), func(t *testing.T) {
			examplePath := filepath.Join(examplesDir, entry.Name())

			userApp, err := app.NewApp(examplePath)
			require.NoError(t, err)

			env := app.NewEnvironment(nil)

			buildResult, err := GenerateBuildPlan(userApp, env, &GenerateBuildPlanOptions{})
			require.NoError(t, err)
			require.True(t, buildResult.Success)

			buildPlan := buildResult.Plan

			// The revision labels vary with the checkout these tests run from
			buildPlan.Start.Labels = nil

			snaps.MatchJSON(t, buildPlan)
		})
	}
}

func TestGenerateBuildPlanWithOptions(t *testing.T) {
	userApp, err := app.NewApp("../examples/python-pip")
	require.NoError(t, err)

	env := app.NewEnvironment(nil)

	buildResult, err := GenerateBuildPlan(userApp, env, &GenerateBuildPlanOptions{
		BuildCommand: "python -m compileall .",
		StartCommand: "python main.py --serve",
	})
	require.NoError(t, err)
	require.True(t, buildResult.Success)

	require.Equal(t, "python main.py --serve", buildResult.Plan.Start.Command)

	buildStep := buildResult.Plan.GetStep("build")
	require.NotNil(t, buildStep)
	require.NotNil(t, buildStep.Commands)

	cmds := *buildStep.Commands
	require.Len(t, cmds, 2)
}

func TestGenerateBuildPlanEnvOverrides(t *testing.T) {
	userApp, err := app.NewApp("../examples/python-procfile")
	require.NoError(t, err)

	envVars := map[string]string{
		"SLIPWAY_START_CMD":      "python server.py --port 9000",
		"SLIPWAY_PYTHON_VERSION": "3.12",
	}
	env := app.NewEnvironment(&envVars)

	buildResult, err := GenerateBuildPlan(userApp, env, &GenerateBuildPlanOptions{
		ErrorMissingStartCommand: true,
	})
	require.NoError(t, err)
	require.True(t, buildResult.Success)

	// The env override beats both the provider and the Procfile
	require.Equal(t, "python server.py --port 9000", buildResult.Plan.Start.Command)
	require.Equal(t, "python:3.12-slim", buildResult.Plan.BaseImage)
	require.Contains(t, buildResult.Plan.Secrets, "SLIPWAY_START_CMD")
}

func TestGenerateBuildPlanProcfileOverridesProvider(t *testing.T) {
	userApp, err := app.NewApp("../examples/python-procfile")
	require.NoError(t, err)

	env := app.NewEnvironment(nil)

	buildResult, err := GenerateBuildPlan(userApp, env, &GenerateBuildPlanOptions{
		ErrorMissingStartCommand: true,
	})
	require.NoError(t, err)
	require.True(t, buildResult.Success)

	require.Equal(t, "python server.py", buildResult.Plan.Start.Command)
	require.Equal(t, "python", buildResult.Metadata["provider"])
}

func TestGenerateBuildPlanUnknownProvider(t *testing.T) {
	userApp, err := app.NewApp("../examples/python-pip")
	require.NoError(t, err)

	envVars := map[string]string{"SLIPWAY_PROVIDER": "cobol"}
	env := app.NewEnvironment(&envVars)

	_, err = GenerateBuildPlan(userApp, env, &GenerateBuildPlanOptions{})
	require.ErrorContains(t, err, "unknown provider cobol")
}
