package python

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slipway-dev/slipway/core/plan"
	testingUtils "github.com/slipway-dev/slipway/core/testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{
			name: "pip",
			path: "../../../examples/python-pip",
			want: true,
		},
		{
			name: "pip module",
			path: "../../../examples/python-pip-module",
			want: true,
		},
		{
			name: "poetry",
			path: "../../../examples/python-poetry",
			want: true,
		},
		{
			name: "uv",
			path: "../../../examples/python-uv",
			want: true,
		},
		{
			name: "pipenv",
			path: "../../../examples/python-pipenv",
			want: true,
		},
		{
			name: "django",
			path: "../../../examples/python-django",
			want: true,
		},
		{
			name: "no python",
			path: "../../../examples/shell-script",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testingUtils.CreateGenerateContext(t, tt.path)
			provider := PythonProvider{}
			got, err := provider.Detect(ctx)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStartCommands(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		startCmd string
	}{
		{
			name:     "root script",
			path:     "../../../examples/python-pip",
			startCmd: "python main.py",
		},
		{
			name:     "package module outranks root script",
			path:     "../../../examples/python-pip-module",
			startCmd: "python -m app.main",
		},
		{
			name:     "django",
			path:     "../../../examples/python-django",
			startCmd: "python manage.py migrate && gunicorn carsite.wsgi:application",
		},
		{
			name:     "no entrypoint",
			path:     "../../../examples/python-procfile",
			startCmd: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testingUtils.CreateGenerateContext(t, tt.path)
			provider := PythonProvider{}

			require.NoError(t, provider.Initialize(ctx))
			require.NoError(t, provider.Plan(ctx))

			require.Equal(t, tt.startCmd, ctx.Start.Command)
		})
	}
}

func TestInstallCommands(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		commands []plan.Command
	}{
		{
			name: "pip",
			path: "../../../examples/python-pip",
			commands: []plan.Command{
				plan.NewCopyCommand("requirements.txt"),
				plan.NewExecCommand("pip install --no-cache-dir -r requirements.txt"),
			},
		},
		{
			name: "poetry",
			path: "../../../examples/python-poetry",
			commands: []plan.Command{
				plan.NewExecCommand("pip install --no-cache-dir poetry"),
				plan.NewExecCommand("poetry config virtualenvs.create false"),
				plan.NewCopyCommand("pyproject.toml"),
				plan.NewCopyCommand("poetry.lock"),
				plan.NewExecCommand("poetry install --no-interaction --no-ansi --no-root"),
			},
		},
		{
			name: "uv",
			path: "../../../examples/python-uv",
			commands: []plan.Command{
				plan.NewVariableCommand("UV_COMPILE_BYTECODE", "1"),
				plan.NewVariableCommand("UV_LINK_MODE", "copy"),
				plan.NewVariableCommand("UV_CACHE_DIR", UV_CACHE_DIR),
				plan.NewExecCommand("pip install --no-cache-dir uv"),
				plan.NewCopyCommand("pyproject.toml"),
				plan.NewCopyCommand("uv.lock"),
				plan.NewExecCommand("uv sync --frozen --no-install-project --no-install-workspace --no-dev", plan.ExecOptions{
					Caches: []string{"uv"},
				}),
			},
		},
		{
			name: "pipenv",
			path: "../../../examples/python-pipenv",
			commands: []plan.Command{
				plan.NewExecCommand("pip install --no-cache-dir pipenv"),
				plan.NewCopyCommand("Pipfile"),
				plan.NewCopyCommand("Pipfile.lock"),
				plan.NewExecCommand("pipenv install --deploy --system"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testingUtils.CreateGenerateContext(t, tt.path)
			provider := PythonProvider{}

			require.NoError(t, provider.Initialize(ctx))
			require.NoError(t, provider.Plan(ctx))

			buildPlan, _, err := ctx.Generate()
			require.NoError(t, err)

			installStep := buildPlan.GetStep("install")
			require.NotNil(t, installStep)
			require.NotNil(t, installStep.Commands)
			require.Equal(t, tt.commands, *installStep.Commands)
		})
	}
}

func TestVersionSelection(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		version   string
		source    string
		baseImage string
	}{
		{
			name:      "python-version file",
			path:      "../../../examples/python-pip",
			version:   "3.11.11",
			source:    ".python-version",
			baseImage: "python:3.11-slim",
		},
		{
			name:      "poetry constraint",
			path:      "../../../examples/python-poetry",
			version:   "3.12.8",
			source:    "pyproject.toml",
			baseImage: "python:3.12-slim",
		},
		{
			name:      "pipfile python_version",
			path:      "../../../examples/python-pipenv",
			version:   "3.9.21",
			source:    "Pipfile",
			baseImage: "python:3.9-slim",
		},
		{
			name:      "requires-python range",
			path:      "../../../examples/python-uv",
			version:   "3.13.1",
			source:    "pyproject.toml",
			baseImage: "python:3.13-slim",
		},
		{
			name:      "default",
			path:      "../../../examples/python-pip-module",
			version:   "3.10.16",
			source:    "slipway default",
			baseImage: "python:3.10-slim",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testingUtils.CreateGenerateContext(t, tt.path)
			provider := PythonProvider{}

			require.NoError(t, provider.Initialize(ctx))
			require.NoError(t, provider.Plan(ctx))

			buildPlan, resolvedPackages, err := ctx.Generate()
			require.NoError(t, err)

			python := resolvedPackages["python"]
			require.NotNil(t, python)
			require.NotNil(t, python.ResolvedVersion)
			require.Equal(t, tt.version, *python.ResolvedVersion)
			require.Equal(t, tt.source, python.Source)
			require.Equal(t, tt.baseImage, buildPlan.BaseImage)
		})
	}
}

func TestPipModulePlan(t *testing.T) {
	ctx := testingUtils.CreateGenerateContext(t, "../../../examples/python-pip-module")
	provider := PythonProvider{}

	require.NoError(t, provider.Initialize(ctx))
	require.NoError(t, provider.Plan(ctx))

	buildPlan, _, err := ctx.Generate()
	require.NoError(t, err)

	require.Equal(t, "python:3.10-slim", buildPlan.BaseImage)
	require.Equal(t, "/app", buildPlan.WorkDir)
	require.Equal(t, "python -m app.main", buildPlan.Start.Command)
	require.Equal(t, []string{"8000"}, buildPlan.Start.Ports)
	require.Equal(t, "1", buildPlan.Variables["PYTHONUNBUFFERED"])
	require.Equal(t, "1", buildPlan.Variables["PYTHONDONTWRITEBYTECODE"])

	require.Equal(t, "pip", ctx.Metadata.Get("packageManager"))
	require.Equal(t, "mysql", ctx.Metadata.Get("database"))
	require.Equal(t, "DB_HOST, DB_NAME, DB_PASSWORD, DB_USER", ctx.Metadata.Get("configVariables"))

	// pymysql is a pure python driver, no compiled system deps
	require.Nil(t, buildPlan.GetStep("apt:python"))

	buildStep := buildPlan.GetStep("build")
	require.NotNil(t, buildStep)
	require.Contains(t, buildStep.DependsOn, "install")
}
