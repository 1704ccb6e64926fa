package dockerfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/slipway-dev/slipway/core"
	"github.com/slipway-dev/slipway/core/app"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/stretchr/testify/require"
)

func renderExample(t *testing.T, name string) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)

	userApp, err := app.NewApp(filepath.Join(filepath.Dir(wd), "examples", name))
	require.NoError(t, err)

	env := app.NewEnvironment(nil)

	buildResult, err := core.GenerateBuildPlan(userApp, env, &core.GenerateBuildPlanOptions{})
	require.NoError(t, err)
	require.True(t, buildResult.Success)

	// The revision labels vary with the checkout these tests run from
	buildResult.Plan.Start.Labels = nil

	rendered, err := Render(buildResult.Plan)
	require.NoError(t, err)

	return rendered
}

func TestRenderExamples(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	examplesDir := filepath.Join(filepath.Dir(wd), "examples")
	entries, err := os.ReadDir(examplesDir)
	require.NoError(t, err)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		t.Run(entry.Name(), func(t *testing.T) {
			snaps.MatchSnapshot(t, renderExample(t, entry.Name()))
		})
	}
}

// requireInOrder asserts that each part appears in text after the previous one
func requireInOrder(t *testing.T, text string, parts ...string) {
	t.Helper()

	offset := 0
	for _, part := range parts {
		idx := strings.Index(text[offset:], part)
		require.GreaterOrEqual(t, idx, 0, "expected %q after position %d in:\n%s", part, offset, text)
		offset += idx + len(part)
	}
}

func TestRenderPipModule(t *testing.T) {
	rendered := renderExample(t, "python-pip-module")

	requireInOrder(t, rendered,
		"FROM python:3.10-slim",
		"WORKDIR /app",
		"ENV",
		"COPY requirements.txt requirements.txt",
		"RUN pip install --no-cache-dir -r requirements.txt",
		"COPY . .",
		"EXPOSE 8000",
		"# An orchestrator normally supplies the command a container runs with.",
		`CMD ["python","-m","app.main"]`,
	)

	require.NotContains(t, rendered, "ENTRYPOINT")
}

func TestRenderMultiStage(t *testing.T) {
	buildPlan := plan.NewBuildPlan()
	buildPlan.BaseImage = "python:3.12-slim"

	installStep := plan.NewStep("install")
	installStep.Commands = &[]plan.Command{
		plan.NewCopyCommand("."),
		plan.NewExecCommand("pip install --no-cache-dir -r requirements.txt"),
	}
	buildPlan.AddStep(*installStep)

	buildPlan.Start.BaseImage = "debian:bookworm-slim"
	buildPlan.Start.Outputs = []string{".", "/usr/local/lib/python3.12"}
	buildPlan.Start.Command = "python main.py"

	rendered, err := Render(buildPlan)
	require.NoError(t, err)

	requireInOrder(t, rendered,
		"FROM python:3.12-slim AS build",
		"WORKDIR /app",
		"COPY . .",
		"RUN pip install --no-cache-dir -r requirements.txt",
		"FROM debian:bookworm-slim",
		"WORKDIR /app",
		"COPY --from=build /app /app",
		"COPY --from=build /usr/local/lib/python3.12 /usr/local/lib/python3.12",
		`CMD ["python","main.py"]`,
	)
}

func TestRenderCacheMounts(t *testing.T) {
	buildPlan := plan.NewBuildPlan()
	buildPlan.BaseImage = "python:3.13-slim"
	buildPlan.Caches["apt"] = plan.NewLockedCache("/var/cache/apt")
	buildPlan.Caches["uv"] = plan.NewCache("/opt/uv-cache")

	step := plan.NewStep("install")
	step.Caches = []string{"apt"}
	step.Commands = &[]plan.Command{
		plan.NewExecCommand("uv sync --frozen", plan.ExecOptions{Caches: []string{"uv"}}),
	}
	buildPlan.AddStep(*step)
	buildPlan.Start.Command = "python main.py"

	rendered, err := Render(buildPlan)
	require.NoError(t, err)
	require.Contains(t, rendered,
		"RUN --mount=type=cache,id=apt,target=/var/cache/apt,sharing=locked --mount=type=cache,id=uv,target=/opt/uv-cache uv sync --frozen")
}

func TestRenderAssets(t *testing.T) {
	buildPlan := plan.NewBuildPlan()
	buildPlan.BaseImage = "debian:bookworm-slim"

	step := plan.NewStep("configure")
	step.Assets["server.conf"] = "listen 8080;\nroot /app;\n"
	step.Commands = &[]plan.Command{
		plan.NewFileCommand("/etc/server.conf", "server.conf", plan.FileOptions{Mode: 0o644}),
	}
	buildPlan.AddStep(*step)
	buildPlan.Start.Command = "sh start.sh"

	rendered, err := Render(buildPlan)
	require.NoError(t, err)
	require.Contains(t, rendered, "COPY --chmod=644 <<\"EOF\" /etc/server.conf\nlisten 8080;\nroot /app;\nEOF\n")
}

func TestRenderVariablesAndLabels(t *testing.T) {
	buildPlan := plan.NewBuildPlan()
	buildPlan.BaseImage = "python:3.10-slim"
	buildPlan.Variables = map[string]string{
		"PYTHONUNBUFFERED":        "1",
		"PIP_DEFAULT_TIMEOUT":     "100",
		"PYTHONDONTWRITEBYTECODE": "1",
	}
	buildPlan.Secrets = []string{"SLIPWAY_START_CMD"}

	step := plan.NewStep("build")
	step.Commands = &[]plan.Command{plan.NewCopyCommand(".")}
	buildPlan.AddStep(*step)

	buildPlan.Start.Command = "python main.py"
	buildPlan.Start.Labels = map[string]string{
		"org.opencontainers.image.source":   "https://github.com/acme/inventory",
		"org.opencontainers.image.revision": "0123abcd",
	}

	rendered, err := Render(buildPlan)
	require.NoError(t, err)

	require.Contains(t, rendered,
		"ENV PIP_DEFAULT_TIMEOUT=100 \\\n    PYTHONDONTWRITEBYTECODE=1 \\\n    PYTHONUNBUFFERED=1\n")
	require.Contains(t, rendered, "ARG SLIPWAY_START_CMD\n")
	require.Contains(t, rendered,
		"LABEL org.opencontainers.image.revision=0123abcd \\\n    org.opencontainers.image.source=https://github.com/acme/inventory\n")
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		name    string
		plan    func() *plan.BuildPlan
		wantErr string
	}{
		{
			name:    "no base image",
			plan:    plan.NewBuildPlan,
			wantErr: "no base image",
		},
		{
			name: "unknown dependency",
			plan: func() *plan.BuildPlan {
				p := plan.NewBuildPlan()
				p.BaseImage = "python:3.10-slim"
				step := plan.NewStep("build")
				step.DependsOn = []string{"ghost"}
				p.AddStep(*step)
				return p
			},
			wantErr: "depends on unknown step ghost",
		},
		{
			name: "undefined cache",
			plan: func() *plan.BuildPlan {
				p := plan.NewBuildPlan()
				p.BaseImage = "python:3.10-slim"
				step := plan.NewStep("install")
				step.Commands = &[]plan.Command{
					plan.NewExecCommand("pip install pip", plan.ExecOptions{Caches: []string{"pip"}}),
				}
				p.AddStep(*step)
				return p
			},
			wantErr: "mounts undefined cache pip",
		},
		{
			name: "unknown asset",
			plan: func() *plan.BuildPlan {
				p := plan.NewBuildPlan()
				p.BaseImage = "python:3.10-slim"
				step := plan.NewStep("configure")
				step.Commands = &[]plan.Command{plan.NewFileCommand("/etc/app.conf", "app.conf")}
				p.AddStep(*step)
				return p
			},
			wantErr: "unknown asset app.conf",
		},
		{
			name: "step with its own image",
			plan: func() *plan.BuildPlan {
				p := plan.NewBuildPlan()
				p.BaseImage = "python:3.10-slim"
				step := plan.NewStep("assets")
				step.StartingImage = "node:22"
				step.Commands = &[]plan.Command{plan.NewExecCommand("npm run build")}
				p.AddStep(*step)
				return p
			},
			wantErr: "starts from its own image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.plan())
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCmdInstruction(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
	}{
		{
			name:    "plain invocation",
			command: "python -m app.main",
			want:    `CMD ["python","-m","app.main"]`,
		},
		{
			name:    "quoted argument",
			command: "sh -c 'echo ready'",
			want:    `CMD ["sh","-c","echo ready"]`,
		},
		{
			name:    "command list needs a shell",
			command: "python manage.py migrate && gunicorn carsite.wsgi:application",
			want:    "CMD python manage.py migrate && gunicorn carsite.wsgi:application",
		},
		{
			name:    "redirect needs a shell",
			command: "python main.py > main.log",
			want:    "CMD python main.py > main.log",
		},
		{
			name:    "variable expansion needs a shell",
			command: "uvicorn app:app --port $PORT",
			want:    "CMD uvicorn app:app --port $PORT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, cmdInstruction(tt.command))
		})
	}
}
