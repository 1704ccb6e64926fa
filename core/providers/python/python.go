package python

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/slipway-dev/slipway/core/generate"
	"github.com/slipway-dev/slipway/core/images"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/slipway-dev/slipway/core/utils"
	"github.com/stretchr/objx"
)

const (
	DEFAULT_PYTHON_VERSION = "3.10"
	UV_CACHE_DIR           = "/opt/uv-cache"
	DEFAULT_SERVER_PORT    = "8000"
)

type PythonProvider struct{}

func (p *PythonProvider) Name() string {
	return "python"
}

func (p *PythonProvider) Detect(ctx *generate.GenerateContext) (bool, error) {
	hasPython := ctx.App.HasMatch("main.py") ||
		p.packageModule(ctx) != "" ||
		p.hasRequirements(ctx) ||
		p.hasPyproject(ctx) ||
		p.hasPipfile(ctx)

	return hasPython, nil
}

// Initialize fails fast on manifests that exist but cannot be read. A missing
// manifest is fine; an unreadable one would only fail later inside the build.
func (p *PythonProvider) Initialize(ctx *generate.GenerateContext) error {
	for _, manifest := range []string{"requirements.txt", "pyproject.toml", "Pipfile"} {
		if !ctx.App.HasMatch(manifest) {
			continue
		}

		if _, err := ctx.App.ReadFile(manifest); err != nil {
			return fmt.Errorf("unable to read %s: %w", manifest, err)
		}
	}

	return nil
}

func (p *PythonProvider) Plan(ctx *generate.GenerateContext) error {
	if err := p.packages(ctx); err != nil {
		return err
	}

	if err := p.install(ctx); err != nil {
		return err
	}

	if err := p.start(ctx); err != nil {
		return err
	}

	p.addMetadata(ctx)

	return nil
}

func (p *PythonProvider) StartCommandHelp() string {
	return "To start your Python application, Slipway will look for:\n\n" +
		"1. A main.py file in your project root\n\n" +
		"2. A package directory containing a main.py, which is started with `python -m <package>.main`\n\n" +
		"3. A Django project, which is started with gunicorn\n\n" +
		"You can also set the start command explicitly with the SLIPWAY_START_CMD environment variable " +
		"or a `web` entry in a Procfile"
}

func (p *PythonProvider) start(ctx *generate.GenerateContext) error {
	ctx.Start.AddOutputs([]string{"."})

	var startCommand string

	if p.isDjango(ctx) {
		startCommand = p.getDjangoStartCommand(ctx)
	}

	if startCommand == "" {
		if pkg := p.packageModule(ctx); pkg != "" {
			startCommand = fmt.Sprintf("python -m %s.main", pkg)
		} else if ctx.App.HasMatch("main.py") {
			startCommand = "python main.py"
		}
	}

	if startCommand != "" {
		ctx.Start.Command = startCommand
	}

	if p.isDjango(ctx) || p.hasServerDep(ctx) {
		ctx.Start.AddPorts([]string{DEFAULT_SERVER_PORT})
	}

	return nil
}

func (p *PythonProvider) install(ctx *generate.GenerateContext) error {
	maps.Copy(ctx.Variables, p.GetPythonEnvVars(ctx))

	pkgManager := p.packageManager(ctx)

	var install *generate.CommandStepBuilder
	if pkgManager != "" {
		install = ctx.NewCommandStep("install")
	}

	build := ctx.NewCommandStep("build")
	if install != nil {
		build.DependsOn = append(build.DependsOn, install.Name())
	}
	build.AddCommands([]plan.Command{
		plan.NewCopyCommand("."),
	})

	switch pkgManager {
	case "pip":
		install.AddCommands([]plan.Command{
			plan.NewCopyCommand("requirements.txt"),
			plan.NewExecCommand("pip install --no-cache-dir -r requirements.txt"),
		})
	case "poetry":
		install.AddCommands([]plan.Command{
			plan.NewExecCommand("pip install --no-cache-dir poetry"),
			plan.NewExecCommand("poetry config virtualenvs.create false"),
			plan.NewCopyCommand("pyproject.toml"),
			plan.NewCopyCommand("poetry.lock"),
			plan.NewExecCommand("poetry install --no-interaction --no-ansi --no-root"),
		})
	case "pdm":
		install.AddCommands([]plan.Command{
			plan.NewVariableCommand("PDM_CHECK_UPDATE", "false"),
			plan.NewExecCommand("pip install --no-cache-dir pdm"),
			plan.NewCopyCommand("pyproject.toml"),
			plan.NewCopyCommand("pdm.lock"),
			plan.NewCopyCommand("."),
			plan.NewExecCommand("pdm install --check --prod --no-editable"),
			plan.NewPathCommand("/app/.venv/bin"),
		})
	case "uv":
		install.AddCommands([]plan.Command{
			plan.NewVariableCommand("UV_COMPILE_BYTECODE", "1"),
			plan.NewVariableCommand("UV_LINK_MODE", "copy"),
			plan.NewVariableCommand("UV_CACHE_DIR", UV_CACHE_DIR),
			plan.NewExecCommand("pip install --no-cache-dir uv"),
			plan.NewCopyCommand("pyproject.toml"),
			plan.NewCopyCommand("uv.lock"),
			plan.NewExecCommand("uv sync --frozen --no-install-project --no-install-workspace --no-dev", plan.ExecOptions{
				Caches: []string{ctx.Caches.AddCache("uv", UV_CACHE_DIR)},
			}),
		})
		build.AddCommands([]plan.Command{
			plan.NewExecCommand("uv sync --frozen --no-dev", plan.ExecOptions{
				Caches: []string{ctx.Caches.AddCache("uv", UV_CACHE_DIR)},
			}),
			plan.NewPathCommand("/app/.venv/bin"),
		})
	case "pipenv":
		install.AddCommands([]plan.Command{
			plan.NewExecCommand("pip install --no-cache-dir pipenv"),
			plan.NewCopyCommand("Pipfile"),
		})

		if ctx.App.HasMatch("Pipfile.lock") {
			install.AddCommands([]plan.Command{
				plan.NewCopyCommand("Pipfile.lock"),
				plan.NewExecCommand("pipenv install --deploy --system"),
			})
		} else {
			install.AddCommands([]plan.Command{
				plan.NewExecCommand("pipenv install --skip-lock --system"),
			})
		}
	}

	aptPackages := []string{}
	for dep, requiredPkgs := range pythonDepRequirements {
		if p.usesDep(ctx, dep) {
			aptPackages = append(aptPackages, requiredPkgs...)
		}
	}

	if len(aptPackages) > 0 {
		aptStep := ctx.NewAptStepBuilder("python")
		aptStep.Packages = aptPackages

		if install != nil {
			install.DependsOn = append(install.DependsOn, aptStep.Name())
		} else {
			build.DependsOn = append(build.DependsOn, aptStep.Name())
		}
	}

	return nil
}

func (p *PythonProvider) packages(ctx *generate.GenerateContext) error {
	packages := ctx.GetImageStepBuilder()

	python := packages.Default("python", DEFAULT_PYTHON_VERSION)

	if pyprojectVersion := parseVersionFromPyproject(ctx); pyprojectVersion != "" {
		packages.Version(python, pyprojectVersion, "pyproject.toml")
	}

	if pipfileVersion := parseVersionFromPipfile(ctx); pipfileVersion != "" {
		packages.Version(python, pipfileVersion, "Pipfile")
	}

	// runtime.txt carries versions like "python-3.10.7"
	if runtimeFile, err := ctx.App.ReadFile("runtime.txt"); err == nil {
		packages.Version(python, utils.ExtractSemverVersion(runtimeFile), "runtime.txt")
	}

	if versionFile, err := ctx.App.ReadFile(".python-version"); err == nil {
		packages.Version(python, versionFile, ".python-version")
	}

	if envVersion, varName := ctx.Env.GetConfigVariable("PYTHON_VERSION"); envVersion != "" {
		packages.Version(python, envVersion, varName)
	}

	if variant, varName := ctx.Env.GetConfigVariable("PYTHON_VARIANT"); variant != "" {
		if images.IsKnownVariant(variant) {
			packages.Variant = variant
		} else {
			log.Warnf("Ignoring %s: %s is not a known image variant", varName, variant)
		}
	}

	if p.usesVcsDeps(ctx) {
		packages.AddSupportingAptPackage("git")
	}

	return nil
}

func (p *PythonProvider) GetPythonEnvVars(ctx *generate.GenerateContext) map[string]string {
	return map[string]string{
		"PYTHONFAULTHANDLER":            "1",
		"PYTHONUNBUFFERED":              "1",
		"PYTHONDONTWRITEBYTECODE":       "1",
		"PIP_DISABLE_PIP_VERSION_CHECK": "1",
		"PIP_DEFAULT_TIMEOUT":           "100",
	}
}

func (p *PythonProvider) addMetadata(ctx *generate.GenerateContext) {
	pkgManager := p.packageManager(ctx)
	if pkgManager == "" {
		pkgManager = "none"
	}

	ctx.Metadata.Set("packageManager", pkgManager)
	ctx.Metadata.SetBool("requirements", p.hasRequirements(ctx))
	ctx.Metadata.SetBool("pyproject", p.hasPyproject(ctx))
	ctx.Metadata.SetBool("pipfile", p.hasPipfile(ctx))
	ctx.Metadata.SetBool("django", p.isDjango(ctx))

	if p.usesDep(ctx, "pymysql") || p.usesDep(ctx, "mysqlclient") {
		ctx.Metadata.Set("database", "mysql")
	}

	if configVars := p.discoverConfigVariables(ctx); len(configVars) > 0 {
		ctx.Metadata.Set("configVariables", strings.Join(configVars, ", "))
	}
}

// packageManager returns the tool that installs dependencies, or an empty
// string when the app has no recognized manifest.
func (p *PythonProvider) packageManager(ctx *generate.GenerateContext) string {
	switch {
	case p.hasRequirements(ctx):
		return "pip"
	case p.hasPyproject(ctx) && p.hasPoetry(ctx):
		return "poetry"
	case p.hasPyproject(ctx) && p.hasPdm(ctx):
		return "pdm"
	case p.hasPyproject(ctx) && p.hasUv(ctx):
		return "uv"
	case p.hasPipfile(ctx):
		return "pipenv"
	}

	return ""
}

// packageModule returns the top-level package directory containing a main.py,
// preferring app/. Apps laid out this way are started with python -m.
func (p *PythonProvider) packageModule(ctx *generate.GenerateContext) string {
	if ctx.App.HasMatch("app/main.py") {
		return "app"
	}

	dirs, err := ctx.App.FindDirectories("*")
	if err != nil {
		return ""
	}

	rules := ctx.App.IgnoreRules()

	for _, dir := range dirs {
		if strings.HasPrefix(dir, ".") || rules.Excluded(dir, true) {
			continue
		}

		if ctx.App.HasMatch(dir + "/main.py") {
			return dir
		}
	}

	return ""
}

// Env var names referenced from a config.py are surfaced in the plan metadata
// so deploy tooling can prompt for them. Names only, never values.
var envLookupRegex = regexp.MustCompile(`(?:os\.environ\.get\(|os\.getenv\(|os\.environ\[)\s*["']([A-Za-z_][A-Za-z0-9_]*)["']`)

func (p *PythonProvider) discoverConfigVariables(ctx *generate.GenerateContext) []string {
	files := []string{"config.py"}
	if pkg := p.packageModule(ctx); pkg != "" {
		files = append(files, pkg+"/config.py")
	}

	names := map[string]bool{}
	for _, file := range files {
		contents, err := ctx.App.ReadFile(file)
		if err != nil {
			continue
		}

		for _, match := range envLookupRegex.FindAllStringSubmatch(contents, -1) {
			names[match[1]] = true
		}
	}

	return slices.Sorted(maps.Keys(names))
}

func (p *PythonProvider) usesDep(ctx *generate.GenerateContext, dep string) bool {
	for _, file := range []string{"requirements.txt", "pyproject.toml", "Pipfile"} {
		if contents, err := ctx.App.ReadFile(file); err == nil {
			if strings.Contains(strings.ToLower(contents), strings.ToLower(dep)) {
				return true
			}
		}
	}
	return false
}

func (p *PythonProvider) usesVcsDeps(ctx *generate.GenerateContext) bool {
	for _, file := range []string{"requirements.txt", "pyproject.toml", "Pipfile"} {
		if contents, err := ctx.App.ReadFile(file); err == nil {
			if strings.Contains(contents, "git+") {
				return true
			}
		}
	}
	return false
}

var pipfileVersionRegex = regexp.MustCompile(`(python_version|python_full_version)\s*=\s*['"]([0-9.]*)"?`)

func parseVersionFromPipfile(ctx *generate.GenerateContext) string {
	pipfile, err := ctx.App.ReadFile("Pipfile")
	if err != nil {
		return ""
	}

	matches := pipfileVersionRegex.FindStringSubmatch(pipfile)

	if len(matches) > 2 {
		return matches[2]
	}
	return ""
}

func parseVersionFromPyproject(ctx *generate.GenerateContext) string {
	var pyproject map[string]interface{}
	if err := ctx.App.ReadTOML("pyproject.toml", &pyproject); err != nil {
		return ""
	}

	project := objx.New(pyproject)

	if requiresPython := project.Get("project.requires-python").Str(); requiresPython != "" {
		return requiresPython
	}

	return project.Get("tool.poetry.dependencies.python").Str()
}

// Deps that run an HTTP or SSE server listening on the conventional port 8000.
var serverDeps = []string{"fastapi", "fastmcp", "mcp", "uvicorn"}

func (p *PythonProvider) hasServerDep(ctx *generate.GenerateContext) bool {
	for _, dep := range serverDeps {
		if p.usesDep(ctx, dep) {
			return true
		}
	}
	return false
}

func (p *PythonProvider) hasRequirements(ctx *generate.GenerateContext) bool {
	return ctx.App.HasMatch("requirements.txt")
}

func (p *PythonProvider) hasPyproject(ctx *generate.GenerateContext) bool {
	return ctx.App.HasMatch("pyproject.toml")
}

func (p *PythonProvider) hasPipfile(ctx *generate.GenerateContext) bool {
	return ctx.App.HasMatch("Pipfile")
}

func (p *PythonProvider) hasPoetry(ctx *generate.GenerateContext) bool {
	return ctx.App.HasMatch("poetry.lock")
}

func (p *PythonProvider) hasPdm(ctx *generate.GenerateContext) bool {
	return ctx.App.HasMatch("pdm.lock")
}

func (p *PythonProvider) hasUv(ctx *generate.GenerateContext) bool {
	return ctx.App.HasMatch("uv.lock")
}

// Python packages that compile against system libraries at install time and
// the apt packages they need present.
var pythonDepRequirements = map[string][]string{
	"mysqlclient": {"default-libmysqlclient-dev", "build-essential", "pkg-config"},
	"psycopg2":    {"libpq-dev", "gcc"},
	"pdf2image":   {"poppler-utils", "gcc"},
	"pydub":       {"ffmpeg", "gcc"},
}
