package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testAppWithFiles(t *testing.T, files map[string]string) *App {
	t.Helper()

	dir := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}

	app, err := NewApp(dir)
	require.NoError(t, err)
	return app
}

func TestIgnoreRulesDefaults(t *testing.T) {
	app := testAppWithFiles(t, map[string]string{
		"main.py": "",
	})

	rules := app.IgnoreRules()
	require.Empty(t, rules.Source)

	require.True(t, rules.Excluded(".git", true))
	require.True(t, rules.Excluded("__pycache__", true))
	require.True(t, rules.Excluded("app/util.pyc", false))
	require.True(t, rules.Excluded(".venv", true))
	require.False(t, rules.Excluded("main.py", false))
	require.False(t, rules.Excluded("app", true))
}

func TestIgnoreRulesDockerignore(t *testing.T) {
	app := testAppWithFiles(t, map[string]string{
		"main.py":       "",
		"README.md":     "docs",
		".dockerignore": "# comment\n*.md\n.env\n",
		".gitignore":    "*.py\n",
	})

	rules := app.IgnoreRules()
	require.Equal(t, ".dockerignore", rules.Source)

	require.True(t, rules.Excluded("README.md", false))
	require.True(t, rules.Excluded(".env", false))

	// .gitignore is not consulted when a .dockerignore exists
	require.False(t, rules.Excluded("main.py", false))
}

func TestIgnoreRulesGitignoreFallback(t *testing.T) {
	app := testAppWithFiles(t, map[string]string{
		"main.py":    "",
		".gitignore": "*.log\n",
	})

	rules := app.IgnoreRules()
	require.Equal(t, ".gitignore", rules.Source)

	require.True(t, rules.Excluded("debug.log", false))
	require.False(t, rules.Excluded("main.py", false))
}

func TestIgnorePatterns(t *testing.T) {
	app := testAppWithFiles(t, map[string]string{
		".dockerignore": "# only real patterns survive\n\n*.md\n  \n.env\n",
	})

	patterns := app.IgnoreRules().Patterns()
	require.Contains(t, patterns, "*.md")
	require.Contains(t, patterns, ".env")
	require.Contains(t, patterns, ".git/")
	require.NotContains(t, patterns, "")
	require.NotContains(t, patterns, "# only real patterns survive")
}

func TestContextTree(t *testing.T) {
	app := testAppWithFiles(t, map[string]string{
		"main.py":             "",
		"app/main.py":         "",
		"app/cache/deep.txt":  "",
		"__pycache__/mod.pyc": "",
		".dockerignore":       "*.md\n",
		"README.md":           "ignored",
		"node_modules/pkg.js": "",
	})

	rules := app.IgnoreRules()

	tree, err := app.ContextTree(rules, 1)
	require.NoError(t, err)

	require.Contains(t, tree, "main.py\n")
	require.Contains(t, tree, "app/\n")
	require.Contains(t, tree, "  main.py\n")
	require.Contains(t, tree, "  cache/\n")
	require.NotContains(t, tree, "deep.txt")
	require.NotContains(t, tree, "README.md")
	require.NotContains(t, tree, "__pycache__")
	require.NotContains(t, tree, "node_modules")
}
