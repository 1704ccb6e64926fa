package app

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnorePatterns are always excluded from the build context
var DefaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"__pycache__/",
	"*.pyc",
	".venv/",
	"venv/",
	".DS_Store",
}

// ContextRules decide which files from the app directory belong in the build
// context. User patterns follow gitignore syntax.
type ContextRules struct {
	matcher  *ignore.GitIgnore
	patterns []string

	// Source names the file the user patterns came from, or "" if only the
	// defaults apply
	Source string
}

// IgnoreRules reads the exclusion rules for the app. A .dockerignore takes
// precedence over a .gitignore and the defaults always apply.
func (a *App) IgnoreRules() *ContextRules {
	patterns := append([]string{}, DefaultIgnorePatterns...)
	source := ""

	for _, name := range []string{".dockerignore", ".gitignore"} {
		if !a.HasMatch(name) {
			continue
		}

		contents, err := a.ReadFile(name)
		if err != nil {
			log.Warnf("failed to read %s: %v", name, err)
			break
		}

		patterns = append(patterns, strings.Split(contents, "\n")...)
		source = name
		break
	}

	return &ContextRules{
		matcher:  ignore.CompileIgnoreLines(patterns...),
		patterns: patterns,
		Source:   source,
	}
}

// Excluded reports whether a path relative to the app root is ignored
func (r *ContextRules) Excluded(relPath string, isDir bool) bool {
	path := filepath.ToSlash(relPath)
	if isDir {
		// Trailing slash so patterns like ".git/" match the directory
		path += "/"
	}
	return r.matcher.MatchesPath(path)
}

// Patterns returns the patterns with blank and comment lines removed, in the
// form the BuildKit local context expects as excludes
func (r *ContextRules) Patterns() []string {
	cleaned := []string{}
	for _, p := range r.patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		cleaned = append(cleaned, p)
	}
	return cleaned
}

// ContextTree renders the files visible to plan generation as an indented
// tree. Directories carry a trailing slash. A negative maxDepth means no
// depth limit. Used for the diagnostic shown when no provider matches.
func (a *App) ContextTree(rules *ContextRules, maxDepth int) (string, error) {
	var sb strings.Builder

	err := filepath.WalkDir(a.Source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(a.Source, path)
		if err != nil || relPath == "." {
			return nil
		}

		depth := strings.Count(relPath, string(filepath.Separator))
		if maxDepth >= 0 && depth > maxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if rules.Excluded(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			name += "/"
		}

		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(name)
		sb.WriteString("\n")
		return nil
	})
	if err != nil {
		return "", err
	}

	return sb.String(), nil
}
