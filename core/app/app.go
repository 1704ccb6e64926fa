package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v2"
)

// App is the application source directory being containerized. All paths are
// relative to Source.
type App struct {
	Source string
}

func NewApp(path string) (*App, error) {
	source := path
	if !filepath.IsAbs(path) {
		currentDir, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		source, err = filepath.Abs(filepath.Join(currentDir, path))
		if err != nil {
			return nil, errors.New("failed to resolve app directory")
		}
	}

	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory %s does not exist", source)
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", source, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", source)
	}

	return &App{Source: source}, nil
}

// FindFiles returns file paths matching a glob pattern
func (a *App) FindFiles(pattern string) ([]string, error) {
	return a.findMatches(pattern, false)
}

// FindDirectories returns directory paths matching a glob pattern
func (a *App) FindDirectories(pattern string) ([]string, error) {
	return a.findMatches(pattern, true)
}

// HasMatch checks if anything matches a glob pattern
func (a *App) HasMatch(pattern string) bool {
	matches, err := a.findGlob(pattern)
	return err == nil && len(matches) > 0
}

func (a *App) findMatches(pattern string, wantDir bool) ([]string, error) {
	matches, err := a.findGlob(pattern)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, match := range matches {
		info, err := os.Stat(filepath.Join(a.Source, match))
		if err != nil {
			continue
		}
		if info.IsDir() == wantDir {
			paths = append(paths, match)
		}
	}
	return paths, nil
}

func (a *App) findGlob(pattern string) ([]string, error) {
	return doublestar.Glob(os.DirFS(a.Source), pattern)
}

// ReadFile returns the contents of a file with line endings normalized
func (a *App) ReadFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(a.Source, name))
	if err != nil {
		return "", fmt.Errorf("error reading %s: %w", name, err)
	}

	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

// ReadJSON parses a JSON file into v. Comments and trailing commas are
// tolerated.
func (a *App) ReadJSON(name string, v interface{}) error {
	data, err := a.ReadFile(name)
	if err != nil {
		return err
	}

	jsonBytes, err := standardizeJSON([]byte(data))
	if err != nil {
		return fmt.Errorf("error reading %s as JSON: %w", name, err)
	}

	if err := json.Unmarshal(jsonBytes, v); err != nil {
		return fmt.Errorf("error reading %s as JSON: %w", name, err)
	}

	return nil
}

// ReadYAML parses a YAML file into v
func (a *App) ReadYAML(name string, v interface{}) error {
	data, err := a.ReadFile(name)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("error reading %s as YAML: %w", name, err)
	}

	return nil
}

// ReadTOML parses a TOML file into v
func (a *App) ReadTOML(name string, v interface{}) error {
	data, err := a.ReadFile(name)
	if err != nil {
		return err
	}

	if err := toml.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("error reading %s as TOML: %w", name, err)
	}

	return nil
}

// IsFileExecutable checks if a path is a regular file with an executable bit
func (a *App) IsFileExecutable(name string) bool {
	info, err := os.Stat(filepath.Join(a.Source, name))
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Mode()&0111 != 0
}

// standardizeJSON strips comments and trailing commas so user-edited files
// parse with encoding/json
func standardizeJSON(b []byte) ([]byte, error) {
	ast, err := hujson.Parse(b)
	if err != nil {
		return b, err
	}
	ast.Standardize()
	return ast.Pack(), nil
}
