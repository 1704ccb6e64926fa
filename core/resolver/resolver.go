package resolver

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/slipway-dev/slipway/core/images"
)

const (
	DefaultSource = "slipway default"
)

// Resolver tracks requested runtime versions and where each request came
// from, then resolves them against the image catalog.
type Resolver struct {
	catalog  *images.Catalog
	packages map[string]*RequestedPackage
}

type RequestedPackage struct {
	Name    string
	Version string
	Source  string
}

type ResolvedPackage struct {
	Name             string  `json:"name"`
	RequestedVersion *string `json:"requestedVersion,omitempty"`
	ResolvedVersion  *string `json:"resolvedVersion,omitempty"`
	Source           string  `json:"source"`
}

type PackageRef struct {
	Name string
}

func NewRequestedPackage(name, defaultVersion string) *RequestedPackage {
	return &RequestedPackage{
		Name:    name,
		Version: defaultVersion,
		Source:  DefaultSource,
	}
}

func (p *RequestedPackage) SetVersion(version, source string) *RequestedPackage {
	p.Version = version
	p.Source = source
	return p
}

func NewResolver(catalog *images.Catalog) *Resolver {
	return &Resolver{
		catalog:  catalog,
		packages: make(map[string]*RequestedPackage),
	}
}

func (r *Resolver) ResolvePackages() (map[string]*ResolvedPackage, error) {
	resolvedPackages := make(map[string]*ResolvedPackage)

	for name, pkg := range r.packages {
		fuzzyVersion := resolveToFuzzyVersion(pkg.Version)
		latestVersion, err := r.catalog.LatestVersion(name, fuzzyVersion)

		if err != nil {
			return nil, fmt.Errorf("unable to resolve %s version %q (from %s): %w", name, pkg.Version, pkg.Source, err)
		}

		log.Debugf("Resolved package version %s %s to %s from %s", name, pkg.Version, latestVersion, pkg.Source)

		resolvedPkg := &ResolvedPackage{
			Name:             name,
			RequestedVersion: &pkg.Version,
			ResolvedVersion:  &latestVersion,
			Source:           pkg.Source,
		}

		resolvedPackages[name] = resolvedPkg
	}

	return resolvedPackages, nil
}

func (r *Resolver) Get(name string) *RequestedPackage {
	return r.packages[name]
}

func (r *Resolver) Default(name, defaultVersion string) PackageRef {
	r.packages[name] = NewRequestedPackage(name, defaultVersion)
	return PackageRef{Name: name}
}

func (r *Resolver) Version(ref PackageRef, version, source string) PackageRef {
	if version = strings.TrimSpace(version); version == "" {
		return ref
	}

	if pkg, exists := r.packages[ref.Name]; exists {
		pkg.SetVersion(version, source)
	}
	return ref
}
