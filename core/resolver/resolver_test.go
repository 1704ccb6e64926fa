package resolver

import (
	"testing"

	"github.com/slipway-dev/slipway/core/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackagesWithDefaults(t *testing.T) {
	pkg := NewRequestedPackage("python", "3.10")
	assert.Equal(t, "3.10", pkg.Version)
	assert.Equal(t, DefaultSource, pkg.Source)

	pkg.SetVersion("3.12", ".python-version")
	assert.Equal(t, "3.12", pkg.Version)
	assert.Equal(t, ".python-version", pkg.Source)
}

func TestPackageResolver(t *testing.T) {
	resolver := NewResolver(images.NewCatalog())

	python := resolver.Default("python", "3.10")
	resolver.Version(python, "3.12", ".python-version")

	resolvedPackages, err := resolver.ResolvePackages()
	require.NoError(t, err)
	assert.Equal(t, 1, len(resolvedPackages))

	resolved := resolvedPackages["python"]
	require.NotNil(t, resolved)
	require.NotNil(t, resolved.RequestedVersion)
	assert.Equal(t, "3.12", *resolved.RequestedVersion)
	require.NotNil(t, resolved.ResolvedVersion)
	assert.Equal(t, "3.12.8", *resolved.ResolvedVersion)
	assert.Equal(t, ".python-version", resolved.Source)
}

func TestPackageResolverLastSourceWins(t *testing.T) {
	resolver := NewResolver(images.NewCatalog())

	python := resolver.Default("python", "3.10")
	resolver.Version(python, "3.11", "SLIPWAY_PYTHON_VERSION")
	resolver.Version(python, "3.13", "runtime.txt")

	pkg := resolver.Get("python")
	assert.Equal(t, "3.13", pkg.Version)
	assert.Equal(t, "runtime.txt", pkg.Source)
}

func TestPackageResolverIgnoresEmptyVersions(t *testing.T) {
	resolver := NewResolver(images.NewCatalog())

	python := resolver.Default("python", "3.10")
	resolver.Version(python, "  \n", ".python-version")

	pkg := resolver.Get("python")
	assert.Equal(t, "3.10", pkg.Version)
	assert.Equal(t, DefaultSource, pkg.Source)
}

func TestPackageResolverUnresolvableNamesSource(t *testing.T) {
	resolver := NewResolver(images.NewCatalog())

	python := resolver.Default("python", "3.10")
	resolver.Version(python, "2.7", "runtime.txt")

	_, err := resolver.ResolvePackages()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2.7")
	assert.Contains(t, err.Error(), "runtime.txt")
}
