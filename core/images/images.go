// Package images is the catalog of runtime base images that generated plans
// build on. Versions resolve against known registry tags so a plan never
// references an image that cannot be pulled.
package images

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
)

const (
	Python = "python"

	VariantSlim     = "slim"
	VariantBookworm = "bookworm"
	VariantAlpine   = "alpine"

	DefaultVariant = VariantSlim
)

// Latest patch releases per supported lineage. The remote refresh can extend
// this list, but plan generation works offline with the built-in set.
var pythonVersions = []string{
	"3.8.20",
	"3.9.21",
	"3.10.16",
	"3.11.11",
	"3.12.8",
	"3.13.1",
}

type Catalog struct {
	versions map[string][]semver.Version
}

func NewCatalog() *Catalog {
	c := &Catalog{
		versions: make(map[string][]semver.Version),
	}
	for _, v := range pythonVersions {
		c.addVersion(Python, v)
	}
	return c
}

func (c *Catalog) addVersion(runtime, version string) {
	parsed, err := semver.Parse(version)
	if err != nil {
		return
	}

	for _, existing := range c.versions[runtime] {
		if existing.EQ(parsed) {
			return
		}
	}
	c.versions[runtime] = append(c.versions[runtime], parsed)
}

// LatestVersion returns the newest known version of a runtime matching the
// constraint. The constraint is a normalized fuzzy version: "latest", a major
// ("3"), a lineage ("3.11"), or an exact version ("3.11.4"). Exact versions
// are accepted when their lineage is known since the registry keeps every
// patch tag.
func (c *Catalog) LatestVersion(runtime, constraint string) (string, error) {
	known, ok := c.versions[runtime]
	if !ok {
		return "", fmt.Errorf("unknown runtime %q", runtime)
	}

	if constraint == "" || constraint == "latest" {
		return c.highest(known, func(semver.Version) bool { return true })
	}

	exact, err := semver.Parse(constraint)
	if err == nil {
		for _, v := range known {
			if v.Major == exact.Major && v.Minor == exact.Minor {
				return constraint, nil
			}
		}
		return "", fmt.Errorf("no %s %d.%d images available", runtime, exact.Major, exact.Minor)
	}

	parsed, err := semver.ParseTolerant(constraint)
	if err != nil {
		return "", fmt.Errorf("unable to parse version %q", constraint)
	}

	hasMinor := strings.Contains(constraint, ".")
	return c.highest(known, func(v semver.Version) bool {
		if v.Major != parsed.Major {
			return false
		}
		return !hasMinor || v.Minor == parsed.Minor
	})
}

func (c *Catalog) highest(versions []semver.Version, matches func(semver.Version) bool) (string, error) {
	var best *semver.Version
	for i := range versions {
		v := versions[i]
		if !matches(v) {
			continue
		}
		if best == nil || v.GT(*best) {
			best = &v
		}
	}

	if best == nil {
		return "", fmt.Errorf("no matching image version")
	}
	return best.String(), nil
}

// Tag builds the image reference for a runtime version, e.g. python:3.10-slim
func Tag(runtime, version, variant string) string {
	if variant == "" {
		variant = DefaultVariant
	}
	return fmt.Sprintf("%s:%s-%s", runtime, version, variant)
}

// TagVersion picks the tag precision. A fully pinned request keeps the patch
// version; everything else tracks the lineage tag so images pick up patch
// releases.
func TagVersion(requested, resolved string) string {
	if len(strings.Split(requested, ".")) >= 3 {
		return resolved
	}

	parsed, err := semver.Parse(resolved)
	if err != nil {
		return resolved
	}
	return fmt.Sprintf("%d.%d", parsed.Major, parsed.Minor)
}

func IsKnownVariant(variant string) bool {
	switch variant {
	case VariantSlim, VariantBookworm, VariantAlpine:
		return true
	}
	return false
}
