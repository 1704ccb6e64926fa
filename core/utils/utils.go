package utils

import (
	"regexp"
	"strings"
)

// RemoveDuplicates returns a new slice keeping the first occurrence of each
// value in its original position.
func RemoveDuplicates[T comparable](items []T) []T {
	seen := make(map[T]struct{}, len(items))
	result := []T{}
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}

func CapitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParsePackageWithVersion splits "name@version" specs into a name -> version
// map. A spec without an @ maps to an empty version.
func ParsePackageWithVersion(specs []string) map[string]string {
	parsed := map[string]string{}
	for _, spec := range specs {
		name, version, ok := strings.Cut(spec, "@")
		if !ok {
			parsed[spec] = ""
			continue
		}
		parsed[name] = version
	}
	return parsed
}

var semverPattern = regexp.MustCompile(`(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// ExtractSemverVersion pulls the first major[.minor[.patch]] version out of
// arbitrary text. Returns an empty string when no digits are found.
func ExtractSemverVersion(s string) string {
	match := semverPattern.FindStringSubmatch(s)
	if match == nil {
		return ""
	}

	version := match[1]
	if match[2] != "" {
		version += "." + match[2]
	}
	if match[3] != "" {
		version += "." + match[3]
	}
	return version
}
