// Package buildkit compiles build plans to LLB and solves them against a
// BuildKit daemon, either from the CLI as a client or as a gateway frontend
// running inside the daemon.
package buildkit

import (
	"os"
	"strings"
)

const (
	// localNameContext is the name the build context directory is mounted
	// under in the LLB definition and the client session.
	localNameContext = "context"

	// DefaultPlanFilename is where the frontend looks for the serialized
	// build plan inside the build context.
	DefaultPlanFilename = "slipway-plan.json"
)

// getImageName derives an image name from the last element of the app
// directory path.
func getImageName(appDir string) string {
	parts := strings.Split(appDir, string(os.PathSeparator))
	name := parts[len(parts)-1]
	if name == "" {
		name = "slipway-app"
	}
	return name
}
