package plan

import (
	"encoding/json"

	"github.com/opencontainers/go-digest"
)

// DefaultWorkDir is where the application lives in the image. Every relative
// copy and exec resolves against it.
const DefaultWorkDir = "/app"

type BuildPlan struct {
	BaseImage string            `json:"baseImage,omitempty" jsonschema:"description=The image that build steps start from"`
	WorkDir   string            `json:"workDir,omitempty" jsonschema:"description=The working directory for the build and the started container"`
	Variables map[string]string `json:"variables,omitempty" jsonschema:"description=Variables available to every step"`
	Steps     []Step            `json:"steps,omitempty" jsonschema:"description=The steps to run"`
	Caches    map[string]Cache  `json:"caches,omitempty" jsonschema:"description=Caches that steps can reference by name"`
	Secrets   []string          `json:"secrets,omitempty" jsonschema:"description=Names of secrets the build can use"`
	Start     Start             `json:"start,omitempty" jsonschema:"description=How the built image starts"`
}

type Start struct {
	BaseImage string            `json:"baseImage,omitempty" jsonschema:"description=An image to use for the final stage instead of the build image"`
	Command   string            `json:"cmd,omitempty" jsonschema:"description=The default command for the container. An orchestrator that supplies its own command replaces it"`
	Paths     []string          `json:"paths,omitempty" jsonschema:"description=Directories prepended to PATH in the final image"`
	Variables map[string]string `json:"variables,omitempty" jsonschema:"description=Environment variables set in the final image"`
	Ports     []string          `json:"ports,omitempty" jsonschema:"description=Ports the application listens on"`
	Labels    map[string]string `json:"labels,omitempty" jsonschema:"description=Labels set on the final image"`
	Outputs   []string          `json:"outputs,omitempty" jsonschema:"description=Paths copied into the final stage when it uses its own base image"`
}

func NewBuildPlan() *BuildPlan {
	return &BuildPlan{
		WorkDir:   DefaultWorkDir,
		Variables: map[string]string{},
		Steps:     []Step{},
		Caches:    map[string]Cache{},
		Secrets:   []string{},
	}
}

func (p *BuildPlan) AddStep(step Step) {
	p.Steps = append(p.Steps, step)
}

func (p *BuildPlan) GetStep(name string) *Step {
	for i := range p.Steps {
		if p.Steps[i].Name == name {
			return &p.Steps[i]
		}
	}
	return nil
}

// Fingerprint digests the serialized plan. Cache namespaces and provenance
// output use it to tell plans apart. Map keys serialize sorted, so equal
// plans always produce equal digests.
func (p *BuildPlan) Fingerprint() (digest.Digest, error) {
	serialized, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return digest.FromBytes(serialized), nil
}
