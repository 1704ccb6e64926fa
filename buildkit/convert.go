package buildkit

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/moby/buildkit/client/llb"
	"github.com/moby/buildkit/util/system"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/slipway-dev/slipway/buildkit/build_llb"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/slipway-dev/slipway/core/utils"
)

// Image describes the final image. It marshals to the
// application/vnd.oci.image.config.v1+json mediatype.
type Image struct {
	specs.Image

	// Config defines the execution parameters used as a base when running
	// a container from the image.
	Config specs.ImageConfig `json:"config,omitempty"`

	// Variant defines the platform variant. Not yet part of the OCI struct.
	Variant string `json:"variant,omitempty"`
}

type ConvertPlanOptions struct {
	BuildPlatform BuildPlatform
	SecretsHash   string

	// CacheKey namespaces the persistent cache mounts. Defaults to the
	// plan fingerprint.
	CacheKey string

	// ExcludePatterns are left out of the local build context.
	ExcludePatterns []string
}

// ConvertPlanToLLB compiles a build plan into an LLB state and the image
// config of the final image.
func ConvertPlanToLLB(buildPlan *plan.BuildPlan, opts ConvertPlanOptions) (*llb.State, *Image, error) {
	if buildPlan.BaseImage == "" {
		return nil, nil, fmt.Errorf("plan has no base image")
	}

	platform := opts.BuildPlatform.ToPlatform()
	workDir := planWorkDir(buildPlan)

	state := llb.Image(buildPlan.BaseImage, llb.Platform(platform)).Dir(workDir)
	for _, name := range slices.Sorted(maps.Keys(buildPlan.Variables)) {
		state = state.AddEnv(name, buildPlan.Variables[name])
	}

	localState := llb.Local(localNameContext,
		llb.WithCustomName("load build context"),
		llb.ExcludePatterns(opts.ExcludePatterns),
	)

	cacheKey := opts.CacheKey
	if cacheKey == "" {
		fingerprint, err := buildPlan.Fingerprint()
		if err != nil {
			return nil, nil, fmt.Errorf("error fingerprinting plan: %w", err)
		}
		cacheKey = fingerprint.Encoded()
	}
	cacheStore := build_llb.NewBuildKitCacheStore(cacheKey)

	graph, err := build_llb.NewBuildGraph(buildPlan, &state, &localState, cacheStore, opts.SecretsHash, &platform)
	if err != nil {
		return nil, nil, err
	}

	output, err := graph.GenerateLLB()
	if err != nil {
		return nil, nil, err
	}

	finalState := *output.State

	// A plan with its own start image gets only the declared outputs of
	// the build, copied onto a fresh base
	if buildPlan.Start.BaseImage != "" && buildPlan.Start.BaseImage != buildPlan.BaseImage {
		finalState = startStage(buildPlan, *output.State, platform, workDir)
	}

	image := buildImageConfig(buildPlan, output.GraphEnv, platform, workDir)

	return &finalState, image, nil
}

// startStage copies the plan's start outputs from the built state onto the
// start image, the LLB equivalent of a final Dockerfile stage.
func startStage(buildPlan *plan.BuildPlan, buildState llb.State, platform specs.Platform, workDir string) llb.State {
	state := llb.Image(buildPlan.Start.BaseImage, llb.Platform(platform)).Dir(workDir)

	for _, output := range utils.RemoveDuplicates(buildPlan.Start.Outputs) {
		target := output
		if !path.IsAbs(target) {
			target = path.Join(workDir, target)
		}

		state = state.File(llb.Copy(buildState, target, target, &llb.CopyInfo{
			CreateDestPath:     true,
			FollowSymlinks:     true,
			AllowWildcard:      true,
			AllowEmptyWildcard: true,
		}), llb.WithCustomNamef("copy %s", target))
	}

	return state
}

// buildImageConfig assembles the OCI config for the final image. The start
// command becomes Cmd and never Entrypoint, so a command supplied by an
// orchestrator replaces the default instead of being appended to it.
func buildImageConfig(buildPlan *plan.BuildPlan, graphEnv build_llb.BuildEnvironment, platform specs.Platform, workDir string) *Image {
	paths := utils.RemoveDuplicates(append(append([]string{}, graphEnv.PathList...), buildPlan.Start.Paths...))
	pathEnv := system.DefaultPathEnvUnix
	if len(paths) > 0 {
		pathEnv = strings.Join(paths, ":") + ":" + system.DefaultPathEnvUnix
	}

	// Later sources win: plan variables, then variables accumulated during
	// the build, then start variables
	vars := map[string]string{}
	maps.Copy(vars, buildPlan.Variables)
	maps.Copy(vars, graphEnv.EnvVars)
	maps.Copy(vars, buildPlan.Start.Variables)

	env := []string{"PATH=" + pathEnv}
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		env = append(env, name+"="+vars[name])
	}

	var cmd []string
	if buildPlan.Start.Command != "" {
		if argv, ok := utils.ExecForm(buildPlan.Start.Command); ok {
			cmd = argv
		} else {
			cmd = []string{"/bin/sh", "-c", buildPlan.Start.Command}
		}
	}

	var exposedPorts map[string]struct{}
	if len(buildPlan.Start.Ports) > 0 {
		exposedPorts = map[string]struct{}{}
		for _, port := range buildPlan.Start.Ports {
			exposedPorts[port+"/tcp"] = struct{}{}
		}
	}

	return &Image{
		Image: specs.Image{Platform: platform},
		Config: specs.ImageConfig{
			Env:          env,
			Cmd:          cmd,
			ExposedPorts: exposedPorts,
			Labels:       buildPlan.Start.Labels,
			WorkingDir:   workDir,
		},
		Variant: platform.Variant,
	}
}

func planWorkDir(buildPlan *plan.BuildPlan) string {
	if buildPlan.WorkDir != "" {
		return buildPlan.WorkDir
	}
	return plan.DefaultWorkDir
}
