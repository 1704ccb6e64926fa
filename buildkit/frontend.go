package buildkit

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/moby/buildkit/client/llb"
	"github.com/moby/buildkit/exporter/containerimage/exptypes"
	"github.com/moby/buildkit/frontend/gateway/client"
	gw "github.com/moby/buildkit/frontend/gateway/grpcclient"
	"github.com/moby/buildkit/util/appcontext"
	"github.com/pkg/errors"
	"github.com/slipway-dev/slipway/core/plan"
)

// StartFrontend runs the gateway frontend inside the BuildKit daemon. The
// daemon calls Build with the options of the current solve.
func StartFrontend() {
	ctx := appcontext.Context()
	if err := gw.RunFromEnvironment(ctx, Build); err != nil {
		log.Errorf("frontend error: %+v", err)
		os.Exit(1)
	}
}

// Build is the gateway entrypoint: read the serialized plan from the build
// context, compile it to LLB, and solve.
func Build(ctx context.Context, c client.Client) (*client.Result, error) {
	opts := c.BuildOpts().Opts

	platform := DetermineBuildPlatformFromHost()
	if platformStr := opts["platform"]; platformStr != "" {
		parsed, err := ParsePlatform(platformStr)
		if err != nil {
			return nil, err
		}
		platform = parsed
	}

	buildArgs := parseBuildArgs(opts)

	buildPlan, err := readBuildPlan(ctx, c)
	if err != nil {
		return nil, err
	}

	state, image, err := ConvertPlanToLLB(buildPlan, ConvertPlanOptions{
		BuildPlatform: platform,
		SecretsHash:   hashSecretValues(buildArgs),
		CacheKey:      opts["cache-key"],
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert plan to LLB")
	}

	imageBytes, err := json.Marshal(image)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal image config")
	}

	def, err := state.Marshal(ctx, llb.Platform(platform.ToPlatform()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal LLB state")
	}

	res, err := c.Solve(ctx, client.SolveRequest{
		Definition: def.ToPB(),
	})
	if err != nil {
		return nil, err
	}

	res.AddMeta(exptypes.ExporterImageConfigKey, imageBytes)

	return res, nil
}

// parseBuildArgs extracts the build args from the frontend options. Secret
// values arrive this way and feed the secrets hash.
func parseBuildArgs(opts map[string]string) map[string]string {
	buildArgs := make(map[string]string)
	for k, v := range opts {
		if name, ok := strings.CutPrefix(k, "build-arg:"); ok {
			buildArgs[name] = v
		}
	}
	return buildArgs
}

func readBuildPlan(ctx context.Context, c client.Client) (*plan.BuildPlan, error) {
	filename := c.BuildOpts().Opts["filename"]
	if filename == "" {
		filename = DefaultPlanFilename
	}

	contents, err := readFile(ctx, c, filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read build plan")
	}

	buildPlan := plan.NewBuildPlan()
	if err := json.Unmarshal([]byte(contents), buildPlan); err != nil {
		return nil, errors.Wrap(err, "failed to parse build plan")
	}

	return buildPlan, nil
}

func readFile(ctx context.Context, c client.Client, filename string) (string, error) {
	src := llb.Local(localNameContext,
		llb.FollowPaths([]string{filename}),
		llb.SessionID(c.BuildOpts().SessionID),
		llb.WithCustomName("load build definition from "+filename),
	)

	srcDef, err := src.Marshal(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal local source")
	}

	res, err := c.Solve(ctx, client.SolveRequest{
		Definition: srcDef.ToPB(),
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve build context")
	}

	ref, err := res.SingleRef()
	if err != nil {
		return "", err
	}

	content, err := ref.ReadFile(ctx, client.ReadRequest{
		Filename: filename,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to read file")
	}

	return string(content), nil
}
