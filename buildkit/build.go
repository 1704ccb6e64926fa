package buildkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/moby/buildkit/client"
	_ "github.com/moby/buildkit/client/connhelper/dockercontainer"
	_ "github.com/moby/buildkit/client/connhelper/nerdctlcontainer"
	"github.com/moby/buildkit/client/llb"
	"github.com/moby/buildkit/exporter/containerimage/exptypes"
	gwclient "github.com/moby/buildkit/frontend/gateway/client"
	"github.com/moby/buildkit/session"
	"github.com/moby/buildkit/session/filesync"
	"github.com/moby/buildkit/session/secrets/secretsprovider"
	"github.com/moby/buildkit/util/appcontext"
	_ "github.com/moby/buildkit/util/grpcutil/encoding/proto"
	"github.com/moby/buildkit/util/progress/progressui"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/tonistiigi/fsutil"
)

type BuildWithBuildkitClientOptions struct {
	ImageName string

	// OutputFile receives the image as a Docker tarball instead of stdout.
	OutputFile string

	// Push exports the image to a registry instead of producing a tarball.
	Push     bool
	Registry *RegistryOptions

	Platform BuildPlatform
	Secrets  map[string]string
	CacheKey string

	// ImportCache and ExportCache take buildctl-style cache specs,
	// e.g. "type=registry,ref=docker.io/user/app:cache".
	ImportCache string
	ExportCache string

	// IgnorePatterns are excluded from the build context before it is
	// sent to the daemon.
	IgnorePatterns []string

	// DumpLLB writes the marshaled LLB definition to stdout instead of
	// building.
	DumpLLB bool
}

// BuildWithBuildkitClient compiles the plan to LLB and solves it against the
// daemon at BUILDKIT_HOST.
func BuildWithBuildkitClient(appDir string, buildPlan *plan.BuildPlan, opts BuildWithBuildkitClientOptions) error {
	ctx := appcontext.Context()

	platform := opts.Platform
	if platform.OS == "" {
		platform = DetermineBuildPlatformFromHost()
	}

	convertOpts := ConvertPlanOptions{
		BuildPlatform:   platform,
		SecretsHash:     hashSecretValues(opts.Secrets),
		CacheKey:        opts.CacheKey,
		ExcludePatterns: opts.IgnorePatterns,
	}

	if opts.DumpLLB {
		return WriteLLB(buildPlan, convertOpts)
	}

	imageName := opts.ImageName
	if imageName == "" {
		imageName = getImageName(appDir)
	}

	buildkitHost := os.Getenv("BUILDKIT_HOST")
	if buildkitHost == "" {
		return fmt.Errorf("BUILDKIT_HOST environment variable is not set")
	}

	log.Debugf("Connecting to buildkit host %s", buildkitHost)

	c, err := client.New(ctx, buildkitHost)
	if err != nil {
		return fmt.Errorf("failed to connect to buildkit: %w", err)
	}
	defer c.Close()

	info, err := c.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get buildkit info: %w", err)
	}

	log.Debugf("Buildkit version %s", info.BuildkitVersion.Version)

	state, image, err := ConvertPlanToLLB(buildPlan, convertOpts)
	if err != nil {
		return fmt.Errorf("error converting plan to LLB: %w", err)
	}

	imageBytes, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("error marshalling image config: %w", err)
	}

	def, err := state.Marshal(ctx, llb.Platform(platform.ToPlatform()))
	if err != nil {
		return fmt.Errorf("error marshaling LLB state: %w", err)
	}

	contextFS, err := fsutil.NewFS(appDir)
	if err != nil {
		return fmt.Errorf("error creating context FS: %w", err)
	}

	contextFS, err = fsutil.NewFilterFS(contextFS, &fsutil.FilterOpt{
		ExcludePatterns: opts.IgnorePatterns,
	})
	if err != nil {
		return fmt.Errorf("error filtering context FS: %w", err)
	}

	secretStore := NewBuildKitSecretStore()
	for name, value := range opts.Secrets {
		secretStore.SetSecret(name, value)
	}

	secretsProvider, err := secretsprovider.FromMap(secretStore.GetAllSecrets())
	if err != nil {
		return fmt.Errorf("error creating secrets provider: %w", err)
	}

	sessionAttachables := []session.Attachable{
		filesync.NewFSSyncProvider(filesync.StaticDirSource{localNameContext: contextFS}),
		secretsProvider,
	}

	if opts.Registry != nil && opts.Registry.URL != "" {
		sessionAttachables = append(sessionAttachables, createAuthProvider(opts.Registry.URL, opts.Registry.Username, opts.Registry.Password))
	}

	var exports []client.ExportEntry
	switch {
	case opts.Push:
		exports = append(exports, client.ExportEntry{
			Type: client.ExporterImage,
			Attrs: map[string]string{
				"name": imageName,
				"push": "true",
			},
		})
	case opts.OutputFile != "":
		exports = append(exports, client.ExportEntry{
			Type:  client.ExporterDocker,
			Attrs: map[string]string{"name": imageName},
			Output: func(map[string]string) (io.WriteCloser, error) {
				return os.Create(opts.OutputFile)
			},
		})
	default:
		exports = append(exports, client.ExportEntry{
			Type:  client.ExporterDocker,
			Attrs: map[string]string{"name": imageName},
			Output: func(map[string]string) (io.WriteCloser, error) {
				return os.Stdout, nil
			},
		})
	}

	ch := make(chan *client.SolveStatus)

	display, err := progressui.NewDisplay(os.Stderr, progressui.AutoMode)
	if err != nil {
		return fmt.Errorf("error creating progress display: %w", err)
	}

	displayDone := make(chan struct{})
	go func() {
		defer close(displayDone)
		_, _ = display.UpdateFrom(ctx, ch)
	}()

	solveOpt := client.SolveOpt{
		Exports: exports,
		Session: sessionAttachables,
	}

	if opts.ImportCache != "" {
		cacheImports, err := parseCacheOptions(opts.ImportCache)
		if err != nil {
			return fmt.Errorf("invalid import cache %q: %w", opts.ImportCache, err)
		}
		solveOpt.CacheImports = cacheImports
	}

	if opts.ExportCache != "" {
		cacheExports, err := parseCacheOptions(opts.ExportCache)
		if err != nil {
			return fmt.Errorf("invalid export cache %q: %w", opts.ExportCache, err)
		}
		solveOpt.CacheExports = cacheExports
	}

	_, err = c.Build(ctx, solveOpt, "slipway", func(ctx context.Context, gc gwclient.Client) (*gwclient.Result, error) {
		res, err := gc.Solve(ctx, gwclient.SolveRequest{
			Definition: def.ToPB(),
		})
		if err != nil {
			return nil, err
		}

		res.AddMeta(exptypes.ExporterImageConfigKey, imageBytes)
		return res, nil
	}, ch)

	// The display owns the status channel. Wait for it to drain before
	// reporting the result so output is not interleaved.
	<-displayDone

	if err != nil {
		return fmt.Errorf("failed to solve: %w", err)
	}

	log.Debugf("Built image %s", imageName)

	return nil
}

// parseCacheOptions parses a buildctl-style cache spec into a cache entry.
// The "type" attribute is required and every other key=value pair becomes an
// attribute of the entry.
func parseCacheOptions(spec string) ([]client.CacheOptionsEntry, error) {
	entry := client.CacheOptionsEntry{
		Attrs: map[string]string{},
	}

	for _, field := range strings.Split(spec, ",") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("invalid cache field %q", field)
		}

		if key == "type" {
			entry.Type = value
		} else {
			entry.Attrs[key] = value
		}
	}

	if entry.Type == "" {
		return nil, fmt.Errorf("cache spec is missing a type")
	}

	return []client.CacheOptionsEntry{entry}, nil
}
