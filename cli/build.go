package cli

import (
	"context"

	"github.com/slipway-dev/slipway/buildkit"
	"github.com/urfave/cli/v3"
)

var BuildCommand = &cli.Command{
	Name:                  "build",
	Aliases:               []string{"b"},
	Usage:                 "build an image with BuildKit",
	ArgsUsage:             "DIRECTORY",
	EnableShellCompletion: true,
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "name of the image to build",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output the image as a tarball to this file",
		},
		&cli.BoolFlag{
			Name:  "push",
			Usage: "push the image to the registry",
		},
		&cli.StringFlag{
			Name:  "platform",
			Usage: "platform to build for. one of: linux/amd64, linux/arm64",
		},
		&cli.BoolFlag{
			Name:  "llb",
			Usage: "output the LLB definition to stdout instead of building",
		},
		&cli.StringFlag{
			Name:  "cache-key",
			Usage: "unique key to namespace layer caching with",
		},
		&cli.StringFlag{
			Name:  "import-cache",
			Usage: "buildkit cache to import. format: type=registry,ref=...",
		},
		&cli.StringFlag{
			Name:  "export-cache",
			Usage: "buildkit cache to export. format: type=registry,ref=...",
		},
		&cli.StringFlag{
			Name:  "registry-url",
			Usage: "registry to authenticate against when pushing",
		},
		&cli.StringFlag{
			Name:  "registry-user",
			Usage: "registry username",
		},
		&cli.StringFlag{
			Name:  "registry-password",
			Usage: "registry password",
		},
	}, commonPlanFlags()...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		buildResult, app, env, err := GenerateBuildResultForCommand(cmd)
		if err != nil {
			return cli.Exit(err, 1)
		}

		printBuildLogs(buildResult)

		if !buildResult.Success {
			return cli.Exit("failed to generate a build plan for this app", 1)
		}

		var platform buildkit.BuildPlatform
		if platformArg := cmd.String("platform"); platformArg != "" {
			platform, err = buildkit.ParsePlatform(platformArg)
			if err != nil {
				return cli.Exit(err, 1)
			}
		}

		var registry *buildkit.RegistryOptions
		if cmd.String("registry-url") != "" {
			registry = &buildkit.RegistryOptions{
				URL:      cmd.String("registry-url"),
				Username: cmd.String("registry-user"),
				Password: cmd.String("registry-password"),
			}
		}

		err = buildkit.BuildWithBuildkitClient(app.Source, buildResult.Plan, buildkit.BuildWithBuildkitClientOptions{
			ImageName:      cmd.String("name"),
			OutputFile:     cmd.String("output"),
			Push:           cmd.Bool("push"),
			Registry:       registry,
			Platform:       platform,
			Secrets:        secretsFromEnv(buildResult.Plan, env),
			CacheKey:       cmd.String("cache-key"),
			ImportCache:    cmd.String("import-cache"),
			ExportCache:    cmd.String("export-cache"),
			IgnorePatterns: app.IgnoreRules().Patterns(),
			DumpLLB:        cmd.Bool("llb"),
		})
		if err != nil {
			return cli.Exit(err, 1)
		}

		return nil
	},
}
