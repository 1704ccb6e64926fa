package cli

import (
	"context"

	"github.com/slipway-dev/slipway/buildkit"
	"github.com/urfave/cli/v3"
)

var FrontendCommand = &cli.Command{
	Name:  "frontend",
	Usage: "start the BuildKit gRPC frontend server",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		buildkit.StartFrontend()

		return nil
	},
}
