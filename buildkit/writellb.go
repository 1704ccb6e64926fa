package buildkit

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/moby/buildkit/client/llb"
	"github.com/moby/buildkit/util/appcontext"
	"github.com/slipway-dev/slipway/core/plan"
)

// WriteLLB marshals the plan's LLB definition to stdout, in the format
// `buildctl build` accepts on stdin.
func WriteLLB(buildPlan *plan.BuildPlan, opts ConvertPlanOptions) error {
	ctx := appcontext.Context()

	llbState, image, err := ConvertPlanToLLB(buildPlan, opts)
	if err != nil {
		return fmt.Errorf("error converting plan to LLB: %w", err)
	}

	imageBytes, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("error marshalling image config: %w", err)
	}

	log.Debugf("Image config: %s", string(imageBytes))

	st, err := llbState.WithImageConfig(imageBytes)
	if err != nil {
		return fmt.Errorf("error setting image config: %w", err)
	}

	dt, err := st.Marshal(ctx, llb.Platform(opts.BuildPlatform.ToPlatform()))
	if err != nil {
		return fmt.Errorf("error marshaling LLB state: %w", err)
	}

	if err := llb.WriteTo(dt, os.Stdout); err != nil {
		return fmt.Errorf("error writing LLB state to stdout: %w", err)
	}

	return nil
}
