package build_llb

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/moby/buildkit/client/llb"
	"github.com/moby/buildkit/util/system"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/slipway-dev/slipway/core/graph"
	"github.com/slipway-dev/slipway/core/plan"
	"github.com/slipway-dev/slipway/core/utils"
)

// BuildGraph converts the steps of a build plan into BuildKit LLB. Each step
// becomes a node whose state is built on top of its dependencies, so
// independent steps solve in parallel and merge at the end.
type BuildGraph struct {
	graph       *graph.Graph
	BaseState   *llb.State
	CacheStore  *BuildKitCacheStore
	SecretsHash string
	Plan        *plan.BuildPlan
	Platform    *specs.Platform
	LocalState  *llb.State
}

type BuildGraphOutput struct {
	State    *llb.State
	GraphEnv BuildEnvironment
}

func NewBuildGraph(buildPlan *plan.BuildPlan, baseState *llb.State, localState *llb.State, cacheStore *BuildKitCacheStore, secretsHash string, platform *specs.Platform) (*BuildGraph, error) {
	g := &BuildGraph{
		graph:       graph.NewGraph(),
		BaseState:   baseState,
		CacheStore:  cacheStore,
		SecretsHash: secretsHash,
		Plan:        buildPlan,
		Platform:    platform,
		LocalState:  localState,
	}

	for i := range buildPlan.Steps {
		g.graph.AddNode(&StepNode{
			Step:      &buildPlan.Steps[i],
			OutputEnv: NewGraphEnvironment(),
		})
	}

	for _, node := range g.graph.Nodes() {
		stepNode := node.(*StepNode)
		for _, depName := range stepNode.Step.DependsOn {
			depNode, exists := g.graph.GetNode(depName)
			if !exists {
				return nil, fmt.Errorf("step %s depends on unknown step %s", stepNode.Step.Name, depName)
			}
			graph.Link(depNode, node)
		}
	}

	// An edge implied by another parent's ancestry only forces an extra
	// merge, so a chain of steps builds directly on top of each other.
	g.graph.PruneRedundantEdges()

	return g, nil
}

// GenerateLLB processes every step in dependency order and returns the merged
// state of the leaf steps along with the environment they accumulated.
func (g *BuildGraph) GenerateLLB() (*BuildGraphOutput, error) {
	order, err := g.graph.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	for _, node := range order {
		if err := g.processNode(node.(*StepNode)); err != nil {
			return nil, err
		}
	}

	// The final filesystem is the merge of all leaf states
	var leafNodes []*StepNode
	graphEnv := NewGraphEnvironment()

	for _, node := range g.graph.Nodes() {
		stepNode := node.(*StepNode)
		if len(stepNode.GetChildren()) == 0 && stepNode.State != nil {
			leafNodes = append(leafNodes, stepNode)
			graphEnv.Merge(stepNode.OutputEnv)
		}
	}

	if len(leafNodes) == 0 {
		return &BuildGraphOutput{
			State:    g.BaseState,
			GraphEnv: graphEnv,
		}, nil
	}

	if len(leafNodes) == 1 {
		return &BuildGraphOutput{
			State:    leafNodes[0].State,
			GraphEnv: graphEnv,
		}, nil
	}

	result := g.mergeNodes(leafNodes)

	return &BuildGraphOutput{
		State:    &result,
		GraphEnv: graphEnv,
	}, nil
}

// mergeNodes copies the filesystem of each node's state into a single fresh
// state, later nodes winning where paths collide.
func (g *BuildGraph) mergeNodes(nodes []*StepNode) llb.State {
	result := llb.Scratch()
	for _, node := range nodes {
		result = result.File(llb.Copy(*node.State, "/", "/", &llb.CopyInfo{
			CreateDestPath: true,
			FollowSymlinks: true,
			AllowWildcard:  true,
		}), llb.WithCustomNamef("copy from %s", node.Step.Name))
	}

	return result
}

// processNode resolves the state a node builds upon from its parents and then
// converts the node's step into LLB.
func (g *BuildGraph) processNode(node *StepNode) error {
	if node.Processed {
		return nil
	}

	for _, parent := range node.GetParents() {
		parentNode := parent.(*StepNode)
		if !parentNode.Processed {
			if node.InProgress {
				return fmt.Errorf("dependency cycle between %s and %s",
					node.Step.Name, parentNode.Step.Name)
			}

			node.InProgress = true
			if err := g.processNode(parentNode); err != nil {
				node.InProgress = false
				return err
			}
			node.InProgress = false
		}
	}

	var currentState *llb.State
	currentGraphEnv := NewGraphEnvironment()

	for _, parent := range node.GetParents() {
		parentNode := parent.(*StepNode)
		currentGraphEnv.Merge(parentNode.OutputEnv)
	}

	if len(node.GetParents()) == 0 {
		currentState = g.BaseState
	} else if len(node.GetParents()) == 1 {
		currentState = node.GetParents()[0].(*StepNode).State
	} else {
		parentNodes := make([]*StepNode, len(node.GetParents()))
		for i, parent := range node.GetParents() {
			parentNode := parent.(*StepNode)
			if parentNode.State == nil {
				return fmt.Errorf("parent %s of %s has no state",
					parentNode.Step.Name, node.Step.Name)
			}
			parentNodes[i] = parentNode
		}

		merged := g.mergeNodes(parentNodes)
		currentState = &merged
	}

	node.InputEnv = currentGraphEnv

	stepState, err := g.convertNodeToLLB(node, currentState)
	if err != nil {
		return err
	}

	node.State = stepState
	node.Processed = true

	return nil
}

// convertNodeToLLB builds the LLB state for a single step: the starting
// environment, then each command in order, then output filtering.
func (g *BuildGraph) convertNodeToLLB(node *StepNode, baseState *llb.State) (*llb.State, error) {
	state := baseState.Dir(g.workDir())

	state, err := g.getNodeStartingState(state, node)
	if err != nil {
		return nil, err
	}

	if node.Step.Commands != nil {
		for _, cmd := range *node.Step.Commands {
			var err error
			state, err = g.convertCommandToLLB(node, cmd, state, node.Step)
			if err != nil {
				return nil, err
			}
		}
	}

	// A step that declares outputs contributes only those paths, layered
	// back onto the state it started from. Everything else its commands
	// wrote is dropped.
	if node.Step.Outputs != nil {
		result := llb.Scratch()

		for _, output := range *node.Step.Outputs {
			result = result.File(llb.Copy(state, output, output, &llb.CopyInfo{
				CreateDestPath:      true,
				AllowWildcard:       true,
				AllowEmptyWildcard:  true,
				CopyDirContentsOnly: false,
				FollowSymlinks:      true,
			}))
		}

		state = baseState.File(llb.Copy(result, "/", "/", &llb.CopyInfo{
			CreateDestPath: true,
			FollowSymlinks: true,
			AllowWildcard:  true,
		}))
	}

	return &state, nil
}

// getNodeStartingState applies the environment a step inherits: the variables
// and paths accumulated by its parents, then the step's own variables.
func (g *BuildGraph) getNodeStartingState(baseState llb.State, node *StepNode) (llb.State, error) {
	state := baseState

	// A step with its own image builds from that image instead of the
	// parent state
	if node.Step.StartingImage != "" {
		state = llb.Image(node.Step.StartingImage, llb.Platform(*g.Platform)).Dir(g.workDir())
	}

	for _, k := range slices.Sorted(maps.Keys(node.InputEnv.EnvVars)) {
		v := node.InputEnv.EnvVars[k]
		state = state.AddEnv(k, v)
		node.OutputEnv.AddEnvVar(k, v)
	}

	for _, k := range slices.Sorted(maps.Keys(node.Step.Variables)) {
		v := node.Step.Variables[k]
		state = state.AddEnv(k, v)
		node.OutputEnv.AddEnvVar(k, v)
	}

	for _, path := range node.InputEnv.PathList {
		newState, err := g.convertCommandToLLB(node, plan.PathCommand{Path: path}, state, node.Step)
		if err != nil {
			return state, err
		}
		state = newState
	}

	return state, nil
}

func (g *BuildGraph) convertCommandToLLB(node *StepNode, cmd plan.Command, state llb.State, step *plan.Step) (llb.State, error) {
	switch cmd := cmd.(type) {
	case plan.ExecCommand:
		return g.convertExecCommandToLLB(node, cmd, state)
	case plan.PathCommand:
		return g.convertPathCommandToLLB(node, cmd, state)
	case plan.VariableCommand:
		node.OutputEnv.AddEnvVar(cmd.Name, cmd.Value)
		return state.AddEnv(cmd.Name, cmd.Value), nil
	case plan.CopyCommand:
		return g.convertCopyCommandToLLB(cmd, state)
	case plan.FileCommand:
		return g.convertFileCommandToLLB(cmd, state, step)
	}
	return state, nil
}

// convertExecCommandToLLB runs a shell command with the secret and cache
// mounts its step declares.
func (g *BuildGraph) convertExecCommandToLLB(node *StepNode, cmd plan.ExecCommand, state llb.State) (llb.State, error) {
	opts := []llb.RunOption{llb.Shlex(cmd.Cmd)}
	if cmd.CustomName != "" {
		opts = append(opts, llb.WithCustomName(cmd.CustomName))
	}

	if node.Step.Secrets != nil && len(*node.Step.Secrets) > 0 {
		secretOpts := []llb.RunOption{}
		for _, secret := range g.Plan.Secrets {
			secretOpts = append(secretOpts, llb.AddSecret(secret, llb.SecretID(secret), llb.SecretAsEnv(true), llb.SecretAsEnvName(secret)))
		}
		opts = append(opts, secretOpts...)

		if g.SecretsHash != "" {
			opts = append(opts, g.getSecretMountOptions(node, secretOpts)...)
		}
	}

	cacheKeys := utils.RemoveDuplicates(append(append([]string{}, node.Step.Caches...), cmd.Caches...))
	if len(cacheKeys) > 0 {
		cacheOpts, err := g.getCacheMountOptions(cacheKeys)
		if err != nil {
			return state, err
		}
		opts = append(opts, cacheOpts...)
	}

	return state.Run(opts...).Root(), nil
}

// convertPathCommandToLLB prepends a directory to PATH for this and all
// downstream steps.
func (g *BuildGraph) convertPathCommandToLLB(node *StepNode, cmd plan.PathCommand, state llb.State) (llb.State, error) {
	node.OutputEnv.AddPath(cmd.Path)
	pathString := strings.Join(node.getPathList(), ":")

	return state.AddEnvf("PATH", "%s:%s", pathString, system.DefaultPathEnvUnix), nil
}

// convertCopyCommandToLLB copies from the local build context, or from an
// image when one is set. Directory sources copy their contents and relative
// destinations resolve against the work directory, matching what COPY does
// in a Dockerfile.
func (g *BuildGraph) convertCopyCommandToLLB(cmd plan.CopyCommand, state llb.State) (llb.State, error) {
	src := *g.LocalState
	if cmd.Image != "" {
		src = llb.Image(cmd.Image, llb.Platform(*g.Platform))
	}

	dest := cmd.Dest
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(g.workDir(), dest)
	}

	s := state.File(llb.Copy(src, cmd.Src, dest, &llb.CopyInfo{
		CreateDestPath:      true,
		FollowSymlinks:      true,
		CopyDirContentsOnly: true,
		AllowWildcard:       true,
		AllowEmptyWildcard:  true,
	}), llb.WithCustomNamef("copy %s", cmd.Src))

	return s, nil
}

// convertFileCommandToLLB writes a step asset to a file in the state.
func (g *BuildGraph) convertFileCommandToLLB(cmd plan.FileCommand, state llb.State, step *plan.Step) (llb.State, error) {
	asset, ok := step.Assets[cmd.Name]
	if !ok {
		return state, fmt.Errorf("step %s writes %s from unknown asset %s", step.Name, cmd.Path, cmd.Name)
	}

	filePath := cmd.Path
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(g.workDir(), filePath)
	}

	if parentDir := filepath.Dir(filePath); parentDir != "/" {
		state = state.File(llb.Mkdir(parentDir, 0755, llb.WithParents(true)))
	}

	var mode os.FileMode = 0644
	if cmd.Mode != 0 {
		mode = cmd.Mode
	}

	fileAction := llb.Mkfile(filePath, mode, []byte(asset))
	s := state.File(fileAction)
	if cmd.CustomName != "" {
		s = state.File(fileAction, llb.WithCustomName(cmd.CustomName))
	}

	return s, nil
}

func (g *BuildGraph) getSecretMountOptions(node *StepNode, secretOpts []llb.RunOption) []llb.RunOption {
	opts := []llb.RunOption{}

	// A file containing the secrets hash is mounted into the step so that
	// layers depending on it are invalidated when a secret value changes
	secretsState := llb.Image("alpine:latest").File(llb.Mkfile("/secrets-hash", 0644, []byte(g.SecretsHash)), llb.WithCustomName("invalidate cache on secrets hash change"))

	includesAllSecrets := false
	for _, secret := range *node.Step.Secrets {
		if secret == "*" {
			includesAllSecrets = true
			break
		}
	}

	if includesAllSecrets {
		secretsState = llb.Scratch().File(llb.Copy(secretsState, "/secrets-hash", "/secrets-hash"))
		opts = append(opts, llb.AddMount("/secrets-hash", secretsState))
	} else {
		// A step using only some of the secrets should not rebuild when an
		// unrelated secret changes, so hash just the ones it uses
		secretsWithDollar := make([]string, len(*node.Step.Secrets))
		for i, secret := range *node.Step.Secrets {
			secretsWithDollar[i] = "$" + secret
		}
		secretsString := strings.Join(secretsWithDollar, " ")

		usedSecretOpts := []llb.RunOption{llb.Shlexf("sh -c 'echo \"%s\" | sha256sum > /used-secrets-hash'", secretsString), llb.WithCustomName("hash used secrets")}
		usedSecretOpts = append(usedSecretOpts, secretOpts...) // the secrets must be mounted for the shell to expand them
		secretsState = secretsState.Run(usedSecretOpts...).Root()

		secretsState = llb.Scratch().File(llb.Copy(secretsState, "/used-secrets-hash", "/used-secrets-hash"))

		opts = append(opts, llb.AddMount("/secrets-hash", secretsState))
	}

	return opts
}

// getCacheMountOptions returns the run options mounting the given caches.
func (g *BuildGraph) getCacheMountOptions(cacheKeys []string) ([]llb.RunOption, error) {
	var opts []llb.RunOption

	for _, cacheKey := range cacheKeys {
		planCache, ok := g.Plan.Caches[cacheKey]
		if !ok {
			return nil, fmt.Errorf("cache %q not found", cacheKey)
		}

		cache := g.CacheStore.GetCache(cacheKey, planCache)
		cacheType := llb.CacheMountShared
		if planCache.Type == plan.CacheTypeLocked {
			cacheType = llb.CacheMountLocked
		}

		opts = append(opts,
			llb.AddMount(planCache.Directory, *cache.cacheState, llb.AsPersistentCacheDir(cache.cacheKey, cacheType)),
		)
	}
	return opts, nil
}

func (g *BuildGraph) workDir() string {
	if g.Plan.WorkDir != "" {
		return g.Plan.WorkDir
	}
	return plan.DefaultWorkDir
}
