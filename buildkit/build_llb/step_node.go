package build_llb

import (
	"github.com/moby/buildkit/client/llb"
	"github.com/slipway-dev/slipway/core/graph"
	"github.com/slipway-dev/slipway/core/plan"
)

// StepNode wraps a plan step for graph traversal and carries the LLB state
// produced for it.
type StepNode struct {
	Step       *plan.Step
	State      *llb.State
	parents    []graph.Node
	children   []graph.Node
	Processed  bool
	InProgress bool

	// InputEnv is the environment inherited from parent steps, OutputEnv the
	// environment this step passes on. Merged filesystems drop state-level
	// env, so both are tracked explicitly.
	InputEnv  BuildEnvironment
	OutputEnv BuildEnvironment
}

func (n *StepNode) GetName() string {
	return n.Step.Name
}

func (n *StepNode) GetParents() []graph.Node {
	return n.parents
}

func (n *StepNode) GetChildren() []graph.Node {
	return n.children
}

func (n *StepNode) SetParents(parents []graph.Node) {
	n.parents = parents
}

func (n *StepNode) SetChildren(children []graph.Node) {
	n.children = children
}

func (n *StepNode) getPathList() []string {
	pathList := make([]string, 0, len(n.InputEnv.PathList)+len(n.OutputEnv.PathList))
	pathList = append(pathList, n.InputEnv.PathList...)
	pathList = append(pathList, n.OutputEnv.PathList...)
	return pathList
}
