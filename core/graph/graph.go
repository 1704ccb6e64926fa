// Package graph implements the small directed graph used to order build
// steps. Parent edges point at dependencies, child edges at dependents.
package graph

import (
	"fmt"
)

type Node interface {
	GetName() string
	GetParents() []Node
	GetChildren() []Node
	SetParents([]Node)
	SetChildren([]Node)
}

// Graph is a directed graph keyed by node name. Nodes keep their insertion
// order so traversals are deterministic.
type Graph struct {
	nodes map[string]Node
	order []string
}

func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]Node)}
}

func (g *Graph) AddNode(node Node) {
	if _, exists := g.nodes[node.GetName()]; !exists {
		g.order = append(g.order, node.GetName())
	}
	g.nodes[node.GetName()] = node
}

func (g *Graph) GetNode(name string) (Node, bool) {
	node, ok := g.nodes[name]
	return node, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.order))
	for _, name := range g.order {
		nodes = append(nodes, g.nodes[name])
	}
	return nodes
}

// Link records parent as a dependency of child, wiring both edge directions.
func Link(parent, child Node) {
	parent.SetChildren(append(parent.GetChildren(), child))
	child.SetParents(append(child.GetParents(), parent))
}

// TopologicalOrder returns nodes ordered so that every node appears after
// all of its parents. Returns an error when the graph contains a cycle.
func (g *Graph) TopologicalOrder() ([]Node, error) {
	order := make([]Node, 0, len(g.nodes))
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	var visit func(node Node) error
	visit = func(node Node) error {
		name := node.GetName()
		if inStack[name] {
			return fmt.Errorf("dependency cycle involving %q", name)
		}
		if visited[name] {
			return nil
		}

		inStack[name] = true
		for _, parent := range node.GetParents() {
			if err := visit(parent); err != nil {
				return err
			}
		}
		delete(inStack, name)

		visited[name] = true
		order = append(order, node)
		return nil
	}

	for _, node := range g.Nodes() {
		if err := visit(node); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// PruneRedundantEdges drops parent edges that are already implied by another
// parent's ancestry, leaving each node with a minimal set of direct
// dependencies.
func (g *Graph) PruneRedundantEdges() {
	for _, node := range g.Nodes() {
		var direct []Node
		for _, parent := range node.GetParents() {
			if impliedByOtherParent(node, parent) {
				parent.SetChildren(removeNode(parent.GetChildren(), node))
				continue
			}
			direct = append(direct, parent)
		}
		node.SetParents(direct)
	}
}

func impliedByOtherParent(node, parent Node) bool {
	for _, other := range node.GetParents() {
		if other == parent {
			continue
		}
		if reachable(other, parent, map[string]bool{}) {
			return true
		}
	}
	return false
}

// reachable reports whether target can be reached from start by walking
// parent edges.
func reachable(start, target Node, seen map[string]bool) bool {
	if start == target {
		return true
	}
	for _, parent := range start.GetParents() {
		if seen[parent.GetName()] {
			continue
		}
		seen[parent.GetName()] = true
		if reachable(parent, target, seen) {
			return true
		}
	}
	return false
}

func removeNode(nodes []Node, target Node) []Node {
	result := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n != target {
			result = append(result, n)
		}
	}
	return result
}
