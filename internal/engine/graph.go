package engine

import (
	"github.com/azlab-io/azlab/internal/ir"
)

// DAG is the dependency graph over declared resources. Edges run from a
// resource to the resources it depends on, both explicit dependsOn entries
// and implicit out:// references inside property values.
type DAG struct {
	nodes map[string]*dagNode
	names []string // declaration order
	order []string // topological creation order
}

type dagNode struct {
	name  string
	edges []string // dependencies
}

// dfs tri-state
const (
	unvisited = iota
	visiting
	done
)

// BuildDAG constructs the graph and computes a creation order. Resources
// with no ordering constraint between them keep their declaration order, so
// repeated evaluations of the same manifest yield the same order.
func BuildDAG(specs []*ir.ResourceSpec) (*DAG, error) {
	dag := &DAG{nodes: make(map[string]*dagNode, len(specs))}

	for _, spec := range specs {
		dag.names = append(dag.names, spec.LogicalName)
		dag.nodes[spec.LogicalName] = &dagNode{name: spec.LogicalName}
	}

	for _, spec := range specs {
		node := dag.nodes[spec.LogicalName]
		seen := make(map[string]bool)

		for _, dep := range spec.DependsOn {
			if _, ok := dag.nodes[dep]; ok && !seen[dep] {
				seen[dep] = true
				node.edges = append(node.edges, dep)
			}
		}
		for _, ref := range ir.ExtractRefs(spec.Properties) {
			dep, _, ok := ir.ParseRef(ref)
			if !ok {
				continue
			}
			if _, exists := dag.nodes[dep]; exists && !seen[dep] && dep != spec.LogicalName {
				seen[dep] = true
				node.edges = append(node.edges, dep)
			}
		}
	}

	order, err := dag.topoSort()
	if err != nil {
		return nil, err
	}
	dag.order = order
	return dag, nil
}

// CreationOrder returns resource names such that every dependency precedes
// its dependents.
func (d *DAG) CreationOrder() []string {
	return d.order
}

// Dependencies returns the direct dependencies of a resource.
func (d *DAG) Dependencies(name string) []string {
	if node, ok := d.nodes[name]; ok {
		return node.edges
	}
	return nil
}

// topoSort is a depth-first topological sort with a visiting/visited
// tri-state. Reaching a node that is currently on the stack means a cycle;
// the stack suffix from that node is the cycle's membership.
func (d *DAG) topoSort() ([]string, error) {
	state := make(map[string]int, len(d.nodes))
	var order []string
	var stack []string

	var visit func(name string) *ir.CyclicDependencyError
	visit = func(name string) *ir.CyclicDependencyError {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return &ir.CyclicDependencyError{Members: cycleFrom(stack, name)}
		}
		state[name] = visiting
		stack = append(stack, name)
		for _, dep := range d.nodes[name].edges {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range d.names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// cycleFrom extracts the cycle members from the DFS stack, starting at the
// first occurrence of the revisited node.
func cycleFrom(stack []string, name string) []string {
	for i, n := range stack {
		if n == name {
			members := make([]string, 0, len(stack)-i+1)
			members = append(members, stack[i:]...)
			return append(members, name)
		}
	}
	return []string{name}
}
