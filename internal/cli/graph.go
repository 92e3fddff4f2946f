package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/azlab-io/azlab/internal/engine"
	"github.com/azlab-io/azlab/internal/manifest"
)

var graphManifest string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Output the dependency graph in DOT format",
	Long: `Generates a visual representation of the resource dependency graph
in Graphviz DOT format. Pipe the output to 'dot' to generate an image:

  azlab graph | dot -Tpng > graph.png`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVarP(&graphManifest, "manifest", "f", "", "Manifest path (defaults to the built-in lab manifest)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(graphManifest)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}

	dag, err := engine.BuildDAG(m.Resources)
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}

	renderDOT(os.Stdout, m, dag)
	return nil
}

func renderDOT(w io.Writer, m *manifest.Manifest, dag *engine.DAG) {
	fmt.Fprintln(w, "digraph azlab {")
	fmt.Fprintln(w, "  rankdir = \"BT\";")
	fmt.Fprintln(w, "  node [shape = rect];")
	fmt.Fprintln(w)

	for _, res := range m.Resources {
		fmt.Fprintf(w, "  %q;\n", res.LogicalName)
	}
	fmt.Fprintln(w)

	for _, res := range m.Resources {
		for _, dep := range dag.Dependencies(res.LogicalName) {
			fmt.Fprintf(w, "  %q -> %q;\n", res.LogicalName, dep)
		}
	}

	fmt.Fprintln(w, "}")
}
