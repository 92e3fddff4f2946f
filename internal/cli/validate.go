package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azlab-io/azlab/internal/engine"
	"github.com/azlab-io/azlab/internal/manifest"
)

var validateManifest string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a manifest without touching the platform",
	Long:  `Checks the manifest for unknown kinds and SKUs, duplicate names, dangling references, and dependency cycles.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateManifest, "manifest", "f", "", "Manifest path (defaults to the built-in lab manifest)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Print("Validating manifest... ")

	m, err := manifest.Load(validateManifest)
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	if err := m.Validate(); err != nil {
		fmt.Println("FAILED")
		return err
	}
	if _, err := engine.BuildDAG(m.Resources); err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("OK")

	fmt.Printf("\nManifest is valid: %d resources.\n", len(m.Resources))
	return nil
}
