package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/azlab-io/azlab/internal/engine"
	"github.com/azlab-io/azlab/internal/manifest"
)

var (
	applyManifest       string
	applyParallelism    int
	applyTimeout        time.Duration
	applyOverallTimeout time.Duration
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile the manifest into the target resource group",
	Long: `Reconciles every resource declared in the manifest into the target
resource group in dependency order. Resources that already exist are left
unchanged, so a rerun after a partial failure completes the remainder.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&applyManifest, "manifest", "f", "", "Manifest path (defaults to the built-in lab manifest)")
	applyCmd.Flags().IntVar(&applyParallelism, "parallelism", 1, "Maximum concurrent resource operations")
	applyCmd.Flags().DurationVar(&applyTimeout, "timeout", engine.DefaultCallTimeout, "Per-resource platform call timeout")
	applyCmd.Flags().DurationVar(&applyOverallTimeout, "overall-timeout", 0, "Deadline for the whole reconciliation pass (0 means none)")
}

func runApply(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(applyManifest)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	target, err := resolveTarget(m.Location)
	if err != nil {
		return err
	}
	platform, err := platformProvider(target.SubscriptionID)
	if err != nil {
		return err
	}

	fmt.Printf("Reconciling %d resources into %s...\n", len(m.Resources), target.ResourceGroup)

	ctx := cmd.Context()
	if applyOverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, applyOverallTimeout)
		defer cancel()
	}

	rec := &engine.Reconciler{
		Provider:    platform,
		Target:      target,
		Parallelism: applyParallelism,
		CallTimeout: applyTimeout,
		Retry:       engine.DefaultRetryPolicy(),
	}
	result, err := rec.Run(ctx, m.Resources, renderEvent)
	if result != nil && len(result.Outputs) > 0 {
		renderOutputs(result.Outputs)
	}
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	fmt.Printf("\nDone. Resources: %d created, %d unchanged.\n", result.Created, result.Unchanged)
	return nil
}
