package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/azlab-io/azlab/internal/logging"
)

var (
	flagSubscription  string
	flagResourceGroup string
	flagLocation      string
	flagLogLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "azlab",
	Short: "Declarative provisioning for AI lab environments",
	Long: `Azlab reconciles a declared set of cloud resources into a resource group
and prepares the connection environment for the applications that use them.

It provides:
  • A declarative YAML manifest with cross-resource references
  • Idempotent, dependency-ordered reconciliation
  • A post-provision setup step producing a ready-to-use .env artifact`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(flagLogLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagSubscription, "subscription", os.Getenv("AZURE_SUBSCRIPTION_ID"), "Subscription ID (defaults to AZURE_SUBSCRIPTION_ID)")
	pf.StringVarP(&flagResourceGroup, "resource-group", "g", "", "Target resource group")
	pf.StringVar(&flagLocation, "location", "", "Region for created resources (defaults to the manifest location)")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(versionCmd)
}
