package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/azlab-io/azlab/internal/ir"
	"github.com/azlab-io/azlab/internal/setup"
)

var (
	setupKeyless       bool
	setupPrincipalID   string
	setupPrincipalType string
	setupOut           string
	setupDataLoadCmd   string
	setupDataLoadLog   string

	setupSearchService  string
	setupOpenAI         string
	setupAIServices     string
	setupStorageAccount string
	setupContainer      string
	setupKnowledgeAgent string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Discover resources and produce the connection environment",
	Long: `Discovers the realized resources in the target resource group, grants the
invoking identity data-plane access in keyless mode (or retrieves access
keys otherwise), writes the .env artifact, and runs the data load command.

Discovery fails when a resource group holds more than one match for a
required kind; pin the intended resource by name in that case.`,
	RunE: runSetup,
}

func init() {
	f := setupCmd.Flags()
	f.BoolVar(&setupKeyless, "keyless", false, "Grant the invoking identity roles instead of retrieving keys")
	f.StringVar(&setupPrincipalID, "principal-id", "", "Object ID of the invoking identity (required with --keyless)")
	f.StringVar(&setupPrincipalType, "principal-type", string(ir.PrincipalUser), "Principal type of the invoking identity (User, ServicePrincipal)")
	f.StringVarP(&setupOut, "out", "o", ".env", "Artifact output path")
	f.StringVar(&setupDataLoadCmd, "data-load-cmd", "", "Shell command run with the artifact environment after setup")
	f.StringVar(&setupDataLoadLog, "data-load-log", "data_load.log", "File capturing data load output")

	f.StringVar(&setupSearchService, "search-service", "", "Pin the search service by name")
	f.StringVar(&setupOpenAI, "openai-account", "", "Pin the OpenAI account by name")
	f.StringVar(&setupAIServices, "ai-services-account", "", "Pin the AI services account by name")
	f.StringVar(&setupStorageAccount, "storage-account", "", "Pin the storage account by name")
	f.StringVar(&setupContainer, "container", "", "Pin the blob container by name")
	f.StringVar(&setupKnowledgeAgent, "knowledge-agent", setup.DefaultKnowledgeAgent, "Knowledge agent name written to the artifact")
}

func runSetup(cmd *cobra.Command, args []string) error {
	target, err := resolveTarget("")
	if err != nil {
		return err
	}
	if setupKeyless && setupPrincipalID == "" {
		return fmt.Errorf("--keyless requires --principal-id")
	}
	platform, err := platformProvider(target.SubscriptionID)
	if err != nil {
		return err
	}

	opts := setup.Options{
		Target:        target,
		Keyless:       setupKeyless,
		PrincipalID:   setupPrincipalID,
		PrincipalType: ir.PrincipalType(setupPrincipalType),
		OutPath:       setupOut,
		DataLoadLog:   setupDataLoadLog,

		SearchService:     setupSearchService,
		OpenAIAccount:     setupOpenAI,
		AIServicesAccount: setupAIServices,
		StorageAccount:    setupStorageAccount,
		Container:         setupContainer,
		KnowledgeAgent:    setupKnowledgeAgent,
	}
	if setupDataLoadCmd != "" {
		opts.DataLoadCmd = []string{"/bin/sh", "-c", setupDataLoadCmd}
	}

	runner := &setup.Runner{Provider: platform, Opts: opts}
	report, err := runner.Run(cmd.Context())
	report.Render(os.Stdout)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	if n := report.Warnings(); n > 0 {
		fmt.Printf("\nSetup finished with %d warnings. Artifact written to %s.\n", n, setupOut)
	} else {
		fmt.Printf("\nSetup complete. Artifact written to %s.\n", setupOut)
	}
	return nil
}
