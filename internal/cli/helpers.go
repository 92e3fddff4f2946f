package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/azlab-io/azlab/internal/engine"
	"github.com/azlab-io/azlab/internal/ir"
	"github.com/azlab-io/azlab/internal/provider"
	"github.com/azlab-io/azlab/providers/azure"
)

// providers holds the platform implementations available to commands.
var providers = provider.NewRegistry()

// resolveTarget assembles the deployment target from the persistent flags.
func resolveTarget(defaultLocation string) (provider.Target, error) {
	if flagSubscription == "" {
		return provider.Target{}, fmt.Errorf("no subscription: set --subscription or AZURE_SUBSCRIPTION_ID")
	}
	if flagResourceGroup == "" {
		return provider.Target{}, fmt.Errorf("no resource group: set --resource-group")
	}
	location := flagLocation
	if location == "" {
		location = defaultLocation
	}
	return provider.Target{
		SubscriptionID: flagSubscription,
		ResourceGroup:  flagResourceGroup,
		Location:       location,
	}, nil
}

// platformProvider returns the registered platform provider, building and
// caching it on first use.
func platformProvider(subscriptionID string) (provider.Provider, error) {
	if p, err := providers.Get("azure"); err == nil {
		return p, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire credential: %w", err)
	}
	p, err := azure.New(subscriptionID, cred)
	if err != nil {
		return nil, err
	}
	providers.Register("azure", p)
	return p, nil
}

// renderEvent prints one reconciliation progress line.
func renderEvent(ev engine.Event) {
	switch ev.Status {
	case "created":
		fmt.Printf("\033[32m  + %s\033[0m (%s)\n", ev.Name, ev.Duration.Round(time.Millisecond))
	case "unchanged":
		fmt.Printf("    %s (unchanged)\n", ev.Name)
	case "failed":
		fmt.Printf("\033[31m  ! %s: %v\033[0m\n", ev.Name, ev.Err)
	case "skipped":
		fmt.Printf("\033[33m  - %s (skipped)\033[0m\n", ev.Name)
	}
}

// renderOutputs prints the realized resource identities in stable order.
func renderOutputs(outputs map[string]*ir.DeploymentOutput) {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nResources:")
	for _, name := range names {
		out := outputs[name]
		fmt.Printf("  %s = %s", name, out.Name)
		if out.Endpoint != "" {
			fmt.Printf(" (%s)", out.Endpoint)
		}
		fmt.Println()
	}
}
