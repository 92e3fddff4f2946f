package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/cognitiveservices/armcognitiveservices"

	"github.com/azlab-io/azlab/internal/ir"
	"github.com/azlab-io/azlab/internal/provider"
)

// accountKinds maps manifest variants to platform account kinds.
var accountKinds = map[string]string{
	ir.VariantOpenAI:     "OpenAI",
	ir.VariantAIServices: "AIServices",
	ir.VariantMulti:      "CognitiveServices",
}

func (p *Provider) reconcileCognitiveAccount(ctx context.Context, target provider.Target, spec *ir.ResourceSpec) (*ir.DeploymentOutput, bool, error) {
	kind, ok := accountKinds[spec.Variant]
	if !ok {
		return nil, false, &ir.InvalidConfigurationError{Name: spec.LogicalName, Detail: fmt.Sprintf("unknown account variant %q", spec.Variant)}
	}
	name := physicalName(target, spec)

	existing, err := p.cognitive.Get(ctx, target.ResourceGroup, name, nil)
	if err == nil {
		return cognitiveOutput(&existing.Account), false, nil
	}
	if !isNotFound(err) {
		return nil, false, err
	}

	sku := spec.Prop("sku")
	if sku == "" {
		sku = "S0"
	}
	account := armcognitiveservices.Account{
		Kind:     to.Ptr(kind),
		Location: to.Ptr(target.Location),
		SKU:      &armcognitiveservices.SKU{Name: to.Ptr(sku)},
		Identity: &armcognitiveservices.Identity{Type: to.Ptr(armcognitiveservices.ResourceIdentityTypeSystemAssigned)},
		Properties: &armcognitiveservices.AccountProperties{
			// Keyless token auth requires a custom subdomain.
			CustomSubDomainName: to.Ptr(name),
			PublicNetworkAccess: to.Ptr(armcognitiveservices.PublicNetworkAccessEnabled),
		},
	}

	poller, err := p.cognitive.BeginCreate(ctx, target.ResourceGroup, name, account, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	return cognitiveOutput(&resp.Account), true, nil
}

func (p *Provider) reconcileModelDeployment(ctx context.Context, target provider.Target, spec *ir.ResourceSpec) (*ir.DeploymentOutput, bool, error) {
	account := spec.Prop("account")
	if account == "" {
		return nil, false, &ir.InvalidConfigurationError{Name: spec.LogicalName, Detail: "model deployment requires an account property"}
	}
	name := physicalName(target, spec)

	existing, err := p.deployments.Get(ctx, target.ResourceGroup, account, name, nil)
	if err == nil {
		return deploymentOutput(account, &existing.Deployment), false, nil
	}
	if !isNotFound(err) {
		return nil, false, err
	}

	format := spec.Prop("format")
	if format == "" {
		format = "OpenAI"
	}
	sku := spec.Prop("sku")
	if sku == "" {
		sku = "Standard"
	}
	deployment := armcognitiveservices.Deployment{
		SKU: &armcognitiveservices.SKU{
			Name:     to.Ptr(sku),
			Capacity: to.Ptr(intProp(spec, "capacity", 30)),
		},
		Properties: &armcognitiveservices.DeploymentProperties{
			Model: &armcognitiveservices.DeploymentModel{
				Format:  to.Ptr(format),
				Name:    to.Ptr(spec.Prop("model")),
				Version: to.Ptr(spec.Prop("modelVersion")),
			},
		},
	}

	poller, err := p.deployments.BeginCreateOrUpdate(ctx, target.ResourceGroup, account, name, deployment, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	return deploymentOutput(account, &resp.Deployment), true, nil
}

func (p *Provider) discoverCognitiveAccounts(ctx context.Context, target provider.Target) ([]*ir.DeploymentOutput, error) {
	var found []*ir.DeploymentOutput
	pager := p.cognitive.NewListByResourceGroupPager(target.ResourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, acct := range page.Value {
			found = append(found, cognitiveOutput(acct))
		}
	}
	return found, nil
}

func (p *Provider) discoverModelDeployments(ctx context.Context, target provider.Target) ([]*ir.DeploymentOutput, error) {
	accounts, err := p.discoverCognitiveAccounts(ctx, target)
	if err != nil {
		return nil, err
	}

	var found []*ir.DeploymentOutput
	for _, acct := range accounts {
		pager := p.deployments.NewListPager(target.ResourceGroup, acct.Name, nil)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			for _, d := range page.Value {
				found = append(found, deploymentOutput(acct.Name, d))
			}
		}
	}
	return found, nil
}

func (p *Provider) cognitiveKeys(ctx context.Context, target provider.Target, res *ir.DeploymentOutput) (*provider.AccessKeys, error) {
	resp, err := p.cognitive.ListKeys(ctx, target.ResourceGroup, res.Name, nil)
	if err != nil {
		return nil, err
	}
	if resp.Key1 == nil || *resp.Key1 == "" {
		return nil, fmt.Errorf("account returned no keys")
	}
	return &provider.AccessKeys{Primary: *resp.Key1}, nil
}

func cognitiveOutput(acct *armcognitiveservices.Account) *ir.DeploymentOutput {
	out := &ir.DeploymentOutput{
		ID:   deref(acct.ID),
		Name: deref(acct.Name),
		Kind: ir.KindCognitiveAccount,
	}
	switch deref(acct.Kind) {
	case "OpenAI":
		out.Variant = ir.VariantOpenAI
	case "AIServices":
		out.Variant = ir.VariantAIServices
	case "CognitiveServices":
		out.Variant = ir.VariantMulti
	}
	if acct.Identity != nil {
		out.PrincipalID = deref(acct.Identity.PrincipalID)
	}
	if acct.Properties != nil {
		out.Endpoint = deref(acct.Properties.Endpoint)
	}
	return out
}

func deploymentOutput(account string, d *armcognitiveservices.Deployment) *ir.DeploymentOutput {
	out := &ir.DeploymentOutput{
		ID:    deref(d.ID),
		Name:  deref(d.Name),
		Kind:  ir.KindModelDeployment,
		Extra: map[string]string{"account": account},
	}
	if d.Properties != nil && d.Properties.Model != nil {
		out.Extra["model"] = deref(d.Properties.Model.Name)
		out.Extra["version"] = deref(d.Properties.Model.Version)
	}
	return out
}
