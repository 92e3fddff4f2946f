package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/search/armsearch"

	"github.com/azlab-io/azlab/internal/ir"
	"github.com/azlab-io/azlab/internal/provider"
)

func (p *Provider) reconcileSearchService(ctx context.Context, target provider.Target, spec *ir.ResourceSpec) (*ir.DeploymentOutput, bool, error) {
	name := physicalName(target, spec)

	existing, err := p.services.Get(ctx, target.ResourceGroup, name, nil, nil)
	if err == nil {
		return searchOutput(&existing.Service), false, nil
	}
	if !isNotFound(err) {
		return nil, false, err
	}

	sku := spec.Prop("sku")
	if sku == "" {
		sku = string(armsearch.SKUNameBasic)
	}
	service := armsearch.Service{
		Location: to.Ptr(target.Location),
		SKU:      &armsearch.SKU{Name: to.Ptr(armsearch.SKUName(sku))},
		Identity: &armsearch.Identity{Type: to.Ptr(armsearch.IdentityTypeSystemAssigned)},
		Properties: &armsearch.ServiceProperties{
			ReplicaCount:   to.Ptr(intProp(spec, "replicaCount", 1)),
			PartitionCount: to.Ptr(intProp(spec, "partitionCount", 1)),
			AuthOptions: &armsearch.DataPlaneAuthOptions{
				AADOrAPIKey: &armsearch.DataPlaneAADOrAPIKeyAuthOption{
					AADAuthFailureMode: to.Ptr(armsearch.AADAuthFailureModeHttp401WithBearerChallenge),
				},
			},
		},
	}

	poller, err := p.services.BeginCreateOrUpdate(ctx, target.ResourceGroup, name, service, nil, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	return searchOutput(&resp.Service), true, nil
}

func (p *Provider) discoverSearchServices(ctx context.Context, target provider.Target) ([]*ir.DeploymentOutput, error) {
	var found []*ir.DeploymentOutput
	pager := p.services.NewListByResourceGroupPager(target.ResourceGroup, nil, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, svc := range page.Value {
			found = append(found, searchOutput(svc))
		}
	}
	return found, nil
}

func (p *Provider) searchKeys(ctx context.Context, target provider.Target, res *ir.DeploymentOutput) (*provider.AccessKeys, error) {
	resp, err := p.adminKeys.Get(ctx, target.ResourceGroup, res.Name, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.PrimaryKey == nil || *resp.PrimaryKey == "" {
		return nil, fmt.Errorf("search service returned no admin key")
	}
	return &provider.AccessKeys{Primary: *resp.PrimaryKey}, nil
}

// searchOutput derives the query endpoint from the service name. The
// management plane does not return the data-plane endpoint directly.
func searchOutput(svc *armsearch.Service) *ir.DeploymentOutput {
	out := &ir.DeploymentOutput{
		ID:       deref(svc.ID),
		Name:     deref(svc.Name),
		Kind:     ir.KindSearchService,
		Endpoint: fmt.Sprintf("https://%s.search.windows.net", deref(svc.Name)),
	}
	if svc.Identity != nil {
		out.PrincipalID = deref(svc.Identity.PrincipalID)
	}
	return out
}
