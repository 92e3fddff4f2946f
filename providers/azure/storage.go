package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"

	"github.com/azlab-io/azlab/internal/ir"
	"github.com/azlab-io/azlab/internal/provider"
)

func (p *Provider) reconcileStorageAccount(ctx context.Context, target provider.Target, spec *ir.ResourceSpec) (*ir.DeploymentOutput, bool, error) {
	name := physicalName(target, spec)

	existing, err := p.accounts.GetProperties(ctx, target.ResourceGroup, name, nil)
	if err == nil {
		return storageOutput(&existing.Account), false, nil
	}
	if !isNotFound(err) {
		return nil, false, err
	}

	sku := spec.Prop("sku")
	if sku == "" {
		sku = string(armstorage.SKUNameStandardLRS)
	}
	params := armstorage.AccountCreateParameters{
		Kind:     to.Ptr(armstorage.KindStorageV2),
		Location: to.Ptr(target.Location),
		SKU:      &armstorage.SKU{Name: to.Ptr(armstorage.SKUName(sku))},
		Identity: &armstorage.Identity{Type: to.Ptr(armstorage.IdentityTypeSystemAssigned)},
		Properties: &armstorage.AccountPropertiesCreateParameters{
			AllowBlobPublicAccess: to.Ptr(spec.Prop("allowBlobPublicAccess") == "true"),
			MinimumTLSVersion:     to.Ptr(armstorage.MinimumTLSVersionTLS12),
		},
	}

	poller, err := p.accounts.BeginCreate(ctx, target.ResourceGroup, name, params, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	return storageOutput(&resp.Account), true, nil
}

func (p *Provider) reconcileBlobContainer(ctx context.Context, target provider.Target, spec *ir.ResourceSpec) (*ir.DeploymentOutput, bool, error) {
	account := spec.Prop("account")
	if account == "" {
		return nil, false, &ir.InvalidConfigurationError{Name: spec.LogicalName, Detail: "blob container requires an account property"}
	}
	name := physicalName(target, spec)

	existing, err := p.containers.Get(ctx, target.ResourceGroup, account, name, nil)
	if err == nil {
		return containerOutput(account, name, existing.ID), false, nil
	}
	if !isNotFound(err) {
		return nil, false, err
	}

	created, err := p.containers.Create(ctx, target.ResourceGroup, account, name, armstorage.BlobContainer{
		ContainerProperties: &armstorage.ContainerProperties{
			PublicAccess: to.Ptr(armstorage.PublicAccessNone),
		},
	}, nil)
	if err != nil {
		return nil, false, err
	}
	return containerOutput(account, name, created.ID), true, nil
}

func (p *Provider) discoverStorageAccounts(ctx context.Context, target provider.Target) ([]*ir.DeploymentOutput, error) {
	var found []*ir.DeploymentOutput
	pager := p.accounts.NewListByResourceGroupPager(target.ResourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, acct := range page.Value {
			found = append(found, storageOutput(acct))
		}
	}
	return found, nil
}

func (p *Provider) discoverBlobContainers(ctx context.Context, target provider.Target) ([]*ir.DeploymentOutput, error) {
	accounts, err := p.discoverStorageAccounts(ctx, target)
	if err != nil {
		return nil, err
	}

	var found []*ir.DeploymentOutput
	for _, acct := range accounts {
		pager := p.containers.NewListPager(target.ResourceGroup, acct.Name, nil)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			for _, item := range page.Value {
				found = append(found, containerOutput(acct.Name, deref(item.Name), item.ID))
			}
		}
	}
	return found, nil
}

// storageKeys builds the account connection string from the first key.
func (p *Provider) storageKeys(ctx context.Context, target provider.Target, res *ir.DeploymentOutput) (*provider.AccessKeys, error) {
	resp, err := p.accounts.ListKeys(ctx, target.ResourceGroup, res.Name, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Keys) == 0 || resp.Keys[0].Value == nil {
		return nil, fmt.Errorf("storage account returned no keys")
	}
	key := *resp.Keys[0].Value
	return &provider.AccessKeys{
		Primary: key,
		ConnectionString: fmt.Sprintf(
			"DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net", res.Name, key),
	}, nil
}

func storageOutput(acct *armstorage.Account) *ir.DeploymentOutput {
	out := &ir.DeploymentOutput{
		ID:   deref(acct.ID),
		Name: deref(acct.Name),
		Kind: ir.KindStorageAccount,
	}
	if acct.Identity != nil {
		out.PrincipalID = deref(acct.Identity.PrincipalID)
	}
	if acct.Properties != nil && acct.Properties.PrimaryEndpoints != nil {
		out.Endpoint = deref(acct.Properties.PrimaryEndpoints.Blob)
	}
	return out
}

func containerOutput(account, name string, id *string) *ir.DeploymentOutput {
	return &ir.DeploymentOutput{
		ID:    deref(id),
		Name:  name,
		Kind:  ir.KindBlobContainer,
		Extra: map[string]string{"account": account},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
