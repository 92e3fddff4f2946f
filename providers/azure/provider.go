// Package azure realizes resource specs against Azure Resource Manager.
package azure

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/cognitiveservices/armcognitiveservices"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/search/armsearch"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"

	"github.com/azlab-io/azlab/internal/ir"
	"github.com/azlab-io/azlab/internal/provider"
)

// Provider reconciles resources through the ARM management plane. The
// credential and subscription are injected at construction; nothing is read
// from ambient process state.
type Provider struct {
	subscriptionID string

	groups      *armresources.ResourceGroupsClient
	accounts    *armstorage.AccountsClient
	containers  *armstorage.BlobContainersClient
	services    *armsearch.ServicesClient
	adminKeys   *armsearch.AdminKeysClient
	cognitive   *armcognitiveservices.AccountsClient
	deployments *armcognitiveservices.DeploymentsClient
	assignments *armauthorization.RoleAssignmentsClient
}

// New builds a provider with one client per service, sharing the credential.
func New(subscriptionID string, cred azcore.TokenCredential) (*Provider, error) {
	p := &Provider{subscriptionID: subscriptionID}

	var err error
	if p.groups, err = armresources.NewResourceGroupsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("failed to build resource groups client: %w", err)
	}
	if p.accounts, err = armstorage.NewAccountsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("failed to build storage accounts client: %w", err)
	}
	if p.containers, err = armstorage.NewBlobContainersClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("failed to build blob containers client: %w", err)
	}
	if p.services, err = armsearch.NewServicesClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("failed to build search services client: %w", err)
	}
	if p.adminKeys, err = armsearch.NewAdminKeysClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("failed to build search admin keys client: %w", err)
	}
	if p.cognitive, err = armcognitiveservices.NewAccountsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("failed to build cognitive accounts client: %w", err)
	}
	if p.deployments, err = armcognitiveservices.NewDeploymentsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("failed to build model deployments client: %w", err)
	}
	if p.assignments, err = armauthorization.NewRoleAssignmentsClient(subscriptionID, cred, nil); err != nil {
		return nil, fmt.Errorf("failed to build role assignments client: %w", err)
	}
	return p, nil
}

func (p *Provider) ScopeExists(ctx context.Context, target provider.Target) (bool, error) {
	resp, err := p.groups.CheckExistence(ctx, target.ResourceGroup, nil)
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (p *Provider) Reconcile(ctx context.Context, target provider.Target, spec *ir.ResourceSpec) (*ir.DeploymentOutput, bool, error) {
	switch spec.Kind {
	case ir.KindStorageAccount:
		return p.reconcileStorageAccount(ctx, target, spec)
	case ir.KindBlobContainer:
		return p.reconcileBlobContainer(ctx, target, spec)
	case ir.KindSearchService:
		return p.reconcileSearchService(ctx, target, spec)
	case ir.KindCognitiveAccount:
		return p.reconcileCognitiveAccount(ctx, target, spec)
	case ir.KindModelDeployment:
		return p.reconcileModelDeployment(ctx, target, spec)
	case ir.KindRoleAssignment:
		return p.reconcileRoleAssignment(ctx, spec)
	default:
		return nil, false, &ir.InvalidConfigurationError{Name: spec.LogicalName, Detail: fmt.Sprintf("kind %s not supported by the azure provider", spec.Kind)}
	}
}

func (p *Provider) Discover(ctx context.Context, target provider.Target, kind ir.Kind) ([]*ir.DeploymentOutput, error) {
	switch kind {
	case ir.KindStorageAccount:
		return p.discoverStorageAccounts(ctx, target)
	case ir.KindBlobContainer:
		return p.discoverBlobContainers(ctx, target)
	case ir.KindSearchService:
		return p.discoverSearchServices(ctx, target)
	case ir.KindCognitiveAccount:
		return p.discoverCognitiveAccounts(ctx, target)
	case ir.KindModelDeployment:
		return p.discoverModelDeployments(ctx, target)
	default:
		return nil, fmt.Errorf("kind %s is not discoverable", kind)
	}
}

func (p *Provider) AccessKeys(ctx context.Context, target provider.Target, res *ir.DeploymentOutput) (*provider.AccessKeys, error) {
	switch res.Kind {
	case ir.KindStorageAccount:
		return p.storageKeys(ctx, target, res)
	case ir.KindSearchService:
		return p.searchKeys(ctx, target, res)
	case ir.KindCognitiveAccount:
		return p.cognitiveKeys(ctx, target, res)
	default:
		return nil, fmt.Errorf("kind %s carries no access keys", res.Kind)
	}
}

// physicalName derives the platform name for a spec. Globally named kinds
// get a deterministic per-scope token appended so the same manifest can be
// realized in multiple scopes without collisions.
func physicalName(target provider.Target, spec *ir.ResourceSpec) string {
	name := spec.Prop("name")
	if name == "" {
		name = spec.LogicalName
		switch spec.Kind {
		case ir.KindStorageAccount, ir.KindSearchService, ir.KindCognitiveAccount:
			name += scopeToken(target)
		}
	}
	return ir.NormalizeName(spec.Kind, name)
}

// scopeToken is a short stable hash of the target scope.
func scopeToken(target provider.Target) string {
	sum := sha1.Sum([]byte(target.Scope()))
	return hex.EncodeToString(sum[:])[:10]
}

// intProp reads an integer property with a default.
func intProp(spec *ir.ResourceSpec, key string, def int32) int32 {
	raw := spec.Prop(key)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return def
	}
	return int32(n)
}

// isNotFound reports whether an ARM error is a plain 404.
func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}
