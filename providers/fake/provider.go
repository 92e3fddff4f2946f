// Package fake is an in-memory provider used by engine and setup tests.
// It mirrors the platform's put-or-update semantics: reconciling the same
// spec twice reports the second pass as unchanged.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/azlab-io/azlab/internal/ir"
	"github.com/azlab-io/azlab/internal/provider"
)

type Provider struct {
	mu        sync.Mutex
	scopes    map[string]bool
	resources map[string]*ir.DeploymentOutput // keyed by kind/name
	grants    map[string]*ir.RoleAssignment   // keyed by deterministic name

	// FailOn returns an injected error for a logical name during Reconcile.
	FailOn map[string]error
	// GrantErr, when set, makes every Grant call fail.
	GrantErr error
	// KeysErr, when set, makes every AccessKeys call fail.
	KeysErr error
}

func New() *Provider {
	return &Provider{
		scopes:    make(map[string]bool),
		resources: make(map[string]*ir.DeploymentOutput),
		grants:    make(map[string]*ir.RoleAssignment),
	}
}

// AddScope marks a resource group as existing.
func (p *Provider) AddScope(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scopes[name] = true
}

// Seed places a pre-existing resource in the fake platform, as if an
// earlier apply had created it.
func (p *Provider) Seed(out *ir.DeploymentOutput) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resources[key(out.Kind, out.Name)] = out
}

// Grants returns the role assignments recorded so far.
func (p *Provider) Grants() []*ir.RoleAssignment {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*ir.RoleAssignment, 0, len(p.grants))
	for _, g := range p.grants {
		out = append(out, g)
	}
	return out
}

func (p *Provider) ScopeExists(ctx context.Context, target provider.Target) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scopes[target.ResourceGroup], nil
}

func (p *Provider) Reconcile(ctx context.Context, target provider.Target, spec *ir.ResourceSpec) (*ir.DeploymentOutput, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.FailOn[spec.LogicalName]; ok {
		return nil, false, err
	}

	if spec.Kind == ir.KindRoleAssignment {
		return p.reconcileGrant(spec)
	}

	name := spec.Prop("name")
	if name == "" {
		name = spec.LogicalName
	}
	name = ir.NormalizeName(spec.Kind, name)

	k := key(spec.Kind, name)
	if existing, ok := p.resources[k]; ok {
		return existing, false, nil
	}

	out := synthesize(target, spec, name)
	p.resources[k] = out
	return out, true, nil
}

func (p *Provider) reconcileGrant(spec *ir.ResourceSpec) (*ir.DeploymentOutput, bool, error) {
	roleID, err := ir.RoleDefinitionID(spec.Prop("role"))
	if err != nil {
		return nil, false, err
	}
	assignment := &ir.RoleAssignment{
		PrincipalID:      spec.Prop("principalId"),
		PrincipalType:    ir.PrincipalType(spec.Prop("principalType")),
		RoleDefinitionID: roleID,
		Scope:            spec.Prop("scope"),
	}
	name := assignment.Name()
	out := &ir.DeploymentOutput{ID: assignment.Scope + "/providers/Microsoft.Authorization/roleAssignments/" + name, Name: name, Kind: ir.KindRoleAssignment}
	if _, ok := p.grants[name]; ok {
		return out, false, nil
	}
	p.grants[name] = assignment
	return out, true, nil
}

func (p *Provider) Discover(ctx context.Context, target provider.Target, kind ir.Kind) ([]*ir.DeploymentOutput, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var found []*ir.DeploymentOutput
	for _, out := range p.resources {
		if out.Kind == kind {
			found = append(found, out)
		}
	}
	return found, nil
}

func (p *Provider) AccessKeys(ctx context.Context, target provider.Target, res *ir.DeploymentOutput) (*provider.AccessKeys, error) {
	if p.KeysErr != nil {
		return nil, p.KeysErr
	}
	keys := &provider.AccessKeys{Primary: "key-" + res.Name}
	if res.Kind == ir.KindStorageAccount {
		keys.ConnectionString = fmt.Sprintf(
			"DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=key-%s;EndpointSuffix=core.windows.net", res.Name, res.Name)
	}
	return keys, nil
}

func (p *Provider) Grant(ctx context.Context, assignment *ir.RoleAssignment) error {
	if p.GrantErr != nil {
		return p.GrantErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grants[assignment.Name()] = assignment
	return nil
}

func key(kind ir.Kind, name string) string {
	return string(kind) + "/" + name
}

// synthesize fabricates the deployment output a real platform would return.
func synthesize(target provider.Target, spec *ir.ResourceSpec, name string) *ir.DeploymentOutput {
	out := &ir.DeploymentOutput{
		Name:    name,
		Kind:    spec.Kind,
		Variant: spec.Variant,
		Extra:   map[string]string{},
	}
	scope := target.Scope()
	switch spec.Kind {
	case ir.KindStorageAccount:
		out.ID = scope + "/providers/Microsoft.Storage/storageAccounts/" + name
		out.Endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", name)
		out.PrincipalID = "principal-" + name
	case ir.KindBlobContainer:
		account := spec.Prop("account")
		out.ID = scope + "/providers/Microsoft.Storage/storageAccounts/" + account + "/blobServices/default/containers/" + name
		out.Extra["account"] = account
	case ir.KindSearchService:
		out.ID = scope + "/providers/Microsoft.Search/searchServices/" + name
		out.Endpoint = fmt.Sprintf("https://%s.search.windows.net", name)
		out.PrincipalID = "principal-" + name
	case ir.KindCognitiveAccount:
		out.ID = scope + "/providers/Microsoft.CognitiveServices/accounts/" + name
		out.Endpoint = fmt.Sprintf("https://%s.openai.azure.com/", name)
		if spec.Variant == ir.VariantAIServices {
			out.Endpoint = fmt.Sprintf("https://%s.cognitiveservices.azure.com/", name)
		}
		out.PrincipalID = "principal-" + name
	case ir.KindModelDeployment:
		account := spec.Prop("account")
		out.ID = scope + "/providers/Microsoft.CognitiveServices/accounts/" + account + "/deployments/" + name
		out.Extra["account"] = account
		out.Extra["model"] = spec.Prop("model")
	}
	return out
}
