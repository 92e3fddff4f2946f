// Package provider defines the contract between the reconciliation engine
// and a concrete platform implementation.
package provider

import (
	"context"

	"github.com/azlab-io/azlab/internal/ir"
)

// Target identifies the scope resources are realized in. It is threaded
// explicitly through every call instead of living in process-wide state so
// the engine and setup procedure are testable against fakes.
type Target struct {
	SubscriptionID string
	ResourceGroup  string
	Location       string
}

// Scope renders the resource-group scope as a fully qualified resource ID.
func (t Target) Scope() string {
	return "/subscriptions/" + t.SubscriptionID + "/resourceGroups/" + t.ResourceGroup
}

// AccessKeys holds the static secrets retrieved for a discovered resource
// in keyed mode. Values must never be logged or embedded in errors.
type AccessKeys struct {
	Primary          string
	ConnectionString string
}

// Provider realizes declared resources against a platform. Reconcile has
// put-or-update semantics: the returned bool reports whether the resource
// was created (true) or already existed in matching shape (false).
// Property references are resolved by the engine before Reconcile is called.
type Provider interface {
	ScopeExists(ctx context.Context, target Target) (bool, error)
	Reconcile(ctx context.Context, target Target, spec *ir.ResourceSpec) (*ir.DeploymentOutput, bool, error)
	Discover(ctx context.Context, target Target, kind ir.Kind) ([]*ir.DeploymentOutput, error)
	AccessKeys(ctx context.Context, target Target, res *ir.DeploymentOutput) (*AccessKeys, error)
	Grant(ctx context.Context, assignment *ir.RoleAssignment) error
}
