package azure

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"

	"github.com/azlab-io/azlab/internal/ir"
)

func (p *Provider) reconcileRoleAssignment(ctx context.Context, spec *ir.ResourceSpec) (*ir.DeploymentOutput, bool, error) {
	roleID, err := ir.RoleDefinitionID(spec.Prop("role"))
	if err != nil {
		return nil, false, err
	}
	assignment := &ir.RoleAssignment{
		PrincipalID:      spec.Prop("principalId"),
		PrincipalType:    ir.PrincipalType(spec.Prop("principalType")),
		RoleDefinitionID: ir.RoleDefinitionScope(p.subscriptionID, roleID),
		Scope:            spec.Prop("scope"),
	}
	if assignment.PrincipalType == "" {
		assignment.PrincipalType = ir.PrincipalServicePrincipal
	}

	created, err := p.createAssignment(ctx, assignment)
	if err != nil {
		return nil, false, err
	}
	name := assignment.Name()
	out := &ir.DeploymentOutput{
		ID:   assignment.Scope + "/providers/Microsoft.Authorization/roleAssignments/" + name,
		Name: name,
		Kind: ir.KindRoleAssignment,
	}
	return out, created, nil
}

func (p *Provider) Grant(ctx context.Context, assignment *ir.RoleAssignment) error {
	_, err := p.createAssignment(ctx, assignment)
	return err
}

// createAssignment submits a role assignment under its deterministic name.
// The platform answers a resubmission of an identical assignment with a
// conflict, which is treated as already converged.
func (p *Provider) createAssignment(ctx context.Context, assignment *ir.RoleAssignment) (bool, error) {
	params := armauthorization.RoleAssignmentCreateParameters{
		Properties: &armauthorization.RoleAssignmentProperties{
			PrincipalID:      to.Ptr(assignment.PrincipalID),
			PrincipalType:    to.Ptr(armauthorization.PrincipalType(assignment.PrincipalType)),
			RoleDefinitionID: to.Ptr(assignment.RoleDefinitionID),
		},
	}
	_, err := p.assignments.Create(ctx, assignment.Scope, assignment.Name(), params, nil)
	if err != nil {
		if isAssignmentExists(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isAssignmentExists(err error) bool {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	return respErr.StatusCode == 409 && respErr.ErrorCode == "RoleAssignmentExists"
}
