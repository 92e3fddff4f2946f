package ir

import (
	"fmt"

	"github.com/google/uuid"
)

// PrincipalType distinguishes human users from service identities.
type PrincipalType string

const (
	PrincipalUser             PrincipalType = "User"
	PrincipalServicePrincipal PrincipalType = "ServicePrincipal"
)

// RoleAssignment binds a principal to a role definition over a scope.
type RoleAssignment struct {
	PrincipalID      string
	PrincipalType    PrincipalType
	RoleDefinitionID string
	Scope            string
}

// assignmentNamespace seeds the deterministic assignment names. Fixed so
// the same logical grant always maps to the same identifier across runs,
// which lets the platform treat a resubmission as a no-op update.
var assignmentNamespace = uuid.MustParse("8f1b8b6e-30d9-4b6a-9a93-6c2f04f6dd21")

// Name returns the deterministic assignment identifier derived from
// (scope, principalId, roleDefinitionId).
func (a *RoleAssignment) Name() string {
	seed := fmt.Sprintf("%s|%s|%s", a.Scope, a.PrincipalID, a.RoleDefinitionID)
	return uuid.NewSHA1(assignmentNamespace, []byte(seed)).String()
}

// Built-in role definition IDs, keyed by role name as it appears in
// manifests. The IDs are the platform's well-known GUIDs.
var builtinRoles = map[string]string{
	"Storage Blob Data Reader":       "2a2b9908-6ea1-4ae2-8e65-a410df84e7d1",
	"Storage Blob Data Contributor":  "ba92f5b4-2d11-453d-a403-e96b0029c9fe",
	"Search Index Data Reader":       "1407120a-92aa-4202-b7e9-c0e197c71c8f",
	"Search Index Data Contributor":  "8ebe5a00-799e-43f5-93ac-243d3dce84a7",
	"Search Service Contributor":     "7ca78c08-252a-4471-8644-bb5ff32d4ba0",
	"Cognitive Services OpenAI User": "5e0bd9bd-7b93-4f28-af87-19fc36ad61bd",
	"Cognitive Services User":        "a97b65f3-24c7-4388-baec-2e87135dc908",
	"Cognitive Services Contributor": "25fbc0a9-bd7c-42a3-aa1a-3b75d497ee68",
}

// RoleDefinitionID maps a built-in role name to its definition GUID.
func RoleDefinitionID(roleName string) (string, error) {
	id, ok := builtinRoles[roleName]
	if !ok {
		return "", &InvalidConfigurationError{Detail: fmt.Sprintf("unknown role %q", roleName)}
	}
	return id, nil
}

// RoleDefinitionScope renders the fully qualified role definition resource ID.
func RoleDefinitionScope(subscriptionID, definitionID string) string {
	return fmt.Sprintf("/subscriptions/%s/providers/Microsoft.Authorization/roleDefinitions/%s", subscriptionID, definitionID)
}
