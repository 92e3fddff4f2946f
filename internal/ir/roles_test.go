package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleAssignmentName_Deterministic(t *testing.T) {
	a := &RoleAssignment{
		PrincipalID:      "11111111-1111-1111-1111-111111111111",
		PrincipalType:    PrincipalServicePrincipal,
		RoleDefinitionID: "2a2b9908-6ea1-4ae2-8e65-a410df84e7d1",
		Scope:            "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Storage/storageAccounts/st1",
	}
	b := &RoleAssignment{
		PrincipalID:      a.PrincipalID,
		PrincipalType:    a.PrincipalType,
		RoleDefinitionID: a.RoleDefinitionID,
		Scope:            a.Scope,
	}
	assert.Equal(t, a.Name(), b.Name())

	// A different scope must yield a different identifier.
	b.Scope = "/subscriptions/s/resourceGroups/rg"
	assert.NotEqual(t, a.Name(), b.Name())
}

func TestRoleDefinitionID_Known(t *testing.T) {
	id, err := RoleDefinitionID("Storage Blob Data Reader")
	require.NoError(t, err)
	assert.Equal(t, "2a2b9908-6ea1-4ae2-8e65-a410df84e7d1", id)
}

func TestRoleDefinitionID_Unknown(t *testing.T) {
	_, err := RoleDefinitionID("Grand Vizier")
	var cfgErr *InvalidConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRoleDefinitionScope(t *testing.T) {
	got := RoleDefinitionScope("sub-1", "abc")
	assert.Equal(t, "/subscriptions/sub-1/providers/Microsoft.Authorization/roleDefinitions/abc", got)
}
