package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azlab-io/azlab/internal/ir"
)

func TestBuildDAG_NoDependencies(t *testing.T) {
	specs := []*ir.ResourceSpec{
		{LogicalName: "a", Kind: ir.KindStorageAccount},
		{LogicalName: "b", Kind: ir.KindSearchService},
		{LogicalName: "c", Kind: ir.KindCognitiveAccount, Variant: ir.VariantOpenAI},
	}

	dag, err := BuildDAG(specs)
	require.NoError(t, err)

	// No constraints: declaration order is preserved.
	assert.Equal(t, []string{"a", "b", "c"}, dag.CreationOrder())
}

func TestBuildDAG_ExplicitDependsOn(t *testing.T) {
	specs := []*ir.ResourceSpec{
		{LogicalName: "a", Kind: ir.KindBlobContainer, DependsOn: []string{"b"}},
		{LogicalName: "b", Kind: ir.KindStorageAccount},
		{LogicalName: "c", Kind: ir.KindRoleAssignment, DependsOn: []string{"a"}},
	}

	dag, err := BuildDAG(specs)
	require.NoError(t, err)

	order := dag.CreationOrder()
	require.Len(t, order, 3)
	assert.Less(t, indexOf(order, "b"), indexOf(order, "a"))
	assert.Less(t, indexOf(order, "a"), indexOf(order, "c"))
}

func TestBuildDAG_ImplicitReference(t *testing.T) {
	specs := []*ir.ResourceSpec{
		{
			LogicalName: "grant",
			Kind:        ir.KindRoleAssignment,
			Properties: map[string]any{
				"principalId": "out://search/principalId",
				"scope":       "out://storage/id",
			},
		},
		{LogicalName: "search", Kind: ir.KindSearchService},
		{LogicalName: "storage", Kind: ir.KindStorageAccount},
	}

	dag, err := BuildDAG(specs)
	require.NoError(t, err)

	order := dag.CreationOrder()
	require.Len(t, order, 3)
	assert.Less(t, indexOf(order, "search"), indexOf(order, "grant"))
	assert.Less(t, indexOf(order, "storage"), indexOf(order, "grant"))

	deps := dag.Dependencies("grant")
	assert.ElementsMatch(t, []string{"search", "storage"}, deps)
}

func TestBuildDAG_CycleDetection(t *testing.T) {
	specs := []*ir.ResourceSpec{
		{LogicalName: "a", Kind: ir.KindStorageAccount, DependsOn: []string{"b"}},
		{LogicalName: "b", Kind: ir.KindSearchService, DependsOn: []string{"c"}},
		{LogicalName: "c", Kind: ir.KindBlobContainer, DependsOn: []string{"a"}},
	}

	_, err := BuildDAG(specs)
	var cycleErr *ir.CyclicDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.Contains(t, cycleErr.Members, "a")
	assert.Contains(t, cycleErr.Members, "b")
	assert.Contains(t, cycleErr.Members, "c")
}

func TestBuildDAG_SelfReferenceIgnored(t *testing.T) {
	specs := []*ir.ResourceSpec{
		{LogicalName: "a", Kind: ir.KindStorageAccount, Properties: map[string]any{
			"tag": "out://a/name",
		}},
	}

	dag, err := BuildDAG(specs)
	require.NoError(t, err)
	assert.Empty(t, dag.Dependencies("a"))
}

func TestBuildDAG_Deterministic(t *testing.T) {
	specs := []*ir.ResourceSpec{
		{LogicalName: "z", Kind: ir.KindStorageAccount},
		{LogicalName: "m", Kind: ir.KindSearchService},
		{LogicalName: "a", Kind: ir.KindBlobContainer, DependsOn: []string{"z"}},
	}

	first, err := BuildDAG(specs)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := BuildDAG(specs)
		require.NoError(t, err)
		assert.Equal(t, first.CreationOrder(), again.CreationOrder())
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
