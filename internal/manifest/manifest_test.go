package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azlab-io/azlab/internal/ir"
)

func TestLoad_EmbeddedDefault(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "eastus", m.Location)

	kinds := make(map[ir.Kind]int)
	for _, spec := range m.Resources {
		kinds[spec.Kind]++
	}
	assert.Equal(t, 1, kinds[ir.KindStorageAccount])
	assert.Equal(t, 1, kinds[ir.KindBlobContainer])
	assert.Equal(t, 1, kinds[ir.KindSearchService])
	assert.Equal(t, 2, kinds[ir.KindCognitiveAccount])
	assert.Equal(t, 2, kinds[ir.KindModelDeployment])
	assert.Equal(t, 3, kinds[ir.KindRoleAssignment])
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lab.yaml")
	doc := `
location: westus2
resources:
  - name: storage
    kind: StorageAccount
    properties:
      sku: Standard_GRS
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "westus2", m.Location)
	require.Len(t, m.Resources, 1)
	assert.Equal(t, "Standard_GRS", m.Resources[0].Prop("sku"))
}

func TestValidate_UnknownSKU(t *testing.T) {
	m := &Manifest{Resources: []*ir.ResourceSpec{
		{LogicalName: "storage", Kind: ir.KindStorageAccount, Properties: map[string]any{"sku": "Ultra_XL"}},
	}}
	var cfgErr *ir.InvalidConfigurationError
	assert.ErrorAs(t, m.Validate(), &cfgErr)
}

func TestValidate_DuplicateName(t *testing.T) {
	m := &Manifest{Resources: []*ir.ResourceSpec{
		{LogicalName: "a", Kind: ir.KindStorageAccount},
		{LogicalName: "a", Kind: ir.KindSearchService},
	}}
	assert.Error(t, m.Validate())
}

func TestValidate_UnknownReferenceTarget(t *testing.T) {
	m := &Manifest{Resources: []*ir.ResourceSpec{
		{LogicalName: "ra", Kind: ir.KindRoleAssignment, Properties: map[string]any{
			"principalId": "out://ghost/principalId",
			"role":        "Storage Blob Data Reader",
		}},
	}}
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource")
}

func TestValidate_UnknownDependsOn(t *testing.T) {
	m := &Manifest{Resources: []*ir.ResourceSpec{
		{LogicalName: "c", Kind: ir.KindBlobContainer, DependsOn: []string{"nope"}},
	}}
	assert.Error(t, m.Validate())
}

func TestValidate_CognitiveAccountRequiresVariant(t *testing.T) {
	m := &Manifest{Resources: []*ir.ResourceSpec{
		{LogicalName: "ai", Kind: ir.KindCognitiveAccount, Properties: map[string]any{"sku": "S0"}},
	}}
	assert.Error(t, m.Validate())
}
