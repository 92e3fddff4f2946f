package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azlab-io/azlab/internal/engine"
	"github.com/azlab-io/azlab/internal/manifest"
)

func TestResolveTarget(t *testing.T) {
	flagSubscription = "00000000-0000-0000-0000-000000000000"
	flagResourceGroup = "rg-lab"
	flagLocation = ""
	defer func() { flagSubscription, flagResourceGroup = "", "" }()

	target, err := resolveTarget("eastus2")
	require.NoError(t, err)
	assert.Equal(t, "rg-lab", target.ResourceGroup)
	assert.Equal(t, "eastus2", target.Location, "manifest location fills in when no flag is set")

	flagLocation = "swedencentral"
	target, err = resolveTarget("eastus2")
	require.NoError(t, err)
	assert.Equal(t, "swedencentral", target.Location, "flag wins over manifest location")
	flagLocation = ""

	flagSubscription = ""
	_, err = resolveTarget("eastus2")
	assert.Error(t, err)

	flagSubscription = "00000000-0000-0000-0000-000000000000"
	flagResourceGroup = ""
	_, err = resolveTarget("eastus2")
	assert.Error(t, err)
}

func TestValidateDefaultManifest(t *testing.T) {
	validateManifest = ""
	err := runValidate(validateCmd, nil)
	assert.NoError(t, err)
}

func TestRenderDOT(t *testing.T) {
	m, err := manifest.Load("")
	require.NoError(t, err)
	dag, err := engine.BuildDAG(m.Resources)
	require.NoError(t, err)

	var buf bytes.Buffer
	renderDOT(&buf, m, dag)
	out := buf.String()

	assert.Contains(t, out, "digraph azlab {")
	for _, res := range m.Resources {
		assert.Contains(t, out, "\""+res.LogicalName+"\";")
	}
	// The default manifest wires containers and deployments to their accounts.
	assert.Contains(t, out, "->")
}
