package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azlab-io/azlab/internal/artifact"
	"github.com/azlab-io/azlab/internal/ir"
	"github.com/azlab-io/azlab/internal/provider"
	"github.com/azlab-io/azlab/providers/fake"
)

var testTarget = provider.Target{
	SubscriptionID: "00000000-0000-0000-0000-000000000000",
	ResourceGroup:  "rg-lab511",
	Location:       "eastus",
}

func seededProvider() *fake.Provider {
	p := fake.New()
	p.AddScope("rg-lab511")
	scope := testTarget.Scope()
	p.Seed(&ir.DeploymentOutput{
		Kind: ir.KindSearchService, Name: "s1",
		ID:          scope + "/providers/Microsoft.Search/searchServices/s1",
		Endpoint:    "https://s1.search.windows.net",
		PrincipalID: "principal-s1",
	})
	p.Seed(&ir.DeploymentOutput{
		Kind: ir.KindCognitiveAccount, Variant: ir.VariantOpenAI, Name: "o1",
		ID:       scope + "/providers/Microsoft.CognitiveServices/accounts/o1",
		Endpoint: "https://o1.example",
	})
	p.Seed(&ir.DeploymentOutput{
		Kind: ir.KindCognitiveAccount, Variant: ir.VariantAIServices, Name: "a1",
		ID:       scope + "/providers/Microsoft.CognitiveServices/accounts/a1",
		Endpoint: "https://a1.cognitiveservices.azure.com/",
	})
	p.Seed(&ir.DeploymentOutput{
		Kind: ir.KindStorageAccount, Name: "st1",
		ID:       scope + "/providers/Microsoft.Storage/storageAccounts/st1",
		Endpoint: "https://st1.blob.core.windows.net/",
	})
	p.Seed(&ir.DeploymentOutput{
		Kind: ir.KindBlobContainer, Name: "documents",
		ID: scope + "/providers/Microsoft.Storage/storageAccounts/st1/blobServices/default/containers/documents",
	})
	return p
}

func runnerFor(t *testing.T, p *fake.Provider, keyless bool) (*Runner, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), ".env")
	return &Runner{
		Provider: p,
		Opts: Options{
			Target:      testTarget,
			Keyless:     keyless,
			PrincipalID: "11111111-1111-1111-1111-111111111111",
			OutPath:     out,
		},
	}, out
}

func TestRun_KeyedEndToEnd(t *testing.T) {
	r, out := runnerFor(t, seededProvider(), false)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Warnings())

	env, err := godotenv.Read(out)
	require.NoError(t, err)
	assert.Equal(t, "https://s1.search.windows.net", env[artifact.KeySearchEndpoint])
	assert.Equal(t, "https://o1.example", env[artifact.KeyOpenAIEndpoint])
	assert.Equal(t, "documents", env[artifact.KeyBlobContainerName])
	assert.Equal(t, "false", env[artifact.KeyKeyless])

	for _, key := range artifact.SecretKeys() {
		assert.NotEmpty(t, env[key], key)
	}
	assert.Contains(t, env[artifact.KeyBlobConnectionString], "AccountName=st1")
	assert.Contains(t, env[artifact.KeyDatasourceConnection], "ResourceId=")
}

func TestRun_KeylessLeavesSecretsEmpty(t *testing.T) {
	p := seededProvider()
	r, out := runnerFor(t, p, true)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Warnings())

	env, err := godotenv.Read(out)
	require.NoError(t, err)
	for _, key := range artifact.SecretKeys() {
		assert.Empty(t, env[key], key)
	}
	assert.Equal(t, "true", env[artifact.KeyKeyless])
	assert.Contains(t, env[artifact.KeyBlobConnectionString], "ResourceId=")

	// One grant per role, all against resource-level scopes.
	grants := p.Grants()
	assert.Len(t, grants, 5)
	for _, g := range grants {
		assert.Equal(t, "11111111-1111-1111-1111-111111111111", g.PrincipalID)
		assert.Contains(t, g.Scope, "/providers/")
	}
}

func TestRun_GrantFailureIsWarning(t *testing.T) {
	p := seededProvider()
	p.GrantErr = errors.New("RoleAssignmentUpdateNotPermitted")
	r, out := runnerFor(t, p, true)

	report, err := r.Run(context.Background())
	require.NoError(t, err, "grant failures must not abort setup")
	assert.Equal(t, 5, report.Warnings())

	// The artifact is still produced.
	_, statErr := os.Stat(out)
	assert.NoError(t, statErr)

	// Warnings carry a concrete remediation hint.
	for _, o := range report.Outcomes {
		if o.Status == StatusWarn {
			assert.Contains(t, o.Hint, "az role assignment create")
		}
	}
}

func TestRun_KeyRetrievalFailureIsFatal(t *testing.T) {
	p := seededProvider()
	p.KeysErr = errors.New("listKeys forbidden")
	r, _ := runnerFor(t, p, false)

	_, err := r.Run(context.Background())
	var callErr *ir.PlatformCallFailedError
	require.ErrorAs(t, err, &callErr)
}

func TestRun_ScopeNotFound(t *testing.T) {
	p := fake.New()
	r, _ := runnerFor(t, p, false)

	_, err := r.Run(context.Background())
	var scopeErr *ir.ScopeNotFoundError
	require.ErrorAs(t, err, &scopeErr)
	assert.Equal(t, "rg-lab511", scopeErr.Scope)
}

func TestRun_MissingResource(t *testing.T) {
	p := seededProvider()
	r, _ := runnerFor(t, p, false)
	r.Opts.SearchService = "does-not-exist"

	_, err := r.Run(context.Background())
	var missingErr *ir.MissingResourceError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, ir.KindSearchService, missingErr.Kind)
}

func TestRun_AmbiguousDiscoveryFailsLoudly(t *testing.T) {
	p := seededProvider()
	p.Seed(&ir.DeploymentOutput{
		Kind: ir.KindSearchService, Name: "s2",
		ID:       testTarget.Scope() + "/providers/Microsoft.Search/searchServices/s2",
		Endpoint: "https://s2.search.windows.net",
	})
	r, _ := runnerFor(t, p, false)

	_, err := r.Run(context.Background())
	var ambigErr *ir.AmbiguousResourceError
	require.ErrorAs(t, err, &ambigErr)
	assert.ElementsMatch(t, []string{"s1", "s2"}, ambigErr.Names)

	// Pinning the name resolves the ambiguity.
	r.Opts.SearchService = "s1"
	_, err = r.Run(context.Background())
	require.NoError(t, err)
}

func TestRun_DiscoveredDeploymentsFeedArtifact(t *testing.T) {
	p := seededProvider()
	scope := testTarget.Scope()
	p.Seed(&ir.DeploymentOutput{
		Kind: ir.KindModelDeployment, Name: "embed-large",
		ID:    scope + "/providers/Microsoft.CognitiveServices/accounts/o1/deployments/embed-large",
		Extra: map[string]string{"model": "text-embedding-3-large"},
	})
	p.Seed(&ir.DeploymentOutput{
		Kind: ir.KindModelDeployment, Name: "chat-mini",
		ID:    scope + "/providers/Microsoft.CognitiveServices/accounts/o1/deployments/chat-mini",
		Extra: map[string]string{"model": "gpt-4o-mini"},
	})
	r, out := runnerFor(t, p, false)

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	env, err := godotenv.Read(out)
	require.NoError(t, err)
	assert.Equal(t, "embed-large", env[artifact.KeyEmbeddingDeployment])
	assert.Equal(t, "text-embedding-3-large", env[artifact.KeyEmbeddingModelName])
	assert.Equal(t, "chat-mini", env[artifact.KeyChatDeployment])
	assert.Equal(t, "gpt-4o-mini", env[artifact.KeyChatModelName])
}

func TestRun_DataLoadFailureIsWarning(t *testing.T) {
	p := seededProvider()
	r, _ := runnerFor(t, p, false)
	dir := t.TempDir()
	r.Opts.DataLoadCmd = []string{"false"}
	r.Opts.DataLoadLog = filepath.Join(dir, "data_load.log")

	report, err := r.Run(context.Background())
	require.NoError(t, err, "data load failure must not abort setup")
	require.Equal(t, 1, report.Warnings())
	assert.Contains(t, report.Outcomes[len(report.Outcomes)-1].Detail, "data_load.log")
}

func TestRun_DataLoadReceivesArtifactEnv(t *testing.T) {
	p := seededProvider()
	r, _ := runnerFor(t, p, false)
	dir := t.TempDir()
	marker := filepath.Join(dir, "seen")
	r.Opts.DataLoadCmd = []string{"sh", "-c", "echo $AZURE_SEARCH_SERVICE_ENDPOINT > " + marker}
	r.Opts.DataLoadLog = filepath.Join(dir, "data_load.log")

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Warnings())

	content, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Contains(t, string(content), "https://s1.search.windows.net")
}
