// Package artifact builds and writes the environment file consumed by
// downstream tooling. The file is a stable contract: the documented keys
// below, one KEY=value per line, no quoting, fully regenerated on each run.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Documented keys. Exact names are part of the external contract.
const (
	KeySearchEndpoint       = "AZURE_SEARCH_SERVICE_ENDPOINT"
	KeySearchAdminKey       = "AZURE_SEARCH_ADMIN_KEY"
	KeyBlobConnectionString = "BLOB_CONNECTION_STRING"
	KeyBlobContainerName    = "BLOB_CONTAINER_NAME"
	KeyDatasourceConnection = "SEARCH_BLOB_DATASOURCE_CONNECTION_STRING"
	KeyBlobResourceID       = "BLOB_RESOURCE_ID"
	KeyDatasourceResourceID = "SEARCH_BLOB_DATASOURCE_RESOURCE_ID"
	KeyOpenAIEndpoint       = "AZURE_OPENAI_ENDPOINT"
	KeyOpenAIKey            = "AZURE_OPENAI_KEY"
	KeyEmbeddingDeployment  = "AZURE_OPENAI_EMBEDDING_DEPLOYMENT"
	KeyEmbeddingModelName   = "AZURE_OPENAI_EMBEDDING_MODEL_NAME"
	KeyChatDeployment       = "AZURE_OPENAI_CHATGPT_DEPLOYMENT"
	KeyChatModelName        = "AZURE_OPENAI_CHATGPT_MODEL_NAME"
	KeyAIServicesEndpoint   = "AI_SERVICES_ENDPOINT"
	KeyAIServicesKey        = "AI_SERVICES_KEY"
	KeyKnowledgeAgent       = "AZURE_SEARCH_KNOWLEDGE_AGENT"
	KeyUseVerbalization     = "USE_VERBALIZATION"
	KeyKeyless              = "KEYLESS"
)

// keyOrder fixes the line order so repeated runs produce byte-identical
// files for identical inputs.
var keyOrder = []string{
	KeySearchEndpoint,
	KeySearchAdminKey,
	KeyBlobConnectionString,
	KeyBlobContainerName,
	KeyDatasourceConnection,
	KeyBlobResourceID,
	KeyDatasourceResourceID,
	KeyOpenAIEndpoint,
	KeyOpenAIKey,
	KeyEmbeddingDeployment,
	KeyEmbeddingModelName,
	KeyChatDeployment,
	KeyChatModelName,
	KeyAIServicesEndpoint,
	KeyAIServicesKey,
	KeyKnowledgeAgent,
	KeyUseVerbalization,
	KeyKeyless,
}

// Artifact is the flat key/value environment mapping.
type Artifact struct {
	values map[string]string
}

func New() *Artifact {
	return &Artifact{values: make(map[string]string, len(keyOrder))}
}

func (a *Artifact) Set(key, value string) {
	a.values[key] = value
}

func (a *Artifact) Get(key string) string {
	return a.values[key]
}

// SecretKeys returns the documented keys carrying static secrets.
func SecretKeys() []string {
	var keys []string
	for _, k := range keyOrder {
		if strings.HasSuffix(k, "_KEY") {
			keys = append(keys, k)
		}
	}
	return keys
}

// Environ renders the artifact as KEY=value pairs suitable for exec.Cmd.Env.
func (a *Artifact) Environ() []string {
	env := make([]string, 0, len(keyOrder))
	for _, k := range keyOrder {
		env = append(env, k+"="+a.values[k])
	}
	return env
}

// Render produces the file content: every documented key on its own line,
// in fixed order, unset keys rendered empty.
func (a *Artifact) Render() []byte {
	var b strings.Builder
	for _, k := range keyOrder {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(a.values[k])
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Write atomically replaces the file at path: the content goes to a
// temporary file in the same directory first, then rename. An interrupted
// write never leaves a half-written secrets file behind.
func (a *Artifact) Write(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary artifact file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(a.Render()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace artifact at %s: %w", path, err)
	}
	return nil
}
