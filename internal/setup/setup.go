// Package setup implements the post-provision access procedure: discover
// the realized resources in a scope, grant the invoking identity access in
// keyless mode, produce the environment artifact, and kick off the
// downstream data load.
package setup

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/azlab-io/azlab/internal/artifact"
	"github.com/azlab-io/azlab/internal/ir"
	"github.com/azlab-io/azlab/internal/logging"
	"github.com/azlab-io/azlab/internal/provider"
)

// Defaults for the model deployment keys when no deployment is discovered.
const (
	DefaultEmbeddingModel = "text-embedding-3-large"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultKnowledgeAgent = "knowledge-agent"
)

// Options configures a setup run. The invoking identity is passed
// explicitly; nothing is read from ambient process state.
type Options struct {
	Target        provider.Target
	Keyless       bool
	PrincipalID   string // invoking identity, required in keyless mode
	PrincipalType ir.PrincipalType

	OutPath     string // artifact path, default ".env"
	DataLoadCmd []string
	DataLoadLog string // default "data_load.log"

	// Explicit resource names. Discovery fails loudly on multiple matches
	// of a kind unless the matching name is pinned here.
	SearchService     string
	OpenAIAccount     string
	AIServicesAccount string
	StorageAccount    string
	Container         string

	KnowledgeAgent string
}

// Runner executes the setup procedure against a provider.
type Runner struct {
	Provider provider.Provider
	Opts     Options
}

type discovered struct {
	search     *ir.DeploymentOutput
	openai     *ir.DeploymentOutput
	aiservices *ir.DeploymentOutput
	storage    *ir.DeploymentOutput
	container  *ir.DeploymentOutput
	embedding  *ir.DeploymentOutput
	chat       *ir.DeploymentOutput
}

// Run performs the full procedure. Fatal conditions (missing scope, missing
// required resource, failed key retrieval in keyed mode, artifact write
// failure) return an error; grant and data-load failures are recorded as
// warnings in the returned report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	opts := &r.Opts
	if opts.OutPath == "" {
		opts.OutPath = ".env"
	}
	if opts.DataLoadLog == "" {
		opts.DataLoadLog = "data_load.log"
	}
	if opts.PrincipalType == "" {
		opts.PrincipalType = ir.PrincipalUser
	}
	if opts.KnowledgeAgent == "" {
		opts.KnowledgeAgent = DefaultKnowledgeAgent
	}

	exists, err := r.Provider.ScopeExists(ctx, opts.Target)
	if err != nil {
		return report, &ir.PlatformCallFailedError{Op: "check scope", Cause: err}
	}
	if !exists {
		return report, &ir.ScopeNotFoundError{Scope: opts.Target.ResourceGroup}
	}
	report.ok("scope", fmt.Sprintf("resource group %s found", opts.Target.ResourceGroup))

	found, err := r.discover(ctx)
	if err != nil {
		return report, err
	}
	report.ok("discovery", fmt.Sprintf("search=%s openai=%s aiservices=%s storage=%s",
		found.search.Name, found.openai.Name, found.aiservices.Name, found.storage.Name))

	a := artifact.New()
	if opts.Keyless {
		r.grantInvokingIdentity(ctx, found, report)
	} else {
		if err := r.retrieveKeys(ctx, found, a); err != nil {
			return report, err
		}
	}

	r.populate(a, found)

	if err := a.Write(opts.OutPath); err != nil {
		return report, fmt.Errorf("failed to write environment artifact: %w", err)
	}
	report.ok("artifact", fmt.Sprintf("wrote %s", opts.OutPath))

	r.runDataLoad(ctx, a, report)

	return report, nil
}

// discover locates exactly one resource of each required kind in the scope.
// Zero matches is fatal. More than one match is fatal unless an explicit
// name pins the choice: a silently picked first match would make the
// artifact nondeterministic across runs.
func (r *Runner) discover(ctx context.Context) (*discovered, error) {
	opts := &r.Opts
	found := &discovered{}

	var err error
	if found.search, err = r.findOne(ctx, ir.KindSearchService, "", opts.SearchService); err != nil {
		return nil, err
	}
	if found.openai, err = r.findOne(ctx, ir.KindCognitiveAccount, ir.VariantOpenAI, opts.OpenAIAccount); err != nil {
		return nil, err
	}
	if found.aiservices, err = r.findOne(ctx, ir.KindCognitiveAccount, ir.VariantAIServices, opts.AIServicesAccount); err != nil {
		return nil, err
	}
	if found.storage, err = r.findOne(ctx, ir.KindStorageAccount, "", opts.StorageAccount); err != nil {
		return nil, err
	}
	if found.container, err = r.findOne(ctx, ir.KindBlobContainer, "", opts.Container); err != nil {
		return nil, err
	}

	// Model deployments are optional; defaults cover their absence.
	deployments, err := r.Provider.Discover(ctx, opts.Target, ir.KindModelDeployment)
	if err != nil {
		return nil, &ir.PlatformCallFailedError{Op: "discover model deployments", Cause: err}
	}
	for _, d := range deployments {
		if strings.Contains(d.Extra["model"], "embedding") {
			if found.embedding == nil {
				found.embedding = d
			}
		} else if found.chat == nil {
			found.chat = d
		}
	}
	return found, nil
}

func (r *Runner) findOne(ctx context.Context, kind ir.Kind, variant, explicitName string) (*ir.DeploymentOutput, error) {
	matches, err := r.Provider.Discover(ctx, r.Opts.Target, kind)
	if err != nil {
		return nil, &ir.PlatformCallFailedError{Op: fmt.Sprintf("discover %s", kind), Cause: err}
	}

	var filtered []*ir.DeploymentOutput
	for _, m := range matches {
		if variant != "" && m.Variant != variant {
			continue
		}
		if explicitName != "" && m.Name != explicitName {
			continue
		}
		filtered = append(filtered, m)
	}

	switch len(filtered) {
	case 0:
		return nil, &ir.MissingResourceError{Kind: kind, Scope: r.Opts.Target.ResourceGroup}
	case 1:
		return filtered[0], nil
	default:
		names := make([]string, len(filtered))
		for i, m := range filtered {
			names[i] = m.Name
		}
		return nil, &ir.AmbiguousResourceError{Kind: kind, Scope: r.Opts.Target.ResourceGroup, Names: names}
	}
}

// invokingIdentityRoles maps each discovered resource to the roles the
// invoking identity needs in keyless mode, granted at resource scope.
func invokingIdentityRoles(found *discovered) []struct{ role, scope string } {
	return []struct{ role, scope string }{
		{"Search Index Data Contributor", found.search.ID},
		{"Search Service Contributor", found.search.ID},
		{"Storage Blob Data Contributor", found.storage.ID},
		{"Cognitive Services OpenAI User", found.openai.ID},
		{"Cognitive Services User", found.aiservices.ID},
	}
}

// grantInvokingIdentity issues the keyless-mode role grants. Each grant is
// independent and non-fatal: role assignment propagation is eventually
// consistent and a failure here must not block producing connection data.
func (r *Runner) grantInvokingIdentity(ctx context.Context, found *discovered, report *Report) {
	opts := &r.Opts
	for _, g := range invokingIdentityRoles(found) {
		roleID, err := ir.RoleDefinitionID(g.role)
		if err != nil {
			report.warn("grant "+g.role, err.Error(), "")
			continue
		}
		assignment := &ir.RoleAssignment{
			PrincipalID:      opts.PrincipalID,
			PrincipalType:    opts.PrincipalType,
			RoleDefinitionID: ir.RoleDefinitionScope(opts.Target.SubscriptionID, roleID),
			Scope:            g.scope,
		}
		if err := r.Provider.Grant(ctx, assignment); err != nil {
			grantErr := &ir.GrantFailedError{PrincipalID: opts.PrincipalID, Scope: g.scope, Cause: err}
			logging.Warn("role grant failed", "role", g.role, "scope", g.scope)
			report.warn("grant "+g.role, grantErr.Error(),
				fmt.Sprintf("az role assignment create --assignee %s --role %q --scope %s", opts.PrincipalID, g.role, g.scope))
			continue
		}
		report.ok("grant "+g.role, "granted on "+g.scope)
	}
}

// retrieveKeys populates the static secrets in keyed mode. Every key must
// be retrievable; a missing secret fails the run.
func (r *Runner) retrieveKeys(ctx context.Context, found *discovered, a *artifact.Artifact) error {
	for _, item := range []struct {
		res *ir.DeploymentOutput
		set func(*provider.AccessKeys)
	}{
		{found.search, func(k *provider.AccessKeys) { a.Set(artifact.KeySearchAdminKey, k.Primary) }},
		{found.openai, func(k *provider.AccessKeys) { a.Set(artifact.KeyOpenAIKey, k.Primary) }},
		{found.aiservices, func(k *provider.AccessKeys) { a.Set(artifact.KeyAIServicesKey, k.Primary) }},
		{found.storage, func(k *provider.AccessKeys) {
			a.Set(artifact.KeyBlobConnectionString, k.ConnectionString)
		}},
	} {
		keys, err := r.Provider.AccessKeys(ctx, r.Opts.Target, item.res)
		if err != nil {
			return &ir.PlatformCallFailedError{Op: fmt.Sprintf("retrieve keys for %s", item.res.Name), Cause: err}
		}
		if keys.Primary == "" && keys.ConnectionString == "" {
			return &ir.PlatformCallFailedError{Op: fmt.Sprintf("retrieve keys for %s", item.res.Name), Cause: fmt.Errorf("platform returned no key material")}
		}
		item.set(keys)
	}
	return nil
}

// populate fills the non-secret artifact keys from discovery results.
func (r *Runner) populate(a *artifact.Artifact, found *discovered) {
	opts := &r.Opts

	a.Set(artifact.KeySearchEndpoint, found.search.Endpoint)
	a.Set(artifact.KeyOpenAIEndpoint, found.openai.Endpoint)
	a.Set(artifact.KeyAIServicesEndpoint, found.aiservices.Endpoint)
	a.Set(artifact.KeyBlobContainerName, found.container.Name)
	a.Set(artifact.KeyBlobResourceID, found.storage.ID)
	a.Set(artifact.KeyDatasourceResourceID, found.storage.ID)

	// The search indexer reaches storage through its managed identity, so
	// the datasource connection string is always the ResourceId form.
	a.Set(artifact.KeyDatasourceConnection, "ResourceId="+found.storage.ID+";")
	if opts.Keyless {
		a.Set(artifact.KeyBlobConnectionString, "ResourceId="+found.storage.ID+";")
	}

	embeddingName, embeddingModel := DefaultEmbeddingModel, DefaultEmbeddingModel
	if found.embedding != nil {
		embeddingName = found.embedding.Name
		if m := found.embedding.Extra["model"]; m != "" {
			embeddingModel = m
		}
	}
	chatName, chatModel := DefaultChatModel, DefaultChatModel
	if found.chat != nil {
		chatName = found.chat.Name
		if m := found.chat.Extra["model"]; m != "" {
			chatModel = m
		}
	}
	a.Set(artifact.KeyEmbeddingDeployment, embeddingName)
	a.Set(artifact.KeyEmbeddingModelName, embeddingModel)
	a.Set(artifact.KeyChatDeployment, chatName)
	a.Set(artifact.KeyChatModelName, chatModel)

	a.Set(artifact.KeyKnowledgeAgent, opts.KnowledgeAgent)
	a.Set(artifact.KeyUseVerbalization, "true")
	a.Set(artifact.KeyKeyless, strconv.FormatBool(opts.Keyless))
}

// runDataLoad invokes the downstream data-loading collaborator with the
// artifact's environment. Its failure is reported, not propagated: the
// operator gets a pointer at the log file and the artifact stays usable.
func (r *Runner) runDataLoad(ctx context.Context, a *artifact.Artifact, report *Report) {
	opts := &r.Opts
	if len(opts.DataLoadCmd) == 0 {
		return
	}

	logFile, err := os.Create(opts.DataLoadLog)
	if err != nil {
		report.warn("data load", fmt.Sprintf("failed to open log file: %v", err), "")
		return
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, opts.DataLoadCmd[0], opts.DataLoadCmd[1:]...)
	cmd.Env = append(os.Environ(), a.Environ()...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Run(); err != nil {
		stepErr := &ir.DownstreamStepFailedError{LogPath: opts.DataLoadLog, Cause: err}
		report.warn("data load", stepErr.Error(),
			fmt.Sprintf("inspect %s and re-run the data load manually", opts.DataLoadLog))
		return
	}
	report.ok("data load", "completed")
}
