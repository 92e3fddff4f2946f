// Package manifest loads and validates the declarative resource manifest.
package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/azlab-io/azlab/internal/ir"
)

//go:embed default.yaml
var defaultManifest []byte

// Manifest is the top-level declaration document.
type Manifest struct {
	Location  string             `yaml:"location"`
	Resources []*ir.ResourceSpec `yaml:"resources"`
}

// Load reads a manifest from path. An empty path loads the embedded default
// lab manifest.
func Load(path string) (*Manifest, error) {
	data := defaultManifest
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate performs all local checks: unique names, known kinds and SKUs,
// and well-formed references pointing at declared resources. It runs before
// any platform call so structural errors abort with no side effects.
func (m *Manifest) Validate() error {
	if len(m.Resources) == 0 {
		return &ir.InvalidConfigurationError{Detail: "manifest declares no resources"}
	}

	byName := make(map[string]bool, len(m.Resources))
	for _, spec := range m.Resources {
		if err := spec.Validate(); err != nil {
			return err
		}
		if byName[spec.LogicalName] {
			return &ir.InvalidConfigurationError{Name: spec.LogicalName, Detail: "duplicate logical name"}
		}
		byName[spec.LogicalName] = true
	}

	for _, spec := range m.Resources {
		for _, dep := range spec.DependsOn {
			if !byName[dep] {
				return &ir.InvalidConfigurationError{Name: spec.LogicalName, Detail: fmt.Sprintf("dependsOn references unknown resource %q", dep)}
			}
		}
		for _, ref := range ir.ExtractRefs(spec.Properties) {
			name, _, ok := ir.ParseRef(ref)
			if !ok {
				return &ir.InvalidConfigurationError{Name: spec.LogicalName, Detail: fmt.Sprintf("malformed reference %q", ref)}
			}
			if !byName[name] {
				return &ir.InvalidConfigurationError{Name: spec.LogicalName, Detail: fmt.Sprintf("reference %q targets unknown resource", ref)}
			}
		}
	}
	return nil
}
