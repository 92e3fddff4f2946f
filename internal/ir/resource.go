package ir

import "fmt"

// Kind enumerates the resource kinds the reconciler knows how to realize.
type Kind string

const (
	KindStorageAccount   Kind = "StorageAccount"
	KindBlobContainer    Kind = "BlobContainer"
	KindSearchService    Kind = "SearchService"
	KindCognitiveAccount Kind = "CognitiveAccount"
	KindModelDeployment  Kind = "ModelDeployment"
	KindRoleAssignment   Kind = "RoleAssignment"
)

// Variants of a CognitiveAccount. The variant selects the account kind
// submitted to the platform and which artifact keys the account feeds.
const (
	VariantOpenAI     = "OpenAI"
	VariantAIServices = "AIServices"
	VariantMulti      = "Multi"
)

// ResourceSpec is a declared unit of desired state. LogicalName is the
// unique key other specs use in dependsOn and out:// references.
type ResourceSpec struct {
	LogicalName string         `yaml:"name"`
	Kind        Kind           `yaml:"kind"`
	Variant     string         `yaml:"variant,omitempty"`
	DependsOn   []string       `yaml:"dependsOn,omitempty"`
	Properties  map[string]any `yaml:"properties,omitempty"`
}

// Prop returns a string property, or the empty string when absent.
func (s *ResourceSpec) Prop(key string) string {
	if s.Properties == nil {
		return ""
	}
	if v, ok := s.Properties[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// allowedSKUs holds the fixed SKU vocabulary per kind. Unknown SKU strings
// are rejected locally instead of relying on the platform's rejection.
var allowedSKUs = map[Kind]map[string]bool{
	KindStorageAccount: {
		"Standard_LRS": true,
		"Standard_GRS": true,
		"Standard_ZRS": true,
		"Premium_LRS":  true,
	},
	KindSearchService: {
		"free":      true,
		"basic":     true,
		"standard":  true,
		"standard2": true,
		"standard3": true,
	},
	KindCognitiveAccount: {
		"F0": true,
		"S0": true,
	},
	KindModelDeployment: {
		"Standard":       true,
		"GlobalStandard": true,
	},
}

var knownKinds = map[Kind]bool{
	KindStorageAccount:   true,
	KindBlobContainer:    true,
	KindSearchService:    true,
	KindCognitiveAccount: true,
	KindModelDeployment:  true,
	KindRoleAssignment:   true,
}

// Validate checks the spec's kind, SKU and variant against the local
// vocabulary. It runs before any platform call.
func (s *ResourceSpec) Validate() error {
	if s.LogicalName == "" {
		return &InvalidConfigurationError{Detail: "resource with empty name"}
	}
	if !knownKinds[s.Kind] {
		return &InvalidConfigurationError{Name: s.LogicalName, Detail: fmt.Sprintf("unknown kind %q", s.Kind)}
	}
	if skus, ok := allowedSKUs[s.Kind]; ok {
		if sku := s.Prop("sku"); sku != "" && !skus[sku] {
			return &InvalidConfigurationError{Name: s.LogicalName, Detail: fmt.Sprintf("unknown sku %q for kind %s", sku, s.Kind)}
		}
	}
	if s.Kind == KindCognitiveAccount {
		switch s.Variant {
		case VariantOpenAI, VariantAIServices, VariantMulti:
		case "":
			return &InvalidConfigurationError{Name: s.LogicalName, Detail: "CognitiveAccount requires a variant"}
		default:
			return &InvalidConfigurationError{Name: s.LogicalName, Detail: fmt.Sprintf("unknown variant %q", s.Variant)}
		}
	}
	return nil
}
