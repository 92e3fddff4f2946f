package ir

import "strings"

// DeploymentOutput is the realized-state record for a reconciled resource.
// Identity-bearing resources carry a PrincipalID; network-facing ones an
// Endpoint. Extra holds kind-specific attributes (container name, model
// name, deployment name).
type DeploymentOutput struct {
	ID          string
	Name        string
	Kind        Kind
	Variant     string
	Endpoint    string
	PrincipalID string
	Extra       map[string]string
}

// Attr resolves a reference attribute against the output.
func (o *DeploymentOutput) Attr(name string) (string, bool) {
	switch name {
	case "id":
		return o.ID, o.ID != ""
	case "name":
		return o.Name, o.Name != ""
	case "endpoint":
		return o.Endpoint, o.Endpoint != ""
	case "principalId":
		return o.PrincipalID, o.PrincipalID != ""
	}
	if o.Extra != nil {
		v, ok := o.Extra[name]
		return v, ok
	}
	return "", false
}

// RefPrefix marks a property value as a pending reference to another spec's
// output: out://<logicalName>/<attribute>. Every such reference implies a
// dependency edge even when not declared in dependsOn.
const RefPrefix = "out://"

// ParseRef splits an out:// reference into logical name and attribute.
// Returns ok=false for non-reference values.
func ParseRef(v string) (name, attr string, ok bool) {
	if !strings.HasPrefix(v, RefPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(v, RefPrefix)
	name, attr, found := strings.Cut(rest, "/")
	if !found || name == "" || attr == "" {
		return "", "", false
	}
	return name, attr, true
}

// ExtractRefs walks a property value and collects every out:// reference.
func ExtractRefs(v any) []string {
	var refs []string
	switch val := v.(type) {
	case string:
		if strings.HasPrefix(val, RefPrefix) {
			refs = append(refs, val)
		}
	case map[string]any:
		for _, v := range val {
			refs = append(refs, ExtractRefs(v)...)
		}
	case []any:
		for _, v := range val {
			refs = append(refs, ExtractRefs(v)...)
		}
	}
	return refs
}
