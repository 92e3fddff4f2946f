package ir

import "strings"

// nameRule constrains a resource name per kind: which characters survive and
// the maximum length after filtering. Filtering then truncation is applied
// before submission, so the same logical name always yields the same
// platform name.
type nameRule struct {
	maxLen      int
	allowHyphen bool
}

var nameRules = map[Kind]nameRule{
	KindStorageAccount:   {maxLen: 24, allowHyphen: false},
	KindBlobContainer:    {maxLen: 63, allowHyphen: true},
	KindSearchService:    {maxLen: 60, allowHyphen: true},
	KindCognitiveAccount: {maxLen: 64, allowHyphen: true},
	KindModelDeployment:  {maxLen: 64, allowHyphen: true},
}

// NormalizeName applies the kind's charset and length rule to a computed
// name. Kinds without a rule (role assignments) pass through unchanged.
func NormalizeName(kind Kind, name string) string {
	rule, ok := nameRules[kind]
	if !ok {
		return name
	}
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' && rule.allowHyphen:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > rule.maxLen {
		out = out[:rule.maxLen]
	}
	return out
}
