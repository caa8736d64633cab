package extract

import (
	"strings"

	"github.com/agentic-research/lina/api"
	"github.com/agentic-research/lina/internal/document"
)

type member struct {
	// suffix is the key after the first '.', or the whole key when undotted.
	suffix string
	dotted bool
	alts   []api.PathExpression
}

type group struct {
	root    string
	members []member
}

// direct reports whether the group is a single undotted key.
func (g *group) direct() bool {
	return len(g.members) == 1 && !g.members[0].dotted
}

// groupFields buckets fields by the part of the key before the first '.',
// in order of first appearance.
func groupFields(fields []api.Field) []*group {
	var groups []*group
	byRoot := make(map[string]*group)
	for _, f := range fields {
		root, suffix, dotted := strings.Cut(f.Key, ".")
		if !dotted {
			suffix = f.Key
		}
		g, ok := byRoot[root]
		if !ok {
			g = &group{root: root}
			byRoot[root] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, member{suffix: suffix, dotted: dotted, alts: f.Alternatives})
	}
	return groups
}

// Extract evaluates spec against doc. Every root key of spec is present
// in the result. A single undotted key maps to its value or Null. A dotted
// group maps to a nested object of the members that resolved, or to Null
// when none did.
func Extract(doc document.Document, spec *api.ExtractionSpec) *document.Map {
	out := document.NewMap()
	if spec == nil {
		return out
	}
	for _, g := range groupFields(spec.Fields) {
		if g.direct() {
			out.Set(g.root, ResolveAlternatives(doc, g.members[0].alts))
			continue
		}
		nested := document.NewMap()
		for _, m := range g.members {
			if v := ResolveAlternatives(doc, m.alts); !document.IsNull(v) {
				nested.Set(m.suffix, v)
			}
		}
		if nested.Len() == 0 {
			out.Set(g.root, document.Null{})
			continue
		}
		out.Set(g.root, nested)
	}
	return out
}
