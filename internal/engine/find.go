package engine

import (
	"github.com/agentic-research/lina/api"
	"github.com/agentic-research/lina/internal/document"
	"github.com/agentic-research/lina/internal/query"
	"github.com/agentic-research/lina/internal/tree"
)

// FindDocuments runs FindNodes and serializes every match. Each group gets
// a key, in config order, even when nothing matched it.
func FindDocuments(root tree.Node, groups api.QueryGroups) *document.Map {
	matches := query.FindNodes(root, groups)
	out := document.NewMap()
	for _, name := range groups.Names() {
		if _, ok := out.Get(name); ok {
			continue
		}
		list := document.List{}
		for _, n := range matches[name] {
			if doc := document.Serialize(n); doc != nil {
				list = append(list, doc)
			}
		}
		out.Set(name, list)
	}
	return out
}
