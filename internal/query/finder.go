package query

import (
	"github.com/agentic-research/lina/api"
	"github.com/agentic-research/lina/internal/tree"
)

// Matches maps group names to their matching nodes in pre-order.
// Groups that matched nothing have no entry.
type Matches map[string][]tree.Node

// First returns the first node matched by group, or nil.
func (m Matches) First(group string) tree.Node {
	if nodes := m[group]; len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

// FindNodes evaluates every group against every node in one walk of root.
func FindNodes(root tree.Node, groups api.QueryGroups) Matches {
	out := make(Matches)
	tree.Walk(root, func(n tree.Node) {
		for _, g := range groups {
			if GroupMatches(n, g) {
				out[g.Name] = append(out[g.Name], n)
			}
		}
	})
	return out
}

// Validate reports whether every group matched at least one node under root.
func Validate(root tree.Node, groups api.QueryGroups) bool {
	if tree.Absent(root) {
		return false
	}
	found := FindNodes(root, groups)
	for _, g := range groups {
		if _, ok := found[g.Name]; !ok {
			return false
		}
	}
	return true
}
