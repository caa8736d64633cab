package query

import (
	"strings"

	"github.com/agentic-research/lina/api"
	"github.com/agentic-research/lina/internal/tree"
)

// RuleMatches reports whether any of the rule's keys reads a value that
// satisfies its action. Absent properties compare as "".
func RuleMatches(n tree.Node, r api.Rule) bool {
	for _, key := range r.Keys {
		v, _ := Value(n, ParseProperty(key))
		if compare(r.Action, v, r.Value) {
			return true
		}
	}
	return false
}

func compare(action api.RuleAction, got, want string) bool {
	switch action {
	case api.Equals:
		return strings.EqualFold(got, want)
	case api.Contains:
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	default:
		return false
	}
}

// GroupMatches reports whether every rule of g matches n.
// A group without rules matches every node.
func GroupMatches(n tree.Node, g api.QueryGroup) bool {
	for _, r := range g.Rules {
		if !RuleMatches(n, r) {
			return false
		}
	}
	return true
}
