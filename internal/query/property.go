// Package query locates named roles inside a UI tree by evaluating
// configured rule groups against every node.
package query

import (
	"strings"

	"github.com/agentic-research/lina/internal/tree"
)

// PropertyKind tags which node attribute a Property reads.
type PropertyKind int

const (
	Unknown PropertyKind = iota
	Text
	ContentDescription
	ClassName
	Extra
)

// Property is a resolved rule key.
type Property struct {
	Kind PropertyKind
	// Name is the extras sub-key for Extra.
	Name string
}

// ParseProperty maps a rule key to a Property. A key with a '.' reads the
// extras mapping using everything after the first '.'.
func ParseProperty(key string) Property {
	switch key {
	case "text":
		return Property{Kind: Text}
	case "contentDescription":
		return Property{Kind: ContentDescription}
	case "className":
		return Property{Kind: ClassName}
	}
	if prefix, sub, ok := strings.Cut(key, "."); ok && prefix == "extras" && sub != "" {
		return Property{Kind: Extra, Name: sub}
	}
	return Property{Kind: Unknown}
}

// Value reads p from n. Unknown properties and missing extras are absent.
func Value(n tree.Node, p Property) (string, bool) {
	switch p.Kind {
	case Text:
		return n.Text(), true
	case ContentDescription:
		return n.ContentDescription(), true
	case ClassName:
		return n.ClassName(), true
	case Extra:
		return n.Extra(p.Name)
	default:
		return "", false
	}
}
