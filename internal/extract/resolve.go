// Package extract interprets path expressions over serialized documents
// and assembles extraction results from dotted output keys.
package extract

import (
	"strings"

	"github.com/agentic-research/lina/api"
	"github.com/agentic-research/lina/internal/document"
)

// ResolveStep applies one step to cur. Every miss, including a type
// mismatch, yields nil.
func ResolveStep(cur document.Document, step api.PathStep) document.Document {
	m, ok := cur.(*document.Map)
	if !ok {
		return nil
	}
	v, ok := m.Get(step.Key)
	if !ok || document.IsNull(v) {
		return nil
	}

	list, isList := v.(document.List)
	if !isList {
		if step.Action.Kind == api.Get {
			return v
		}
		return nil
	}

	switch step.Action.Kind {
	case api.ItemAt:
		if step.Action.Index < len(list) {
			return list[step.Action.Index]
		}
		return nil
	case api.First:
		for _, e := range list {
			if passes(e, step.Where) {
				return e
			}
		}
	case api.Last:
		for i := len(list) - 1; i >= 0; i-- {
			if passes(list[i], step.Where) {
				return list[i]
			}
		}
	}
	return nil
}

// passes reports whether a list element is a mapping that satisfies w.
// A missing or null field compares as "".
func passes(e document.Document, w *api.Where) bool {
	m, ok := e.(*document.Map)
	if !ok {
		return false
	}
	if w == nil {
		return true
	}
	v, _ := m.Get(w.Key)
	s, _ := document.AsString(v)
	return strings.EqualFold(s, w.Value)
}

// ResolvePath folds ResolveStep over path, stopping at the first miss.
// An empty path resolves to start.
func ResolvePath(start document.Document, path api.PathExpression) document.Document {
	cur := start
	for _, step := range path {
		cur = ResolveStep(cur, step)
		if document.IsNull(cur) {
			return nil
		}
	}
	return cur
}

// ResolveAlternatives returns the first alternative that resolves to a
// non-null value, or nil.
func ResolveAlternatives(start document.Document, alts []api.PathExpression) document.Document {
	for _, path := range alts {
		if v := ResolvePath(start, path); !document.IsNull(v) {
			return v
		}
	}
	return nil
}
