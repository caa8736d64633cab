package document

import (
	"strings"

	"github.com/agentic-research/lina/internal/tree"
)

// Serialize projects a node subtree into a Document with the keys
// className, content and children, each present only when non-empty.
// A node that yields none of them serializes to nil and is dropped from
// its parent's children. Extras are not carried.
func Serialize(node tree.Node) Document {
	if tree.Absent(node) {
		return nil
	}
	out := NewMap()

	if class := node.ClassName(); class != "" {
		out.Set("className", String(class))
	}
	if content := contentOf(node); content != "" {
		out.Set("content", String(content))
	}

	count := node.ChildCount()
	if count > 0 {
		children := make(List, 0, count)
		for i := 0; i < count; i++ {
			child := node.Child(i)
			if tree.Absent(child) {
				continue
			}
			if d := Serialize(child); d != nil {
				children = append(children, d)
			}
		}
		if len(children) > 0 {
			out.Set("children", children)
		}
	}

	if out.Len() == 0 {
		return nil
	}
	return out
}

// contentOf prefers text and falls back to contentDescription when text is empty.
func contentOf(node tree.Node) string {
	text := node.Text()
	if text == "" {
		text = node.ContentDescription()
	}
	return strings.TrimSpace(text)
}
