package ingest

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// SyntaxError locates one ERROR or MISSING node of a parsed source tree.
type SyntaxError struct {
	Path   string
	Line   uint32 // 0-indexed
	Column uint32 // 0-indexed
	// Missing is set when the parser inserted a token the source lacks.
	Missing bool
}

func (e *SyntaxError) Error() string {
	what := "syntax error"
	if e.Missing {
		what = "missing token"
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line+1, e.Column+1, what)
}

// SyntaxErrors returns every error node under s in document order. The
// query tree hides these nodes because they are unnamed or partial, so
// callers that need a clean parse check here first.
func (s *SitterNode) SyntaxErrors(path string) []SyntaxError {
	if s == nil || s.node == nil || !s.node.HasError() {
		return nil
	}
	var errs []SyntaxError
	collectErrors(s.node, path, &errs)
	return errs
}

func collectErrors(n *sitter.Node, path string, errs *[]SyntaxError) {
	if n.IsError() || n.IsMissing() {
		*errs = append(*errs, SyntaxError{
			Path:    path,
			Line:    n.StartPoint().Row,
			Column:  n.StartPoint().Column,
			Missing: n.IsMissing(),
		})
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && (child.HasError() || child.IsError() || child.IsMissing()) {
			collectErrors(child, path, errs)
		}
	}
}
