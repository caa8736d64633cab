package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/agentic-research/lina/internal/tree"
	sitter "github.com/smacker/go-tree-sitter"
)

// SitterNode presents a tree-sitter syntax node as a query tree node, so
// markup and source files can be matched and serialized like UI snapshots.
//
// Only named nodes are exposed. The class is the node type, leaves carry
// their source text, and two extras are set: "field" (the field name in the
// parent, if any) and "start_row".
type SitterNode struct {
	node   *sitter.Node
	source []byte
	field  string
	// named holds the raw child indexes of named children, built on first use.
	named []int
}

// NewSitterNode wraps n. source must be the buffer n was parsed from.
func NewSitterNode(n *sitter.Node, source []byte) *SitterNode {
	return &SitterNode{node: n, source: source}
}

func (s *SitterNode) ClassName() string { return s.node.Type() }

func (s *SitterNode) Text() string {
	if s.node.NamedChildCount() > 0 {
		return ""
	}
	start, end := s.node.StartByte(), s.node.EndByte()
	if start >= end || end > uint32(len(s.source)) {
		return ""
	}
	return string(s.source[start:end])
}

func (s *SitterNode) ContentDescription() string { return "" }

func (s *SitterNode) Extra(key string) (string, bool) {
	switch key {
	case "field":
		return s.field, s.field != ""
	case "start_row":
		return strconv.FormatUint(uint64(s.node.StartPoint().Row), 10), true
	default:
		return "", false
	}
}

func (s *SitterNode) ChildCount() int {
	return len(s.namedIndexes())
}

func (s *SitterNode) Child(i int) tree.Node {
	idx := s.namedIndexes()
	if i < 0 || i >= len(idx) {
		return nil
	}
	child := s.node.Child(idx[i])
	if child == nil {
		return nil
	}
	return &SitterNode{node: child, source: s.source, field: s.node.FieldNameForChild(idx[i])}
}

func (s *SitterNode) namedIndexes() []int {
	if s.named != nil {
		return s.named
	}
	count := int(s.node.ChildCount())
	s.named = make([]int, 0, count)
	for i := 0; i < count; i++ {
		if c := s.node.Child(i); c != nil && c.IsNamed() {
			s.named = append(s.named, i)
		}
	}
	return s.named
}

var _ tree.Node = (*SitterNode)(nil)

// ParseSource parses src with the grammar picked from path's extension.
func ParseSource(ctx context.Context, path string, src []byte) (*SitterNode, error) {
	name, lang, ok := DetectLanguageFromExt(filepath.Ext(path))
	if !ok {
		return nil, fmt.Errorf("no grammar for %s", path)
	}
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	t, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s as %s: %w", path, name, err)
	}
	return NewSitterNode(t.RootNode(), src), nil
}
