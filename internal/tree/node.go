package tree

// Node is a borrowed view of one element of a host-owned UI tree.
// Implementations must not be retained by callers past the call that produced them.
type Node interface {
	ClassName() string
	Text() string
	ContentDescription() string
	// Extra looks up a namespaced side-channel property (extras.<key>).
	Extra(key string) (string, bool)
	ChildCount() int
	// Child returns the i-th child, or nil when the host cannot produce it.
	Child(i int) Node
}

// Element is an in-memory snapshot node. It is what the JSON snapshot
// loader produces and what tests build by hand.
type Element struct {
	Class       string            `json:"className,omitempty"`
	Label       string            `json:"text,omitempty"`
	Description string            `json:"contentDescription,omitempty"`
	Extras      map[string]string `json:"extras,omitempty"`
	// Children may hold nil entries for children the host failed to capture.
	Children []*Element `json:"children,omitempty"`
}

// A nil *Element reads as an empty leaf.

func (e *Element) ClassName() string {
	if e == nil {
		return ""
	}
	return e.Class
}

func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	return e.Label
}

func (e *Element) ContentDescription() string {
	if e == nil {
		return ""
	}
	return e.Description
}

func (e *Element) ChildCount() int {
	if e == nil {
		return 0
	}
	return len(e.Children)
}

func (e *Element) Extra(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.Extras[key]
	return v, ok
}

// Child returns nil (not a typed-nil Node) for missing children.
func (e *Element) Child(i int) Node {
	if e == nil || i < 0 || i >= len(e.Children) || e.Children[i] == nil {
		return nil
	}
	return e.Children[i]
}

// Absent reports whether n is nil, including a nil *Element stored in
// the interface. Walk, Navigate and the serializer treat such nodes as
// unobtainable.
func Absent(n Node) bool {
	if n == nil {
		return true
	}
	e, ok := n.(*Element)
	return ok && e == nil
}

// Navigate follows a child-index path from start. It returns nil if any
// index is out of range or the child is unobtainable.
func Navigate(start Node, path []int) Node {
	if Absent(start) {
		return nil
	}
	cur := start
	for _, idx := range path {
		if Absent(cur) || idx < 0 || idx >= cur.ChildCount() {
			return nil
		}
		cur = cur.Child(idx)
	}
	if Absent(cur) {
		return nil
	}
	return cur
}

var _ Node = (*Element)(nil)
