package tree

// Walk visits root and then each of its descendants in pre-order.
// A nil root, typed or not, is a no-op. Children the host cannot produce are skipped.
func Walk(root Node, visit func(Node)) {
	if Absent(root) {
		return
	}
	visit(root)
	count := root.ChildCount()
	for i := 0; i < count; i++ {
		child := root.Child(i)
		if Absent(child) {
			continue
		}
		Walk(child, visit)
	}
}
