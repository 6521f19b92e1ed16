// Package traverse implements breadth-first descent/ascent and leaf
// enumeration over node.Node graphs, alongside a pre-order Walk/Inspect
// pair in the style of a visitor-based tree walker.
package traverse

import "github.com/predicate-engine/predicate/node"

// Visitor is called once per node during a Walk; returning nil stops the
// descent into that node's children, mirroring sql/transform.Visitor.
type Visitor interface {
	Visit(n node.Node) Visitor
}

// VisitorFunc adapts a plain function to Visitor.
type VisitorFunc func(node.Node) Visitor

func (f VisitorFunc) Visit(n node.Node) Visitor { return f(n) }

// Walk performs a pre-order depth-first traversal of n (and, via v's
// returned Visitor, its children), calling v.Visit(nil) after the last
// child of a node whose descent was not stopped.
func Walk(v Visitor, n node.Node) {
	if v = v.Visit(n); v == nil {
		return
	}
	if n == nil {
		return
	}
	for _, c := range n.Children() {
		Walk(v, c)
	}
	v.Visit(nil)
}

// inspector adapts a plain predicate into a Visitor that keeps descending
// as long as the predicate holds.
type inspector func(node.Node) bool

func (f inspector) Visit(n node.Node) Visitor {
	if n == nil || !f(n) {
		return nil
	}
	return f
}

// Inspect is Walk for a plain predicate: descent continues under n iff f
// returns true.
func Inspect(f func(node.Node) bool, n node.Node) {
	Walk(inspector(f), n)
}

// BreadthFirst returns every node reachable from roots in breadth-first
// downward order, each node appearing exactly once (first discovery wins)
// — the traversal order the transformation driver relies on.
func BreadthFirst(roots ...node.Node) []node.Node {
	seen := make(map[node.Node]bool)
	var order []node.Node
	queue := append([]node.Node{}, roots...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == nil || seen[n] {
			continue
		}
		seen[n] = true
		order = append(order, n)
		queue = append(queue, n.Children()...)
	}
	return order
}

// Ascend returns every node reachable from n by following parent links,
// breadth-first, each appearing once.
func Ascend(n node.Node) []node.Node {
	seen := make(map[node.Node]bool)
	var order []node.Node
	queue := []node.Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == nil || seen[cur] {
			continue
		}
		seen[cur] = true
		order = append(order, cur)
		queue = append(queue, cur.Parents()...)
	}
	return order
}

// Leaves returns every childless node reachable from roots.
func Leaves(roots ...node.Node) []node.Node {
	var out []node.Node
	for _, n := range BreadthFirst(roots...) {
		if len(n.Children()) == 0 {
			out = append(out, n)
		}
	}
	return out
}
