// Package merge implements a multi-root DAG (the MergeGraph) that enforces
// structural de-duplication, tracks roots, and records a replacement
// history for transforms. Structurally identical subtrees are interned
// under a content fingerprint, the same shared-subexpression idea a memo
// table uses to collapse duplicate plans.
package merge

import (
	"fmt"
	"io"

	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/traverse"
)

// Graph is a multi-root DAG enforcing three invariants: no two distinct
// reachable nodes are structurally equal, every reachable node's parent
// set equals its actual in-edges, and FindTransform always returns the
// final link of a replacement chain.
type Graph struct {
	roots        []node.Node
	byHash       map[uint64][]node.Node
	nodeHash     map[node.Node]uint64
	transformLog map[node.Node]node.Node
	rep          node.Reporter
}

// New constructs an empty Graph. rep receives warnings about cycle-breaking
// copies.
func New(rep node.Reporter) *Graph {
	return &Graph{
		byHash:       make(map[uint64][]node.Node),
		nodeHash:     make(map[node.Node]uint64),
		transformLog: make(map[node.Node]node.Node),
		rep:          rep,
	}
}

// AddRoot inserts n and every reachable subtree, canonicalizing against
// the existing index, and registers the canonicalized result as a new
// root. The returned node may differ from n; the caller should re-read it.
func (g *Graph) AddRoot(n node.Node) (rootIndex int, canonical node.Node) {
	canonical = g.canonicalize(n)
	g.roots = append(g.roots, canonical)
	return len(g.roots) - 1, canonical
}

// Root returns the root at index i.
func (g *Graph) Root(i int) node.Node {
	if i < 0 || i >= len(g.roots) {
		return nil
	}
	return g.roots[i]
}

// Roots returns every root, in insertion order.
func (g *Graph) Roots() []node.Node { return g.roots }

// RootIndices returns every root index from which n is currently
// reachable. Computed on demand (there is no incremental bookkeeping to
// keep consistent across AddChild/RemoveChild/Replace): after transforms
// collapse roots onto shared trees, more than one root index can map to
// the same node.
func (g *Graph) RootIndices(n node.Node) []int {
	var out []int
	for i, r := range g.roots {
		for _, candidate := range traverse.BreadthFirst(r) {
			if candidate == n {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// Intern returns the canonical node structurally equal to n (n itself if
// none yet exists), without touching roots — this is the node.Graph
// method concrete call types' Transform implementations use to insert a
// freshly-built replacement subtree.
func (g *Graph) Intern(n node.Node) node.Node { return g.canonicalize(n) }

// AddChild appends child (canonicalizing its subtree first) to parent's
// children through the graph, keeping the structural-sharing index
// correct.
func (g *Graph) AddChild(parent, child node.Node) error {
	canon := g.canonicalize(child)
	parent.AddChild(canon)
	g.rehash(parent)
	return nil
}

// RemoveChild removes child from parent's children through the graph. If
// that was the last edge to child, child (and any of its own children
// left unreferenced) is dropped from the graph.
func (g *Graph) RemoveChild(parent, child node.Node) error {
	parent.RemoveChild(child)
	g.rehash(parent)
	g.retireIfOrphaned(child)
	return nil
}

// Replace records transform(old)=new, rewrites every current parent of
// old to reference new instead, and updates old's root slot if old was a
// root. If new already structurally equals old, this is a no-op. Chains
// collapse immediately: replace(a,b) then replace(b,c) leaves
// find_transform(a)=c.
func (g *Graph) Replace(old, newNode node.Node) error {
	if old == newNode {
		return nil
	}
	if newNode.Hash() == old.Hash() && newNode.StructEqual(old) {
		return nil
	}

	canonicalNew := g.breakCycle(old, g.canonicalize(newNode))

	for _, p := range append([]node.Node{}, old.Parents()...) {
		p.ReplaceChild(old, canonicalNew)
	}
	for i, r := range g.roots {
		if r == old {
			g.roots[i] = canonicalNew
		}
	}

	g.transformLog[old] = canonicalNew
	for k, v := range g.transformLog {
		if v == old {
			g.transformLog[k] = canonicalNew
		}
	}

	g.retireIfOrphaned(old)
	return nil
}

// FindTransform returns the final replacement recorded for old, failing
// perrors.ErrNotFound if none was recorded.
func (g *Graph) FindTransform(old node.Node) (node.Node, error) {
	n, ok := g.transformLog[old]
	if !ok {
		return nil, perrors.ErrNotFound.New(fmt.Sprintf("no transform recorded for %s", old.String()))
	}
	return n, nil
}

// ClearTransformRecord wipes the replacement-history table.
func (g *Graph) ClearTransformRecord() {
	g.transformLog = make(map[node.Node]node.Node)
}

// WriteValidationReport walks the graph asserting parent/child
// consistency and acyclicity, writing one line per violation to sink, and
// returns true iff the graph is clean.
func (g *Graph) WriteValidationReport(sink io.Writer) bool {
	clean := true
	report := func(format string, args ...interface{}) {
		clean = false
		fmt.Fprintf(sink, format+"\n", args...)
	}

	seen := make(map[node.Node]bool)
	for _, r := range g.roots {
		for _, n := range traverse.BreadthFirst(r) {
			if seen[n] {
				continue
			}
			seen[n] = true
			for _, c := range n.Children() {
				found := false
				for _, p := range c.Parents() {
					if p == n {
						found = true
						break
					}
				}
				if !found {
					report("node %s is a child of %s but does not list it as a parent", c.String(), n.String())
				}
			}
			for _, p := range n.Parents() {
				found := false
				for _, c := range p.Children() {
					if c == n {
						found = true
						break
					}
				}
				if !found {
					report("node %s lists %s as a parent but is not one of its children", n.String(), p.String())
				}
			}
		}
	}

	for _, r := range g.roots {
		if cyc := findCycle(r, nil, make(map[node.Node]bool)); cyc != nil {
			report("cycle detected through node %s", cyc.String())
		}
	}

	return clean
}

func findCycle(n node.Node, stack []node.Node, done map[node.Node]bool) node.Node {
	if done[n] {
		return nil
	}
	for _, s := range stack {
		if s == n {
			return n
		}
	}
	stack = append(stack, n)
	for _, c := range n.Children() {
		if cyc := findCycle(c, stack, done); cyc != nil {
			return cyc
		}
	}
	done[n] = true
	return nil
}

// canonicalize inserts n's subtree bottom-up, replacing any subtree that
// structurally matches an already-indexed node with that canonical node,
// and returns the (possibly different) canonical node for n itself.
func (g *Graph) canonicalize(n node.Node) node.Node {
	if n.IsLiteral() {
		return g.intern(n)
	}

	origChildren := n.Children()
	newChildren := make([]node.Node, len(origChildren))
	changed := false
	for i, c := range origChildren {
		nc := g.canonicalize(c)
		newChildren[i] = nc
		if nc != c {
			changed = true
		}
	}
	if changed {
		for i, c := range origChildren {
			if newChildren[i] != c {
				n.ReplaceChild(c, newChildren[i])
			}
		}
	}
	return g.intern(n)
}

// intern returns the existing node structurally equal to n, if any,
// otherwise registers n itself as the canonical representative of its
// content. When n turns out to be a duplicate, its (already rewired)
// child edges are torn down so no live node is left believing the
// discarded n is one of its parents.
func (g *Graph) intern(n node.Node) node.Node {
	h := n.Hash()
	for _, cand := range g.byHash[h] {
		if cand != n && cand.StructEqual(n) {
			dropAllChildren(n)
			return cand
		}
	}
	g.byHash[h] = append(g.byHash[h], n)
	g.nodeHash[n] = h
	return n
}

// rehash re-indexes n after an in-place AddChild/RemoveChild edit changed
// its hash. It does not force a merge if n now collides with an existing
// distinct node — AddChild/RemoveChild are direct graph edits, not
// transform-driven replacements, so merging would require rewriting n's
// parents too; a warning is surfaced instead (use Replace to merge).
func (g *Graph) rehash(n node.Node) {
	if oldHash, had := g.nodeHash[n]; had {
		g.removeFromBucket(oldHash, n)
	}
	h := n.Hash()
	for _, cand := range g.byHash[h] {
		if cand != n && cand.StructEqual(n) {
			g.rep.Warn(n, "node became structurally equal to %s after an in-place edit; call Replace to merge", cand.String())
		}
	}
	g.byHash[h] = append(g.byHash[h], n)
	g.nodeHash[n] = h
}

func (g *Graph) removeFromBucket(h uint64, n node.Node) {
	bucket := g.byHash[h]
	for i, c := range bucket {
		if c == n {
			g.byHash[h] = append(bucket[:i], bucket[i+1:]...)
			delete(g.nodeHash, n)
			return
		}
	}
}

// retireIfOrphaned drops n (and, transitively, any child left unreferenced)
// from the graph's index once it has no parents and is not a root.
func (g *Graph) retireIfOrphaned(n node.Node) {
	if n == nil || len(n.Parents()) > 0 {
		return
	}
	for _, r := range g.roots {
		if r == n {
			return
		}
	}
	if h, ok := g.nodeHash[n]; ok {
		g.removeFromBucket(h, n)
	}
	for _, c := range append([]node.Node{}, n.Children()...) {
		n.RemoveChild(c)
		g.retireIfOrphaned(c)
	}
}

func dropAllChildren(n node.Node) {
	for _, c := range append([]node.Node{}, n.Children()...) {
		n.RemoveChild(c)
	}
}

// breakCycle handles the case where new structurally contains a node
// equivalent to old: it duplicates that occurrence (a deep copy of old) so
// the resulting graph stays acyclic at the cost of duplicating the shared
// substructure.
func (g *Graph) breakCycle(old, newNode node.Node) node.Node {
	if !containsEquivalent(newNode, old) {
		return newNode
	}
	g.rep.Warn(old, "replacing %s with %s would introduce a cycle; duplicating the shared subtree to break it", old.String(), newNode.String())
	return substituteEquivalent(newNode, old, old.Clone())
}

func containsEquivalent(root, target node.Node) bool {
	for _, n := range traverse.BreadthFirst(root) {
		if n == target || (n.Hash() == target.Hash() && n.StructEqual(target)) {
			return true
		}
	}
	return false
}

func substituteEquivalent(root, target, replacement node.Node) node.Node {
	if root == target || (root.Hash() == target.Hash() && root.StructEqual(target)) {
		return replacement
	}
	if root.IsLiteral() {
		return root
	}
	kids := root.Children()
	newKids := make([]node.Node, len(kids))
	changed := false
	for i, k := range kids {
		nk := substituteEquivalent(k, target, replacement)
		newKids[i] = nk
		if nk != k {
			changed = true
		}
	}
	if !changed {
		return root
	}
	for i, k := range kids {
		if newKids[i] != k {
			root.ReplaceChild(k, newKids[i])
		}
	}
	return root
}
