package node

import (
	"sort"
	"strings"

	"github.com/mitchellh/hashstructure"

	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/value"
)

// ChildValues extracts each of n's children's literal Value, failing ok=false
// if any child is not a Literal.
func ChildValues(n Node) (vals []value.Value, ok bool) {
	kids := n.Children()
	vals = make([]value.Value, len(kids))
	for i, ch := range kids {
		lit, isLit := ch.(*Literal)
		if !isLit {
			return nil, false
		}
		vals[i] = lit.Value
	}
	return vals, true
}

// CallBase is the embeddable bookkeeping shared by every concrete call
// node (boolean.And, list.Cat, mathfn.Add, …). It implements every Node
// method that doesn't depend on a call's specific semantics: Children,
// AddChild/RemoveChild/ReplaceChild, Parents, Index/SetIndex, Hash,
// String, StructEqual, IsLiteral, plus Name and no-op defaults for
// PreTransform, Transform, PostTransform and PreEval. Concrete types still
// implement EvalCalculate and Clone, and override whichever hooks they
// need, since that is where a call's semantics actually live.
//
// A CallBase must be wired to its embedder via Init before use, so its
// AddChild/RemoveChild can register the correct Node as a child's parent
// (Go has no virtual "this" across embedding, so the embedder's own
// pointer has to be handed back in).
//
// Ordered distinguishes an ordered call (hash/equality over the child
// sequence) from an unordered one (hash/equality over the child multiset).
type CallBase struct {
	base
	self     Node
	CallName string
	Ordered  bool
}

// NewCallBase constructs a CallBase for a call named name. Init must be
// called with the embedding concrete node before any AddChild call.
func NewCallBase(name string, ordered bool) CallBase {
	return CallBase{base: newBase(-1), CallName: name, Ordered: ordered}
}

// Init wires self as the Node value CallBase registers as a parent when
// children are added. Every concrete call constructor calls this once,
// immediately after embedding a fresh CallBase.
func (c *CallBase) Init(self Node) { c.self = self }

// Name returns the call's registered name.
func (c *CallBase) Name() string { return c.CallName }

// IsLiteral reports false: a CallBase is never a Literal.
func (c *CallBase) IsLiteral() bool { return false }

// AddChild appends child to this call's children and registers self as
// one of child's parents.
func (c *CallBase) AddChild(child Node) { c.base.addChild(c.self, child) }

// RemoveChild removes child from this call's children.
func (c *CallBase) RemoveChild(child Node) { c.base.removeChild(c.self, child) }

// ReplaceChild swaps old for new in this call's children.
func (c *CallBase) ReplaceChild(old, new Node) { c.base.replaceChild(c.self, old, new) }

// String renders "(name child1 child2 …)", or "(name)" for a zero-arity
// call.
func (c *CallBase) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(c.CallName)
	for _, ch := range c.children {
		b.WriteByte(' ')
		b.WriteString(ch.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Hash returns a content hash over the call name and its children's
// hashes: the sequence for an ordered call, the sorted multiset for an
// unordered one.
func (c *CallBase) Hash() uint64 {
	childHashes := make([]uint64, len(c.children))
	for i, ch := range c.children {
		childHashes[i] = ch.Hash()
	}
	if !c.Ordered {
		sort.Slice(childHashes, func(i, j int) bool { return childHashes[i] < childHashes[j] })
	}
	h, err := hashstructure.Hash(struct {
		Name     string
		Children []uint64
	}{c.CallName, childHashes}, nil)
	if err != nil {
		panic(err)
	}
	return h
}

// StructEqual reports whether o is a call with the same name, the same
// Ordered-ness, and structurally-equal children (sequence-wise if
// ordered, multiset-wise otherwise).
func (c *CallBase) StructEqual(o Node) bool {
	oc, ok := o.(interface {
		Name() string
		Children() []Node
	})
	if !ok || oc.Name() != c.CallName {
		return false
	}
	ours := c.children
	theirs := oc.Children()
	if len(ours) != len(theirs) {
		return false
	}
	if oo, ok := o.(interface{ isOrdered() bool }); ok {
		if oo.isOrdered() != c.Ordered {
			return false
		}
	}
	if c.Ordered {
		for i := range ours {
			if !structEqual(ours[i], theirs[i]) {
				return false
			}
		}
		return true
	}
	return multisetEqual(ours, theirs)
}

// isOrdered lets StructEqual compare Ordered-ness across two CallBase
// embedders without a type assertion on the concrete type.
func (c *CallBase) isOrdered() bool { return c.Ordered }

func structEqual(a, b Node) bool {
	type eq interface{ StructEqual(Node) bool }
	if ae, ok := a.(eq); ok {
		return ae.StructEqual(b)
	}
	return a.Hash() == b.Hash() && a.String() == b.String()
}

// multisetEqual compares two child slices as multisets by greedily
// matching structurally-equal pairs — fine for the small argument counts
// every stdlib call actually has.
func multisetEqual(a, b []Node) bool {
	used := make([]bool, len(b))
	for _, av := range a {
		found := false
		for j, bv := range b {
			if used[j] {
				continue
			}
			if structEqual(av, bv) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Transform is the default no-op: the node never rewrites itself.
// Concrete types implementing a built-in rewrite override it.
func (c *CallBase) Transform(g Graph, f Factory, rep Reporter) (Node, bool, error) {
	return c.self, false, nil
}

// AllChildrenLiteral reports whether every child is a Literal, the
// precondition for constant folding.
func (c *CallBase) AllChildrenLiteral() bool {
	for _, ch := range c.children {
		if !ch.IsLiteral() {
			return false
		}
	}
	return true
}

// PreTransform is the default no-op; concrete types that need an arity or
// shape check (most of them do) override it.
func (c *CallBase) PreTransform(rep Reporter) error { return nil }

// PostTransform is the default no-op.
func (c *CallBase) PostTransform(rep Reporter) error { return nil }

// PreEval is the default no-op; concrete types that bind to the host
// environment (stdlib/hostops, regex-bearing stdlib/filter and
// stdlib/strfn calls) override it.
func (c *CallBase) PreEval(ctx *hostio.Context, rep Reporter) error { return nil }

// CloneChildren returns deep clones of n's children, for use by concrete
// call types' Clone methods: c, _ := NewFoo(node.CloneChildren(n)...).
func CloneChildren(n Node) []Node {
	kids := n.Children()
	out := make([]Node, len(kids))
	for i, k := range kids {
		out[i] = k.Clone()
	}
	return out
}
