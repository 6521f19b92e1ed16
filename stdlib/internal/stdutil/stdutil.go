// Package stdutil holds helpers shared across the stdlib/* call families
// (arity checking, literal-child dedup/sort) without creating an import
// cycle back through the stdlib aggregator package.
package stdutil

import (
	"sort"

	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/value"
)

// Compute is a pure, side-effect-free call semantics: given every child's
// resolved Value, it produces the call's result. Families whose calls have
// no streaming/short-circuit/forwarding behavior (list, filter, mathfn,
// strfn, predicatefn) implement one of these per call and get both
// constant-folding and eager evaluation for free via ConstantFold/EagerEval.
type Compute func(args []value.Value) (value.Value, error)

// ConstantFold folds any call whose children are all literals and whose
// semantics are pure: if every child of c is a Literal, compute's result
// replaces c outright. A compute error on an all-literal call (e.g. a
// malformed regex) leaves c unchanged for EvalCalculate to fail properly
// at evaluation time instead.
func ConstantFold(c node.Node, compute Compute) (node.Node, bool, error) {
	vals, ok := node.ChildValues(c)
	if !ok {
		return c, false, nil
	}
	v, err := compute(vals)
	if err != nil {
		return c, false, nil
	}
	return node.NewLiteral(v), true, nil
}

// EagerEval evaluates every child of c to a Value, in order, then aliases
// and finishes c's slot to compute's result over those Values — the shared
// EvalCalculate body for every non-streaming stdlib call.
func EagerEval(c node.Node, s node.EvalState, ctx *hostio.Context, compute Compute) error {
	children := c.Children()
	vals := make([]value.Value, len(children))
	for i, ch := range children {
		v, err := s.Eval(ch, ctx)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	out, err := compute(vals)
	if err != nil {
		return err
	}
	if err := s.Alias(c, out); err != nil {
		return err
	}
	return s.Finish(c)
}

// CheckArity fails ErrInvalidArguments if n's child count isn't between min
// and max inclusive (a negative max means unbounded) — called from every
// family's PreTransform.
func CheckArity(n node.Node, min, max int) error {
	count := len(n.Children())
	if count < min || (max >= 0 && count > max) {
		return perrors.ErrInvalidArguments.New(n.Name() + ": wrong arity")
	}
	return nil
}

// StructEqual reports whether a and b are structurally equal nodes.
func StructEqual(a, b node.Node) bool {
	return a == b || (a.Hash() == b.Hash() && a.StructEqual(b))
}

// AsElems returns v's list elements, or v itself as a single-element slice
// if v is not a list — scalars are treated as singletons by every list
// call that walks a "stream".
func AsElems(v value.Value) []value.Value {
	if v.Kind() == value.List {
		return v.ListElems()
	}
	return []value.Value{v}
}

// DedupeAndSort removes structurally-equal duplicate children (keeping the
// first occurrence) and sorts the remainder by canonical text, canonicalizing
// the child order of and/or's unordered argument lists. It reports whether
// the result differs from children.
func DedupeAndSort(children []node.Node) (result []node.Node, changed bool) {
	var uniq []node.Node
	for _, c := range children {
		dup := false
		for _, u := range uniq {
			if StructEqual(u, c) {
				dup = true
				break
			}
		}
		if !dup {
			uniq = append(uniq, c)
		}
	}
	sorted := append([]node.Node{}, uniq...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	if len(sorted) != len(children) {
		return sorted, true
	}
	for i := range sorted {
		if sorted[i] != children[i] {
			return sorted, true
		}
	}
	return sorted, false
}
