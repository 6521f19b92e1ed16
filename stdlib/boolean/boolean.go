// Package boolean implements the boolean call family: true, false, not,
// and, or, andSC, orSC, if — n-ary and/or over the core's Value-based
// truthy/falsy contract, with short-circuiting variants.
package boolean

import (
	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/stdlib/internal/stdutil"
	"github.com/predicate-engine/predicate/value"
)

// Register adds every boolean call to f.
func Register(f *call.Factory) error {
	for name, ctor := range map[string]call.Constructor{
		"true":  newTrue,
		"false": newFalse,
		"not":   newNot,
		"and":   newAnd,
		"or":    newOr,
		"andSC": newAndSC,
		"orSC":  newOrSC,
		"if":    newIf,
	} {
		if err := f.Register(name, ctor); err != nil {
			return err
		}
	}
	return nil
}

func build(base *node.CallBase, self node.Node, args []node.Node) {
	base.Init(self)
	for _, a := range args {
		self.AddChild(a)
	}
}

// trueCall is the 0-arity literal-truth call; it folds away at transform
// time and never survives into an evaluated graph.
type trueCall struct{ node.CallBase }

func newTrue(name string, args []node.Node) (node.Node, error) {
	c := &trueCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *trueCall) Clone() node.Node { n, _ := newTrue(c.Name(), nil); return n }

func (c *trueCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 0, 0) }

func (c *trueCall) Transform(node.Graph, node.Factory, node.Reporter) (node.Node, bool, error) {
	return node.NewLiteral(value.NewString(nil)), true, nil
}

func (c *trueCall) EvalCalculate(s node.EvalState, _ *hostio.Context) error {
	return s.FinishTrue(c)
}

// falseCall is the 0-arity literal-falsehood call.
type falseCall struct{ node.CallBase }

func newFalse(name string, args []node.Node) (node.Node, error) {
	c := &falseCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *falseCall) Clone() node.Node { n, _ := newFalse(c.Name(), nil); return n }

func (c *falseCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 0, 0) }

func (c *falseCall) Transform(node.Graph, node.Factory, node.Reporter) (node.Node, bool, error) {
	return node.NewLiteral(value.Absent), true, nil
}

func (c *falseCall) EvalCalculate(s node.EvalState, _ *hostio.Context) error {
	return s.FinishFalse(c)
}

// notCall negates its sole argument: truthy -> absent, falsy -> ''.
type notCall struct{ node.CallBase }

func newNot(name string, args []node.Node) (node.Node, error) {
	c := &notCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *notCall) Clone() node.Node {
	n, _ := newNot(c.Name(), node.CloneChildren(c))
	return n
}

func (c *notCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

// Transform constant-folds a literal child per the reconciled truthy/falsy
// table (DESIGN.md "not's literal constant-fold table reconciled"): a
// truthy literal folds to the empty list, a falsy one to the empty string.
func (c *notCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	vals, ok := node.ChildValues(c)
	if !ok {
		return c, false, nil
	}
	if vals[0].Truthy() {
		return node.NewLiteral(value.NewList(nil)), true, nil
	}
	return node.NewLiteral(value.NewString(nil)), true, nil
}

func (c *notCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	v, err := s.Eval(c.Children()[0], ctx)
	if err != nil {
		return err
	}
	if v.Truthy() {
		return s.FinishFalse(c)
	}
	return s.FinishTrue(c)
}

// andCall is the n-ary, unordered, full-evaluation conjunction.
type andCall struct{ node.CallBase }

func newAnd(name string, args []node.Node) (node.Node, error) {
	c := &andCall{CallBase: node.NewCallBase(name, false)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *andCall) Clone() node.Node {
	n, _ := newAnd(c.Name(), node.CloneChildren(c))
	return n
}

func (c *andCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, -1) }

func (c *andCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	return transformConjunction(c, f, c.Ordered)
}

func (c *andCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	allTruthy := true
	for _, ch := range c.Children() {
		v, err := s.Eval(ch, ctx)
		if err != nil {
			return err
		}
		if !v.Truthy() {
			allTruthy = false
		}
	}
	if allTruthy {
		return s.FinishTrue(c)
	}
	return s.FinishFalse(c)
}

// orCall is the n-ary, unordered, full-evaluation disjunction.
type orCall struct{ node.CallBase }

func newOr(name string, args []node.Node) (node.Node, error) {
	c := &orCall{CallBase: node.NewCallBase(name, false)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *orCall) Clone() node.Node {
	n, _ := newOr(c.Name(), node.CloneChildren(c))
	return n
}

func (c *orCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, -1) }

func (c *orCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	return transformDisjunction(c, f, c.Ordered)
}

func (c *orCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	anyTruthy := false
	for _, ch := range c.Children() {
		v, err := s.Eval(ch, ctx)
		if err != nil {
			return err
		}
		if v.Truthy() {
			anyTruthy = true
		}
	}
	if anyTruthy {
		return s.FinishTrue(c)
	}
	return s.FinishFalse(c)
}

// andSCCall is and's short-circuiting, argument-order-preserving twin.
type andSCCall struct{ node.CallBase }

func newAndSC(name string, args []node.Node) (node.Node, error) {
	c := &andSCCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *andSCCall) Clone() node.Node {
	n, _ := newAndSC(c.Name(), node.CloneChildren(c))
	return n
}

func (c *andSCCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, -1) }

func (c *andSCCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	return transformConjunction(c, f, c.Ordered)
}

func (c *andSCCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	for _, ch := range c.Children() {
		v, err := s.Eval(ch, ctx)
		if err != nil {
			return err
		}
		if !v.Truthy() {
			return s.FinishFalse(c)
		}
	}
	return s.FinishTrue(c)
}

// orSCCall is or's short-circuiting, argument-order-preserving twin.
type orSCCall struct{ node.CallBase }

func newOrSC(name string, args []node.Node) (node.Node, error) {
	c := &orSCCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *orSCCall) Clone() node.Node {
	n, _ := newOrSC(c.Name(), node.CloneChildren(c))
	return n
}

func (c *orSCCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, -1) }

func (c *orSCCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	return transformDisjunction(c, f, c.Ordered)
}

func (c *orSCCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	for _, ch := range c.Children() {
		v, err := s.Eval(ch, ctx)
		if err != nil {
			return err
		}
		if v.Truthy() {
			return s.FinishTrue(c)
		}
	}
	return s.FinishFalse(c)
}

// ifCall is the 3-arity conditional: cond, then, else.
type ifCall struct{ node.CallBase }

func newIf(name string, args []node.Node) (node.Node, error) {
	c := &ifCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *ifCall) Clone() node.Node {
	n, _ := newIf(c.Name(), node.CloneChildren(c))
	return n
}

func (c *ifCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 3, 3) }

// Transform implements "(if truthy T F) -> T; (if [] T F) -> F": a literal
// condition lets the whole call collapse to whichever branch it selects.
func (c *ifCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	cond, ok := c.Children()[0].(*node.Literal)
	if !ok {
		return c, false, nil
	}
	if cond.Value.Truthy() {
		return c.Children()[1], true, nil
	}
	return c.Children()[2], true, nil
}

func (c *ifCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	v, err := s.Eval(c.Children()[0], ctx)
	if err != nil {
		return err
	}
	if v.Truthy() {
		return s.Forward(c, c.Children()[1])
	}
	return s.Forward(c, c.Children()[2])
}

// transformConjunction implements and/andSC's shared rewrite: any falsy
// literal child collapses the whole call to the empty list; if every child
// is already literal (and none was falsy) the result is the truthy ''; a
// single remaining argument passes through unchanged; an unordered call's
// argument list is additionally deduped and canonically sorted.
func transformConjunction(c node.Node, f node.Factory, ordered bool) (node.Node, bool, error) {
	kids := c.Children()
	for _, ch := range kids {
		if lit, ok := ch.(*node.Literal); ok && !lit.Value.Truthy() {
			return node.NewLiteral(value.NewList(nil)), true, nil
		}
	}
	if allLiteral(kids) {
		return node.NewLiteral(value.NewString(nil)), true, nil
	}
	if len(kids) == 1 {
		return kids[0], true, nil
	}
	if !ordered {
		return rebuildIfDeduped(c, f, kids)
	}
	return c, false, nil
}

// transformDisjunction implements or/orSC's shared rewrite: any truthy
// literal child collapses the whole call to ''; if every child is literal
// (and none was truthy) the result is the falsy empty list; literal []
// children are otherwise dropped as no-ops; a single remaining argument
// passes through; an unordered call is deduped/sorted.
func transformDisjunction(c node.Node, f node.Factory, ordered bool) (node.Node, bool, error) {
	kids := c.Children()
	for _, ch := range kids {
		if lit, ok := ch.(*node.Literal); ok && lit.Value.Truthy() {
			return node.NewLiteral(value.NewString(nil)), true, nil
		}
	}
	if allLiteral(kids) {
		return node.NewLiteral(value.NewList(nil)), true, nil
	}
	var kept []node.Node
	dropped := false
	for _, ch := range kids {
		if lit, ok := ch.(*node.Literal); ok && lit.Value.Kind() == value.List && len(lit.Value.ListElems()) == 0 {
			dropped = true
			continue
		}
		kept = append(kept, ch)
	}
	if dropped {
		if len(kept) == 1 {
			return kept[0], true, nil
		}
		nn, err := f.New(c.Name(), kept)
		if err != nil {
			return nil, false, err
		}
		return nn, true, nil
	}
	if len(kids) == 1 {
		return kids[0], true, nil
	}
	if !ordered {
		return rebuildIfDeduped(c, f, kids)
	}
	return c, false, nil
}

func rebuildIfDeduped(c node.Node, f node.Factory, kids []node.Node) (node.Node, bool, error) {
	deduped, changed := stdutil.DedupeAndSort(kids)
	if !changed {
		return c, false, nil
	}
	if len(deduped) == 1 {
		return deduped[0], true, nil
	}
	nn, err := f.New(c.Name(), deduped)
	if err != nil {
		return nil, false, err
	}
	return nn, true, nil
}

func allLiteral(kids []node.Node) bool {
	for _, k := range kids {
		if !k.IsLiteral() {
			return false
		}
	}
	return true
}
