// Package predicatefn implements the predicate-introspection call family:
// isLonger, isSimple, isFinished, isLiteral, isHomogeneous — structural
// questions asked of this core's node.Node/EvalState.
package predicatefn

import (
	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/stdlib/internal/stdutil"
	"github.com/predicate-engine/predicate/value"
)

// Register adds every predicate-introspection call to f.
func Register(f *call.Factory) error {
	for name, ctor := range map[string]call.Constructor{
		"isLonger":      newIsLonger,
		"isSimple":      newIsSimple,
		"isFinished":    newIsFinished,
		"isLiteral":     newIsLiteral,
		"isHomogeneous": newIsHomogeneous,
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

func truthy(ok bool) value.Value {
	if ok {
		return value.NewString(nil)
	}
	return value.Absent
}

// simpleCall is the shape shared by the three introspection calls whose
// answer is a pure function of their children's evaluated Values
// (isLonger, isSimple, isHomogeneous).
type simpleCall struct {
	node.CallBase
	compute stdutil.Compute
}

func (c *simpleCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	return stdutil.ConstantFold(c, c.compute)
}

func (c *simpleCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	return stdutil.EagerEval(c, s, ctx, c.compute)
}

type isLongerCall struct{ simpleCall }

func newIsLonger(name string, args []node.Node) (node.Node, error) {
	c := &isLongerCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeIsLonger
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *isLongerCall) Clone() node.Node {
	n, _ := newIsLonger(c.Name(), node.CloneChildren(c))
	return n
}

func (c *isLongerCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, 2) }

func computeIsLonger(args []value.Value) (value.Value, error) {
	n, err := args[0].AsNumber()
	if err != nil {
		return value.Value{}, err
	}
	return truthy(int64(len(stdutil.AsElems(args[1]))) > n), nil
}

type isSimpleCall struct{ simpleCall }

func newIsSimple(name string, args []node.Node) (node.Node, error) {
	c := &isSimpleCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeIsSimple
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *isSimpleCall) Clone() node.Node {
	n, _ := newIsSimple(c.Name(), node.CloneChildren(c))
	return n
}

func (c *isSimpleCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func computeIsSimple(args []value.Value) (value.Value, error) {
	return truthy(len(stdutil.AsElems(args[0])) == 1), nil
}

type isHomogeneousCall struct{ simpleCall }

func newIsHomogeneous(name string, args []node.Node) (node.Node, error) {
	c := &isHomogeneousCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeIsHomogeneous
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *isHomogeneousCall) Clone() node.Node {
	n, _ := newIsHomogeneous(c.Name(), node.CloneChildren(c))
	return n
}

func (c *isHomogeneousCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func computeIsHomogeneous(args []value.Value) (value.Value, error) {
	elems := stdutil.AsElems(args[0])
	if len(elems) == 0 {
		return truthy(true), nil
	}
	kind := elems[0].Kind()
	for _, e := range elems[1:] {
		if e.Kind() != kind {
			return truthy(false), nil
		}
	}
	return truthy(true), nil
}

// isLiteralCall reports whether its argument node is itself a Literal —
// a question about node structure, not about a value, so it is answered
// without ever evaluating the child. By the time evaluation begins the
// transformation pipeline has already run to a fixed point, so the
// child's literal-ness can no longer change underneath us.
type isLiteralCall struct{ node.CallBase }

func newIsLiteral(name string, args []node.Node) (node.Node, error) {
	c := &isLiteralCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *isLiteralCall) Clone() node.Node {
	n, _ := newIsLiteral(c.Name(), node.CloneChildren(c))
	return n
}

func (c *isLiteralCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func (c *isLiteralCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	if c.Children()[0].IsLiteral() {
		return s.FinishTrue(c)
	}
	return s.FinishFalse(c)
}

// isFinishedCall reports whether its argument node has already finished
// evaluating, without itself forcing that evaluation — checking
// EvalState.IsFinished directly rather than calling EvalState.Eval, which
// would always make the answer true.
type isFinishedCall struct{ node.CallBase }

func newIsFinished(name string, args []node.Node) (node.Node, error) {
	c := &isFinishedCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *isFinishedCall) Clone() node.Node {
	n, _ := newIsFinished(c.Name(), node.CloneChildren(c))
	return n
}

func (c *isFinishedCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func (c *isFinishedCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	if s.IsFinished(c.Children()[0]) {
		return s.FinishTrue(c)
	}
	return s.FinishFalse(c)
}
