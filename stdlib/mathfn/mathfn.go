// Package mathfn implements the math call family: add, mult, neg, recip,
// min, max. Binary and unary ops widen to float when either operand is
// float, and apply element-wise when an operand is a list.
package mathfn

import (
	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/stdlib/internal/stdutil"
	"github.com/predicate-engine/predicate/value"
)

// Register adds every math call to f.
func Register(f *call.Factory) error {
	for name, ctor := range map[string]call.Constructor{
		"add":   newAdd,
		"mult":  newMult,
		"neg":   newNeg,
		"recip": newRecip,
		"min":   newMin,
		"max":   newMax,
	} {
		if err := f.Register(name, ctor); err != nil {
			return err
		}
	}
	return nil
}

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

func build(base *node.CallBase, self node.Node, args []node.Node) {
	base.Init(self)
	for _, a := range args {
		self.AddChild(a)
	}
}

// binaryOp applies op scalar-to-scalar, element-wise when either operand
// is a list (preserving each element's name, passing non-numeric elements
// through unchanged).
func binaryOp(op func(a, b value.Value) (value.Value, error)) stdutil.Compute {
	return func(args []value.Value) (value.Value, error) {
		a, b := args[0], args[1]
		switch {
		case a.Kind() == value.List && b.Kind() == value.List:
			return value.Value{}, perrors.ErrInvalidArguments.New("add/mult: both operands are lists")
		case a.Kind() == value.List:
			return mapList(a, func(e value.Value) (value.Value, error) { return op(e, b) })
		case b.Kind() == value.List:
			return mapList(b, func(e value.Value) (value.Value, error) { return op(a, e) })
		default:
			return op(a, b)
		}
	}
}

func mapList(v value.Value, f func(value.Value) (value.Value, error)) (value.Value, error) {
	elems := v.ListElems()
	out := make([]value.Value, len(elems))
	for i, e := range elems {
		if !e.IsNumeric() {
			out[i] = e
			continue
		}
		nv, err := f(e)
		if err != nil {
			return value.Value{}, err
		}
		out[i] = value.Named(e.Name(), nv)
	}
	return value.NewList(out), nil
}

func arith(intOp func(a, b int64) int64, floatOp func(a, b float64) float64) func(a, b value.Value) (value.Value, error) {
	return func(a, b value.Value) (value.Value, error) {
		if !a.IsNumeric() {
			return a, nil
		}
		if !b.IsNumeric() {
			return b, nil
		}
		if a.Kind() == value.Float || b.Kind() == value.Float {
			af, err := a.AsFloat()
			if err != nil {
				return value.Value{}, err
			}
			bf, err := b.AsFloat()
			if err != nil {
				return value.Value{}, err
			}
			return value.NewFloat(floatOp(af, bf)), nil
		}
		an, err := a.AsNumber()
		if err != nil {
			return value.Value{}, err
		}
		bn, err := b.AsNumber()
		if err != nil {
			return value.Value{}, err
		}
		return value.NewNumber(intOp(an, bn)), nil
	}
}

type addCall struct{ simpleCall }

func newAdd(name string, args []node.Node) (node.Node, error) {
	c := &addCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = binaryOp(arith(func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }))
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *addCall) Clone() node.Node {
	n, _ := newAdd(c.Name(), node.CloneChildren(c))
	return n
}

func (c *addCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, 2) }

type multCall struct{ simpleCall }

func newMult(name string, args []node.Node) (node.Node, error) {
	c := &multCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = binaryOp(arith(func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }))
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *multCall) Clone() node.Node {
	n, _ := newMult(c.Name(), node.CloneChildren(c))
	return n
}

func (c *multCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, 2) }

// unaryOp applies op element-wise when v is a list, directly otherwise,
// passing non-numeric values/elements through unchanged.
func unaryOp(op func(value.Value) (value.Value, error)) stdutil.Compute {
	return func(args []value.Value) (value.Value, error) {
		v := args[0]
		if v.Kind() == value.List {
			return mapList(v, op)
		}
		if !v.IsNumeric() {
			return v, nil
		}
		return op(v)
	}
}

type negCall struct{ simpleCall }

func newNeg(name string, args []node.Node) (node.Node, error) {
	c := &negCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = unaryOp(func(v value.Value) (value.Value, error) {
		if v.Kind() == value.Float {
			return value.NewFloat(-v.Flt()), nil
		}
		return value.NewNumber(-v.Num()), nil
	})
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *negCall) Clone() node.Node {
	n, _ := newNeg(c.Name(), node.CloneChildren(c))
	return n
}

func (c *negCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

type recipCall struct{ simpleCall }

func newRecip(name string, args []node.Node) (node.Node, error) {
	c := &recipCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = unaryOp(func(v value.Value) (value.Value, error) {
		f, err := v.AsFloat()
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(1 / f), nil
	})
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *recipCall) Clone() node.Node {
	n, _ := newRecip(c.Name(), node.CloneChildren(c))
	return n
}

func (c *recipCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

// reduceCall folds a list to its smallest/largest numeric element,
// ignoring non-numeric elements; absent/empty input folds to absent.
type reduceCall struct {
	simpleCall
	better func(candidate, current float64) bool
}

func newReduce(name string, better func(candidate, current float64) bool, args []node.Node) (node.Node, error) {
	c := &reduceCall{better: better}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = c.reduce
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *reduceCall) reduce(args []value.Value) (value.Value, error) {
	var best value.Value
	have := false
	for _, e := range stdutil.AsElems(args[0]) {
		if !e.IsNumeric() {
			continue
		}
		if !have {
			best = e
			have = true
			continue
		}
		ef, err := e.AsFloat()
		if err != nil {
			return value.Value{}, err
		}
		bf, err := best.AsFloat()
		if err != nil {
			return value.Value{}, err
		}
		if c.better(ef, bf) {
			best = e
		}
	}
	if !have {
		return value.Absent, nil
	}
	return best, nil
}

func (c *reduceCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func newMin(name string, args []node.Node) (node.Node, error) {
	return newReduce(name, func(candidate, current float64) bool { return candidate < current }, args)
}

func newMax(name string, args []node.Node) (node.Node, error) {
	return newReduce(name, func(candidate, current float64) bool { return candidate > current }, args)
}

func (c *reduceCall) Clone() node.Node {
	n, _ := newReduce(c.Name(), c.better, node.CloneChildren(c))
	return n
}
