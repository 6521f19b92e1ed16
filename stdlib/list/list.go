// Package list implements the list call family: setName, pushName, cat,
// list, first, rest, nth, flatten, focus, scatter, gather.
package list

import (
	"bytes"

	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/stdlib/internal/stdutil"
	"github.com/predicate-engine/predicate/value"
)

// Register adds every list call to f.
func Register(f *call.Factory) error {
	for name, ctor := range map[string]call.Constructor{
		"setName":  newSetName,
		"pushName": newPushName,
		"cat":      newCat,
		"list":     newList,
		"first":    newFirst,
		"rest":     newRest,
		"nth":      newNth,
		"flatten":  newFlatten,
		"focus":    newFocus,
		"scatter":  newScatter,
		"gather":   newGather,
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

// simpleCall is the shared shape for every call in this family: a pure
// Compute backs both constant-folding and eager evaluation, and none of
// them forward, alias-stream, or short-circuit.
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

// setNameCall renames its second argument (a copy) to the first argument's
// string payload.
type setNameCall struct{ simpleCall }

func newSetName(name string, args []node.Node) (node.Node, error) {
	c := &setNameCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeSetName
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *setNameCall) Clone() node.Node {
	n, _ := newSetName(c.Name(), node.CloneChildren(c))
	return n
}

func (c *setNameCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, 2) }

func computeSetName(args []value.Value) (value.Value, error) {
	return value.Named(args[0].Str(), args[1]), nil
}

// pushNameCall pushes a list's own name down onto each unnamed child,
// recursively.
type pushNameCall struct{ simpleCall }

func newPushName(name string, args []node.Node) (node.Node, error) {
	c := &pushNameCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computePushName
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *pushNameCall) Clone() node.Node {
	n, _ := newPushName(c.Name(), node.CloneChildren(c))
	return n
}

func (c *pushNameCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func computePushName(args []value.Value) (value.Value, error) {
	return pushNameRecursive(args[0]), nil
}

func pushNameRecursive(v value.Value) value.Value {
	if v.Kind() != value.List {
		return v
	}
	elems := v.ListElems()
	out := make([]value.Value, len(elems))
	for i, e := range elems {
		if !e.IsNamed() {
			e = value.Named(v.Name(), e)
		}
		out[i] = pushNameRecursive(e)
	}
	return value.Named(v.Name(), value.NewList(out))
}

// catCall concatenates the list representation of every argument, scalars
// treated as singletons, dropping absent children and flattening nested
// cat children at transform time.
type catCall struct{ simpleCall }

func newCat(name string, args []node.Node) (node.Node, error) {
	c := &catCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeCat
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *catCall) Clone() node.Node {
	n, _ := newCat(c.Name(), node.CloneChildren(c))
	return n
}

// PreTransform allows zero children, whether the call came from parsed
// source or from a transform: "(cat)" is a valid empty-list fold, not an
// arity error.
func (c *catCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 0, -1) }

// Transform flattens nested cat children into this call's own argument
// list and drops literal-absent children, before falling back to the
// shared constant-fold. An empty result after flattening/dropping folds
// directly to the empty list.
func (c *catCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	kids := c.Children()
	var rebuilt []node.Node
	changed := false
	for _, ch := range kids {
		if nested, ok := ch.(*catCall); ok {
			rebuilt = append(rebuilt, nested.Children()...)
			changed = true
			continue
		}
		if lit, ok := ch.(*node.Literal); ok && lit.Value.IsSingular() {
			changed = true
			continue
		}
		rebuilt = append(rebuilt, ch)
	}
	if changed {
		if len(rebuilt) == 0 {
			return node.NewLiteral(value.NewList(nil)), true, nil
		}
		nn, err := f.New(c.Name(), rebuilt)
		if err != nil {
			return nil, false, err
		}
		return nn, true, nil
	}
	return stdutil.ConstantFold(c, c.compute)
}

func computeCat(args []value.Value) (value.Value, error) {
	var out []value.Value
	for _, a := range args {
		if a.IsSingular() {
			continue
		}
		out = append(out, stdutil.AsElems(a)...)
	}
	return value.NewList(out), nil
}

// listCall produces a list whose i-th element is the i-th argument as-is
// (unlike cat, a list-valued argument becomes one nested element, not
// spliced in).
type listCall struct{ simpleCall }

func newList(name string, args []node.Node) (node.Node, error) {
	c := &listCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeList
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *listCall) Clone() node.Node {
	n, _ := newList(c.Name(), node.CloneChildren(c))
	return n
}

func (c *listCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, -1) }

func computeList(args []value.Value) (value.Value, error) {
	out := make([]value.Value, len(args))
	copy(out, args)
	return value.NewList(out), nil
}

// firstCall returns the first element of its argument's stream, or absent
// if empty.
type firstCall struct{ simpleCall }

func newFirst(name string, args []node.Node) (node.Node, error) {
	c := &firstCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeFirst
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *firstCall) Clone() node.Node {
	n, _ := newFirst(c.Name(), node.CloneChildren(c))
	return n
}

func (c *firstCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func computeFirst(args []value.Value) (value.Value, error) {
	elems := stdutil.AsElems(args[0])
	if len(elems) == 0 {
		return value.Absent, nil
	}
	return elems[0], nil
}

// restCall returns every element but the first.
type restCall struct{ simpleCall }

func newRest(name string, args []node.Node) (node.Node, error) {
	c := &restCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeRest
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *restCall) Clone() node.Node {
	n, _ := newRest(c.Name(), node.CloneChildren(c))
	return n
}

func (c *restCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func computeRest(args []value.Value) (value.Value, error) {
	elems := stdutil.AsElems(args[0])
	if len(elems) <= 1 {
		return value.NewList(nil), nil
	}
	out := make([]value.Value, len(elems)-1)
	copy(out, elems[1:])
	return value.NewList(out), nil
}

// nthCall returns the 1-based k-th element of v, or absent if k is out of
// range.
type nthCall struct{ simpleCall }

func newNth(name string, args []node.Node) (node.Node, error) {
	c := &nthCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeNth
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *nthCall) Clone() node.Node {
	n, _ := newNth(c.Name(), node.CloneChildren(c))
	return n
}

func (c *nthCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, 2) }

func computeNth(args []value.Value) (value.Value, error) {
	k, err := args[0].AsNumber()
	if err != nil {
		return value.Absent, err
	}
	elems := stdutil.AsElems(args[1])
	idx := k - 1
	if idx < 0 || idx >= int64(len(elems)) {
		return value.Absent, nil
	}
	return elems[idx], nil
}

// flattenCall splices one level of nested lists into their parent.
type flattenCall struct{ simpleCall }

func newFlatten(name string, args []node.Node) (node.Node, error) {
	c := &flattenCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeFlatten
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *flattenCall) Clone() node.Node {
	n, _ := newFlatten(c.Name(), node.CloneChildren(c))
	return n
}

func (c *flattenCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func computeFlatten(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.Kind() != value.List {
		return v, nil
	}
	var out []value.Value
	for _, e := range v.ListElems() {
		if e.Kind() == value.List {
			out = append(out, e.ListElems()...)
		} else {
			out = append(out, e)
		}
	}
	return value.NewList(out), nil
}

// focusCall extracts, from each list element, the sub-element named key,
// keeping the outer element's own name on the extracted value.
type focusCall struct{ simpleCall }

func newFocus(name string, args []node.Node) (node.Node, error) {
	c := &focusCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeFocus
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *focusCall) Clone() node.Node {
	n, _ := newFocus(c.Name(), node.CloneChildren(c))
	return n
}

func (c *focusCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, 2) }

func computeFocus(args []value.Value) (value.Value, error) {
	key := args[0].Str()
	v := args[1]
	if v.Kind() != value.List {
		return value.NewList(nil), nil
	}
	var out []value.Value
	for _, elem := range v.ListElems() {
		if elem.Kind() != value.List {
			continue
		}
		for _, sub := range elem.ListElems() {
			if bytes.Equal(sub.Name(), key) {
				out = append(out, value.Named(elem.Name(), sub))
				break
			}
		}
	}
	return value.NewList(out), nil
}

// scatterCall unwraps a single-element list-containing-a-list back into
// the inner list (the inverse of gather).
type scatterCall struct{ simpleCall }

func newScatter(name string, args []node.Node) (node.Node, error) {
	c := &scatterCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeScatter
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *scatterCall) Clone() node.Node {
	n, _ := newScatter(c.Name(), node.CloneChildren(c))
	return n
}

func (c *scatterCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func computeScatter(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.Kind() == value.List && len(v.ListElems()) == 1 && v.ListElems()[0].Kind() == value.List {
		return v.ListElems()[0], nil
	}
	return v, nil
}

// gatherCall wraps v into a one-element list holding v (the inverse of
// scatter).
type gatherCall struct{ simpleCall }

func newGather(name string, args []node.Node) (node.Node, error) {
	c := &gatherCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeGather
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *gatherCall) Clone() node.Node {
	n, _ := newGather(c.Name(), node.CloneChildren(c))
	return n
}

func (c *gatherCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func computeGather(args []value.Value) (value.Value, error) {
	return value.NewList([]value.Value{args[0]}), nil
}
