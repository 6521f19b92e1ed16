// Package filter implements the filter call family: eq, ne, lt, le, gt,
// ge, typed, named, namedi, namedRx and their notNamed* negations. Every
// call in this family takes a predicate parameter and a subject stream and
// emits the subsequence of the stream's elements that satisfy the
// predicate.
package filter

import (
	"bytes"
	"regexp"

	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/stdlib/internal/stdutil"
	"github.com/predicate-engine/predicate/value"
)

// predicate reports whether elem passes a filter call's test against
// param, the call's first argument.
type predicate func(param, elem value.Value) (bool, error)

// filterCall is the shared shape of every call in this family: two
// children (param, subject), constant-folding and eager evaluation both
// delegating to compute, which walks the subject's stream applying pred.
type filterCall struct {
	node.CallBase
	pred predicate
}

func (c *filterCall) compute(args []value.Value) (value.Value, error) {
	param, subject := args[0], args[1]
	var out []value.Value
	for _, elem := range stdutil.AsElems(subject) {
		ok, err := c.pred(param, elem)
		if err != nil {
			return value.Value{}, err
		}
		if ok {
			out = append(out, elem)
		}
	}
	return value.NewList(out), nil
}

func (c *filterCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	return stdutil.ConstantFold(c, c.compute)
}

func (c *filterCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	return stdutil.EagerEval(c, s, ctx, c.compute)
}

func (c *filterCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, 2) }

func build(name string, pred predicate, args []node.Node) node.Node {
	c := &filterCall{CallBase: node.NewCallBase(name, true), pred: pred}
	c.Init(c)
	for _, a := range args {
		c.AddChild(a)
	}
	return c
}

// Register adds every filter call to f.
func Register(f *call.Factory) error {
	ctors := map[string]predicate{
		"eq":  func(p, e value.Value) (bool, error) { return p.Equal(e), nil },
		"ne":  func(p, e value.Value) (bool, error) { return !p.Equal(e), nil },
		"lt":  numericPredicate(func(p, e int64) bool { return e < p }),
		"le":  numericPredicate(func(p, e int64) bool { return e <= p }),
		"gt":  numericPredicate(func(p, e int64) bool { return e > p }),
		"ge":  numericPredicate(func(p, e int64) bool { return e >= p }),
		"typed": func(p, e value.Value) (bool, error) {
			return e.Kind().String() == string(p.Str()), nil
		},
		"named":   namedPredicate(bytes.Equal, false),
		"namedi":  namedPredicate(bytes.EqualFold, false),
		"namedRx": namedRxPredicate(false),

		"notNamed":   namedPredicate(bytes.Equal, true),
		"notNamedi":  namedPredicate(bytes.EqualFold, true),
		"notNamedRx": namedRxPredicate(true),
	}
	for name, pred := range ctors {
		pred := pred
		name := name
		ctor := func(n string, args []node.Node) (node.Node, error) {
			return build(n, pred, args), nil
		}
		if err := f.Register(name, ctor); err != nil {
			return err
		}
	}
	return nil
}

func numericPredicate(cmp func(param, elem int64) bool) predicate {
	return func(p, e value.Value) (bool, error) {
		pn, err := p.AsNumber()
		if err != nil {
			return false, err
		}
		en, err := e.AsNumber()
		if err != nil {
			// A non-numeric stream element simply fails the comparison
			// rather than aborting the whole filter.
			return false, nil
		}
		return cmp(pn, en), nil
	}
}

func namedPredicate(match func(a, b []byte) bool, negate bool) predicate {
	return func(p, e value.Value) (bool, error) {
		hit := match(p.Str(), e.Name())
		if negate {
			return !hit, nil
		}
		return hit, nil
	}
}

func namedRxPredicate(negate bool) predicate {
	return func(p, e value.Value) (bool, error) {
		re, err := regexp.CompilePOSIX(string(p.Str()))
		if err != nil {
			return false, err
		}
		hit := re.Match(e.Name())
		if negate {
			return !hit, nil
		}
		return hit, nil
	}
}

// Clone deep-copies a filterCall, reusing the predicate already bound at
// construction (predicates carry no per-instance state).
func (c *filterCall) Clone() node.Node {
	return build(c.Name(), c.pred, node.CloneChildren(c))
}
