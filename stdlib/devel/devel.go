// Package devel implements the development call family: p, identity,
// sequence.
package devel

import (
	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/stdlib/internal/stdutil"
	"github.com/predicate-engine/predicate/value"
)

// Register adds every development call to f.
func Register(f *call.Factory) error {
	for name, ctor := range map[string]call.Constructor{
		"p":        newP,
		"identity": newIdentity,
		"sequence": newSequence,
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

// pCall evaluates and logs every argument but its last, then finishes to
// the last argument's value unchanged. Never constant-folds: tracing is a
// side effect, and folding would silence it.
type pCall struct{ node.CallBase }

func newP(name string, args []node.Node) (node.Node, error) {
	c := &pCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *pCall) Clone() node.Node {
	n, _ := newP(c.Name(), node.CloneChildren(c))
	return n
}

func (c *pCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, -1) }

func (c *pCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	kids := c.Children()
	traced := kids[:len(kids)-1]
	subject := kids[len(kids)-1]

	vals := make([]value.Value, len(traced))
	for i, ch := range traced {
		v, err := s.Eval(ch, ctx)
		if err != nil {
			return err
		}
		vals[i] = v
	}
	if ctx != nil && ctx.Log != nil {
		for _, v := range vals {
			ctx.Log.Log(hostio.Trace, "", 0, "p: %s", v.String())
		}
	}
	v, err := s.Eval(subject, ctx)
	if err != nil {
		return err
	}
	if err := s.Alias(c, v); err != nil {
		return err
	}
	return s.Finish(c)
}

// identityCall returns its single argument's value unchanged and is never
// rewritten away, unlike every other pure stdlib call.
type identityCall struct{ node.CallBase }

func newIdentity(name string, args []node.Node) (node.Node, error) {
	c := &identityCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *identityCall) Clone() node.Node {
	n, _ := newIdentity(c.Name(), node.CloneChildren(c))
	return n
}

func (c *identityCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func (c *identityCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	return s.Forward(c, c.Children()[0])
}

// sequenceCall streams one more integer per evaluation, from start toward
// stop (inclusive) in steps of step, finishing once stop is reached (if
// given) and never finishing otherwise — a potentially-infinite list of
// integers, one per evaluation.
type sequenceCall struct{ node.CallBase }

func newSequence(name string, args []node.Node) (node.Node, error) {
	c := &sequenceCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *sequenceCall) Clone() node.Node {
	n, _ := newSequence(c.Name(), node.CloneChildren(c))
	return n
}

func (c *sequenceCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 3) }

// sequenceScratch is the cursor remembered across phases — opaque scratch
// used by nodes like sequence to remember an iterator position.
type sequenceScratch struct {
	next    int64
	hasStop bool
	stop    int64
	step    int64
}

func (c *sequenceCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	scratch, ok := s.Scratch(c).(*sequenceScratch)
	if !ok {
		sc, err := c.initScratch(s, ctx)
		if err != nil {
			return err
		}
		scratch = sc
		if err := s.SetupLocalList(c); err != nil {
			return err
		}
		s.SetScratch(c, scratch)
	}

	if scratch.hasStop {
		if scratch.step >= 0 && scratch.next > scratch.stop {
			return s.Finish(c)
		}
		if scratch.step < 0 && scratch.next < scratch.stop {
			return s.Finish(c)
		}
	}

	if err := s.AppendToList(c, value.NewNumber(scratch.next)); err != nil {
		return err
	}
	scratch.next += scratch.step
	s.SetScratch(c, scratch)

	if scratch.hasStop {
		if (scratch.step >= 0 && scratch.next > scratch.stop) || (scratch.step < 0 && scratch.next < scratch.stop) {
			return s.Finish(c)
		}
	}
	return nil
}

func (c *sequenceCall) initScratch(s node.EvalState, ctx *hostio.Context) (*sequenceScratch, error) {
	kids := c.Children()
	startV, err := s.Eval(kids[0], ctx)
	if err != nil {
		return nil, err
	}
	start, err := startV.AsNumber()
	if err != nil {
		return nil, err
	}
	sc := &sequenceScratch{next: start, step: 1}
	if len(kids) >= 2 {
		stopV, err := s.Eval(kids[1], ctx)
		if err != nil {
			return nil, err
		}
		stop, err := stopV.AsNumber()
		if err != nil {
			return nil, err
		}
		sc.hasStop = true
		sc.stop = stop
	}
	if len(kids) >= 3 {
		stepV, err := s.Eval(kids[2], ctx)
		if err != nil {
			return nil, err
		}
		step, err := stepV.AsNumber()
		if err != nil {
			return nil, err
		}
		if step == 0 {
			return nil, perrors.ErrInvalidArguments.New("sequence: step must be non-zero")
		}
		sc.step = step
	}
	return sc, nil
}
