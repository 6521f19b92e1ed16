// Package hostops implements the host-integration call family: var,
// operator, foperator, transformation, waitPhase, finishPhase, ask. Every
// call here binds to the host at pre_eval — resolving var store lookups,
// host operator instances, and host transformations — through a narrow
// interface the core calls into but never implements itself.
package hostops

import (
	"bytes"

	"github.com/predicate-engine/predicate/arena"
	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/stdlib/internal/stdutil"
	"github.com/predicate-engine/predicate/value"
)

// Register adds every host-integration call to f.
func Register(f *call.Factory) error {
	for name, ctor := range map[string]call.Constructor{
		"var":            newVar,
		"operator":       newOperator,
		"foperator":      newFoperator,
		"transformation": newTransformation,
		"waitPhase":      newWaitPhase,
		"finishPhase":    newFinishPhase,
		"ask":            newAsk,
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

func literalString(n node.Node) ([]byte, bool) {
	lit, ok := n.(*node.Literal)
	if !ok {
		return nil, false
	}
	return lit.Value.Str(), true
}

// varCall looks up a named field in the host's var store, optionally gated
// to a phase window: an optional phase start/end constrains when the
// value becomes visible. Phase bounds are written as the corresponding
// hostio.Phase ordinal, since there is no named-phase-constant table of
// its own in this core — phases are referenced directly as their
// underlying int.
type varCall struct {
	node.CallBase
	key      []byte
	hasStart bool
	start    hostio.Phase
	hasEnd   bool
	end      hostio.Phase
}

func newVar(name string, args []node.Node) (node.Node, error) {
	c := &varCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *varCall) Clone() node.Node {
	n, _ := newVar(c.Name(), node.CloneChildren(c))
	return n
}

func (c *varCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 3) }

func (c *varCall) PreEval(ctx *hostio.Context, rep node.Reporter) error {
	kids := c.Children()
	key, ok := literalString(kids[0])
	if !ok {
		return perrors.ErrInvalidArguments.New(c.Name() + ": key must be a literal string")
	}
	c.key = key
	if len(kids) >= 2 {
		lit, ok := kids[1].(*node.Literal)
		if !ok {
			return perrors.ErrInvalidArguments.New(c.Name() + ": phase-start must be a literal")
		}
		n, err := lit.Value.AsNumber()
		if err != nil {
			return err
		}
		c.hasStart = true
		c.start = hostio.Phase(n)
	}
	if len(kids) >= 3 {
		lit, ok := kids[2].(*node.Literal)
		if !ok {
			return perrors.ErrInvalidArguments.New(c.Name() + ": phase-end must be a literal")
		}
		n, err := lit.Value.AsNumber()
		if err != nil {
			return err
		}
		c.hasEnd = true
		c.end = hostio.Phase(n)
	}
	return nil
}

func (c *varCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	phase := ctx.CurrentPhase()
	if c.hasStart && phase.Before(c.start) {
		return nil
	}
	var v value.Value
	var found bool
	if ctx.Vars != nil {
		v, found = ctx.Vars.Lookup(c.key)
	}
	closing := phase == hostio.PhaseResponse || (c.hasEnd && !phase.Before(c.end))
	if !found {
		if closing {
			return s.FinishFalse(c)
		}
		return nil
	}
	if err := s.Alias(c, v); err != nil {
		return err
	}
	return s.Finish(c)
}

// operatorBind is the name/params resolution shared by operatorCall and
// foperatorCall: both bind to a host operator instance at pre_eval, the
// point where nodes resolve host state — variable store lookups,
// compiled regexes, operator lookups, and the like.
type operatorBind struct {
	node.CallBase
	instance hostio.OperatorInstance
}

func (c *operatorBind) paramChildren() []node.Node {
	kids := c.Children()
	return kids[1 : len(kids)-1]
}

func (c *operatorBind) subjectChild() node.Node {
	kids := c.Children()
	return kids[len(kids)-1]
}

func (c *operatorBind) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, -1) }

func (c *operatorBind) bind(ctx *hostio.Context) error {
	kids := c.Children()
	name, ok := literalString(kids[0])
	if !ok {
		return perrors.ErrInvalidArguments.New(c.Name() + ": operator name must be a literal string")
	}
	opName := string(name)
	params := make([]value.Value, 0, len(kids)-2)
	for _, p := range c.paramChildren() {
		lit, ok := p.(*node.Literal)
		if !ok {
			return perrors.ErrInvalidArguments.New(c.Name() + ": operator params must be literal")
		}
		params = append(params, lit.Value)
	}
	factory, ok := ctx.Operator(opName)
	if !ok {
		return perrors.ErrNotFound.New("operator " + opName)
	}
	inst, err := factory.Create(opName, params)
	if err != nil {
		return err
	}
	c.instance = inst
	return nil
}

// operatorCall invokes a host operator once against its subject, reporting
// the operator's capture list as a truthy result or absent on no match.
type operatorCall struct{ operatorBind }

func newOperator(name string, args []node.Node) (node.Node, error) {
	c := &operatorCall{}
	c.CallBase = node.NewCallBase(name, true)
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *operatorCall) Clone() node.Node {
	n, _ := newOperator(c.Name(), node.CloneChildren(c))
	return n
}

func (c *operatorCall) PreEval(ctx *hostio.Context, rep node.Reporter) error { return c.bind(ctx) }

func (c *operatorCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	if c.instance == nil {
		return perrors.ErrInvalidState.New(c.Name() + ": operator not bound (pre_eval did not run)")
	}
	v, err := s.Eval(c.subjectChild(), ctx)
	if err != nil {
		return err
	}
	matched, captures, err := c.instance.Execute(ctx, v)
	if err != nil {
		return perrors.ErrHostOperatorFailure.New(c.Name(), err.Error())
	}
	if matched {
		if err := s.Alias(c, value.NewList(captures)); err != nil {
			return err
		}
		return s.Finish(c)
	}
	if c.instance.Capabilities()&hostio.CapStream != 0 {
		return nil
	}
	return s.FinishFalse(c)
}

// foperatorCall invokes a host operator element-wise over its subject,
// filter-style: it emits the subset of subject's elements that matched
// rather than the operator's capture groups.
type foperatorCall struct{ operatorBind }

func newFoperator(name string, args []node.Node) (node.Node, error) {
	c := &foperatorCall{}
	c.CallBase = node.NewCallBase(name, true)
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *foperatorCall) Clone() node.Node {
	n, _ := newFoperator(c.Name(), node.CloneChildren(c))
	return n
}

func (c *foperatorCall) PreEval(ctx *hostio.Context, rep node.Reporter) error { return c.bind(ctx) }

func (c *foperatorCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	if c.instance == nil {
		return perrors.ErrInvalidState.New(c.Name() + ": operator not bound (pre_eval did not run)")
	}
	v, err := s.Eval(c.subjectChild(), ctx)
	if err != nil {
		return err
	}
	var kept []value.Value
	for _, elem := range stdutil.AsElems(v) {
		matched, _, err := c.instance.Execute(ctx, elem)
		if err != nil {
			return perrors.ErrHostOperatorFailure.New(c.Name(), err.Error())
		}
		if matched {
			kept = append(kept, elem)
		}
	}
	if err := s.Alias(c, value.NewList(kept)); err != nil {
		return err
	}
	return s.Finish(c)
}

// realMemory adapts a hostio.Context to hostio.Memory for a
// transformation's Execute call, without exposing the whole Context to the
// host.
type realMemory struct{ ctx *hostio.Context }

func (m realMemory) Arena() *arena.Arena { return m.ctx.Arena }

// transformationCall invokes a host transformation element-wise over its
// subject.
type transformationCall struct {
	node.CallBase
	name  string
	xform hostio.Transformation
}

func newTransformation(name string, args []node.Node) (node.Node, error) {
	c := &transformationCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *transformationCall) Clone() node.Node {
	n, _ := newTransformation(c.Name(), node.CloneChildren(c))
	return n
}

func (c *transformationCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, -1) }

func (c *transformationCall) PreEval(ctx *hostio.Context, rep node.Reporter) error {
	kids := c.Children()
	name, ok := literalString(kids[0])
	if !ok {
		return perrors.ErrInvalidArguments.New(c.Name() + ": transformation name must be a literal string")
	}
	c.name = string(name)
	xform, ok := ctx.Transformation(c.name)
	if !ok {
		return perrors.ErrNotFound.New("transformation " + c.name)
	}
	c.xform = xform
	return nil
}

func (c *transformationCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	if c.xform == nil {
		return perrors.ErrInvalidState.New(c.Name() + ": transformation not bound (pre_eval did not run)")
	}
	kids := c.Children()
	v, err := s.Eval(kids[len(kids)-1], ctx)
	if err != nil {
		return err
	}
	out, err := c.apply(ctx, v)
	if err != nil {
		return perrors.ErrHostOperatorFailure.New(c.name, err.Error())
	}
	if err := s.Alias(c, out); err != nil {
		return err
	}
	return s.Finish(c)
}

func (c *transformationCall) apply(ctx *hostio.Context, v value.Value) (value.Value, error) {
	if v.Kind() != value.List {
		return c.xform.Execute(c.name, realMemory{ctx}, v)
	}
	elems := v.ListElems()
	out := make([]value.Value, len(elems))
	for i, e := range elems {
		r, err := c.xform.Execute(c.name, realMemory{ctx}, e)
		if err != nil {
			return value.Value{}, err
		}
		out[i] = value.Named(e.Name(), r)
	}
	return value.NewList(out), nil
}

// waitPhaseCall keeps its wrapped node absent until the named phase, then
// forwards to it.
type waitPhaseCall struct {
	node.CallBase
	phase hostio.Phase
}

func newWaitPhase(name string, args []node.Node) (node.Node, error) {
	c := &waitPhaseCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *waitPhaseCall) Clone() node.Node {
	n, _ := newWaitPhase(c.Name(), node.CloneChildren(c))
	return n
}

func (c *waitPhaseCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, 2) }

func (c *waitPhaseCall) PreEval(ctx *hostio.Context, rep node.Reporter) error {
	lit, ok := c.Children()[0].(*node.Literal)
	if !ok {
		return perrors.ErrInvalidArguments.New(c.Name() + ": phase must be a literal")
	}
	n, err := lit.Value.AsNumber()
	if err != nil {
		return err
	}
	c.phase = hostio.Phase(n)
	return nil
}

func (c *waitPhaseCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	if ctx.CurrentPhase().Before(c.phase) {
		return nil
	}
	return s.Forward(c, c.Children()[1])
}

// finishPhaseCall drives its wrapped node's evaluation every phase but only
// finishes its own slot once the named phase has ended, locking in whatever
// value the wrapped node held at that point.
type finishPhaseCall struct {
	node.CallBase
	phase hostio.Phase
}

func newFinishPhase(name string, args []node.Node) (node.Node, error) {
	c := &finishPhaseCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *finishPhaseCall) Clone() node.Node {
	n, _ := newFinishPhase(c.Name(), node.CloneChildren(c))
	return n
}

func (c *finishPhaseCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, 2) }

func (c *finishPhaseCall) PreEval(ctx *hostio.Context, rep node.Reporter) error {
	lit, ok := c.Children()[0].(*node.Literal)
	if !ok {
		return perrors.ErrInvalidArguments.New(c.Name() + ": phase must be a literal")
	}
	n, err := lit.Value.AsNumber()
	if err != nil {
		return err
	}
	c.phase = hostio.Phase(n)
	return nil
}

func (c *finishPhaseCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	v, err := s.Eval(c.Children()[1], ctx)
	if err != nil {
		return err
	}
	if c.phase.Before(ctx.CurrentPhase()) {
		if err := s.Alias(c, v); err != nil {
			return err
		}
		return s.Finish(c)
	}
	return nil
}

// askCall consults v with key as a parameter when v names a host-side
// dynamic field, otherwise filters v's elements by name like stdlib/filter's
// "named".
type askCall struct{ node.CallBase }

func newAsk(name string, args []node.Node) (node.Node, error) {
	c := &askCall{CallBase: node.NewCallBase(name, true)}
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *askCall) Clone() node.Node {
	n, _ := newAsk(c.Name(), node.CloneChildren(c))
	return n
}

func (c *askCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 2, 2) }

func (c *askCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	kids := c.Children()
	keyV, err := s.Eval(kids[0], ctx)
	if err != nil {
		return err
	}
	vV, err := s.Eval(kids[1], ctx)
	if err != nil {
		return err
	}
	if ctx.Vars != nil && vV.IsNamed() {
		if dyn, ok := ctx.Vars.(hostio.DynamicLookup); ok {
			if res, found := dyn.AskLookup(vV.Name(), keyV.Str()); found {
				if err := s.Alias(c, res); err != nil {
					return err
				}
				return s.Finish(c)
			}
		}
	}
	var kept []value.Value
	for _, e := range stdutil.AsElems(vV) {
		if bytes.Equal(e.Name(), keyV.Str()) {
			kept = append(kept, e)
		}
	}
	if err := s.Alias(c, value.NewList(kept)); err != nil {
		return err
	}
	return s.Finish(c)
}

// NewSpecificOperator returns a generator constructor for a specific named
// operator: "(NAME args… subject)" rewrites to "(operator 'NAME' args…
// subject)". The host registers one of these per host operator name it
// exposes, at configuration time, after which source text naming that
// operator directly is shorthand for the general operator form.
func NewSpecificOperator(opName string) call.Constructor {
	return func(name string, args []node.Node) (node.Node, error) {
		if name != opName {
			return nil, perrors.ErrInvalidRegistration.New("hostops: specific operator generator for " + opName + " invoked as " + name)
		}
		c := &specificOperatorCall{CallBase: node.NewCallBase(name, true)}
		build(&c.CallBase, c, args)
		return c, nil
	}
}

type specificOperatorCall struct{ node.CallBase }

func (c *specificOperatorCall) Clone() node.Node {
	n, _ := NewSpecificOperator(c.Name())(c.Name(), node.CloneChildren(c))
	return n
}

func (c *specificOperatorCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, -1) }

func (c *specificOperatorCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	args := append([]node.Node{node.NewLiteral(value.NewString([]byte(c.Name())))}, c.Children()...)
	out, err := f.New("operator", args)
	if err != nil {
		return c, false, err
	}
	return out, true, nil
}

// NewSpecificTransformation returns a generator constructor for a specific
// named transformation: it rewrites, the same way, to
// "(transformation 'NAME' '' subject)".
func NewSpecificTransformation(xName string) call.Constructor {
	return func(name string, args []node.Node) (node.Node, error) {
		if name != xName {
			return nil, perrors.ErrInvalidRegistration.New("hostops: specific transformation generator for " + xName + " invoked as " + name)
		}
		c := &specificTransformationCall{CallBase: node.NewCallBase(name, true)}
		build(&c.CallBase, c, args)
		return c, nil
	}
}

type specificTransformationCall struct{ node.CallBase }

func (c *specificTransformationCall) Clone() node.Node {
	n, _ := NewSpecificTransformation(c.Name())(c.Name(), node.CloneChildren(c))
	return n
}

func (c *specificTransformationCall) PreTransform(node.Reporter) error {
	return stdutil.CheckArity(c, 1, 1)
}

func (c *specificTransformationCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	args := []node.Node{
		node.NewLiteral(value.NewString([]byte(c.Name()))),
		node.NewLiteral(value.NewString(nil)),
		c.Children()[0],
	}
	out, err := f.New("transformation", args)
	if err != nil {
		return c, false, err
	}
	return out, true, nil
}
