// Package evalstate implements the per-transaction evaluation state and
// driver: the indexer, the initializer, the dense per-node slot array, and
// the eval() entry point used by rule roots each phase. Each Driver.Eval
// call runs inside its own opentracing span.
package evalstate

import (
	"fmt"

	"github.com/opentracing/opentracing-go"

	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/reporter"
	"github.com/predicate-engine/predicate/traverse"
	"github.com/predicate-engine/predicate/value"
)

// Mode is a slot's current occupancy.
type Mode int

const (
	// Unset is a slot that has not yet been touched this transaction.
	Unset Mode = iota
	// Local holds a directly-accumulated list payload (setup_local_list/
	// append_to_list).
	Local
	// Aliased holds a single Value set once via alias/finish_true/
	// finish_false.
	Aliased
	// Forwarded delegates lookup to another node's slot.
	Forwarded
)

// Slot is one node's evaluation-time state.
type Slot struct {
	Mode      Mode
	Value     value.Value
	ForwardTo int
	Finished  bool
	Phase     hostio.Phase
	Scratch   interface{}
}

// State is the dense, per-transaction slot array indexed by node.Node.Index().
// It implements node.EvalState.
type State struct {
	slots []Slot
	nodes []node.Node
	rep   *reporter.Reporter
}

// NewState is the indexer: it walks every node reachable from roots
// exactly once, assigns each a dense Index(), and allocates one Slot per
// node.
func NewState(roots []node.Node, rep *reporter.Reporter) *State {
	order := traverse.BreadthFirst(roots...)
	for i, n := range order {
		n.SetIndex(i)
	}
	return &State{
		slots: make([]Slot, len(order)),
		nodes: order,
		rep:   rep,
	}
}

// Order returns the indexer's traversal order (node at position i has
// Index() == i).
func (s *State) Order() []node.Node { return s.nodes }

// Initializer runs pre_eval over every node in a State's indexed order
// against the per-transaction environment.
type Initializer struct{}

// Run invokes PreEval on every node of order, binding each to ctx — where
// nodes resolve host operators/transformations, compile regexes, and so
// on.
func (Initializer) Run(order []node.Node, ctx *hostio.Context, rep *reporter.Reporter) error {
	for _, n := range order {
		if err := n.PreEval(ctx, rep); err != nil {
			return err
		}
	}
	return nil
}

// Driver resolves forwarding chains and drives a single node's evaluation
// forward.
type Driver struct {
	Tracer opentracing.Tracer
}

// NewDriver returns a Driver using tracer for per-eval spans, or the
// global no-op tracer if tracer is nil.
func NewDriver(tracer opentracing.Tracer) *Driver {
	if tracer == nil {
		tracer = opentracing.NoopTracer{}
	}
	return &Driver{Tracer: tracer}
}

// Eval resolves n's forwarding chain, evaluates the final target if it is
// not yet finished, records its phase, and returns its current Value.
func (d *Driver) Eval(s *State, n node.Node, ctx *hostio.Context) (value.Value, error) {
	span := d.Tracer.StartSpan(fmt.Sprintf("eval:%s", n.Name()))
	defer span.Finish()
	return s.Eval(n, ctx)
}

// Eval implements node.EvalState's eval: evaluates nodes along n's
// forwarding chain as needed (a node's decision to forward is itself only
// known once its EvalCalculate runs), follows the chain to its terminal
// node, and returns that node's current Value. Forwarding cycles fail
// ErrInvalidState.
func (s *State) Eval(n node.Node, ctx *hostio.Context) (value.Value, error) {
	cur := n
	seen := make(map[int]bool)
	for {
		idx := cur.Index()
		if seen[idx] {
			return value.Absent, perrors.ErrInvalidState.New(fmt.Sprintf("forwarding cycle detected at %s", cur.String()))
		}
		seen[idx] = true

		slot := &s.slots[idx]
		if slot.Mode != Forwarded && !slot.Finished {
			if err := cur.EvalCalculate(s, ctx); err != nil {
				return value.Absent, err
			}
			if ctx != nil {
				slot.Phase = ctx.CurrentPhase()
			}
		}
		if slot.Mode == Forwarded {
			cur = s.nodes[slot.ForwardTo]
			continue
		}
		return slot.Value, nil
	}
}

// SetupLocalList initializes n's slot as Local with an empty list payload,
// failing ErrInvalidState if the slot is not Unset.
func (s *State) SetupLocalList(n node.Node) error {
	slot := &s.slots[n.Index()]
	if slot.Mode != Unset {
		return errInvalidTransition(n, slot.Mode, "setup_local_list")
	}
	slot.Mode = Local
	slot.Value = value.NewList(nil)
	return nil
}

// AppendToList pushes v onto n's local list slot, failing ErrInvalidState
// if the slot is not Local or is already finished.
func (s *State) AppendToList(n node.Node, v value.Value) error {
	slot := &s.slots[n.Index()]
	if slot.Mode != Local {
		return errInvalidTransition(n, slot.Mode, "append_to_list")
	}
	if slot.Finished {
		return perrors.ErrInvalidState.New(fmt.Sprintf("%s: append_to_list on a finished slot", n.String()))
	}
	slot.Value = value.NewList(append(append([]value.Value{}, slot.Value.ListElems()...), v))
	return nil
}

// Alias sets n's slot Value directly, failing ErrInvalidState if the slot
// is not Unset.
func (s *State) Alias(n node.Node, v value.Value) error {
	slot := &s.slots[n.Index()]
	if slot.Mode != Unset {
		return errInvalidTransition(n, slot.Mode, "alias")
	}
	slot.Mode = Aliased
	slot.Value = v
	return nil
}

// Forward delegates n's slot to other's, failing ErrInvalidState if n's
// slot is not Unset.
func (s *State) Forward(n, other node.Node) error {
	slot := &s.slots[n.Index()]
	if slot.Mode != Unset {
		return errInvalidTransition(n, slot.Mode, "forward")
	}
	slot.Mode = Forwarded
	slot.ForwardTo = other.Index()
	return nil
}

// Finish marks n's slot finished at its current phase.
func (s *State) Finish(n node.Node) error {
	slot := &s.slots[n.Index()]
	if slot.Finished {
		return perrors.ErrInvalidState.New(fmt.Sprintf("%s: double finish", n.String()))
	}
	slot.Finished = true
	return nil
}

// FinishTrue aliases n's slot to the canonical truthy string and finishes
// it.
func (s *State) FinishTrue(n node.Node) error {
	if err := s.Alias(n, value.NewString(nil)); err != nil {
		return err
	}
	return s.Finish(n)
}

// FinishFalse aliases n's slot to the absent singular and finishes it.
func (s *State) FinishFalse(n node.Node) error {
	if err := s.Alias(n, value.Absent); err != nil {
		return err
	}
	return s.Finish(n)
}

// SetPhase records the phase at which n's slot last progressed.
func (s *State) SetPhase(n node.Node, p hostio.Phase) {
	s.slots[n.Index()].Phase = p
}

// Phase returns the phase last recorded for n.
func (s *State) Phase(n node.Node) hostio.Phase {
	return s.slots[n.Index()].Phase
}

// IsFinished reports whether n's slot is finished.
func (s *State) IsFinished(n node.Node) bool {
	return s.slots[n.Index()].Finished
}

// CurrentValue returns n's slot's current Value without resolving
// forwarding or triggering evaluation.
func (s *State) CurrentValue(n node.Node) value.Value {
	return s.slots[n.Index()].Value
}

// Scratch returns n's opaque per-node progress state (used by streaming
// calls like sequence to remember an iterator position).
func (s *State) Scratch(n node.Node) interface{} {
	return s.slots[n.Index()].Scratch
}

// SetScratch sets n's opaque per-node progress state.
func (s *State) SetScratch(n node.Node, v interface{}) {
	s.slots[n.Index()].Scratch = v
}

func errInvalidTransition(n node.Node, mode Mode, op string) error {
	return perrors.ErrInvalidState.New(fmt.Sprintf("%s: %s is invalid in mode %d", n.String(), op, mode))
}
