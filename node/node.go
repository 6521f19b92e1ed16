// Package node defines the universal DAG element of the Predicate core:
// the Node interface and its two concrete kinds, Literal and Call. It
// also declares the minimal interfaces concrete call
// implementations (stdlib/*) are written against for graph mutation
// (Graph), node construction (Factory), diagnostics (Reporter), and
// incremental evaluation (EvalState) — kept here, rather than imported
// from merge/call/reporter/evalstate, so that those packages can depend on
// node without node depending back on them. merge.Graph, call.Factory,
// reporter.Reporter and evalstate.State all implement these interfaces.
package node

import (
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/value"
)

// Node is the universal DAG element.
type Node interface {
	// Name returns the call name, or the literal's canonical tag ("literal").
	Name() string
	// Children returns this node's ordered arguments.
	Children() []Node
	// AddChild appends c and registers this node as one of c's parents.
	AddChild(c Node)
	// RemoveChild removes the first occurrence of c and drops this node
	// from c's parent set if no other edge remains.
	RemoveChild(c Node)
	// ReplaceChild swaps the first occurrence of old for new in place.
	ReplaceChild(old, new Node)
	// Parents returns the nodes that currently reference this one.
	Parents() []Node

	// String renders the canonical textual form (stable across runs).
	String() string
	// Hash returns a content hash consistent with structural equality:
	// two structurally-equal nodes always hash equal.
	Hash() uint64
	// StructEqual reports whether o is structurally equal to this node
	// (same kind, same name/value, same children in the order that
	// matters for this node's Ordered()-ness).
	StructEqual(o Node) bool

	// Index is this node's stable slot assigned during indexing, or -1
	// before indexing has run.
	Index() int
	SetIndex(i int)

	// IsLiteral reports whether this is a Literal node.
	IsLiteral() bool
	// Clone deep-copies this node (and its subtree) as fresh, unparented
	// nodes — used by template expansion.
	Clone() Node

	// PreTransform validates the node's shape (arity, child types) ahead
	// of a transformation pass.
	PreTransform(rep Reporter) error
	// Transform asks the node to rewrite itself once against g. It
	// returns the replacement node (itself, if unchanged) and whether a
	// change occurred.
	Transform(g Graph, f Factory, rep Reporter) (Node, bool, error)
	// PostTransform runs after a transformation pass completes for this
	// node.
	PostTransform(rep Reporter) error

	// PreEval binds the node to the per-transaction environment: resolves
	// host operators/transformations, compiles regexes, and so on.
	PreEval(ctx *hostio.Context, rep Reporter) error
	// EvalCalculate drives this node's evaluation forward by one step for
	// the current phase, using s to read children and record progress.
	EvalCalculate(s EvalState, ctx *hostio.Context) error
}

// Graph is the subset of merge.Graph's API that a node's Transform method
// needs to mutate the shared DAG.
type Graph interface {
	// Replace records old -> new and rewrites old's parents to reference
	// new instead.
	Replace(old, new Node) error
	// AddChild appends child to parent's child list through the graph,
	// maintaining the structural-sharing index.
	AddChild(parent, child Node) error
	// RemoveChild removes child from parent's child list through the
	// graph.
	RemoveChild(parent, child Node) error
	// Intern returns the canonical node structurally equal to n, inserting
	// n as the canonical node if none yet exists.
	Intern(n Node) Node
}

// Factory is the subset of call.Factory's API a node's Transform method
// needs to construct fresh nodes (e.g. operator/transformation name
// normalization, template instantiation).
type Factory interface {
	New(name string, args []Node) (Node, error)
}

// Reporter is the subset of reporter.Reporter's API nodes report through.
type Reporter interface {
	Error(n Node, format string, args ...interface{})
	Warn(n Node, format string, args ...interface{})
}

// EvalState is the per-node slot protocol evaluation-time code calls
// against; evalstate.State implements it.
type EvalState interface {
	// Eval resolves forwarding, evaluates n if unfinished, and returns
	// its current value.
	Eval(n Node, ctx *hostio.Context) (value.Value, error)

	SetupLocalList(n Node) error
	AppendToList(n Node, v value.Value) error
	Alias(n Node, v value.Value) error
	Forward(n Node, other Node) error
	Finish(n Node) error
	FinishTrue(n Node) error
	FinishFalse(n Node) error
	SetPhase(n Node, p hostio.Phase)
	Phase(n Node) hostio.Phase
	IsFinished(n Node) bool
	CurrentValue(n Node) value.Value

	Scratch(n Node) interface{}
	SetScratch(n Node, s interface{})
}
