// Package hostio declares the narrow interfaces the core expects from its
// external collaborators: the variable/data store, pluggable operators and
// transformations, the phase source, and the logger. Nothing in this
// package is implemented by the core itself — concrete implementations are
// supplied by the host embedding the engine.
package hostio

import (
	"github.com/google/uuid"

	"github.com/predicate-engine/predicate/arena"
	"github.com/predicate-engine/predicate/value"
)

// Phase is a named checkpoint in a transaction's lifecycle.
type Phase int

const (
	// PhaseNone is the sentinel "no phase yet" value.
	PhaseNone Phase = iota
	PhaseRequestHeader
	PhaseRequest
	PhaseResponseHeader
	PhaseResponse
)

func (p Phase) String() string {
	switch p {
	case PhaseRequestHeader:
		return "REQUEST_HEADER"
	case PhaseRequest:
		return "REQUEST"
	case PhaseResponseHeader:
		return "RESPONSE_HEADER"
	case PhaseResponse:
		return "RESPONSE"
	default:
		return "NONE"
	}
}

// Before reports whether p occurs strictly before o in phase order. PhaseNone
// is before every real phase.
func (p Phase) Before(o Phase) bool { return p < o }

// VarStore is the host's indexed named-field data store.
type VarStore interface {
	// Lookup returns the Value named key, or ok=false if absent.
	Lookup(key []byte) (v value.Value, ok bool)
	// LookupIndexed returns a pre-resolved key's Value by index, for hosts
	// that resolve var names to slots at configuration time.
	LookupIndexed(i int) (v value.Value, ok bool)
}

// OperatorCaps is a capability bitmask reported by an operator instance.
type OperatorCaps uint8

const (
	// CapStream indicates the operator can be driven incrementally across
	// phases (its Execute may be called again after a non-final answer).
	CapStream OperatorCaps = 1 << iota
	// CapNonStream indicates the operator always produces a final answer
	// in one Execute call.
	CapNonStream
)

// OperatorInstance is a compiled, host-created operator ready to execute
// against transaction values.
type OperatorInstance interface {
	// Execute runs the operator against input, returning whether it
	// matched and any capture groups it reported.
	Execute(ctx *Context, input value.Value) (matched bool, captures []value.Value, err error)
	// Capabilities reports whether this instance streams.
	Capabilities() OperatorCaps
}

// OperatorFactory creates operator instances by name, the host registry
// looked up by stdlib/hostops' "operator"/"foperator" call nodes.
type OperatorFactory interface {
	Create(name string, params []value.Value) (OperatorInstance, error)
}

// DynamicLookup is an optional capability of a VarStore: a Value named n
// may represent a host-side dynamic field that only resolves once given an
// extra parameter (e.g. a named sub-field of a collection). stdlib/hostops'
// "ask" call type-asserts for this before falling back to its plain
// by-name filtering behavior: if the target is dynamic, consult it with
// the key as parameter; otherwise behave as named.
type DynamicLookup interface {
	VarStore
	AskLookup(name []byte, key []byte) (v value.Value, ok bool)
}

// ValuePublisher is the host sink predconf.SetPredicateVars publishes a
// firing rule's values to: one PREDICATE_VALUE/PREDICATE_VALUE_NAME pair
// per emitted Value.
type ValuePublisher interface {
	PublishValue(v value.Value, name []byte)
}

// Memory is the opaque per-call scratch handle passed to a Transformation,
// giving it access to the transaction arena without exposing the whole
// Context.
type Memory interface {
	Arena() *arena.Arena
}

// Transformation is a host-provided value-to-value rewrite invoked
// element-wise by stdlib/hostops' "transformation" call node.
type Transformation interface {
	Execute(name string, memory Memory, v value.Value) (value.Value, error)
}

// PhaseSource reports the transaction's current phase.
type PhaseSource interface {
	CurrentPhase() Phase
}

// Level is a numeric log level, emergency(0)…trace(9).
type Level int

const (
	Emergency Level = iota
	Alert
	Critical
	LevelError
	Warning
	Notice
	Info
	Debug
	Trace2
	Trace
)

// Logger is the structured/text logging sink hosts provide.
type Logger interface {
	Log(level Level, file string, line int, format string, args ...interface{})
}

// Context is the single per-transaction handle threaded through PreEval and
// EvalCalculate, bundling every host surface plus the transaction arena.
type Context struct {
	TxnID  uuid.UUID
	Vars   VarStore
	Ops    map[string]OperatorFactory
	Xforms map[string]Transformation
	Phases PhaseSource
	Log    Logger
	Arena  *arena.Arena
}

// Operator looks up a registered OperatorFactory by name.
func (c *Context) Operator(name string) (OperatorFactory, bool) {
	f, ok := c.Ops[name]
	return f, ok
}

// Transformation looks up a registered Transformation by name.
func (c *Context) Transformation(name string) (Transformation, bool) {
	x, ok := c.Xforms[name]
	return x, ok
}

// CurrentPhase reports the transaction's current phase via the configured
// PhaseSource, or PhaseNone if none is configured.
func (c *Context) CurrentPhase() Phase {
	if c.Phases == nil {
		return PhaseNone
	}
	return c.Phases.CurrentPhase()
}
