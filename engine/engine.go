// Package engine implements the top-level compile/evaluate driver: compile
// every loaded rule into a shared DAG once, then evaluate it incrementally
// per transaction per phase.
package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/predicate-engine/predicate/arena"
	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/evalstate"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/merge"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/predconf"
	"github.com/predicate-engine/predicate/reporter"
	"github.com/predicate-engine/predicate/rewrite"
	"github.com/predicate-engine/predicate/stdlib"
	"github.com/predicate-engine/predicate/stdlib/hostops"
	"github.com/predicate-engine/predicate/stdlib/template"
	"github.com/predicate-engine/predicate/value"
)

// Config bundles bootstrap-time engine-wide knobs.
type Config struct {
	// LenientValidation reports configuration errors through the Reporter
	// without failing Compile, instead of aborting configuration load.
	LenientValidation bool
	// MaxTransformPasses overrides rewrite.MaxPasses when nonzero.
	MaxTransformPasses int
	// TraceRuleIDs seeds tracing for these rule ids (by Compile order,
	// "rule-0", "rule-1", …) from construction, with no PredicateTrace
	// audit record — use (*Engine).Trace for tracing enabled later.
	TraceRuleIDs []string
}

// Engine bundles the compiled, shared state for every loaded rule: the
// call registry, the template registry, the post-transform DAG, and the
// diagnostics sink both configuration loading and evaluation report
// through.
type Engine struct {
	cfg       Config
	Factory   *call.Factory
	Templates *template.Registry
	Graph     *merge.Graph
	Rep       *reporter.Reporter
	Tracer    *predconf.Tracer
	Arena     *arena.Arena

	ops     map[string]hostio.OperatorFactory
	xforms  map[string]hostio.Transformation
	ruleIDs map[node.Node]string
}

// New constructs an Engine with every standard call registered, ready for
// host operators/transformations to be registered before Compile runs.
func New(cfg Config) *Engine {
	f := call.NewFactory()
	if err := stdlib.RegisterAll(f); err != nil {
		panic(fmt.Sprintf("engine: standard library failed to register: %v", err))
	}
	rep := reporter.NewNop()
	e := &Engine{
		cfg:       cfg,
		Factory:   f,
		Templates: template.NewRegistry(),
		Rep:       rep,
		Tracer:    predconf.NewTracer(nil, cfg.TraceRuleIDs...),
		Arena:     arena.New("engine", 0),
		ops:       make(map[string]hostio.OperatorFactory),
		xforms:    make(map[string]hostio.Transformation),
		ruleIDs:   make(map[node.Node]string),
	}
	e.Graph = merge.New(rep)
	return e
}

// RegisterOperator makes name available to (operator 'name' …)/
// (foperator 'name' …) calls, and additionally registers name itself as a
// specific operator call (via stdlib/hostops.NewSpecificOperator) so rule
// source can also write "(name … subject)" directly.
func (e *Engine) RegisterOperator(name string, factory hostio.OperatorFactory) error {
	if _, exists := e.ops[name]; exists {
		return perrors.ErrInvalidRegistration.New(fmt.Sprintf("operator %q already registered", name))
	}
	e.ops[name] = factory
	return e.Factory.Register(name, hostops.NewSpecificOperator(name))
}

// RegisterTransformation is RegisterOperator's analogue for host
// transformations (stdlib/hostops.NewSpecificTransformation).
func (e *Engine) RegisterTransformation(name string, xform hostio.Transformation) error {
	if _, exists := e.xforms[name]; exists {
		return perrors.ErrInvalidRegistration.New(fmt.Sprintf("transformation %q already registered", name))
	}
	e.xforms[name] = xform
	return e.Factory.Register(name, hostops.NewSpecificTransformation(name))
}

// Define registers one "(define NAME arg… body)" form.
func (e *Engine) Define(text string) error {
	return predconf.PredicateDefine(e.Templates, e.Factory, text)
}

// DebugReport writes the compiled DAG's canonical form to w.
func (e *Engine) DebugReport(w io.Writer) error {
	return predconf.PredicateDebugReport(e.Graph, w)
}

// AssertValid runs the graph validation pass on demand; Compile already
// runs it internally.
func (e *Engine) AssertValid() error {
	return predconf.PredicateAssertValid(e.Graph, e.Rep)
}

// Trace enables tracing for the named rule ids (or every rule, if none
// are given), writing an audit record to path.
func (e *Engine) Trace(path string, ruleIDs ...string) error {
	return predconf.PredicateTrace(e.Tracer, path, ruleIDs...)
}

// Compile parses each element of sources as one rule's S-expression body,
// inserts every root into the shared graph, validates, rewrites to a fixed
// point, and re-validates. Indexing happens lazily, once per
// NewTransaction.
func (e *Engine) Compile(sources []string) error {
	parser := call.NewParser(e.Factory)
	for i, src := range sources {
		root, remainder, err := parser.ParseTopLevel(src)
		if err != nil {
			return err
		}
		if strings.TrimSpace(remainder) != "" {
			return perrors.ErrInvalidSyntax.New(fmt.Sprintf("Compile: trailing input %q", remainder))
		}
		_, canonical := e.Graph.AddRoot(root)
		e.ruleIDs[canonical] = fmt.Sprintf("rule-%d", i)
	}

	if err := e.assertValidUnlessLenient(); err != nil {
		return err
	}

	driver := rewrite.NewDriver(e.Graph, e.Factory, e.Rep)
	maxPasses := rewrite.MaxPasses
	if e.cfg.MaxTransformPasses > 0 {
		maxPasses = e.cfg.MaxTransformPasses
	}
	if err := driver.RunToFixedPointN(maxPasses); err != nil {
		return err
	}

	return e.assertValidUnlessLenient()
}

func (e *Engine) assertValidUnlessLenient() error {
	err := predconf.PredicateAssertValid(e.Graph, e.Rep)
	if err != nil && e.cfg.LenientValidation {
		return nil
	}
	return err
}

// RuleResult is one rule root's value as of a RunPhase call.
type RuleResult struct {
	Root  node.Node
	Value value.Value
}

// Transaction is the per-transaction evaluation state: a dense slot array
// indexed over the compiled graph, bound to one host environment, driven
// forward one phase at a time.
type Transaction struct {
	engine *Engine
	goCtx  context.Context
	txnID  uuid.UUID
	state  *evalstate.State
	ctx    *hostio.Context
	pub    hostio.ValuePublisher
	phase  hostio.Phase
}

// CurrentPhase implements hostio.PhaseSource over the transaction's own
// RunPhase-driven phase, so host-bound call nodes (stdlib/hostops) see
// exactly the phase this Transaction is currently running.
func (t *Transaction) CurrentPhase() hostio.Phase { return t.phase }

// TxnID returns the transaction's generated id.
func (t *Transaction) TxnID() uuid.UUID { return t.txnID }

// NewTransaction indexes the compiled graph, binds it to vars/log/pub, and
// runs pre_eval over every node before any phase may be driven. goCtx is
// stored on the Transaction; neither the evaluator nor any host callback
// receives it.
func (e *Engine) NewTransaction(goCtx context.Context, vars hostio.VarStore, log hostio.Logger, pub hostio.ValuePublisher) (*Transaction, error) {
	t := &Transaction{
		engine: e,
		goCtx:  goCtx,
		txnID:  uuid.New(),
		state:  evalstate.NewState(e.Graph.Roots(), e.Rep),
		pub:    pub,
	}
	t.ctx = &hostio.Context{
		TxnID:  t.txnID,
		Vars:   vars,
		Ops:    e.ops,
		Xforms: e.xforms,
		Phases: t,
		Log:    log,
		Arena:  arena.New(t.txnID.String(), 0),
	}
	if err := (evalstate.Initializer{}).Run(t.state.Order(), t.ctx, e.Rep); err != nil {
		return nil, err
	}
	return t, nil
}

// RunPhase evaluates every rule root not yet finished at phase, returning
// each root's current value, and publishes set_predicate_vars for every
// finished, truthy root through the Transaction's configured
// ValuePublisher.
func (t *Transaction) RunPhase(phase hostio.Phase) ([]RuleResult, error) {
	t.phase = phase
	roots := t.engine.Graph.Roots()
	results := make([]RuleResult, 0, len(roots))
	for _, r := range roots {
		driver := evalstate.NewDriver(t.engine.Tracer.For(t.engine.ruleIDs[r]))
		v, err := driver.Eval(t.state, r, t.ctx)
		if err != nil {
			return results, err
		}
		results = append(results, RuleResult{Root: r, Value: v})
		if t.pub != nil {
			if err := predconf.SetPredicateVars(r, t.state, t.pub); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}
