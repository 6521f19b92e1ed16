// Package predconf implements the configuration directives (PredicateDefine,
// PredicateDebugReport, PredicateAssertValid, PredicateTrace,
// set_predicate_vars): plain Go functions operating on already-constructed
// engine state, gathering bootstrap options consumed once at construction
// rather than through a generic config-file format.
package predconf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opentracing/opentracing-go"

	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/evalstate"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/merge"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/reporter"
	"github.com/predicate-engine/predicate/stdlib/template"
	"github.com/predicate-engine/predicate/validate"
	"github.com/predicate-engine/predicate/value"
)

// PredicateDefine parses one "(define NAME arg… body)" form out of text
// using f, so the body may reference any call already registered in f,
// including an earlier template. It registers the resulting Definition
// into reg and registers the matching generator constructor into f, so
// subsequent source can invoke NAME.
func PredicateDefine(reg *template.Registry, f *call.Factory, text string) error {
	p := call.NewParser(f)
	root, remainder, err := p.ParseTopLevel(text)
	if err != nil {
		return err
	}
	if strings.TrimSpace(remainder) != "" {
		return perrors.ErrInvalidSyntax.New(fmt.Sprintf("PredicateDefine: trailing input %q", remainder))
	}
	def, err := template.DefinitionFromRoot(root)
	if err != nil {
		return err
	}
	if err := reg.Register(def); err != nil {
		return err
	}
	return f.Register(def.Name, template.NewGenerator(reg, def.Name))
}

// PredicateDebugReport writes the post-transform DAG's canonical textual
// form, one root per line, to w.
func PredicateDebugReport(g *merge.Graph, w io.Writer) error {
	for _, r := range g.Roots() {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}

// preTransformRule turns a node's own PreTransform check into a
// validate.Rule, so PredicateAssertValid reuses every call's existing
// arity/shape validation rather than reimplementing it as a second set of
// graph-wide rules.
func preTransformRule(rep *reporter.Reporter) validate.Rule {
	return func(n node.Node) []validate.Finding {
		if err := n.PreTransform(rep); err != nil {
			return []validate.Finding{{Node: n, Severity: validate.Error, Message: err.Error()}}
		}
		return nil
	}
}

// PredicateAssertValid runs validate.Run (each node's own PreTransform
// check) and g's structural consistency check over every root, reporting
// every finding through rep, and turns a non-clean result into a
// configuration error. Whether that error is fatal or merely logged is
// the caller's decision — it can inspect rep.ErrorCount()/rep.Clean()
// itself instead of treating this return as fatal.
func PredicateAssertValid(g *merge.Graph, rep *reporter.Reporter) error {
	clean := true
	rule := preTransformRule(rep)
	for _, r := range g.Roots() {
		if !validate.Run(r, rule, rep) {
			clean = false
		}
	}

	var buf bytes.Buffer
	if !g.WriteValidationReport(&buf) {
		clean = false
		for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
			if line != "" {
				rep.Error(nil, "%s", line)
			}
		}
	}

	if !clean {
		return perrors.ErrInvalidState.New("configuration failed validation")
	}
	return nil
}

// Tracer gates whether a given rule id's evaluation is traced, and
// supplies the opentracing.Tracer evalstate.NewDriver should use while
// evaluating it. A freshly-constructed Tracer traces nothing — the
// no-op default every evalstate.Driver already falls back to
// (evalstate.NewDriver(nil)) — until PredicateTrace turns tracing on for
// some or all rules.
type Tracer struct {
	real opentracing.Tracer
	all  bool
	ids  map[string]bool
}

// NewTracer returns a Tracer that delegates to real (or the package-wide
// no-op tracer, if real is nil) once enabled for a rule. seedRuleIDs
// enables tracing for those rules immediately, with no audit record
// written; use PredicateTrace for tracing enabled later, with an audit
// trail.
func NewTracer(real opentracing.Tracer, seedRuleIDs ...string) *Tracer {
	if real == nil {
		real = opentracing.NoopTracer{}
	}
	t := &Tracer{real: real, ids: make(map[string]bool)}
	for _, id := range seedRuleIDs {
		t.ids[id] = true
	}
	return t
}

// For returns the opentracing.Tracer evaluation of the rule named ruleID
// should use: tracer.real if tracing was enabled for it (or for every
// rule), opentracing.NoopTracer{} otherwise.
func (t *Tracer) For(ruleID string) opentracing.Tracer {
	if t.all || t.ids[ruleID] {
		return t.real
	}
	return opentracing.NoopTracer{}
}

// PredicateTrace enables tracing on tracer for every ruleID listed, or
// every rule if none are given, and appends a one-line audit record to
// path.
func PredicateTrace(tracer *Tracer, path string, ruleIDs ...string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return perrors.ErrInvalidState.New(fmt.Sprintf("PredicateTrace: %v", err))
	}
	defer f.Close()

	if len(ruleIDs) == 0 {
		tracer.all = true
		_, err = fmt.Fprintln(f, "tracing enabled for all rules")
		return err
	}
	for _, id := range ruleIDs {
		tracer.ids[id] = true
	}
	_, err = fmt.Fprintf(f, "tracing enabled for rules: %s\n", strings.Join(ruleIDs, ", "))
	return err
}

func asElems(v value.Value) []value.Value {
	if v.Kind() == value.List {
		return v.ListElems()
	}
	return []value.Value{v}
}

// SetPredicateVars is the set_predicate_vars rule action: given a rule's
// root node and the per-transaction State it was just
// evaluated against, it publishes one PREDICATE_VALUE/PREDICATE_VALUE_NAME
// pair per Value the rule's condition currently holds, through pub. It is
// a no-op if root hasn't reached a value yet, or holds an absent one — the
// firing-cardinality rule (once per phase window for a phased rule, once
// ever for a phaseless one) is enforced by the caller only invoking this
// once per root per phase it drives, not by any state kept here.
func SetPredicateVars(root node.Node, s *evalstate.State, pub hostio.ValuePublisher) error {
	if !s.IsFinished(root) {
		return nil
	}
	v := s.CurrentValue(root)
	if !v.Truthy() {
		return nil
	}
	for _, e := range asElems(v) {
		pub.PublishValue(e, e.Name())
	}
	return nil
}
