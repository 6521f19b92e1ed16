// Package validate implements composable structural validation rules
// (arity, literal-only children, child-type checks), run over a tree via
// traverse.Inspect and reported through the same Reporter every other
// package uses: a batch of independent checks run over the graph and
// reported, rather than folded into parsing or evaluation.
package validate

import (
	"fmt"

	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/reporter"
	"github.com/predicate-engine/predicate/traverse"
)

// Severity distinguishes a Finding that fails a validation run from one
// that merely warns. Warnings never fail the run.
type Severity int

const (
	Warning Severity = iota
	Error
)

// Finding is one validation complaint attached to a specific node.
type Finding struct {
	Node     node.Node
	Severity Severity
	Message  string
}

// Rule inspects a single node and returns zero or more Findings. Rules are
// applied independently to every node in a tree by Run; a Rule that only
// cares about certain node shapes should return nil for everything else.
type Rule func(n node.Node) []Finding

// Compose combines several rules into one that returns every Finding any
// of them produces.
func Compose(rules ...Rule) Rule {
	return func(n node.Node) []Finding {
		var out []Finding
		for _, r := range rules {
			out = append(out, r(n)...)
		}
		return out
	}
}

// Children builds a Rule requiring a node to have between min and max
// children, inclusive. A negative max means unbounded. Literal nodes have
// no argument list and are never flagged.
func Children(min, max int) Rule {
	return func(n node.Node) []Finding {
		if n.IsLiteral() {
			return nil
		}
		count := len(n.Children())
		if count < min || (max >= 0 && count > max) {
			return []Finding{{
				Node:     n,
				Severity: Error,
				Message:  fmt.Sprintf("%s: expected between %d and %d children, got %d", n.Name(), min, max, count),
			}}
		}
		return nil
	}
}

// AllLiteral requires every child of a node to be a Literal (the
// precondition most constant-folding Transform methods check before
// folding, and a shape some calls require unconditionally).
func AllLiteral() Rule {
	return func(n node.Node) []Finding {
		var out []Finding
		for i, c := range n.Children() {
			if !c.IsLiteral() {
				out = append(out, Finding{
					Node:     n,
					Severity: Error,
					Message:  fmt.Sprintf("%s: child %d (%s) must be a literal", n.Name(), i, c.Name()),
				})
			}
		}
		return out
	}
}

// ChildType requires child i (if present) to satisfy predicate, labeling
// any violation with what.
func ChildType(i int, what string, predicate func(node.Node) bool) Rule {
	return func(n node.Node) []Finding {
		kids := n.Children()
		if i >= len(kids) {
			return nil
		}
		if !predicate(kids[i]) {
			return []Finding{{
				Node:     n,
				Severity: Error,
				Message:  fmt.Sprintf("%s: child %d must be %s", n.Name(), i, what),
			}}
		}
		return nil
	}
}

// Run walks root via traverse.Inspect (descending into every node
// regardless of findings — a validation pass never short-circuits the
// way a transform pass would), applies rule to every node reached, and
// reports every Finding through rep. It returns false iff at least one
// Error-severity Finding was produced; Warning findings are reported but
// never fail the run.
func Run(root node.Node, rule Rule, rep *reporter.Reporter) bool {
	ok := true
	traverse.Inspect(func(n node.Node) bool {
		for _, f := range rule(n) {
			switch f.Severity {
			case Error:
				ok = false
				rep.Error(f.Node, "%s", f.Message)
			default:
				rep.Warn(f.Node, "%s", f.Message)
			}
		}
		return true
	}, root)
	return ok
}
