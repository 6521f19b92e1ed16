package node

import (
	"github.com/mitchellh/hashstructure"

	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/value"
)

// Literal is a node carrying a fixed Value, produced by the parser for
// quoted strings, numbers, floats, named literals, ':' and list literals.
type Literal struct {
	base
	Value value.Value
}

// NewLiteral constructs a Literal node wrapping v.
func NewLiteral(v value.Value) *Literal {
	return &Literal{Value: v, base: newBase(-1)}
}

// Name always reports "literal" for a Literal node.
func (l *Literal) Name() string { return "literal" }

// IsLiteral reports true.
func (l *Literal) IsLiteral() bool { return true }

// String renders the literal's canonical textual form, which is just its
// Value's canonical form.
func (l *Literal) String() string { return l.Value.String() }

// Hash returns a content hash of the literal's canonical text.
func (l *Literal) Hash() uint64 {
	h, err := hashstructure.Hash(l.Value.String(), nil)
	if err != nil {
		// hashstructure only fails on unsupported types; a string never
		// does, so this path is unreachable in practice.
		panic(err)
	}
	return h ^ literalHashSalt
}

// literalHashSalt keeps a literal's hash from colliding with a zero-arg
// call node whose canonical string happens to match the literal's text.
const literalHashSalt = 0x9e3779b97f4a7c15

// StructEqual reports whether o is a Literal with an identical canonical
// form (same kind, payload and name).
func (l *Literal) StructEqual(o Node) bool {
	ol, ok := o.(*Literal)
	if !ok {
		return false
	}
	return l.Value.String() == ol.Value.String()
}

// AddChild is a no-op-with-bookkeeping: literals are leaves in practice,
// but the method is implemented (rather than panicking) so Literal fully
// satisfies Node without surprising callers that generically walk a tree.
func (l *Literal) AddChild(c Node) { l.base.addChild(l, c) }

// RemoveChild removes c from l's (normally empty) child list.
func (l *Literal) RemoveChild(c Node) { l.base.removeChild(l, c) }

// ReplaceChild swaps old for new in l's (normally empty) child list.
func (l *Literal) ReplaceChild(old, new Node) { l.base.replaceChild(l, old, new) }

// Clone returns a fresh, unparented copy of l.
func (l *Literal) Clone() Node {
	return NewLiteral(l.Value)
}

// PreTransform is a no-op for literals: they have no children to validate.
func (l *Literal) PreTransform(rep Reporter) error { return nil }

// Transform is a no-op for literals: they never rewrite themselves.
func (l *Literal) Transform(g Graph, f Factory, rep Reporter) (Node, bool, error) {
	return l, false, nil
}

// PostTransform is a no-op for literals.
func (l *Literal) PostTransform(rep Reporter) error { return nil }

// PreEval is a no-op for literals: they need no host binding.
func (l *Literal) PreEval(ctx *hostio.Context, rep Reporter) error { return nil }

// EvalCalculate aliases the slot to the literal's own Value and finishes
// immediately — a literal's value never changes within a transaction.
func (l *Literal) EvalCalculate(s EvalState, ctx *hostio.Context) error {
	if err := s.Alias(l, l.Value); err != nil {
		return err
	}
	return s.Finish(l)
}
