// Package value implements the Predicate core's universal datum: an
// immutable, optionally-named Value over one of four payload kinds plus the
// absent "singular" marker.
package value

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/spf13/cast"
	errors "gopkg.in/src-d/go-errors.v1"
)

// ErrUnsupportedCoercion is returned by AsNumber/AsFloat when a host value
// cannot be coerced to the requested numeric kind.
var ErrUnsupportedCoercion = errors.NewKind("cannot coerce value of kind %s to %s")

// Kind identifies a Value's payload variant.
type Kind int

const (
	// String holds a byte string payload.
	String Kind = iota
	// Number holds a signed 64-bit integer payload.
	Number
	// Float holds an IEEE double payload.
	Float
	// List holds an ordered sequence of Values.
	List
	// Singular is the absent value, denoted ':'. It carries no payload.
	Singular
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Float:
		return "float"
	case List:
		return "list"
	case Singular:
		return "singular"
	default:
		return "unknown"
	}
}

// Value is the universal datum. It is immutable once constructed; callers
// never mutate a Value's fields directly, only build new ones through the
// constructors below.
type Value struct {
	name []byte
	kind Kind

	str  []byte
	num  int64
	flt  float64
	list []Value
}

// Absent is the canonical unnamed singular value (':').
var Absent = Value{kind: Singular}

// NewString constructs an unnamed string Value.
func NewString(s []byte) Value {
	return Value{kind: String, str: s}
}

// NewNumber constructs an unnamed number Value.
func NewNumber(n int64) Value {
	return Value{kind: Number, num: n}
}

// NewFloat constructs an unnamed float Value.
func NewFloat(f float64) Value {
	return Value{kind: Float, flt: f}
}

// NewList constructs an unnamed list Value. The slice is not retained for
// mutation by the caller; pass a copy if further mutation is expected.
func NewList(elems []Value) Value {
	return Value{kind: List, list: elems}
}

// Named returns a copy of v carrying name instead of v's current name.
func Named(name []byte, v Value) Value {
	v.name = name
	return v
}

// Unnamed returns a copy of v with its name stripped.
func Unnamed(v Value) Value {
	v.name = nil
	return v
}

// Kind reports v's payload variant.
func (v Value) Kind() Kind { return v.kind }

// Name returns v's name, or nil if v is unnamed.
func (v Value) Name() []byte { return v.name }

// IsNamed reports whether v carries a name.
func (v Value) IsNamed() bool { return v.name != nil }

// IsSingular reports whether v is the absent value.
func (v Value) IsSingular() bool { return v.kind == Singular }

// Str returns the string payload; valid only when Kind() == String.
func (v Value) Str() []byte { return v.str }

// Num returns the number payload; valid only when Kind() == Number.
func (v Value) Num() int64 { return v.num }

// Flt returns the float payload; valid only when Kind() == Float.
func (v Value) Flt() float64 { return v.flt }

// List returns the list payload; valid only when Kind() == List. The
// returned slice must not be mutated.
func (v Value) ListElems() []Value { return v.list }

// Truthy implements the glossary's truthy/falsy rule: a Value is truthy iff
// it is present (not Singular) and is not the empty list. Both the absent
// singular and the empty list are falsy representations; stdlib/boolean
// constant-folds to whichever is cheaper in a given context (see
// DESIGN.md "Open Question decisions").
func (v Value) Truthy() bool {
	if v.kind == Singular {
		return false
	}
	if v.kind == List && len(v.list) == 0 {
		return false
	}
	return true
}

// Equal reports byte-exact/structural equality, ignoring name.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Singular:
		return true
	case String:
		return bytes.Equal(v.str, o.str)
	case Number:
		return v.num == o.num
	case Float:
		return v.flt == o.flt
	case List:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) || !bytes.Equal(v.list[i].name, o.list[i].name) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the canonical textual form of v: "name:payload" when
// named, a bare literal otherwise. Lists render as "[e1 e2 …]".
func (v Value) String() string {
	var b bytes.Buffer
	if v.name != nil {
		b.Write(v.name)
		b.WriteByte(':')
	}
	b.WriteString(v.payloadString())
	return b.String()
}

func (v Value) payloadString() string {
	switch v.kind {
	case Singular:
		return ":"
	case String:
		return "'" + escapeString(v.str) + "'"
	case Number:
		return strconv.FormatInt(v.num, 10)
	case Float:
		return strconv.FormatFloat(v.flt, 'g', 6, 64)
	case List:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(e.String())
		}
		b.WriteByte(']')
		return b.String()
	default:
		return "?"
	}
}

func escapeString(s []byte) string {
	var b bytes.Buffer
	for _, c := range s {
		if c == '\\' || c == '\'' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// AsNumber best-effort coerces v's payload to an int64, using spf13/cast
// for values ingested from a host in an unexpected concrete shape (v is
// already a value.Value here, so this mainly handles Float->Number and
// numeric-looking String->Number).
func (v Value) AsNumber() (int64, error) {
	switch v.kind {
	case Number:
		return v.num, nil
	case Float:
		return int64(v.flt), nil
	case String:
		n, err := cast.ToInt64E(string(v.str))
		if err != nil {
			return 0, ErrUnsupportedCoercion.New(v.kind, Number)
		}
		return n, nil
	default:
		return 0, ErrUnsupportedCoercion.New(v.kind, Number)
	}
}

// AsFloat best-effort coerces v's payload to a float64.
func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case Number:
		return float64(v.num), nil
	case Float:
		return v.flt, nil
	case String:
		f, err := cast.ToFloat64E(string(v.str))
		if err != nil {
			return 0, ErrUnsupportedCoercion.New(v.kind, Float)
		}
		return f, nil
	default:
		return 0, ErrUnsupportedCoercion.New(v.kind, Float)
	}
}

// IsNumeric reports whether v's kind is Number or Float.
func (v Value) IsNumeric() bool { return v.kind == Number || v.kind == Float }

// GoString supports %#v formatting in test failures.
func (v Value) GoString() string {
	return fmt.Sprintf("value.Value{%s}", v.String())
}
