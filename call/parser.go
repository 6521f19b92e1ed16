package call

import (
	"strconv"
	"strings"

	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/value"
)

// Parser is a stateless (across calls) recursive-descent reader for the
// S-expression surface syntax. All methods take the full input text and a
// *cursor byte offset, advancing cursor past whatever was consumed and
// leaving the remainder for the caller to inspect.
type Parser struct {
	factory *Factory
}

// NewParser binds a Parser to factory, used to resolve call names during
// ParseCall.
func NewParser(factory *Factory) *Parser {
	return &Parser{factory: factory}
}

// ParseTopLevel parses one literal or call starting at the first
// non-whitespace byte of text, and returns it along with whatever text is
// left unconsumed. Leading garbage (anything other than whitespace before
// the first token) is invalid-syntax; trailing garbage is returned to the
// caller to judge.
func (p *Parser) ParseTopLevel(text string) (n node.Node, remainder string, err error) {
	cursor := 0
	n, err = p.parseValue(text, &cursor)
	if err != nil {
		return nil, "", err
	}
	return n, text[cursor:], nil
}

// parseValue dispatches to ParseCall or ParseLiteral based on the next
// non-whitespace byte: a call's children are themselves either literals or
// nested calls, so this same dispatch serves ParseTopLevel and call
// arguments alike.
func (p *Parser) parseValue(text string, cursor *int) (node.Node, error) {
	skipWhitespace(text, cursor)
	if *cursor >= len(text) {
		return nil, perrors.ErrInvalidSyntax.New("unexpected end of input")
	}
	if text[*cursor] == '(' {
		return p.ParseCall(text, cursor)
	}
	return p.ParseLiteral(text, cursor)
}

// ParseCall consumes one call form: '(', a function name, whitespace-
// separated arguments (each itself a literal or a call), and ')'. It fails
// invalid-syntax on a missing function name or unclosed parens, and
// unknown-call if factory has no constructor registered for the name.
func (p *Parser) ParseCall(text string, cursor *int) (node.Node, error) {
	skipWhitespace(text, cursor)
	if *cursor >= len(text) || text[*cursor] != '(' {
		return nil, perrors.ErrInvalidSyntax.New("expected '(' to start a call")
	}
	*cursor++

	skipWhitespace(text, cursor)
	start := *cursor
	for *cursor < len(text) && isIdentByte(text[*cursor], *cursor == start) {
		*cursor++
	}
	fname := text[start:*cursor]
	if fname == "" {
		return nil, perrors.ErrInvalidSyntax.New("missing function name after '('")
	}

	var args []node.Node
	for {
		skipWhitespace(text, cursor)
		if *cursor >= len(text) {
			return nil, perrors.ErrInvalidSyntax.New("unclosed '(' starting call " + fname)
		}
		if text[*cursor] == ')' {
			*cursor++
			break
		}
		arg, err := p.parseValue(text, cursor)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}

	return p.factory.New(fname, args)
}

// ParseLiteral consumes a single literal: ':', a quoted string, a `[…]`
// list, a signed integer or float, or a `name:value` named literal whose
// name is a bare identifier or a quoted string. It fails invalid-syntax on
// unterminated strings, invalid escapes, multi-dot floats, a lone '-', or a
// malformed named literal.
func (p *Parser) ParseLiteral(text string, cursor *int) (node.Node, error) {
	skipWhitespace(text, cursor)
	if *cursor >= len(text) {
		return nil, perrors.ErrInvalidSyntax.New("unexpected end of input")
	}

	switch c := text[*cursor]; {
	case c == ':':
		*cursor++
		return node.NewLiteral(value.Absent), nil
	case c == '\'':
		return p.parseQuotedOrNamed(text, cursor)
	case c == '[':
		return p.parseList(text, cursor)
	case c == '-' || isDigit(c):
		return p.parseNumeric(text, cursor)
	case isIdentByte(c, true):
		return p.parseIdentNamed(text, cursor)
	default:
		return nil, perrors.ErrInvalidSyntax.New("unexpected character " + string(c) + " at position " + strconv.Itoa(*cursor))
	}
}

func (p *Parser) parseQuotedOrNamed(text string, cursor *int) (node.Node, error) {
	s, err := parseQuotedString(text, cursor)
	if err != nil {
		return nil, err
	}
	if *cursor < len(text) && text[*cursor] == ':' {
		*cursor++
		return p.namedValue(text, cursor, s)
	}
	return node.NewLiteral(value.NewString(s)), nil
}

func (p *Parser) parseIdentNamed(text string, cursor *int) (node.Node, error) {
	start := *cursor
	*cursor++
	for *cursor < len(text) && isIdentByte(text[*cursor], false) {
		*cursor++
	}
	name := text[start:*cursor]
	if *cursor >= len(text) || text[*cursor] != ':' {
		return nil, perrors.ErrInvalidSyntax.New("bare identifier " + name + " is not a literal; expected ':' for a named literal")
	}
	*cursor++
	return p.namedValue(text, cursor, []byte(name))
}

func (p *Parser) namedValue(text string, cursor *int, name []byte) (node.Node, error) {
	inner, err := p.ParseLiteral(text, cursor)
	if err != nil {
		return nil, err
	}
	lit := inner.(*node.Literal)
	return node.NewLiteral(value.Named(name, lit.Value)), nil
}

func (p *Parser) parseList(text string, cursor *int) (node.Node, error) {
	*cursor++ // consume '['
	skipWhitespace(text, cursor)
	if *cursor < len(text) && text[*cursor] == ']' {
		*cursor++
		return node.NewLiteral(value.NewList(nil)), nil
	}

	var elems []value.Value
	for {
		skipWhitespace(text, cursor)
		if *cursor >= len(text) {
			return nil, perrors.ErrInvalidSyntax.New("unterminated list literal")
		}
		if text[*cursor] == ']' {
			*cursor++
			break
		}
		elemNode, err := p.ParseLiteral(text, cursor)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elemNode.(*node.Literal).Value)
	}
	return node.NewLiteral(value.NewList(elems)), nil
}

func (p *Parser) parseNumeric(text string, cursor *int) (node.Node, error) {
	start := *cursor
	if text[*cursor] == '-' {
		*cursor++
	}
	digitsStart := *cursor
	for *cursor < len(text) && isDigit(text[*cursor]) {
		*cursor++
	}
	if *cursor == digitsStart {
		return nil, perrors.ErrInvalidSyntax.New("lone '-' is not a valid number")
	}

	isFloat := false
	if *cursor < len(text) && text[*cursor] == '.' {
		isFloat = true
		*cursor++
		fracStart := *cursor
		for *cursor < len(text) && isDigit(text[*cursor]) {
			*cursor++
		}
		if *cursor == fracStart {
			return nil, perrors.ErrInvalidSyntax.New("malformed float: '.' with no digits following")
		}
		if *cursor < len(text) && text[*cursor] == '.' {
			return nil, perrors.ErrInvalidSyntax.New("malformed float: more than one '.'")
		}
	}

	text := text[start:*cursor]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, perrors.ErrInvalidSyntax.New("malformed float " + text)
		}
		return node.NewLiteral(value.NewFloat(f)), nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, perrors.ErrInvalidSyntax.New("malformed integer " + text)
	}
	return node.NewLiteral(value.NewNumber(n)), nil
}

// parseQuotedString consumes a 'text' string literal, where \\ and \' are
// the only recognized escapes, failing invalid-syntax on an unterminated
// string or an unsupported escape sequence.
func parseQuotedString(text string, cursor *int) ([]byte, error) {
	*cursor++ // consume opening '
	var b strings.Builder
	for {
		if *cursor >= len(text) {
			return nil, perrors.ErrInvalidSyntax.New("unterminated string literal")
		}
		c := text[*cursor]
		switch c {
		case '\'':
			*cursor++
			return []byte(b.String()), nil
		case '\\':
			*cursor++
			if *cursor >= len(text) {
				return nil, perrors.ErrInvalidSyntax.New("unterminated escape in string literal")
			}
			switch text[*cursor] {
			case '\\', '\'':
				b.WriteByte(text[*cursor])
			default:
				return nil, perrors.ErrInvalidSyntax.New("invalid escape \\" + string(text[*cursor]))
			}
			*cursor++
		default:
			b.WriteByte(c)
			*cursor++
		}
	}
}

func skipWhitespace(text string, cursor *int) {
	for *cursor < len(text) {
		switch text[*cursor] {
		case ' ', '\t', '\n', '\r':
			*cursor++
		default:
			return
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isIdentByte matches [A-Za-z_][A-Za-z0-9_-]*: first reports whether c is
// valid as the first character of an identifier (letters and '_' only);
// when first is false, digits and '-' are also accepted.
func isIdentByte(c byte, first bool) bool {
	if c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
		return true
	}
	if first {
		return false
	}
	return isDigit(c) || c == '-'
}
