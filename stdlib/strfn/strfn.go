// Package strfn implements the string call family: stringReplaceRx and
// length.
package strfn

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/stdlib/internal/stdutil"
	"github.com/predicate-engine/predicate/value"
)

// Register adds every string call to f.
func Register(f *call.Factory) error {
	for name, ctor := range map[string]call.Constructor{
		"stringReplaceRx": newStringReplaceRx,
		"length":          newLength,
	} {
		if err := f.Register(name, ctor); err != nil {
			return err
		}
	}
	return nil
}

type simpleCall struct {
	node.CallBase
	compute stdutil.Compute
}

func (c *simpleCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	return stdutil.ConstantFold(c, c.compute)
}

func (c *simpleCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	return stdutil.EagerEval(c, s, ctx, c.compute)
}

func build(base *node.CallBase, self node.Node, args []node.Node) {
	base.Init(self)
	for _, a := range args {
		self.AddChild(a)
	}
}

type stringReplaceRxCall struct{ simpleCall }

func newStringReplaceRx(name string, args []node.Node) (node.Node, error) {
	c := &stringReplaceRxCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeStringReplaceRx
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *stringReplaceRxCall) Clone() node.Node {
	n, _ := newStringReplaceRx(c.Name(), node.CloneChildren(c))
	return n
}

func (c *stringReplaceRxCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 3, 3) }

func computeStringReplaceRx(args []value.Value) (value.Value, error) {
	pattern, replacement, subject := args[0], args[1], args[2]
	re, err := regexp.CompilePOSIX(string(pattern.Str()))
	if err != nil {
		return value.Value{}, err
	}
	out := re.ReplaceAllFunc(subject.Str(), func(match []byte) []byte {
		groups := re.FindSubmatch(match)
		return expandReplacement(replacement.Str(), groups)
	})
	return value.NewString(out), nil
}

// expandReplacement renders tpl against a regex match's capture groups
// (groups[0] is the whole match): "$n" substitutes capture n (an
// out-of-range n renders empty), "\c" escapes literal c, and any other
// "\" or "$" passes through literally. The same rule both sizes and fills
// the output, so there is no separate length pass to keep in sync.
func expandReplacement(tpl []byte, groups [][]byte) []byte {
	var out bytes.Buffer
	for i := 0; i < len(tpl); i++ {
		ch := tpl[i]
		switch ch {
		case '\\':
			if i+1 < len(tpl) {
				i++
				out.WriteByte(tpl[i])
			} else {
				out.WriteByte(ch)
			}
		case '$':
			j := i + 1
			start := j
			for j < len(tpl) && tpl[j] >= '0' && tpl[j] <= '9' {
				j++
			}
			if j == start {
				out.WriteByte(ch)
				continue
			}
			n, _ := strconv.Atoi(string(tpl[start:j]))
			if n < len(groups) {
				out.Write(groups[n])
			}
			i = j - 1
		default:
			out.WriteByte(ch)
		}
	}
	return out.Bytes()
}

type lengthCall struct{ simpleCall }

func newLength(name string, args []node.Node) (node.Node, error) {
	c := &lengthCall{}
	c.CallBase = node.NewCallBase(name, true)
	c.compute = computeLength
	build(&c.CallBase, c, args)
	return c, nil
}

func (c *lengthCall) Clone() node.Node {
	n, _ := newLength(c.Name(), node.CloneChildren(c))
	return n
}

func (c *lengthCall) PreTransform(node.Reporter) error { return stdutil.CheckArity(c, 1, 1) }

func computeLength(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.Kind() == value.List {
		elems := v.ListElems()
		out := make([]value.Value, len(elems))
		for i, e := range elems {
			out[i] = value.Named(e.Name(), value.NewNumber(int64(len(e.Str()))))
		}
		return value.NewList(out), nil
	}
	return value.NewNumber(int64(len(v.Str()))), nil
}
