package evalstate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/reporter"
	"github.com/predicate-engine/predicate/value"
)

// constCall evaluates to a fixed Value via alias/finish.
type constCall struct {
	node.CallBase
	v value.Value
}

func newConstCall(name string, v value.Value, children ...node.Node) *constCall {
	c := &constCall{CallBase: node.NewCallBase(name, true), v: v}
	c.Init(c)
	for _, ch := range children {
		c.AddChild(ch)
	}
	return c
}

func (c *constCall) Clone() node.Node { panic("unused") }

func (c *constCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	if err := s.Alias(c, c.v); err != nil {
		return err
	}
	return s.Finish(c)
}

// forwardCall forwards to its sole child without evaluating anything
// itself.
type forwardCall struct{ node.CallBase }

func newForwardCall(child node.Node) *forwardCall {
	c := &forwardCall{CallBase: node.NewCallBase("forward", true)}
	c.Init(c)
	c.AddChild(child)
	return c
}

func (c *forwardCall) Clone() node.Node { panic("unused") }

func (c *forwardCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	return s.Forward(c, c.Children()[0])
}

func TestEvalAliasAndFinish(t *testing.T) {
	n := newConstCall("k", value.NewNumber(7))
	s := NewState([]node.Node{n}, reporter.NewNop())

	v, err := s.Eval(n, &hostio.Context{})
	require.NoError(t, err)
	require.Equal(t, int64(7), v.Num())
	require.True(t, s.IsFinished(n))
}

func TestEvalResolvesForwardingChain(t *testing.T) {
	target := newConstCall("k", value.NewNumber(42))
	fwd := newForwardCall(target)
	s := NewState([]node.Node{fwd}, reporter.NewNop())

	v, err := s.Eval(fwd, &hostio.Context{})
	require.NoError(t, err)
	require.Equal(t, int64(42), v.Num())
}

func TestAppendToListRequiresLocalMode(t *testing.T) {
	n := newConstCall("k", value.NewNumber(1))
	s := NewState([]node.Node{n}, reporter.NewNop())

	err := s.AppendToList(n, value.NewNumber(2))
	require.Error(t, err)
}

func TestSetupLocalListThenAppend(t *testing.T) {
	n := newConstCall("k", value.Absent)
	s := NewState([]node.Node{n}, reporter.NewNop())

	require.NoError(t, s.SetupLocalList(n))
	require.NoError(t, s.AppendToList(n, value.NewNumber(1)))
	require.NoError(t, s.AppendToList(n, value.NewNumber(2)))
	require.NoError(t, s.Finish(n))

	elems := s.CurrentValue(n).ListElems()
	require.Len(t, elems, 2)
}

func TestDoubleFinishFails(t *testing.T) {
	n := newConstCall("k", value.NewNumber(1))
	s := NewState([]node.Node{n}, reporter.NewNop())
	require.NoError(t, s.Alias(n, value.NewNumber(1)))
	require.NoError(t, s.Finish(n))
	require.Error(t, s.Finish(n))
}

func TestAliasAfterAliasFails(t *testing.T) {
	n := newConstCall("k", value.NewNumber(1))
	s := NewState([]node.Node{n}, reporter.NewNop())
	require.NoError(t, s.Alias(n, value.NewNumber(1)))
	require.Error(t, s.Alias(n, value.NewNumber(2)))
}

func TestFinishTrueAndFalse(t *testing.T) {
	a := newConstCall("a", value.Absent)
	b := newConstCall("b", value.Absent)
	s := NewState([]node.Node{a, b}, reporter.NewNop())

	require.NoError(t, s.FinishTrue(a))
	require.True(t, s.CurrentValue(a).Truthy())

	require.NoError(t, s.FinishFalse(b))
	require.False(t, s.CurrentValue(b).Truthy())
}

func TestScratchRoundTrips(t *testing.T) {
	n := newConstCall("k", value.Absent)
	s := NewState([]node.Node{n}, reporter.NewNop())

	s.SetScratch(n, 42)
	require.Equal(t, 42, s.Scratch(n))
}

func TestForwardingCycleFails(t *testing.T) {
	a := &forwardCall{CallBase: node.NewCallBase("a", true)}
	a.Init(a)
	b := &forwardCall{CallBase: node.NewCallBase("b", true)}
	b.Init(b)
	a.AddChild(b)
	b.AddChild(a)

	s := NewState([]node.Node{a, b}, reporter.NewNop())
	require.NoError(t, s.Forward(a, b))
	require.NoError(t, s.Forward(b, a))

	_, err := s.Eval(a, &hostio.Context{})
	require.Error(t, err)
}
