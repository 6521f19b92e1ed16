package rewrite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/merge"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/reporter"
	"github.com/predicate-engine/predicate/value"
)

// incOnce rewrites itself into a literal exactly once, then settles.
type incOnce struct {
	node.CallBase
	done *bool
}

func newIncOnce() *incOnce {
	c := &incOnce{CallBase: node.NewCallBase("inc-once", true), done: new(bool)}
	c.Init(c)
	return c
}

func (c *incOnce) Clone() node.Node { panic("unused") }
func (c *incOnce) EvalCalculate(node.EvalState, *hostio.Context) error { return nil }

func (c *incOnce) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	if *c.done {
		return c, false, nil
	}
	*c.done = true
	return node.NewLiteral(value.NewNumber(99)), true, nil
}

// flipper never settles: every Transform call reports a change, exercising
// RunToFixedPoint's MaxPasses safety valve.
type flipper struct{ node.CallBase }

func newFlipper() *flipper {
	c := &flipper{CallBase: node.NewCallBase("flip", true)}
	c.Init(c)
	return c
}

func (c *flipper) Clone() node.Node { panic("unused") }
func (c *flipper) EvalCalculate(node.EvalState, *hostio.Context) error { return nil }

func (c *flipper) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	return newFlipper(), true, nil
}

func TestRunAppliesOneTransformPass(t *testing.T) {
	g := merge.New(reporter.NewNop())
	_, root := g.AddRoot(newIncOnce())

	d := NewDriver(g, call.NewFactory(), reporter.NewNop())
	changed, err := d.Run()
	require.NoError(t, err)
	require.True(t, changed)

	_ = root
	newRoot := g.Root(0)
	lit, ok := newRoot.(*node.Literal)
	require.True(t, ok)
	require.Equal(t, int64(99), lit.Value.Num())
}

func TestRunToFixedPointStopsWhenNoChange(t *testing.T) {
	g := merge.New(reporter.NewNop())
	g.AddRoot(newIncOnce())

	d := NewDriver(g, call.NewFactory(), reporter.NewNop())
	require.NoError(t, d.RunToFixedPoint())

	_, ok := g.Root(0).(*node.Literal)
	require.True(t, ok)
}

func TestRunToFixedPointFailsOnRunawayTransform(t *testing.T) {
	g := merge.New(reporter.NewNop())
	g.AddRoot(newFlipper())

	d := NewDriver(g, call.NewFactory(), reporter.NewNop())
	err := d.RunToFixedPoint()
	require.Error(t, err)
}
