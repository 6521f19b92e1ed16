package merge

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/reporter"
	"github.com/predicate-engine/predicate/value"
)

type testCall struct{ node.CallBase }

func (c *testCall) Clone() node.Node {
	clone := &testCall{CallBase: node.NewCallBase(c.Name(), c.Ordered)}
	clone.Init(clone)
	for _, ch := range c.Children() {
		clone.AddChild(ch.Clone())
	}
	return clone
}

func (c *testCall) EvalCalculate(node.EvalState, *hostio.Context) error { return nil }

func call(name string, ordered bool, children ...node.Node) node.Node {
	c := &testCall{CallBase: node.NewCallBase(name, ordered)}
	c.Init(c)
	for _, ch := range children {
		c.AddChild(ch)
	}
	return c
}

func lit(n int64) node.Node { return node.NewLiteral(value.NewNumber(n)) }

func TestAddRootDeduplicatesStructurallyEqualSubtrees(t *testing.T) {
	g := New(reporter.NewNop())

	left := call("and", false, lit(1), lit(2))
	right := call("and", false, lit(1), lit(2))
	root := call("or", true, left, right)

	_, canon := g.AddRoot(root)
	require.Len(t, canon.Children(), 2)
	require.Same(t, canon.Children()[0], canon.Children()[1])
}

func TestAddRootDeduplicatesAcrossSeparateRoots(t *testing.T) {
	g := New(reporter.NewNop())

	_, r1 := g.AddRoot(call("and", false, lit(1), lit(2)))
	_, r2 := g.AddRoot(call("and", false, lit(1), lit(2)))

	require.Same(t, r1, r2)
	require.ElementsMatch(t, []int{0, 1}, g.RootIndices(r1))
}

func TestReplaceRewritesParentsAndCollapsesChains(t *testing.T) {
	g := New(reporter.NewNop())

	a := lit(1)
	parent := call("not", true, a)
	_, root := g.AddRoot(parent)
	a = root.Children()[0]

	b := lit(2)
	require.NoError(t, g.Replace(a, b))
	require.Same(t, b, root.Children()[0])

	c := lit(3)
	require.NoError(t, g.Replace(b, c))

	final, err := g.FindTransform(a)
	require.NoError(t, err)
	require.Same(t, c, final)
}

func TestReplaceIsNoOpWhenStructurallyEqual(t *testing.T) {
	g := New(reporter.NewNop())

	a := lit(1)
	_, root := g.AddRoot(call("not", true, a))
	a = root.Children()[0]

	require.NoError(t, g.Replace(a, lit(1)))
	require.Same(t, a, root.Children()[0])
}

func TestRemoveChildRetiresOrphanedSubtree(t *testing.T) {
	g := New(reporter.NewNop())

	shared := lit(7)
	_, root := g.AddRoot(call("list", true, shared))
	child := root.Children()[0]

	require.NoError(t, g.RemoveChild(root, child))
	require.Empty(t, root.Children())
	require.Empty(t, child.Parents())
}

func TestWriteValidationReportCleanGraph(t *testing.T) {
	g := New(reporter.NewNop())
	_, root := g.AddRoot(call("and", false, lit(1), lit(2)))
	_ = root

	var buf bytes.Buffer
	require.True(t, g.WriteValidationReport(&buf))
	require.Empty(t, buf.String())
}

func TestBreakCycleDuplicatesSharedSubtree(t *testing.T) {
	g := New(reporter.NewNop())

	a := lit(1)
	_, root := g.AddRoot(call("not", true, a))
	a = root.Children()[0]

	cyclic := call("cat", true, a)
	require.NoError(t, g.Replace(a, cyclic))

	replaced := root.Children()[0]
	require.NotSame(t, a, replaced.Children()[0])
	require.True(t, replaced.Children()[0].StructEqual(a))
}
