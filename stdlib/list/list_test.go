package list

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/evalstate"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/reporter"
	"github.com/predicate-engine/predicate/value"
)

func newFactory(t *testing.T) *call.Factory {
	t.Helper()
	f := call.NewFactory()
	require.NoError(t, Register(f))
	return f
}

func lit(v value.Value) *node.Literal { return node.NewLiteral(v) }

func str(s string) value.Value { return value.NewString([]byte(s)) }

func evalOf(t *testing.T, c node.Node, extra ...node.Node) value.Value {
	t.Helper()
	roots := append([]node.Node{c}, extra...)
	s := evalstate.NewState(roots, reporter.NewNop())
	v, err := s.Eval(c, &hostio.Context{})
	require.NoError(t, err)
	return v
}

func TestSetNameRenamesSecondArg(t *testing.T) {
	c, err := newSetName("setName", []node.Node{lit(str("k")), lit(value.NewNumber(3))})
	require.NoError(t, err)
	out, changed, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "k:3", out.String())
}

func TestPushNameRecursesIntoNestedLists(t *testing.T) {
	inner := value.NewList([]value.Value{value.NewNumber(1), value.NewNumber(2)})
	outer := value.Named([]byte("top"), value.NewList([]value.Value{inner}))
	c, err := newPushName("pushName", []node.Node{lit(outer)})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "top:[top:[top:1 top:2]]", out.String())
}

func TestPushNameKeepsExistingChildName(t *testing.T) {
	named := value.Named([]byte("mine"), value.NewNumber(9))
	outer := value.Named([]byte("top"), value.NewList([]value.Value{named}))
	c, err := newPushName("pushName", []node.Node{lit(outer)})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "top:[mine:9]", out.String())
}

func TestCatFlattensNestedCatAtTransformTime(t *testing.T) {
	f := newFactory(t)
	inner, err := newCat("cat", []node.Node{lit(value.NewNumber(1)), lit(value.NewNumber(2))})
	require.NoError(t, err)
	outer, err := newCat("cat", []node.Node{inner, lit(value.NewNumber(3))})
	require.NoError(t, err)

	out, changed, err := outer.Transform(nil, f, nil)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "(cat 1 2 3)", out.String())
}

func TestCatDropsAbsentChildren(t *testing.T) {
	f := newFactory(t)
	c, err := newCat("cat", []node.Node{lit(value.Absent), lit(value.NewNumber(1))})
	require.NoError(t, err)
	out, changed, err := c.Transform(nil, f, nil)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "(cat 1)", out.String())
}

func TestCatFoldsToEmptyListWhenEverythingDrops(t *testing.T) {
	f := newFactory(t)
	c, err := newCat("cat", []node.Node{lit(value.Absent), lit(value.Absent)})
	require.NoError(t, err)
	out, changed, err := c.Transform(nil, f, nil)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "[]", out.String())
}

func TestCatAcceptsZeroChildrenAtPreTransform(t *testing.T) {
	c, err := newCat("cat", nil)
	require.NoError(t, err)
	require.NoError(t, c.PreTransform(nil))
}

func TestCatSplicesListArguments(t *testing.T) {
	c, err := newCat("cat", []node.Node{
		lit(value.NewList([]value.Value{value.NewNumber(1), value.NewNumber(2)})),
		lit(value.NewNumber(3)),
	})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[1 2 3]", out.String())
}

func TestListKeepsListArgumentNested(t *testing.T) {
	c, err := newList("list", []node.Node{
		lit(value.NewList([]value.Value{value.NewNumber(1), value.NewNumber(2)})),
		lit(value.NewNumber(3)),
	})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[[1 2] 3]", out.String())
}

func TestFirstReturnsFirstElement(t *testing.T) {
	c, err := newFirst("first", []node.Node{lit(value.NewList([]value.Value{value.NewNumber(7), value.NewNumber(8)}))})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "7", out.String())
}

func TestFirstOfEmptyIsAbsent(t *testing.T) {
	c, err := newFirst("first", []node.Node{lit(value.NewList(nil))})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, ":", out.String())
}

func TestRestDropsFirstElement(t *testing.T) {
	c, err := newRest("rest", []node.Node{lit(value.NewList([]value.Value{
		value.NewNumber(7), value.NewNumber(8), value.NewNumber(9),
	}))})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[8 9]", out.String())
}

func TestRestOfSingletonIsEmptyList(t *testing.T) {
	c, err := newRest("rest", []node.Node{lit(value.NewList([]value.Value{value.NewNumber(1)}))})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[]", out.String())
}

func TestNthIsOneBased(t *testing.T) {
	c, err := newNth("nth", []node.Node{
		lit(value.NewNumber(2)),
		lit(value.NewList([]value.Value{value.NewNumber(10), value.NewNumber(20), value.NewNumber(30)})),
	})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "20", out.String())
}

func TestNthOutOfRangeIsAbsent(t *testing.T) {
	c, err := newNth("nth", []node.Node{
		lit(value.NewNumber(5)),
		lit(value.NewList([]value.Value{value.NewNumber(1)})),
	})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, ":", out.String())
}

func TestFlattenSplicesOneLevel(t *testing.T) {
	nested := value.NewList([]value.Value{
		value.NewList([]value.Value{value.NewNumber(1), value.NewNumber(2)}),
		value.NewNumber(3),
	})
	c, err := newFlatten("flatten", []node.Node{lit(nested)})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[1 2 3]", out.String())
}

func TestFocusExtractsNamedSubElementKeepingOuterName(t *testing.T) {
	elem1 := value.Named([]byte("row1"), value.NewList([]value.Value{
		value.Named([]byte("a"), value.NewNumber(1)),
		value.Named([]byte("b"), value.NewNumber(2)),
	}))
	elem2 := value.Named([]byte("row2"), value.NewList([]value.Value{
		value.Named([]byte("a"), value.NewNumber(3)),
	}))
	c, err := newFocus("focus", []node.Node{lit(str("a")), lit(value.NewList([]value.Value{elem1, elem2}))})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[row1:1 row2:3]", out.String())
}

func TestFocusSkipsRowsMissingKey(t *testing.T) {
	elem1 := value.Named([]byte("row1"), value.NewList([]value.Value{
		value.Named([]byte("a"), value.NewNumber(1)),
	}))
	elem2 := value.Named([]byte("row2"), value.NewList([]value.Value{
		value.Named([]byte("b"), value.NewNumber(2)),
	}))
	c, err := newFocus("focus", []node.Node{lit(str("a")), lit(value.NewList([]value.Value{elem1, elem2}))})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[row1:1]", out.String())
}

func TestGatherWrapsInOneElementList(t *testing.T) {
	inner := value.NewList([]value.Value{value.NewNumber(1), value.NewNumber(2)})
	c, err := newGather("gather", []node.Node{lit(inner)})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[[1 2]]", out.String())
}

func TestScatterUnwrapsGatheredList(t *testing.T) {
	inner := value.NewList([]value.Value{value.NewNumber(1), value.NewNumber(2)})
	gathered := value.NewList([]value.Value{inner})
	c, err := newScatter("scatter", []node.Node{lit(gathered)})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[1 2]", out.String())
}

func TestScatterGatherRoundTrip(t *testing.T) {
	inner := value.NewList([]value.Value{value.NewNumber(1), value.NewNumber(2), value.NewNumber(3)})
	g, err := newGather("gather", []node.Node{lit(inner)})
	require.NoError(t, err)
	gOut, _, err := g.Transform(nil, nil, nil)
	require.NoError(t, err)

	s, err := newScatter("scatter", []node.Node{gOut.(*node.Literal)})
	require.NoError(t, err)
	sOut, _, err := s.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[1 2 3]", sOut.String())
}

func TestScatterPassesThroughWhenNotGathered(t *testing.T) {
	plain := value.NewList([]value.Value{value.NewNumber(1), value.NewNumber(2)})
	c, err := newScatter("scatter", []node.Node{lit(plain)})
	require.NoError(t, err)
	out, _, err := c.Transform(nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[1 2]", out.String())
}

func TestCatEvaluatesChildrenAtRuntime(t *testing.T) {
	a := lit(value.NewNumber(1))
	b := lit(value.NewList([]value.Value{value.NewNumber(2), value.NewNumber(3)}))
	c, err := newCat("cat", []node.Node{a, b})
	require.NoError(t, err)
	v := evalOf(t, c, a, b)
	require.Equal(t, "[1 2 3]", v.String())
}

func TestRegisterAddsEveryListCall(t *testing.T) {
	f := newFactory(t)
	for _, name := range []string{
		"setName", "pushName", "cat", "list", "first", "rest", "nth",
		"flatten", "focus", "scatter", "gather",
	} {
		require.True(t, f.Has(name), name)
	}
}
