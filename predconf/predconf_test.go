package predconf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/evalstate"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/merge"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/reporter"
	"github.com/predicate-engine/predicate/stdlib/hostops"
	"github.com/predicate-engine/predicate/stdlib/template"
	"github.com/predicate-engine/predicate/value"
)

func newFactory(t *testing.T) *call.Factory {
	t.Helper()
	f := call.NewFactory()
	require.NoError(t, hostops.Register(f))
	require.NoError(t, template.Register(f))
	return f
}

func TestPredicateDefineRegistersTemplateAndGenerator(t *testing.T) {
	f := newFactory(t)
	reg := template.NewRegistry()

	require.NoError(t, PredicateDefine(reg, f, "(define 'foo' 'name' (var (ref 'name')))"))

	def, ok := reg.Lookup("foo")
	require.True(t, ok)
	require.Equal(t, []string{"name"}, def.Args)
	require.True(t, f.Has("foo"))

	callNode, err := f.New("foo", []node.Node{node.NewLiteral(value.NewString([]byte("REQUEST_URI")))})
	require.NoError(t, err)
	require.NoError(t, callNode.PreTransform(nil))
	out, changed, err := callNode.Transform(nil, f, nil)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "(var 'REQUEST_URI')", out.String())
}

func TestPredicateDefineFailsOnTrailingInput(t *testing.T) {
	f := newFactory(t)
	reg := template.NewRegistry()
	err := PredicateDefine(reg, f, "(define 'foo' 'name' (ref 'name')) garbage")
	require.Error(t, err)
}

func TestPredicateDefineFailsOnDuplicateName(t *testing.T) {
	f := newFactory(t)
	reg := template.NewRegistry()
	require.NoError(t, PredicateDefine(reg, f, "(define 'foo' 'name' (ref 'name'))"))
	err := PredicateDefine(reg, f, "(define 'foo' 'other' (ref 'other'))")
	require.Error(t, err)
}

func TestPredicateDebugReportWritesOneLinePerRoot(t *testing.T) {
	f := newFactory(t)
	g := merge.New(reporter.NewNop())
	_, root1 := g.AddRoot(node.NewLiteral(value.NewNumber(1)))
	askCall, err := f.New("ask", []node.Node{
		node.NewLiteral(value.NewString([]byte("x"))),
		node.NewLiteral(value.NewString([]byte("y"))),
	})
	require.NoError(t, err)
	_, root2 := g.AddRoot(askCall)

	var buf bytes.Buffer
	require.NoError(t, PredicateDebugReport(g, &buf))
	require.Equal(t, root1.String()+"\n"+root2.String()+"\n", buf.String())
}

func TestPredicateAssertValidPassesForWellFormedGraph(t *testing.T) {
	g := merge.New(reporter.NewNop())
	g.AddRoot(node.NewLiteral(value.NewNumber(1)))

	rep := reporter.NewNop()
	require.NoError(t, PredicateAssertValid(g, rep))
}

func TestPredicateAssertValidFailsOnArityViolation(t *testing.T) {
	f := newFactory(t)
	g := merge.New(reporter.NewNop())
	refCall, err := f.New("ref", nil)
	require.NoError(t, err)
	g.AddRoot(refCall)

	rep := reporter.NewNop()
	err = PredicateAssertValid(g, rep)
	require.Error(t, err)
}

func TestPredicateTraceEnablesNamedRuleOnly(t *testing.T) {
	dir := t.TempDir()
	tracer := NewTracer(nil)
	require.NoError(t, PredicateTrace(tracer, filepath.Join(dir, "trace.log"), "rule-a"))

	require.False(t, tracer.all)
	require.True(t, tracer.ids["rule-a"])
	require.False(t, tracer.ids["rule-b"])
}

func TestPredicateTraceWithNoRuleIDsEnablesEverything(t *testing.T) {
	dir := t.TempDir()
	tracer := NewTracer(nil)
	require.NoError(t, PredicateTrace(tracer, filepath.Join(dir, "trace.log")))

	require.True(t, tracer.all)
	require.NotNil(t, tracer.For("anything"))
}

func TestPredicateTraceWritesAuditRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.log")
	tracer := NewTracer(nil)
	require.NoError(t, PredicateTrace(tracer, path, "rule-a", "rule-b"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "rule-a")
	require.Contains(t, string(data), "rule-b")
}

type fakePublisher struct {
	values []value.Value
	names  [][]byte
}

func (p *fakePublisher) PublishValue(v value.Value, name []byte) {
	p.values = append(p.values, v)
	p.names = append(p.names, name)
}

func TestSetPredicateVarsPublishesScalarValue(t *testing.T) {
	root := node.NewLiteral(value.NewNumber(7))
	s := evalstate.NewState([]node.Node{root}, reporter.NewNop())
	_, err := s.Eval(root, &hostio.Context{})
	require.NoError(t, err)

	pub := &fakePublisher{}
	require.NoError(t, SetPredicateVars(root, s, pub))
	require.Len(t, pub.values, 1)
	require.Equal(t, int64(7), pub.values[0].Num())
}

func TestSetPredicateVarsPublishesEachListElement(t *testing.T) {
	root := node.NewLiteral(value.NewList([]value.Value{
		value.Named([]byte("a"), value.NewNumber(1)),
		value.Named([]byte("b"), value.NewNumber(2)),
	}))
	s := evalstate.NewState([]node.Node{root}, reporter.NewNop())
	_, err := s.Eval(root, &hostio.Context{})
	require.NoError(t, err)

	pub := &fakePublisher{}
	require.NoError(t, SetPredicateVars(root, s, pub))
	require.Len(t, pub.values, 2)
	require.Equal(t, "a", string(pub.names[0]))
	require.Equal(t, "b", string(pub.names[1]))
}

func TestSetPredicateVarsSkipsAbsentValue(t *testing.T) {
	root := node.NewLiteral(value.Absent)
	s := evalstate.NewState([]node.Node{root}, reporter.NewNop())
	_, err := s.Eval(root, &hostio.Context{})
	require.NoError(t, err)

	pub := &fakePublisher{}
	require.NoError(t, SetPredicateVars(root, s, pub))
	require.Empty(t, pub.values)
}

func TestSetPredicateVarsSkipsUnfinishedNode(t *testing.T) {
	root := node.NewLiteral(value.NewNumber(1))
	s := evalstate.NewState([]node.Node{root}, reporter.NewNop())

	pub := &fakePublisher{}
	require.NoError(t, SetPredicateVars(root, s, pub))
	require.Empty(t, pub.values)
}
