package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/value"
)

type fakeVarStore struct {
	vars map[string]value.Value
}

func (s *fakeVarStore) Lookup(key []byte) (value.Value, bool) {
	v, ok := s.vars[string(key)]
	return v, ok
}

func (s *fakeVarStore) LookupIndexed(int) (value.Value, bool) { return value.Value{}, false }

type discardLogger struct{}

func (discardLogger) Log(hostio.Level, string, int, string, ...interface{}) {}

type recordingPublisher struct {
	values []value.Value
	names  [][]byte
}

func (p *recordingPublisher) PublishValue(v value.Value, name []byte) {
	p.values = append(p.values, v)
	p.names = append(p.names, name)
}

func TestCompileRejectsInvalidSyntax(t *testing.T) {
	e := New(Config{})
	err := e.Compile([]string{"(var"})
	require.Error(t, err)
}

func TestCompileRejectsTrailingInput(t *testing.T) {
	e := New(Config{})
	err := e.Compile([]string{"(var 'X') garbage"})
	require.Error(t, err)
}

func TestCompileAssignsSyntheticRuleIDs(t *testing.T) {
	e := New(Config{})
	require.NoError(t, e.Compile([]string{"(var 'X')", "(var 'Y')"}))

	roots := e.Graph.Roots()
	require.Len(t, roots, 2)
	require.Equal(t, "rule-0", e.ruleIDs[roots[0]])
	require.Equal(t, "rule-1", e.ruleIDs[roots[1]])
}

func TestCompileLenientValidationSwallowsErrors(t *testing.T) {
	e := New(Config{LenientValidation: true})
	err := e.Compile([]string{"(ref)"})
	require.NoError(t, err)
}

func TestCompileStrictValidationFailsOnArityViolation(t *testing.T) {
	e := New(Config{})
	err := e.Compile([]string{"(ref)"})
	require.Error(t, err)
}

func TestNewTransactionRunPhaseEvaluatesVar(t *testing.T) {
	e := New(Config{})
	require.NoError(t, e.Compile([]string{"(var 'X')"}))

	vars := &fakeVarStore{vars: map[string]value.Value{
		"X": value.NewNumber(42),
	}}
	txn, err := e.NewTransaction(context.Background(), vars, discardLogger{}, nil)
	require.NoError(t, err)
	require.Equal(t, hostio.PhaseNone, txn.CurrentPhase())

	results, err := txn.RunPhase(hostio.PhaseRequest)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(42), results[0].Value.Num())
	require.Equal(t, hostio.PhaseRequest, txn.CurrentPhase())
}

func TestRunPhasePublishesSetPredicateVars(t *testing.T) {
	e := New(Config{})
	require.NoError(t, e.Compile([]string{"(var 'X')"}))

	vars := &fakeVarStore{vars: map[string]value.Value{
		"X": value.NewNumber(1),
	}}
	pub := &recordingPublisher{}
	txn, err := e.NewTransaction(context.Background(), vars, discardLogger{}, pub)
	require.NoError(t, err)

	_, err = txn.RunPhase(hostio.PhaseRequest)
	require.NoError(t, err)
	require.Len(t, pub.values, 1)
	require.Equal(t, int64(1), pub.values[0].Num())
}

func TestRunPhaseSkipsPublishingWithoutPublisher(t *testing.T) {
	e := New(Config{})
	require.NoError(t, e.Compile([]string{"(var 'X')"}))

	vars := &fakeVarStore{vars: map[string]value.Value{
		"X": value.NewNumber(1),
	}}
	txn, err := e.NewTransaction(context.Background(), vars, discardLogger{}, nil)
	require.NoError(t, err)

	_, err = txn.RunPhase(hostio.PhaseRequest)
	require.NoError(t, err)
}

func TestDefineThenCompileExpandsTemplate(t *testing.T) {
	e := New(Config{})
	require.NoError(t, e.Define("(define 'lookup' 'name' (var (ref 'name')))"))
	require.NoError(t, e.Compile([]string{"(lookup 'X')"}))

	vars := &fakeVarStore{vars: map[string]value.Value{
		"X": value.NewNumber(9),
	}}
	txn, err := e.NewTransaction(context.Background(), vars, discardLogger{}, nil)
	require.NoError(t, err)

	results, err := txn.RunPhase(hostio.PhaseRequest)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(9), results[0].Value.Num())
}

func TestRegisterOperatorRejectsDuplicateName(t *testing.T) {
	e := New(Config{})
	require.NoError(t, e.RegisterOperator("match", stubOperatorFactory{}))
	err := e.RegisterOperator("match", stubOperatorFactory{})
	require.Error(t, err)
}

type stubOperatorFactory struct{}

func (stubOperatorFactory) Create(string, []value.Value) (hostio.OperatorInstance, error) {
	return nil, nil
}

func TestTraceEnablesRuleIDFromSeed(t *testing.T) {
	e := New(Config{TraceRuleIDs: []string{"rule-0"}})
	require.NoError(t, e.Compile([]string{"(var 'X')"}))
	require.NotNil(t, e.Tracer.For("rule-0"))
}
