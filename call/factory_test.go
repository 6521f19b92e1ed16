package call

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
)

func fixedCtor(n string, args []node.Node) (node.Node, error) {
	c := node.NewCallBase(n, true)
	probe := &probeCall{CallBase: c}
	probe.Init(probe)
	for _, a := range args {
		probe.AddChild(a)
	}
	return probe, nil
}

type probeCall struct{ node.CallBase }

func (c *probeCall) Clone() node.Node { panic("unused") }
func (c *probeCall) EvalCalculate(node.EvalState, *hostio.Context) error { return nil }

func TestRegisterRejectsDuplicateName(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.Register("cat", fixedCtor))
	require.Error(t, f.Register("cat", fixedCtor))
}

func TestRegisterRejectsGeneratorNameMismatch(t *testing.T) {
	f := NewFactory()
	mismatched := func(n string, args []node.Node) (node.Node, error) {
		return fixedCtor("always-this-name", args)
	}
	require.Error(t, f.Register("var", mismatched))
}

func TestNewFailsUnknownCall(t *testing.T) {
	f := NewFactory()
	_, err := f.New("nope", nil)
	require.Error(t, err)
}

func TestNewDelegatesToConstructor(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.Register("cat", fixedCtor))
	n, err := f.New("cat", nil)
	require.NoError(t, err)
	require.Equal(t, "cat", n.Name())
}
