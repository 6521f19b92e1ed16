// Package call implements the call registry and a hand-rolled
// S-expression parser: a text-in, node.Node-out contract over a small,
// fully bracketed grammar.
package call

import (
	"fmt"

	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
)

// Constructor builds a fresh node for a call named name given its
// already-parsed argument nodes. A single functional form serves both
// fixed constructors and generators: a generator simply closes over
// nothing but name.
type Constructor func(name string, args []node.Node) (node.Node, error)

// Factory is a name -> Constructor registry. Lookup is case-sensitive.
type Factory struct {
	ctors map[string]Constructor
}

// NewFactory returns an empty registry.
func NewFactory() *Factory {
	return &Factory{ctors: make(map[string]Constructor)}
}

// Register adds ctor under name, failing ErrInvalidRegistration if name is
// already registered, or if invoking ctor with zero arguments to sanity-check
// the constructor reports a Name() other than name — this is checked once
// here, at configuration time, rather than deferred to first use at
// evaluation time.
func (f *Factory) Register(name string, ctor Constructor) error {
	if _, exists := f.ctors[name]; exists {
		return perrors.ErrInvalidRegistration.New(fmt.Sprintf("call %q is already registered", name))
	}
	probe, err := ctor(name, nil)
	if err != nil {
		return perrors.ErrInvalidRegistration.New(fmt.Sprintf("call %q: constructor failed self-check: %v", name, err))
	}
	if probe.Name() != name {
		return perrors.ErrInvalidRegistration.New(fmt.Sprintf("call %q: generator produced node named %q", name, probe.Name()))
	}
	f.ctors[name] = ctor
	return nil
}

// New constructs a node named name with the given already-parsed args,
// failing ErrUnknownCall if name has no registered constructor.
func (f *Factory) New(name string, args []node.Node) (node.Node, error) {
	ctor, ok := f.ctors[name]
	if !ok {
		return nil, perrors.ErrUnknownCall.New(name)
	}
	return ctor(name, args)
}

// Has reports whether name is registered.
func (f *Factory) Has(name string) bool {
	_, ok := f.ctors[name]
	return ok
}

// Names returns every registered call name, in no particular order.
func (f *Factory) Names() []string {
	out := make([]string, 0, len(f.ctors))
	for n := range f.ctors {
		out = append(out, n)
	}
	return out
}
