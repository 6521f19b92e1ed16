// Package template implements the template expansion call family: define,
// ref, plus the Definition/Registry/Substitute machinery predconf uses to
// turn a parsed "define" form into a dynamically-registered generator
// constructor, splicing a named definition's body into the tree at
// transform time rather than resolving it through late binding.
package template

import (
	"fmt"

	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/hostio"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/stdlib/internal/stdutil"
	"github.com/predicate-engine/predicate/value"
)

// Register adds "define" and "ref" to f. Neither call carries any Registry
// state itself: define is a structural form predconf's configuration-load
// pre-pass reads via DefinitionFromRoot, and ref is substituted away by
// whatever templateCall invokes the definition it belongs to (NewGenerator)
// before evaluation ever sees it.
func Register(f *call.Factory) error {
	for name, ctor := range map[string]call.Constructor{
		"define": newDefine,
		"ref":    newRef,
	} {
		if err := f.Register(name, ctor); err != nil {
			return err
		}
	}
	return nil
}

func literalString(n node.Node) ([]byte, bool) {
	lit, ok := n.(*node.Literal)
	if !ok || lit.Value.Kind() != value.String {
		return nil, false
	}
	return lit.Value.Str(), true
}

// Definition is one registered "define" form: a named call of fixed arity
// whose body is spliced, with reference substitution, into every site that
// invokes it.
type Definition struct {
	Name string
	Args []string
	Body node.Node
}

// Registry maps defined template names to their Definition, populated by
// predconf's pre-pass over top-level "define" roots before the main
// transformation driver runs.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds d, failing ErrInvalidRegistration if d.Name is already
// defined.
func (r *Registry) Register(d *Definition) error {
	if _, exists := r.defs[d.Name]; exists {
		return perrors.ErrInvalidRegistration.New(fmt.Sprintf("template %q is already defined", d.Name))
	}
	r.defs[d.Name] = d
	return nil
}

// Lookup returns the Definition named name, or ok=false if none is
// registered.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns every registered template name, in no particular order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.defs))
	for n := range r.defs {
		out = append(out, n)
	}
	return out
}

// defineCall is "(define NAME arg-names… body)". It never evaluates: a
// legal configuration expands every define into a Registry entry and a
// dynamically-registered generator (NewGenerator) before evaluation starts.
type defineCall struct {
	node.CallBase
}

func newDefine(name string, args []node.Node) (node.Node, error) {
	c := &defineCall{CallBase: node.NewCallBase(name, true)}
	c.Init(c)
	for _, a := range args {
		c.AddChild(a)
	}
	return c, nil
}

func (c *defineCall) Clone() node.Node {
	out, _ := newDefine(c.Name(), node.CloneChildren(c))
	return out
}

func (c *defineCall) PreTransform(rep node.Reporter) error {
	return stdutil.CheckArity(c, 2, -1)
}

// DefinedName returns the literal NAME child, or ok=false if it isn't a
// literal string.
func (c *defineCall) DefinedName() (string, bool) {
	kids := c.Children()
	if len(kids) < 2 {
		return "", false
	}
	s, ok := literalString(kids[0])
	return string(s), ok
}

// ArgNames returns the literal arg-names children, or ok=false if any of
// them isn't a literal string.
func (c *defineCall) ArgNames() ([]string, bool) {
	kids := c.Children()
	if len(kids) < 2 {
		return nil, false
	}
	argKids := kids[1 : len(kids)-1]
	names := make([]string, len(argKids))
	for i, a := range argKids {
		s, ok := literalString(a)
		if !ok {
			return nil, false
		}
		names[i] = string(s)
	}
	return names, true
}

// Body returns the define form's last child, the template body.
func (c *defineCall) Body() node.Node {
	kids := c.Children()
	return kids[len(kids)-1]
}

func (c *defineCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	name, _ := c.DefinedName()
	return perrors.ErrInvalidState.New(fmt.Sprintf("define %q was never expanded into a registered template before evaluation", name))
}

// DefinitionFromRoot reads a parsed "define" root into a Definition,
// failing ErrInvalidArguments if n isn't a well-formed define form.
func DefinitionFromRoot(n node.Node) (*Definition, error) {
	dc, ok := n.(*defineCall)
	if !ok {
		return nil, perrors.ErrInvalidArguments.New("not a define form")
	}
	name, ok := dc.DefinedName()
	if !ok {
		return nil, perrors.ErrInvalidArguments.New("define: template name must be a literal string")
	}
	args, ok := dc.ArgNames()
	if !ok {
		return nil, perrors.ErrInvalidArguments.New("define: argument names must be literal strings")
	}
	return &Definition{Name: name, Args: args, Body: dc.Body()}, nil
}

// refCall is "(ref 'argK')", a placeholder substituted away by the
// template invocation it belongs to. Left unsubstituted (a ref to an
// unknown argument, or one reached directly without ever going through a
// templateCall's Transform), it is an evaluation-time bug, not a normal
// absent answer.
type refCall struct {
	node.CallBase
}

func newRef(name string, args []node.Node) (node.Node, error) {
	c := &refCall{CallBase: node.NewCallBase(name, true)}
	c.Init(c)
	for _, a := range args {
		c.AddChild(a)
	}
	return c, nil
}

func (c *refCall) Clone() node.Node {
	out, _ := newRef(c.Name(), node.CloneChildren(c))
	return out
}

func (c *refCall) PreTransform(rep node.Reporter) error {
	if err := stdutil.CheckArity(c, 1, 1); err != nil {
		return err
	}
	if _, ok := literalString(c.Children()[0]); !ok {
		return perrors.ErrInvalidArguments.New("ref: argument name must be a literal string")
	}
	return nil
}

func (c *refCall) argName() string {
	s, _ := literalString(c.Children()[0])
	return string(s)
}

func (c *refCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	return perrors.ErrInvalidState.New(fmt.Sprintf("ref %q was never substituted by a template expansion", c.argName()))
}

// Substitute returns a fresh copy of body with every (ref 'argK') node
// replaced by the corresponding entry of values (args[i] names values[i]).
// A ref naming something outside args fails ErrInvalidArguments, unless it
// sits inside a nested, unrelated define's body — that body is its own
// substitution scope and is left untouched.
func Substitute(body node.Node, args []string, values []node.Node) (node.Node, error) {
	if name, ok := refArgName(body); ok {
		idx := indexOf(args, name)
		if idx < 0 {
			return nil, perrors.ErrInvalidArguments.New(fmt.Sprintf("ref to unknown argument %q", name))
		}
		return values[idx].Clone(), nil
	}
	root := body.Clone()
	if err := substituteInPlace(root, args, values); err != nil {
		return nil, err
	}
	return root, nil
}

func refArgName(n node.Node) (string, bool) {
	rc, ok := n.(*refCall)
	if !ok {
		return "", false
	}
	return rc.argName(), true
}

func indexOf(args []string, name string) int {
	for i, a := range args {
		if a == name {
			return i
		}
	}
	return -1
}

func substituteInPlace(n node.Node, args []string, values []node.Node) error {
	if _, ok := n.(*defineCall); ok {
		return nil
	}
	for _, ch := range n.Children() {
		if name, ok := refArgName(ch); ok {
			idx := indexOf(args, name)
			if idx < 0 {
				return perrors.ErrInvalidArguments.New(fmt.Sprintf("ref to unknown argument %q", name))
			}
			n.ReplaceChild(ch, values[idx].Clone())
			continue
		}
		if err := substituteInPlace(ch, args, values); err != nil {
			return err
		}
	}
	return nil
}

// templateCall is the dynamically-registered generator node for one
// defined template name NAME, the same mechanism stdlib/hostops'
// NewSpecificOperator uses: it rewrites "(NAME a1…an)" into reg's
// Definition's body with every ref substituted by the matching actual
// argument.
type templateCall struct {
	node.CallBase
	registry *Registry
}

// NewGenerator returns a call.Constructor for the template name name,
// looked up in reg at PreTransform/Transform time (never at construction,
// so the factory's self-check probe — called with zero arguments before
// reg necessarily holds name — always succeeds).
func NewGenerator(reg *Registry, name string) call.Constructor {
	return func(callName string, args []node.Node) (node.Node, error) {
		c := &templateCall{CallBase: node.NewCallBase(callName, true), registry: reg}
		c.Init(c)
		for _, a := range args {
			c.AddChild(a)
		}
		return c, nil
	}
}

func (c *templateCall) Clone() node.Node {
	ctor := NewGenerator(c.registry, c.Name())
	out, _ := ctor(c.Name(), node.CloneChildren(c))
	return out
}

func (c *templateCall) definition() (*Definition, error) {
	def, ok := c.registry.Lookup(c.Name())
	if !ok {
		return nil, perrors.ErrInvalidState.New(fmt.Sprintf("template %q has no registered definition", c.Name()))
	}
	return def, nil
}

func (c *templateCall) PreTransform(rep node.Reporter) error {
	def, err := c.definition()
	if err != nil {
		return err
	}
	return stdutil.CheckArity(c, len(def.Args), len(def.Args))
}

func (c *templateCall) Transform(g node.Graph, f node.Factory, rep node.Reporter) (node.Node, bool, error) {
	def, err := c.definition()
	if err != nil {
		return c, false, err
	}
	expanded, err := Substitute(def.Body, def.Args, c.Children())
	if err != nil {
		return c, false, err
	}
	return expanded, true, nil
}

func (c *templateCall) EvalCalculate(s node.EvalState, ctx *hostio.Context) error {
	return perrors.ErrInvalidState.New(fmt.Sprintf("template call %q was never expanded before evaluation", c.Name()))
}
