package node

// base implements the children/parents/index bookkeeping shared by every
// concrete node kind. Concrete types embed it and only implement the
// behavior specific to that node kind.
type base struct {
	children []Node
	parents  []Node
	index    int
}

func newBase(index int) base {
	return base{index: index}
}

func (b *base) Children() []Node { return b.children }

func (b *base) Parents() []Node { return b.parents }

func (b *base) Index() int { return b.index }

func (b *base) SetIndex(i int) { b.index = i }

// addParent registers p as one of this node's parents if not already
// present (a node may have many parents, but never the same one twice).
func (b *base) addParent(p Node) {
	for _, existing := range b.parents {
		if existing == p {
			return
		}
	}
	b.parents = append(b.parents, p)
}

// removeParent drops p from this node's parent set.
func (b *base) removeParent(p Node) {
	for i, existing := range b.parents {
		if existing == p {
			b.parents = append(b.parents[:i], b.parents[i+1:]...)
			return
		}
	}
}

// addChild appends c to self's children and registers self as one of c's
// parents. self is passed explicitly because b is embedded and has no
// access to the outer Node value.
func (b *base) addChild(self, c Node) {
	b.children = append(b.children, c)
	registerParent(c, self)
}

// removeChild removes the first occurrence of c from self's children and,
// if no other edge to c remains, drops self from c's parent set.
func (b *base) removeChild(self, c Node) {
	for i, existing := range b.children {
		if existing == c {
			b.children = append(b.children[:i], b.children[i+1:]...)
			break
		}
	}
	if !b.hasChild(c) {
		unregisterParent(c, self)
	}
}

func (b *base) replaceChild(self, old, new Node) {
	for i, existing := range b.children {
		if existing == old {
			b.children[i] = new
			registerParent(new, self)
			break
		}
	}
	if !b.hasChild(old) {
		unregisterParent(old, self)
	}
}

func (b *base) hasChild(c Node) bool {
	for _, existing := range b.children {
		if existing == c {
			return true
		}
	}
	return false
}

// registerParent/unregisterParent reach into a child's base via the
// parentRegistrar interface every concrete node type satisfies.
type parentRegistrar interface {
	addParent(p Node)
	removeParent(p Node)
}

func registerParent(c, p Node) {
	if pr, ok := c.(parentRegistrar); ok {
		pr.addParent(p)
	}
}

func unregisterParent(c, p Node) {
	if pr, ok := c.(parentRegistrar); ok {
		pr.removeParent(p)
	}
}
