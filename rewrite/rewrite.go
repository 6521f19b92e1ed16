// Package rewrite implements the transformation driver: one breadth-first
// downward pass invoking PreTransform/Transform/PostTransform over every
// reachable node, and a fixed-point loop that keeps running passes until
// one makes no change.
package rewrite

import (
	"fmt"

	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/merge"
	"github.com/predicate-engine/predicate/node"
	"github.com/predicate-engine/predicate/perrors"
	"github.com/predicate-engine/predicate/reporter"
	"github.com/predicate-engine/predicate/traverse"
)

// MaxPasses bounds RunToFixedPoint: a Transform implementation that never
// settles is a configuration bug, not something to loop on forever.
const MaxPasses = 1000

// Driver runs transformation passes over a merge.Graph.
type Driver struct {
	Graph   *merge.Graph
	Factory *call.Factory
	Rep     *reporter.Reporter
}

// NewDriver constructs a Driver wired to g, f and rep.
func NewDriver(g *merge.Graph, f *call.Factory, rep *reporter.Reporter) *Driver {
	return &Driver{Graph: g, Factory: f, Rep: rep}
}

// Run performs one breadth-first downward pass over every node reachable
// from the graph's roots: PreTransform, then Transform (which may call
// g.Replace to substitute the node, in which case the replacement is not
// itself visited again in this same pass — it will be picked up on the
// next Run), then PostTransform. It reports whether any node changed.
func (d *Driver) Run() (changed bool, err error) {
	order := traverse.BreadthFirst(d.Graph.Roots()...)
	for _, n := range order {
		if err := n.PreTransform(d.Rep); err != nil {
			return changed, err
		}
	}
	for _, n := range order {
		replacement, didChange, err := n.Transform(d.Graph, d.Factory, d.Rep)
		if err != nil {
			return changed, err
		}
		if didChange {
			changed = true
			if err := d.Graph.Replace(n, replacement); err != nil {
				return changed, err
			}
		}
	}
	for _, n := range order {
		if err := n.PostTransform(d.Rep); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// RunToFixedPoint calls Run in a loop until a pass reports no change,
// failing ErrResourceExhausted if MaxPasses is exceeded — a safety valve
// against a misbehaving Transform that never reaches fixed point, not a
// silent truncation of legitimate work.
func (d *Driver) RunToFixedPoint() error {
	return d.RunToFixedPointN(MaxPasses)
}

// RunToFixedPointN is RunToFixedPoint with an explicit pass-count ceiling,
// for callers that want a tighter or looser bound than the package
// default.
func (d *Driver) RunToFixedPointN(maxPasses int) error {
	for pass := 0; pass < maxPasses; pass++ {
		changed, err := d.Run()
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}
	return perrors.ErrResourceExhausted.New(fmt.Sprintf("transformation did not reach a fixed point within %d passes", maxPasses))
}
