// Package arena provides simple lifetime-scoped accounting for two kinds
// of allocation arena: a configuration arena (node/compiled artifact
// lifetime) and a per-transaction arena (Value/scratch lifetime). It does
// not replace Go's garbage collector — it only tracks aggregate allocation
// counts so a host can enforce a budget and report resource exhaustion
// alongside (not instead of) GC.
package arena

import (
	"fmt"
	"sync/atomic"

	"github.com/predicate-engine/predicate/perrors"
)

// Arena tracks aggregate byte accounting for one lifetime scope.
type Arena struct {
	name  string
	limit int64
	used  int64
}

// New creates an Arena with the given budget. A limit of 0 means unbounded.
func New(name string, limit int64) *Arena {
	return &Arena{name: name, limit: limit}
}

// Name returns the arena's label (e.g. "engine" or a transaction id).
func (a *Arena) Name() string { return a.name }

// Used returns the current accounted usage.
func (a *Arena) Used() int64 { return atomic.LoadInt64(&a.used) }

// Charge accounts n additional bytes against the arena's budget. It fails
// with ErrResourceExhausted if doing so would exceed a nonzero limit.
func (a *Arena) Charge(n int64) error {
	if a.limit == 0 {
		atomic.AddInt64(&a.used, n)
		return nil
	}
	for {
		cur := atomic.LoadInt64(&a.used)
		if cur+n > a.limit {
			return perrors.ErrResourceExhausted.New(fmt.Sprintf("arena %q: used %d + requested %d > limit %d", a.name, cur, n, a.limit))
		}
		if atomic.CompareAndSwapInt64(&a.used, cur, cur+n) {
			return nil
		}
	}
}

// Release returns n bytes to the arena's budget (e.g. when a transaction
// ends and its scratch state is discarded).
func (a *Arena) Release(n int64) {
	atomic.AddInt64(&a.used, -n)
}
