// Package reporter accumulates per-node error and warning events raised
// while validating or transforming a graph, logging each one through a
// structured logrus.Entry.
package reporter

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/predicate-engine/predicate/node"
)

// Reporter accumulates error/warning counts and logs each event through a
// structured logrus.Entry. It implements node.Reporter.
type Reporter struct {
	log      *logrus.Entry
	errors   int64
	warnings int64
}

// New wraps base with a "system":"predicate" field and a transaction id,
// so every logged event can be traced back to its run.
func New(base *logrus.Logger, txnID uuid.UUID) *Reporter {
	if base == nil {
		base = logrus.New()
	}
	return &Reporter{log: base.WithFields(logrus.Fields{
		"system": "predicate",
		"txn":    txnID.String(),
	})}
}

// NewNop returns a Reporter that logs nowhere (for tests and the CLI's
// default run).
func NewNop() *Reporter {
	l := logrus.New()
	l.SetOutput(discard{})
	return New(l, uuid.Nil)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Error records and logs a node-attached error event.
func (r *Reporter) Error(n node.Node, format string, args ...interface{}) {
	atomic.AddInt64(&r.errors, 1)
	r.entry(n).Errorf(format, args...)
}

// Warn records and logs a node-attached warning event.
func (r *Reporter) Warn(n node.Node, format string, args ...interface{}) {
	atomic.AddInt64(&r.warnings, 1)
	r.entry(n).Warnf(format, args...)
}

func (r *Reporter) entry(n node.Node) *logrus.Entry {
	if n == nil {
		return r.log
	}
	return r.log.WithFields(logrus.Fields{
		"node":        n.Name(),
		"node_string": n.String(),
	})
}

// ErrorCount returns the number of Error calls made so far.
func (r *Reporter) ErrorCount() int { return int(atomic.LoadInt64(&r.errors)) }

// WarnCount returns the number of Warn calls made so far.
func (r *Reporter) WarnCount() int { return int(atomic.LoadInt64(&r.warnings)) }

// Clean reports whether no errors have been recorded. Warnings never fail
// a run.
func (r *Reporter) Clean() bool { return r.ErrorCount() == 0 }
