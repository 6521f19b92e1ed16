// Package stdlib aggregates every standard call family into one
// registration entry point.
package stdlib

import (
	"github.com/predicate-engine/predicate/call"
	"github.com/predicate-engine/predicate/stdlib/boolean"
	"github.com/predicate-engine/predicate/stdlib/devel"
	"github.com/predicate-engine/predicate/stdlib/filter"
	"github.com/predicate-engine/predicate/stdlib/hostops"
	"github.com/predicate-engine/predicate/stdlib/list"
	"github.com/predicate-engine/predicate/stdlib/mathfn"
	"github.com/predicate-engine/predicate/stdlib/predicatefn"
	"github.com/predicate-engine/predicate/stdlib/strfn"
	"github.com/predicate-engine/predicate/stdlib/template"
)

// RegisterAll registers every standard call into f.
func RegisterAll(f *call.Factory) error {
	for _, reg := range []func(*call.Factory) error{
		boolean.Register,
		list.Register,
		filter.Register,
		mathfn.Register,
		strfn.Register,
		devel.Register,
		predicatefn.Register,
		hostops.Register,
		template.Register,
	} {
		if err := reg(f); err != nil {
			return err
		}
	}
	return nil
}
