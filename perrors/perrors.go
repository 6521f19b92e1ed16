// Package perrors declares the abstract error kinds used throughout this
// module, each as a stable gopkg.in/src-d/go-errors.v1 Kind. A Kind's
// identity (for .Is checks) is independent of the formatted message, so
// callers can match on "this was a syntax error" without string
// comparison.
package perrors

import errors "gopkg.in/src-d/go-errors.v1"

var (
	// ErrInvalidSyntax: the parser rejects input; New takes one
	// already-formatted message (position + reason).
	ErrInvalidSyntax = errors.NewKind("invalid syntax: %s")
	// ErrUnknownCall: call factory lookup miss during parse.
	ErrUnknownCall = errors.NewKind("unknown call %q")
	// ErrInvalidRegistration: a factory generator produced a node whose
	// reported name differs from the name it was registered under, or a
	// name was registered twice.
	ErrInvalidRegistration = errors.NewKind("invalid registration: %s")
	// ErrInvalidArguments: wrong arity, wrong child type, or a non-literal
	// where a literal is required, found at pre_transform/pre_eval.
	ErrInvalidArguments = errors.NewKind("invalid arguments: %s")
	// ErrInvalidState: an illegal evaluation-slot transition.
	ErrInvalidState = errors.NewKind("invalid evaluation state: %s")
	// ErrNotFound: absent in variable store / operator registry / transform
	// record.
	ErrNotFound = errors.NewKind("not found: %s")
	// ErrHostOperatorFailure: a host operator or transformation signalled
	// an error.
	ErrHostOperatorFailure = errors.NewKind("host operator %q failed: %s")
	// ErrResourceExhausted: arena allocation / pass-count budget failure.
	ErrResourceExhausted = errors.NewKind("resource exhausted: %s")
)
