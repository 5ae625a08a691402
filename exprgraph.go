// Package exprgraph implements a reference-counted DAG representation of
// symbolic nonlinear expressions (sums, products, powers, transcendental
// functions), a handler registry that lets new operator kinds be plugged in
// without modifying the core, a simplifier with common-subexpression
// sharing, and a detector that extracts quadratic structure from a
// simplified expression.
package exprgraph

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateHandler is returned when registering a handler under a
	// name that is already taken.
	ErrDuplicateHandler = errors.New("duplicate handler name")

	// ErrHandlerNotFound is returned when looking up an unregistered name.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrArityMismatch is returned when a node is created with a child
	// count that violates the handler's declared variability.
	ErrArityMismatch = errors.New("arity mismatch")
)

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
