// Package simerr declares the one fatal error kind shared across the
// simulator. Malformed instructions and out-of-range cache levels are
// locally recoverable and already have sentinels where they're raised
// (see hierarchy.ErrOutOfRange); everything unrecoverable panics through
// here instead.
package simerr

import "fmt"

// InvariantError marks a ready-gate violation, a re-allocate after evict
// failing twice, or a trace indent underflow: conditions that leave the
// simulator in a state it cannot continue from. Components that detect
// one panic with an *InvariantError; cmd/cachesim is the only place
// that recovers, printing the message and exiting non-zero.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant failure: %s", e.Msg)
}

// Raise panics with an *InvariantError built from a formatted message.
func Raise(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}
