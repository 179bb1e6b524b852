// Package service implements the patrol session controller: every
// operation a signed-in volunteer can perform against their own patrols.
// Operations take an explicit Session value instead of reading ambient
// auth state, which keeps them testable without HTTP plumbing.
package service

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or invalid required input. It is
// recoverable and never mutates state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ErrNoSession is returned when an operation is attempted without an
// authenticated user.
var ErrNoSession = errors.New("authentication required")

// ErrNotOwner is returned when the acting user is not the patrol's owner.
var ErrNotOwner = errors.New("not the patrol owner")

// ErrPatrolNotFound is returned when the patrol id resolves to nothing.
var ErrPatrolNotFound = errors.New("patrol not found")

// ErrPatrolClosed is returned when a close targets a patrol that is
// already completed. Completed is a terminal state.
var ErrPatrolClosed = errors.New("patrol already closed")

// StoreError wraps a remote store failure. The triggering operation leaves
// prior state unchanged and may be retried by a later user action.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }
