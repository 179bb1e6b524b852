// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// patrol service and handlers to distinguish between failure scenarios
// without inspecting SQL errors directly.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// patrol owned by someone else. Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrPatrolNotFound is returned when no patrol exists for the given id.
var ErrPatrolNotFound = errors.New("patrol not found")

// ErrPatrolCompleted is returned when a state-changing write targets a
// patrol that has already been closed. Completed is terminal.
var ErrPatrolCompleted = errors.New("patrol already completed")

// ErrEmailExists is returned when registration hits the unique email index.
var ErrEmailExists = errors.New("email already exists")
