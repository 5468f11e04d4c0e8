// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between failure scenarios.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// record outside the scope they manage (e.g. another neighborhood).
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a conditional update or delete matched no
// row because the record is no longer in the expected state, such as a
// status transition racing another writer. Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when a unique constraint is violated.
var ErrDuplicate = errors.New("duplicate")
