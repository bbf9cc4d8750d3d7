package database

import "errors"

// ErrNotFound is returned when a lookup matches no row.
// Callers should check with errors.Is().
var ErrNotFound = errors.New("not found")

// ErrInvalidLimit is returned for structurally invalid query limits.
var ErrInvalidLimit = errors.New("limit must be positive")
