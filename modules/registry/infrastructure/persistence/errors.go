package persistence

import "errors"

// ErrNotFound is wrapped by every per-entity not-found sentinel in this
// package, so callers can match them all with a single errors.Is check.
var ErrNotFound = errors.New("not found")
