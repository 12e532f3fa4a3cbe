// Package sentinel holds the storage-level facts every repository reports
// the same way, whatever its backend. Services translate them into coded
// domain errors; input validation never uses them.
package sentinel

import "errors"

var (
	// ErrNotFound: no row or record matches.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a uniqueness rule rejected the write, or a lock is held.
	ErrConflict = errors.New("conflict")
)
