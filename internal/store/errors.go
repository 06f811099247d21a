// Package store provides persistence and identity resolution for
// fragments, simplifications and their object links.
package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// StorageError wraps a persistence-layer failure (constraint violation,
// connection loss). Callers decide whether to retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err as a StorageError for operation op.
func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
