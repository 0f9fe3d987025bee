package store

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

// StorageError is returned for every failure that originates in the database:
// unreachable store, rejected write, constraint violation, timeout.
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

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
