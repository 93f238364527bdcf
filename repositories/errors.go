package repositories

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when the pair already holds an active record.
	ErrDuplicate = errors.New("duplicate record for pair")
	// ErrStatusConflict is returned when a conditional status change finds another status.
	ErrStatusConflict = errors.New("status changed concurrently")
)
