package storage

import "errors"

// Sentinel errors shared by every snapshot store implementation.
var (
	// ErrNotFound is returned when a snapshot does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicateKey is returned when a snapshot ID is reused.
	// Snapshots are append-only.
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrInvalidInput is returned for a snapshot that fails validation.
	ErrInvalidInput = errors.New("storage: invalid input")
)
