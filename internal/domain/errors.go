package domain

import "errors"

var (
	// ErrDuplicateStorageKey is returned when a job is created with a
	// storage key that already exists in the ledger.
	ErrDuplicateStorageKey = errors.New("storage key already exists")

	// ErrNotFound is returned when a ledger row cannot be located.
	ErrNotFound = errors.New("record not found")

	// ErrUploadFailed is returned when an object store upload did not
	// complete, including timeout cancellation.
	ErrUploadFailed = errors.New("upload failed")
)
