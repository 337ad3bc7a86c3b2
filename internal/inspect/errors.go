package inspect

import (
	"errors"
	"fmt"
)

// ErrBookingNotFound reports a booking-scoped inspection request against a
// booking id that does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// AnalysisError marks a failure to obtain the model's assessment: the provider
// call itself, or reading the staged images it needs.
type AnalysisError struct {
	Err error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("damage analysis failed: %v", e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// StorageError marks a failure moving images to or reading them from
// permanent storage.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("image storage failed: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PersistenceError marks a failed database write for the inspection record.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist inspection: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
