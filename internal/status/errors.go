package status

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStatus is returned when a requested status is not part of
	// the entity's enumeration.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrPersistence marks every failure raised by the storage boundary.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotFound is returned when the entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when the stored row changed between read and write.
	ErrConflict = errors.New("concurrent status modification")

	// ErrCorruptHistory is returned when a transition log breaks its invariants.
	ErrCorruptHistory = errors.New("corrupt status history")
)

// InvalidStatusError describes a rejected status value.
type InvalidStatusError struct {
	Entity string
	Status string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid %s status %q", e.Entity, e.Status)
}

func (e *InvalidStatusError) Unwrap() error {
	return ErrInvalidStatus
}

// PersistenceError wraps a failure of the storage boundary.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// Persistence wraps err as a PersistenceError for op. A nil err stays nil and
// an error that already is a PersistenceError is returned unchanged.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}

	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}

	return &PersistenceError{Op: op, Err: err}
}

// HistoryError describes which invariant a transition log violates.
type HistoryError struct {
	Index  int
	Reason string
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("corrupt status history at entry %d: %s", e.Index, e.Reason)
}

func (e *HistoryError) Unwrap() error {
	return ErrCorruptHistory
}

// IsRetryable reports whether the operation may succeed when repeated.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidStatus)
}

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
