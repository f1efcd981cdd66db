// Package apierror is the portable error taxonomy of the data-access layer
// and the translator from engine failures into it.
package apierror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidUsage signals a programming error; the request was never sent.
	ErrInvalidUsage = errors.New("invalid usage")
	// ErrOptimisticLockingFailure signals a concurrent modification. Re-read
	// and retry.
	ErrOptimisticLockingFailure = errors.New("optimistic locking failure")
	// ErrIndexNotFound signals a missing index.
	ErrIndexNotFound = errors.New("index not found")
	// ErrDataIntegrityViolation signals a request the engine rejected as
	// invalid.
	ErrDataIntegrityViolation = errors.New("data integrity violation")
	// ErrResourceFailure signals a connection level failure that may be
	// transient.
	ErrResourceFailure = errors.New("resource failure")
	// ErrUncategorized signals any other engine error.
	ErrUncategorized = errors.New("uncategorized engine error")
	// ErrBulkFailure signals that at least one bulk item failed.
	ErrBulkFailure = errors.New("bulk operation failed")
)

// InvalidUsageError wraps ErrInvalidUsage with a description.
type InvalidUsageError struct {
	Msg string
}

func (e *InvalidUsageError) Error() string { return ErrInvalidUsage.Error() + ": " + e.Msg }

func (e *InvalidUsageError) Unwrap() error { return ErrInvalidUsage }

// InvalidUsage returns an *InvalidUsageError.
func InvalidUsage(format string, args ...any) error {
	return &InvalidUsageError{Msg: fmt.Sprintf(format, args...)}
}

// OptimisticLockingError wraps ErrOptimisticLockingFailure and the engine
// error.
type OptimisticLockingError struct {
	Cause error
}

func (e *OptimisticLockingError) Error() string {
	return fmt.Sprintf("%s: %v", ErrOptimisticLockingFailure, e.Cause)
}

func (e *OptimisticLockingError) Unwrap() []error {
	return []error{ErrOptimisticLockingFailure, e.Cause}
}

// IndexNotFoundError wraps ErrIndexNotFound with the missing index.
type IndexNotFoundError struct {
	Index string
	Cause error
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrIndexNotFound, e.Index)
}

func (e *IndexNotFoundError) Unwrap() []error {
	return []error{ErrIndexNotFound, e.Cause}
}

// DataIntegrityError wraps ErrDataIntegrityViolation.
type DataIntegrityError struct {
	Cause error
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s: %v", ErrDataIntegrityViolation, e.Cause)
}

func (e *DataIntegrityError) Unwrap() []error {
	return []error{ErrDataIntegrityViolation, e.Cause}
}

// ResourceFailureError wraps ErrResourceFailure and the I/O error.
type ResourceFailureError struct {
	Cause error
}

func (e *ResourceFailureError) Error() string {
	return fmt.Sprintf("%s: %v", ErrResourceFailure, e.Cause)
}

func (e *ResourceFailureError) Unwrap() []error {
	return []error{ErrResourceFailure, e.Cause}
}

// UncategorizedError wraps ErrUncategorized with the engine status code.
type UncategorizedError struct {
	Status int
	Cause  error
}

func (e *UncategorizedError) Error() string {
	return fmt.Sprintf("%s (status %d): %v", ErrUncategorized, e.Status, e.Cause)
}

func (e *UncategorizedError) Unwrap() []error {
	return []error{ErrUncategorized, e.Cause}
}

// BulkFailureError carries the failure message of every failed bulk item,
// keyed by item id. Items that succeeded are not reported.
type BulkFailureError struct {
	Failures map[string]string
}

func (e *BulkFailureError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id+": "+e.Failures[id])
	}
	return fmt.Sprintf("%s: %d failed item(s) [%s]", ErrBulkFailure, len(ids), strings.Join(parts, "; "))
}

func (e *BulkFailureError) Unwrap() error { return ErrBulkFailure }

func isPortable(err error) bool {
	for _, s := range []error{
		ErrInvalidUsage, ErrOptimisticLockingFailure, ErrIndexNotFound, ErrDataIntegrityViolation,
		ErrResourceFailure, ErrUncategorized, ErrBulkFailure,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
