package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, use with errors.Is().
var (
	ErrInvalidName   = errors.New("invalid name")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
	ErrCycle         = errors.New("cannot move a folder into itself")
	ErrStorage       = errors.New("storage error")
	ErrMetadata      = errors.New("metadata extraction failed")
	ErrList          = errors.New("listing failed")
)

type (
	// InvalidNameError is returned before any mutation when a name fails validation.
	InvalidNameError struct {
		Name   string
		Reason string
	}

	// AlreadyExistsError is returned when a sibling with the same name exists.
	AlreadyExistsError struct {
		Path string
	}

	// NotFoundError is returned when a source path or resolution target is missing.
	NotFoundError struct {
		Path string
	}

	// CycleError is returned when a folder would be moved into itself or a descendant.
	CycleError struct {
		Source      string
		Destination string
	}

	// StorageError wraps a driver failure during a mutation.
	StorageError struct {
		Op   string
		Path string
		Err  error
	}

	// MetadataExtractionError is always recovered locally: the entry is
	// returned without a duration.
	MetadataExtractionError struct {
		Path string
		Err  error
	}

	// ListError is returned when a directory cannot be listed at all.
	ListError struct {
		Path string
		Err  error
	}
)

func (e *InvalidNameError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid name %q", e.Name)
	}
	return fmt.Sprintf("invalid name %q: %s", e.Name, e.Reason)
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%q already exists", e.Path)
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%q not found", e.Path)
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cannot move %q into %q: destination is inside the source", e.Source, e.Destination)
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *MetadataExtractionError) Error() string {
	return fmt.Sprintf("metadata for %q: %v", e.Path, e.Err)
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list %q: %v", e.Path, e.Err)
}

func (e *InvalidNameError) Is(target error) bool        { return target == ErrInvalidName }
func (e *AlreadyExistsError) Is(target error) bool      { return target == ErrAlreadyExists }
func (e *NotFoundError) Is(target error) bool           { return target == ErrNotFound }
func (e *CycleError) Is(target error) bool              { return target == ErrCycle }
func (e *StorageError) Is(target error) bool            { return target == ErrStorage }
func (e *MetadataExtractionError) Is(target error) bool { return target == ErrMetadata }
func (e *ListError) Is(target error) bool               { return target == ErrList }

func (e *StorageError) Unwrap() error            { return e.Err }
func (e *MetadataExtractionError) Unwrap() error { return e.Err }
func (e *ListError) Unwrap() error               { return e.Err }

// IsRecoverable reports whether err belongs to the taxonomy. All taxonomy
// errors are recoverable at the UI boundary: show a message, allow retry.
func IsRecoverable(err error) bool {
	for _, target := range []error{ErrInvalidName, ErrAlreadyExists, ErrNotFound, ErrCycle, ErrStorage, ErrMetadata, ErrList} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// UserMessage renders err for display.
func UserMessage(err error) string {
	var (
		invalid *InvalidNameError
		exists  *AlreadyExistsError
		missing *NotFoundError
		cycle   *CycleError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		if invalid.Reason != "" {
			return "Invalid name: " + invalid.Reason
		}
		return "Invalid name"
	case errors.As(err, &exists):
		return fmt.Sprintf("An item named %q already exists here", lastSegment(exists.Path))
	case errors.As(err, &missing):
		return fmt.Sprintf("%q could not be found", lastSegment(missing.Path))
	case errors.As(err, &cycle):
		return "A folder cannot be moved into itself"
	case errors.Is(err, ErrList):
		return "Could not load this folder. Tap to retry."
	default:
		return "Something went wrong. Please try again."
	}
}

func lastSegment(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

// FailedItem is one failure inside a batch operation.
type FailedItem struct {
	Name string
	Err  error
}

// BatchResult aggregates a batch move or a recursive delete.
type BatchResult struct {
	SuccessCount int
	Failed       []FailedItem
}

// FailedNames lists the names of the failed items in processing order.
func (r BatchResult) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.Name)
	}
	return names
}

// Err summarizes the failures, or returns nil when every item succeeded.
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.Name, f.Err))
	}
	return errors.Join(errs...)
}
