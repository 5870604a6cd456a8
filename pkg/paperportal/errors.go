package paperportal

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrSubmissionNotFound indicates no submission exists for the given id
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrBytesNotFound indicates neither backend produced bytes for a key/path
	ErrBytesNotFound = errors.New("stored bytes not found")

	// ErrLinkNotFound indicates a public link token resolved to nothing
	ErrLinkNotFound = errors.New("public link not found")

	// ErrForbidden indicates the access gate denied the operation
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidArgument indicates a malformed or missing required input
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPayloadTooLarge indicates an upload above the configured ceiling
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrStorageInconsistent indicates a record whose byte references resolve
	// in no backend. Surfaced to callers as not-found; kept distinct
	// internally for operational alerting.
	ErrStorageInconsistent = errors.New("storage inconsistent: record references no resolvable bytes")

	// ErrStaleStatus indicates a conditional status update lost a race with a
	// concurrent transition.
	ErrStaleStatus = errors.New("submission status changed concurrently")

	// ErrLinkExists indicates a public link was already issued for the
	// submission.
	ErrLinkExists = errors.New("public link already issued")
)

// SubmissionError wraps an error from a submission-level operation.
type SubmissionError struct {
	SubmissionID uuid.UUID
	Op           string
	Err          error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission operation %s failed for %s: %v", e.Op, e.SubmissionID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// StorageError wraps an error from a storage backend operation.
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
