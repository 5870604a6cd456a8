package paperportal

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// BlobStore is a single byte backend. The content store composes two of
// these: a primary (written and read) and a legacy one (read fallback only).
type BlobStore interface {
	// Upload stores the bytes read from reader under objectKey.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download returns the bytes stored under objectKey, or ErrBytesNotFound.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the bytes stored under objectKey, or ErrBytesNotFound.
	Delete(ctx context.Context, objectKey string) error
}

// Repository persists submission records.
//
// UpdateStatus is the conditional-update primitive backing the review state
// machine: it applies the review fields only if the record's status still
// equals expected, and returns ErrStaleStatus otherwise. Every other status
// write path is forbidden by construction.
type Repository interface {
	CreateSubmission(ctx context.Context, sub *Submission) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error)
	GetSubmissionByPublicLink(ctx context.Context, token string) (*Submission, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*Submission, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)

	// UpdateSubmission rewrites descriptive and content fields. It must never
	// change Status, ReviewerID, ReviewedAt or ReviewNote.
	UpdateSubmission(ctx context.Context, sub *Submission) error

	// UpdateStatus atomically applies a review outcome if the stored status
	// still equals expected.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected SubmissionStatus, outcome ReviewOutcome) error

	// SetPublicLink stores token on the submission; it fails if the token is
	// already used by another record.
	SetPublicLink(ctx context.Context, id uuid.UUID, token string) error
	ClearPublicLink(ctx context.Context, id uuid.UUID) error

	DeleteSubmission(ctx context.Context, id uuid.UUID) error
}
