package paperportal

import (
	"io"

	"github.com/google/uuid"
)

// Request/Response DTOs

// UploadRequest contains parameters for creating a new submission.
type UploadRequest struct {
	Filename     string
	Title        string
	DocumentType string
	Year         int
	DeclaredSize int64
	Body         io.Reader
}

// ReplaceContentRequest rewrites a pending submission's bytes and filename in
// one operation. Partial byte patching is never supported.
type ReplaceContentRequest struct {
	SubmissionID uuid.UUID
	Filename     string
	DeclaredSize int64
	Body         io.Reader
}

// UpdateMetadataRequest reclassifies a submission's descriptive fields
// without touching its status or bytes.
type UpdateMetadataRequest struct {
	SubmissionID uuid.UUID
	Title        string
	DocumentType string
	Year         int
}

// ReviewRequest contains an admin's verdict on a submission.
type ReviewRequest struct {
	SubmissionID uuid.UUID
	Decision     ReviewDecision
	Reason       string
}

// FetchResult carries a resolved byte stream plus the serving metadata
// derived from the original filename. Callers own closing Body.
type FetchResult struct {
	Body       io.ReadCloser
	Filename   string
	MimeType   string
	CanPreview bool
	Size       int64
}
