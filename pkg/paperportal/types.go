package paperportal

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the domain type for submission review states.
type SubmissionStatus string

// Submission status constants (typed).
const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// Valid reports whether s is one of the known review states.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ReviewDecision is an admin's verdict on a pending or previously reviewed
// submission.
type ReviewDecision string

// Review decision constants (typed).
const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// Operation identifies what a caller wants to do with a submission. The
// access gate distinguishes these because public-fetch has its own rule; the
// preview/download split exists for the UI affordance, not for access.
type Operation string

// Operation constants (typed).
const (
	OpViewMetadata  Operation = "view-metadata"
	OpPreviewBytes  Operation = "preview-bytes"
	OpDownloadBytes Operation = "download-bytes"
	OpPublicFetch   Operation = "public-fetch"
)

// Caller is the already-verified identity attached to a request. A nil
// *Caller means the request is anonymous.
type Caller struct {
	ID      uuid.UUID `json:"id"`
	IsAdmin bool      `json:"is_admin"`
}

// Submission ties stored bytes, an owner, and a review status together.
//
// ContentKey references bytes in the primary backend; LegacyPath references a
// pre-migration on-disk artifact and is only ever read, never written. At
// least one of the two must resolve or the record is inconsistent.
type Submission struct {
	ID      uuid.UUID  `json:"id"`
	OwnerID *uuid.UUID `json:"owner_id,omitempty"` // nil after owner account removal

	Title        string `json:"title,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	Year         int    `json:"year,omitempty"`

	ContentKey       string `json:"-"`
	LegacyPath       string `json:"-"`
	OriginalFilename string `json:"original_filename"`
	DeclaredSize     int64  `json:"declared_size"`

	Status       SubmissionStatus `json:"status"`
	ReviewerID   *uuid.UUID       `json:"reviewer_id,omitempty"`
	ReviewedAt   *time.Time       `json:"reviewed_at,omitempty"`
	ReviewNote   string           `json:"review_note,omitempty"`
	PublicLinkID string           `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasContent reports whether the record carries any byte reference at all.
func (s *Submission) HasContent() bool {
	return s.ContentKey != "" || s.LegacyPath != ""
}

// SubmissionMetadata is the safe, derived view of a submission offered to
// callers that passed the gate. It never exposes storage references.
type SubmissionMetadata struct {
	ID           uuid.UUID        `json:"id"`
	Filename     string           `json:"filename"`
	MimeType     string           `json:"mime_type"`
	CanPreview   bool             `json:"can_preview"`
	Status       SubmissionStatus `json:"status"`
	Title        string           `json:"title,omitempty"`
	DocumentType string           `json:"document_type,omitempty"`
	Year         int              `json:"year,omitempty"`
	DeclaredSize int64            `json:"declared_size"`
	UploadedAt   time.Time        `json:"uploaded_at"`
}

// StatusCounts is the admin dashboard aggregate.
type StatusCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// SubmissionFilter narrows a listing. A nil Status means all statuses the
// caller may see.
type SubmissionFilter struct {
	Status  *SubmissionStatus
	OwnerID *uuid.UUID
}
