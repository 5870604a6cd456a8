package paperportal

import (
	"context"

	"github.com/google/uuid"
)

// Service is the main interface of the paper-portal core: upload, gated
// metadata/byte access, the review lifecycle, and public link issuance.
type Service interface {
	// Submission operations
	Upload(ctx context.Context, caller *Caller, req UploadRequest) (*Submission, error)
	GetMetadata(ctx context.Context, caller *Caller, id uuid.UUID) (*SubmissionMetadata, error)
	FetchBytes(ctx context.Context, caller *Caller, id uuid.UUID, op Operation) (*FetchResult, error)
	ListSubmissions(ctx context.Context, caller *Caller, filter SubmissionFilter) ([]*SubmissionMetadata, error)
	ReplaceContent(ctx context.Context, caller *Caller, req ReplaceContentRequest) (*Submission, error)
	UpdateMetadata(ctx context.Context, caller *Caller, req UpdateMetadataRequest) (*Submission, error)
	DeleteSubmission(ctx context.Context, caller *Caller, id uuid.UUID) error

	// Review lifecycle
	Review(ctx context.Context, caller *Caller, req ReviewRequest) (SubmissionStatus, error)

	// Public links
	IssuePublicLink(ctx context.Context, caller *Caller, id uuid.UUID) (string, error)
	RevokePublicLink(ctx context.Context, caller *Caller, id uuid.UUID) error
	FetchPublic(ctx context.Context, token string) (*FetchResult, error)
	GetPublicMetadata(ctx context.Context, token string) (*SubmissionMetadata, error)

	// Admin reporting
	Stats(ctx context.Context, caller *Caller) (StatusCounts, error)
}
