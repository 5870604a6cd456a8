package paperportal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// reviewRetries bounds the re-read loop when a conditional status update
// loses a race with a concurrent reviewer.
const reviewRetries = 3

// issueRetries bounds token re-minting on a (vanishingly unlikely) unique
// collision.
const issueRetries = 3

// service implements the Service interface
type service struct {
	repository Repository
	store      *ContentStore
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the submission repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithContentStore sets the dual-backend content store for the service
func WithContentStore(store *ContentStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Submission operations

func (s *service) Upload(ctx context.Context, caller *Caller, req UploadRequest) (*Submission, error) {
	if caller == nil {
		return nil, ErrForbidden
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidArgument)
	}
	if !AllowedUpload(filename) {
		return nil, fmt.Errorf("%w: file type not accepted for upload", ErrInvalidArgument)
	}
	if req.Body == nil {
		return nil, fmt.Errorf("%w: upload body is required", ErrInvalidArgument)
	}

	// Bytes first: an oversized payload must fail before a record exists.
	key, size, err := s.store.Put(ctx, caller.ID.String(), req.Body)
	if err != nil {
		return nil, err
	}

	// DeclaredSize is display/sanity data, not a security control.
	if req.DeclaredSize > 0 && req.DeclaredSize != size {
		s.logger.Warn("declared size mismatch",
			"declared", req.DeclaredSize, "stored", size, "filename", filename)
	}

	now := time.Now().UTC()
	ownerID := caller.ID
	sub := &Submission{
		ID:               uuid.New(),
		OwnerID:          &ownerID,
		Title:            strings.TrimSpace(req.Title),
		DocumentType:     req.DocumentType,
		Year:             req.Year,
		ContentKey:       key,
		OriginalFilename: filename,
		DeclaredSize:     size,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repository.CreateSubmission(ctx, sub); err != nil {
		// Reclaim the bytes so a failed create leaves nothing behind.
		if derr := s.store.Delete(ctx, key, ""); derr != nil {
			s.logger.Error("orphaned bytes after failed create", "content_key", key, "error", derr)
		}
		return nil, &SubmissionError{SubmissionID: sub.ID, Op: "create", Err: err}
	}

	s.logger.Info("submission uploaded",
		"submission_id", sub.ID, "owner_id", ownerID, "size", size)
	return sub, nil
}

func (s *service) GetMetadata(ctx context.Context, caller *Caller, id uuid.UUID) (*SubmissionMetadata, error) {
	sub, err := s.repository.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanAccess(caller, sub, OpViewMetadata) {
		return nil, ErrForbidden
	}
	return metadataFor(sub), nil
}

func (s *service) FetchBytes(ctx context.Context, caller *Caller, id uuid.UUID, op Operation) (*FetchResult, error) {
	switch op {
	case OpPreviewBytes, OpDownloadBytes:
	default:
		return nil, fmt.Errorf("%w: operation %q cannot fetch bytes", ErrInvalidArgument, op)
	}

	sub, err := s.repository.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanAccess(caller, sub, op) {
		return nil, ErrForbidden
	}
	return s.openBytes(ctx, sub)
}

func (s *service) ListSubmissions(ctx context.Context, caller *Caller, filter SubmissionFilter) ([]*SubmissionMetadata, error) {
	subs, err := s.repository.ListSubmissions(ctx, filter)
	if err != nil {
		return nil, err
	}

	// The gate decides per record, so owners keep their pending/rejected
	// entries and everyone else sees approved only.
	out := make([]*SubmissionMetadata, 0, len(subs))
	for _, sub := range subs {
		if CanAccess(caller, sub, OpViewMetadata) {
			out = append(out, metadataFor(sub))
		}
	}
	return out, nil
}

func (s *service) ReplaceContent(ctx context.Context, caller *Caller, req ReplaceContentRequest) (*Submission, error) {
	if caller == nil {
		return nil, ErrForbidden
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" || req.Body == nil {
		return nil, fmt.Errorf("%w: filename and body are required", ErrInvalidArgument)
	}
	if !AllowedUpload(filename) {
		return nil, fmt.Errorf("%w: file type not accepted for upload", ErrInvalidArgument)
	}

	sub, err := s.repository.GetSubmission(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}
	isOwner := sub.OwnerID != nil && *sub.OwnerID == caller.ID
	if !caller.IsAdmin && !isOwner {
		return nil, ErrForbidden
	}
	// Edit-before-review only: once a verdict exists the bytes are frozen.
	if sub.Status != StatusPending {
		return nil, fmt.Errorf("%w: content can only be replaced while pending", ErrForbidden)
	}

	key, size, err := s.store.Put(ctx, caller.ID.String(), req.Body)
	if err != nil {
		return nil, err
	}

	oldKey, oldPath := sub.ContentKey, sub.LegacyPath
	sub.ContentKey = key
	sub.LegacyPath = ""
	sub.OriginalFilename = filename
	sub.DeclaredSize = size
	sub.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateSubmission(ctx, sub); err != nil {
		if derr := s.store.Delete(ctx, key, ""); derr != nil {
			s.logger.Error("orphaned bytes after failed replace", "content_key", key, "error", derr)
		}
		return nil, &SubmissionError{SubmissionID: sub.ID, Op: "replace", Err: err}
	}

	// The record now points at the new bytes; the old ones can go.
	if err := s.store.Delete(ctx, oldKey, oldPath); err != nil {
		s.logger.Error("failed to reclaim replaced bytes",
			"submission_id", sub.ID, "content_key", oldKey, "error", err)
	}
	return sub, nil
}

func (s *service) UpdateMetadata(ctx context.Context, caller *Caller, req UpdateMetadataRequest) (*Submission, error) {
	if caller == nil || !caller.IsAdmin {
		return nil, ErrForbidden
	}
	sub, err := s.repository.GetSubmission(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}

	sub.Title = strings.TrimSpace(req.Title)
	sub.DocumentType = req.DocumentType
	sub.Year = req.Year
	sub.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateSubmission(ctx, sub); err != nil {
		return nil, &SubmissionError{SubmissionID: sub.ID, Op: "update-metadata", Err: err}
	}
	return sub, nil
}

func (s *service) DeleteSubmission(ctx context.Context, caller *Caller, id uuid.UUID) error {
	if caller == nil || !caller.IsAdmin {
		return ErrForbidden
	}
	sub, err := s.repository.GetSubmission(ctx, id)
	if err != nil {
		return err
	}

	// Bytes first. A failed primary delete blocks record deletion so space is
	// never silently orphaned; the record staying behind is the recoverable
	// direction.
	if err := s.store.Delete(ctx, sub.ContentKey, sub.LegacyPath); err != nil {
		return err
	}
	if err := s.repository.DeleteSubmission(ctx, id); err != nil {
		return &SubmissionError{SubmissionID: id, Op: "delete", Err: err}
	}

	s.logger.Info("submission deleted", "submission_id", id, "deleted_by", caller.ID)
	return nil
}

// Review lifecycle

func (s *service) Review(ctx context.Context, caller *Caller, req ReviewRequest) (SubmissionStatus, error) {
	if caller == nil || !caller.IsAdmin {
		return "", ErrForbidden
	}

	for attempt := 0; attempt < reviewRetries; attempt++ {
		sub, err := s.repository.GetSubmission(ctx, req.SubmissionID)
		if err != nil {
			return "", err
		}

		outcome, noop, err := PlanReview(sub.Status, req.Decision, caller.ID, req.Reason, time.Now())
		if err != nil {
			return "", err
		}
		if noop {
			// Retried verdicts (a double-click) succeed without touching
			// the record.
			return sub.Status, nil
		}

		err = s.repository.UpdateStatus(ctx, sub.ID, sub.Status, outcome)
		if err == nil {
			s.logger.Info("submission reviewed",
				"submission_id", sub.ID, "from", sub.Status, "to", outcome.Status,
				"reviewer_id", caller.ID)
			return outcome.Status, nil
		}
		if !errors.Is(err, ErrStaleStatus) {
			return "", &SubmissionError{SubmissionID: sub.ID, Op: "review", Err: err}
		}
		// Lost the race: re-read so this reviewer acts on the
		// post-transition status.
	}
	return "", &SubmissionError{SubmissionID: req.SubmissionID, Op: "review", Err: ErrStaleStatus}
}

// Public links

func (s *service) IssuePublicLink(ctx context.Context, caller *Caller, id uuid.UUID) (string, error) {
	if caller == nil {
		return "", ErrForbidden
	}
	sub, err := s.repository.GetSubmission(ctx, id)
	if err != nil {
		return "", err
	}
	isOwner := sub.OwnerID != nil && *sub.OwnerID == caller.ID
	if !caller.IsAdmin && !isOwner {
		return "", ErrForbidden
	}

	// Issuance is one-shot: once minted the token stays stable for the life
	// of the record.
	if sub.PublicLinkID != "" {
		return sub.PublicLinkID, nil
	}

	for attempt := 0; attempt < issueRetries; attempt++ {
		token, err := NewPublicLinkToken()
		if err != nil {
			return "", err
		}
		err = s.repository.SetPublicLink(ctx, id, token)
		if err == nil {
			s.logger.Info("public link issued", "submission_id", id, "issued_by", caller.ID)
			return token, nil
		}
		if !errors.Is(err, ErrLinkExists) {
			return "", &SubmissionError{SubmissionID: id, Op: "issue-link", Err: err}
		}
	}
	return "", &SubmissionError{SubmissionID: id, Op: "issue-link", Err: ErrLinkExists}
}

func (s *service) RevokePublicLink(ctx context.Context, caller *Caller, id uuid.UUID) error {
	if caller == nil {
		return ErrForbidden
	}
	sub, err := s.repository.GetSubmission(ctx, id)
	if err != nil {
		return err
	}
	isOwner := sub.OwnerID != nil && *sub.OwnerID == caller.ID
	if !caller.IsAdmin && !isOwner {
		return ErrForbidden
	}

	if err := s.repository.ClearPublicLink(ctx, id); err != nil {
		return &SubmissionError{SubmissionID: id, Op: "revoke-link", Err: err}
	}
	s.logger.Info("public link revoked", "submission_id", id, "revoked_by", caller.ID)
	return nil
}

func (s *service) FetchPublic(ctx context.Context, token string) (*FetchResult, error) {
	sub, err := s.resolvePublic(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.openBytes(ctx, sub)
}

func (s *service) GetPublicMetadata(ctx context.Context, token string) (*SubmissionMetadata, error) {
	sub, err := s.resolvePublic(ctx, token)
	if err != nil {
		return nil, err
	}
	return metadataFor(sub), nil
}

// resolvePublic resolves a token and re-checks approval at fetch time: a
// submission can flip away from approved after its link was shared, and the
// stale token must then behave exactly like an unknown one.
func (s *service) resolvePublic(ctx context.Context, token string) (*Submission, error) {
	if !ValidPublicLinkToken(token) {
		return nil, ErrLinkNotFound
	}
	sub, err := s.repository.GetSubmissionByPublicLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if !CanAccess(nil, sub, OpPublicFetch) {
		return nil, ErrLinkNotFound
	}
	return sub, nil
}

// Admin reporting

func (s *service) Stats(ctx context.Context, caller *Caller) (StatusCounts, error) {
	if caller == nil || !caller.IsAdmin {
		return StatusCounts{}, ErrForbidden
	}
	return s.repository.CountByStatus(ctx)
}

// Helpers

// openBytes resolves a gated submission's byte stream. Storage inconsistency
// is logged loudly for alerting but surfaced as plain not-found so internal
// backend state never leaks to callers.
func (s *service) openBytes(ctx context.Context, sub *Submission) (*FetchResult, error) {
	rc, err := s.store.Open(ctx, sub.ContentKey, sub.LegacyPath)
	if err != nil {
		if errors.Is(err, ErrStorageInconsistent) {
			s.logger.Error("storage inconsistent",
				"submission_id", sub.ID,
				"content_key", sub.ContentKey,
				"legacy_path", sub.LegacyPath,
				"error", err)
			return nil, ErrBytesNotFound
		}
		return nil, err
	}
	return &FetchResult{
		Body:       rc,
		Filename:   sub.OriginalFilename,
		MimeType:   MimeType(sub.OriginalFilename),
		CanPreview: CanPreview(sub.OriginalFilename),
		Size:       sub.DeclaredSize,
	}, nil
}

func metadataFor(sub *Submission) *SubmissionMetadata {
	return &SubmissionMetadata{
		ID:           sub.ID,
		Filename:     sub.OriginalFilename,
		MimeType:     MimeType(sub.OriginalFilename),
		CanPreview:   CanPreview(sub.OriginalFilename),
		Status:       sub.Status,
		Title:        sub.Title,
		DocumentType: sub.DocumentType,
		Year:         sub.Year,
		DeclaredSize: sub.DeclaredSize,
		UploadedAt:   sub.CreatedAt,
	}
}
