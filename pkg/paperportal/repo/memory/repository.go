package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/studyarchive/paper-portal/pkg/paperportal"
)

// Repository implements paperportal.Repository using in-memory storage
type Repository struct {
	mu          sync.RWMutex
	submissions map[uuid.UUID]*paperportal.Submission
	byLink      map[string]uuid.UUID // public link token -> submission id
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		submissions: make(map[uuid.UUID]*paperportal.Submission),
		byLink:      make(map[string]uuid.UUID),
	}
}

func (r *Repository) CreateSubmission(ctx context.Context, sub *paperportal.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	subCopy := *sub
	r.submissions[sub.ID] = &subCopy
	return nil
}

func (r *Repository) GetSubmission(ctx context.Context, id uuid.UUID) (*paperportal.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, exists := r.submissions[id]
	if !exists {
		return nil, paperportal.ErrSubmissionNotFound
	}
	subCopy := *sub
	return &subCopy, nil
}

func (r *Repository) GetSubmissionByPublicLink(ctx context.Context, token string) (*paperportal.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byLink[token]
	if !exists {
		return nil, paperportal.ErrLinkNotFound
	}
	sub, exists := r.submissions[id]
	if !exists {
		return nil, paperportal.ErrLinkNotFound
	}
	subCopy := *sub
	return &subCopy, nil
}

func (r *Repository) ListSubmissions(ctx context.Context, filter paperportal.SubmissionFilter) ([]*paperportal.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*paperportal.Submission
	for _, sub := range r.submissions {
		if filter.Status != nil && sub.Status != *filter.Status {
			continue
		}
		if filter.OwnerID != nil && (sub.OwnerID == nil || *sub.OwnerID != *filter.OwnerID) {
			continue
		}
		subCopy := *sub
		out = append(out, &subCopy)
	}

	// Newest first, stable across calls.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repository) CountByStatus(ctx context.Context) (paperportal.StatusCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var counts paperportal.StatusCounts
	for _, sub := range r.submissions {
		counts.Total++
		switch sub.Status {
		case paperportal.StatusPending:
			counts.Pending++
		case paperportal.StatusApproved:
			counts.Approved++
		case paperportal.StatusRejected:
			counts.Rejected++
		}
	}
	return counts, nil
}

func (r *Repository) UpdateSubmission(ctx context.Context, sub *paperportal.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.submissions[sub.ID]
	if !exists {
		return paperportal.ErrSubmissionNotFound
	}

	// Status and review fields only change through UpdateStatus.
	subCopy := *sub
	subCopy.Status = existing.Status
	subCopy.ReviewerID = existing.ReviewerID
	subCopy.ReviewedAt = existing.ReviewedAt
	subCopy.ReviewNote = existing.ReviewNote
	subCopy.PublicLinkID = existing.PublicLinkID
	r.submissions[sub.ID] = &subCopy
	return nil
}

// UpdateStatus applies a review outcome with compare-and-set semantics: the
// stored status must still equal expected or ErrStaleStatus is returned.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, expected paperportal.SubmissionStatus, outcome paperportal.ReviewOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.submissions[id]
	if !exists {
		return paperportal.ErrSubmissionNotFound
	}
	if sub.Status != expected {
		return paperportal.ErrStaleStatus
	}

	reviewerID := outcome.ReviewerID
	reviewedAt := outcome.ReviewedAt
	sub.Status = outcome.Status
	sub.ReviewerID = &reviewerID
	sub.ReviewedAt = &reviewedAt
	sub.ReviewNote = outcome.ReviewNote
	sub.UpdatedAt = outcome.ReviewedAt
	return nil
}

func (r *Repository) SetPublicLink(ctx context.Context, id uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.submissions[id]
	if !exists {
		return paperportal.ErrSubmissionNotFound
	}
	if other, taken := r.byLink[token]; taken && other != id {
		return paperportal.ErrLinkExists
	}

	if sub.PublicLinkID != "" {
		delete(r.byLink, sub.PublicLinkID)
	}
	sub.PublicLinkID = token
	r.byLink[token] = id
	return nil
}

func (r *Repository) ClearPublicLink(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.submissions[id]
	if !exists {
		return paperportal.ErrSubmissionNotFound
	}
	if sub.PublicLinkID != "" {
		delete(r.byLink, sub.PublicLinkID)
		sub.PublicLinkID = ""
	}
	return nil
}

func (r *Repository) DeleteSubmission(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, exists := r.submissions[id]
	if !exists {
		return paperportal.ErrSubmissionNotFound
	}
	if sub.PublicLinkID != "" {
		delete(r.byLink, sub.PublicLinkID)
	}
	delete(r.submissions, id)
	return nil
}
