package paperportal

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReviewOutcome is the full set of fields a successful review transition
// writes. It is produced by PlanReview and applied by the repository's
// conditional update, so the status fields have exactly one write path.
type ReviewOutcome struct {
	Status     SubmissionStatus
	ReviewerID uuid.UUID
	ReviewedAt time.Time
	ReviewNote string
}

// PlanReview validates a review action against the current submission state
// and returns the outcome to apply.
//
// Transition table:
//
//	pending  -> approve -> approved (note cleared)
//	pending  -> reject  -> rejected (note required)
//	approved -> reject  -> rejected (reviewer fields overwritten)
//	rejected -> approve -> approved (note cleared)
//
// A self-transition (approving an approved submission, rejecting a rejected
// one) yields noop=true with no outcome; retried requests must succeed
// without erroring. There is no transition back to pending.
func PlanReview(current SubmissionStatus, decision ReviewDecision, reviewer uuid.UUID, reason string, now time.Time) (outcome ReviewOutcome, noop bool, err error) {
	var target SubmissionStatus
	switch decision {
	case DecisionApprove:
		target = StatusApproved
	case DecisionReject:
		target = StatusRejected
	default:
		return ReviewOutcome{}, false, fmt.Errorf("%w: unknown review decision %q", ErrInvalidArgument, decision)
	}

	if !current.Valid() {
		return ReviewOutcome{}, false, fmt.Errorf("%w: unknown submission status %q", ErrInvalidArgument, current)
	}

	if current == target {
		return ReviewOutcome{}, true, nil
	}

	if target == StatusRejected && strings.TrimSpace(reason) == "" {
		return ReviewOutcome{}, false, fmt.Errorf("%w: rejection requires a reason", ErrInvalidArgument)
	}

	outcome = ReviewOutcome{
		Status:     target,
		ReviewerID: reviewer,
		ReviewedAt: now.UTC(),
	}
	if target == StatusRejected {
		outcome.ReviewNote = strings.TrimSpace(reason)
	}
	return outcome, false, nil
}
