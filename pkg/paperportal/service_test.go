package paperportal_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyarchive/paper-portal/pkg/paperportal"
	repomem "github.com/studyarchive/paper-portal/pkg/paperportal/repo/memory"
	memorystorage "github.com/studyarchive/paper-portal/pkg/paperportal/storage/memory"
)

type testEnv struct {
	svc     paperportal.Service
	repo    *repomem.Repository
	primary *memorystorage.Backend
	legacy  *memorystorage.Backend
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	repo := repomem.New()
	primary := memorystorage.New()
	legacy := memorystorage.New()

	store, err := paperportal.NewContentStore(primary,
		paperportal.WithLegacyStore(legacy),
		paperportal.WithMaxUploadBytes(1<<20))
	require.NoError(t, err)

	svc, err := paperportal.New(
		paperportal.WithRepository(repo),
		paperportal.WithContentStore(store),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return &testEnv{svc: svc, repo: repo, primary: primary, legacy: legacy}
}

func mustUpload(t *testing.T, env *testEnv, caller *paperportal.Caller, filename, body string) *paperportal.Submission {
	t.Helper()
	sub, err := env.svc.Upload(context.Background(), caller, paperportal.UploadRequest{
		Filename: filename,
		Title:    "Test upload",
		Body:     strings.NewReader(body),
	})
	require.NoError(t, err)
	return sub
}

func readAll(t *testing.T, result *paperportal.FetchResult) string {
	t.Helper()
	defer result.Body.Close()
	data, err := io.ReadAll(result.Body)
	require.NoError(t, err)
	return string(data)
}

func TestServiceCreation(t *testing.T) {
	repo := repomem.New()
	store, err := paperportal.NewContentStore(memorystorage.New())
	require.NoError(t, err)

	tests := []struct {
		name        string
		options     []paperportal.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []paperportal.Option{},
			expectError: true,
		},
		{
			name: "missing content store should fail",
			options: []paperportal.Option{
				paperportal.WithRepository(repo),
			},
			expectError: true,
		},
		{
			name: "repository and content store should succeed",
			options: []paperportal.Option{
				paperportal.WithRepository(repo),
				paperportal.WithContentStore(store),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := paperportal.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestUploadStartsPending(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}
	other := &paperportal.Caller{ID: uuid.New()}

	sub := mustUpload(t, env, owner, "exam.pdf", "pdf bytes")
	assert.Equal(t, paperportal.StatusPending, sub.Status)
	require.NotNil(t, sub.OwnerID)
	assert.Equal(t, owner.ID, *sub.OwnerID)

	// Owner can fetch immediately; nobody else can.
	result, err := env.svc.FetchBytes(ctx, owner, sub.ID, paperportal.OpDownloadBytes)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", readAll(t, result))

	_, err = env.svc.FetchBytes(ctx, other, sub.ID, paperportal.OpDownloadBytes)
	assert.ErrorIs(t, err, paperportal.ErrForbidden)

	_, err = env.svc.FetchBytes(ctx, nil, sub.ID, paperportal.OpDownloadBytes)
	assert.ErrorIs(t, err, paperportal.ErrForbidden)
}

func TestUploadValidation(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}

	_, err := env.svc.Upload(ctx, nil, paperportal.UploadRequest{
		Filename: "exam.pdf", Body: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, paperportal.ErrForbidden)

	_, err = env.svc.Upload(ctx, owner, paperportal.UploadRequest{
		Filename: "", Body: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, paperportal.ErrInvalidArgument)

	_, err = env.svc.Upload(ctx, owner, paperportal.UploadRequest{
		Filename: "malware.exe", Body: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, paperportal.ErrInvalidArgument)
}

func TestUploadOverCeilingLeavesNothing(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}

	oversized := strings.Repeat("x", (1<<20)+1)
	_, err := env.svc.Upload(ctx, owner, paperportal.UploadRequest{
		Filename: "big.pdf",
		Body:     strings.NewReader(oversized),
	})
	assert.ErrorIs(t, err, paperportal.ErrPayloadTooLarge)

	// No partial record, no partial bytes.
	metas, err := env.svc.ListSubmissions(ctx, owner, paperportal.SubmissionFilter{})
	require.NoError(t, err)
	assert.Empty(t, metas)
	assert.Equal(t, 0, env.primary.Len())
}

func TestReviewFlow(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}
	admin := &paperportal.Caller{ID: uuid.New(), IsAdmin: true}
	other := &paperportal.Caller{ID: uuid.New()}

	sub := mustUpload(t, env, owner, "exam.pdf", "pdf bytes")

	t.Run("non-admin cannot review", func(t *testing.T) {
		_, err := env.svc.Review(ctx, owner, paperportal.ReviewRequest{
			SubmissionID: sub.ID, Decision: paperportal.DecisionApprove,
		})
		assert.ErrorIs(t, err, paperportal.ErrForbidden)
	})

	t.Run("reject without reason fails", func(t *testing.T) {
		_, err := env.svc.Review(ctx, admin, paperportal.ReviewRequest{
			SubmissionID: sub.ID, Decision: paperportal.DecisionReject,
		})
		assert.ErrorIs(t, err, paperportal.ErrInvalidArgument)
	})

	t.Run("unknown submission", func(t *testing.T) {
		_, err := env.svc.Review(ctx, admin, paperportal.ReviewRequest{
			SubmissionID: uuid.New(), Decision: paperportal.DecisionApprove,
		})
		assert.ErrorIs(t, err, paperportal.ErrSubmissionNotFound)
	})

	t.Run("approve opens access to any authenticated caller", func(t *testing.T) {
		status, err := env.svc.Review(ctx, admin, paperportal.ReviewRequest{
			SubmissionID: sub.ID, Decision: paperportal.DecisionApprove,
		})
		require.NoError(t, err)
		assert.Equal(t, paperportal.StatusApproved, status)

		result, err := env.svc.FetchBytes(ctx, other, sub.ID, paperportal.OpDownloadBytes)
		require.NoError(t, err)
		assert.Equal(t, "pdf bytes", readAll(t, result))
	})

	t.Run("approve is idempotent", func(t *testing.T) {
		status, err := env.svc.Review(ctx, admin, paperportal.ReviewRequest{
			SubmissionID: sub.ID, Decision: paperportal.DecisionApprove,
		})
		require.NoError(t, err)
		assert.Equal(t, paperportal.StatusApproved, status)
	})

	t.Run("reject closes access again but not for the owner", func(t *testing.T) {
		status, err := env.svc.Review(ctx, admin, paperportal.ReviewRequest{
			SubmissionID: sub.ID, Decision: paperportal.DecisionReject, Reason: "policy",
		})
		require.NoError(t, err)
		assert.Equal(t, paperportal.StatusRejected, status)

		_, err = env.svc.FetchBytes(ctx, other, sub.ID, paperportal.OpDownloadBytes)
		assert.ErrorIs(t, err, paperportal.ErrForbidden)

		_, err = env.svc.FetchBytes(ctx, owner, sub.ID, paperportal.OpDownloadBytes)
		assert.NoError(t, err)
	})
}

func TestReviewScenario(t *testing.T) {
	// The full lifecycle: upload, reject, reverse to approve, share
	// publicly, reject again and watch the link die.
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}
	admin := &paperportal.Caller{ID: uuid.New(), IsAdmin: true}

	sub := mustUpload(t, env, owner, "exam.pdf", "pdf bytes")
	assert.Equal(t, paperportal.StatusPending, sub.Status)

	status, err := env.svc.Review(ctx, admin, paperportal.ReviewRequest{
		SubmissionID: sub.ID, Decision: paperportal.DecisionReject, Reason: "illegible",
	})
	require.NoError(t, err)
	assert.Equal(t, paperportal.StatusRejected, status)

	stored, err := env.repo.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "illegible", stored.ReviewNote)
	require.NotNil(t, stored.ReviewerID)
	assert.Equal(t, admin.ID, *stored.ReviewerID)
	assert.NotNil(t, stored.ReviewedAt)

	status, err = env.svc.Review(ctx, admin, paperportal.ReviewRequest{
		SubmissionID: sub.ID, Decision: paperportal.DecisionApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, paperportal.StatusApproved, status)

	stored, err = env.repo.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ReviewNote, "approval clears the rejection note")

	token, err := env.svc.IssuePublicLink(ctx, owner, sub.ID)
	require.NoError(t, err)

	result, err := env.svc.FetchPublic(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", readAll(t, result))

	_, err = env.svc.Review(ctx, admin, paperportal.ReviewRequest{
		SubmissionID: sub.ID, Decision: paperportal.DecisionReject, Reason: "policy",
	})
	require.NoError(t, err)

	// Token unchanged, reachability gone.
	_, err = env.svc.FetchPublic(ctx, token)
	assert.ErrorIs(t, err, paperportal.ErrLinkNotFound)
}

func TestPublicLinks(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}
	admin := &paperportal.Caller{ID: uuid.New(), IsAdmin: true}
	stranger := &paperportal.Caller{ID: uuid.New()}

	sub := mustUpload(t, env, owner, "exam.pdf", "pdf bytes")

	t.Run("stranger cannot issue", func(t *testing.T) {
		_, err := env.svc.IssuePublicLink(ctx, stranger, sub.ID)
		assert.ErrorIs(t, err, paperportal.ErrForbidden)
	})

	t.Run("link on pending submission resolves to nothing", func(t *testing.T) {
		token, err := env.svc.IssuePublicLink(ctx, owner, sub.ID)
		require.NoError(t, err)

		_, err = env.svc.FetchPublic(ctx, token)
		assert.ErrorIs(t, err, paperportal.ErrLinkNotFound)
	})

	t.Run("issue is one-shot", func(t *testing.T) {
		t1, err := env.svc.IssuePublicLink(ctx, owner, sub.ID)
		require.NoError(t, err)
		t2, err := env.svc.IssuePublicLink(ctx, admin, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, t1, t2)
	})

	t.Run("approval makes the link live", func(t *testing.T) {
		_, err := env.svc.Review(ctx, admin, paperportal.ReviewRequest{
			SubmissionID: sub.ID, Decision: paperportal.DecisionApprove,
		})
		require.NoError(t, err)

		token, err := env.svc.IssuePublicLink(ctx, owner, sub.ID)
		require.NoError(t, err)

		result, err := env.svc.FetchPublic(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "pdf bytes", readAll(t, result))

		meta, err := env.svc.GetPublicMetadata(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "exam.pdf", meta.Filename)
		assert.Equal(t, "application/pdf", meta.MimeType)
		assert.True(t, meta.CanPreview)
	})

	t.Run("revoke then reissue yields a fresh token", func(t *testing.T) {
		old, err := env.svc.IssuePublicLink(ctx, owner, sub.ID)
		require.NoError(t, err)

		require.NoError(t, env.svc.RevokePublicLink(ctx, owner, sub.ID))
		_, err = env.svc.FetchPublic(ctx, old)
		assert.ErrorIs(t, err, paperportal.ErrLinkNotFound)

		fresh, err := env.svc.IssuePublicLink(ctx, owner, sub.ID)
		require.NoError(t, err)
		assert.NotEqual(t, old, fresh)

		_, err = env.svc.FetchPublic(ctx, fresh)
		assert.NoError(t, err)
	})

	t.Run("junk tokens", func(t *testing.T) {
		_, err := env.svc.FetchPublic(ctx, "not-a-token")
		assert.ErrorIs(t, err, paperportal.ErrLinkNotFound)
		_, err = env.svc.FetchPublic(ctx, "0123456789abcdef0123456789abcdef")
		assert.ErrorIs(t, err, paperportal.ErrLinkNotFound)
	})
}

func TestLegacyRecordRoundTrip(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	caller := &paperportal.Caller{ID: owner}

	// Seed a pre-migration record: bytes on the legacy backend, no content
	// key on the record.
	require.NoError(t, env.legacy.Upload(ctx, "2019/old-exam.pdf", strings.NewReader("legacy bytes")))
	sub := &paperportal.Submission{
		ID:               uuid.New(),
		OwnerID:          &owner,
		LegacyPath:       "2019/old-exam.pdf",
		OriginalFilename: "old-exam.pdf",
		Status:           paperportal.StatusApproved,
	}
	require.NoError(t, env.repo.CreateSubmission(ctx, sub))

	result, err := env.svc.FetchBytes(ctx, caller, sub.ID, paperportal.OpDownloadBytes)
	require.NoError(t, err)
	assert.Equal(t, "legacy bytes", readAll(t, result))
}

func TestStorageInconsistencySurfacesAsNotFound(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	caller := &paperportal.Caller{ID: owner}

	sub := &paperportal.Submission{
		ID:               uuid.New(),
		OwnerID:          &owner,
		ContentKey:       "dangling/key",
		LegacyPath:       "gone.pdf",
		OriginalFilename: "gone.pdf",
		Status:           paperportal.StatusApproved,
	}
	require.NoError(t, env.repo.CreateSubmission(ctx, sub))

	_, err := env.svc.FetchBytes(ctx, caller, sub.ID, paperportal.OpDownloadBytes)
	assert.ErrorIs(t, err, paperportal.ErrBytesNotFound)
	assert.NotErrorIs(t, err, paperportal.ErrStorageInconsistent,
		"backend drift must not leak to callers")
}

func TestReplaceContent(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}
	admin := &paperportal.Caller{ID: uuid.New(), IsAdmin: true}
	stranger := &paperportal.Caller{ID: uuid.New()}

	sub := mustUpload(t, env, owner, "draft.pdf", "first version")
	oldKey := sub.ContentKey

	t.Run("stranger cannot replace", func(t *testing.T) {
		_, err := env.svc.ReplaceContent(ctx, stranger, paperportal.ReplaceContentRequest{
			SubmissionID: sub.ID, Filename: "x.pdf", Body: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, paperportal.ErrForbidden)
	})

	t.Run("owner rewrites pending content", func(t *testing.T) {
		updated, err := env.svc.ReplaceContent(ctx, owner, paperportal.ReplaceContentRequest{
			SubmissionID: sub.ID, Filename: "final.pdf", Body: strings.NewReader("second version"),
		})
		require.NoError(t, err)
		assert.NotEqual(t, oldKey, updated.ContentKey)
		assert.Equal(t, "final.pdf", updated.OriginalFilename)

		result, err := env.svc.FetchBytes(ctx, owner, sub.ID, paperportal.OpDownloadBytes)
		require.NoError(t, err)
		assert.Equal(t, "second version", readAll(t, result))

		// Old bytes reclaimed.
		assert.Equal(t, 1, env.primary.Len())
	})

	t.Run("reviewed content is frozen", func(t *testing.T) {
		_, err := env.svc.Review(ctx, admin, paperportal.ReviewRequest{
			SubmissionID: sub.ID, Decision: paperportal.DecisionApprove,
		})
		require.NoError(t, err)

		_, err = env.svc.ReplaceContent(ctx, owner, paperportal.ReplaceContentRequest{
			SubmissionID: sub.ID, Filename: "v3.pdf", Body: strings.NewReader("third"),
		})
		assert.ErrorIs(t, err, paperportal.ErrForbidden)
	})
}

func TestUpdateMetadata(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}
	admin := &paperportal.Caller{ID: uuid.New(), IsAdmin: true}

	sub := mustUpload(t, env, owner, "exam.pdf", "bytes")

	_, err := env.svc.UpdateMetadata(ctx, owner, paperportal.UpdateMetadataRequest{
		SubmissionID: sub.ID, Title: "nope",
	})
	assert.ErrorIs(t, err, paperportal.ErrForbidden)

	updated, err := env.svc.UpdateMetadata(ctx, admin, paperportal.UpdateMetadataRequest{
		SubmissionID: sub.ID, Title: "Algorithms Final 2024", DocumentType: "exam", Year: 2024,
	})
	require.NoError(t, err)
	assert.Equal(t, "Algorithms Final 2024", updated.Title)
	assert.Equal(t, paperportal.StatusPending, updated.Status, "metadata edits never touch status")
}

func TestDeleteSubmission(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}
	admin := &paperportal.Caller{ID: uuid.New(), IsAdmin: true}

	sub := mustUpload(t, env, owner, "exam.pdf", "bytes")

	err := env.svc.DeleteSubmission(ctx, owner, sub.ID)
	assert.ErrorIs(t, err, paperportal.ErrForbidden)

	require.NoError(t, env.svc.DeleteSubmission(ctx, admin, sub.ID))
	assert.Equal(t, 0, env.primary.Len(), "bytes reclaimed with the record")

	_, err = env.svc.GetMetadata(ctx, admin, sub.ID)
	assert.ErrorIs(t, err, paperportal.ErrSubmissionNotFound)
}

func TestListVisibility(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}
	admin := &paperportal.Caller{ID: uuid.New(), IsAdmin: true}
	stranger := &paperportal.Caller{ID: uuid.New()}

	pending := mustUpload(t, env, owner, "pending.pdf", "a")
	approved := mustUpload(t, env, owner, "approved.pdf", "b")
	_, err := env.svc.Review(ctx, admin, paperportal.ReviewRequest{
		SubmissionID: approved.ID, Decision: paperportal.DecisionApprove,
	})
	require.NoError(t, err)

	ids := func(metas []*paperportal.SubmissionMetadata) []uuid.UUID {
		var out []uuid.UUID
		for _, m := range metas {
			out = append(out, m.ID)
		}
		return out
	}

	adminView, err := env.svc.ListSubmissions(ctx, admin, paperportal.SubmissionFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{pending.ID, approved.ID}, ids(adminView))

	ownerView, err := env.svc.ListSubmissions(ctx, owner, paperportal.SubmissionFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{pending.ID, approved.ID}, ids(ownerView))

	strangerView, err := env.svc.ListSubmissions(ctx, stranger, paperportal.SubmissionFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{approved.ID}, ids(strangerView))

	pendingStatus := paperportal.StatusPending
	queue, err := env.svc.ListSubmissions(ctx, admin, paperportal.SubmissionFilter{Status: &pendingStatus})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{pending.ID}, ids(queue))
}

func TestStats(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}
	admin := &paperportal.Caller{ID: uuid.New(), IsAdmin: true}

	_, err := env.svc.Stats(ctx, owner)
	assert.ErrorIs(t, err, paperportal.ErrForbidden)

	a := mustUpload(t, env, owner, "a.pdf", "a")
	b := mustUpload(t, env, owner, "b.pdf", "b")
	mustUpload(t, env, owner, "c.pdf", "c")

	_, err = env.svc.Review(ctx, admin, paperportal.ReviewRequest{
		SubmissionID: a.ID, Decision: paperportal.DecisionApprove,
	})
	require.NoError(t, err)
	_, err = env.svc.Review(ctx, admin, paperportal.ReviewRequest{
		SubmissionID: b.ID, Decision: paperportal.DecisionReject, Reason: "dup",
	})
	require.NoError(t, err)

	counts, err := env.svc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, paperportal.StatusCounts{Total: 3, Pending: 1, Approved: 1, Rejected: 1}, counts)
}

func TestGetMetadata(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	owner := &paperportal.Caller{ID: uuid.New()}

	sub := mustUpload(t, env, owner, "exam.pdf", "pdf bytes")

	meta, err := env.svc.GetMetadata(ctx, owner, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "exam.pdf", meta.Filename)
	assert.Equal(t, "application/pdf", meta.MimeType)
	assert.True(t, meta.CanPreview)
	assert.Equal(t, paperportal.StatusPending, meta.Status)
	assert.Equal(t, int64(len("pdf bytes")), meta.DeclaredSize)

	_, err = env.svc.GetMetadata(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, paperportal.ErrSubmissionNotFound)
}
