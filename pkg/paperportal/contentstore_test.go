package paperportal_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyarchive/paper-portal/pkg/paperportal"
	memorystorage "github.com/studyarchive/paper-portal/pkg/paperportal/storage/memory"
)

func newTestStore(t *testing.T, opts ...paperportal.StoreOption) (*paperportal.ContentStore, *memorystorage.Backend, *memorystorage.Backend) {
	t.Helper()
	primary := memorystorage.New()
	legacy := memorystorage.New()
	opts = append([]paperportal.StoreOption{paperportal.WithLegacyStore(legacy)}, opts...)
	store, err := paperportal.NewContentStore(primary, opts...)
	require.NoError(t, err)
	return store, primary, legacy
}

func TestContentStorePutRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	payload := "the quick brown fox"
	key, size, err := store.Put(ctx, "owner-42", strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), size)
	assert.True(t, strings.HasPrefix(key, "owner-42/"))

	rc, err := store.Open(ctx, key, "")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestContentStorePutMintsDistinctKeys(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	k1, _, err := store.Put(ctx, "owner", strings.NewReader("a"))
	require.NoError(t, err)
	k2, _, err := store.Put(ctx, "owner", strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestContentStoreLegacyFallback(t *testing.T) {
	store, _, legacy := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, legacy.Upload(ctx, "2019/old-exam.pdf", strings.NewReader("legacy bytes")))

	// No content key at all: resolved purely from the legacy backend.
	rc, err := store.Open(ctx, "", "2019/old-exam.pdf")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "legacy bytes", string(got))

	// Dangling content key with a live legacy path still resolves.
	rc2, err := store.Open(ctx, "owner/gone", "2019/old-exam.pdf")
	require.NoError(t, err)
	defer rc2.Close()
	got2, err := io.ReadAll(rc2)
	require.NoError(t, err)
	assert.Equal(t, "legacy bytes", string(got2))
}

func TestContentStorePrimaryWinsOverLegacy(t *testing.T) {
	store, primary, legacy := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, primary.Upload(ctx, "k", strings.NewReader("new")))
	require.NoError(t, legacy.Upload(ctx, "p", strings.NewReader("old")))

	rc, err := store.Open(ctx, "k", "p")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "new", string(got))
}

func TestContentStoreInconsistency(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	// References that resolve nowhere are inconsistent, not merely missing.
	_, err := store.Open(ctx, "owner/dangling", "no/such/file")
	assert.ErrorIs(t, err, paperportal.ErrStorageInconsistent)

	_, err = store.Open(ctx, "", "")
	assert.ErrorIs(t, err, paperportal.ErrStorageInconsistent)
}

func TestContentStoreSizeCeiling(t *testing.T) {
	store, primary, _ := newTestStore(t, paperportal.WithMaxUploadBytes(8))
	ctx := context.Background()

	// Exactly at the ceiling is fine.
	_, size, err := store.Put(ctx, "o", strings.NewReader("12345678"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)

	// One byte over fails before anything is persisted.
	before := primary.Len()
	_, _, err = store.Put(ctx, "o", strings.NewReader("123456789"))
	assert.ErrorIs(t, err, paperportal.ErrPayloadTooLarge)
	assert.Equal(t, before, primary.Len())
}

func TestContentStoreDelete(t *testing.T) {
	store, primary, legacy := newTestStore(t)
	ctx := context.Background()

	key, _, err := store.Put(ctx, "o", strings.NewReader("data"))
	require.NoError(t, err)
	require.NoError(t, legacy.Upload(ctx, "old.pdf", strings.NewReader("legacy")))

	require.NoError(t, store.Delete(ctx, key, "old.pdf"))
	assert.Equal(t, 0, primary.Len())
	assert.Equal(t, 0, legacy.Len())

	// Deleting already-gone bytes is not an error; a missing legacy file is
	// ignored outright.
	assert.NoError(t, store.Delete(ctx, key, "old.pdf"))
	assert.NoError(t, store.Delete(ctx, "", "never-existed"))
}

func TestNewContentStoreValidation(t *testing.T) {
	_, err := paperportal.NewContentStore(nil)
	assert.Error(t, err)

	_, err = paperportal.NewContentStore(memorystorage.New(), paperportal.WithMaxUploadBytes(0))
	assert.Error(t, err)
}
