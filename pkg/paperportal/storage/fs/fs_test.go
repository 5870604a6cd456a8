package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyarchive/paper-portal/pkg/paperportal"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	return b
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestFsBackendRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Upload(ctx, "2019/old-exam.pdf", strings.NewReader("legacy")))

	rc, err := b.Download(ctx, "2019/old-exam.pdf")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "legacy", string(data))
}

func TestFsBackendMissing(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_, err := b.Download(ctx, "nope.pdf")
	assert.ErrorIs(t, err, paperportal.ErrBytesNotFound)

	err = b.Delete(ctx, "nope.pdf")
	assert.ErrorIs(t, err, paperportal.ErrBytesNotFound)
}

func TestFsBackendDeleteCleansEmptyDirs(t *testing.T) {
	dir := t.TempDir()
	b, err := New(Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Upload(ctx, "a/b/file.pdf", strings.NewReader("x")))
	require.NoError(t, b.Delete(ctx, "a/b/file.pdf"))

	_, err = os.Stat(filepath.Join(dir, "a"))
	assert.True(t, os.IsNotExist(err), "empty directories removed up to base")
	_, err = os.Stat(dir)
	assert.NoError(t, err, "base directory survives")
}

func TestFsBackendRejectsTraversal(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_, err := b.Download(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, paperportal.ErrBytesNotFound)
}
