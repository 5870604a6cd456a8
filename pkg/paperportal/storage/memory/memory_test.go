package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyarchive/paper-portal/pkg/paperportal"
)

func TestMemoryBackendRoundTrip(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Upload(ctx, "owner/key", strings.NewReader("payload")))

	rc, err := b.Download(ctx, "owner/key")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestMemoryBackendMissing(t *testing.T) {
	b := New()
	ctx := context.Background()

	_, err := b.Download(ctx, "nope")
	assert.ErrorIs(t, err, paperportal.ErrBytesNotFound)

	err = b.Delete(ctx, "nope")
	assert.ErrorIs(t, err, paperportal.ErrBytesNotFound)
}

func TestMemoryBackendDelete(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Upload(ctx, "k", strings.NewReader("x")))
	require.NoError(t, b.Delete(ctx, "k"))
	assert.Equal(t, 0, b.Len())

	_, err := b.Download(ctx, "k")
	assert.ErrorIs(t, err, paperportal.ErrBytesNotFound)
}
