package paperportal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Default upload ceiling, matching the portal's historical 25 MiB limit.
const DefaultMaxUploadBytes = 25 << 20

// ContentStore persists submission bytes across two backends: a primary one
// that takes all writes, and an optional legacy one consulted as a read
// fallback for records created before the migration. Modeled as an ordered
// list of read strategies behind one interface so call sites never
// special-case old records.
type ContentStore struct {
	primary  BlobStore
	legacy   BlobStore
	maxBytes int64
}

// StoreOption configures a ContentStore.
type StoreOption func(*ContentStore)

// WithLegacyStore attaches the read-only legacy backend.
func WithLegacyStore(legacy BlobStore) StoreOption {
	return func(cs *ContentStore) {
		cs.legacy = legacy
	}
}

// WithMaxUploadBytes overrides the upload size ceiling.
func WithMaxUploadBytes(n int64) StoreOption {
	return func(cs *ContentStore) {
		cs.maxBytes = n
	}
}

// NewContentStore creates a content store writing to primary.
func NewContentStore(primary BlobStore, opts ...StoreOption) (*ContentStore, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary blob store is required")
	}
	cs := &ContentStore{
		primary:  primary,
		maxBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(cs)
	}
	if cs.maxBytes <= 0 {
		return nil, fmt.Errorf("upload ceiling must be positive")
	}
	return cs, nil
}

// MaxUploadBytes returns the configured ceiling.
func (cs *ContentStore) MaxUploadBytes() int64 {
	return cs.maxBytes
}

// Put mints a fresh content key under ownerKey and writes the bytes from
// reader to the primary backend. Payloads above the ceiling fail with
// ErrPayloadTooLarge before anything is persisted; an oversized upload never
// leaves a partial write behind.
func (cs *ContentStore) Put(ctx context.Context, ownerKey string, reader io.Reader) (string, int64, error) {
	// Buffer up to ceiling+1 so overshoot is detected before the backend is
	// touched.
	data, err := io.ReadAll(io.LimitReader(reader, cs.maxBytes+1))
	if err != nil {
		return "", 0, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > cs.maxBytes {
		return "", 0, fmt.Errorf("%w: payload exceeds %d bytes", ErrPayloadTooLarge, cs.maxBytes)
	}

	key := fmt.Sprintf("%s/%s", ownerKey, uuid.New())
	if err := cs.primary.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return "", 0, &StorageError{Backend: "primary", Key: key, Op: "upload", Err: err}
	}
	return key, int64(len(data)), nil
}

// Open resolves bytes for a record: primary by content key first, then the
// legacy backend by path. A record whose references all miss is inconsistent,
// not merely absent; callers surface that as not-found but must log it.
func (cs *ContentStore) Open(ctx context.Context, contentKey, legacyPath string) (io.ReadCloser, error) {
	if contentKey != "" {
		rc, err := cs.primary.Download(ctx, contentKey)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, ErrBytesNotFound) {
			return nil, &StorageError{Backend: "primary", Key: contentKey, Op: "download", Err: err}
		}
	}
	if legacyPath != "" && cs.legacy != nil {
		rc, err := cs.legacy.Download(ctx, legacyPath)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, ErrBytesNotFound) {
			return nil, &StorageError{Backend: "legacy", Key: legacyPath, Op: "download", Err: err}
		}
	}
	if contentKey == "" && legacyPath == "" {
		return nil, ErrStorageInconsistent
	}
	return nil, fmt.Errorf("%w: content_key=%q legacy_path=%q", ErrStorageInconsistent, contentKey, legacyPath)
}

// Delete removes a record's bytes. The primary delete must succeed (a missing
// primary object counts as success); the legacy delete is best-effort since
// legacy files are not authoritative.
func (cs *ContentStore) Delete(ctx context.Context, contentKey, legacyPath string) error {
	if contentKey != "" {
		if err := cs.primary.Delete(ctx, contentKey); err != nil && !errors.Is(err, ErrBytesNotFound) {
			return &StorageError{Backend: "primary", Key: contentKey, Op: "delete", Err: err}
		}
	}
	if legacyPath != "" && cs.legacy != nil {
		// Best effort only.
		_ = cs.legacy.Delete(ctx, legacyPath)
	}
	return nil
}
