package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/studyarchive/paper-portal/pkg/paperportal"
)

// Backend is an in-memory implementation of the paperportal.BlobStore
// interface, used in tests and in memory-mode deployments.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
	}
}

// Upload stores content directly in memory
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	return nil
}

// Download returns stored content
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, paperportal.ErrBytesNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes stored content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return paperportal.ErrBytesNotFound
	}

	delete(b.objects, objectKey)
	return nil
}

// Len reports the number of stored objects. Test helper.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
