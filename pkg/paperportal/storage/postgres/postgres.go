package postgres

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyarchive/paper-portal/pkg/paperportal"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Backend stores submission bytes in a relational blob column. This is the
// primary backend: every write lands here, keyed by the opaque content key.
type Backend struct {
	db DBTX
}

// New creates a new blob-column storage backend
func New(db DBTX) *Backend {
	return &Backend{db: db}
}

// NewWithPool creates a new blob-column storage backend with a connection pool
func NewWithPool(pool *pgxpool.Pool) *Backend {
	return &Backend{db: pool}
}

// Upload stores content under objectKey. A re-upload to the same key
// overwrites, keeping the write path a single atomic statement.
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}

	query := `
		INSERT INTO blobs (content_key, data, size_bytes)
		VALUES ($1, $2, $3)
		ON CONFLICT (content_key) DO UPDATE
		SET data = EXCLUDED.data, size_bytes = EXCLUDED.size_bytes`

	if _, err := b.db.Exec(ctx, query, objectKey, buf.Bytes(), buf.Len()); err != nil {
		return err
	}
	return nil
}

// Download returns content stored under objectKey
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	var data []byte
	err := b.db.QueryRow(ctx, `SELECT data FROM blobs WHERE content_key = $1`, objectKey).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paperportal.ErrBytesNotFound
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes content stored under objectKey
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	tag, err := b.db.Exec(ctx, `DELETE FROM blobs WHERE content_key = $1`, objectKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return paperportal.ErrBytesNotFound
	}
	return nil
}
