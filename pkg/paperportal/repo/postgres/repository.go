package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
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

// Repository implements paperportal.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if pgErr.ConstraintName == "submissions_public_link_id_key" {
				return paperportal.ErrLinkExists
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// public_link_id is NULL when absent so its unique index only bites real
// tokens; the domain type spells absence as "".
const submissionColumns = `
	id, owner_id, title, document_type, year, content_key, legacy_path,
	original_filename, declared_size, status, reviewer_id, reviewed_at,
	review_note, COALESCE(public_link_id, ''), created_at, updated_at`

func (r *Repository) scanSubmission(row pgx.Row) (*paperportal.Submission, error) {
	var sub paperportal.Submission
	err := row.Scan(
		&sub.ID, &sub.OwnerID, &sub.Title, &sub.DocumentType, &sub.Year,
		&sub.ContentKey, &sub.LegacyPath, &sub.OriginalFilename,
		&sub.DeclaredSize, &sub.Status, &sub.ReviewerID, &sub.ReviewedAt,
		&sub.ReviewNote, &sub.PublicLinkID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *Repository) CreateSubmission(ctx context.Context, sub *paperportal.Submission) error {
	query := `
		INSERT INTO submissions (
			id, owner_id, title, document_type, year, content_key, legacy_path,
			original_filename, declared_size, status, review_note,
			public_link_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14)`

	_, err := r.db.Exec(ctx, query,
		sub.ID, sub.OwnerID, sub.Title, sub.DocumentType, sub.Year,
		sub.ContentKey, sub.LegacyPath, sub.OriginalFilename,
		sub.DeclaredSize, sub.Status, sub.ReviewNote, sub.PublicLinkID,
		sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create submission", err)
	}
	return nil
}

func (r *Repository) GetSubmission(ctx context.Context, id uuid.UUID) (*paperportal.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`

	sub, err := r.scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paperportal.ErrSubmissionNotFound
		}
		return nil, r.handlePostgresError("get submission", err)
	}
	return sub, nil
}

func (r *Repository) GetSubmissionByPublicLink(ctx context.Context, token string) (*paperportal.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE public_link_id = $1`

	sub, err := r.scanSubmission(r.db.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paperportal.ErrLinkNotFound
		}
		return nil, r.handlePostgresError("get submission by public link", err)
	}
	return sub, nil
}

func (r *Repository) ListSubmissions(ctx context.Context, filter paperportal.SubmissionFilter) ([]*paperportal.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE 1=1`
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list submissions", err)
	}
	defer rows.Close()

	var subs []*paperportal.Submission
	for rows.Next() {
		sub, err := r.scanSubmission(rows)
		if err != nil {
			return nil, r.handlePostgresError("list submissions", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list submissions", err)
	}
	return subs, nil
}

func (r *Repository) CountByStatus(ctx context.Context) (paperportal.StatusCounts, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM submissions`

	var counts paperportal.StatusCounts
	err := r.db.QueryRow(ctx, query).Scan(
		&counts.Total, &counts.Pending, &counts.Approved, &counts.Rejected)
	if err != nil {
		return paperportal.StatusCounts{}, r.handlePostgresError("count by status", err)
	}
	return counts, nil
}

func (r *Repository) UpdateSubmission(ctx context.Context, sub *paperportal.Submission) error {
	// Status, review fields and the public link are deliberately absent:
	// those have their own single-statement write paths.
	query := `
		UPDATE submissions SET
			title = $2, document_type = $3, year = $4, content_key = $5,
			legacy_path = $6, original_filename = $7, declared_size = $8,
			updated_at = $9
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		sub.ID, sub.Title, sub.DocumentType, sub.Year, sub.ContentKey,
		sub.LegacyPath, sub.OriginalFilename, sub.DeclaredSize, sub.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update submission", err)
	}
	if tag.RowsAffected() == 0 {
		return paperportal.ErrSubmissionNotFound
	}
	return nil
}

// UpdateStatus applies a review outcome as a single conditional statement:
// the row is touched only if its status still equals expected, so concurrent
// reviewers cannot both appear to win.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, expected paperportal.SubmissionStatus, outcome paperportal.ReviewOutcome) error {
	query := `
		UPDATE submissions SET
			status = $3, reviewer_id = $4, reviewed_at = $5, review_note = $6,
			updated_at = $5
		WHERE id = $1 AND status = $2`

	tag, err := r.db.Exec(ctx, query,
		id, expected, outcome.Status, outcome.ReviewerID, outcome.ReviewedAt,
		outcome.ReviewNote)
	if err != nil {
		return r.handlePostgresError("update status", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or its status moved under us.
		if _, gerr := r.GetSubmission(ctx, id); gerr != nil {
			return gerr
		}
		return paperportal.ErrStaleStatus
	}
	return nil
}

func (r *Repository) SetPublicLink(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE submissions SET public_link_id = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, token)
	if err != nil {
		return r.handlePostgresError("set public link", err)
	}
	if tag.RowsAffected() == 0 {
		return paperportal.ErrSubmissionNotFound
	}
	return nil
}

func (r *Repository) ClearPublicLink(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE submissions SET public_link_id = NULL WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return r.handlePostgresError("clear public link", err)
	}
	if tag.RowsAffected() == 0 {
		return paperportal.ErrSubmissionNotFound
	}
	return nil
}

func (r *Repository) DeleteSubmission(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete submission", err)
	}
	if tag.RowsAffected() == 0 {
		return paperportal.ErrSubmissionNotFound
	}
	return nil
}
