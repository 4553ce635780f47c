package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pdf-form-drafts/internal/domain"
)

const draftColumns = `id, template_id, user_id, version, form_data_json, annotations_json, drawing_image_path, status, created_at, updated_at`

// SQLDraftRepository implements domain.DraftRepository on database/sql.
// The (user_id, template_id, version) unique key turns a lost version race
// into domain.ErrVersionConflict.
type SQLDraftRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  domain.Logger
}

func NewSQLDraftRepository(db *sql.DB, dialect Dialect, logger domain.Logger) *SQLDraftRepository {
	return &SQLDraftRepository{db: db, dialect: dialect, logger: logger}
}

func (r *SQLDraftRepository) MaxVersion(ctx context.Context, userID, templateID string) (int, error) {
	q := r.dialect.Rebind(`SELECT COALESCE(MAX(version), 0) FROM pdf_drafts WHERE user_id = ? AND template_id = ?`)
	var max int64
	if err := r.db.QueryRowContext(ctx, q, userID, templateID).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to read max version: %w", err)
	}
	return int(max), nil
}

func (r *SQLDraftRepository) Insert(ctx context.Context, d *domain.Draft) error {
	q := r.dialect.Rebind(`INSERT INTO pdf_drafts (` + draftColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		d.ID, d.TemplateID, d.UserID, d.Version, d.FormData,
		nullString(d.Annotations), nullString(d.DrawingImagePath),
		d.Status, d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			r.logger.Warn("Draft version already taken", "user_id", d.UserID, "template_id", d.TemplateID, "version", d.Version)
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	return nil
}

func (r *SQLDraftRepository) ListByTemplate(ctx context.Context, userID, templateID string) ([]*domain.Draft, error) {
	q := r.dialect.Rebind(`SELECT ` + draftColumns + ` FROM pdf_drafts WHERE user_id = ? AND template_id = ? ORDER BY version DESC, created_at DESC`)
	rows, err := r.db.QueryContext(ctx, q, userID, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var out []*domain.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return out, nil
}

func (r *SQLDraftRepository) Get(ctx context.Context, userID, draftID string) (*domain.Draft, error) {
	q := r.dialect.Rebind(`SELECT ` + draftColumns + ` FROM pdf_drafts WHERE id = ? AND user_id = ?`)
	d, err := scanDraft(r.db.QueryRowContext(ctx, q, draftID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDraftNotFound
	}
	return d, err
}

func (r *SQLDraftRepository) Update(ctx context.Context, userID, draftID string, patch domain.DraftPatch) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{patch.UpdatedAt.UTC()}
	if patch.FormData != nil {
		sets = append(sets, "form_data_json = ?")
		args = append(args, *patch.FormData)
	}
	if patch.Annotations != nil {
		sets = append(sets, "annotations_json = ?")
		args = append(args, *patch.Annotations)
	}
	if patch.DrawingImagePath != nil {
		sets = append(sets, "drawing_image_path = ?")
		args = append(args, *patch.DrawingImagePath)
	}
	args = append(args, draftID, userID)

	q := r.dialect.Rebind(`UPDATE pdf_drafts SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}
	if n == 0 {
		return domain.ErrDraftNotFound
	}
	return nil
}

// SQLTemplateRepository implements domain.TemplateRepository. Templates are
// shared across users.
type SQLTemplateRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLTemplateRepository(db *sql.DB, dialect Dialect) *SQLTemplateRepository {
	return &SQLTemplateRepository{db: db, dialect: dialect}
}

func (r *SQLTemplateRepository) Get(ctx context.Context, templateID string) (*domain.Template, error) {
	q := r.dialect.Rebind(`SELECT id, name, stored_path FROM pdf_templates WHERE id = ?`)
	var t domain.Template
	err := r.db.QueryRowContext(ctx, q, templateID).Scan(&t.ID, &t.Name, &t.StoredPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &t, nil
}

// Save upserts a template row; used by seeding and tests.
func (r *SQLTemplateRepository) Save(ctx context.Context, t *domain.Template) error {
	q := r.dialect.Rebind(`UPDATE pdf_templates SET name = ?, stored_path = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, t.Name, t.StoredPath, t.ID)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	q = r.dialect.Rebind(`INSERT INTO pdf_templates (id, name, stored_path) VALUES (?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, q, t.ID, t.Name, t.StoredPath); err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraft(s rowScanner) (*domain.Draft, error) {
	var (
		d           domain.Draft
		version     int64
		annotations sql.NullString
		drawing     sql.NullString
		createdAt   time.Time
		updatedAt   time.Time
	)
	err := s.Scan(&d.ID, &d.TemplateID, &d.UserID, &version, &d.FormData,
		&annotations, &drawing, &d.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan draft: %w", err)
	}
	d.Version = int(version)
	if annotations.Valid {
		d.Annotations = &annotations.String
	}
	if drawing.Valid {
		d.DrawingImagePath = &drawing.String
	}
	d.CreatedAt = createdAt.UTC()
	d.UpdatedAt = updatedAt.UTC()
	return &d, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
