package domain

import (
	"context"
	"encoding/json"
	"time"
)

// DraftStatusDraft is the only lifecycle status a draft row is created with.
const DraftStatusDraft = "Draft"

// Draft is a versioned, user-owned working copy of a filled template.
// FormData and Annotations hold the stored JSON text unparsed.
type Draft struct {
	ID               string
	TemplateID       string
	UserID           string
	Version          int
	FormData         string
	Annotations      *string
	DrawingImagePath *string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Template is a stored PDF form that drafts are created against.
type Template struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StoredPath string `json:"stored_path"`
}

// DraftPatch lists the columns an Update writes. Nil fields are left untouched.
type DraftPatch struct {
	FormData         *string
	Annotations      *string
	DrawingImagePath *string
	UpdatedAt        time.Time
}

// CreateDraftRequest is the body of a create call.
type CreateDraftRequest struct {
	TemplateID     string          `json:"template_id"`
	FormData       json.RawMessage `json:"form_data"`
	Annotations    json.RawMessage `json:"annotations,omitempty"`
	DrawingDataURL *string         `json:"drawing_data_url,omitempty"`
}

// UpdateDraftRequest is a partial update. Absent fields are not changed.
type UpdateDraftRequest struct {
	FormData       json.RawMessage `json:"form_data,omitempty"`
	Annotations    json.RawMessage `json:"annotations,omitempty"`
	DrawingDataURL *string         `json:"drawing_data_url,omitempty"`
}

// DraftSummary is returned by Create and List.
type DraftSummary struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DraftDetail is returned by Get.
type DraftDetail struct {
	ID          string          `json:"id"`
	TemplateID  string          `json:"template_id"`
	Version     int             `json:"version"`
	FormData    json.RawMessage `json:"form_data"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
	HasDrawing  bool            `json:"has_drawing"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExportResult identifies a produced export artifact.
type ExportResult struct {
	DraftID    string `json:"draft_id"`
	ExportPath string `json:"export_path"`
}

// Summary projects a draft onto its list representation.
func (d *Draft) Summary() DraftSummary {
	return DraftSummary{
		ID:         d.ID,
		TemplateID: d.TemplateID,
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// DraftRepository persists draft rows. Implementations return ErrDraftNotFound
// for rows that do not exist or belong to another user, and ErrVersionConflict
// when an insert violates the (user, template, version) uniqueness they enforce.
type DraftRepository interface {
	MaxVersion(ctx context.Context, userID, templateID string) (int, error)
	Insert(ctx context.Context, draft *Draft) error
	ListByTemplate(ctx context.Context, userID, templateID string) ([]*Draft, error)
	Get(ctx context.Context, userID, draftID string) (*Draft, error)
	Update(ctx context.Context, userID, draftID string, patch DraftPatch) error
}

// TemplateRepository resolves templates. Returns ErrTemplateNotFound.
type TemplateRepository interface {
	Get(ctx context.Context, templateID string) (*Template, error)
}

// DraftService is the draft store use-case surface.
type DraftService interface {
	Create(ctx context.Context, userID string, req CreateDraftRequest) (*DraftSummary, error)
	List(ctx context.Context, userID, templateID string) ([]DraftSummary, error)
	Get(ctx context.Context, userID, draftID string) (*DraftDetail, error)
	GetDrawing(ctx context.Context, userID, draftID string) ([]byte, error)
	Update(ctx context.Context, userID, draftID string, req UpdateDraftRequest) error
	Export(ctx context.Context, userID, draftID string) (*ExportResult, error)
	GetExportFile(ctx context.Context, userID, draftID string) ([]byte, error)
}

// VersionGuard serialises version assignment for one (user, template) pair.
// The returned function releases the guard.
type VersionGuard interface {
	Acquire(ctx context.Context, userID, templateID string) (release func(), err error)
}

// ExportRequest is the input of the flatten pipeline.
type ExportRequest struct {
	TemplatePath    string
	DraftID         string
	UserID          string
	FormData        json.RawMessage
	AnnotationsJSON *string
	DrawingPath     *string
}

// Exporter flattens a draft into a PDF and returns the artifact path.
type Exporter interface {
	Export(ctx context.Context, req ExportRequest) (string, error)
}

// FileStore stores drawings and export artifacts under a root directory.
type FileStore interface {
	DrawingPath(userID, draftID string) string
	ExportPath(userID, draftID string) string
	WriteAtomic(path string, data []byte) error
	TempPath(path string) (string, error)
	Commit(tmpPath, path string) error
	Read(path string) ([]byte, error)
	Exists(path string) bool
	Remove(path string) error
}

// ArtifactMirror copies finished export artifacts to remote storage.
type ArtifactMirror interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) error
}
