package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"pdf-form-drafts/internal/domain"
	apperrors "pdf-form-drafts/pkg/errors"
)

// maxCreateAttempts bounds the recompute-and-retry loop when a store with a
// (user, template, version) unique key rejects an insert.
const maxCreateAttempts = 3

// DraftService implements domain.DraftService.
type DraftService struct {
	drafts    domain.DraftRepository
	templates domain.TemplateRepository
	files     domain.FileStore
	exporter  domain.Exporter
	guard     domain.VersionGuard
	mirror    domain.ArtifactMirror
	logger    domain.Logger

	exports singleflight.Group
	now     func() time.Time
	newID   func() string
}

// DraftServiceOption configures optional collaborators.
type DraftServiceOption func(*DraftService)

// WithVersionGuard serialises version assignment. Without it Create keeps the
// unguarded read-max-then-insert sequence.
func WithVersionGuard(g domain.VersionGuard) DraftServiceOption {
	return func(s *DraftService) { s.guard = g }
}

// WithArtifactMirror uploads every successful export.
func WithArtifactMirror(m domain.ArtifactMirror) DraftServiceOption {
	return func(s *DraftService) { s.mirror = m }
}

func WithClock(now func() time.Time) DraftServiceOption {
	return func(s *DraftService) { s.now = now }
}

func NewDraftService(
	drafts domain.DraftRepository,
	templates domain.TemplateRepository,
	files domain.FileStore,
	exporter domain.Exporter,
	logger domain.Logger,
	opts ...DraftServiceOption,
) *DraftService {
	s := &DraftService{
		drafts:    drafts,
		templates: templates,
		files:     files,
		exporter:  exporter,
		guard:     NoGuard{},
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DraftService) Create(ctx context.Context, userID string, req domain.CreateDraftRequest) (*domain.DraftSummary, error) {
	if req.TemplateID == "" {
		return nil, apperrors.NewValidationError("template_id is required")
	}
	if _, err := s.templates.Get(ctx, req.TemplateID); err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return nil, apperrors.NewValidationError("Invalid template")
		}
		return nil, apperrors.NewInternalError("Failed to load template", err)
	}

	formData, err := formDataText(req.FormData)
	if err != nil {
		return nil, err
	}
	annotations, err := optionalJSONText("annotations", req.Annotations)
	if err != nil {
		return nil, err
	}

	var drawing []byte
	if req.DrawingDataURL != nil && !isBlank(*req.DrawingDataURL) {
		if drawing, err = DecodeDrawingDataURL(*req.DrawingDataURL); err != nil {
			return nil, validationFromDomain(err)
		}
	}

	now := s.now().UTC()
	draft := &domain.Draft{
		ID:          s.newID(),
		TemplateID:  req.TemplateID,
		UserID:      userID,
		FormData:    formData,
		Annotations: annotations,
		Status:      domain.DraftStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if drawing != nil {
		p := s.files.DrawingPath(userID, draft.ID)
		if err := s.files.WriteAtomic(p, drawing); err != nil {
			return nil, apperrors.NewInternalError("Failed to save drawing", err)
		}
		draft.DrawingImagePath = &p
	}

	if err := s.insertNextVersion(ctx, draft); err != nil {
		if draft.DrawingImagePath != nil {
			if rmErr := s.files.Remove(*draft.DrawingImagePath); rmErr != nil {
				s.logger.Warn("Failed to remove orphaned drawing", "path", *draft.DrawingImagePath, "error", rmErr)
			}
		}
		return nil, err
	}

	s.logger.Info("Draft created", "draft_id", draft.ID, "template_id", draft.TemplateID, "version", draft.Version)
	summary := draft.Summary()
	return &summary, nil
}

// insertNextVersion assigns max+1 under the configured guard and inserts,
// recomputing on a unique-key conflict.
func (s *DraftService) insertNextVersion(ctx context.Context, draft *domain.Draft) error {
	release, err := s.guard.Acquire(ctx, draft.UserID, draft.TemplateID)
	if err != nil {
		return apperrors.NewInternalError("Failed to create draft", err)
	}
	defer release()

	for attempt := 1; ; attempt++ {
		latest, err := s.drafts.MaxVersion(ctx, draft.UserID, draft.TemplateID)
		if err != nil {
			return apperrors.NewInternalError("Failed to create draft", err)
		}
		draft.Version = latest + 1

		err = s.drafts.Insert(ctx, draft)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) || attempt >= maxCreateAttempts {
			return apperrors.NewInternalError("Failed to create draft", err)
		}
		s.logger.Warn("Version conflict, retrying", "template_id", draft.TemplateID, "version", draft.Version, "attempt", attempt)
	}
}

func (s *DraftService) List(ctx context.Context, userID, templateID string) ([]domain.DraftSummary, error) {
	drafts, err := s.drafts.ListByTemplate(ctx, userID, templateID)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to list drafts", err)
	}
	out := make([]domain.DraftSummary, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, d.Summary())
	}
	return out, nil
}

func (s *DraftService) Get(ctx context.Context, userID, draftID string) (*domain.DraftDetail, error) {
	d, err := s.getDraft(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}

	detail := &domain.DraftDetail{
		ID:         d.ID,
		TemplateID: d.TemplateID,
		Version:    d.Version,
		FormData:   json.RawMessage("{}"),
		HasDrawing: d.DrawingImagePath != nil && s.files.Exists(*d.DrawingImagePath),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if json.Valid([]byte(d.FormData)) {
		detail.FormData = json.RawMessage(d.FormData)
	} else {
		s.logger.Warn("Stored form data is not valid JSON", "draft_id", d.ID)
	}
	if d.Annotations != nil {
		if json.Valid([]byte(*d.Annotations)) {
			detail.Annotations = json.RawMessage(*d.Annotations)
		} else {
			s.logger.Warn("Stored annotations are not valid JSON", "draft_id", d.ID)
		}
	}
	return detail, nil
}

func (s *DraftService) GetDrawing(ctx context.Context, userID, draftID string) ([]byte, error) {
	d, err := s.getDraft(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	if d.DrawingImagePath == nil || !s.files.Exists(*d.DrawingImagePath) {
		return nil, apperrors.NewNotFoundError("Drawing not found")
	}
	data, err := s.files.Read(*d.DrawingImagePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("Drawing not found")
		}
		return nil, apperrors.NewInternalError("Failed to read drawing", err)
	}
	return data, nil
}

func (s *DraftService) Update(ctx context.Context, userID, draftID string, req domain.UpdateDraftRequest) error {
	if _, err := s.getDraft(ctx, userID, draftID); err != nil {
		return err
	}

	patch := domain.DraftPatch{}
	if present(req.FormData) {
		formData, err := formDataText(req.FormData)
		if err != nil {
			return err
		}
		patch.FormData = &formData
	}
	if present(req.Annotations) {
		annotations, err := optionalJSONText("annotations", req.Annotations)
		if err != nil {
			return err
		}
		patch.Annotations = annotations
	}

	var drawing []byte
	if req.DrawingDataURL != nil && !isBlank(*req.DrawingDataURL) {
		var err error
		if drawing, err = DecodeDrawingDataURL(*req.DrawingDataURL); err != nil {
			return validationFromDomain(err)
		}
	}
	// The new drawing is staged beside the old one and only replaces it
	// once the row update has succeeded.
	var staged, drawingPath string
	if drawing != nil {
		drawingPath = s.files.DrawingPath(userID, draftID)
		tmp, err := s.files.TempPath(drawingPath)
		if err != nil {
			return apperrors.NewInternalError("Failed to save drawing", err)
		}
		if err := s.files.WriteAtomic(tmp, drawing); err != nil {
			_ = s.files.Remove(tmp)
			return apperrors.NewInternalError("Failed to save drawing", err)
		}
		staged = tmp
		patch.DrawingImagePath = &drawingPath
	}

	patch.UpdatedAt = s.now().UTC()
	if err := s.drafts.Update(ctx, userID, draftID, patch); err != nil {
		if staged != "" {
			_ = s.files.Remove(staged)
		}
		return s.repoError(err, "Failed to update draft")
	}
	if staged != "" {
		if err := s.files.Commit(staged, drawingPath); err != nil {
			return apperrors.NewInternalError("Failed to save drawing", err)
		}
	}
	s.logger.Debug("Draft updated", "draft_id", draftID)
	return nil
}

// Export flattens the draft. Concurrent calls for the same draft share one run.
func (s *DraftService) Export(ctx context.Context, userID, draftID string) (*domain.ExportResult, error) {
	v, err, shared := s.exports.Do(userID+"/"+draftID, func() (interface{}, error) {
		return s.export(ctx, userID, draftID)
	})
	if shared {
		s.logger.Debug("Export collapsed into in-flight run", "draft_id", draftID)
	}
	if err != nil {
		return nil, err
	}
	return v.(*domain.ExportResult), nil
}

func (s *DraftService) export(ctx context.Context, userID, draftID string) (*domain.ExportResult, error) {
	d, err := s.getDraft(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.Get(ctx, d.TemplateID)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return nil, apperrors.NewNotFoundError("Template not found")
		}
		return nil, apperrors.NewInternalError("Failed to load template", err)
	}

	formData := json.RawMessage("{}")
	if json.Valid([]byte(d.FormData)) {
		formData = json.RawMessage(d.FormData)
	}

	out, err := s.exporter.Export(ctx, domain.ExportRequest{
		TemplatePath:    tpl.StoredPath,
		DraftID:         d.ID,
		UserID:          userID,
		FormData:        formData,
		AnnotationsJSON: d.Annotations,
		DrawingPath:     d.DrawingImagePath,
	})
	if err != nil {
		if errors.Is(err, domain.ErrTemplateFileGone) {
			return nil, apperrors.NewNotFoundError("Template file not found")
		}
		s.logger.Error("Export failed", err, "draft_id", d.ID)
		return nil, apperrors.NewExportError(err)
	}

	s.logger.Info("Draft exported", "draft_id", d.ID, "path", out)
	s.mirrorExport(ctx, userID, d.ID, out)
	return &domain.ExportResult{DraftID: d.ID, ExportPath: out}, nil
}

func (s *DraftService) mirrorExport(ctx context.Context, userID, draftID, localPath string) {
	if s.mirror == nil {
		return
	}
	data, err := s.files.Read(localPath)
	if err != nil {
		s.logger.Warn("Skipping export mirror, artifact unreadable", "path", localPath, "error", err)
		return
	}
	object := path.Join(userID, draftID+".pdf")
	if err := s.mirror.Upload(ctx, object, data, "application/pdf"); err != nil {
		s.logger.Error("Failed to mirror export", err, "object", object)
	}
}

func (s *DraftService) GetExportFile(ctx context.Context, userID, draftID string) ([]byte, error) {
	if _, err := s.getDraft(ctx, userID, draftID); err != nil {
		return nil, err
	}
	p := s.files.ExportPath(userID, draftID)
	if !s.files.Exists(p) {
		return nil, apperrors.NewNotFoundError("Export file not found")
	}
	data, err := s.files.Read(p)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to read export", err)
	}
	return data, nil
}

func (s *DraftService) getDraft(ctx context.Context, userID, draftID string) (*domain.Draft, error) {
	d, err := s.drafts.Get(ctx, userID, draftID)
	if err != nil {
		return nil, s.repoError(err, "Failed to load draft")
	}
	return d, nil
}

func (s *DraftService) repoError(err error, msg string) error {
	if errors.Is(err, domain.ErrDraftNotFound) {
		return apperrors.NewNotFoundError("Draft not found")
	}
	return apperrors.NewInternalError(msg, err)
}

func formDataText(raw json.RawMessage) (string, error) {
	if !present(raw) {
		return "{}", nil
	}
	if !json.Valid(raw) {
		return "", apperrors.NewValidationError("form_data must be valid JSON")
	}
	return string(raw), nil
}

func optionalJSONText(field string, raw json.RawMessage) (*string, error) {
	if !present(raw) {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s must be valid JSON", field))
	}
	s := string(raw)
	return &s, nil
}

func present(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

func isBlank(s string) bool {
	return len(bytes.TrimSpace([]byte(s))) == 0
}

func validationFromDomain(err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return apperrors.NewValidationError(ve.Message, ve.Field)
	}
	return apperrors.NewValidationError(err.Error())
}
