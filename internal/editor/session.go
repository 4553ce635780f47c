package editor

import (
	"context"
	"encoding/json"
	"fmt"

	"pdf-form-drafts/internal/domain"
)

// DraftAPI is the part of the draft API a session needs. *client.DraftsClient
// satisfies it.
type DraftAPI interface {
	CreateDraft(ctx context.Context, in domain.CreateDraftRequest) (*domain.DraftSummary, error)
	GetDraft(ctx context.Context, draftID string) (*domain.DraftDetail, error)
	UpdateDraft(ctx context.Context, draftID string, in domain.UpdateDraftRequest) error
	ExportDraft(ctx context.Context, draftID string) (*domain.ExportResult, error)
}

// Session binds an Editor to one stored draft.
type Session struct {
	api    DraftAPI
	editor *Editor
	logger domain.Logger

	draftID    string
	templateID string
	version    int
	formData   json.RawMessage
	formDirty  bool
	saved      domain.AnnotationCollection
}

// OpenSession loads a draft and starts an editor on its annotations. Stored
// annotations that fail to decode are skipped and logged.
func OpenSession(ctx context.Context, api DraftAPI, draftID string, logger domain.Logger, opts ...Option) (*Session, error) {
	d, err := api.GetDraft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", draftID, err)
	}

	loaded, errs := domain.ParseAnnotationsTolerant(d.Annotations)
	for _, e := range errs {
		logger.Warn("Skipping stored annotation", "draft_id", draftID, "error", e)
	}

	return &Session{
		api:        api,
		editor:     NewEditor(loaded, opts...),
		logger:     logger,
		draftID:    d.ID,
		templateID: d.TemplateID,
		version:    d.Version,
		formData:   d.FormData,
		saved:      loaded,
	}, nil
}

// NewSession starts an unsaved draft for templateID. The first Save creates it.
func NewSession(api DraftAPI, templateID string, formData json.RawMessage, logger domain.Logger, opts ...Option) *Session {
	empty := domain.NewAnnotationCollection()
	if len(formData) == 0 {
		formData = json.RawMessage(`{}`)
	}
	return &Session{
		api:        api,
		editor:     NewEditor(empty, opts...),
		logger:     logger,
		templateID: templateID,
		formData:   formData,
		formDirty:  true,
		saved:      empty,
	}
}

func (s *Session) Editor() *Editor           { return s.editor }
func (s *Session) DraftID() string           { return s.draftID }
func (s *Session) Version() int              { return s.version }
func (s *Session) FormData() json.RawMessage { return s.formData }

// SetFormData replaces the form field values sent on the next save.
func (s *Session) SetFormData(fd json.RawMessage) {
	s.formData = fd
	s.formDirty = true
}

// Dirty reports unsaved annotation or form changes.
func (s *Session) Dirty() bool {
	return s.formDirty || !s.editor.Annotations().Equal(s.saved)
}

// Save writes the current annotations to the draft, creating the draft on
// first save. Form data is sent only when it changed.
func (s *Session) Save(ctx context.Context) error {
	if s.draftID == "" {
		return s.SaveAsNewVersion(ctx)
	}

	current := s.editor.Annotations()
	ann, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode annotations: %w", err)
	}
	req := domain.UpdateDraftRequest{Annotations: ann}
	if s.formDirty {
		req.FormData = s.formData
	}
	if err := s.api.UpdateDraft(ctx, s.draftID, req); err != nil {
		return fmt.Errorf("save draft %s: %w", s.draftID, err)
	}
	s.saved = current
	s.formDirty = false
	s.logger.Info("Draft saved", "draft_id", s.draftID, "annotations", current.Len())
	return nil
}

// SaveAsNewVersion stores the current state as a new draft row; the server
// assigns the next version for this template.
func (s *Session) SaveAsNewVersion(ctx context.Context) error {
	current := s.editor.Annotations()
	ann, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode annotations: %w", err)
	}
	out, err := s.api.CreateDraft(ctx, domain.CreateDraftRequest{
		TemplateID:  s.templateID,
		FormData:    s.formData,
		Annotations: ann,
	})
	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	s.draftID = out.ID
	s.version = out.Version
	s.saved = current
	s.formDirty = false
	s.logger.Info("Draft version created", "draft_id", out.ID, "version", out.Version)
	return nil
}

// Export saves pending changes and asks the server to flatten the draft.
func (s *Session) Export(ctx context.Context) (*domain.ExportResult, error) {
	s.editor.endGesture()
	if s.Dirty() || s.draftID == "" {
		if err := s.Save(ctx); err != nil {
			return nil, err
		}
	}
	res, err := s.api.ExportDraft(ctx, s.draftID)
	if err != nil {
		return nil, fmt.Errorf("export draft %s: %w", s.draftID, err)
	}
	return res, nil
}
