package repository

import (
	"context"
	"sort"
	"sync"

	"pdf-form-drafts/internal/domain"
)

// MemoryDraftRepository keeps drafts in process memory. It enforces no
// uniqueness on (user, template, version), so two creates that read the same
// MaxVersion both succeed with equal numbers unless a VersionGuard is used.
type MemoryDraftRepository struct {
	mu     sync.RWMutex
	drafts map[string]domain.Draft
}

func NewMemoryDraftRepository() *MemoryDraftRepository {
	return &MemoryDraftRepository{drafts: make(map[string]domain.Draft)}
}

func (r *MemoryDraftRepository) MaxVersion(_ context.Context, userID, templateID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	max := 0
	for _, d := range r.drafts {
		if d.UserID == userID && d.TemplateID == templateID && d.Version > max {
			max = d.Version
		}
	}
	return max, nil
}

func (r *MemoryDraftRepository) Insert(_ context.Context, d *domain.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[d.ID] = copyDraft(*d)
	return nil
}

func (r *MemoryDraftRepository) ListByTemplate(_ context.Context, userID, templateID string) ([]*domain.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Draft
	for _, d := range r.drafts {
		if d.UserID == userID && d.TemplateID == templateID {
			c := copyDraft(d)
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return out[i].Version > out[j].Version
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryDraftRepository) Get(_ context.Context, userID, draftID string) (*domain.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drafts[draftID]
	if !ok || d.UserID != userID {
		return nil, domain.ErrDraftNotFound
	}
	c := copyDraft(d)
	return &c, nil
}

func (r *MemoryDraftRepository) Update(_ context.Context, userID, draftID string, patch domain.DraftPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[draftID]
	if !ok || d.UserID != userID {
		return domain.ErrDraftNotFound
	}
	if patch.FormData != nil {
		d.FormData = *patch.FormData
	}
	if patch.Annotations != nil {
		d.Annotations = strPtr(*patch.Annotations)
	}
	if patch.DrawingImagePath != nil {
		d.DrawingImagePath = strPtr(*patch.DrawingImagePath)
	}
	d.UpdatedAt = patch.UpdatedAt
	r.drafts[draftID] = d
	return nil
}

// MemoryTemplateRepository is a fixed template catalogue.
type MemoryTemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]domain.Template
}

func NewMemoryTemplateRepository(templates ...domain.Template) *MemoryTemplateRepository {
	r := &MemoryTemplateRepository{templates: make(map[string]domain.Template)}
	for _, t := range templates {
		r.templates[t.ID] = t
	}
	return r
}

func (r *MemoryTemplateRepository) Get(_ context.Context, templateID string) (*domain.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[templateID]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	return &t, nil
}

func (r *MemoryTemplateRepository) Save(_ context.Context, t *domain.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = *t
	return nil
}

func (r *MemoryTemplateRepository) Delete(templateID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.templates, templateID)
}

func copyDraft(d domain.Draft) domain.Draft {
	if d.Annotations != nil {
		d.Annotations = strPtr(*d.Annotations)
	}
	if d.DrawingImagePath != nil {
		d.DrawingImagePath = strPtr(*d.DrawingImagePath)
	}
	return d
}

func strPtr(s string) *string { return &s }
