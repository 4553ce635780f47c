package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pdf-form-drafts/internal/domain"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const (
	draftsTable    = "pdf_drafts"
	templatesTable = "pdf_templates"
)

// SupabaseDraftRepository implements domain.DraftRepository over PostgREST.
// The caller's JWT is taken from the context so row level security applies.
type SupabaseDraftRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

func NewSupabaseDraftRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) domain.DraftRepository {
	return &SupabaseDraftRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

func clientFor(ctx context.Context, sc domain.SupabaseClient) (*supabase.Client, error) {
	token, _ := domain.AccessToken(ctx)
	client, err := sc.GetClientWithToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to get client with token: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}
	return client, nil
}

func (r *SupabaseDraftRepository) MaxVersion(ctx context.Context, userID, templateID string) (int, error) {
	client, err := clientFor(ctx, r.supabaseClient)
	if err != nil {
		return 0, err
	}

	data, _, err := client.From(draftsTable).
		Select("version", "", false).
		Eq("user_id", userID).
		Eq("template_id", templateID).
		Order("version", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to read max version: %w", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return getInt(rows[0], "version"), nil
}

func (r *SupabaseDraftRepository) Insert(ctx context.Context, d *domain.Draft) error {
	client, err := clientFor(ctx, r.supabaseClient)
	if err != nil {
		return err
	}

	row := map[string]interface{}{
		"id":                 d.ID,
		"template_id":        d.TemplateID,
		"user_id":            d.UserID,
		"version":            d.Version,
		"form_data_json":     d.FormData,
		"annotations_json":   d.Annotations,
		"drawing_image_path": d.DrawingImagePath,
		"status":             d.Status,
		"created_at":         d.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":         d.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	_, _, err = client.From(draftsTable).
		Insert(row, false, "", "minimal", "").
		Execute()
	if err != nil {
		if isPostgrestUnique(err) {
			r.logger.Warn("Draft version already taken", "user_id", d.UserID, "template_id", d.TemplateID, "version", d.Version)
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("failed to insert draft: %w", err)
	}
	return nil
}

func (r *SupabaseDraftRepository) ListByTemplate(ctx context.Context, userID, templateID string) ([]*domain.Draft, error) {
	client, err := clientFor(ctx, r.supabaseClient)
	if err != nil {
		return nil, err
	}

	data, _, err := client.From(draftsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("template_id", templateID).
		Order("version", &postgrest.OrderOpts{Ascending: false}).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	out := make([]*domain.Draft, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapToDraft(row))
	}
	return out, nil
}

func (r *SupabaseDraftRepository) Get(ctx context.Context, userID, draftID string) (*domain.Draft, error) {
	client, err := clientFor(ctx, r.supabaseClient)
	if err != nil {
		return nil, err
	}

	data, _, err := client.From(draftsTable).
		Select("*", "", false).
		Eq("id", draftID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrDraftNotFound
	}
	return mapToDraft(rows[0]), nil
}

func (r *SupabaseDraftRepository) Update(ctx context.Context, userID, draftID string, patch domain.DraftPatch) error {
	client, err := clientFor(ctx, r.supabaseClient)
	if err != nil {
		return err
	}

	row := map[string]interface{}{
		"updated_at": patch.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if patch.FormData != nil {
		row["form_data_json"] = *patch.FormData
	}
	if patch.Annotations != nil {
		row["annotations_json"] = *patch.Annotations
	}
	if patch.DrawingImagePath != nil {
		row["drawing_image_path"] = *patch.DrawingImagePath
	}

	data, _, err := client.From(draftsTable).
		Update(row, "representation", "").
		Eq("id", draftID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update draft: %w", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return domain.ErrDraftNotFound
	}
	return nil
}

// SupabaseTemplateRepository reads the shared template catalogue.
type SupabaseTemplateRepository struct {
	supabaseClient domain.SupabaseClient
}

func NewSupabaseTemplateRepository(supabaseClient domain.SupabaseClient) domain.TemplateRepository {
	return &SupabaseTemplateRepository{supabaseClient: supabaseClient}
}

func (r *SupabaseTemplateRepository) Get(ctx context.Context, templateID string) (*domain.Template, error) {
	client, err := clientFor(ctx, r.supabaseClient)
	if err != nil {
		return nil, err
	}

	data, _, err := client.From(templatesTable).
		Select("id,name,stored_path", "", false).
		Eq("id", templateID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrTemplateNotFound
	}
	return &domain.Template{
		ID:         getString(rows[0], "id"),
		Name:       getString(rows[0], "name"),
		StoredPath: getString(rows[0], "stored_path"),
	}, nil
}

// PostgREST surfaces the Postgres SQLSTATE in the error text, e.g. "(23505) duplicate key ...".
func isPostgrestUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

func mapToDraft(data map[string]interface{}) *domain.Draft {
	d := &domain.Draft{
		ID:               getString(data, "id"),
		TemplateID:       getString(data, "template_id"),
		UserID:           getString(data, "user_id"),
		Version:          getInt(data, "version"),
		FormData:         getString(data, "form_data_json"),
		Annotations:      getStringPointer(data, "annotations_json"),
		DrawingImagePath: getStringPointer(data, "drawing_image_path"),
		Status:           getString(data, "status"),
		CreatedAt:        getTime(data, "created_at"),
		UpdatedAt:        getTime(data, "updated_at"),
	}
	if d.FormData == "" {
		d.FormData = "{}"
	}
	return d
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}

func getStringPointer(data map[string]interface{}, key string) *string {
	if val, ok := data[key].(string); ok {
		return &val
	}
	return nil
}

func getInt(data map[string]interface{}, key string) int {
	if val, ok := data[key]; ok && val != nil {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

func getTime(data map[string]interface{}, key string) time.Time {
	s := getString(data, key)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	// Postgres timestamp without zone.
	if t, err := time.Parse("2006-01-02T15:04:05.999999", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
