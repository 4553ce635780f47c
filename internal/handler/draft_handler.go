// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"pdf-form-drafts/internal/domain"
	apperrors "pdf-form-drafts/pkg/errors"
)

const maxDraftBodyBytes = 20 << 20

// DraftHandler handles draft-related HTTP requests
type DraftHandler struct {
	draftService domain.DraftService
	logger       domain.Logger
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(draftService domain.DraftService, logger domain.Logger) *DraftHandler {
	return &DraftHandler{draftService: draftService, logger: logger}
}

func (h *DraftHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := GetUserFromContext(r)
	if !ok || user.ID == "" {
		writeError(w, http.StatusUnauthorized, "User not found in context")
		return "", false
	}
	return user.ID, true
}

func (h *DraftHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxDraftBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// CreateDraft handles POST /drafts
func (h *DraftHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req domain.CreateDraftRequest
	if !h.decode(w, r, &req) {
		return
	}

	summary, err := h.draftService.Create(r.Context(), userID, req)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

// ListDrafts handles GET /drafts?template_id=
func (h *DraftHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	templateID := strings.TrimSpace(r.URL.Query().Get("template_id"))
	if templateID == "" {
		writeError(w, http.StatusBadRequest, "template_id is required")
		return
	}

	drafts, err := h.draftService.List(r.Context(), userID, templateID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	if drafts == nil {
		drafts = []domain.DraftSummary{}
	}
	writeJSON(w, http.StatusOK, drafts)
}

// GetDraft handles GET /drafts/{id}
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	detail, err := h.draftService.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetDrawing handles GET /drafts/{id}/drawing
func (h *DraftHandler) GetDrawing(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	data, err := h.draftService.GetDrawing(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	writeBinary(w, "image/png", data)
}

// UpdateDraft handles PUT /drafts/{id}
func (h *DraftHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req domain.UpdateDraftRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.draftService.Update(r.Context(), userID, mux.Vars(r)["id"], req); err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportDraft handles POST /drafts/{id}/export
func (h *DraftHandler) ExportDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	draftID := mux.Vars(r)["id"]
	result, err := h.draftService.Export(r.Context(), userID, draftID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeExport) {
			h.logger.Warn("Export failed", "draft_id", draftID, "error", err, "request_id", GetRequestID(r))
		}
		writeAppError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetExportFile handles GET /drafts/{id}/export/file
func (h *DraftHandler) GetExportFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	draftID := mux.Vars(r)["id"]
	data, err := h.draftService.GetExportFile(r.Context(), userID, draftID)
	if err != nil {
		writeAppError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Disposition", `inline; filename="`+draftID+`.pdf"`)
	writeBinary(w, "application/pdf", data)
}

func writeBinary(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
