package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-form-drafts/internal/domain"
	apperrors "pdf-form-drafts/pkg/errors"
)

func TestDraftsClient_CreateSendsAuthAndBody(t *testing.T) {
	var gotAuth, gotUser, gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUser = r.Header.Get("X-User-Id")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.DraftSummary{ID: "d1", TemplateID: "t1", Version: 3, CreatedAt: time.Unix(0, 0).UTC()})
	}))
	defer srv.Close()

	c := NewDraftsClient(srv.URL, WithToken("tok"), WithUserID("u1"))
	out, err := c.CreateDraft(context.Background(), domain.CreateDraftRequest{
		TemplateID: "t1",
		FormData:   json.RawMessage(`{"name":"x"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, out.Version)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "u1", gotUser)
	assert.Equal(t, "/api/v1/drafts", gotPath)
	assert.Equal(t, "t1", gotBody["template_id"])
}

func TestDraftsClient_ListUsesTemplateQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "t9", r.URL.Query().Get("template_id"))
		_ = json.NewEncoder(w).Encode([]domain.DraftSummary{{ID: "b", Version: 2}, {ID: "a", Version: 1}})
	}))
	defer srv.Close()

	out, err := NewDraftsClient(srv.URL).ListDrafts(context.Background(), "t9")

	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0].Version)
}

func TestDraftsClient_ErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   apperrors.ErrorType
	}{
		{http.StatusBadRequest, apperrors.ErrorTypeValidation},
		{http.StatusNotFound, apperrors.ErrorTypeNotFound},
		{http.StatusTooManyRequests, apperrors.ErrorTypeRateLimited},
		{http.StatusInternalServerError, apperrors.ErrorTypeInternal},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, `{"error":"nope"}`)
		}))

		_, err := NewDraftsClient(srv.URL).GetDraft(context.Background(), "d1")
		srv.Close()

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, tc.kind), "status %d", tc.status)
		assert.Equal(t, "nope", apperrors.Message(err))
	}
}

func TestDraftsClient_UpdateAndBinaryEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/drafts/d1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v1/drafts/d1/drawing", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	mux.HandleFunc("/api/v1/drafts/d1/export", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.ExportResult{DraftID: "d1", ExportPath: "/x/d1.pdf"})
	})
	mux.HandleFunc("/api/v1/drafts/d1/export/file", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewDraftsClient(srv.URL)
	ctx := context.Background()

	require.NoError(t, c.UpdateDraft(ctx, "d1", domain.UpdateDraftRequest{Annotations: json.RawMessage(`[]`)}))

	png, err := c.GetDrawing(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png)

	res, err := c.ExportDraft(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "/x/d1.pdf", res.ExportPath)

	pdf, err := c.GetExportFile(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(pdf))
}
