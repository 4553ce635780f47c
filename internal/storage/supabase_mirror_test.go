package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupabaseMirror_Upload(t *testing.T) {
	var gotPath, gotAuth, gotUpsert, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewSupabaseMirror(srv.URL+"/", "service-key", "exports")
	err := m.Upload(context.Background(), "/u1/d1.pdf", []byte("%PDF"), "application/pdf")

	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/exports/u1/d1.pdf", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "%PDF", string(gotBody))
}

func TestSupabaseMirror_UploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"denied"}`)
	}))
	defer srv.Close()

	err := NewSupabaseMirror(srv.URL, "k", "b").Upload(context.Background(), "x.pdf", nil, "application/pdf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
