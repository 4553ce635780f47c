package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/phpdave11/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-form-drafts/internal/client"
	"pdf-form-drafts/internal/domain"
	"pdf-form-drafts/internal/editor"
	"pdf-form-drafts/internal/export"
	"pdf-form-drafts/internal/handler"
	"pdf-form-drafts/internal/repository"
	"pdf-form-drafts/internal/service"
	"pdf-form-drafts/internal/storage"
	apperrors "pdf-form-drafts/pkg/errors"
	"pdf-form-drafts/pkg/logger"
)

var _ editor.DraftAPI = (*client.DraftsClient)(nil)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	tpl := filepath.Join(root, "w9.pdf")
	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(72, 72, "Form W-9")
	require.NoError(t, pdf.OutputFileAndClose(tpl))

	files, err := storage.NewLocalFileStore(filepath.Join(root, "storage"), logger.Nop())
	require.NoError(t, err)
	svc := service.NewDraftService(
		repository.NewMemoryDraftRepository(),
		repository.NewMemoryTemplateRepository(domain.Template{ID: "w9", Name: "W-9", StoredPath: tpl}),
		files,
		export.NewPDFExporter(files, logger.Nop()),
		logger.Nop(),
		service.WithVersionGuard(service.NewLocalGuard()),
	)
	router := handler.NewRouter(
		handler.NewDraftHandler(svc, logger.Nop()),
		handler.NewHeaderAuthMiddleware(logger.Nop()).Middleware,
		handler.RouterOptions{Logger: logger.Nop()},
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestEditorSession_AgainstServer(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	api := client.NewDraftsClient(srv.URL, client.WithUserID("alice"))
	vp := domain.Viewport{Scale: 1.5, PageWidthPt: 612, PageHeightPt: 792}

	session := editor.NewSession(api, "w9", json.RawMessage(`{"name":"Ada"}`), logger.Nop(), editor.WithMode(editor.ModeInkDraw))
	ed := session.Editor()
	ed.PointerDown(0, vp, domain.Point{X: 30, Y: 30})
	ed.PointerMove(0, vp, domain.Point{X: 90, Y: 120})
	ed.PointerMove(0, vp, domain.Point{X: 150, Y: 60})
	ed.PointerUp(0)
	require.Equal(t, 1, ed.Annotations().Len())

	require.NoError(t, session.Save(ctx))
	assert.Equal(t, 1, session.Version())
	assert.False(t, session.Dirty())

	result, err := session.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.DraftID(), result.DraftID)

	pdfBytes, err := api.GetExportFile(ctx, session.DraftID())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")))

	reopened, err := editor.OpenSession(ctx, api, session.DraftID(), logger.Nop())
	require.NoError(t, err)
	assert.True(t, reopened.Editor().Annotations().Equal(ed.Annotations()))
	assert.JSONEq(t, `{"name":"Ada"}`, string(reopened.FormData()))

	require.NoError(t, reopened.SaveAsNewVersion(ctx))
	assert.Equal(t, 2, reopened.Version())

	list, err := api.ListDrafts(ctx, "w9")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Version)
}

func TestDraftsClient_ErrorsAgainstServer(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	_, err := client.NewDraftsClient(srv.URL).GetDraft(ctx, "d1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized), "got %v", err)

	api := client.NewDraftsClient(srv.URL, client.WithUserID("alice"))
	_, err = api.GetDraft(ctx, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound), "got %v", err)

	_, err = api.CreateDraft(ctx, domain.CreateDraftRequest{TemplateID: "nope", FormData: json.RawMessage(`{}`)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)

	bad := "not-a-data-url"
	_, err = api.CreateDraft(ctx, domain.CreateDraftRequest{TemplateID: "w9", FormData: json.RawMessage(`{}`), DrawingDataURL: &bad})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "got %v", err)

	list, err := api.ListDrafts(ctx, "w9")
	require.NoError(t, err)
	assert.Empty(t, list)
}
