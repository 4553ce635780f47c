package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"pdf-form-drafts/internal/domain"
)

// RouterOptions carries the cross-cutting pieces NewRouter wires around the
// draft routes.
type RouterOptions struct {
	AllowedOrigins []string
	ExportLimiter  func(http.Handler) http.Handler
	Logger         domain.Logger
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	draftHandler *DraftHandler,
	authMiddleware func(http.Handler) http.Handler,
	opts RouterOptions,
) http.Handler {
	router := mux.NewRouter()
	if opts.Logger != nil {
		router.Use(mux.MiddlewareFunc(RequestLogger(opts.Logger)))
	}

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "pdf-form-drafts"})
	}).Methods(http.MethodGet)

	protected := router.PathPrefix("/api/v1").Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/drafts", draftHandler.CreateDraft).Methods(http.MethodPost)
	protected.HandleFunc("/drafts", draftHandler.ListDrafts).Methods(http.MethodGet)
	protected.HandleFunc("/drafts/{id}", draftHandler.GetDraft).Methods(http.MethodGet)
	protected.HandleFunc("/drafts/{id}", draftHandler.UpdateDraft).Methods(http.MethodPut)
	protected.HandleFunc("/drafts/{id}/drawing", draftHandler.GetDrawing).Methods(http.MethodGet)
	protected.HandleFunc("/drafts/{id}/export/file", draftHandler.GetExportFile).Methods(http.MethodGet)

	var export http.Handler = http.HandlerFunc(draftHandler.ExportDraft)
	if opts.ExportLimiter != nil {
		export = opts.ExportLimiter(export)
	}
	protected.Handle("/drafts/{id}/export", export).Methods(http.MethodPost)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			userIDHeader,
			requestIDHeader,
		},
		ExposedHeaders: []string{
			requestIDHeader,
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
