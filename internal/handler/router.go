package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": service})
	}
}

// NewRouter creates the editor API router with all routes configured
func NewRouter(
	documentHandler *DocumentHandler,
	signatureHandler *SignatureHandler,
	authMiddleware func(http.Handler) http.Handler,
	requestLogger func(http.Handler) http.Handler,
) http.Handler {
	router := mux.NewRouter()
	router.Use(requestLogger)

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", health("pdf-workbench")).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware)
	api.HandleFunc("/health", health("pdf-workbench")).Methods("GET")

	// Documents
	api.HandleFunc("/documents", documentHandler.ListDocuments).Methods("GET")
	api.HandleFunc("/documents", documentHandler.OpenDocument).Methods("POST")
	api.HandleFunc("/documents/blank", documentHandler.NewBlankDocument).Methods("POST")
	api.HandleFunc("/documents/active", documentHandler.GetActive).Methods("GET")
	api.HandleFunc("/documents/unsaved", documentHandler.GetUnsaved).Methods("GET")
	api.HandleFunc("/documents/{id}", documentHandler.GetDocument).Methods("GET")
	api.HandleFunc("/documents/{id}", documentHandler.CloseDocument).Methods("DELETE")
	api.HandleFunc("/documents/{id}/active", documentHandler.ActivateDocument).Methods("PUT")
	api.HandleFunc("/documents/{id}/markup", documentHandler.GetMarkup).Methods("GET")

	// Pages
	api.HandleFunc("/documents/{id}/pages/move", documentHandler.MovePage).Methods("POST")
	api.HandleFunc("/documents/{id}/pages/{page:[0-9]+}/rotate", documentHandler.RotatePage).Methods("POST")
	api.HandleFunc("/documents/{id}/pages/{page:[0-9]+}/blank", documentHandler.InsertBlankPage).Methods("POST")
	api.HandleFunc("/documents/{id}/pages/{page:[0-9]+}/current", documentHandler.SetCurrentPage).Methods("PUT")
	api.HandleFunc("/documents/{id}/pages/{page:[0-9]+}", documentHandler.DeletePage).Methods("DELETE")
	api.HandleFunc("/documents/{id}/watermark", documentHandler.Watermark).Methods("POST")
	api.HandleFunc("/documents/{id}/merge", documentHandler.Merge).Methods("POST")
	api.HandleFunc("/documents/{id}/merge/pages/{page:[0-9]+}", documentHandler.RemoveMergedPage).Methods("DELETE")

	// Markup
	api.HandleFunc("/documents/{id}/strokes", documentHandler.AddStroke).Methods("POST")
	api.HandleFunc("/documents/{id}/redactions", documentHandler.AddRedaction).Methods("POST")
	api.HandleFunc("/documents/{id}/highlights", documentHandler.AddHighlight).Methods("POST")

	// Save options and saving
	api.HandleFunc("/documents/{id}/security", documentHandler.SetPassword).Methods("PUT")
	api.HandleFunc("/documents/{id}/security", documentHandler.RemovePassword).Methods("DELETE")
	api.HandleFunc("/documents/{id}/compression", documentHandler.SetCompression).Methods("PUT")
	api.HandleFunc("/documents/{id}/metadata", documentHandler.UpdateMetadata).Methods("PATCH")
	api.HandleFunc("/documents/{id}/save", documentHandler.SaveDocument).Methods("POST")
	api.HandleFunc("/documents/{id}/snapshot", documentHandler.SaveTemporaryCopy).Methods("POST")

	// Output
	api.HandleFunc("/documents/{id}/thumbnails", documentHandler.GetThumbnails).Methods("GET")
	api.HandleFunc("/documents/{id}/extract/{kind}", documentHandler.Extract).Methods("POST")

	// Signatures
	api.HandleFunc("/signers", signatureHandler.CreateSigner).Methods("POST")
	api.HandleFunc("/signatures", signatureHandler.Sign).Methods("POST")
	api.HandleFunc("/signatures/verify", signatureHandler.Verify).Methods("POST")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:4173",
			"http://localhost:3000",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300,
	})

	return c.Handler(router)
}

// NewKeyRouter creates the public key server router.
func NewKeyRouter(keyHandler *KeyHandler, requestLogger func(http.Handler) http.Handler) http.Handler {
	router := mux.NewRouter()
	router.Use(requestLogger)

	router.HandleFunc("/health", health("pdf-workbench-keyserver")).Methods("GET")
	router.HandleFunc("/files/{name:.+}.pem", keyHandler.GetKey).Methods("GET")
	router.HandleFunc("/files/{name:.+}.pem", keyHandler.PutKey).Methods("POST")

	return router
}
