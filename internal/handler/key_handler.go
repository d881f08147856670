package handler

import (
	"io"
	"net/http"
	"strings"

	"pdf-workbench/internal/domain"

	"github.com/gorilla/mux"
)

// maxKeySize bounds uploaded public keys.
const maxKeySize = 64 << 10

// KeyHandler serves and accepts public key files.
type KeyHandler struct {
	repo   domain.KeyRepository
	logger domain.Logger
}

// NewKeyHandler creates a new key handler
func NewKeyHandler(repo domain.KeyRepository, logger domain.Logger) *KeyHandler {
	return &KeyHandler{repo: repo, logger: logger}
}

// GetKey downloads the key stored under the name before ".pem".
func (h *KeyHandler) GetKey(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	data, err := h.repo.Get(r.Context(), name)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.pem"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// PutKey stores the request body as a key. Names with a path are refused.
func (h *KeyHandler) PutKey(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "no subdirectories allowed")
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxKeySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "key file too large")
		return
	}
	if err := h.repo.Put(r.Context(), name, data); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}
