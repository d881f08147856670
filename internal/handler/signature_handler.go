package handler

import (
	"net/http"
	"strings"

	"pdf-workbench/internal/domain"
	"pdf-workbench/internal/service"
)

// SignatureHandler creates signers, signs documents and verifies
// signatures.
type SignatureHandler struct {
	editor *service.EditorService
	signer *service.SignatureService
	logger domain.Logger
}

// NewSignatureHandler creates a new signature handler
func NewSignatureHandler(editor *service.EditorService, signer *service.SignatureService, logger domain.Logger) *SignatureHandler {
	return &SignatureHandler{
		editor: editor,
		signer: signer,
		logger: logger,
	}
}

type createSignerRequest struct {
	Identity    string `json:"identity"`
	Passphrase  string `json:"passphrase"`
	Destination string `json:"destination"`
}

// CreateSigner generates a key pair and publishes its public key.
func (h *SignatureHandler) CreateSigner(w http.ResponseWriter, r *http.Request) {
	var req createSignerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	pair, err := h.signer.GenerateKeypair(r.Context(), req.Destination, req.Identity, req.Passphrase)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

type signRequest struct {
	DocumentID     string   `json:"document_id"`
	Identity       string   `json:"identity"`
	Passphrase     string   `json:"passphrase"`
	PrivateKeyPath string   `json:"private_key_path"`
	Answers        []string `json:"answers"`
}

// Sign signs an open document. Documents that need saving first take the
// file name from answers.
func (h *SignatureHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "document_id is required")
		return
	}
	if strings.TrimSpace(req.Identity) == "" && req.PrivateKeyPath == "" {
		writeError(w, http.StatusBadRequest, "identity or private_key_path is required")
		return
	}
	res, err := h.editor.Sign(req.DocumentID, req.Identity, req.Passphrase, req.PrivateKeyPath, prompter(req.Answers))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type verifyRequest struct {
	SignaturePath string `json:"signature_path"`
	PDFPath       string `json:"pdf_path"`
	PublicKey     string `json:"public_key"`
	Identity      string `json:"identity"`
}

// Verify checks a detached signature. The claimed signer defaults to the
// artifact's file name and the public key to the signer's published key.
func (h *SignatureHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if req.SignaturePath == "" || req.PDFPath == "" {
		writeError(w, http.StatusBadRequest, "signature_path and pdf_path are required")
		return
	}
	identity := req.Identity
	if identity == "" {
		identity = service.SignerFromSignaturePath(req.SignaturePath)
	}
	publicKey := req.PublicKey
	if publicKey == "" {
		publicKey = h.signer.PublicKeyLocation(identity)
	}

	result, err := h.signer.Verify(r.Context(), req.SignaturePath, req.PDFPath, publicKey, identity)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
