// Package handler provides HTTP handlers for the API.
package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"pdf-workbench/internal/domain"
	"pdf-workbench/internal/service"

	"github.com/gorilla/mux"
)

// maxUploadSize bounds uploaded PDFs.
const maxUploadSize = 100 << 20

// DocumentHandler exposes the open documents of the editor.
type DocumentHandler struct {
	editor *service.EditorService
	logger domain.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(editor *service.EditorService, logger domain.Logger) *DocumentHandler {
	return &DocumentHandler{
		editor: editor,
		logger: logger,
	}
}

type openRequest struct {
	Path    string   `json:"path"`
	Answers []string `json:"answers"`
}

// ListDocuments lists the open documents.
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.editor.Documents())
}

// OpenDocument opens a file by path, or imports an uploaded file sent as
// multipart form field "file". Password prompts are answered from
// "answers" (JSON) or repeated "answer" form fields.
func (h *DocumentHandler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.uploadDocument(w, r)
		return
	}

	var req openRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	doc, err := h.editor.Open(req.Path, prompter(req.Answers))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	// Sanitize filename (strip any path components)
	name := strings.TrimSpace(filepath.Base(header.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "document.pdf"
	}
	if strings.ToLower(filepath.Ext(name)) != ".pdf" {
		writeError(w, http.StatusBadRequest, "Unsupported file type. Allowed: PDF (.pdf).")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}
	doc, err := h.editor.Import(name, data, prompter(r.MultipartForm.Value["answer"]))
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// NewBlankDocument opens a document with one empty page.
func (h *DocumentHandler) NewBlankDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.editor.NewBlank()
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument describes one document.
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.editor.Document(mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetActive describes the active document.
func (h *DocumentHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	doc, err := h.editor.Active()
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetUnsaved lists the keys of documents with unsaved changes.
func (h *DocumentHandler) GetUnsaved(w http.ResponseWriter, r *http.Request) {
	keys := h.editor.Unsaved()
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"unsaved": keys})
}

// GetMarkup returns the markup not yet written into the document.
func (h *DocumentHandler) GetMarkup(w http.ResponseWriter, r *http.Request) {
	markup, err := h.editor.Markup(mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, markup)
}

// CloseDocument closes a document. ?discard=true drops unsaved changes.
func (h *DocumentHandler) CloseDocument(w http.ResponseWriter, r *http.Request) {
	discard, _ := strconv.ParseBool(r.URL.Query().Get("discard"))
	active, err := h.editor.Close(mux.Vars(r)["id"], discard)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"active": active})
}

// ActivateDocument makes a document the active one.
func (h *DocumentHandler) ActivateDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.editor.Activate(mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// respond writes the document summary returned by an editor operation.
func (h *DocumentHandler) respond(w http.ResponseWriter, doc service.DocumentSummary, err error) {
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type rotateRequest struct {
	Direction string `json:"direction"`
}

// RotatePage turns a page left or right.
func (h *DocumentHandler) RotatePage(w http.ResponseWriter, r *http.Request) {
	page, err := pathInt(r, "page")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	var req rotateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	var dir domain.Direction
	switch strings.ToLower(req.Direction) {
	case "left":
		dir = domain.RotateLeft
	case "right", "":
		dir = domain.RotateRight
	default:
		writeError(w, http.StatusBadRequest, "direction must be left or right")
		return
	}
	doc, err := h.editor.RotatePage(mux.Vars(r)["id"], page, dir)
	h.respond(w, doc, err)
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// MovePage moves a page in front of another one.
func (h *DocumentHandler) MovePage(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.MovePage(mux.Vars(r)["id"], req.From, req.To)
	h.respond(w, doc, err)
}

// DeletePage removes a page.
func (h *DocumentHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	page, err := pathInt(r, "page")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.DeletePage(mux.Vars(r)["id"], page)
	h.respond(w, doc, err)
}

// InsertBlankPage inserts an empty page in front of a page.
func (h *DocumentHandler) InsertBlankPage(w http.ResponseWriter, r *http.Request) {
	page, err := pathInt(r, "page")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.InsertBlankPage(mux.Vars(r)["id"], page)
	h.respond(w, doc, err)
}

// SetCurrentPage selects the page strokes are drawn on.
func (h *DocumentHandler) SetCurrentPage(w http.ResponseWriter, r *http.Request) {
	page, err := pathInt(r, "page")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.SetCurrentPage(mux.Vars(r)["id"], page)
	h.respond(w, doc, err)
}

type watermarkRequest struct {
	Image    string `json:"image"`
	Page     int    `json:"page"`
	AllPages bool   `json:"all_pages"`
}

// Watermark overlays an image.
func (h *DocumentHandler) Watermark(w http.ResponseWriter, r *http.Request) {
	var req watermarkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.Watermark(mux.Vars(r)["id"], req.Page, req.Image, req.AllPages)
	h.respond(w, doc, err)
}

type mergeRequest struct {
	SourceID string   `json:"source_id"`
	Path     string   `json:"path"`
	At       int      `json:"at"`
	From     int      `json:"from"`
	To       *int     `json:"to"`
	Answers  []string `json:"answers"`
}

// Merge inserts pages of another document or file.
func (h *DocumentHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	to := -1
	if req.To != nil {
		to = *req.To
	}
	src := service.MergeSource{SessionID: req.SourceID, Path: req.Path}
	doc, err := h.editor.Merge(mux.Vars(r)["id"], src, req.At, req.From, to, prompter(req.Answers))
	h.respond(w, doc, err)
}

// RemoveMergedPage drops a page while merging.
func (h *DocumentHandler) RemoveMergedPage(w http.ResponseWriter, r *http.Request) {
	page, err := pathInt(r, "page")
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.RemoveMergedPage(mux.Vars(r)["id"], page)
	h.respond(w, doc, err)
}

type strokeRequest struct {
	Page   int            `json:"page"`
	Points []domain.Point `json:"points"`
}

// AddStroke draws a freehand stroke.
func (h *DocumentHandler) AddStroke(w http.ResponseWriter, r *http.Request) {
	var req strokeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.AddStroke(mux.Vars(r)["id"], req.Page, req.Points)
	h.respond(w, doc, err)
}

type areaRequest struct {
	Page int         `json:"page"`
	Rect domain.Rect `json:"rect"`
}

// AddRedaction marks an area for redaction.
func (h *DocumentHandler) AddRedaction(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.AddRedaction(mux.Vars(r)["id"], req.Page, req.Rect)
	h.respond(w, doc, err)
}

// AddHighlight marks an area for highlighting.
func (h *DocumentHandler) AddHighlight(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.AddHighlight(mux.Vars(r)["id"], req.Page, req.Rect)
	h.respond(w, doc, err)
}

type passwordRequest struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

// SetPassword encrypts the document on its next save.
func (h *DocumentHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.SetPassword(mux.Vars(r)["id"], req.Password, req.Confirm)
	h.respond(w, doc, err)
}

// RemovePassword stops encrypting the document.
func (h *DocumentHandler) RemovePassword(w http.ResponseWriter, r *http.Request) {
	doc, err := h.editor.RemovePassword(mux.Vars(r)["id"])
	h.respond(w, doc, err)
}

type compressionRequest struct {
	Basic bool `json:"basic"`
	Max   bool `json:"max"`
}

// SetCompression selects the compression used on save.
func (h *DocumentHandler) SetCompression(w http.ResponseWriter, r *http.Request) {
	var req compressionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.SetCompression(mux.Vars(r)["id"], req.Basic, req.Max)
	h.respond(w, doc, err)
}

// UpdateMetadata sets metadata fields.
func (h *DocumentHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}
	if err := decodeJSON(w, r, &fields); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	doc, err := h.editor.UpdateMetadata(mux.Vars(r)["id"], fields)
	h.respond(w, doc, err)
}

type saveRequest struct {
	Answers []string `json:"answers"`
	Forced  bool     `json:"forced"`
}

// SaveDocument saves a document under the name given in answers.
func (h *DocumentHandler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	path, saved, err := h.editor.Save(mux.Vars(r)["id"], prompter(req.Answers), req.Forced)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"path": path, "saved": saved})
}

// SaveTemporaryCopy writes a timestamped copy to the working directory.
func (h *DocumentHandler) SaveTemporaryCopy(w http.ResponseWriter, r *http.Request) {
	path, err := h.editor.SaveTemporaryCopy(mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}

// GetThumbnails returns base64 encoded PNG previews of every page.
func (h *DocumentHandler) GetThumbnails(w http.ResponseWriter, r *http.Request) {
	thumbs, err := h.editor.Thumbnails(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, thumbs)
}

type extractRequest struct {
	Name string `json:"name"`
	Page int    `json:"page"`
}

// Extract writes text, images or a page screenshot to the working
// directory.
func (h *DocumentHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	vars := mux.Vars(r)
	path, err := h.editor.Extract(vars["id"], vars["kind"], req.Name, req.Page)
	if err != nil {
		writeAppError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": path})
}
