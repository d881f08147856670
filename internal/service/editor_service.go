package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"pdf-workbench/internal/domain"
)

const (
	openPromptTitle = "Open PDF"
	openPromptLabel = "Password"
)

// DocumentSummary describes one open document.
type DocumentSummary struct {
	ID            string          `json:"id"`
	Key           string          `json:"key"`
	Name          string          `json:"name"`
	SourcePath    string          `json:"source_path"`
	SavedPath     string          `json:"saved_path,omitempty"`
	Pages         int             `json:"pages"`
	CurrentPage   int             `json:"current_page"`
	Active        bool            `json:"active"`
	Dirty         bool            `json:"dirty"`
	Protected     bool            `json:"protected"`
	CompressBasic bool            `json:"compress_basic"`
	CompressMax   bool            `json:"compress_max"`
	Metadata      domain.Metadata `json:"metadata"`
}

// MergeSource names the document pages are merged from: another open
// document or a file.
type MergeSource struct {
	SessionID string
	Path      string
}

// EditorService owns the open documents. All operations are serialized.
type EditorService struct {
	mu       sync.Mutex
	registry *domain.Registry
	active   string

	engine  domain.DocumentEngine
	saver   *SaveService
	signer  *SignatureService
	preview *PreviewService
	extract *ExtractService
	logger  domain.Logger
}

// NewEditorService wires an editor over its collaborators.
func NewEditorService(
	engine domain.DocumentEngine,
	saver *SaveService,
	signer *SignatureService,
	preview *PreviewService,
	extract *ExtractService,
	logger domain.Logger,
) *EditorService {
	return &EditorService{
		registry: domain.NewRegistry(),
		engine:   engine,
		saver:    saver,
		signer:   signer,
		preview:  preview,
		extract:  extract,
		logger:   logger,
	}
}

// lookup finds a session by id. Callers hold mu.
func (e *EditorService) lookup(id string) (*domain.Session, string, error) {
	for _, key := range e.registry.Keys() {
		s, err := e.registry.Get(key)
		if err != nil {
			continue
		}
		if s.ID() == id {
			return s, strings.TrimPrefix(key, "*"), nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
}

func (e *EditorService) summary(s *domain.Session, key string) DocumentSummary {
	if s.Dirty() {
		key = "*" + key
	}
	return DocumentSummary{
		ID:            s.ID(),
		Key:           key,
		Name:          s.Name(),
		SourcePath:    s.SourcePath(),
		SavedPath:     s.SavedPath(),
		Pages:         s.PageCount(),
		CurrentPage:   s.CurrentPage(),
		Active:        s.ID() == e.active,
		Dirty:         s.Dirty(),
		Protected:     s.Password() != "",
		CompressBasic: s.CompressBasic(),
		CompressMax:   s.CompressMax(),
		Metadata:      s.Metadata(),
	}
}

// unlock asks for the password of an encrypted document until it opens,
// the prompt is dismissed or the attempts run out. It returns the password
// that worked.
func unlock(c domain.Content, prompter domain.Prompter) (string, error) {
	if c.Authenticate("") {
		return "", nil
	}
	if prompter == nil {
		return "", domain.ErrWrongPassword
	}
	for i := 0; i < MaxPromptAttempts; i++ {
		pw, ok := prompter.PromptText(openPromptTitle, openPromptLabel)
		if !ok {
			return "", domain.ErrCancelled
		}
		if c.Authenticate(pw) {
			return pw, nil
		}
	}
	return "", domain.ErrWrongPassword
}

// register adds and activates a session. Callers hold mu.
func (e *EditorService) register(s *domain.Session) (DocumentSummary, error) {
	key, err := e.registry.Add(s)
	if err != nil {
		return DocumentSummary{}, err
	}
	e.active = s.ID()
	e.refreshPreview(s)
	e.logger.Info("Document opened", "key", key, "pages", s.PageCount())
	return e.summary(s, key), nil
}

func (e *EditorService) openSession(sourcePath string, c domain.Content, prompter domain.Prompter) (DocumentSummary, error) {
	pw, err := unlock(c, prompter)
	if err != nil {
		return DocumentSummary{}, err
	}
	s := domain.NewSession(sourcePath, c)
	if pw != "" {
		s.SetPassword(pw)
	}
	return e.register(s)
}

// Open opens a PDF file. Encrypted files ask prompter for the password.
func (e *EditorService) Open(path string, prompter domain.Prompter) (DocumentSummary, error) {
	c, err := e.engine.Open(path)
	if err != nil {
		return DocumentSummary{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openSession(path, c, prompter)
}

// Import opens PDF bytes received under name.
func (e *EditorService) Import(name string, data []byte, prompter domain.Prompter) (DocumentSummary, error) {
	if strings.TrimSpace(name) == "" {
		return DocumentSummary{}, domain.NewValidationError("name", "a file name is required")
	}
	c, err := e.engine.OpenBytes(data)
	if err != nil {
		return DocumentSummary{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openSession(name, c, prompter)
}

// NewBlank opens a new document with one empty page.
func (e *EditorService) NewBlank() (DocumentSummary, error) {
	c, err := e.engine.NewBlank()
	if err != nil {
		return DocumentSummary{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.register(domain.NewBlankSession(c))
}

// Documents lists the open documents in the order they were opened.
func (e *EditorService) Documents() []DocumentSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]DocumentSummary, 0, e.registry.Len())
	for _, key := range e.registry.Keys() {
		s, err := e.registry.Get(key)
		if err != nil {
			continue
		}
		out = append(out, e.summary(s, strings.TrimPrefix(key, "*")))
	}
	return out
}

// Document describes one open document.
func (e *EditorService) Document(id string) (DocumentSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, key, err := e.lookup(id)
	if err != nil {
		return DocumentSummary{}, err
	}
	return e.summary(s, key), nil
}

// Markup returns the uncommitted markup of every page.
func (e *EditorService) Markup(id string) ([]domain.PageMarkup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, _, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.Markup(), nil
}

// Unsaved lists the keys of documents with unsaved changes.
func (e *EditorService) Unsaved() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Unsaved()
}

// Activate makes a document the active one.
func (e *EditorService) Activate(id string) (DocumentSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, key, err := e.lookup(id)
	if err != nil {
		return DocumentSummary{}, err
	}
	e.active = id
	e.refreshPreview(s)
	return e.summary(s, key), nil
}

// Active describes the active document.
func (e *EditorService) Active() (DocumentSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == "" {
		return DocumentSummary{}, domain.ErrNoActiveDocument
	}
	s, key, err := e.lookup(e.active)
	if err != nil {
		return DocumentSummary{}, err
	}
	return e.summary(s, key), nil
}

// Close closes a document. Unsaved changes are refused unless discard is
// set. When the active document closes, its left neighbour becomes active,
// else its right one. The id of the new active document is returned.
func (e *EditorService) Close(id string, discard bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, key, err := e.lookup(id)
	if err != nil {
		return "", err
	}
	if s.Dirty() && !discard {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsavedChanges, key)
	}

	if e.active == id {
		e.active = ""
		if next, ok := e.registry.Neighbour(key); ok {
			if ns, err := e.registry.Get(next); err == nil {
				e.active = ns.ID()
			}
		}
	}
	if err := e.registry.Remove(key); err != nil {
		return "", err
	}
	s.Discard()
	if e.preview != nil {
		e.preview.Forget(id)
	}
	if e.active != "" {
		if ns, _, err := e.lookup(e.active); err == nil {
			e.refreshPreview(ns)
		}
	}
	e.logger.Info("Document closed", "key", key, "discarded", discard)
	return e.active, nil
}

// mutate runs fn on a session, then marks it dirty and refreshes the
// previews of the active document.
func (e *EditorService) mutate(id string, fn func(s *domain.Session) error) (DocumentSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, key, err := e.lookup(id)
	if err != nil {
		return DocumentSummary{}, err
	}
	if s.Content() == nil {
		return DocumentSummary{}, domain.ErrInvalidSession
	}
	if err := fn(s); err != nil {
		return DocumentSummary{}, err
	}
	if err := e.registry.MarkDirty(key); err != nil {
		return DocumentSummary{}, err
	}
	e.refreshPreview(s)
	return e.summary(s, key), nil
}

// RotatePage turns one page by 90 degrees.
func (e *EditorService) RotatePage(id string, page int, dir domain.Direction) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		return RotatePage(s.Content(), page, dir)
	})
}

// MovePage moves page from in front of page to, carrying its markup along.
func (e *EditorService) MovePage(id string, from, to int) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		n := s.PageCount()
		if err := MovePage(s.Content(), from, to); err != nil {
			return err
		}
		if from >= 0 && from < n {
			return s.MovePageData(from, to)
		}
		return nil
	})
}

// DeletePage removes one page and its markup.
func (e *EditorService) DeletePage(id string, page int) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		if err := DeletePage(s.Content(), page); err != nil {
			return err
		}
		return s.RemovePageData(page)
	})
}

// InsertBlankPage inserts an empty page in front of page.
func (e *EditorService) InsertBlankPage(id string, page int) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		if err := InsertBlankPage(s.Content(), page); err != nil {
			return err
		}
		return s.AddPageData(page)
	})
}

// Watermark overlays an image on one page or on every page.
func (e *EditorService) Watermark(id string, page int, imagePath string, allPages bool) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		return Watermark(s.Content(), page, imagePath, allPages)
	})
}

// Merge inserts pages [from,to] of a source document in front of page at.
// to == -1 runs through the end of the source.
func (e *EditorService) Merge(id string, src MergeSource, at, from, to int, prompter domain.Prompter) (DocumentSummary, error) {
	var fileContent domain.Content
	if src.SessionID == "" {
		if src.Path == "" {
			return DocumentSummary{}, domain.NewValidationError("source", "a source document or path is required")
		}
		c, err := e.engine.Open(src.Path)
		if err != nil {
			return DocumentSummary{}, err
		}
		if _, err := unlock(c, prompter); err != nil {
			return DocumentSummary{}, err
		}
		fileContent = c
	}

	return e.mutate(id, func(s *domain.Session) error {
		source := fileContent
		if source == nil {
			other, _, err := e.lookup(src.SessionID)
			if err != nil {
				return err
			}
			if other.Content() == nil {
				return domain.ErrInvalidSession
			}
			source = other.Content().Clone()
		}

		before := s.PageCount()
		if err := MergeInsert(s.Content(), source, at, from, to); err != nil {
			return err
		}
		for i := before; i < s.PageCount(); i++ {
			if err := s.AddPageData(at); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveMergedPage rebuilds the document without one page.
func (e *EditorService) RemoveMergedPage(id string, page int) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		n := s.PageCount()
		if err := RemovePageFromMerged(s.Content(), page); err != nil {
			return err
		}
		if page < n {
			return s.RemovePageData(page)
		}
		return nil
	})
}

// SetCurrentPage selects the page freehand strokes are drawn on.
func (e *EditorService) SetCurrentPage(id string, page int) (DocumentSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, key, err := e.lookup(id)
	if err != nil {
		return DocumentSummary{}, err
	}
	if err := s.SetCurrentPage(page); err != nil {
		return DocumentSummary{}, err
	}
	return e.summary(s, key), nil
}

// AddStroke draws a freehand stroke on page. Strokes with fewer than two
// points are dropped.
func (e *EditorService) AddStroke(id string, page int, points []domain.Point) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		if err := s.SetCurrentPage(page); err != nil {
			return err
		}
		for _, p := range points {
			s.AppendStrokePoint(p)
		}
		s.EndStroke()
		return nil
	})
}

// AddRedaction marks an area of page for redaction on save.
func (e *EditorService) AddRedaction(id string, page int, r domain.Rect) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		_, err := s.AddRedaction(page, r)
		return err
	})
}

// AddHighlight marks an area of page for highlighting on save.
func (e *EditorService) AddHighlight(id string, page int, r domain.Rect) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		_, err := s.AddHighlight(page, r)
		return err
	})
}

// SetPassword sets the password the document is encrypted with on save.
func (e *EditorService) SetPassword(id, password, confirm string) (DocumentSummary, error) {
	if password == "" {
		return DocumentSummary{}, domain.NewValidationError("password", "password must not be empty")
	}
	if password != confirm {
		return DocumentSummary{}, domain.NewValidationError("confirm", "passwords do not match")
	}
	return e.mutate(id, func(s *domain.Session) error {
		if s.Password() != "" {
			return domain.NewValidationError("password", "document already has a password")
		}
		s.SetPassword(password)
		return nil
	})
}

// RemovePassword saves the document without encryption from now on.
func (e *EditorService) RemovePassword(id string) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		s.ClearPassword()
		return nil
	})
}

// SetCompression selects the compression used on save. Maximum
// compression implies basic compression.
func (e *EditorService) SetCompression(id string, basic, maximum bool) (DocumentSummary, error) {
	return e.mutate(id, func(s *domain.Session) error {
		s.SetCompressMax(maximum)
		if !maximum {
			s.SetCompressBasic(basic)
		}
		return nil
	})
}

// UpdateMetadata sets metadata fields. Blank values are ignored; unknown
// fields fail before anything is changed.
func (e *EditorService) UpdateMetadata(id string, fields map[string]string) (DocumentSummary, error) {
	probe := domain.Metadata{}
	for field, value := range fields {
		if err := probe.SetField(field, value); err != nil {
			return DocumentSummary{}, err
		}
	}
	return e.mutate(id, func(s *domain.Session) error {
		for field, value := range fields {
			if _, err := s.SetMetadataField(field, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Save saves a document; see SaveService.Save.
func (e *EditorService) Save(id string, prompter domain.Prompter, forced bool) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, key, err := e.lookup(id)
	if err != nil {
		return "", false, err
	}
	path, saved, err := e.saver.Save(s, prompter, forced)
	if err != nil || !saved {
		return path, saved, err
	}
	if err := e.registry.MarkClean(key); err != nil {
		return "", false, err
	}
	e.refreshPreview(s)
	return path, true, nil
}

// SaveTemporaryCopy writes the current pages to the working directory.
func (e *EditorService) SaveTemporaryCopy(id string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, _, err := e.lookup(id)
	if err != nil {
		return "", err
	}
	return e.saver.SaveTemporaryCopy(s)
}

// Snapshot returns a copy of the current document bytes.
func (e *EditorService) Snapshot(id string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, _, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	if s.Content() == nil {
		return nil, domain.ErrInvalidSession
	}
	return append([]byte(nil), s.Content().Bytes()...), nil
}

// pageCheck validates, before each rendered page, that the document is
// still open, optionally still active, and still has the page.
func (e *EditorService) pageCheck(id string, activeOnly bool) PageCheck {
	return func(page int) error {
		e.mu.Lock()
		defer e.mu.Unlock()
		s, key, err := e.lookup(id)
		if err != nil {
			return err
		}
		if activeOnly && e.active != id {
			return fmt.Errorf("%w: %s is no longer active", domain.ErrKeyNotFound, key)
		}
		if page >= s.PageCount() {
			return fmt.Errorf("%w: page %d of %d", domain.ErrIndexOutOfRange, page, s.PageCount())
		}
		return nil
	}
}

// refreshPreview starts a background thumbnail pass for the active
// document. Callers hold mu.
func (e *EditorService) refreshPreview(s *domain.Session) {
	if e.preview == nil || s.ID() != e.active || s.Content() == nil {
		return
	}
	data := append([]byte(nil), s.Content().Bytes()...)
	e.preview.Trigger(s.ID(), data, e.pageCheck(s.ID(), true))
}

// Thumbnails returns page previews, from the last background pass when it
// is available and rendered on demand otherwise.
func (e *EditorService) Thumbnails(ctx context.Context, id string) ([]Thumbnail, error) {
	if e.preview == nil {
		return nil, errors.New("previews are not configured")
	}
	data, err := e.Snapshot(id)
	if err != nil {
		return nil, err
	}
	if thumbs, ok := e.preview.Cached(id); ok {
		return thumbs, nil
	}
	return e.preview.Render(ctx, data, e.pageCheck(id, false))
}

// Extraction kinds.
const (
	ExtractText       = "text"
	ExtractImages     = "images"
	ExtractScreenshot = "screenshot"
)

// Extract writes the text, the images or a page screenshot of a document to
// the working directory and returns where.
func (e *EditorService) Extract(id, kind, name string, page int) (string, error) {
	if e.extract == nil {
		return "", errors.New("extraction is not configured")
	}
	data, err := e.Snapshot(id)
	if err != nil {
		return "", err
	}
	switch kind {
	case ExtractText:
		return e.extract.ExtractText(name, data)
	case ExtractImages:
		return e.extract.ExtractImages(name, data)
	case ExtractScreenshot:
		return e.extract.Screenshot(name, data, page)
	}
	return "", domain.NewValidationError("kind", fmt.Sprintf("unknown extraction %q", kind))
}

// SignResult reports where a signature was stored.
type SignResult struct {
	Status        string `json:"status"`
	PDFPath       string `json:"pdf_path"`
	SignaturePath string `json:"signature_path"`
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Sign signs the file behind a document. Documents with unsaved changes,
// or that were never written to disk, are saved first with a forced save.
func (e *EditorService) Sign(id, identity, passphrase, privateKeyPath string, prompter domain.Prompter) (SignResult, error) {
	if e.signer == nil {
		return SignResult{}, errors.New("signing is not configured")
	}
	if strings.TrimSpace(identity) == "" {
		identity = SignerFromPrivateKeyPath(privateKeyPath)
	}
	if privateKeyPath == "" {
		privateKeyPath = e.signer.PrivateKeyPath(identity)
	}

	e.mu.Lock()
	s, key, err := e.lookup(id)
	if err != nil {
		e.mu.Unlock()
		return SignResult{}, err
	}
	pdfPath := s.SavedPath()
	if s.Dirty() || (pdfPath == "" && !fileExists(s.SourcePath())) {
		pdfPath, err = e.saver.SaveCopyToSign(s, prompter)
		if err == nil {
			err = e.registry.MarkClean(key)
		}
		if err != nil {
			e.mu.Unlock()
			return SignResult{}, err
		}
	} else if pdfPath == "" {
		pdfPath = s.SourcePath()
	}
	e.mu.Unlock()

	sigPath := e.signer.SignaturePath(pdfPath, identity)
	status, err := e.signer.Sign(sigPath, pdfPath, identity, passphrase, privateKeyPath)
	if err != nil {
		return SignResult{}, err
	}
	return SignResult{Status: status, PDFPath: pdfPath, SignaturePath: sigPath}, nil
}
