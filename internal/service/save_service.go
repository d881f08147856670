package service

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdf-workbench/internal/domain"
	"pdf-workbench/internal/pdfdoc"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxPromptAttempts bounds prompt loops that repeat until they get an answer.
const MaxPromptAttempts = 5

const (
	savePromptTitle     = "Save PDF"
	savePromptLabel     = "Filename"
	signSavePromptTitle = "Save a Copy to Sign"

	isoDate        = "2006-01-02"
	snapshotLayout = "2006-01-02_15-04-05"
)

// SaveService writes sessions to disk.
type SaveService struct {
	saveDir string
	workDir string
	logger  domain.Logger
	now     func() time.Time
	titler  cases.Caser
}

// NewSaveService creates a save service. Relative file names resolve
// under saveDir; temporary copies go to workDir.
func NewSaveService(saveDir, workDir string, logger domain.Logger) *SaveService {
	return &SaveService{
		saveDir: saveDir,
		workDir: workDir,
		logger:  logger,
		now:     time.Now,
		titler:  cases.Title(language.Und),
	}
}

// WithClock replaces the clock used for date stamps.
func (s *SaveService) WithClock(now func() time.Time) *SaveService {
	s.now = now
	return s
}

// ResolveFilename strips one case-insensitive .pdf suffix and appends .pdf.
func ResolveFilename(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = name[:len(name)-len(".pdf")]
	}
	return name + ".pdf"
}

// Save prompts for a file name and writes the session there with its
// metadata, markup, compression and password applied. A dismissed prompt
// returns saved == false and no error unless the save is forced, in which
// case empty answers are asked again and a dismissal fails with
// ErrCancelled.
func (s *SaveService) Save(session *domain.Session, prompter domain.Prompter, forced bool) (string, bool, error) {
	return s.save(session, prompter, forced, savePromptTitle)
}

// SaveCopyToSign is the forced save that precedes signing a modified
// document.
func (s *SaveService) SaveCopyToSign(session *domain.Session, prompter domain.Prompter) (string, error) {
	path, _, err := s.save(session, prompter, true, signSavePromptTitle)
	return path, err
}

func (s *SaveService) save(session *domain.Session, prompter domain.Prompter, forced bool, title string) (string, bool, error) {
	if session == nil || session.Content() == nil {
		return "", false, domain.ErrInvalidSession
	}

	name, ok := s.promptFilename(prompter, forced, title)
	if !ok {
		if forced {
			return "", false, domain.ErrCancelled
		}
		s.logger.Debug("Save cancelled", "document", session.Name())
		return "", false, nil
	}
	path := s.resolvePath(name)

	opts := domain.WriteOptions{
		Deflate:  session.CompressBasic() || session.CompressMax(),
		Password: session.Password(),
	}
	if session.CompressMax() {
		opts.GarbageLevel = pdfdoc.MaxGarbageLevel
	}

	md := session.Metadata()
	if md.Title == "" {
		md.Title = s.titler.String(strings.TrimSuffix(filepath.Base(path), ".pdf"))
	}
	today := s.now().Format(isoDate)
	md.CreationDate = today
	md.ModDate = today

	// Markup is committed on a copy so a failed write leaves the session
	// untouched.
	work := session.Content().Clone()
	if err := work.SetMetadata(md); err != nil {
		return "", false, fmt.Errorf("set metadata: %w", err)
	}
	if err := commitMarkup(work, session.Markup()); err != nil {
		return "", false, err
	}

	var buf bytes.Buffer
	if err := work.Write(&buf, opts); err != nil {
		return "", false, fmt.Errorf("write %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", false, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", false, fmt.Errorf("write %s: %w", path, err)
	}

	session.SetMetadata(md)
	session.ReplaceContent(work)
	session.MarkSaved(path)
	s.logger.Info("Document saved", "document", session.Name(), "path", path,
		"encrypted", opts.Password != "", "garbage", opts.GarbageLevel, "deflate", opts.Deflate)
	return path, true, nil
}

func (s *SaveService) promptFilename(prompter domain.Prompter, forced bool, title string) (string, bool) {
	if prompter == nil {
		return "", false
	}
	attempts := 1
	if forced {
		attempts = MaxPromptAttempts
	}
	for i := 0; i < attempts; i++ {
		name, ok := prompter.PromptText(title, savePromptLabel)
		if !ok {
			return "", false
		}
		if strings.TrimSpace(name) != "" {
			return ResolveFilename(name), true
		}
	}
	return "", false
}

func (s *SaveService) resolvePath(name string) string {
	if filepath.IsAbs(name) || s.saveDir == "" {
		return name
	}
	return filepath.Join(s.saveDir, name)
}

// commitMarkup adds, per page and in this order, the ink annotation, the
// redactions (applied right away) and the highlights.
func commitMarkup(c domain.Content, pages []domain.PageMarkup) error {
	for i, m := range pages {
		if i >= c.PageCount() {
			break
		}
		if len(m.Strokes) > 0 {
			if err := c.AddInk(i, m.Strokes); err != nil {
				return fmt.Errorf("add ink to page %d: %w", i, err)
			}
		}
		if len(m.Redactions) > 0 {
			if err := c.AddRedactions(i, m.Redactions); err != nil {
				return fmt.Errorf("add redactions to page %d: %w", i, err)
			}
			if err := c.ApplyRedactions(i); err != nil {
				return fmt.Errorf("apply redactions on page %d: %w", i, err)
			}
		}
		if len(m.Highlights) > 0 {
			if err := c.AddHighlights(i, m.Highlights); err != nil {
				return fmt.Errorf("add highlights to page %d: %w", i, err)
			}
		}
	}
	return nil
}

// SaveTemporaryCopy writes the current content, without markup, to a time
// stamped file in the working directory.
func (s *SaveService) SaveTemporaryCopy(session *domain.Session) (string, error) {
	if session == nil || session.Content() == nil {
		return "", domain.ErrInvalidSession
	}
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}
	path := filepath.Join(s.workDir, s.now().Format(snapshotLayout)+".pdf")
	var buf bytes.Buffer
	if err := session.Content().Write(&buf, domain.WriteOptions{}); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}
