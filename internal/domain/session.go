package domain

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlankSourcePath is the source path of documents created from scratch.
const BlankSourcePath = "New File"

// Session is the editable state of one open document.
type Session struct {
	id            string
	sourcePath    string
	name          string
	content       Content
	password      string
	compressBasic bool
	compressMax   bool
	currentPage   int
	metadata      Metadata
	pages         []PageMarkup
	activeStroke  Stroke
	dirty         bool
	savedPath     string
}

// NewSession wraps content opened from sourcePath.
func NewSession(sourcePath string, content Content) *Session {
	s := &Session{
		id:         uuid.New().String(),
		sourcePath: sourcePath,
		name:       filepath.Base(sourcePath),
		content:    content,
		metadata:   DefaultMetadata(),
	}
	if content != nil {
		s.pages = make([]PageMarkup, content.PageCount())
	}
	return s
}

// NewBlankSession wraps content created from scratch.
func NewBlankSession(content Content) *Session {
	return NewSession(BlankSourcePath, content)
}

func (s *Session) ID() string           { return s.id }
func (s *Session) SourcePath() string   { return s.sourcePath }
func (s *Session) Name() string         { return s.name }
func (s *Session) Content() Content     { return s.content }
func (s *Session) Password() string     { return s.password }
func (s *Session) CompressBasic() bool  { return s.compressBasic }
func (s *Session) CompressMax() bool    { return s.compressMax }
func (s *Session) CurrentPage() int     { return s.currentPage }
func (s *Session) Metadata() Metadata   { return s.metadata }
func (s *Session) Dirty() bool          { return s.dirty }
func (s *Session) SavedPath() string    { return s.savedPath }
func (s *Session) ActiveStroke() Stroke { return append(Stroke(nil), s.activeStroke...) }

// PageCount is the number of pages of the underlying content.
func (s *Session) PageCount() int {
	if s.content == nil {
		return 0
	}
	return s.content.PageCount()
}

// Markup returns a copy of the per-page markup.
func (s *Session) Markup() []PageMarkup {
	out := make([]PageMarkup, len(s.pages))
	for i, m := range s.pages {
		out[i] = m.clone()
	}
	return out
}

// PageMarkup returns a copy of the markup of one page.
func (s *Session) PageMarkup(page int) (PageMarkup, error) {
	if page < 0 || page >= len(s.pages) {
		return PageMarkup{}, ErrIndexOutOfRange
	}
	return s.pages[page].clone(), nil
}

// SetDirty is called by the registry; use Registry.MarkDirty instead.
func (s *Session) SetDirty(dirty bool) { s.dirty = dirty }

// AddPageData inserts an empty markup slot at index.
func (s *Session) AddPageData(index int) error {
	if index < 0 || index > len(s.pages) {
		return ErrIndexOutOfRange
	}
	s.pages = append(s.pages, PageMarkup{})
	copy(s.pages[index+1:], s.pages[index:])
	s.pages[index] = PageMarkup{}
	return nil
}

// RemovePageData drops the markup slot at index and pulls the current page
// back into range.
func (s *Session) RemovePageData(index int) error {
	if index < 0 || index >= len(s.pages) {
		return ErrIndexOutOfRange
	}
	s.pages = append(s.pages[:index], s.pages[index+1:]...)
	if s.currentPage >= len(s.pages) && s.currentPage > 0 {
		s.currentPage = len(s.pages) - 1
	}
	return nil
}

// MovePageData moves the markup slot at from so that it follows the page
// order produced by moving page from in front of page to.
func (s *Session) MovePageData(from, to int) error {
	n := len(s.pages)
	if from < 0 || from >= n {
		return ErrIndexOutOfRange
	}
	m := s.pages[from]
	if to < 0 || to > n {
		to = n
	}
	if from < to {
		to--
	}
	s.pages = append(s.pages[:from], s.pages[from+1:]...)
	s.pages = append(s.pages, PageMarkup{})
	copy(s.pages[to+1:], s.pages[to:])
	s.pages[to] = m
	return nil
}

// ResetPageData resizes the markup to match the content, dropping any
// uncommitted markup. Used after operations that rebuild the page tree.
func (s *Session) ResetPageData() {
	s.pages = make([]PageMarkup, s.PageCount())
	s.activeStroke = nil
	s.clampCurrentPage()
}

// SetCurrentPage selects the page that receives stroke points.
func (s *Session) SetCurrentPage(page int) error {
	if page < 0 || page >= s.PageCount() {
		return ErrIndexOutOfRange
	}
	s.currentPage = page
	return nil
}

func (s *Session) clampCurrentPage() {
	if s.currentPage >= s.PageCount() {
		s.currentPage = s.PageCount() - 1
	}
	if s.currentPage < 0 {
		s.currentPage = 0
	}
}

// AppendStrokePoint extends the stroke being drawn.
func (s *Session) AppendStrokePoint(p Point) {
	s.activeStroke = append(s.activeStroke, p)
}

// EndStroke commits the active stroke to the current page when it has more
// than one point. The active stroke is always reset. Reports whether a
// stroke was committed.
func (s *Session) EndStroke() bool {
	stroke := s.activeStroke
	s.activeStroke = nil
	if len(stroke) < 2 || s.currentPage >= len(s.pages) {
		return false
	}
	s.pages[s.currentPage].Strokes = append(s.pages[s.currentPage].Strokes, stroke)
	return true
}

// AddRedaction records a redaction rectangle on page. Degenerate rectangles
// are ignored.
func (s *Session) AddRedaction(page int, r Rect) (bool, error) {
	if page < 0 || page >= len(s.pages) {
		return false, ErrIndexOutOfRange
	}
	if r.Empty() {
		return false, nil
	}
	s.pages[page].Redactions = append(s.pages[page].Redactions, r.Normalize())
	return true, nil
}

// AddHighlight records a highlight rectangle on page. Degenerate rectangles
// are ignored.
func (s *Session) AddHighlight(page int, r Rect) (bool, error) {
	if page < 0 || page >= len(s.pages) {
		return false, ErrIndexOutOfRange
	}
	if r.Empty() {
		return false, nil
	}
	s.pages[page].Highlights = append(s.pages[page].Highlights, r.Normalize())
	return true, nil
}

// ClearMarkup drops all committed markup, keeping one empty slot per page.
func (s *Session) ClearMarkup() {
	for i := range s.pages {
		s.pages[i] = PageMarkup{}
	}
}

func (s *Session) SetPassword(password string) { s.password = password }
func (s *Session) ClearPassword()              { s.password = "" }

// SetCompressBasic toggles stream compression. Turning it off also turns
// off maximum compression.
func (s *Session) SetCompressBasic(on bool) {
	s.compressBasic = on
	if !on {
		s.compressMax = false
	}
}

// SetCompressMax toggles maximum compression, which implies basic.
// Turning it off turns off compression entirely.
func (s *Session) SetCompressMax(on bool) {
	s.compressMax = on
	s.compressBasic = on
}

// SetMetadataField assigns a trimmed value to a metadata field. Blank
// values are ignored.
func (s *Session) SetMetadataField(field, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	if err := s.metadata.SetField(field, value); err != nil {
		return false, err
	}
	return true, nil
}

// SetMetadata replaces the metadata wholesale.
func (s *Session) SetMetadata(md Metadata) { s.metadata = md }

// ReplaceContent swaps the underlying content and resizes markup.
func (s *Session) ReplaceContent(c Content) {
	s.content = c
	s.ResetPageData()
}

// MarkSaved records the path of the last successful save.
func (s *Session) MarkSaved(path string) {
	s.savedPath = path
}

// Discard drops the content and all uncommitted state.
func (s *Session) Discard() {
	s.content = nil
	s.pages = nil
	s.activeStroke = nil
	s.password = ""
	s.currentPage = 0
}
