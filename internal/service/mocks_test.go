package service

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"pdf-workbench/internal/domain"
)

type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{messages: []string{}}
}

func (m *MockLogger) add(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, s)
}

func (m *MockLogger) Info(msg string, args ...interface{}) { m.add("INFO: " + msg) }
func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	m.add("ERROR: " + msg + " - " + fmt.Sprint(err))
}
func (m *MockLogger) Debug(msg string, args ...interface{}) { m.add("DEBUG: " + msg) }
func (m *MockLogger) Warn(msg string, args ...interface{})  { m.add("WARN: " + msg) }

func (m *MockLogger) Contains(prefix string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.messages {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// MockContent records every edit as a call string.
type MockContent struct {
	pages     int
	locked    bool
	password  string
	calls     []string
	metadata  domain.Metadata
	lastWrite domain.WriteOptions
	writeErr  error
}

func NewMockContent(pages int) *MockContent {
	return &MockContent{pages: pages}
}

func (m *MockContent) PageCount() int {
	if m.locked {
		return 0
	}
	return m.pages
}
func (m *MockContent) IsEncrypted() bool { return m.password != "" }

func (m *MockContent) Authenticate(password string) bool {
	if !m.locked {
		return true
	}
	if password == m.password {
		m.locked = false
		return true
	}
	return false
}

func (m *MockContent) Bytes() []byte { return []byte(fmt.Sprintf("%%PDF-mock pages=%d", m.pages)) }

func (m *MockContent) Clone() domain.Content {
	cp := *m
	cp.calls = append([]string(nil), m.calls...)
	return &cp
}

func (m *MockContent) record(format string, args ...interface{}) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *MockContent) check(index int) error {
	if index < 0 || index >= m.pages {
		return domain.ErrIndexOutOfRange
	}
	return nil
}

func (m *MockContent) RotatePage(index int, degrees int) error {
	m.record("rotate %d %d", index, degrees)
	return nil
}

func (m *MockContent) MovePage(from, to int) error {
	m.record("move %d %d", from, to)
	return nil
}

func (m *MockContent) DeletePage(index int) error {
	if err := m.check(index); err != nil {
		return err
	}
	m.record("delete %d", index)
	m.pages--
	return nil
}

func (m *MockContent) InsertBlankPage(index int) error {
	if index < 0 || index > m.pages {
		return domain.ErrIndexOutOfRange
	}
	m.record("blank %d", index)
	m.pages++
	return nil
}

func (m *MockContent) Watermark(index int, imagePath string, allPages bool) error {
	m.record("watermark %d %s %v", index, imagePath, allPages)
	return nil
}

func (m *MockContent) InsertPages(src domain.Content, at, from, to int) error {
	if to < 0 {
		to = src.PageCount() - 1
	}
	m.record("insert %d %d %d", at, from, to)
	m.pages += to - from + 1
	return nil
}

func (m *MockContent) RemovePage(index int) error {
	if index == m.pages {
		return nil
	}
	if err := m.check(index); err != nil {
		return err
	}
	m.record("remove %d", index)
	m.pages--
	return nil
}

func (m *MockContent) SetMetadata(md domain.Metadata) error {
	m.metadata = md
	m.record("metadata")
	return nil
}

func (m *MockContent) AddInk(page int, strokes []domain.Stroke) error {
	m.record("ink %d %d", page, len(strokes))
	return nil
}

func (m *MockContent) AddRedactions(page int, rects []domain.Rect) error {
	m.record("redact %d %d", page, len(rects))
	return nil
}

func (m *MockContent) ApplyRedactions(page int) error {
	m.record("apply %d", page)
	return nil
}

func (m *MockContent) AddHighlights(page int, rects []domain.Rect) error {
	m.record("highlight %d %d", page, len(rects))
	return nil
}

func (m *MockContent) Write(w io.Writer, opts domain.WriteOptions) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.lastWrite = opts
	_, err := w.Write(m.Bytes())
	return err
}

// MockPrompter replays answers; an exhausted prompter is dismissed.
type MockPrompter struct {
	answers []string
	asked   []string
}

func NewMockPrompter(answers ...string) *MockPrompter {
	return &MockPrompter{answers: answers}
}

func (p *MockPrompter) PromptText(title, label string) (string, bool) {
	p.asked = append(p.asked, title+"/"+label)
	if len(p.answers) == 0 {
		return "", false
	}
	v := p.answers[0]
	p.answers = p.answers[1:]
	return v, true
}

// MockEngine hands out MockContent.
type MockEngine struct {
	files     map[string]*MockContent
	extracted []string
}

func NewMockEngine() *MockEngine {
	return &MockEngine{files: map[string]*MockContent{}}
}

func (e *MockEngine) Open(path string) (domain.Content, error) {
	c, ok := e.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return c.Clone(), nil
}

func (e *MockEngine) OpenBytes(data []byte) (domain.Content, error) {
	var n int
	if _, err := fmt.Sscanf(string(data), "%%PDF-mock pages=%d", &n); err != nil {
		return nil, errors.New("not a pdf")
	}
	return NewMockContent(n), nil
}

func (e *MockEngine) NewBlank() (domain.Content, error) { return NewMockContent(1), nil }

func (e *MockEngine) ExtractImages(data []byte, outDir string) error {
	e.extracted = append(e.extracted, outDir)
	return nil
}

// MockRenderer renders every page as its index.
type MockRenderer struct {
	mu    sync.Mutex
	calls int
	text  map[int]string
}

func (r *MockRenderer) PageCount(data []byte) (int, error) {
	var n int
	if _, err := fmt.Sscanf(string(data), "%%PDF-mock pages=%d", &n); err != nil {
		return 0, errors.New("not a pdf")
	}
	return n, nil
}

func (r *MockRenderer) RenderPNG(data []byte, page int, width int) ([]byte, error) {
	n, err := r.PageCount(data)
	if err != nil {
		return nil, err
	}
	if page < 0 || page >= n {
		return nil, domain.ErrIndexOutOfRange
	}
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return []byte(fmt.Sprintf("png %d %d", page, width)), nil
}

func (r *MockRenderer) PageText(data []byte, page int) (string, error) {
	n, err := r.PageCount(data)
	if err != nil {
		return "", err
	}
	if page < 0 || page >= n {
		return "", domain.ErrIndexOutOfRange
	}
	return r.text[page], nil
}
