package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"pdf-workbench/internal/domain"
)

// ExtractService copies text, images and page renderings out of a document
// into the working directory.
type ExtractService struct {
	engine   domain.DocumentEngine
	renderer domain.Renderer
	workDir  string
	logger   domain.Logger
}

// NewExtractService creates an extraction service writing below workDir.
func NewExtractService(engine domain.DocumentEngine, renderer domain.Renderer, workDir string, logger domain.Logger) *ExtractService {
	return &ExtractService{
		engine:   engine,
		renderer: renderer,
		workDir:  workDir,
		logger:   logger,
	}
}

// outputPath validates a user supplied name and places it in the working
// directory with the given extension.
func (s *ExtractService) outputPath(name, ext string) (string, error) {
	name = strings.TrimSpace(name)
	if ext != "" && strings.HasSuffix(strings.ToLower(name), ext) {
		name = name[:len(name)-len(ext)]
	}
	if name == "" {
		return "", domain.NewValidationError("name", "a file name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == ".." {
		return "", domain.NewValidationError("name", "name must not contain a path")
	}
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}
	return filepath.Join(s.workDir, name+ext), nil
}

// ExtractText writes the text of every page to name.txt. Pages that fail to
// extract are written empty so page breaks stay aligned.
func (s *ExtractService) ExtractText(name string, data []byte) (string, error) {
	path, err := s.outputPath(name, ".txt")
	if err != nil {
		return "", err
	}
	n, err := s.renderer.PageCount(data)
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s.logger.Debug("Extracting page text", "page", i+1, "total", n)
		text, err := s.renderer.PageText(data, i)
		if err != nil {
			s.logger.Warn("Failed to extract text from page", "page", i+1, "total", n, "error", err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.Join(splitIntoParagraphs(sanitizeText(text)), "\n\n"))
	}

	if err := os.WriteFile(path, []byte(strings.Join(pages, "\n\f\n")+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	s.logger.Info("Text extracted", "path", path, "pages", n)
	return path, nil
}

// ExtractImages writes the embedded images into the folder name.
func (s *ExtractService) ExtractImages(name string, data []byte) (string, error) {
	dir, err := s.outputPath(name, "")
	if err != nil {
		return "", err
	}
	if err := s.engine.ExtractImages(data, dir); err != nil {
		return "", err
	}
	s.logger.Info("Images extracted", "dir", dir)
	return dir, nil
}

// Screenshot renders one page to name.png at its natural size.
func (s *ExtractService) Screenshot(name string, data []byte, page int) (string, error) {
	path, err := s.outputPath(name, ".png")
	if err != nil {
		return "", err
	}
	img, err := s.renderer.RenderPNG(data, page, 0)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// splitIntoParagraphs splits on blank lines and joins the lines within a
// paragraph with spaces.
func splitIntoParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var result []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(strings.ReplaceAll(para, "\n", " "))
		if para != "" {
			result = append(result, para)
		}
	}
	return result
}

// sanitizeText drops control characters other than tab and line breaks,
// unpaired surrogates and bytes that are not valid UTF-8.
func sanitizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
		case r >= 0xd800 && r <= 0xdfff:
		case r == utf8.RuneError:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
