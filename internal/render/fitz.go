// Package render rasterizes pages and reads their text with MuPDF.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"time"

	"pdf-workbench/internal/domain"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

const defaultPageTimeout = 90 * time.Second

// FitzRenderer implements domain.Renderer on go-fitz.
type FitzRenderer struct {
	logger      domain.Logger
	pageTimeout time.Duration
}

var _ domain.Renderer = (*FitzRenderer)(nil)

// NewFitzRenderer creates a renderer.
func NewFitzRenderer(logger domain.Logger) *FitzRenderer {
	return &FitzRenderer{
		logger:      logger,
		pageTimeout: defaultPageTimeout,
	}
}

func open(data []byte) (*fitz.Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return doc, nil
}

func checkPage(doc *fitz.Document, page int) error {
	if page < 0 || page >= doc.NumPage() {
		return fmt.Errorf("%w: page %d of %d", domain.ErrIndexOutOfRange, page, doc.NumPage())
	}
	return nil
}

// PageCount returns the number of pages MuPDF sees in data.
func (r *FitzRenderer) PageCount(data []byte) (int, error) {
	doc, err := open(data)
	if err != nil {
		return 0, err
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// RenderPNG renders one page as PNG. A positive width scales the image to
// that many pixels keeping the aspect ratio.
func (r *FitzRenderer) RenderPNG(data []byte, page int, width int) ([]byte, error) {
	doc, err := open(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	if err := checkPage(doc, page); err != nil {
		return nil, err
	}

	img, err := doc.Image(page)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	var out image.Image = img
	if width > 0 && width != img.Bounds().Dx() {
		out = scale(img, width)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}

func scale(src image.Image, width int) image.Image {
	b := src.Bounds()
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// PageText extracts the plain text of one page. MuPDF can hang on broken
// pages, so extraction gives up after the page timeout.
func (r *FitzRenderer) PageText(data []byte, page int) (string, error) {
	doc, err := open(data)
	if err != nil {
		return "", err
	}
	if err := checkPage(doc, page); err != nil {
		doc.Close()
		return "", err
	}

	type pageResult struct {
		text string
		err  error
	}
	resultCh := make(chan pageResult, 1)
	go func() {
		t, e := doc.Text(page)
		resultCh <- pageResult{text: t, err: e}
	}()

	select {
	case res := <-resultCh:
		doc.Close()
		if res.err != nil {
			return "", fmt.Errorf("extract text of page %d: %w", page, res.err)
		}
		return res.text, nil
	case <-time.After(r.pageTimeout):
		r.logger.Warn("PDF page extraction timeout", "page", page+1, "timeout_sec", int(r.pageTimeout.Seconds()))
		// close once the extraction goroutine has returned
		go func() {
			<-resultCh
			doc.Close()
		}()
		return "", fmt.Errorf("extract text of page %d: timeout after %v", page, r.pageTimeout)
	}
}
