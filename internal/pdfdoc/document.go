// Package pdfdoc implements document content on top of pdfcpu.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"pdf-workbench/internal/domain"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document is an in-memory PDF. Every edit re-serializes the document so
// the bytes are always a complete, readable file.
type Document struct {
	data      []byte
	pages     int
	encrypted bool
	locked    bool
}

var _ domain.Content = (*Document)(nil)

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Engine opens and creates documents.
type Engine struct {
	logger domain.Logger
}

// NewEngine creates a pdfcpu backed document engine.
func NewEngine(logger domain.Logger) *Engine {
	return &Engine{logger: logger}
}

// Open reads a PDF file.
func (e *Engine) Open(path string) (domain.Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := e.OpenBytes(data)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return doc, nil
}

// OpenBytes parses PDF bytes. Documents protected by a user password are
// returned locked and must be authenticated before use.
func (e *Engine) OpenBytes(data []byte) (domain.Content, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), newConfiguration())
	if err != nil {
		if errors.Is(err, pdfcpu.ErrWrongPassword) {
			if e.logger != nil {
				e.logger.Debug("Document requires a password")
			}
			return &Document{data: data, encrypted: true, locked: true}, nil
		}
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if ctx.Encrypt == nil {
		doc := &Document{data: data}
		if err := doc.refresh(); err != nil {
			return nil, err
		}
		return doc, nil
	}

	// Encrypted with an empty user password: keep a decrypted working copy.
	doc := &Document{data: data, encrypted: true, locked: true}
	if !doc.Authenticate("") {
		return nil, fmt.Errorf("parse document: %w", domain.ErrDocumentLocked)
	}
	return doc, nil
}

// NewBlank creates a document with a single empty page.
func (e *Engine) NewBlank() (domain.Content, error) {
	doc := &Document{data: blankPDF(defaultPageWidth, defaultPageHeight)}
	if err := doc.refresh(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ExtractImages writes every embedded image of data into outDir.
func (e *Engine) ExtractImages(data []byte, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	tmp, err := os.CreateTemp(outDir, "source-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := api.ExtractImagesFile(tmp.Name(), outDir, nil, newConfiguration()); err != nil {
		return fmt.Errorf("extract images: %w", err)
	}
	return nil
}

// PageCount returns the number of pages; zero while locked.
func (d *Document) PageCount() int { return d.pages }

// IsEncrypted reports whether the source file was encrypted.
func (d *Document) IsEncrypted() bool { return d.encrypted }

// Locked reports whether a password is still required.
func (d *Document) Locked() bool { return d.locked }

// Authenticate decrypts a locked document. It returns false on a wrong
// password and true when the document is usable.
func (d *Document) Authenticate(password string) bool {
	if !d.locked {
		return true
	}
	conf := newConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(d.data), &out, conf); err != nil {
		return false
	}
	if err := d.adopt(out.Bytes()); err != nil {
		return false
	}
	d.locked = false
	return true
}

// Bytes returns the current serialized document.
func (d *Document) Bytes() []byte { return d.data }

// Clone returns an independent copy.
func (d *Document) Clone() domain.Content {
	cp := *d
	cp.data = append([]byte(nil), d.data...)
	return &cp
}

func (d *Document) refresh() error {
	return d.adopt(d.data)
}

func (d *Document) usable() error {
	if d.locked {
		return domain.ErrDocumentLocked
	}
	return nil
}

// adopt replaces the document bytes with data once pdfcpu accepts them.
// Rejected output leaves the document unchanged.
func (d *Document) adopt(data []byte) error {
	n, err := api.PageCount(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return fmt.Errorf("count pages: %w", err)
	}
	d.data = data
	d.pages = n
	return nil
}

// transform runs a pdfcpu stream operation and adopts its output.
func (d *Document) transform(fn func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error) error {
	if err := d.usable(); err != nil {
		return err
	}
	var out bytes.Buffer
	if err := fn(bytes.NewReader(d.data), &out, newConfiguration()); err != nil {
		return err
	}
	return d.adopt(out.Bytes())
}

// edit loads the object graph, lets fn modify it and writes it back.
func (d *Document) edit(fn func(ctx *model.Context) error) error {
	if err := d.usable(); err != nil {
		return err
	}
	ctx, err := d.context()
	if err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		return err
	}
	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return d.adopt(out.Bytes())
}

// context parses the document into a pdfcpu object graph.
func (d *Document) context() (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(d.data), newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("read page tree: %w", err)
	}
	return ctx, nil
}

func (d *Document) checkPage(index int) error {
	if index < 0 || index >= d.pages {
		return fmt.Errorf("%w: page %d of %d", domain.ErrIndexOutOfRange, index, d.pages)
	}
	return nil
}
