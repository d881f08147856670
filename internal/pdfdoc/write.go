package pdfdoc

import (
	"bytes"
	"fmt"
	"io"

	"pdf-workbench/internal/domain"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// MaxGarbageLevel enables object deduplication and removal of unused objects.
const MaxGarbageLevel = 4

const aesKeyLength = 256

// savePermissions grants accessibility, printing, copying and annotating.
// Modifying, form filling and assembling stay forbidden.
var savePermissions = model.PermissionsNone |
	model.PermissionPrintRev2 |
	model.PermissionPrintRev3 |
	model.PermissionExtract |
	model.PermissionExtractRev3 |
	model.PermissionModAnnFillForm

// Write serializes the document. A password encrypts the output with
// AES-256 using it as both user and owner password.
func (d *Document) Write(w io.Writer, opts domain.WriteOptions) error {
	if err := d.usable(); err != nil {
		return err
	}
	conf := newConfiguration()
	conf.WriteObjectStream = opts.Deflate
	conf.WriteXRefStream = opts.Deflate

	ctx, err := api.ReadContext(bytes.NewReader(d.data), conf)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return fmt.Errorf("read page tree: %w", err)
	}
	if opts.Deflate {
		if err := deflateStreams(ctx); err != nil {
			return err
		}
	}
	if opts.GarbageLevel >= MaxGarbageLevel {
		if err := api.OptimizeContext(ctx); err != nil {
			return fmt.Errorf("optimize: %w", err)
		}
	}

	var plain bytes.Buffer
	if err := api.WriteContext(ctx, &plain); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if opts.Password == "" {
		_, err := w.Write(plain.Bytes())
		return err
	}

	enc := model.NewAESConfiguration(opts.Password, opts.Password, aesKeyLength)
	enc.Permissions = savePermissions
	enc.WriteObjectStream = opts.Deflate
	enc.WriteXRefStream = opts.Deflate
	if err := api.Encrypt(bytes.NewReader(plain.Bytes()), w, enc); err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}
	return nil
}

const flateDecode = "FlateDecode"

// deflateStreams flate encodes every stream that carries no filter.
func deflateStreams(ctx *model.Context) error {
	for nr, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok || len(sd.FilterPipeline) > 0 {
			continue
		}
		if _, found := sd.Dict.Find("Filter"); found {
			continue
		}
		if t := sd.Dict.Type(); t != nil && (*t == "XRef" || *t == "ObjStm") {
			continue
		}
		if err := sd.Decode(); err != nil {
			return fmt.Errorf("decode stream %d: %w", nr, err)
		}
		sd.FilterPipeline = []types.PDFFilter{{Name: flateDecode}}
		sd.InsertName("Filter", flateDecode)
		if err := sd.Encode(); err != nil {
			return fmt.Errorf("deflate stream %d: %w", nr, err)
		}
		entry.Object = sd
	}
	return nil
}
