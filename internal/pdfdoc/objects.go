package pdfdoc

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"pdf-workbench/internal/domain"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// formatNumber renders a PDF number with at most four decimals.
func formatNumber(f float64) string {
	f = math.Round(f*10000) / 10000
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// numberOf reads an integer or real object.
func numberOf(o types.Object) float64 {
	switch v := o.(type) {
	case types.Integer:
		return float64(v)
	case types.Float:
		return float64(v)
	}
	return 0
}

// textString encodes s as a PDF text string.
func textString(s string) types.Object {
	ascii := true
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			ascii = false
			break
		}
	}
	if ascii {
		r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
		return types.StringLiteral(r.Replace(s))
	}
	units := utf16.Encode([]rune(s))
	buf := []byte{0xfe, 0xff}
	for _, u := range units {
		buf = append(buf, byte(u>>8), byte(u))
	}
	return types.HexLiteral(hex.EncodeToString(buf))
}

// pdfDate converts an ISO date (2006-01-02) to PDF date syntax. Other
// values are passed through.
func pdfDate(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format("D:20060102150405")
}

func rectArray(b box) types.Array {
	return types.NewNumberArray(b.llx, b.lly, b.urx, b.ury)
}

// pageSpace maps top-left based page coordinates to PDF user space.
type pageSpace struct {
	mediaBox types.Rectangle
}

func newPageSpace(inh *model.InheritedPageAttrs) pageSpace {
	if inh == nil || inh.MediaBox == nil {
		return pageSpace{mediaBox: *types.NewRectangle(0, 0, defaultPageWidth, defaultPageHeight)}
	}
	return pageSpace{mediaBox: *inh.MediaBox}
}

func (s pageSpace) point(p domain.Point) (float64, float64) {
	return s.mediaBox.LL.X + p.X, s.mediaBox.UR.Y - p.Y
}

func (s pageSpace) rect(r domain.Rect) box {
	r = r.Normalize()
	x0, y1 := s.point(domain.Point{X: r.X0, Y: r.Y0})
	x1, y0 := s.point(domain.Point{X: r.X1, Y: r.Y1})
	return box{llx: x0, lly: y0, urx: x1, ury: y1}
}

// contentRefs lists the content streams of a page.
func contentRefs(ctx *model.Context, pageDict types.Dict) ([]types.IndirectRef, error) {
	obj, found := pageDict.Find("Contents")
	if !found || obj == nil {
		return nil, nil
	}
	var arr types.Array
	switch o := obj.(type) {
	case types.IndirectRef:
		deref, err := ctx.Dereference(o)
		if err != nil {
			return nil, err
		}
		a, ok := deref.(types.Array)
		if !ok {
			return []types.IndirectRef{o}, nil
		}
		arr = a
	case types.Array:
		arr = o
	default:
		return nil, fmt.Errorf("unexpected page contents %T", obj)
	}
	var refs []types.IndirectRef
	for _, it := range arr {
		if ir, ok := it.(types.IndirectRef); ok {
			refs = append(refs, ir)
		}
	}
	return refs, nil
}

// readContents returns the decoded, concatenated content streams.
func readContents(ctx *model.Context, refs []types.IndirectRef) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range refs {
		o, err := ctx.Dereference(r)
		if err != nil {
			return nil, err
		}
		sd, ok := o.(types.StreamDict)
		if !ok {
			continue
		}
		if err := sd.Decode(); err != nil {
			return nil, fmt.Errorf("decode content stream %s: %w", r, err)
		}
		buf.Write(sd.Content)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// newContentStream adds a flate encoded stream object.
func newContentStream(ctx *model.Context, content []byte) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}

// newFormXObject adds an appearance stream covering bbox.
func newFormXObject(ctx *model.Context, bbox box, content []byte, resources types.Dict) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	sd.Dict["Type"] = types.Name("XObject")
	sd.Dict["Subtype"] = types.Name("Form")
	sd.Dict["BBox"] = rectArray(bbox)
	if resources != nil {
		sd.Dict["Resources"] = resources
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}

// pageResources resolves the resource dictionary of a page.
func pageResources(ctx *model.Context, pageDict types.Dict, inh *model.InheritedPageAttrs) types.Dict {
	if obj, found := pageDict.Find("Resources"); found {
		if d, err := ctx.DereferenceDict(obj); err == nil && d != nil {
			return d
		}
	}
	if inh != nil {
		return inh.Resources
	}
	return nil
}

func subDict(ctx *model.Context, d types.Dict, key string) types.Dict {
	if d == nil {
		return nil
	}
	obj, found := d.Find(key)
	if !found {
		return nil
	}
	sub, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil
	}
	return sub
}

// fontTable reads glyph widths of the fonts a page uses.
func fontTable(ctx *model.Context, resources types.Dict) map[string]*fontMetrics {
	fonts := map[string]*fontMetrics{}
	for name, obj := range subDict(ctx, resources, "Font") {
		fd, err := ctx.DereferenceDict(obj)
		if err != nil || fd == nil {
			continue
		}
		m := &fontMetrics{}
		if st := fd.NameEntry("Subtype"); st != nil && *st == "Type0" {
			m.twoByte = true
			m.missing = 1000
			fonts[name] = m
			continue
		}
		if fc := fd.IntEntry("FirstChar"); fc != nil {
			m.firstChar = *fc
		}
		if wobj, found := fd.Find("Widths"); found {
			if arr, err := ctx.DereferenceArray(wobj); err == nil {
				for _, w := range arr {
					m.widths = append(m.widths, numberOf(w))
				}
			}
		}
		fonts[name] = m
	}
	return fonts
}

// imageTable lists the image XObjects of a page by resource name.
func imageTable(ctx *model.Context, resources types.Dict) map[string]bool {
	images := map[string]bool{}
	for name, obj := range subDict(ctx, resources, "XObject") {
		o, err := ctx.Dereference(obj)
		if err != nil {
			continue
		}
		sd, ok := o.(types.StreamDict)
		if !ok {
			continue
		}
		if st := sd.Dict.NameEntry("Subtype"); st != nil && *st == "Image" {
			images[name] = true
		}
	}
	return images
}

// formExtent stands in for the bounding box of a form that has none.
const formExtent = 1e5

// resourcesOf collects what the redaction filter needs from a resource
// dictionary. Form XObjects are loaded on first use.
func resourcesOf(ctx *model.Context, resources types.Dict) resourceSet {
	xobjects := subDict(ctx, resources, "XObject")
	names := map[string]bool{}
	for name := range xobjects {
		names[name] = true
	}
	forms := map[string]*formXObject{}
	return resourceSet{
		fonts:    fontTable(ctx, resources),
		images:   imageTable(ctx, resources),
		xobjects: names,
		form: func(name string) *formXObject {
			if fx, ok := forms[name]; ok {
				return fx
			}
			fx := loadForm(ctx, xobjects, name, resources)
			forms[name] = fx
			return fx
		},
	}
}

// loadForm reads a form XObject. Forms without resources of their own use
// those of the drawing content.
func loadForm(ctx *model.Context, xobjects types.Dict, name string, parent types.Dict) *formXObject {
	obj, found := xobjects.Find(name)
	if !found {
		return nil
	}
	o, err := ctx.Dereference(obj)
	if err != nil {
		return nil
	}
	sd, ok := o.(types.StreamDict)
	if !ok {
		return nil
	}
	if st := sd.Dict.NameEntry("Subtype"); st == nil || *st != "Form" {
		return nil
	}

	fx := &formXObject{
		matrix: identity(),
		bbox:   box{llx: -formExtent, lly: -formExtent, urx: formExtent, ury: formExtent},
		stream: sd,
	}
	if m := sd.Dict.ArrayEntry("Matrix"); len(m) == 6 {
		for i := range fx.matrix {
			fx.matrix[i] = numberOf(m[i])
		}
	}
	if b := sd.Dict.ArrayEntry("BBox"); len(b) == 4 {
		fx.bbox = box{
			llx: math.Min(numberOf(b[0]), numberOf(b[2])),
			lly: math.Min(numberOf(b[1]), numberOf(b[3])),
			urx: math.Max(numberOf(b[0]), numberOf(b[2])),
			ury: math.Max(numberOf(b[1]), numberOf(b[3])),
		}
	}
	fx.resDict = subDict(ctx, sd.Dict, "Resources")
	if fx.resDict == nil {
		fx.resDict = parent
	}
	fx.resources = resourcesOf(ctx, fx.resDict)
	if err := sd.Decode(); err == nil {
		fx.content = append([]byte{}, sd.Content...)
	}
	return fx
}

// storeRewrites adds the redacted form copies to ctx and returns a copy of
// resources that draws them under their new names and no longer lists the
// XObjects the filtered content stopped drawing.
func storeRewrites(ctx *model.Context, resources types.Dict, rewrites []formRewrite, unused []string) (types.Dict, error) {
	res := types.Dict{}
	for k, v := range resources {
		res[k] = v
	}
	xobjects := types.Dict{}
	for k, v := range subDict(ctx, resources, "XObject") {
		xobjects[k] = v
	}
	for _, name := range unused {
		delete(xobjects, name)
	}
	for _, rw := range rewrites {
		ref, err := storeForm(ctx, rw)
		if err != nil {
			return nil, err
		}
		xobjects[rw.name] = *ref
	}
	res["XObject"] = xobjects
	return res, nil
}

func storeForm(ctx *model.Context, rw formRewrite) (*types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(rw.content)
	if err != nil {
		return nil, err
	}
	for k, v := range rw.form.stream.Dict {
		switch k {
		case "Length", "Filter", "DecodeParms", "Resources":
			continue
		}
		sd.Dict[k] = v
	}
	res := rw.form.resDict
	if len(rw.nested) > 0 || len(rw.unused) > 0 {
		if res, err = storeRewrites(ctx, res, rw.nested, rw.unused); err != nil {
			return nil, err
		}
	}
	if res != nil {
		sd.Dict["Resources"] = res
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return ctx.IndRefForNewObject(*sd)
}
