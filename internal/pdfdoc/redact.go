package pdfdoc

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// matrix is an affine transform [a b c d e f].
type matrix [6]float64

func identity() matrix { return matrix{1, 0, 0, 1, 0, 0} }

func translate(tx, ty float64) matrix { return matrix{1, 0, 0, 1, tx, ty} }

// mult returns a×b.
func (a matrix) mult(b matrix) matrix {
	return matrix{
		a[0]*b[0] + a[1]*b[2],
		a[0]*b[1] + a[1]*b[3],
		a[2]*b[0] + a[3]*b[2],
		a[2]*b[1] + a[3]*b[3],
		a[4]*b[0] + a[5]*b[2] + b[4],
		a[4]*b[1] + a[5]*b[3] + b[5],
	}
}

func (a matrix) apply(x, y float64) (float64, float64) {
	return x*a[0] + y*a[2] + a[4], x*a[1] + y*a[3] + a[5]
}

func matrixFrom(op operation) matrix {
	return matrix{op.number(0), op.number(1), op.number(2), op.number(3), op.number(4), op.number(5)}
}

// box is a rectangle in PDF user space (origin bottom-left).
type box struct {
	llx, lly, urx, ury float64
}

func (b box) intersects(o box) bool {
	return b.llx < o.urx && o.llx < b.urx && b.lly < o.ury && o.lly < b.ury
}

// bounds returns the box covering the rectangle (x0,y0)-(x1,y1) mapped through m.
func bounds(m matrix, x0, y0, x1, y1 float64) box {
	b := box{llx: math.Inf(1), lly: math.Inf(1), urx: math.Inf(-1), ury: math.Inf(-1)}
	for _, p := range [][2]float64{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		x, y := m.apply(p[0], p[1])
		b.llx = math.Min(b.llx, x)
		b.lly = math.Min(b.lly, y)
		b.urx = math.Max(b.urx, x)
		b.ury = math.Max(b.ury, y)
	}
	return b
}

// fontMetrics gives glyph advances of one font in 1/1000 text space units.
type fontMetrics struct {
	firstChar int
	widths    []float64
	missing   float64
	twoByte   bool
}

const defaultGlyphWidth = 500

func (f *fontMetrics) width(code int) float64 {
	if f == nil {
		return defaultGlyphWidth
	}
	if i := code - f.firstChar; i >= 0 && i < len(f.widths) && f.widths[i] > 0 {
		return f.widths[i]
	}
	if f.missing > 0 {
		return f.missing
	}
	return defaultGlyphWidth
}

type textState struct {
	tm, tlm     matrix
	font        *fontMetrics
	fontSize    float64
	leading     float64
	charSpacing float64
	wordSpacing float64
	hscale      float64
	rise        float64
}

type graphicsState struct {
	ctm  matrix
	text textState
}

// maxFormDepth bounds the nesting of form XObjects that get rewritten.
// Deeper forms under an area are dropped.
const maxFormDepth = 8

// resourceSet is what the redaction filter knows about one resource
// dictionary.
type resourceSet struct {
	fonts    map[string]*fontMetrics
	images   map[string]bool
	xobjects map[string]bool
	form     func(name string) *formXObject
}

func (r resourceSet) lookupForm(name string) *formXObject {
	if r.form == nil {
		return nil
	}
	return r.form(name)
}

// formXObject is a form XObject as the redaction filter sees it.
type formXObject struct {
	matrix    matrix
	bbox      box
	content   []byte // nil when the stream could not be decoded
	resources resourceSet
	stream    types.StreamDict
	resDict   types.Dict
}

// formRewrite is a redacted copy of a form XObject, drawn under name.
type formRewrite struct {
	name    string
	form    *formXObject
	content []byte
	nested  []formRewrite
	unused  []string
}

// redactionFilter removes text, images and form content that overlap any
// of the areas.
type redactionFilter struct {
	areas []box
	res   resourceSet
	depth int

	stack   []graphicsState
	gs      graphicsState
	removed int

	rewrites []formRewrite
	replaced map[string]bool
	drawn    map[string]bool
	names    map[string]bool
}

func newRedactionFilter(areas []box, res resourceSet) *redactionFilter {
	return &redactionFilter{
		areas:    areas,
		res:      res,
		replaced: map[string]bool{},
		drawn:    map[string]bool{},
		names:    map[string]bool{},
		gs: graphicsState{
			ctm:  identity(),
			text: textState{tm: identity(), tlm: identity(), hscale: 1},
		},
	}
}

// unused lists XObjects that were removed or replaced and are no longer
// drawn by the filtered content.
func (f *redactionFilter) unused() []string {
	var out []string
	for name := range f.replaced {
		if !f.drawn[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// newName picks an XObject name that the resource dictionary does not use yet.
func (f *redactionFilter) newName() string {
	for i := len(f.names); ; i++ {
		n := fmt.Sprintf("Rx%d", i)
		if !f.res.xobjects[n] && !f.names[n] {
			f.names[n] = true
			return n
		}
	}
}

// redactForm filters a form drawn at the current transform. It reports
// whether the draw changes and returns its replacement, nil when the form
// is dropped.
func (f *redactionFilter) redactForm(form *formXObject) (*operation, bool) {
	ctm := form.matrix.mult(f.gs.ctm)
	if !f.hit(bounds(ctm, form.bbox.llx, form.bbox.lly, form.bbox.urx, form.bbox.ury)) {
		return nil, false
	}
	if form.content == nil || f.depth >= maxFormDepth {
		f.removed++
		return nil, true
	}
	ops, err := parseContent(form.content)
	if err != nil {
		f.removed++
		return nil, true
	}

	child := newRedactionFilter(f.areas, form.resources)
	child.depth = f.depth + 1
	child.gs.ctm = ctm
	kept := child.filter(ops)
	if child.removed == 0 {
		return nil, false
	}
	f.removed += child.removed

	name := f.newName()
	f.rewrites = append(f.rewrites, formRewrite{
		name:    name,
		form:    form,
		content: serializeOps(kept),
		nested:  child.rewrites,
		unused:  child.unused(),
	})
	return &operation{
		operator: "Do",
		operands: []operand{{kind: operandName, name: name}},
		raw:      []byte("/" + name + " Do"),
	}, true
}

func (f *redactionFilter) hit(b box) bool {
	for _, a := range f.areas {
		if a.intersects(b) {
			return true
		}
	}
	return false
}

// glyphs splits a shown string into character codes.
func (f *redactionFilter) glyphs(s []byte) [][]byte {
	step := 1
	if font := f.gs.text.font; font != nil && font.twoByte {
		step = 2
	}
	var out [][]byte
	for i := 0; i+step <= len(s); i += step {
		out = append(out, s[i:i+step])
	}
	return out
}

// glyphAdvance is the horizontal displacement of one glyph in text space.
func (f *redactionFilter) glyphAdvance(g []byte) float64 {
	ts := f.gs.text
	code := int(g[0])
	if len(g) == 2 {
		code = code<<8 | int(g[1])
	}
	w := ts.font.width(code)/1000*ts.fontSize + ts.charSpacing
	if len(g) == 1 && g[0] == ' ' {
		w += ts.wordSpacing
	}
	return w * ts.hscale
}

// rewriteText walks the glyphs of a Tj string or TJ array, advancing the
// text matrix. Glyphs overlapping a redaction area are replaced by a
// positioning adjustment so later glyphs keep their place. It reports
// whether anything was removed and returns the replacement TJ operator.
func (f *redactionFilter) rewriteText(items []operand) (bool, []byte) {
	ts := &f.gs.text
	scale := ts.fontSize * ts.hscale

	var arr bytes.Buffer
	var run []byte
	var gap float64
	hit := false

	flushRun := func() {
		if len(run) > 0 {
			fmt.Fprintf(&arr, "<%x>", run)
			run = nil
		}
	}
	flushGap := func() {
		if gap != 0 && scale != 0 {
			fmt.Fprintf(&arr, " %s ", formatNumber(-gap*1000/scale))
		}
		gap = 0
	}

	for _, it := range items {
		switch it.kind {
		case operandNumber:
			flushRun()
			flushGap()
			fmt.Fprintf(&arr, " %s ", formatNumber(it.num))
			ts.tm = translate(-it.num/1000*scale, 0).mult(ts.tm)
		case operandString:
			for _, g := range f.glyphs(it.str) {
				adv := f.glyphAdvance(g)
				area := bounds(ts.tm.mult(f.gs.ctm), 0, ts.rise-0.2*ts.fontSize, adv, ts.rise+0.9*ts.fontSize)
				if f.hit(area) {
					hit = true
					flushRun()
					gap += adv
				} else {
					flushGap()
					run = append(run, g...)
				}
				ts.tm = translate(adv, 0).mult(ts.tm)
			}
		}
	}
	flushRun()
	flushGap()
	return hit, []byte("[" + arr.String() + "] TJ")
}

func (f *redactionFilter) nextLine() {
	ts := &f.gs.text
	ts.tlm = translate(0, -ts.leading).mult(ts.tlm)
	ts.tm = ts.tlm
}

// filter returns the operations to keep.
func (f *redactionFilter) filter(ops []operation) []operation {
	out := make([]operation, 0, len(ops))
	for _, op := range ops {
		ts := &f.gs.text
		switch op.operator {
		case "q":
			f.stack = append(f.stack, f.gs)
		case "Q":
			if n := len(f.stack); n > 0 {
				f.gs = f.stack[n-1]
				f.stack = f.stack[:n-1]
			}
		case "cm":
			f.gs.ctm = matrixFrom(op).mult(f.gs.ctm)
		case "BT":
			ts.tm, ts.tlm = identity(), identity()
		case "Tf":
			ts.font = f.res.fonts[op.nameAt(0)]
			ts.fontSize = op.number(1)
		case "Tc":
			ts.charSpacing = op.number(0)
		case "Tw":
			ts.wordSpacing = op.number(0)
		case "Tz":
			ts.hscale = op.number(0) / 100
		case "TL":
			ts.leading = op.number(0)
		case "Ts":
			ts.rise = op.number(0)
		case "Td":
			ts.tlm = translate(op.number(0), op.number(1)).mult(ts.tlm)
			ts.tm = ts.tlm
		case "TD":
			ts.leading = -op.number(1)
			ts.tlm = translate(op.number(0), op.number(1)).mult(ts.tlm)
			ts.tm = ts.tlm
		case "Tm":
			ts.tlm = matrixFrom(op)
			ts.tm = ts.tlm
		case "T*":
			f.nextLine()
		case "Tj", "TJ", "'", "\"":
			if f.showOp(op, &out) {
				continue
			}
		case "Do":
			name := op.nameAt(0)
			if f.res.images[name] && f.hit(bounds(f.gs.ctm, 0, 0, 1, 1)) {
				f.removed++
				f.replaced[name] = true
				continue
			}
			if form := f.res.lookupForm(name); form != nil {
				if replacement, changed := f.redactForm(form); changed {
					f.replaced[name] = true
					if replacement != nil {
						out = append(out, *replacement)
					}
					continue
				}
			}
			f.drawn[name] = true
		case "BI":
			if f.hit(bounds(f.gs.ctm, 0, 0, 1, 1)) {
				f.removed++
				continue
			}
		}
		out = append(out, op)
	}
	return out
}

// showOp processes a text showing operator. It returns true when the
// operator was replaced.
func (f *redactionFilter) showOp(op operation, out *[]operation) bool {
	ts := &f.gs.text
	var items []operand
	var prefix string
	switch op.operator {
	case "Tj":
		items = op.operands
	case "TJ":
		if len(op.operands) > 0 {
			items = op.operands[0].items
		}
	case "'":
		f.nextLine()
		items = op.operands
		prefix = "T* "
	case "\"":
		ts.wordSpacing = op.number(0)
		ts.charSpacing = op.number(1)
		f.nextLine()
		if len(op.operands) > 2 {
			items = op.operands[2:]
		}
		prefix = fmt.Sprintf("%s Tw %s Tc T* ", formatNumber(op.number(0)), formatNumber(op.number(1)))
	}
	hit, replacement := f.rewriteText(items)
	if !hit {
		return false
	}
	f.removed++
	*out = append(*out, operation{operator: "TJ", raw: append([]byte(prefix), replacement...)})
	return true
}

// redaction is the outcome of filtering one content stream.
type redaction struct {
	content  []byte
	removed  int
	rewrites []formRewrite
	unused   []string
}

// redactContent filters content and appends black boxes over the areas.
func redactContent(content []byte, areas []box, res resourceSet) (redaction, error) {
	ops, err := parseContent(content)
	if err != nil {
		return redaction{}, fmt.Errorf("parse content stream: %w", err)
	}
	f := newRedactionFilter(areas, res)
	kept := f.filter(ops)

	var buf bytes.Buffer
	buf.WriteString("q\n")
	buf.Write(serializeOps(kept))
	buf.WriteString("Q\n")
	buf.Write(fillBoxes(areas))
	return redaction{
		content:  buf.Bytes(),
		removed:  f.removed,
		rewrites: f.rewrites,
		unused:   f.unused(),
	}, nil
}

// fillBoxes paints opaque black rectangles.
func fillBoxes(areas []box) []byte {
	if len(areas) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteString("q 0 0 0 rg\n")
	for _, a := range areas {
		fmt.Fprintf(&buf, "%s %s %s %s re f\n",
			formatNumber(a.llx), formatNumber(a.lly),
			formatNumber(a.urx-a.llx), formatNumber(a.ury-a.lly))
	}
	buf.WriteString("Q\n")
	return buf.Bytes()
}
