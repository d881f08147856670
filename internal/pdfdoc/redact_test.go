package pdfdoc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatrixMult(t *testing.T) {
	m := translate(10, 20).mult(matrix{2, 0, 0, 2, 0, 0})
	x, y := m.apply(1, 1)
	if x != 22 || y != 42 {
		t.Fatalf("expected (22,42), got (%v,%v)", x, y)
	}
}

func TestBoxIntersects(t *testing.T) {
	a := box{0, 0, 10, 10}
	if !a.intersects(box{5, 5, 15, 15}) {
		t.Fatalf("expected overlap")
	}
	if a.intersects(box{10, 0, 20, 10}) {
		t.Fatalf("expected touching edges not to overlap")
	}
}

func TestRedactContent_RemovesGlyphsInsideArea(t *testing.T) {
	// Each glyph of F1 is 500/1000 * 10 = 5 units wide, so "ABCD" spans
	// x 100..120 on the baseline y 700.
	content := []byte("BT /F1 10 Tf 100 700 Td (ABCD) Tj ET")
	fonts := map[string]*fontMetrics{"F1": {firstChar: 32, missing: 500}}
	area := box{llx: 104, lly: 695, urx: 111, ury: 710}

	r, err := redactContent(content, []box{area}, resourceSet{fonts: fonts})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, removed := r.content, r.removed
	if removed != 1 {
		t.Fatalf("expected one rewritten operator, got %d", removed)
	}

	s := string(out)
	// A (100..105) overlaps, B (105..110) overlaps, C (110..115) overlaps, D survives.
	if !strings.Contains(s, "[ -1500 <44>] TJ") {
		t.Fatalf("expected redacted glyphs to become a positioning gap, got:\n%s", s)
	}
	if strings.Contains(s, "(ABCD)") {
		t.Fatalf("expected original string to be gone, got:\n%s", s)
	}
	if !strings.Contains(s, "104 695 7 15 re f") {
		t.Fatalf("expected black box over the area, got:\n%s", s)
	}
	if !strings.HasPrefix(s, "q\n") {
		t.Fatalf("expected filtered content to be wrapped, got:\n%s", s)
	}
}

func TestRedactContent_KeepsTextOutsideArea(t *testing.T) {
	content := []byte("BT /F1 10 Tf 100 700 Td (keep me) Tj ET")
	area := box{llx: 0, lly: 0, urx: 50, ury: 50}

	r, err := redactContent(content, []box{area}, resourceSet{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, removed := r.content, r.removed
	if removed != 0 {
		t.Fatalf("expected nothing removed, got %d", removed)
	}
	if !bytes.Contains(out, []byte("(keep me) Tj")) {
		t.Fatalf("expected original operator to survive, got:\n%s", out)
	}
}

func TestRedactContent_HonoursTransforms(t *testing.T) {
	// The cm moves the text origin from (10,10) to (310,410).
	content := []byte("q 1 0 0 1 300 400 cm BT /F1 10 Tf 10 10 Td (X) Tj ET Q BT /F1 10 Tf 10 10 Td (Y) Tj ET")
	area := box{llx: 305, lly: 405, urx: 320, ury: 425}

	r, err := redactContent(content, []box{area}, resourceSet{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, removed := r.content, r.removed
	if removed != 1 {
		t.Fatalf("expected one rewritten operator, got %d", removed)
	}
	if bytes.Contains(out, []byte("(X) Tj")) {
		t.Fatalf("expected transformed glyph to be removed, got:\n%s", out)
	}
	if !bytes.Contains(out, []byte("(Y) Tj")) {
		t.Fatalf("expected glyph outside the transform to survive, got:\n%s", out)
	}
}

func TestRedactContent_DropsImagesUnderArea(t *testing.T) {
	content := []byte("q 100 0 0 100 50 50 cm /Im1 Do Q q 100 0 0 100 400 400 cm /Im1 Do Q q 100 0 0 100 50 50 cm /Fm1 Do Q")
	area := box{llx: 60, lly: 60, urx: 80, ury: 80}
	images := map[string]bool{"Im1": true}

	r, err := redactContent(content, []box{area}, resourceSet{images: images})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, removed := r.content, r.removed
	if removed != 1 {
		t.Fatalf("expected one image removed, got %d", removed)
	}
	if got := bytes.Count(out, []byte("/Im1 Do")); got != 1 {
		t.Fatalf("expected the far image to survive, found %d draws:\n%s", got, out)
	}
	if !bytes.Contains(out, []byte("/Fm1 Do")) {
		t.Fatalf("expected unknown xobject to be kept, got:\n%s", out)
	}
	if len(r.unused) != 0 {
		t.Fatalf("expected the image to stay in use, got %v", r.unused)
	}
}

func TestRedactContent_RewritesFormsUnderArea(t *testing.T) {
	form := &formXObject{
		matrix:  identity(),
		bbox:    box{urx: 200, ury: 200},
		content: []byte("BT /F1 10 Tf 10 10 Td (SECRET) Tj ET"),
	}
	res := resourceSet{
		xobjects: map[string]bool{"Fm1": true, "Fm2": true, "Rx0": true},
		form: func(name string) *formXObject {
			if name == "Fm1" || name == "Fm2" {
				return form
			}
			return nil
		},
	}
	// Fm1 is drawn at (300,400) and its text lands at (310,410). Fm2 is the
	// same form drawn at the origin.
	content := []byte("q 1 0 0 1 300 400 cm /Fm1 Do Q /Fm2 Do")
	area := box{llx: 305, lly: 405, urx: 350, ury: 425}

	r, err := redactContent(content, []box{area}, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.removed != 1 {
		t.Fatalf("expected one rewritten operator, got %d", r.removed)
	}
	if len(r.rewrites) != 1 {
		t.Fatalf("expected one form copy, got %d", len(r.rewrites))
	}
	rw := r.rewrites[0]
	// Rx0 is taken by the resources already.
	if rw.name != "Rx1" {
		t.Fatalf("expected a free resource name, got %q", rw.name)
	}
	if bytes.Contains(rw.content, []byte("SECRET")) {
		t.Fatalf("expected form text to be removed, got:\n%s", rw.content)
	}
	out := string(r.content)
	if strings.Contains(out, "/Fm1 Do") || !strings.Contains(out, "/Rx1 Do") || !strings.Contains(out, "/Fm2 Do") {
		t.Fatalf("expected only the draw under the area to be replaced, got:\n%s", out)
	}
	if diff := cmp.Diff([]string{"Fm1"}, r.unused); diff != "" {
		t.Fatalf("unused mismatch (-want +got):\n%s", diff)
	}
}

func TestRedactContent_DropsUnreadableForms(t *testing.T) {
	form := &formXObject{matrix: identity(), bbox: box{urx: 100, ury: 100}}
	res := resourceSet{form: func(string) *formXObject { return form }}

	r, err := redactContent([]byte("/Fm1 Do"), []box{{llx: 10, lly: 10, urx: 20, ury: 20}}, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.removed != 1 || bytes.Contains(r.content, []byte("Do")) {
		t.Fatalf("expected the form draw to be dropped, got:\n%s", r.content)
	}
	if diff := cmp.Diff([]string{"Fm1"}, r.unused); diff != "" {
		t.Fatalf("unused mismatch (-want +got):\n%s", diff)
	}
}

func TestRedactContent_NestedForms(t *testing.T) {
	inner := &formXObject{
		matrix:  translate(50, 50),
		bbox:    box{urx: 100, ury: 100},
		content: []byte("BT /F1 10 Tf 0 0 Td (X) Tj ET"),
	}
	outer := &formXObject{
		matrix:  identity(),
		bbox:    box{urx: 500, ury: 500},
		content: []byte("/In Do"),
		resources: resourceSet{form: func(name string) *formXObject {
			if name == "In" {
				return inner
			}
			return nil
		}},
	}
	res := resourceSet{form: func(name string) *formXObject {
		if name == "Out" {
			return outer
		}
		return nil
	}}

	r, err := redactContent([]byte("/Out Do"), []box{{llx: 45, lly: 45, urx: 70, ury: 70}}, res)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.rewrites) != 1 || len(r.rewrites[0].nested) != 1 {
		t.Fatalf("expected the outer and inner form to be copied, got %+v", r.rewrites)
	}
	if got := string(r.rewrites[0].content); !strings.Contains(got, "/Rx0 Do") {
		t.Fatalf("expected the outer copy to draw the inner copy, got:\n%s", got)
	}
	if bytes.Contains(r.rewrites[0].nested[0].content, []byte("(X)")) {
		t.Fatalf("expected inner text to be removed")
	}
}

func TestRedactContent_QuoteOperatorKeepsLineMove(t *testing.T) {
	content := []byte("BT /F1 10 Tf 12 TL 100 700 Td (first) Tj (second) ' ET")
	// second line baseline is at y 688
	area := box{llx: 90, lly: 680, urx: 200, ury: 695}

	r, err := redactContent(content, []box{area}, resourceSet{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := r.content
	s := string(out)
	if strings.Contains(s, "(second) '") {
		t.Fatalf("expected second line to be removed, got:\n%s", s)
	}
	if !strings.Contains(s, "T* [") {
		t.Fatalf("expected the line move to be preserved, got:\n%s", s)
	}
	if !strings.Contains(s, "(first) Tj") {
		t.Fatalf("expected first line to survive, got:\n%s", s)
	}
}

func TestFontMetricsWidth(t *testing.T) {
	m := &fontMetrics{firstChar: 65, widths: []float64{600, 0}, missing: 250}
	if m.width(65) != 600 {
		t.Fatalf("expected listed width")
	}
	if m.width(66) != 250 || m.width(10) != 250 {
		t.Fatalf("expected missing width for zero and out of range codes")
	}
	var none *fontMetrics
	if none.width(65) != defaultGlyphWidth {
		t.Fatalf("expected default width for unknown fonts")
	}
}
