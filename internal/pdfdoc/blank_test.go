package pdfdoc

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"testing"
)

func TestBlankPDF_XrefOffsets(t *testing.T) {
	data := blankPDF(defaultPageWidth, defaultPageHeight)

	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindSubmatch(data)
	if m == nil {
		t.Fatalf("startxref missing")
	}
	start, _ := strconv.Atoi(string(m[1]))
	if !bytes.HasPrefix(data[start:], []byte("xref\n")) {
		t.Fatalf("startxref does not point at the xref table")
	}

	entries := regexp.MustCompile(`(\d{10}) 00000 n `).FindAllSubmatch(data, -1)
	if len(entries) != 3 {
		t.Fatalf("expected 3 xref entries, got %d", len(entries))
	}
	for i, e := range entries {
		off, _ := strconv.Atoi(string(e[1]))
		want := fmt.Sprintf("%d 0 obj", i+1)
		if !bytes.HasPrefix(data[off:], []byte(want)) {
			t.Fatalf("entry %d points at %q", i+1, data[off:off+len(want)])
		}
	}
	if !bytes.Contains(data, []byte("/MediaBox [0 0 595 842]")) {
		t.Fatalf("expected A4 media box")
	}
}
