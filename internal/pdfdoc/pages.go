package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"pdf-workbench/internal/domain"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// selection converts 0-based page indexes to a pdfcpu page selection.
func selection(indexes ...int) []string {
	out := make([]string, len(indexes))
	for i, idx := range indexes {
		out[i] = strconv.Itoa(idx + 1)
	}
	return out
}

// moveOrder is the page order after moving page from in front of page to.
// A negative or past-the-end to moves the page behind the last one.
func moveOrder(n, from, to int) []int {
	if to < 0 || to > n {
		to = n
	}
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if i == to {
			order = append(order, from)
		}
		if i != from {
			order = append(order, i)
		}
	}
	if to == n {
		order = append(order, from)
	}
	return order
}

// spliceOrder is the page order after inserting the pages [first,last] of a
// document appended behind n own pages at position at.
func spliceOrder(n, at, first, last int) []int {
	order := make([]int, 0, n+last-first+1)
	for i := 0; i < at; i++ {
		order = append(order, i)
	}
	for i := first; i <= last; i++ {
		order = append(order, n+i)
	}
	for i := at; i < n; i++ {
		order = append(order, i)
	}
	return order
}

// RotatePage turns one page by degrees, a multiple of 90.
func (d *Document) RotatePage(index int, degrees int) error {
	if err := d.checkPage(index); err != nil {
		return err
	}
	degrees = ((degrees % 360) + 360) % 360
	if degrees == 0 {
		return nil
	}
	return d.transform(func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.Rotate(rs, w, degrees, selection(index), conf)
	})
}

// MovePage moves page from in front of page to. Moving a page that does
// not exist is a no-op.
func (d *Document) MovePage(from, to int) error {
	if err := d.usable(); err != nil {
		return err
	}
	if from < 0 || from >= d.pages {
		return nil
	}
	order := moveOrder(d.pages, from, to)
	return d.transform(func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.Collect(rs, w, selection(order...), conf)
	})
}

// DeletePage removes one page.
func (d *Document) DeletePage(index int) error {
	if err := d.checkPage(index); err != nil {
		return err
	}
	if d.pages == 1 {
		return domain.NewValidationError("page", "a document must keep at least one page")
	}
	return d.transform(func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.RemovePages(rs, w, selection(index), conf)
	})
}

// InsertBlankPage inserts an empty page in front of index.
func (d *Document) InsertBlankPage(index int) error {
	if err := d.usable(); err != nil {
		return err
	}
	if index < 0 || index > d.pages {
		return fmt.Errorf("%w: insert at %d of %d", domain.ErrIndexOutOfRange, index, d.pages)
	}
	blank := blankPDF(defaultPageWidth, defaultPageHeight)
	return d.splice(blank, index, 0, 0)
}

// InsertPages inserts pages [from,to] of src in front of page at. A
// negative to means through the last page of src.
func (d *Document) InsertPages(src domain.Content, at, from, to int) error {
	if err := d.usable(); err != nil {
		return err
	}
	if src == nil || src.PageCount() == 0 {
		return domain.NewValidationError("source", "source document has no pages")
	}
	if at < 0 || at > d.pages {
		return fmt.Errorf("%w: insert at %d of %d", domain.ErrIndexOutOfRange, at, d.pages)
	}
	last := src.PageCount() - 1
	if from < 0 {
		from = 0
	}
	if to < 0 || to > last {
		to = last
	}
	if from > to {
		return domain.NewValidationError("from", fmt.Sprintf("first page %d is after last page %d", from, to))
	}
	return d.splice(src.Bytes(), at, from, to)
}

func (d *Document) splice(src []byte, at, first, last int) error {
	n := d.pages
	order := spliceOrder(n, at, first, last)
	return d.transform(func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		var merged bytes.Buffer
		if err := api.MergeRaw([]io.ReadSeeker{rs, bytes.NewReader(src)}, &merged, false, conf); err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		return api.Collect(bytes.NewReader(merged.Bytes()), w, selection(order...), newConfiguration())
	})
}

// RemovePage rebuilds the document from the pages before and after index.
// index == PageCount keeps every page.
func (d *Document) RemovePage(index int) error {
	if err := d.usable(); err != nil {
		return err
	}
	if index < 0 || index > d.pages {
		return fmt.Errorf("%w: remove %d of %d", domain.ErrIndexOutOfRange, index, d.pages)
	}
	if index == d.pages {
		return nil
	}
	if d.pages == 1 {
		return domain.NewValidationError("page", "a document must keep at least one page")
	}
	order := make([]int, 0, d.pages-1)
	for i := 0; i < d.pages; i++ {
		if i != index {
			order = append(order, i)
		}
	}
	return d.transform(func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.Collect(rs, w, selection(order...), conf)
	})
}

// Watermark stamps an image over the full bound of one page or of every
// page. Target pages get their content wrapped in q/Q first so the image
// does not inherit a transform left over by the page content. Both steps
// run on a copy, so a failure leaves the document as it was.
func (d *Document) Watermark(index int, imagePath string, allPages bool) error {
	if err := d.usable(); err != nil {
		return err
	}
	var pages []int
	if allPages {
		for i := 0; i < d.pages; i++ {
			pages = append(pages, i)
		}
	} else {
		if err := d.checkPage(index); err != nil {
			return err
		}
		pages = []int{index}
	}

	work := *d
	if err := work.edit(func(ctx *model.Context) error {
		for _, p := range pages {
			if err := wrapPageContents(ctx, p+1); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("wrap contents: %w", err)
	}

	wm, err := pdfcpu.ParseImageWatermarkDetails(imagePath, "scalefactor:1 rel, position:c, rotation:0, opacity:1", true, types.POINTS)
	if err != nil {
		return fmt.Errorf("parse watermark: %w", err)
	}
	if err := work.transform(func(rs io.ReadSeeker, w io.Writer, conf *model.Configuration) error {
		return api.AddWatermarks(rs, w, selection(pages...), wm, conf)
	}); err != nil {
		return err
	}
	*d = work
	return nil
}

// wrapPageContents encloses the content streams of a page in q ... Q unless
// they already are.
func wrapPageContents(ctx *model.Context, pageNr int) error {
	pageDict, _, _, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return err
	}
	refs, err := contentRefs(ctx, pageDict)
	if err != nil {
		return err
	}
	content, err := readContents(ctx, refs)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(content)) == 0 || isWrapped(content) {
		return nil
	}

	open, err := newContentStream(ctx, []byte("q\n"))
	if err != nil {
		return err
	}
	closing, err := newContentStream(ctx, []byte("\nQ\n"))
	if err != nil {
		return err
	}
	arr := types.Array{*open}
	for _, r := range refs {
		arr = append(arr, r)
	}
	arr = append(arr, *closing)
	pageDict["Contents"] = arr
	return nil
}
