package service

import (
	"fmt"
	"strings"

	"pdf-workbench/internal/domain"
)

// RotatePage turns a page by 90 degrees in the given direction.
func RotatePage(c domain.Content, index int, dir domain.Direction) error {
	if c == nil {
		return domain.ErrNoActiveDocument
	}
	if dir != domain.RotateLeft && dir != domain.RotateRight {
		return domain.NewValidationError("direction", fmt.Sprintf("unknown rotation direction %d", dir))
	}
	if index < 0 || index >= c.PageCount() {
		return fmt.Errorf("%w: rotate page %d of %d", domain.ErrIndexOutOfRange, index, c.PageCount())
	}
	return c.RotatePage(index, 90*int(dir))
}

// MovePage moves page from in front of page to. A from outside
// [0, PageCount] is ignored; from == PageCount is accepted and moves
// nothing.
func MovePage(c domain.Content, from, to int) error {
	if c == nil {
		return domain.ErrNoActiveDocument
	}
	if from < 0 || from > c.PageCount() {
		return nil
	}
	return c.MovePage(from, to)
}

// DeletePage removes one page.
func DeletePage(c domain.Content, index int) error {
	if c == nil {
		return domain.ErrNoActiveDocument
	}
	return c.DeletePage(index)
}

// InsertBlankPage inserts an empty page in front of index.
func InsertBlankPage(c domain.Content, index int) error {
	if c == nil {
		return domain.ErrNoActiveDocument
	}
	return c.InsertBlankPage(index)
}

// Watermark overlays an image on one page or on every page.
func Watermark(c domain.Content, index int, imagePath string, allPages bool) error {
	if c == nil {
		return domain.ErrNoActiveDocument
	}
	if strings.TrimSpace(imagePath) == "" {
		return domain.NewValidationError("image", "image path is required")
	}
	return c.Watermark(index, imagePath, allPages)
}

// MergeInsert inserts pages [from,to] of src in front of page at. to == -1
// runs through the last page of src.
func MergeInsert(c, src domain.Content, at, from, to int) error {
	if c == nil {
		return domain.ErrNoActiveDocument
	}
	if src == nil {
		return domain.NewValidationError("source", "source document is required")
	}
	return c.InsertPages(src, at, from, to)
}

// MergeInsertAll inserts every page of src in front of page at.
func MergeInsertAll(c, src domain.Content, at int) error {
	return MergeInsert(c, src, at, 0, -1)
}

// RemovePageFromMerged rebuilds the document without page index.
func RemovePageFromMerged(c domain.Content, index int) error {
	if c == nil {
		return domain.ErrNoActiveDocument
	}
	if index > c.PageCount() {
		return fmt.Errorf("%w: remove page %d of %d", domain.ErrIndexOutOfRange, index, c.PageCount())
	}
	return c.RemovePage(index)
}
