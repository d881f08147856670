package pdfdoc

import (
	"bytes"
	"fmt"
	"math"

	"pdf-workbench/internal/domain"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	inkLineWidth   = 2
	annotFlagPrint = 4

	// redactAppearance is the overlay text appearance a Redact annotation
	// must carry even without overlay text.
	redactAppearance = "/Helv 0 Tf 0 g"
)

// AddInk adds one ink annotation holding every stroke of the page.
func (d *Document) AddInk(page int, strokes []domain.Stroke) error {
	var drawn []domain.Stroke
	for _, s := range strokes {
		if len(s) > 1 {
			drawn = append(drawn, s)
		}
	}
	if len(drawn) == 0 {
		return nil
	}
	if err := d.checkPage(page); err != nil {
		return err
	}
	return d.edit(func(ctx *model.Context) error {
		pageDict, pageRef, inh, err := ctx.PageDict(page+1, false)
		if err != nil {
			return err
		}
		space := newPageSpace(inh)

		bb := box{llx: math.Inf(1), lly: math.Inf(1), urx: math.Inf(-1), ury: math.Inf(-1)}
		var ap bytes.Buffer
		fmt.Fprintf(&ap, "1 0 0 RG %d w 1 J 1 j\n", inkLineWidth)
		inkList := types.Array{}
		for _, s := range drawn {
			var path []float64
			for i, p := range s {
				x, y := space.point(p)
				path = append(path, x, y)
				op := "l"
				if i == 0 {
					op = "m"
				}
				fmt.Fprintf(&ap, "%s %s %s\n", formatNumber(x), formatNumber(y), op)
				bb.llx, bb.lly = math.Min(bb.llx, x), math.Min(bb.lly, y)
				bb.urx, bb.ury = math.Max(bb.urx, x), math.Max(bb.ury, y)
			}
			inkList = append(inkList, types.NewNumberArray(path...))
			ap.WriteString("S\n")
		}
		bb = box{llx: bb.llx - inkLineWidth, lly: bb.lly - inkLineWidth, urx: bb.urx + inkLineWidth, ury: bb.ury + inkLineWidth}

		apRef, err := newFormXObject(ctx, bb, ap.Bytes(), nil)
		if err != nil {
			return err
		}
		annot := types.Dict{
			"Type":    types.Name("Annot"),
			"Subtype": types.Name("Ink"),
			"Rect":    rectArray(bb),
			"InkList": inkList,
			"C":       types.NewNumberArray(1, 0, 0),
			"BS":      types.Dict{"W": types.Integer(inkLineWidth)},
			"F":       types.Integer(annotFlagPrint),
			"AP":      types.Dict{"N": *apRef},
		}
		if pageRef != nil {
			annot["P"] = *pageRef
		}
		return addAnnotation(ctx, pageDict, annot)
	})
}

// AddRedactions marks areas for redaction. ApplyRedactions performs it.
func (d *Document) AddRedactions(page int, rects []domain.Rect) error {
	if len(rects) == 0 {
		return nil
	}
	if err := d.checkPage(page); err != nil {
		return err
	}
	return d.edit(func(ctx *model.Context) error {
		pageDict, pageRef, inh, err := ctx.PageDict(page+1, false)
		if err != nil {
			return err
		}
		space := newPageSpace(inh)
		for _, r := range rects {
			annot := types.Dict{
				"Type":    types.Name("Annot"),
				"Subtype": types.Name("Redact"),
				"Rect":    rectArray(space.rect(r)),
				"IC":      types.NewNumberArray(0, 0, 0),
				"DA":      types.StringLiteral(redactAppearance),
				"F":       types.Integer(annotFlagPrint),
			}
			if pageRef != nil {
				annot["P"] = *pageRef
			}
			if err := addAnnotation(ctx, pageDict, annot); err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplyRedactions removes text, images and form content under the
// redaction annotations of a page, paints the areas black and drops the
// annotations. Forms with redacted content are replaced by filtered copies.
func (d *Document) ApplyRedactions(page int) error {
	if err := d.checkPage(page); err != nil {
		return err
	}
	return d.edit(func(ctx *model.Context) error {
		pageDict, _, inh, err := ctx.PageDict(page+1, false)
		if err != nil {
			return err
		}
		annots, err := pageAnnotations(ctx, pageDict)
		if err != nil {
			return err
		}

		var areas []box
		kept := types.Array{}
		for _, a := range annots {
			ad, err := ctx.DereferenceDict(a)
			if err != nil || ad == nil {
				kept = append(kept, a)
				continue
			}
			if st := ad.NameEntry("Subtype"); st == nil || *st != "Redact" {
				kept = append(kept, a)
				continue
			}
			if r := ad.ArrayEntry("Rect"); len(r) == 4 {
				b := box{llx: numberOf(r[0]), lly: numberOf(r[1]), urx: numberOf(r[2]), ury: numberOf(r[3])}
				if b.llx > b.urx {
					b.llx, b.urx = b.urx, b.llx
				}
				if b.lly > b.ury {
					b.lly, b.ury = b.ury, b.lly
				}
				areas = append(areas, b)
			}
		}
		if len(areas) == 0 {
			return nil
		}

		refs, err := contentRefs(ctx, pageDict)
		if err != nil {
			return err
		}
		content, err := readContents(ctx, refs)
		if err != nil {
			return err
		}
		resources := pageResources(ctx, pageDict, inh)
		r, err := redactContent(content, areas, resourcesOf(ctx, resources))
		if err != nil {
			return err
		}
		ref, err := newContentStream(ctx, r.content)
		if err != nil {
			return err
		}
		pageDict["Contents"] = *ref
		if len(r.rewrites) > 0 || len(r.unused) > 0 {
			res, err := storeRewrites(ctx, resources, r.rewrites, r.unused)
			if err != nil {
				return err
			}
			pageDict["Resources"] = res
		}
		if len(kept) == 0 {
			delete(pageDict, "Annots")
		} else {
			pageDict["Annots"] = kept
		}
		return nil
	})
}

// AddHighlights adds one highlight annotation per rectangle.
func (d *Document) AddHighlights(page int, rects []domain.Rect) error {
	if len(rects) == 0 {
		return nil
	}
	if err := d.checkPage(page); err != nil {
		return err
	}
	return d.edit(func(ctx *model.Context) error {
		pageDict, pageRef, inh, err := ctx.PageDict(page+1, false)
		if err != nil {
			return err
		}
		space := newPageSpace(inh)
		resources := types.Dict{
			"ExtGState": types.Dict{
				"GS0": types.Dict{"Type": types.Name("ExtGState"), "BM": types.Name("Multiply")},
			},
		}
		for _, r := range rects {
			b := space.rect(r)
			ap := fmt.Sprintf("/GS0 gs 1 1 0 rg %s %s %s %s re f\n",
				formatNumber(b.llx), formatNumber(b.lly), formatNumber(b.urx-b.llx), formatNumber(b.ury-b.lly))
			apRef, err := newFormXObject(ctx, b, []byte(ap), resources)
			if err != nil {
				return err
			}
			annot := types.Dict{
				"Type":       types.Name("Annot"),
				"Subtype":    types.Name("Highlight"),
				"Rect":       rectArray(b),
				"QuadPoints": types.NewNumberArray(b.llx, b.ury, b.urx, b.ury, b.llx, b.lly, b.urx, b.lly),
				"C":          types.NewNumberArray(1, 1, 0),
				"F":          types.Integer(annotFlagPrint),
				"AP":         types.Dict{"N": *apRef},
			}
			if pageRef != nil {
				annot["P"] = *pageRef
			}
			if err := addAnnotation(ctx, pageDict, annot); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetMetadata writes the document information dictionary.
func (d *Document) SetMetadata(md domain.Metadata) error {
	return d.edit(func(ctx *model.Context) error {
		var info types.Dict
		if ctx.Info != nil {
			di, err := ctx.DereferenceDict(*ctx.Info)
			if err != nil {
				return err
			}
			info = di
		}
		if info == nil {
			info = types.Dict{}
			ir, err := ctx.IndRefForNewObject(info)
			if err != nil {
				return err
			}
			ctx.Info = ir
		}
		entries := map[string]string{
			"Title":        md.Title,
			"Author":       md.Author,
			"Subject":      md.Subject,
			"Keywords":     md.Keywords,
			"Creator":      md.Creator,
			"Producer":     md.Producer,
			"CreationDate": pdfDate(md.CreationDate),
			"ModDate":      pdfDate(md.ModDate),
		}
		for key, value := range entries {
			if value == "" {
				continue
			}
			info[key] = textString(value)
		}
		return nil
	})
}

func pageAnnotations(ctx *model.Context, pageDict types.Dict) (types.Array, error) {
	obj, found := pageDict.Find("Annots")
	if !found || obj == nil {
		return nil, nil
	}
	return ctx.DereferenceArray(obj)
}

func addAnnotation(ctx *model.Context, pageDict types.Dict, annot types.Dict) error {
	ir, err := ctx.IndRefForNewObject(annot)
	if err != nil {
		return err
	}
	annots, err := pageAnnotations(ctx, pageDict)
	if err != nil {
		return err
	}
	pageDict["Annots"] = append(append(types.Array{}, annots...), *ir)
	return nil
}
