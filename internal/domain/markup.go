package domain

// Point is a position in unscaled page space, origin at the top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one freehand line.
type Stroke []Point

// Rect is an axis-aligned rectangle in page space.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Normalize returns r with X0 <= X1 and Y0 <= Y1.
func (r Rect) Normalize() Rect {
	if r.X0 > r.X1 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y0 > r.Y1 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	return r
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	n := r.Normalize()
	return n.X1-n.X0 <= 0 || n.Y1-n.Y0 <= 0
}

// PageMarkup holds the uncommitted markup of a single page.
type PageMarkup struct {
	Strokes    []Stroke `json:"strokes"`
	Redactions []Rect   `json:"redactions"`
	Highlights []Rect   `json:"highlights"`
}

// IsEmpty reports whether the page has nothing to commit.
func (m PageMarkup) IsEmpty() bool {
	return len(m.Strokes) == 0 && len(m.Redactions) == 0 && len(m.Highlights) == 0
}

func (m PageMarkup) clone() PageMarkup {
	out := PageMarkup{
		Redactions: append([]Rect(nil), m.Redactions...),
		Highlights: append([]Rect(nil), m.Highlights...),
	}
	for _, s := range m.Strokes {
		out.Strokes = append(out.Strokes, append(Stroke(nil), s...))
	}
	return out
}
