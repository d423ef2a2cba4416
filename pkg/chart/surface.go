package chart

import "image/color"

// TextAlign anchors text horizontally at the given x.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// Surface is the minimal 2-D vector canvas the renderer draws on.
// Colors are non-premultiplied; text is painted with the fill color.
// Stroke, Fill and FillStroke consume the current path.
type Surface interface {
	Size() (width, height float64)

	SetStrokeColor(c color.NRGBA)
	SetFillColor(c color.NRGBA)
	SetLineWidth(width float64)
	// SetLineDash sets the dash pattern; no arguments restores a solid line.
	SetLineDash(dash ...float64)
	SetFontSize(size float64)

	MoveTo(x, y float64)
	LineTo(x, y float64)
	ClosePath()

	Stroke()
	Fill()
	FillStroke()

	Text(text string, x, y float64, align TextAlign)
}

func rectPath(s Surface, x, y, w, h float64) {
	s.MoveTo(x, y)
	s.LineTo(x+w, y)
	s.LineTo(x+w, y+h)
	s.LineTo(x, y+h)
	s.ClosePath()
}

func line(s Surface, x1, y1, x2, y2 float64) {
	s.MoveTo(x1, y1)
	s.LineTo(x2, y2)
	s.Stroke()
}
