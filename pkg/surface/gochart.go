// Package surface provides chart.Surface backends built on go-chart renderers.
package surface

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	view "github.com/raykavin/chartdesk/pkg/chart"
)

var ErrUnknownFormat = errors.New("unknown image format")

// Format is an output image format.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat accepts "png" or "svg", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case PNG, SVG:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// GoChart adapts a go-chart renderer to chart.Surface.
type GoChart struct {
	r      chart.Renderer
	width  float64
	height float64
}

// New creates a blank surface of the given size and format.
func New(format Format, width, height int) (*GoChart, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}

	var (
		r   chart.Renderer
		err error
	)
	switch format {
	case PNG:
		r, err = chart.PNG(width, height)
	case SVG:
		r, err = chart.SVG(width, height)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s renderer: %w", format, err)
	}

	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load default font: %w", err)
	}
	r.SetFont(font)

	return &GoChart{r: r, width: float64(width), height: float64(height)}, nil
}

// Save encodes the surface to w.
func (g *GoChart) Save(w io.Writer) error {
	return g.r.Save(w)
}

func (g *GoChart) Size() (float64, float64) {
	return g.width, g.height
}

func (g *GoChart) SetStrokeColor(c color.NRGBA) {
	g.r.SetStrokeColor(toDrawing(c))
}

// SetFillColor also sets the font color, text is painted with the fill.
func (g *GoChart) SetFillColor(c color.NRGBA) {
	g.r.SetFillColor(toDrawing(c))
	g.r.SetFontColor(toDrawing(c))
}

func (g *GoChart) SetLineWidth(width float64) {
	g.r.SetStrokeWidth(width)
}

func (g *GoChart) SetLineDash(dash ...float64) {
	if len(dash) == 0 {
		g.r.SetStrokeDashArray(nil)
		return
	}
	g.r.SetStrokeDashArray(dash)
}

func (g *GoChart) SetFontSize(size float64) {
	g.r.SetFontSize(size)
}

func (g *GoChart) MoveTo(x, y float64) {
	g.r.MoveTo(px(x), px(y))
}

func (g *GoChart) LineTo(x, y float64) {
	g.r.LineTo(px(x), px(y))
}

func (g *GoChart) ClosePath() {
	g.r.Close()
}

func (g *GoChart) Stroke() {
	g.r.Stroke()
}

func (g *GoChart) Fill() {
	g.r.Fill()
}

func (g *GoChart) FillStroke() {
	g.r.FillStroke()
}

func (g *GoChart) Text(text string, x, y float64, align view.TextAlign) {
	switch align {
	case view.AlignRight:
		x -= float64(g.r.MeasureText(text).Width())
	case view.AlignCenter:
		x -= float64(g.r.MeasureText(text).Width()) / 2
	}
	g.r.Text(text, px(x), px(y))
}

func px(v float64) int {
	return int(math.Round(v))
}

func toDrawing(c color.NRGBA) drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Encode draws v's current frame in the given format and writes it to w.
func Encode(w io.Writer, v *view.View, format Format) error {
	width, height := v.Size()

	s, err := New(format, px(width), px(height))
	if err != nil {
		return err
	}

	if !v.Redraw(s) {
		return errors.New("view has nothing to draw")
	}

	return s.Save(w)
}
