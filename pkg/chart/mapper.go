package chart

import (
	"github.com/raykavin/chartdesk/pkg/core"
)

const (
	rangePadding = 0.1
	flatPadding  = 1.0
)

// Point is a surface-local pixel position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DataPoint is a position in data space: a fractional candle index and a price.
type DataPoint struct {
	Index float64 `json:"index"`
	Price float64 `json:"price"`
}

// PriceRange is the padded price interval used to scale the y axis.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Span returns Max - Min.
func (r PriceRange) Span() float64 { return r.Max - r.Min }

// PriceRangeOf returns the candles' low/high bounds padded by 10% on each side.
// A flat series gets a fixed one-unit pad so the span is never zero.
func PriceRangeOf(candles []core.Candle) PriceRange {
	cols := core.ToColumns(candles)
	low, _, ok := cols.Low.Bounds()
	if !ok {
		return PriceRange{Min: -flatPadding, Max: flatPadding}
	}
	_, high, _ := cols.High.Bounds()

	span := high - low
	if span == 0 {
		return PriceRange{Min: low - flatPadding, Max: high + flatPadding}
	}

	pad := rangePadding * span
	return PriceRange{Min: low - pad, Max: high + pad}
}

// YToPrice maps a pixel y to a price. Price decreases as y grows.
func YToPrice(y float64, r PriceRange, topMargin, drawingHeight float64) float64 {
	return r.Max - ((y-topMargin)/drawingHeight)*r.Span()
}

// PriceToY is the inverse of YToPrice.
func PriceToY(price float64, r PriceRange, topMargin, drawingHeight float64) float64 {
	return topMargin + drawingHeight*(1-(price-r.Min)/r.Span())
}

// IndexToX maps a fractional candle index to the pixel x of that position.
// Whole indexes land on candle centers.
func IndexToX(index float64, g Geometry) float64 {
	return g.Margins.Left + (index+0.5)*g.CandleSpacing
}

// XToIndex is the inverse of IndexToX.
func XToIndex(x float64, g Geometry) float64 {
	return (x-g.Margins.Left)/g.CandleSpacing - 0.5
}

// Mapper binds a geometry to a price range.
type Mapper struct {
	Geometry Geometry
	Range    PriceRange
}

// NewMapper builds a mapper. ok is false when the geometry cannot be mapped.
func NewMapper(g Geometry, r PriceRange) (Mapper, bool) {
	m := Mapper{Geometry: g, Range: r}
	return m, g.Valid() && r.Span() > 0
}

// Price returns the price at pixel y.
func (m Mapper) Price(y float64) float64 {
	return YToPrice(y, m.Range, m.Geometry.Margins.Top, m.Geometry.DrawingHeight())
}

// Y returns the pixel y of price.
func (m Mapper) Y(price float64) float64 {
	return PriceToY(price, m.Range, m.Geometry.Margins.Top, m.Geometry.DrawingHeight())
}

// ToData converts a pixel position to data space.
func (m Mapper) ToData(p Point) DataPoint {
	return DataPoint{Index: XToIndex(p.X, m.Geometry), Price: m.Price(p.Y)}
}

// ToPixel converts a data-space position to pixels.
func (m Mapper) ToPixel(d DataPoint) Point {
	return Point{X: IndexToX(d.Index, m.Geometry), Y: m.Y(d.Price)}
}
