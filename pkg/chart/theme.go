package chart

import "image/color"

// Theme holds every color and typographic setting the renderer uses.
type Theme struct {
	Background color.NRGBA
	Grid       color.NRGBA
	Text       color.NRGBA

	UpFill     color.NRGBA
	UpBorder   color.NRGBA
	DownFill   color.NRGBA
	DownBorder color.NRGBA

	Trend      color.NRGBA
	Horizontal color.NRGBA
	Flag       color.NRGBA

	TooltipBackground color.NRGBA
	TooltipBorder     color.NRGBA
	TooltipShadow     color.NRGBA

	GridWidth       float64
	TrendWidth      float64
	HorizontalWidth float64
	HorizontalDash  []float64

	FontSize        float64
	TooltipFontSize float64

	// Currency prefixes every rendered price.
	Currency string

	AxisDateLayout  string
	AxisTimeLayout  string
	TooltipLayout   string
	TooltipIntraday string
}

func rgba(r, g, b uint8, a float64) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a*255 + 0.5)}
}

// DefaultTheme is the dark dashboard palette.
func DefaultTheme() Theme {
	return Theme{
		Background: rgba(0x12, 0x18, 0x26, 1),
		Grid:       rgba(255, 255, 255, 0.15),
		Text:       rgba(255, 255, 255, 1),

		UpFill:     rgba(0, 150, 136, 0.9),
		UpBorder:   rgba(0, 150, 136, 1),
		DownFill:   rgba(239, 83, 80, 0.9),
		DownBorder: rgba(239, 83, 80, 1),

		Trend:      rgba(255, 165, 0, 1),
		Horizontal: rgba(147, 112, 219, 1),
		Flag:       rgba(255, 215, 0, 1),

		TooltipBackground: rgba(25, 30, 45, 0.95),
		TooltipBorder:     rgba(255, 255, 255, 0.2),
		TooltipShadow:     rgba(0, 0, 0, 0.35),

		GridWidth:       0.5,
		TrendWidth:      2,
		HorizontalWidth: 1.5,
		HorizontalDash:  []float64{5, 3},

		FontSize:        11,
		TooltipFontSize: 12,

		Currency: "₹",

		AxisDateLayout:  "Jan 2",
		AxisTimeLayout:  "15:04",
		TooltipLayout:   "Mon Jan 2 2006",
		TooltipIntraday: "Mon Jan 2 2006 15:04",
	}
}
