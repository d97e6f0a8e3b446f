package render

import (
	"github.com/lucasb-eyer/go-colorful"
)

// Luminance returns 0.299R+0.587G+0.114B of a hex colour, normalised to
// [0,1]. Unparseable colours count as black.
func Luminance(hex string) float64 {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 0
	}
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}

// LabelColor picks black text on light fills and white text on dark ones.
func LabelColor(fill string) string {
	if Luminance(fill) > 0.5 {
		return "#000000"
	}
	return "#ffffff"
}
