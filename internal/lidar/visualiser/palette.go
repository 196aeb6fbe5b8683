package visualiser

import (
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// intensityScale maps raw reflectance onto the palette domain.
const intensityScale = 10.0 / 255.0

// IntensityPalette colours points by reflectance.
type IntensityPalette struct {
	cmap palette.ColorMap
}

// NewIntensityPalette returns the perceptually uniform Kindlmann map over [0, 1].
func NewIntensityPalette() *IntensityPalette {
	cmap := moreland.Kindlmann()
	cmap.SetMin(0)
	cmap.SetMax(1)
	return &IntensityPalette{cmap: cmap}
}

// Color returns the colour for a raw intensity. Values past the top of the
// map saturate.
func (p *IntensityPalette) Color(intensity float32) RGB {
	v := float64(intensity) * intensityScale
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	c, err := p.cmap.At(v)
	if err != nil {
		return PointColor
	}
	r, g, b, _ := c.RGBA()
	return RGB{float32(r) / 0xffff, float32(g) / 0xffff, float32(b) / 0xffff}
}
