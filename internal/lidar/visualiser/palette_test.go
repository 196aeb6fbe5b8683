package visualiser

import "testing"

func TestIntensityPalette(t *testing.T) {
	p := NewIntensityPalette()

	low, high := p.Color(0), p.Color(255)
	if low == high {
		t.Fatalf("expected distinct colours at the ends of the map, both %v", low)
	}
	if got := p.Color(1000); got != high {
		t.Errorf("expected saturation above the map, got %v want %v", got, high)
	}
	if got := p.Color(-3); got != low {
		t.Errorf("expected negative intensity to clamp, got %v want %v", got, low)
	}
	for i, c := range []RGB{low, high, p.Color(12)} {
		for ch, v := range c {
			if v < 0 || v > 1 {
				t.Errorf("colour %d channel %d out of range: %v", i, ch, v)
			}
		}
	}
}

func TestRGBColor(t *testing.T) {
	c := RGB{0, 0.5, 2}.Color()
	if c.R != 0 || c.G != 128 || c.B != 255 || c.A != 255 {
		t.Errorf("unexpected conversion %+v", c)
	}
}
