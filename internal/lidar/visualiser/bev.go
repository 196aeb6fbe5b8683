package visualiser

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// BEVSize is the side of the square bird's-eye PNG.
const BEVSize = 8 * vg.Inch

// bevMargin pads the axes around the range boundary, in metres.
const bevMargin = 5.0

// NewBEVPlot draws fp from above: points, the range boundary and, when
// shown, box wireframes with their captions.
func NewBEVPlot(fp *FramePlot) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("frame %06d", fp.Index)
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"
	p.BackgroundColor = color.White

	if len(fp.Points) > 0 {
		xys := make(plotter.XYs, len(fp.Points))
		for i, pt := range fp.Points {
			xys[i] = plotter.XY{X: float64(pt.Pos[0]), Y: float64(pt.Pos[1])}
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to create point scatter: %w", err)
		}
		radius := vg.Points(pointRadius(fp.PointSize))
		scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  fp.Points[i].Color.Color(),
				Radius: radius,
				Shape:  draw.CircleGlyph{},
			}
		}
		p.Add(scatter)
	}

	for _, seg := range fp.Range {
		line, err := segmentLine(seg, RangeColor)
		if err != nil {
			return nil, err
		}
		p.Add(line)
	}

	if fp.ShowBoxes && len(fp.Boxes) > 0 {
		labels := plotter.XYLabels{
			XYs:    make(plotter.XYs, len(fp.Boxes)),
			Labels: make([]string, len(fp.Boxes)),
		}
		for i, b := range fp.Boxes {
			for _, seg := range b.Edges {
				line, err := segmentLine(seg, b.BoxColor)
				if err != nil {
					return nil, err
				}
				p.Add(line)
			}
			labels.XYs[i] = plotter.XY{X: b.TextPos[0], Y: b.TextPos[1]}
			labels.Labels[i] = b.Text
		}
		captions, err := plotter.NewLabels(labels)
		if err != nil {
			return nil, fmt.Errorf("failed to create box captions: %w", err)
		}
		for i := range captions.TextStyle {
			captions.TextStyle[i].Color = fp.Boxes[i].TextColor.Color()
		}
		p.Add(captions)
	}

	if minX, minY, maxX, maxY, ok := segmentBounds(fp.Range); ok {
		p.X.Min, p.X.Max = minX-bevMargin, maxX+bevMargin
		p.Y.Min, p.Y.Max = minY-bevMargin, maxY+bevMargin
	}
	return p, nil
}

// WriteBEVPNG renders fp as a square PNG to w.
func WriteBEVPNG(w io.Writer, fp *FramePlot) error {
	p, err := NewBEVPlot(fp)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(BEVSize, BEVSize, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

func pointRadius(size float64) float64 {
	if size <= 0 {
		return 1
	}
	return size / 2
}

func segmentLine(seg Segment, c RGB) (*plotter.Line, error) {
	line, err := plotter.NewLine(plotter.XYs{
		{X: seg.From[0], Y: seg.From[1]},
		{X: seg.To[0], Y: seg.To[1]},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create line: %w", err)
	}
	line.Width = vg.Points(1)
	line.LineStyle.Color = c.Color()
	return line, nil
}

func segmentBounds(segs []Segment) (minX, minY, maxX, maxY float64, ok bool) {
	for i, s := range segs {
		for _, v := range [][3]float64{s.From, s.To} {
			if i == 0 && !ok {
				minX, maxX, minY, maxY = v[0], v[0], v[1], v[1]
				ok = true
				continue
			}
			minX, maxX = min(minX, v[0]), max(maxX, v[0])
			minY, maxY = min(minY, v[1]), max(maxY, v[1])
		}
	}
	return minX, minY, maxX, maxY, ok
}
