package visualiser

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/kitti.review/internal/kitti"
	"github.com/banshee-data/kitti.review/internal/lidar"
	"github.com/banshee-data/kitti.review/internal/lidar/l2frames"
)

// Options are the interactive toggles that change what is drawn or done.
type Options struct {
	ShowBoxes        bool `json:"show_boxes"`
	ColorByIntensity bool `json:"color_by_intensity"`
	Play             bool `json:"play"`
	Record           bool `json:"record"`
}

// DefaultOptions shows boxes and colours points uniformly.
func DefaultOptions() Options {
	return Options{ShowBoxes: true}
}

// RenderConfig holds the per-session constants used by ConvertFrame.
type RenderConfig struct {
	Range     RangeBoundary
	Palette   *IntensityPalette
	PointSize float64
}

// ConvertFrame builds the plot for the frame at sequence position pos.
// In-box points precede out-of-box points; boxes keep annotation order.
func ConvertFrame(pos int, f *l2frames.Frame, opts Options, rc RenderConfig) *FramePlot {
	fp := &FramePlot{
		Position:  pos,
		Index:     f.Index,
		Points:    make([]PointPlot, 0, f.PointCount()),
		Boxes:     make([]BoxPlot, len(f.Objects)),
		ShowBoxes: opts.ShowBoxes,
		Range:     rc.Range.Segments(),
		PointSize: rc.PointSize,
	}

	pal := rc.Palette
	if opts.ColorByIntensity && pal == nil {
		pal = NewIntensityPalette()
	}
	appendPoints := func(points []lidar.Point, inBox bool) {
		for _, p := range points {
			c := PointColor
			if opts.ColorByIntensity {
				c = pal.Color(p.Intensity)
			}
			fp.Points = append(fp.Points, PointPlot{
				Pos:   [3]float32{p.X, p.Y, p.Z},
				Color: c,
				InBox: inBox,
			})
		}
	}
	appendPoints(f.PointsInBoxes, true)
	appendPoints(f.PointsOutsideBoxes, false)

	fp.InRange = rc.Range.CountInRange(f.PointsInBoxes) + rc.Range.CountInRange(f.PointsOutsideBoxes)

	var g errgroup.Group
	for i := range f.Objects {
		g.Go(func() error {
			count := 0
			if i < len(f.PointsPerObject) {
				count = f.PointsPerObject[i]
			}
			fp.Boxes[i] = convertObject(f.Objects[i], count)
			return nil
		})
	}
	_ = g.Wait()

	lidar.Tracef("[Adapter] frame %d at %d: points=%d boxes=%d in_range=%d",
		f.Index, pos, len(fp.Points), len(fp.Boxes), fp.InRange)
	return fp
}

func convertObject(obj kitti.Object, points int) BoxPlot {
	edges := obj.Box3D.Edges()
	segs := make([]Segment, len(edges))
	for i, e := range edges {
		segs[i] = Segment{
			From: [3]float64{e[0].X, e[0].Y, e[0].Z},
			To:   [3]float64{e[1].X, e[1].Y, e[1].Z},
		}
	}

	textColor := PlainTextColor
	if obj.HasObjectKey() {
		textColor = KeyedTextColor
	}
	t := obj.Box3D.Pose.Translation
	return BoxPlot{
		Class:     obj.Class,
		Edges:     segs,
		BoxColor:  BoxColor,
		Text:      LabelText(obj),
		TextColor: textColor,
		TextPos:   [3]float64{t.X, t.Y, t.Z},
		Points:    points,
		Score:     obj.Score,
		ObjectKey: obj.ObjectKey,
	}
}

// LabelText is the caption drawn beside a box: the quoted class and the
// box length.
func LabelText(obj kitti.Object) string {
	return fmt.Sprintf("%q, %.2f", obj.Class, obj.Box3D.Extents.X)
}
