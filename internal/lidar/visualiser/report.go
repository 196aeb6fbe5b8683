package visualiser

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/kitti.review/internal/lidar/l2frames"
)

// EChartsAssetsHost serves the echarts JavaScript for rendered pages.
const EChartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// histogramBins is the bin count of the points-per-object histogram.
const histogramBins = 20

// FrameStats summarises one loaded frame.
type FrameStats struct {
	Index           int            `json:"index"`
	Objects         int            `json:"objects"`
	Points          int            `json:"points"`
	InBoxes         int            `json:"in_boxes"`
	InRange         int            `json:"in_range"`
	Classes         map[string]int `json:"classes"`
	PointsPerObject []int          `json:"points_per_object"`
}

// InBoxRatio is the fraction of points inside some box.
func (s FrameStats) InBoxRatio() float64 {
	if s.Points == 0 {
		return 0
	}
	return float64(s.InBoxes) / float64(s.Points)
}

// Summarize computes the statistics of f.
func Summarize(f *l2frames.Frame, rb RangeBoundary) FrameStats {
	s := FrameStats{
		Index:           f.Index,
		Objects:         len(f.Objects),
		Points:          f.PointCount(),
		InBoxes:         len(f.PointsInBoxes),
		InRange:         rb.CountInRange(f.PointsInBoxes) + rb.CountInRange(f.PointsOutsideBoxes),
		Classes:         make(map[string]int),
		PointsPerObject: append([]int(nil), f.PointsPerObject...),
	}
	for _, obj := range f.Objects {
		s.Classes[obj.Class]++
	}
	return s
}

// SequenceReport accumulates frame statistics across a sequence.
type SequenceReport struct {
	Title  string         `json:"title"`
	Frames []FrameStats   `json:"frames"`
	Failed map[int]string `json:"failed,omitempty"`
}

// NewSequenceReport creates an empty report.
func NewSequenceReport(title string) *SequenceReport {
	return &SequenceReport{Title: title, Failed: make(map[int]string)}
}

// Add appends the statistics of one frame.
func (r *SequenceReport) Add(s FrameStats) {
	r.Frames = append(r.Frames, s)
}

// AddFailure records a frame that could not be loaded.
func (r *SequenceReport) AddFailure(index int, err error) {
	r.Failed[index] = err.Error()
}

// ClassTotals returns each class and its object count across the sequence,
// sorted by class name.
func (r *SequenceReport) ClassTotals() ([]string, []int) {
	totals := make(map[string]int)
	for _, f := range r.Frames {
		for class, n := range f.Classes {
			totals[class] += n
		}
	}
	classes := make([]string, 0, len(totals))
	for class := range totals {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	counts := make([]int, len(classes))
	for i, class := range classes {
		counts[i] = totals[class]
	}
	return classes, counts
}

// WriteHTML renders the objects-per-class bar chart and the per-frame in-box
// ratio line on one page.
func (r *SequenceReport) WriteHTML(w io.Writer) error {
	classes, counts := r.ClassTotals()
	bars := make([]opts.BarData, len(counts))
	for i, n := range counts {
		bars[i] = opts.BarData{Value: n}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: EChartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Objects per class", Subtitle: fmt.Sprintf("%s frames=%d failed=%d", r.Title, len(r.Frames), len(r.Failed))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(classes).
		AddSeries("objects", bars,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	frames := make([]string, len(r.Frames))
	ratios := make([]opts.LineData, len(r.Frames))
	for i, f := range r.Frames {
		frames[i] = fmt.Sprintf("%06d", f.Index)
		ratios[i] = opts.LineData{Value: f.InBoxRatio()}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: EChartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Points inside boxes", Subtitle: "fraction of each frame's points"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "ratio"}),
	)
	line.SetXAxis(frames).AddSeries("in_box_ratio", ratios)

	page := components.NewPage()
	page.SetAssetsHost(EChartsAssetsHost)
	page.AddCharts(bar, line)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WritePointsHistogram renders the distribution of points per object as a
// PNG. A sequence with no objects yields an empty plot.
func (r *SequenceReport) WritePointsHistogram(w io.Writer) error {
	var values plotter.Values
	for _, f := range r.Frames {
		for _, n := range f.PointsPerObject {
			values = append(values, float64(n))
		}
	}

	p := plot.New()
	p.Title.Text = "Points per object"
	p.X.Label.Text = "points"
	p.Y.Label.Text = "objects"
	if len(values) > 0 {
		hist, err := plotter.NewHist(values, histogramBins)
		if err != nil {
			return fmt.Errorf("failed to create histogram: %w", err)
		}
		p.Add(hist)
	}

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}
