package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/kitti.review/internal/httputil"
	"github.com/banshee-data/kitti.review/internal/lidar/visualiser"
)

const echartsAssetsPrefix = visualiser.EChartsAssetsHost

// maxChartPoints caps the points sent to the browser; larger clouds are strided.
const maxChartPoints = 20000

// chartPad is the axis half-width used when a plot has no range boundary.
const chartPad = 50.0

// handleFrameChart renders the displayed frame as a go-echarts scatter with
// box footprints and the range boundary overlaid.
func (ws *WebServer) handleFrameChart(w http.ResponseWriter, r *http.Request) {
	plot := ws.currentPlot(w)
	if plot == nil {
		return
	}

	var buf bytes.Buffer
	if err := renderFrameChart(&buf, plot); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render frame chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func renderFrameChart(buf *bytes.Buffer, plot *visualiser.FramePlot) error {
	stride := 1
	if len(plot.Points) > maxChartPoints {
		stride = (len(plot.Points) + maxChartPoints - 1) / maxChartPoints
	}
	inPts := make([]opts.ScatterData, 0)
	outPts := make([]opts.ScatterData, 0, len(plot.Points)/stride+1)
	for i := 0; i < len(plot.Points); i += stride {
		p := plot.Points[i]
		d := opts.ScatterData{Value: []interface{}{p.Pos[0], p.Pos[1]}}
		if p.InBox {
			inPts = append(inPts, d)
		} else {
			outPts = append(outPts, d)
		}
	}

	minX, minY, maxX, maxY := -chartPad, -chartPad, chartPad, chartPad
	if len(plot.Range) > 0 {
		minX, minY = plot.Range[0].From[0], plot.Range[0].From[1]
		maxX, maxY = minX, minY
		for _, s := range plot.Range {
			for _, v := range [][3]float64{s.From, s.To} {
				minX, maxX = min(minX, v[0]), max(maxX, v[0])
				minY, maxY = min(minY, v[1]), max(maxY, v[1])
			}
		}
	}

	subtitle := fmt.Sprintf("frame=%06d points=%d boxes=%d in_range=%d stride=%d",
		plot.Index, len(plot.Points), len(plot.Boxes), plot.InRange, stride)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "KITTI Frame", Width: "900px", Height: "900px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: "Bird's-eye view", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: minX - 5, Max: maxX + 5, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: minY - 5, Max: maxY + 5, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("outside boxes", outPts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#1e40ff"}))
	scatter.AddSeries("inside boxes", inPts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))

	if len(plot.Range) > 0 {
		scatter.Overlap(polyline("range", rangeOutline(plot.Range), "#c8b400"))
	}
	if plot.ShowBoxes {
		for _, b := range plot.Boxes {
			fp := footprint(b)
			if fp == nil {
				continue
			}
			scatter.Overlap(polyline(b.Text, fp, "#00c853"))
		}
	}

	return scatter.Render(buf)
}

// footprint is the closed outline of the box's bottom face. It relies on
// the first four wireframe edges being (0,1) (0,2) (1,3) (2,3).
func footprint(b visualiser.BoxPlot) [][2]float64 {
	if len(b.Edges) < 4 {
		return nil
	}
	v0, v1 := b.Edges[0].From, b.Edges[0].To
	v3, v2 := b.Edges[2].To, b.Edges[3].From
	return [][2]float64{
		{v0[0], v0[1]}, {v1[0], v1[1]}, {v3[0], v3[1]}, {v2[0], v2[1]}, {v0[0], v0[1]},
	}
}

func rangeOutline(segs []visualiser.Segment) [][2]float64 {
	out := make([][2]float64, 0, len(segs)+1)
	for _, s := range segs {
		out = append(out, [2]float64{s.From[0], s.From[1]})
	}
	last := segs[len(segs)-1].To
	return append(out, [2]float64{last[0], last[1]})
}

func polyline(name string, pts [][2]float64, color string) *charts.Line {
	data := make([]opts.LineData, len(pts))
	for i, p := range pts {
		data[i] = opts.LineData{Value: []interface{}{p[0], p[1]}}
	}
	line := charts.NewLine()
	line.AddSeries(name, data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 1}),
	)
	return line
}
