package monitor

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kitti.review/internal/kitti"
	"github.com/banshee-data/kitti.review/internal/lidar/l2frames"
	"github.com/banshee-data/kitti.review/internal/lidar/visualiser"
	"github.com/banshee-data/kitti.review/internal/testutil"
)

// v0Frame holds one axis-aligned box at the origin.
func v0Frame() *l2frames.Frame {
	return &l2frames.Frame{Objects: []kitti.Object{{
		Class: "Van",
		Box3D: kitti.Box3D{Extents: r3.Vec{X: 4, Y: 2, Z: 2}, Pose: kitti.NewPose(r3.Vec{}, quat.Number{Real: 1})},
	}}}
}

func TestWebServer_FrameChart(t *testing.T) {
	ws, v := newTestServer(t)
	v.step(nil)

	w := serve(ws, testutil.NewTestRequest(http.MethodGet, "/frame.html"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)
	body := w.Body.String()
	for _, s := range []string{"KITTI Frame", "inside boxes", "outside boxes", "range", echartsAssetsPrefix} {
		if !strings.Contains(body, s) {
			t.Errorf("chart missing %q", s)
		}
	}
}

func TestRenderFrameChart_Stride(t *testing.T) {
	plot := &visualiser.FramePlot{Index: 9, Points: make([]visualiser.PointPlot, 2*maxChartPoints+1)}
	var buf bytes.Buffer
	if err := renderFrameChart(&buf, plot); err != nil {
		t.Fatalf("renderFrameChart() error = %v", err)
	}
	if !strings.Contains(buf.String(), "stride=3") {
		t.Error("expected large clouds to be strided")
	}
}

func TestFootprint(t *testing.T) {
	fp := visualiser.ConvertFrame(0, v0Frame(), visualiser.DefaultOptions(), visualiser.RenderConfig{})
	got := footprint(fp.Boxes[0])
	if len(got) != 5 || got[0] != got[4] {
		t.Fatalf("expected closed outline, got %v", got)
	}
	for i := 0; i < 4; i++ {
		a, b := got[i], got[i+1]
		if a[0] != b[0] && a[1] != b[1] {
			t.Errorf("outline edge %d is diagonal: %v -> %v", i, a, b)
		}
	}
	if footprint(visualiser.BoxPlot{}) != nil {
		t.Error("expected no outline without edges")
	}
}
