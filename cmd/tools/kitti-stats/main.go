// Command kitti-stats loads every frame of a KITTI sequence and writes a
// summary report: objects per class, per-frame in-box ratio and a
// points-per-object histogram.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/kitti.review/internal/config"
	"github.com/banshee-data/kitti.review/internal/fsutil"
	"github.com/banshee-data/kitti.review/internal/kitti"
	"github.com/banshee-data/kitti.review/internal/lidar/l2frames"
	"github.com/banshee-data/kitti.review/internal/lidar/visualiser"
)

const (
	reportFile    = "report.html"
	histogramFile = "points_per_object.png"
)

type frameResult struct {
	stats visualiser.FrameStats
	err   error
}

// buildReport loads indices concurrently, bypassing any frame cache, and
// collects their statistics in sequence order.
func buildReport(title string, load l2frames.LoadFunc, indices []int, rb visualiser.RangeBoundary, workers int) *visualiser.SequenceReport {
	results := make([]frameResult, len(indices))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, idx := range indices {
		g.Go(func() error {
			f, err := load(idx)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].stats = visualiser.Summarize(f, rb)
			return nil
		})
	}
	_ = g.Wait()

	report := visualiser.NewSequenceReport(title)
	for i, res := range results {
		if res.err != nil {
			log.Printf("frame %d skipped: %v", indices[i], res.err)
			report.AddFailure(indices[i], res.err)
			continue
		}
		report.Add(res.stats)
	}
	return report
}

// writeReport writes the HTML report and the histogram PNG into outDir.
func writeReport(fsys fsutil.FileSystem, outDir string, report *visualiser.SequenceReport) error {
	if err := fsys.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	html, err := fsys.Create(filepath.Join(outDir, reportFile))
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.WriteHTML(html); err != nil {
		html.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := html.Close(); err != nil {
		return err
	}

	png, err := fsys.Create(filepath.Join(outDir, histogramFile))
	if err != nil {
		return fmt.Errorf("failed to create histogram: %w", err)
	}
	if err := report.WritePointsHistogram(png); err != nil {
		png.Close()
		return fmt.Errorf("failed to render histogram: %w", err)
	}
	return png.Close()
}

func main() {
	kittiDir := flag.String("kitti-dir", "", "KITTI sequence root containing label_2, calib and velodyne")
	annDir := flag.String("supervisely-ann-dir", "", "Directory of <index>.pcd.json annotations; overrides label_2")
	format := flag.String("format", config.DefaultLabelFormat, "label_2 convention: libpcl or philly")
	outDir := flag.String("out", "kitti-report", "Output directory for report.html and points_per_object.png")
	workers := flag.Int("workers", runtime.GOMAXPROCS(0), "Frames loaded in parallel")
	flag.Parse()

	if *kittiDir == "" {
		log.Fatal("-kitti-dir is required")
	}
	labelFormat, err := kitti.ParseLabelFormat(*format)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *workers <= 0 {
		*workers = 1
	}

	loader := l2frames.NewLoader(l2frames.LoaderConfig{
		Dataset:        kitti.Dataset{Root: *kittiDir, AnnotationDir: *annDir},
		Format:         labelFormat,
		ExcludeClasses: config.DefaultExcludeClasses,
	})
	indices, err := loader.Indices()
	if err != nil {
		log.Fatalf("no frames to summarise: %v", err)
	}

	rb := visualiser.NewRangeBoundary(config.DefaultRangeBoundary)
	report := buildReport(filepath.Base(*kittiDir), loader.LoadFrame, indices, rb, *workers)
	if err := writeReport(fsutil.OSFileSystem{}, *outDir, report); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("done: frames=%d failed=%d out=%s", len(report.Frames), len(report.Failed), *outDir)
}
