// Command kitti-review serves an interactive bird's-eye review of a KITTI
// sequence: point clouds with their annotated boxes, navigation, autoplay
// and screencast recording.
//
// Usage:
//
//	kitti-review -kitti-dir /data/kitti/training [flags]
//
// Open the listen address in a browser; the arrow keys, space, b, i, r and
// escape drive the session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/kitti.review/internal/config"
	"github.com/banshee-data/kitti.review/internal/kitti"
	"github.com/banshee-data/kitti.review/internal/lidar"
	"github.com/banshee-data/kitti.review/internal/lidar/l2frames"
	"github.com/banshee-data/kitti.review/internal/lidar/monitor"
	"github.com/banshee-data/kitti.review/internal/lidar/visualiser"
	"github.com/banshee-data/kitti.review/internal/lidar/visualiser/recorder"
	"github.com/banshee-data/kitti.review/internal/version"
)

// flags holds the command line. Flags left unset do not override the
// config file.
type flags struct {
	set *flag.FlagSet

	configPath    string
	kittiDir      string
	annDir        string
	format        string
	listen        string
	screencastDir string
	cacheCapacity int
	playOnStart   bool
	recordOnStart bool
	loop          bool
	debug         bool
	showVersion   bool
}

func parseFlags(args []string, output io.Writer) (*flags, error) {
	f := &flags{set: flag.NewFlagSet("kitti-review", flag.ContinueOnError)}
	fs := f.set
	fs.SetOutput(output)
	fs.StringVar(&f.configPath, "config", "", "Path to a viewer config file (.json, .yaml or .yml)")
	fs.StringVar(&f.kittiDir, "kitti-dir", "", "KITTI sequence root containing label_2, calib and velodyne")
	fs.StringVar(&f.annDir, "supervisely-ann-dir", "", "Directory of <index>.pcd.json annotations; overrides label_2")
	fs.StringVar(&f.format, "format", config.DefaultLabelFormat, "label_2 convention: libpcl or philly")
	fs.StringVar(&f.listen, "listen", config.DefaultListen, "HTTP listen address")
	fs.StringVar(&f.screencastDir, "screencast-dir", "", "Directory for recorded frames")
	fs.IntVar(&f.cacheCapacity, "cache-capacity", config.DefaultCacheCapacity, "Number of loaded frames kept in memory")
	fs.BoolVar(&f.playOnStart, "play-on-start", false, "Start autoplay immediately")
	fs.BoolVar(&f.recordOnStart, "record-on-start", false, "Start recording immediately (needs -screencast-dir)")
	fs.BoolVar(&f.loop, "loop", false, "Wrap autoplay to the first frame instead of stopping")
	fs.BoolVar(&f.debug, "debug", false, "Log loader, cache and render diagnostics")
	fs.BoolVar(&f.showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// resolveConfig loads the config file, if any, and applies explicitly set flags.
func (f *flags) resolveConfig() (*config.ViewerConfig, error) {
	cfg := &config.ViewerConfig{}
	if f.configPath != "" {
		loaded, err := config.LoadViewerConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f.set.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "kitti-dir":
			cfg.KittiDir = &f.kittiDir
		case "supervisely-ann-dir":
			cfg.SuperviselyAnnDir = &f.annDir
		case "format":
			cfg.LabelFormat = &f.format
		case "listen":
			cfg.Listen = &f.listen
		case "screencast-dir":
			cfg.ScreencastDir = &f.screencastDir
		case "cache-capacity":
			cfg.CacheCapacity = &f.cacheCapacity
		case "play-on-start":
			cfg.PlayOnStart = &f.playOnStart
		case "record-on-start":
			cfg.RecordOnStart = &f.recordOnStart
		case "loop":
			cfg.LoopPlayback = &f.loop
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.GetKittiDir() == "" {
		return nil, errors.New("-kitti-dir (or kitti_dir in the config file) is required")
	}
	return cfg, nil
}

func setupLogging(debug bool) {
	w := lidar.LogWriters{Ops: os.Stderr, Diag: os.Stderr}
	if debug {
		w.Trace = os.Stderr
	}
	lidar.SetLogWriters(w)
}

// newSession enumerates the sequence and builds the review session.
func newSession(cfg *config.ViewerConfig) (*visualiser.Session, func() error, error) {
	format, err := kitti.ParseLabelFormat(cfg.GetLabelFormat())
	if err != nil {
		return nil, nil, err
	}
	loader := l2frames.NewLoader(l2frames.LoaderConfig{
		Dataset: kitti.Dataset{
			Root:          cfg.GetKittiDir(),
			AnnotationDir: cfg.GetSuperviselyAnnDir(),
		},
		Format:         format,
		ExcludeClasses: cfg.GetExcludeClasses(),
	})
	indices, err := loader.Indices()
	if err != nil {
		return nil, nil, fmt.Errorf("no frames to review: %w", err)
	}
	log.Printf("found %d frames in %s (%d..%d)", len(indices), cfg.GetKittiDir(), indices[0], indices[len(indices)-1])

	cache, err := l2frames.NewFrameCache(cfg.GetCacheCapacity())
	if err != nil {
		return nil, nil, err
	}

	sc := visualiser.SessionConfig{
		Indices:     indices,
		Load:        loader.LoadFrame,
		Cache:       cache,
		FramePeriod: cfg.GetFramePeriod(),
		Loop:        cfg.GetLoopPlayback(),
		Render: visualiser.RenderConfig{
			Range:     visualiser.NewRangeBoundary(cfg.GetRangeBoundary()),
			Palette:   visualiser.NewIntensityPalette(),
			PointSize: cfg.GetPointSize(),
		},
		PlayOnStart:   cfg.GetPlayOnStart(),
		RecordOnStart: cfg.GetRecordOnStart(),
	}
	closeRec := func() error { return nil }
	if dir := cfg.GetScreencastDir(); dir != "" {
		rec, err := recorder.NewRecorder(nil, dir)
		if err != nil {
			return nil, nil, err
		}
		sc.Recorder = rec
		closeRec = rec.Close
	}

	session, err := visualiser.NewSession(sc)
	if err != nil {
		closeRec()
		return nil, nil, err
	}
	return session, closeRec, nil
}

// serve runs the viewer loop and the HTTP server until ctx ends or the
// session is closed with escape.
func serve(ctx context.Context, cfg *config.ViewerConfig, session *visualiser.Session) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	viewer := monitor.NewViewer(monitor.ViewerConfig{
		Session:        session,
		RenderInterval: cfg.GetRenderInterval(),
	})
	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address: cfg.GetListen(),
		Dataset: cfg.GetKittiDir(),
		Viewer:  viewer,
	})

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		return viewer.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return ws.Start(ctx)
	})
	return g.Wait()
}

func main() {
	f, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if f.showVersion {
		fmt.Println(version.String("kitti-review"))
		return
	}

	setupLogging(f.debug)
	cfg, err := f.resolveConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	session, closeRec, err := newSession(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeRec()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("kitti-review %s listening on http://%s", version.Version, cfg.GetListen())
	if err := serve(ctx, cfg, session); err != nil {
		log.Printf("viewer stopped: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
