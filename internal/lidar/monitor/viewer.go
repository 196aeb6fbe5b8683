package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/banshee-data/kitti.review/internal/lidar/l2frames"
	"github.com/banshee-data/kitti.review/internal/lidar/visualiser"
	"github.com/banshee-data/kitti.review/internal/timeutil"
)

// Defaults for ViewerConfig.
const (
	DefaultRenderInterval = 20 * time.Millisecond
	DefaultStatsInterval  = 10 * time.Second
	defaultKeyBuffer      = 64
)

var (
	// ErrKeyQueueFull is returned when input arrives faster than the loop drains it.
	ErrKeyQueueFull = errors.New("key queue full")
	// ErrViewerClosed is returned for input after the loop has stopped.
	ErrViewerClosed = errors.New("viewer closed")
)

// ViewerConfig configures the interactive loop.
type ViewerConfig struct {
	Session *visualiser.Session
	// Clock drives the loop ticker; defaults to the real clock.
	Clock timeutil.Clock
	// RenderInterval is how often the loop steps without input.
	RenderInterval time.Duration
	// StatsInterval is how often throughput is logged.
	StatsInterval time.Duration
	Stats         *ViewerStats
	KeyBuffer     int
}

// Viewer runs the single goroutine that owns the Session and its cache.
// HTTP handlers only enqueue keys and read the last published snapshot.
type Viewer struct {
	session       *visualiser.Session
	clock         timeutil.Clock
	interval      time.Duration
	statsInterval time.Duration
	stats         *ViewerStats
	keys          chan visualiser.Key
	done          chan struct{}

	mu         sync.RWMutex
	plot       *visualiser.FramePlot
	state      visualiser.State
	cacheStats l2frames.CacheStats
	stopped    bool
}

// NewViewer creates a Viewer and publishes the session's initial state.
func NewViewer(cfg ViewerConfig) *Viewer {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	interval := cfg.RenderInterval
	if interval <= 0 {
		interval = DefaultRenderInterval
	}
	statsInterval := cfg.StatsInterval
	if statsInterval <= 0 {
		statsInterval = DefaultStatsInterval
	}
	stats := cfg.Stats
	if stats == nil {
		stats = NewViewerStats()
	}
	buf := cfg.KeyBuffer
	if buf <= 0 {
		buf = defaultKeyBuffer
	}
	v := &Viewer{
		session:       cfg.Session,
		clock:         clock,
		interval:      interval,
		statsInterval: statsInterval,
		stats:         stats,
		keys:          make(chan visualiser.Key, buf),
		done:          make(chan struct{}),
	}
	v.publish()
	return v
}

// Run steps the session on every key batch and every render interval until
// ctx is cancelled or the session is closed.
func (v *Viewer) Run(ctx context.Context) error {
	defer v.stop()

	ticker := v.clock.NewTicker(v.interval)
	defer ticker.Stop()
	statsTicker := v.clock.NewTicker(v.statsInterval)
	defer statsTicker.Stop()

	log.Printf("[Viewer] loop started, interval=%s", v.interval)
	v.step(nil)
	for !v.session.Closed() {
		select {
		case <-ctx.Done():
			log.Printf("[Viewer] loop stopped: %v", ctx.Err())
			return nil
		case k := <-v.keys:
			v.step(v.drain(k))
		case <-ticker.C():
			v.step(nil)
		case <-statsTicker.C():
			v.stats.LogStats()
		}
	}
	log.Printf("[Viewer] session closed")
	return nil
}

// drain collects first and any keys already queued behind it.
func (v *Viewer) drain(first visualiser.Key) []visualiser.Key {
	keys := []visualiser.Key{first}
	for {
		select {
		case k := <-v.keys:
			keys = append(keys, k)
		default:
			return keys
		}
	}
}

func (v *Viewer) step(keys []visualiser.Key) {
	before := v.session.Plot()
	failedBefore := v.session.State().LastError

	plot := v.session.Step(keys)

	if len(keys) > 0 {
		v.stats.AddKeys(len(keys))
	}
	if plot != nil && plot != before {
		v.stats.AddRender(len(plot.Points))
	}
	if st := v.session.State(); st.LastError != "" && st.LastError != failedBefore {
		v.stats.AddFailure()
	}
	v.publish()
}

func (v *Viewer) publish() {
	plot := v.session.Plot()
	state := v.session.State()
	cacheStats := v.session.Cache().Stats()

	v.mu.Lock()
	v.plot = plot
	v.state = state
	v.cacheStats = cacheStats
	v.mu.Unlock()
}

func (v *Viewer) stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.stopped {
		v.stopped = true
		close(v.done)
	}
}

// SendKey queues k for the loop without blocking.
func (v *Viewer) SendKey(k visualiser.Key) error {
	v.mu.RLock()
	stopped := v.stopped
	v.mu.RUnlock()
	if stopped {
		return ErrViewerClosed
	}
	select {
	case v.keys <- k:
		return nil
	default:
		return ErrKeyQueueFull
	}
}

// Plot returns the last published plot, or nil if no frame has loaded.
// The plot is never modified after publication.
func (v *Viewer) Plot() *visualiser.FramePlot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.plot
}

// State returns the last published session state.
func (v *Viewer) State() visualiser.State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// CacheStats returns the last published cache counters.
func (v *Viewer) CacheStats() l2frames.CacheStats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cacheStats
}

// Stats returns the throughput counters.
func (v *Viewer) Stats() *ViewerStats {
	return v.stats
}

// Done is closed when Run returns.
func (v *Viewer) Done() <-chan struct{} {
	return v.done
}
