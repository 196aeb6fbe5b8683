package monitor

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// StatsSnapshot is the render throughput over the last logging interval.
type StatsSnapshot struct {
	RendersPerSec float64   `json:"renders_per_sec"`
	PointsPerSec  float64   `json:"points_per_sec"`
	Keys          int64     `json:"keys"`
	Failures      int64     `json:"failures"`
	Timestamp     time.Time `json:"timestamp"`
}

// ViewerStats counts renders, drawn points and handled keys.
type ViewerStats struct {
	mu             sync.Mutex
	renderCount    int64
	pointCount     int64
	keyCount       int64
	failureCount   int64
	lastReset      time.Time
	startTime      time.Time
	latestSnapshot *StatsSnapshot
}

// NewViewerStats creates a new ViewerStats instance.
func NewViewerStats() *ViewerStats {
	now := time.Now()
	return &ViewerStats{
		lastReset: now,
		startTime: now,
	}
}

// AddRender counts a newly published plot of points points.
func (vs *ViewerStats) AddRender(points int) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.renderCount++
	vs.pointCount += int64(points)
}

// AddKeys counts handled input events.
func (vs *ViewerStats) AddKeys(n int) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.keyCount += int64(n)
}

// AddFailure counts a frame that could not be shown.
func (vs *ViewerStats) AddFailure() {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.failureCount++
}

// GetAndReset returns the current counters and resets them.
func (vs *ViewerStats) GetAndReset() (renders, points, keys, failures int64, duration time.Duration) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	now := time.Now()
	duration = now.Sub(vs.lastReset)
	renders, points, keys, failures = vs.renderCount, vs.pointCount, vs.keyCount, vs.failureCount

	vs.renderCount = 0
	vs.pointCount = 0
	vs.keyCount = 0
	vs.failureCount = 0
	vs.lastReset = now
	return
}

// LogStats logs the interval's throughput and stores it for the status page.
// Idle intervals are not logged.
func (vs *ViewerStats) LogStats() {
	renders, points, keys, failures, duration := vs.GetAndReset()
	if renders == 0 && keys == 0 && failures == 0 {
		return
	}
	secs := duration.Seconds()
	if secs <= 0 {
		secs = 1
	}
	snap := &StatsSnapshot{
		RendersPerSec: float64(renders) / secs,
		PointsPerSec:  float64(points) / secs,
		Keys:          keys,
		Failures:      failures,
		Timestamp:     time.Now(),
	}
	vs.mu.Lock()
	vs.latestSnapshot = snap
	vs.mu.Unlock()

	msg := fmt.Sprintf("[Viewer] stats (/sec): %.1f renders, %s points",
		snap.RendersPerSec, FormatWithCommas(int64(snap.PointsPerSec)))
	if keys > 0 {
		msg += fmt.Sprintf(", %d keys", keys)
	}
	if failures > 0 {
		msg += fmt.Sprintf(", %d failed frames", failures)
	}
	log.Print(msg)
}

// GetUptime returns the time since the stats were created.
func (vs *ViewerStats) GetUptime() time.Duration {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return time.Since(vs.startTime)
}

// GetLatestSnapshot returns a copy of the most recent snapshot, or nil.
func (vs *ViewerStats) GetLatestSnapshot() *StatsSnapshot {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if vs.latestSnapshot == nil {
		return nil
	}
	snapshot := *vs.latestSnapshot
	return &snapshot
}

// FormatWithCommas formats a number with thousands separators.
func FormatWithCommas(n int64) string {
	if n < 0 {
		return "-" + FormatWithCommas(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	pre := len(s) % 3
	if pre > 0 {
		out = append(out, s[:pre]...)
	}
	for i := pre; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
