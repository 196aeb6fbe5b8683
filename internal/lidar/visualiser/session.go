package visualiser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/kitti.review/internal/lidar"
	"github.com/banshee-data/kitti.review/internal/lidar/l2frames"
	"github.com/banshee-data/kitti.review/internal/timeutil"
)

// Key is an input event understood by a Session.
type Key int

const (
	KeyLeft Key = iota + 1
	KeyRight
	KeySpace
	KeyBoxes
	KeyIntensity
	KeyRecord
	KeyEscape
)

var keyNames = map[Key]string{
	KeyLeft:      "left",
	KeyRight:     "right",
	KeySpace:     "space",
	KeyBoxes:     "b",
	KeyIntensity: "i",
	KeyRecord:    "r",
	KeyEscape:    "escape",
}

// ErrUnknownKey is returned by ParseKey for unrecognised names.
var ErrUnknownKey = errors.New("unknown key")

// ParseKey maps a key name ("left", "right", "space", "b", "i", "r",
// "escape") to a Key. Matching ignores case.
func ParseKey(name string) (Key, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, s := range keyNames {
		if s == n {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, name)
}

func (k Key) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Key(%d)", int(k))
}

// FrameRecorder persists rendered frames while recording is on.
type FrameRecorder interface {
	Record(fp *FramePlot) (string, error)
}

// SessionConfig configures a Session.
type SessionConfig struct {
	// Indices are the frame indices in navigation order. Must be non-empty.
	Indices []int
	// Load produces a frame on a cache miss.
	Load l2frames.LoadFunc
	// Cache defaults to a new cache of DefaultCacheCapacity.
	Cache *l2frames.FrameCache
	// Clock defaults to the real clock.
	Clock timeutil.Clock

	// FramePeriod is the autoplay interval.
	FramePeriod time.Duration
	// Loop wraps autoplay to the first frame instead of stopping.
	Loop bool

	Render RenderConfig
	// Recorder is nil when no screencast directory is configured.
	Recorder FrameRecorder

	PlayOnStart   bool
	RecordOnStart bool
}

// State is a snapshot of a Session.
type State struct {
	Position  int     `json:"position"`
	Index     int     `json:"index"`
	Frames    int     `json:"frames"`
	Options   Options `json:"options"`
	Closed    bool    `json:"closed"`
	Rendered  int     `json:"rendered_position"`
	LastError string  `json:"last_error,omitempty"`
	Recorded  int     `json:"recorded"`
	CacheLen  int     `json:"cache_len"`
}

// Session is the interactive review state machine: navigation, toggles,
// autoplay and recording over a fixed list of frames. A Session is owned by
// one goroutine and is not safe for concurrent use.
type Session struct {
	indices  []int
	load     l2frames.LoadFunc
	cache    *l2frames.FrameCache
	clock    timeutil.Clock
	period   time.Duration
	loop     bool
	render   RenderConfig
	recorder FrameRecorder

	pos      int
	opts     Options
	nextTick time.Time // zero when unscheduled
	closed   bool

	plot       *FramePlot
	plotOpts   Options
	failedPos  int
	lastErr    error
	recordedAt int
	recorded   int
	warned     bool
}

// NewSession creates a Session positioned at the first frame.
func NewSession(cfg SessionConfig) (*Session, error) {
	if len(cfg.Indices) == 0 {
		return nil, errors.New("session needs at least one frame")
	}
	if cfg.Load == nil {
		return nil, errors.New("session needs a frame loader")
	}
	if cfg.FramePeriod <= 0 {
		return nil, fmt.Errorf("frame period must be positive, got %s", cfg.FramePeriod)
	}
	cache := cfg.Cache
	if cache == nil {
		var err error
		if cache, err = l2frames.NewFrameCache(l2frames.DefaultCacheCapacity); err != nil {
			return nil, err
		}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if cfg.Render.Palette == nil {
		cfg.Render.Palette = NewIntensityPalette()
	}

	s := &Session{
		indices:    append([]int(nil), cfg.Indices...),
		load:       cfg.Load,
		cache:      cache,
		clock:      clock,
		period:     cfg.FramePeriod,
		loop:       cfg.Loop,
		render:     cfg.Render,
		recorder:   cfg.Recorder,
		opts:       DefaultOptions(),
		failedPos:  -1,
		recordedAt: -1,
	}
	s.opts.Play = cfg.PlayOnStart
	if cfg.RecordOnStart {
		s.setRecord(true)
	}
	lidar.Opsf("[Session] %d frames, period=%s loop=%v play=%v record=%v",
		len(s.indices), s.period, s.loop, s.opts.Play, s.opts.Record)
	return s, nil
}

// Step applies keys in order, advances autoplay, makes sure the current
// frame is loaded and rendered, and records it when recording. It returns
// the plot now on display, which is the previous one if the current frame
// failed to load.
func (s *Session) Step(keys []Key) *FramePlot {
	for _, k := range keys {
		if s.closed {
			break
		}
		s.handleKey(k)
	}
	if s.closed {
		return s.plot
	}
	s.advance(s.clock.Now())
	s.ensure()
	s.record()
	return s.plot
}

func (s *Session) handleKey(k Key) {
	n := len(s.indices)
	switch k {
	case KeyLeft:
		s.setPosition((s.pos + n - 1) % n)
	case KeyRight:
		s.setPosition((s.pos + 1) % n)
	case KeySpace:
		s.setPlay(!s.opts.Play)
	case KeyBoxes:
		s.opts.ShowBoxes = !s.opts.ShowBoxes
	case KeyIntensity:
		s.opts.ColorByIntensity = !s.opts.ColorByIntensity
	case KeyRecord:
		s.setRecord(!s.opts.Record)
	case KeyEscape:
		s.closed = true
		lidar.Opsf("[Session] closed at frame %d", s.indices[s.pos])
	}
}

// setPosition is a manual jump; it always stops autoplay.
func (s *Session) setPosition(pos int) {
	s.pos = pos
	s.setPlay(false)
}

func (s *Session) setPlay(on bool) {
	s.opts.Play = on
	if !on {
		s.nextTick = time.Time{}
	}
}

func (s *Session) setRecord(on bool) {
	if on && s.recorder == nil {
		if !s.warned {
			s.warned = true
			lidar.Opsf("[Session] screencast directory is not set, recording is disabled")
		}
		return
	}
	s.opts.Record = on
}

// advance implements autoplay. The first call after play starts schedules
// a tick one period out; an overdue tick skips whole missed periods and
// moves one frame.
func (s *Session) advance(now time.Time) {
	if !s.opts.Play {
		return
	}
	if s.nextTick.IsZero() {
		s.nextTick = now.Add(s.period)
		return
	}
	if now.Before(s.nextTick) {
		return
	}
	for !now.Before(s.nextTick) {
		s.nextTick = s.nextTick.Add(s.period)
	}

	switch {
	case s.pos+1 < len(s.indices):
		s.pos++
	case s.loop:
		s.pos = 0
	default:
		s.setPlay(false)
	}
}

func renderOptions(o Options) Options {
	return Options{ShowBoxes: o.ShowBoxes, ColorByIntensity: o.ColorByIntensity}
}

func (s *Session) ensure() {
	want := renderOptions(s.opts)
	if s.plot != nil && s.plot.Position == s.pos && s.plotOpts == want {
		return
	}
	if s.failedPos == s.pos {
		return
	}

	index := s.indices[s.pos]
	frame, err := s.cache.GetOrLoad(index, s.load)
	if err != nil {
		s.failedPos = s.pos
		s.lastErr = err
		lidar.Diagf("fail to load frame %d: %v", index, err)
		return
	}
	s.failedPos = -1
	s.lastErr = nil
	s.plot = ConvertFrame(s.pos, frame, s.opts, s.render)
	s.plotOpts = want
}

func (s *Session) record() {
	if !s.opts.Record || s.recorder == nil || s.plot == nil {
		return
	}
	if s.plot.Position != s.pos || s.recordedAt == s.pos {
		return
	}
	path, err := s.recorder.Record(s.plot)
	if err != nil {
		lidar.Opsf("[Session] failed to record frame %d: %v", s.plot.Index, err)
		return
	}
	s.recordedAt = s.pos
	s.recorded++
	lidar.Tracef("[Session] recorded frame %d to %s", s.plot.Index, path)
}

// Plot returns the plot on display, or nil before the first successful load.
func (s *Session) Plot() *FramePlot {
	return s.plot
}

// Closed reports whether Escape was received.
func (s *Session) Closed() bool {
	return s.closed
}

// Options returns the current toggles.
func (s *Session) Options() Options {
	return s.opts
}

// Position returns the current place in the sequence.
func (s *Session) Position() int {
	return s.pos
}

// Cache returns the frame cache backing the session.
func (s *Session) Cache() *l2frames.FrameCache {
	return s.cache
}

// State returns a snapshot for reporting.
func (s *Session) State() State {
	st := State{
		Position: s.pos,
		Index:    s.indices[s.pos],
		Frames:   len(s.indices),
		Options:  s.opts,
		Closed:   s.closed,
		Rendered: -1,
		Recorded: s.recorded,
		CacheLen: s.cache.Len(),
	}
	if s.plot != nil {
		st.Rendered = s.plot.Position
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
