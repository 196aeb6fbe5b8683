package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/kitti.review/internal/fsutil"
)

// ExampleConfigPath is the annotated example shipped with the repository.
const ExampleConfigPath = "config/viewer.example.yaml"

const maxConfigFileSize = 1 * 1024 * 1024 // 1MB

// Defaults applied by the Get* accessors.
const (
	DefaultCacheCapacity  = 32
	DefaultFramePeriod    = 100 * time.Millisecond
	DefaultRenderInterval = 20 * time.Millisecond
	DefaultListen         = "localhost:8090"
	DefaultPointSize      = 2.0
	DefaultLabelFormat    = "libpcl"
)

// DefaultExcludeClasses are label_2 classes skipped unless overridden.
var DefaultExcludeClasses = []string{"DontCare"}

// DefaultRangeBoundary is the reviewed area as [min_x, min_y, max_x, max_y]
// in sensor metres.
var DefaultRangeBoundary = [4]float64{-30, -40, 40.4, 40}

// ViewerConfig is the optional configuration file for the viewer. Every
// field may be omitted; accessors supply defaults and CLI flags override.
type ViewerConfig struct {
	// Dataset
	KittiDir          *string  `json:"kitti_dir,omitempty" yaml:"kitti_dir,omitempty"`
	SuperviselyAnnDir *string  `json:"supervisely_ann_dir,omitempty" yaml:"supervisely_ann_dir,omitempty"`
	LabelFormat       *string  `json:"label_format,omitempty" yaml:"label_format,omitempty"`
	ExcludeClasses    []string `json:"exclude_classes,omitempty" yaml:"exclude_classes,omitempty"`

	// Cache and playback
	CacheCapacity  *int    `json:"cache_capacity,omitempty" yaml:"cache_capacity,omitempty"`
	FramePeriod    *string `json:"frame_period,omitempty" yaml:"frame_period,omitempty"`       // duration string like "100ms"
	RenderInterval *string `json:"render_interval,omitempty" yaml:"render_interval,omitempty"` // loop wake-up cadence
	LoopPlayback   *bool   `json:"loop_playback,omitempty" yaml:"loop_playback,omitempty"`
	PlayOnStart    *bool   `json:"play_on_start,omitempty" yaml:"play_on_start,omitempty"`
	RecordOnStart  *bool   `json:"record_on_start,omitempty" yaml:"record_on_start,omitempty"`

	// Rendering
	RangeBoundary []float64 `json:"range_boundary,omitempty" yaml:"range_boundary,omitempty"`
	PointSize     *float64  `json:"point_size,omitempty" yaml:"point_size,omitempty"`
	ScreencastDir *string   `json:"screencast_dir,omitempty" yaml:"screencast_dir,omitempty"`

	// HTTP
	Listen *string `json:"listen,omitempty" yaml:"listen,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrBool(v bool) *bool       { return &v }

// LoadViewerConfig loads a ViewerConfig from a .json, .yaml or .yml file.
func LoadViewerConfig(path string) (*ViewerConfig, error) {
	return LoadViewerConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadViewerConfigFS loads a ViewerConfig through fsys. The file must be
// under 1MB. Fields omitted from the file keep their defaults.
func LoadViewerConfigFS(fsys fsutil.FileSystem, path string) (*ViewerConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ViewerConfig{}
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", cleanPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *ViewerConfig) Validate() error {
	if c.CacheCapacity != nil && *c.CacheCapacity <= 0 {
		return fmt.Errorf("cache_capacity must be positive, got %d", *c.CacheCapacity)
	}
	if c.FramePeriod != nil && *c.FramePeriod != "" {
		d, err := time.ParseDuration(*c.FramePeriod)
		if err != nil {
			return fmt.Errorf("invalid frame_period '%s': %w", *c.FramePeriod, err)
		}
		if d <= 0 {
			return fmt.Errorf("frame_period must be positive, got %s", d)
		}
	}
	if c.RenderInterval != nil && *c.RenderInterval != "" {
		d, err := time.ParseDuration(*c.RenderInterval)
		if err != nil {
			return fmt.Errorf("invalid render_interval '%s': %w", *c.RenderInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("render_interval must be positive, got %s", d)
		}
	}
	if c.LabelFormat != nil {
		switch *c.LabelFormat {
		case "", "libpcl", "philly":
		default:
			return fmt.Errorf("label_format must be libpcl or philly, got %q", *c.LabelFormat)
		}
	}
	if c.RangeBoundary != nil {
		if len(c.RangeBoundary) != 4 {
			return fmt.Errorf("range_boundary must have 4 values [min_x, min_y, max_x, max_y], got %d", len(c.RangeBoundary))
		}
		if c.RangeBoundary[0] > c.RangeBoundary[2] || c.RangeBoundary[1] > c.RangeBoundary[3] {
			return fmt.Errorf("range_boundary minimum exceeds maximum: %v", c.RangeBoundary)
		}
	}
	if c.PointSize != nil && *c.PointSize <= 0 {
		return fmt.Errorf("point_size must be positive, got %f", *c.PointSize)
	}
	return nil
}

// GetKittiDir returns the dataset root or "".
func (c *ViewerConfig) GetKittiDir() string {
	if c.KittiDir == nil {
		return ""
	}
	return *c.KittiDir
}

// GetSuperviselyAnnDir returns the external annotation directory or "".
func (c *ViewerConfig) GetSuperviselyAnnDir() string {
	if c.SuperviselyAnnDir == nil {
		return ""
	}
	return *c.SuperviselyAnnDir
}

// GetLabelFormat returns the label_2 convention name or the default.
func (c *ViewerConfig) GetLabelFormat() string {
	if c.LabelFormat == nil || *c.LabelFormat == "" {
		return DefaultLabelFormat
	}
	return *c.LabelFormat
}

// GetExcludeClasses returns the excluded classes or the default. An explicit
// empty list in the file is indistinguishable from omission.
func (c *ViewerConfig) GetExcludeClasses() []string {
	if len(c.ExcludeClasses) == 0 {
		return append([]string(nil), DefaultExcludeClasses...)
	}
	return append([]string(nil), c.ExcludeClasses...)
}

// GetCacheCapacity returns the cache capacity or the default.
func (c *ViewerConfig) GetCacheCapacity() int {
	if c.CacheCapacity == nil {
		return DefaultCacheCapacity
	}
	return *c.CacheCapacity
}

// GetFramePeriod returns the autoplay period or the default.
func (c *ViewerConfig) GetFramePeriod() time.Duration {
	return parseDurationOr(c.FramePeriod, DefaultFramePeriod)
}

// GetRenderInterval returns the viewer loop cadence or the default.
func (c *ViewerConfig) GetRenderInterval() time.Duration {
	return parseDurationOr(c.RenderInterval, DefaultRenderInterval)
}

// GetLoopPlayback reports whether autoplay wraps at the last frame.
func (c *ViewerConfig) GetLoopPlayback() bool {
	return c.LoopPlayback != nil && *c.LoopPlayback
}

// GetPlayOnStart reports whether autoplay starts immediately.
func (c *ViewerConfig) GetPlayOnStart() bool {
	return c.PlayOnStart != nil && *c.PlayOnStart
}

// GetRecordOnStart reports whether recording starts immediately.
func (c *ViewerConfig) GetRecordOnStart() bool {
	return c.RecordOnStart != nil && *c.RecordOnStart
}

// GetRangeBoundary returns [min_x, min_y, max_x, max_y] or the default.
func (c *ViewerConfig) GetRangeBoundary() [4]float64 {
	if len(c.RangeBoundary) != 4 {
		return DefaultRangeBoundary
	}
	return [4]float64(c.RangeBoundary)
}

// GetPointSize returns the rendered point size or the default.
func (c *ViewerConfig) GetPointSize() float64 {
	if c.PointSize == nil {
		return DefaultPointSize
	}
	return *c.PointSize
}

// GetScreencastDir returns the recording directory or "".
func (c *ViewerConfig) GetScreencastDir() string {
	if c.ScreencastDir == nil {
		return ""
	}
	return *c.ScreencastDir
}

// GetListen returns the HTTP listen address or the default.
func (c *ViewerConfig) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return DefaultListen
	}
	return *c.Listen
}

func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
