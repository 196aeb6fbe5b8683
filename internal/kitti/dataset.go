package kitti

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/kitti.review/internal/fsutil"
)

// Sequence layout under the KITTI root directory.
const (
	LabelDir    = "label_2"
	CalibDir    = "calib"
	VelodyneDir = "velodyne"

	LabelExt       = ".txt"
	CalibExt       = ".txt"
	VelodyneExt    = ".bin"
	AnnotationExt  = ".pcd.json"
	frameNameWidth = 6
)

// Dataset resolves per-frame input paths. AnnotationDir, when set, points at
// Supervisely `<index>.pcd.json` files that replace label_2 entirely.
type Dataset struct {
	Root          string
	AnnotationDir string
}

// FrameName formats a frame index as the zero-padded 6-digit file stem.
func FrameName(index int) string {
	return fmt.Sprintf("%0*d", frameNameWidth, index)
}

// LabelPath returns label_2/<index>.txt.
func (d Dataset) LabelPath(index int) string {
	return filepath.Join(d.Root, LabelDir, FrameName(index)+LabelExt)
}

// CalibPath returns calib/<index>.txt.
func (d Dataset) CalibPath(index int) string {
	return filepath.Join(d.Root, CalibDir, FrameName(index)+CalibExt)
}

// VelodynePath returns velodyne/<index>.bin.
func (d Dataset) VelodynePath(index int) string {
	return filepath.Join(d.Root, VelodyneDir, FrameName(index)+VelodyneExt)
}

// AnnotationPath returns <AnnotationDir>/<index>.pcd.json.
func (d Dataset) AnnotationPath(index int) string {
	return filepath.Join(d.AnnotationDir, FrameName(index)+AnnotationExt)
}

// HasExternalAnnotations reports whether Supervisely annotations override label_2.
func (d Dataset) HasExternalAnnotations() bool {
	return d.AnnotationDir != ""
}

// Indices enumerates the frames of the sequence: the Supervisely directory
// when configured, label_2 otherwise.
func (d Dataset) Indices(fsys fsutil.FileSystem) ([]int, error) {
	if d.HasExternalAnnotations() {
		return ListIndices(fsys, d.AnnotationDir, AnnotationExt)
	}
	return ListIndices(fsys, filepath.Join(d.Root, LabelDir), LabelExt)
}

// ListIndices returns the sorted numeric stems of files in dir ending in ext.
// Files whose stem is not an integer are skipped.
func ListIndices(fsys fsutil.FileSystem, dir, ext string) ([]int, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNoFrames, dir, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	indices := make([]int, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		idx, err := strconv.Atoi(stem)
		if err != nil || idx < 0 {
			log.Printf("[Dataset] skipping %s: stem %q is not a frame index", filepath.Join(dir, name), stem)
			continue
		}
		indices = append(indices, idx)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}
	sort.Ints(indices)
	return indices, nil
}

// Open opens a frame input file, mapping a missing file onto ErrNotFound.
func Open(fsys fsutil.FileSystem, path string) (fs.File, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

// LoadAnnotations opens path and runs parser over it.
func LoadAnnotations(fsys fsutil.FileSystem, path string, parser AnnotationParser) ([]Object, error) {
	f, err := Open(fsys, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	objects, err := parser.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return objects, nil
}
