// Package recorder writes screencasts of a review session: one bird's-eye
// PNG per displayed frame under a per-session directory.
package recorder

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/kitti.review/internal/fsutil"
	"github.com/banshee-data/kitti.review/internal/lidar"
	"github.com/banshee-data/kitti.review/internal/lidar/visualiser"
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("recorder closed")

// Recorder writes <base>/<session-uuid>/<position:06>.png.
type Recorder struct {
	mu        sync.Mutex
	fs        fsutil.FileSystem
	sessionID string
	path      string
	frames    int
	closed    bool
}

// NewRecorder creates the session directory under baseDir.
func NewRecorder(fsys fsutil.FileSystem, baseDir string) (*Recorder, error) {
	if baseDir == "" {
		return nil, errors.New("screencast directory is empty")
	}
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	id := uuid.NewString()
	path := filepath.Join(baseDir, id)
	if err := fsys.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create screencast directory: %w", err)
	}
	lidar.Opsf("[Recorder] screencast session %s at %s", id, path)
	return &Recorder{fs: fsys, sessionID: id, path: path}, nil
}

// SessionID returns the identifier naming the session directory.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Path returns the session directory.
func (r *Recorder) Path() string {
	return r.path
}

// FrameName returns the file name used for a sequence position.
func FrameName(position int) string {
	return fmt.Sprintf("%06d.png", position)
}

// Record renders fp and writes it, replacing any earlier file for the same
// position. It returns the written path.
func (r *Recorder) Record(fp *visualiser.FramePlot) (string, error) {
	if fp == nil {
		return "", errors.New("nil frame plot")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}

	name := filepath.Join(r.path, FrameName(fp.Position))
	w, err := r.fs.Create(name)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	if err := visualiser.WriteBEVPNG(w, fp); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	r.frames++
	return name, nil
}

// FrameCount returns the number of frames written.
func (r *Recorder) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close stops further recording. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		lidar.Opsf("[Recorder] session %s closed after %d frames", r.sessionID, r.frames)
	}
	return nil
}
