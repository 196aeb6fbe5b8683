package recorder

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/banshee-data/kitti.review/internal/fsutil"
	"github.com/banshee-data/kitti.review/internal/lidar/visualiser"
)

func testPlot(position int) *visualiser.FramePlot {
	return &visualiser.FramePlot{
		Position: position,
		Index:    position + 100,
		Points: []visualiser.PointPlot{
			{Pos: [3]float32{1, 2, 0}, Color: visualiser.PointColor},
			{Pos: [3]float32{-3, 4, 0}, Color: visualiser.PointColor, InBox: true},
		},
		Range:     visualiser.NewRangeBoundary([4]float64{-10, -10, 10, 10}).Segments(),
		PointSize: 2,
	}
}

func TestNewRecorder(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	rec, err := NewRecorder(fsys, "/casts")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	if _, err := uuid.Parse(rec.SessionID()); err != nil {
		t.Errorf("session id %q is not a uuid: %v", rec.SessionID(), err)
	}
	if rec.Path() != filepath.Join("/casts", rec.SessionID()) {
		t.Errorf("unexpected path %q", rec.Path())
	}
	if !fsys.Exists(rec.Path()) {
		t.Error("expected session directory created")
	}

	other, err := NewRecorder(fsys, "/casts")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	if other.SessionID() == rec.SessionID() {
		t.Error("expected a fresh session id per recorder")
	}
}

func TestNewRecorder_EmptyDir(t *testing.T) {
	if _, err := NewRecorder(fsutil.NewMemoryFileSystem(), ""); err == nil {
		t.Error("expected error for an empty screencast directory")
	}
}

func TestRecorderRecord(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	rec, err := NewRecorder(fsys, "/casts")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	path, err := rec.Record(testPlot(3))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if want := filepath.Join(rec.Path(), "000003.png"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("recorded frame is not a PNG")
	}

	if _, err := rec.Record(testPlot(3)); err != nil {
		t.Fatalf("Record() rewrite error = %v", err)
	}
	if _, err := rec.Record(testPlot(12)); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if got := fsys.Files(rec.Path()); len(got) != 2 {
		t.Errorf("expected 2 files, got %v", got)
	}
	if rec.FrameCount() != 3 {
		t.Errorf("FrameCount() = %d, want 3", rec.FrameCount())
	}
}

func TestRecorderRecordNilFrame(t *testing.T) {
	rec, err := NewRecorder(fsutil.NewMemoryFileSystem(), "/casts")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	if _, err := rec.Record(nil); err == nil {
		t.Error("expected error for nil frame")
	}
}

func TestRecorderClose(t *testing.T) {
	rec, err := NewRecorder(fsutil.NewMemoryFileSystem(), "/casts")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := rec.Record(testPlot(0)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestRecorderOnDisk(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(fsutil.OSFileSystem{}, dir)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	path, err := rec.Record(testPlot(1))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !(fsutil.OSFileSystem{}).Exists(path) {
		t.Errorf("expected %s on disk", path)
	}
}

func TestFrameName(t *testing.T) {
	if got := FrameName(42); got != "000042.png" {
		t.Errorf("FrameName(42) = %q", got)
	}
}
