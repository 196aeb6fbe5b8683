// Package testutil provides shared test utilities and fixtures.
//
// The dataset helpers lay out a KITTI-style sequence (calib/, label_2/,
// velodyne/ and an optional Supervisely annotation directory) on an
// in-memory filesystem so loader, cache and viewer tests share one shape.
package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/banshee-data/kitti.review/internal/fsutil"
)

// IdentityCalib is a calibration record whose three matrices are identities.
const IdentityCalib = `P0: 1 0 0 0 0 1 0 0 0 0 1 0
Tr_velo_to_cam: 1 0 0 0 0 1 0 0 0 0 1 0
R0_rect: 1 0 0 0 1 0 0 0 1
`

// CameraCalib maps velodyne axes (x forward, y left, z up) onto camera axes
// (x right, y down, z forward) with no translation and identity rectification.
const CameraCalib = `P0: 7.215377e+02 0 6.095593e+02 0 0 7.215377e+02 1.728540e+02 0 0 0 1 0
P1: 1 0 0 0 0 1 0 0 0 0 1 0
Tr_velo_to_cam: 0 -1 0 0 0 0 -1 0 1 0 0 0
R0_rect: 1 0 0 0 1 0 0 0 1
Tr_imu_to_velo: 1 0 0 0 0 1 0 0 0 0 1 0
`

// EndToEndLabel is a single primary-format label line with a score-less Car.
const EndToEndLabel = "Car 0 0 0 10 20 110 220 1.5 1.6 3.8 5 1.7 30 1.57\n"

// EncodeBin encodes points as little-endian float32 (x, y, z, intensity) records.
func EncodeBin(points ...[4]float32) []byte {
	buf := make([]byte, 0, len(points)*16)
	for _, p := range points {
		for _, v := range p {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf
}

// Dataset is an in-memory KITTI sequence under Root.
type Dataset struct {
	FS   *fsutil.MemoryFileSystem
	Root string
}

// NewDataset returns an empty dataset rooted at /kitti.
func NewDataset() *Dataset {
	return &Dataset{FS: fsutil.NewMemoryFileSystem(), Root: "/kitti"}
}

// AddFrame writes the calibration, label and velodyne files for index. An
// empty calib or nil points skips that file.
func (d *Dataset) AddFrame(t *testing.T, index int, calib, labels string, points [][4]float32) {
	t.Helper()
	stem := fmt.Sprintf("%06d", index)
	if calib != "" {
		d.write(t, filepath.Join(d.Root, "calib", stem+".txt"), []byte(calib))
	}
	d.write(t, filepath.Join(d.Root, "label_2", stem+".txt"), []byte(labels))
	if points != nil {
		d.write(t, filepath.Join(d.Root, "velodyne", stem+".bin"), EncodeBin(points...))
	}
}

// AddAnnotation writes a Supervisely <index>.pcd.json document under dir.
func (d *Dataset) AddAnnotation(t *testing.T, dir string, index int, doc string) {
	t.Helper()
	d.write(t, filepath.Join(dir, fmt.Sprintf("%06d.pcd.json", index)), []byte(doc))
}

// WriteRaw writes arbitrary bytes relative to Root.
func (d *Dataset) WriteRaw(t *testing.T, rel string, data []byte) {
	t.Helper()
	d.write(t, filepath.Join(d.Root, rel), data)
}

func (d *Dataset) write(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := d.FS.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}

// CuboidAnnotation returns a Supervisely document with one object and one
// cuboid figure. A non-empty confidence adds a textual Confidence tag.
func CuboidAnnotation(objectKey, class, confidence string, pos, rot, dim [3]float64) string {
	tags := "[]"
	if confidence != "" {
		tags = fmt.Sprintf(`[{"name":"Confidence","value":%q}]`, confidence)
	}
	return fmt.Sprintf(`{
  "description": "",
  "key": "frame",
  "tags": [],
  "objects": [{"key": %q, "classTitle": %q, "tags": %s}],
  "figures": [{
    "key": "fig-1",
    "objectKey": %q,
    "geometryType": "cuboid_3d",
    "geometry": {
      "position": {"x": %g, "y": %g, "z": %g},
      "rotation": {"x": %g, "y": %g, "z": %g},
      "dimensions": {"x": %g, "y": %g, "z": %g}
    }
  }]
}`, objectKey, class, tags, objectKey,
		pos[0], pos[1], pos[2], rot[0], rot[1], rot[2], dim[0], dim[1], dim[2])
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
