package kitti

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/kitti.review/internal/testutil"
)

func TestDatasetPaths(t *testing.T) {
	ds := Dataset{Root: "/data/kitti", AnnotationDir: "/data/ann"}

	assert.Equal(t, "000042", FrameName(42))
	assert.Equal(t, "/data/kitti/label_2/000042.txt", ds.LabelPath(42))
	assert.Equal(t, "/data/kitti/calib/000042.txt", ds.CalibPath(42))
	assert.Equal(t, "/data/kitti/velodyne/000042.bin", ds.VelodynePath(42))
	assert.Equal(t, "/data/ann/000042.pcd.json", ds.AnnotationPath(42))
	assert.True(t, ds.HasExternalAnnotations())
	assert.False(t, Dataset{Root: "/x"}.HasExternalAnnotations())
}

func TestListIndices(t *testing.T) {
	d := testutil.NewDataset()
	for _, idx := range []int{10, 2, 7} {
		d.AddFrame(t, idx, "", "", nil)
	}
	d.WriteRaw(t, "label_2/README.txt", []byte("notes"))
	d.WriteRaw(t, "label_2/000003.bak", []byte(""))

	got, err := Dataset{Root: d.Root}.Indices(d.FS)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 7, 10}, got)
}

func TestListIndices_ExternalAnnotations(t *testing.T) {
	d := testutil.NewDataset()
	d.AddFrame(t, 1, "", "", nil)
	d.AddAnnotation(t, "/ann", 5, "{}")
	d.AddAnnotation(t, "/ann", 4, "{}")

	got, err := Dataset{Root: d.Root, AnnotationDir: "/ann"}.Indices(d.FS)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, got)
}

func TestListIndices_NoFrames(t *testing.T) {
	d := testutil.NewDataset()

	_, err := ListIndices(d.FS, "/kitti/label_2", LabelExt)
	assert.True(t, errors.Is(err, ErrNoFrames), "missing dir: err = %v", err)
	assert.True(t, errors.Is(err, ErrNotFound), "missing dir: err = %v", err)

	d.WriteRaw(t, "label_2/notes.txt", nil)
	_, err = ListIndices(d.FS, "/kitti/label_2", LabelExt)
	assert.True(t, errors.Is(err, ErrNoFrames), "empty dir: err = %v", err)
}

func TestLoadAnnotations(t *testing.T) {
	d := testutil.NewDataset()
	d.AddFrame(t, 0, "", testutil.EndToEndLabel, nil)
	ds := Dataset{Root: d.Root}

	objects, err := LoadAnnotations(d.FS, ds.LabelPath(0), PhillyLabelParser{})
	require.NoError(t, err)
	assert.Len(t, objects, 1)

	_, err = LoadAnnotations(d.FS, ds.LabelPath(1), PhillyLabelParser{})
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)

	d.WriteRaw(t, "label_2/000002.txt", []byte("Car 1 2"))
	_, err = LoadAnnotations(d.FS, ds.LabelPath(2), PhillyLabelParser{})
	assert.True(t, errors.Is(err, ErrParse), "err = %v", err)
	assert.True(t, strings.Contains(err.Error(), "000002.txt"), "err should name the file: %v", err)
}
