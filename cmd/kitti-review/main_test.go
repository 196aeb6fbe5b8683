package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/kitti.review/internal/config"
	"github.com/banshee-data/kitti.review/internal/testutil"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolveConfig_Defaults(t *testing.T) {
	f, err := parseFlags([]string{"-kitti-dir", "/data/kitti"}, io.Discard)
	require.NoError(t, err)

	cfg, err := f.resolveConfig()
	require.NoError(t, err)
	assert.Equal(t, "/data/kitti", cfg.GetKittiDir())
	assert.Equal(t, config.DefaultListen, cfg.GetListen())
	assert.Equal(t, config.DefaultCacheCapacity, cfg.GetCacheCapacity())
	assert.Equal(t, config.DefaultLabelFormat, cfg.GetLabelFormat())
	assert.False(t, cfg.GetPlayOnStart())
	assert.Empty(t, cfg.GetScreencastDir())
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
kitti_dir: /from/file
listen: localhost:9000
cache_capacity: 8
loop_playback: true
`)
	f, err := parseFlags([]string{"-config", path, "-listen", "localhost:9100", "-play-on-start"}, io.Discard)
	require.NoError(t, err)

	cfg, err := f.resolveConfig()
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.GetKittiDir())
	assert.Equal(t, "localhost:9100", cfg.GetListen())
	assert.Equal(t, 8, cfg.GetCacheCapacity(), "unset flag must not override the file")
	assert.True(t, cfg.GetLoopPlayback())
	assert.True(t, cfg.GetPlayOnStart())
}

func TestResolveConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing kitti dir", nil},
		{"bad format", []string{"-kitti-dir", "/k", "-format", "kitti"}},
		{"zero cache", []string{"-kitti-dir", "/k", "-cache-capacity", "0"}},
		{"missing config file", []string{"-kitti-dir", "/k", "-config", "/does/not/exist.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFlags(tt.args, io.Discard)
			require.NoError(t, err)
			_, err = f.resolveConfig()
			assert.Error(t, err)
		})
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	_, err := parseFlags([]string{"-no-such-flag"}, io.Discard)
	assert.Error(t, err)
}

func TestNewSession_NoFrames(t *testing.T) {
	dir := t.TempDir()
	f, err := parseFlags([]string{"-kitti-dir", dir}, io.Discard)
	require.NoError(t, err)
	cfg, err := f.resolveConfig()
	require.NoError(t, err)

	_, _, err = newSession(cfg)
	assert.Error(t, err)
}

func TestNewSession_WithRecorder(t *testing.T) {
	root := t.TempDir()
	for _, sub := range []string{"label_2", "calib", "velodyne"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, sub), 0o755))
	}
	for _, name := range []string{"000000", "000001"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "label_2", name+".txt"), []byte(testutil.EndToEndLabel), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "calib", name+".txt"), []byte(testutil.IdentityCalib), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "velodyne", name+".bin"), testutil.EncodeBin([4]float32{1, 2, 3, 0.5}), 0o644))
	}
	screencast := t.TempDir()

	f, err := parseFlags([]string{"-kitti-dir", root, "-screencast-dir", screencast}, io.Discard)
	require.NoError(t, err)
	cfg, err := f.resolveConfig()
	require.NoError(t, err)

	session, closeRec, err := newSession(cfg)
	require.NoError(t, err)
	defer closeRec()

	plot := session.Step(nil)
	require.NotNil(t, plot)
	assert.Equal(t, 0, plot.Index)
	assert.Equal(t, 2, session.State().Frames)

	entries, err := os.ReadDir(screencast)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "recorder creates one session directory")
}
