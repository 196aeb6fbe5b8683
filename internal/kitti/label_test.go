package kitti

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kitti.review/internal/testutil"
)

func mustCalib(t *testing.T, record string) *CalibrationSet {
	t.Helper()
	cs, err := ParseCalibration(strings.NewReader(record))
	require.NoError(t, err)
	return cs
}

func TestLabelParser_EndToEnd(t *testing.T) {
	p := LabelParser{Calib: mustCalib(t, testutil.CameraCalib)}

	objects, err := p.Parse(strings.NewReader(testutil.EndToEndLabel))
	require.NoError(t, err)
	require.Len(t, objects, 1)

	obj := objects[0]
	assert.Equal(t, "Car", obj.Class)
	assert.Equal(t, r3.Vec{X: 3.8, Y: 1.6, Z: 1.5}, obj.Box3D.Extents)
	// Fields 4..7 are left, top, right, bottom.
	assert.Equal(t, Box2D{Top: 20, Left: 10, Height: 200, Width: 100}, obj.Box2D)
	assert.Nil(t, obj.Score)
	assert.False(t, obj.HasObjectKey())

	// Base centre (5, 1.7, 30) lifted by h/2 then mapped into the sensor frame.
	assertVecNear(t, r3.Vec{X: 30, Y: -5, Z: -0.95}, obj.Box3D.Center(), 1e-9)

	// Heading: yaw = -rotation_y - pi/2 about sensor Z.
	yaw := -1.57 - math.Pi/2
	heading := obj.Box3D.Pose.Rotate(r3.Vec{X: 1})
	assertVecNear(t, r3.Vec{X: math.Cos(yaw), Y: math.Sin(yaw)}, heading, 1e-9)
}

func TestLabelParser_ScoreAndExclusion(t *testing.T) {
	input := strings.Join([]string{
		"Car 0 0 0 10 20 110 220 1.5 1.6 3.8 5 1.7 30 1.57 0.87",
		"",
		"DontCare -1 -1 -10 0 0 10 10 -1 -1 -1 -1000 -1000 -1000 -10",
		"Pedestrian 0 0 0 1 2 3 4 1.8 0.6 0.8 1 1.7 8 0",
	}, "\n")

	p := LabelParser{Calib: mustCalib(t, testutil.IdentityCalib), ExcludeClasses: []string{"DontCare"}}
	objects, err := p.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, objects, 2)

	require.NotNil(t, objects[0].Score)
	assert.InDelta(t, 0.87, *objects[0].Score, 1e-12)
	assert.Equal(t, "Pedestrian", objects[1].Class)
	assert.Nil(t, objects[1].Score)
}

func TestLabelParser_ExcludedLinesAreNotParsed(t *testing.T) {
	p := LabelParser{Calib: mustCalib(t, testutil.IdentityCalib), ExcludeClasses: []string{"Misc"}}
	objects, err := p.Parse(strings.NewReader("Misc not even numbers\n"))
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLabelParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"short line", "Car 0 0 0 10 20 110 220 1.5 1.6 3.8 5 1.7 30"},
		{"non-numeric extent", "Car 0 0 0 10 20 110 220 1.5 wide 3.8 5 1.7 30 1.57"},
		{"non-numeric score", "Car 0 0 0 10 20 110 220 1.5 1.6 3.8 5 1.7 30 1.57 high"},
	}
	p := LabelParser{Calib: mustCalib(t, testutil.IdentityCalib)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(strings.NewReader(tt.line))
			assert.True(t, errors.Is(err, ErrParse), "err = %v", err)
			assert.Contains(t, err.Error(), "line 1")
		})
	}

	_, err := LabelParser{}.Parse(strings.NewReader(testutil.EndToEndLabel))
	assert.True(t, errors.Is(err, ErrParse), "missing calibration: err = %v", err)
}

func TestPhillyLabelParser(t *testing.T) {
	p := PhillyLabelParser{}
	objects, err := p.Parse(strings.NewReader(testutil.EndToEndLabel))
	require.NoError(t, err)
	require.Len(t, objects, 1)

	obj := objects[0]
	// No height shift, no calibration, no extents reorder.
	assert.Equal(t, r3.Vec{X: 5, Y: 1.7, Z: 30}, obj.Box3D.Center())
	assert.Equal(t, r3.Vec{X: 1.5, Y: 1.6, Z: 3.8}, obj.Box3D.Extents)
	assert.Equal(t, Box2D{Top: 20, Left: 10, Height: 200, Width: 100}, obj.Box2D)

	heading := obj.Box3D.Pose.Rotate(r3.Vec{X: 1})
	assertVecNear(t, r3.Vec{X: math.Cos(1.57), Y: math.Sin(1.57)}, heading, 1e-9)
}

func TestParseLabelFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    LabelFormat
		wantErr bool
	}{
		{"", FormatLibPCL, false},
		{"libpcl", FormatLibPCL, false},
		{"Philly", FormatPhilly, false},
		{"pcd", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLabelFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got, mustFormat(t, got.String()))
	}
}

func mustFormat(t *testing.T, s string) LabelFormat {
	t.Helper()
	f, err := ParseLabelFormat(s)
	require.NoError(t, err)
	return f
}
