package kitti

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kitti.review/internal/fsutil"
)

// Calibration record keys.
const (
	KeyCamProjection  = "P0"
	KeySensorToCamera = "Tr_velo_to_cam"
	KeyRectification  = "R0_rect"
)

// CalibrationSet holds the per-frame calibration matrices. It is immutable
// after construction; the rectified-camera → sensor transform is derived once.
type CalibrationSet struct {
	// CamProjection maps rectified camera coordinates to image pixels (3×4).
	CamProjection *mat.Dense
	// SensorToCamera maps velodyne coordinates to the camera frame (3×4).
	SensorToCamera *mat.Dense
	// Rectification rotates the camera frame into the rectified frame (3×3).
	Rectification *mat.Dense

	rectToSensor Pose
}

// NewCalibrationSet validates the matrix shapes and derives RectToSensor.
func NewCalibrationSet(projection, sensorToCamera, rectification *mat.Dense) (*CalibrationSet, error) {
	if r, c := projection.Dims(); r != 3 || c != 4 {
		return nil, fmt.Errorf("%w: %s must be 3x4, got %dx%d", ErrParse, KeyCamProjection, r, c)
	}
	if r, c := sensorToCamera.Dims(); r != 3 || c != 4 {
		return nil, fmt.Errorf("%w: %s must be 3x4, got %dx%d", ErrParse, KeySensorToCamera, r, c)
	}
	if r, c := rectification.Dims(); r != 3 || c != 3 {
		return nil, fmt.Errorf("%w: %s must be 3x3, got %dx%d", ErrParse, KeyRectification, r, c)
	}

	cs := &CalibrationSet{
		CamProjection:  projection,
		SensorToCamera: sensorToCamera,
		Rectification:  rectification,
	}

	rect, err := RotationFromMatrix(rectification)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyRectification, err)
	}
	sensorRot, err := RotationFromMatrix(sensorToCamera.Slice(0, 3, 0, 3))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeySensorToCamera, err)
	}
	rectToCam := Pose{Rotation: quat.Conj(rect)}
	sensorToCam := Pose{
		Rotation: sensorRot,
		Translation: r3.Vec{
			X: sensorToCamera.At(0, 3),
			Y: sensorToCamera.At(1, 3),
			Z: sensorToCamera.At(2, 3),
		},
	}
	cs.rectToSensor = sensorToCam.Inverse().Mul(rectToCam)

	return cs, nil
}

// RectToSensor returns the rigid transform from the rectified camera frame to
// the sensor frame: inverse(sensor→camera) ∘ inverse(rectification).
func (c *CalibrationSet) RectToSensor() Pose {
	return c.rectToSensor
}

// ParseCalibration reads `KEY: v1 … vN` lines (the colon is optional).
// Unknown keys are ignored. A recognised key missing from the record keeps
// its identity default: [I|0] for the 3×4 matrices and I for R0_rect.
func ParseCalibration(r io.Reader) (*CalibrationSet, error) {
	projection := identity3x4()
	sensorToCamera := identity3x4()
	rectification := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		words := strings.FieldsFunc(scanner.Text(), func(r rune) bool {
			return r == ' ' || r == ':' || r == '\t'
		})
		if len(words) == 0 {
			continue
		}

		var (
			rows, cols int
			dst        **mat.Dense
		)
		switch words[0] {
		case KeyCamProjection:
			rows, cols, dst = 3, 4, &projection
		case KeySensorToCamera:
			rows, cols, dst = 3, 4, &sensorToCamera
		case KeyRectification:
			rows, cols, dst = 3, 3, &rectification
		default:
			continue
		}

		vals, err := parseFloats(words[1:])
		if err != nil {
			return nil, fmt.Errorf("line %d %s: %w", lineNo, words[0], err)
		}
		if len(vals) != rows*cols {
			return nil, fmt.Errorf("%w: line %d %s: want %d values, got %d",
				ErrParse, lineNo, words[0], rows*cols, len(vals))
		}
		*dst = mat.NewDense(rows, cols, vals)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}

	return NewCalibrationSet(projection, sensorToCamera, rectification)
}

// LoadCalibration reads a calibration record from fsys.
func LoadCalibration(fsys fsutil.FileSystem, path string) (*CalibrationSet, error) {
	f, err := Open(fsys, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cs, err := ParseCalibration(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cs, nil
}

func identity3x4() *mat.Dense {
	return mat.NewDense(3, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	})
}

func parseFloats(words []string) ([]float64, error) {
	vals := make([]float64, len(words))
	for i, w := range words {
		v, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrParse, w)
		}
		vals[i] = v
	}
	return vals, nil
}
