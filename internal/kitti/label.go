package kitti

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// LabelFormat selects the text annotation convention used for label_2 files.
type LabelFormat int

const (
	// FormatLibPCL is the standard KITTI convention: camera-rectified centre at
	// the box base, yaw about the camera Y axis.
	FormatLibPCL LabelFormat = iota
	// FormatPhilly keeps the raw centre, yaw and extents without any
	// calibration transform.
	FormatPhilly
)

// ParseLabelFormat maps a CLI/config name to a LabelFormat.
func ParseLabelFormat(s string) (LabelFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "libpcl":
		return FormatLibPCL, nil
	case "philly":
		return FormatPhilly, nil
	default:
		return 0, fmt.Errorf("unknown label format %q (want libpcl or philly)", s)
	}
}

func (f LabelFormat) String() string {
	switch f {
	case FormatLibPCL:
		return "libpcl"
	case FormatPhilly:
		return "philly"
	default:
		return fmt.Sprintf("LabelFormat(%d)", int(f))
	}
}

// minLabelFields is class, truncated, occluded, alpha, 4 bbox, 3 dims, 3 loc, rotation_y.
const minLabelFields = 15

// labelRecord holds the numeric fields of one label line in file order.
type labelRecord struct {
	class string
	ltrb  [4]float64 // fields 4..7: left, top, right, bottom
	dims  [3]float64 // fields 8..10: height, width, length
	loc   [3]float64 // fields 11..13: x, y, z
	rotY  float64    // field 14
	score *float64   // optional field 15
}

func (rec labelRecord) box2D() Box2D {
	return Box2DFromTLBR([4]float64{rec.ltrb[1], rec.ltrb[0], rec.ltrb[3], rec.ltrb[2]})
}

// scanLabels tokenises a label file and calls build for every line whose class
// is not excluded. It only shares tokenisation; geometry lives in build.
func scanLabels(r io.Reader, exclude []string, build func(labelRecord) Object) ([]Object, error) {
	var objects []Object
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		words := strings.Fields(scanner.Text())
		if len(words) == 0 {
			continue
		}
		if excluded(words[0], exclude) {
			continue
		}

		rec, err := parseLabelRecord(words)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		objects = append(objects, build(rec))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return objects, nil
}

func parseLabelRecord(words []string) (labelRecord, error) {
	if len(words) < minLabelFields {
		return labelRecord{}, fmt.Errorf("%w: want at least %d fields, got %d", ErrParse, minLabelFields, len(words))
	}

	vals, err := parseFloats(words[4:minLabelFields])
	if err != nil {
		return labelRecord{}, err
	}
	rec := labelRecord{class: words[0]}
	copy(rec.ltrb[:], vals[0:4])
	copy(rec.dims[:], vals[4:7])
	copy(rec.loc[:], vals[7:10])
	rec.rotY = vals[10]

	if len(words) > minLabelFields {
		s, err := strconv.ParseFloat(words[minLabelFields], 64)
		if err != nil {
			return labelRecord{}, fmt.Errorf("%w: score %q is not a number", ErrParse, words[minLabelFields])
		}
		rec.score = &s
	}
	return rec, nil
}

// LabelParser reads KITTI label_2 lines and re-expresses each box in the
// sensor frame using the frame's calibration.
type LabelParser struct {
	Calib          *CalibrationSet
	ExcludeClasses []string
}

// Parse implements AnnotationParser.
func (p LabelParser) Parse(r io.Reader) ([]Object, error) {
	if p.Calib == nil {
		return nil, fmt.Errorf("%w: label parser requires a calibration", ErrParse)
	}
	rectToSensor := p.Calib.RectToSensor()

	return scanLabels(r, p.ExcludeClasses, func(rec labelRecord) Object {
		h, w, l := rec.dims[0], rec.dims[1], rec.dims[2]
		// Label centres sit on the box base; lift to the centroid (camera Y points down).
		rectCenter := r3.Vec{X: rec.loc[0], Y: rec.loc[1] - h/2, Z: rec.loc[2]}
		sensorCenter := rectToSensor.Apply(rectCenter)
		yaw := -rec.rotY - math.Pi/2

		return Object{
			Class: rec.class,
			Box3D: Box3D{
				Extents: r3.Vec{X: l, Y: w, Z: h},
				Pose:    NewPose(sensorCenter, FromEulerAngles(0, 0, yaw)),
			},
			Box2D: rec.box2D(),
			Score: rec.score,
		}
	})
}

// PhillyLabelParser reads label lines whose centre, yaw and extents are
// already in the target frame. No calibration and no height shift apply.
type PhillyLabelParser struct {
	ExcludeClasses []string
}

// Parse implements AnnotationParser.
func (p PhillyLabelParser) Parse(r io.Reader) ([]Object, error) {
	return scanLabels(r, p.ExcludeClasses, func(rec labelRecord) Object {
		center := r3.Vec{X: rec.loc[0], Y: rec.loc[1], Z: rec.loc[2]}
		return Object{
			Class: rec.class,
			Box3D: Box3D{
				Extents: r3.Vec{X: rec.dims[0], Y: rec.dims[1], Z: rec.dims[2]},
				Pose:    NewPose(center, FromEulerAngles(0, 0, rec.rotY)),
			},
			Box2D: rec.box2D(),
			Score: rec.score,
		}
	})
}
