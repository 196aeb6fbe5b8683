package kitti

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
)

// ConfidenceTagName is the Supervisely object tag carrying a textual score.
const ConfidenceTagName = "Confidence"

// defaultSuperviselyScore is used when no parsable Confidence tag exists.
const defaultSuperviselyScore = 1.0

// PointCloudAnnotation is a Supervisely point-cloud annotation document
// (`<index>.pcd.json`).
type PointCloudAnnotation struct {
	Description string             `json:"description"`
	Key         string             `json:"key"`
	Tags        []Tag              `json:"tags"`
	Objects     []AnnotationObject `json:"objects"`
	Figures     []Figure           `json:"figures"`
}

// AnnotationObject is an annotated instance; figures reference it by Key.
type AnnotationObject struct {
	Key        string `json:"key"`
	ClassTitle string `json:"classTitle"`
	Tags       []Tag  `json:"tags"`
}

// Tag is a named value attached to an object. Value may be any JSON kind or absent.
type Tag struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Figure is the cuboid geometry of one object.
type Figure struct {
	Key          string         `json:"key"`
	ObjectKey    string         `json:"objectKey"`
	GeometryType string         `json:"geometryType"`
	Geometry     CuboidGeometry `json:"geometry"`
}

// CuboidGeometry is a Supervisely cuboid_3d: centre, Euler rotation and side lengths.
type CuboidGeometry struct {
	Position   Vector3D `json:"position"`
	Rotation   Vector3D `json:"rotation"`
	Dimensions Vector3D `json:"dimensions"`
}

// Vector3D is the Supervisely {x,y,z} triple.
type Vector3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SuperviselyParser reads Supervisely point-cloud JSON. Figures are already in
// the sensor frame; no calibration is needed.
type SuperviselyParser struct{}

// Parse implements AnnotationParser.
func (SuperviselyParser) Parse(r io.Reader) ([]Object, error) {
	var doc PointCloudAnnotation
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: invalid annotation JSON: %v", ErrParse, err)
	}
	return doc.ToObjects()
}

// ToObjects converts every figure into an Object, resolving its object record.
func (doc *PointCloudAnnotation) ToObjects() ([]Object, error) {
	byKey := make(map[string]*AnnotationObject, len(doc.Objects))
	for i := range doc.Objects {
		byKey[doc.Objects[i].Key] = &doc.Objects[i]
	}

	objects := make([]Object, 0, len(doc.Figures))
	for i, fig := range doc.Figures {
		obj, ok := byKey[fig.ObjectKey]
		if !ok {
			return nil, fmt.Errorf("%w: figure %d references unknown object %q", ErrLookup, i, fig.ObjectKey)
		}
		score, err := obj.confidence()
		if err != nil {
			return nil, fmt.Errorf("object %q: %w", obj.Key, err)
		}

		g := fig.Geometry
		objects = append(objects, Object{
			Class: obj.ClassTitle,
			Box3D: Box3D{
				Extents: r3.Vec{X: g.Dimensions.Y, Y: g.Dimensions.Z, Z: g.Dimensions.X},
				Pose: NewPose(
					r3.Vec{X: g.Position.X, Y: g.Position.Y, Z: g.Position.Z},
					FromEulerAngles(g.Rotation.X, g.Rotation.Y, g.Rotation.Z+math.Pi/2),
				),
			},
			Box2D:     Box2DFromTLBR([4]float64{}),
			Score:     float64Ptr(score),
			ObjectKey: obj.Key,
		})
	}
	return objects, nil
}

// confidence returns the Confidence tag value when it is a numeric string.
// A missing tag, a missing value or a non-string value all give 1.0.
func (o *AnnotationObject) confidence() (float64, error) {
	for _, tag := range o.Tags {
		if tag.Name != ConfidenceTagName {
			continue
		}
		raw := bytes.TrimSpace(tag.Value)
		if len(raw) == 0 || raw[0] != '"' {
			return defaultSuperviselyScore, nil
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: confidence tag: %v", ErrParse, err)
		}
		score, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: confidence %q is not a number", ErrParse, text)
		}
		return score, nil
	}
	return defaultSuperviselyScore, nil
}
