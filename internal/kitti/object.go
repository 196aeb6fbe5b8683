package kitti

import "io"

// Object is one annotated instance in a frame.
type Object struct {
	Class string
	Box3D Box3D
	Box2D Box2D
	// Score is nil when the source carries no confidence.
	Score *float64
	// ObjectKey links back to the Supervisely object record; empty for
	// the text formats.
	ObjectKey string
}

// HasObjectKey reports whether the object came from an external annotation record.
func (o Object) HasObjectKey() bool {
	return o.ObjectKey != ""
}

// AnnotationParser turns one frame's annotation source into the canonical
// object list. Each implementation keeps its own coordinate convention.
type AnnotationParser interface {
	Parse(r io.Reader) ([]Object, error)
}

func excluded(class string, exclude []string) bool {
	for _, c := range exclude {
		if c == class {
			return true
		}
	}
	return false
}

func float64Ptr(v float64) *float64 { return &v }
