package kitti

import "errors"

// Error taxonomy for frame inputs. Callers match with errors.Is; the wrapped
// message carries the path and, for text formats, the line number.
var (
	// ErrNotFound reports a missing calibration, annotation or point-cloud file.
	ErrNotFound = errors.New("not found")
	// ErrParse reports a non-numeric field, a short record or malformed JSON.
	ErrParse = errors.New("parse failure")
	// ErrTruncated reports a point-cloud stream ending inside a record.
	ErrTruncated = errors.New("truncated record")
	// ErrLookup reports a Supervisely figure whose object key has no object.
	ErrLookup = errors.New("lookup failure")
	// ErrNoFrames reports that no frame index could be enumerated.
	ErrNoFrames = errors.New("no frames found")
)
