package lidar

import "gonum.org/v1/gonum/spatial/r3"

// Point is one return of the range sensor in the sensor frame. DeviceID and
// Active are only populated by sources that carry them; velodyne .bin
// files do not.
type Point struct {
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
	Z         float32 `json:"z"`
	Intensity float32 `json:"intensity"`

	DeviceID *uint64 `json:"device_id,omitempty"`
	Active   *uint64 `json:"active,omitempty"`
}

// Vec returns the position as a float64 vector.
func (p Point) Vec() r3.Vec {
	return r3.Vec{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}
