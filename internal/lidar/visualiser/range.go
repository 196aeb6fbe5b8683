package visualiser

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/kitti.review/internal/lidar"
)

// rangeZ is the height the boundary is drawn at.
const rangeZ = 1.0

// RangeBoundary is the axis-aligned review area in sensor XY. It is built
// once and never changes.
type RangeBoundary struct {
	ring orb.Ring
}

// NewRangeBoundary builds the boundary from [min_x, min_y, max_x, max_y].
func NewRangeBoundary(b [4]float64) RangeBoundary {
	minX, minY, maxX, maxY := b[0], b[1], b[2], b[3]
	return RangeBoundary{ring: orb.Ring{
		{minX, minY},
		{maxX, minY},
		{maxX, maxY},
		{minX, maxY},
		{minX, minY},
	}}
}

// Ring returns a copy of the closed boundary ring.
func (r RangeBoundary) Ring() orb.Ring {
	return append(orb.Ring(nil), r.ring...)
}

// Bound returns the boundary's extent.
func (r RangeBoundary) Bound() orb.Bound {
	return r.ring.Bound()
}

// Segments returns the four drawn edges.
func (r RangeBoundary) Segments() []Segment {
	if len(r.ring) < 2 {
		return nil
	}
	segs := make([]Segment, 0, len(r.ring)-1)
	for i := 0; i+1 < len(r.ring); i++ {
		a, b := r.ring[i], r.ring[i+1]
		segs = append(segs, Segment{
			From: [3]float64{a[0], a[1], rangeZ},
			To:   [3]float64{b[0], b[1], rangeZ},
		})
	}
	return segs
}

// Contains reports whether (x, y) lies within the boundary.
func (r RangeBoundary) Contains(x, y float64) bool {
	if len(r.ring) == 0 {
		return false
	}
	return planar.RingContains(r.ring, orb.Point{x, y})
}

// CountInRange counts the points inside the boundary.
func (r RangeBoundary) CountInRange(points []lidar.Point) int {
	n := 0
	for _, p := range points {
		if r.Contains(float64(p.X), float64(p.Y)) {
			n++
		}
	}
	return n
}
