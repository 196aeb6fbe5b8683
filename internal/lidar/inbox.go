package lidar

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kitti.review/internal/kitti"
)

// BoxMargin enlarges every box half-extent when testing membership.
const BoxMargin = 0.1

// minChunk is the smallest slice of points handed to one worker.
const minChunk = 4096

// boxTest is a box prepared for repeated membership tests.
type boxTest struct {
	toLocal kitti.Pose
	limit   r3.Vec
}

func newBoxTest(b kitti.Box3D) boxTest {
	return boxTest{
		toLocal: b.Pose.Inverse(),
		limit: r3.Vec{
			X: b.Extents.X/2 + BoxMargin,
			Y: b.Extents.Y/2 + BoxMargin,
			Z: b.Extents.Z/2 + BoxMargin,
		},
	}
}

func (bt boxTest) contains(v r3.Vec) bool {
	l := bt.toLocal.Apply(v)
	return math.Abs(l.X) < bt.limit.X &&
		math.Abs(l.Y) < bt.limit.Y &&
		math.Abs(l.Z) < bt.limit.Z
}

func prepare(objects []kitti.Object) []boxTest {
	tests := make([]boxTest, len(objects))
	for i := range objects {
		tests[i] = newBoxTest(objects[i].Box3D)
	}
	return tests
}

// InBox reports whether v lies strictly inside b grown by BoxMargin on
// every local axis.
func InBox(v r3.Vec, b kitti.Box3D) bool {
	return newBoxTest(b).contains(v)
}

// InAnyBox reports whether p is inside at least one object's box.
func InAnyBox(p Point, objects []kitti.Object) bool {
	return inAny(p.Vec(), prepare(objects))
}

func inAny(v r3.Vec, tests []boxTest) bool {
	for _, bt := range tests {
		if bt.contains(v) {
			return true
		}
	}
	return false
}

// Partition splits points into those inside some object's box and those
// outside every box. File order is preserved within each half. Chunks of
// points are classified concurrently; workers only read shared inputs.
func Partition(points []Point, objects []kitti.Object) (inside, outside []Point) {
	tests := prepare(objects)
	mask := make([]bool, len(points))

	var g errgroup.Group
	for _, span := range chunks(len(points)) {
		lo, hi := span[0], span[1]
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				mask[i] = inAny(points[i].Vec(), tests)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, in := range mask {
		if in {
			inside = append(inside, points[i])
		} else {
			outside = append(outside, points[i])
		}
	}
	Tracef("partition: %d points, %d objects, %d inside", len(points), len(objects), len(inside))
	return inside, outside
}

// CountPerObject returns, for each object, how many points fall inside that
// object's box alone. Boxes may overlap so the counts need not sum to the
// inside partition. Cost is points × objects; objects are counted in parallel.
func CountPerObject(points []Point, objects []kitti.Object) []int {
	counts := make([]int, len(objects))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range objects {
		g.Go(func() error {
			bt := newBoxTest(objects[i].Box3D)
			n := 0
			for _, p := range points {
				if bt.contains(p.Vec()) {
					n++
				}
			}
			counts[i] = n
			return nil
		})
	}
	_ = g.Wait()
	return counts
}

// chunks divides [0, n) into at most GOMAXPROCS contiguous spans.
func chunks(n int) [][2]int {
	if n == 0 {
		return nil
	}
	workers := runtime.GOMAXPROCS(0)
	size := (n + workers - 1) / workers
	if size < minChunk {
		size = minChunk
	}
	var out [][2]int
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}
