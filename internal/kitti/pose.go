package kitti

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a rigid transform: a unit-quaternion rotation followed by a
// translation. The zero value is not a valid pose; use IdentityPose.
type Pose struct {
	Rotation    quat.Number
	Translation r3.Vec
}

// IdentityPose returns the pose that leaves every point unchanged.
func IdentityPose() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// NewPose builds a pose from a translation and a rotation. The rotation is
// normalised so callers may pass an unnormalised quaternion.
func NewPose(translation r3.Vec, rotation quat.Number) Pose {
	return Pose{Rotation: normalizeQuat(rotation), Translation: translation}
}

// Apply maps p from the pose's local frame into its parent frame.
func (p Pose) Apply(v r3.Vec) r3.Vec {
	return r3.Add(rotateVec(p.Rotation, v), p.Translation)
}

// Rotate applies only the rotational part of the pose.
func (p Pose) Rotate(v r3.Vec) r3.Vec {
	return rotateVec(p.Rotation, v)
}

// Inverse returns the pose mapping parent-frame points back into the local frame.
func (p Pose) Inverse() Pose {
	inv := quat.Conj(p.Rotation)
	return Pose{
		Rotation:    inv,
		Translation: r3.Scale(-1, rotateVec(inv, p.Translation)),
	}
}

// Mul composes two poses so that p.Mul(q).Apply(v) == p.Apply(q.Apply(v)).
func (p Pose) Mul(q Pose) Pose {
	return Pose{
		Rotation:    normalizeQuat(quat.Mul(p.Rotation, q.Rotation)),
		Translation: p.Apply(q.Translation),
	}
}

// RotationMatrix returns the 3×3 rotation matrix of the pose in row-major order.
func (p Pose) RotationMatrix() *mat.Dense {
	q := p.Rotation
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// FromEulerAngles builds the rotation Rz(yaw)·Ry(pitch)·Rx(roll), i.e. roll
// about X is applied first and yaw about Z last.
func FromEulerAngles(roll, pitch, yaw float64) quat.Number {
	qx := quat.Number{Real: math.Cos(roll / 2), Imag: math.Sin(roll / 2)}
	qy := quat.Number{Real: math.Cos(pitch / 2), Jmag: math.Sin(pitch / 2)}
	qz := quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
	return normalizeQuat(quat.Mul(qz, quat.Mul(qy, qx)))
}

// RotationFromMatrix returns the unit quaternion of the proper rotation
// closest to m (a 3×3 matrix). Calibration files round their entries, so m is
// only approximately orthonormal; the nearest rotation is U·Vᵀ from the SVD,
// with the last singular direction flipped if that would be a reflection.
func RotationFromMatrix(m mat.Matrix) (quat.Number, error) {
	if r, c := m.Dims(); r != 3 || c != 3 {
		return quat.Number{}, fmt.Errorf("%w: rotation must be 3x3, got %dx%d", ErrParse, r, c)
	}

	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return quat.Number{}, fmt.Errorf("%w: rotation SVD did not converge", ErrParse)
	}
	var u, v, rot mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	rot.Mul(&u, v.T())
	if mat.Det(&rot) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		rot.Mul(&u, v.T())
	}

	return quatFromRotation(&rot), nil
}

// quatFromRotation converts an orthonormal matrix using Shepperd's method,
// branching on the largest diagonal term to stay numerically stable.
func quatFromRotation(r mat.Matrix) quat.Number {
	m00, m01, m02 := r.At(0, 0), r.At(0, 1), r.At(0, 2)
	m10, m11, m12 := r.At(1, 0), r.At(1, 1), r.At(1, 2)
	m20, m21, m22 := r.At(2, 0), r.At(2, 1), r.At(2, 2)

	var q quat.Number
	switch tr := m00 + m11 + m22; {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{Real: 0.25 * s, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	return normalizeQuat(q)
}

func rotateVec(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

func normalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.IsNaN(n) {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}
