// Copyright (c) 2026 by Koanworks

package geo

import "math"

// Quat is a unit quaternion orientation. Interpolating orientations as
// quaternions avoids the axis-order artifacts of interpolating raw Euler
// angles.
type Quat struct {
	W, X, Y, Z float64
}

func IdentityQuat() Quat {
	return Quat{W: 1}
}

// FromYaw builds the orientation for a rotation of yaw radians about the
// vertical (Y) axis.
func FromYaw(yaw float64) Quat {
	half := yaw / 2
	return Quat{W: math.Cos(half), Y: math.Sin(half)}
}

// FromEuler builds an orientation from Euler angles in radians, applied in
// X, Y, Z order.
func FromEuler(e Vec3) Quat {
	cx, sx := math.Cos(e.X/2), math.Sin(e.X/2)
	cy, sy := math.Cos(e.Y/2), math.Sin(e.Y/2)
	cz, sz := math.Cos(e.Z/2), math.Sin(e.Z/2)

	return Quat{
		W: cx*cy*cz - sx*sy*sz,
		X: sx*cy*cz + cx*sy*sz,
		Y: cx*sy*cz - sx*cy*sz,
		Z: cx*cy*sz + sx*sy*cz,
	}
}

func (q Quat) Dot(o Quat) float64 {
	return q.W*o.W + q.X*o.X + q.Y*o.Y + q.Z*o.Z
}

func (q Quat) Neg() Quat {
	return Quat{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

func (q Quat) Normalize() Quat {
	n := math.Sqrt(q.Dot(q))
	if n == 0 {
		return IdentityQuat()
	}
	return Quat{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Yaw extracts the rotation about the vertical axis in radians.
func (q Quat) Yaw() float64 {
	return math.Atan2(2*(q.W*q.Y+q.X*q.Z), 1-2*(q.Y*q.Y+q.X*q.X))
}

// Slerp interpolates spherically between a and b. t is clamped to [0, 1].
// The shorter arc is always taken.
func Slerp(a, b Quat, t float64) Quat {
	t = clamp01(t)

	dot := a.Dot(b)
	if dot < 0 {
		b = b.Neg()
		dot = -dot
	}

	// Nearly parallel orientations degrade slerp numerically, fall back
	// to a normalized lerp.
	const parallelThreshold = 0.9995
	if dot > parallelThreshold {
		return Quat{
			W: a.W + (b.W-a.W)*t,
			X: a.X + (b.X-a.X)*t,
			Y: a.Y + (b.Y-a.Y)*t,
			Z: a.Z + (b.Z-a.Z)*t,
		}.Normalize()
	}

	theta := math.Acos(dot)
	sinTheta := math.Sin(theta)
	fa := math.Sin((1-t)*theta) / sinTheta
	fb := math.Sin(t*theta) / sinTheta

	return Quat{
		W: a.W*fa + b.W*fb,
		X: a.X*fa + b.X*fb,
		Y: a.Y*fa + b.Y*fb,
		Z: a.Z*fa + b.Z*fb,
	}
}
