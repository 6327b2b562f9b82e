package math

import "math"

// Quat is a rotation quaternion with W as the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns the no-rotation quaternion.
func QuatIdentity() Quat {
	return Quat{W: 1}
}

// Q4 builds a quaternion from an [x y z w] array, the layout glTF and RSM
// keyframes use.
func Q4(a [4]float32) Quat {
	return Quat{a[0], a[1], a[2], a[3]}
}

// QuatFromAxisAngle rotates angle radians about a unit axis.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	sin, cos := math.Sincos(float64(angle) / 2)
	v := axis.Scale(float32(sin))
	return Quat{v.X, v.Y, v.Z, float32(cos)}
}

func (q Quat) scale(s float32) Quat {
	return Quat{q.X * s, q.Y * s, q.Z * s, q.W * s}
}

func (q Quat) add(o Quat) Quat {
	return Quat{q.X + o.X, q.Y + o.Y, q.Z + o.Z, q.W + o.W}
}

// Dot returns the 4D dot product.
func (q Quat) Dot(o Quat) float32 {
	return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W
}

// Normalize returns q at unit length. Degenerate input yields identity.
func (q Quat) Normalize() Quat {
	l := float32(math.Sqrt(float64(q.Dot(q))))
	if l < 1e-4 {
		return QuatIdentity()
	}
	return q.scale(1 / l)
}

// Slerp interpolates from q to o along the shorter arc; t is in [0, 1].
func (q Quat) Slerp(o Quat, t float32) Quat {
	cosTheta := q.Dot(o)
	if cosTheta < 0 {
		o = o.scale(-1)
		cosTheta = -cosTheta
	}

	// sin(theta) underflows for nearly equal rotations
	if cosTheta > 0.9995 {
		return q.add(o.add(q.scale(-1)).scale(t)).Normalize()
	}

	theta := math.Acos(float64(cosTheta))
	sinTheta := math.Sin(theta)
	a := float32(math.Sin((1-float64(t))*theta) / sinTheta)
	b := float32(math.Sin(float64(t)*theta) / sinTheta)
	return q.scale(a).add(o.scale(b))
}

// Mul returns the rotation that applies o first, then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// ToMat4 returns the column-major rotation matrix of q.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z
	xx, xy, xz := q.X*x2, q.X*y2, q.X*z2
	yy, yz, zz := q.Y*y2, q.Y*z2, q.Z*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2

	return Mat4{
		1 - yy - zz, xy + wz, xz - wy, 0,
		xy - wz, 1 - xx - zz, yz + wx, 0,
		xz + wy, yz - wx, 1 - xx - yy, 0,
		0, 0, 0, 1,
	}
}
