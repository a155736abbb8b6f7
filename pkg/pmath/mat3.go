package pmath

// Basic 3x3 projective transform machinery, used in frame alignment

import(
	"fmt"
	"math"
	"golang.org/x/image/math/f64"  // Will be "image/math/f64" at some point, hopefully make this file redundant
)

// Use local types so we can hang methods off them
type Vec2 f64.Vec2
type Vec3 f64.Vec3
type Mat3 f64.Mat3

func Identity() Mat3 {
	return Mat3{1, 0, 0,   0, 1, 0,   0, 0, 1}
}

// Translation builds the transform that shifts points by (tx, ty).
func Translation(tx, ty float64) Mat3 {
	return Mat3{1, 0, tx,   0, 1, ty,   0, 0, 1}
}

func (a Mat3)Mult(b Mat3) Mat3 {
	return Mat3{
		a[3*0+0]*b[3*0+0] + a[3*0+1]*b[3*1+0] + a[3*0+2]*b[3*2+0],
		a[3*0+0]*b[3*0+1] + a[3*0+1]*b[3*1+1] + a[3*0+2]*b[3*2+1],
		a[3*0+0]*b[3*0+2] + a[3*0+1]*b[3*1+2] + a[3*0+2]*b[3*2+2],

		a[3*1+0]*b[3*0+0] + a[3*1+1]*b[3*1+0] + a[3*1+2]*b[3*2+0],
		a[3*1+0]*b[3*0+1] + a[3*1+1]*b[3*1+1] + a[3*1+2]*b[3*2+1],
		a[3*1+0]*b[3*0+2] + a[3*1+1]*b[3*1+2] + a[3*1+2]*b[3*2+2],

		a[3*2+0]*b[3*0+0] + a[3*2+1]*b[3*1+0] + a[3*2+2]*b[3*2+0],
		a[3*2+0]*b[3*0+1] + a[3*2+1]*b[3*1+1] + a[3*2+2]*b[3*2+1],
		a[3*2+0]*b[3*0+2] + a[3*2+1]*b[3*1+2] + a[3*2+2]*b[3*2+2],
	}
}

func (m Mat3)Apply(v Vec3) Vec3 {
	return Vec3{
		(m[3*0+0]*v[0] + m[3*0+1]*v[1] + m[3*0+2]*v[2]),
	  (m[3*1+0]*v[0] + m[3*1+1]*v[1] + m[3*1+2]*v[2]),
	  (m[3*2+0]*v[0] + m[3*2+1]*v[1] + m[3*2+2]*v[2]),
	}
}

// Project maps a 2D point through the transform, performing the
// homogeneous divide. A point on the transform's vanishing line has
// w=0 and projects to +/-Inf; callers treat such points as arbitrarily
// far away, which is what reprojection scoring wants.
func (m Mat3)Project(x, y float64) (float64, float64) {
	v := m.Apply(Vec3{x, y, 1})
	return v[0] / v[2], v[1] / v[2]
}

func (m Mat3)ProjectVec2(p Vec2) Vec2 {
	x, y := m.Project(p[0], p[1])
	return Vec2{x, y}
}

func (m Mat3)Det() float64 {
	return m[0]*(m[4]*m[8] - m[5]*m[7]) -
		m[1]*(m[3]*m[8] - m[5]*m[6]) +
		m[2]*(m[3]*m[7] - m[4]*m[6])
}

// Inverse inverts via the adjugate. Errors on a singular matrix, so a
// warp can never be driven by a transform that collapses the plane.
func (m Mat3)Inverse() (Mat3, error) {
	det := m.Det()
	if math.Abs(det) < 1e-12 {
		return Mat3{}, fmt.Errorf("matrix not invertible, det=%g", det)
	}

	adj := Mat3{
		m[4]*m[8] - m[5]*m[7],   m[2]*m[7] - m[1]*m[8],   m[1]*m[5] - m[2]*m[4],
		m[5]*m[6] - m[3]*m[8],   m[0]*m[8] - m[2]*m[6],   m[2]*m[3] - m[0]*m[5],
		m[3]*m[7] - m[4]*m[6],   m[1]*m[6] - m[0]*m[7],   m[0]*m[4] - m[1]*m[3],
	}

	inv := Mat3{}
	for i:=0; i<9; i++ {
		inv[i] = adj[i] / det
	}
	return inv, nil
}

func (m Mat3)String() string {
	str := fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*0+0], m[3*0+1], m[3*0+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*1+0], m[3*1+1], m[3*1+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*2+0], m[3*2+1], m[3*2+2])
	return str
}

func (v Vec2)String() string {
	return fmt.Sprintf("(%.2f, %.2f)", v[0], v[1])
}
