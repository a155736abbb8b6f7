package pmath

import(
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// A Correspondence pairs a point in the new frame with the point in
// the reference image it is believed to depict.
type Correspondence struct {
	X1, Y1 float64  // frame
	X2, Y2 float64  // reference
}

func (c Correspondence)String() string {
	return fmt.Sprintf("(%.1f,%.1f)->(%.1f,%.1f)", c.X1, c.Y1, c.X2, c.Y2)
}

const(
	// An 8th singular value at or below this fraction of the largest
	// means the DLT system does not pin down a unique solution.
	rankTol = 1e-10

	// A smallest-to-largest singular value ratio at or below this marks
	// a 3x3 transform as collapsing (or nearly collapsing) the plane.
	singularTol = 1e-9
)

// SolveHomography fits the 3x3 projective transform mapping each
// correspondence's frame point onto its reference point, by direct
// linear transform: two constraint rows per correspondence, stacked
// and solved as the right singular vector of the smallest singular
// value. The result is normalized so its bottom-right entry is 1.
//
// Fewer than 4 correspondences, or a correspondence set that leaves
// the system rank-deficient (e.g. collinear or repeated points), is an
// error - never a garbage transform.
func SolveHomography(pairs []Correspondence) (Mat3, error) {
	if len(pairs) < 4 {
		return Mat3{}, fmt.Errorf("homography fit needs >=4 correspondences, got %d", len(pairs))
	}

	a := mat.NewDense(2*len(pairs), 9, nil)
	for i, p := range pairs {
		a.SetRow(2*i,   []float64{0, 0, 0,   p.X1, p.Y1, 1,   -p.Y2 * p.X1, -p.Y2 * p.Y1, -p.Y2})
		a.SetRow(2*i+1, []float64{p.X1, p.Y1, 1,   0, 0, 0,   -p.X2 * p.X1, -p.X2 * p.Y1, -p.X2})
	}

	// Full SVD: with exactly 4 correspondences the system is 8x9 and
	// the solution lives in the nullspace column a thin V would omit.
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return Mat3{}, fmt.Errorf("homography SVD did not converge")
	}

	vals := svd.Values(nil)
	if vals[7] <= rankTol*vals[0] {
		return Mat3{}, fmt.Errorf("correspondence set is rank-deficient, no unique fit")
	}

	var v mat.Dense
	svd.VTo(&v)

	h := Mat3{}
	for i:=0; i<9; i++ {
		h[i] = v.At(i, 8)
	}

	if math.Abs(h[8]) < 1e-12 {
		return Mat3{}, fmt.Errorf("fit has no affine part, cannot normalize")
	}
	for i:=0; i<9; i++ {
		h[i] /= h[8]
	}
	h[8] = 1

	return h, nil
}

// IsDegenerate reports whether the transform is singular or nearly so,
// judged on the ratio of its smallest to largest singular value.
func (m Mat3)IsDegenerate() bool {
	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(3, 3, m[:]), mat.SVDNone); !ok {
		return true
	}
	vals := svd.Values(nil)
	return vals[2] <= singularTol*vals[0]
}

// ReprojectionErrors projects each correspondence's frame point
// through h and returns the squared distance to its reference point,
// one entry per correspondence. Scoring only; never fails.
func ReprojectionErrors(pairs []Correspondence, h Mat3) []float64 {
	errs := make([]float64, len(pairs))
	for i, p := range pairs {
		x, y := h.Project(p.X1, p.Y1)
		dx, dy := x - p.X2, y - p.Y2
		errs[i] = dx*dx + dy*dy
	}
	return errs
}

// QuadArea is the shoelace formula over four corners in cyclic order.
// Signed: the winding order decides the sign, the magnitude is the
// enclosed area.
func QuadArea(q [4]Vec2) float64 {
	area := 0.0
	for i:=0; i<4; i++ {
		j := (i + 1) % 4
		area += q[i][0]*q[j][1] - q[j][0]*q[i][1]
	}
	return area / 2.0
}

// CornerQuad lists the corners of a wxh rectangle anchored at the
// origin, in cyclic order.
func CornerQuad(w, h float64) [4]Vec2 {
	return [4]Vec2{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// AreaRatio maps the corners of a wxh rectangle through m and returns
// the signed area of the projected quadrilateral divided by the
// rectangle's own area. A plausible stitch transform keeps this near
// 1; a collapsing or folding transform drives it toward (or below) 0.
// NaN when a corner lands on the vanishing line; callers must treat
// that as implausible.
func AreaRatio(m Mat3, w, h float64) float64 {
	q := CornerQuad(w, h)
	for i:=0; i<4; i++ {
		q[i] = m.ProjectVec2(q[i])
	}
	return QuadArea(q) / (w * h)
}
