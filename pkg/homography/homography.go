// Package homography computes and applies 3x3 planar projective transforms.
//
// A homography maps homogeneous coordinates (x, y, 1) to (x', y', w'); the
// final 2D position is recovered by dividing through w'. The solver uses the
// Direct Linear Transform: four point correspondences give eight linear
// equations in the eight unknown coefficients, with the ninth fixed to 1 by
// normalization.
package homography

import (
	"errors"
	"math"

	"github.com/cardlens/rectify/pkg/geometry"
)

// ErrSingularSystem is returned when the correspondence system has no unique
// solution, e.g. for collinear or coincident corner points. The solver fails
// loudly here instead of producing a partial solve that would render as
// silently corrupted output.
var ErrSingularSystem = errors.New("homography: singular correspondence system")

// pivotTolerance is the magnitude below which an elimination pivot is
// considered zero.
const pivotTolerance = 1e-12

// Homography is a 3x3 projective transform stored row-major, normalized so
// the bottom-right coefficient is 1.
type Homography [9]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// Apply maps the point (x, y) through the transform, performing the
// perspective divide.
func (h Homography) Apply(x, y float64) (float64, float64) {
	denom := h[6]*x + h[7]*y + h[8]
	sx := (h[0]*x + h[1]*y + h[2]) / denom
	sy := (h[3]*x + h[4]*y + h[5]) / denom
	return sx, sy
}

// Determinant returns the determinant of the transform matrix.
func (h Homography) Determinant() float64 {
	return h[0]*(h[4]*h[8]-h[5]*h[7]) -
		h[1]*(h[3]*h[8]-h[5]*h[6]) +
		h[2]*(h[3]*h[7]-h[4]*h[6])
}

// Invert returns the inverse transform, renormalized so its bottom-right
// coefficient is 1. A near-zero determinant fails with ErrSingularSystem.
func (h Homography) Invert() (Homography, error) {
	det := h.Determinant()
	if math.Abs(det) < pivotTolerance {
		return Homography{}, ErrSingularSystem
	}

	// Adjugate divided by the determinant.
	inv := Homography{
		(h[4]*h[8] - h[5]*h[7]) / det,
		(h[2]*h[7] - h[1]*h[8]) / det,
		(h[1]*h[5] - h[2]*h[4]) / det,
		(h[5]*h[6] - h[3]*h[8]) / det,
		(h[0]*h[8] - h[2]*h[6]) / det,
		(h[2]*h[3] - h[0]*h[5]) / det,
		(h[3]*h[7] - h[4]*h[6]) / det,
		(h[1]*h[6] - h[0]*h[7]) / det,
		(h[0]*h[4] - h[1]*h[3]) / det,
	}

	if math.Abs(inv[8]) < pivotTolerance {
		return Homography{}, ErrSingularSystem
	}
	for i := range inv {
		inv[i] /= inv[8]
	}
	return inv, nil
}

// Solve computes the homography mapping dst[i] onto src[i] for the four
// corner correspondences, both in TL, TR, BR, BL order. Each correspondence
// contributes two rows to an 8x9 augmented system:
//
//	x' = (h1 X + h2 Y + h3) / (h7 X + h8 Y + 1)
//	y' = (h4 X + h5 Y + h6) / (h7 X + h8 Y + 1)
//
// solved by Gauss-Jordan elimination with partial pivoting. Any pivot whose
// magnitude falls below the tolerance means the system is rank deficient and
// the solve fails with ErrSingularSystem, as does a solved matrix whose
// determinant is below tolerance — that covers the collinear configurations
// a full-rank system can still produce.
func Solve(dst, src [4]geometry.Point) (Homography, error) {
	var m [8][9]float64
	for i := 0; i < 4; i++ {
		X, Y := dst[i].X, dst[i].Y
		x, y := src[i].X, src[i].Y
		r := 2 * i

		m[r] = [9]float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x, x}
		m[r+1] = [9]float64{0, 0, 0, X, Y, 1, -X * y, -Y * y, y}
	}

	if err := reduce(&m); err != nil {
		return Homography{}, err
	}

	h := Homography{
		m[0][8], m[1][8], m[2][8],
		m[3][8], m[4][8], m[5][8],
		m[6][8], m[7][8], 1,
	}

	// The elimination can reach full rank and still back-substitute a
	// rank-deficient transform: three collinear corners on a diagonal give
	// healthy pivots but a zero-determinant matrix that collapses the plane
	// onto a line. Gate on the determinant as well.
	if math.Abs(h.Determinant()) < pivotTolerance {
		return Homography{}, ErrSingularSystem
	}

	return h, nil
}

// reduce brings the augmented matrix to reduced row echelon form in place.
func reduce(m *[8][9]float64) error {
	for col := 0; col < 8; col++ {
		pivot := pivotRow(m, col)
		if pivot < 0 {
			return ErrSingularSystem
		}
		if pivot != col {
			m[col], m[pivot] = m[pivot], m[col]
		}

		div := m[col][col]
		for c := col; c < 9; c++ {
			m[col][c] /= div
		}

		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			factor := m[r][col]
			if factor == 0 {
				continue
			}
			for c := col; c < 9; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}
	return nil
}

// pivotRow selects the row at or below col with the largest-magnitude
// candidate pivot, or -1 when every candidate is below tolerance.
func pivotRow(m *[8][9]float64, col int) int {
	best := -1
	bestAbs := pivotTolerance
	for r := col; r < 8; r++ {
		if a := math.Abs(m[r][col]); a > bestAbs {
			best = r
			bestAbs = a
		}
	}
	return best
}
