package track

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var errDegenerate = errors.New("degenerate corner configuration")

// homography estimates the 3x3 planar homography mapping src points to dst
// points with the direct linear transform. Four correspondences give an
// exactly determined system; the solution is the right singular vector for
// the smallest singular value of the 8x9 design matrix.
func homography(src, dst [4][2]float64) (*mat.Dense, error) {
	a := mat.NewDense(8, 9, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i][0], src[i][1]
		u, v := dst[i][0], dst[i][1]

		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFullV); !ok {
		return nil, errDegenerate
	}

	var v mat.Dense
	svd.VTo(&v)

	h := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h.Set(i, j, v.At(3*i+j, 8))
		}
	}

	if math.Abs(h.At(2, 2)) < 1e-12 {
		return nil, errDegenerate
	}
	h.Scale(1/h.At(2, 2), h)

	return h, nil
}

// project applies a homography to a 2-D point.
func project(h *mat.Dense, x, y float64) (float64, float64) {
	w := h.At(2, 0)*x + h.At(2, 1)*y + h.At(2, 2)
	u := (h.At(0, 0)*x + h.At(0, 1)*y + h.At(0, 2)) / w
	v := (h.At(1, 0)*x + h.At(1, 1)*y + h.At(1, 2)) / w
	return u, v
}
