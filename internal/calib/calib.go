// Package calib adapts an OpenCV-style camera calibration into the forms the
// tracker and the renderer consume.
package calib

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
)

// Default clip planes for the derived projection.
const (
	DefaultNear = 1.0
	DefaultFar  = 1000.0
)

// DistCoeffs is the number of distortion slots the pose solver reads.
// Unused slots must be zero, not left uninitialized.
const DistCoeffs = 6

// undistortIters is the number of fixed-point rounds Undistort runs. Eight
// rounds converge well below a hundredth of a pixel for realistic lenses.
const undistortIters = 8

// CameraModel holds the intrinsic calibration of the capture camera.
// It is built once at startup and never mutated afterwards.
type CameraModel struct {
	Width  int
	Height int
	Fx, Fy float64
	Cx, Cy float64

	// Dist holds the Brown-Conrady coefficients in calibration-file order:
	// k1, k2, p1, p2, k3, then k4 as the first rational denominator term.
	Dist [DistCoeffs]float64

	Near float64
	Far  float64
}

// FromIntrinsics builds a CameraModel from a 3x3 intrinsic matrix and a
// distortion vector. The matrix layout is trusted, not validated: focal
// lengths on the diagonal, principal point in the last column. Callers
// holding raw calibration data must uphold that layout; LoadFile performs
// the validation for file-sourced calibrations.
func FromIntrinsics(k [3][3]float64, dist []float64, width, height int) *CameraModel {
	m := &CameraModel{
		Width:  width,
		Height: height,
		Fx:     k[0][0],
		Fy:     k[1][1],
		Cx:     k[0][2],
		Cy:     k[1][2],
		Near:   DefaultNear,
		Far:    DefaultFar,
	}
	for i := 0; i < DistCoeffs && i < len(dist); i++ {
		m.Dist[i] = dist[i]
	}
	return m
}

// Intrinsic34 returns the 3x4 intrinsic matrix the pose solver works with.
func (m *CameraModel) Intrinsic34() [3][4]float64 {
	var k [3][4]float64
	k[0][0] = m.Fx
	k[1][1] = m.Fy
	k[0][2] = m.Cx
	k[1][2] = m.Cy
	k[2][2] = 1
	return k
}

// Projection derives the OpenGL projection matrix from the intrinsics and
// the clip planes. Intrinsics do not change at runtime, so the result is
// constant for the life of the model; callers load it once at init and on
// viewport resizes only.
func (m *CameraModel) Projection() mgl32.Mat4 {
	w := float64(m.Width)
	h := float64(m.Height)
	n, f := m.Near, m.Far

	var p mgl32.Mat4
	p[0] = float32(2 * m.Fx / w)
	p[5] = float32(2 * m.Fy / h)
	p[8] = float32(1 - 2*m.Cx/w)
	p[9] = float32(2*m.Cy/h - 1)
	p[10] = float32(-(f + n) / (f - n))
	p[11] = -1
	p[14] = float32(-2 * f * n / (f - n))
	return p
}

// Undistort maps a pixel coordinate as imaged by the real lens to where the
// ideal pinhole camera would have placed it, by fixed-point inversion of the
// Brown-Conrady model. With all coefficients zero it is the identity.
func (m *CameraModel) Undistort(u, v float64) (float64, float64) {
	if m.Dist == ([DistCoeffs]float64{}) {
		return u, v
	}

	xd := (u - m.Cx) / m.Fx
	yd := (v - m.Cy) / m.Fy

	x, y := xd, yd
	for i := 0; i < undistortIters; i++ {
		dx, dy, radial := m.distortTerms(x, y)
		x = (xd - dx) / radial
		y = (yd - dy) / radial
	}

	return m.Fx*x + m.Cx, m.Fy*y + m.Cy
}

// Distort applies the forward lens model, projecting an ideal pinhole pixel
// to where the lens actually images it. Used to synthesize distorted inputs
// in tests.
func (m *CameraModel) Distort(u, v float64) (float64, float64) {
	x := (u - m.Cx) / m.Fx
	y := (v - m.Cy) / m.Fy

	dx, dy, radial := m.distortTerms(x, y)
	return m.Fx*(x*radial+dx) + m.Cx, m.Fy*(y*radial+dy) + m.Cy
}

// distortTerms evaluates the tangential offsets and the radial gain of the
// forward model at a normalized image point.
func (m *CameraModel) distortTerms(x, y float64) (dx, dy, radial float64) {
	k1, k2, p1, p2, k3, k4 := m.Dist[0], m.Dist[1], m.Dist[2], m.Dist[3], m.Dist[4], m.Dist[5]

	r2 := x*x + y*y
	radial = (1 + r2*(k1+r2*(k2+r2*k3))) / (1 + r2*k4)
	dx = 2*p1*x*y + p2*(r2+2*x*x)
	dy = p1*(r2+2*y*y) + 2*p2*x*y
	return dx, dy, radial
}

// Dump writes the 3x4 intrinsic matrix to w, one row per line.
func (m *CameraModel) Dump(w io.Writer) {
	k := m.Intrinsic34()
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			fmt.Fprintf(w, "%6.4f ", k[i][j])
		}
		fmt.Fprintln(w)
	}
}
