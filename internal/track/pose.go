package track

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/drishti/internal/calib"
)

// minQuadArea is the smallest corner quad, in px², that still pins down a
// homography. Collapsed or near-collinear quads slip through the DLT with a
// plausible-looking solution, so they are rejected up front.
const minQuadArea = 1.0

// idealCorners undistorts the detected pixel corners into the ideal pinhole
// projection the solver works in, rejecting collapsed quads.
func idealCorners(cam *calib.CameraModel, corners *[4]gocv.Point2f) ([4][2]float64, error) {
	var dst [4][2]float64
	for i := 0; i < 4; i++ {
		dst[i][0], dst[i][1] = cam.Undistort(float64(corners[i].X), float64(corners[i].Y))
	}

	if math.Abs(quadArea(dst)) < minQuadArea {
		return dst, errDegenerate
	}
	return dst, nil
}

// quadArea is the signed shoelace area of a quad.
func quadArea(q [4][2]float64) float64 {
	var area float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		area += q[i][0]*q[j][1] - q[j][0]*q[i][1]
	}
	return area / 2
}

// planarScore rates a detection by how well a rigid pose of the marker plane
// explains the corners, mapped into (0, 1]. The raw homography reproduces
// four corners exactly by construction, so the score reprojects through the
// orthonormalized pose instead: a quad that is a true perspective view of the
// marker square scores near 1, while a skewed quad no rigid transform can
// produce scores low.
func planarScore(cam *calib.CameraModel, corners *[4]gocv.Point2f) float64 {
	dst, err := idealCorners(cam, corners)
	if err != nil {
		return 0
	}

	rot, tr, err := decompose(cam, dst)
	if err != nil {
		return 0
	}

	var total float64
	for i := 0; i < 4; i++ {
		x, y := markerPlane[i][0], markerPlane[i][1]
		cz := rot.At(2, 0)*x + rot.At(2, 1)*y + tr.AtVec(2)
		if cz < 1e-9 {
			return 0
		}
		u := cam.Fx*(rot.At(0, 0)*x+rot.At(0, 1)*y+tr.AtVec(0))/cz + cam.Cx
		v := cam.Fy*(rot.At(1, 0)*x+rot.At(1, 1)*y+tr.AtVec(1))/cz + cam.Cy
		total += math.Hypot(u-dst[i][0], v-dst[i][1])
	}

	return 1 / (1 + total/4)
}

// planarPose recovers the rigid marker-to-camera transform from the corner
// homography. Detected corners are undistorted into the ideal pinhole
// projection first. H is proportional to K[r1 r2 t] for points on the marker
// plane, so normalizing K⁻¹H by the rotation column lengths yields the first
// two rotation columns and the translation; the third column is their cross
// product and the whole rotation is snapped to the nearest orthonormal
// matrix. The result is converted from the camera's y-down, z-forward
// convention to OpenGL's y-up, z-backward one and returned column-major.
func planarPose(cam *calib.CameraModel, corners *[4]gocv.Point2f) (mgl32.Mat4, error) {
	var zero mgl32.Mat4

	dst, err := idealCorners(cam, corners)
	if err != nil {
		return zero, err
	}

	rot, tr, err := decompose(cam, dst)
	if err != nil {
		return zero, err
	}

	// Axis flip from camera to OpenGL convention: negate the y and z rows.
	for j := 0; j < 3; j++ {
		rot.Set(1, j, -rot.At(1, j))
		rot.Set(2, j, -rot.At(2, j))
	}
	ty := -tr.AtVec(1)
	tz := -tr.AtVec(2)

	var pose mgl32.Mat4
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			pose[col*4+row] = float32(rot.At(row, col))
		}
	}
	pose[12] = float32(tr.AtVec(0))
	pose[13] = float32(ty)
	pose[14] = float32(tz)
	pose[15] = 1

	return pose, nil
}

// decompose recovers the camera-convention rotation and translation from the
// homography fitted to the ideal corners.
func decompose(cam *calib.CameraModel, dst [4][2]float64) (*mat.Dense, *mat.VecDense, error) {
	h, err := homography(markerPlane, dst)
	if err != nil {
		return nil, nil, err
	}

	// K⁻¹ for a pinhole intrinsic matrix, formed directly.
	kinv := mat.NewDense(3, 3, []float64{
		1 / cam.Fx, 0, -cam.Cx / cam.Fx,
		0, 1 / cam.Fy, -cam.Cy / cam.Fy,
		0, 0, 1,
	})

	var g mat.Dense
	g.Mul(kinv, h)

	r1 := mat.NewVecDense(3, []float64{g.At(0, 0), g.At(1, 0), g.At(2, 0)})
	r2 := mat.NewVecDense(3, []float64{g.At(0, 1), g.At(1, 1), g.At(2, 1)})
	tr := mat.NewVecDense(3, []float64{g.At(0, 2), g.At(1, 2), g.At(2, 2)})

	n1 := mat.Norm(r1, 2)
	n2 := mat.Norm(r2, 2)
	if n1 < 1e-12 || n2 < 1e-12 {
		return nil, nil, errDegenerate
	}

	lambda := 2 / (n1 + n2)
	r1.ScaleVec(lambda, r1)
	r2.ScaleVec(lambda, r2)
	tr.ScaleVec(lambda, tr)

	// The marker must sit in front of the camera (positive z in camera
	// coordinates); the DLT solution is only defined up to sign.
	if tr.AtVec(2) < 0 {
		r1.ScaleVec(-1, r1)
		r2.ScaleVec(-1, r2)
		tr.ScaleVec(-1, tr)
	}

	r3 := cross(r1, r2)
	if mat.Norm(r3, 2) < 1e-6 {
		return nil, nil, errDegenerate
	}

	rot := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		rot.Set(i, 0, r1.AtVec(i))
		rot.Set(i, 1, r2.AtVec(i))
		rot.Set(i, 2, r3.AtVec(i))
	}
	orthonormalize(rot)

	return rot, tr, nil
}

// orthonormalize snaps a near-rotation matrix to the closest true rotation
// using its singular value decomposition.
func orthonormalize(r *mat.Dense) {
	var svd mat.SVD
	if ok := svd.Factorize(r, mat.SVDFull); !ok {
		return
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var out mat.Dense
	out.Mul(&u, v.T())

	// A reflection is not a valid pose; flip the least significant axis.
	if mat.Det(&out) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		out.Mul(&u, v.T())
	}

	r.Copy(&out)
}

func cross(a, b *mat.VecDense) *mat.VecDense {
	return mat.NewVecDense(3, []float64{
		a.AtVec(1)*b.AtVec(2) - a.AtVec(2)*b.AtVec(1),
		a.AtVec(2)*b.AtVec(0) - a.AtVec(0)*b.AtVec(2),
		a.AtVec(0)*b.AtVec(1) - a.AtVec(1)*b.AtVec(0),
	})
}
