package track

import (
	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"

	"github.com/ayusman/drishti/internal/calib"
)

// PatternWidth is the marker side length in marker-local units. Keeping it
// at 1 makes the recovered translation come out in marker sizes, so the
// distance estimator only has to scale by the physical marker size.
const PatternWidth = 1.0

// markerPlane holds the marker-local corner coordinates, ordered like the
// detector output: top-left, top-right, bottom-right, bottom-left. The
// marker lies in the z=0 plane with y up.
var markerPlane = [4][2]float64{
	{-PatternWidth / 2, PatternWidth / 2},
	{PatternWidth / 2, PatternWidth / 2},
	{PatternWidth / 2, -PatternWidth / 2},
	{-PatternWidth / 2, -PatternWidth / 2},
}

// ArucoTracker detects ArUco markers with GoCV and solves their planar pose
// against the camera intrinsics. Detection itself is stateless across
// frames; the detector's adaptive threshold parameters are the only state
// that persists between calls.
type ArucoTracker struct {
	cam      *calib.CameraModel
	detector gocv.ArucoDetector
	markers  []Marker
	selected int
	pose     mgl32.Mat4
}

// NewArucoTracker creates a tracker for the given dictionary, solving poses
// against the given camera model.
func NewArucoTracker(cam *calib.CameraModel, dict gocv.ArucoDictionaryCode) *ArucoTracker {
	params := gocv.NewArucoDetectorParameters()
	dictionary := gocv.GetPredefinedDictionary(dict)

	return &ArucoTracker{
		cam:      cam,
		detector: gocv.NewArucoDetectorWithParams(dictionary, params),
		selected: -1,
	}
}

// Detect finds markers in the frame and scores each by how well a rigid pose
// of the marker plane explains its corners.
func (t *ArucoTracker) Detect(frame *gocv.Mat) ([]Marker, error) {
	corners, ids, _ := t.detector.DetectMarkers(*frame)

	t.markers = t.markers[:0]
	t.selected = -1

	for i, quad := range corners {
		if len(quad) != 4 {
			continue
		}

		m := Marker{ID: ids[i]}
		var cx, cy float32
		for j := 0; j < 4; j++ {
			m.Corners[j] = quad[j]
			cx += quad[j].X
			cy += quad[j].Y
		}
		m.Center = gocv.Point2f{X: cx / 4, Y: cy / 4}
		m.Confidence = planarScore(t.cam, &m.Corners)

		t.markers = append(t.markers, m)
	}

	return t.markers, nil
}

// SelectBest picks the highest-confidence marker from the last Detect and
// solves its pose. Returns false when the last frame had no markers; the
// previously solved pose is left as it was.
func (t *ArucoTracker) SelectBest() bool {
	if len(t.markers) == 0 {
		return false
	}

	best := 0
	for i, m := range t.markers {
		if m.Confidence > t.markers[best].Confidence {
			best = i
		}
	}

	pose, err := planarPose(t.cam, &t.markers[best].Corners)
	if err != nil {
		return false
	}

	t.selected = best
	t.pose = pose
	return true
}

// Pose returns the model-view matrix solved by the last successful
// SelectBest, or the all-zero placeholder if nothing was ever selected.
func (t *ArucoTracker) Pose() mgl32.Mat4 {
	return t.pose
}

// Close releases the underlying detector.
func (t *ArucoTracker) Close() error {
	return t.detector.Close()
}
