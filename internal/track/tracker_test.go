package track

import (
	"image"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"
)

// markerFrame renders a synthetic ArUco marker of the given id onto a white
// 640x480 BGR frame, sidePx wide, centered on the principal point of the
// test camera.
func markerFrame(t *testing.T, id, sidePx int) *gocv.Mat {
	t.Helper()

	marker := gocv.NewMat()
	gocv.ArucoGenerateImageMarker(gocv.ArucoDict4x4_50, id, sidePx, marker, 1)
	defer marker.Close()

	markerBGR := gocv.NewMat()
	gocv.CvtColor(marker, &markerBGR, gocv.ColorGrayToBGR)
	defer markerBGR.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	frame.SetTo(gocv.NewScalar(255, 255, 255, 0))

	x := (640 - sidePx) / 2
	y := (480 - sidePx) / 2
	region := frame.Region(image.Rect(x, y, x+sidePx, y+sidePx))
	defer region.Close()
	markerBGR.CopyTo(&region)

	t.Cleanup(func() { frame.Close() })
	return &frame
}

func TestArucoTracker_DetectAndPose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV")
	}

	cam := testCam()
	tracker := NewArucoTracker(cam, gocv.ArucoDict4x4_50)
	defer tracker.Close()

	frame := markerFrame(t, 7, 200)

	markers, err := tracker.Detect(frame)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("Detect() found %d markers, want 1", len(markers))
	}
	if markers[0].ID != 7 {
		t.Errorf("marker id = %d, want 7", markers[0].ID)
	}
	if markers[0].Confidence <= 0 || markers[0].Confidence > 1 {
		t.Errorf("confidence = %g, want in (0, 1]", markers[0].Confidence)
	}

	// Marker is centered on the principal point, so its center should be
	// close to (320, 240).
	if math.Abs(float64(markers[0].Center.X)-320) > 3 || math.Abs(float64(markers[0].Center.Y)-240) > 3 {
		t.Errorf("marker center = (%g, %g), want near (320, 240)", markers[0].Center.X, markers[0].Center.Y)
	}

	if !tracker.SelectBest() {
		t.Fatal("SelectBest() = false with one marker detected")
	}

	pose := tracker.Pose()
	if pose == (mgl32.Mat4{}) {
		t.Fatal("Pose() is still the zero placeholder after selection")
	}

	// A 200 px marker under fx=800 sits 4 marker-units in front of the
	// camera, on the optical axis, which is -z in OpenGL convention.
	if math.Abs(float64(pose[14])+4) > 0.2 {
		t.Errorf("pose z translation = %g, want about -4", pose[14])
	}
	if math.Abs(float64(pose[12])) > 0.1 || math.Abs(float64(pose[13])) > 0.1 {
		t.Errorf("pose xy translation = (%g, %g), want near origin", pose[12], pose[13])
	}
}

func TestArucoTracker_NoMarker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV")
	}

	cam := testCam()
	tracker := NewArucoTracker(cam, gocv.ArucoDict4x4_50)
	defer tracker.Close()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()

	markers, err := tracker.Detect(&black)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(markers) != 0 {
		t.Fatalf("Detect() on a black frame found %d markers, want 0", len(markers))
	}

	if tracker.SelectBest() {
		t.Error("SelectBest() = true with no markers")
	}
	if tracker.Pose() != (mgl32.Mat4{}) {
		t.Error("Pose() should stay at the zero placeholder before any selection")
	}
}

func TestArucoTracker_PoseRetainedAcrossEmptyFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV")
	}

	cam := testCam()
	tracker := NewArucoTracker(cam, gocv.ArucoDict4x4_50)
	defer tracker.Close()

	frame := markerFrame(t, 3, 160)
	if _, err := tracker.Detect(frame); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if !tracker.SelectBest() {
		t.Fatal("SelectBest() failed on the marker frame")
	}
	solved := tracker.Pose()

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	if _, err := tracker.Detect(&black); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if tracker.SelectBest() {
		t.Error("SelectBest() = true on an empty frame")
	}

	if tracker.Pose() != solved {
		t.Error("pose changed after an empty frame; it must be retained unchanged")
	}
}

func TestArucoTracker_SelectBestPicksHighestConfidence(t *testing.T) {
	cam := testCam()
	tracker := &ArucoTracker{cam: cam, selected: -1}

	clean := projectCorners(cam, identityRot(), [3]float64{0, 0, 12})
	skewed := projectCorners(cam, identityRot(), [3]float64{0.5, 0, 5})
	skewed[0].X += 25

	tracker.markers = []Marker{
		{ID: 1, Corners: skewed, Confidence: planarScore(cam, &skewed)},
		{ID: 2, Corners: clean, Confidence: planarScore(cam, &clean)},
	}

	if tracker.markers[1].Confidence <= tracker.markers[0].Confidence {
		t.Fatalf("clean quad scored %g, skewed %g; expected the clean one higher",
			tracker.markers[1].Confidence, tracker.markers[0].Confidence)
	}

	if !tracker.SelectBest() {
		t.Fatal("SelectBest() = false with two markers")
	}
	if tracker.selected != 1 {
		t.Errorf("selected marker index = %d, want 1 (the rigid-consistent quad)", tracker.selected)
	}
}

func TestMockTracker(t *testing.T) {
	m := NewMockTracker()

	if m.SelectBest() {
		t.Error("SelectBest() = true with no markers configured")
	}

	pose := mgl32.Translate3D(0, 0, -5)
	m.SetMarkers([]Marker{{ID: 1, Confidence: 0.9}})
	m.NextPose = &pose

	markers, err := m.Detect(nil)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(markers) != 1 {
		t.Fatalf("Detect() returned %d markers, want 1", len(markers))
	}

	if !m.SelectBest() {
		t.Fatal("SelectBest() = false with markers configured")
	}
	if m.Pose() != pose {
		t.Error("Pose() did not adopt NextPose")
	}
}
