package track

import (
	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"
)

// MockTracker is a test implementation of the Tracker interface.
// It allows tests to script detection results and poses per call.
type MockTracker struct {
	markers []Marker
	pose    mgl32.Mat4
	err     error

	// NextPose, when set, becomes the pose on the next successful SelectBest.
	NextPose *mgl32.Mat4

	DetectCalls int
	SelectCalls int
}

// NewMockTracker creates a new MockTracker instance.
func NewMockTracker() *MockTracker {
	return &MockTracker{}
}

// SetMarkers sets the markers returned by the next Detect calls.
func (m *MockTracker) SetMarkers(markers []Marker) {
	m.markers = markers
}

// SetError sets the error returned by Detect.
func (m *MockTracker) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured markers or error.
func (m *MockTracker) Detect(frame *gocv.Mat) ([]Marker, error) {
	m.DetectCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.markers, nil
}

// SelectBest succeeds when markers are configured, adopting NextPose if set.
func (m *MockTracker) SelectBest() bool {
	m.SelectCalls++
	if len(m.markers) == 0 {
		return false
	}
	if m.NextPose != nil {
		m.pose = *m.NextPose
	}
	return true
}

// Pose returns the current mock pose.
func (m *MockTracker) Pose() mgl32.Mat4 {
	return m.pose
}

// Close is a no-op for the mock tracker.
func (m *MockTracker) Close() error {
	return nil
}
