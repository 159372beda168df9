// Package track locates fiducial markers in video frames and recovers their
// pose relative to a calibrated camera.
package track

import (
	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"
)

// Marker is a single fiducial detected in one frame. Coordinates are pixel
// positions in the frame the marker was detected in. Corners are ordered
// top-left, top-right, bottom-right, bottom-left in marker space.
type Marker struct {
	ID         int
	Center     gocv.Point2f
	Corners    [4]gocv.Point2f
	Confidence float64
}

// Tracker is the three-operation marker tracking capability the frame loop
// depends on. Detect carries no state between frames; SelectBest must be
// called after Detect and before Pose. When SelectBest reports false (no
// markers in the last frame) the caller keeps its previous pose unchanged
// rather than resetting it, so the rendered object does not pop on marker
// loss.
type Tracker interface {
	// Detect finds markers in a BGR frame. Returns an empty slice when no
	// marker is visible; that is a steady state, not an error.
	Detect(frame *gocv.Mat) ([]Marker, error)

	// SelectBest picks the highest-confidence marker from the last Detect.
	// Returns false if the last frame had no markers.
	SelectBest() bool

	// Pose returns the model-view matrix of the selected marker: a rigid
	// transform from marker-local to camera space, column-major, in OpenGL
	// axis convention. Only meaningful after a successful SelectBest; before
	// any selection it is the all-zero placeholder.
	Pose() mgl32.Mat4

	// Close releases detector resources.
	Close() error
}
