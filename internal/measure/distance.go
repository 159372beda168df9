// Package measure derives a physical camera-to-marker distance from a pose.
package measure

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMarkerSize is the physical marker side length the distance scales
// by; 8 matches an 8 cm printed marker.
const DefaultMarkerSize = 8.0

// Distance converts a model-view pose into a physical camera-to-marker
// distance. The pose solver normalizes the pattern width to one marker
// unit, so the norm of the translation triple (elements 12..14 of the
// column-major matrix) is the distance in marker sizes; scaling by the
// physical size yields real units. Pure per-frame function, no smoothing.
//
// The all-zero placeholder pose evaluates to 0, which callers should read
// as "no marker seen yet", not as a measurement.
func Distance(pose mgl32.Mat4, markerSize float64) float64 {
	tx := float64(pose[12])
	ty := float64(pose[13])
	tz := float64(pose[14])
	return math.Sqrt(tx*tx+ty*ty+tz*tz) * markerSize
}
