// Package overlay draws 2-D detection feedback onto camera frames.
package overlay

import (
	"image"
	"image/color"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/ayusman/drishti/internal/track"
)

// Drawing constants for marker annotation.
const (
	cornerRadius = 6
	textScale    = 1.0
)

var (
	cornerColor = color.RGBA{R: 255, G: 0, B: 255, A: 0} // magenta circles
	idColor     = color.RGBA{R: 0, G: 255, B: 0, A: 0}   // green id text
)

// Annotate draws a circle at each corner of every detected marker and the
// marker id near its center, in place. It is a visualization aid only and
// runs before the frame is uploaded as the background texture, so the
// annotations end up in the composited output. With no markers the frame is
// left byte-for-byte untouched.
func Annotate(frame *gocv.Mat, markers []track.Marker) {
	for i := range markers {
		m := &markers[i]

		for _, c := range m.Corners {
			p := image.Pt(int(c.X), int(c.Y))
			gocv.Circle(frame, p, cornerRadius, cornerColor, 1)
		}

		center := image.Pt(int(m.Center.X), int(m.Center.Y))
		gocv.PutText(frame, strconv.Itoa(m.ID), center, gocv.FontHersheySimplex, textScale, idColor, 1)
	}
}
