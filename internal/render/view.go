package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"

	"github.com/ayusman/drishti/internal/calib"
)

// View ties a Window and a Compositor together into the renderer the frame
// loop drives. Resizes reload the projection; nothing else recomputes it.
type View struct {
	*Window
	comp *Compositor
}

// NewView opens a window sized to the camera model and initializes the
// compositor with the projection derived from it. Must run on the main OS
// thread.
func NewView(cam *calib.CameraModel, title string) (*View, error) {
	win, err := NewWindow(cam.Width, cam.Height, title)
	if err != nil {
		return nil, err
	}

	comp := NewCompositor(cam.Width, cam.Height)
	comp.Init(cam.Projection())

	v := &View{Window: win, comp: comp}
	win.OnResize = comp.Resize

	return v, nil
}

// UploadFrame hands the annotated camera frame to the compositor.
func (v *View) UploadFrame(frame *gocv.Mat) error {
	return v.comp.UploadFrame(frame)
}

// Draw renders both passes for the current pose.
func (v *View) Draw(pose mgl32.Mat4) {
	v.comp.Draw(pose)
}

// Compositor exposes the underlying compositor for debug dumps.
func (v *View) Compositor() *Compositor {
	return v.comp
}
