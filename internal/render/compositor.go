// Package render composites the camera frame and the marker-anchored 3-D
// object into one OpenGL frame.
package render

import (
	"fmt"
	"io"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"
)

// lightPos is the fixed light position above the marker plane.
var lightPos = [4]float32{0, 5, 0, 1}

// spinStep is the per-frame cosmetic rotation, in degrees.
const spinStep = 1.0

// Compositor renders one frame in two ordered passes: the camera image as a
// screen-filling textured quad, then, after a depth clear, the 3-D object
// under the current marker pose. The projection matrix is loaded once at
// init and on resizes only; intrinsics do not change at runtime.
type Compositor struct {
	width      int
	height     int
	texture    uint32
	projection mgl32.Mat4
	angle      float32
}

// NewCompositor creates a compositor for frames of the given size. Init must
// be called with a current GL context before any other method.
func NewCompositor(width, height int) *Compositor {
	return &Compositor{width: width, height: height}
}

// Init sets up depth testing, texturing and lighting, and loads the
// projection derived from the camera model.
func (c *Compositor) Init(projection mgl32.Mat4) {
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	gl.Enable(gl.TEXTURE_2D)
	gl.GenTextures(1, &c.texture)

	gl.ShadeModel(gl.SMOOTH)
	gl.Enable(gl.LIGHTING)
	gl.Enable(gl.LIGHT0)

	c.projection = projection
	c.applyProjection()
}

// Resize updates the viewport and reloads the stored projection. This is
// the only place besides Init where the projection is touched.
func (c *Compositor) Resize(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
	c.applyProjection()
}

func (c *Compositor) applyProjection() {
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadIdentity()
	gl.MultMatrixf(&c.projection[0])
	gl.MatrixMode(gl.MODELVIEW)
}

// UploadFrame replaces the background texture with a BGR camera frame.
// Linear filtering, no mipmaps, for speed.
func (c *Compositor) UploadFrame(frame *gocv.Mat) error {
	data, err := frame.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("frame pixel data: %w", err)
	}

	gl.BindTexture(gl.TEXTURE_2D, c.texture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(frame.Cols()), int32(frame.Rows()),
		0, gl.BGR, gl.UNSIGNED_BYTE, gl.Ptr(data))

	return nil
}

// Draw renders the background pass, clears the depth buffer and renders the
// 3-D object under the given pose with a slow continuous spin.
func (c *Compositor) Draw(pose mgl32.Mat4) {
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.Enable(gl.TEXTURE_2D)
	gl.Disable(gl.LIGHTING)
	c.drawBackground()

	// Overdraw the background regardless of its depth.
	gl.Clear(gl.DEPTH_BUFFER_BIT)

	gl.Color3f(1, 1, 1)

	gl.LoadIdentity()
	gl.MultMatrixf(&pose[0])

	// Orientation correction so the object stands on the marker plane,
	// plus the cosmetic spin.
	c.angle += spinStep
	gl.Rotatef(90, 1, 0, 0)
	gl.Rotatef(c.angle, 0, 1, 0)

	gl.Disable(gl.TEXTURE_2D)
	gl.Enable(gl.LIGHTING)
	gl.Lightfv(gl.LIGHT0, gl.POSITION, &lightPos[0])
	gl.Translatef(0, 0.5, 0)
	drawCube(0.5)
}

// drawBackground draws the camera texture as a quad spanning the whole
// viewport. It runs against its own orthographic projection, pushed and
// popped around the pass so the perspective projection of the 3-D pass is
// never disturbed. Texture coordinates are flipped vertically to match the
// frame's top-left origin.
func (c *Compositor) drawBackground() {
	gl.MatrixMode(gl.PROJECTION)
	gl.PushMatrix()
	gl.LoadIdentity()
	gl.Ortho(-1, 1, -1, 1, 0, 1)
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()

	gl.BindTexture(gl.TEXTURE_2D, c.texture)
	gl.Begin(gl.QUADS)
	gl.TexCoord2f(0, 1)
	gl.Vertex2f(-1, -1)
	gl.TexCoord2f(0, 0)
	gl.Vertex2f(-1, 1)
	gl.TexCoord2f(1, 0)
	gl.Vertex2f(1, 1)
	gl.TexCoord2f(1, 1)
	gl.Vertex2f(1, -1)
	gl.End()

	gl.MatrixMode(gl.PROJECTION)
	gl.PopMatrix()
	gl.MatrixMode(gl.MODELVIEW)
}

// DumpProjection writes the projection matrix currently loaded in the GL
// state to w, four values per line.
func (c *Compositor) DumpProjection(w io.Writer) {
	var m [16]float32
	gl.GetFloatv(gl.PROJECTION_MATRIX, &m[0])
	DumpMatrix(w, m)
}

// DumpMatrix writes a column-major 4x4 matrix to w as four rows.
func DumpMatrix(w io.Writer, m [16]float32) {
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			fmt.Fprintf(w, "%6.4f ", m[col*4+row])
		}
		fmt.Fprintln(w)
	}
}

// drawCube renders a lit solid cube of the given half-extent, standing in
// for the classic demo teapot.
func drawCube(r float32) {
	gl.Begin(gl.QUADS)

	// +z
	gl.Normal3f(0, 0, 1)
	gl.Vertex3f(-r, -r, r)
	gl.Vertex3f(r, -r, r)
	gl.Vertex3f(r, r, r)
	gl.Vertex3f(-r, r, r)

	// -z
	gl.Normal3f(0, 0, -1)
	gl.Vertex3f(-r, -r, -r)
	gl.Vertex3f(-r, r, -r)
	gl.Vertex3f(r, r, -r)
	gl.Vertex3f(r, -r, -r)

	// +y
	gl.Normal3f(0, 1, 0)
	gl.Vertex3f(-r, r, -r)
	gl.Vertex3f(-r, r, r)
	gl.Vertex3f(r, r, r)
	gl.Vertex3f(r, r, -r)

	// -y
	gl.Normal3f(0, -1, 0)
	gl.Vertex3f(-r, -r, -r)
	gl.Vertex3f(r, -r, -r)
	gl.Vertex3f(r, -r, r)
	gl.Vertex3f(-r, -r, r)

	// +x
	gl.Normal3f(1, 0, 0)
	gl.Vertex3f(r, -r, -r)
	gl.Vertex3f(r, r, -r)
	gl.Vertex3f(r, r, r)
	gl.Vertex3f(r, -r, r)

	// -x
	gl.Normal3f(-1, 0, 0)
	gl.Vertex3f(-r, -r, -r)
	gl.Vertex3f(-r, -r, r)
	gl.Vertex3f(-r, r, r)
	gl.Vertex3f(-r, r, -r)

	gl.End()
}
