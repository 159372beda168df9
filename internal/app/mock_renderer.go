package app

import (
	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"
)

// MockRenderer records the calls the loop makes, for testing the pipeline
// without a GL context.
type MockRenderer struct {
	Calls      []string
	Poses      []mgl32.Mat4
	Titles     []string
	UploadErr  error
	CloseAfter int // Presents before ShouldClose flips; 0 means never
	presents   int
}

// NewMockRenderer creates a MockRenderer that quits after closeAfter
// presented frames.
func NewMockRenderer(closeAfter int) *MockRenderer {
	return &MockRenderer{CloseAfter: closeAfter}
}

func (m *MockRenderer) UploadFrame(frame *gocv.Mat) error {
	m.Calls = append(m.Calls, "upload")
	return m.UploadErr
}

func (m *MockRenderer) Draw(pose mgl32.Mat4) {
	m.Calls = append(m.Calls, "draw")
	m.Poses = append(m.Poses, pose)
}

func (m *MockRenderer) SetTitle(title string) {
	m.Titles = append(m.Titles, title)
}

func (m *MockRenderer) Present() {
	m.Calls = append(m.Calls, "present")
	m.presents++
}

func (m *MockRenderer) ShouldClose() bool {
	return m.CloseAfter > 0 && m.presents >= m.CloseAfter
}
