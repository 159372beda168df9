// Package app drives the per-frame pipeline: acquire, detect, annotate,
// select pose, upload, measure, render, present.
package app

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"

	"github.com/ayusman/drishti/internal/calib"
	"github.com/ayusman/drishti/internal/capture"
	"github.com/ayusman/drishti/internal/measure"
	"github.com/ayusman/drishti/internal/server"
	"github.com/ayusman/drishti/internal/store"
	"github.com/ayusman/drishti/internal/track"
)

// DefaultLogEvery is how often readings are sampled into the store, in
// frames.
const DefaultLogEvery = 30

// Renderer is the rendering surface the loop drives. The GL-backed
// implementation lives in internal/render; tests substitute a mock so the
// pipeline runs without a window.
type Renderer interface {
	UploadFrame(frame *gocv.Mat) error
	Draw(pose mgl32.Mat4)
	SetTitle(title string)
	Present()
	ShouldClose() bool
}

// Config holds the collaborators and constants of a measurement session.
type Config struct {
	Camera      capture.Camera
	Tracker     track.Tracker
	Renderer    Renderer
	CameraModel *calib.CameraModel

	// MarkerSize is the physical marker side length; distances come out in
	// its units.
	MarkerSize float64

	// Store and Feed are optional; when set, readings are sampled into the
	// store every LogEvery frames and every frame is published to the feed.
	Store     *store.Store
	Feed      *server.Feed
	SessionID string
	LogEvery  int64
}

// Session owns all state shared across the pipeline steps of one run: the
// camera model, the constant projection, the current pose and distance.
// Components receive this state by reference for the duration of a call and
// never retain it. Single-threaded by design; the loop body runs to
// completion before the next frame starts.
type Session struct {
	cfg        Config
	projection mgl32.Mat4
	pose       mgl32.Mat4 // all-zero until the first marker is selected
	distance   float64
	frame      int64
}

// New creates a Session around the given collaborators.
func New(cfg Config) *Session {
	if cfg.MarkerSize <= 0 {
		cfg.MarkerSize = measure.DefaultMarkerSize
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = DefaultLogEvery
	}

	return &Session{
		cfg:        cfg,
		projection: cfg.CameraModel.Projection(),
	}
}

// Pose returns the current model-view matrix. Before the first detection it
// is the all-zero placeholder.
func (s *Session) Pose() mgl32.Mat4 {
	return s.pose
}

// Distance returns the latest camera-to-marker distance. Zero means no
// marker has been seen yet.
func (s *Session) Distance() float64 {
	return s.distance
}

// Projection returns the constant projection matrix of this session.
func (s *Session) Projection() mgl32.Mat4 {
	return s.projection
}

// Frames returns the number of completed loop iterations.
func (s *Session) Frames() int64 {
	return s.frame
}

// DumpPose writes the current model-view matrix to w, four values per line.
func (s *Session) DumpPose(w io.Writer) {
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			fmt.Fprintf(w, "%6.4f ", s.pose[col*4+row])
		}
		fmt.Fprintln(w)
	}
}
