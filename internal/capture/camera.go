// Package capture provides video frame acquisition using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture resolution. Must match the calibration the tracker runs
// against.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// ErrCameraNotOpen is returned when trying to read from a source that is not open.
var ErrCameraNotOpen = errors.New("capture source is not open")

// ErrNoFrame is returned when the source produced no frame: device failure or
// end of stream. The frame loop treats it as fatal, there is no retry.
var ErrNoFrame = errors.New("no frame from capture source")

// Camera defines the interface for frame acquisition implementations.
// ReadFrame blocks until a frame is available and returns a BGR 3-channel
// Mat of the configured size.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}

// cameraImpl pulls frames from a capture device or video file using GoCV.
type cameraImpl struct {
	source  any // device id (int) or file path (string)
	width   int
	height  int
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewCamera creates a Camera reading from the given device ID at the given
// resolution.
func NewCamera(deviceID, width, height int) Camera {
	return &cameraImpl{source: deviceID, width: width, height: height}
}

// NewFileCamera creates a Camera reading from a video file. Frames are
// expected to already be at the configured resolution; the size is not
// renegotiated for file sources.
func NewFileCamera(path string, width, height int) Camera {
	return &cameraImpl{source: path, width: width, height: height}
}

// Open opens the capture source and configures the frame size.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.source)
	if err != nil {
		return fmt.Errorf("open capture source %v: %w", c.source, err)
	}

	if _, isDevice := c.source.(int); isDevice {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
	}

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the capture source and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the source.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, ErrNoFrame
	}

	if mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}

	return &mat, nil
}

// IsOpen returns true if the source is currently open.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
