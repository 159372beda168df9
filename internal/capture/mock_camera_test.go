package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func newTestFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()

	frames := make([]*gocv.Mat, n)
	for i := range frames {
		mat := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
		frames[i] = &mat
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

func TestMockCamera_Playback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frames := newTestFrames(t, 2)
	c := NewMockCamera(frames, false)

	if err := c.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		frame, err := c.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() #%d error = %v", i, err)
		}
		frame.Close()
	}

	// Non-looping playback ends like a dead capture device.
	if _, err := c.ReadFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("ReadFrame() past end error = %v, want ErrNoFrame", err)
	}
}

func TestMockCamera_Loop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frames := newTestFrames(t, 1)
	c := NewMockCamera(frames, true)
	c.Open()

	for i := 0; i < 5; i++ {
		frame, err := c.ReadFrame()
		if err != nil {
			t.Fatalf("looping ReadFrame() #%d error = %v", i, err)
		}
		frame.Close()
	}
}

func TestMockCamera_NotOpen(t *testing.T) {
	c := NewMockCamera(nil, false)

	if _, err := c.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}
}

func TestMockCamera_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frames := newTestFrames(t, 1)
	c := NewMockCamera(frames, false)
	c.Open()

	frame, err := c.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	frame.Close()

	c.Reset()

	frame, err = c.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() after Reset error = %v", err)
	}
	frame.Close()
}
