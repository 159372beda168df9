package render

import (
	"fmt"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window wraps the GLFW window and event glue the compositor renders into.
// It must be created and driven from the main OS thread.
type Window struct {
	win *glfw.Window

	// OnKey receives printable key presses; escape is handled internally
	// and closes the window.
	OnKey func(r rune)

	// OnResize receives framebuffer size changes.
	OnResize func(width, height int)
}

// NewWindow creates a fixed-size window with a legacy GL 2.1 context and
// makes that context current.
func NewWindow(width, height int, title string) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init glfw: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("init gl: %w", err)
	}

	w := &Window{win: win}

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		if key == glfw.KeyEscape {
			win.SetShouldClose(true)
			return
		}
		if w.OnKey != nil && key >= glfw.KeyA && key <= glfw.KeyZ {
			// glfw key codes for letters are their upper-case ASCII values.
			w.OnKey(rune(key - glfw.KeyA + 'a'))
		}
	})

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, fbWidth, fbHeight int) {
		if w.OnResize != nil {
			w.OnResize(fbWidth, fbHeight)
		}
	})

	return w, nil
}

// SetTitle updates the window title; the frame loop uses it as the live
// distance readout.
func (w *Window) SetTitle(title string) {
	w.win.SetTitle(title)
}

// Present swaps buffers and processes pending window events. Quit and
// resize take effect here, at the iteration boundary.
func (w *Window) Present() {
	w.win.SwapBuffers()
	glfw.PollEvents()
}

// ShouldClose reports whether a quit was requested.
func (w *Window) ShouldClose() bool {
	return w.win.ShouldClose()
}

// Destroy tears down the window and the GLFW state.
func (w *Window) Destroy() {
	w.win.Destroy()
	glfw.Terminate()
}
