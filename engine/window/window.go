// Package window supplies the presentation surface: a GLFW window with no client API whose
// native handles become a WebGPU surface descriptor, plus the input callbacks the engine
// forwards to the camera controller.
package window

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the swapchain collaborator of the renderer.
//
// Every method except Size must be called on the goroutine that created the window,
// which GLFW requires to be the main thread.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer size changes.
	// Minimizing reports a zero size; the callback is not called for it.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer size in pixels
	SetResizeCallback(callback func(width, height uint32))

	// SetKeyCallback sets the function called for key presses and repeats.
	//
	// Parameters:
	//   - callback: function receiving the key code, see common.Key*
	SetKeyCallback(callback func(key int))

	// SetScrollCallback sets the function called for vertical scroll.
	//
	// Parameters:
	//   - callback: function receiving the scroll delta, positive away from the user
	SetScrollCallback(callback func(delta float32))

	// SetDragCallback sets the function called while the cursor moves with the middle
	// button held.
	//
	// Parameters:
	//   - callback: function receiving the cursor movement in pixels since the last call
	SetDragCallback(callback func(dx, dy float32))

	// SurfaceDescriptor returns the platform surface descriptor for the WebGPU backend.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, nil once the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Size returns the framebuffer size in pixels. Safe from any goroutine.
	Size() (width, height uint32)

	// PollEvents dispatches pending input and window events without blocking.
	//
	// Returns:
	//   - bool: false once the window was asked to close
	PollEvents() bool

	// Close destroys the window and terminates GLFW.
	//
	// Returns:
	//   - error: an error if the window is already closed
	Close() error
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	mu *sync.Mutex

	title               string
	width, height       uint32
	minWidth, minHeight uint32
	resizable           bool
	closeOnEscape       bool
	platform            *glfwWindow

	onResize func(width, height uint32)
	onKey    func(key int)
	onScroll func(delta float32)
	onDrag   func(dx, dy float32)

	dragging   bool
	lastCursor [2]float64
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a GLFW window. It locks the calling goroutine to its OS thread.
//
// Parameters:
//   - options: functional options such as WithTitle and WithSize
//
// Returns:
//   - Window: the open window
//   - error: an error if GLFW could not be initialized or the window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		mu:            &sync.Mutex{},
		title:         "oxy",
		width:         1280,
		height:        720,
		minWidth:      320,
		minHeight:     200,
		resizable:     true,
		closeOnEscape: true,
	}
	for _, option := range options {
		option(w)
	}
	if w.width == 0 || w.height == 0 {
		return nil, fmt.Errorf("window: size %dx%d", w.width, w.height)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height uint32)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyCallback(callback func(key int)) {
	w.onKey = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.platform == nil {
		return nil
	}
	return w.platform.surfaceDescriptor()
}

func (w *engineWindow) Size() (uint32, uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *engineWindow) PollEvents() bool {
	if w.platform == nil {
		return false
	}
	return w.platform.poll()
}

func (w *engineWindow) Close() error {
	if w.platform == nil {
		return fmt.Errorf("window: %q is already closed", w.title)
	}
	w.platform.destroy()
	w.platform = nil
	return nil
}

// resized records a framebuffer size change and forwards it unless the window is minimized.
func (w *engineWindow) resized(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

// cursorMoved turns cursor positions into drag deltas while the middle button is held.
func (w *engineWindow) cursorMoved(x, y float64) {
	dx, dy := x-w.lastCursor[0], y-w.lastCursor[1]
	w.lastCursor = [2]float64{x, y}
	if w.dragging && w.onDrag != nil {
		w.onDrag(float32(dx), float32(dy))
	}
}
