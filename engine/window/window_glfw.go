package window

import (
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW side of an engineWindow.
type glfwWindow struct {
	window *glfw.Window
}

// newPlatformWindow creates the GLFW window and routes its callbacks into w.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initialize GLFW: %w", err)
	}

	// WebGPU owns the surface; no OpenGL context.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	resizable := glfw.False
	if w.resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	win, err := glfw.CreateWindow(int(w.width), int(w.height), w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("create GLFW window: %w", err)
	}
	win.SetSizeLimits(int(w.minWidth), int(w.minHeight), glfw.DontCare, glfw.DontCare)
	w.platform = &glfwWindow{window: win}

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		if key == glfw.KeyEscape && w.closeOnEscape {
			win.SetShouldClose(true)
			return
		}
		if w.onKey != nil {
			w.onKey(int(key))
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonMiddle {
			return
		}
		w.dragging = action == glfw.Press
		if w.dragging {
			x, y := win.GetCursorPos()
			w.lastCursor = [2]float64{x, y}
		}
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.cursorMoved(x, y)
	})

	// Framebuffer size, not window size: the surface is configured in pixels.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(uint32(width), uint32(height))
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width, w.height = uint32(fbWidth), uint32(fbHeight)

	logger.Logger().Info("window created", "title", w.title, "width", w.width, "height", w.height)
	return nil
}

// surfaceDescriptor returns the per-platform descriptor built by the wgpuglfw bridge.
func (g *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(g.window)
}

// poll dispatches pending events and reports whether the window should stay open.
func (g *glfwWindow) poll() bool {
	glfw.PollEvents()
	return !g.window.ShouldClose()
}

// destroy closes the window and terminates GLFW.
func (g *glfwWindow) destroy() {
	g.window.SetShouldClose(true)
	g.window.Destroy()
	glfw.Terminate()
}
