package common

// Key codes delivered by the window key callback. They are GLFW key codes, so printable
// keys carry their upper-case ASCII value.
const (
	KeyA     = 'A'
	KeyD     = 'D'
	KeyE     = 'E'
	KeyQ     = 'Q'
	KeyS     = 'S'
	KeyW     = 'W'
	KeySpace = ' '

	KeyEscape   = 256
	KeyRight    = 262
	KeyLeft     = 263
	KeyDown     = 264
	KeyUp       = 265
	KeyPageUp   = 266
	KeyPageDown = 267
)
