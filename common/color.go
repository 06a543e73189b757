package common

import "github.com/go-gl/mathgl/mgl32"

// Color is an 8-bit per channel sRGB color with alpha.
type Color struct {
	R, G, B, A uint8
}

var (
	White = Color{255, 255, 255, 255}
	Black = Color{0, 0, 0, 255}
	Gray  = Color{128, 128, 128, 255}
	Red   = Color{255, 0, 0, 255}
	Green = Color{0, 255, 0, 255}
	Blue  = Color{0, 0, 255, 255}
	Sky   = Color{135, 206, 235, 255}
	None  = Color{0, 0, 0, 0}
)

// RGB creates an opaque Color.
func RGB(r, g, b uint8) Color {
	return Color{r, g, b, 255}
}

// Vec4 returns the color normalized to [0, 1] per channel.
func (c Color) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{
		float32(c.R) / 255.0,
		float32(c.G) / 255.0,
		float32(c.B) / 255.0,
		float32(c.A) / 255.0,
	}
}

// Vec3 returns the normalized RGB channels.
func (c Color) Vec3() mgl32.Vec3 {
	return c.Vec4().Vec3()
}
