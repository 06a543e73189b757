package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
)

// canvasTexture is the GPU side of a canvas. It lives in the texture store so materials can
// sample it like any other texture, and retiring it retires the canvas attachments.
type canvasTexture struct {
	mu      *sync.Mutex
	label   string
	color   device.Image
	resolve device.Image
	depth   device.Image
	texture device.Image
}

var _ material.Texture = &canvasTexture{}

func (c *canvasTexture) Label() string {
	return c.label
}

func (c *canvasTexture) Image() device.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.texture
}

// SetPixels is ignored; a canvas is only written by rendering into it.
func (c *canvasTexture) SetPixels(common.TextureStagingData) {}

func (c *canvasTexture) Update(device.Backend, device.Destroyer) error {
	return nil
}

func (c *canvasTexture) Destroy(d device.Destroyer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, img := range []*device.Image{&c.color, &c.resolve, &c.depth, &c.texture} {
		if *img != nil {
			d.DestroyImage(*img)
			*img = nil
		}
	}
}

// renderTarget returns the attachments of a pass into the canvas and the image the result
// is blitted from.
func (c *canvasTexture) renderTarget(clear common.Color) (device.RenderTarget, device.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rt := device.RenderTarget{Color: c.color, Resolve: c.resolve, Depth: c.depth, Clear: clear}
	if c.resolve != nil {
		return rt, c.resolve
	}
	return rt, c.color
}

// Canvas is an offscreen render target whose result can be sampled as a texture.
type Canvas struct {
	width, height uint32
	texture       resource.Handle[material.Texture]
}

// Size returns the canvas size in pixels.
func (c *Canvas) Size() (uint32, uint32) {
	return c.width, c.height
}

// Texture returns the handle materials sample the canvas through. Clone it to keep the
// canvas alive past Release.
func (c *Canvas) Texture() resource.Handle[material.Texture] {
	return c.texture
}

// Release drops the canvas' own reference. Its images are retired once no material samples it.
func (c *Canvas) Release() {
	c.texture.Release()
}

func (c *Canvas) target() *canvasTexture {
	return c.texture.Get().(*canvasTexture)
}

// newCanvas creates the attachments of a width x height canvas rendered with samples
// samples per pixel.
func newCanvas(b device.Backend, store *resource.Store[material.Texture], label string, width, height, samples uint32) (*Canvas, error) {
	if width == 0 || height == 0 {
		panic(fmt.Sprintf("renderer: canvas %q has zero size %dx%d", label, width, height))
	}
	ct := &canvasTexture{mu: &sync.Mutex{}, label: label}
	type attachment struct {
		img  *device.Image
		spec device.ImageSpec
	}
	specs := []attachment{
		{&ct.color, device.ImageSpec{Label: label + " color", Format: device.FormatColor, Usage: device.ImageRenderTarget | device.ImageCopySrc, Samples: samples}},
		{&ct.depth, device.ImageSpec{Label: label + " depth", Format: device.FormatDepth, Usage: device.ImageRenderTarget, Samples: samples}},
		{&ct.texture, device.ImageSpec{Label: label, Format: device.FormatColor, Usage: device.ImageSampled | device.ImageCopyDst, Samples: 1}},
	}
	if samples > 1 {
		specs = append(specs, attachment{&ct.resolve, device.ImageSpec{Label: label + " resolve", Format: device.FormatColor, Usage: device.ImageRenderTarget | device.ImageCopySrc, Samples: 1}})
	}
	for _, s := range specs {
		s.spec.Width, s.spec.Height = width, height
		img, err := b.CreateImage(s.spec)
		if err != nil {
			ct.Destroy(b)
			return nil, fmt.Errorf("renderer: canvas %s: %w", label, err)
		}
		*s.img = img
	}
	return &Canvas{width: width, height: height, texture: store.Insert(ct)}, nil
}
