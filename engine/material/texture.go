package material

import (
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
	"golang.org/x/image/draw"
)

// Texture defines the interface for a sampleable RGBA image.
type Texture interface {
	resource.Resource

	// Label retrieves the debug label of the texture.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Image retrieves the GPU image currently backing the texture. It changes after an Update
	// that replaced the pixels.
	//
	// Returns:
	//   - device.Image: the image
	Image() device.Image

	// SetPixels replaces the pixel data. The GPU image is replaced on the next Update.
	//
	// Parameters:
	//   - staging: the new RGBA pixels; the size may differ from the current one
	SetPixels(staging common.TextureStagingData)
}

type textureImpl struct {
	mu      *sync.Mutex
	label   string
	staging common.TextureStagingData
	image   device.Image
}

var _ Texture = &textureImpl{}

// NewTexture creates a texture and uploads staging immediately.
//
// Parameters:
//   - b: the backend to create the image on
//   - label: the debug label
//   - staging: the RGBA pixels
//
// Returns:
//   - Texture: the uploaded texture
//   - error: an error if the data is malformed or the image could not be created
func NewTexture(b device.Backend, label string, staging common.TextureStagingData) (Texture, error) {
	t := &textureImpl{mu: &sync.Mutex{}, label: label, staging: staging}
	if err := t.upload(b, nil); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *textureImpl) Label() string {
	return t.label
}

func (t *textureImpl) Image() device.Image {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.image
}

func (t *textureImpl) SetPixels(staging common.TextureStagingData) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staging = staging
}

func (t *textureImpl) Update(b device.Backend, d device.Destroyer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.upload(b, d)
}

func (t *textureImpl) Destroy(d device.Destroyer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.image != nil {
		d.DestroyImage(t.image)
		t.image = nil
	}
}

// upload creates a fresh image for the staged pixels and retires the previous one.
// t.mu must be held.
func (t *textureImpl) upload(b device.Backend, d device.Destroyer) error {
	s := t.staging
	if s.Width == 0 || s.Height == 0 {
		return fmt.Errorf("texture %s: empty size %dx%d", t.label, s.Width, s.Height)
	}
	if want := int(s.Width * s.Height * 4); len(s.Pixels) != want {
		return fmt.Errorf("texture %s: expected %d bytes of RGBA data, got %d", t.label, want, len(s.Pixels))
	}
	img, err := b.CreateImage(device.ImageSpec{
		Label:   t.label,
		Width:   s.Width,
		Height:  s.Height,
		Format:  device.FormatRGBA8,
		Usage:   device.ImageSampled | device.ImageCopyDst,
		Samples: 1,
	})
	if err != nil {
		return fmt.Errorf("texture %s: create image: %w", t.label, err)
	}
	if err := b.WriteImage(img, s.Pixels); err != nil {
		b.DestroyImage(img)
		return fmt.Errorf("texture %s: write pixels: %w", t.label, err)
	}
	if t.image != nil && d != nil {
		d.DestroyImage(t.image)
	}
	t.image = img
	return nil
}

// Solid returns 1x1 staging data of a single color.
func Solid(c common.Color) common.TextureStagingData {
	return common.TextureStagingData{
		Pixels: []byte{c.R, c.G, c.B, c.A},
		Width:  1,
		Height: 1,
	}
}

// FromImage converts any image.Image into RGBA staging data.
func FromImage(img image.Image) common.TextureStagingData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return common.TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}
}
