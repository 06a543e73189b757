// Package material provides the surface description bound per material group: a uniform
// block of Params and an albedo Texture.
package material

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
)

// materialImpl is the implementation of the Material interface.
type materialImpl struct {
	mu     *sync.Mutex
	label  string
	params Params
	albedo resource.Handle[Texture]

	buffer     device.Buffer
	descriptor device.Descriptor
	bound      device.Image
}

// Material defines the interface for a render material. It owns a LayoutMaterial descriptor
// binding its uniform Params and the image of its albedo texture.
type Material interface {
	resource.Resource

	// Label retrieves the debug label of the material.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Params retrieves the shader-visible properties.
	//
	// Returns:
	//   - Params: the current params
	Params() Params

	// SetParams replaces the shader-visible properties. They are uploaded on the next Update,
	// so call it through a mutable handle.
	//
	// Parameters:
	//   - p: the new params
	SetParams(p Params)

	// Albedo retrieves the handle of the albedo texture. The material holds its own
	// reference for as long as it lives.
	//
	// Returns:
	//   - resource.Handle[Texture]: the albedo texture
	Albedo() resource.Handle[Texture]

	// Descriptor retrieves the descriptor bound when drawing with this material.
	//
	// Returns:
	//   - device.Descriptor: the material descriptor
	Descriptor() device.Descriptor

	// Refresh rebuilds the descriptor when the albedo texture has been re-uploaded to a new
	// image since the descriptor was created. The previous descriptor is retired through d.
	//
	// Parameters:
	//   - b: the backend to create the descriptor on
	//   - d: the destroyer receiving the stale descriptor
	//
	// Returns:
	//   - error: an error if the descriptor could not be created
	Refresh(b device.Backend, d device.Destroyer) error
}

var _ Material = &materialImpl{}

// NewMaterial creates a material bound to albedo and uploads its params immediately.
//
// Parameters:
//   - b: the backend to create the GPU objects on
//   - albedo: the albedo texture; the material clones the handle
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
//   - error: an error if a GPU object could not be created
func NewMaterial(b device.Backend, albedo resource.Handle[Texture], options ...MaterialBuilderOption) (Material, error) {
	m := &materialImpl{
		mu:     &sync.Mutex{},
		label:  "material",
		params: DefaultParams(),
	}
	for _, opt := range options {
		opt(m)
	}
	m.albedo = albedo.Clone()
	if err := m.upload(b, nil); err != nil {
		m.albedo.Release()
		return nil, err
	}
	return m, nil
}

func (m *materialImpl) Label() string {
	return m.label
}

func (m *materialImpl) Params() Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

func (m *materialImpl) SetParams(p Params) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = p
}

func (m *materialImpl) Albedo() resource.Handle[Texture] {
	return m.albedo
}

func (m *materialImpl) Descriptor() device.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.descriptor
}

func (m *materialImpl) Refresh(b device.Backend, d device.Destroyer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.albedo.Get().Image() == m.bound {
		return nil
	}
	return m.bind(b, d, m.buffer)
}

func (m *materialImpl) Update(b device.Backend, d device.Destroyer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upload(b, d)
}

func (m *materialImpl) Destroy(d device.Destroyer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.descriptor != nil {
		d.DestroyDescriptor(m.descriptor)
		m.descriptor = nil
	}
	if m.buffer != nil {
		d.DestroyBuffer(m.buffer)
		m.buffer = nil
	}
	m.albedo.Release()
}

// upload writes the params into a fresh uniform buffer and rebinds. m.mu must be held.
func (m *materialImpl) upload(b device.Backend, d device.Destroyer) error {
	buf, err := b.CreateBuffer(device.BufferSpec{
		Label: m.label + " params",
		Size:  GPUMaterialSize,
		Usage: device.BufferUniform,
	})
	if err != nil {
		return fmt.Errorf("material %s: create params buffer: %w", m.label, err)
	}
	if err := b.WriteBuffer(buf, 0, m.params.Marshal()); err != nil {
		b.DestroyBuffer(buf)
		return fmt.Errorf("material %s: write params: %w", m.label, err)
	}
	old := m.buffer
	if err := m.bind(b, d, buf); err != nil {
		b.DestroyBuffer(buf)
		return err
	}
	m.buffer = buf
	if old != nil && d != nil {
		d.DestroyBuffer(old)
	}
	return nil
}

// bind creates the descriptor for buf and the current albedo image, retiring the previous
// descriptor. m.mu must be held.
func (m *materialImpl) bind(b device.Backend, d device.Destroyer, buf device.Buffer) error {
	img := m.albedo.Get().Image()
	desc, err := b.CreateDescriptor(device.DescriptorSpec{
		Label:  m.label,
		Layout: device.LayoutMaterial,
		Buffer: buf,
		Images: []device.Image{img},
	})
	if err != nil {
		return fmt.Errorf("material %s: create descriptor: %w", m.label, err)
	}
	if m.descriptor != nil && d != nil {
		d.DestroyDescriptor(m.descriptor)
	}
	m.descriptor = desc
	m.bound = img
	return nil
}
