// Package mesh holds indexed triangle and line geometry and its GPU vertex and index buffers.
package mesh

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
)

// minCapacity is the smallest vertex and index capacity allocated for a mesh, so empty
// streaming meshes still own valid buffers.
const minCapacity = 64

// Mesh defines the interface for GPU-resident geometry.
// A Mesh keeps its CPU geometry so it can be re-uploaded after SetGeometry; the upload happens
// in Update, which the resource store runs before the next frame that draws the mesh.
type Mesh interface {
	resource.Resource

	// Label retrieves the debug label of the mesh.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Geometry retrieves the CPU-side geometry last set on the mesh.
	//
	// Returns:
	//   - Geometry: the vertices and indices
	Geometry() Geometry

	// SetGeometry replaces the CPU-side geometry. The GPU buffers are not touched until Update.
	//
	// Parameters:
	//   - g: the new geometry; the mesh takes ownership of its slices
	SetGeometry(g Geometry)

	// VertexBuffer retrieves the GPU vertex buffer.
	//
	// Returns:
	//   - device.Buffer: the vertex buffer
	VertexBuffer() device.Buffer

	// IndexBuffer retrieves the GPU index buffer of uint32 indices.
	//
	// Returns:
	//   - device.Buffer: the index buffer
	IndexBuffer() device.Buffer

	// IndexCount returns the number of indices uploaded by the last Update.
	//
	// Returns:
	//   - uint32: the index count
	IndexCount() uint32
}

type meshImpl struct {
	mu        *sync.Mutex
	label     string
	streaming bool

	geometry   Geometry
	vertices   device.Buffer
	indices    device.Buffer
	indexCount uint32
}

var _ Mesh = &meshImpl{}

// New creates a mesh and uploads g immediately.
//
// Parameters:
//   - b: the backend to create the buffers on
//   - g: the initial geometry; the mesh takes ownership of its slices
//   - options: variadic list of MeshBuilderOption functions to configure the mesh
//
// Returns:
//   - Mesh: the uploaded mesh
//   - error: an error if a buffer could not be created or written
func New(b device.Backend, g Geometry, options ...MeshBuilderOption) (Mesh, error) {
	m := &meshImpl{
		mu:       &sync.Mutex{},
		label:    "mesh",
		geometry: g,
	}
	for _, option := range options {
		option(m)
	}
	if err := m.upload(b, nil); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *meshImpl) Label() string {
	return m.label
}

func (m *meshImpl) Geometry() Geometry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geometry
}

func (m *meshImpl) SetGeometry(g Geometry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geometry = g
}

func (m *meshImpl) VertexBuffer() device.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vertices
}

func (m *meshImpl) IndexBuffer() device.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indices
}

func (m *meshImpl) IndexCount() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexCount
}

func (m *meshImpl) Update(b device.Backend, d device.Destroyer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upload(b, d)
}

func (m *meshImpl) Destroy(d device.Destroyer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vertices != nil {
		d.DestroyBuffer(m.vertices)
		m.vertices = nil
	}
	if m.indices != nil {
		d.DestroyBuffer(m.indices)
		m.indices = nil
	}
	m.indexCount = 0
}

// upload writes the geometry to the GPU. m.mu must be held.
// A static mesh always gets fresh buffers and retires the old ones through d. A streaming mesh
// writes in place while its buffers are large enough, and grows to the next power of two
// otherwise.
func (m *meshImpl) upload(b device.Backend, d device.Destroyer) error {
	vertexData := MarshalVertices(m.geometry.Vertices)
	indexData := MarshalIndices(m.geometry.Indices)

	reuse := m.streaming && m.vertices != nil && m.indices != nil &&
		uint64(len(vertexData)) <= m.vertices.Size() &&
		uint64(len(indexData)) <= m.indices.Size()

	if !reuse {
		vertexCap, indexCap := len(m.geometry.Vertices), len(m.geometry.Indices)
		if m.streaming {
			vertexCap, indexCap = grow(vertexCap), grow(indexCap)
		}
		vertices, err := b.CreateBuffer(device.BufferSpec{
			Label: m.label + " vertices",
			Size:  uint64(max(vertexCap, 1) * device.VertexSize),
			Usage: device.BufferVertex,
		})
		if err != nil {
			return fmt.Errorf("mesh %s: create vertex buffer: %w", m.label, err)
		}
		indices, err := b.CreateBuffer(device.BufferSpec{
			Label: m.label + " indices",
			Size:  uint64(max(indexCap, 1) * 4),
			Usage: device.BufferIndex,
		})
		if err != nil {
			b.DestroyBuffer(vertices)
			return fmt.Errorf("mesh %s: create index buffer: %w", m.label, err)
		}
		if m.vertices != nil && d != nil {
			d.DestroyBuffer(m.vertices)
		}
		if m.indices != nil && d != nil {
			d.DestroyBuffer(m.indices)
		}
		m.vertices, m.indices = vertices, indices
	}

	if len(vertexData) > 0 {
		if err := b.WriteBuffer(m.vertices, 0, vertexData); err != nil {
			return fmt.Errorf("mesh %s: write vertices: %w", m.label, err)
		}
	}
	if len(indexData) > 0 {
		if err := b.WriteBuffer(m.indices, 0, indexData); err != nil {
			return fmt.Errorf("mesh %s: write indices: %w", m.label, err)
		}
	}
	m.indexCount = uint32(len(m.geometry.Indices))
	return nil
}

func grow(n int) int {
	c := minCapacity
	for c < n {
		c *= 2
	}
	return c
}

// Clone returns a deep copy of g.
func (g Geometry) Clone() Geometry {
	return Geometry{Vertices: slices.Clone(g.Vertices), Indices: slices.Clone(g.Indices)}
}
