package mesh

import (
	_ "embed"
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct read by every
// engine pipeline. Matches the Vertex.Marshal layout exactly.
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// Vertex is the CPU-side representation of one engine vertex.
// Marshal produces the device.VertexSize byte layout every engine pipeline reads.
type Vertex struct {
	Position mgl32.Vec3 // offset  0: model space position (12 bytes)
	Normal   mgl32.Vec3 // offset 12: unit normal (12 bytes)
	UV       mgl32.Vec2 // offset 24: texture coordinate (8 bytes)
	Color    mgl32.Vec4 // offset 32: linear RGBA tint (16 bytes)
}

// At returns a white vertex at p with no normal or texture coordinate.
func At(p mgl32.Vec3) Vertex {
	return Vertex{Position: p, Color: mgl32.Vec4{1, 1, 1, 1}}
}

// Marshal serializes the vertex for GPU upload.
//
// Returns:
//   - []byte: device.VertexSize bytes, little-endian
func (v Vertex) Marshal() []byte {
	w := common.NewByteWriter(device.VertexSize)
	v.put(w, 0)
	return w.Bytes()
}

func (v Vertex) put(w *common.ByteWriter, offset int) {
	w.Vec3(offset, v.Position)
	w.Vec3(offset+12, v.Normal)
	w.Vec2(offset+24, v.UV)
	w.Vec4(offset+32, v.Color)
}

// MarshalVertices serializes vertices back to back.
//
// Parameters:
//   - vertices: the vertices to serialize
//
// Returns:
//   - []byte: len(vertices) * device.VertexSize bytes
func MarshalVertices(vertices []Vertex) []byte {
	w := common.NewByteWriter(len(vertices) * device.VertexSize)
	for i, v := range vertices {
		v.put(w, i*device.VertexSize)
	}
	return w.Bytes()
}

// MarshalIndices serializes uint32 indices in little-endian order.
func MarshalIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, index := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], index)
	}
	return buf
}

// Geometry is a CPU-side vertex and index list.
type Geometry struct {
	Vertices []Vertex
	Indices  []uint32
}

// Append adds other to g, offsetting its indices past g's vertices.
func (g *Geometry) Append(other Geometry) {
	base := uint32(len(g.Vertices))
	g.Vertices = append(g.Vertices, other.Vertices...)
	for _, index := range other.Indices {
		g.Indices = append(g.Indices, base+index)
	}
}

// Reset empties g and keeps its capacity.
func (g *Geometry) Reset() {
	g.Vertices = g.Vertices[:0]
	g.Indices = g.Indices[:0]
}

// CalculateNormals sets every vertex normal to the normalized sum of the face normals of the
// triangles that use it. Geometry whose index count is not a multiple of three is left alone.
func (g *Geometry) CalculateNormals() {
	if len(g.Indices)%3 != 0 {
		return
	}
	for i := range g.Vertices {
		g.Vertices[i].Normal = mgl32.Vec3{}
	}
	for t := 0; t < len(g.Indices); t += 3 {
		a, b, c := g.Indices[t], g.Indices[t+1], g.Indices[t+2]
		pa, pb, pc := g.Vertices[a].Position, g.Vertices[b].Position, g.Vertices[c].Position
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		g.Vertices[a].Normal = g.Vertices[a].Normal.Add(n)
		g.Vertices[b].Normal = g.Vertices[b].Normal.Add(n)
		g.Vertices[c].Normal = g.Vertices[c].Normal.Add(n)
	}
	for i := range g.Vertices {
		if g.Vertices[i].Normal.Len() > 0 {
			g.Vertices[i].Normal = g.Vertices[i].Normal.Normalize()
		}
	}
}
