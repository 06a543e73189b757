// Package shadow renders parallel-split shadow maps for the main directional light.
//
// Each frame slot owns its own set of cascade depth maps so the maps sampled by a frame still
// in flight are never overwritten. Cascades are fitted to bounding spheres and their
// projections are snapped to whole texels, which keeps shadow edges still while the camera
// moves.
package shadow

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
	"github.com/Carmen-Shannon/oxy-forward/engine/shader"
	"github.com/Carmen-Shannon/oxy-forward/engine/target"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMapSize is the default cascade resolution in texels.
const DefaultMapSize uint32 = 2048

// DefaultSplitCoef blends logarithmic and uniform split spacing equally.
const DefaultSplitCoef float32 = 0.5

// mapSet is the cascade maps of one frame slot. Each cascade has its own view buffer so
// the four passes of one frame never overwrite each other's uniform.
type mapSet struct {
	maps        [device.CascadeCount]device.Image
	buffers     [device.CascadeCount]device.Buffer
	descriptors [device.CascadeCount]device.Descriptor
}

type rendererImpl struct {
	mu        *sync.Mutex
	mapSize   uint32
	splitCoef float32

	backend device.Backend
	shader  shader.Shader
	sets    []mapSet
	passes  int
}

// Renderer records the depth passes of the shadow cascades.
type Renderer interface {
	// MapSize returns the resolution of every cascade map.
	MapSize() uint32

	// SplitCoef returns the current split coefficient.
	SplitCoef() float32

	// SetSplitCoef changes the split coefficient used from the next Render. It is clamped to [0, 1].
	SetSplitCoef(coef float32)

	// Maps returns the cascade depth maps of frame slot i, in cascade order.
	//
	// Parameters:
	//   - i: the frame slot
	//
	// Returns:
	//   - [device.CascadeCount]device.Image: the maps to bind for sampling
	Maps(i int) [device.CascadeCount]device.Image

	// Render fits the cascades to v and records one depth pass per cascade into f, drawing
	// every shadow-casting order of groups with the shadow shader. A volume whose depth does
	// not exceed its near plane records nothing and returns Empty.
	//
	// Parameters:
	//   - f: the frame being recorded
	//   - v: the camera volume clipped to the shadow depth
	//   - direction: the main light direction
	//   - groups: the grouped mesh orders of the target
	//
	// Returns:
	//   - Cascades: the fitted cascades for the world uniform block
	//   - error: an error if a cascade view could not be uploaded
	Render(f *device.Frame, v View, direction mgl32.Vec3, groups []target.ShaderGroup) (Cascades, error)

	// Passes returns how many times Render has run.
	Passes() int

	// Destroy retires every map, buffer, descriptor and the shadow pipeline through d.
	Destroy(d device.Destroyer)
}

var _ Renderer = &rendererImpl{}

// New creates framesInFlight cascade map sets and the shadow pipeline. A map size that is
// not a power of two panics.
//
// Parameters:
//   - b: the backend the maps are created on
//   - framesInFlight: the number of frame slots
//   - options: functional options such as WithMapSize
//
// Returns:
//   - Renderer: the shadow renderer
//   - error: an error if a GPU object could not be created
func New(b device.Backend, framesInFlight int, options ...RendererBuilderOption) (Renderer, error) {
	r := &rendererImpl{
		mu:        &sync.Mutex{},
		mapSize:   DefaultMapSize,
		splitCoef: DefaultSplitCoef,
		backend:   b,
	}
	for _, option := range options {
		option(r)
	}
	if !common.IsPowerOfTwo(r.mapSize) {
		panic(fmt.Sprintf("shadow: map size %d is not a power of two", r.mapSize))
	}

	s, err := shader.NewBuiltin(b, shader.BuiltinShadow)
	if err != nil {
		return nil, fmt.Errorf("shadow: %w", err)
	}
	r.shader = s
	r.sets = make([]mapSet, framesInFlight)
	for i := range r.sets {
		if err := r.createSet(i); err != nil {
			r.destroyNow()
			return nil, err
		}
	}
	logger.Logger().Debug("shadow maps created", "map_size", r.mapSize, "sets", framesInFlight)
	return r, nil
}

func (r *rendererImpl) createSet(slot int) error {
	set := &r.sets[slot]
	for c := range device.CascadeCount {
		label := fmt.Sprintf("shadow %d/%d", slot, c)
		img, err := r.backend.CreateImage(device.ImageSpec{
			Label:  label,
			Width:  r.mapSize,
			Height: r.mapSize,
			Format: device.FormatShadowDepth,
			Usage:  device.ImageRenderTarget | device.ImageSampled,
		})
		if err != nil {
			return fmt.Errorf("shadow: create map %s: %w", label, err)
		}
		set.maps[c] = img

		buf, err := r.backend.CreateBuffer(device.BufferSpec{
			Label: label + " view",
			Size:  shader.ShadowViewSize,
			Usage: device.BufferUniform,
		})
		if err != nil {
			return fmt.Errorf("shadow: create view buffer %s: %w", label, err)
		}
		set.buffers[c] = buf

		desc, err := r.backend.CreateDescriptor(device.DescriptorSpec{
			Label:  label,
			Layout: device.LayoutShadow,
			Buffer: buf,
		})
		if err != nil {
			return fmt.Errorf("shadow: create descriptor %s: %w", label, err)
		}
		set.descriptors[c] = desc
	}
	return nil
}

func (r *rendererImpl) MapSize() uint32 {
	return r.mapSize
}

func (r *rendererImpl) SplitCoef() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.splitCoef
}

func (r *rendererImpl) SetSplitCoef(coef float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.splitCoef = min(max(coef, 0), 1)
}

func (r *rendererImpl) Maps(i int) [device.CascadeCount]device.Image {
	return r.sets[i].maps
}

func (r *rendererImpl) Passes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passes
}

func (r *rendererImpl) Render(f *device.Frame, v View, direction mgl32.Vec3, groups []target.ShaderGroup) (Cascades, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.Depth <= v.Near {
		return Empty(), nil
	}
	r.passes++

	cascades := Fit(v, direction, r.splitCoef, r.mapSize)
	set := &r.sets[f.Index]
	cmd := f.Commands
	pipeline := r.shader.Pipeline()

	for c := range device.CascadeCount {
		if !common.IsFinite(cascades.WorldToShadow[c]) {
			return Cascades{}, fmt.Errorf("shadow: cascade %d matrix is not finite", c)
		}
		if err := r.backend.WriteBuffer(set.buffers[c], 0, shader.MarshalShadowView(cascades.WorldToShadow[c])); err != nil {
			return Cascades{}, fmt.Errorf("shadow: upload cascade %d view: %w", c, err)
		}

		cmd.BeginRenderPass(device.RenderTarget{Depth: set.maps[c]})
		cmd.BindShader(pipeline)
		cmd.BindDescriptor(0, set.descriptors[c])
		for _, sg := range groups {
			for _, mg := range sg.Materials {
				for _, o := range mg.Orders {
					if !o.CastShadows {
						continue
					}
					m := o.Mesh.Get()
					cmd.PushConstants(shader.Draw{
						LocalToWorld: o.LocalToWorld,
						Tint:         o.Tint,
						SamplerIndex: o.SamplerIndex,
					}.Marshal())
					cmd.DrawMesh(m.VertexBuffer(), m.IndexBuffer(), m.IndexCount())
				}
			}
		}
		cmd.EndRenderPass()
	}
	return cascades, nil
}

func (r *rendererImpl) Destroy(d device.Destroyer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sets {
		set := &r.sets[i]
		for c := range device.CascadeCount {
			if set.descriptors[c] != nil {
				d.DestroyDescriptor(set.descriptors[c])
			}
			if set.buffers[c] != nil {
				d.DestroyBuffer(set.buffers[c])
			}
			if set.maps[c] != nil {
				d.DestroyImage(set.maps[c])
			}
		}
		*set = mapSet{}
	}
	if r.shader != nil {
		r.shader.Destroy(d)
	}
}

// destroyNow releases a partially built renderer. Nothing has been submitted yet, so the
// backend destroys the objects directly.
func (r *rendererImpl) destroyNow() {
	r.Destroy(r.backend)
}
