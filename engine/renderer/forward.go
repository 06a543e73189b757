package renderer

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/batch"
	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/config"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
	"github.com/Carmen-Shannon/oxy-forward/engine/shader"
	"github.com/Carmen-Shannon/oxy-forward/engine/shadow"
	"github.com/Carmen-Shannon/oxy-forward/engine/target"
	"github.com/go-gl/mathgl/mgl32"
)

// forwardSlot is the per-frame-slot state of the forward pass.
type forwardSlot struct {
	world      device.Buffer
	descriptor device.Descriptor
	cascades   shadow.Cascades
	// color is the multisampled surface attachment, nil when rendering with one sample.
	color device.Image
	depth device.Image
}

// Forward records the shadow and main passes of one target into a frame.
type Forward struct {
	mu        *sync.Mutex
	backend   device.Backend
	resources *Resources
	shadows   shadow.Renderer
	batches   batch.Builder
	samples   uint32
	start     time.Time

	shadowDepth float32
	pcf         config.ShadowPCF
	ambient     common.Color

	slots []forwardSlot
}

func newForward(b device.Backend, res *Resources, framesInFlight int, cfg config.Config) (*Forward, error) {
	fw := &Forward{
		mu:          &sync.Mutex{},
		backend:     b,
		resources:   res,
		samples:     b.Samples(),
		start:       time.Now(),
		shadowDepth: cfg.ShadowDepth,
		pcf:         cfg.ShadowPCF,
		ambient:     cfg.AmbientColor,
		slots:       make([]forwardSlot, framesInFlight),
	}

	var err error
	fw.shadows, err = shadow.New(b, framesInFlight, shadow.WithMapSize(cfg.ShadowMapSize), shadow.WithSplitCoef(cfg.ShadowSplitCoef))
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	fw.batches, err = batch.New(b, framesInFlight, batch.WithWorkers(cfg.BatchWorkers))
	if err != nil {
		fw.Destroy(b)
		return nil, fmt.Errorf("renderer: %w", err)
	}

	for i := range fw.slots {
		s := &fw.slots[i]
		s.cascades = shadow.Empty()
		s.world, err = b.CreateBuffer(device.BufferSpec{
			Label: fmt.Sprintf("world %d", i),
			Size:  WorldSize,
			Usage: device.BufferUniform,
		})
		if err != nil {
			fw.Destroy(b)
			return nil, fmt.Errorf("renderer: world buffer %d: %w", i, err)
		}
		maps := fw.shadows.Maps(i)
		s.descriptor, err = b.CreateDescriptor(device.DescriptorSpec{
			Label:  fmt.Sprintf("world %d", i),
			Layout: device.LayoutWorld,
			Buffer: s.world,
			Images: maps[:],
		})
		if err != nil {
			fw.Destroy(b)
			return nil, fmt.Errorf("renderer: world descriptor %d: %w", i, err)
		}
	}
	return fw, nil
}

// Shadows returns the cascade renderer.
func (fw *Forward) Shadows() shadow.Renderer {
	return fw.shadows
}

// Cascades returns the cascades frame slot i last rendered with.
func (fw *Forward) Cascades(i int) shadow.Cascades {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.slots[i].cascades
}

// Apply takes the runtime-safe settings of cfg: split coefficient, filter mode, shadow
// depth and ambient color. The rest only apply to a new renderer.
func (fw *Forward) Apply(cfg config.Config) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.shadows.SetSplitCoef(cfg.ShadowSplitCoef)
	fw.pcf = cfg.ShadowPCF
	fw.shadowDepth = cfg.ShadowDepth
	fw.ambient = cfg.AmbientColor
}

// surfaceTarget returns the attachments of a main pass presenting into surface, recreating
// the slot's depth and multisample images when the surface size changed.
func (fw *Forward) surfaceTarget(slot int, surface device.Image, clear common.Color, d device.Destroyer) (device.RenderTarget, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	s := &fw.slots[slot]
	w, h := surface.Width(), surface.Height()
	if s.depth == nil || s.depth.Width() != w || s.depth.Height() != h {
		if s.depth != nil {
			d.DestroyImage(s.depth)
		}
		if s.color != nil {
			d.DestroyImage(s.color)
		}
		s.depth, s.color = nil, nil

		var err error
		s.depth, err = fw.backend.CreateImage(device.ImageSpec{
			Label:   fmt.Sprintf("depth %d", slot),
			Width:   w,
			Height:  h,
			Format:  device.FormatDepth,
			Usage:   device.ImageRenderTarget,
			Samples: fw.samples,
		})
		if err != nil {
			return device.RenderTarget{}, fmt.Errorf("renderer: depth attachment: %w", err)
		}
		if fw.samples > 1 {
			s.color, err = fw.backend.CreateImage(device.ImageSpec{
				Label:   fmt.Sprintf("color %d", slot),
				Width:   w,
				Height:  h,
				Format:  device.FormatColor,
				Usage:   device.ImageRenderTarget,
				Samples: fw.samples,
			})
			if err != nil {
				return device.RenderTarget{}, fmt.Errorf("renderer: color attachment: %w", err)
			}
		}
	}

	rt := device.RenderTarget{Color: surface, Depth: s.depth, Clear: clear}
	if s.color != nil {
		rt.Color, rt.Resolve = s.color, surface
	}
	return rt, nil
}

// Record renders t as seen by cam into rt: the shadow cascades when t has casters, a main
// light and a shadow depth past the near plane, then one main pass with the skybox, the grouped mesh orders and the batches.
//
// Parameters:
//   - f: the frame being recorded
//   - rt: the attachments of the main pass
//   - cam: the camera
//   - t: the target holding the orders
//   - d: retires GPU objects replaced while recording
//
// Returns:
//   - error: the first failure; the frame must not be submitted
func (fw *Forward) Record(f *device.Frame, rt device.RenderTarget, cam camera.Camera, t target.Target, d device.Destroyer) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	s := &fw.slots[f.Index]
	groups := t.ShaderGroups()

	s.cascades = shadow.Empty()
	main, ok := light.Main(t.Lights())
	// A shadow range ending at or before the near plane has no slice to cover.
	depth := min(cam.Depth(), fw.shadowDepth)
	if ok && t.HasShadowCasters() && depth > cam.Near() {
		v := shadow.View{
			WorldToView: cam.View(),
			ViewToClip:  cam.ProjectionTo(depth),
			Near:        cam.Near(),
			Depth:       depth,
		}
		cascades, err := fw.shadows.Render(f, v, main.Direction(), groups)
		if err != nil {
			return fmt.Errorf("renderer: %w", err)
		}
		s.cascades = cascades
	}

	sky := SkyboxNone
	var skyMaterial resource.Handle[material.Material]
	if t.Skybox() {
		sky, skyMaterial = SkyboxGradient, fw.resources.builtins.White
		if tex := t.SkyboxTexture(); !tex.IsZero() {
			m, err := fw.resources.skyboxMaterial(fw.backend, tex)
			if err != nil {
				return err
			}
			sky, skyMaterial = SkyboxTexture, m
		}
	}

	world := World{
		WorldToView:    cam.View(),
		ViewToClip:     cam.Projection(),
		Cascades:       s.cascades,
		Lights:         t.Lights(),
		CameraPosition: cam.Position(),
		Time:           float32(time.Since(fw.start).Seconds()),
		AmbientColor:   fw.ambient.Vec3(),
		ShadowPCF:      fw.pcf.Value(),
		ShadowBias:     t.ShadowBias(),
		Skybox:         sky,
	}
	if err := fw.backend.WriteBuffer(s.world, 0, world.Marshal()); err != nil {
		return fmt.Errorf("renderer: upload world: %w", err)
	}

	batches, err := fw.batches.Build(f.Index, t, d)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	batchMaterials := make([]resource.Handle[material.Material], len(batches))
	for i, bt := range batches {
		batchMaterials[i] = fw.resources.builtins.White
		if bt.Kind == batch.KindText {
			if batchMaterials[i], err = fw.resources.fontMaterial(fw.backend, bt.Font); err != nil {
				return err
			}
		}
	}

	cmd := f.Commands
	cmd.BeginRenderPass(rt)
	cmd.BindDescriptor(0, s.descriptor)

	if sky != SkyboxNone {
		fw.drawSkybox(cmd, cam, skyMaterial)
	}

	for _, sg := range groups {
		cmd.BindShader(sg.Shader.Get().Pipeline())
		for _, mg := range sg.Materials {
			cmd.BindMaterial(1, mg.Material.Get().Descriptor())
			for _, o := range mg.Orders {
				m := o.Mesh.Get()
				cmd.PushConstants(shader.Draw{LocalToWorld: o.LocalToWorld, Tint: o.Tint, SamplerIndex: o.SamplerIndex}.Marshal())
				cmd.DrawMesh(m.VertexBuffer(), m.IndexBuffer(), m.IndexCount())
			}
		}
	}

	for i, bt := range batches {
		draw := shader.Draw{LocalToWorld: mgl32.Ident4(), Tint: common.White.Vec4()}
		var sh resource.Handle[shader.Shader]
		switch bt.Kind {
		case batch.KindShape:
			sh = fw.resources.shape
		case batch.KindText:
			sh = fw.resources.text
			draw.SamplerIndex = common.SamplerIndex(common.FilterNearest, common.WrapClampEdge, false)
		case batch.KindLine:
			sh = fw.resources.builtins.Line
		}
		cmd.BindShader(sh.Get().Pipeline())
		cmd.BindMaterial(1, batchMaterials[i].Get().Descriptor())
		cmd.PushConstants(draw.Marshal())
		cmd.DrawMesh(bt.Mesh.VertexBuffer(), bt.Mesh.IndexBuffer(), bt.Mesh.IndexCount())
	}

	cmd.EndRenderPass()
	return nil
}

// drawSkybox draws the builtin cube around the camera, just inside the far plane, with m
// bound as the panorama.
func (fw *Forward) drawSkybox(cmd *device.Commands, cam camera.Camera, m resource.Handle[material.Material]) {
	size := cam.Depth()*2 - 0.1
	cube := fw.resources.builtins.Cube.Get()
	cmd.BindShader(fw.resources.skybox.Get().Pipeline())
	cmd.BindMaterial(1, m.Get().Descriptor())
	cmd.PushConstants(shader.Draw{
		LocalToWorld: mgl32.Translate3D(cam.Position().Elem()).Mul4(mgl32.Scale3D(size, size, size)),
		Tint:         common.White.Vec4(),
		SamplerIndex: common.SamplerIndex(common.FilterLinear, common.WrapRepeat, false),
	}.Marshal())
	cmd.DrawMesh(cube.VertexBuffer(), cube.IndexBuffer(), cube.IndexCount())
}

// Destroy retires every GPU object owned by the forward pass through d.
func (fw *Forward) Destroy(d device.Destroyer) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for i := range fw.slots {
		s := &fw.slots[i]
		if s.descriptor != nil {
			d.DestroyDescriptor(s.descriptor)
		}
		if s.world != nil {
			d.DestroyBuffer(s.world)
		}
		if s.depth != nil {
			d.DestroyImage(s.depth)
		}
		if s.color != nil {
			d.DestroyImage(s.color)
		}
		*s = forwardSlot{}
	}
	if fw.batches != nil {
		fw.batches.Destroy(d)
		fw.batches = nil
	}
	if fw.shadows != nil {
		fw.shadows.Destroy(d)
		fw.shadows = nil
	}
}
