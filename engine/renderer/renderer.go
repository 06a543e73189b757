// Package renderer turns targets into frames. It owns the frame manager, the resource stores,
// the builtin resources and the forward pass, and drives one frame per Render call: sweep and
// sync resources, record the shadow and main passes, submit and present.
package renderer

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/config"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
	"github.com/Carmen-Shannon/oxy-forward/engine/target"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	cfg       config.Config
	backend   device.Backend
	manager   device.Manager
	resources *Resources
	forward   *Forward
}

// Renderer is the single entry point from recorded orders to pixels.
//
// Render and RenderCanvas are one transaction each: the first error aborts the frame, nothing
// is submitted and the frame slot stays recording. Such an error is fatal; the only valid
// call after it is Shutdown.
type Renderer interface {
	// Backend returns the GPU backend, for creating resources through Resources.
	Backend() device.Backend

	// Manager returns the frame manager. Its Destroy methods retire GPU objects safely.
	//
	// Returns:
	//   - device.Manager: the frame manager
	Manager() device.Manager

	// Resources returns the resource stores and builtins.
	//
	// Returns:
	//   - *Resources: the stores every handle given to a target must come from
	Resources() *Resources

	// Forward returns the forward pass.
	//
	// Returns:
	//   - *Forward: the forward pass, including the shadow renderer
	Forward() *Forward

	// Config returns the settings currently in effect.
	Config() config.Config

	// Apply takes the runtime-safe subset of cfg: split coefficient, shadow filter mode,
	// shadow depth, ambient color and clear color of new targets.
	//
	// Parameters:
	//   - cfg: the new settings, already validated
	Apply(cfg config.Config)

	// NewTarget creates a target with the renderer's builtins and the configured clear color.
	//
	// Parameters:
	//   - options: target options applied after the defaults
	//
	// Returns:
	//   - target.Target: the new target
	NewTarget(options ...target.TargetBuilderOption) target.Target

	// NewCanvas creates an offscreen target of the given size whose result is sampleable
	// through Canvas.Texture. A zero size panics.
	//
	// Parameters:
	//   - label: the debug label
	//   - width: the width in pixels
	//   - height: the height in pixels
	//
	// Returns:
	//   - *Canvas: the canvas
	//   - error: an error if an attachment could not be created
	NewCanvas(label string, width, height uint32) (*Canvas, error)

	// Render draws t as seen by cam into the next presentable image, presents it and resets t.
	//
	// Parameters:
	//   - cam: the camera
	//   - t: the target holding the orders
	//
	// Returns:
	//   - device.Stats: the statistics of the frame, shadow passes included
	//   - error: a fatal error
	Render(cam camera.Camera, t target.Target) (device.Stats, error)

	// RenderCanvas draws t as seen by cam into c, copies the result into c's texture and
	// resets t. Nothing is presented.
	//
	// Parameters:
	//   - cam: the camera
	//   - t: the target holding the orders
	//   - c: the canvas to render into
	//
	// Returns:
	//   - device.Stats: the statistics of the frame
	//   - error: a fatal error
	RenderCanvas(cam camera.Camera, t target.Target, c *Canvas) (device.Stats, error)

	// Resize reconfigures the presentation surface. A zero dimension panics.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: an error if the surface could not be reconfigured
	Resize(width, height uint32) error

	// Shutdown retires every GPU object owned by the renderer, waits for all frames in flight
	// and destroys the backend.
	Shutdown() error
}

var _ Renderer = &renderer{}

// NewRenderer creates the frame manager, the builtin resources and the forward pass on b.
// The renderer takes ownership of b.
//
// Parameters:
//   - b: the GPU backend
//   - options: functional options such as WithConfig
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the configuration is invalid or a GPU object could not be created
func NewRenderer(b device.Backend, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:      &sync.Mutex{},
		cfg:     config.Default(),
		backend: b,
	}
	for _, option := range options {
		option(r)
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	var err error
	r.manager, err = device.NewManager(b,
		device.WithFramesInFlight(r.cfg.FramesInFlight),
		device.WithFenceTimeout(time.Duration(r.cfg.FenceTimeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	if r.resources, err = newResources(b); err != nil {
		_ = r.manager.Shutdown()
		return nil, err
	}
	if r.forward, err = newForward(b, r.resources, r.cfg.FramesInFlight, r.cfg); err != nil {
		r.resources.discard(b)
		_ = r.manager.Shutdown()
		return nil, err
	}

	logger.Logger().Info("renderer ready",
		"frames_in_flight", r.cfg.FramesInFlight,
		"shadow_map_size", r.cfg.ShadowMapSize,
		"samples", b.Samples(),
	)
	return r, nil
}

func (r *renderer) Backend() device.Backend {
	return r.backend
}

func (r *renderer) Manager() device.Manager {
	return r.manager
}

func (r *renderer) Resources() *Resources {
	return r.resources
}

func (r *renderer) Forward() *Forward {
	return r.forward
}

func (r *renderer) Config() config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

func (r *renderer) Apply(cfg config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.ShadowSplitCoef = cfg.ShadowSplitCoef
	r.cfg.ShadowPCF = cfg.ShadowPCF
	r.cfg.ShadowDepth = cfg.ShadowDepth
	r.cfg.AmbientColor = cfg.AmbientColor
	r.cfg.ClearColor = cfg.ClearColor
	r.forward.Apply(r.cfg)
	logger.Logger().Debug("renderer settings applied", "split_coef", r.cfg.ShadowSplitCoef, "pcf", r.cfg.ShadowPCF, "shadow_depth", r.cfg.ShadowDepth)
}

func (r *renderer) NewTarget(options ...target.TargetBuilderOption) target.Target {
	r.mu.Lock()
	clearColor := r.cfg.ClearColor
	r.mu.Unlock()
	return target.New(r.resources.Builtins(), append([]target.TargetBuilderOption{target.WithClearColor(clearColor)}, options...)...)
}

func (r *renderer) NewCanvas(label string, width, height uint32) (*Canvas, error) {
	return newCanvas(r.backend, r.resources.Textures, label, width, height, r.backend.Samples())
}

func (r *renderer) Render(cam camera.Camera, t target.Target) (device.Stats, error) {
	return r.render(cam, t, nil)
}

func (r *renderer) RenderCanvas(cam camera.Camera, t target.Target, c *Canvas) (device.Stats, error) {
	return r.render(cam, t, c)
}

// render runs one frame into the surface, or into c when it is not nil.
func (r *renderer) render(cam camera.Camera, t target.Target, c *Canvas) (device.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer t.Reset()

	f, err := r.manager.BeginFrame()
	if err != nil {
		return device.Stats{}, err
	}
	if retired := r.resources.sweep(r.manager); retired > 0 {
		logger.Logger().Debug("resources retired", "frame", f.Number, "count", retired)
	}
	if err := r.resources.sync(r.backend, r.manager, t.ShaderGroups()); err != nil {
		return device.Stats{}, err
	}

	var (
		rt   device.RenderTarget
		blit device.Image
		ct   *canvasTexture
	)
	if c != nil {
		ct = c.target()
		rt, blit = ct.renderTarget(t.ClearColor())
	} else {
		surface, err := r.manager.AcquireImage(f)
		if err != nil {
			return device.Stats{}, err
		}
		if rt, err = r.forward.surfaceTarget(f.Index, surface, t.ClearColor(), r.manager); err != nil {
			return device.Stats{}, err
		}
	}

	if err := r.forward.Record(f, rt, cam, t, r.manager); err != nil {
		return device.Stats{}, err
	}
	if ct != nil {
		f.Commands.BlitImage(blit, ct.Image())
	}

	if err := r.manager.SubmitFrame(f); err != nil {
		return device.Stats{}, err
	}
	if err := r.manager.Present(f); err != nil {
		return device.Stats{}, err
	}
	return f.Commands.Stats(), nil
}

func (r *renderer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		panic(fmt.Sprintf("renderer: resize to %dx%d", width, height))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.backend.Resize(width, height); err != nil {
		return fmt.Errorf("renderer: resize to %dx%d: %w", width, height, err)
	}
	return nil
}

func (r *renderer) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forward.Destroy(r.manager)
	r.resources.release()
	r.resources.sweep(r.manager)
	return r.manager.Shutdown()
}
