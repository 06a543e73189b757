// Package engine ties a window, a renderer and a camera into a run loop: a fixed-rate tick
// goroutine for game logic, a render goroutine that records and presents one frame per
// iteration, and an optional config file watch that hot-reloads renderer settings.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/camera"
	"github.com/Carmen-Shannon/oxy-forward/engine/config"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
	"github.com/Carmen-Shannon/oxy-forward/engine/profiler"
	"github.com/Carmen-Shannon/oxy-forward/engine/renderer"
	"github.com/Carmen-Shannon/oxy-forward/engine/target"
	"github.com/Carmen-Shannon/oxy-forward/engine/window"
	"golang.org/x/sync/errgroup"
)

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	cfg        config.Config
	configPath string

	window   window.Window
	renderer renderer.Renderer
	camera   camera.Camera
	profiler *profiler.Profiler

	profilingEnabled bool
	tickRate         time.Duration
	frameLimit       time.Duration
	tickCallback     func(deltaTime float32)
	drawCallback     func(t target.Target, deltaTime float32)

	// pending holds a reloaded config and pendingSize a resize, both applied before the next frame.
	pending     *config.Config
	pendingSize [2]uint32
	frames      uint64
	cancel      context.CancelFunc
	quit        bool
}

// Engine drives the frame loop.
//
// Callbacks run on the engine's goroutines: the tick callback on the tick goroutine and
// the draw callback on the render goroutine, never concurrently with another draw.
type Engine interface {
	// Window returns the window, or nil when the engine renders without one.
	Window() window.Window

	// Renderer returns the renderer.
	Renderer() renderer.Renderer

	// Camera returns the camera every frame is rendered with.
	Camera() camera.Camera

	// Frames returns the number of frames presented so far.
	Frames() uint64

	// EnableProfiler turns on the periodic profiler log record.
	EnableProfiler()

	// DisableProfiler turns off the profiler log record.
	DisableProfiler()

	// SetTickRate sets how often the tick callback runs.
	//
	// Parameters:
	//   - hz: ticks per second, 60 when not positive
	SetTickRate(hz float64)

	// SetTickCallback registers the game logic callback.
	//
	// Parameters:
	//   - callback: function receiving the seconds since the previous tick
	SetTickCallback(callback func(deltaTime float32))

	// SetDrawCallback registers the function that records orders for each frame.
	//
	// Parameters:
	//   - callback: function receiving the frame's target and the seconds since the previous frame
	SetDrawCallback(callback func(t target.Target, deltaTime float32))

	// SetRenderFrameLimit caps the render loop.
	//
	// Parameters:
	//   - fps: maximum frames per second, 0 for uncapped
	SetRenderFrameLimit(fps float64)

	// Run renders until ctx is done, the window closes, Quit is called or a frame fails.
	// With a window it must be called on the goroutine that created the window. Everything
	// the engine owns is shut down before Run returns.
	//
	// Parameters:
	//   - ctx: cancels the run
	//
	// Returns:
	//   - error: the fatal frame or watch error that stopped the engine, nil on a clean stop
	Run(ctx context.Context) error

	// Quit stops a running engine. Safe to call more than once and from any goroutine.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates an engine. Without WithRenderer it opens a window (unless one is given
// through WithWindow), creates a WebGPU backend on its surface and a renderer from the config.
//
// Parameters:
//   - options: functional options such as WithConfigFile and WithProfiling
//
// Returns:
//   - Engine: the engine, ready to Run
//   - error: an error if the config is invalid or the window, backend or renderer could not be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		mu:       &sync.Mutex{},
		cfg:      config.Default(),
		tickRate: time.Second / 60,
	}
	for _, option := range options {
		option(e)
	}
	if e.configPath != "" {
		cfg, err := config.Load(e.configPath)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.cfg = cfg
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.profiler = profiler.NewProfiler(time.Second)

	if e.renderer == nil {
		if err := e.createRenderer(); err != nil {
			return nil, err
		}
	}
	if e.camera == nil {
		e.camera = camera.NewCamera()
	}
	if e.window != nil {
		w, h := e.window.Size()
		e.camera.SetSize(float32(w), float32(h))
		e.wireInput()
	}
	return e, nil
}

// createRenderer opens the window if needed and builds the WebGPU backend and renderer on it.
func (e *engine) createRenderer() error {
	if e.window == nil {
		w, err := window.NewWindow(window.WithTitle("oxy"))
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		e.window = w
	}
	w, h := e.window.Size()
	b, err := device.NewWGPUBackend(e.window.SurfaceDescriptor(), w, h,
		device.WithVSync(e.cfg.PresentMode == config.PresentVSync),
		device.WithSamples(e.cfg.MSAA),
		device.WithAnisotropy(e.cfg.Anisotropy),
	)
	if err != nil {
		_ = e.window.Close()
		return fmt.Errorf("engine: %w", err)
	}
	if e.renderer, err = renderer.NewRenderer(b, renderer.WithConfig(e.cfg)); err != nil {
		b.Destroy()
		_ = e.window.Close()
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// wireInput forwards resizes to the next frame and input to the camera controller.
func (e *engine) wireInput() {
	e.window.SetResizeCallback(func(width, height uint32) {
		e.mu.Lock()
		e.pendingSize = [2]uint32{width, height}
		e.mu.Unlock()
	})
	e.window.SetKeyCallback(func(key int) {
		if ctrl := e.camera.Controller(); ctrl != nil {
			ctrl.HandleKey(key)
		}
	})
	e.window.SetScrollCallback(func(delta float32) {
		if ctrl := e.camera.Controller(); ctrl != nil {
			ctrl.Zoom(delta)
		}
	})
	e.window.SetDragCallback(func(dx, dy float32) {
		if ctrl := e.camera.Controller(); ctrl != nil {
			ctrl.Drag(dx, dy)
		}
	})
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

func (e *engine) SetTickRate(hz float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickRate = rate(hz, 60)
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetDrawCallback(callback func(t target.Target, deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drawCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frameLimit = rate(fps, 0)
}

func (e *engine) Quit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.quit = true
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.mu.Lock()
	e.cancel = cancel
	quit := e.quit
	e.mu.Unlock()
	if quit {
		cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.tickLoop(gctx) })
	g.Go(func() error { return e.renderLoop(gctx) })
	if e.configPath != "" {
		g.Go(func() error { return config.Watch(gctx, e.configPath, e.reload) })
	}

	if e.window != nil {
		e.pumpWindow(gctx)
		cancel()
	}
	err := g.Wait()
	if err != nil {
		logger.Logger().Error("engine stopped", "err", err, "frames", e.Frames())
	}

	shutdownErr := e.renderer.Shutdown()
	if shutdownErr != nil {
		logger.Logger().Error("renderer shutdown", "err", shutdownErr)
	}
	if e.window != nil {
		if closeErr := e.window.Close(); closeErr != nil {
			shutdownErr = errors.Join(shutdownErr, closeErr)
		}
	}
	if err != nil {
		return err
	}
	return shutdownErr
}

// pumpWindow polls window events on the calling goroutine until the window closes or ctx is done.
func (e *engine) pumpWindow(ctx context.Context) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for e.window.PollEvents() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
	logger.Logger().Info("window closed")
}

// tickLoop runs the tick callback at the tick rate, picking up rate changes on the next tick.
func (e *engine) tickLoop(ctx context.Context) error {
	e.mu.Lock()
	current := e.tickRate
	e.mu.Unlock()
	ticker := time.NewTicker(current)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			e.mu.Lock()
			callback, tickRate := e.tickCallback, e.tickRate
			e.mu.Unlock()
			if tickRate != current {
				current = tickRate
				ticker.Reset(current)
			}
			if callback != nil {
				callback(float32(now.Sub(last).Seconds()))
			}
			last = now
		}
	}
}

// renderLoop records, renders and presents frames until ctx is done or a frame fails.
// A panic inside a frame is returned as an error so the engine still shuts down.
func (e *engine) renderLoop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: render panic: %v", r)
		}
	}()

	t := e.renderer.NewTarget()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		start := time.Now()
		dt := float32(start.Sub(last).Seconds())
		last = start

		e.mu.Lock()
		pending, size := e.pending, e.pendingSize
		e.pending, e.pendingSize = nil, [2]uint32{}
		draw, profiling, limit := e.drawCallback, e.profilingEnabled, e.frameLimit
		e.mu.Unlock()

		if pending != nil {
			e.renderer.Apply(*pending)
		}
		if size[0] != 0 && size[1] != 0 {
			if err := e.renderer.Resize(size[0], size[1]); err != nil {
				return fmt.Errorf("engine: %w", err)
			}
			e.camera.SetSize(float32(size[0]), float32(size[1]))
		}

		if draw != nil {
			draw(t, dt)
		}
		stats, err := e.renderer.Render(e.camera, t)
		if err != nil {
			return fmt.Errorf("engine: frame %d: %w", e.Frames(), err)
		}

		e.mu.Lock()
		e.frames++
		e.mu.Unlock()
		if profiling {
			e.profiler.Tick(stats)
		}

		if limit > 0 {
			if remaining := limit - time.Since(start); remaining > 0 {
				timer := time.NewTimer(remaining)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil
				case <-timer.C:
				}
			}
		}
	}
}

// reload queues a reloaded config for the next frame.
func (e *engine) reload(cfg config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = &cfg
}

// rate converts a frequency into a period, using fallback when hz is not positive.
// A zero fallback yields a zero period.
func rate(hz, fallback float64) time.Duration {
	if hz <= 0 {
		hz = fallback
	}
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}
