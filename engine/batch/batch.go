// Package batch rebuilds the per-frame meshes that carry every shape, text and line order of
// a target. Each category is drawn with a single draw call, so the geometry is regenerated
// on the CPU every frame. The rebuild of each category runs on a shared worker pool.
package batch

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/font"
	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
	"github.com/Carmen-Shannon/oxy-forward/engine/mesh"
	"github.com/Carmen-Shannon/oxy-forward/engine/target"
)

// Kind is the order category a batch carries.
type Kind int

const (
	KindShape Kind = iota
	KindText
	KindLine
)

func (k Kind) String() string {
	switch k {
	case KindShape:
		return "shape"
	case KindText:
		return "text"
	case KindLine:
		return "line"
	default:
		return "unknown"
	}
}

// Batch is one rebuilt mesh ready to draw in world space.
type Batch struct {
	Kind Kind
	// Font is the atlas the text batch samples. It is nil for other kinds.
	Font font.Font
	Mesh mesh.Mesh
}

// slotMeshes are the streaming meshes owned by one frame slot.
type slotMeshes struct {
	shape mesh.Mesh
	line  mesh.Mesh
	text  map[font.Font]mesh.Mesh
	fonts []font.Font
}

type builderImpl struct {
	mu      *sync.Mutex
	backend device.Backend
	workers int
	pool    worker.DynamicWorkerPool
	slots   []slotMeshes
}

// Builder owns the batch meshes of every frame slot.
type Builder interface {
	// Build regenerates the batch meshes of frame slot slot from t's orders and uploads them.
	// Only batches with at least one index are returned, shapes first, then text per font in
	// first-use order, then lines.
	//
	// Parameters:
	//   - slot: the frame slot being recorded
	//   - t: the target whose orders are batched
	//   - d: retires buffers replaced when a batch outgrows its mesh
	//
	// Returns:
	//   - []Batch: the batches to draw
	//   - error: an error if a mesh could not be created or uploaded
	Build(slot int, t target.Target, d device.Destroyer) ([]Batch, error)

	// Destroy retires every batch mesh through d and stops the worker pool.
	Destroy(d device.Destroyer)
}

var _ Builder = &builderImpl{}

// New creates the shape and line meshes of every frame slot. Text meshes are created the
// first time a font is used in a slot.
//
// Parameters:
//   - b: the backend the meshes are created on
//   - framesInFlight: the number of frame slots
//   - options: functional options such as WithWorkers
//
// Returns:
//   - Builder: the batch builder
//   - error: an error if a mesh could not be created
func New(b device.Backend, framesInFlight int, options ...BuilderOption) (Builder, error) {
	bl := &builderImpl{
		mu:      &sync.Mutex{},
		backend: b,
		workers: 3,
	}
	for _, option := range options {
		option(bl)
	}
	bl.slots = make([]slotMeshes, framesInFlight)
	for i := range bl.slots {
		s := &bl.slots[i]
		var err error
		if s.shape, err = bl.streaming(fmt.Sprintf("shape batch %d", i)); err != nil {
			bl.Destroy(b)
			return nil, err
		}
		if s.line, err = bl.streaming(fmt.Sprintf("line batch %d", i)); err != nil {
			bl.Destroy(b)
			return nil, err
		}
		s.text = make(map[font.Font]mesh.Mesh)
	}
	bl.pool = worker.NewDynamicWorkerPool(bl.workers, 64, time.Second)
	return bl, nil
}

func (bl *builderImpl) streaming(label string) (mesh.Mesh, error) {
	m, err := mesh.New(bl.backend, mesh.Geometry{}, mesh.WithLabel(label), mesh.WithStreaming())
	if err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	return m, nil
}

func (bl *builderImpl) Build(slot int, t target.Target, d device.Destroyer) ([]Batch, error) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	s := &bl.slots[slot]

	textOrders := t.TextOrders()
	s.fonts = s.fonts[:0]
	for _, o := range textOrders {
		if _, ok := s.text[o.Font]; !ok {
			m, err := bl.streaming(fmt.Sprintf("text batch %d %s", slot, o.Font.Name()))
			if err != nil {
				return nil, err
			}
			s.text[o.Font] = m
		}
		if !slices.Contains(s.fonts, o.Font) {
			s.fonts = append(s.fonts, o.Font)
		}
	}

	// Each job owns one mesh; the WaitGroup is the frame barrier since pool.Wait only
	// returns once workers go idle.
	var wg sync.WaitGroup
	submit := func(id int, m mesh.Mesh, fill func(g *mesh.Geometry)) {
		wg.Add(1)
		bl.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				g := m.Geometry()
				fill(&g)
				m.SetGeometry(g)
				return nil, nil
			},
		})
	}
	shapes, lines := t.ShapeOrders(), t.LineOrders()
	submit(0, s.shape, func(g *mesh.Geometry) { ShapeGeometry(g, shapes) })
	submit(1, s.line, func(g *mesh.Geometry) { LineGeometry(g, lines) })
	for i, f := range s.fonts {
		submit(2+i, s.text[f], func(g *mesh.Geometry) { TextGeometry(g, f, textOrders) })
	}
	wg.Wait()

	batches := make([]Batch, 0, 2+len(s.fonts))
	add := func(kind Kind, f font.Font, m mesh.Mesh) error {
		if err := m.Update(bl.backend, d); err != nil {
			return fmt.Errorf("batch: upload %s: %w", kind, err)
		}
		if m.IndexCount() > 0 {
			batches = append(batches, Batch{Kind: kind, Font: f, Mesh: m})
		}
		return nil
	}
	if err := add(KindShape, nil, s.shape); err != nil {
		return nil, err
	}
	for _, f := range s.fonts {
		if err := add(KindText, f, s.text[f]); err != nil {
			return nil, err
		}
	}
	if err := add(KindLine, nil, s.line); err != nil {
		return nil, err
	}

	logger.Logger().Debug("batches rebuilt", "slot", slot, "shapes", len(shapes), "lines", len(lines), "text", len(textOrders), "fonts", len(s.fonts))
	return batches, nil
}

func (bl *builderImpl) Destroy(d device.Destroyer) {
	bl.mu.Lock()
	defer bl.mu.Unlock()
	for i := range bl.slots {
		s := &bl.slots[i]
		if s.shape != nil {
			s.shape.Destroy(d)
		}
		if s.line != nil {
			s.line.Destroy(d)
		}
		for _, m := range s.text {
			m.Destroy(d)
		}
		*s = slotMeshes{}
	}
	if bl.pool != nil {
		bl.pool.Stop()
		bl.pool = nil
	}
}
