// Package resource implements reference-counted handles to GPU-backed resources.
//
// Resources live in a generation-checked arena (Store). Handles are small comparable values;
// cloning one increments the slot's reference count and releasing decrements it. A slot whose
// count reaches zero is retired by the next Sweep, which hands the resource's GPU objects to a
// device.Destroyer (the frame manager's graveyard) and bumps the slot generation so any stale
// handle is detected. Nothing is ever destroyed synchronously.
package resource

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
)

// Resource is a GPU-backed value that can be stored behind a Handle.
type Resource interface {
	// Update re-uploads the CPU-side data of a mutated resource. GPU objects that may still be
	// referenced by in-flight frames are retired through d and replaced, never written.
	Update(b device.Backend, d device.Destroyer) error
	// Destroy retires every GPU object owned by the resource through d.
	Destroy(d device.Destroyer)
}

// Sweeper is the type-erased per-frame maintenance of a Store.
type Sweeper interface {
	// Sync updates every live resource marked mutated since the last Sync.
	Sync(b device.Backend, d device.Destroyer) error
	// Sweep retires every resource whose reference count reached zero and returns how many.
	Sweep(d device.Destroyer) int
}

type entry[T Resource] struct {
	value   T
	gen     uint32
	refs    int
	mutated bool
	alive   bool
}

// Store is an arena of resources of one type.
type Store[T Resource] struct {
	mu      *sync.Mutex
	name    string
	entries []entry[T]
	free    []uint32
}

var _ Sweeper = &Store[Resource]{}

// NewStore creates an empty store. The name prefixes log lines and panics.
func NewStore[T Resource](name string) *Store[T] {
	return &Store[T]{mu: &sync.Mutex{}, name: name}
}

// Insert adds v with a reference count of one.
//
// Parameters:
//   - v: the resource, already created on the GPU
//
// Returns:
//   - Handle[T]: the first handle to v
func (s *Store[T]) Insert(v T) Handle[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.entries = append(s.entries, entry[T]{gen: 1})
		index = uint32(len(s.entries) - 1)
	}
	e := &s.entries[index]
	e.value = v
	e.refs = 1
	e.mutated = false
	e.alive = true
	return Handle[T]{store: s, index: index, gen: e.gen}
}

// Len returns the number of live resources, released or not.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries) - len(s.free)
}

// lookup returns the entry h refers to, panicking when h is stale. s.mu must be held.
func (s *Store[T]) lookup(h Handle[T]) *entry[T] {
	if int(h.index) >= len(s.entries) {
		panic(fmt.Sprintf("resource: %s handle %d out of range", s.name, h.index))
	}
	e := &s.entries[h.index]
	if !e.alive || e.gen != h.gen {
		panic(fmt.Sprintf("resource: stale %s handle %d (generation %d, current %d)", s.name, h.index, h.gen, e.gen))
	}
	return e
}

func (s *Store[T]) Sync(b device.Backend, d device.Destroyer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		e := &s.entries[i]
		if !e.alive || !e.mutated || e.refs == 0 {
			continue
		}
		if err := e.value.Update(b, d); err != nil {
			return fmt.Errorf("resource: update %s %d: %w", s.name, i, err)
		}
		e.mutated = false
	}
	return nil
}

func (s *Store[T]) Sweep(d device.Destroyer) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	retired := 0
	for i := range s.entries {
		e := &s.entries[i]
		if !e.alive || e.refs > 0 {
			continue
		}
		e.value.Destroy(d)
		var zero T
		e.value = zero
		e.alive = false
		e.mutated = false
		e.gen++
		s.free = append(s.free, uint32(i))
		retired++
	}
	if retired > 0 {
		logger.Logger().Debug("resources retired", "store", s.name, "count", retired)
	}
	return retired
}
