package resource

// Handle is a reference-counted reference to a resource in a Store. Handles compare equal when
// they refer to the same resource, so they can key batching groups. The zero Handle refers to
// nothing.
type Handle[T Resource] struct {
	store *Store[T]
	index uint32
	gen   uint32
}

// IsZero reports whether h was never assigned.
func (h Handle[T]) IsZero() bool {
	return h.store == nil
}

// Valid reports whether h still refers to a live resource.
func (h Handle[T]) Valid() bool {
	if h.store == nil {
		return false
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	if int(h.index) >= len(h.store.entries) {
		return false
	}
	e := &h.store.entries[h.index]
	return e.alive && e.gen == h.gen
}

// Get returns the resource for reading. It panics when h is stale.
func (h Handle[T]) Get() T {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.store.lookup(h).value
}

// Mut returns the resource for writing and marks it mutated, so the next Sync re-uploads it
// before any draw that references it.
func (h Handle[T]) Mut() T {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	e := h.store.lookup(h)
	e.mutated = true
	return e.value
}

// Clone returns another handle to the same resource and increments its reference count.
func (h Handle[T]) Clone() Handle[T] {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	e := h.store.lookup(h)
	if e.refs == 0 {
		panic("resource: clone of a released " + h.store.name)
	}
	e.refs++
	return h
}

// Release drops one reference. The resource is retired by the next Sweep once no references
// remain. Releasing more times than the resource was cloned panics.
func (h Handle[T]) Release() {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	e := h.store.lookup(h)
	if e.refs == 0 {
		panic("resource: double release of " + h.store.name)
	}
	e.refs--
}

// Refs returns the current reference count.
func (h Handle[T]) Refs() int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.store.lookup(h).refs
}
