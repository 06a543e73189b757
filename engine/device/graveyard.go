package device

// Destroyer retires GPU objects. The Manager implements it by queueing into the current
// frame slot's graveyard; resources never destroy their GPU objects directly.
type Destroyer interface {
	DestroyBuffer(buf Buffer)
	DestroyImage(img Image)
	DestroyPipeline(p Pipeline)
	DestroyDescriptor(d Descriptor)
}

// graveyard holds objects retired while its frame slot was current. It is flushed only after
// the slot's fence proves the GPU no longer references them.
type graveyard struct {
	buffers     []Buffer
	images      []Image
	pipelines   []Pipeline
	descriptors []Descriptor
}

func (g *graveyard) len() int {
	return len(g.buffers) + len(g.images) + len(g.pipelines) + len(g.descriptors)
}

// flush destroys everything queued, bindings before the objects they reference.
func (g *graveyard) flush(b Backend) int {
	n := g.len()
	for _, d := range g.descriptors {
		b.DestroyDescriptor(d)
	}
	for _, p := range g.pipelines {
		b.DestroyPipeline(p)
	}
	for _, img := range g.images {
		b.DestroyImage(img)
	}
	for _, buf := range g.buffers {
		b.DestroyBuffer(buf)
	}
	clear(g.descriptors)
	clear(g.pipelines)
	clear(g.images)
	clear(g.buffers)
	g.descriptors = g.descriptors[:0]
	g.pipelines = g.pipelines[:0]
	g.images = g.images[:0]
	g.buffers = g.buffers[:0]
	return n
}
