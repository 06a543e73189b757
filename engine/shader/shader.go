package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/resource"
)

// shader is the implementation of the Shader interface.
// It holds the annotated source and the pipeline compiled from it.
type shader struct {
	mu *sync.Mutex

	label    string
	source   string
	spec     device.PipelineSpec
	layouts  []device.DescriptorLayout
	pipeline device.Pipeline

	pp PreProcessor
}

// Shader is a compiled render pipeline together with the annotated WGSL it was built from.
// Replacing the source through a mutable handle recompiles the pipeline on the next sync.
type Shader interface {
	resource.Resource

	// Label returns the debug label of the shader.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Source returns the annotated WGSL source.
	//
	// Returns:
	//   - string: the source as given to New or SetSource
	Source() string

	// SetSource replaces the annotated WGSL source. The pipeline is rebuilt by Update.
	//
	// Parameters:
	//   - source: the new annotated WGSL source
	SetSource(source string)

	// Pipeline returns the compiled pipeline.
	//
	// Returns:
	//   - device.Pipeline: the pipeline to bind before drawing
	Pipeline() device.Pipeline

	// Layouts returns the descriptor layouts of the shader's groups. The per-draw constant
	// block occupies group len(Layouts()).
	//
	// Returns:
	//   - []device.DescriptorLayout: the layouts indexed by group
	Layouts() []device.DescriptorLayout

	// DepthOnly reports whether the shader has no fragment stage.
	//
	// Returns:
	//   - bool: true for shadow-casting depth shaders
	DepthOnly() bool
}

var _ Shader = &shader{}

// New pre-processes source and compiles it into a pipeline.
//
// Parameters:
//   - b: the backend the pipeline is created on
//   - source: annotated WGSL source
//   - options: functional options for pipeline state
//
// Returns:
//   - Shader: the compiled shader
//   - error: an error if pre-processing or pipeline creation fails
func New(b device.Backend, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		mu:     &sync.Mutex{},
		label:  "shader",
		source: source,
		spec: device.PipelineSpec{
			VertexEntry:   "vs_main",
			FragmentEntry: "fs_main",
			Topology:      device.TopologyTriangles,
			CullMode:      device.CullBack,
			DepthCompare:  device.DepthLess,
			DepthWrite:    true,
		},
		pp: NewPreProcessor(),
	}
	for _, option := range options {
		option(s)
	}
	if s.spec.FragmentEntry == "" {
		s.spec.Samples = 1
	} else if s.spec.Samples == 0 {
		s.spec.Samples = b.Samples()
	}
	if err := s.compile(b, nil); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile reads an annotated WGSL file and compiles it. The file name without extension
// is used as the label unless WithLabel overrides it.
//
// Parameters:
//   - b: the backend the pipeline is created on
//   - path: the WGSL file to read
//   - options: functional options for pipeline state
//
// Returns:
//   - Shader: the compiled shader
//   - error: an error if the file cannot be read or the shader fails to compile
func LoadFile(b device.Backend, path string, options ...ShaderBuilderOption) (Shader, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader file %s: %w", path, err)
	}
	label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return New(b, string(src), append([]ShaderBuilderOption{WithLabel(label)}, options...)...)
}

func (s *shader) Label() string {
	return s.label
}

func (s *shader) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *shader) SetSource(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = source
}

func (s *shader) Pipeline() device.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline
}

func (s *shader) Layouts() []device.DescriptorLayout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layouts
}

func (s *shader) DepthOnly() bool {
	return s.spec.FragmentEntry == ""
}

func (s *shader) Update(b device.Backend, d device.Destroyer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compile(b, d)
}

func (s *shader) Destroy(d device.Destroyer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline != nil {
		d.DestroyPipeline(s.pipeline)
		s.pipeline = nil
	}
}

// compile runs the pre-processor and builds a new pipeline. The previous pipeline is retired
// through d only once the new one exists, so a bad edit keeps the last working pipeline.
func (s *shader) compile(b device.Backend, d device.Destroyer) error {
	processed, err := s.pp.Process(s.source)
	if err != nil {
		return fmt.Errorf("shader %s: %w", s.label, err)
	}
	layouts := s.pp.Layouts()
	if s.DepthOnly() && (len(layouts) != 1 || layouts[0] != device.LayoutShadow) {
		return fmt.Errorf("shader %s: depth-only shaders must declare exactly one shadow group", s.label)
	}

	spec := s.spec
	spec.Label = s.label
	spec.Source = processed
	spec.Layouts = layouts
	pipeline, err := b.CreatePipeline(spec)
	if err != nil {
		return fmt.Errorf("shader %s: create pipeline: %w", s.label, err)
	}
	if s.pipeline != nil && d != nil {
		d.DestroyPipeline(s.pipeline)
	}
	s.pipeline = pipeline
	s.layouts = layouts
	return nil
}
