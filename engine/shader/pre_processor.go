// pre_processor.go implements the WGSL pre-processor. It replaces @oxy: annotations with
// registered struct sources or generated binding declarations and derives the descriptor
// layout list a pipeline is created with.
package shader

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-forward/common"
	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/light"
	"github.com/Carmen-Shannon/oxy-forward/engine/material"
	"github.com/Carmen-Shannon/oxy-forward/engine/mesh"
)

var (
	//go:embed assets/world.wgsl
	worldSource string
	//go:embed assets/draw.wgsl
	drawSource string
	//go:embed assets/shadow_view.wgsl
	shadowViewSource string
	//go:embed assets/sampling.wgsl
	samplingSource string
	//go:embed assets/lighting.wgsl
	lightingSource string
)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includes maps include names to the WGSL source they inject.
	includes map[string]string

	// declarations accumulates the group annotations of the last Process call.
	declarations []Annotation
}

// PreProcessor processes WGSL source containing @oxy: annotations.
type PreProcessor interface {
	// Process replaces every annotation in source with its WGSL output.
	// The group annotations are recorded and can be read with Declarations and Layouts.
	//
	// Parameters:
	//   - source: the annotated WGSL source
	//
	// Returns:
	//   - string: plain WGSL source
	//   - error: an error if an annotation is malformed, unknown or the groups are not
	//     numbered 0..n with the draw group last
	Process(source string) (string, error)

	// Declarations returns the group annotations of the last Process call in group order.
	//
	// Returns:
	//   - []Annotation: the group declarations
	Declarations() []Annotation

	// Layouts returns the descriptor layouts of every group before the draw group.
	//
	// Returns:
	//   - []device.DescriptorLayout: the layouts indexed by group
	Layouts() []device.DescriptorLayout
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with every engine struct registered for include.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		includes: map[string]string{
			"vertex":   mesh.GPUVertexSource,
			"light":    light.GPULightSource,
			"material": material.GPUMaterialSource,
			"world":    worldSource,
			"draw":     drawSource,
			"shadow":   shadowViewSource,
			"sampling": samplingSource,
			"lighting": lightingSource,
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			src, ok := p.includes[a.Name]
			if !ok {
				return "", fmt.Errorf("line %d: unknown include %q", a.Line, a.Name)
			}
			out = append(out, src)
		case AnnotationTypeGroup:
			if a.Group != len(p.declarations) {
				return "", fmt.Errorf("line %d: group %d declared out of order, expected %d", a.Line, a.Group, len(p.declarations))
			}
			if n := len(p.declarations); n > 0 && p.declarations[n-1].Kind == GroupDraw {
				return "", fmt.Errorf("line %d: group %d follows the draw group", a.Line, a.Group)
			}
			out = append(out, groupDeclarations(a.Group, a.Kind))
			p.declarations = append(p.declarations, *a)
		}
	}

	if n := len(p.declarations); n == 0 || p.declarations[n-1].Kind != GroupDraw {
		return "", fmt.Errorf("shader declares no draw group")
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

func (p *preProcessor) Layouts() []device.DescriptorLayout {
	layouts := make([]device.DescriptorLayout, 0, len(p.declarations))
	for _, a := range p.declarations {
		switch a.Kind {
		case GroupWorld:
			layouts = append(layouts, device.LayoutWorld)
		case GroupShadow:
			layouts = append(layouts, device.LayoutShadow)
		case GroupMaterial:
			layouts = append(layouts, device.LayoutMaterial)
		}
	}
	return layouts
}

// groupDeclarations generates the binding declarations of one engine layout. The binding
// numbers follow the layouts created by the device backends.
func groupDeclarations(group int, kind GroupKind) string {
	var b strings.Builder
	decl := func(binding int, format string, args ...any) {
		fmt.Fprintf(&b, "@group(%d) @binding(%d) %s\n", group, binding, fmt.Sprintf(format, args...))
	}

	switch kind {
	case GroupWorld:
		decl(0, "var<uniform> world: World;")
		for i := range device.CascadeCount {
			decl(1+i, "var shadow_map_%d: texture_depth_2d;", i)
		}
		decl(1+device.CascadeCount, "var shadow_sampler: sampler_comparison;")
		for i := range common.SamplerCount {
			decl(2+device.CascadeCount+i, "var sampler_%d: sampler;", i)
		}
	case GroupShadow:
		decl(0, "var<uniform> shadow: ShadowView;")
	case GroupMaterial:
		decl(0, "var<uniform> material: Material;")
		decl(1, "var albedo_map: texture_2d<f32>;")
	case GroupDraw:
		decl(0, "var<uniform> draw: Draw;")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
