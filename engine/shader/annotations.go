// annotations.go defines the annotation syntax of the WGSL pre-processor. Annotations are
// single-line WGSL comments prefixed with @oxy: that inject shared struct sources and declare
// the engine bind groups a shader uses.
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
// Every annotation must appear on a line beginning with "//" followed by this prefix.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects a registered WGSL source at the annotation site.
	//
	// Syntax: //@oxy:include <name>
	//
	// Example: //@oxy:include world
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeGroup declares that bind group <group> uses one of the engine layouts and
	// expands to every @group/@binding declaration of that layout.
	//
	// Syntax: //@oxy:group <group> <world|shadow|material|draw>
	//
	// Example: //@oxy:group 1 material
	AnnotationTypeGroup AnnotationType = "group"
)

// GroupKind names the engine layout declared by a group annotation.
type GroupKind string

const (
	GroupWorld    GroupKind = "world"
	GroupShadow   GroupKind = "shadow"
	GroupMaterial GroupKind = "material"
	// GroupDraw is the per-draw constant block. It must be the last group.
	GroupDraw GroupKind = "draw"
)

// Annotation represents a single parsed annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Name is the include name for include annotations.
	Name string

	// Group is the bind group index for group annotations.
	Group int

	// Kind is the declared layout for group annotations.
	Kind GroupKind

	// Line is the 1-based source line of the annotation.
	Line int
}

// parseAnnotation parses line as an annotation. It returns nil without error when the line
// is not an annotation.
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	rest, ok = strings.CutPrefix(strings.TrimSpace(rest), annotationPrefix)
	if !ok {
		return nil, nil
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, fmt.Errorf("line %d: empty annotation", lineNum)
	}
	a := &Annotation{Type: AnnotationType(fields[0]), Line: lineNum}
	args := fields[1:]

	switch a.Type {
	case annotationTypeInclude:
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: include takes 1 argument, got %d", lineNum, len(args))
		}
		a.Name = args[0]
	case AnnotationTypeGroup:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: group takes 2 arguments, got %d", lineNum, len(args))
		}
		group, err := strconv.Atoi(args[0])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group index %q", lineNum, args[0])
		}
		a.Group = group
		a.Kind = GroupKind(args[1])
		switch a.Kind {
		case GroupWorld, GroupShadow, GroupMaterial, GroupDraw:
		default:
			return nil, fmt.Errorf("line %d: unknown group kind %q", lineNum, args[1])
		}
	default:
		return nil, fmt.Errorf("line %d: unknown annotation type %q", lineNum, a.Type)
	}
	return a, nil
}
