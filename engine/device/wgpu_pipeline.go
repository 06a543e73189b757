package device

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// engineVertexLayout describes the VertexSize-byte engine vertex.
var engineVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: VertexSize,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3},
	},
}

var alphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
	},
	Alpha: wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
	},
}

func (b *wgpuBackendImpl) CreatePipeline(spec PipelineSpec) (Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: spec.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: spec.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader %q: %w", spec.Label, err)
	}

	groups := make([]*wgpu.BindGroupLayout, 0, len(spec.Layouts)+1)
	for _, l := range spec.Layouts {
		layout, ok := b.layouts[l]
		if !ok {
			module.Release()
			return nil, fmt.Errorf("wgpu: pipeline %q uses unknown layout %d", spec.Label, l)
		}
		groups = append(groups, layout)
	}
	groups = append(groups, b.drawLayout)

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            spec.Label,
		BindGroupLayouts: groups,
	})
	if err != nil {
		module.Release()
		return nil, fmt.Errorf("wgpu: create layout of pipeline %q: %w", spec.Label, err)
	}

	depthOnly := spec.FragmentEntry == ""
	samples := max(spec.Samples, 1)
	depthFormat := wgpu.TextureFormatDepth24Plus
	var fragment *wgpu.FragmentState
	if depthOnly {
		samples = 1
		depthFormat = wgpu.TextureFormatDepth32Float
	} else {
		target := wgpu.ColorTargetState{
			Format:    b.surfaceFormat,
			WriteMask: wgpu.ColorWriteMaskAll,
		}
		if spec.Blend {
			blend := alphaBlend
			target.Blend = &blend
		}
		fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: spec.FragmentEntry,
			Targets:    []wgpu.ColorTargetState{target},
		}
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  spec.Label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: spec.VertexEntry,
			Buffers:    []wgpu.VertexBufferLayout{engineVertexLayout},
		},
		Fragment: fragment,
		Primitive: wgpu.PrimitiveState{
			Topology:  topology(spec.Topology),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(spec.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: samples,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              depthFormat,
			DepthWriteEnabled:   spec.DepthWrite,
			DepthCompare:        depthCompare(spec.DepthCompare),
			DepthBias:           spec.DepthBias,
			DepthBiasSlopeScale: spec.DepthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		pipelineLayout.Release()
		module.Release()
		return nil, fmt.Errorf("wgpu: create pipeline %q: %w", spec.Label, err)
	}

	return &wgpuPipeline{
		label:     spec.Label,
		pipeline:  created,
		layout:    pipelineLayout,
		module:    module,
		pushGroup: uint32(len(spec.Layouts)),
	}, nil
}

func topology(t Topology) wgpu.PrimitiveTopology {
	if t == TopologyLines {
		return wgpu.PrimitiveTopologyLineList
	}
	return wgpu.PrimitiveTopologyTriangleList
}

func cullMode(c CullMode) wgpu.CullMode {
	switch c {
	case CullFront:
		return wgpu.CullModeFront
	case CullNone:
		return wgpu.CullModeNone
	default:
		return wgpu.CullModeBack
	}
}

func depthCompare(d DepthCompare) wgpu.CompareFunction {
	switch d {
	case DepthLessEqual:
		return wgpu.CompareFunctionLessEqual
	case DepthAlways:
		return wgpu.CompareFunctionAlways
	default:
		return wgpu.CompareFunctionLess
	}
}
