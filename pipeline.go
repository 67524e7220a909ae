package triangle

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// PipelineBuilder accumulates graphics pipeline state before a single Build
// call. The defaults describe the full pipeline for the triangle; callers may
// adjust individual stages before building.
type PipelineBuilder struct {
	shaderStages  []vk.PipelineShaderStageCreateInfo
	vertexInput   vk.PipelineVertexInputStateCreateInfo
	inputAssembly vk.PipelineInputAssemblyStateCreateInfo
	rasterizer    vk.PipelineRasterizationStateCreateInfo
	multisampling vk.PipelineMultisampleStateCreateInfo
	colorBlend    vk.PipelineColorBlendAttachmentState
	dynamicStates []vk.DynamicState
}

// NewPipelineBuilder seeds the builder with the fixed-function state for the
// hard-coded triangle: no vertex buffers, triangle list topology, back-face
// culling with clockwise winding, no multisampling, source-over blending, and
// dynamic viewport and scissor.
func NewPipelineBuilder(vert, frag vk.ShaderModule) *PipelineBuilder {
	return &PipelineBuilder{
		shaderStages: []vk.PipelineShaderStageCreateInfo{{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vert,
			PName:  safeString("main"),
		}, {
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: frag,
			PName:  safeString("main"),
		}},
		vertexInput: vk.PipelineVertexInputStateCreateInfo{
			SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
			// The vertex shader synthesizes positions from gl_VertexIndex.
			VertexBindingDescriptionCount:   0,
			VertexAttributeDescriptionCount: 0,
		},
		inputAssembly: vk.PipelineInputAssemblyStateCreateInfo{
			SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               vk.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: vk.False,
		},
		rasterizer: vk.PipelineRasterizationStateCreateInfo{
			SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
			DepthClampEnable:        vk.False,
			RasterizerDiscardEnable: vk.False,
			PolygonMode:             vk.PolygonModeFill,
			CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:               vk.FrontFaceClockwise,
			DepthBiasEnable:         vk.False,
			LineWidth:               1.0,
		},
		multisampling: vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
			SampleShadingEnable:  vk.False,
		},
		colorBlend: vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.ColorComponentFlags(
				vk.ColorComponentRBit | vk.ColorComponentGBit |
					vk.ColorComponentBBit | vk.ColorComponentABit),
			BlendEnable:         vk.True,
			SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
			DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
			ColorBlendOp:        vk.BlendOpAdd,
			SrcAlphaBlendFactor: vk.BlendFactorOne,
			DstAlphaBlendFactor: vk.BlendFactorZero,
			AlphaBlendOp:        vk.BlendOpAdd,
		},
		dynamicStates: []vk.DynamicState{
			vk.DynamicStateViewport,
			vk.DynamicStateScissor,
		},
	}
}

// Build creates the pipeline layout and the graphics pipeline against the
// render pass. The layout is empty: the triangle uses no descriptors and no
// push constants. Both returned handles are owned by the caller.
func (b *PipelineBuilder) Build(device vk.Device, renderPass vk.RenderPass) (vk.Pipeline, vk.PipelineLayout, error) {
	// Viewport and scissor are dynamic, so only their counts are declared
	// here; values are set per command buffer.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{b.colorBlend},
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(b.dynamicStates)),
		PDynamicStates:    b.dynamicStates,
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}
	var layout vk.PipelineLayout
	if err := NewError(vk.CreatePipelineLayout(device, &layoutInfo, nil, &layout)); err != nil {
		return vk.NullPipeline, vk.NullPipelineLayout, fmt.Errorf("creating pipeline layout: %w", err)
	}

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(b.shaderStages)),
		PStages:             b.shaderStages,
		PVertexInputState:   &b.vertexInput,
		PInputAssemblyState: &b.inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &b.rasterizer,
		PMultisampleState:   &b.multisampling,
		PColorBlendState:    &colorBlendState,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(device, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{pipelineInfo}, nil, pipelines)
	if err := NewError(ret); err != nil {
		vk.DestroyPipelineLayout(device, layout, nil)
		return vk.NullPipeline, vk.NullPipelineLayout, fmt.Errorf("creating graphics pipeline: %w", err)
	}
	return pipelines[0], layout, nil
}
