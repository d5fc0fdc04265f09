// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
	"github.com/devblok/phong/model"
)

// ErrUnbalancedRecording is returned for BeginFrame twice without
// EndFrame in between, or EndFrame without BeginFrame.
var ErrUnbalancedRecording = errors.New("unbalanced frame recording")

// ErrNotShaderReadable is returned for material textures fragment shaders cannot sample.
var ErrNotShaderReadable = errors.New("texture not in shader read state")

// MainPass renders into an offscreen color image with a depth buffer.
// Drawables record into the command buffer BeginFrame returns, the
// color image is handed to the presentation afterwards.
type MainPass struct {
	ctx *core.Context

	extent vk.Extent2D
	color  *core.Texture
	depth  *core.Texture

	renderPass     vk.RenderPass
	framebuffer    vk.Framebuffer
	materialLayout vk.DescriptorSetLayout
	viewLayout     vk.DescriptorSetLayout
	pool           *DescriptorPool
	pipelineLayout vk.PipelineLayout
	pipeline       vk.Pipeline

	viewport vk.Viewport
	scissor  vk.Rect2D

	cmd     vk.CommandBuffer
	fence   vk.Fence
	uniform *core.Buffer
	viewSet vk.DescriptorSet

	recording bool
	destroyed bool

	log *log.Entry
}

// NewMainPass creates everything the offscreen pass needs. On failure
// whatever was created is destroyed again.
func NewMainPass(ctx *core.Context, cfg Configuration) (*MainPass, error) {
	p := &MainPass{
		ctx: ctx,
		extent: vk.Extent2D{
			Width:  cfg.Width,
			Height: cfg.Height,
		},
		log: log.WithField("component", "mainpass"),
	}

	steps := []func(Configuration) error{
		p.createImages,
		p.createRenderPass,
		p.createDescriptors,
		p.createPipelineLayout,
		p.createPipeline,
		p.createFramebuffer,
		p.createFrameResources,
	}
	for _, step := range steps {
		if err := step(cfg); err != nil {
			p.release()
			return nil, err
		}
	}
	p.createViewport()

	ctx.Retain()
	p.log.WithFields(log.Fields{
		"width":  p.extent.Width,
		"height": p.extent.Height,
	}).Debug("created")
	return p, nil
}

func (p *MainPass) createImages(cfg Configuration) error {
	extent := vk.Extent3D{Width: p.extent.Width, Height: p.extent.Height, Depth: 1}

	var err error
	p.color, err = p.ctx.CreateTexture(core.TextureInfo{
		Extent:    extent,
		ImageType: vk.ImageType2d,
		ViewType:  vk.ImageViewType2d,
		Format:    ColorFormat,
		Aspect:    vk.ImageAspectFlags(vk.ImageAspectColorBit),
		Usage:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit | vk.ImageUsageTransferSrcBit),
		Initial:   ColorAttachmentState,
	})
	if err != nil {
		return err
	}

	p.depth, err = p.ctx.CreateTexture(core.TextureInfo{
		Extent:    extent,
		ImageType: vk.ImageType2d,
		ViewType:  vk.ImageViewType2d,
		Format:    DepthFormat,
		Aspect:    vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		Usage:     vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Initial:   DepthAttachmentState,
	})
	return err
}

func (p *MainPass) createRenderPass(cfg Configuration) error {
	attachments := []vk.AttachmentDescription{
		{
			Format:         ColorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		},
		{
			Format:         DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorAttachmentRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthAttachmentRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorAttachmentRef)),
		PColorAttachments:       colorAttachmentRef,
		PDepthStencilAttachment: &depthAttachmentRef,
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}

	var err error
	if p.renderPass, err = p.ctx.Device().CreateRenderPass(&rpci); err != nil {
		return core.Fail(core.ResourceCreationFailure, "create render pass", err)
	}
	return nil
}

func (p *MainPass) createDescriptors(cfg Configuration) error {
	dev := p.ctx.Device()

	material := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 2,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		}, {
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		}},
	}
	var err error
	if p.materialLayout, err = dev.CreateDescriptorSetLayout(&material); err != nil {
		return core.Fail(core.ResourceCreationFailure, "create material set layout", err)
	}

	view := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		}},
	}
	if p.viewLayout, err = dev.CreateDescriptorSetLayout(&view); err != nil {
		return core.Fail(core.ResourceCreationFailure, "create view set layout", err)
	}

	p.pool, err = NewDescriptorPool(p.ctx, cfg.MaxDescriptorSets)
	return err
}

func (p *MainPass) createPipelineLayout(cfg Configuration) error {
	plci := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         2,
		PSetLayouts:            []vk.DescriptorSetLayout{p.materialLayout, p.viewLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
			Offset:     0,
			Size:       model.PushConstantsSize,
		}},
	}

	var err error
	if p.pipelineLayout, err = p.ctx.Device().CreatePipelineLayout(&plci); err != nil {
		return core.Fail(core.ResourceCreationFailure, "create pipeline layout", err)
	}
	return nil
}

func (p *MainPass) createPipeline(cfg Configuration) error {
	dev := p.ctx.Device()

	var stages []vk.PipelineShaderStageCreateInfo
	for _, path := range []string{cfg.VertexShader, cfg.FragmentShader} {
		stage := core.ShaderTypeOf(path).Stage()
		if stage == 0 {
			return core.Fail(core.ShaderLoadFailure, path, errors.New("unsupported shader type"))
		}
		module, err := p.ctx.LoadShader(path)
		if err != nil {
			return err
		}
		// modules are only needed until the pipeline exists
		defer dev.DestroyShaderModule(module)

		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  "main\x00",
		})
	}

	bindings := model.VertexBindingDescriptions()
	attributes := model.VertexAttributeDescriptions()

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(bindings)),
			PVertexBindingDescriptions:      bindings,
			VertexAttributeDescriptionCount: uint32(len(attributes)),
			PVertexAttributeDescriptions:    attributes,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vk.True,
			DepthWriteEnable:      vk.True,
			DepthCompareOp:        vk.CompareOpLessOrEqual,
			DepthBoundsTestEnable: vk.False,
			StencilTestEnable:     vk.False,
			Back: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
			Front: vk.StencilOpState{
				FailOp:    vk.StencilOpKeep,
				PassOp:    vk.StencilOpKeep,
				CompareOp: vk.CompareOpAlways,
			},
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     p.pipelineLayout,
		RenderPass: p.renderPass,
	}}

	pipelines, err := dev.CreateGraphicsPipelines(gpci)
	if err != nil {
		return core.Fail(core.ResourceCreationFailure, "create graphics pipeline", err)
	}
	p.pipeline = pipelines[0]
	return nil
}

func (p *MainPass) createFramebuffer(cfg Configuration) error {
	fci := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      p.renderPass,
		AttachmentCount: 2,
		PAttachments:    []vk.ImageView{p.color.View(), p.depth.View()},
		Width:           p.extent.Width,
		Height:          p.extent.Height,
		Layers:          1,
	}

	var err error
	if p.framebuffer, err = p.ctx.Device().CreateFramebuffer(&fci); err != nil {
		return core.Fail(core.ResourceCreationFailure, "create framebuffer", err)
	}
	return nil
}

func (p *MainPass) createFrameResources(cfg Configuration) error {
	var err error
	if p.cmd, err = p.ctx.AllocateCommandBuffer(); err != nil {
		return err
	}
	// signalled, so the first BeginFrame does not wait
	if p.fence, err = p.ctx.Device().CreateFence(true); err != nil {
		return core.Fail(core.ResourceCreationFailure, "create fence", err)
	}

	p.uniform, err = p.ctx.CreateBuffer(vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), core.HostMemory, len(core.MatrixBytes(mgl32.Ident4())))
	if err != nil {
		return err
	}
	p.viewSet, err = p.pool.Allocate(p.viewLayout)
	return err
}

func (p *MainPass) createViewport() {
	p.viewport = vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(p.extent.Width),
		Height:   float32(p.extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	p.scissor = vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: p.extent,
	}
}

// NewMaterial allocates a material set and points its two samplers at
// color and normal. Both must be in core.ShaderReadState, which is where
// they stay while the set is in use.
func (p *MainPass) NewMaterial(color, normal *core.Texture) (vk.DescriptorSet, error) {
	for binding, tex := range []*core.Texture{color, normal} {
		if tex.State() != core.ShaderReadState {
			return nil, core.Fail(core.ResourceCreationFailure, "new material",
				errors.Wrapf(ErrNotShaderReadable, "binding %d in layout %d", binding, tex.State().Layout))
		}
	}
	set, err := p.pool.Allocate(p.materialLayout)
	if err != nil {
		return nil, err
	}
	var writes []vk.WriteDescriptorSet
	for binding, tex := range []*core.Texture{color, normal} {
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(binding),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler:     tex.Sampler(),
				ImageView:   tex.View(),
				ImageLayout: core.ShaderReadState.Layout,
			}},
		})
	}
	p.ctx.Device().UpdateDescriptorSets(writes)
	return set, nil
}

// BeginFrame waits for the previous frame to finish, writes the view matrix
// and starts recording. The returned command buffer is inside the render
// pass with the pipeline, the view set, viewport and scissor bound.
func (p *MainPass) BeginFrame(view mgl32.Mat4) (vk.CommandBuffer, error) {
	if p.recording {
		return nil, core.Fail(core.FrameOperationFailure, "begin frame", ErrUnbalancedRecording)
	}
	dev := p.ctx.Device()

	if err := dev.WaitForFence(p.fence, math.MaxUint64); err != nil {
		return nil, core.Fail(core.FrameOperationFailure, "wait for frame fence", err)
	}
	if err := p.uniform.WriteMatrix(view); err != nil {
		return nil, err
	}

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit),
	}
	if err := dev.BeginCommandBuffer(p.cmd, &cbbi); err != nil {
		return nil, core.Fail(core.FrameOperationFailure, "begin command buffer", err)
	}
	p.recording = true

	if err := p.ctx.TransitionTexture(p.color, ColorAttachmentState, p.cmd); err != nil {
		return nil, err
	}

	dev.UpdateDescriptorSets([]vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          p.viewSet,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: p.uniform.Buffer(),
			Offset: 0,
			Range:  p.uniform.Size(),
		}},
	}})

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(ClearColor)
	clearValues[1].SetDepthStencil(1, 0)
	dev.CmdBeginRenderPass(p.cmd, &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      p.renderPass,
		Framebuffer:     p.framebuffer,
		RenderArea:      p.scissor,
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	})

	dev.CmdBindDescriptorSets(p.cmd, p.pipelineLayout, 1, []vk.DescriptorSet{p.viewSet})
	dev.CmdBindPipeline(p.cmd, p.pipeline)
	dev.CmdSetViewport(p.cmd, []vk.Viewport{p.viewport})
	dev.CmdSetScissor(p.cmd, []vk.Rect2D{p.scissor})
	return p.cmd, nil
}

// EndFrame ends recording and submits the frame. Nothing waits on the
// submission but the next BeginFrame.
func (p *MainPass) EndFrame() error {
	if !p.recording {
		return core.Fail(core.FrameOperationFailure, "end frame", ErrUnbalancedRecording)
	}
	dev := p.ctx.Device()

	dev.CmdEndRenderPass(p.cmd)
	p.recording = false
	if err := dev.EndCommandBuffer(p.cmd); err != nil {
		return core.Fail(core.FrameOperationFailure, "end command buffer", err)
	}

	// reset only now, a frame that failed earlier must not leave the fence unsignalled
	if err := dev.ResetFence(p.fence); err != nil {
		return core.Fail(core.FrameOperationFailure, "reset frame fence", err)
	}
	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{p.cmd},
	}}
	if err := dev.QueueSubmit(submit, p.fence); err != nil {
		return core.Fail(core.FrameOperationFailure, "submit frame", err)
	}
	return nil
}

// Recording reports whether BeginFrame was called without EndFrame.
func (p *MainPass) Recording() bool {
	return p.recording
}

// PipelineLayout is the layout drawables bind materials and push constants with
func (p *MainPass) PipelineLayout() vk.PipelineLayout {
	return p.pipelineLayout
}

// MaterialLayout is the layout of descriptor set 0
func (p *MainPass) MaterialLayout() vk.DescriptorSetLayout {
	return p.materialLayout
}

// DescriptorPool returns the pool materials are allocated from
func (p *MainPass) DescriptorPool() *DescriptorPool {
	return p.pool
}

// RenderImage returns the color image rendered into
func (p *MainPass) RenderImage() *core.Texture {
	return p.color
}

// Extent returns the size of the offscreen images
func (p *MainPass) Extent() vk.Extent2D {
	return p.extent
}

// Destroy waits for the device to be idle and destroys the pass, then
// releases the context. It panics if the context is already destroyed.
func (p *MainPass) Destroy() {
	if p.ctx.Destroyed() {
		panic(errors.Wrap(core.ErrContextDestroyed, "destroy main pass"))
	}
	if p.destroyed {
		return
	}
	if err := p.ctx.Device().WaitIdle(); err != nil {
		p.log.WithError(err).Error("wait idle before destroy")
	}
	p.release()
	p.destroyed = true
	p.ctx.Release()
	p.log.Debug("destroyed")
}

// release destroys whatever exists, in reverse dependency order.
func (p *MainPass) release() {
	dev := p.ctx.Device()
	if p.uniform != nil {
		p.uniform.Release(p.ctx)
		p.uniform = nil
	}
	if p.depth != nil {
		p.depth.Release(p.ctx)
		p.depth = nil
	}
	if p.color != nil {
		p.color.Release(p.ctx)
		p.color = nil
	}
	if p.framebuffer != nil {
		dev.DestroyFramebuffer(p.framebuffer)
		p.framebuffer = nil
	}
	if p.pipeline != nil {
		dev.DestroyPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipelineLayout != nil {
		dev.DestroyPipelineLayout(p.pipelineLayout)
		p.pipelineLayout = nil
	}
	if p.materialLayout != nil {
		dev.DestroyDescriptorSetLayout(p.materialLayout)
		p.materialLayout = nil
	}
	if p.viewLayout != nil {
		dev.DestroyDescriptorSetLayout(p.viewLayout)
		p.viewLayout = nil
	}
	if p.pool != nil {
		p.pool.destroy()
	}
	if p.renderPass != nil {
		dev.DestroyRenderPass(p.renderPass)
		p.renderPass = nil
	}
	if p.cmd != nil {
		p.ctx.FreeCommandBuffer(p.cmd)
		p.cmd = nil
	}
	if p.fence != nil {
		dev.DestroyFence(p.fence)
		p.fence = nil
	}
}
