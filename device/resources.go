// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	vk "github.com/vulkan-go/vulkan"
)

// CreateImage implements Resources
func (v *Vulkan) CreateImage(info *vk.ImageCreateInfo) (vk.Image, error) {
	var image vk.Image
	if err := check(vk.CreateImage(v.device, info, nil, &image), "vk.CreateImage()"); err != nil {
		return nil, err
	}
	return image, nil
}

// ImageMemoryRequirements implements Resources
func (v *Vulkan) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(v.device, image, &req)
	req.Deref()
	return req
}

// BindImageMemory implements Resources
func (v *Vulkan) BindImageMemory(image vk.Image, mem vk.DeviceMemory) error {
	return check(vk.BindImageMemory(v.device, image, mem, 0), "vk.BindImageMemory()")
}

// DestroyImage implements Resources
func (v *Vulkan) DestroyImage(image vk.Image) {
	vk.DestroyImage(v.device, image, nil)
}

// CreateImageView implements Resources
func (v *Vulkan) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	if err := check(vk.CreateImageView(v.device, info, nil, &view), "vk.CreateImageView()"); err != nil {
		return nil, err
	}
	return view, nil
}

// DestroyImageView implements Resources
func (v *Vulkan) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(v.device, view, nil)
}

// CreateSampler implements Resources
func (v *Vulkan) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	var sampler vk.Sampler
	if err := check(vk.CreateSampler(v.device, info, nil, &sampler), "vk.CreateSampler()"); err != nil {
		return nil, err
	}
	return sampler, nil
}

// DestroySampler implements Resources
func (v *Vulkan) DestroySampler(sampler vk.Sampler) {
	vk.DestroySampler(v.device, sampler, nil)
}

// CreateBuffer implements Resources
func (v *Vulkan) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	var buffer vk.Buffer
	if err := check(vk.CreateBuffer(v.device, info, nil, &buffer), "vk.CreateBuffer()"); err != nil {
		return nil, err
	}
	return buffer, nil
}

// BufferMemoryRequirements implements Resources
func (v *Vulkan) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(v.device, buffer, &req)
	req.Deref()
	return req
}

// BindBufferMemory implements Resources
func (v *Vulkan) BindBufferMemory(buffer vk.Buffer, mem vk.DeviceMemory) error {
	return check(vk.BindBufferMemory(v.device, buffer, mem, 0), "vk.BindBufferMemory()")
}

// DestroyBuffer implements Resources
func (v *Vulkan) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(v.device, buffer, nil)
}

// CreateShaderModule implements Resources
func (v *Vulkan) CreateShaderModule(code []uint32) (vk.ShaderModule, error) {
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if err := check(vk.CreateShaderModule(v.device, &smci, nil, &module), "vk.CreateShaderModule()"); err != nil {
		return nil, err
	}
	return module, nil
}

// DestroyShaderModule implements Resources
func (v *Vulkan) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(v.device, module, nil)
}

// CreateCommandPool implements Resources
func (v *Vulkan) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	var pool vk.CommandPool
	if err := check(vk.CreateCommandPool(v.device, info, nil, &pool), "vk.CreateCommandPool()"); err != nil {
		return nil, err
	}
	return pool, nil
}

// DestroyCommandPool implements Resources
func (v *Vulkan) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(v.device, pool, nil)
}

// AllocateCommandBuffers implements Resources
func (v *Vulkan) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	if err := check(vk.AllocateCommandBuffers(v.device, info, buffers), "vk.AllocateCommandBuffers()"); err != nil {
		return nil, err
	}
	return buffers, nil
}

// FreeCommandBuffers implements Resources
func (v *Vulkan) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	vk.FreeCommandBuffers(v.device, pool, uint32(len(buffers)), buffers)
}

// CreateFence implements Resources
func (v *Vulkan) CreateFence(signaled bool) (vk.Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := check(vk.CreateFence(v.device, &fci, nil, &fence), "vk.CreateFence()"); err != nil {
		return nil, err
	}
	return fence, nil
}

// WaitForFence implements Resources
func (v *Vulkan) WaitForFence(fence vk.Fence, timeout uint64) error {
	return check(vk.WaitForFences(v.device, 1, []vk.Fence{fence}, vk.True, timeout), "vk.WaitForFences()")
}

// ResetFence implements Resources
func (v *Vulkan) ResetFence(fence vk.Fence) error {
	return check(vk.ResetFences(v.device, 1, []vk.Fence{fence}), "vk.ResetFences()")
}

// DestroyFence implements Resources
func (v *Vulkan) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(v.device, fence, nil)
}

// CreateSemaphore implements Resources
func (v *Vulkan) CreateSemaphore() (vk.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var semaphore vk.Semaphore
	if err := check(vk.CreateSemaphore(v.device, &sci, nil, &semaphore), "vk.CreateSemaphore()"); err != nil {
		return nil, err
	}
	return semaphore, nil
}

// DestroySemaphore implements Resources
func (v *Vulkan) DestroySemaphore(semaphore vk.Semaphore) {
	vk.DestroySemaphore(v.device, semaphore, nil)
}

// CreateRenderPass implements Resources
func (v *Vulkan) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var renderPass vk.RenderPass
	if err := check(vk.CreateRenderPass(v.device, info, nil, &renderPass), "vk.CreateRenderPass()"); err != nil {
		return nil, err
	}
	return renderPass, nil
}

// DestroyRenderPass implements Resources
func (v *Vulkan) DestroyRenderPass(renderPass vk.RenderPass) {
	vk.DestroyRenderPass(v.device, renderPass, nil)
}

// CreateFramebuffer implements Resources
func (v *Vulkan) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var framebuffer vk.Framebuffer
	if err := check(vk.CreateFramebuffer(v.device, info, nil, &framebuffer), "vk.CreateFramebuffer()"); err != nil {
		return nil, err
	}
	return framebuffer, nil
}

// DestroyFramebuffer implements Resources
func (v *Vulkan) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(v.device, framebuffer, nil)
}

// CreateDescriptorSetLayout implements Resources
func (v *Vulkan) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	var layout vk.DescriptorSetLayout
	if err := check(vk.CreateDescriptorSetLayout(v.device, info, nil, &layout), "vk.CreateDescriptorSetLayout()"); err != nil {
		return nil, err
	}
	return layout, nil
}

// DestroyDescriptorSetLayout implements Resources
func (v *Vulkan) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(v.device, layout, nil)
}

// CreateDescriptorPool implements Resources
func (v *Vulkan) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	var pool vk.DescriptorPool
	if err := check(vk.CreateDescriptorPool(v.device, info, nil, &pool), "vk.CreateDescriptorPool()"); err != nil {
		return nil, err
	}
	return pool, nil
}

// DestroyDescriptorPool implements Resources
func (v *Vulkan) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(v.device, pool, nil)
}

// AllocateDescriptorSets implements Resources
func (v *Vulkan) AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, error) {
	sets := make([]vk.DescriptorSet, info.DescriptorSetCount)
	if len(sets) == 0 {
		return sets, nil
	}
	if err := check(vk.AllocateDescriptorSets(v.device, info, &sets[0]), "vk.AllocateDescriptorSets()"); err != nil {
		return nil, err
	}
	return sets, nil
}

// UpdateDescriptorSets implements Resources
func (v *Vulkan) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(v.device, uint32(len(writes)), writes, 0, nil)
}

// CreatePipelineLayout implements Resources
func (v *Vulkan) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	if err := check(vk.CreatePipelineLayout(v.device, info, nil, &layout), "vk.CreatePipelineLayout()"); err != nil {
		return nil, err
	}
	return layout, nil
}

// DestroyPipelineLayout implements Resources
func (v *Vulkan) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(v.device, layout, nil)
}

// CreateGraphicsPipelines implements Resources
func (v *Vulkan) CreateGraphicsPipelines(infos []vk.GraphicsPipelineCreateInfo) ([]vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, len(infos))
	if err := check(vk.CreateGraphicsPipelines(v.device, nil, uint32(len(infos)), infos, nil, pipelines), "vk.CreateGraphicsPipelines()"); err != nil {
		return nil, err
	}
	return pipelines, nil
}

// DestroyPipeline implements Resources
func (v *Vulkan) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(v.device, pipeline, nil)
}
