// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ErrOutOfDate is returned by swapchain operations when the surface
// changed and the swapchain must be recreated.
var ErrOutOfDate = errors.New("swapchain out of date")

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	ID            int
	VendorID      int
	DriverVersion int
	Name          string
	Invalid       bool
	Extensions    []string
	Layers        []string
	Memory        vk.DeviceSize
}

// Device is the logical rendering device together with its graphics queue.
// Everything above this package creates resources and records commands through it.
type Device interface {
	Resources
	Recorder
	Presenter

	// PhysicalDevices describes every physical device the instance sees.
	PhysicalDevices() []PhysicalDeviceInfo

	// Queue returns the graphics queue.
	Queue() vk.Queue

	// QueueFamilyIndex is the family the graphics queue was taken from.
	QueueFamilyIndex() uint32

	// WaitIdle blocks until the device finished all submitted work.
	WaitIdle() error

	// Destroy destroys the logical device, surface and instance.
	Destroy()
}

// Resources creates and destroys device objects.
type Resources interface {
	AllocateMemory(req vk.MemoryRequirements, props vk.MemoryPropertyFlags) (vk.DeviceMemory, error)
	WriteMemory(mem vk.DeviceMemory, offset vk.DeviceSize, data []byte) error
	FreeMemory(mem vk.DeviceMemory)

	CreateImage(info *vk.ImageCreateInfo) (vk.Image, error)
	ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements
	BindImageMemory(image vk.Image, mem vk.DeviceMemory) error
	DestroyImage(image vk.Image)
	CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(view vk.ImageView)
	CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error)
	DestroySampler(sampler vk.Sampler)

	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error)
	BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(buffer vk.Buffer, mem vk.DeviceMemory) error
	DestroyBuffer(buffer vk.Buffer)

	CreateShaderModule(code []uint32) (vk.ShaderModule, error)
	DestroyShaderModule(module vk.ShaderModule)

	CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error)
	DestroyCommandPool(pool vk.CommandPool)
	AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, error)
	FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer)

	CreateFence(signaled bool) (vk.Fence, error)
	WaitForFence(fence vk.Fence, timeout uint64) error
	ResetFence(fence vk.Fence) error
	DestroyFence(fence vk.Fence)
	CreateSemaphore() (vk.Semaphore, error)
	DestroySemaphore(semaphore vk.Semaphore)

	CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error)
	DestroyRenderPass(renderPass vk.RenderPass)
	CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error)
	DestroyFramebuffer(framebuffer vk.Framebuffer)

	CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error)
	DestroyDescriptorPool(pool vk.DescriptorPool)
	AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, error)
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)

	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateGraphicsPipelines(infos []vk.GraphicsPipelineCreateInfo) ([]vk.Pipeline, error)
	DestroyPipeline(pipeline vk.Pipeline)
}

// Recorder records into command buffers and submits them.
type Recorder interface {
	BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error
	EndCommandBuffer(cmd vk.CommandBuffer) error
	QueueSubmit(submits []vk.SubmitInfo, fence vk.Fence) error
	QueueWaitIdle() error

	CmdPipelineBarrier(cmd vk.CommandBuffer, src, dst vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier)
	CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo)
	CmdEndRenderPass(cmd vk.CommandBuffer)
	CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline)
	CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet)
	CmdSetViewport(cmd vk.CommandBuffer, viewports []vk.Viewport)
	CmdSetScissor(cmd vk.CommandBuffer, scissors []vk.Rect2D)
	CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)
	CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount uint32)
	CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter)
	CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy)
}

// Presenter owns the window surface side of the device.
type Presenter interface {
	Surface() vk.Surface
	SurfaceCapabilities() (vk.SurfaceCapabilities, error)
	SurfaceFormats() ([]vk.SurfaceFormat, error)
	CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error)
	DestroySwapchain(swapchain vk.Swapchain)
	// AcquireNextImage returns ErrOutOfDate when the swapchain must be recreated.
	AcquireNextImage(swapchain vk.Swapchain, signal vk.Semaphore) (uint32, error)
	// QueuePresent returns ErrOutOfDate when the swapchain must be recreated.
	QueuePresent(info *vk.PresentInfo) error
}
