// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package devicetest provides an in-memory device.Device for tests that
// run without a GPU. It hands out unique handles, keeps track of what is
// alive, validates command buffer recording and descriptor pool capacity
// the way the validation layer would, and logs every call.
package devicetest

import (
	"fmt"
	"sort"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/device"
)

// ErrOutOfPoolMemory mirrors VK_ERROR_OUT_OF_POOL_MEMORY.
var ErrOutOfPoolMemory = errors.New("vk.AllocateDescriptorSets(): out of pool memory")

// Barrier is a recorded pipeline barrier.
type Barrier struct {
	Cmd      vk.CommandBuffer
	SrcStage vk.PipelineStageFlags
	DstStage vk.PipelineStageFlags
	vk.ImageMemoryBarrier
}

// Blit is a recorded image blit.
type Blit struct {
	Src, Dst             vk.Image
	SrcLayout, DstLayout vk.ImageLayout
	Regions              []vk.ImageBlit
}

// Vulkan handle types point to incomplete C structs and must not point
// into the Go heap, so every fake handle is a cell of static storage.
var (
	handleMu   sync.Mutex
	handles    [1 << 16]uint64
	nextHandle int
)

func newHandle() unsafe.Pointer {
	handleMu.Lock()
	defer handleMu.Unlock()
	if nextHandle == len(handles) {
		panic("devicetest: out of handles")
	}
	p := unsafe.Pointer(&handles[nextHandle])
	nextHandle++
	return p
}

type poolState struct {
	maxSets   uint32
	allocated uint32
}

// Device implements device.Device in memory.
type Device struct {
	// Extent is reported as the surface's current extent.
	Extent vk.Extent2D
	// SwapchainLength is the number of images a swapchain gets.
	SwapchainLength int

	calls    []string
	live     map[unsafe.Pointer]string
	failures map[string]error

	memory    map[vk.DeviceMemory][]byte
	images    map[vk.Image]vk.ImageCreateInfo
	buffers   map[vk.Buffer]vk.BufferCreateInfo
	recording map[vk.CommandBuffer]bool
	fences    map[vk.Fence]bool
	pools     map[vk.DescriptorPool]*poolState
	swapchain map[vk.Swapchain][]vk.Image

	barriers    []Barrier
	blits       []Blit
	submits     []vk.SubmitInfo
	presents    int
	nextImage   uint32
	pushed      [][]byte
	descriptors []vk.WriteDescriptorSet
	destroyed   bool
}

var _ device.Device = (*Device)(nil)

// New returns an empty device with an 800x600 surface.
func New() *Device {
	return &Device{
		Extent:          vk.Extent2D{Width: 800, Height: 600},
		SwapchainLength: 3,
		live:            map[unsafe.Pointer]string{},
		failures:        map[string]error{},
		memory:          map[vk.DeviceMemory][]byte{},
		images:          map[vk.Image]vk.ImageCreateInfo{},
		buffers:         map[vk.Buffer]vk.BufferCreateInfo{},
		recording:       map[vk.CommandBuffer]bool{},
		fences:          map[vk.Fence]bool{},
		pools:           map[vk.DescriptorPool]*poolState{},
		swapchain:       map[vk.Swapchain][]vk.Image{},
	}
}

// Fail makes the next call of op return err.
func (d *Device) Fail(op string, err error) {
	d.failures[op] = err
}

func (d *Device) call(op string) error {
	d.calls = append(d.calls, op)
	if err, ok := d.failures[op]; ok {
		delete(d.failures, op)
		return err
	}
	return nil
}

func (d *Device) alloc(kind string) unsafe.Pointer {
	p := newHandle()
	d.live[p] = kind
	return p
}

func (d *Device) free(op string, p unsafe.Pointer) {
	d.calls = append(d.calls, op)
	if p == nil {
		return
	}
	if _, ok := d.live[p]; !ok {
		panic(fmt.Sprintf("devicetest: %s on a handle that is not alive", op))
	}
	delete(d.live, p)
}

// Calls returns every call made, in order.
func (d *Device) Calls() []string {
	return append([]string(nil), d.calls...)
}

// Live returns the kinds of every handle not yet destroyed, sorted.
func (d *Device) Live() []string {
	var kinds []string
	for _, k := range d.live {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Barriers returns all recorded image barriers.
func (d *Device) Barriers() []Barrier {
	return d.barriers
}

// Blits returns all recorded blits.
func (d *Device) Blits() []Blit {
	return d.blits
}

// Submits returns every submitted batch.
func (d *Device) Submits() []vk.SubmitInfo {
	return d.submits
}

// Presents is the number of successful presents.
func (d *Device) Presents() int {
	return d.presents
}

// PushConstants returns every push constant payload recorded.
func (d *Device) PushConstants() [][]byte {
	return d.pushed
}

// DescriptorWrites returns every descriptor write.
func (d *Device) DescriptorWrites() []vk.WriteDescriptorSet {
	return d.descriptors
}

// Memory returns the contents of an allocation.
func (d *Device) Memory(mem vk.DeviceMemory) []byte {
	return d.memory[mem]
}

// ImageInfo returns the create info an image was made with.
func (d *Device) ImageInfo(image vk.Image) (vk.ImageCreateInfo, bool) {
	info, ok := d.images[image]
	return info, ok
}

// Recording reports whether cmd is between begin and end.
func (d *Device) Recording(cmd vk.CommandBuffer) bool {
	return d.recording[cmd]
}

// Destroyed reports whether Destroy was called.
func (d *Device) Destroyed() bool {
	return d.destroyed
}

// PhysicalDevices implements device.Device
func (d *Device) PhysicalDevices() []device.PhysicalDeviceInfo {
	return []device.PhysicalDeviceInfo{{Name: "devicetest", Memory: 1 << 30}}
}

// Queue implements device.Device
func (d *Device) Queue() vk.Queue {
	return nil
}

// QueueFamilyIndex implements device.Device
func (d *Device) QueueFamilyIndex() uint32 {
	return 0
}

// WaitIdle implements device.Device
func (d *Device) WaitIdle() error {
	return d.call("WaitIdle")
}

// Destroy implements device.Device
func (d *Device) Destroy() {
	d.calls = append(d.calls, "Destroy")
	d.destroyed = true
}

// AllocateMemory implements device.Resources
func (d *Device) AllocateMemory(req vk.MemoryRequirements, props vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	if err := d.call("AllocateMemory"); err != nil {
		return nil, err
	}
	mem := vk.DeviceMemory(d.alloc("DeviceMemory"))
	d.memory[mem] = make([]byte, req.Size)
	return mem, nil
}

// WriteMemory implements device.Resources
func (d *Device) WriteMemory(mem vk.DeviceMemory, offset vk.DeviceSize, data []byte) error {
	if err := d.call("WriteMemory"); err != nil {
		return err
	}
	buf, ok := d.memory[mem]
	if !ok {
		return errors.New("devicetest: write to unknown memory")
	}
	if int(offset)+len(data) > len(buf) {
		return errors.Errorf("devicetest: write of %d bytes at %d overflows %d byte allocation", len(data), offset, len(buf))
	}
	copy(buf[offset:], data)
	return nil
}

// FreeMemory implements device.Resources
func (d *Device) FreeMemory(mem vk.DeviceMemory) {
	d.free("FreeMemory", unsafe.Pointer(mem))
	delete(d.memory, mem)
}

// CreateImage implements device.Resources
func (d *Device) CreateImage(info *vk.ImageCreateInfo) (vk.Image, error) {
	if err := d.call("CreateImage"); err != nil {
		return nil, err
	}
	image := vk.Image(d.alloc("Image"))
	d.images[image] = *info
	return image, nil
}

// ImageMemoryRequirements implements device.Resources
func (d *Device) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	info := d.images[image]
	return vk.MemoryRequirements{
		Size:           vk.DeviceSize(info.Extent.Width * info.Extent.Height * info.Extent.Depth * 4),
		Alignment:      256,
		MemoryTypeBits: 1,
	}
}

// BindImageMemory implements device.Resources
func (d *Device) BindImageMemory(image vk.Image, mem vk.DeviceMemory) error {
	return d.call("BindImageMemory")
}

// DestroyImage implements device.Resources
func (d *Device) DestroyImage(image vk.Image) {
	d.free("DestroyImage", unsafe.Pointer(image))
	delete(d.images, image)
}

// CreateImageView implements device.Resources
func (d *Device) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	if err := d.call("CreateImageView"); err != nil {
		return nil, err
	}
	return vk.ImageView(d.alloc("ImageView")), nil
}

// DestroyImageView implements device.Resources
func (d *Device) DestroyImageView(view vk.ImageView) {
	d.free("DestroyImageView", unsafe.Pointer(view))
}

// CreateSampler implements device.Resources
func (d *Device) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	if err := d.call("CreateSampler"); err != nil {
		return nil, err
	}
	return vk.Sampler(d.alloc("Sampler")), nil
}

// DestroySampler implements device.Resources
func (d *Device) DestroySampler(sampler vk.Sampler) {
	d.free("DestroySampler", unsafe.Pointer(sampler))
}

// CreateBuffer implements device.Resources
func (d *Device) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, error) {
	if err := d.call("CreateBuffer"); err != nil {
		return nil, err
	}
	buffer := vk.Buffer(d.alloc("Buffer"))
	d.buffers[buffer] = *info
	return buffer, nil
}

// BufferMemoryRequirements implements device.Resources
func (d *Device) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	return vk.MemoryRequirements{
		Size:           d.buffers[buffer].Size,
		Alignment:      256,
		MemoryTypeBits: 1,
	}
}

// BindBufferMemory implements device.Resources
func (d *Device) BindBufferMemory(buffer vk.Buffer, mem vk.DeviceMemory) error {
	return d.call("BindBufferMemory")
}

// DestroyBuffer implements device.Resources
func (d *Device) DestroyBuffer(buffer vk.Buffer) {
	d.free("DestroyBuffer", unsafe.Pointer(buffer))
	delete(d.buffers, buffer)
}

// CreateShaderModule implements device.Resources
func (d *Device) CreateShaderModule(code []uint32) (vk.ShaderModule, error) {
	if err := d.call("CreateShaderModule"); err != nil {
		return nil, err
	}
	return vk.ShaderModule(d.alloc("ShaderModule")), nil
}

// DestroyShaderModule implements device.Resources
func (d *Device) DestroyShaderModule(module vk.ShaderModule) {
	d.free("DestroyShaderModule", unsafe.Pointer(module))
}

// CreateCommandPool implements device.Resources
func (d *Device) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	if err := d.call("CreateCommandPool"); err != nil {
		return nil, err
	}
	return vk.CommandPool(d.alloc("CommandPool")), nil
}

// DestroyCommandPool implements device.Resources
func (d *Device) DestroyCommandPool(pool vk.CommandPool) {
	d.free("DestroyCommandPool", unsafe.Pointer(pool))
}

// AllocateCommandBuffers implements device.Resources
func (d *Device) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, error) {
	if err := d.call("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	for i := range buffers {
		buffers[i] = vk.CommandBuffer(d.alloc("CommandBuffer"))
	}
	return buffers, nil
}

// FreeCommandBuffers implements device.Resources
func (d *Device) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	for _, cmd := range buffers {
		d.free("FreeCommandBuffers", unsafe.Pointer(cmd))
		delete(d.recording, cmd)
	}
}

// CreateFence implements device.Resources
func (d *Device) CreateFence(signaled bool) (vk.Fence, error) {
	if err := d.call("CreateFence"); err != nil {
		return nil, err
	}
	fence := vk.Fence(d.alloc("Fence"))
	d.fences[fence] = signaled
	return fence, nil
}

// WaitForFence fails instead of blocking forever on a fence nothing will signal.
func (d *Device) WaitForFence(fence vk.Fence, timeout uint64) error {
	if err := d.call("WaitForFence"); err != nil {
		return err
	}
	if !d.fences[fence] {
		return errors.New("devicetest: waiting on a fence that is never signalled")
	}
	return nil
}

// ResetFence implements device.Resources
func (d *Device) ResetFence(fence vk.Fence) error {
	if err := d.call("ResetFence"); err != nil {
		return err
	}
	d.fences[fence] = false
	return nil
}

// DestroyFence implements device.Resources
func (d *Device) DestroyFence(fence vk.Fence) {
	d.free("DestroyFence", unsafe.Pointer(fence))
	delete(d.fences, fence)
}

// CreateSemaphore implements device.Resources
func (d *Device) CreateSemaphore() (vk.Semaphore, error) {
	if err := d.call("CreateSemaphore"); err != nil {
		return nil, err
	}
	return vk.Semaphore(d.alloc("Semaphore")), nil
}

// DestroySemaphore implements device.Resources
func (d *Device) DestroySemaphore(semaphore vk.Semaphore) {
	d.free("DestroySemaphore", unsafe.Pointer(semaphore))
}

// CreateRenderPass implements device.Resources
func (d *Device) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	if err := d.call("CreateRenderPass"); err != nil {
		return nil, err
	}
	return vk.RenderPass(d.alloc("RenderPass")), nil
}

// DestroyRenderPass implements device.Resources
func (d *Device) DestroyRenderPass(renderPass vk.RenderPass) {
	d.free("DestroyRenderPass", unsafe.Pointer(renderPass))
}

// CreateFramebuffer implements device.Resources
func (d *Device) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	if err := d.call("CreateFramebuffer"); err != nil {
		return nil, err
	}
	return vk.Framebuffer(d.alloc("Framebuffer")), nil
}

// DestroyFramebuffer implements device.Resources
func (d *Device) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	d.free("DestroyFramebuffer", unsafe.Pointer(framebuffer))
}

// CreateDescriptorSetLayout implements device.Resources
func (d *Device) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, error) {
	if err := d.call("CreateDescriptorSetLayout"); err != nil {
		return nil, err
	}
	return vk.DescriptorSetLayout(d.alloc("DescriptorSetLayout")), nil
}

// DestroyDescriptorSetLayout implements device.Resources
func (d *Device) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	d.free("DestroyDescriptorSetLayout", unsafe.Pointer(layout))
}

// CreateDescriptorPool implements device.Resources
func (d *Device) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, error) {
	if err := d.call("CreateDescriptorPool"); err != nil {
		return nil, err
	}
	pool := vk.DescriptorPool(d.alloc("DescriptorPool"))
	d.pools[pool] = &poolState{maxSets: info.MaxSets}
	return pool, nil
}

// DestroyDescriptorPool implements device.Resources
func (d *Device) DestroyDescriptorPool(pool vk.DescriptorPool) {
	d.free("DestroyDescriptorPool", unsafe.Pointer(pool))
	delete(d.pools, pool)
}

// AllocateDescriptorSets fails with ErrOutOfPoolMemory past the pool's MaxSets.
func (d *Device) AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo) ([]vk.DescriptorSet, error) {
	if err := d.call("AllocateDescriptorSets"); err != nil {
		return nil, err
	}
	pool, ok := d.pools[info.DescriptorPool]
	if !ok {
		return nil, errors.New("devicetest: allocate from unknown descriptor pool")
	}
	if pool.allocated+info.DescriptorSetCount > pool.maxSets {
		return nil, ErrOutOfPoolMemory
	}
	pool.allocated += info.DescriptorSetCount

	sets := make([]vk.DescriptorSet, info.DescriptorSetCount)
	for i := range sets {
		// sets are freed with their pool, so they are not tracked as live
		sets[i] = vk.DescriptorSet(newHandle())
	}
	return sets, nil
}

// UpdateDescriptorSets implements device.Resources
func (d *Device) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	d.calls = append(d.calls, "UpdateDescriptorSets")
	d.descriptors = append(d.descriptors, writes...)
}

// CreatePipelineLayout implements device.Resources
func (d *Device) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	if err := d.call("CreatePipelineLayout"); err != nil {
		return nil, err
	}
	return vk.PipelineLayout(d.alloc("PipelineLayout")), nil
}

// DestroyPipelineLayout implements device.Resources
func (d *Device) DestroyPipelineLayout(layout vk.PipelineLayout) {
	d.free("DestroyPipelineLayout", unsafe.Pointer(layout))
}

// CreateGraphicsPipelines implements device.Resources
func (d *Device) CreateGraphicsPipelines(infos []vk.GraphicsPipelineCreateInfo) ([]vk.Pipeline, error) {
	if err := d.call("CreateGraphicsPipelines"); err != nil {
		return nil, err
	}
	pipelines := make([]vk.Pipeline, len(infos))
	for i := range pipelines {
		pipelines[i] = vk.Pipeline(d.alloc("Pipeline"))
	}
	return pipelines, nil
}

// DestroyPipeline implements device.Resources
func (d *Device) DestroyPipeline(pipeline vk.Pipeline) {
	d.free("DestroyPipeline", unsafe.Pointer(pipeline))
}

// BeginCommandBuffer fails when cmd is already recording.
func (d *Device) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	if err := d.call("BeginCommandBuffer"); err != nil {
		return err
	}
	if d.recording[cmd] {
		return errors.New("devicetest: begin on a command buffer that is recording")
	}
	d.recording[cmd] = true
	return nil
}

// EndCommandBuffer fails when cmd is not recording.
func (d *Device) EndCommandBuffer(cmd vk.CommandBuffer) error {
	if err := d.call("EndCommandBuffer"); err != nil {
		return err
	}
	if !d.recording[cmd] {
		return errors.New("devicetest: end on a command buffer that is not recording")
	}
	d.recording[cmd] = false
	return nil
}

// QueueSubmit completes the work immediately and signals fence.
func (d *Device) QueueSubmit(submits []vk.SubmitInfo, fence vk.Fence) error {
	if err := d.call("QueueSubmit"); err != nil {
		return err
	}
	for _, s := range submits {
		for _, cmd := range s.PCommandBuffers {
			if d.recording[cmd] {
				return errors.New("devicetest: submitted a command buffer that is still recording")
			}
		}
	}
	d.submits = append(d.submits, submits...)
	if fence != nil {
		if d.fences[fence] {
			return errors.New("devicetest: submit with a fence that is already signalled")
		}
		d.fences[fence] = true
	}
	return nil
}

// QueueWaitIdle implements device.Recorder
func (d *Device) QueueWaitIdle() error {
	return d.call("QueueWaitIdle")
}

func (d *Device) mustRecord(op string, cmd vk.CommandBuffer) {
	d.calls = append(d.calls, op)
	if !d.recording[cmd] {
		panic(fmt.Sprintf("devicetest: %s outside of recording", op))
	}
}

// CmdPipelineBarrier implements device.Recorder
func (d *Device) CmdPipelineBarrier(cmd vk.CommandBuffer, src, dst vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier) {
	d.mustRecord("CmdPipelineBarrier", cmd)
	for _, b := range barriers {
		d.barriers = append(d.barriers, Barrier{Cmd: cmd, SrcStage: src, DstStage: dst, ImageMemoryBarrier: b})
	}
}

// CmdBeginRenderPass implements device.Recorder
func (d *Device) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	d.mustRecord("CmdBeginRenderPass", cmd)
}

// CmdEndRenderPass implements device.Recorder
func (d *Device) CmdEndRenderPass(cmd vk.CommandBuffer) {
	d.mustRecord("CmdEndRenderPass", cmd)
}

// CmdBindPipeline implements device.Recorder
func (d *Device) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	d.mustRecord("CmdBindPipeline", cmd)
}

// CmdBindDescriptorSets implements device.Recorder
func (d *Device) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet) {
	d.mustRecord(fmt.Sprintf("CmdBindDescriptorSets(%d)", firstSet), cmd)
}

// CmdSetViewport implements device.Recorder
func (d *Device) CmdSetViewport(cmd vk.CommandBuffer, viewports []vk.Viewport) {
	d.mustRecord("CmdSetViewport", cmd)
}

// CmdSetScissor implements device.Recorder
func (d *Device) CmdSetScissor(cmd vk.CommandBuffer, scissors []vk.Rect2D) {
	d.mustRecord("CmdSetScissor", cmd)
}

// CmdPushConstants implements device.Recorder
func (d *Device) CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	d.mustRecord("CmdPushConstants", cmd)
	d.pushed = append(d.pushed, append([]byte(nil), data...))
}

// CmdBindVertexBuffers implements device.Recorder
func (d *Device) CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	d.mustRecord("CmdBindVertexBuffers", cmd)
}

// CmdDraw implements device.Recorder
func (d *Device) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount uint32) {
	d.mustRecord("CmdDraw", cmd)
}

// CmdBlitImage implements device.Recorder
func (d *Device) CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	d.mustRecord("CmdBlitImage", cmd)
	d.blits = append(d.blits, Blit{Src: src, Dst: dst, SrcLayout: srcLayout, DstLayout: dstLayout, Regions: regions})
}

// CmdCopyBufferToImage implements device.Recorder
func (d *Device) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	d.mustRecord("CmdCopyBufferToImage", cmd)
}

// Surface implements device.Presenter
func (d *Device) Surface() vk.Surface {
	return nil
}

// SurfaceCapabilities implements device.Presenter
func (d *Device) SurfaceCapabilities() (vk.SurfaceCapabilities, error) {
	if err := d.call("SurfaceCapabilities"); err != nil {
		return vk.SurfaceCapabilities{}, err
	}
	return vk.SurfaceCapabilities{
		MinImageCount:           2,
		MaxImageCount:           8,
		CurrentExtent:           d.Extent,
		SupportedTransforms:     vk.SurfaceTransformFlags(vk.SurfaceTransformIdentityBit),
		CurrentTransform:        vk.SurfaceTransformIdentityBit,
		SupportedCompositeAlpha: vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit),
		SupportedUsageFlags:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
	}, nil
}

// SurfaceFormats implements device.Presenter
func (d *Device) SurfaceFormats() ([]vk.SurfaceFormat, error) {
	if err := d.call("SurfaceFormats"); err != nil {
		return nil, err
	}
	return []vk.SurfaceFormat{{
		Format:     vk.FormatB8g8r8a8Unorm,
		ColorSpace: vk.ColorSpaceSrgbNonlinear,
	}}, nil
}

// CreateSwapchain implements device.Presenter
func (d *Device) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	if err := d.call("CreateSwapchain"); err != nil {
		return nil, err
	}
	swapchain := vk.Swapchain(d.alloc("Swapchain"))
	images := make([]vk.Image, d.SwapchainLength)
	for i := range images {
		// owned by the swapchain
		images[i] = vk.Image(newHandle())
	}
	d.swapchain[swapchain] = images
	d.nextImage = 0
	return swapchain, nil
}

// SwapchainImages implements device.Presenter
func (d *Device) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	if err := d.call("SwapchainImages"); err != nil {
		return nil, err
	}
	return d.swapchain[swapchain], nil
}

// DestroySwapchain implements device.Presenter
func (d *Device) DestroySwapchain(swapchain vk.Swapchain) {
	d.free("DestroySwapchain", unsafe.Pointer(swapchain))
	delete(d.swapchain, swapchain)
}

// AcquireNextImage hands out swapchain images round robin.
func (d *Device) AcquireNextImage(swapchain vk.Swapchain, signal vk.Semaphore) (uint32, error) {
	if err := d.call("AcquireNextImage"); err != nil {
		return 0, err
	}
	n := uint32(len(d.swapchain[swapchain]))
	if n == 0 {
		return 0, errors.New("devicetest: acquire from unknown swapchain")
	}
	idx := d.nextImage % n
	d.nextImage++
	return idx, nil
}

// QueuePresent implements device.Presenter
func (d *Device) QueuePresent(info *vk.PresentInfo) error {
	if err := d.call("QueuePresent"); err != nil {
		return err
	}
	d.presents++
	return nil
}
