// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// BeginCommandBuffer implements Recorder
func (v *Vulkan) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	return check(vk.BeginCommandBuffer(cmd, info), "vk.BeginCommandBuffer()")
}

// EndCommandBuffer implements Recorder
func (v *Vulkan) EndCommandBuffer(cmd vk.CommandBuffer) error {
	return check(vk.EndCommandBuffer(cmd), "vk.EndCommandBuffer()")
}

// QueueSubmit submits to the graphics queue
func (v *Vulkan) QueueSubmit(submits []vk.SubmitInfo, fence vk.Fence) error {
	return check(vk.QueueSubmit(v.queue, uint32(len(submits)), submits, fence), "vk.QueueSubmit()")
}

// QueueWaitIdle waits for the graphics queue to drain
func (v *Vulkan) QueueWaitIdle() error {
	return check(vk.QueueWaitIdle(v.queue), "vk.QueueWaitIdle()")
}

// CmdPipelineBarrier implements Recorder
func (v *Vulkan) CmdPipelineBarrier(cmd vk.CommandBuffer, src, dst vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cmd, src, dst, 0, 0, nil, 0, nil, uint32(len(barriers)), barriers)
}

// CmdBeginRenderPass implements Recorder
func (v *Vulkan) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(cmd, info, vk.SubpassContentsInline)
}

// CmdEndRenderPass implements Recorder
func (v *Vulkan) CmdEndRenderPass(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

// CmdBindPipeline implements Recorder
func (v *Vulkan) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
}

// CmdBindDescriptorSets implements Recorder
func (v *Vulkan) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, layout, firstSet, uint32(len(sets)), sets, 0, nil)
}

// CmdSetViewport implements Recorder
func (v *Vulkan) CmdSetViewport(cmd vk.CommandBuffer, viewports []vk.Viewport) {
	vk.CmdSetViewport(cmd, 0, uint32(len(viewports)), viewports)
}

// CmdSetScissor implements Recorder
func (v *Vulkan) CmdSetScissor(cmd vk.CommandBuffer, scissors []vk.Rect2D) {
	vk.CmdSetScissor(cmd, 0, uint32(len(scissors)), scissors)
}

// CmdPushConstants implements Recorder
func (v *Vulkan) CmdPushConstants(cmd vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(cmd, layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

// CmdBindVertexBuffers implements Recorder
func (v *Vulkan) CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(cmd, 0, uint32(len(buffers)), buffers, offsets)
}

// CmdDraw implements Recorder
func (v *Vulkan) CmdDraw(cmd vk.CommandBuffer, vertexCount, instanceCount uint32) {
	vk.CmdDraw(cmd, vertexCount, instanceCount, 0, 0)
}

// CmdBlitImage implements Recorder
func (v *Vulkan) CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	vk.CmdBlitImage(cmd, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions, filter)
}

// CmdCopyBufferToImage implements Recorder
func (v *Vulkan) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cmd, src, dst, layout, uint32(len(regions)), regions)
}
