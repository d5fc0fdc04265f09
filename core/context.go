// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/device"
)

// Context is the device context every GPU resource is created through.
// It owns the device and one command pool. Components that keep resources
// created through it Retain the context and Release it on teardown, and the
// context refuses to be destroyed while any of them is still around.
type Context struct {
	device device.Device
	pool   vk.CommandPool
	assets AssetSource

	refs      int
	destroyed bool

	log *log.Entry
}

// NewContext creates the command pool for the device's graphics queue.
// Shader bytecode is read from assets.
func NewContext(dev device.Device, assets AssetSource) (*Context, error) {
	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: dev.QueueFamilyIndex(),
	}
	pool, err := dev.CreateCommandPool(&cpci)
	if err != nil {
		return nil, Fail(ResourceCreationFailure, "create command pool", err)
	}

	return &Context{
		device: dev,
		pool:   pool,
		assets: assets,
		log:    log.WithField("component", "context"),
	}, nil
}

// Device returns the device the context records through.
func (c *Context) Device() device.Device {
	return c.device
}

// Queue returns the graphics queue.
func (c *Context) Queue() vk.Queue {
	return c.device.Queue()
}

// CommandPool returns the context's command pool.
func (c *Context) CommandPool() vk.CommandPool {
	return c.pool
}

// Assets returns the source shaders are read from.
func (c *Context) Assets() AssetSource {
	return c.assets
}

// Retain registers a dependent component.
func (c *Context) Retain() {
	c.assertAlive()
	c.refs++
}

// Release unregisters a dependent component.
func (c *Context) Release() {
	c.assertAlive()
	if c.refs == 0 {
		panic(errors.New("core: Context.Release without a matching Retain"))
	}
	c.refs--
}

// Refs is the number of dependents currently registered.
func (c *Context) Refs() int {
	return c.refs
}

// Destroyed reports whether Destroy completed.
func (c *Context) Destroyed() bool {
	return c.destroyed
}

// Destroy waits for the device to go idle, destroys the command pool and
// then the device. It panics with ErrContextInUse while dependents are registered.
func (c *Context) Destroy() {
	if c.destroyed {
		return
	}
	if c.refs > 0 {
		panic(errors.Wrapf(ErrContextInUse, "destroy with %d dependent(s)", c.refs))
	}
	if err := c.device.WaitIdle(); err != nil {
		c.log.WithError(err).Error("wait idle before destroy")
	}
	c.device.DestroyCommandPool(c.pool)
	c.device.Destroy()
	c.destroyed = true
	c.log.Debug("destroyed")
}

func (c *Context) assertAlive() {
	if c.destroyed {
		panic(ErrContextDestroyed)
	}
}

// AllocateCommandBuffer allocates a primary command buffer from the context's pool.
func (c *Context) AllocateCommandBuffer() (vk.CommandBuffer, error) {
	c.assertAlive()
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        c.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers, err := c.device.AllocateCommandBuffers(&cbai)
	if err != nil {
		return nil, Fail(ResourceCreationFailure, "allocate command buffer", err)
	}
	return buffers[0], nil
}

// FreeCommandBuffer returns cmd to the context's pool.
func (c *Context) FreeCommandBuffer(cmd vk.CommandBuffer) {
	c.device.FreeCommandBuffers(c.pool, []vk.CommandBuffer{cmd})
}

// submitOnce records fn into a fresh command buffer, submits it and
// waits for the queue to finish before freeing the buffer.
func (c *Context) submitOnce(fn func(cmd vk.CommandBuffer) error) error {
	cmd, err := c.AllocateCommandBuffer()
	if err != nil {
		return err
	}
	defer c.FreeCommandBuffer(cmd)

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := c.device.BeginCommandBuffer(cmd, &cbbi); err != nil {
		return err
	}
	if err := fn(cmd); err != nil {
		c.device.EndCommandBuffer(cmd)
		return err
	}
	if err := c.device.EndCommandBuffer(cmd); err != nil {
		return err
	}

	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}}
	if err := c.device.QueueSubmit(submit, nil); err != nil {
		return err
	}
	return c.device.QueueWaitIdle()
}

// TransitionTexture moves tex into target. With a command buffer the barrier
// is recorded into it; with nil a one-off command buffer is submitted and
// waited on. The tracked state always equals target afterwards, a transition
// to the current state records a no-op barrier. A target without a pipeline
// stage is rejected.
func (c *Context) TransitionTexture(tex *Texture, target UsageState, cmd vk.CommandBuffer) error {
	c.assertAlive()
	if target.Stage == 0 {
		return Fail(FrameOperationFailure, "transition texture", errNoStage)
	}
	if cmd != nil {
		c.recordTransition(cmd, tex, target)
		return nil
	}

	previous := tex.state
	if err := c.submitOnce(func(cmd vk.CommandBuffer) error {
		c.recordTransition(cmd, tex, target)
		return nil
	}); err != nil {
		tex.state = previous
		return Fail(FrameOperationFailure, "transition texture", err)
	}
	return nil
}

func (c *Context) recordTransition(cmd vk.CommandBuffer, tex *Texture, target UsageState) {
	barrier := tex.barrier(target)
	c.device.CmdPipelineBarrier(cmd, tex.state.Stage, target.Stage, []vk.ImageMemoryBarrier{barrier})
	tex.state = target
}

// CopyBufferToTexture copies the whole of buf into tex with a one-off
// command buffer. tex must be in the transfer destination layout.
func (c *Context) CopyBufferToTexture(buf *Buffer, tex *Texture) error {
	c.assertAlive()
	if tex.state.Layout != vk.ImageLayoutTransferDstOptimal {
		return Fail(FrameOperationFailure, "copy buffer to texture", errors.Errorf("texture in layout %d, want transfer destination", tex.state.Layout))
	}
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: tex.aspect,
			LayerCount: 1,
		},
		ImageExtent: tex.extent,
	}
	if err := c.submitOnce(func(cmd vk.CommandBuffer) error {
		c.device.CmdCopyBufferToImage(cmd, buf.buffer, tex.image, vk.ImageLayoutTransferDstOptimal, []vk.BufferImageCopy{region})
		return nil
	}); err != nil {
		return Fail(FrameOperationFailure, "copy buffer to texture", err)
	}
	return nil
}
