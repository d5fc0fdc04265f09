// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/device"
)

// HostMemory is memory the CPU writes and the GPU sees without flushing.
const HostMemory = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

// Buffer is a device buffer bound to its own memory.
type Buffer struct {
	device   device.Resources
	buffer   vk.Buffer
	memory   vk.DeviceMemory
	size     vk.DeviceSize
	released bool
}

// CreateBuffer creates a buffer of size bytes backed by memory with props.
func (c *Context) CreateBuffer(usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags, size int) (*Buffer, error) {
	c.assertAlive()
	if size <= 0 {
		return nil, Fail(ResourceCreationFailure, "create buffer", errors.Errorf("invalid size %d", size))
	}

	buf := &Buffer{
		device: c.device,
		size:   vk.DeviceSize(size),
	}

	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        buf.size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var err error
	if buf.buffer, err = c.device.CreateBuffer(&bci); err != nil {
		return nil, Fail(ResourceCreationFailure, "create buffer", err)
	}

	req := c.device.BufferMemoryRequirements(buf.buffer)
	if buf.memory, err = c.device.AllocateMemory(req, props); err != nil {
		buf.Release(c)
		return nil, Fail(ResourceCreationFailure, "allocate buffer memory", err)
	}
	if err := c.device.BindBufferMemory(buf.buffer, buf.memory); err != nil {
		buf.Release(c)
		return nil, Fail(ResourceCreationFailure, "bind buffer memory", err)
	}
	return buf, nil
}

// Buffer returns the buffer handle
func (b *Buffer) Buffer() vk.Buffer {
	return b.buffer
}

// Memory returns the backing memory
func (b *Buffer) Memory() vk.DeviceMemory {
	return b.memory
}

// Size returns the buffer size in bytes
func (b *Buffer) Size() vk.DeviceSize {
	return b.size
}

// Write copies data to the start of host visible buffer memory.
func (b *Buffer) Write(data []byte) error {
	if vk.DeviceSize(len(data)) > b.size {
		return Fail(FrameOperationFailure, "write buffer", errors.Errorf("%d bytes do not fit %d byte buffer", len(data), b.size))
	}
	if err := b.device.WriteMemory(b.memory, 0, data); err != nil {
		return Fail(FrameOperationFailure, "write buffer", err)
	}
	return nil
}

// WriteMatrix writes m in column major order.
func (b *Buffer) WriteMatrix(m mgl32.Mat4) error {
	return b.Write(MatrixBytes(m))
}

// Release destroys the buffer and frees its memory.
func (b *Buffer) Release(c *Context) {
	c.assertAlive()
	if b.released {
		panic(ErrReleased)
	}
	b.released = true
	if b.buffer != nil {
		c.device.DestroyBuffer(b.buffer)
	}
	if b.memory != nil {
		c.device.FreeMemory(b.memory)
	}
}
