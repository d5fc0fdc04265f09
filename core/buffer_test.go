// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
)

func TestCreateBuffer(t *testing.T) {
	c := qt.New(t)
	ctx, dev := newContext(c)

	buf, err := ctx.CreateBuffer(vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), core.HostMemory, 64)
	c.Assert(err, qt.IsNil)
	c.Assert(buf.Size(), qt.Equals, vk.DeviceSize(64))

	m := mgl32.Translate3D(1, 2, 3)
	c.Assert(buf.WriteMatrix(m), qt.IsNil)
	c.Assert(dev.Memory(buf.Memory())[:64], qt.DeepEquals, core.MatrixBytes(m))

	err = buf.Write(make([]byte, 65))
	c.Assert(err, qt.ErrorMatches, "write buffer: frame operation failure: 65 bytes do not fit 64 byte buffer")

	before := len(dev.Calls())
	buf.Release(ctx)
	c.Assert(dev.Calls()[before:], qt.DeepEquals, []string{"DestroyBuffer", "FreeMemory"})
	panicsWith(c, func() { buf.Release(ctx) }, core.ErrReleased)

	ctx.Destroy()
	c.Assert(dev.Live(), qt.HasLen, 0)
}

func TestCreateBufferInvalidSize(t *testing.T) {
	c := qt.New(t)
	ctx, _ := newContext(c)

	_, err := ctx.CreateBuffer(vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), core.HostMemory, 0)
	c.Assert(err, qt.ErrorMatches, "create buffer: resource creation failure: invalid size 0")
}

func TestCreateBufferCleansUp(t *testing.T) {
	c := qt.New(t)
	ctx, dev := newContext(c)

	dev.Fail("AllocateMemory", errors.New("out of host memory"))
	_, err := ctx.CreateBuffer(vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), core.HostMemory, 16)
	c.Assert(err, qt.ErrorMatches, "allocate buffer memory: resource creation failure: out of host memory")
	c.Assert(core.IsKind(err, core.ResourceCreationFailure), qt.Equals, true)
	c.Assert(dev.Live(), qt.DeepEquals, []string{"CommandPool"})
}
