// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package devicetest_test

import (
	"reflect"
	"testing"

	qt "github.com/frankban/quicktest"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/device/devicetest"
)

func TestHandlesSurviveReflection(t *testing.T) {
	c := qt.New(t)
	dev := devicetest.New()

	fence, err := dev.CreateFence(true)
	c.Assert(err, qt.IsNil)
	c.Assert(reflect.ValueOf(fence).Pointer(), qt.Not(qt.Equals), uintptr(0))

	pool, err := dev.CreateCommandPool(&vk.CommandPoolCreateInfo{})
	c.Assert(err, qt.IsNil)
	cmds, err := dev.AllocateCommandBuffers(&vk.CommandBufferAllocateInfo{
		CommandPool:        pool,
		CommandBufferCount: 2,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(cmds, qt.DeepEquals, []vk.CommandBuffer{cmds[0], cmds[1]})
	c.Assert(cmds[0], qt.Not(qt.Equals), cmds[1])

	swapchain, err := dev.CreateSwapchain(&vk.SwapchainCreateInfo{})
	c.Assert(err, qt.IsNil)
	images, err := dev.SwapchainImages(swapchain)
	c.Assert(err, qt.IsNil)
	c.Assert(images, qt.HasLen, 3)
	for _, img := range images {
		c.Assert(reflect.ValueOf(img).Pointer(), qt.Not(qt.Equals), uintptr(0))
	}

	dev.FreeCommandBuffers(pool, cmds)
	dev.DestroyCommandPool(pool)
	dev.DestroyFence(fence)
	dev.DestroySwapchain(swapchain)
	c.Assert(dev.Live(), qt.HasLen, 0)
}

func TestHandlesAreUnique(t *testing.T) {
	c := qt.New(t)
	seen := map[vk.Fence]bool{}
	for i := 0; i < 100; i++ {
		fence, err := devicetest.New().CreateFence(false)
		c.Assert(err, qt.IsNil)
		c.Assert(seen[fence], qt.Equals, false)
		seen[fence] = true
	}
}
