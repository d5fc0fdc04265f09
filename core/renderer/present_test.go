// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
	"github.com/devblok/phong/core/renderer"
	"github.com/devblok/phong/device"
	"github.com/devblok/phong/device/devicetest"
)

func newPresentPass(c *qt.C) (*renderer.PresentPass, *core.Texture, *core.Context, *devicetest.Device) {
	ctx, dev := newContext(c)
	present, err := renderer.NewPresentPass(ctx, testConfig)
	c.Assert(err, qt.IsNil)

	img, err := ctx.CreateTexture(core.TextureInfo{
		Extent:    vk.Extent3D{Width: testConfig.Width, Height: testConfig.Height, Depth: 1},
		ImageType: vk.ImageType2d,
		ViewType:  vk.ImageViewType2d,
		Format:    renderer.ColorFormat,
		Aspect:    vk.ImageAspectFlags(vk.ImageAspectColorBit),
		Usage:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit),
		Initial:   renderer.ColorAttachmentState,
	})
	c.Assert(err, qt.IsNil)
	return present, img, ctx, dev
}

func TestPresentPassCreate(t *testing.T) {
	c := qt.New(t)
	dev := devicetest.New()
	dev.Extent = vk.Extent2D{Width: 1024, Height: 768}
	dev.SwapchainLength = 2
	ctx, err := core.NewContext(dev, testdata)
	c.Assert(err, qt.IsNil)

	present, err := renderer.NewPresentPass(ctx, testConfig)
	c.Assert(err, qt.IsNil)
	c.Assert(ctx.Refs(), qt.Equals, 1)
	c.Assert(present.Extent(), qt.Equals, vk.Extent2D{Width: 1024, Height: 768})
	c.Assert(present.Format(), qt.Equals, vk.FormatB8g8r8a8Unorm)
	c.Assert(present.Images(), qt.HasLen, 2)
	for _, img := range present.Images() {
		c.Assert(img.State(), qt.Equals, core.UndefinedState)
		c.Assert(img.Extent(), qt.Equals, vk.Extent3D{Width: 1024, Height: 768, Depth: 1})
	}
}

func TestPresentImage(t *testing.T) {
	c := qt.New(t)
	present, img, _, dev := newPresentPass(c)

	c.Assert(present.PresentImage(img), qt.IsNil)
	c.Assert(dev.Presents(), qt.Equals, 1)

	target := present.Images()[0]
	var states []vk.ImageLayout
	var images []vk.Image
	for _, b := range dev.Barriers() {
		if b.Image == img.Image() || b.Image == target.Image() {
			states = append(states, b.NewLayout)
			images = append(images, b.Image)
		}
	}
	// the first barrier is the color attachment transition at creation
	c.Assert(states[1:], qt.DeepEquals, []vk.ImageLayout{
		vk.ImageLayoutTransferSrcOptimal,
		vk.ImageLayoutTransferDstOptimal,
		vk.ImageLayoutPresentSrc,
		vk.ImageLayoutColorAttachmentOptimal,
	})
	c.Assert(images[1:], qt.DeepEquals, []vk.Image{img.Image(), target.Image(), target.Image(), img.Image()})

	c.Assert(target.State(), qt.Equals, renderer.PresentState)
	c.Assert(img.State(), qt.Equals, renderer.ColorAttachmentState)

	blits := dev.Blits()
	c.Assert(blits, qt.HasLen, 1)
	c.Assert(blits[0].Dst, qt.Equals, target.Image())
	c.Assert(blits[0].SrcLayout, qt.Equals, vk.ImageLayoutTransferSrcOptimal)
	c.Assert(blits[0].DstLayout, qt.Equals, vk.ImageLayoutTransferDstOptimal)
	c.Assert(blits[0].Regions[0].DstOffsets[1], qt.Equals, vk.Offset3D{X: 800, Y: 600, Z: 1})

	submits := dev.Submits()
	blit := submits[len(submits)-1]
	c.Assert(blit.WaitSemaphoreCount, qt.Equals, uint32(1))
	c.Assert(blit.PWaitDstStageMask, qt.DeepEquals, []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTransferBit)})
	c.Assert(blit.SignalSemaphoreCount, qt.Equals, uint32(1))
}

func TestPresentImageRoundRobin(t *testing.T) {
	c := qt.New(t)
	present, img, _, dev := newPresentPass(c)

	for i := 0; i < 4; i++ {
		c.Assert(present.PresentImage(img), qt.IsNil)
	}
	blits := dev.Blits()
	c.Assert(blits, qt.HasLen, 4)
	c.Assert(blits[3].Dst, qt.Equals, present.Images()[0].Image())

	// a presented image goes back to transfer destination from present source
	var fromPresent int
	for _, b := range dev.Barriers() {
		if b.OldLayout == vk.ImageLayoutPresentSrc && b.NewLayout == vk.ImageLayoutTransferDstOptimal {
			fromPresent++
		}
	}
	c.Assert(fromPresent, qt.Equals, 1)
}

func TestPresentOutOfDate(t *testing.T) {
	for _, op := range []string{"AcquireNextImage", "QueuePresent"} {
		t.Run(op, func(t *testing.T) {
			c := qt.New(t)
			present, img, _, dev := newPresentPass(c)
			old := present.Images()[0].Image()

			dev.Extent = vk.Extent2D{Width: 640, Height: 480}
			dev.Fail(op, errors.Wrap(device.ErrOutOfDate, "vk.QueuePresent()"))
			c.Assert(present.PresentImage(img), qt.IsNil)

			c.Assert(present.Recreated(), qt.Equals, 1)
			c.Assert(present.Extent(), qt.Equals, vk.Extent2D{Width: 640, Height: 480})
			c.Assert(present.Images()[0].Image(), qt.Not(qt.Equals), old)
			c.Assert(countCalls(dev, "DestroySwapchain"), qt.Equals, 1)
			c.Assert(countCalls(dev, "WaitIdle"), qt.Equals, 1)

			// the next frame goes through on the new swapchain
			c.Assert(present.PresentImage(img), qt.IsNil)
		})
	}
}

func TestPresentAcquireFailure(t *testing.T) {
	c := qt.New(t)
	present, img, _, dev := newPresentPass(c)

	dev.Fail("AcquireNextImage", errors.New("surface lost"))
	err := present.PresentImage(img)
	c.Assert(err, qt.ErrorMatches, "acquire next image: frame operation failure: surface lost")
	c.Assert(core.IsKind(err, core.FrameOperationFailure), qt.Equals, true)

	// the fence is untouched, so presenting again does not hang
	c.Assert(present.PresentImage(img), qt.IsNil)
}

func TestPresentPassDestroy(t *testing.T) {
	c := qt.New(t)
	present, img, ctx, dev := newPresentPass(c)
	img.Release(ctx)

	panicsWith(c, ctx.Destroy, core.ErrContextInUse)

	present.Destroy()
	c.Assert(ctx.Refs(), qt.Equals, 0)
	c.Assert(dev.Live(), qt.DeepEquals, []string{"CommandPool"})

	ctx.Destroy()
	panicsWith(c, present.Destroy, core.ErrContextDestroyed)
}
