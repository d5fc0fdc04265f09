// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
	"github.com/devblok/phong/core/renderer"
	"github.com/devblok/phong/device/devicetest"
)

var testdata = packr.NewBox("./testdata")

var testConfig = renderer.Configuration{
	SwapchainSize:     3,
	Width:             800,
	Height:            600,
	VertexShader:      "shaders/phong.vert.spv",
	FragmentShader:    "shaders/phong.frag.spv",
	MaxDescriptorSets: 8,
}

func newContext(c *qt.C) (*core.Context, *devicetest.Device) {
	dev := devicetest.New()
	ctx, err := core.NewContext(dev, testdata)
	c.Assert(err, qt.IsNil)
	return ctx, dev
}

func newMainPass(c *qt.C) (*renderer.MainPass, *core.Context, *devicetest.Device) {
	ctx, dev := newContext(c)
	pass, err := renderer.NewMainPass(ctx, testConfig)
	c.Assert(err, qt.IsNil)
	return pass, ctx, dev
}

func recovered(f func()) (r interface{}) {
	defer func() {
		r = recover()
	}()
	f()
	return nil
}

func panicsWith(c *qt.C, f func(), target error) {
	c.Helper()
	r := recovered(f)
	c.Assert(r, qt.Not(qt.IsNil), qt.Commentf("expected a panic"))
	err, ok := r.(error)
	c.Assert(ok, qt.Equals, true, qt.Commentf("panic value %v is not an error", r))
	c.Assert(errors.Is(err, target), qt.Equals, true, qt.Commentf("got %v", err))
}

func contains(calls []string, call string) bool {
	for _, c := range calls {
		if c == call {
			return true
		}
	}
	return false
}

func TestMainPassCreate(t *testing.T) {
	c := qt.New(t)
	pass, ctx, dev := newMainPass(c)

	c.Assert(ctx.Refs(), qt.Equals, 1)
	c.Assert(pass.Extent(), qt.Equals, vk.Extent2D{Width: 800, Height: 600})

	img := pass.RenderImage()
	c.Assert(img.Extent(), qt.Equals, vk.Extent3D{Width: 800, Height: 600, Depth: 1})
	c.Assert(img.Format(), qt.Equals, renderer.ColorFormat)
	c.Assert(img.State(), qt.Equals, renderer.ColorAttachmentState)

	info, ok := dev.ImageInfo(img.Image())
	c.Assert(ok, qt.Equals, true)
	c.Assert(info.Usage&vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit), qt.Not(qt.Equals), vk.ImageUsageFlags(0))

	// shader modules do not outlive the pipeline
	c.Assert(contains(dev.Live(), "ShaderModule"), qt.Equals, false)
	c.Assert(contains(dev.Live(), "Pipeline"), qt.Equals, true)

	// one set went to the view matrix
	c.Assert(pass.DescriptorPool().Remaining(), qt.Equals, uint32(7))
}

func TestMainPassFrame(t *testing.T) {
	c := qt.New(t)
	pass, _, dev := newMainPass(c)

	before := len(dev.Calls())
	cmd, err := pass.BeginFrame(mgl32.Translate3D(0, 0, -5))
	c.Assert(err, qt.IsNil)
	c.Assert(cmd, qt.Not(qt.IsNil))
	c.Assert(pass.Recording(), qt.Equals, true)
	c.Assert(dev.Recording(cmd), qt.Equals, true)

	c.Assert(dev.Calls()[before:], qt.DeepEquals, []string{
		"WaitForFence",
		"WriteMemory",
		"BeginCommandBuffer",
		"CmdPipelineBarrier",
		"UpdateDescriptorSets",
		"CmdBeginRenderPass",
		"CmdBindDescriptorSets(1)",
		"CmdBindPipeline",
		"CmdSetViewport",
		"CmdSetScissor",
	})

	writes := dev.DescriptorWrites()
	last := writes[len(writes)-1]
	c.Assert(last.DescriptorType, qt.Equals, vk.DescriptorTypeUniformBuffer)
	c.Assert(last.PBufferInfo[0].Range, qt.Equals, vk.DeviceSize(64))

	before = len(dev.Calls())
	c.Assert(pass.EndFrame(), qt.IsNil)
	c.Assert(dev.Calls()[before:], qt.DeepEquals, []string{
		"CmdEndRenderPass",
		"EndCommandBuffer",
		"ResetFence",
		"QueueSubmit",
	})
	c.Assert(pass.Recording(), qt.Equals, false)

	submits := dev.Submits()
	frame := submits[len(submits)-1]
	c.Assert(frame.PCommandBuffers, qt.DeepEquals, []vk.CommandBuffer{cmd})
	c.Assert(frame.WaitSemaphoreCount, qt.Equals, uint32(0))
	c.Assert(frame.SignalSemaphoreCount, qt.Equals, uint32(0))

	// the fence of the first frame is waited on by the second
	for i := 0; i < 3; i++ {
		_, err := pass.BeginFrame(mgl32.Ident4())
		c.Assert(err, qt.IsNil)
		c.Assert(pass.EndFrame(), qt.IsNil)
	}
}

func TestMainPassBalancedRecording(t *testing.T) {
	c := qt.New(t)
	pass, _, _ := newMainPass(c)

	err := pass.EndFrame()
	c.Assert(errors.Is(err, renderer.ErrUnbalancedRecording), qt.Equals, true)
	c.Assert(core.IsKind(err, core.FrameOperationFailure), qt.Equals, true)

	_, err = pass.BeginFrame(mgl32.Ident4())
	c.Assert(err, qt.IsNil)
	_, err = pass.BeginFrame(mgl32.Ident4())
	c.Assert(errors.Is(err, renderer.ErrUnbalancedRecording), qt.Equals, true)
	c.Assert(err, qt.ErrorMatches, "begin frame: frame operation failure: unbalanced frame recording")

	// the first recording is still intact
	c.Assert(pass.Recording(), qt.Equals, true)
	c.Assert(pass.EndFrame(), qt.IsNil)
}

func TestMainPassFenceFailureKeepsFrameUsable(t *testing.T) {
	c := qt.New(t)
	pass, _, dev := newMainPass(c)

	dev.Fail("WaitForFence", errors.New("device lost"))
	_, err := pass.BeginFrame(mgl32.Ident4())
	c.Assert(err, qt.ErrorMatches, "wait for frame fence: frame operation failure: device lost")
	c.Assert(pass.Recording(), qt.Equals, false)

	_, err = pass.BeginFrame(mgl32.Ident4())
	c.Assert(err, qt.IsNil)
	c.Assert(pass.EndFrame(), qt.IsNil)
}

func TestMainPassDestroyOrder(t *testing.T) {
	c := qt.New(t)
	pass, ctx, dev := newMainPass(c)

	before := len(dev.Calls())
	pass.Destroy()
	c.Assert(dev.Calls()[before:], qt.DeepEquals, []string{
		"WaitIdle",
		// uniform buffer
		"DestroyBuffer", "FreeMemory",
		// depth image
		"DestroySampler", "DestroyImageView", "DestroyImage", "FreeMemory",
		// color image
		"DestroySampler", "DestroyImageView", "DestroyImage", "FreeMemory",
		"DestroyFramebuffer",
		"DestroyPipeline",
		"DestroyPipelineLayout",
		"DestroyDescriptorSetLayout",
		"DestroyDescriptorSetLayout",
		"DestroyDescriptorPool",
		"DestroyRenderPass",
		"FreeCommandBuffers",
		"DestroyFence",
	})
	c.Assert(ctx.Refs(), qt.Equals, 0)
	c.Assert(dev.Live(), qt.DeepEquals, []string{"CommandPool"})

	ctx.Destroy()
	c.Assert(dev.Live(), qt.HasLen, 0)
	panicsWith(c, pass.Destroy, core.ErrContextDestroyed)
}

func TestMainPassKeepsContextAlive(t *testing.T) {
	c := qt.New(t)
	pass, ctx, dev := newMainPass(c)

	panicsWith(c, ctx.Destroy, core.ErrContextInUse)
	c.Assert(dev.Destroyed(), qt.Equals, false)

	pass.Destroy()
	ctx.Destroy()
	c.Assert(dev.Destroyed(), qt.Equals, true)
}

func TestMainPassCreateFailureCleansUp(t *testing.T) {
	for _, op := range []string{
		"CreateImage",
		"CreateRenderPass",
		"CreateDescriptorSetLayout",
		"CreateDescriptorPool",
		"CreatePipelineLayout",
		"CreateShaderModule",
		"CreateGraphicsPipelines",
		"CreateFramebuffer",
		"CreateFence",
		"AllocateDescriptorSets",
	} {
		t.Run(op, func(t *testing.T) {
			c := qt.New(t)
			ctx, dev := newContext(c)
			dev.Fail(op, errors.New("out of device memory"))

			_, err := renderer.NewMainPass(ctx, testConfig)
			c.Assert(err, qt.ErrorMatches, ".*out of device memory")
			c.Assert(dev.Live(), qt.DeepEquals, []string{"CommandPool"})
			c.Assert(ctx.Refs(), qt.Equals, 0)
		})
	}
}

func TestMainPassMissingShader(t *testing.T) {
	c := qt.New(t)
	ctx, dev := newContext(c)

	cfg := testConfig
	cfg.FragmentShader = "shaders/missing.frag.spv"
	_, err := renderer.NewMainPass(ctx, cfg)
	c.Assert(core.IsKind(err, core.ShaderLoadFailure), qt.Equals, true)
	c.Assert(dev.Live(), qt.DeepEquals, []string{"CommandPool"})
}

func TestMainPassEndToEnd(t *testing.T) {
	c := qt.New(t)
	ctx, dev := newContext(c)

	pass, err := renderer.NewMainPass(ctx, testConfig)
	c.Assert(err, qt.IsNil)
	present, err := renderer.NewPresentPass(ctx, testConfig)
	c.Assert(err, qt.IsNil)
	c.Assert(ctx.Refs(), qt.Equals, 2)

	for frame := 0; frame < 5; frame++ {
		_, err := pass.BeginFrame(mgl32.Ident4())
		c.Assert(err, qt.IsNil)
		c.Assert(pass.EndFrame(), qt.IsNil)
		c.Assert(present.PresentImage(pass.RenderImage()), qt.IsNil)
		c.Assert(pass.RenderImage().State(), qt.Equals, renderer.ColorAttachmentState)
	}
	c.Assert(dev.Presents(), qt.Equals, 5)

	blits := dev.Blits()
	c.Assert(blits, qt.HasLen, 5)
	c.Assert(blits[0].Src, qt.Equals, pass.RenderImage().Image())
	c.Assert(blits[0].Regions[0].SrcOffsets[1], qt.Equals, vk.Offset3D{X: 800, Y: 600, Z: 1})

	present.Destroy()
	pass.Destroy()
	ctx.Destroy()
	c.Assert(dev.Live(), qt.HasLen, 0)
}
