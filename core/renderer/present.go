// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	"math"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
	"github.com/devblok/phong/device"
)

// PresentPass copies a rendered image onto the swapchain and presents it.
type PresentPass struct {
	ctx *core.Context
	cfg Configuration

	swapchain  vk.Swapchain
	format     vk.Format
	colorSpace vk.ColorSpace
	extent     vk.Extent2D
	images     []*core.Texture

	cmd      vk.CommandBuffer
	acquired vk.Semaphore
	blitted  vk.Semaphore
	fence    vk.Fence

	recreated int
	destroyed bool

	log *log.Entry
}

// NewPresentPass creates the swapchain and what a present needs to be synchronised.
func NewPresentPass(ctx *core.Context, cfg Configuration) (*PresentPass, error) {
	p := &PresentPass{
		ctx: ctx,
		cfg: cfg,
		log: log.WithField("component", "present"),
	}
	if err := p.create(); err != nil {
		p.release()
		return nil, err
	}
	ctx.Retain()
	p.log.WithFields(log.Fields{
		"images": len(p.images),
		"width":  p.extent.Width,
		"height": p.extent.Height,
	}).Debug("created")
	return p, nil
}

func (p *PresentPass) create() error {
	if err := p.createSwapchain(nil); err != nil {
		return err
	}

	dev := p.ctx.Device()
	var err error
	if p.cmd, err = p.ctx.AllocateCommandBuffer(); err != nil {
		return err
	}
	if p.acquired, err = dev.CreateSemaphore(); err != nil {
		return core.Fail(core.ResourceCreationFailure, "create semaphore", err)
	}
	if p.blitted, err = dev.CreateSemaphore(); err != nil {
		return core.Fail(core.ResourceCreationFailure, "create semaphore", err)
	}
	if p.fence, err = dev.CreateFence(true); err != nil {
		return core.Fail(core.ResourceCreationFailure, "create fence", err)
	}
	return nil
}

func (p *PresentPass) chooseFormat(formats []vk.SurfaceFormat) {
	p.format = formats[0].Format
	p.colorSpace = formats[0].ColorSpace
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		// the surface has no preference
		p.format = vk.FormatB8g8r8a8Unorm
		return
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			p.format = f.Format
			p.colorSpace = f.ColorSpace
			return
		}
	}
}

// createSwapchain creates a swapchain, retiring old if there is one.
func (p *PresentPass) createSwapchain(oldSwapchain vk.Swapchain) error {
	dev := p.ctx.Device()

	surfaceCapabilities, err := dev.SurfaceCapabilities()
	if err != nil {
		return core.Fail(core.ResourceCreationFailure, "surface capabilities", err)
	}
	formats, err := dev.SurfaceFormats()
	if err != nil {
		return core.Fail(core.ResourceCreationFailure, "surface formats", err)
	}
	if len(formats) == 0 {
		return core.Fail(core.ResourceCreationFailure, "surface formats", errors.New("surface reports no formats"))
	}
	p.chooseFormat(formats)

	p.extent = surfaceCapabilities.CurrentExtent
	if p.extent.Width == math.MaxUint32 {
		// the window decides, which here means the render size
		p.extent = vk.Extent2D{Width: p.cfg.Width, Height: p.cfg.Height}
	}

	imageCount := p.cfg.SwapchainSize
	if imageCount < surfaceCapabilities.MinImageCount {
		imageCount = surfaceCapabilities.MinImageCount
	}
	if limit := surfaceCapabilities.MaxImageCount; limit > 0 && imageCount > limit {
		imageCount = limit
	}

	// PreTransform
	var preTransform vk.SurfaceTransformFlagBits
	requiredTransform := vk.SurfaceTransformIdentityBit
	if vk.SurfaceTransformFlagBits(surfaceCapabilities.SupportedTransforms)&requiredTransform != 0 {
		preTransform = requiredTransform
	} else {
		preTransform = surfaceCapabilities.CurrentTransform
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	compositeAlphaFlags := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}

	// CompositeAlpha
	for i := 0; i < len(compositeAlphaFlags); i++ {
		alphaFlags := vk.CompositeAlphaFlags(compositeAlphaFlags[i])
		flagSupported := surfaceCapabilities.SupportedCompositeAlpha&alphaFlags != 0
		if flagSupported {
			compositeAlpha = compositeAlphaFlags[i]
			break
		}
	}

	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          dev.Surface(),
		MinImageCount:    imageCount,
		ImageFormat:      p.format,
		ImageColorSpace:  p.colorSpace,
		ImageExtent:      p.extent,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldSwapchain,
	}

	swapchain, err := dev.CreateSwapchain(&scci)
	if err != nil {
		return core.Fail(core.ResourceCreationFailure, "create swapchain", err)
	}
	if oldSwapchain != nil {
		dev.DestroySwapchain(oldSwapchain)
	}
	p.swapchain = swapchain

	images, err := dev.SwapchainImages(swapchain)
	if err != nil {
		return core.Fail(core.ResourceCreationFailure, "swapchain images", err)
	}
	p.images = p.images[:0]
	for _, img := range images {
		p.images = append(p.images, core.WrapImage(img,
			vk.Extent3D{Width: p.extent.Width, Height: p.extent.Height, Depth: 1},
			p.format,
			vk.ImageAspectFlags(vk.ImageAspectColorBit)))
	}
	return nil
}

func (p *PresentPass) recreateSwapchain() error {
	if err := p.ctx.Device().WaitIdle(); err != nil {
		return core.Fail(core.FrameOperationFailure, "wait idle before swapchain recreation", err)
	}
	if err := p.createSwapchain(p.swapchain); err != nil {
		return err
	}
	p.recreated++
	p.log.WithFields(log.Fields{
		"width":  p.extent.Width,
		"height": p.extent.Height,
	}).Info("swapchain recreated")
	return nil
}

// PresentImage blits img onto the next swapchain image and presents it.
// img must be a color image that is not being rendered into; it is left
// in the color attachment state. An out of date swapchain is recreated
// and the frame is dropped.
func (p *PresentPass) PresentImage(img *core.Texture) error {
	dev := p.ctx.Device()

	if err := dev.WaitForFence(p.fence, math.MaxUint64); err != nil {
		return core.Fail(core.FrameOperationFailure, "wait for present fence", err)
	}

	idx, err := dev.AcquireNextImage(p.swapchain, p.acquired)
	if errors.Is(err, device.ErrOutOfDate) {
		return p.recreateSwapchain()
	}
	if err != nil {
		return core.Fail(core.FrameOperationFailure, "acquire next image", err)
	}
	target := p.images[idx]

	cbbi := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := dev.BeginCommandBuffer(p.cmd, &cbbi); err != nil {
		return core.Fail(core.FrameOperationFailure, "begin command buffer", err)
	}
	p.record(img, target)
	if err := dev.EndCommandBuffer(p.cmd); err != nil {
		return core.Fail(core.FrameOperationFailure, "end command buffer", err)
	}

	if err := dev.ResetFence(p.fence); err != nil {
		return core.Fail(core.FrameOperationFailure, "reset present fence", err)
	}
	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{p.acquired},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{p.cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{p.blitted},
	}}
	if err := dev.QueueSubmit(submit, p.fence); err != nil {
		return core.Fail(core.FrameOperationFailure, "submit blit", err)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{p.blitted},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{p.swapchain},
		PImageIndices:      []uint32{idx},
	}
	err = dev.QueuePresent(&presentInfo)
	if errors.Is(err, device.ErrOutOfDate) {
		return p.recreateSwapchain()
	}
	if err != nil {
		return core.Fail(core.FrameOperationFailure, "present", err)
	}
	return nil
}

func (p *PresentPass) record(img, target *core.Texture) {
	dev := p.ctx.Device()

	// recording into a command buffer cannot fail
	p.ctx.TransitionTexture(img, TransferSrcState, p.cmd)
	p.ctx.TransitionTexture(target, TransferDstState, p.cmd)

	src, dst := img.Extent(), target.Extent()
	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask: img.Aspect(),
			LayerCount: 1,
		},
		SrcOffsets: [2]vk.Offset3D{{}, {X: int32(src.Width), Y: int32(src.Height), Z: 1}},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask: target.Aspect(),
			LayerCount: 1,
		},
		DstOffsets: [2]vk.Offset3D{{}, {X: int32(dst.Width), Y: int32(dst.Height), Z: 1}},
	}
	dev.CmdBlitImage(p.cmd,
		img.Image(), vk.ImageLayoutTransferSrcOptimal,
		target.Image(), vk.ImageLayoutTransferDstOptimal,
		[]vk.ImageBlit{region}, vk.FilterLinear)

	p.ctx.TransitionTexture(target, PresentState, p.cmd)
	p.ctx.TransitionTexture(img, ColorAttachmentState, p.cmd)
}

// Extent is the current swapchain size
func (p *PresentPass) Extent() vk.Extent2D {
	return p.extent
}

// Format is the swapchain image format
func (p *PresentPass) Format() vk.Format {
	return p.format
}

// Images returns the swapchain images
func (p *PresentPass) Images() []*core.Texture {
	return p.images
}

// Recreated is how many times the swapchain was recreated
func (p *PresentPass) Recreated() int {
	return p.recreated
}

// Destroy waits for the device to be idle, destroys the swapchain and the
// synchronisation objects, then releases the context. It panics if the
// context is already destroyed.
func (p *PresentPass) Destroy() {
	if p.ctx.Destroyed() {
		panic(errors.Wrap(core.ErrContextDestroyed, "destroy present pass"))
	}
	if p.destroyed {
		return
	}
	if err := p.ctx.Device().WaitIdle(); err != nil {
		p.log.WithError(err).Error("wait idle before destroy")
	}
	p.release()
	p.destroyed = true
	p.ctx.Release()
	p.log.Debug("destroyed")
}

func (p *PresentPass) release() {
	dev := p.ctx.Device()
	p.images = nil
	if p.swapchain != nil {
		dev.DestroySwapchain(p.swapchain)
		p.swapchain = nil
	}
	if p.acquired != nil {
		dev.DestroySemaphore(p.acquired)
		p.acquired = nil
	}
	if p.blitted != nil {
		dev.DestroySemaphore(p.blitted)
		p.blitted = nil
	}
	if p.fence != nil {
		dev.DestroyFence(p.fence)
		p.fence = nil
	}
	if p.cmd != nil {
		p.ctx.FreeCommandBuffer(p.cmd)
		p.cmd = nil
	}
}
