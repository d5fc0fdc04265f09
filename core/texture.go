// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// UsageState is how an image was last used: the access, the layout
// it is in and the pipeline stage that used it.
type UsageState struct {
	Access vk.AccessFlags
	Layout vk.ImageLayout
	Stage  vk.PipelineStageFlags
}

// UndefinedState is the state of an image nothing has touched yet.
var UndefinedState = UsageState{
	Layout: vk.ImageLayoutUndefined,
	Stage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
}

var errNoStage = errors.New("usage state without a pipeline stage")

// TextureInfo describes a texture to create
type TextureInfo struct {
	Extent    vk.Extent3D
	ImageType vk.ImageType
	ViewType  vk.ImageViewType
	Format    vk.Format
	Aspect    vk.ImageAspectFlags
	Usage     vk.ImageUsageFlags

	// Initial is the state the texture is transitioned into before it is
	// returned. The zero value leaves it undefined.
	Initial UsageState
}

// Texture is an image together with its view, memory and sampler,
// and the usage state it was last transitioned into.
type Texture struct {
	image   vk.Image
	view    vk.ImageView
	memory  vk.DeviceMemory
	sampler vk.Sampler

	extent vk.Extent3D
	format vk.Format
	aspect vk.ImageAspectFlags
	state  UsageState

	owned    bool
	released bool
}

// CreateTexture creates an optimally tiled, device local image with a view
// and a linear sampler, and transitions it into info.Initial.
func (c *Context) CreateTexture(info TextureInfo) (*Texture, error) {
	c.assertAlive()
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return nil, Fail(ResourceCreationFailure, "create texture", errors.New("zero sized extent"))
	}
	if info.Extent.Depth == 0 {
		info.Extent.Depth = 1
	}
	if info.Initial == (UsageState{}) {
		info.Initial = UndefinedState
	}
	if info.Initial.Stage == 0 {
		return nil, Fail(ResourceCreationFailure, "create texture", errNoStage)
	}

	tex := &Texture{
		extent: info.Extent,
		format: info.Format,
		aspect: info.Aspect,
		state:  UndefinedState,
		owned:  true,
	}

	ici := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     info.ImageType,
		Format:        info.Format,
		Extent:        info.Extent,
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         info.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var err error
	if tex.image, err = c.device.CreateImage(&ici); err != nil {
		return nil, Fail(ResourceCreationFailure, "create image", err)
	}

	req := c.device.ImageMemoryRequirements(tex.image)
	if tex.memory, err = c.device.AllocateMemory(req, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)); err != nil {
		tex.Release(c)
		return nil, Fail(ResourceCreationFailure, "allocate image memory", err)
	}
	if err := c.device.BindImageMemory(tex.image, tex.memory); err != nil {
		tex.Release(c)
		return nil, Fail(ResourceCreationFailure, "bind image memory", err)
	}

	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    tex.image,
		ViewType: info.ViewType,
		Format:   info.Format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: tex.subresourceRange(),
	}
	if tex.view, err = c.device.CreateImageView(&ivci); err != nil {
		tex.Release(c)
		return nil, Fail(ResourceCreationFailure, "create image view", err)
	}

	sci := vk.SamplerCreateInfo{
		SType:         vk.StructureTypeSamplerCreateInfo,
		MagFilter:     vk.FilterLinear,
		MinFilter:     vk.FilterLinear,
		MipmapMode:    vk.SamplerMipmapModeLinear,
		AddressModeU:  vk.SamplerAddressModeRepeat,
		AddressModeV:  vk.SamplerAddressModeRepeat,
		AddressModeW:  vk.SamplerAddressModeRepeat,
		MaxAnisotropy: 1,
		CompareOp:     vk.CompareOpNever,
		BorderColor:   vk.BorderColorIntOpaqueBlack,
	}
	if tex.sampler, err = c.device.CreateSampler(&sci); err != nil {
		tex.Release(c)
		return nil, Fail(ResourceCreationFailure, "create sampler", err)
	}

	if info.Initial != UndefinedState {
		if err := c.TransitionTexture(tex, info.Initial, nil); err != nil {
			tex.Release(c)
			return nil, Fail(ResourceCreationFailure, "initial transition", err)
		}
	}
	return tex, nil
}

// WrapImage tracks an image owned by someone else, such as a swapchain,
// so it can be transitioned like any other texture. Releasing it only
// marks it released.
func WrapImage(image vk.Image, extent vk.Extent3D, format vk.Format, aspect vk.ImageAspectFlags) *Texture {
	return &Texture{
		image:  image,
		extent: extent,
		format: format,
		aspect: aspect,
		state:  UndefinedState,
	}
}

// Image returns the image handle
func (t *Texture) Image() vk.Image {
	return t.image
}

// View returns the image view
func (t *Texture) View() vk.ImageView {
	return t.view
}

// Sampler returns the sampler
func (t *Texture) Sampler() vk.Sampler {
	return t.sampler
}

// Extent returns the size of the image
func (t *Texture) Extent() vk.Extent3D {
	return t.extent
}

// Format returns the image format
func (t *Texture) Format() vk.Format {
	return t.format
}

// Aspect returns the aspect barriers and views use
func (t *Texture) Aspect() vk.ImageAspectFlags {
	return t.aspect
}

// State returns the tracked usage state
func (t *Texture) State() UsageState {
	return t.state
}

func (t *Texture) subresourceRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     t.aspect,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func (t *Texture) barrier(target UsageState) vk.ImageMemoryBarrier {
	return vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       t.state.Access,
		DstAccessMask:       target.Access,
		OldLayout:           t.state.Layout,
		NewLayout:           target.Layout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               t.image,
		SubresourceRange:    t.subresourceRange(),
	}
}

// Release destroys the sampler, view, image and memory in that order.
// Releasing twice panics.
func (t *Texture) Release(c *Context) {
	c.assertAlive()
	if t.released {
		panic(ErrReleased)
	}
	t.released = true
	if !t.owned {
		return
	}

	dev := c.device
	if t.sampler != nil {
		dev.DestroySampler(t.sampler)
	}
	if t.view != nil {
		dev.DestroyImageView(t.view)
	}
	if t.image != nil {
		dev.DestroyImage(t.image)
	}
	if t.memory != nil {
		dev.FreeMemory(t.memory)
	}
}
