// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
)

// Configuration describes the renderer configuration
type Configuration struct {
	SwapchainSize uint32

	// Width and Height are the offscreen image size
	Width  uint32
	Height uint32

	VertexShader   string
	FragmentShader string

	MaxDescriptorSets uint32
}

// NewConfiguration takes the renderer part of the engine configuration.
func NewConfiguration(cfg core.RendererConfiguration) Configuration {
	return Configuration{
		SwapchainSize:     cfg.SwapchainSize,
		Width:             cfg.RenderWidth,
		Height:            cfg.RenderHeight,
		VertexShader:      cfg.VertexShader,
		FragmentShader:    cfg.FragmentShader,
		MaxDescriptorSets: cfg.MaxDescriptorSets,
	}
}

// Attachment formats of the offscreen pass
const (
	ColorFormat = vk.FormatR8g8b8a8Unorm
	DepthFormat = vk.FormatD32Sfloat
)

// ClearColor is what the color image is cleared to every frame
var ClearColor = []float32{0, 1, 0, 1}

// Usage states images move through during a frame
var (
	ColorAttachmentState = core.UsageState{
		Access: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
		Layout: vk.ImageLayoutColorAttachmentOptimal,
		Stage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
	}
	DepthAttachmentState = core.UsageState{
		Access: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		Layout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		Stage:  vk.PipelineStageFlags(vk.PipelineStageAllGraphicsBit),
	}
	TransferSrcState = core.UsageState{
		Access: vk.AccessFlags(vk.AccessTransferReadBit),
		Layout: vk.ImageLayoutTransferSrcOptimal,
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	}
	TransferDstState = core.UsageState{
		Access: vk.AccessFlags(vk.AccessTransferWriteBit),
		Layout: vk.ImageLayoutTransferDstOptimal,
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	}
	PresentState = core.UsageState{
		Layout: vk.ImageLayoutPresentSrc,
		Stage:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
	}
)
