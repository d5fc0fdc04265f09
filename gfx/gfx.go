// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines what the main pass draws: drawables, their
// materials, the camera and the scene holding them.
package gfx

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
)

// Releasable defines any device-memory-occupying item that can be freed.
type Releasable interface {

	// Release frees what the item holds on the device. It must be
	// called before the context is destroyed.
	Release(ctx *core.Context)
}

// Drawable is anything the scene can advance and record draw commands for.
type Drawable interface {
	Releasable

	// Update advances the drawable by one fixed simulation step.
	Update(dt time.Duration)

	// Draw records the drawable into cmd, which is inside the main
	// render pass with the pipeline and the view set already bound.
	Draw(cmd vk.CommandBuffer, layout vk.PipelineLayout, projection mgl32.Mat4)
}

// MaterialAllocator hands out descriptor sets for a colour and normal texture pair.
type MaterialAllocator interface {
	NewMaterial(color, normal *core.Texture) (vk.DescriptorSet, error)
}
