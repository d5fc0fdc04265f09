// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package renderer_test

import (
	"image"
	"image/color"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
	"github.com/devblok/phong/core/renderer"
	"github.com/devblok/phong/device/devicetest"
)

func countCalls(dev *devicetest.Device, op string) int {
	var n int
	for _, call := range dev.Calls() {
		if call == op {
			n++
		}
	}
	return n
}

func TestDescriptorPoolRejectsExtraSet(t *testing.T) {
	c := qt.New(t)
	ctx, dev := newContext(c)

	const maxSets = 4
	pool, err := renderer.NewDescriptorPool(ctx, maxSets)
	c.Assert(err, qt.IsNil)
	c.Assert(pool.MaxSets(), qt.Equals, uint32(maxSets))

	for i := 0; i < maxSets; i++ {
		set, err := pool.Allocate(nil)
		c.Assert(err, qt.IsNil)
		c.Assert(set, qt.Not(qt.IsNil))
	}
	c.Assert(pool.Remaining(), qt.Equals, uint32(0))

	allocations := countCalls(dev, "AllocateDescriptorSets")
	_, err = pool.Allocate(nil)
	c.Assert(errors.Is(err, renderer.ErrPoolExhausted), qt.Equals, true)
	c.Assert(core.IsKind(err, core.ResourceCreationFailure), qt.Equals, true)
	c.Assert(err, qt.ErrorMatches, "allocate descriptor set: resource creation failure: 4 of 4 sets in use: descriptor pool exhausted")
	c.Assert(countCalls(dev, "AllocateDescriptorSets"), qt.Equals, allocations)
}

func TestDescriptorPoolDeviceFailure(t *testing.T) {
	c := qt.New(t)
	ctx, dev := newContext(c)
	pool, err := renderer.NewDescriptorPool(ctx, 2)
	c.Assert(err, qt.IsNil)

	dev.Fail("AllocateDescriptorSets", devicetest.ErrOutOfPoolMemory)
	_, err = pool.Allocate(nil)
	c.Assert(errors.Is(err, devicetest.ErrOutOfPoolMemory), qt.Equals, true)
	// a failed allocation does not use up the pool
	c.Assert(pool.Remaining(), qt.Equals, uint32(2))
}

func TestDescriptorPoolTooSmall(t *testing.T) {
	c := qt.New(t)
	ctx, _ := newContext(c)
	_, err := renderer.NewDescriptorPool(ctx, 1)
	c.Assert(err, qt.ErrorMatches, "create descriptor pool: resource creation failure: need at least 2 sets, got 1")
}

func solid(c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestMainPassMaterials(t *testing.T) {
	c := qt.New(t)
	pass, ctx, dev := newMainPass(c)

	albedo, err := ctx.UploadTexture(solid(color.White))
	c.Assert(err, qt.IsNil)
	normal, err := ctx.UploadTexture(solid(color.NRGBA{R: 128, G: 128, B: 255, A: 255}))
	c.Assert(err, qt.IsNil)

	// the view matrix holds one set, the rest are for materials
	for i := uint32(1); i < testConfig.MaxDescriptorSets; i++ {
		_, err := pass.NewMaterial(albedo, normal)
		c.Assert(err, qt.IsNil)
	}
	_, err = pass.NewMaterial(albedo, normal)
	c.Assert(errors.Is(err, renderer.ErrPoolExhausted), qt.Equals, true)

	writes := dev.DescriptorWrites()
	c.Assert(writes, qt.HasLen, 2*int(testConfig.MaxDescriptorSets-1))
	for i, w := range writes {
		c.Assert(w.DescriptorType, qt.Equals, vk.DescriptorTypeCombinedImageSampler)
		c.Assert(w.DstBinding, qt.Equals, uint32(i%2))
		c.Assert(w.PImageInfo[0].ImageLayout, qt.Equals, vk.ImageLayoutShaderReadOnlyOptimal)
	}
	c.Assert(writes[1].PImageInfo[0].ImageView, qt.Equals, normal.View())

	albedo.Release(ctx)
	normal.Release(ctx)
	pass.Destroy()
	ctx.Destroy()
	c.Assert(dev.Live(), qt.HasLen, 0)
}

func TestMainPassMaterialNeedsShaderRead(t *testing.T) {
	c := qt.New(t)
	pass, ctx, dev := newMainPass(c)

	normal, err := ctx.UploadTexture(solid(color.NRGBA{R: 128, G: 128, B: 255, A: 255}))
	c.Assert(err, qt.IsNil)
	c.Assert(pass.RenderImage().State(), qt.Not(qt.Equals), core.ShaderReadState)

	remaining := pass.DescriptorPool().Remaining()
	allocations := countCalls(dev, "AllocateDescriptorSets")
	_, err = pass.NewMaterial(pass.RenderImage(), normal)
	c.Assert(errors.Is(err, renderer.ErrNotShaderReadable), qt.Equals, true)
	c.Assert(core.IsKind(err, core.ResourceCreationFailure), qt.Equals, true)
	c.Assert(err, qt.ErrorMatches, `new material: resource creation failure: binding 0 in layout \d+: texture not in shader read state`)

	_, err = pass.NewMaterial(normal, pass.RenderImage())
	c.Assert(err, qt.ErrorMatches, `new material: .*binding 1 .*`)

	c.Assert(pass.DescriptorPool().Remaining(), qt.Equals, remaining)
	c.Assert(countCalls(dev, "AllocateDescriptorSets"), qt.Equals, allocations)
	c.Assert(dev.DescriptorWrites(), qt.HasLen, 0)

	normal.Release(ctx)
	pass.Destroy()
	ctx.Destroy()
	c.Assert(dev.Live(), qt.HasLen, 0)
}
