// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
)

// FlatNormal is a tangent space normal pointing straight out of the surface.
var FlatNormal = color.NRGBA{R: 128, G: 128, B: 255, A: 255}

// Flat returns a 1x1 image of c, used when a texture is not available.
func Flat(c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, c)
	return img
}

// Material is a colour and normal texture pair bound at set 0.
type Material struct {
	Color  *core.Texture
	Normal *core.Texture
	Set    vk.DescriptorSet
}

// NewMaterial uploads both images and allocates the material's descriptor set.
func NewMaterial(ctx *core.Context, alloc MaterialAllocator, color, normal image.Image) (*Material, error) {
	m := &Material{}
	var err error
	if m.Color, err = ctx.UploadTexture(color); err != nil {
		return nil, errors.Wrap(err, "color texture")
	}
	if m.Normal, err = ctx.UploadTexture(normal); err != nil {
		m.Color.Release(ctx)
		return nil, errors.Wrap(err, "normal texture")
	}
	if m.Set, err = alloc.NewMaterial(m.Color, m.Normal); err != nil {
		m.Release(ctx)
		return nil, err
	}
	return m, nil
}

// Release frees both textures. The descriptor set goes back with its pool.
func (m *Material) Release(ctx *core.Context) {
	if m.Color != nil {
		m.Color.Release(ctx)
		m.Color = nil
	}
	if m.Normal != nil {
		m.Normal.Release(ctx)
		m.Normal = nil
	}
}
