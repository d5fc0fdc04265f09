// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"bytes"
	"encoding/binary"
	"image"
	_ "image/jpeg" // decoders for DecodeImage
	_ "image/png"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// SliceUint32 copies bytes into little endian words, that is used
// to submit vulkan shaders for processing. Trailing bytes that do not
// make up a whole word are dropped.
func SliceUint32(data []byte) []uint32 {
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words
}

// MatrixBytes lays matrices out back to back in column major order,
// as GLSL expects them in uniform buffers and push constants.
func MatrixBytes(ms ...mgl32.Mat4) []byte {
	const size = int(unsafe.Sizeof(mgl32.Mat4{}))
	out := make([]byte, 0, len(ms)*size)
	for i := range ms {
		out = append(out, (*[size]byte)(unsafe.Pointer(&ms[i]))[:]...)
	}
	return out
}

// DecodeImage decodes png, jpeg, bmp and tiff data.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return img, nil
}

// GetPixels transforms a given image into tightly packed RGBA pixels
// by drawing the decoded image onto a controlled canvas
func GetPixels(img image.Image) []uint8 {
	b := img.Bounds()
	newImg := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(newImg, newImg.Bounds(), img, b.Min, draw.Src)
	return newImg.Pix
}

// UploadTexture copies img into a new sampled R8G8B8A8 texture through a
// staging buffer and leaves it readable by fragment shaders.
func (c *Context) UploadTexture(img image.Image) (*Texture, error) {
	pixels := GetPixels(img)
	staging, err := c.CreateBuffer(vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), HostMemory, len(pixels))
	if err != nil {
		return nil, err
	}
	defer staging.Release(c)
	if err := staging.Write(pixels); err != nil {
		return nil, err
	}

	b := img.Bounds()
	tex, err := c.CreateTexture(TextureInfo{
		Extent:    vk.Extent3D{Width: uint32(b.Dx()), Height: uint32(b.Dy()), Depth: 1},
		ImageType: vk.ImageType2d,
		ViewType:  vk.ImageViewType2d,
		Format:    vk.FormatR8g8b8a8Unorm,
		Aspect:    vk.ImageAspectFlags(vk.ImageAspectColorBit),
		Usage:     vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		Initial: UsageState{
			Access: vk.AccessFlags(vk.AccessTransferWriteBit),
			Layout: vk.ImageLayoutTransferDstOptimal,
			Stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := c.CopyBufferToTexture(staging, tex); err != nil {
		tex.Release(c)
		return nil, err
	}
	if err := c.TransitionTexture(tex, ShaderReadState, nil); err != nil {
		tex.Release(c)
		return nil, err
	}
	return tex, nil
}

// ShaderReadState is the state of a texture sampled by fragment shaders.
var ShaderReadState = UsageState{
	Access: vk.AccessFlags(vk.AccessShaderReadBit),
	Layout: vk.ImageLayoutShaderReadOnlyOptimal,
	Stage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
}
