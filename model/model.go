// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model

import (
	"math"
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	vk "github.com/vulkan-go/vulkan"
)

// Vertex is a model vertex, interleaved the way the shaders read it
type Vertex struct {
	Position  glm.Vec3
	Normal    glm.Vec3
	Tangent   glm.Vec3
	Bitangent glm.Vec3
	TexCoord  glm.Vec2
}

// VertexSize is the stride of one Vertex in a vertex buffer
const VertexSize = uint32(unsafe.Sizeof(Vertex{}))

// PushConstants are pushed once per drawable, vertex stage only
type PushConstants struct {
	Model      glm.Mat4
	Projection glm.Mat4
}

// PushConstantsSize is the size of the push constant range
const PushConstantsSize = uint32(unsafe.Sizeof(PushConstants{}))

// Bytes returns the block as laid out in the shader.
func (p PushConstants) Bytes() []byte {
	out := make([]byte, PushConstantsSize)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&p)), PushConstantsSize))
	return out
}

// VertexBindingDescriptions return Vulkan Vertex descriptors
func VertexBindingDescriptions() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    VertexSize,
		InputRate: vk.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions return Vulkan attribute descriptors
func VertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Normal)),
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Tangent)),
		},
		{
			Binding:  0,
			Location: 3,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.Bitangent)),
		},
		{
			Binding:  0,
			Location: 4,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex{}.TexCoord)),
		},
	}
}

// Mesh is a triangle list ready for upload
type Mesh struct {
	Name     string
	Vertices []Vertex
}

// VertexCount is the number of vertices to draw.
func (m *Mesh) VertexCount() uint32 {
	return uint32(len(m.Vertices))
}

// Bytes returns the vertex buffer contents.
func (m *Mesh) Bytes() []byte {
	if len(m.Vertices) == 0 {
		return nil
	}
	size := len(m.Vertices) * int(VertexSize)
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&m.Vertices[0])), size))
	return out
}

// GenerateTangents fills the tangent and bitangent of every triangle
// from its positions and texture coordinates. Triangles without usable
// texture coordinates get an arbitrary basis perpendicular to the normal.
func GenerateTangents(vertices []Vertex) {
	for i := 0; i+2 < len(vertices); i += 3 {
		v0, v1, v2 := &vertices[i], &vertices[i+1], &vertices[i+2]
		e1 := v1.Position.Sub(v0.Position)
		e2 := v2.Position.Sub(v0.Position)
		duv1 := v1.TexCoord.Sub(v0.TexCoord)
		duv2 := v2.TexCoord.Sub(v0.TexCoord)

		var tangent, bitangent glm.Vec3
		f := duv1.X()*duv2.Y() - duv2.X()*duv1.Y()
		if math.Abs(float64(f)) < 1e-8 {
			tangent, bitangent = orthonormalBasis(v0.Normal)
		} else {
			r := 1 / f
			tangent = e1.Mul(duv2.Y()).Sub(e2.Mul(duv1.Y())).Mul(r).Normalize()
			bitangent = e2.Mul(duv1.X()).Sub(e1.Mul(duv2.X())).Mul(r).Normalize()
		}
		for _, v := range []*Vertex{v0, v1, v2} {
			v.Tangent = tangent
			v.Bitangent = bitangent
		}
	}
}

func orthonormalBasis(n glm.Vec3) (glm.Vec3, glm.Vec3) {
	if n.Len() == 0 {
		return glm.Vec3{1, 0, 0}, glm.Vec3{0, 1, 0}
	}
	n = n.Normalize()
	up := glm.Vec3{0, 1, 0}
	if math.Abs(float64(n.Dot(up))) > 0.99 {
		up = glm.Vec3{1, 0, 0}
	}
	t := up.Cross(n).Normalize()
	return t, n.Cross(t)
}
