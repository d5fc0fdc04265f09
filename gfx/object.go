// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
	"github.com/devblok/phong/model"
)

// Object is a mesh in a host visible vertex buffer drawn with one material.
// It spins around its y axis at Spin radians per second.
type Object struct {
	Name      string
	Transform mgl32.Mat4
	Spin      float32

	ctx      *core.Context
	vertices *core.Buffer
	count    uint32
	material *Material
	angle    float32
}

// NewObject uploads mesh into a new vertex buffer.
func NewObject(ctx *core.Context, mesh model.Mesh, material *Material) (*Object, error) {
	if len(mesh.Vertices) == 0 {
		return nil, core.Fail(core.ResourceCreationFailure, "create object", errors.Errorf("mesh %q has no vertices", mesh.Name))
	}
	data := mesh.Bytes()
	buf, err := ctx.CreateBuffer(vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), core.HostMemory, len(data))
	if err != nil {
		return nil, err
	}
	if err := buf.Write(data); err != nil {
		buf.Release(ctx)
		return nil, err
	}
	return &Object{
		Name:      mesh.Name,
		Transform: mgl32.Ident4(),
		ctx:       ctx,
		vertices:  buf,
		count:     mesh.VertexCount(),
		material:  material,
	}, nil
}

// Model is the object's current model matrix.
func (o *Object) Model() mgl32.Mat4 {
	return o.Transform.Mul4(mgl32.HomogRotate3DY(o.angle))
}

// Update turns the object by its spin.
func (o *Object) Update(dt time.Duration) {
	o.angle += o.Spin * float32(dt.Seconds())
}

// Draw binds the material at set 0, pushes the model and projection
// matrices and draws the vertex buffer.
func (o *Object) Draw(cmd vk.CommandBuffer, layout vk.PipelineLayout, projection mgl32.Mat4) {
	dev := o.ctx.Device()
	dev.CmdBindDescriptorSets(cmd, layout, 0, []vk.DescriptorSet{o.material.Set})
	pc := model.PushConstants{
		Model:      o.Model(),
		Projection: projection,
	}
	dev.CmdPushConstants(cmd, layout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, pc.Bytes())
	dev.CmdBindVertexBuffers(cmd, []vk.Buffer{o.vertices.Buffer()}, []vk.DeviceSize{0})
	dev.CmdDraw(cmd, o.count, 1)
}

// Release frees the vertex buffer. The material is not owned by the object.
func (o *Object) Release(ctx *core.Context) {
	if o.vertices != nil {
		o.vertices.Release(ctx)
		o.vertices = nil
	}
}
