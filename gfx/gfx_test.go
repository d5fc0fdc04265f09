// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx_test

import (
	"image/color"
	"math"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
	"github.com/devblok/phong/core/renderer"
	"github.com/devblok/phong/device/devicetest"
	"github.com/devblok/phong/gfx"
	"github.com/devblok/phong/model"
)

var shaders = packr.NewBox("../core/renderer/testdata")

var passConfig = renderer.Configuration{
	SwapchainSize:     3,
	Width:             800,
	Height:            600,
	VertexShader:      "shaders/phong.vert.spv",
	FragmentShader:    "shaders/phong.frag.spv",
	MaxDescriptorSets: 4,
}

var triangle = model.Mesh{
	Name: "triangle",
	Vertices: []model.Vertex{
		{Position: mgl32.Vec3{0, 1, 0}, Normal: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0.5, 0}},
		{Position: mgl32.Vec3{-1, -1, 0}, Normal: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{1, -1, 0}, Normal: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{1, 1}},
	},
}

func newPass(c *qt.C) (*renderer.MainPass, *core.Context, *devicetest.Device) {
	dev := devicetest.New()
	ctx, err := core.NewContext(dev, shaders)
	c.Assert(err, qt.IsNil)
	pass, err := renderer.NewMainPass(ctx, passConfig)
	c.Assert(err, qt.IsNil)
	return pass, ctx, dev
}

func approx(a, b mgl32.Mat4) bool {
	return a.ApproxEqualThreshold(b, 1e-5)
}

func TestProjectionDepthRange(t *testing.T) {
	c := qt.New(t)
	proj := gfx.DefaultProjection(800, 600)
	c.Assert(proj.Aspect, qt.Equals, float32(800)/600)
	c.Assert(math.Abs(float64(proj.FovVertical())-67.5*math.Pi/180) < 1e-6, qt.Equals, true)

	m := proj.Matrix()
	near := m.Mul4x1(mgl32.Vec4{0, 0, -proj.Near, 1})
	far := m.Mul4x1(mgl32.Vec4{0, 0, -proj.Far, 1})
	c.Assert(math.Abs(float64(near.Z()/near.W())) < 1e-5, qt.Equals, true, qt.Commentf("near depth %v", near.Z()/near.W()))
	c.Assert(math.Abs(float64(far.Z()/far.W())-1) < 1e-4, qt.Equals, true, qt.Commentf("far depth %v", far.Z()/far.W()))

	// up in the world is down in Vulkan clip space
	up := m.Mul4x1(mgl32.Vec4{0, 1, -10, 1})
	c.Assert(up.Y() < 0, qt.Equals, true)
}

func TestCameraView(t *testing.T) {
	c := qt.New(t)
	c.Assert(approx(gfx.NewCamera(mgl32.Vec3{}).View(), mgl32.Ident4()), qt.Equals, true)

	cam := gfx.NewCamera(mgl32.Vec3{0, 0, 5})
	origin := cam.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	c.Assert(origin.Vec3().ApproxEqualThreshold(mgl32.Vec3{0, 0, -5}, 1e-5), qt.Equals, true)
}

func TestSceneDraw(t *testing.T) {
	c := qt.New(t)
	pass, ctx, dev := newPass(c)

	material, err := gfx.NewMaterial(ctx, pass, gfx.Flat(color.White), gfx.Flat(gfx.FlatNormal))
	c.Assert(err, qt.IsNil)
	c.Assert(material.Color.State().Layout, qt.Equals, vk.ImageLayoutShaderReadOnlyOptimal)

	obj, err := gfx.NewObject(ctx, triangle, material)
	c.Assert(err, qt.IsNil)
	c.Assert(obj.Name, qt.Equals, "triangle")

	scene := gfx.NewScene()
	scene.Add(obj)
	scene.Own(material)
	c.Assert(scene.Len(), qt.Equals, 1)

	projection := gfx.DefaultProjection(800, 600).Matrix()
	cmd, err := pass.BeginFrame(gfx.NewCamera(mgl32.Vec3{0, 0, 5}).View())
	c.Assert(err, qt.IsNil)
	before := len(dev.Calls())
	scene.Draw(cmd, pass.PipelineLayout(), projection)
	c.Assert(dev.Calls()[before:], qt.DeepEquals, []string{
		"CmdBindDescriptorSets(0)",
		"CmdPushConstants",
		"CmdBindVertexBuffers",
		"CmdDraw",
	})
	c.Assert(pass.EndFrame(), qt.IsNil)

	pushed := dev.PushConstants()
	c.Assert(pushed, qt.HasLen, 1)
	c.Assert(pushed[0], qt.DeepEquals, model.PushConstants{Model: mgl32.Ident4(), Projection: projection}.Bytes())

	scene.Release(ctx)
	c.Assert(scene.Len(), qt.Equals, 0)
	pass.Destroy()
	ctx.Destroy()
	c.Assert(dev.Live(), qt.HasLen, 0)
}

func TestObjectSpin(t *testing.T) {
	c := qt.New(t)
	pass, ctx, _ := newPass(c)
	defer ctx.Destroy()
	defer pass.Destroy()

	obj, err := gfx.NewObject(ctx, triangle, &gfx.Material{})
	c.Assert(err, qt.IsNil)
	defer obj.Release(ctx)

	obj.Spin = math.Pi
	obj.Transform = mgl32.Translate3D(0, 0, -5)
	scene := gfx.NewScene()
	scene.Add(obj)
	for i := 0; i < 5; i++ {
		scene.Update(100 * time.Millisecond)
	}
	want := mgl32.Translate3D(0, 0, -5).Mul4(mgl32.HomogRotate3DY(math.Pi / 2))
	c.Assert(approx(obj.Model(), want), qt.Equals, true, qt.Commentf("got %v", obj.Model()))
}

func TestObjectEmptyMesh(t *testing.T) {
	c := qt.New(t)
	pass, ctx, dev := newPass(c)

	_, err := gfx.NewObject(ctx, model.Mesh{Name: "empty"}, &gfx.Material{})
	c.Assert(err, qt.ErrorMatches, `create object: resource creation failure: mesh "empty" has no vertices`)
	c.Assert(core.IsKind(err, core.ResourceCreationFailure), qt.Equals, true)

	pass.Destroy()
	c.Assert(dev.Live(), qt.DeepEquals, []string{"CommandPool"})
}

type failingAllocator struct{ err error }

func (f failingAllocator) NewMaterial(color, normal *core.Texture) (vk.DescriptorSet, error) {
	return nil, f.err
}

func TestMaterialAllocationFailure(t *testing.T) {
	c := qt.New(t)
	dev := devicetest.New()
	ctx, err := core.NewContext(dev, shaders)
	c.Assert(err, qt.IsNil)

	exhausted := errors.Wrap(renderer.ErrPoolExhausted, "8 of 8 sets in use")
	_, err = gfx.NewMaterial(ctx, failingAllocator{exhausted}, gfx.Flat(color.White), gfx.Flat(gfx.FlatNormal))
	c.Assert(errors.Is(err, renderer.ErrPoolExhausted), qt.Equals, true)
	c.Assert(dev.Live(), qt.DeepEquals, []string{"CommandPool"})
}

func TestMaterialsFillThePool(t *testing.T) {
	c := qt.New(t)
	pass, ctx, _ := newPass(c)

	scene := gfx.NewScene()
	for i := uint32(1); i < passConfig.MaxDescriptorSets; i++ {
		m, err := gfx.NewMaterial(ctx, pass, gfx.Flat(color.White), gfx.Flat(gfx.FlatNormal))
		c.Assert(err, qt.IsNil)
		scene.Own(m)
	}
	_, err := gfx.NewMaterial(ctx, pass, gfx.Flat(color.White), gfx.Flat(gfx.FlatNormal))
	c.Assert(errors.Is(err, renderer.ErrPoolExhausted), qt.Equals, true)

	scene.Release(ctx)
	pass.Destroy()
	ctx.Destroy()
}
