// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"github.com/go-gl/mathgl/mgl32"
)

// VulkanClip maps OpenGL clip space onto Vulkan's: y points down and
// depth runs from 0 to 1 instead of -1 to 1.
var VulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Camera looks from Position towards Target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
}

// NewCamera returns a camera at position looking down negative z.
func NewCamera(position mgl32.Vec3) Camera {
	return Camera{
		Position: position,
		Target:   position.Add(mgl32.Vec3{0, 0, -1}),
		Up:       mgl32.Vec3{0, 1, 0},
	}
}

// View is the world to camera transform.
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection describes a perspective frustum by its horizontal field of view.
type Projection struct {
	// FovHorizontal is in degrees.
	FovHorizontal float32
	Aspect        float32
	Near, Far     float32
}

// DefaultProjection is a 90 degree frustum from 1 to 1000 units.
func DefaultProjection(width, height uint32) Projection {
	return Projection{
		FovHorizontal: 90,
		Aspect:        float32(width) / float32(height),
		Near:          1,
		Far:           1000,
	}
}

// FovVertical is the vertical field of view in radians.
func (p Projection) FovVertical() float32 {
	return mgl32.DegToRad(p.FovHorizontal / p.Aspect)
}

// Matrix is the projection matrix for Vulkan clip space.
func (p Projection) Matrix() mgl32.Mat4 {
	return VulkanClip.Mul4(mgl32.Perspective(p.FovVertical(), p.Aspect, p.Near, p.Far))
}
