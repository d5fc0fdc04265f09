// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
)

// Scene owns drawables and the resources they share. Drawables are
// updated and drawn in the order they were added.
type Scene struct {
	drawables []Drawable
	owned     []Releasable
	log       *log.Entry
}

// NewScene returns an empty scene
func NewScene() *Scene {
	return &Scene{
		log: log.WithField("component", "scene"),
	}
}

// Add appends a drawable. The scene releases it.
func (s *Scene) Add(d Drawable) {
	s.drawables = append(s.drawables, d)
}

// Own hands a shared resource, such as a material, to the scene for release.
func (s *Scene) Own(r Releasable) {
	s.owned = append(s.owned, r)
}

// Len is the number of drawables
func (s *Scene) Len() int {
	return len(s.drawables)
}

// Update advances every drawable by dt.
func (s *Scene) Update(dt time.Duration) {
	for _, d := range s.drawables {
		d.Update(dt)
	}
}

// Draw records every drawable into cmd.
func (s *Scene) Draw(cmd vk.CommandBuffer, layout vk.PipelineLayout, projection mgl32.Mat4) {
	for _, d := range s.drawables {
		d.Draw(cmd, layout, projection)
	}
}

// Release frees the drawables first, then what they shared.
func (s *Scene) Release(ctx *core.Context) {
	for _, d := range s.drawables {
		d.Release(ctx)
	}
	for _, r := range s.owned {
		r.Release(ctx)
	}
	s.log.WithFields(log.Fields{
		"drawables": len(s.drawables),
		"shared":    len(s.owned),
	}).Debug("released")
	s.drawables, s.owned = nil, nil
}
