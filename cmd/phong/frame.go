// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"image"
	"image/color"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/phong/core"
	"github.com/devblok/phong/core/renderer"
	"github.com/devblok/phong/gfx"
	"github.com/devblok/phong/model"
)

var _ core.Frame = (*frame)(nil)

// frame ties the window, both passes and the scene to the scheduler.
type frame struct {
	window  *sdl.Window
	pass    *renderer.MainPass
	present *renderer.PresentPass
	scene   *gfx.Scene

	camera     gfx.Camera
	projection mgl32.Mat4
	closing    bool
}

func newFrame(window *sdl.Window, pass *renderer.MainPass, present *renderer.PresentPass, scene *gfx.Scene, cfg renderer.Configuration) *frame {
	return &frame{
		window:     window,
		pass:       pass,
		present:    present,
		scene:      scene,
		camera:     gfx.NewCamera(mgl32.Vec3{0, 0, 0}),
		projection: gfx.DefaultProjection(cfg.Width, cfg.Height).Matrix(),
	}
}

// ShouldClose polls window events.
func (f *frame) ShouldClose() bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch et := event.(type) {
		case *sdl.KeyboardEvent:
			if et.Keysym.Sym == sdl.K_ESCAPE {
				f.closing = true
			}
		case *sdl.QuitEvent:
			f.closing = true
		}
	}
	return f.closing
}

func (f *frame) Update(dt time.Duration) {
	f.scene.Update(dt)
}

// Render draws the scene offscreen and presents the result.
func (f *frame) Render() error {
	cmd, err := f.pass.BeginFrame(f.camera.View())
	if err != nil {
		return err
	}
	f.scene.Draw(cmd, f.pass.PipelineLayout(), f.projection)
	if err := f.pass.EndFrame(); err != nil {
		return err
	}
	return f.present.PresentImage(f.pass.RenderImage())
}

// loadScene places every mesh of the configured model in front of the
// camera, all sharing one material.
func loadScene(ctx *core.Context, pass *renderer.MainPass, assets core.AssetSource, cfg core.AssetConfiguration) (*gfx.Scene, error) {
	data, err := assets.Find(cfg.Model)
	if err != nil {
		return nil, err
	}
	meshes, err := model.ImportCollada(data)
	if err != nil {
		return nil, err
	}

	albedo := loadImage(assets, cfg.ColorTexture, gfx.Flat(color.White))
	normal := loadImage(assets, cfg.NormalTexture, gfx.Flat(gfx.FlatNormal))
	material, err := gfx.NewMaterial(ctx, pass, albedo, normal)
	if err != nil {
		return nil, err
	}

	scene := gfx.NewScene()
	scene.Own(material)
	for i, mesh := range meshes {
		obj, err := gfx.NewObject(ctx, mesh, material)
		if err != nil {
			scene.Release(ctx)
			return nil, err
		}
		obj.Transform = mgl32.Translate3D(float32(i)*3-float32(len(meshes)-1)*1.5, 0, -5)
		obj.Spin = 1
		scene.Add(obj)
	}
	log.WithFields(log.Fields{
		"model":  cfg.Model,
		"meshes": len(meshes),
	}).Debug("scene loaded")
	return scene, nil
}

// loadImage decodes name from assets, falling back to a flat image.
func loadImage(assets core.AssetSource, name string, fallback image.Image) image.Image {
	data, err := assets.Find(name)
	if err == nil {
		var img image.Image
		if img, err = core.DecodeImage(data); err == nil {
			return img
		}
	}
	log.WithError(err).WithField("texture", name).Warn("using flat texture")
	return fallback
}
