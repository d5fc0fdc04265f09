// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:generate glslangValidator -V assets/shaders/phong.vert -o assets/shaders/phong.vert.spv
//go:generate glslangValidator -V assets/shaders/phong.frag -o assets/shaders/phong.frag.spv

package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"

	"github.com/gobuffalo/packr"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	vk "github.com/vulkan-go/vulkan"
	"github.com/xlab/closer"

	"github.com/devblok/phong/core"
	"github.com/devblok/phong/core/renderer"
	"github.com/devblok/phong/device"
	"github.com/devblok/phong/utility/kar"
)

func init() {
	runtime.LockOSThread()
}

var (
	configPath   = flag.String("config", "options.cfg", "Configuration file")
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
	debug        = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
)

// builtin holds the assets compiled into the binary.
var builtin = packr.NewBox("./assets")

func main() {
	defer closer.Close()
	flag.Parse()

	cfg, err := core.LoadConfiguration(*configPath)
	if err != nil {
		fatal(err, "configuration")
	}
	if *debug {
		cfg.Debug = true
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	startProfiling()

	assets, err := openAssets(cfg.Assets)
	if err != nil {
		fatal(err, "assets")
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		fatal(err, "sdl")
	}
	closer.Bind(sdl.Quit)

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		fatal(err, "load vulkan")
	}
	closer.Bind(sdl.VulkanUnloadLibrary)

	window, err := sdl.CreateWindow(cfg.Window.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		cfg.Window.Width,
		cfg.Window.Height,
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		fatal(err, "create window")
	}
	closer.Bind(func() {
		window.Destroy()
	})

	dev, err := device.NewVulkanDevice(device.Configuration{
		Debug:            cfg.Debug,
		Extensions:       window.VulkanGetInstanceExtensions(),
		DeviceExtensions: cfg.Renderer.DeviceExtensions,
	}, sdl.VulkanGetVkGetInstanceProcAddr(), func(instance vk.Instance) (vk.Surface, error) {
		surface, err := window.VulkanCreateSurface(instance)
		if err != nil {
			return nil, errors.Wrap(err, "create window surface")
		}
		return vk.SurfaceFromPointer(uintptr(surface)), nil
	})
	if err != nil {
		fatal(err, "create device")
	}

	ctx, err := core.NewContext(dev, assets)
	if err != nil {
		dev.Destroy()
		fatal(err, "create context")
	}
	closer.Bind(ctx.Destroy)

	rcfg := renderer.NewConfiguration(cfg.Renderer)
	pass, err := renderer.NewMainPass(ctx, rcfg)
	if err != nil {
		fatal(err, "create main pass")
	}
	closer.Bind(pass.Destroy)

	present, err := renderer.NewPresentPass(ctx, rcfg)
	if err != nil {
		fatal(err, "create present pass")
	}
	closer.Bind(present.Destroy)

	scene, err := loadScene(ctx, pass, assets, cfg.Assets)
	if err != nil {
		fatal(err, "load scene")
	}
	closer.Bind(func() {
		// drawables go before the passes that draw them
		dev.WaitIdle()
		scene.Release(ctx)
	})

	frame := newFrame(window, pass, present, scene, rcfg)
	scheduler := core.NewFrameScheduler(cfg.Time, nil)
	log.WithFields(log.Fields{
		"render": []uint32{rcfg.Width, rcfg.Height},
		"step":   scheduler.Step(),
	}).Info("running")

	if err := scheduler.Run(context.Background(), frame); err != nil {
		fatal(err, "frame")
	}
	log.WithFields(log.Fields{
		"frames":  scheduler.Frames(),
		"elapsed": scheduler.Elapsed(),
	}).Info("closed")
}

// openAssets picks a directory, an archive or the built in assets, in that order.
func openAssets(cfg core.AssetConfiguration) (core.AssetSource, error) {
	switch {
	case cfg.Directory != "":
		log.WithField("dir", cfg.Directory).Debug("assets from directory")
		return core.DirSource(cfg.Directory), nil
	case cfg.Archive != "":
		archive, err := kar.OpenFile(cfg.Archive)
		if err != nil {
			return nil, err
		}
		closer.Bind(func() {
			archive.Close()
		})
		log.WithFields(log.Fields{
			"archive": cfg.Archive,
			"files":   len(archive.Names()),
		}).Debug("assets from archive")
		return archive, nil
	}
	return builtin, nil
}

func startProfiling() {
	if *memProfile != "" {
		// bound first so the heap is written after everything else was released
		closer.Bind(func() {
			f, err := os.Create(*memProfile)
			if err != nil {
				log.WithError(err).Error("memory profile")
				return
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				log.WithError(err).Error("memory profile")
			}
		})
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fatal(err, "cpu profile")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			fatal(err, "cpu profile")
		}
		closer.Bind(pprof.StopCPUProfile)
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			fatal(err, "trace")
		}
		if err := trace.Start(f); err != nil {
			fatal(err, "trace")
		}
		closer.Bind(trace.Stop)
	}
}

// fatal logs err with its stack and exits after running the bound teardown.
func fatal(err error, what string) {
	log.WithError(err).Errorf("%s failed", what)
	log.Debugf("%+v", err)
	closer.Fatalln(what, "failed")
}
