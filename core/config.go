// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time     TimeConfiguration
	Renderer RendererConfiguration
	Window   WindowConfiguration
	Assets   AssetConfiguration

	// Debug enables the validation layer and debug logging
	Debug bool
}

// TimeConfiguration is used to configure the frame scheduler
type TimeConfiguration struct {
	FixedStep time.Duration

	// ReportInterval is the number of frames between frame time reports,
	// 0 disables them
	ReportInterval uint64
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize    uint32
	DeviceExtensions []string

	// RenderWidth and RenderHeight are the offscreen render resolution,
	// which is scaled to whatever the window is.
	RenderWidth  uint32
	RenderHeight uint32

	VertexShader   string
	FragmentShader string

	// MaxDescriptorSets bounds the descriptor pool, one set
	// goes to the view matrix and the rest to materials.
	MaxDescriptorSets uint32
}

// WindowConfiguration configures the window
type WindowConfiguration struct {
	Title  string
	Width  int32
	Height int32
}

// AssetConfiguration says where assets come from and which to load
type AssetConfiguration struct {
	// Directory is read when set, otherwise Archive if set,
	// otherwise the assets built into the binary.
	Directory string
	Archive   string

	Model         string
	ColorTexture  string
	NormalTexture string
}

// DefaultConfiguration returns the configuration used for missing keys
func DefaultConfiguration() Configuration {
	return Configuration{
		Time: TimeConfiguration{
			FixedStep:      DefaultFixedStep,
			ReportInterval: 100,
		},
		Renderer: RendererConfiguration{
			SwapchainSize:     3,
			RenderWidth:       1280,
			RenderHeight:      720,
			VertexShader:      "shaders/phong.vert.spv",
			FragmentShader:    "shaders/phong.frag.spv",
			MaxDescriptorSets: 8,
		},
		Window: WindowConfiguration{
			Title:  "phong",
			Width:  1280,
			Height: 720,
		},
		Assets: AssetConfiguration{
			Model:         "models/cube.dae",
			ColorTexture:  "textures/color.png",
			NormalTexture: "textures/normal.png",
		},
	}
}

// LoadConfiguration reads key=value pairs from path, keys are case
// insensitive. Every key can be overridden from the environment.
// A missing file yields the defaults.
func LoadConfiguration(path string) (Configuration, error) {
	values := map[string]string{}
	if path != "" {
		read, err := godotenv.Read(path)
		if err != nil && !os.IsNotExist(err) {
			return Configuration{}, errors.Wrapf(err, "read configuration %s", path)
		}
		for k, v := range read {
			values[strings.ToUpper(k)] = v
		}
	}

	p := parser{values: values}
	cfg := DefaultConfiguration()

	cfg.Debug = p.bool("DEBUG", cfg.Debug)

	if ms := p.uint("FIXED_STEP_MS", uint64(cfg.Time.FixedStep/time.Millisecond), 32); ms > 0 {
		cfg.Time.FixedStep = time.Duration(ms) * time.Millisecond
	}
	cfg.Time.ReportInterval = p.uint("REPORT_INTERVAL", cfg.Time.ReportInterval, 64)

	cfg.Renderer.RenderWidth = uint32(p.uint("RENDER_WIDTH", uint64(cfg.Renderer.RenderWidth), 32))
	cfg.Renderer.RenderHeight = uint32(p.uint("RENDER_HEIGHT", uint64(cfg.Renderer.RenderHeight), 32))
	cfg.Renderer.SwapchainSize = uint32(p.uint("SWAPCHAIN_SIZE", uint64(cfg.Renderer.SwapchainSize), 32))
	cfg.Renderer.MaxDescriptorSets = uint32(p.uint("MAX_DESCRIPTOR_SETS", uint64(cfg.Renderer.MaxDescriptorSets), 32))
	cfg.Renderer.VertexShader = p.string("VERTEX_SHADER", cfg.Renderer.VertexShader)
	cfg.Renderer.FragmentShader = p.string("FRAGMENT_SHADER", cfg.Renderer.FragmentShader)
	if ext := p.string("DEVICE_EXTENSIONS", ""); ext != "" {
		cfg.Renderer.DeviceExtensions = strings.Split(ext, ",")
	}

	cfg.Window.Title = p.string("WINDOW_TITLE", cfg.Window.Title)
	cfg.Window.Width = int32(p.int("WINDOW_WIDTH", int64(cfg.Window.Width), 32))
	cfg.Window.Height = int32(p.int("WINDOW_HEIGHT", int64(cfg.Window.Height), 32))

	cfg.Assets.Directory = p.string("ASSET_DIR", cfg.Assets.Directory)
	cfg.Assets.Archive = p.string("ASSET_ARCHIVE", cfg.Assets.Archive)
	cfg.Assets.Model = p.string("SCENE_MODEL", cfg.Assets.Model)
	cfg.Assets.ColorTexture = p.string("COLOR_TEXTURE", cfg.Assets.ColorTexture)
	cfg.Assets.NormalTexture = p.string("NORMAL_TEXTURE", cfg.Assets.NormalTexture)

	if p.err != nil {
		return Configuration{}, p.err
	}
	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

// Validate checks values that would make the renderer fail later on
func (c Configuration) Validate() error {
	switch {
	case c.Renderer.RenderWidth == 0 || c.Renderer.RenderHeight == 0:
		return errors.Errorf("render resolution %dx%d", c.Renderer.RenderWidth, c.Renderer.RenderHeight)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return errors.Errorf("window size %dx%d", c.Window.Width, c.Window.Height)
	case c.Renderer.MaxDescriptorSets < 2:
		return errors.Errorf("max descriptor sets %d, need at least 2", c.Renderer.MaxDescriptorSets)
	}
	return nil
}

// parser looks keys up in the environment first, then in the file,
// and keeps the first conversion error.
type parser struct {
	values map[string]string
	err    error
}

func (p *parser) string(key, def string) string {
	if v, ok := p.values[key]; ok {
		def = v
	}
	return envy.Get(key, def)
}

func (p *parser) int(key string, def int64, bits int) int64 {
	s := p.string(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, bits)
	if err != nil {
		if p.err == nil {
			p.err = errors.Wrapf(err, "configuration %s", key)
		}
		return def
	}
	return v
}

func (p *parser) uint(key string, def uint64, bits int) uint64 {
	s := p.string(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, bits)
	if err != nil {
		if p.err == nil {
			p.err = errors.Wrapf(err, "configuration %s", key)
		}
		return def
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	s := p.string(key, "")
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		if p.err == nil {
			p.err = errors.Wrapf(err, "configuration %s", key)
		}
		return def
	}
	return v
}
