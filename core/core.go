// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"io/ioutil"
	"path/filepath"
	"strings"

	vk "github.com/vulkan-go/vulkan"
)

// AssetSource finds named assets: shader bytecode, textures and meshes.
// Names always use forward slashes.
type AssetSource interface {
	Find(name string) ([]byte, error)
}

// DirSource reads assets from a directory on disk
type DirSource string

// Find implements AssetSource
func (d DirSource) Find(name string) ([]byte, error) {
	return ioutil.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
}

// ShaderType represents the type of shader thats loaded
type ShaderType int

// Identifies shader objects with their types
const (
	VertexShaderType ShaderType = iota
	FragmentShaderType
	UnknownShaderType
)

const shaderSuffix = ".spv"

// ShaderTypeOf derives the type from a compiled shader's name,
// which is expected to look like name.vert.spv or name.frag.spv.
func ShaderTypeOf(name string) ShaderType {
	base := strings.TrimSuffix(filepath.Base(name), shaderSuffix)
	switch filepath.Ext(base) {
	case ".vert":
		return VertexShaderType
	case ".frag":
		return FragmentShaderType
	default:
		return UnknownShaderType
	}
}

// Stage returns the pipeline stage the shader type runs in.
func (t ShaderType) Stage() vk.ShaderStageFlagBits {
	switch t {
	case VertexShaderType:
		return vk.ShaderStageVertexBit
	case FragmentShaderType:
		return vk.ShaderStageFragmentBit
	default:
		return 0
	}
}
