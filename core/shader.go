// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

const spirvMagic = 0x07230203

// LoadShader reads SPIR-V bytecode from the context's assets and creates
// a shader module from it. Missing or malformed bytecode, including bytecode
// the device rejects, is a ShaderLoadFailure.
func (c *Context) LoadShader(path string) (vk.ShaderModule, error) {
	c.assertAlive()
	if c.assets == nil {
		return nil, Fail(ShaderLoadFailure, path, errors.New("no asset source"))
	}
	code, err := c.assets.Find(path)
	if err != nil {
		return nil, Fail(ShaderLoadFailure, path, err)
	}
	words, err := spirvWords(code)
	if err != nil {
		return nil, Fail(ShaderLoadFailure, path, err)
	}

	module, err := c.device.CreateShaderModule(words)
	if err != nil {
		return nil, Fail(ShaderLoadFailure, path, err)
	}
	c.log.WithField("shader", path).Debug("shader module created")
	return module, nil
}

func spirvWords(code []byte) ([]uint32, error) {
	switch {
	case len(code) == 0:
		return nil, errors.New("empty bytecode")
	case len(code)%4 != 0:
		return nil, errors.Errorf("bytecode length %d is not a multiple of 4", len(code))
	}
	words := SliceUint32(code)
	if words[0] != spirvMagic {
		return nil, errors.Errorf("bad SPIR-V magic %#08x", words[0])
	}
	return words, nil
}
