// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/phong/core"
)

func TestLoadShader(t *testing.T) {
	c := qt.New(t)
	ctx, dev := newContext(c)

	module, err := ctx.LoadShader("shaders/triangle.vert.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(module, qt.Not(qt.IsNil))
	c.Assert(dev.Live(), qt.DeepEquals, []string{"CommandPool", "ShaderModule"})
}

func TestLoadShaderFailures(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		reject bool
		err    string
	}{{
		name: "missing",
		path: "shaders/nothing.vert.spv",
		err:  "shaders/nothing.vert.spv: shader load failure: .*",
	}, {
		name: "truncated",
		path: "shaders/truncated.vert.spv",
		err:  "shaders/truncated.vert.spv: shader load failure: bytecode length 5 is not a multiple of 4",
	}, {
		name: "not spirv",
		path: "shaders/garbage.frag.spv",
		err:  "shaders/garbage.frag.spv: shader load failure: bad SPIR-V magic 0xefbeadde",
	}, {
		name:   "rejected by device",
		path:   "shaders/triangle.vert.spv",
		reject: true,
		err:    "shaders/triangle.vert.spv: shader load failure: invalid shader",
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			ctx, dev := newContext(c)
			if test.reject {
				dev.Fail("CreateShaderModule", errors.New("invalid shader"))
			}

			_, err := ctx.LoadShader(test.path)
			c.Assert(err, qt.ErrorMatches, test.err)
			c.Assert(core.IsKind(err, core.ShaderLoadFailure), qt.Equals, true)
		})
	}
}

func TestShaderTypeOf(t *testing.T) {
	tests := map[string]core.ShaderType{
		"shaders/phong.vert.spv": core.VertexShaderType,
		"phong.frag.spv":         core.FragmentShaderType,
		"phong.comp.spv":         core.UnknownShaderType,
		"phong.spv":              core.UnknownShaderType,
	}
	for name, want := range tests {
		if got := core.ShaderTypeOf(name); got != want {
			t.Errorf("ShaderTypeOf(%q) = %d, want %d", name, got, want)
		}
	}
	if core.VertexShaderType.Stage() != vk.ShaderStageVertexBit {
		t.Error("vertex shaders run in the vertex stage")
	}
	if core.FragmentShaderType.Stage() != vk.ShaderStageFragmentBit {
		t.Error("fragment shaders run in the fragment stage")
	}
}
