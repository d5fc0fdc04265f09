// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/phong/utility/kar"
)

func TestCompressAndExtract(t *testing.T) {
	c := qt.New(t)
	src := c.TempDir()
	files := map[string]string{
		"models/cube.dae":     "<COLLADA/>",
		"shaders/phong.vert":  "#version 450",
		"textures/readme.txt": "flat textures are used when missing",
		"options.cfg":         "RENDER_WIDTH=800",
	}
	for name, content := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		c.Assert(os.MkdirAll(filepath.Dir(path), 0755), qt.IsNil)
		c.Assert(os.WriteFile(path, []byte(content), 0644), qt.IsNil)
	}

	archivePath := filepath.Join(c.TempDir(), "assets.kar")
	c.Assert(compressFiles(src, archivePath, kar.Header{Author: "test", Version: 2}), qt.IsNil)

	err := compressFiles(src, archivePath, kar.Header{})
	c.Assert(err, qt.ErrorMatches, "destination .* exists, will not overwrite")

	archive, err := kar.OpenFile(archivePath)
	c.Assert(err, qt.IsNil)
	c.Assert(archive.Header().Author, qt.Equals, "test")
	c.Assert(archive.Names(), qt.HasLen, len(files))
	data, err := archive.Find("models/cube.dae")
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, "<COLLADA/>")
	c.Assert(archive.Close(), qt.IsNil)

	dst := c.TempDir()
	c.Assert(extractFiles(archivePath, dst), qt.IsNil)
	for name, content := range files {
		data, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(name)))
		c.Assert(err, qt.IsNil)
		c.Assert(string(data), qt.Equals, content)
	}
}
