// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"

	"github.com/devblok/phong/utility/kar"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildArchive(c *qt.C, files map[string]string) []byte {
	builder, err := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	for name, content := range files {
		c.Assert(builder.Add(name, strings.NewReader(content)), qt.IsNil)
	}
	c.Assert(builder.Len(), qt.Equals, len(files))

	var buf bytes.Buffer
	written, err := builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)
	c.Assert(written, qt.Equals, int64(buf.Len()))
	return buf.Bytes()
}

func TestCreateAndRead(t *testing.T) {
	c := qt.New(t)
	data := buildArchive(c, map[string]string{"test": testString1, "test2": testString2})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Names(), qt.DeepEquals, []string{"test", "test2"})
	c.Assert(ar.Header().Author, qt.Equals, "devblok")

	f, err := ar.Open("test2")
	c.Assert(err, qt.IsNil)
	c.Assert(f.Size(), qt.Equals, int64(len(testString2)))
	result, err := io.ReadAll(f)
	c.Assert(err, qt.IsNil)
	c.Assert(string(result), qt.Equals, testString2)
}

func TestCreateAndReadAll(t *testing.T) {
	c := qt.New(t)
	data := buildArchive(c, map[string]string{"test": testString1, "test2": testString2})

	ar, err := kar.Open(bytes.NewReader(data))
	c.Assert(err, qt.IsNil)

	f, err := ar.ReadAll("test")
	c.Assert(err, qt.IsNil)
	c.Assert(string(f), qt.Equals, testString1)

	_, err = ar.Find("missing")
	c.Assert(errors.Cause(err), qt.Equals, kar.ErrNotFound)
}

func TestConcurrentAdd(t *testing.T) {
	c := qt.New(t)
	builder, err := kar.NewBuilder(kar.Header{Author: "devblok"})
	c.Assert(err, qt.IsNil)
	defer builder.Close()

	names := []string{"a", "b", "c", "d", "e", "f"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			c.Check(builder.Add(name, strings.NewReader(strings.Repeat(name, 1000))), qt.IsNil)
		}(name)
	}
	wg.Wait()

	var buf bytes.Buffer
	_, err = builder.WriteTo(&buf)
	c.Assert(err, qt.IsNil)

	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	c.Assert(err, qt.IsNil)
	c.Assert(ar.Names(), qt.DeepEquals, names)

	var read sync.WaitGroup
	for _, name := range names {
		read.Add(1)
		go func(name string) {
			defer read.Done()
			data, err := ar.ReadAll(name)
			c.Check(err, qt.IsNil)
			c.Check(string(data), qt.Equals, strings.Repeat(name, 1000))
		}(name)
	}
	read.Wait()
}

func TestOpenRejectsGarbage(t *testing.T) {
	tests := map[string][]byte{
		"empty":       {},
		"wrong magic": []byte("TAR\x00\x01\x00\x00\x00\x00\x00\x00\x00"),
		"short":       []byte("KAR\x00\x40\x00\x00\x00\x00\x00\x00\x00abc"),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			c := qt.New(t)
			_, err := kar.Open(bytes.NewReader(data))
			c.Assert(err, qt.Equals, kar.ErrFileFormat)
		})
	}
}

func TestOpenFile(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "assets.kar")
	data := buildArchive(c, map[string]string{"shaders/phong.vert.spv": testString1})
	c.Assert(os.WriteFile(path, data, 0644), qt.IsNil)

	ar, err := kar.OpenFile(path)
	c.Assert(err, qt.IsNil)
	defer ar.Close()

	content, err := ar.Find("shaders/phong.vert.spv")
	c.Assert(err, qt.IsNil)
	c.Assert(string(content), qt.Equals, testString1)
}
