// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/phong/core"
)

func TestSliceUint32(t *testing.T) {
	words := core.SliceUint32([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00, 0xff})
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2", len(words))
	}
	if words[0] != 0x07230203 || words[1] != 1 {
		t.Fatalf("unexpected words %#x", words)
	}
}

func TestMatrixBytes(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	data := core.MatrixBytes(mgl32.Ident4(), m)
	if len(data) != 128 {
		t.Fatalf("got %d bytes, want 128", len(data))
	}
	// column major, translation lives in elements 12..14 of the second matrix
	for i, want := range []float32{1, 2, 3} {
		off := 64 + (12+i)*4
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		if got != want {
			t.Errorf("element %d = %v, want %v", 12+i, got, want)
		}
	}
}

func TestGetPixels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 13, 12))
	img.Set(10, 10, color.NRGBA{R: 255, A: 255})
	img.Set(12, 11, color.NRGBA{B: 255, A: 255})

	pix := core.GetPixels(img)
	if len(pix) != 3*2*4 {
		t.Fatalf("got %d bytes, want %d", len(pix), 3*2*4)
	}
	if pix[0] != 255 || pix[3] != 255 {
		t.Errorf("first pixel %v, want opaque red", pix[0:4])
	}
	if last := pix[len(pix)-4:]; last[2] != 255 || last[3] != 255 {
		t.Errorf("last pixel %v, want opaque blue", last)
	}
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		core.SliceUint32(data)
	}
}

func BenchmarkGetPixels(b *testing.B) {
	img := image.NewNRGBA(image.Rect(0, 0, 512, 512))
	for idx := 0; idx < b.N; idx++ {
		core.GetPixels(img)
	}
}
