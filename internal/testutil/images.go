// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math/rand"
)

// TB is the subset of testing.TB the fixtures need.
type TB interface {
	Helper()
	Fatalf(string, ...any)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// NoisyPNG returns an opaque PNG filled with deterministic random pixels.
func NoisyPNG(t TB, w, h int) []byte {
	t.Helper()
	// #nosec G404: weak random is fine for test image generation
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				// #nosec G115: Intn(256) is safe for uint8
				R: uint8(rng.Intn(256)),
				// #nosec G115
				G: uint8(rng.Intn(256)),
				// #nosec G115
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode noisy png: %v", err)
	}
	return buf.Bytes()
}

// PNGWithDeclaredSize returns a tiny PNG whose header claims w x h pixels.
// The header decodes; the pixel data does not match it.
func PNGWithDeclaredSize(t TB, w, h uint32) []byte {
	t.Helper()
	raw := TinyPNG(t, 1, 1)
	// 8-byte signature, then the IHDR chunk: length(4) type(4) data(13) crc(4).
	const ihdrType, ihdrData, ihdrCRC = 12, 16, 29
	binary.BigEndian.PutUint32(raw[ihdrData:], w)
	binary.BigEndian.PutUint32(raw[ihdrData+4:], h)
	binary.BigEndian.PutUint32(raw[ihdrCRC:], crc32.ChecksumIEEE(raw[ihdrType:ihdrCRC]))
	return raw
}
