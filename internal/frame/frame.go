// Package frame converts 8-bit RGB samples to and from the 96 byte wire
// format understood by the matrix controller.
//
// The controller displays 4 bits per channel. Two horizontally adjacent
// pixels share three bytes, and the samples are walked from the end of the
// buffer towards the start, so the first bytes on the wire describe the
// bottom right corner of the matrix.
package frame

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// Width and Height are the matrix dimensions in pixels.
	Width  = 8
	Height = 8

	// Channels is the number of color samples per pixel.
	Channels = 3

	// SampleCount is the number of RGB8 samples making up one frame.
	SampleCount = Width * Height * Channels

	// Size is the length in bytes of a packed frame.
	Size = SampleCount / 2
)

// ErrInvalidInput reports a precondition violation such as an odd pixel
// count.
var ErrInvalidInput = errors.New("invalid input")

// Packed is one frame in wire format. It is a value type; two frames are
// the same frame when they compare equal.
type Packed [Size]byte

// Bytes returns a copy of the frame as a slice.
func (p Packed) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, p[:])
	return b
}

func (p Packed) String() string {
	return hex.EncodeToString(p[:])
}

// FromBytes copies a 96 byte buffer into a Packed frame.
func FromBytes(b []byte) (Packed, error) {
	var p Packed
	if len(b) != Size {
		return p, fmt.Errorf("frame: %d bytes, want %d: %w", len(b), Size, ErrInvalidInput)
	}
	copy(p[:], b)
	return p, nil
}

// Pack converts exactly one frame worth of RGB8 samples.
func Pack(samples []byte) (Packed, error) {
	var p Packed
	if len(samples) != SampleCount {
		return p, fmt.Errorf("frame: %d samples, want %d: %w", len(samples), SampleCount, ErrInvalidInput)
	}
	packInto(p[:], samples)
	return p, nil
}

// PackSamples packs an arbitrary even number of pixels. The result is half
// the length of samples.
func PackSamples(samples []byte) ([]byte, error) {
	if len(samples)%(2*Channels) != 0 {
		return nil, fmt.Errorf("frame: %d samples is not a whole number of pixel pairs: %w", len(samples), ErrInvalidInput)
	}
	out := make([]byte, len(samples)/2)
	packInto(out, samples)
	return out, nil
}

// packInto requires len(dst)*2 == len(src) and len(src)%6 == 0.
func packInto(dst, src []byte) {
	o := 0
	for i := len(src) - 1; i > 0; i -= 6 {
		// src[i-5:i-2] is P0, src[i-2:i+1] is P1.
		dst[o+0] = src[i-2]>>4 | (src[i-1]>>4)<<4
		dst[o+1] = src[i]>>4 | (src[i-5]>>4)<<4
		dst[o+2] = src[i-4]>>4 | (src[i-3]>>4)<<4
		o += 3
	}
}

// Unpack expands a frame back to RGB8 samples. Each 4-bit channel n becomes
// n<<4|n, so full intensity maps to 0xFF.
func Unpack(p Packed) []byte {
	out := make([]byte, SampleCount)
	for o := 0; o < Size; o += 3 {
		i := SampleCount - 1 - 2*o
		out[i-2] = expand(p[o+0] & 0x0F)
		out[i-1] = expand(p[o+0] >> 4)
		out[i] = expand(p[o+1] & 0x0F)
		out[i-5] = expand(p[o+1] >> 4)
		out[i-4] = expand(p[o+2] & 0x0F)
		out[i-3] = expand(p[o+2] >> 4)
	}
	return out
}

func expand(n byte) byte {
	return n<<4 | n
}
