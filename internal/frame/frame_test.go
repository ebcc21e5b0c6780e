package frame

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(fill func(i int) byte) []byte {
	b := make([]byte, SampleCount)
	for i := range b {
		b[i] = fill(i)
	}
	return b
}

func TestPackLength(t *testing.T) {
	p, err := Pack(samples(func(i int) byte { return byte(i) }))
	require.NoError(t, err)
	assert.Len(t, p.Bytes(), Size)
}

func TestPackNibblePairing(t *testing.T) {
	// Last two pixels of the buffer land in the first three output bytes.
	in := make([]byte, SampleCount)
	copy(in[SampleCount-6:], []byte{
		0x1A, 0x2B, 0x3C, // P0 = R G B
		0x4D, 0x5E, 0x6F, // P1 = R G B
	})
	p, err := Pack(in)
	require.NoError(t, err)

	assert.Equal(t, byte(0x54), p[0], "P1.R low, P1.G high")
	assert.Equal(t, byte(0x16), p[1], "P1.B low, P0.R high")
	assert.Equal(t, byte(0x32), p[2], "P0.G low, P0.B high")
	for i := 3; i < Size; i++ {
		assert.Zero(t, p[i], "byte %d", i)
	}
}

func TestPackKeepsHighNibble(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	in := samples(func(int) byte { return byte(rng.Intn(256)) })
	p, err := Pack(in)
	require.NoError(t, err)

	for j := 0; j < Size/3; j++ {
		i := SampleCount - 1 - 6*j
		o := 3 * j
		p0r, p0g, p0b := in[i-5], in[i-4], in[i-3]
		p1r, p1g, p1b := in[i-2], in[i-1], in[i]
		assert.Equal(t, p1r>>4, p[o]&0x0F)
		assert.Equal(t, p1g>>4, p[o]>>4)
		assert.Equal(t, p1b>>4, p[o+1]&0x0F)
		assert.Equal(t, p0r>>4, p[o+1]>>4)
		assert.Equal(t, p0g>>4, p[o+2]&0x0F)
		assert.Equal(t, p0b>>4, p[o+2]>>4)
	}
}

func TestPackDeterministic(t *testing.T) {
	in := samples(func(i int) byte { return byte(i * 37) })
	a, err := Pack(in)
	require.NoError(t, err)
	b, err := Pack(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPackInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"empty", 0},
		{"one pixel short", SampleCount - 3},
		{"odd sample", SampleCount + 1},
		{"two frames", 2 * SampleCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pack(make([]byte, tt.n))
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestPackSamples(t *testing.T) {
	out, err := PackSamples([]byte{0xF0, 0xE0, 0xD0, 0x10, 0x20, 0x30})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x21, 0xF3, 0xDE}, out)

	_, err = PackSamples(make([]byte, 9))
	assert.ErrorIs(t, err, ErrInvalidInput)

	out, err = PackSamples(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestUnpackExpandsNibbles(t *testing.T) {
	in := samples(func(i int) byte { return byte(i * 11) })
	p, err := Pack(in)
	require.NoError(t, err)

	out := Unpack(p)
	require.Len(t, out, SampleCount)
	for i := range in {
		assert.Equal(t, in[i]&0xF0|in[i]>>4, out[i], "sample %d", i)
	}

	again, err := Pack(out)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestFromBytes(t *testing.T) {
	b := make([]byte, Size)
	b[0], b[95] = 0xAB, 0xCD
	p, err := FromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), p[0])
	assert.Equal(t, byte(0xCD), p[95])

	_, err = FromBytes(b[:10])
	assert.ErrorIs(t, err, ErrInvalidInput)
}
