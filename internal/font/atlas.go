// Package font loads bitmap font strips: one row of fixed width 8x8 glyph
// cells stored in an 8-bit RGB image.
package font

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	// Strip formats.
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// CellSize is the width and height of one glyph cell in pixels.
const CellSize = 8

// ErrDecode is returned when a font source is not an image, or not an 8-bit
// RGB one.
var ErrDecode = errors.New("font decode error")

// Atlas is an immutable, row-major copy of a font strip. Every row holds
// the RGB8 triplets of one pixel row, left to right.
type Atlas struct {
	rows   [][]byte
	width  int
	format string
}

// LoadFile reads a font strip from disk.
func LoadFile(path string) (*Atlas, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Load(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Load decodes a font strip. PNG, BMP and TIFF sources are accepted as long
// as they decode to 8 bits per channel without transparency. No resizing or
// color space conversion happens.
func Load(r io.Reader) (*Atlas, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := img.Bounds()
	if b.Dx() < CellSize || b.Dy() < CellSize {
		return nil, fmt.Errorf("%w: %dx%d strip is smaller than one %dx%d cell", ErrDecode, b.Dx(), b.Dy(), CellSize, CellSize)
	}

	var at func(x, y int) (r, g, b uint8)
	switch m := img.(type) {
	case *image.RGBA:
		at = func(x, y int) (uint8, uint8, uint8) {
			i := m.PixOffset(x, y)
			return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
		}
	case *image.NRGBA:
		if !m.Opaque() {
			return nil, fmt.Errorf("%w: strip has an alpha channel", ErrDecode)
		}
		at = func(x, y int) (uint8, uint8, uint8) {
			i := m.PixOffset(x, y)
			return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
		}
	case *image.Paletted:
		pal := make([]color.RGBA, len(m.Palette))
		for i, c := range m.Palette {
			rgba := color.RGBAModel.Convert(c).(color.RGBA)
			if rgba.A != 0xFF {
				return nil, fmt.Errorf("%w: palette entry %d is transparent", ErrDecode, i)
			}
			pal[i] = rgba
		}
		at = func(x, y int) (uint8, uint8, uint8) {
			c := pal[m.ColorIndexAt(x, y)]
			return c.R, c.G, c.B
		}
	case *image.Gray:
		at = func(x, y int) (uint8, uint8, uint8) {
			v := m.Pix[m.PixOffset(x, y)]
			return v, v, v
		}
	default:
		return nil, fmt.Errorf("%w: unsupported pixel format %T, want 8-bit RGB", ErrDecode, img)
	}

	a := &Atlas{
		rows:   make([][]byte, b.Dy()),
		width:  b.Dx(),
		format: format,
	}
	for y := 0; y < b.Dy(); y++ {
		row := make([]byte, 0, b.Dx()*3)
		for x := 0; x < b.Dx(); x++ {
			r, g, bl := at(b.Min.X+x, b.Min.Y+y)
			row = append(row, r, g, bl)
		}
		a.rows[y] = row
	}
	return a, nil
}

// FromRows builds an atlas from already decoded rows. All rows must have the
// same length, a multiple of 3, and there must be at least one full cell.
func FromRows(rows [][]byte) (*Atlas, error) {
	if len(rows) < CellSize {
		return nil, fmt.Errorf("%w: %d rows, want at least %d", ErrDecode, len(rows), CellSize)
	}
	n := len(rows[0])
	if n%3 != 0 || n < CellSize*3 {
		return nil, fmt.Errorf("%w: row length %d", ErrDecode, n)
	}
	a := &Atlas{rows: make([][]byte, len(rows)), width: n / 3, format: "raw"}
	for i, r := range rows {
		if len(r) != n {
			return nil, fmt.Errorf("%w: row %d has %d bytes, row 0 has %d", ErrDecode, i, len(r), n)
		}
		a.rows[i] = append([]byte(nil), r...)
	}
	return a, nil
}

// Width is the strip width in pixels.
func (a *Atlas) Width() int { return a.width }

// Height is the strip height in pixels.
func (a *Atlas) Height() int { return len(a.rows) }

// RowBytes is the length of one row in bytes.
func (a *Atlas) RowBytes() int { return a.width * 3 }

// Glyphs is the number of whole cells across the strip.
func (a *Atlas) Glyphs() int { return a.width / CellSize }

// Format names the decoder that produced the atlas.
func (a *Atlas) Format() string { return a.format }

// Row returns pixel row y. The slice aliases the atlas and must not be
// modified.
func (a *Atlas) Row(y int) []byte { return a.rows[y] }
