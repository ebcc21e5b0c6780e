// Package glyph cuts 8x8 pixel windows out of a font atlas, either for a
// single character or for a horizontal scroll position across a string.
package glyph

import (
	"fmt"

	"github.com/coreman2200/rainbowmatrix/internal/font"
	"github.com/coreman2200/rainbowmatrix/internal/frame"
)

const cellBytes = font.CellSize * frame.Channels

// FallbackOrigin is the atlas column used for character codes that have no
// cell in the strip. Out of range codes are not errors: they render as the
// first glyph of the strip.
const FallbackOrigin = 0

// Window maps character codes onto an atlas whose first cell holds
// FirstChar.
type Window struct {
	Atlas     *font.Atlas
	FirstChar int
}

// New returns a Window over a.
func New(a *font.Atlas, firstChar int) *Window {
	return &Window{Atlas: a, FirstChar: firstChar}
}

// Offset returns the byte offset of the cell for code within an atlas row,
// or FallbackOrigin when the cell would fall outside the strip.
func (w *Window) Offset(code rune) int {
	off := (int(code) - w.FirstChar) * cellBytes
	if off < 0 || off+cellBytes > w.Atlas.RowBytes() {
		return FallbackOrigin
	}
	return off
}

// ForChar returns the RGB8 samples of the cell for code, row-major.
func (w *Window) ForChar(code rune) []byte {
	col := w.Offset(code)
	out := make([]byte, 0, frame.SampleCount)
	for y := 0; y < frame.Height; y++ {
		out = append(out, w.Atlas.Row(y)[col:col+cellBytes]...)
	}
	return out
}

// ForString returns the window that starts at pixel column start of s laid
// out as consecutive cells. The window spans at most two characters: the
// tail of s[start/8] followed by the head of s[(start+7)/8].
//
// start must lie in [0, (len(s)-1)*8].
func (w *Window) ForString(s []rune, start int) ([]byte, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("glyph: empty string: %w", frame.ErrInvalidInput)
	}
	if limit := (len(s) - 1) * font.CellSize; start < 0 || start > limit {
		return nil, fmt.Errorf("glyph: start column %d outside [0, %d]: %w", start, limit, frame.ErrInvalidInput)
	}

	visible := font.CellSize - start%font.CellSize
	col0 := w.Offset(s[start/font.CellSize])
	col1 := w.Offset(s[(start+font.CellSize-1)/font.CellSize])
	skip := (font.CellSize - visible) * frame.Channels

	out := make([]byte, 0, frame.SampleCount)
	for y := 0; y < frame.Height; y++ {
		row := w.Atlas.Row(y)
		out = append(out, row[col0+skip:col0+cellBytes]...)
		out = append(out, row[col1:col1+skip]...)
	}
	return out, nil
}

// PackChar is ForChar followed by frame.Pack.
func (w *Window) PackChar(code rune) (frame.Packed, error) {
	return frame.Pack(w.ForChar(code))
}

// PackString is ForString followed by frame.Pack.
func (w *Window) PackString(s []rune, start int) (frame.Packed, error) {
	samples, err := w.ForString(s, start)
	if err != nil {
		return frame.Packed{}, err
	}
	return frame.Pack(samples)
}
