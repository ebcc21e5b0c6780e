// Package fonttest builds synthetic atlases for tests.
package fonttest

import "github.com/coreman2200/rainbowmatrix/internal/font"

// Strip returns an atlas of n cells. Every cell is filled with a distinct
// solid color, so frames for different cells never compare equal.
func Strip(n int) *font.Atlas {
	rows := make([][]byte, font.CellSize)
	for y := range rows {
		for x := 0; x < n*font.CellSize; x++ {
			c := byte(x / font.CellSize)
			rows[y] = append(rows[y], 0x10*c, 0xFF-0x10*c, byte(y)<<4)
		}
	}
	a, err := font.FromRows(rows)
	if err != nil {
		panic(err)
	}
	return a
}
