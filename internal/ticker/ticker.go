// Package ticker implements the bounce scroll cursor used to animate text
// wider than the matrix.
package ticker

import "github.com/coreman2200/rainbowmatrix/internal/font"

// Direction is the sign of the per-tick step.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Cursor is a pixel offset that moves back and forth between column 0 and
// the start of the last character of a string. The zero value is not ready
// for use; call New or Reset.
type Cursor struct {
	pos   int
	delta Direction
}

// New returns a cursor at column 0 moving forward.
func New() *Cursor {
	c := &Cursor{}
	c.Reset()
	return c
}

// Reset puts the cursor back at column 0, moving forward.
func (c *Cursor) Reset() {
	c.pos = 0
	c.delta = Forward
}

// Bound is the last valid start column for a string of n characters.
func Bound(n int) int {
	return (n - 1) * font.CellSize
}

// Tick advances the cursor one column for a string of n characters (n >= 1)
// and returns the new position. Reaching either end clamps the position and
// reverses the direction.
func (c *Cursor) Tick(n int) int {
	if c.delta == 0 {
		c.delta = Forward
	}
	bound := Bound(n)
	c.pos += int(c.delta)
	if c.pos >= bound {
		c.pos = bound
		c.delta = Backward
	} else if c.pos <= 0 {
		c.pos = 0
		c.delta = Forward
	}
	return c.pos
}

// Position is the current start column.
func (c *Cursor) Position() int { return c.pos }

// Direction is the direction of the next tick.
func (c *Cursor) Direction() Direction { return c.delta }

// FullCycle is the number of ticks callers run before resetting the cursor
// for a string of n characters. It is one cell longer than the distance to
// the bound.
func FullCycle(n int) int {
	return n * font.CellSize
}
