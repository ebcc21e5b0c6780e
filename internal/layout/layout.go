package layout

// Dim is the size of the matrix in pixels.
type Dim struct{ X, Y int }

// Serpentine describes how a strip snakes through the matrix.
type Serpentine struct {
	XFlipEveryRow bool
}

type Layout struct {
	Dim   Dim
	Order Serpentine
}

// Matrix8x8 is the layout of a row-by-row wired 8x8 matrix.
func Matrix8x8(serpentine bool) Layout {
	return Layout{Dim: Dim{X: 8, Y: 8}, Order: Serpentine{XFlipEveryRow: serpentine}}
}

// Index maps x,y -> linear LED index (0..N-1)
func (l Layout) Index(x, y int) int {
	xx := x
	if (y%2 == 1) && l.Order.XFlipEveryRow {
		xx = l.Dim.X - 1 - x
	}
	return y*l.Dim.X + xx
}

func (l Layout) Count() int {
	return l.Dim.X * l.Dim.Y
}
