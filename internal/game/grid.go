package game

import "math"

// Grid maps card ids onto a rows by columns layout and tracks a cursor, so
// any front-end can move around the board the same way.
type Grid struct {
	Cards  int
	Cols   int
	Cursor int
}

// NewGrid picks a near-square layout, never wider than six columns.
func NewGrid(cards int) Grid {
	return Grid{Cards: cards, Cols: Columns(cards)}
}

// Columns returns the column count used for n cards.
func Columns(n int) int {
	if n <= 0 {
		return 1
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	if n%cols != 0 && n%(cols+1) == 0 {
		cols++
	}
	if cols > 6 {
		cols = 6
	}
	return cols
}

func (g Grid) Rows() int {
	return (g.Cards + g.Cols - 1) / g.Cols
}

// Row returns the card ids in row r.
func (g Grid) Row(r int) []int {
	var ids []int
	for c := 0; c < g.Cols; c++ {
		id := r*g.Cols + c
		if id >= g.Cards {
			break
		}
		ids = append(ids, id)
	}
	return ids
}

// Move shifts the cursor by dx columns and dy rows, clamped to the board.
func (g *Grid) Move(dx, dy int) {
	if g.Cards == 0 {
		return
	}
	row, col := g.Cursor/g.Cols, g.Cursor%g.Cols
	col = clamp(col+dx, 0, g.Cols-1)
	row = clamp(row+dy, 0, g.Rows()-1)
	id := row*g.Cols + col
	if id >= g.Cards {
		id = g.Cards - 1
	}
	g.Cursor = id
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
