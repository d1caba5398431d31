package engine

// IsStraight reports whether a and b share a row or a column.
func IsStraight(a, b Position) bool {
	return a.X == b.X || a.Y == b.Y
}

// LineBetween rasterizes the cells from a (exclusive) to b (inclusive)
// using Bresenham's algorithm. For orthogonal segments this is every cell
// along the run; for other slopes it is the usual staircase approximation.
// It returns nil when a == b.
func LineBetween(a, b Position) []Position {
	if a == b {
		return nil
	}

	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}

	cells := make([]Position, 0, max(dx, -dy))
	x, y := a.X, a.Y
	err := dx + dy
	for x != b.X || y != b.Y {
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
		cells = append(cells, Position{X: x, Y: y})
	}
	return cells
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// InBounds reports whether p lies inside a width x height grid.
func InBounds(p Position, width, height int) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

// Neighbors4 returns the orthogonal neighbours of p, in-bounds only.
func Neighbors4(p Position, width, height int) []Position {
	candidates := [4]Position{
		{X: p.X, Y: p.Y - 1},
		{X: p.X + 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X - 1, Y: p.Y},
	}
	out := make([]Position, 0, 4)
	for _, c := range candidates {
		if InBounds(c, width, height) {
			out = append(out, c)
		}
	}
	return out
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
