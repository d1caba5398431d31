package engine

// ReachableCells runs a breadth-first search over passable layout cells
// starting at from. Robots are ignored; only obstacles block.
func ReachableCells(layout []string, from Position) map[Position]bool {
	height := len(layout)
	if height == 0 {
		return map[Position]bool{}
	}
	width := len(layout[0])
	if !InBounds(from, width, height) || layout[from.Y][from.X] == CharObstacle {
		return map[Position]bool{}
	}

	seen := map[Position]bool{from: true}
	queue := []Position{from}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, n := range Neighbors4(p, width, height) {
			if seen[n] || n.X >= len(layout[n.Y]) || layout[n.Y][n.X] == CharObstacle {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return seen
}

// FindNearestCharger finds the closest charging cell to from and returns its position and distance
func FindNearestCharger(state *GameState, from Position) (Position, int, bool) {
	minDistance := -1
	var nearestPos Position
	found := false

	for y := 0; y < len(state.Grid); y++ {
		for x := 0; x < len(state.Grid[y]); x++ {
			if state.Grid[y][x].Type != Charging {
				continue
			}
			pos := Position{X: x, Y: y}
			distance := ManhattanDistance(from, pos)
			if minDistance == -1 || distance < minDistance {
				minDistance = distance
				nearestPos = pos
				found = true
			}
		}
	}

	return nearestPos, minDistance, found
}

// AnalyzeBatteryRisk assesses battery danger for one robot based on its
// battery and the distance to the nearest charger
func AnalyzeBatteryRisk(state *GameState, robot *Robot, batteryPerStep int) string {
	if robot.Delivered {
		return "DONE"
	}
	if robot.Battery <= 0 {
		return "CRITICAL"
	}
	if batteryPerStep < 1 {
		batteryPerStep = DefaultBatteryPerStep
	}

	_, distance, found := FindNearestCharger(state, robot.Pos)
	if !found {
		return "WARNING"
	}

	stepsLeft := robot.Battery / batteryPerStep
	switch {
	case stepsLeft <= distance:
		return "DANGER"
	case stepsLeft <= distance+2:
		return "CAUTION"
	case robot.Battery < DefaultLowBatteryThreshold:
		return "LOW"
	}
	return "SAFE"
}

// CountCellType counts the total number of cells of a specific type in the grid
func CountCellType(grid [][]Cell, cellType CellType) int {
	count := 0
	for _, row := range grid {
		for _, cell := range row {
			if cell.Type == cellType {
				count++
			}
		}
	}
	return count
}
