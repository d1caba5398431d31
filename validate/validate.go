// Package validate checks logistics level files before they are deployed.
//
// Every level must parse and pass engine.ValidateGameConfig. Files that pass
// are then analysed for battery trouble: cells no charger can reach within
// one charge, and robots that cannot finish their route on a level without
// chargers. Those findings are warnings; they do not fail the file.
package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmi-s/rongame/game/config"
	"github.com/dmi-s/rongame/game/engine"
)

// maxListed caps how many far cells a warning spells out
const maxListed = 5

// Result captures the outcome of validating a single file. Info is filled
// only for valid files.
type Result struct {
	File     string
	Valid    bool
	Errors   []string
	Warnings []string
	Info     []string
}

// File loads and validates a single level file
func File(path string) Result {
	result := Result{File: filepath.Base(path), Valid: true}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	level, err := config.ParseLevel(path, data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if err := engine.ValidateGameConfig(level); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Warnings = Analyze(level)
	result.Info = summary(level)
	return result
}

// Dir validates every JSON and YAML level in dir, sorted by file name
func Dir(dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	results := make([]Result, 0, len(names))
	for _, name := range names {
		results = append(results, File(filepath.Join(dir, name)))
	}
	return results, nil
}

// Print writes a report of results to w and reports whether all are valid
func Print(w io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  ✓ "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintln(w, "  ⚠️  "+warning)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	switch {
	case len(results) == 0:
		fmt.Fprintln(w, "No level files found")
	case allValid:
		fmt.Fprintln(w, "✅ All levels are valid!")
	default:
		fmt.Fprintln(w, "❌ Some levels have errors")
	}
	return allValid
}

// summary describes a validated level, counting stations on the grid the
// engine would build from it.
func summary(level *engine.GameConfig) []string {
	grid := engine.InitGameStateFromConfig(level).Grid
	low := fmt.Sprintf("low below %d%%", level.Rules.LowBatteryThreshold)
	if level.Rules.LowBatteryThreshold == engine.LowBatteryDisabled {
		low = "low check off"
	}
	return []string{
		fmt.Sprintf("Name: %s", level.Name),
		fmt.Sprintf("Grid: %dx%d", level.Width, level.Height),
		fmt.Sprintf("Robots: %d", len(level.Robots)),
		fmt.Sprintf("Chargers: %d", engine.CountCellType(grid, engine.Charging)),
		fmt.Sprintf("Loading stations: %d", engine.CountCellType(grid, engine.Loading)),
		fmt.Sprintf("Battery: %d%% per step, %s, charge to %d%%",
			level.Rules.BatteryPerStep, low, level.Rules.ChargeTo),
	}
}

// Analyze reports battery hazards of a level that already passed
// validation. Distances are counted in steps over passable cells.
func Analyze(level *engine.GameConfig) []string {
	var warnings []string
	chargers := cellsOf(level.Layout, engine.CharCharging)
	perStep := level.Rules.BatteryPerStep

	if len(chargers) == 0 {
		for _, rc := range level.Robots {
			steps, ok := routeLength(level.Layout, rc.Start, rc.Finish)
			if !ok {
				continue
			}
			if need := steps * perStep; need > rc.Battery {
				warnings = append(warnings, fmt.Sprintf(
					"Robot %d needs %d%% battery for its shortest route but starts with %d%% and the level has no charger",
					rc.ID, need, rc.Battery))
			}
		}
		return warnings
	}

	// A charged robot covers this many steps before it is empty
	rangeSteps := level.Rules.ChargeTo / perStep
	nearest := multiSourceDistances(level.Layout, chargers)

	var far []engine.Position
	for y, row := range level.Layout {
		for x := 0; x < len(row); x++ {
			p := engine.Position{X: x, Y: y}
			if row[x] == engine.CharObstacle {
				continue
			}
			if d, ok := nearest[p]; !ok || d > rangeSteps {
				far = append(far, p)
			}
		}
	}

	if len(far) > 0 {
		listed := make([]string, 0, maxListed)
		for i, p := range far {
			if i == maxListed {
				break
			}
			listed = append(listed, fmt.Sprintf("(%d,%d) '%c'", p.X, p.Y, level.Layout[p.Y][p.X]))
		}
		msg := fmt.Sprintf("%d cells are more than %d steps from any charger: %s",
			len(far), rangeSteps, strings.Join(listed, ", "))
		if len(far) > maxListed {
			msg += fmt.Sprintf(" and %d more", len(far)-maxListed)
		}
		warnings = append(warnings, msg)
	}
	return warnings
}

func cellsOf(layout []string, ch byte) []engine.Position {
	var cells []engine.Position
	for y, row := range layout {
		for x := 0; x < len(row); x++ {
			if row[x] == ch {
				cells = append(cells, engine.Position{X: x, Y: y})
			}
		}
	}
	return cells
}

// routeLength is the shortest start -> loading -> finish walk
func routeLength(layout []string, start, finish engine.Position) (int, bool) {
	fromStart := multiSourceDistances(layout, []engine.Position{start})
	toFinish := multiSourceDistances(layout, []engine.Position{finish})

	best, found := 0, false
	for _, l := range cellsOf(layout, engine.CharLoading) {
		a, okA := fromStart[l]
		b, okB := toFinish[l]
		if !okA || !okB {
			continue
		}
		if !found || a+b < best {
			best, found = a+b, true
		}
	}
	return best, found
}

// multiSourceDistances runs a breadth-first search from all sources at once
func multiSourceDistances(layout []string, sources []engine.Position) map[engine.Position]int {
	dist := make(map[engine.Position]int)
	height := len(layout)
	if height == 0 {
		return dist
	}
	width := len(layout[0])

	queue := make([]engine.Position, 0, len(sources))
	for _, s := range sources {
		if !engine.InBounds(s, width, height) || layout[s.Y][s.X] == engine.CharObstacle {
			continue
		}
		if _, seen := dist[s]; !seen {
			dist[s] = 0
			queue = append(queue, s)
		}
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for _, n := range engine.Neighbors4(p, width, height) {
			if _, seen := dist[n]; seen || layout[n.Y][n.X] == engine.CharObstacle {
				continue
			}
			dist[n] = dist[p] + 1
			queue = append(queue, n)
		}
	}
	return dist
}
