package engine

import (
	"fmt"
	"strings"
)

// Layout legend
const (
	CharEmpty    = '.'
	CharObstacle = '#'
	CharStart    = 'S'
	CharFinish   = 'F'
	CharCharging = 'C'
	CharLoading  = 'L'
)

// cellTypeForChar maps a layout character to its cell type
func cellTypeForChar(ch byte) (CellType, bool) {
	switch ch {
	case CharEmpty:
		return Empty, true
	case CharObstacle:
		return Obstacle, true
	case CharStart:
		return Start, true
	case CharFinish:
		return Finish, true
	case CharCharging:
		return Charging, true
	case CharLoading:
		return Loading, true
	}
	return "", false
}

// CharForCellType is the inverse of the layout legend
func CharForCellType(t CellType) byte {
	switch t {
	case Obstacle:
		return CharObstacle
	case Start:
		return CharStart
	case Finish:
		return CharFinish
	case Charging:
		return CharCharging
	case Loading:
		return CharLoading
	}
	return CharEmpty
}

// DefaultMessages returns the stock texts used when a level leaves one empty
func DefaultMessages() Messages {
	return Messages{
		Welcome:         "Доставьте грузы: выберите робота и постройте маршрут.",
		Selected:        "Робот %d выбран",
		PathAdded:       "Маршрут продлён",
		PathRejected:    "Так проехать нельзя",
		Charged:         "Робот %d заряжен",
		Loaded:          "Робот %d загружен",
		Delivered:       "Робот %d доставил груз",
		LowBattery:      "Робот %d: низкий заряд, маршрут отменён. Нужна зарядка!",
		BatteryDepleted: "Батарея робота %d разряжена! Игра начинается заново.",
		Victory:         "Победа! Все грузы доставлены за %d ходов.",
	}
}

// ApplyDefaults fills zero rule values, empty messages and zero robot batteries
func ApplyDefaults(config *GameConfig) {
	if config.Rules.BatteryPerStep == 0 {
		config.Rules.BatteryPerStep = DefaultBatteryPerStep
	}
	if config.Rules.LowBatteryThreshold == 0 {
		config.Rules.LowBatteryThreshold = DefaultLowBatteryThreshold
	}
	if config.Rules.ChargeTo == 0 {
		config.Rules.ChargeTo = DefaultChargeTo
	}
	for i := range config.Robots {
		if config.Robots[i].Battery == 0 {
			config.Robots[i].Battery = MaxBattery
		}
	}

	defaults := DefaultMessages()
	m := &config.Messages
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&m.Welcome, defaults.Welcome)
	fill(&m.Selected, defaults.Selected)
	fill(&m.PathAdded, defaults.PathAdded)
	fill(&m.PathRejected, defaults.PathRejected)
	fill(&m.Charged, defaults.Charged)
	fill(&m.Loaded, defaults.Loaded)
	fill(&m.Delivered, defaults.Delivered)
	fill(&m.LowBattery, defaults.LowBattery)
	fill(&m.BatteryDepleted, defaults.BatteryDepleted)
	fill(&m.Victory, defaults.Victory)
}

// ValidateGameConfig applies defaults and validates a level for correctness and playability
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	ApplyDefaults(config)

	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}

	if config.Width < MinGridSize || config.Width > MaxGridSize {
		return fmt.Errorf("config validation: width must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Width)
	}
	if config.Height < MinGridSize || config.Height > MaxGridSize {
		return fmt.Errorf("config validation: height must be between %d and %d, got %d", MinGridSize, MaxGridSize, config.Height)
	}

	if len(config.Layout) != config.Height {
		return fmt.Errorf("config validation: layout must have %d rows to match height, got %d",
			config.Height, len(config.Layout))
	}

	loadingCount := 0
	for i, row := range config.Layout {
		if len(row) != config.Width {
			return fmt.Errorf("config validation: row %d must have %d characters to match width, got %d",
				i+1, config.Width, len(row))
		}
		for j := 0; j < len(row); j++ {
			t, ok := cellTypeForChar(row[j])
			if !ok {
				return fmt.Errorf("config validation: invalid character '%c' at row %d, col %d", row[j], i+1, j+1)
			}
			if t == Loading {
				loadingCount++
			}
		}
	}
	if loadingCount == 0 {
		return fmt.Errorf("config validation: layout must contain at least one loading (L) cell")
	}

	// Validate rules
	r := config.Rules
	if r.BatteryPerStep < 1 || r.BatteryPerStep > MaxBattery {
		return fmt.Errorf("config validation: rules.battery_per_step must be between 1 and %d, got %d", MaxBattery, r.BatteryPerStep)
	}
	if r.LowBatteryThreshold < LowBatteryDisabled || r.LowBatteryThreshold > MaxBattery {
		return fmt.Errorf("config validation: rules.low_battery_threshold must be between %d and %d, got %d", LowBatteryDisabled, MaxBattery, r.LowBatteryThreshold)
	}
	if r.ChargeTo < 1 || r.ChargeTo > MaxBattery {
		return fmt.Errorf("config validation: rules.charge_to must be between 1 and %d, got %d", MaxBattery, r.ChargeTo)
	}

	// Validate robots
	if len(config.Robots) == 0 || len(config.Robots) > MaxRobots {
		return fmt.Errorf("config validation: level must have between 1 and %d robots, got %d", MaxRobots, len(config.Robots))
	}
	ids := make(map[int]bool)
	starts := make(map[Position]int)
	finishes := make(map[Position]int)
	for _, rc := range config.Robots {
		if rc.ID < 1 || rc.ID > MaxRobots {
			return fmt.Errorf("config validation: robot id must be between 1 and %d, got %d", MaxRobots, rc.ID)
		}
		if ids[rc.ID] {
			return fmt.Errorf("config validation: duplicate robot id %d", rc.ID)
		}
		ids[rc.ID] = true

		if rc.Battery < 1 || rc.Battery > MaxBattery {
			return fmt.Errorf("config validation: robot %d battery must be between 1 and %d, got %d", rc.ID, MaxBattery, rc.Battery)
		}
		if !InBounds(rc.Start, config.Width, config.Height) || config.Layout[rc.Start.Y][rc.Start.X] != CharStart {
			return fmt.Errorf("config validation: robot %d start (%d,%d) must be a start (S) cell", rc.ID, rc.Start.X, rc.Start.Y)
		}
		if !InBounds(rc.Finish, config.Width, config.Height) || config.Layout[rc.Finish.Y][rc.Finish.X] != CharFinish {
			return fmt.Errorf("config validation: robot %d finish (%d,%d) must be a finish (F) cell", rc.ID, rc.Finish.X, rc.Finish.Y)
		}
		if other, taken := starts[rc.Start]; taken {
			return fmt.Errorf("config validation: robots %d and %d share a start cell", other, rc.ID)
		}
		if other, taken := finishes[rc.Finish]; taken {
			return fmt.Errorf("config validation: robots %d and %d share a finish cell", other, rc.ID)
		}
		starts[rc.Start] = rc.ID
		finishes[rc.Finish] = rc.ID
	}

	// Validate format strings
	m := config.Messages
	for name, text := range map[string]string{
		"selected":         m.Selected,
		"charged":          m.Charged,
		"loaded":           m.Loaded,
		"delivered":        m.Delivered,
		"low_battery":      m.LowBattery,
		"battery_depleted": m.BatteryDepleted,
		"victory":          m.Victory,
	} {
		if strings.Count(text, "%d") != 1 {
			return fmt.Errorf("config validation: messages.%s must contain exactly one %%d", name)
		}
	}

	// Validate winnability - every robot must reach a loading cell and then its finish
	reach := func(from Position) map[Position]bool {
		return ReachableCells(config.Layout, from)
	}
	for _, rc := range config.Robots {
		fromStart := reach(rc.Start)
		delivered := false
		for p := range fromStart {
			if config.Layout[p.Y][p.X] != CharLoading {
				continue
			}
			if reach(p)[rc.Finish] {
				delivered = true
				break
			}
		}
		if !delivered {
			return fmt.Errorf("config validation: robot %d cannot reach a loading cell and then its finish", rc.ID)
		}
	}

	return nil
}

// DefaultConfig returns the built-in warehouse level
func DefaultConfig() *GameConfig {
	config := &GameConfig{
		Name:        "warehouse",
		Description: "Two robots, one charger per side of the warehouse",
		Width:       7,
		Height:      7,
		Layout: []string{
			"S.#..L.",
			"S.#....",
			"..#.C..",
			".......",
			"..##.#.",
			"C....#F",
			".L...#F",
		},
		Robots: []RobotConfig{
			{ID: 1, Start: Position{X: 0, Y: 0}, Finish: Position{X: 6, Y: 5}},
			{ID: 2, Start: Position{X: 0, Y: 1}, Finish: Position{X: 6, Y: 6}},
		},
	}
	ApplyDefaults(config)
	return config
}

// InitGameStateFromConfig creates a new game state using the provided configuration
func InitGameStateFromConfig(config *GameConfig) *GameState {
	if config == nil {
		config = DefaultConfig()
	}

	grid := make([][]Cell, config.Height)
	for y := range grid {
		grid[y] = make([]Cell, config.Width)
		for x := 0; x < config.Width; x++ {
			t := Empty
			if y < len(config.Layout) && x < len(config.Layout[y]) {
				if ct, ok := cellTypeForChar(config.Layout[y][x]); ok {
					t = ct
				}
			}
			grid[y][x] = Cell{Type: t}
		}
	}

	robots := make([]Robot, 0, len(config.Robots))
	for _, rc := range config.Robots {
		battery := rc.Battery
		if battery == 0 {
			battery = MaxBattery
		}
		robots = append(robots, Robot{
			ID:      rc.ID,
			Pos:     rc.Start,
			Finish:  rc.Finish,
			Battery: battery,
			Path:    []Position{},
		})
		if InBounds(rc.Start, config.Width, config.Height) {
			grid[rc.Start.Y][rc.Start.X].Occupant = rc.ID
		}
	}

	return &GameState{
		Grid:        grid,
		Width:       config.Width,
		Height:      config.Height,
		Robots:      robots,
		Message:     config.Messages.Welcome,
		ConfigName:  config.Name,
		MoveHistory: []MoveHistoryEntry{},
	}
}
