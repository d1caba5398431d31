package engine

import "time"

// CellType represents the terrain category of a grid cell
type CellType string

const (
	Empty    CellType = "empty"
	Start    CellType = "start"
	Finish   CellType = "finish"
	Charging CellType = "charging"
	Loading  CellType = "loading"
	Obstacle CellType = "obstacle"

	// RobotCell is never stored in a layout; DisplayType reports it for occupied cells.
	RobotCell CellType = "robot"

	// Validation constants
	MinGridSize         = 3
	MaxGridSize         = 20
	MaxRobots           = 9
	MinBattery          = 0
	MaxBattery          = 100
	UnreachableDistance = 999999
	WebSocketBufferSize = 256

	// Rule defaults
	DefaultBatteryPerStep      = 5
	DefaultLowBatteryThreshold = 25
	DefaultChargeTo            = 100

	// LowBatteryDisabled as low_battery_threshold turns off path abandonment.
	// A zero threshold takes DefaultLowBatteryThreshold.
	LowBatteryDisabled = -1
)

// Cell represents a single grid cell
type Cell struct {
	Type     CellType `json:"type"`
	Occupant int      `json:"occupant,omitempty"`  // robot resting or moving on the cell
	LockedBy int      `json:"locked_by,omitempty"` // robot whose queued path claims the cell
}

// DisplayType returns RobotCell for occupied cells and the terrain otherwise.
func (c Cell) DisplayType() CellType {
	if c.Occupant != 0 {
		return RobotCell
	}
	return c.Type
}

// Passable reports whether robots may ever enter the cell.
func (c Cell) Passable() bool {
	return c.Type != Obstacle
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// RobotConfig places one robot in a level
type RobotConfig struct {
	ID      int      `json:"id" yaml:"id"`
	Start   Position `json:"start" yaml:"start"`
	Finish  Position `json:"finish" yaml:"finish"`
	Battery int      `json:"battery,omitempty" yaml:"battery,omitempty"`
}

// Rules tune the battery model of a level. Zero values take the defaults,
// so a level that never wants low-battery abandonment sets
// LowBatteryThreshold to LowBatteryDisabled rather than 0.
type Rules struct {
	BatteryPerStep      int `json:"battery_per_step,omitempty" yaml:"battery_per_step,omitempty"`
	LowBatteryThreshold int `json:"low_battery_threshold,omitempty" yaml:"low_battery_threshold,omitempty"`
	ChargeTo            int `json:"charge_to,omitempty" yaml:"charge_to,omitempty"`
}

// Messages are the user-facing texts of a level. Selected, Charged, Loaded,
// Delivered, LowBattery and BatteryDepleted receive the robot ID through %d;
// Victory receives the move count.
type Messages struct {
	Welcome         string `json:"welcome" yaml:"welcome"`
	Selected        string `json:"selected" yaml:"selected"`
	PathAdded       string `json:"path_added" yaml:"path_added"`
	PathRejected    string `json:"path_rejected" yaml:"path_rejected"`
	Charged         string `json:"charged" yaml:"charged"`
	Loaded          string `json:"loaded" yaml:"loaded"`
	Delivered       string `json:"delivered" yaml:"delivered"`
	LowBattery      string `json:"low_battery" yaml:"low_battery"`
	BatteryDepleted string `json:"battery_depleted" yaml:"battery_depleted"`
	Victory         string `json:"victory" yaml:"victory"`
}

// GameConfig represents a logistics level loaded from JSON or YAML
type GameConfig struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Width       int           `json:"width" yaml:"width"`
	Height      int           `json:"height" yaml:"height"`
	Layout      []string      `json:"layout" yaml:"layout"`
	Robots      []RobotConfig `json:"robots" yaml:"robots"`
	Rules       Rules         `json:"rules" yaml:"rules"`
	Messages    Messages      `json:"messages" yaml:"messages"`
}

// Robot is the runtime state of one robot
type Robot struct {
	ID         int        `json:"id"`
	Pos        Position   `json:"pos"`
	Finish     Position   `json:"finish"`
	Battery    int        `json:"battery"`
	HasCargo   bool       `json:"has_cargo"`
	AtCharging bool       `json:"at_charging"`
	AtLoading  bool       `json:"at_loading"`
	AtFinish   bool       `json:"at_finish"`
	Delivered  bool       `json:"delivered"`
	Path       []Position `json:"path"`
}

// Moving reports whether the robot still has queued cells.
func (r *Robot) Moving() bool {
	return len(r.Path) > 0
}

// PathEnd returns the last queued cell, or the robot position when idle.
func (r *Robot) PathEnd() Position {
	if len(r.Path) == 0 {
		return r.Pos
	}
	return r.Path[len(r.Path)-1]
}

// GameState represents the complete logistics game state
type GameState struct {
	Grid          [][]Cell           `json:"grid"`
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	Robots        []Robot            `json:"robots"`
	SelectedRobot int                `json:"selected_robot,omitempty"`
	Moves         int                `json:"moves"`
	Delivered     int                `json:"delivered"`
	Message       string             `json:"message"`
	Alert         string             `json:"alert,omitempty"`
	GameOver      bool               `json:"game_over"`
	Victory       bool               `json:"victory"`
	ConfigName    string             `json:"config_name"`
	StartedAt     time.Time          `json:"started_at,omitempty"`
	FinishedAt    time.Time          `json:"finished_at,omitempty"`
	MoveHistory   []MoveHistoryEntry `json:"move_history"`
	TotalMoves    int                `json:"total_moves"`
	Restarts      int                `json:"restarts"`

	// Computed helper view (not required for core game logic)
	BatteryRisk         map[int]string `json:"battery_risk,omitempty"`
	Targets             []Position     `json:"targets,omitempty"` // straight-click targets of the selected robot
	RemainingDeliveries int            `json:"remaining_deliveries"`
}

// MoveHistoryEntry represents one accepted action in the game history
type MoveHistoryEntry struct {
	Action       string   `json:"action"` // "path" or "step"
	RobotID      int      `json:"robot_id"`
	FromPosition Position `json:"from_position"`
	ToPosition   Position `json:"to_position"`
	Battery      int      `json:"battery"`
	Timestamp    int64    `json:"timestamp"`
	Success      bool     `json:"success"`
	MoveNumber   int      `json:"move_number"`
}

// EventType names something that happened during an engine operation
type EventType string

const (
	EventSelected        EventType = "robot_selected"
	EventDeselected      EventType = "robot_deselected"
	EventPathExtended    EventType = "path_extended"
	EventPathRejected    EventType = "path_rejected"
	EventPathCleared     EventType = "path_cleared"
	EventMoved           EventType = "robot_moved"
	EventBlocked         EventType = "robot_blocked"
	EventCharged         EventType = "charged"
	EventLoaded          EventType = "loaded"
	EventDelivered       EventType = "delivered"
	EventLowBattery      EventType = "low_battery"
	EventBatteryDepleted EventType = "battery_depleted"
	EventVictory         EventType = "victory"
	EventReset           EventType = "reset"
)

// Event is emitted by engine operations
type Event struct {
	Type     EventType `json:"type"`
	RobotID  int       `json:"robot_id,omitempty"`
	Position Position  `json:"position"`
	Message  string    `json:"message,omitempty"`
}

// Reason explains why an interaction was ignored
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNotStraight  Reason = "not_straight"
	ReasonZeroLength   Reason = "zero_length"
	ReasonOutOfBounds  Reason = "out_of_bounds"
	ReasonObstacle     Reason = "obstacle"
	ReasonOccupied     Reason = "occupied"
	ReasonLocked       Reason = "locked"
	ReasonDelivered    Reason = "robot_delivered"
	ReasonGameOver     Reason = "game_over"
	ReasonNoSelection  Reason = "no_selection"
	ReasonUnknownRobot Reason = "unknown_robot"
	ReasonIdle         Reason = "idle"
	ReasonBlocked      Reason = "blocked"
)

// ClickResult is the outcome of a click, selection or path extension
type ClickResult struct {
	Accepted bool    `json:"accepted"`
	Reason   Reason  `json:"reason,omitempty"`
	Events   []Event `json:"events,omitempty"`
}

// StepResult is the outcome of advancing one robot by one cell
type StepResult struct {
	Moved     bool    `json:"moved"`
	Reason    Reason  `json:"reason,omitempty"`
	Remaining int     `json:"remaining"`
	Events    []Event `json:"events,omitempty"`
	Restarted bool    `json:"restarted,omitempty"`
}

// Clone returns a deep copy of the state safe to read while the original keeps changing.
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	c := *gs
	c.Grid = make([][]Cell, len(gs.Grid))
	for y := range gs.Grid {
		c.Grid[y] = append([]Cell(nil), gs.Grid[y]...)
	}
	c.Robots = make([]Robot, len(gs.Robots))
	for i, r := range gs.Robots {
		r.Path = append([]Position{}, r.Path...)
		c.Robots[i] = r
	}
	c.MoveHistory = append([]MoveHistoryEntry{}, gs.MoveHistory...)
	if gs.Targets != nil {
		c.Targets = append([]Position(nil), gs.Targets...)
	}
	if gs.BatteryRisk != nil {
		c.BatteryRisk = make(map[int]string, len(gs.BatteryRisk))
		for k, v := range gs.BatteryRisk {
			c.BatteryRisk[k] = v
		}
	}
	return &c
}
