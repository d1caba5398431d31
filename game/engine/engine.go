package engine

import (
	"time"
)

// Engine provides the main interface for logistics game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Reset() *GameState
	IsGameOver() bool
	IsVictory() bool

	// Interaction
	Click(x, y int) ClickResult
	SelectRobot(robotID int) ClickResult
	Deselect() ClickResult
	ExtendPath(robotID int, target Position) ClickResult
	ClearPath(robotID int) bool
	SegmentTargets(robotID int) []Position

	// Movement
	Step(robotID int) StepResult
	MovingRobots() []int

	// Configuration
	GetConfig() *GameConfig

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry

	// Objectives
	GetRobot(robotID int) *Robot
	GetRemainingDeliveries() int
	Elapsed() time.Duration
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state  *GameState
	config *GameConfig

	// Now is the engine clock; tests replace it.
	Now func() time.Time
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	engine := &GameEngine{
		config: config,
		state:  InitGameStateFromConfig(config),
		Now:    time.Now,
	}

	return engine, nil
}

// NewEngineWithDefaults creates a new game engine on the built-in warehouse level
func NewEngineWithDefaults() *GameEngine {
	config := DefaultConfig()
	return &GameEngine{
		config: config,
		state:  InitGameStateFromConfig(config),
		Now:    time.Now,
	}
}

// GetState returns the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Reset resets the game to the initial level state
func (e *GameEngine) Reset() *GameState {
	e.restart()
	e.state.Alert = ""
	return e.state
}

// restart reinitialises the level while keeping cumulative history and totals
func (e *GameEngine) restart() {
	prevHistory := e.state.MoveHistory
	prevTotal := e.state.TotalMoves
	prevRestarts := e.state.Restarts

	e.state = InitGameStateFromConfig(e.config)

	e.state.MoveHistory = prevHistory
	e.state.TotalMoves = prevTotal
	e.state.Restarts = prevRestarts
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// IsVictory returns whether every cargo has been delivered
func (e *GameEngine) IsVictory() bool {
	return e.state.Victory
}

// Click handles a click on grid cell (x, y)
func (e *GameEngine) Click(x, y int) ClickResult {
	return e.state.Click(Position{X: x, Y: y}, e.config, e.Now())
}

// SelectRobot selects a robot for path building
func (e *GameEngine) SelectRobot(robotID int) ClickResult {
	return e.state.Select(robotID, e.config)
}

// Deselect clears the selection
func (e *GameEngine) Deselect() ClickResult {
	return e.state.Deselect()
}

// ExtendPath appends a straight segment to a robot's path
func (e *GameEngine) ExtendPath(robotID int, target Position) ClickResult {
	return e.state.ExtendPath(robotID, target, e.config, e.Now())
}

// ClearPath drops a robot's queued path
func (e *GameEngine) ClearPath(robotID int) bool {
	return e.state.ClearPath(robotID)
}

// SegmentTargets lists the cells a straight click could reach for robotID
func (e *GameEngine) SegmentTargets(robotID int) []Position {
	return e.state.SegmentTargets(robotID)
}

// Step moves a robot one cell. When its battery runs out the level restarts
// and the alert survives on the new state.
func (e *GameEngine) Step(robotID int) StepResult {
	result := e.state.StepRobot(robotID, e.config, e.Now())

	for _, ev := range result.Events {
		if ev.Type != EventBatteryDepleted {
			continue
		}
		alert := e.state.Alert
		e.restart()
		e.state.Restarts++
		e.state.Alert = alert
		e.state.Message = alert
		result.Restarted = true
		result.Remaining = 0
		result.Events = append(result.Events, Event{Type: EventReset, Message: alert})
		break
	}

	return result
}

// MovingRobots returns the IDs of robots with queued cells
func (e *GameEngine) MovingRobots() []int {
	var ids []int
	for i := range e.state.Robots {
		if e.state.Robots[i].Moving() {
			ids = append(ids, e.state.Robots[i].ID)
		}
	}
	return ids
}

// GetConfig returns the current level
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return e.state.MoveHistory
}

// GetLastMove returns the last recorded action, or nil if none
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	return &e.state.MoveHistory[len(e.state.MoveHistory)-1]
}

// GetRobot returns a robot by ID, or nil
func (e *GameEngine) GetRobot(robotID int) *Robot {
	return e.state.Robot(robotID)
}

// GetRemainingDeliveries returns the number of robots still carrying or fetching cargo
func (e *GameEngine) GetRemainingDeliveries() int {
	return len(e.state.Robots) - e.state.Delivered
}

// Elapsed returns the time played in the current round
func (e *GameEngine) Elapsed() time.Duration {
	return e.state.Elapsed(e.Now())
}

// BatteryRisk computes the risk label of every robot
func (e *GameEngine) BatteryRisk() map[int]string {
	risks := make(map[int]string, len(e.state.Robots))
	for i := range e.state.Robots {
		r := &e.state.Robots[i]
		risks[r.ID] = AnalyzeBatteryRisk(e.state, r, e.config.Rules.BatteryPerStep)
	}
	return risks
}
