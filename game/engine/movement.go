package engine

import (
	"fmt"
	"time"
)

// Robot returns the robot with the given ID, or nil
func (gs *GameState) Robot(id int) *Robot {
	for i := range gs.Robots {
		if gs.Robots[i].ID == id {
			return &gs.Robots[i]
		}
	}
	return nil
}

// CellAt returns the cell at p, or nil when p is outside the grid
func (gs *GameState) CellAt(p Position) *Cell {
	if !InBounds(p, gs.Width, gs.Height) {
		return nil
	}
	return &gs.Grid[p.Y][p.X]
}

// Click routes a click on p: robots are selected or deselected, other
// cells extend the selected robot's path. Ignored clicks leave the state untouched.
func (gs *GameState) Click(p Position, config *GameConfig, now time.Time) ClickResult {
	if gs.GameOver {
		return ClickResult{Reason: ReasonGameOver}
	}
	cell := gs.CellAt(p)
	if cell == nil {
		return ClickResult{Reason: ReasonOutOfBounds}
	}

	if cell.Occupant != 0 {
		if cell.Occupant == gs.SelectedRobot {
			return gs.Deselect()
		}
		return gs.Select(cell.Occupant, config)
	}

	if gs.SelectedRobot == 0 {
		return ClickResult{Reason: ReasonNoSelection}
	}
	return gs.ExtendPath(gs.SelectedRobot, p, config, now)
}

// Select makes robotID the target of subsequent path clicks
func (gs *GameState) Select(robotID int, config *GameConfig) ClickResult {
	if gs.GameOver {
		return ClickResult{Reason: ReasonGameOver}
	}
	r := gs.Robot(robotID)
	if r == nil {
		return ClickResult{Reason: ReasonUnknownRobot}
	}
	if r.Delivered {
		return ClickResult{Reason: ReasonDelivered}
	}

	gs.SelectedRobot = robotID
	gs.Message = fmt.Sprintf(config.Messages.Selected, robotID)
	return ClickResult{
		Accepted: true,
		Events:   []Event{{Type: EventSelected, RobotID: robotID, Position: r.Pos, Message: gs.Message}},
	}
}

// Deselect clears the current selection
func (gs *GameState) Deselect() ClickResult {
	id := gs.SelectedRobot
	if id == 0 {
		return ClickResult{Reason: ReasonNoSelection}
	}
	gs.SelectedRobot = 0
	ev := Event{Type: EventDeselected, RobotID: id}
	if r := gs.Robot(id); r != nil {
		ev.Position = r.Pos
	}
	return ClickResult{Accepted: true, Events: []Event{ev}}
}

// ValidateSegment checks the straight segment from the robot's path end to
// target and returns its rasterized cells.
func (gs *GameState) ValidateSegment(robotID int, target Position) ([]Position, Reason) {
	if gs.GameOver {
		return nil, ReasonGameOver
	}
	r := gs.Robot(robotID)
	if r == nil {
		return nil, ReasonUnknownRobot
	}
	if r.Delivered {
		return nil, ReasonDelivered
	}
	if !InBounds(target, gs.Width, gs.Height) {
		return nil, ReasonOutOfBounds
	}

	anchor := r.PathEnd()
	if anchor == target {
		return nil, ReasonZeroLength
	}
	if !IsStraight(anchor, target) {
		return nil, ReasonNotStraight
	}

	cells := LineBetween(anchor, target)
	for _, p := range cells {
		c := gs.Grid[p.Y][p.X]
		switch {
		case !c.Passable():
			return nil, ReasonObstacle
		case c.Occupant != 0:
			// includes the robot's own cell: paths never loop back through it
			return nil, ReasonOccupied
		case c.LockedBy != 0:
			return nil, ReasonLocked
		}
	}
	return cells, ReasonNone
}

// ExtendPath appends a validated straight segment to the robot's path and locks its cells
func (gs *GameState) ExtendPath(robotID int, target Position, config *GameConfig, now time.Time) ClickResult {
	cells, reason := gs.ValidateSegment(robotID, target)
	if reason != ReasonNone {
		return ClickResult{
			Reason: reason,
			Events: []Event{{Type: EventPathRejected, RobotID: robotID, Position: target, Message: config.Messages.PathRejected}},
		}
	}

	r := gs.Robot(robotID)
	anchor := r.PathEnd()
	for _, p := range cells {
		gs.Grid[p.Y][p.X].LockedBy = robotID
	}
	r.Path = append(r.Path, cells...)

	if gs.StartedAt.IsZero() {
		gs.StartedAt = now
	}
	gs.Message = config.Messages.PathAdded
	gs.AddMoveToHistory("path", robotID, anchor, target, r.Battery, true, now)

	return ClickResult{
		Accepted: true,
		Events:   []Event{{Type: EventPathExtended, RobotID: robotID, Position: target, Message: gs.Message}},
	}
}

// ClearPath abandons the robot's queued path and releases its locks
func (gs *GameState) ClearPath(robotID int) bool {
	r := gs.Robot(robotID)
	if r == nil || !r.Moving() {
		return false
	}
	gs.releaseLocks(r)
	return true
}

// releaseLocks unlocks every queued cell of r and empties its path
func (gs *GameState) releaseLocks(r *Robot) {
	for _, p := range r.Path {
		if c := gs.CellAt(p); c != nil && c.LockedBy == r.ID {
			c.LockedBy = 0
		}
	}
	r.Path = r.Path[:0]
}

// StepRobot advances the robot one cell along its path and applies arrival
// effects. Battery depletion is reported through EventBatteryDepleted; the
// caller decides how to restart.
func (gs *GameState) StepRobot(robotID int, config *GameConfig, now time.Time) StepResult {
	if gs.GameOver {
		return StepResult{Reason: ReasonGameOver}
	}
	r := gs.Robot(robotID)
	if r == nil {
		return StepResult{Reason: ReasonUnknownRobot}
	}
	if !r.Moving() {
		return StepResult{Reason: ReasonIdle}
	}

	next := r.Path[0]
	nc := gs.CellAt(next)
	if nc == nil || !nc.Passable() {
		// Stale path; drop it rather than walk through walls.
		gs.releaseLocks(r)
		return StepResult{Reason: ReasonObstacle}
	}
	if (nc.Occupant != 0 && nc.Occupant != r.ID) || (nc.LockedBy != 0 && nc.LockedBy != r.ID) {
		return StepResult{
			Reason:    ReasonBlocked,
			Remaining: len(r.Path),
			Events:    []Event{{Type: EventBlocked, RobotID: r.ID, Position: next}},
		}
	}

	from := r.Pos
	if c := gs.CellAt(from); c != nil && c.Occupant == r.ID {
		c.Occupant = 0
	}
	nc.Occupant = r.ID
	nc.LockedBy = 0
	r.Pos = next
	r.Path = r.Path[1:]
	r.AtCharging, r.AtLoading, r.AtFinish = false, false, false

	r.Battery -= config.Rules.BatteryPerStep
	if r.Battery < 0 {
		r.Battery = 0
	}
	gs.Moves++

	result := StepResult{Moved: true}
	result.Events = append(result.Events, Event{Type: EventMoved, RobotID: r.ID, Position: next})

	switch nc.Type {
	case Charging:
		r.Battery = config.Rules.ChargeTo
		r.AtCharging = true
		gs.Message = fmt.Sprintf(config.Messages.Charged, r.ID)
		result.Events = append(result.Events, Event{Type: EventCharged, RobotID: r.ID, Position: next, Message: gs.Message})
	case Loading:
		r.AtLoading = true
		if !r.HasCargo {
			r.HasCargo = true
			gs.Message = fmt.Sprintf(config.Messages.Loaded, r.ID)
			result.Events = append(result.Events, Event{Type: EventLoaded, RobotID: r.ID, Position: next, Message: gs.Message})
		}
	case Finish:
		if next == r.Finish && r.HasCargo {
			r.HasCargo = false
			r.AtFinish = true
			r.Delivered = true
			gs.Delivered++
			gs.releaseLocks(r)
			if gs.SelectedRobot == r.ID {
				gs.SelectedRobot = 0
			}
			gs.Message = fmt.Sprintf(config.Messages.Delivered, r.ID)
			result.Events = append(result.Events, Event{Type: EventDelivered, RobotID: r.ID, Position: next, Message: gs.Message})
		}
	}

	gs.AddMoveToHistory("step", r.ID, from, next, r.Battery, true, now)

	switch {
	case r.Battery == 0 && !r.Delivered:
		gs.Alert = fmt.Sprintf(config.Messages.BatteryDepleted, r.ID)
		gs.Message = gs.Alert
		result.Events = append(result.Events, Event{Type: EventBatteryDepleted, RobotID: r.ID, Position: next, Message: gs.Alert})

	case r.Battery < config.Rules.LowBatteryThreshold && r.Moving() && gs.CellAt(r.PathEnd()).Type != Charging:
		gs.releaseLocks(r)
		gs.Message = fmt.Sprintf(config.Messages.LowBattery, r.ID)
		result.Events = append(result.Events, Event{Type: EventLowBattery, RobotID: r.ID, Position: next, Message: gs.Message})
	}

	if gs.allDelivered() {
		gs.Victory = true
		gs.GameOver = true
		gs.FinishedAt = now
		gs.SelectedRobot = 0
		gs.Message = fmt.Sprintf(config.Messages.Victory, gs.Moves)
		result.Events = append(result.Events, Event{Type: EventVictory, Message: gs.Message})
	}

	result.Remaining = len(r.Path)
	return result
}

// SegmentTargets lists every cell a single straight click could extend the robot's path to
func (gs *GameState) SegmentTargets(robotID int) []Position {
	r := gs.Robot(robotID)
	if r == nil || r.Delivered || gs.GameOver {
		return nil
	}
	anchor := r.PathEnd()
	var targets []Position
	for _, d := range []Position{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}} {
		p := Position{X: anchor.X + d.X, Y: anchor.Y + d.Y}
		for {
			c := gs.CellAt(p)
			if c == nil || !c.Passable() || c.Occupant != 0 || c.LockedBy != 0 {
				break
			}
			targets = append(targets, p)
			p = Position{X: p.X + d.X, Y: p.Y + d.Y}
		}
	}
	return targets
}

// Elapsed returns how long the round has been played, zero before the first path
func (gs *GameState) Elapsed(now time.Time) time.Duration {
	if gs.StartedAt.IsZero() {
		return 0
	}
	if !gs.FinishedAt.IsZero() {
		return gs.FinishedAt.Sub(gs.StartedAt)
	}
	return now.Sub(gs.StartedAt)
}

func (gs *GameState) allDelivered() bool {
	if len(gs.Robots) == 0 {
		return false
	}
	for i := range gs.Robots {
		if !gs.Robots[i].Delivered {
			return false
		}
	}
	return true
}

// AddMoveToHistory adds an action to the game's move history
func (gs *GameState) AddMoveToHistory(action string, robotID int, fromPos, toPos Position, battery int, success bool, now time.Time) {
	entry := MoveHistoryEntry{
		Action:       action,
		RobotID:      robotID,
		FromPosition: fromPos,
		ToPosition:   toPos,
		Battery:      battery,
		Timestamp:    now.Unix(),
		Success:      success,
		MoveNumber:   gs.TotalMoves + 1,
	}
	gs.MoveHistory = append(gs.MoveHistory, entry)
	gs.TotalMoves++
}
