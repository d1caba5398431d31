package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/puzzle"
	"github.com/dmi-s/rongame/game/service"
)

// Instructions is the full rule text returned by game_instructions
const Instructions = `🎮 RonGame - Complete Instructions

LOGISTICS ROBOTS
================

GAME OBJECTIVE:
Deliver every robot to its unload cell (F). A robot must pick up cargo at a
loading station (L) before a finish cell counts as a delivery.

GRID LEGEND (game_state):
• . - floor
• # - obstacle (impassable)
• S - start
• F - unload spot
• C - charging station
• L - loading station
• 1-9 - robot with that ID
• * - cell claimed by a queued path

BUILDING ROUTES:
• click a robot to select it, click it again to deselect
• click a cell in the same row or column as the end of its route to add a
  straight segment; diagonal or bent clicks are rejected
• a segment may not cross obstacles, other robots, or cells claimed by
  another robot's route
• extend_path does the same without selecting first
• the robot starts driving as soon as its route has cells, one cell per tick

BATTERY:
• every step costs battery
• below 25% a robot drops the rest of its route unless the route ends on a
  charging station
• a robot that runs flat restarts the whole level
• standing on C recharges to full

VICTORY CONDITIONS:
All robots have delivered their cargo. The result reports total steps and time.

15-PUZZLE
=========

Tiles 1..N-1 sit on a square board with one empty slot. move_tile slides a
tile into the empty slot when they share an edge. Order the tiles row by row
with the empty slot last. The timer starts on the first click.

Good luck!`

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nGame: %s\n", session.ID, session.Game)
	if session.ConfigName != "" {
		fmt.Fprintf(&b, "Level: %s\n", session.ConfigName)
	}
	fmt.Fprintf(&b, "Created: %s\n\n", session.CreatedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(formatBoard(session))
	return b.String()
}

// formatBoard renders whichever game the session hosts
func formatBoard(session *service.SessionInfo) string {
	if session.Puzzle != nil {
		return formatPuzzle(session.Puzzle)
	}
	return formatGameState(session.GameState)
}

func cellChar(cell engine.Cell) string {
	switch {
	case cell.Occupant > 0 && cell.Occupant < 10:
		return string(rune('0' + cell.Occupant))
	case cell.Occupant != 0:
		return "R"
	case cell.LockedBy != 0:
		return "*"
	}
	return string(engine.CharForCellType(cell.Type))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Level: %s | Moves: %d | Delivered: %d/%d | Remaining: %d\n\n",
		state.ConfigName, state.Moves, state.Delivered, len(state.Robots), state.RemainingDeliveries)

	for _, row := range state.Grid {
		for _, cell := range row {
			b.WriteString(cellChar(cell))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, r := range state.Robots {
		cargo := "empty"
		if r.HasCargo {
			cargo = "loaded"
		}
		if r.Delivered {
			cargo = "delivered"
		}
		fmt.Fprintf(&b, "Robot %d at (%d,%d) battery %d%% %s -> unload (%d,%d)",
			r.ID, r.Pos.X, r.Pos.Y, r.Battery, cargo, r.Finish.X, r.Finish.Y)
		if len(r.Path) > 0 {
			end := r.Path[len(r.Path)-1]
			fmt.Fprintf(&b, ", route %d cells to (%d,%d)", len(r.Path), end.X, end.Y)
		}
		if risk := state.BatteryRisk[r.ID]; risk != "" {
			fmt.Fprintf(&b, " [%s]", risk)
		}
		if r.ID == state.SelectedRobot {
			b.WriteString(" (selected)")
		}
		b.WriteString("\n")
	}

	if len(state.Targets) > 0 {
		cells := make([]string, 0, len(state.Targets))
		for _, p := range state.Targets {
			cells = append(cells, fmt.Sprintf("(%d,%d)", p.X, p.Y))
		}
		fmt.Fprintf(&b, "Robot %d can extend to: %s\n", state.SelectedRobot, strings.Join(cells, " "))
	}

	if state.Victory {
		b.WriteString("\n🎉 VICTORY!")
	} else if state.GameOver {
		b.WriteString("\n💀 GAME OVER")
	}

	if state.Alert != "" {
		fmt.Fprintf(&b, "\n⚠️ %s", state.Alert)
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

func formatPuzzle(p *puzzle.Puzzle) string {
	if p == nil || p.Size == 0 {
		return "No puzzle available"
	}

	width := len(fmt.Sprint(p.Size*p.Size - 1))
	var b strings.Builder
	for i, tile := range p.Tiles {
		if i%p.Size != 0 {
			b.WriteString(" ")
		}
		if tile == 0 {
			fmt.Fprintf(&b, "%*s", width, ".")
		} else {
			fmt.Fprintf(&b, "%*d", width, tile)
		}
		if i%p.Size == p.Size-1 {
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nMoves: %d", p.Moves)
	if !p.StartedAt.IsZero() {
		end := p.FinishedAt
		if end.IsZero() {
			end = time.Now()
		}
		fmt.Fprintf(&b, " | Time: %s", puzzle.FormatElapsed(end.Sub(p.StartedAt)))
	}
	if p.Won {
		b.WriteString("\n🎉 SOLVED!")
	}
	return b.String()
}

func formatActionResult(result *service.ActionResult) string {
	var b strings.Builder
	if result.Accepted {
		b.WriteString("✓ Accepted")
	} else {
		fmt.Fprintf(&b, "✗ Rejected (%s)", result.Reason)
	}
	if result.RobotID != 0 {
		fmt.Fprintf(&b, " robot %d", result.RobotID)
	}
	b.WriteString("\n")
	for _, ev := range result.Events {
		fmt.Fprintf(&b, "- %s", ev.Type)
		if ev.Message != "" {
			fmt.Fprintf(&b, ": %s", ev.Message)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	for _, move := range history.Moves {
		status := "✓"
		if !move.Success {
			status = "✗"
		}
		fmt.Fprintf(&b, "%d. %s robot %d (%d,%d)->(%d,%d) %s [Battery: %d]\n",
			move.MoveNumber, move.Action, move.RobotID,
			move.FromPosition.X, move.FromPosition.Y, move.ToPosition.X, move.ToPosition.Y,
			status, move.Battery)
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore on page %d", history.Page+1)
	}

	return b.String()
}
