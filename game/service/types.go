package service

import (
	"time"

	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/puzzle"
)

// CreateSessionRequest selects the game for a new session. An empty Game means logistics.
type CreateSessionRequest struct {
	Game       GameKind `json:"game,omitempty"`
	ConfigID   string   `json:"config_id,omitempty"`
	PuzzleSize int      `json:"puzzle_size,omitempty"`
	ChatID     int64    `json:"chat_id,omitempty"`
}

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	Game           GameKind           `json:"game"`
	ConfigName     string             `json:"config_name,omitempty"`
	ChatID         int64              `json:"chat_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state,omitempty"`
	GameConfig     *engine.GameConfig `json:"game_config,omitempty"`
	Puzzle         *puzzle.Puzzle     `json:"puzzle,omitempty"`
}

// ActionResult contains the outcome of a click, selection or path edit
type ActionResult struct {
	Accepted  bool              `json:"accepted"`
	Reason    engine.Reason     `json:"reason,omitempty"`
	RobotID   int               `json:"robot_id,omitempty"`
	Message   string            `json:"message"`
	Events    []engine.Event    `json:"events,omitempty"`
	GameState *engine.GameState `json:"game_state"`
}

// PathExtended reports whether the action queued new cells for RobotID
func (r *ActionResult) PathExtended() bool {
	for _, ev := range r.Events {
		if ev.Type == engine.EventPathExtended {
			return true
		}
	}
	return false
}

// StepResult contains the outcome of one robot step
type StepResult struct {
	Moved     bool              `json:"moved"`
	Reason    engine.Reason     `json:"reason,omitempty"`
	Remaining int               `json:"remaining"`
	Restarted bool              `json:"restarted,omitempty"`
	GameOver  bool              `json:"game_over"`
	From      engine.Position   `json:"from"`
	Robot     engine.Robot      `json:"robot"`
	Events    []engine.Event    `json:"events,omitempty"`
	GameState *engine.GameState `json:"game_state"`
}

// TileResult contains the outcome of a puzzle tile click
type TileResult struct {
	Moved  bool           `json:"moved"`
	Won    bool           `json:"won"`
	Puzzle *puzzle.Puzzle `json:"puzzle"`
	Result *puzzle.Result `json:"result,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a level
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Robots      int    `json:"robots"`
	Embedded    bool   `json:"embedded"`
}
