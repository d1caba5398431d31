package service

import (
	"context"
	"strings"
	"time"

	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/puzzle"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Reset(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Logistics Operations
	Click(ctx context.Context, sessionID string, x, y int) (*ActionResult, error)
	SelectRobot(ctx context.Context, sessionID string, robotID int) (*ActionResult, error)
	ExtendPath(ctx context.Context, sessionID string, robotID int, target engine.Position) (*ActionResult, error)
	ClearPath(ctx context.Context, sessionID string, robotID int) (*ActionResult, error)
	StepRobot(ctx context.Context, sessionID string, robotID int) (*StepResult, error)
	MovingRobots(ctx context.Context, sessionID string) ([]int, error)

	// Logistics State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Puzzle Operations
	MoveTile(ctx context.Context, sessionID string, index int) (*TileResult, error)
	Shuffle(ctx context.Context, sessionID string) (*puzzle.Puzzle, error)
	GetPuzzle(ctx context.Context, sessionID string) (*puzzle.Puzzle, error)

	// Results
	ShareText(ctx context.Context, sessionID string) (string, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, spec SessionSpec) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, spec SessionSpec) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles level loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// GameKind selects which game a session plays
type GameKind string

const (
	GameLogistics GameKind = "logistics"
	GamePuzzle    GameKind = "15-puzzle"
)

// ResultName is the game identifier used in result payloads
func (k GameKind) ResultName() string {
	if k == GamePuzzle {
		return puzzle.GameName
	}
	return "logistics-robots"
}

// SessionSpec describes the game a new session should host
type SessionSpec struct {
	Kind       GameKind
	Config     *engine.GameConfig
	PuzzleSize int
	ChatID     int64
}

// Session represents an active game session. Exactly one of Engine and
// Puzzle is set, matching Kind.
type Session struct {
	ID             string
	Kind           GameKind
	Engine         *engine.GameEngine
	Puzzle         *puzzle.Puzzle
	Config         *engine.GameConfig
	ChatID         int64
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// SessionKey folds a session ID to the form sessions are keyed by. Lookups
// by ID are case-insensitive, so anything indexing per session uses this.
func SessionKey(id string) string {
	return strings.ToLower(id)
}
