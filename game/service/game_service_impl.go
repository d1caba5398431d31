package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/puzzle"
	"github.com/dmi-s/rongame/logger"
)

const reportTimeout = 15 * time.Second

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	reporter ResultReporter
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithReporter sets the sink for won games
func WithReporter(r ResultReporter) Option {
	return func(s *gameServiceImpl) {
		s.reporter = r
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		reporter: LogReporter{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := SessionSpec{Kind: req.Game, PuzzleSize: req.PuzzleSize, ChatID: req.ChatID}
	switch req.Game {
	case "", GameLogistics:
		spec.Kind = GameLogistics
		config, err := s.resolveConfig(req.ConfigID)
		if err != nil {
			return nil, err
		}
		spec.Config = config
	case GamePuzzle:
	default:
		return nil, fmt.Errorf("%w: unknown game %q", ErrWrongGame, req.Game)
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	info := s.sessionInfo(session)
	if req.ConfigID != "" && session.Kind == GameLogistics {
		info.ConfigName = req.ConfigID
	}
	logger.Log.WithField("session", session.ID).WithField("game", session.Kind).Info("session created")
	return info, nil
}

// resolveConfig loads a level by ID, falling back to the default level
func (s *gameServiceImpl) resolveConfig(configID string) (*engine.GameConfig, error) {
	if configID == "" {
		return s.configs.GetDefault(), nil
	}

	config, err := s.configs.LoadConfig(configID)
	if err == nil {
		return config, nil
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to load config %s: %w", configID, err)
	}

	// Provide helpful error message with available options
	availableConfigs, listErr := s.configs.ListConfigs()
	if listErr == nil && len(availableConfigs) > 0 {
		var configIDs []string
		for _, cfg := range availableConfigs {
			configIDs = append(configIDs, cfg.ConfigID)
		}
		return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configID, configIDs)
	}
	return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configID)
}

// sessionInfo builds a snapshot of sess. Callers hold s.mu.
func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		Game:           sess.Kind,
		ChatID:         sess.ChatID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
	}
	switch sess.Kind {
	case GamePuzzle:
		info.Puzzle = sess.Puzzle.Clone()
	default:
		info.ConfigName = s.getConfigID(sess.Config.Name)
		info.GameState = snapshot(sess.Engine)
		info.GameConfig = sess.Config
	}
	return info
}

// snapshot copies the engine state and fills the computed risk view
func snapshot(e *engine.GameEngine) *engine.GameState {
	state := e.GetState().Clone()
	state.BatteryRisk = e.BatteryRisk()
	state.RemainingDeliveries = e.GetRemainingDeliveries()
	if state.SelectedRobot != 0 {
		state.Targets = e.SegmentTargets(state.SelectedRobot)
	}
	return state
}

// getSession looks up a session and refreshes its access time. Callers hold
// s.mu for writing since the refresh races with sessionInfo readers.
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// logisticsSession returns the session when it hosts the logistics game
func (s *gameServiceImpl) logisticsSession(sessionID string) (*Session, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Kind != GameLogistics || sess.Engine == nil {
		return nil, fmt.Errorf("%w: session %s plays %s", ErrWrongGame, sess.ID, sess.Kind)
	}
	return sess, nil
}

// puzzleSession returns the session when it hosts the 15-puzzle
func (s *gameServiceImpl) puzzleSession(sessionID string) (*Session, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Kind != GamePuzzle || sess.Puzzle == nil {
		return nil, fmt.Errorf("%w: session %s plays %s", ErrWrongGame, sess.ID, sess.Kind)
	}
	return sess, nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Reset restarts the session's game from its initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	switch sess.Kind {
	case GamePuzzle:
		sess.Puzzle.Shuffle(puzzle.DefaultShuffleSteps)
	default:
		sess.Engine.Reset()
	}
	return s.sessionInfo(sess), nil
}

// Click handles a board click in a logistics session
func (s *gameServiceImpl) Click(ctx context.Context, sessionID string, x, y int) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.logisticsSession(sessionID)
	if err != nil {
		return nil, err
	}
	selected := sess.Engine.GetState().SelectedRobot
	res := sess.Engine.Click(x, y)

	robotID := sess.Engine.GetState().SelectedRobot
	if robotID == 0 {
		robotID = selected
	}
	return actionResult(sess.Engine, robotID, res), nil
}

// SelectRobot selects a robot for path building
func (s *gameServiceImpl) SelectRobot(ctx context.Context, sessionID string, robotID int) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.logisticsSession(sessionID)
	if err != nil {
		return nil, err
	}
	res := sess.Engine.SelectRobot(robotID)
	return actionResult(sess.Engine, robotID, res), nil
}

// ExtendPath appends a straight segment to a robot's path
func (s *gameServiceImpl) ExtendPath(ctx context.Context, sessionID string, robotID int, target engine.Position) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.logisticsSession(sessionID)
	if err != nil {
		return nil, err
	}
	res := sess.Engine.ExtendPath(robotID, target)
	return actionResult(sess.Engine, robotID, res), nil
}

// ClearPath abandons a robot's queued path
func (s *gameServiceImpl) ClearPath(ctx context.Context, sessionID string, robotID int) (*ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.logisticsSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Engine.GetRobot(robotID) == nil {
		return actionResult(sess.Engine, robotID, engine.ClickResult{Reason: engine.ReasonUnknownRobot}), nil
	}

	res := engine.ClickResult{Reason: engine.ReasonIdle}
	if sess.Engine.ClearPath(robotID) {
		res = engine.ClickResult{
			Accepted: true,
			Events:   []engine.Event{{Type: engine.EventPathCleared, RobotID: robotID}},
		}
	}
	return actionResult(sess.Engine, robotID, res), nil
}

func actionResult(e *engine.GameEngine, robotID int, res engine.ClickResult) *ActionResult {
	state := snapshot(e)
	return &ActionResult{
		Accepted:  res.Accepted,
		Reason:    res.Reason,
		RobotID:   robotID,
		Message:   state.Message,
		Events:    res.Events,
		GameState: state,
	}
}

// StepRobot advances one robot by a single cell. A victory is reported
// without waiting for the reporter.
func (s *gameServiceImpl) StepRobot(ctx context.Context, sessionID string, robotID int) (*StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.logisticsSession(sessionID)
	if err != nil {
		return nil, err
	}

	var from engine.Position
	if r := sess.Engine.GetRobot(robotID); r != nil {
		from = r.Pos
	}

	res := sess.Engine.Step(robotID)
	state := snapshot(sess.Engine)
	result := &StepResult{
		Moved:     res.Moved,
		Reason:    res.Reason,
		Remaining: res.Remaining,
		Restarted: res.Restarted,
		GameOver:  state.GameOver,
		From:      from,
		Events:    res.Events,
		GameState: state,
	}
	if r := state.Robot(robotID); r != nil {
		result.Robot = *r
	}

	if res.Restarted {
		logger.Log.WithField("session", sess.ID).WithField("robot", robotID).Warn("battery depleted, level restarted")
	}
	for _, ev := range res.Events {
		if ev.Type == engine.EventVictory {
			s.report(sess, state.Moves, sess.Engine.Elapsed())
			break
		}
	}
	return result, nil
}

// MovingRobots lists robots that still have queued cells
func (s *gameServiceImpl) MovingRobots(ctx context.Context, sessionID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.logisticsSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.MovingRobots(), nil
}

// GetGameState retrieves the current logistics state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.logisticsSession(sessionID)
	if err != nil {
		return nil, err
	}
	return snapshot(sess.Engine), nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.logisticsSession(sessionID)
	if err != nil {
		return nil, err
	}
	return paginate(sess.Engine.GetMoveHistory(), opts), nil
}

// paginate slices history into one page. Defaults: page 1, 20 per page
// (at most 100), newest first.
func paginate(history []engine.MoveHistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// MoveTile clicks a puzzle tile
func (s *gameServiceImpl) MoveTile(ctx context.Context, sessionID string, index int) (*TileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.puzzleSession(sessionID)
	if err != nil {
		return nil, err
	}

	p := sess.Puzzle
	wasWon := p.Won
	moved := p.MoveTile(index)
	result := &TileResult{
		Moved:  moved,
		Won:    p.Won,
		Puzzle: p.Clone(),
	}
	if p.Won && !wasWon {
		res := p.Result()
		result.Result = &res
		s.report(sess, p.Moves, p.Elapsed())
	}
	return result, nil
}

// Shuffle deals a new puzzle board
func (s *gameServiceImpl) Shuffle(ctx context.Context, sessionID string) (*puzzle.Puzzle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.puzzleSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.Puzzle.Shuffle(puzzle.DefaultShuffleSteps)
	return sess.Puzzle.Clone(), nil
}

// GetPuzzle returns the puzzle board
func (s *gameServiceImpl) GetPuzzle(ctx context.Context, sessionID string) (*puzzle.Puzzle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.puzzleSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Puzzle.Clone(), nil
}

// ShareText returns the brag line for the session's game
func (s *gameServiceImpl) ShareText(ctx context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return "", err
	}
	return shareText(sess), nil
}

// shareText formats the brag line. Callers hold s.mu.
func shareText(sess *Session) string {
	if sess.Kind == GamePuzzle {
		return sess.Puzzle.ShareText()
	}
	state := sess.Engine.GetState()
	return fmt.Sprintf("🎉 Я доставил все грузы в игре \"Логистические роботы\" за %d ходов и %s времени!",
		state.Moves, puzzle.FormatElapsed(sess.Engine.Elapsed()))
}

// report hands a won game to the reporter in its own goroutine. Callers hold s.mu.
func (s *gameServiceImpl) report(sess *Session, moves int, elapsed time.Duration) {
	if s.reporter == nil {
		return
	}
	result := GameResult{
		ID:         newResultID(),
		SessionID:  sess.ID,
		Game:       sess.Kind.ResultName(),
		Moves:      moves,
		Time:       int(elapsed / time.Second),
		ChatID:     sess.ChatID,
		ShareText:  shareText(sess),
		FinishedAt: time.Now(),
	}

	reporter := s.reporter
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if err := reporter.Report(ctx, result); err != nil {
			logger.Log.WithError(err).WithField("session", result.SessionID).Warn("failed to report game result")
		}
	}()
}

// ListConfigs returns available levels
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific level
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a level to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}
