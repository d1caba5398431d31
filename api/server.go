package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/dmi-s/rongame/game/animator"
	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/service"
	"github.com/dmi-s/rongame/logger"
	"github.com/dmi-s/rongame/transport/websocket"
)

// MessageHandler answers one JSON-RPC message. *server.MCPServer satisfies it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage
}

// Server represents the REST API server
type Server struct {
	ctx       context.Context
	service   service.GameService
	hub       *websocket.Hub
	animator  *animator.Animator
	mcp       MessageHandler
	staticDir string
	router    *mux.Router
}

// Option configures a Server
type Option func(*Server)

// WithAnimator starts robot movement whenever a path is extended
func WithAnimator(a *animator.Animator) Option {
	return func(s *Server) { s.animator = a }
}

// WithMCP serves h at /mcp
func WithMCP(h MessageHandler) Option {
	return func(s *Server) { s.mcp = h }
}

// WithContext sets the context robot animations run under. It should live
// as long as the server.
func WithContext(ctx context.Context) Option {
	return func(s *Server) { s.ctx = ctx }
}

// WithStaticDir sets the directory served for the web view
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// NewServer creates a new API server. hub may be nil.
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		ctx:       context.Background(),
		service:   gameService,
		hub:       hub,
		staticDir: "./static/",
		router:    mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/share", s.handleShare).Methods("GET")

	// Logistics game
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/sessions/{id}/moving", s.handleMoving).Methods("GET")
	api.HandleFunc("/sessions/{id}/click", s.handleClick).Methods("POST")
	api.HandleFunc("/sessions/{id}/select", s.handleSelect).Methods("POST")
	api.HandleFunc("/sessions/{id}/path", s.handleExtendPath).Methods("POST")
	api.HandleFunc("/sessions/{id}/robots/{robot}/path", s.handleClearPath).Methods("DELETE")

	// 15-puzzle
	api.HandleFunc("/sessions/{id}/puzzle", s.handleGetPuzzle).Methods("GET")
	api.HandleFunc("/sessions/{id}/tiles/{index}/move", s.handleMoveTile).Methods("POST")
	api.HandleFunc("/sessions/{id}/shuffle", s.handleShuffle).Methods("POST")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	if s.mcp != nil {
		s.router.HandleFunc("/mcp", s.handleMCP).Methods("POST")
	}

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Web view
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP statuses
func respondServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrWrongGame), errors.Is(err, service.ErrInvalidConfig):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).Error("request failed")
	}
	respondError(w, status, err.Error())
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, mux.Vars(r)[name])
	}
	return v, nil
}

// Broadcast helpers

func (s *Server) broadcastState(sessionID string, state *engine.GameState) {
	if s.hub != nil && state != nil {
		s.hub.BroadcastToSession(sessionID, state)
	}
}

func (s *Server) broadcastSession(info *service.SessionInfo) {
	if s.hub == nil || info == nil {
		return
	}
	if info.Puzzle != nil {
		s.hub.BroadcastPuzzle(info.ID, info.Puzzle)
		return
	}
	s.broadcastState(info.ID, info.GameState)
}

// afterAction broadcasts an accepted action and starts the robot when cells
// were queued for it
func (s *Server) afterAction(sessionID string, res *service.ActionResult) {
	if !res.Accepted {
		return
	}
	s.broadcastState(sessionID, res.GameState)
	if s.animator != nil && res.PathExtended() {
		s.animator.Start(s.ctx, sessionID, res.RobotID)
	}
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	session, err := s.service.CreateSession(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	game := query.Get("game")      // optional filter
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	if game != "" {
		filtered := sessions[:0]
		for _, sess := range sessions {
			if string(sess.Game) == game {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < total {
		sessions = sessions[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if s.animator != nil {
		s.animator.StopSession(sessionID)
	}
	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if s.animator != nil {
		s.animator.StopSession(sessionID)
	}
	info, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.broadcastSession(info)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"session": info,
	})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	text, err := s.service.ShareText(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

// Logistics Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleMoving(w http.ResponseWriter, r *http.Request) {
	robots, err := s.service.MovingRobots(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if robots == nil {
		robots = []int{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"robots": robots})
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		X *int `json:"x"`
		Y *int `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.X == nil || req.Y == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: x and y are required")
		return
	}

	res, err := s.service.Click(r.Context(), sessionID, *req.X, *req.Y)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"session":  sessionID,
		"x":        *req.X,
		"y":        *req.Y,
		"robot":    res.RobotID,
		"accepted": res.Accepted,
		"reason":   res.Reason,
	}).Debug("click")

	s.afterAction(sessionID, res)
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		RobotID int `json:"robot_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := s.service.SelectRobot(r.Context(), sessionID, req.RobotID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.afterAction(sessionID, res)
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleExtendPath(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		RobotID int  `json:"robot_id"`
		X       *int `json:"x"`
		Y       *int `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.X == nil || req.Y == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: robot_id, x and y are required")
		return
	}

	res, err := s.service.ExtendPath(r.Context(), sessionID, req.RobotID, engine.Position{X: *req.X, Y: *req.Y})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"session":  sessionID,
		"robot":    req.RobotID,
		"target":   fmt.Sprintf("(%d,%d)", *req.X, *req.Y),
		"accepted": res.Accepted,
		"reason":   res.Reason,
	}).Debug("extend path")

	s.afterAction(sessionID, res)
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleClearPath(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	robotID, err := pathInt(r, "robot")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.service.ClearPath(r.Context(), sessionID, robotID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.afterAction(sessionID, res)
	respondJSON(w, http.StatusOK, res)
}

// Puzzle Handlers

func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.GetPuzzle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleMoveTile(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	index, err := pathInt(r, "index")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.service.MoveTile(r.Context(), sessionID, index)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if res.Moved && s.hub != nil {
		s.hub.BroadcastPuzzle(sessionID, res.Puzzle)
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	p, err := s.service.Shuffle(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastPuzzle(sessionID, p)
	}
	respondJSON(w, http.StatusOK, p)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := mux.Vars(r)["name"]
	configName = strings.TrimSuffix(strings.TrimSuffix(configName, ".json"), ".yaml")

	config, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var gameConfig engine.GameConfig
	if err := json.NewDecoder(r.Body).Decode(&gameConfig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if gameConfig.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	if err := s.service.SaveConfig(r.Context(), gameConfig.Name, &gameConfig); err != nil {
		respondServiceError(w, fmt.Errorf("failed to save config: %w", err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Configuration saved successfully",
		"config_id": gameConfig.Name,
	})
}

// MCP Handler

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read request")
		return
	}
	defer r.Body.Close()

	response := s.mcp.HandleMessage(r.Context(), body)
	if response == nil {
		// Notifications have no reply
		w.WriteHeader(http.StatusAccepted)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "websocket unavailable", http.StatusServiceUnavailable)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
