package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/puzzle"
	"github.com/dmi-s/rongame/game/service"
)

const (
	ServerName    = "RonGame"
	ServerVersion = "1.0.0"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`RonGame - MCP Interface

Two games are available: "logistics" (logistics robots, the default) and "15-puzzle".
Every tool proxies to the REST API server.

LOGISTICS: deliver every robot to its unload cell. Click a robot to select it,
then click cells in a straight line to queue a route. Robots drive on their own,
one cell at a time. Poll game_state to watch them.

15-PUZZLE: click tiles next to the empty slot until the board reads 1..N in order.

AVAILABLE TOOLS:
- create_session, list_sessions, get_session
- game_state: board, robots and status
- click: select a robot or extend the selected robot's path
- extend_path: queue a straight segment for a robot
- clear_path: drop a robot's queued route
- reset_game: restart the level or reshuffle the puzzle
- move_tile, shuffle: 15-puzzle moves
- share_result: text to share after a win
- move_history: past path edits and steps
- list_configs: available levels
- game_instructions: full rules`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func intProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"game": map[string]interface{}{
					"type":        "string",
					"enum":        []string{string(service.GameLogistics), string(service.GamePuzzle)},
					"description": "Game to play (default logistics)",
				},
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Level to load for the logistics game (optional)",
				},
				"puzzle_size": intProperty("Board side for the 15-puzzle, 3 to 6 (default 4)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sort": map[string]interface{}{
					"type": "string",
					"enum": []string{"accessed", "created"},
				},
				"order": map[string]interface{}{
					"type": "string",
					"enum": []string{"desc", "asc"},
				},
				"limit": intProperty("Maximum sessions to return"),
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board of a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	// Logistics
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "click",
		Description: "Click a board cell: selects a robot, deselects it, or extends the selected robot's path",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x":          intProperty("Column, 0-based"),
				"y":          intProperty("Row, 0-based"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleClick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "extend_path",
		Description: "Queue a straight segment from the end of a robot's path to (x,y). The robot starts driving at once.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"robot_id":   intProperty("Robot to route"),
				"x":          intProperty("Target column, 0-based"),
				"y":          intProperty("Target row, 0-based"),
			},
			Required: []string{"session_id", "robot_id", "x", "y"},
		},
	}, c.handleExtendPath)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "clear_path",
		Description: "Drop a robot's queued route and release its locked cells",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"robot_id":   intProperty("Robot to stop"),
			},
			Required: []string{"session_id", "robot_id"},
		},
	}, c.handleClearPath)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Restart the level, or reshuffle the puzzle",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	// 15-puzzle
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_tile",
		Description: "Click the tile at a board index; it slides into the empty slot when adjacent",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"index":      intProperty("Board index, row-major, 0-based"),
			},
			Required: []string{"session_id", "index"},
		},
	}, c.handleMoveTile)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "shuffle",
		Description: "Deal a new shuffled puzzle board",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleShuffle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "share_result",
		Description: "Get the share text for a session's result",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleShareResult)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get the paginated history of path edits and robot steps",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page":       intProperty("Page number (default 1)"),
				"limit":      intProperty("Entries per page (default 20)"),
				"order": map[string]interface{}{
					"type": "string",
					"enum": []string{"desc", "asc"},
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available logistics levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules of both games",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// arguments returns the tool arguments, empty when none were sent
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}
	return args
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, name string) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func requireSession(args map[string]interface{}) (string, *mcp.CallToolResult) {
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return "", mcp.NewToolResultError("session_id is required")
	}
	return sessionID, nil
}

func requireInts(args map[string]interface{}, names ...string) ([]int, *mcp.CallToolResult) {
	values := make([]int, len(names))
	for i, name := range names {
		v, ok := intArg(args, name)
		if !ok {
			return nil, mcp.NewToolResultError(fmt.Sprintf("%s is required", name))
		}
		values[i] = v
	}
	return values, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := service.CreateSessionRequest{}
	if game, _ := args["game"].(string); game != "" {
		body.Game = service.GameKind(game)
	}
	body.ConfigID, _ = args["config_id"].(string)
	body.PuzzleSize, _ = intArg(args, "puzzle_size")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created " + formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	query := url.Values{}
	if sortBy, _ := args["sort"].(string); sortBy != "" {
		query.Set("sort", sortBy)
	}
	if order, _ := args["order"].(string); order != "" {
		query.Set("order", order)
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	path := "/api/sessions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var response struct {
		Count    int                   `json:"count"`
		Total    int                   `json:"total"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d of %d):\n\n", response.Count, response.Total)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (%s", s.ID, s.Game)
		if s.ConfigName != "" {
			fmt.Fprintf(&b, ", level %s", s.ConfigName)
		}
		fmt.Fprintf(&b, ", created %s)\n", s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if session.Puzzle != nil {
		return mcp.NewToolResultText(formatPuzzle(session.Puzzle)), nil
	}
	return mcp.NewToolResultText(formatGameState(session.GameState)), nil
}

func (c *Client) handleClick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}
	xy, errResult := requireInts(args, "x", "y")
	if errResult != nil {
		return errResult, nil
	}

	var result service.ActionResult
	body := map[string]int{"x": xy[0], "y": xy[1]}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/click"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleExtendPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}
	values, errResult := requireInts(args, "robot_id", "x", "y")
	if errResult != nil {
		return errResult, nil
	}

	var result service.ActionResult
	body := map[string]int{"robot_id": values[0], "x": values[1], "y": values[2]}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/path"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleClearPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}
	values, errResult := requireInts(args, "robot_id")
	if errResult != nil {
		return errResult, nil
	}

	var result service.ActionResult
	path := sessionPath(sessionID, fmt.Sprintf("/robots/%d/path", values[0]))
	if err := c.apiCall(ctx, "DELETE", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var response struct {
		Message string               `json:"message"`
		Session *service.SessionInfo `json:"session"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := response.Message
	if response.Session != nil {
		result += "\n\n" + formatBoard(response.Session)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveTile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}
	values, errResult := requireInts(args, "index")
	if errResult != nil {
		return errResult, nil
	}

	var result service.TileResult
	path := sessionPath(sessionID, fmt.Sprintf("/tiles/%d/move", values[0]))
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	if result.Moved {
		b.WriteString("✓ Tile moved\n\n")
	} else {
		b.WriteString("✗ Tile is not next to the empty slot\n\n")
	}
	b.WriteString(formatPuzzle(result.Puzzle))
	if result.Result != nil {
		fmt.Fprintf(&b, "\nResult: %d moves in %s", result.Result.Moves,
			puzzle.FormatElapsed(time.Duration(result.Result.Time)*time.Second))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleShuffle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var p puzzle.Puzzle
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/shuffle"), nil, &p); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Shuffled\n\n" + formatPuzzle(&p)), nil
}

func (c *Client) handleShareResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSession(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var response map[string]string
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/share"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(response["text"]), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSession(args)
	if errResult != nil {
		return errResult, nil
	}

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if order, _ := args["order"].(string); order != "" {
		query.Set("order", order)
	}
	path := sessionPath(sessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Levels:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Robots: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.Width, config.Height, config.Robots)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(Instructions), nil
}
