package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/puzzle"
	"github.com/dmi-s/rongame/game/service"
)

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("Expected result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatal("Expected text content in result")
	}
	return text.Text
}

// apiStub records the last request and answers with a fixed body
type apiStub struct {
	method string
	path   string
	query  string
	body   map[string]interface{}
}

func newAPIStub(t *testing.T, status int, response interface{}) (*apiStub, *httptest.Server) {
	t.Helper()
	stub := &apiStub{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.method = r.Method
		stub.path = r.URL.Path
		stub.query = r.URL.RawQuery
		stub.body = nil
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			json.Unmarshal(data, &stub.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(server.Close)
	return stub, server
}

func testState() *engine.GameState {
	return &engine.GameState{
		Width:  3,
		Height: 2,
		Grid: [][]engine.Cell{
			{{Type: engine.Start, Occupant: 1}, {Type: engine.Empty, LockedBy: 1}, {Type: engine.Finish}},
			{{Type: engine.Charging}, {Type: engine.Obstacle}, {Type: engine.Loading}},
		},
		Robots: []engine.Robot{{
			ID:      1,
			Pos:     engine.Position{X: 0, Y: 0},
			Finish:  engine.Position{X: 2, Y: 0},
			Battery: 80,
			Path:    []engine.Position{{X: 1, Y: 0}},
		}},
		ConfigName:  "Tiny",
		Moves:       2,
		BatteryRisk: map[int]string{1: "SAFE"},
		Message:     "Маршрут продлён",
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestClient_ToolsRegistered(t *testing.T) {
	client := NewClient("http://localhost:8080")

	msg := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp := client.GetMCPServer().HandleMessage(context.Background(), msg)
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal tools/list response: %v", err)
	}

	for _, name := range []string{
		"create_session", "list_sessions", "get_session", "game_state",
		"click", "extend_path", "clear_path", "reset_game",
		"move_tile", "shuffle", "share_result", "move_history",
		"list_configs", "game_instructions",
	} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("Expected tool %s to be registered", name)
		}
	}
}

func TestClient_apiCall(t *testing.T) {
	stub, server := newAPIStub(t, http.StatusOK, map[string]string{"status": "healthy"})
	client := NewClient(server.URL)

	var response map[string]string
	if err := client.apiCall(context.Background(), "GET", "/api/health", nil, &response); err != nil {
		t.Fatalf("apiCall failed: %v", err)
	}
	if response["status"] != "healthy" || stub.path != "/api/health" {
		t.Errorf("Unexpected response %v for %s", response, stub.path)
	}
}

func TestClient_apiCall_Errors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1")
		if err := client.apiCall(context.Background(), "GET", "/api", nil, nil); err == nil {
			t.Error("Expected error for unreachable server")
		}
	})

	t.Run("error body", func(t *testing.T) {
		_, server := newAPIStub(t, http.StatusNotFound, map[string]string{"error": "session not found"})
		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api/sessions/x", nil, nil)
		if err == nil || err.Error() != "session not found" {
			t.Errorf("Expected API error message, got %v", err)
		}
	})

	t.Run("plain status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		err := NewClient(server.URL).apiCall(context.Background(), "GET", "/api", nil, nil)
		if err == nil || !strings.Contains(err.Error(), "API error: 500") {
			t.Errorf("Expected 'API error: 500', got %v", err)
		}
	})
}

func TestClient_handleCreateSession(t *testing.T) {
	stub, server := newAPIStub(t, http.StatusCreated, service.SessionInfo{
		ID:        "ab12",
		Game:      service.GamePuzzle,
		CreatedAt: time.Now(),
		Puzzle:    &puzzle.Puzzle{Size: 3, Tiles: []int{1, 2, 3, 4, 5, 6, 7, 0, 8}},
	})
	client := NewClient(server.URL)

	result, err := client.handleCreateSession(context.Background(), callTool(map[string]interface{}{
		"game":        "15-puzzle",
		"puzzle_size": float64(3),
	}))
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "ab12") || !strings.Contains(text, "7 . 8") {
		t.Errorf("Expected session ID and board in result, got: %s", text)
	}
	if stub.method != "POST" || stub.path != "/api/sessions" {
		t.Errorf("Expected POST /api/sessions, got %s %s", stub.method, stub.path)
	}
	if stub.body["game"] != "15-puzzle" || stub.body["puzzle_size"] != float64(3) {
		t.Errorf("Unexpected request body %v", stub.body)
	}
}

func TestClient_handleCreateSession_NilArguments(t *testing.T) {
	stub, server := newAPIStub(t, http.StatusCreated, service.SessionInfo{ID: "cd34", Game: service.GameLogistics, GameState: testState()})
	client := NewClient(server.URL)

	result, _ := client.handleCreateSession(context.Background(), mcp.CallToolRequest{})
	if result.IsError || !strings.Contains(resultText(t, result), "cd34") {
		t.Errorf("Expected created session, got %+v", result)
	}
	if _, ok := stub.body["game"]; ok {
		t.Errorf("Expected game omitted, got %v", stub.body)
	}
}

func TestClient_handleExtendPath(t *testing.T) {
	stub, server := newAPIStub(t, http.StatusOK, service.ActionResult{
		Accepted:  true,
		RobotID:   1,
		Events:    []engine.Event{{Type: engine.EventPathExtended, RobotID: 1}},
		GameState: testState(),
	})
	client := NewClient(server.URL)

	result, _ := client.handleExtendPath(context.Background(), callTool(map[string]interface{}{
		"session_id": "ab12",
		"robot_id":   float64(1),
		"x":          float64(1),
		"y":          float64(0),
	}))
	text := resultText(t, result)

	if stub.path != "/api/sessions/ab12/path" || stub.body["robot_id"] != float64(1) {
		t.Errorf("Unexpected request %s %v", stub.path, stub.body)
	}
	for _, want := range []string{"✓ Accepted robot 1", "path_extended", "1*F", "C#L", "[SAFE]"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in output, got: %s", want, text)
		}
	}
}

func TestClient_RequiredArguments(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]interface{}
		want    string
	}{
		{"click without session", client.handleClick, map[string]interface{}{"x": float64(1), "y": float64(1)}, "session_id is required"},
		{"click without y", client.handleClick, map[string]interface{}{"session_id": "a", "x": float64(1)}, "y is required"},
		{"extend without robot", client.handleExtendPath, map[string]interface{}{"session_id": "a", "x": float64(1), "y": float64(1)}, "robot_id is required"},
		{"clear without robot", client.handleClearPath, map[string]interface{}{"session_id": "a"}, "robot_id is required"},
		{"tile without index", client.handleMoveTile, map[string]interface{}{"session_id": "a"}, "index is required"},
		{"state without session", client.handleGameState, map[string]interface{}{}, "session_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(ctx, callTool(tt.args))
			if err != nil {
				t.Fatalf("Handler returned error: %v", err)
			}
			if !result.IsError || !strings.Contains(resultText(t, result), tt.want) {
				t.Errorf("Expected error %q, got %+v", tt.want, result)
			}
		})
	}
}

func TestClient_RoutesToAPI(t *testing.T) {
	tests := []struct {
		name       string
		response   interface{}
		call       func(c *Client) (*mcp.CallToolResult, error)
		wantMethod string
		wantPath   string
		wantQuery  string
		wantText   string
	}{
		{
			name:     "clear path",
			response: service.ActionResult{Accepted: true, RobotID: 2, GameState: testState()},
			call: func(c *Client) (*mcp.CallToolResult, error) {
				return c.handleClearPath(context.Background(), callTool(map[string]interface{}{"session_id": "ab12", "robot_id": float64(2)}))
			},
			wantMethod: "DELETE", wantPath: "/api/sessions/ab12/robots/2/path", wantText: "✓ Accepted robot 2",
		},
		{
			name:     "rejected click",
			response: service.ActionResult{Reason: engine.ReasonNotStraight, RobotID: 1, GameState: testState()},
			call: func(c *Client) (*mcp.CallToolResult, error) {
				return c.handleClick(context.Background(), callTool(map[string]interface{}{"session_id": "ab12", "x": float64(2), "y": float64(1)}))
			},
			wantMethod: "POST", wantPath: "/api/sessions/ab12/click", wantText: "✗ Rejected (not_straight)",
		},
		{
			name:     "game state for puzzle",
			response: service.SessionInfo{ID: "p1", Game: service.GamePuzzle, Puzzle: &puzzle.Puzzle{Size: 3, Tiles: []int{1, 2, 3, 4, 5, 6, 7, 8, 0}, Won: true}},
			call: func(c *Client) (*mcp.CallToolResult, error) {
				return c.handleGameState(context.Background(), callTool(map[string]interface{}{"session_id": "p1"}))
			},
			wantMethod: "GET", wantPath: "/api/sessions/p1", wantText: "🎉 SOLVED!",
		},
		{
			name:     "reset",
			response: map[string]interface{}{"message": "Game reset successfully", "session": service.SessionInfo{ID: "ab12", GameState: testState()}},
			call: func(c *Client) (*mcp.CallToolResult, error) {
				return c.handleReset(context.Background(), callTool(map[string]interface{}{"session_id": "ab12"}))
			},
			wantMethod: "POST", wantPath: "/api/sessions/ab12/reset", wantText: "Game reset successfully",
		},
		{
			name:     "move tile",
			response: service.TileResult{Moved: true, Won: true, Puzzle: &puzzle.Puzzle{Size: 3, Tiles: []int{1, 2, 3, 4, 5, 6, 7, 8, 0}}, Result: &puzzle.Result{Moves: 5, Time: 65}},
			call: func(c *Client) (*mcp.CallToolResult, error) {
				return c.handleMoveTile(context.Background(), callTool(map[string]interface{}{"session_id": "p1", "index": float64(7)}))
			},
			wantMethod: "POST", wantPath: "/api/sessions/p1/tiles/7/move", wantText: "5 moves in 01:05",
		},
		{
			name:     "shuffle",
			response: puzzle.Puzzle{Size: 3, Tiles: []int{4, 1, 3, 0, 2, 6, 7, 5, 8}},
			call: func(c *Client) (*mcp.CallToolResult, error) {
				return c.handleShuffle(context.Background(), callTool(map[string]interface{}{"session_id": "p1"}))
			},
			wantMethod: "POST", wantPath: "/api/sessions/p1/shuffle", wantText: "Shuffled",
		},
		{
			name:     "share",
			response: map[string]string{"text": "🎉 Я собрал пятнашки"},
			call: func(c *Client) (*mcp.CallToolResult, error) {
				return c.handleShareResult(context.Background(), callTool(map[string]interface{}{"session_id": "p1"}))
			},
			wantMethod: "GET", wantPath: "/api/sessions/p1/share", wantText: "пятнашки",
		},
		{
			name: "history",
			response: service.HistoryResponse{
				Moves:      []engine.MoveHistoryEntry{{Action: "step", RobotID: 1, ToPosition: engine.Position{X: 1}, Battery: 95, Success: true, MoveNumber: 1}},
				TotalMoves: 1, Page: 1, PageSize: 20, TotalPages: 1,
			},
			call: func(c *Client) (*mcp.CallToolResult, error) {
				return c.handleMoveHistory(context.Background(), callTool(map[string]interface{}{"session_id": "ab12", "page": float64(1), "order": "asc"}))
			},
			wantMethod: "GET", wantPath: "/api/sessions/ab12/history", wantQuery: "order=asc&page=1", wantText: "1. step robot 1 (0,0)->(1,0) ✓",
		},
		{
			name: "list sessions",
			response: map[string]interface{}{
				"count": 1, "total": 3,
				"sessions": []service.SessionInfo{{ID: "ab12", Game: service.GameLogistics, ConfigName: "warehouse"}},
			},
			call: func(c *Client) (*mcp.CallToolResult, error) {
				return c.handleListSessions(context.Background(), callTool(map[string]interface{}{"limit": float64(1)}))
			},
			wantMethod: "GET", wantPath: "/api/sessions", wantQuery: "limit=1", wantText: "(1 of 3)",
		},
		{
			name:     "list configs",
			response: []service.ConfigInfo{{ConfigID: "depot", Name: "Depot", Width: 6, Height: 5, Robots: 1}},
			call: func(c *Client) (*mcp.CallToolResult, error) {
				return c.handleListConfigs(context.Background(), callTool(nil))
			},
			wantMethod: "GET", wantPath: "/api/configs", wantText: "Grid: 6x5, Robots: 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub, server := newAPIStub(t, http.StatusOK, tt.response)

			result, err := tt.call(NewClient(server.URL))
			if err != nil {
				t.Fatalf("Handler returned error: %v", err)
			}
			text := resultText(t, result)

			if stub.method != tt.wantMethod || stub.path != tt.wantPath {
				t.Errorf("Expected %s %s, got %s %s", tt.wantMethod, tt.wantPath, stub.method, stub.path)
			}
			if stub.query != tt.wantQuery {
				t.Errorf("Expected query %q, got %q", tt.wantQuery, stub.query)
			}
			if !strings.Contains(text, tt.wantText) {
				t.Errorf("Expected %q in output, got: %s", tt.wantText, text)
			}
		})
	}
}

func TestClient_APIErrorBecomesToolError(t *testing.T) {
	_, server := newAPIStub(t, http.StatusBadRequest, map[string]string{"error": "operation not supported by this game"})
	client := NewClient(server.URL)

	result, err := client.handleMoveTile(context.Background(), callTool(map[string]interface{}{"session_id": "ab12", "index": float64(0)}))
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result), "not supported") {
		t.Errorf("Expected tool error, got %+v", result)
	}
}

func TestFormatGameState(t *testing.T) {
	state := testState()
	state.Victory = true
	state.GameOver = true
	state.Alert = "Батарея робота 1 разряжена! Игра начинается заново."
	state.SelectedRobot = 1
	state.RemainingDeliveries = 1
	state.Targets = []engine.Position{{X: 2, Y: 0}, {X: 1, Y: 1}}

	result := formatGameState(state)

	for _, want := range []string{
		"Level: Tiny | Moves: 2 | Delivered: 0/1 | Remaining: 1",
		"Robot 1 can extend to: (2,0) (1,1)",
		"Robot 1 at (0,0) battery 80% empty -> unload (2,0), route 1 cells to (1,0)",
		"🎉 VICTORY!",
		"⚠️ Батарея робота 1",
		"Message: Маршрут продлён",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in formatted output, got: %s", want, result)
		}
	}

	if formatGameState(nil) != "No game state available" {
		t.Error("Expected placeholder for nil state")
	}
}

func TestFormatPuzzle(t *testing.T) {
	p := &puzzle.Puzzle{Size: 4, Tiles: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 0, 15}, Moves: 3}
	result := formatPuzzle(p)

	if !strings.Contains(result, "13 14  . 15\n") {
		t.Errorf("Expected padded last row, got:\n%s", result)
	}
	if !strings.Contains(result, "Moves: 3") || strings.Contains(result, "Time:") {
		t.Errorf("Expected moves without a timer, got:\n%s", result)
	}
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080")

	result, err := client.handleGameInstructions(context.Background(), callTool(nil))
	if err != nil {
		t.Fatalf("handleGameInstructions failed: %v", err)
	}

	text := resultText(t, result)
	for _, want := range []string{"LOGISTICS ROBOTS", "GRID LEGEND", "BATTERY:", "VICTORY CONDITIONS:", "15-PUZZLE"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected '%s' in instructions", want)
		}
	}
}
