// Package mcp exposes RonGame to AI agents over the Model Context Protocol.
//
// The Client owns an MCP server whose tools proxy to the REST API, so an
// agent plays through exactly the same rules and broadcasts as the web view.
//
// Tools:
//   - create_session, list_sessions, get_session, game_state
//   - click, extend_path, clear_path, reset_game, move_history
//   - move_tile, shuffle, share_result
//   - list_configs, game_instructions
//
// Results are plain text: the logistics board is drawn with the level
// legend plus robot IDs and '*' for claimed cells; the puzzle is drawn as a
// number grid.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// stdio
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP, mounted at /mcp by the api package
//	api.NewServer(gameService, hub, api.WithMCP(client.GetMCPServer()))
package mcp
