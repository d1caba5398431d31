// Package api serves the RonGame REST API, the WebSocket upgrade, the MCP
// endpoint, and the static web view.
//
// Endpoints (all JSON, under /api):
//
// Sessions:
//   - POST /sessions {game, config_id, puzzle_size, chat_id}
//   - GET /sessions?sort=created|accessed&order=asc|desc&limit=N&game=...
//   - GET /sessions/{id}, DELETE /sessions/{id}
//   - POST /sessions/{id}/reset
//   - GET /sessions/{id}/share
//
// Logistics robots:
//   - GET /sessions/{id}/state
//   - GET /sessions/{id}/history?page=&limit=&order=
//   - GET /sessions/{id}/moving
//   - POST /sessions/{id}/click {x, y}
//   - POST /sessions/{id}/select {robot_id}
//   - POST /sessions/{id}/path {robot_id, x, y}
//   - DELETE /sessions/{id}/robots/{robot}/path
//
// 15-puzzle:
//   - GET /sessions/{id}/puzzle
//   - POST /sessions/{id}/tiles/{index}/move
//   - POST /sessions/{id}/shuffle
//
// Levels:
//   - GET /configs, POST /configs, GET /configs/{name}
//
// Outside /api: /ws?session=ID, POST /mcp, and static files.
//
// A rejected move is a normal 200 response with accepted=false and a reason
// code. Errors use the body {"error": "..."} with 404 for unknown sessions
// or levels, 400 for bad bodies or operations the session's game does not
// support, and 500 otherwise.
//
// Accepted path extensions hand the robot to the animator, which walks it
// in the background. Every mutation is broadcast on the WebSocket hub.
package api
