// Package websocket pushes game updates to the web view.
//
// A central Hub owns every connection. Clients join a session with
// /ws?session=ID and receive JSON messages of the form
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}, "data": {...}}
//
// Events:
//   - state_update: logistics state after a click, path edit or robot step
//   - robot_frame: an interpolated robot position between two cells
//   - puzzle_update: the 15-puzzle board after a tile move or shuffle
//   - game_result: a won game
//
// The socket is push-only. Clicks arrive through the REST API.
//
// The Hub satisfies animator.Notifier and service.ResultReporter, so it can
// be handed straight to the animator and the game service:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	anim := animator.New(gameService, hub, animator.Options{})
//
// Registration, broadcasting and cleanup all run on the goroutine executing
// Run, so the session map needs no lock.
package websocket
