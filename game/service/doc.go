// Package service provides the use-case layer for the RonGame server.
//
// A session hosts one of two games: the logistics robots game (a
// *engine.GameEngine) or the sliding tile puzzle (a *puzzle.Puzzle).
// Operations that do not apply to the session's game fail with ErrWrongGame.
//
// Core Interfaces:
//
// GameService is the main service interface used by every transport.
// SessionManager stores sessions; ConfigManager serves levels. Won games are
// turned into a GameResult and handed to a ResultReporter in a separate
// goroutine, so a slow chat never stalls a move.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("levels")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithReporter(service.MultiReporter{service.LogReporter{}, hub}))
//
//	info, err := gameService.CreateSession(ctx, service.CreateSessionRequest{ConfigID: "warehouse"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := gameService.ExtendPath(ctx, info.ID, 1, engine.Position{X: 1, Y: 0})
//
// Concurrency:
//
// All session mutations are serialised under one RWMutex. Returned game
// states are copies and may be marshalled while robots keep moving.
package service
