// Package session provides in-memory session management for the RonGame server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Short hex session IDs with case-insensitive lookup
//   - Construction of the hosted game (logistics engine or shuffled puzzle)
//   - Idle session cleanup
//
// Sessions live only in memory; a server restart starts every game afresh.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", service.SessionSpec{Kind: service.GameLogistics, Config: level})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
//	// Drop sessions idle for more than a day
//	removed := manager.CleanupExpiredSessions(24 * time.Hour)
package session
