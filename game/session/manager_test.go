package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/service"
)

func createTestConfig() *engine.GameConfig {
	return &engine.GameConfig{
		Name:        "Test Config",
		Description: "Test configuration",
		Width:       4,
		Height:      3,
		Layout: []string{
			"S.LF",
			"....",
			".C..",
		},
		Robots: []engine.RobotConfig{
			{ID: 1, Start: engine.Position{X: 0, Y: 0}, Finish: engine.Position{X: 3, Y: 0}},
		},
	}
}

func logisticsSpec() service.SessionSpec {
	return service.SessionSpec{Kind: service.GameLogistics, Config: createTestConfig()}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", logisticsSpec())
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
		if session.Puzzle != nil {
			t.Error("Logistics session must not carry a puzzle")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", logisticsSpec())
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("empty kind means logistics", func(t *testing.T) {
		session, err := manager.Create("", service.SessionSpec{Config: createTestConfig()})
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.Kind != service.GameLogistics {
			t.Errorf("Expected logistics kind, got %q", session.Kind)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", logisticsSpec())
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", logisticsSpec())
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		_, err := manager.Create("a/b", logisticsSpec())
		if err != ErrInvalidSessionID {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		spec := logisticsSpec()
		spec.Config.Name = "" // Make config invalid
		_, err := manager.Create("invalid-test", spec)
		if err == nil {
			t.Error("Expected error for invalid config")
		}
	})
}

func TestManager_CreatePuzzle(t *testing.T) {
	manager := NewManagerWithSource(rand.New(rand.NewPCG(3, 4)))

	session, err := manager.Create("", service.SessionSpec{Kind: service.GamePuzzle, ChatID: 99})
	if err != nil {
		t.Fatalf("Failed to create puzzle session: %v", err)
	}
	if session.Puzzle == nil || session.Engine != nil {
		t.Fatal("Expected a puzzle session without an engine")
	}
	if session.Puzzle.Size != 4 {
		t.Errorf("Expected default size 4, got %d", session.Puzzle.Size)
	}
	if session.Puzzle.IsSolved() {
		t.Error("Expected a shuffled board")
	}
	if session.ChatID != 99 {
		t.Errorf("Expected chat ID 99, got %d", session.ChatID)
	}

	if _, err := manager.Create("", service.SessionSpec{Kind: service.GamePuzzle, PuzzleSize: 9}); err == nil {
		t.Error("Expected error for an oversized puzzle")
	}
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, _ := manager.Create("get-test", logisticsSpec())

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session.ID != created.ID {
			t.Errorf("Expected session ID '%s', got '%s'", created.ID, session.ID)
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session != created {
			t.Errorf("Expected same session regardless of case")
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if !errors.Is(err, service.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager()

	first, err := manager.GetOrCreate("new-session", logisticsSpec())
	if err != nil {
		t.Fatalf("Failed to get or create session: %v", err)
	}
	second, err := manager.GetOrCreate("new-session", logisticsSpec())
	if err != nil {
		t.Fatalf("Failed to get existing session: %v", err)
	}
	if first != second {
		t.Error("Expected GetOrCreate to return the existing session")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	manager.Create("delete-test", logisticsSpec())

	if err := manager.Delete("DELETE-TEST"); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	if _, err := manager.Get("delete-test"); err != ErrSessionNotFound {
		t.Error("Expected session to be deleted")
	}
	if err := manager.Delete("non-existent"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_List(t *testing.T) {
	manager := NewManager()

	want := make(map[string]bool)
	for i := 1; i <= 3; i++ {
		s, _ := manager.Create(fmt.Sprintf("list-%d", i), logisticsSpec())
		want[s.ID] = true
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Errorf("Expected 3 sessions, got %d", len(sessions))
	}
	for _, s := range sessions {
		if !want[s.ID] {
			t.Errorf("Unexpected session %s in list", s.ID)
		}
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	manager := NewManager()

	active, _ := manager.Create("active", logisticsSpec())
	expired, _ := manager.Create("expired", logisticsSpec())

	// Simulate expired session
	expired.LastAccessedAt = time.Now().Add(-2 * time.Hour)
	active.LastAccessedAt = time.Now()

	deleted := manager.CleanupExpiredSessions(1 * time.Hour)
	if deleted != 1 {
		t.Errorf("Expected 1 session to be deleted, got %d", deleted)
	}
	if _, err := manager.Get("expired"); err != ErrSessionNotFound {
		t.Error("Expected expired session to be deleted")
	}
	if _, err := manager.Get("active"); err != nil {
		t.Error("Expected active session to still exist")
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()

	session, _ := manager.Create("access-test", logisticsSpec())
	originalTime := session.LastAccessedAt

	// Wait a bit to ensure time difference
	time.Sleep(10 * time.Millisecond)

	if err := manager.UpdateLastAccessed("ACCESS-TEST"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}

	updated, _ := manager.Get("access-test")
	if !updated.LastAccessedAt.After(originalTime) {
		t.Error("Expected LastAccessedAt to be updated")
	}
	if err := manager.UpdateLastAccessed("missing"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()

	var wg sync.WaitGroup
	errs := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Create("", logisticsSpec()); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() != 100 {
		t.Errorf("Expected 100 distinct sessions, got %d", manager.Count())
	}
}

func TestManager_SessionIsolation(t *testing.T) {
	manager := NewManager()

	session1, _ := manager.Create("iso-1", logisticsSpec())
	session2, _ := manager.Create("iso-2", logisticsSpec())

	session1.Engine.ExtendPath(1, engine.Position{X: 2, Y: 0})
	session1.Engine.Step(1)

	if session2.Engine.GetRobot(1).Pos != (engine.Position{X: 0, Y: 0}) {
		t.Error("Session 2 should not be affected by session 1 moves")
	}
	if session1.Engine.GetRobot(1).Pos == session2.Engine.GetRobot(1).Pos {
		t.Error("Sessions should have independent game state")
	}
}
