package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmi-s/rongame/game/engine"
	"github.com/dmi-s/rongame/game/puzzle"
	"github.com/dmi-s/rongame/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles game session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	source   puzzle.Source
	mu       sync.RWMutex
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
	}
}

// NewManagerWithSource creates a session manager whose puzzles shuffle with src
func NewManagerWithSource(src puzzle.Source) *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		source:   src,
	}
}

// Create creates a new session with the given ID. An empty ID gets a fresh
// 4-character hex ID.
func (m *Manager) Create(id string, spec service.SessionSpec) (*service.Session, error) {
	if strings.ContainsAny(id, " /?#") {
		return nil, ErrInvalidSessionID
	}

	session := &service.Session{
		Kind:   spec.Kind,
		Config: spec.Config,
		ChatID: spec.ChatID,
	}
	switch spec.Kind {
	case service.GamePuzzle:
		p, err := puzzle.New(spec.PuzzleSize, m.source)
		if err != nil {
			return nil, fmt.Errorf("failed to create puzzle: %w", err)
		}
		p.Shuffle(puzzle.DefaultShuffleSteps)
		session.Puzzle = p
	default:
		session.Kind = service.GameLogistics
		eng, err := engine.NewEngine(spec.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to create engine: %w", err)
		}
		session.Engine = eng
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateSessionID()
		for m.sessionExists(id) {
			id = m.generateSessionID()
		}
	} else if m.sessionExists(id) {
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	session.ID = id
	session.CreatedAt = now
	session.LastAccessedAt = now

	m.sessions[service.SessionKey(id)] = session
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[service.SessionKey(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(id string, spec service.SessionSpec) (*service.Session, error) {
	session, err := m.Get(id)
	if err == nil {
		return session, nil
	}

	if errors.Is(err, ErrSessionNotFound) {
		return m.Create(id, spec)
	}

	return nil, err
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}

	return result
}

// Delete removes a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lowerID := service.SessionKey(id)
	if _, exists := m.sessions[lowerID]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, lowerID)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[service.SessionKey(id)]
	if !exists {
		return ErrSessionNotFound
	}

	session.LastAccessedAt = time.Now()
	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, session := range m.sessions {
		if session.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// generateSessionID generates a random 4-character session ID
func (m *Manager) generateSessionID() string {
	// Generate 2 random bytes (4 hex characters)
	bytes := make([]byte, 2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// sessionExists checks if a session exists (case-insensitive). Callers hold m.mu.
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[service.SessionKey(id)]
	return exists
}
