package services

import (
	"errors"
	"sort"
	"sync"
	"time"

	"scambait-lab/internal/domain/models"
	"scambait-lab/pkg/logger"
)

// ErrSessionNotFound is returned when a session id is unknown
var ErrSessionNotFound = errors.New("session not found")

// MemoryConfig holds conversation memory configuration
type MemoryConfig struct {
	WindowSize int
}

// sessionEntry pairs a session with its lock. All mutation of the session
// happens under entry.mu; the registry lock only guards the map itself.
type sessionEntry struct {
	mu      sync.Mutex
	session models.Session
}

// Memory is the in-process conversation store. Sessions hold a bounded
// turn window with FIFO eviction; aggregates survive eviction.
type Memory struct {
	mu         sync.RWMutex
	sessions   map[string]*sessionEntry
	windowSize int
	logger     *logger.Logger
}

// NewMemory creates a new conversation memory store
func NewMemory(cfg MemoryConfig, log *logger.Logger) *Memory {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 10
	}
	return &Memory{
		sessions:   make(map[string]*sessionEntry),
		windowSize: cfg.WindowSize,
		logger:     log.WithComponent("memory"),
	}
}

// WindowSize returns the configured turn window cap
func (m *Memory) WindowSize() int {
	return m.windowSize
}

func (m *Memory) getOrCreateEntry(id string) *sessionEntry {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return entry
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok = m.sessions[id]; ok {
		return entry
	}
	now := time.Now()
	entry = &sessionEntry{
		session: models.Session{
			ID:         id,
			CreatedAt:  now,
			LastActive: now,
		},
	}
	m.sessions[id] = entry
	m.logger.Debug().Str("session_id", id).Msg("session created")
	return entry
}

// WithSession runs fn with exclusive ownership of the session, creating it
// on first use. fn receives the live session; any error leaves whatever fn
// already applied, so callers mutate only once their work has succeeded.
func (m *Memory) WithSession(id string, fn func(s *models.Session) error) error {
	entry := m.getOrCreateEntry(id)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(&entry.session)
}

// appendTurn adds a turn to the session window, evicting oldest turns once
// the window cap is exceeded. Session aggregates are untouched by eviction.
func appendTurn(s *models.Session, turn models.Turn, windowCap int) {
	s.Turns = append(s.Turns, turn)
	if len(s.Turns) > windowCap {
		s.Turns = append(s.Turns[:0:0], s.Turns[len(s.Turns)-windowCap:]...)
	}
}

// Get returns a snapshot of the session
func (m *Memory) Get(id string) (models.Session, bool) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return models.Session{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return snapshot(&entry.session), true
}

// Terminate marks the session terminated. Termination is monotone: a
// terminated session never becomes active again.
func (m *Memory) Terminate(id string) (models.Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.session.Terminated = true
	entry.session.LastActive = time.Now()
	return snapshot(&entry.session), nil
}

// PurgeIdle removes sessions whose last activity is older than ttl and
// returns the removed snapshots so finalization can run on them.
func (m *Memory) PurgeIdle(ttl time.Duration) []models.Session {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	var purged []models.Session
	for id, entry := range m.sessions {
		entry.mu.Lock()
		if entry.session.LastActive.Before(cutoff) {
			purged = append(purged, snapshot(&entry.session))
			delete(m.sessions, id)
		}
		entry.mu.Unlock()
	}

	if len(purged) > 0 {
		m.logger.Info().Int("purged", len(purged)).Msg("purged idle sessions")
	}
	return purged
}

// List returns snapshots of all sessions, newest activity first
func (m *Memory) List() []models.Session {
	m.mu.RLock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, entry := range m.sessions {
		entries = append(entries, entry)
	}
	m.mu.RUnlock()

	out := make([]models.Session, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		out = append(out, snapshot(&entry.session))
		entry.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out
}

// Stats summarizes the store for the stats endpoint
type MemoryStats struct {
	TotalSessions      int `json:"total_sessions"`
	ActiveSessions     int `json:"active_sessions"`
	TerminatedSessions int `json:"terminated_sessions"`
	ScamSessions       int `json:"scam_sessions"`
}

// Stats returns store-wide counters
func (m *Memory) Stats() MemoryStats {
	sessions := m.List()
	stats := MemoryStats{TotalSessions: len(sessions)}
	for _, s := range sessions {
		if s.Terminated {
			stats.TerminatedSessions++
		} else {
			stats.ActiveSessions++
		}
		if s.ScamDetected {
			stats.ScamSessions++
		}
	}
	return stats
}

func snapshot(s *models.Session) models.Session {
	out := *s
	out.Turns = append([]models.Turn(nil), s.Turns...)
	out.SuspiciousKeywords = append([]string(nil), s.SuspiciousKeywords...)
	out.Intelligence = models.IntelligenceBundle{
		Entities:      append([]models.ExtractedEntity(nil), s.Intelligence.Entities...),
		HighRiskFlags: append([]string(nil), s.Intelligence.HighRiskFlags...),
		DegradedNER:   s.Intelligence.DegradedNER,
	}
	return out
}
