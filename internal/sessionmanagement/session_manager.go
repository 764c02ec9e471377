// Package sessionmanagement owns the live pipeline sessions and exposes
// them over HTTP.
package sessionmanagement

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/coreengine/pipeline"
	"github.com/hivenetes/distributed-multi-modal-agentic-ai/internal/telemetry"
)

// ErrSessionNotFound is returned for unknown or evicted session ids.
var ErrSessionNotFound = errors.New("session not found")

// Manager creates sessions and evicts the ones left idle.
type Manager struct {
	adapters  pipeline.Adapters
	opts      pipeline.Options
	idleAfter time.Duration
	log       *slog.Logger
	telemetry *telemetry.Recorder

	mu       sync.RWMutex
	sessions map[string]*pipeline.Session
}

// NewManager returns an empty manager. idleAfter <= 0 disables eviction.
func NewManager(adapters pipeline.Adapters, opts pipeline.Options, idleAfter time.Duration, logger *slog.Logger, recorder *telemetry.Recorder) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		adapters:  adapters,
		opts:      opts,
		idleAfter: idleAfter,
		log:       logger,
		telemetry: recorder,
		sessions:  make(map[string]*pipeline.Session),
	}
}

// Create starts a new session in the Idle state.
func (m *Manager) Create() *pipeline.Session {
	id := uuid.NewString()
	session := pipeline.NewSession(id, m.adapters, m.opts, m.log, m.telemetry)

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	m.telemetry.SessionOpened()
	m.log.Debug("session created", "component", "sessionmanagement", "session_id", id)
	return session
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*pipeline.Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.telemetry.SessionClosed()
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictIdle drops sessions whose last trigger is older than the idle
// window, measured from now. Busy sessions are kept. It returns the number
// evicted.
func (m *Manager) EvictIdle(now time.Time) int {
	if m.idleAfter <= 0 {
		return 0
	}
	cutoff := now.Add(-m.idleAfter)

	m.mu.Lock()
	var evicted int
	for id, session := range m.sessions {
		if !session.Busy() && session.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	m.mu.Unlock()

	for i := 0; i < evicted; i++ {
		m.telemetry.SessionClosed()
	}
	if evicted > 0 {
		m.log.Info("evicted idle sessions", "component", "sessionmanagement", "count", evicted)
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.idleAfter <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.EvictIdle(now)
		}
	}
}
