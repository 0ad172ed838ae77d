package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
)

// SessionRepository keeps sessions in memory. It stores its own copies so
// callers can keep mutating theirs.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.Session
	latest   string
}

var _ repositories.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates an empty repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*entities.Session),
	}
}

func (m *SessionRepository) Create(_ context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return fmt.Errorf("session with ID %s already exists", session.ID)
	}
	m.sessions[session.ID] = clone(session)
	m.latest = session.ID
	return nil
}

func (m *SessionRepository) AppendTimeline(_ context.Context, sessionID string, entry entities.TimelineEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session with ID %s not found", sessionID)
	}
	entry.FailedEffects = append([]string(nil), entry.FailedEffects...)
	s.Timeline = append(s.Timeline, entry)
	return nil
}

func (m *SessionRepository) Finish(_ context.Context, session *entities.Session) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[session.ID]
	if !ok {
		return fmt.Errorf("session with ID %s not found", session.ID)
	}
	s.Status = session.Status
	s.EndReason = session.EndReason
	if session.EndedAt != nil {
		ended := *session.EndedAt
		s.EndedAt = &ended
	}
	return nil
}

func (m *SessionRepository) GetByID(_ context.Context, id string) (*entities.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session with ID %s not found", id)
	}
	return clone(s), nil
}

func (m *SessionRepository) GetLatest(_ context.Context) (*entities.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.latest == "" {
		return nil, nil
	}
	return clone(m.sessions[m.latest]), nil
}

// DumpJSON writes every session to path as indented JSON
func (m *SessionRepository) DumpJSON(path string) error {
	m.mu.RLock()
	sessions := make([]*entities.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, clone(s))
	}
	m.mu.RUnlock()

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write timeline: %w", err)
	}
	return nil
}

func clone(s *entities.Session) *entities.Session {
	c := *s
	c.Timeline = make([]entities.TimelineEntry, len(s.Timeline))
	for i, e := range s.Timeline {
		e.FailedEffects = append([]string(nil), e.FailedEffects...)
		c.Timeline[i] = e
	}
	if s.EndedAt != nil {
		ended := *s.EndedAt
		c.EndedAt = &ended
	}
	return &c
}
