package repositories

import (
	"context"

	"github.com/satriahrh/moodcast/domain/entities"
)

// SessionRepository persists broadcast sessions and their mood timeline
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	// AppendTimeline adds one transition to an existing session
	AppendTimeline(ctx context.Context, sessionID string, entry entities.TimelineEntry) error
	// Finish stores the terminal status of a session
	Finish(ctx context.Context, session *entities.Session) error
	GetByID(ctx context.Context, id string) (*entities.Session, error)
	// GetLatest returns the most recently started session, or nil
	GetLatest(ctx context.Context) (*entities.Session, error)
}
