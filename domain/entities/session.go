package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the status of a broadcast session
type SessionStatus string

const (
	SessionStatusActive  SessionStatus = "active"
	SessionStatusStopped SessionStatus = "stopped"
	SessionStatusFailed  SessionStatus = "failed"
)

// RemoteStream is the remote rendering session the style updates target
type RemoteStream struct {
	ID             string `json:"id" bson:"id"`
	IngestEndpoint string `json:"ingest_endpoint" bson:"ingest_endpoint"`
	PlaybackID     string `json:"playback_id" bson:"playback_id"`
}

// TimelineEntry records one mood transition of a session
type TimelineEntry struct {
	EventID        string    `json:"event_id" bson:"event_id"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
	Offset         float64   `json:"offset_seconds" bson:"offset_seconds"`
	From           MoodLabel `json:"from" bson:"from"`
	To             MoodLabel `json:"to" bson:"to"`
	TriggeringText string    `json:"triggering_text" bson:"triggering_text"`
	FailedEffects  []string  `json:"failed_effects,omitempty" bson:"failed_effects,omitempty"`
}

// Session is one run of the control loop, from Running to Stopped
type Session struct {
	ID        string          `json:"id" bson:"_id"`
	Stream    RemoteStream    `json:"stream" bson:"stream"`
	StartedAt time.Time       `json:"started_at" bson:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	Status    SessionStatus   `json:"status" bson:"status"`
	Timeline  []TimelineEntry `json:"timeline" bson:"timeline"`
	EndReason string          `json:"end_reason,omitempty" bson:"end_reason,omitempty"`
}

// NewSession creates a new active session for a remote stream
func NewSession(stream RemoteStream) *Session {
	return &Session{
		ID:        uuid.New().String(),
		Stream:    stream,
		StartedAt: time.Now(),
		Status:    SessionStatusActive,
		Timeline:  make([]TimelineEntry, 0),
	}
}

// Record appends a transition to the timeline and returns the entry
func (s *Session) Record(event MoodTransitionEvent, failed []string) TimelineEntry {
	entry := TimelineEntry{
		EventID:        event.ID,
		Timestamp:      event.Timestamp,
		Offset:         event.Timestamp.Sub(s.StartedAt).Seconds(),
		From:           event.From,
		To:             event.To,
		TriggeringText: event.TriggeringText,
		FailedEffects:  failed,
	}
	s.Timeline = append(s.Timeline, entry)
	return entry
}

// End marks the session finished with the given status
func (s *Session) End(status SessionStatus, reason string) {
	now := time.Now()
	s.EndedAt = &now
	s.Status = status
	s.EndReason = reason
}

// IsActive reports whether the session is still running
func (s *Session) IsActive() bool {
	return s.Status == SessionStatusActive
}

// Validate validates the session data
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}

	if s.Status != SessionStatusActive && s.Status != SessionStatusStopped && s.Status != SessionStatusFailed {
		return errors.New("invalid session status")
	}

	return nil
}
