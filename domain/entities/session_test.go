package entities

import (
	"testing"
	"time"
)

func TestSessionCreation(t *testing.T) {
	session := NewSession(RemoteStream{ID: "str_1", PlaybackID: "pb_1"})

	if session.ID == "" {
		t.Error("Expected a session id")
	}
	if session.Stream.ID != "str_1" {
		t.Errorf("Expected stream str_1, got %s", session.Stream.ID)
	}
	if !session.IsActive() {
		t.Errorf("Expected status %s, got %s", SessionStatusActive, session.Status)
	}
	if session.Timeline == nil || len(session.Timeline) != 0 {
		t.Errorf("Expected empty timeline, got %v", session.Timeline)
	}
}

func TestSessionRecord(t *testing.T) {
	session := NewSession(RemoteStream{})
	at := session.StartedAt.Add(90 * time.Second)

	entry := session.Record(MoodTransitionEvent{
		ID:             "e1",
		From:           "neutral",
		To:             "excited",
		TriggeringText: "what a goal",
		Timestamp:      at,
	}, []string{"style"})

	if len(session.Timeline) != 1 || session.Timeline[0].EventID != "e1" {
		t.Fatalf("timeline = %+v", session.Timeline)
	}
	if entry.Offset != 90 {
		t.Errorf("Expected offset 90s, got %v", entry.Offset)
	}
	if entry.From != "neutral" || entry.To != "excited" || entry.TriggeringText != "what a goal" {
		t.Errorf("entry = %+v", entry)
	}
	if len(entry.FailedEffects) != 1 || entry.FailedEffects[0] != "style" {
		t.Errorf("FailedEffects = %v", entry.FailedEffects)
	}
}

func TestSessionEnd(t *testing.T) {
	session := NewSession(RemoteStream{})
	session.End(SessionStatusFailed, "speech backend rejected credentials")

	if session.IsActive() {
		t.Error("Expected session to be inactive")
	}
	if session.EndedAt == nil || session.EndedAt.Before(session.StartedAt) {
		t.Errorf("EndedAt = %v", session.EndedAt)
	}
	if session.EndReason == "" {
		t.Error("Expected an end reason")
	}
}

func TestSessionValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Session)
		wantErr bool
	}{
		{"valid", func(s *Session) {}, false},
		{"missing id", func(s *Session) { s.ID = "" }, true},
		{"bad status", func(s *Session) { s.Status = "paused" }, true},
		{"stopped", func(s *Session) { s.End(SessionStatusStopped, "cancelled") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(RemoteStream{})
			tt.mutate(s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMoodTransitionEvent_IsPriming(t *testing.T) {
	if !(MoodTransitionEvent{To: "neutral"}).IsPriming() {
		t.Error("event without From should be priming")
	}
	if (MoodTransitionEvent{From: "neutral", To: "sad"}).IsPriming() {
		t.Error("real transition reported as priming")
	}
}
