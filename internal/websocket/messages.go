package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
)

func encodeMoodChanged(sessionID string, event entities.MoodTransitionEvent, imageURL string) ([]byte, error) {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := domain.MoodChangedMessage{
		Type:      domain.MessageTypeMoodChanged,
		SessionID: sessionID,
		EventID:   event.ID,
		From:      event.From.String(),
		To:        event.To.String(),
		Label:     event.To.Upper(),
		ImageURL:  imageURL,
		Trigger:   event.TriggeringText,
		Timestamp: ts.UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mood change: %w", err)
	}
	return data, nil
}

func encodeWelcome(sessionID string, mood entities.MoodLabel) ([]byte, error) {
	msg := domain.WelcomeMessage{
		Type:      domain.MessageTypeWelcome,
		SessionID: sessionID,
		Mood:      mood.String(),
		Label:     mood.Upper(),
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode welcome: %w", err)
	}
	return data, nil
}
