package api

import (
	"time"

	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/usecase"
)

// ClassifyRequest is the payload of a dry-run classification
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse reports what the classifier would decide for a text
type ClassifyResponse struct {
	Text    string             `json:"text"`
	Mood    entities.MoodLabel `json:"mood"`
	Keyword string             `json:"keyword,omitempty"`
	// Changes reports whether the text would move the loop off its current mood
	Changes bool `json:"changes"`
}

// MoodInfo describes one configured mood
type MoodInfo struct {
	Label    entities.MoodLabel   `json:"label"`
	Priority int                  `json:"priority"`
	Keywords []string             `json:"keywords"`
	Style    entities.MoodProfile `json:"style"`
	Default  bool                 `json:"default"`
}

// StatusResponse is the loop status plus the overlay feed size
type StatusResponse struct {
	usecase.LoopStatus
	OverlayClients int `json:"overlay_clients"`
}

// OverlayTokenRequest asks for an overlay token
type OverlayTokenRequest struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

// OverlayTokenResponse carries a signed overlay token
type OverlayTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientID  string    `json:"client_id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
