package domain

// MoodChangedMessage is pushed to overlay clients for every applied mood
type MoodChangedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	EventID   string `json:"event_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Label     string `json:"label"` // display text
	ImageURL  string `json:"image_url,omitempty"`
	Trigger   string `json:"trigger"`
	Timestamp int64  `json:"timestamp"`
}

// WelcomeMessage is sent to an overlay client right after it connects
type WelcomeMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Mood      string `json:"mood"`
	Label     string `json:"label"`
	Timestamp int64  `json:"timestamp"`
}

const (
	MessageTypeMoodChanged = "mood_changed"
	MessageTypeWelcome     = "welcome"
)
