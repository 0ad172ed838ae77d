package repositories

import (
	"context"

	"github.com/satriahrh/moodcast/domain/entities"
)

// RemoteStreamClient talks to the remote rendering service
type RemoteStreamClient interface {
	// CreateSession opens a new rendering stream
	CreateSession(ctx context.Context) (entities.RemoteStream, error)
	// UpdateStyle pushes the profile parameters to a running stream.
	// Failures are returned as *domain.RemoteUpdateError.
	UpdateStyle(ctx context.Context, sessionID string, profile entities.MoodProfile) error
}

// OverlayWriter publishes the current mood to an on-screen overlay.
// Both operations are best effort.
type OverlayWriter interface {
	WriteLabel(text string) error
	// WriteImage makes path the current overlay image; an empty path
	// clears the image
	WriteImage(path string) error
}

// MusicPlayer plays one background track per mood
type MusicPlayer interface {
	// Play starts a track for the mood. Calling it again for the mood that
	// is already playing is a no-op.
	Play(ctx context.Context, mood entities.MoodLabel) error
	// Stop halts playback and releases the output. Safe to call repeatedly.
	Stop() error
	// Current returns the mood being played, or "" when stopped
	Current() entities.MoodLabel
}
