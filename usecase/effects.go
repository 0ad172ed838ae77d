package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
)

const (
	EffectStyle   = "style"
	EffectOverlay = "overlay"
	EffectMusic   = "music"
)

// StyleEffect pushes the mood profile to the remote rendering session
type StyleEffect struct {
	client    repositories.RemoteStreamClient
	sessionID string
	logger    *zap.Logger

	mu      sync.Mutex
	applied entities.MoodLabel
}

// NewStyleEffect targets the remote stream with the given id
func NewStyleEffect(client repositories.RemoteStreamClient, sessionID string, logger *zap.Logger) *StyleEffect {
	return &StyleEffect{
		client:    client,
		sessionID: sessionID,
		logger:    logger,
	}
}

func (e *StyleEffect) Name() string { return EffectStyle }

// Apply sends the profile unless the remote already shows this mood
func (e *StyleEffect) Apply(ctx context.Context, event entities.MoodTransitionEvent, profile entities.MoodProfile) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.applied == event.To {
		return nil
	}
	if err := e.client.UpdateStyle(ctx, e.sessionID, profile); err != nil {
		return err
	}
	e.applied = event.To
	e.logger.Info("Remote style updated",
		zap.String("streamID", e.sessionID),
		zap.String("mood", event.To.String()),
		zap.Int("steps", profile.NumInferenceSteps))
	return nil
}

// Applied returns the mood last confirmed by the remote service
func (e *StyleEffect) Applied() entities.MoodLabel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied
}

// OverlayEffect writes the mood label and its image for the stream overlay
type OverlayEffect struct {
	writer   repositories.OverlayWriter
	imageDir string
}

// NewOverlayEffect looks up <imageDir>/<mood>.png for each mood
func NewOverlayEffect(writer repositories.OverlayWriter, imageDir string) *OverlayEffect {
	return &OverlayEffect{
		writer:   writer,
		imageDir: imageDir,
	}
}

func (e *OverlayEffect) Name() string { return EffectOverlay }

// Apply writes both outputs; a mood without an image clears the image
func (e *OverlayEffect) Apply(_ context.Context, event entities.MoodTransitionEvent, _ entities.MoodProfile) error {
	var errs []error
	if err := e.writer.WriteLabel(event.To.Upper()); err != nil {
		errs = append(errs, fmt.Errorf("overlay label: %w", err))
	}
	if err := e.writer.WriteImage(e.ImagePath(event.To)); err != nil {
		errs = append(errs, fmt.Errorf("overlay image: %w", err))
	}
	return errors.Join(errs...)
}

// ImagePath returns the image for mood, or "" when there is none
func (e *OverlayEffect) ImagePath(mood entities.MoodLabel) string {
	if e.imageDir == "" {
		return ""
	}
	path := filepath.Join(e.imageDir, mood.String()+".png")
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return ""
	}
	return path
}

// MusicEffect switches the background track to the new mood
type MusicEffect struct {
	player repositories.MusicPlayer
}

func NewMusicEffect(player repositories.MusicPlayer) *MusicEffect {
	return &MusicEffect{player: player}
}

func (e *MusicEffect) Name() string { return EffectMusic }

func (e *MusicEffect) Apply(ctx context.Context, event entities.MoodTransitionEvent, _ entities.MoodProfile) error {
	return e.player.Play(ctx, event.To)
}
