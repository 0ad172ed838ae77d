package repositories

import (
	"context"

	"github.com/satriahrh/moodcast/domain/entities"
)

// SpeechToText abstracts speech recognition backends
type SpeechToText interface {
	// Transcribe converts one chunk to lower-case text. Empty audio or
	// silence yields "" and no error. Failures are returned as
	// *domain.TransientTranscriptionError or *domain.FatalTranscriptionError.
	Transcribe(ctx context.Context, chunk entities.AudioChunk, sampleRate int) (string, error)
	// Close releases backend resources
	Close() error
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}
