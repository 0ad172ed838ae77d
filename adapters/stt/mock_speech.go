package stt

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
)

const BackendMock = "mock"

// MockSpeechToText replays scripted transcripts, one per call, cycling
// through the script. It lets the loop run end to end without a
// recognition backend.
type MockSpeechToText struct {
	logger *zap.Logger

	mu     sync.Mutex
	script []string
	next   int
}

var _ repositories.SpeechToText = (*MockSpeechToText)(nil)

// DefaultMockScript walks through every mood once
var DefaultMockScript = []string{
	"",
	"wow what an amazing goal",
	"that was incredible",
	"oh no he missed",
	"so slow, just waiting around",
	"that was terrible",
	"",
}

// NewMockSpeechToText creates a mock transcriber. An empty script uses
// DefaultMockScript.
func NewMockSpeechToText(script []string, logger *zap.Logger) *MockSpeechToText {
	if len(script) == 0 {
		script = DefaultMockScript
	}
	return &MockSpeechToText{
		logger: logger,
		script: append([]string(nil), script...),
	}
}

func (m *MockSpeechToText) Transcribe(ctx context.Context, chunk entities.AudioChunk, _ int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	text := m.script[m.next%len(m.script)]
	m.next++
	m.mu.Unlock()

	m.logger.Debug("Mock transcription",
		zap.Int("samples", len(chunk.Samples)),
		zap.String("text", text))
	return text, nil
}

func (m *MockSpeechToText) Close() error {
	return nil
}
