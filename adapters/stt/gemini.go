package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
	"github.com/satriahrh/moodcast/internal/audio"
)

const (
	BackendGemini = "gemini"

	defaultGeminiModel = "gemini-2.0-flash"
	silenceMarker      = "<silence>"
)

const transcribePrompt = "Transcribe the speech in this audio verbatim in %s. " +
	"Reply with the transcript only. If there is no speech, reply with " + silenceMarker + "."

// GeminiConfig holds the settings for Gemini transcription
type GeminiConfig struct {
	APIKey   string
	Model    string
	Language string
}

// GeminiSpeechToText transcribes chunks by sending them to Gemini as inline
// WAV audio
type GeminiSpeechToText struct {
	client *genai.Client
	config GeminiConfig
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GeminiSpeechToText)(nil)

// NewGeminiSpeechToText creates a Gemini transcriber
func NewGeminiSpeechToText(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiSpeechToText, error) {
	if config.APIKey == "" {
		return nil, &domain.FatalTranscriptionError{Backend: BackendGemini, Err: errors.New("API key is required")}
	}
	if config.Model == "" {
		config.Model = defaultGeminiModel
	}
	if config.Language == "" {
		config.Language = "en-US"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &domain.FatalTranscriptionError{
			Backend: BackendGemini,
			Err:     fmt.Errorf("failed to create Gemini client: %w", err),
		}
	}

	return &GeminiSpeechToText{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

func (g *GeminiSpeechToText) Transcribe(ctx context.Context, chunk entities.AudioChunk, sampleRate int) (string, error) {
	if chunk.IsEmpty() {
		return "", nil
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(fmt.Sprintf(transcribePrompt, g.config.Language)),
			genai.NewPartFromBytes(audio.EncodeWAV(chunk.Samples, sampleRate), "audio/wav"),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text := normaliseTranscript(resp.Text())
	g.logger.Debug("Transcription completed",
		zap.String("backend", BackendGemini),
		zap.String("model", g.config.Model),
		zap.Duration("audio", chunk.Duration()))
	return text, nil
}

func (g *GeminiSpeechToText) Close() error {
	return nil
}

func normaliseTranscript(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(text, silenceMarker) {
		return ""
	}
	return text
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	code := 0
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	} else {
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			code = apiErrPtr.Code
		}
	}

	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return &domain.FatalTranscriptionError{Backend: BackendGemini, Err: err}
	default:
		return &domain.TransientTranscriptionError{Backend: BackendGemini, Err: err}
	}
}
