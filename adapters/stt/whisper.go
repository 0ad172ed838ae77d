package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
	"github.com/satriahrh/moodcast/internal/audio"
)

const BackendWhisper = "whisper"

// WhisperConfig points at a faster-whisper HTTP server
type WhisperConfig struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

// WhisperSpeechToText posts chunks as WAV files to a whisper server
type WhisperSpeechToText struct {
	config WhisperConfig
	client *http.Client
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*WhisperSpeechToText)(nil)

// NewWhisperSpeechToText creates a client for the server at config.BaseURL
func NewWhisperSpeechToText(config WhisperConfig, logger *zap.Logger) (*WhisperSpeechToText, error) {
	if config.BaseURL == "" {
		return nil, &domain.FatalTranscriptionError{Backend: BackendWhisper, Err: errors.New("server URL is required")}
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &WhisperSpeechToText{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

func (w *WhisperSpeechToText) Transcribe(ctx context.Context, chunk entities.AudioChunk, sampleRate int) (string, error) {
	if chunk.IsEmpty() {
		return "", nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "chunk.wav")
	if err != nil {
		return "", &domain.TransientTranscriptionError{Backend: BackendWhisper, Err: err}
	}
	if _, err := fw.Write(audio.EncodeWAV(chunk.Samples, sampleRate)); err != nil {
		return "", &domain.TransientTranscriptionError{Backend: BackendWhisper, Err: err}
	}
	if w.config.Language != "" {
		// whisper wants the bare language code
		lang, _, _ := strings.Cut(w.config.Language, "-")
		_ = mw.WriteField("language", strings.ToLower(lang))
	}
	if err := mw.Close(); err != nil {
		return "", &domain.TransientTranscriptionError{Backend: BackendWhisper, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.BaseURL+"/transcribe", &body)
	if err != nil {
		return "", &domain.FatalTranscriptionError{Backend: BackendWhisper, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", &domain.TransientTranscriptionError{Backend: BackendWhisper, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("whisper %s: %s", resp.Status, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return "", &domain.TransientTranscriptionError{Backend: BackendWhisper, Err: err}
		}
		return "", &domain.FatalTranscriptionError{Backend: BackendWhisper, Err: err}
	}

	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &domain.TransientTranscriptionError{Backend: BackendWhisper, Err: fmt.Errorf("decode: %w", err)}
	}

	text := out.Text
	if text == "" {
		parts := make([]string, 0, len(out.Segments))
		for _, s := range out.Segments {
			parts = append(parts, strings.TrimSpace(s.Text))
		}
		text = strings.Join(parts, " ")
	}

	w.logger.Debug("Transcription completed",
		zap.String("backend", BackendWhisper),
		zap.Int("segments", len(out.Segments)),
		zap.String("language", out.Language))
	return strings.ToLower(strings.TrimSpace(text)), nil
}

func (w *WhisperSpeechToText) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
