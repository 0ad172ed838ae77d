package stt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
	"github.com/satriahrh/moodcast/internal/audio"
)

const BackendGoogle = "google"

// GoogleSpeechToText implements SpeechToText for Google Cloud
type GoogleSpeechToText struct {
	client *speech.Client
	config repositories.AudioConfig
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*GoogleSpeechToText)(nil)

// NewGoogleSpeechToText creates a recogniser using application default
// credentials. Failing to create the client is fatal.
func NewGoogleSpeechToText(ctx context.Context, config repositories.AudioConfig, logger *zap.Logger) (*GoogleSpeechToText, error) {
	if config.Encoding == "" {
		config.Encoding = "LINEAR16"
	}
	if config.Language == "" {
		config.Language = "en-US"
	}
	if _, err := getAudioEncoding(config.Encoding); err != nil {
		return nil, &domain.FatalTranscriptionError{Backend: BackendGoogle, Err: err}
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, &domain.FatalTranscriptionError{
			Backend: BackendGoogle,
			Err:     fmt.Errorf("failed to create speech client: %w", err),
		}
	}

	return &GoogleSpeechToText{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// Transcribe sends the chunk as one synchronous recognition request
func (g *GoogleSpeechToText) Transcribe(ctx context.Context, chunk entities.AudioChunk, sampleRate int) (string, error) {
	if chunk.IsEmpty() {
		return "", nil
	}

	encoding, _ := getAudioEncoding(g.config.Encoding)
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: int32(sampleRate),
			LanguageCode:    g.config.Language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.SamplesToBytes(chunk.Samples)},
		},
	})
	if err != nil {
		return "", classifyGRPCError(err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			// Take the best alternative
			parts = append(parts, result.Alternatives[0].Transcript)
		}
	}

	text := strings.ToLower(strings.TrimSpace(strings.Join(parts, " ")))
	g.logger.Debug("Transcription completed",
		zap.String("backend", BackendGoogle),
		zap.Duration("audio", chunk.Duration()),
		zap.Int("results", len(resp.Results)))
	return text, nil
}

func (g *GoogleSpeechToText) Close() error {
	return g.client.Close()
}

// classifyGRPCError maps gRPC status codes to transient or fatal failures
func classifyGRPCError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &domain.TransientTranscriptionError{Backend: BackendGoogle, Err: err}
	}

	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied, codes.InvalidArgument,
		codes.NotFound, codes.Unimplemented, codes.FailedPrecondition:
		return &domain.FatalTranscriptionError{Backend: BackendGoogle, Err: err}
	default:
		// DeadlineExceeded, Unavailable, ResourceExhausted, Internal, ...
		return &domain.TransientTranscriptionError{Backend: BackendGoogle, Err: err}
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
