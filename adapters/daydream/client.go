package daydream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
)

const (
	defaultAPIBaseURL  = "https://api.daydream.live/v1"
	defaultPipelineID  = "pip_SD-turbo"
	defaultTimeout     = 10 * time.Second
	defaultPlaybackURL = "https://lvpr.tv/?v="
)

// Config holds configuration for the Daydream client
// Required fields:
// - APIKey: bearer token for the Daydream API
// Optional fields with defaults:
// - APIBaseURL: (default: "https://api.daydream.live/v1")
// - PipelineID: pipeline used for new streams (default: "pip_SD-turbo")
// - Timeout: per-request timeout (default: 10s)
type Config struct {
	APIKey     string
	APIBaseURL string
	PipelineID string
	Timeout    time.Duration
}

// ValidateConfig validates the Config
func ValidateConfig(config Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("daydream API key is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	if config.APIBaseURL != "" {
		if _, err := url.Parse(config.APIBaseURL); err != nil {
			return fmt.Errorf("invalid API base URL: %w", err)
		}
	}
	return nil
}

// Client implements RemoteStreamClient against the Daydream streams API
type Client struct {
	apiKey     string
	apiBaseURL string
	pipelineID string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.RemoteStreamClient = (*Client)(nil)

type createStreamRequest struct {
	PipelineID string `json:"pipeline_id"`
}

type createStreamResponse struct {
	ID               string `json:"id"`
	WhipURL          string `json:"whip_url"`
	OutputPlaybackID string `json:"output_playback_id"`
}

// StreamParams is the style payload of a stream update
type StreamParams struct {
	Prompt            string `json:"prompt"`
	NegativePrompt    string `json:"negative_prompt"`
	NumInferenceSteps int    `json:"num_inference_steps"`
	Seed              *int64 `json:"seed,omitempty"`
}

type updateStreamRequest struct {
	Params StreamParams `json:"params"`
}

// NewClient creates a new Daydream client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	pipelineID := config.PipelineID
	if pipelineID == "" {
		pipelineID = defaultPipelineID
		logger.Info("Using default pipeline", zap.String("pipelineID", pipelineID))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:     config.APIKey,
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		pipelineID: pipelineID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// CreateSession opens a new stream on the configured pipeline
func (c *Client) CreateSession(ctx context.Context) (entities.RemoteStream, error) {
	var out createStreamResponse
	status, err := c.do(ctx, http.MethodPost, c.apiBaseURL+"/streams", createStreamRequest{PipelineID: c.pipelineID}, &out)
	if err != nil {
		return entities.RemoteStream{}, &domain.RemoteUpdateError{Op: "create stream", StatusCode: status, Err: err}
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return entities.RemoteStream{}, &domain.RemoteUpdateError{Op: "create stream", StatusCode: status, Err: errors.New("unexpected status")}
	}
	if out.ID == "" {
		return entities.RemoteStream{}, &domain.RemoteUpdateError{Op: "create stream", StatusCode: status, Err: errors.New("response has no stream id")}
	}

	stream := entities.RemoteStream{
		ID:             out.ID,
		IngestEndpoint: out.WhipURL,
		PlaybackID:     out.OutputPlaybackID,
	}
	c.logger.Info("Stream created",
		zap.String("streamID", stream.ID),
		zap.String("whipURL", stream.IngestEndpoint),
		zap.String("watchURL", WatchURL(stream.PlaybackID)))
	return stream, nil
}

// UpdateStyle patches the stream parameters. Only 200 counts as success.
func (c *Client) UpdateStyle(ctx context.Context, sessionID string, profile entities.MoodProfile) error {
	if sessionID == "" {
		return &domain.RemoteUpdateError{Op: "update stream", Err: errors.New("stream id is required")}
	}

	req := updateStreamRequest{Params: StreamParams{
		Prompt:            profile.Prompt,
		NegativePrompt:    profile.NegativePrompt,
		NumInferenceSteps: profile.NumInferenceSteps,
		Seed:              profile.Seed,
	}}

	status, err := c.do(ctx, http.MethodPatch, c.apiBaseURL+"/streams/"+url.PathEscape(sessionID), req, nil)
	if err != nil {
		return &domain.RemoteUpdateError{Op: "update stream", StatusCode: status, Err: err}
	}
	if status != http.StatusOK {
		return &domain.RemoteUpdateError{Op: "update stream", StatusCode: status, Err: errors.New("unexpected status")}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Daydream API returned error",
			zap.String("method", method),
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(errorBody)))
		return resp.StatusCode, fmt.Errorf("API returned error %d: %s", resp.StatusCode, strings.TrimSpace(string(errorBody)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// WatchURL returns the public playback page for a stream
func WatchURL(playbackID string) string {
	if playbackID == "" {
		return ""
	}
	return defaultPlaybackURL + url.QueryEscape(playbackID)
}

// ExistingStream wraps a stream id supplied by configuration
func ExistingStream(id string) entities.RemoteStream {
	return entities.RemoteStream{ID: id}
}
