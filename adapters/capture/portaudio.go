package capture

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
	"github.com/satriahrh/moodcast/internal/audio"
)

// Config describes the input stream
type Config struct {
	SampleRate    int
	BlockDuration time.Duration
}

// Validate validates the capture configuration
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	if audio.BlockSamples(c.SampleRate, c.BlockDuration) <= 0 {
		return fmt.Errorf("block duration %s is too short", c.BlockDuration)
	}
	return nil
}

// PortAudioSource captures mono 16-bit audio from the default input device
type PortAudioSource struct {
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	running atomic.Bool
	blocks  atomic.Uint64
	dropped atomic.Uint64
}

var _ repositories.AudioSource = (*PortAudioSource)(nil)

// NewPortAudioSource creates a source; the device is opened by Start
func NewPortAudioSource(config Config, logger *zap.Logger) (*PortAudioSource, error) {
	if err := config.Validate(); err != nil {
		return nil, &domain.ConfigError{Field: "capture", Err: err}
	}
	return &PortAudioSource{
		config: config,
		logger: logger,
	}, nil
}

// Start opens the default input device and delivers one block per callback
func (s *PortAudioSource) Start(sink repositories.BlockSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		return &domain.DeviceError{Op: "start", Err: errors.New("already started")}
	}

	if err := portaudio.Initialize(); err != nil {
		return &domain.DeviceError{Op: "initialize", Err: err}
	}

	frames := audio.BlockSamples(s.config.SampleRate, s.config.BlockDuration)

	// runs on the audio thread: copy and offer, nothing else
	callback := func(in []int16) {
		if !s.running.Load() {
			return
		}
		samples := make([]int16, len(in))
		copy(samples, in)
		s.blocks.Add(1)
		if !sink.Offer(entities.AudioBlock{CapturedAt: time.Now(), Samples: samples}) {
			s.dropped.Add(1)
		}
	}

	stream, err := portaudio.OpenDefaultStream(audio.Channels, 0, float64(s.config.SampleRate), frames, callback)
	if err != nil {
		portaudio.Terminate()
		return &domain.DeviceError{Op: "open", Err: err}
	}

	s.running.Store(true)
	if err := stream.Start(); err != nil {
		s.running.Store(false)
		stream.Close()
		portaudio.Terminate()
		return &domain.DeviceError{Op: "start", Err: err}
	}
	s.stream = stream

	s.logger.Info("Microphone recording started",
		zap.Int("sampleRate", s.config.SampleRate),
		zap.Int("framesPerBlock", frames))
	return nil
}

// Stop releases the device. Calling it again, or before Start, is a no-op.
func (s *PortAudioSource) Stop() error {
	s.running.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return nil
	}
	stream := s.stream
	s.stream = nil

	var errs []error
	if err := stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop stream: %w", err))
	}
	if err := stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stream: %w", err))
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("terminate: %w", err))
	}

	s.logger.Info("Microphone recording stopped",
		zap.Uint64("blocks", s.blocks.Load()),
		zap.Uint64("rejected", s.dropped.Load()))

	if len(errs) > 0 {
		return &domain.DeviceError{Op: "stop", Err: errors.Join(errs...)}
	}
	return nil
}
