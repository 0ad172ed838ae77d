package capture

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
	"github.com/satriahrh/moodcast/internal/audio"
)

// SyntheticSource produces silent blocks on a ticker at the configured
// cadence. It stands in for a microphone on machines without one and
// pairs with the mock transcriber.
type SyntheticSource struct {
	config Config
	logger *zap.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ repositories.AudioSource = (*SyntheticSource)(nil)

func NewSyntheticSource(config Config, logger *zap.Logger) *SyntheticSource {
	return &SyntheticSource{
		config: config,
		logger: logger,
	}
}

func (s *SyntheticSource) Start(sink repositories.BlockSink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return nil
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	samples := audio.BlockSamples(s.config.SampleRate, s.config.BlockDuration)
	go s.run(sink, samples, s.stop, s.done)

	s.logger.Info("Synthetic audio source started", zap.Duration("block", s.config.BlockDuration))
	return nil
}

func (s *SyntheticSource) run(sink repositories.BlockSink, samples int, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.BlockDuration)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			sink.Offer(entities.AudioBlock{CapturedAt: now, Samples: make([]int16, samples)})
		}
	}
}

// Stop halts the ticker goroutine and waits for it to exit
func (s *SyntheticSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == nil {
		return nil
	}
	close(s.stop)
	<-s.done
	s.stop = nil
	s.done = nil
	return nil
}
