package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
)

func testTable() *entities.MoodTable {
	rules := []entities.MoodRule{
		{Label: "excited", Keywords: []string{"yes", "wow", "amazing", "incredible", "goal", "score"}},
		{Label: "sad", Keywords: []string{"oh no", "damn", "miss"}},
		{Label: "boring", Keywords: []string{"slow", "nothing", "boring", "meh"}},
		{Label: "terrible", Keywords: []string{"unfortunate", "terrible", "awful"}},
	}
	profiles := map[entities.MoodLabel]entities.MoodProfile{
		"excited":  {Prompt: "explosive energy", NegativePrompt: "calm", NumInferenceSteps: 45},
		"sad":      {Prompt: "muted grayscale", NegativePrompt: "bright", NumInferenceSteps: 45},
		"boring":   {Prompt: "light brown", NegativePrompt: "vibrant", NumInferenceSteps: 35},
		"terrible": {Prompt: "dark, dreary", NegativePrompt: "cheerful", NumInferenceSteps: 30},
		"neutral":  {Prompt: "clean broadcast style", NegativePrompt: "distorted", NumInferenceSteps: 40},
	}
	return entities.NewMoodTable(rules, profiles, "neutral")
}

// recordingHandler is an EffectHandler that records every mood it sees
type recordingHandler struct {
	name string

	mu      sync.Mutex
	applied []entities.MoodTransitionEvent
	failN   int // fail this many calls before succeeding
	panics  bool
	onApply func(entities.MoodTransitionEvent)
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Apply(_ context.Context, event entities.MoodTransitionEvent, _ entities.MoodProfile) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	h.applied = append(h.applied, event)
	if h.onApply != nil {
		h.onApply(event)
	}
	if h.failN > 0 {
		h.failN--
		return errors.New("handler unavailable")
	}
	return nil
}

func (h *recordingHandler) calls() []entities.MoodTransitionEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]entities.MoodTransitionEvent(nil), h.applied...)
}

// fakeSource delivers a fixed number of blocks when started
type fakeSource struct {
	blocks   int
	startErr error

	mu      sync.Mutex
	started bool
	stops   int
}

var _ repositories.AudioSource = (*fakeSource)(nil)

func (s *fakeSource) Start(sink repositories.BlockSink) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	for i := 0; i < s.blocks; i++ {
		sink.Offer(entities.AudioBlock{Samples: make([]int16, 8)})
	}
	return nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *fakeSource) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// scriptedSTT returns one scripted result per call and runs onDone once the
// script is exhausted
type scriptedSTT struct {
	texts  []string
	errs   []error
	onDone func()

	mu    sync.Mutex
	calls int
}

var _ repositories.SpeechToText = (*scriptedSTT)(nil)

func (s *scriptedSTT) Transcribe(_ context.Context, _ entities.AudioChunk, _ int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i == len(s.texts)-1 && s.onDone != nil {
		defer s.onDone()
	}
	if i >= len(s.texts) {
		return "", nil
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.texts[i], err
}

func (s *scriptedSTT) Close() error { return nil }

type fakePlayer struct {
	mu      sync.Mutex
	current entities.MoodLabel
	stops   int
}

var _ repositories.MusicPlayer = (*fakePlayer)(nil)

func (p *fakePlayer) Play(_ context.Context, mood entities.MoodLabel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = mood
	return nil
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = ""
	p.stops++
	return nil
}

func (p *fakePlayer) Current() entities.MoodLabel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

type fakeRemote struct {
	mu      sync.Mutex
	updates []entities.MoodProfile
	err     error
}

var _ repositories.RemoteStreamClient = (*fakeRemote)(nil)

func (r *fakeRemote) CreateSession(context.Context) (entities.RemoteStream, error) {
	return entities.RemoteStream{ID: "str_test"}, nil
}

func (r *fakeRemote) UpdateStyle(_ context.Context, _ string, profile entities.MoodProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.updates = append(r.updates, profile)
	return nil
}

type fakeOverlay struct {
	labels []string
	images []string
}

var _ repositories.OverlayWriter = (*fakeOverlay)(nil)

func (o *fakeOverlay) WriteLabel(text string) error {
	o.labels = append(o.labels, text)
	return nil
}

func (o *fakeOverlay) WriteImage(path string) error {
	o.images = append(o.images, path)
	return nil
}
