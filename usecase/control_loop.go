package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
	"github.com/satriahrh/moodcast/domain/repositories"
	"github.com/satriahrh/moodcast/internal/audio"
)

// LoopState is the lifecycle of the control loop itself
type LoopState int32

const (
	LoopIdle LoopState = iota
	LoopRunning
	LoopStopping
	LoopStopped
)

func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "idle"
	case LoopRunning:
		return "running"
	case LoopStopping:
		return "stopping"
	case LoopStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrLoopStarted is returned when Run is called more than once
var ErrLoopStarted = errors.New("control loop already started")

// LoopConfig holds the timing knobs of the loop
type LoopConfig struct {
	Period            time.Duration
	TranscribeTimeout time.Duration
	SampleRate        int
	PrimeEffects      bool
	SkipSilence       bool
}

// LoopDeps are the collaborators of the loop. Player and Sessions are
// optional.
type LoopDeps struct {
	Source     repositories.AudioSource
	Queue      *audio.BlockQueue
	Assembler  *audio.ChunkAssembler
	STT        repositories.SpeechToText
	Classifier *MoodClassifier
	Machine    *MoodStateMachine
	Dispatcher *EffectDispatcher
	Player     repositories.MusicPlayer
	Sessions   repositories.SessionRepository
	Session    *entities.Session
}

// LoopStatus is a point-in-time copy of the loop counters
type LoopStatus struct {
	State             string             `json:"state"`
	Mood              entities.MoodLabel `json:"mood"`
	SessionID         string             `json:"session_id,omitempty"`
	StreamID          string             `json:"stream_id,omitempty"`
	Cycles            uint64             `json:"cycles"`
	Transitions       uint64             `json:"transitions"`
	TransientFailures uint64             `json:"transient_failures"`
	SilentChunks      uint64             `json:"silent_chunks"`
	LastText          string             `json:"last_text"`
	LastCycleAt       time.Time          `json:"last_cycle_at"`
	LastCycleDuration time.Duration      `json:"last_cycle_duration"`
	PendingEffects    []string           `json:"pending_effects"`
	Queue             audio.QueueStats   `json:"queue"`
}

// ControlLoop drives capture → chunk → transcribe → classify → transition →
// dispatch at a fixed period until its context is cancelled or a fatal
// transcription error occurs.
type ControlLoop struct {
	cfg    LoopConfig
	deps   LoopDeps
	logger *zap.Logger

	started atomic.Bool
	state   atomic.Int32

	mu     sync.RWMutex
	status LoopStatus
}

// NewControlLoop creates an idle loop
func NewControlLoop(cfg LoopConfig, deps LoopDeps, logger *zap.Logger) *ControlLoop {
	l := &ControlLoop{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
	l.status.Mood = deps.Machine.Current()
	if deps.Session != nil {
		l.status.SessionID = deps.Session.ID
		l.status.StreamID = deps.Session.Stream.ID
	}
	return l
}

// State returns the current lifecycle state
func (l *ControlLoop) State() LoopState {
	return LoopState(l.state.Load())
}

// Status returns a snapshot safe to read from any goroutine
func (l *ControlLoop) Status() LoopStatus {
	l.mu.RLock()
	st := l.status
	st.PendingEffects = append([]string(nil), l.status.PendingEffects...)
	l.mu.RUnlock()

	st.State = l.State().String()
	st.Queue = l.deps.Queue.Stats()
	return st
}

// Run blocks until ctx is cancelled (nil error) or a fatal error stops the
// loop. Capture and playback are released on every exit path.
func (l *ControlLoop) Run(ctx context.Context) (err error) {
	if !l.started.CompareAndSwap(false, true) {
		return ErrLoopStarted
	}

	// the loop only enters Running once the device is held
	if err := l.deps.Source.Start(l.deps.Queue); err != nil {
		l.state.Store(int32(LoopStopped))
		l.stopPlayer()
		return err
	}
	l.state.Store(int32(LoopRunning))

	l.startSession(ctx)

	defer func() {
		reason := "cancelled"
		if err != nil {
			reason = err.Error()
		}
		l.teardown(reason, err != nil)
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("control loop panic: %v", r)
			l.logger.Error("Control loop panicked", zap.Any("panic", r))
		}
	}()

	l.logger.Info("Control loop running",
		zap.Duration("period", l.cfg.Period),
		zap.Int("pullsPerChunk", l.deps.Assembler.Pulls()),
		zap.String("overflowPolicy", string(l.deps.Queue.Policy())),
		zap.String("mood", l.deps.Machine.Current().String()))

	if l.cfg.PrimeEffects {
		event := l.deps.Machine.Prime()
		l.deps.Dispatcher.Dispatch(context.WithoutCancel(ctx), event)
		l.syncPending()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		start := time.Now()
		if err := l.cycle(ctx); err != nil {
			return err
		}
		elapsed := time.Since(start)

		l.mu.Lock()
		l.status.LastCycleAt = start
		l.status.LastCycleDuration = elapsed
		l.mu.Unlock()

		wait := l.cfg.Period - elapsed
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// cycle runs one iteration. It only returns an error when the loop must stop.
func (l *ControlLoop) cycle(ctx context.Context) error {
	chunk, err := l.deps.Assembler.Assemble(ctx)
	if err != nil {
		// cancelled while waiting for audio
		return nil
	}
	l.bump(func(s *LoopStatus) { s.Cycles++ })

	// in-flight work is bounded by its own timeout rather than cut short
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.TranscribeTimeout)
	text, err := l.deps.STT.Transcribe(tctx, chunk, l.cfg.SampleRate)
	cancel()
	if ctx.Err() != nil {
		// cancelled during transcription, the result is discarded
		return nil
	}
	if err != nil {
		if domain.IsFatal(err) {
			l.logger.Error("Transcription failed fatally", zap.Error(err))
			return err
		}
		l.bump(func(s *LoopStatus) { s.TransientFailures++ })
		l.logger.Warn("Transcription failed, skipping cycle",
			zap.Duration("chunk", chunk.Duration()),
			zap.Error(err))
		return nil
	}

	text = strings.ToLower(strings.TrimSpace(text))
	l.bump(func(s *LoopStatus) { s.LastText = text })

	if text == "" {
		l.bump(func(s *LoopStatus) { s.SilentChunks++ })
		if l.cfg.SkipSilence {
			l.logger.Debug("No speech detected", zap.Duration("chunk", chunk.Duration()))
			l.reconcile(ctx)
			return nil
		}
	}

	label, keyword := l.deps.Classifier.Match(text)
	l.logger.Debug("Chunk classified",
		zap.String("text", text),
		zap.String("mood", label.String()),
		zap.String("keyword", keyword))

	event, changed := l.deps.Machine.Observe(label, text)
	if !changed {
		l.reconcile(ctx)
		return nil
	}

	l.logger.Info("Mood changed",
		zap.String("from", event.From.String()),
		zap.String("to", event.To.String()),
		zap.String("text", text))

	report := l.deps.Dispatcher.Dispatch(context.WithoutCancel(ctx), event)
	l.bump(func(s *LoopStatus) {
		s.Transitions++
		s.Mood = event.To
	})
	l.syncPending()
	l.recordTransition(ctx, event, report.Failed())
	return nil
}

func (l *ControlLoop) reconcile(ctx context.Context) {
	if _, ok := l.deps.Dispatcher.Reconcile(context.WithoutCancel(ctx)); ok {
		l.syncPending()
	}
}

func (l *ControlLoop) syncPending() {
	pending := l.deps.Dispatcher.Pending()
	l.bump(func(s *LoopStatus) { s.PendingEffects = pending })
}

func (l *ControlLoop) bump(fn func(s *LoopStatus)) {
	l.mu.Lock()
	fn(&l.status)
	l.mu.Unlock()
}

func (l *ControlLoop) startSession(ctx context.Context) {
	if l.deps.Sessions == nil || l.deps.Session == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := l.deps.Sessions.Create(sctx, l.deps.Session); err != nil {
		l.logger.Error("Failed to store session", zap.String("sessionID", l.deps.Session.ID), zap.Error(err))
	}
}

func (l *ControlLoop) recordTransition(ctx context.Context, event entities.MoodTransitionEvent, failed []string) {
	if l.deps.Session == nil {
		return
	}
	entry := l.deps.Session.Record(event, failed)
	if l.deps.Sessions == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := l.deps.Sessions.AppendTimeline(sctx, l.deps.Session.ID, entry); err != nil {
		l.logger.Error("Failed to record transition",
			zap.String("sessionID", l.deps.Session.ID),
			zap.String("eventID", event.ID),
			zap.Error(err))
	}
}

func (l *ControlLoop) stopPlayer() {
	if l.deps.Player == nil {
		return
	}
	if err := l.deps.Player.Stop(); err != nil {
		l.logger.Error("Failed to stop music", zap.Error(err))
	}
}

func (l *ControlLoop) teardown(reason string, failed bool) {
	l.state.Store(int32(LoopStopping))
	l.logger.Info("Control loop stopping", zap.String("reason", reason))

	if err := l.deps.Source.Stop(); err != nil {
		l.logger.Error("Failed to release audio source", zap.Error(err))
	}
	l.stopPlayer()
	drained := l.deps.Queue.Drain()

	if l.deps.Session != nil {
		status := entities.SessionStatusStopped
		if failed {
			status = entities.SessionStatusFailed
		}
		l.deps.Session.End(status, reason)
		if l.deps.Sessions != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := l.deps.Sessions.Finish(ctx, l.deps.Session); err != nil {
				l.logger.Error("Failed to finish session", zap.Error(err))
			}
			cancel()
		}
	}

	l.state.Store(int32(LoopStopped))
	st := l.Status()
	l.logger.Info("Control loop stopped",
		zap.Uint64("cycles", st.Cycles),
		zap.Uint64("transitions", st.Transitions),
		zap.Uint64("overruns", st.Queue.Overruns),
		zap.Uint64("dropped", st.Queue.Dropped),
		zap.Int("drained", drained))
}
