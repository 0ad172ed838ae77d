package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain"
	"github.com/satriahrh/moodcast/domain/entities"
)

// EffectHandler applies a mood change to one output
type EffectHandler interface {
	Name() string
	// Apply makes event.To visible on the output. Applying the mood that is
	// already in effect must be harmless.
	Apply(ctx context.Context, event entities.MoodTransitionEvent, profile entities.MoodProfile) error
}

// HandlerResult is the outcome of one handler for one event
type HandlerResult struct {
	Handler  string        `json:"handler"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// DispatchReport collects the results of a dispatch
type DispatchReport struct {
	Event   entities.MoodTransitionEvent
	Results []HandlerResult
}

// Failed returns the names of the handlers that returned an error
func (r DispatchReport) Failed() []string {
	var names []string
	for _, res := range r.Results {
		if res.Err != nil {
			names = append(names, res.Handler)
		}
	}
	return names
}

// EffectDispatcher fans a transition out to every registered handler.
// Handlers run concurrently, each under its own timeout. A failure in one
// handler never blocks or rolls back the others; failed handlers are
// remembered and retried by Reconcile.
type EffectDispatcher struct {
	table    *entities.MoodTable
	handlers []EffectHandler
	timeout  time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	last    entities.MoodTransitionEvent
	pending map[string]bool
}

// NewEffectDispatcher creates a dispatcher. Handlers are applied in the
// order given when reported.
func NewEffectDispatcher(table *entities.MoodTable, timeout time.Duration, logger *zap.Logger, handlers ...EffectHandler) *EffectDispatcher {
	return &EffectDispatcher{
		table:    table,
		handlers: handlers,
		timeout:  timeout,
		logger:   logger,
		pending:  make(map[string]bool),
	}
}

// Handlers returns the registered handler names
func (d *EffectDispatcher) Handlers() []string {
	names := make([]string, len(d.handlers))
	for i, h := range d.handlers {
		names[i] = h.Name()
	}
	return names
}

// Dispatch applies event to every handler and waits for all of them
func (d *EffectDispatcher) Dispatch(ctx context.Context, event entities.MoodTransitionEvent) DispatchReport {
	d.mu.Lock()
	d.last = event
	d.pending = make(map[string]bool)
	d.mu.Unlock()

	report := d.run(ctx, event, d.handlers)

	d.logger.Info("Mood dispatched",
		zap.String("eventID", event.ID),
		zap.String("from", event.From.String()),
		zap.String("to", event.To.String()),
		zap.Strings("failed", report.Failed()))
	return report
}

// Reconcile re-applies the last event to the handlers that failed on it.
// It returns false when nothing was pending.
func (d *EffectDispatcher) Reconcile(ctx context.Context) (DispatchReport, bool) {
	d.mu.Lock()
	if len(d.pending) == 0 {
		d.mu.Unlock()
		return DispatchReport{}, false
	}
	event := d.last
	var retry []EffectHandler
	for _, h := range d.handlers {
		if d.pending[h.Name()] {
			retry = append(retry, h)
		}
	}
	d.mu.Unlock()

	report := d.run(ctx, event, retry)

	d.logger.Info("Effects reconciled",
		zap.String("eventID", event.ID),
		zap.String("mood", event.To.String()),
		zap.Int("retried", len(retry)),
		zap.Strings("stillFailing", report.Failed()))
	return report, true
}

// Pending returns the sorted names of handlers awaiting a retry
func (d *EffectDispatcher) Pending() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.pending))
	for name := range d.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *EffectDispatcher) run(ctx context.Context, event entities.MoodTransitionEvent, handlers []EffectHandler) DispatchReport {
	report := DispatchReport{
		Event:   event,
		Results: make([]HandlerResult, len(handlers)),
	}

	profile, ok := d.table.Profile(event.To)
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrMissingProfile, event.To)
		for i, h := range handlers {
			report.Results[i] = HandlerResult{Handler: h.Name(), Err: err}
		}
		d.record(report)
		return report
	}

	var wg sync.WaitGroup
	for i, h := range handlers {
		wg.Add(1)
		go func(i int, h EffectHandler) {
			defer wg.Done()
			report.Results[i] = d.apply(ctx, h, event, profile)
		}(i, h)
	}
	wg.Wait()

	d.record(report)
	return report
}

func (d *EffectDispatcher) apply(ctx context.Context, h EffectHandler, event entities.MoodTransitionEvent, profile entities.MoodProfile) (res HandlerResult) {
	res.Handler = h.Name()
	start := time.Now()

	hctx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		res.Duration = time.Since(start)
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("effect %s panicked: %v", res.Handler, r)
		}
		if res.Err != nil {
			d.logger.Error("Effect failed",
				zap.String("handler", res.Handler),
				zap.String("mood", event.To.String()),
				zap.Duration("duration", res.Duration),
				zap.Error(res.Err))
		}
	}()

	res.Err = h.Apply(hctx, event, profile)
	return res
}

func (d *EffectDispatcher) record(report DispatchReport) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// a newer event supersedes whatever was pending for this one
	if report.Event.ID != d.last.ID {
		return
	}
	for _, res := range report.Results {
		if res.Err != nil {
			d.pending[res.Handler] = true
		} else {
			delete(d.pending, res.Handler)
		}
	}
}
