package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/moodcast/domain/entities"
)

// MoodStateMachine owns the current mood. It is the only writer of that
// value and is driven exclusively from the control loop goroutine, so it
// carries no locking.
type MoodStateMachine struct {
	current entities.MoodLabel
	now     func() time.Time
}

// NewMoodStateMachine starts in the given (default) mood
func NewMoodStateMachine(initial entities.MoodLabel) *MoodStateMachine {
	return &MoodStateMachine{
		current: initial,
		now:     time.Now,
	}
}

// Current returns the mood currently held
func (m *MoodStateMachine) Current() entities.MoodLabel {
	return m.current
}

// Observe feeds one classification. A label equal to the current mood is
// absorbed; a different label becomes current and an event is returned.
func (m *MoodStateMachine) Observe(label entities.MoodLabel, text string) (entities.MoodTransitionEvent, bool) {
	if label == m.current {
		return entities.MoodTransitionEvent{}, false
	}

	event := entities.MoodTransitionEvent{
		ID:             uuid.New().String(),
		From:           m.current,
		To:             label,
		TriggeringText: text,
		Timestamp:      m.now(),
	}
	m.current = label
	return event, true
}

// Prime returns the event used to apply the current mood once at startup.
// It does not change state.
func (m *MoodStateMachine) Prime() entities.MoodTransitionEvent {
	return entities.MoodTransitionEvent{
		ID:        uuid.New().String(),
		To:        m.current,
		Timestamp: m.now(),
	}
}
