package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyKeywordTable is returned when no rule carries a keyword
	ErrEmptyKeywordTable = errors.New("keyword table is empty")
	// ErrMissingProfile is returned when a producible label has no profile
	ErrMissingProfile = errors.New("mood profile missing")
	// ErrUnknownLabel is returned for labels outside the configured set
	ErrUnknownLabel = errors.New("unknown mood label")
)

// DeviceError reports that the capture device could not be acquired
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// ConfigError reports an invalid startup configuration
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransientTranscriptionError is recoverable by trying again next cycle
type TransientTranscriptionError struct {
	Backend string
	Err     error
}

func (e *TransientTranscriptionError) Error() string {
	return fmt.Sprintf("transcription (%s) failed transiently: %v", e.Backend, e.Err)
}

func (e *TransientTranscriptionError) Unwrap() error { return e.Err }

// FatalTranscriptionError cannot be recovered inside the loop
type FatalTranscriptionError struct {
	Backend string
	Err     error
}

func (e *FatalTranscriptionError) Error() string {
	return fmt.Sprintf("transcription (%s) failed fatally: %v", e.Backend, e.Err)
}

func (e *FatalTranscriptionError) Unwrap() error { return e.Err }

// RemoteUpdateError reports a failed call to the remote rendering service
type RemoteUpdateError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteUpdateError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteUpdateError) Unwrap() error { return e.Err }

// IsFatal reports whether a transcription error must stop the loop
func IsFatal(err error) bool {
	var fatal *FatalTranscriptionError
	return errors.As(err, &fatal)
}

// IsTransient reports whether a transcription error only skips the cycle.
// Per-call deadlines count as transient; unclassified errors do too.
func IsTransient(err error) bool {
	if err == nil || IsFatal(err) {
		return false
	}
	var transient *TransientTranscriptionError
	if errors.As(err, &transient) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, context.Canceled)
}
