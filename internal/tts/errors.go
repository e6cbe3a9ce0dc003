package tts

import "errors"

// Sentinel errors surfaced by the cache and synthesis tiers.
var (
	// ErrEmptyText is returned when attempting to synthesize empty text.
	ErrEmptyText = errors.New("tts: text cannot be empty")

	// ErrAllTiersFailed is returned when every fallback tier failed.
	ErrAllTiersFailed = errors.New("tts: all synthesis tiers failed")

	// ErrServiceUnavailable is returned by a tier whose upstream is down.
	ErrServiceUnavailable = errors.New("tts: service unavailable")
)

// SynthesisError carries tier-specific detail about a failed attempt.
type SynthesisError struct {
	Tier      string
	Cause     error
	Retryable bool
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	return "tts: " + e.Tier + ": " + e.Cause.Error()
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Cause
}
