package tts

import (
	"context"
	"sync/atomic"
)

// MockTier is a test double implementing Service, used to exercise cache
// coalescing and tiered fallback without network calls.
type MockTier struct {
	name     string
	fail     bool
	calls    int64
	artifact Artifact
}

// NewMockTier returns a MockTier named name that either always succeeds
// with artifact or always fails, depending on fail.
func NewMockTier(name string, fail bool, artifact Artifact) *MockTier {
	return &MockTier{name: name, fail: fail, artifact: artifact}
}

// Name implements Service.
func (m *MockTier) Name() string { return m.name }

// Calls reports how many times Synthesize has been invoked.
func (m *MockTier) Calls() int64 { return atomic.LoadInt64(&m.calls) }

// Synthesize implements Service.
func (m *MockTier) Synthesize(_ context.Context, text string) (Artifact, error) {
	atomic.AddInt64(&m.calls, 1)
	if m.fail {
		return Artifact{}, &SynthesisError{Tier: m.name, Cause: ErrServiceUnavailable, Retryable: true}
	}
	if text == "" {
		return Artifact{}, ErrEmptyText
	}
	a := m.artifact
	a.Tier = m.name
	return a, nil
}
