package llm

import (
	"context"
	"sync"

	"github.com/omkarlalla-code/kiosk-project/internal/convo"
)

// MockAdapter is a test double for Adapter that returns a scripted raw
// text reply (or error) for each call, recording the messages it was sent.
type MockAdapter struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	call     int
	Received []string
}

// NewMockAdapter returns a MockAdapter that yields replies in order; if
// fewer errs are given than replies, missing slots are treated as nil.
func NewMockAdapter(replies ...string) *MockAdapter {
	return &MockAdapter{replies: replies}
}

// WithError arranges for the call at index idx (0-based) to fail with err
// instead of returning a reply.
func (m *MockAdapter) WithError(idx int, err error) *MockAdapter {
	for len(m.errs) <= idx {
		m.errs = append(m.errs, nil)
	}
	m.errs[idx] = err
	return m
}

// Send implements Adapter.
func (m *MockAdapter) Send(_ context.Context, _ string, history *convo.History) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := history.Messages()
	if len(msgs) > 0 {
		m.Received = append(m.Received, msgs[len(msgs)-1].Text)
	}

	idx := m.call
	m.call++
	if idx < len(m.errs) && m.errs[idx] != nil {
		return "", m.errs[idx]
	}
	if idx < len(m.replies) {
		return m.replies[idx], nil
	}
	if len(m.replies) > 0 {
		return m.replies[len(m.replies)-1], nil
	}
	return "", nil
}
