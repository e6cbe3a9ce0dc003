// Package session implements the Session Registry: lifecycle, inactivity
// timeout, and termination of kiosk sessions, plus the Remaining-Time
// Broadcaster that ticks active sessions at 1 Hz.
package session

import (
	"sync"
	"time"

	"github.com/omkarlalla-code/kiosk-project/internal/convo"
)

// State is a Session's lifecycle state.
type State string

const (
	StateActive State = "active"
	StateEnded  State = "ended"
)

// EndReason tags why a Session transitioned to ended.
type EndReason string

const (
	ReasonNone               EndReason = ""
	ReasonManual             EndReason = "manual"
	ReasonTimeout            EndReason = "timeout"
	ReasonDurationExpired    EndReason = "duration_expired"
	ReasonOperatorTerminated EndReason = "operator_terminated"
)

// Session is identified by a server-minted opaque id. Mutated only by the
// Conversation Pipeline (refreshes LastActivity) and the Registry (marks
// ended); every other field is set once at creation.
type Session struct {
	mu sync.Mutex

	ID           string
	KioskID      string
	RoomID       string
	CreatedAt    time.Time
	DurationS    int64
	LastActivity time.Time
	State        State
	EndReason    EndReason

	history *convo.History

	idleTimer     Timer
	durationTimer Timer
	endedAt       time.Time
}

// Snapshot is the immutable, lock-free view returned by lookups, safe to
// hand to callers outside the per-session lock.
type Snapshot struct {
	ID           string
	KioskID      string
	RoomID       string
	CreatedAt    time.Time
	DurationS    int64
	LastActivity time.Time
	State        State
	EndReason    EndReason
	RemainingS   int64
}

func (s *Session) snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:           s.ID,
		KioskID:      s.KioskID,
		RoomID:       s.RoomID,
		CreatedAt:    s.CreatedAt,
		DurationS:    s.DurationS,
		LastActivity: s.LastActivity,
		State:        s.State,
		EndReason:    s.EndReason,
		RemainingS:   remainingSeconds(s.CreatedAt, s.DurationS, now),
	}
}

func remainingSeconds(createdAt time.Time, durationS int64, now time.Time) int64 {
	elapsed := int64(now.Sub(createdAt).Seconds())
	remaining := durationS - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// History returns the session's conversation history. Callers must only
// invoke this while holding the token returned by the pipeline's per-session
// serialization (see internal/pipeline), since History itself is not
// independently synchronized against concurrent turns.
func (s *Session) History() *convo.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}
