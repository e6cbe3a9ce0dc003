package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/omkarlalla-code/kiosk-project/internal/convo"
	"github.com/omkarlalla-code/kiosk-project/internal/logger"
	"github.com/omkarlalla-code/kiosk-project/internal/metrics"
)

// ErrNotFound is returned by Lookup/End for an unknown session id.
var ErrNotFound = errors.New("session: not found")

// RoomReleaser releases a session's room at the transport layer on end.
// Failure is logged but never blocks the state transition, per spec §4.1.
type RoomReleaser interface {
	ReleaseRoom(roomID string)
}

// noopReleaser is used when no transport-level release is configured.
type noopReleaser struct{}

func (noopReleaser) ReleaseRoom(string) {}

// Tick is one sample emitted by the Remaining-Time Broadcaster.
type Tick struct {
	SessionID  string
	RemainingS int64
}

// Registry is the process-wide Session Registry. All exported methods are
// safe for concurrent use.
type Registry struct {
	clock         Clock
	minter        TokenMinter
	releaser      RoomReleaser
	personaPrompt string

	idleTimeout   time.Duration
	duration      time.Duration
	sweepInterval time.Duration
	sweepGrace    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	tickMu   sync.Mutex
	tickSubs map[chan Tick]struct{}

	closed atomic.Bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithRoomReleaser sets the transport-level room releaser.
func WithRoomReleaser(r RoomReleaser) Option {
	return func(reg *Registry) { reg.releaser = r }
}

// WithClock substitutes the Registry's Clock, for deterministic tests.
func WithClock(c Clock) Option {
	return func(reg *Registry) { reg.clock = c }
}

// WithSweepGrace overrides the default one-hour grace period after which an
// ended session is pruned from memory.
func WithSweepGrace(d time.Duration) Option {
	return func(reg *Registry) { reg.sweepGrace = d }
}

// NewRegistry constructs a Registry. idleTimeout and duration are the
// session_idle_timeout_ms/session_duration_s config values; sweepInterval
// is session_sweep_interval_ms.
func NewRegistry(idleTimeout, duration, sweepInterval time.Duration, minter TokenMinter, personaPrompt string, opts ...Option) *Registry {
	reg := &Registry{
		clock:         RealClock,
		minter:        minter,
		releaser:      noopReleaser{},
		personaPrompt: personaPrompt,
		idleTimeout:   idleTimeout,
		duration:      duration,
		sweepInterval: sweepInterval,
		sweepGrace:    time.Hour,
		sessions:      make(map[string]*Session),
		tickSubs:      make(map[chan Tick]struct{}),
	}
	for _, opt := range opts {
		opt(reg)
	}
	reg.armTicker()
	reg.armSweeper()
	return reg
}

// Create mints a new active Session for kioskID and returns its id, room
// id, capability token, and nominal duration in seconds.
func (reg *Registry) Create(kioskID string) (sessionID, roomID, token string, durationS int64, err error) {
	sessionID = uuid.NewString()
	roomID = "kiosk-" + sessionID

	durationS = int64(reg.duration.Seconds())
	token, err = reg.minter.Mint(sessionID, roomID, reg.duration+reg.idleTimeout)
	if err != nil {
		return "", "", "", 0, err
	}

	now := reg.clock.Now()
	sess := &Session{
		ID:           sessionID,
		KioskID:      kioskID,
		RoomID:       roomID,
		CreatedAt:    now,
		DurationS:    durationS,
		LastActivity: now,
		State:        StateActive,
		history:      convo.NewHistory(reg.personaPrompt),
	}
	sess.idleTimer = reg.clock.AfterFunc(reg.idleTimeout, func() { reg.expire(sessionID, ReasonTimeout) })
	sess.durationTimer = reg.clock.AfterFunc(reg.duration, func() { reg.expire(sessionID, ReasonDurationExpired) })

	reg.mu.Lock()
	reg.sessions[sessionID] = sess
	reg.mu.Unlock()

	metrics.SetActiveSessions(reg.countActive())
	return sessionID, roomID, token, durationS, nil
}

// Refresh resets the inactivity timer for sessionID. No-op if the session
// is not active (including unknown ids), matching spec §4.1.
func (reg *Registry) Refresh(sessionID string) {
	sess := reg.get(sessionID)
	if sess == nil {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.State != StateActive {
		return
	}
	sess.LastActivity = reg.clock.Now()
	if sess.idleTimer != nil {
		sess.idleTimer.Stop()
	}
	sess.idleTimer = reg.clock.AfterFunc(reg.idleTimeout, func() { reg.expire(sessionID, ReasonTimeout) })
}

// End idempotently transitions sessionID to ended with the given reason.
func (reg *Registry) End(sessionID string, reason EndReason) error {
	sess := reg.get(sessionID)
	if sess == nil {
		return ErrNotFound
	}
	reg.endSession(sess, reason)
	return nil
}

func (reg *Registry) expire(sessionID string, reason EndReason) {
	sess := reg.get(sessionID)
	if sess == nil {
		return
	}
	reg.endSession(sess, reason)
}

func (reg *Registry) endSession(sess *Session, reason EndReason) {
	sess.mu.Lock()
	if sess.State != StateActive {
		sess.mu.Unlock()
		return
	}
	sess.State = StateEnded
	sess.EndReason = reason
	sess.endedAt = reg.clock.Now()
	if sess.idleTimer != nil {
		sess.idleTimer.Stop()
	}
	if sess.durationTimer != nil {
		sess.durationTimer.Stop()
	}
	roomID := sess.RoomID
	sess.mu.Unlock()

	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("session: room release panicked", "room_id", roomID, "panic", r)
			}
		}()
		reg.releaser.ReleaseRoom(roomID)
	}()

	metrics.RecordSessionEnded(string(reason))
	metrics.SetActiveSessions(reg.countActive())
}

// Lookup returns a Snapshot of the current state of sessionID.
func (reg *Registry) Lookup(sessionID string) (Snapshot, error) {
	sess := reg.get(sessionID)
	if sess == nil {
		return Snapshot{}, ErrNotFound
	}
	return sess.snapshot(reg.clock.Now()), nil
}

// Session returns the live *Session for sessionID, for use by the
// Conversation Pipeline. Returns nil if unknown.
func (reg *Registry) Session(sessionID string) *Session {
	return reg.get(sessionID)
}

func (reg *Registry) get(sessionID string) *Session {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.sessions[sessionID]
}

func (reg *Registry) countActive() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	n := 0
	for _, s := range reg.sessions {
		s.mu.Lock()
		if s.State == StateActive {
			n++
		}
		s.mu.Unlock()
	}
	return n
}

// ActiveCount returns the number of currently active sessions.
func (reg *Registry) ActiveCount() int { return reg.countActive() }

// TotalCount returns the number of sessions the registry still holds
// (active or ended but not yet swept).
func (reg *Registry) TotalCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.sessions)
}

// SubscribeTicks registers a channel to receive 1 Hz remaining-time ticks
// for every active session. The returned func unsubscribes.
func (reg *Registry) SubscribeTicks() (<-chan Tick, func()) {
	ch := make(chan Tick, 32)
	reg.tickMu.Lock()
	reg.tickSubs[ch] = struct{}{}
	reg.tickMu.Unlock()

	return ch, func() {
		reg.tickMu.Lock()
		delete(reg.tickSubs, ch)
		reg.tickMu.Unlock()
		close(ch)
	}
}

// armTicker is the Remaining-Time Broadcaster: a single shared 1 Hz timer
// scanning all active sessions, rather than a per-session ticker, per
// spec §4.8. It re-arms itself through reg.clock rather than time.NewTicker
// so tests can drive it deterministically the same way they drive the
// idle/duration timers.
func (reg *Registry) armTicker() {
	if reg.closed.Load() {
		return
	}
	reg.clock.AfterFunc(time.Second, func() {
		if reg.closed.Load() {
			return
		}
		reg.publishTicks(reg.clock.Now())
		reg.armTicker()
	})
}

func (reg *Registry) publishTicks(now time.Time) {
	reg.mu.RLock()
	snaps := make([]Tick, 0, len(reg.sessions))
	for _, s := range reg.sessions {
		snap := s.snapshot(now)
		if snap.State != StateActive {
			continue
		}
		snaps = append(snaps, Tick{SessionID: snap.ID, RemainingS: snap.RemainingS})
	}
	reg.mu.RUnlock()

	reg.tickMu.Lock()
	defer reg.tickMu.Unlock()
	for ch := range reg.tickSubs {
		for _, t := range snaps {
			select {
			case ch <- t:
			default:
				logger.Warn("session: tick subscriber slow, dropping tick", "session_id", t.SessionID)
			}
		}
	}
}

// armSweeper prunes sessions whose ended_at is older than sweepGrace,
// re-arming itself through reg.clock like armTicker.
func (reg *Registry) armSweeper() {
	if reg.closed.Load() {
		return
	}
	interval := reg.sweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	reg.clock.AfterFunc(interval, func() {
		if reg.closed.Load() {
			return
		}
		reg.sweep()
		reg.armSweeper()
	})
}

func (reg *Registry) sweep() {
	now := reg.clock.Now()
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for id, s := range reg.sessions {
		s.mu.Lock()
		expired := s.State == StateEnded && !s.endedAt.IsZero() && now.Sub(s.endedAt) > reg.sweepGrace
		s.mu.Unlock()
		if expired {
			delete(reg.sessions, id)
		}
	}
}

// Close stops the ticker and sweeper from re-arming. Intended for test
// cleanup and graceful shutdown.
func (reg *Registry) Close() {
	reg.closed.Store(true)
}
