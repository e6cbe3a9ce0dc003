package datachannel

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omkarlalla-code/kiosk-project/internal/logger"
	"github.com/omkarlalla-code/kiosk-project/internal/metrics"
)

// ErrRoomGone is returned by Send/Schedule when room_id names a room with
// no connected clients. Per spec §4.3 this is non-fatal: scheduled events
// that outlive their session are silently dropped and logged at debug.
var ErrRoomGone = errors.New("datachannel: room gone")

// room holds every connection currently joined to a (room_id, publisher)
// stream, plus a mutex that serializes writes so messages to the same room
// are strictly FIFO even when dispatched from concurrent goroutines (timer
// fires racing with an immediate send).
type room struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newRoom() *room { return &room{conns: make(map[*websocket.Conn]struct{})} }

func (r *room) add(conn *websocket.Conn) {
	r.mu.Lock()
	r.conns[conn] = struct{}{}
	r.mu.Unlock()
}

func (r *room) remove(conn *websocket.Conn) {
	r.mu.Lock()
	delete(r.conns, conn)
	r.mu.Unlock()
}

func (r *room) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns) == 0
}

// broadcast writes msg to every connection in the room. The room's mutex
// serializes this against concurrent broadcasts so two messages for the
// same room are always written in call order, giving per-room FIFO
// ordering (Property 8).
func (r *room) broadcast(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for conn := range r.conns {
		if err := conn.WriteJSON(msg); err != nil {
			logger.Warn("datachannel: write failed, dropping connection", "error", err)
			delete(r.conns, conn)
			go conn.Close() //nolint:errcheck // best-effort cleanup of an already-broken socket
		}
	}
}

// Router fans out Control Messages to every client in a room over a
// reliable, ordered WebSocket stream standing in for the SFU's datachannel
// (the SFU itself is an external collaborator per spec §1).
type Router struct {
	mu    sync.RWMutex
	rooms map[string]*room

	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{
		rooms:  make(map[string]*room),
		timers: make(map[string]*time.Timer),
	}
}

// Join registers conn as a participant of room_id. The caller owns the read
// loop (ping/keepalive handling); Router only ever writes.
func (rt *Router) Join(roomID string, conn *websocket.Conn) {
	rt.mu.Lock()
	r, ok := rt.rooms[roomID]
	if !ok {
		r = newRoom()
		rt.rooms[roomID] = r
	}
	rt.mu.Unlock()
	r.add(conn)
}

// Leave removes conn from room_id. If the room becomes empty it is pruned
// so a later Send correctly reports ErrRoomGone instead of a silent no-op.
func (rt *Router) Leave(roomID string, conn *websocket.Conn) {
	rt.mu.Lock()
	r, ok := rt.rooms[roomID]
	rt.mu.Unlock()
	if !ok {
		return
	}
	r.remove(conn)
	if r.empty() {
		rt.mu.Lock()
		if cur, ok := rt.rooms[roomID]; ok && cur == r {
			delete(rt.rooms, roomID)
		}
		rt.mu.Unlock()
	}
}

// Send delivers message to every participant of room_id immediately.
// Returns ErrRoomGone if the room has no connected clients.
func (rt *Router) Send(_ context.Context, roomID string, message Message) error {
	rt.mu.RLock()
	r, ok := rt.rooms[roomID]
	rt.mu.RUnlock()
	if !ok {
		metrics.RecordDatachannelMessage(string(message.Tag), "room_gone")
		return ErrRoomGone
	}
	r.broadcast(message)
	metrics.RecordDatachannelMessage(string(message.Tag), "sent")
	return nil
}

// Schedule arms a server-side timer that fires Send(roomID, message) after
// delay, measured from the call; a delay of zero or less sends right away.
// A room_gone result at fire time is non-fatal: it is logged at debug and
// the event is dropped, per spec §4.3.
func (rt *Router) Schedule(ctx context.Context, roomID string, message Message, delay time.Duration) {
	rt.timersMu.Lock()
	defer rt.timersMu.Unlock()

	// Pending timers for the same room, tag and id each get their own key so
	// CancelRoom can still reach every one of them.
	key := roomID + ":" + string(message.Tag) + ":" + message.ID
	for _, taken := rt.timers[key]; taken; _, taken = rt.timers[key] {
		key += "+"
	}

	rt.timers[key] = time.AfterFunc(delay, func() {
		if err := rt.Send(ctx, roomID, message); err != nil {
			logger.Debug("datachannel: scheduled message dropped, room gone",
				"room_id", roomID, "tag", message.Tag)
		}
		rt.timersMu.Lock()
		delete(rt.timers, key)
		rt.timersMu.Unlock()
	})
}

// CancelRoom stops every pending scheduled timer for roomID, removes them
// from the timers map, and drops the room entry, used when a session ends
// before all its timeline events have fired.
func (rt *Router) CancelRoom(roomID string) {
	prefix := roomID + ":"
	rt.timersMu.Lock()
	for key, timer := range rt.timers {
		if strings.HasPrefix(key, prefix) {
			timer.Stop()
			delete(rt.timers, key)
		}
	}
	rt.timersMu.Unlock()

	rt.mu.Lock()
	delete(rt.rooms, roomID)
	rt.mu.Unlock()
}

// EncodeForTest marshals a Message the same way the wire writer would, for
// tests asserting on exact JSON shape.
func EncodeForTest(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// RoomReleaser adapts *Router to session.RoomReleaser, cancelling a room's
// pending scheduled events when its session ends.
type RoomReleaser struct {
	router *Router
}

// NewRoomReleaser returns a session.RoomReleaser backed by router.
func NewRoomReleaser(router *Router) *RoomReleaser {
	return &RoomReleaser{router: router}
}

// ReleaseRoom implements session.RoomReleaser.
func (rr *RoomReleaser) ReleaseRoom(roomID string) {
	rr.router.CancelRoom(roomID)
}
