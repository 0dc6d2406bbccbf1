// Package room implements the Room Registry (spec §4.3): for each match, the
// set of live participant connections, and a totally-ordered broadcast fan-out
// to them.
package room

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arvensis/trivia-arena/internal/metrics"
	"github.com/arvensis/trivia-arena/pkg/http/ws"
)

// Registry maps matchId -> room and tracks which room a given connection
// belongs to, so detach(conn) never needs the caller to know the matchId.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[uuid.UUID]*room
	connRooms map[uuid.UUID]uuid.UUID // connection id -> match id
	queueCap  int
	logger    zerolog.Logger

	onDetach func(matchID, userID uuid.UUID)
}

// NewRegistry builds an empty Registry. queueCap bounds each match's
// outbound event queue (spec's broadcastQueueCap, default 256).
func NewRegistry(queueCap int, logger zerolog.Logger) *Registry {
	return &Registry{
		rooms:     make(map[uuid.UUID]*room),
		connRooms: make(map[uuid.UUID]uuid.UUID),
		queueCap:  queueCap,
		logger:    logger,
	}
}

// OnDetach registers a callback fired whenever a connection is detached,
// including backpressure detaches, so the engine can mark the participant
// as auto-missing subsequent questions.
func (r *Registry) OnDetach(fn func(matchID, userID uuid.UUID)) { r.onDetach = fn }

type room struct {
	matchID uuid.UUID
	mu      sync.RWMutex
	conns   map[uuid.UUID]*ws.Connection // connection id -> connection

	outbound chan outboundItem
	done     chan struct{}
}

// outboundItem is one queued broadcast; exceptUserID, when non-nil, excludes
// a single connection's user from fan-out (e.g. answer:received excludes the
// answering participant, who already got answer:confirmed privately).
type outboundItem struct {
	payload      []byte
	exceptUserID *uuid.UUID
}

// Attach binds a connection to a match's room, starting the room's outbound
// worker if this is the first connection.
func (r *Registry) Attach(matchID uuid.UUID, conn *ws.Connection) {
	r.mu.Lock()
	rm, ok := r.rooms[matchID]
	if !ok {
		rm = &room{
			matchID:  matchID,
			conns:    make(map[uuid.UUID]*ws.Connection),
			outbound: make(chan outboundItem, r.queueCap),
			done:     make(chan struct{}),
		}
		r.rooms[matchID] = rm
		go r.runOutbound(rm)
	}
	r.connRooms[conn.ID] = matchID
	r.mu.Unlock()

	rm.mu.Lock()
	rm.conns[conn.ID] = conn
	rm.mu.Unlock()
}

// Detach removes a connection from whichever room it belongs to. A no-op if
// the connection owns no room.
func (r *Registry) Detach(conn *ws.Connection) {
	r.mu.RLock()
	matchID, ok := r.connRooms[conn.ID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.detachFrom(matchID, conn)
}

func (r *Registry) detachFrom(matchID uuid.UUID, conn *ws.Connection) {
	r.mu.Lock()
	rm, ok := r.rooms[matchID]
	delete(r.connRooms, conn.ID)
	r.mu.Unlock()
	if !ok {
		return
	}

	rm.mu.Lock()
	_, existed := rm.conns[conn.ID]
	delete(rm.conns, conn.ID)
	rm.mu.Unlock()

	if existed && r.onDetach != nil {
		r.onDetach(matchID, conn.UserID)
	}
}

// ActiveCount returns the number of live connections for a match.
func (r *Registry) ActiveCount(matchID uuid.UUID) int {
	r.mu.RLock()
	rm, ok := r.rooms[matchID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.conns)
}

// Broadcast hands an already-serialized event to the match's outbound queue.
// Events are delivered to every surviving connection in the order Broadcast
// is called, satisfying the total-ordering guarantee of spec §4.3. If the
// match has no room yet, the event is dropped.
func (r *Registry) Broadcast(matchID uuid.UUID, payload []byte) {
	r.enqueueOutbound(matchID, outboundItem{payload: payload})
}

// BroadcastExcept behaves like Broadcast but skips the one connection whose
// UserID matches exceptUserID, preserving the same total-ordering guarantee
// for everyone else in the room.
func (r *Registry) BroadcastExcept(matchID, exceptUserID uuid.UUID, payload []byte) {
	r.enqueueOutbound(matchID, outboundItem{payload: payload, exceptUserID: &exceptUserID})
}

func (r *Registry) enqueueOutbound(matchID uuid.UUID, item outboundItem) {
	r.mu.RLock()
	rm, ok := r.rooms[matchID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case rm.outbound <- item:
		metrics.BroadcastQueueDepth.WithLabelValues(matchID.String()).Set(float64(len(rm.outbound)))
	default:
		r.logger.Warn().Str("match_id", matchID.String()).Msg("broadcast queue full, dropping event")
	}
}

// SendTo delivers an event to one participant's connection(s) only, bypassing
// the room's ordered broadcast queue — used for answer:confirmed and
// match:state replies that are inherently per-recipient.
func (r *Registry) SendTo(matchID, userID uuid.UUID, payload []byte) {
	r.mu.RLock()
	rm, ok := r.rooms[matchID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	for _, conn := range rm.conns {
		if conn.UserID == userID {
			if !conn.Enqueue(payload) {
				go r.dropSlowConnection(rm, conn)
			}
		}
	}
}

// CloseRoom tears down a match's room entirely, e.g. once it is FINISHED or
// CANCELED. Connections are detached, not closed — callers decide whether to
// also close the socket. Removing the room from the registry first means no
// further Broadcast/SendTo can enqueue onto it; runOutbound still drains and
// delivers whatever was already queued (e.g. the final match:finished) before
// its goroutine exits, so rm.conns is left untouched here to avoid racing
// that drain against an empty target list.
func (r *Registry) CloseRoom(matchID uuid.UUID) {
	r.mu.Lock()
	rm, ok := r.rooms[matchID]
	if ok {
		delete(r.rooms, matchID)
	}
	for id, mID := range r.connRooms {
		if mID == matchID {
			delete(r.connRooms, id)
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	close(rm.done)
}

func (r *Registry) runOutbound(rm *room) {
	for {
		select {
		case item := <-rm.outbound:
			r.deliver(rm, item)
		case <-rm.done:
			// Drain whatever was already enqueued before CloseRoom fired so
			// a final event (e.g. match:finished) racing with teardown is
			// never silently dropped.
			for {
				select {
				case item := <-rm.outbound:
					r.deliver(rm, item)
				default:
					return
				}
			}
		}
	}
}

func (r *Registry) deliver(rm *room, item outboundItem) {
	rm.mu.RLock()
	targets := make([]*ws.Connection, 0, len(rm.conns))
	for _, c := range rm.conns {
		if item.exceptUserID != nil && c.UserID == *item.exceptUserID {
			continue
		}
		targets = append(targets, c)
	}
	rm.mu.RUnlock()

	for _, conn := range targets {
		if !conn.Enqueue(item.payload) {
			r.dropSlowConnection(rm, conn)
		}
	}
}

// dropSlowConnection implements the backpressure policy of spec §5: a
// connection whose own send queue is full is detached so it cannot block
// the room's broadcast lane.
func (r *Registry) dropSlowConnection(rm *room, conn *ws.Connection) {
	r.logger.Warn().Str("match_id", rm.matchID.String()).Str("user_id", conn.UserID.String()).Msg("detaching slow connection")
	r.detachFrom(rm.matchID, conn)
	conn.Close()
}
