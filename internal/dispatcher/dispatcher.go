// Package dispatcher implements the Event Dispatcher of spec §4.4: the
// closed set of inbound websocket commands, routed into Match Engine calls,
// with outbound Engine events framed onto the wire via the Room Registry.
package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arvensis/trivia-arena/internal/engine"
	"github.com/arvensis/trivia-arena/internal/room"
	"github.com/arvensis/trivia-arena/pkg/http/ws"
)

// Inbound command type tags — exactly the closed set of spec §4.4.
const (
	CmdMatchJoin    = "match:join"
	CmdMatchLeave   = "match:leave"
	CmdMatchStart   = "match:start"
	CmdMatchAdvance = "match:advance"
	CmdMatchDelete  = "match:delete"
	CmdAnswerSubmit = "answer:submit"
)

// Dispatcher routes inbound ws.Message commands to Engine operations and
// wires Engine events back out through a room.Registry.
type Dispatcher struct {
	eng      *engine.Engine
	registry *room.Registry
	logger   zerolog.Logger
}

// New builds a Dispatcher bound to a Room Registry. The Engine is supplied
// afterwards via SetEngine, since the Engine in turn depends on this
// Dispatcher as its Broadcaster.
func New(registry *room.Registry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// SetEngine binds the Match Engine this Dispatcher routes commands into.
// Must be called once, before any connection is handled.
func (d *Dispatcher) SetEngine(eng *engine.Engine) { d.eng = eng }

// Broadcast marshals evt and fans it out to every connection in matchID's
// room, satisfying the Broadcaster interface the Engine depends on.
func (d *Dispatcher) Broadcast(matchID uuid.UUID, evt engine.Event) {
	d.registry.Broadcast(matchID, d.encode(evt))
}

// BroadcastExcept is Broadcast minus the one connection belonging to
// exceptUserID.
func (d *Dispatcher) BroadcastExcept(matchID, exceptUserID uuid.UUID, evt engine.Event) {
	d.registry.BroadcastExcept(matchID, exceptUserID, d.encode(evt))
}

// SendTo delivers evt to a single participant's connection(s) only.
func (d *Dispatcher) SendTo(matchID, userID uuid.UUID, evt engine.Event) {
	d.registry.SendTo(matchID, userID, d.encode(evt))
}

// CloseMatch tears down the Room Registry's room for matchID once the
// Engine has removed the match's actor, satisfying the engine.Broadcaster
// contract. Outstanding connections are detached, not closed, so clients
// that reconnect for a fresh match aren't forcibly disconnected.
func (d *Dispatcher) CloseMatch(matchID uuid.UUID) {
	d.registry.CloseRoom(matchID)
}

func (d *Dispatcher) encode(evt engine.Event) []byte {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		d.logger.Error().Err(err).Str("event_type", evt.Type).Msg("failed to marshal event payload")
		payload = json.RawMessage("null")
	}
	msg := ws.Message{Type: evt.Type, Payload: payload}
	out, err := json.Marshal(msg)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to marshal message envelope")
		return nil
	}
	return out
}

// inbound command payloads.
type joinPayload struct {
	MatchID uuid.UUID `json:"matchId"`
}

type startPayload struct {
	MatchID uuid.UUID `json:"matchId"`
}

type advancePayload struct {
	MatchID uuid.UUID `json:"matchId"`
}

type deletePayload struct {
	MatchID uuid.UUID `json:"matchId"`
}

type submitAnswerPayload struct {
	MatchID        uuid.UUID `json:"matchId"`
	QuestionNumber int       `json:"questionNumber"`
	SelectedOption string    `json:"selectedOption"`
}

// HandleConnection wires a freshly-accepted connection's OnMessage callback
// to route every inbound command through this dispatcher, scoped to ctx's
// lifetime.
func (d *Dispatcher) HandleConnection(ctx context.Context, conn *ws.Connection) {
	conn.OnMessage(func(msg ws.Message) {
		d.handle(ctx, conn, msg)
	})
	conn.OnClose(func(c *ws.Connection) {
		d.registry.Detach(c)
	})
}

func (d *Dispatcher) handle(ctx context.Context, conn *ws.Connection, msg ws.Message) {
	switch msg.Type {
	case CmdMatchJoin:
		var p joinPayload
		if !d.decode(conn, msg, &p) {
			return
		}
		snapshot, err := d.eng.Join(ctx, p.MatchID, conn.UserID)
		if err != nil {
			d.sendError(conn, err)
			return
		}
		d.registry.Attach(p.MatchID, conn)
		d.SendTo(p.MatchID, conn.UserID, engine.Event{Type: engine.EventMatchState, Payload: snapshot})

	case CmdMatchLeave:
		d.registry.Detach(conn)

	case CmdMatchStart:
		var p startPayload
		if !d.decode(conn, msg, &p) {
			return
		}
		if err := d.eng.Start(ctx, p.MatchID, conn.UserID); err != nil {
			d.sendError(conn, err)
		}

	case CmdMatchAdvance:
		var p advancePayload
		if !d.decode(conn, msg, &p) {
			return
		}
		if err := d.eng.Advance(ctx, p.MatchID, conn.UserID); err != nil {
			d.sendError(conn, err)
		}

	case CmdMatchDelete:
		var p deletePayload
		if !d.decode(conn, msg, &p) {
			return
		}
		if err := d.eng.DeleteIfScheduled(ctx, p.MatchID, conn.UserID); err != nil {
			d.sendError(conn, err)
		}

	case CmdAnswerSubmit:
		var p submitAnswerPayload
		if !d.decode(conn, msg, &p) {
			return
		}
		if _, err := d.eng.SubmitAnswer(ctx, p.MatchID, conn.UserID, p.QuestionNumber, p.SelectedOption); err != nil {
			d.sendError(conn, err)
		}

	default:
		conn.Enqueue(d.encode(engine.Event{Type: engine.EventError, Payload: engine.ErrorPayload{
			Code:    "UnknownCommand",
			Message: "unrecognized command type: " + msg.Type,
		}}))
	}
}

func (d *Dispatcher) decode(conn *ws.Connection, msg ws.Message, dst interface{}) bool {
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		conn.Enqueue(d.encode(engine.Event{Type: engine.EventError, Payload: engine.ErrorPayload{
			Code:    "InvalidPayload",
			Message: "malformed payload for " + msg.Type,
		}}))
		return false
	}
	return true
}

func (d *Dispatcher) sendError(conn *ws.Connection, err error) {
	code := "Internal"
	msg := err.Error()
	if engErr, ok := err.(*engine.Error); ok {
		code = engErr.Code
		msg = engErr.Message
	}
	conn.Enqueue(d.encode(engine.Event{Type: engine.EventError, Payload: engine.ErrorPayload{Code: code, Message: msg}}))
}
