package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/arvensis/trivia-arena/internal/identity"
	httperrors "github.com/arvensis/trivia-arena/pkg/http/errors"
	"github.com/arvensis/trivia-arena/pkg/http/ws"
)

// upgrader is shared across all WebSocket upgrades; CheckOrigin is left
// unset, so gorilla/websocket's default same-host origin check applies.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocketHandler authenticates and upgrades incoming /ws/matches requests.
type WebSocketHandler struct {
	gate     identity.Gate
	onAccept func(conn *ws.Connection)
	queueCap int
	logger   zerolog.Logger
}

// NewWebSocketHandler builds a WebSocketHandler. onAccept is invoked with
// every freshly-upgraded connection, after identity verification, to wire it
// into the dispatcher and the pumps.
func NewWebSocketHandler(gate identity.Gate, onAccept func(conn *ws.Connection), queueCap int, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{gate: gate, onAccept: onAccept, queueCap: queueCap, logger: logger}
}

// HandleUpgrade authenticates the bearer token query parameter, upgrades the
// connection, and starts its read/write pumps.
func (h *WebSocketHandler) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "missing token")
		return
	}

	id, err := h.gate.VerifyCredential(r.Context(), token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket token verification failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "invalid token")
		return
	}

	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := ws.NewConnection(rawConn, id.UserID, h.queueCap, h.logger)
	h.onAccept(conn)

	go conn.WritePump()
	go conn.ReadPump()
}
