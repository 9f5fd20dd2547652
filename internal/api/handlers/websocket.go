package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/marketreplay/backtester/internal/backtest"
)

// TickSource is the narrow subscription surface the websocket handler
// needs from api.TickBroker.
type TickSource interface {
	Subscribe(runID string) (ch chan backtest.TickSnapshot, unsubscribe func())
}

// WebSocketHandler streams a single run's TickSnapshot events to any
// number of connected clients, one broker subscription per connection.
type WebSocketHandler struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	ticks    TickSource
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(logger zerolog.Logger, ticks TickSource) *WebSocketHandler {
	return &WebSocketHandler{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ticks: ticks,
	}
}

// tickMessage is the wire shape pushed to subscribers.
type tickMessage struct {
	Type      string    `json:"type"`
	Algorithm string    `json:"algorithm"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// HandleConnection upgrades the HTTP request on GET /ws/{runID} and
// streams that run's ticks until the client disconnects.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	ch, unsubscribe := h.ticks.Subscribe(runID)
	defer unsubscribe()

	h.logger.Info().Str("run_id", runID).Msg("websocket client subscribed")

	go h.drainReads(conn)

	pinger := time.NewTicker(54 * time.Second)
	defer pinger.Stop()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			msg, err := json.Marshal(tickMessage{
				Type: "tick", Algorithm: snap.AlgorithmID, Timestamp: snap.Timestamp, Value: snap.Value,
			})
			if err != nil {
				h.logger.Error().Err(err).Msg("failed to marshal tick message")
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-pinger.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drainReads discards client frames (this is a push-only stream) but must
// keep reading so gorilla's pong handling and close detection fire.
func (h *WebSocketHandler) drainReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
