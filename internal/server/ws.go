package server

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/qbench/internal/events"
)

// allStreamTypes are the event types forwarded when no filter is given
var allStreamTypes = []events.EventType{
	events.BenchmarkStarted,
	events.BenchmarkCompleted,
	events.BenchmarkFailed,
	events.BackupCompleted,
	events.SystemStatusChanged,
}

// EventStreamHandler streams bus events to websocket clients.
// Clients may narrow the stream with ?types=benchmark_completed,backup_completed.
type EventStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventStreamHandler creates a new event stream handler
func NewEventStreamHandler(bus *events.Bus, log zerolog.Logger) *EventStreamHandler {
	return &EventStreamHandler{
		bus: bus,
		log: log.With().Str("component", "event_stream").Logger(),
	}
}

// streamMessage is the wire format sent to clients
type streamMessage struct {
	Type      string                 `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// ServeHTTP handles GET /api/events/ws
func (h *EventStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	streamTypes := allStreamTypes
	if raw := r.URL.Query().Get("types"); raw != "" {
		streamTypes = streamTypes[:0:0]
		for _, t := range strings.Split(raw, ",") {
			streamTypes = append(streamTypes, events.EventType(strings.TrimSpace(t)))
		}
	}

	h.log.Info().Int("types", len(streamTypes)).Msg("Client connected to event stream")

	// The bus has no unsubscribe; a closed flag stops forwarding after the
	// client goes away, the handler itself stays registered.
	var closed atomic.Bool
	eventChan := make(chan *events.Event, 100)

	forward := func(event *events.Event) {
		if closed.Load() {
			return
		}
		select {
		case eventChan <- event:
		default:
			h.log.Warn().Str("event_type", string(event.Type)).Msg("Event channel full, dropping event")
		}
	}

	for _, eventType := range streamTypes {
		h.bus.Subscribe(eventType, forward)
	}
	defer closed.Store(true)

	ctx := r.Context()

	if err := h.write(ctx, conn, streamMessage{
		Type:      "connected",
		Timestamp: time.Now().Format(time.RFC3339),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event stream")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			msg := streamMessage{
				Type:      string(event.Type),
				Module:    event.Module,
				Timestamp: event.Timestamp.Format(time.RFC3339),
				Data:      event.Data,
			}
			if err := h.write(ctx, conn, msg); err != nil {
				h.log.Debug().Err(err).Msg("Websocket write failed, closing stream")
				return
			}

		case <-heartbeat.C:
			msg := streamMessage{
				Type:      "heartbeat",
				Timestamp: time.Now().Format(time.RFC3339),
			}
			if err := h.write(ctx, conn, msg); err != nil {
				return
			}
		}
	}
}

// write sends one message with a bounded deadline
func (h *EventStreamHandler) write(ctx context.Context, conn *websocket.Conn, msg streamMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}
