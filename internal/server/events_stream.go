package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/attikos/foresight/internal/events"
	"github.com/attikos/foresight/internal/modules/forecast"
)

// streamEvent is the wire form of an event on a websocket stream.
type streamEvent struct {
	Type      string                 `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// StreamHandlers streams system and run events over websockets.
type StreamHandlers struct {
	eventBus *events.Bus
	runs     *forecast.Repository
	log      zerolog.Logger
}

// NewStreamHandlers creates websocket stream handlers.
func NewStreamHandlers(eventBus *events.Bus, runs *forecast.Repository, log zerolog.Logger) *StreamHandlers {
	return &StreamHandlers{
		eventBus: eventBus,
		runs:     runs,
		log:      log.With().Str("component", "event_stream").Logger(),
	}
}

// allEventTypes lists every event type exposed on the general stream.
var allEventTypes = []events.EventType{
	events.RunStarted,
	events.RunCompleted,
	events.RunFailed,
	events.ComponentCompleted,
	events.CalibrationCompleted,
	events.CalibrationWarning,
	events.AssumptionsChanged,
	events.HistoryImported,
	events.PricesImported,
	events.ErrorOccurred,
	events.SystemStatusChanged,
	events.JobStarted,
	events.JobProgress,
	events.JobCompleted,
	events.JobFailed,
}

// HandleEventStream handles GET /api/events/stream.
// Streams all system events, optionally filtered with ?types=A,B.
func (h *StreamHandlers) HandleEventStream(w http.ResponseWriter, r *http.Request) {
	var allowedTypes map[events.EventType]bool
	if typesFilter := r.URL.Query().Get("types"); typesFilter != "" {
		allowedTypes = make(map[events.EventType]bool)
		for _, t := range strings.Split(typesFilter, ",") {
			allowedTypes[events.EventType(strings.TrimSpace(t))] = true
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	h.log.Info().Msg("Client connected to event stream")

	eventChan, release := h.subscribe(allowedTypes, nil)
	defer release()

	h.pump(r.Context(), conn, eventChan)
	h.log.Info().Msg("Client disconnected from event stream")
}

// HandleRunStream handles GET /api/forecast/runs/{id}/stream.
// Streams lifecycle events for a single run. For a run that already
// finished, the terminal event is replayed and the stream closed.
func (h *StreamHandlers) HandleRunStream(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.runs.Run(runID)
	if err != nil {
		if errors.Is(err, forecast.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to load run")
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	h.log.Info().Str("run_id", runID).Msg("Client connected to run stream")

	// Finished runs replay their terminal event; there is nothing more
	// the run will ever emit.
	if run.Status == forecast.StatusCompleted || run.Status == forecast.StatusFailed {
		h.replayTerminal(r.Context(), conn, run)
		conn.Close(websocket.StatusNormalClosure, "run finished")
		return
	}

	runTypes := map[events.EventType]bool{
		events.RunStarted:         true,
		events.RunCompleted:       true,
		events.RunFailed:          true,
		events.ComponentCompleted: true,
	}
	eventChan, release := h.subscribe(runTypes, func(event *events.Event) bool {
		id, _ := event.Data["run_id"].(string)
		return id == runID
	})
	defer release()

	h.pump(r.Context(), conn, eventChan)
	h.log.Info().Str("run_id", runID).Msg("Client disconnected from run stream")
}

// subscribe registers a handler on the bus and returns the channel events
// arrive on plus a release function that removes every registration. A nil
// typeFilter subscribes to every known type. The match predicate, when set,
// further filters events before delivery.
func (h *StreamHandlers) subscribe(typeFilter map[events.EventType]bool, match func(*events.Event) bool) (chan *events.Event, func()) {
	eventChan := make(chan *events.Event, 100)

	handler := func(event *events.Event) {
		if match != nil && !match(event) {
			return
		}
		// Non-blocking send; a slow client drops events rather than
		// stalling the bus.
		select {
		case eventChan <- event:
		default:
			h.log.Warn().Str("event_type", string(event.Type)).Msg("Event channel full, dropping event")
		}
	}

	types := allEventTypes
	if typeFilter != nil {
		types = make([]events.EventType, 0, len(typeFilter))
		for eventType := range typeFilter {
			types = append(types, eventType)
		}
	}

	unsubscribes := make([]func(), 0, len(types))
	for _, eventType := range types {
		unsubscribes = append(unsubscribes, h.eventBus.Subscribe(eventType, handler))
	}

	release := func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
	}
	return eventChan, release
}

// pump forwards events to the websocket until the client goes away.
func (h *StreamHandlers) pump(ctx context.Context, conn *websocket.Conn, eventChan chan *events.Event) {
	// Drain reads so close frames and pings are processed.
	readCtx := conn.CloseRead(ctx)

	if err := h.writeEvent(readCtx, conn, &streamEvent{
		Type:      "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-readCtx.Done():
			return

		case event := <-eventChan:
			if err := h.writeEvent(readCtx, conn, &streamEvent{
				Type:      string(event.Type),
				Module:    event.Module,
				Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
				Data:      event.Data,
			}); err != nil {
				return
			}

		case <-heartbeat.C:
			if err := conn.Ping(readCtx); err != nil {
				return
			}
		}
	}
}

// replayTerminal sends the synthesized terminal event for a finished run.
func (h *StreamHandlers) replayTerminal(ctx context.Context, conn *websocket.Conn, run *forecast.Run) {
	eventType := events.RunCompleted
	data := map[string]interface{}{
		"run_id":     run.ID,
		"status":     run.Status,
		"horizon":    run.Horizon,
		"statements": len(run.Statements),
	}
	if run.Status == forecast.StatusFailed {
		eventType = events.RunFailed
		data["error"] = run.Error
	}

	if err := h.writeEvent(ctx, conn, &streamEvent{
		Type:      string(eventType),
		Module:    "forecast",
		Timestamp: run.CreatedAt.UTC().Format(time.RFC3339),
		Data:      data,
	}); err != nil {
		h.log.Debug().Err(err).Str("run_id", run.ID).Msg("Terminal event replay failed")
	}
}

func (h *StreamHandlers) writeEvent(ctx context.Context, conn *websocket.Conn, event *streamEvent) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(writeCtx, conn, event)
}
