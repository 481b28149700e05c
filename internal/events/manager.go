package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Manager publishes events to the bus and mirrors each one into the
// structured log, so every run, calibration, and job transition is
// visible without a stream subscriber attached.
type Manager struct {
	bus *Bus
	log zerolog.Logger
}

// NewManager creates a new event manager
func NewManager(bus *Bus, log zerolog.Logger) *Manager {
	return &Manager{
		bus: bus,
		log: log.With().Str("component", "events").Logger(),
	}
}

// Emit publishes an event with a plain data map. This is the path the
// module services use; stream handlers match on keys like "run_id", so
// the map form is the canonical payload.
func (m *Manager) Emit(eventType EventType, module string, data map[string]interface{}) {
	m.publish(eventType, module, data)
}

// EmitTyped publishes an event carrying one of the typed payloads in
// event_data.go. The payload is flattened to a map before publishing so
// subscribers see one shape regardless of the emit path.
func (m *Manager) EmitTyped(eventType EventType, module string, data EventData) {
	m.publish(eventType, module, flatten(data))
}

// EmitError emits an error event
func (m *Manager) EmitError(module string, err error, context map[string]interface{}) {
	m.EmitTyped(ErrorOccurred, module, &ErrorEventData{
		Error:   err.Error(),
		Context: context,
	})
}

func (m *Manager) publish(eventType EventType, module string, data map[string]interface{}) {
	m.bus.Emit(eventType, module, data)

	payload, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	})
	if err != nil {
		m.log.Warn().Err(err).Str("event_type", string(eventType)).Msg("Event payload not serializable")
		return
	}

	logEvent := m.log.Info()
	if eventType == JobProgress {
		// Progress ticks are frequent; keep them out of the info log.
		logEvent = m.log.Debug()
	}
	logEvent.
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", payload).
		Msg("Event published")
}

// flatten converts a typed payload to the canonical map form via its
// JSON tags. A payload that fails to round-trip publishes as nil data.
func flatten(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return result
}
