package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// RunStartedData contains data for RunStarted events
type RunStartedData struct {
	RunID         string `json:"run_id"`
	AssumptionSet string `json:"assumption_set"`
	Horizon       int    `json:"horizon"`
}

// EventType returns the event type for RunStartedData
func (d *RunStartedData) EventType() EventType {
	return RunStarted
}

// RunCompletedData contains data for RunCompleted events
type RunCompletedData struct {
	RunID    string  `json:"run_id"`
	Quarters int     `json:"quarters"`
	Duration float64 `json:"duration_seconds"`
}

// EventType returns the event type for RunCompletedData
func (d *RunCompletedData) EventType() EventType {
	return RunCompleted
}

// RunFailedData contains data for RunFailed events
type RunFailedData struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// EventType returns the event type for RunFailedData
func (d *RunFailedData) EventType() EventType {
	return RunFailed
}

// ComponentCompletedData contains data for ComponentCompleted events emitted
// after each pipeline stage of a forecast run.
type ComponentCompletedData struct {
	RunID     string `json:"run_id"`
	Component string `json:"component"`
	Quarters  int    `json:"quarters"`
}

// EventType returns the event type for ComponentCompletedData
func (d *ComponentCompletedData) EventType() EventType {
	return ComponentCompleted
}

// CalibrationCompletedData contains data for CalibrationCompleted events
type CalibrationCompletedData struct {
	Metric   string  `json:"metric"`
	Scope    string  `json:"scope"`
	Value    float64 `json:"value"`
	Quarters int     `json:"quarters"`
}

// EventType returns the event type for CalibrationCompletedData
func (d *CalibrationCompletedData) EventType() EventType {
	return CalibrationCompleted
}

// CalibrationWarningData contains data for CalibrationWarning events, e.g.
// regional rows not summing to the consolidated figure.
type CalibrationWarningData struct {
	Scope   string  `json:"scope"`
	Quarter string  `json:"quarter"`
	Message string  `json:"message"`
	Delta   float64 `json:"delta,omitempty"`
}

// EventType returns the event type for CalibrationWarningData
func (d *CalibrationWarningData) EventType() EventType {
	return CalibrationWarning
}

// AssumptionsChangedData contains data for AssumptionsChanged events
type AssumptionsChangedData struct {
	SetID   string `json:"set_id"`
	Name    string `json:"name"`
	Version int    `json:"version"`
	Active  bool   `json:"active"`
}

// EventType returns the event type for AssumptionsChangedData
func (d *AssumptionsChangedData) EventType() EventType {
	return AssumptionsChanged
}

// HistoryImportedData contains data for HistoryImported events
type HistoryImportedData struct {
	Quarters int `json:"quarters"`
	Regions  int `json:"regions"`
}

// EventType returns the event type for HistoryImportedData
func (d *HistoryImportedData) EventType() EventType {
	return HistoryImported
}

// PricesImportedData contains data for PricesImported events
type PricesImportedData struct {
	Symbol string `json:"symbol"`
	Rows   int    `json:"rows"`
}

// EventType returns the event type for PricesImportedData
func (d *PricesImportedData) EventType() EventType {
	return PricesImported
}

// SystemStatusChangedData contains data for SystemStatusChanged events
type SystemStatusChangedData struct {
	Status    string `json:"status,omitempty"`
	Timestamp string `json:"timestamp"`
}

// EventType returns the event type for SystemStatusChangedData
func (d *SystemStatusChangedData) EventType() EventType {
	return SystemStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// JobProgressInfo contains progress information for a job.
type JobProgressInfo struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`

	// Phase identifies the current high-level operation (e.g., "backtest",
	// "scoring", "upload")
	Phase string `json:"phase,omitempty"`

	// Details contains arbitrary key-value metrics for the current phase.
	Details map[string]interface{} `json:"details,omitempty"`
}

// JobStatusData contains data for job lifecycle events
type JobStatusData struct {
	JobID       string                 `json:"job_id"`
	JobType     string                 `json:"job_type"`
	Status      string                 `json:"status"` // "started", "progress", "completed", "failed"
	Description string                 `json:"description"`
	Progress    *JobProgressInfo       `json:"progress,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Duration    float64                `json:"duration,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// EventType returns the event type for JobStatusData
// Note: The actual event type is determined by the Status field
func (d *JobStatusData) EventType() EventType {
	switch d.Status {
	case "started":
		return JobStarted
	case "progress":
		return JobProgress
	case "completed":
		return JobCompleted
	case "failed":
		return JobFailed
	default:
		return JobStarted
	}
}

// EventWithData represents an event with typed data
type EventWithData struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// MarshalJSON customizes JSON serialization for EventWithData
func (e *EventWithData) MarshalJSON() ([]byte, error) {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	// Marshal the data separately
	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for EventWithData
func (e *EventWithData) UnmarshalJSON(data []byte) error {
	type Alias EventWithData
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	// Unmarshal data based on event type
	if len(aux.Data) > 0 {
		var eventData EventData
		switch aux.Type {
		case RunStarted:
			eventData = &RunStartedData{}
		case RunCompleted:
			eventData = &RunCompletedData{}
		case RunFailed:
			eventData = &RunFailedData{}
		case ComponentCompleted:
			eventData = &ComponentCompletedData{}
		case CalibrationCompleted:
			eventData = &CalibrationCompletedData{}
		case CalibrationWarning:
			eventData = &CalibrationWarningData{}
		case AssumptionsChanged:
			eventData = &AssumptionsChangedData{}
		case HistoryImported:
			eventData = &HistoryImportedData{}
		case PricesImported:
			eventData = &PricesImportedData{}
		case SystemStatusChanged:
			eventData = &SystemStatusChangedData{}
		case ErrorOccurred:
			eventData = &ErrorEventData{}
		case JobStarted, JobProgress, JobCompleted, JobFailed:
			eventData = &JobStatusData{}
		default:
			// For unknown types, use raw map
			var rawData map[string]interface{}
			if err := json.Unmarshal(aux.Data, &rawData); err != nil {
				return err
			}
			// Convert to generic data type
			eventData = &GenericEventData{Data: rawData}
		}

		if eventData != nil {
			if err := json.Unmarshal(aux.Data, eventData); err != nil {
				return err
			}
			e.Data = eventData
		}
	}

	return nil
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}
