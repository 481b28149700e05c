// Package events provides event management functionality.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents different event types
type EventType string

const (
	// Forecast run lifecycle
	RunStarted         EventType = "RUN_STARTED"
	RunCompleted       EventType = "RUN_COMPLETED"
	RunFailed          EventType = "RUN_FAILED"
	ComponentCompleted EventType = "COMPONENT_COMPLETED"

	// Calibration
	CalibrationCompleted EventType = "CALIBRATION_COMPLETED"
	CalibrationWarning   EventType = "CALIBRATION_WARNING"

	// Model input changes
	AssumptionsChanged EventType = "ASSUMPTIONS_CHANGED"
	HistoryImported    EventType = "HISTORY_IMPORTED"
	PricesImported     EventType = "PRICES_IMPORTED"

	// System
	ErrorOccurred       EventType = "ERROR_OCCURRED"
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"
	LogFileChanged      EventType = "LOG_FILE_CHANGED"

	// Background jobs
	JobStarted   EventType = "JOB_STARTED"
	JobProgress  EventType = "JOB_PROGRESS"
	JobCompleted EventType = "JOB_COMPLETED"
	JobFailed    EventType = "JOB_FAILED"
)

// Event represents a system event with typed data
// The Data field can be either EventData (typed) or map[string]interface{} (legacy)
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// GetTypedData attempts to convert the legacy Data map to typed EventData
// Returns the typed data if conversion is successful, nil otherwise
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	// Try to unmarshal based on event type
	switch e.Type {
	case RunStarted:
		var data RunStartedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case RunCompleted:
		var data RunCompletedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case RunFailed:
		var data RunFailedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case ComponentCompleted:
		var data ComponentCompletedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case CalibrationCompleted:
		var data CalibrationCompletedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case CalibrationWarning:
		var data CalibrationWarningData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case AssumptionsChanged:
		var data AssumptionsChangedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case HistoryImported:
		var data HistoryImportedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case PricesImported:
		var data PricesImportedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case SystemStatusChanged:
		var data SystemStatusChangedData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case ErrorOccurred:
		var data ErrorEventData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	case JobStarted, JobProgress, JobCompleted, JobFailed:
		var data JobStatusData
		if err := convertMapToStruct(e.Data, &data); err == nil {
			return &data
		}
	}

	return nil
}

// convertMapToStruct converts a map[string]interface{} to a struct
// This is a helper function for backward compatibility
func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}
