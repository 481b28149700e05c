package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTypedData(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		validate func(*testing.T, EventData)
	}{
		{
			name: "run started",
			event: Event{
				Type: RunStarted,
				Data: map[string]interface{}{
					"run_id":         "e5b7",
					"assumption_set": "baseline",
					"horizon":        4,
				},
			},
			validate: func(t *testing.T, data EventData) {
				typed, ok := data.(*RunStartedData)
				require.True(t, ok)
				assert.Equal(t, "e5b7", typed.RunID)
				assert.Equal(t, "baseline", typed.AssumptionSet)
				assert.Equal(t, 4, typed.Horizon)
			},
		},
		{
			name: "calibration warning",
			event: Event{
				Type: CalibrationWarning,
				Data: map[string]interface{}{
					"scope":   "net_sales",
					"quarter": "FY2025Q1",
					"message": "regional rows do not sum to consolidated",
					"delta":   1.3,
				},
			},
			validate: func(t *testing.T, data EventData) {
				typed, ok := data.(*CalibrationWarningData)
				require.True(t, ok)
				assert.Equal(t, "FY2025Q1", typed.Quarter)
				assert.InDelta(t, 1.3, typed.Delta, 1e-9)
			},
		},
		{
			name: "nil data",
			event: Event{
				Type: RunCompleted,
				Data: nil,
			},
			validate: func(t *testing.T, data EventData) {
				assert.Nil(t, data)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, tt.event.GetTypedData())
		})
	}
}

func TestJobStatusDataEventType(t *testing.T) {
	tests := []struct {
		status       string
		expectedType EventType
	}{
		{"started", JobStarted},
		{"progress", JobProgress},
		{"completed", JobCompleted},
		{"failed", JobFailed},
		{"unknown", JobStarted},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			data := &JobStatusData{Status: tt.status}
			assert.Equal(t, tt.expectedType, data.EventType())
		})
	}
}

func TestEventWithDataRoundTrip(t *testing.T) {
	original := &EventWithData{
		Type:      ComponentCompleted,
		Timestamp: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC),
		Module:    "forecast",
		Data: &ComponentCompletedData{
			RunID:     "a1b2",
			Component: "treasury",
			Quarters:  4,
		},
	}

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded EventWithData
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, ComponentCompleted, decoded.Type)
	typed, ok := decoded.Data.(*ComponentCompletedData)
	require.True(t, ok)
	assert.Equal(t, "treasury", typed.Component)
	assert.Equal(t, 4, typed.Quarters)
}

func TestEventWithDataUnknownTypeFallsBackToGeneric(t *testing.T) {
	raw := `{"type":"SOMETHING_ELSE","timestamp":"2025-06-01T12:00:00Z","module":"x","data":{"k":"v"}}`

	var decoded EventWithData
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))

	generic, ok := decoded.Data.(*GenericEventData)
	require.True(t, ok)
	assert.Equal(t, "v", generic.Data["k"])
}
