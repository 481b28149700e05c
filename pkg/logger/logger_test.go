package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTagsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Out: &buf})

	log.Info().Msg("below threshold")
	log.Warn().Msg("kept")

	out := buf.String()
	require.Contains(t, out, `"kept"`)
	assert.NotContains(t, out, "below threshold")
	assert.Contains(t, out, `"service":"foresight"`)
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "loud", Out: &buf})

	log.Debug().Msg("filtered")
	log.Info().Msg("visible")

	assert.NotContains(t, buf.String(), "filtered")
	assert.Contains(t, buf.String(), "visible")
}
