package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_WritesStructuredOutput(t *testing.T) {
	log := New(Config{Level: "info"})

	var buf bytes.Buffer
	log = log.Output(&buf)
	log.Info().Str("ticker", "SPY.US").Msg("test message")

	out := buf.String()
	assert.Contains(t, out, "test message")
	assert.Contains(t, out, `"ticker":"SPY.US"`)
}

func TestNew_LogLevels(t *testing.T) {
	testCases := []struct {
		level         string
		expectedLevel zerolog.Level
		name          string
	}{
		{"debug", zerolog.DebugLevel, "debug"},
		{"info", zerolog.InfoLevel, "info"},
		{"warn", zerolog.WarnLevel, "warn"},
		{"error", zerolog.ErrorLevel, "error"},
		{"unknown", zerolog.InfoLevel, "unknown defaults to info"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			New(Config{Level: tc.level})
			assert.Equal(t, tc.expectedLevel, zerolog.GlobalLevel())
		})
	}
}

func TestNew_FilteredBelowLevel(t *testing.T) {
	log := New(Config{Level: "error"})

	var buf bytes.Buffer
	log = log.Output(&buf)
	log.Info().Msg("should be dropped")

	assert.Empty(t, buf.String())
}
