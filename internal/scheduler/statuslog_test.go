package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbridge/ups-snmpd/internal/logging"
	"github.com/opsbridge/ups-snmpd/internal/telemetry"
)

func TestStatusLoggerDisabledByDefaultEmitsNothing(t *testing.T) {
	snap := telemetry.DefaultSnapshot()
	var buf recordingWriter
	logger := logging.NewLogger(&logging.Config{Level: logging.LevelDebug, Output: &buf})

	sl := NewStatusLogger(StatusLoggerConfig{Telemetry: snap, Logger: logger})
	sl.Tick(0)
	sl.Tick(10000)

	assert.Empty(t, buf.String())
}

func TestStatusLoggerEmitsOncePerPeriod(t *testing.T) {
	snap := telemetry.DefaultSnapshot()
	var buf recordingWriter
	logger := logging.NewLogger(&logging.Config{Level: logging.LevelDebug, Output: &buf})

	sl := NewStatusLogger(StatusLoggerConfig{Enabled: true, PeriodMs: 1000, Telemetry: snap, Logger: logger})

	sl.Tick(0)
	first := buf.String()
	require.NotEmpty(t, first)

	sl.Tick(500)
	assert.Equal(t, first, buf.String(), "no second line before the period elapses")

	sl.Tick(1000)
	assert.Greater(t, len(buf.String()), len(first), "a new line is appended once the period elapses")
}

type recordingWriter struct{ data []byte }

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *recordingWriter) String() string { return string(w.data) }
