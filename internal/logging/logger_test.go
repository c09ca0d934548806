package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		for _, format := range []string{"json", "console", ""} {
			log, err := NewLogger(tt.level, format, "rehab-test")
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.want), "%s/%s", tt.level, format)
			if tt.want > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.want-1), "%s/%s", tt.level, format)
			}
		}
	}
}

func TestNewLogger_UnknownFormat(t *testing.T) {
	_, err := NewLogger("info", "xml", "")
	assert.Error(t, err)
}

func TestNewLogger_JSONCarriesService(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger("info", "json", "rehab-web", zapcore.AddSync(&buf))
	require.NoError(t, err)

	log.Info("session started")
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session started", entry["msg"])
	assert.Equal(t, "rehab-web", entry["service"])
	assert.Equal(t, "info", entry["level"])
}
