package common

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewLogger tests level and formatter selection
func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		config   LoggerConfig
		level    logrus.Level
		jsonMode bool
	}{
		{"defaults", DefaultLoggerConfig(), logrus.InfoLevel, false},
		{"debug json", LoggerConfig{Level: LogLevelDebug, Format: "json"}, logrus.DebugLevel, true},
		{"warn", LoggerConfig{Level: LogLevelWarn}, logrus.WarnLevel, false},
		{"unknown level", LoggerConfig{Level: "verbose"}, logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			assert.Equal(t, tt.level, logger.GetLevel())
			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.jsonMode, isJSON)
			_, ok := logger.Out.(*OutputSplitter)
			assert.True(t, ok)
		})
	}
}

// TestContextLogger tests field propagation
func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Format: "json"})
	logger.SetOutput(&buf)

	base := NewContextLogger(logger, map[string]interface{}{"component": "sparql"})
	child := base.WithField("graph", "users")

	assert.NotContains(t, base.Fields(), "graph", "parent must not see child fields")

	ctx := WithUser(WithRequestID(context.Background(), "req-1"), "admin")
	child.WithContext(ctx).Info("loaded")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sparql", entry["component"])
	assert.Equal(t, "users", entry["graph"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "admin", entry["user"])
	assert.Equal(t, "loaded", entry["msg"])

	t.Run("nil error", func(t *testing.T) {
		assert.Same(t, base, base.WithError(nil))
	})

	t.Run("empty context", func(t *testing.T) {
		assert.Same(t, base, base.WithContext(context.Background()))
	})
}

// TestLogDuration tests operation timing output
func TestLogDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LogLevelDebug, Format: "json"})
	logger.SetOutput(&buf)

	done := LogDuration(NewContextLogger(logger, nil), "select")
	done()

	assert.Contains(t, buf.String(), `"operation":"select"`)
	assert.Contains(t, buf.String(), "duration_ms")
}
