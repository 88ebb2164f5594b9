package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	tests := []struct {
		name          string
		logLevel      string
		isDevelopment bool
		expectedLevel logrus.Level
		expectJSON    bool
	}{
		{name: "production default", logLevel: "", expectedLevel: logrus.InfoLevel, expectJSON: true},
		{name: "development default", logLevel: "", isDevelopment: true, expectedLevel: logrus.DebugLevel},
		{name: "explicit error level", logLevel: "error", expectedLevel: logrus.ErrorLevel, expectJSON: true},
		{name: "case insensitive level", logLevel: "WARN", isDevelopment: true, expectedLevel: logrus.WarnLevel},
		{name: "invalid level defaults to info", logLevel: "loud", expectedLevel: logrus.InfoLevel, expectJSON: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			var buf bytes.Buffer
			log := initLogger(tt.logLevel, tt.isDevelopment, &buf)

			assert.Equal(t, tt.expectedLevel, log.GetLevel())
			assert.Same(t, log, GetLogger())

			_, isJSON := log.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.expectJSON, isJSON)
		})
	}
}

func TestWithOptimizationContext(t *testing.T) {
	var buf bytes.Buffer
	log := initLogger("info", false, &buf)

	WithOptimizationContext(log, "opt-1", "gw3").Info("solved")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "opt-1", entry["optimization_id"])
	assert.Equal(t, "gw3", entry["period"])
	assert.Equal(t, "solved", entry["msg"])
}

func TestGetLoggerInitializesOnce(t *testing.T) {
	Logger = nil
	first := GetLogger()
	assert.NotNil(t, first)
	assert.Same(t, first, GetLogger())
}
