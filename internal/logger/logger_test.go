package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newLogger(buf, "debug", "production")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log.Info("hello")
	require.NotNil(t, parseLogOutput(buf))

	dev := newLogger(&bytes.Buffer{}, "not-a-level", "development")
	assert.Equal(t, logrus.InfoLevel, dev.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))
	log, _ := setupTestLogger()
	assert.Same(t, log, OrDiscard(log))
}

func TestEngineLoggerSimulation(t *testing.T) {
	log, buf := setupTestLogger()
	engineLogger := NewEngineLogger(log)

	engineLogger.LogSimulation("balanced", 10000, 42, 6.1, 0.55, false, 12.5)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "engine", logEntry["component"])
	assert.Equal(t, "balanced", logEntry["strategy"])
	assert.Equal(t, float64(42), logEntry["seed"])
	assert.Equal(t, false, logEntry["cached"])
}

func TestEngineLoggerRanking(t *testing.T) {
	log, buf := setupTestLogger()
	engineLogger := NewEngineLogger(log)

	engineLogger.LogRanking("conservative", 6.4, 0.3, 85)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "conservative", logEntry["top_strategy"])
	assert.Equal(t, "info", logEntry["level"])
}

func TestEngineLoggerConvergenceWarning(t *testing.T) {
	log, buf := setupTestLogger()
	engineLogger := NewEngineLogger(log)

	engineLogger.LogConvergenceWarning("aggressive", errors.New("deviates"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "deviates", logEntry["error"])
}

func TestAuditLoggerJobStateChange(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogJobStateChange(
		"job_123",
		"user_1",
		"pending",
		"running",
		time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC),
	)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "audit", logEntry["component"])
	assert.Equal(t, "job_123", logEntry["job_id"])
	assert.Equal(t, "running", logEntry["new_state"])
}

func TestAuditLoggerJobFailure(t *testing.T) {
	log, buf := setupTestLogger()
	auditLogger := NewAuditLogger(log)

	auditLogger.LogJobFailure("job_123", "user_1", "constraint_violation", "not enough matches")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "constraint_violation", logEntry["error_kind"])
}

func TestAuditLoggerClassificationOverride(t *testing.T) {
	tests := []struct {
		name   string
		isSafe *bool
		want   interface{}
	}{
		{"set safe", boolPtr(true), true},
		{"set unsafe", boolPtr(false), false},
		{"cleared", nil, "cleared"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := setupTestLogger()
			NewAuditLogger(log).LogClassificationOverride("m1", tt.isSafe, "admin")

			logEntry := parseLogOutput(buf)
			require.NotNil(t, logEntry)
			assert.Equal(t, tt.want, logEntry["override"])
		})
	}
}

func boolPtr(v bool) *bool { return &v }

func BenchmarkEngineLoggerSimulation(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	engineLogger := NewEngineLogger(log)

	for i := 0; i < b.N; i++ {
		engineLogger.LogSimulation("balanced", 10000, 42, 6.1, 0.55, false, 12.5)
	}
}
