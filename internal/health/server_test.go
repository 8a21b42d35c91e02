package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

// TestHealthAndLive tests the unconditional endpoints
func TestHealthAndLive(t *testing.T) {
	s := NewServer(Config{ServiceName: "optimizer", Version: "1.2.3"})

	rec, body := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.2.3", body["version"])

	rec, _ = get(t, s.Handler(), "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestReadyChecks tests readiness gating and dependency checks
func TestReadyChecks(t *testing.T) {
	var redisErr error
	s := NewServer(Config{
		ServiceName: "optimizer",
		Checks: map[string]Pinger{
			"database": PingFunc(func(context.Context) error { return nil }),
			"redis":    PingFunc(func(context.Context) error { return redisErr }),
		},
	})

	rec, body := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])

	s.SetReady(true)
	rec, body = get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "ok", checks["redis"])

	redisErr = errors.New("connection refused")
	rec, body = get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks = body["checks"].(map[string]interface{})
	assert.Equal(t, "error: connection refused", checks["redis"])
}

// TestShutdownWithoutStart tests that Shutdown is safe before Start
func TestShutdownWithoutStart(t *testing.T) {
	assert.NoError(t, NewServer(Config{}).Shutdown())
}

// TestReadyReportsFreeJobSlots tests the worker capacity field
func TestReadyReportsFreeJobSlots(t *testing.T) {
	s := NewServer(Config{FreeJobSlots: func() int { return 3 }})

	_, body := get(t, s.Handler(), "/ready")
	assert.Equal(t, float64(3), body["free_job_slots"])

	_, body = get(t, NewServer(Config{}).Handler(), "/ready")
	assert.NotContains(t, body, "free_job_slots")
}
