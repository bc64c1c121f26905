package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/api"
)

type brokerStub bool

func (b brokerStub) IsConnected() bool { return bool(b) }

func readiness(t *testing.T, broker api.BrokerStatus) (int, api.ReadinessResponse) {
	t.Helper()
	h := api.NewHealthHandler(nil, nil, broker, "test", "test", true)
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var body api.ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadiness_BrokerConnection(t *testing.T) {
	code, body := readiness(t, brokerStub(true))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "connected", body.Dependencies["mqtt"])

	code, body = readiness(t, brokerStub(false))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "disconnected", body.Dependencies["mqtt"])
}

func TestReadiness_NoBrokerConfigured(t *testing.T) {
	_, body := readiness(t, nil)
	assert.Equal(t, "ok", body.Status)
	assert.NotContains(t, body.Dependencies, "mqtt")
}
