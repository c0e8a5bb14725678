package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/twscan/internal/api/handlers"
	"github.com/wonny/twscan/internal/data"
	"github.com/wonny/twscan/internal/metrics"
	"github.com/wonny/twscan/pkg/logger"
)

func TestRouter_Health(t *testing.T) {
	r := NewRouter(Routes{}, []string{"*"}, logger.Nop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_MountsOnlyConfiguredRoutes(t *testing.T) {
	cfg := handlers.NewConfigHandler(nil, nil, data.NewStaticSource([]string{"2330"}, nil), logger.Nop())
	r := NewRouter(Routes{Config: cfg, Metrics: metrics.New().Handler()}, []string{"*"}, logger.Nop())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/config", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "twscan_")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/reports/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CORS(t *testing.T) {
	r := NewRouter(Routes{}, []string{"https://dash.example.com"}, logger.Nop())

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
