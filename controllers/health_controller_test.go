package controllers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kendall-kelly/install-intake-api/config"
	"github.com/kendall-kelly/install-intake-api/models"
	"github.com/kendall-kelly/install-intake-api/services"
)

type stubStoreStatus struct {
	store   services.SubmissionStore
	mode    string
	backend config.Backend
	state   string
}

func (s *stubStoreStatus) Store() services.SubmissionStore { return s.store }
func (s *stubStoreStatus) Mode() string                    { return s.mode }
func (s *stubStoreStatus) Backend() config.Backend         { return s.backend }
func (s *stubStoreStatus) State() string                   { return s.state }

func setupHealthRouter(status StoreStatus) *gin.Engine {
	gin.SetMode(gin.TestMode)
	hc := NewHealthController(status, nil)

	router := gin.New()
	router.GET("/health", hc.Health)
	router.GET("/api/debug", hc.Debug)
	return router
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		expected string
	}{
		{"database connected", services.ModeDatabase, "Connected"},
		{"fallback file in use", services.ModeFallback, "Fallback mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupHealthRouter(&stubStoreStatus{mode: tt.mode})

			w, response := performJSON(router, http.MethodGet, "/health", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "OK", response["status"])
			assert.Equal(t, tt.expected, response["database"])

			ts, ok := response["timestamp"].(string)
			require.True(t, ok)
			_, err := time.Parse(models.TimestampFormat, ts)
			assert.NoError(t, err)
		})
	}
}

func TestDebug(t *testing.T) {
	store := services.NewMockSubmissionStore()
	seedSubmissions(t, store)
	status := &stubStoreStatus{
		store:   store,
		mode:    services.ModeDatabase,
		backend: config.BackendSQLite,
		state:   services.StateReady,
	}
	router := setupHealthRouter(status)

	w, response := performJSON(router, http.MethodGet, "/api/debug", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "Working", response["database"])
	assert.Equal(t, "sqlite", response["backend"])
	assert.Equal(t, float64(4), response["submissionCount"])

	store.FailWith(errors.New("database is locked"))
	w, response = performJSON(router, http.MethodGet, "/api/debug", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "Error", response["database"])
	assert.Contains(t, response["error"], "database is locked")
}

func TestDebugBeforeReady(t *testing.T) {
	router := setupHealthRouter(&stubStoreStatus{state: services.StateUninitialized})

	w, response := performJSON(router, http.MethodGet, "/api/debug", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, response["success"])
	assert.Equal(t, "uninitialized", response["state"])
}
