package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopora-backend/pkg/config"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

var devConfig = &config.Config{App: config.AppConfig{Env: "dev"}}

func TestHealthLive(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthLive(devConfig).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get(envHeader))
}

func TestHealthReadyAllUp(t *testing.T) {
	checks := map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}
	assert.Equal(t, http.StatusOK, getJSON(t, HealthReady(devConfig, nil, checks), "/health/ready", nil))
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	checks := map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("refused")}}
	rec := httptest.NewRecorder()
	HealthReady(devConfig, nil, checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var envelope struct {
		Error struct {
			Details struct {
				Checks map[string]string `json:"checks"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, "down", envelope.Error.Details.Checks["redis"])
	assert.Equal(t, "up", envelope.Error.Details.Checks["db"])
}
