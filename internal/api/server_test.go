package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nearnio/internal/config"
	"nearnio/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	count int
	err   error
}

func (s stubRunner) Sync(ctx context.Context) (int, error)   { return s.count, s.err }
func (s stubRunner) Notify(ctx context.Context) (int, error) { return s.count, s.err }
func (s stubRunner) Remind(ctx context.Context) (int, error) { return s.count, s.err }

func newTestServer(t *testing.T, runner stubRunner, apiCfg config.APIConfig) *Server {
	t.Helper()
	logger := zerolog.Nop()
	orchestrator := service.NewOrchestrator(runner, runner, runner, time.Second, &logger)
	return NewServer(apiCfg, orchestrator, &logger)
}

func doRequest(srv *Server, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) triggerResponse {
	t.Helper()
	var resp triggerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestTriggerRequiresToken(t *testing.T) {
	srv := newTestServer(t, stubRunner{count: 1}, config.APIConfig{
		Auth: config.APIAuthConfig{Token: "secret"},
	})

	w := doRequest(srv, http.MethodPost, "/api/v1/cron/sync", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodPost, "/api/v1/cron/sync", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decodeResponse(t, w).Success)
}

func TestTriggerSuccessEnvelope(t *testing.T) {
	srv := newTestServer(t, stubRunner{count: 12}, config.APIConfig{
		Auth: config.APIAuthConfig{Token: "secret"},
	})

	w := doRequest(srv, http.MethodPost, "/api/v1/cron/notify", "secret")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, 12, resp.Count)
	assert.NotEmpty(t, resp.Message)
	assert.NotEmpty(t, resp.Timestamp)
	assert.Empty(t, resp.Error)
}

func TestTriggerFailureEnvelope(t *testing.T) {
	srv := newTestServer(t, stubRunner{err: errors.New("upstream down")}, config.APIConfig{
		Auth: config.APIAuthConfig{Token: "secret"},
	})

	w := doRequest(srv, http.MethodPost, "/api/v1/cron/sync", "secret")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "upstream down")
}

func TestTriggerRejectsGet(t *testing.T) {
	srv := newTestServer(t, stubRunner{}, config.APIConfig{
		Auth: config.APIAuthConfig{Token: "secret"},
	})

	w := doRequest(srv, http.MethodGet, "/api/v1/cron/remind", "secret")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthzIsPublic(t *testing.T) {
	srv := newTestServer(t, stubRunner{}, config.APIConfig{
		Auth: config.APIAuthConfig{Token: "secret"},
	})

	w := doRequest(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTriggerRateLimit(t *testing.T) {
	srv := newTestServer(t, stubRunner{count: 1}, config.APIConfig{
		Auth:      config.APIAuthConfig{Token: "secret"},
		RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 1},
	})

	w := doRequest(srv, http.MethodPost, "/api/v1/cron/sync", "secret")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(srv, http.MethodPost, "/api/v1/cron/sync", "secret")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
