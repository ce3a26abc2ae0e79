package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkops/forksync/internal/db"
	"github.com/forkops/forksync/internal/models"
	"github.com/forkops/forksync/internal/runner"
)

type fakeStatus struct {
	status runner.Status
}

func (f *fakeStatus) Snapshot() runner.Status {
	return f.status
}

type fakeHistory struct {
	reports []*models.RunReport
	err     error
}

func (f *fakeHistory) Migrate() error { return nil }
func (f *fakeHistory) Close() error   { return nil }

func (f *fakeHistory) SaveRunReport(_ context.Context, _ *models.RunReport) error {
	return nil
}

func (f *fakeHistory) ListRunReports(_ context.Context, limit int) ([]*models.RunReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.reports) {
		return f.reports[:limit], nil
	}
	return f.reports, nil
}

func setupTestRouter(status StatusProvider, history *fakeHistory) *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var store db.Store
	if history != nil {
		store = history
	}
	return SetupRouter(NewHandler(status, store, logger))
}

func doRequest(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Health(t *testing.T) {
	router := setupTestRouter(&fakeStatus{}, nil)

	w := doRequest(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandler_GetStatus(t *testing.T) {
	status := &fakeStatus{status: runner.Status{
		Phase:       runner.PhaseSyncing,
		CurrentRepo: "fork-a",
		Report:      models.RunReport{ReposProcessed: 3},
	}}
	router := setupTestRouter(status, nil)

	w := doRequest(t, router, "/api/v1/status")
	require.Equal(t, http.StatusOK, w.Code)

	var got runner.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, runner.PhaseSyncing, got.Phase)
	assert.Equal(t, "fork-a", got.CurrentRepo)
	assert.Equal(t, 3, got.Report.ReposProcessed)
}

func TestHandler_ListRuns(t *testing.T) {
	now := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	history := &fakeHistory{reports: []*models.RunReport{
		{ID: 2, StartedAt: now.Add(time.Hour), FinishedAt: now.Add(time.Hour + time.Minute)},
		{ID: 1, StartedAt: now, FinishedAt: now.Add(time.Minute)},
	}}

	t.Run("returns history", func(t *testing.T) {
		router := setupTestRouter(&fakeStatus{}, history)

		w := doRequest(t, router, "/api/v1/runs")
		require.Equal(t, http.StatusOK, w.Code)

		var got []*models.RunReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, int64(2), got[0].ID)
	})

	t.Run("honors limit", func(t *testing.T) {
		router := setupTestRouter(&fakeStatus{}, history)

		w := doRequest(t, router, "/api/v1/runs?limit=1")
		require.Equal(t, http.StatusOK, w.Code)

		var got []*models.RunReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Len(t, got, 1)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		router := setupTestRouter(&fakeStatus{}, history)

		w := doRequest(t, router, "/api/v1/runs?limit=zero")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unavailable without history store", func(t *testing.T) {
		router := setupTestRouter(&fakeStatus{}, nil)

		w := doRequest(t, router, "/api/v1/runs")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		router := setupTestRouter(&fakeStatus{}, &fakeHistory{err: fmt.Errorf("db down")})

		w := doRequest(t, router, "/api/v1/runs")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
