package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	err error
}

func (f fakeStore) PingContext(ctx context.Context) error {
	return f.err
}

type fakeLockStore struct {
	err error
}

func (f fakeLockStore) Ping(ctx context.Context) error {
	return f.err
}

func TestHealthReportsHealthyBackends(t *testing.T) {
	e := echo.New()
	NewHandler(fakeStore{}).WithRedis(fakeLockStore{}).Register(e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database"`)
	assert.Contains(t, rec.Body.String(), `"redis"`)
	assert.NotContains(t, rec.Body.String(), "unhealthy")
}

func TestHealthReportsStoreFailure(t *testing.T) {
	e := echo.New()
	NewHandler(fakeStore{err: errors.New("connection refused")}).Register(e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestHealthWithoutDatabase(t *testing.T) {
	e := echo.New()
	NewHandler(nil).Register(e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database not configured")
}

func TestLive(t *testing.T) {
	e := echo.New()
	NewHandler(fakeStore{}).Register(e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestReadyTracksReadiness(t *testing.T) {
	e := echo.New()
	NewHandler(fakeStore{}).Register(e)

	SetReady(false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	SetReady(true)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
