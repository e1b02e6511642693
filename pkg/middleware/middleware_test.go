package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "github.com/Ramsey-B/clover/pkg/context"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestServer() *echo.Echo {
	e := echo.New()
	e.Use(Context())
	e.HTTPErrorHandler = Error(testLogger())
	return e
}

func TestContextMiddlewareSetsRequestID(t *testing.T) {
	e := newTestServer()

	var captured string
	e.GET("/ping", func(c echo.Context) error {
		captured = appctx.GetRequestID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", captured)
}

func TestContextMiddlewareGeneratesRequestID(t *testing.T) {
	e := newTestServer()

	var captured string
	e.GET("/ping", func(c echo.Context) error {
		captured = appctx.GetRequestID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.NotEmpty(t, captured)
}

func TestErrorHandlerMapsHTTPErrors(t *testing.T) {
	e := newTestServer()

	e.GET("/missing", func(c echo.Context) error {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "contact %s not found", "abc")
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-404")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "contact abc not found")
	assert.Equal(t, "req-404", resp.RequestID)
}

func TestErrorHandlerDefaultsToInternalError(t *testing.T) {
	e := newTestServer()

	e.GET("/boom", func(c echo.Context) error {
		return assert.AnError
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Internal Server Error", resp.Message)
}
