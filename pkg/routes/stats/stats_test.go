package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/attribution"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/timeline"
)

func newTestHandler(t *testing.T, opts attribution.Options) (*Handler, *store.MemoryStore) {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	memory := store.NewMemoryStore()
	aggregator := attribution.NewAggregator(logger, memory, timeline.NewBuilder(logger, memory))
	return NewHandler(logger, memory, aggregator, opts), memory
}

func TestAttributionComputesOverPopulation(t *testing.T) {
	handler, memory := newTestHandler(t, attribution.Options{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		created, err := memory.Create(ctx, &models.CanonicalContact{Name: fmt.Sprintf("Contact %d", i)})
		require.NoError(t, err)
		memory.AddEvents(created.ID, models.RawTouchPoint{
			Source: models.SourceCRM, SourceEventID: fmt.Sprintf("a-%d", i),
			Type: "email", OccurredAtRaw: "2025-03-01T09:00:00Z",
		})
	}

	e := echo.New()
	handler.Register(e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/attribution", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result models.AttributionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 4, result.TotalContacts)
	assert.Equal(t, 4, result.ContactsAnalyzed)
	assert.Equal(t, 1.0, result.AttributionRate)
	assert.False(t, result.Partial)
}

func TestAttributionSampleSizeOverride(t *testing.T) {
	handler, memory := newTestHandler(t, attribution.Options{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := memory.Create(ctx, &models.CanonicalContact{Name: fmt.Sprintf("Contact %d", i)})
		require.NoError(t, err)
	}

	e := echo.New()
	handler.Register(e)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/attribution?sample_size=3&seed=42", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result models.AttributionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 10, result.TotalContacts)
	assert.Equal(t, 3, result.ContactsAnalyzed)
}
