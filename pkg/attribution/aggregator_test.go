package attribution

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/timeline"
)

func newTestAggregator(memory *store.MemoryStore) *Aggregator {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewAggregator(logger, memory, timeline.NewBuilder(logger, memory))
}

func seedContact(t *testing.T, memory *store.MemoryStore, contact models.CanonicalContact) string {
	t.Helper()
	created, err := memory.Create(context.Background(), &contact)
	require.NoError(t, err)
	return created.ID
}

func TestComputeStatsMultiSourceRate(t *testing.T) {
	memory := store.NewMemoryStore()
	aggregator := newTestAggregator(memory)

	var ids []string
	for i := 0; i < 10; i++ {
		id := seedContact(t, memory, models.CanonicalContact{Name: fmt.Sprintf("Contact %d", i)})
		ids = append(ids, id)

		memory.AddEvents(id, models.RawTouchPoint{
			Source: models.SourceCRM, SourceEventID: fmt.Sprintf("a-%d", i),
			Type: "email", OccurredAtRaw: "2025-03-01T09:00:00Z",
		})
		// First three contacts also have a second source
		if i < 3 {
			memory.AddEvents(id, models.RawTouchPoint{
				Source: models.SourceForm, SourceEventID: fmt.Sprintf("f-%d", i),
				Type: "form_submission", OccurredAtRaw: "2025-03-02T09:00:00Z",
			})
		}
	}

	stats, err := aggregator.ComputeStats(context.Background(), ids, Options{})
	require.NoError(t, err)

	assert.Equal(t, 10, stats.TotalContacts)
	assert.Equal(t, 10, stats.ContactsAnalyzed)
	assert.Equal(t, 1.0, stats.AttributionRate)
	assert.InDelta(t, 0.3, stats.MultiSourceRate, 0.0001)
	assert.False(t, stats.Partial)
}

func TestComputeStatsFieldCoverage(t *testing.T) {
	memory := store.NewMemoryStore()
	aggregator := newTestAggregator(memory)

	full := seedContact(t, memory, models.CanonicalContact{
		Name: "Jane Doe", Email: "jane@acme.io", Phone: "5551234567", Company: "acme.io",
	})
	half := seedContact(t, memory, models.CanonicalContact{
		Name: "Bob Wu", Email: "bob@wu.example",
	})

	stats, err := aggregator.ComputeStats(context.Background(), []string{full, half}, Options{})
	require.NoError(t, err)

	assert.InDelta(t, 0.75, stats.FieldCoverage, 0.0001)
	assert.Equal(t, 1.0, stats.FieldCoverageBy["name"])
	assert.Equal(t, 1.0, stats.FieldCoverageBy["email"])
	assert.Equal(t, 0.5, stats.FieldCoverageBy["phone"])
	assert.Equal(t, 0.5, stats.FieldCoverageBy["company"])
}

func TestComputeStatsCountsTimelineDefects(t *testing.T) {
	memory := store.NewMemoryStore()
	aggregator := newTestAggregator(memory)

	id := seedContact(t, memory, models.CanonicalContact{Name: "Jane Doe"})
	memory.AddEvents(id,
		models.RawTouchPoint{Source: models.SourceCRM, SourceEventID: "a-1", Type: "email", OccurredAtRaw: "2025-03-01T09:00:00Z"},
		models.RawTouchPoint{Source: models.SourceCRM, SourceEventID: "a-2", Type: "email", OccurredAtRaw: "yesterday-ish"},
	)

	stats, err := aggregator.ComputeStats(context.Background(), []string{id}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TimelineDefects)
	assert.Equal(t, 1.0, stats.AttributionRate)
}

func TestComputeStatsSamplingIsDeterministic(t *testing.T) {
	memory := store.NewMemoryStore()
	aggregator := newTestAggregator(memory)

	var ids []string
	for i := 0; i < 20; i++ {
		ids = append(ids, seedContact(t, memory, models.CanonicalContact{Name: fmt.Sprintf("Contact %d", i)}))
	}

	first, err := aggregator.ComputeStats(context.Background(), ids, Options{SampleSize: 5, Seed: 42})
	require.NoError(t, err)
	second, err := aggregator.ComputeStats(context.Background(), ids, Options{SampleSize: 5, Seed: 42})
	require.NoError(t, err)

	assert.Equal(t, 20, first.TotalContacts)
	assert.Equal(t, 5, first.ContactsAnalyzed)
	assert.Equal(t, first, second)
}

func TestComputeStatsIsolatesItemFailures(t *testing.T) {
	memory := store.NewMemoryStore()
	aggregator := newTestAggregator(memory)

	id := seedContact(t, memory, models.CanonicalContact{Name: "Jane Doe"})

	stats, err := aggregator.ComputeStats(context.Background(), []string{"missing-1", id, "missing-2"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ContactsAnalyzed)
	assert.Equal(t, 2, stats.FailureCount)
	assert.Len(t, stats.Failures, 2)
	assert.False(t, stats.Partial)
}

func TestComputeStatsBudgetReturnsPartial(t *testing.T) {
	memory := store.NewMemoryStore()
	aggregator := newTestAggregator(memory)

	var ids []string
	for i := 0; i < 50; i++ {
		ids = append(ids, seedContact(t, memory, models.CanonicalContact{Name: fmt.Sprintf("Contact %d", i)}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := aggregator.ComputeStats(ctx, ids, Options{Budget: time.Nanosecond})
	require.NoError(t, err)

	assert.True(t, stats.Partial)
	assert.NotEmpty(t, stats.PartialReason)
	assert.Equal(t, 0, stats.ContactsAnalyzed)
	assert.Equal(t, 50, stats.TotalContacts)
}
