package processor

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/resolver"
	"github.com/Ramsey-B/clover/pkg/store"
)

func newTestProcessor() (*Processor, *store.MemoryStore) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	memory := store.NewMemoryStore()
	engine := matching.NewEngine(logger, matching.DefaultConfig())
	res := resolver.NewResolver(logger, memory, memory, engine, nil, resolver.DefaultConfig())
	return NewProcessor(logger, res, memory, memory), memory
}

func TestHandleRecordResolves(t *testing.T) {
	processor, memory := newTestProcessor()

	msg := &kafka.IncomingMessage{
		Topic: "source-records",
		Value: []byte(`{"source":"crm","source_id":"crm-1","name":"Jane Doe","email":"jane@acme.io"}`),
	}

	err := processor.HandleRecord(context.Background(), msg)
	require.NoError(t, err)

	count, err := memory.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandleRecordSkipsMalformedPayload(t *testing.T) {
	processor, memory := newTestProcessor()

	msg := &kafka.IncomingMessage{Value: []byte(`{not json`)}

	// Unparseable payloads are skipped, not retried
	err := processor.HandleRecord(context.Background(), msg)
	require.NoError(t, err)

	count, err := memory.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestHandleRecordSkipsInvalidPayload(t *testing.T) {
	processor, memory := newTestProcessor()

	msg := &kafka.IncomingMessage{
		Value: []byte(`{"source":"billing","source_id":"b-1","name":"Jane"}`),
	}

	err := processor.HandleRecord(context.Background(), msg)
	require.NoError(t, err)

	count, err := memory.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestHandleTouchPointRecordsForLinkedContact(t *testing.T) {
	processor, memory := newTestProcessor()
	ctx := context.Background()

	recordMsg := &kafka.IncomingMessage{
		Value: []byte(`{"source":"crm","source_id":"crm-1","name":"Jane Doe","email":"jane@acme.io"}`),
	}
	require.NoError(t, processor.HandleRecord(ctx, recordMsg))

	eventMsg := &kafka.IncomingMessage{
		Value: []byte(`{"source":"crm","source_id":"crm-1","source_event_id":"a-1","type":"email","occurred_at":"2025-03-01T09:00:00Z"}`),
	}
	require.NoError(t, processor.HandleTouchPoint(ctx, eventMsg))

	contact, err := memory.GetBySourceRef(ctx, models.SourceRef{Source: models.SourceCRM, SourceID: "crm-1"})
	require.NoError(t, err)
	require.NotNil(t, contact)

	events, err := memory.ListForContact(ctx, contact.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a-1", events[0].SourceEventID)
}

// conflictingStore serves a version conflict on the first n updates, the way
// a concurrent writer racing the optimistic CAS would.
type conflictingStore struct {
	*store.MemoryStore
	conflicts int
}

func (s *conflictingStore) Update(ctx context.Context, contact *models.CanonicalContact) (*models.CanonicalContact, error) {
	if s.conflicts > 0 {
		s.conflicts--
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "contact %s version conflict", contact.ID)
	}
	return s.MemoryStore.Update(ctx, contact)
}

func TestHandleRecordRetriesVersionConflict(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	memory := store.NewMemoryStore()
	contacts := &conflictingStore{MemoryStore: memory, conflicts: 1}
	engine := matching.NewEngine(logger, matching.DefaultConfig())
	res := resolver.NewResolver(logger, contacts, memory, engine, nil, resolver.DefaultConfig())
	processor := NewProcessor(logger, res, contacts, memory)
	ctx := context.Background()

	first := &kafka.IncomingMessage{
		Value: []byte(`{"source":"crm","source_id":"crm-1","name":"Jane Doe","email":"jane@acme.io"}`),
	}
	require.NoError(t, processor.HandleRecord(ctx, first))

	// The merge loses the CAS race once; the message must be redelivered,
	// not committed and dropped
	second := &kafka.IncomingMessage{
		Value: []byte(`{"source":"scheduling","source_id":"sched-1","name":"Jane Doe","email":"jane@acme.io"}`),
	}
	require.Error(t, processor.HandleRecord(ctx, second))

	linked, err := memory.GetBySourceRef(ctx, models.SourceRef{Source: models.SourceScheduling, SourceID: "sched-1"})
	require.NoError(t, err)
	require.Nil(t, linked)

	// Redelivery merges cleanly
	require.NoError(t, processor.HandleRecord(ctx, second))

	linked, err = memory.GetBySourceRef(ctx, models.SourceRef{Source: models.SourceScheduling, SourceID: "sched-1"})
	require.NoError(t, err)
	require.NotNil(t, linked)

	count, err := memory.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandleTouchPointRetriesWhenRecordNotResolved(t *testing.T) {
	processor, _ := newTestProcessor()

	eventMsg := &kafka.IncomingMessage{
		Value: []byte(`{"source":"crm","source_id":"never-seen","source_event_id":"a-1","type":"email","occurred_at":"2025-03-01T09:00:00Z"}`),
	}

	err := processor.HandleTouchPoint(context.Background(), eventMsg)
	require.Error(t, err, "unresolved record reference must be retried, not dropped")
}
