// Package sourcerecord persists raw source records for audit and replay.
package sourcerecord

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var recordColumns = []string{
	"source", "source_id", "name", "email", "phone", "company", "notes", "raw", "created_at",
}

// Repository handles source record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new source record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Save upserts a record on its (source, source_id) key
func (r *Repository) Save(ctx context.Context, record *models.SourceRecord) error {
	ctx, span := tracing.StartSpan(ctx, "sourcerecord.Repository.Save")
	defer span.End()

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	raw := record.Raw
	if len(raw) == 0 {
		raw = []byte("null")
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("source_records")
	sb.Cols(recordColumns...)
	sb.Values(record.Source, record.SourceID, record.Name, record.Email, record.Phone,
		record.Company, record.Notes, string(raw), createdAt)
	sb.SQL(`ON CONFLICT (source, source_id) DO UPDATE SET
		name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
		company = EXCLUDED.company, notes = EXCLUDED.notes, raw = EXCLUDED.raw`)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to save source record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save source record")
	}
	return nil
}

// GetByRef retrieves the stored record for the pair, or nil when absent
func (r *Repository) GetByRef(ctx context.Context, ref models.SourceRef) (*models.SourceRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcerecord.Repository.GetByRef")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("source_records")
	sb.Where(
		sb.Equal("source", ref.Source),
		sb.Equal("source_id", ref.SourceID),
	)

	query, args := sb.Build()
	var record models.SourceRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get source record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get source record")
	}
	return &record, nil
}
