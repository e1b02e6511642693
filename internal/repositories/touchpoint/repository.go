// Package touchpoint persists per-source activity rows. Timestamps are stored
// as the source-native string so the timeline builder can count unparseable
// values instead of losing them at ingestion.
package touchpoint

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Repository handles touch point persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new touch point repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Record upserts an event row for a contact
func (r *Repository) Record(ctx context.Context, contactID string, point *models.RawTouchPoint) error {
	ctx, span := tracing.StartSpan(ctx, "touchpoint.Repository.Record")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("touch_points")
	sb.Cols("contact_id", "source", "source_event_id", "type", "occurred_at")
	sb.Values(contactID, point.Source, point.SourceEventID, point.Type, point.OccurredAtRaw)
	sb.SQL(`ON CONFLICT (source, source_event_id) DO UPDATE SET
		contact_id = EXCLUDED.contact_id, type = EXCLUDED.type, occurred_at = EXCLUDED.occurred_at`)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to record touch point")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to record touch point")
	}
	return nil
}

// ListForContact returns every event row for the contact
func (r *Repository) ListForContact(ctx context.Context, contactID string) ([]models.RawTouchPoint, error) {
	ctx, span := tracing.StartSpan(ctx, "touchpoint.Repository.ListForContact")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("source", "source_event_id", "type", "occurred_at")
	sb.From("touch_points")
	sb.Where(sb.Equal("contact_id", contactID))

	query, args := sb.Build()
	var points []models.RawTouchPoint
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list touch points")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list touch points")
	}
	return points, nil
}
