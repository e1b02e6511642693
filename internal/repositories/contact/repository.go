// Package contact persists canonical contacts in PostgreSQL. Linked source
// pairs live in a jsonb column so the idempotency lookup can use containment.
package contact

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var contactColumns = []string{
	"id", "name", "email", "phone", "company", "notes",
	"linked_sources", "source_count", "version", "created_at", "updated_at",
}

// Repository handles canonical contact persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a contact by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.CanonicalContact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var contact models.CanonicalContact
	if err := r.db.GetContext(ctx, &contact, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get contact")
	}

	if err := contact.UnmarshalLinkedSources(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to decode linked sources")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode contact")
	}
	return &contact, nil
}

// GetBySourceRef retrieves the contact that has linked the given pair, or nil
// when no contact has
func (r *Repository) GetBySourceRef(ctx context.Context, ref models.SourceRef) (*models.CanonicalContact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.GetBySourceRef")
	defer span.End()

	refJSON, err := json.Marshal([]models.SourceRef{ref})
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to encode source ref")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.Where("linked_sources @> " + sb.Var(string(refJSON)) + "::jsonb")

	query, args := sb.Build()
	var contact models.CanonicalContact
	if err := r.db.GetContext(ctx, &contact, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get contact by source ref")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get contact by source ref")
	}

	if err := contact.UnmarshalLinkedSources(); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode contact")
	}
	return &contact, nil
}

// FindAll retrieves every canonical contact
func (r *Repository) FindAll(ctx context.Context) ([]models.CanonicalContact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.OrderBy("created_at")

	query, args := sb.Build()
	var contacts []models.CanonicalContact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contacts")
	}

	for i := range contacts {
		if err := contacts[i].UnmarshalLinkedSources(); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode contact")
		}
	}
	return contacts, nil
}

// Count returns the number of canonical contacts
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("contacts")

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count contacts")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count contacts")
	}
	return count, nil
}

// Create creates a new canonical contact
func (r *Repository) Create(ctx context.Context, contact *models.CanonicalContact) (*models.CanonicalContact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Create")
	defer span.End()

	created := *contact
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now
	created.Version = 1

	linked, err := created.MarshalLinkedSources()
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to encode linked sources")
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("contacts")
	sb.Cols(contactColumns...)
	sb.Values(created.ID, created.Name, created.Email, created.Phone, created.Company, created.Notes,
		string(linked), created.SourceCount, created.Version, created.CreatedAt, created.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contact")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": created.ID}).Info("Created contact")
	return &created, nil
}

// Update updates a contact, guarded by its version so concurrent merges
// cannot silently overwrite each other
func (r *Repository) Update(ctx context.Context, contact *models.CanonicalContact) (*models.CanonicalContact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Update")
	defer span.End()

	linked, err := contact.MarshalLinkedSources()
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to encode linked sources")
	}

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("contacts")
	sb.Set(
		sb.Assign("name", contact.Name),
		sb.Assign("email", contact.Email),
		sb.Assign("phone", contact.Phone),
		sb.Assign("company", contact.Company),
		sb.Assign("notes", contact.Notes),
		sb.Assign("linked_sources", string(linked)),
		sb.Assign("source_count", contact.SourceCount),
		sb.Add("version", 1),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", contact.ID),
		sb.Equal("version", contact.Version),
	)

	query, args := sb.Build()
	result, err := tx.ExecContext(txCtx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update contact")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("contact %s version conflict", contact.ID))
	}

	// Re-read inside the same transaction so the returned row is exactly
	// what was committed.
	selectBuilder := sqlbuilder.PostgreSQL.NewSelectBuilder()
	selectBuilder.Select(contactColumns...)
	selectBuilder.From("contacts")
	selectBuilder.Where(selectBuilder.Equal("id", contact.ID))

	query, args = selectBuilder.Build()
	var updated models.CanonicalContact
	if err := tx.GetContext(txCtx, &updated, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reload updated contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to reload updated contact")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit contact update")
	}

	if err := updated.UnmarshalLinkedSources(); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to decode contact")
	}
	return &updated, nil
}
