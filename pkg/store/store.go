// Package store defines the persistence ports the resolution engine works
// against. Implementations live in internal/repositories; an in-memory
// implementation is provided here for embedding and tests.
package store

import (
	"context"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ContactStore is the canonical contact persistence port.
type ContactStore interface {
	// Get returns the contact by id. Not-found is an error.
	Get(ctx context.Context, id string) (*models.CanonicalContact, error)
	// GetBySourceRef returns the contact already linked to the given
	// (source, sourceID) pair, or nil when no contact has linked it.
	GetBySourceRef(ctx context.Context, ref models.SourceRef) (*models.CanonicalContact, error)
	// FindAll returns every canonical contact.
	FindAll(ctx context.Context) ([]models.CanonicalContact, error)
	// Count returns the number of canonical contacts.
	Count(ctx context.Context) (int, error)
	// Create persists a new contact and returns it with id and version set.
	Create(ctx context.Context, contact *models.CanonicalContact) (*models.CanonicalContact, error)
	// Update persists changes to an existing contact, bumping its version.
	Update(ctx context.Context, contact *models.CanonicalContact) (*models.CanonicalContact, error)
}

// RecordStore persists raw source records keyed by (source, sourceID).
type RecordStore interface {
	// Save upserts the record. Re-saving the same pair overwrites the row.
	Save(ctx context.Context, record *models.SourceRecord) error
	// GetByRef returns the stored record for the pair, or nil when absent.
	GetByRef(ctx context.Context, ref models.SourceRef) (*models.SourceRecord, error)
}

// EventSource exposes the per-source activity rows a contact's timeline is
// built from. Timestamps come back as source-native strings; parsing and
// defect accounting happen in the timeline builder.
type EventSource interface {
	ListForContact(ctx context.Context, contactID string) ([]models.RawTouchPoint, error)
}
