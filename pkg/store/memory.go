package store

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
)

// MemoryStore is a mutex-guarded in-memory implementation of ContactStore,
// RecordStore, and EventSource. It backs tests and embedded use where no
// database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	contacts map[string]*models.CanonicalContact
	records  map[models.SourceRef]*models.SourceRecord
	events   map[string][]models.RawTouchPoint
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contacts: make(map[string]*models.CanonicalContact),
		records:  make(map[models.SourceRef]*models.SourceRecord),
		events:   make(map[string][]models.RawTouchPoint),
	}
}

// Get returns the contact by id
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.CanonicalContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[id]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "contact %s not found", id)
	}
	return cloneContact(contact), nil
}

// GetBySourceRef returns the contact linked to the pair, or nil when none has
func (s *MemoryStore) GetBySourceRef(ctx context.Context, ref models.SourceRef) (*models.CanonicalContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, contact := range s.contacts {
		if contact.HasSourceRef(ref) {
			return cloneContact(contact), nil
		}
	}
	return nil, nil
}

// FindAll returns every canonical contact
func (s *MemoryStore) FindAll(ctx context.Context) ([]models.CanonicalContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contacts := make([]models.CanonicalContact, 0, len(s.contacts))
	for _, contact := range s.contacts {
		contacts = append(contacts, *cloneContact(contact))
	}
	return contacts, nil
}

// Count returns the number of canonical contacts
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts), nil
}

// Create persists a new contact, assigning an id when absent
func (s *MemoryStore) Create(ctx context.Context, contact *models.CanonicalContact) (*models.CanonicalContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := cloneContact(contact)
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	created.Version = 1
	s.contacts[created.ID] = created
	return cloneContact(created), nil
}

// Update persists changes to an existing contact, bumping its version
func (s *MemoryStore) Update(ctx context.Context, contact *models.CanonicalContact) (*models.CanonicalContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.contacts[contact.ID]
	if !ok {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "contact %s not found", contact.ID)
	}
	if contact.Version != current.Version {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "contact %s version conflict", contact.ID)
	}

	updated := cloneContact(contact)
	updated.Version = current.Version + 1
	updated.UpdatedAt = time.Now().UTC()
	s.contacts[updated.ID] = updated
	return cloneContact(updated), nil
}

// Save upserts the raw source record keyed by (source, sourceID)
func (s *MemoryStore) Save(ctx context.Context, record *models.SourceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *record
	s.records[record.Ref()] = &saved
	return nil
}

// GetByRef returns the stored record for the pair, or nil when absent
func (s *MemoryStore) GetByRef(ctx context.Context, ref models.SourceRef) (*models.SourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[ref]
	if !ok {
		return nil, nil
	}
	found := *record
	return &found, nil
}

// Record appends one raw touch point for a contact
func (s *MemoryStore) Record(ctx context.Context, contactID string, point *models.RawTouchPoint) error {
	s.AddEvents(contactID, *point)
	return nil
}

// AddEvents appends raw touch points for a contact
func (s *MemoryStore) AddEvents(contactID string, events ...models.RawTouchPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[contactID] = append(s.events[contactID], events...)
}

// ListForContact returns the raw touch points recorded for the contact
func (s *MemoryStore) ListForContact(ctx context.Context, contactID string) ([]models.RawTouchPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[contactID]
	out := make([]models.RawTouchPoint, len(events))
	copy(out, events)
	return out, nil
}

func cloneContact(c *models.CanonicalContact) *models.CanonicalContact {
	clone := *c
	clone.LinkedSources = append([]models.SourceRef(nil), c.LinkedSources...)
	return &clone
}
