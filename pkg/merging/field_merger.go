// Package merging implements the canonical contact field merge policy.
//
// The policy is total: every field has a defined merge rule, and merging is
// monotonic. A stored non-empty value is never replaced with an empty one and
// a linked source pair is never removed. Confidence gating happens in the
// resolver; once a match is accepted this policy applies unconditionally.
package merging

import (
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// FieldMerger handles field-level merge logic
type FieldMerger struct{}

// NewFieldMerger creates a new FieldMerger
func NewFieldMerger() *FieldMerger {
	return &FieldMerger{}
}

// Merge folds an incoming source record into an existing canonical contact
// and returns the result. Passing nil for existing means "create new": the
// contact is seeded from the record's fields.
func (m *FieldMerger) Merge(existing *models.CanonicalContact, record *models.SourceRecord) *models.CanonicalContact {
	now := time.Now().UTC()

	if existing == nil {
		contact := &models.CanonicalContact{
			Name:      record.Name,
			Email:     record.Email,
			Phone:     record.Phone,
			Company:   record.Company,
			CreatedAt: now,
			UpdatedAt: now,
		}
		contact.AppendNote(record.Notes)
		contact.LinkSource(record.Ref())
		return contact
	}

	merged := *existing
	merged.LinkedSources = append([]models.SourceRef(nil), existing.LinkedSources...)

	merged.Name = longerOf(existing.Name, record.Name)
	merged.Email = preferExisting(existing.Email, record.Email)
	merged.Phone = preferExisting(existing.Phone, record.Phone)
	merged.Company = preferExisting(existing.Company, record.Company)
	merged.AppendNote(record.Notes)
	merged.LinkSource(record.Ref())
	merged.UpdatedAt = now

	return &merged
}

// longerOf keeps the longer of the two non-empty values; ties keep existing.
func longerOf(existing, incoming string) string {
	if existing == "" {
		return incoming
	}
	if len(incoming) > len(existing) {
		return incoming
	}
	return existing
}

// preferExisting keeps the existing value when present and non-empty.
func preferExisting(existing, incoming string) string {
	if existing != "" {
		return existing
	}
	return incoming
}
