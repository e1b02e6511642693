package models

import (
	"encoding/json"
	"time"
)

// Source identifies which external system produced a record.
type Source string

const (
	SourceCRM        Source = "crm"
	SourceScheduling Source = "scheduling"
	SourceForm       Source = "form"
)

// Valid reports whether the source is one of the known systems.
func (s Source) Valid() bool {
	switch s {
	case SourceCRM, SourceScheduling, SourceForm:
		return true
	}
	return false
}

// SourceRecord is one source system's view of a contact. Immutable once
// received; the raw payload is retained for audit and never inspected by
// the resolution engine.
type SourceRecord struct {
	Source    Source          `json:"source" db:"source"`
	SourceID  string          `json:"source_id" db:"source_id"`
	Name      string          `json:"name" db:"name"`
	Email     string          `json:"email,omitempty" db:"email"`
	Phone     string          `json:"phone,omitempty" db:"phone"`
	Company   string          `json:"company,omitempty" db:"company"`
	Notes     string          `json:"notes,omitempty" db:"notes"`
	Raw       json.RawMessage `json:"raw,omitempty" db:"raw"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// SourceRef is a (source, sourceId) pair linking a source record to a
// canonical contact. A pair belongs to at most one contact at a time.
type SourceRef struct {
	Source   Source `json:"source"`
	SourceID string `json:"source_id"`
}

// Ref returns the record's source reference.
func (r *SourceRecord) Ref() SourceRef {
	return SourceRef{Source: r.Source, SourceID: r.SourceID}
}

// IngestRecordRequest is the inbound payload emitted by the collectors.
type IngestRecordRequest struct {
	Source   string          `json:"source" validate:"required,oneof=crm scheduling form"`
	SourceID string          `json:"source_id" validate:"required"`
	Name     string          `json:"name" validate:"required"`
	Email    string          `json:"email,omitempty" validate:"omitempty"`
	Phone    string          `json:"phone,omitempty"`
	Company  string          `json:"company,omitempty"`
	Notes    string          `json:"notes,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// ToRecord converts a validated request into a SourceRecord.
func (r *IngestRecordRequest) ToRecord() *SourceRecord {
	return &SourceRecord{
		Source:    Source(r.Source),
		SourceID:  r.SourceID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Company:   r.Company,
		Notes:     r.Notes,
		Raw:       r.Raw,
		CreatedAt: time.Now().UTC(),
	}
}
