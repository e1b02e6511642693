package models

import (
	"encoding/json"
	"strings"
	"time"
)

// CanonicalContact is the single merged identity representing one real-world
// person across all sources.
type CanonicalContact struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Email         string          `json:"email,omitempty" db:"email"`
	Phone         string          `json:"phone,omitempty" db:"phone"`
	Company       string          `json:"company,omitempty" db:"company"`
	Notes         string          `json:"notes,omitempty" db:"notes"`
	LinkedSources []SourceRef     `json:"linked_sources" db:"-"`
	SourceCount   int             `json:"source_count" db:"source_count"`
	Version       int             `json:"version" db:"version"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	LinkedRaw     json.RawMessage `json:"-" db:"linked_sources"`
}

// HasSourceRef reports whether the pair is already linked to this contact.
func (c *CanonicalContact) HasSourceRef(ref SourceRef) bool {
	for _, r := range c.LinkedSources {
		if r == ref {
			return true
		}
	}
	return false
}

// LinkSource adds the pair if absent and recomputes SourceCount. Pairs are
// never removed.
func (c *CanonicalContact) LinkSource(ref SourceRef) {
	if !c.HasSourceRef(ref) {
		c.LinkedSources = append(c.LinkedSources, ref)
	}
	c.SourceCount = c.DistinctSourceCount()
}

// DistinctSourceCount counts distinct source systems (not records) among the
// linked pairs. Bounded by the number of known sources.
func (c *CanonicalContact) DistinctSourceCount() int {
	seen := make(map[Source]struct{}, 3)
	for _, r := range c.LinkedSources {
		seen[r.Source] = struct{}{}
	}
	return len(seen)
}

// AppendNote appends note text with a separator, never overwriting existing
// notes.
func (c *CanonicalContact) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if c.Notes == "" {
		c.Notes = note
		return
	}
	if strings.Contains(c.Notes, note) {
		return
	}
	c.Notes = c.Notes + "\n---\n" + note
}

// MarshalLinkedSources serializes the linked pairs for JSONB storage.
func (c *CanonicalContact) MarshalLinkedSources() (json.RawMessage, error) {
	if c.LinkedSources == nil {
		return json.RawMessage("[]"), nil
	}
	return json.Marshal(c.LinkedSources)
}

// UnmarshalLinkedSources hydrates LinkedSources from the stored JSONB column.
func (c *CanonicalContact) UnmarshalLinkedSources() error {
	if len(c.LinkedRaw) == 0 {
		c.LinkedSources = nil
		return nil
	}
	return json.Unmarshal(c.LinkedRaw, &c.LinkedSources)
}
