package models

import "time"

// TouchPointEvent is a normalized projection of one underlying activity,
// meeting, or form submission. Derived on demand; never persisted by the
// engine.
type TouchPointEvent struct {
	ContactID      string    `json:"contact_id"`
	Source         Source    `json:"source"`
	SourceEventID  string    `json:"source_event_id"`
	Type           string    `json:"type"`
	OccurredAt     time.Time `json:"occurred_at"`
	SequenceInType int       `json:"sequence_in_type"`
}

// AttributionTimeline is the ordered, multi-source touch-point history of one
// canonical contact. Events ascend by OccurredAt; ties break by source then
// source-native event id so the ordering is deterministic.
type AttributionTimeline struct {
	ContactID   string            `json:"contact_id"`
	Events      []TouchPointEvent `json:"events"`
	FirstTouch  *TouchPointEvent  `json:"first_touch,omitempty"`
	LastTouch   *TouchPointEvent  `json:"last_touch,omitempty"`
	DefectCount int               `json:"defect_count"`
	SourcesSpan int               `json:"sources_span"`
}

// HasAttribution reports whether the timeline contains at least one touch
// point.
func (t *AttributionTimeline) HasAttribution() bool {
	return len(t.Events) > 0
}

// IsMultiSource reports whether the timeline spans two or more distinct
// source systems.
func (t *AttributionTimeline) IsMultiSource() bool {
	return t.SourcesSpan >= 2
}

// RawTouchPoint is the unparsed event row returned by the per-source event
// repositories. The timestamp is kept as the source-native string so the
// timeline builder can account for unparseable values instead of dropping
// them silently.
type RawTouchPoint struct {
	Source        Source `json:"source" db:"source"`
	SourceEventID string `json:"source_event_id" db:"source_event_id"`
	Type          string `json:"type" db:"type"`
	OccurredAtRaw string `json:"occurred_at" db:"occurred_at"`
}
