package models

// IngestTouchPointRequest is the inbound payload describing one activity,
// meeting, or form submission observed by a collector. OccurredAt stays a raw
// string; parsing and defect accounting belong to the timeline builder.
type IngestTouchPointRequest struct {
	Source        string `json:"source" validate:"required,oneof=crm scheduling form"`
	SourceID      string `json:"source_id" validate:"required"`
	SourceEventID string `json:"source_event_id" validate:"required"`
	Type          string `json:"type" validate:"required"`
	OccurredAt    string `json:"occurred_at"`
}

// Ref returns the source record reference the event belongs to.
func (r *IngestTouchPointRequest) Ref() SourceRef {
	return SourceRef{Source: Source(r.Source), SourceID: r.SourceID}
}

// ToRawTouchPoint converts the request into a raw touch point row.
func (r *IngestTouchPointRequest) ToRawTouchPoint() *RawTouchPoint {
	return &RawTouchPoint{
		Source:        Source(r.Source),
		SourceEventID: r.SourceEventID,
		Type:          r.Type,
		OccurredAtRaw: r.OccurredAt,
	}
}
