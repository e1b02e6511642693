package models

// AttributionStats summarizes attribution coverage across a contact
// population.
type AttributionStats struct {
	TotalContacts    int                `json:"total_contacts"`
	ContactsAnalyzed int                `json:"contacts_analyzed"`
	AttributionRate  float64            `json:"attribution_rate"`
	MultiSourceRate  float64            `json:"multi_source_rate"`
	FieldCoverage    float64            `json:"field_coverage"`
	FieldCoverageBy  map[string]float64 `json:"field_coverage_by"`
	TimelineDefects  int                `json:"timeline_defects"`
	Failures         []ItemFailure      `json:"failures,omitempty"`
	FailureCount     int                `json:"failure_count"`
	Partial          bool               `json:"partial"`
	PartialReason    string             `json:"partial_reason,omitempty"`
}

// ItemFailure records one per-item failure inside a batch operation. Batches
// isolate failures and continue; the caller receives counts plus a bounded
// list of reasons.
type ItemFailure struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// BatchResult reports the outcome of resolving a backlog of source records.
type BatchResult struct {
	Resolved int           `json:"resolved"`
	Created  int           `json:"created"`
	Merged   int           `json:"merged"`
	Failed   int           `json:"failed"`
	Failures []ItemFailure `json:"failures,omitempty"`
}
