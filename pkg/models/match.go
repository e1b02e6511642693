package models

// MatchConfidence is the ordered strength-of-match classification. It
// controls whether an automatic merge occurs downstream.
type MatchConfidence int

const (
	ConfidenceNone MatchConfidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceExact
)

var confidenceNames = map[MatchConfidence]string{
	ConfidenceNone:   "none",
	ConfidenceLow:    "low",
	ConfidenceMedium: "medium",
	ConfidenceHigh:   "high",
	ConfidenceExact:  "exact",
}

func (c MatchConfidence) String() string {
	if name, ok := confidenceNames[c]; ok {
		return name
	}
	return "none"
}

// ParseConfidence maps a confidence name back to its level. Unknown names
// report ok=false.
func ParseConfidence(name string) (MatchConfidence, bool) {
	for level, n := range confidenceNames {
		if n == name {
			return level, true
		}
	}
	return ConfidenceNone, false
}

// MatchResult is the outcome of scoring a source record against the
// canonical contact population. Reason is for audit and debugging only and
// is never used for logic.
type MatchResult struct {
	Confidence MatchConfidence   `json:"confidence"`
	Candidate  *CanonicalContact `json:"candidate,omitempty"`
	Reason     string            `json:"reason,omitempty"`
}
