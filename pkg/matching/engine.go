// Package matching implements contact match scoring. Candidates are ranked on
// an ordered confidence ladder; exact email is the only field treated as a
// reliable global key, and name similarity alone never produces more than a
// LOW confidence match.
package matching

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Name similarity metrics.
const (
	MetricLevenshtein = "levenshtein"
	MetricJaroWinkler = "jaro-winkler"
)

// Config contains configuration for the match engine.
type Config struct {
	// NameSimilarityThreshold is the minimum similarity for a fuzzy name
	// match (default: 0.8).
	NameSimilarityThreshold float64
	// NameSimilarityMetric selects the similarity algorithm, levenshtein or
	// jaro-winkler (default: levenshtein).
	NameSimilarityMetric string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		NameSimilarityThreshold: 0.8,
		NameSimilarityMetric:    MetricLevenshtein,
	}
}

// Engine scores a source record against the canonical contact population.
type Engine struct {
	logger ectologger.Logger
	scorer *Scorer
	cfg    Config
}

// NewEngine creates a new match engine
func NewEngine(logger ectologger.Logger, cfg Config) *Engine {
	if cfg.NameSimilarityThreshold <= 0 {
		cfg.NameSimilarityThreshold = DefaultConfig().NameSimilarityThreshold
	}
	if cfg.NameSimilarityMetric == "" {
		cfg.NameSimilarityMetric = DefaultConfig().NameSimilarityMetric
	}
	return &Engine{
		logger: logger,
		scorer: NewScorer(),
		cfg:    cfg,
	}
}

// Score evaluates the record against every candidate and returns the single
// highest-confidence result. Ties at equal confidence break toward the most
// recently updated candidate, surfaced as a warning for audit.
func (e *Engine) Score(ctx context.Context, record *models.SourceRecord, candidates []models.CanonicalContact) *models.MatchResult {
	ctx, span := tracing.StartSpan(ctx, "matching.Engine.Score")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"source":          record.Source,
		"source_id":       record.SourceID,
		"candidate_count": len(candidates),
	})

	best := &models.MatchResult{Confidence: models.ConfidenceNone}
	tied := false

	for i := range candidates {
		candidate := &candidates[i]
		confidence, reason := e.scoreCandidate(record, candidate)
		if confidence == models.ConfidenceNone {
			continue
		}

		switch {
		case confidence > best.Confidence:
			best = &models.MatchResult{Confidence: confidence, Candidate: candidate, Reason: reason}
			tied = false
		case confidence == best.Confidence && best.Candidate != nil:
			tied = true
			if candidate.UpdatedAt.After(best.Candidate.UpdatedAt) {
				best = &models.MatchResult{Confidence: confidence, Candidate: candidate, Reason: reason}
			}
		}
	}

	if tied && best.Candidate != nil {
		best.Reason = best.Reason + "; tie broken by most recent update"
		log.WithFields(map[string]any{
			"confidence":   best.Confidence.String(),
			"candidate_id": best.Candidate.ID,
		}).Warn("Ambiguous match resolved by recency tie-break")
	}

	if best.Candidate != nil {
		log.WithFields(map[string]any{
			"confidence":   best.Confidence.String(),
			"candidate_id": best.Candidate.ID,
		}).Debug("Match found")
	} else {
		log.Debug("No match above LOW threshold")
	}

	return best
}

// scoreCandidate walks the confidence ladder top-down; first rung that holds
// wins.
func (e *Engine) scoreCandidate(record *models.SourceRecord, candidate *models.CanonicalContact) (models.MatchConfidence, string) {
	// EXACT: normalized emails equal
	if record.Email != "" && candidate.Email != "" {
		if normalizers.NormalizeEmail(record.Email) == normalizers.NormalizeEmail(candidate.Email) {
			return models.ConfidenceExact, "normalized email equality"
		}
	}

	// HIGH: phone digits equal, or exact name plus company domain
	if phonesMatch(record.Phone, candidate.Phone) {
		return models.ConfidenceHigh, "phone digits equality"
	}

	nameEqual := record.Name != "" && candidate.Name != "" &&
		e.scorer.ExactMatch(record.Name, candidate.Name, false) == 1.0
	if nameEqual && companyDomainsMatch(record.Company, candidate.Company) {
		return models.ConfidenceHigh, "exact name and company domain"
	}

	// MEDIUM / LOW: fuzzy name similarity, with or without corroboration
	similarity := e.nameSimilarity(record.Name, candidate.Name)
	if similarity < e.cfg.NameSimilarityThreshold {
		return models.ConfidenceNone, ""
	}

	if phonesMatch(record.Phone, candidate.Phone) || companiesMatch(record.Company, candidate.Company) {
		return models.ConfidenceMedium, fmt.Sprintf("name similarity %.2f with corroborating field", similarity)
	}

	return models.ConfidenceLow, fmt.Sprintf("name similarity %.2f, no corroborating field", similarity)
}

func (e *Engine) nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	na := normalizers.NormalizeName(a)
	nb := normalizers.NormalizeName(b)
	if e.cfg.NameSimilarityMetric == MetricJaroWinkler {
		return e.scorer.JaroWinkler(na, nb)
	}
	return e.scorer.Levenshtein(na, nb)
}

func phonesMatch(a, b string) bool {
	na := normalizers.NormalizePhone(a)
	nb := normalizers.NormalizePhone(b)
	return na != "" && nb != "" && na == nb
}

func companyDomainsMatch(a, b string) bool {
	na := normalizers.NormalizeCompanyDomain(a)
	nb := normalizers.NormalizeCompanyDomain(b)
	return na != "" && nb != "" && na == nb
}

func companiesMatch(a, b string) bool {
	return companyDomainsMatch(a, b)
}
