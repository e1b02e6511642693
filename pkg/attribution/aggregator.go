// Package attribution computes population-level attribution statistics over
// the canonical contact store.
package attribution

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/timeline"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// coverageFields is the fixed set of contact fields field-coverage statistics
// are reported against.
var coverageFields = []string{"name", "email", "phone", "company"}

// Options controls one statistics pass.
type Options struct {
	// SampleSize caps how many contacts are analyzed. Zero or a value at or
	// above the population size analyzes everything. Sampling is uniform
	// without replacement.
	SampleSize int
	// Seed makes the sample reproducible. Zero seeds from the clock.
	Seed int64
	// Budget is a wall-clock bound for the pass. When exceeded the
	// aggregator returns what it has, flagged as partial, instead of an
	// error. Zero means no bound beyond the caller's context.
	Budget time.Duration
	// MaxFailures bounds the per-item failure detail list (default: 25).
	MaxFailures int
}

// Aggregator scans contacts, builds their timelines, and aggregates
// attribution coverage.
type Aggregator struct {
	logger   ectologger.Logger
	contacts store.ContactStore
	builder  *timeline.Builder
}

// NewAggregator creates a new Aggregator
func NewAggregator(logger ectologger.Logger, contacts store.ContactStore, builder *timeline.Builder) *Aggregator {
	return &Aggregator{
		logger:   logger,
		contacts: contacts,
		builder:  builder,
	}
}

// ComputeStats analyzes the given contact ids, or a uniform sample of them,
// and returns aggregate attribution statistics. Per-contact failures are
// isolated and counted; only a cancelled context or an exhausted budget ends
// the pass early, and then the result is returned flagged as partial rather
// than as an error.
//
// ContactsAnalyzed counts contacts that were analyzed successfully, so it can
// fall short of the sample size; failed items are excluded from every rate and
// reported through FailureCount and Failures instead.
func (a *Aggregator) ComputeStats(ctx context.Context, contactIDs []string, opts Options) (*models.AttributionStats, error) {
	ctx, span := tracing.StartSpan(ctx, "attribution.Aggregator.ComputeStats")
	defer span.End()

	if opts.MaxFailures <= 0 {
		opts.MaxFailures = 25
	}
	if opts.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Budget)
		defer cancel()
	}

	log := a.logger.WithContext(ctx).WithFields(map[string]any{
		"population":  len(contactIDs),
		"sample_size": opts.SampleSize,
	})

	sampled := sample(contactIDs, opts.SampleSize, opts.Seed)

	stats := &models.AttributionStats{
		TotalContacts:   len(contactIDs),
		FieldCoverageBy: make(map[string]float64, len(coverageFields)),
	}

	var (
		analyzed       int
		withTouch      int
		multiSource    int
		coverageSum    float64
		coverageCounts = make(map[string]int, len(coverageFields))
	)

	for _, id := range sampled {
		if err := ctx.Err(); err != nil {
			stats.Partial = true
			stats.PartialReason = fmt.Sprintf("budget exceeded after %d of %d contacts", analyzed, len(sampled))
			log.WithError(err).Warn("Statistics pass ended early, returning partial result")
			break
		}

		contact, err := a.contacts.Get(ctx, id)
		if err != nil {
			a.recordFailure(stats, opts, id, err)
			continue
		}

		tl, err := a.builder.Build(ctx, id)
		if err != nil {
			a.recordFailure(stats, opts, id, err)
			continue
		}

		analyzed++
		if tl.HasAttribution() {
			withTouch++
		}
		if tl.IsMultiSource() {
			multiSource++
		}
		stats.TimelineDefects += tl.DefectCount

		nonEmpty := 0
		for _, field := range coverageFields {
			if fieldValue(contact, field) != "" {
				nonEmpty++
				coverageCounts[field]++
			}
		}
		coverageSum += float64(nonEmpty) / float64(len(coverageFields))
	}

	stats.ContactsAnalyzed = analyzed
	if analyzed > 0 {
		stats.AttributionRate = float64(withTouch) / float64(analyzed)
		stats.MultiSourceRate = float64(multiSource) / float64(analyzed)
		stats.FieldCoverage = coverageSum / float64(analyzed)
		for _, field := range coverageFields {
			stats.FieldCoverageBy[field] = float64(coverageCounts[field]) / float64(analyzed)
		}
	}

	log.WithFields(map[string]any{
		"analyzed":          stats.ContactsAnalyzed,
		"attribution_rate":  stats.AttributionRate,
		"multi_source_rate": stats.MultiSourceRate,
		"failures":          stats.FailureCount,
		"partial":           stats.Partial,
	}).Info("Attribution statistics computed")

	metrics.RecordStatsPass(stats.Partial)
	return stats, nil
}

func (a *Aggregator) recordFailure(stats *models.AttributionStats, opts Options, id string, err error) {
	stats.FailureCount++
	if len(stats.Failures) < opts.MaxFailures {
		stats.Failures = append(stats.Failures, models.ItemFailure{ItemID: id, Reason: err.Error()})
	}
}

// sample draws size ids uniformly without replacement. Order of the result is
// the shuffle order, which only depends on the seed and the input order.
func sample(ids []string, size int, seed int64) []string {
	if size <= 0 || size >= len(ids) {
		out := make([]string, len(ids))
		copy(out, ids)
		return out
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	out := make([]string, len(ids))
	copy(out, ids)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out[:size]
}

func fieldValue(contact *models.CanonicalContact, field string) string {
	switch field {
	case "name":
		return contact.Name
	case "email":
		return contact.Email
	case "phone":
		return contact.Phone
	case "company":
		return contact.Company
	}
	return ""
}
