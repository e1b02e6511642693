// Package timeline derives ordered attribution timelines from per-source
// event rows. Timelines are computed on demand and never persisted.
package timeline

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// timestampLayouts are tried in order when parsing source-native timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Builder assembles attribution timelines from one or more event sources.
type Builder struct {
	logger  ectologger.Logger
	sources []store.EventSource
}

// NewBuilder creates a new Builder
func NewBuilder(logger ectologger.Logger, sources ...store.EventSource) *Builder {
	return &Builder{
		logger:  logger,
		sources: sources,
	}
}

// Build fetches every source's events for the contact and returns them as a
// deterministic ascending timeline. Events whose timestamps cannot be parsed
// are excluded and counted as defects rather than dropped silently. A source
// fetch error fails the whole build; a partial timeline would silently skew
// attribution.
func (b *Builder) Build(ctx context.Context, contactID string) (*models.AttributionTimeline, error) {
	ctx, span := tracing.StartSpan(ctx, "timeline.Builder.Build")
	defer span.End()

	log := b.logger.WithContext(ctx).WithField("contact_id", contactID)

	timeline := &models.AttributionTimeline{ContactID: contactID}
	var events []models.TouchPointEvent

	for _, source := range b.sources {
		raw, err := source.ListForContact(ctx, contactID)
		if err != nil {
			log.WithError(err).Error("Failed to list events for contact")
			return nil, err
		}

		for _, point := range raw {
			occurredAt, ok := parseTimestamp(point.OccurredAtRaw)
			if !ok {
				timeline.DefectCount++
				log.WithFields(map[string]any{
					"source":          point.Source,
					"source_event_id": point.SourceEventID,
					"occurred_at":     point.OccurredAtRaw,
				}).Warn("Unparseable event timestamp excluded from timeline")
				continue
			}

			events = append(events, models.TouchPointEvent{
				ContactID:     contactID,
				Source:        point.Source,
				SourceEventID: point.SourceEventID,
				Type:          point.Type,
				OccurredAt:    occurredAt,
			})
		}
	}

	sortEvents(events)
	assignSequences(events)

	timeline.Events = events
	timeline.SourcesSpan = distinctSources(events)
	if len(events) > 0 {
		first := events[0]
		last := events[len(events)-1]
		timeline.FirstTouch = &first
		timeline.LastTouch = &last
	}

	metrics.RecordTimelineBuild(timeline.DefectCount)
	return timeline, nil
}

// sortEvents orders ascending by occurrence time, breaking ties by source and
// then source-native event id so repeated builds are byte-identical.
func sortEvents(events []models.TouchPointEvent) {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.Before(b.OccurredAt)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.SourceEventID < b.SourceEventID
	})
}

// assignSequences numbers events within each type in timeline order, 1-based.
func assignSequences(events []models.TouchPointEvent) {
	counts := make(map[string]int)
	for i := range events {
		counts[events[i].Type]++
		events[i].SequenceInType = counts[events[i].Type]
	}
}

func distinctSources(events []models.TouchPointEvent) int {
	seen := make(map[models.Source]struct{}, 3)
	for _, event := range events {
		seen[event.Source] = struct{}{}
	}
	return len(seen)
}

func parseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
