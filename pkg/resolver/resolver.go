// Package resolver implements the identity resolution pipeline: an incoming
// source record is matched against the canonical contact population, then
// merged into an existing contact or used to create a new one. Resolution is
// idempotent on the record's (source, sourceID) pair and serialized per
// identity key so concurrent deliveries cannot create duplicates.
package resolver

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// EventPublisher receives contact lifecycle notifications. Publish failures
// are logged and never fail the resolution.
type EventPublisher interface {
	ContactCreated(ctx context.Context, contact *models.CanonicalContact, ref models.SourceRef) error
	ContactMerged(ctx context.Context, contact *models.CanonicalContact, match *models.MatchResult, ref models.SourceRef) error
}

// Recorder receives resolution outcome counts and timings for metrics.
type Recorder interface {
	RecordResolution(outcome string, confidence string)
	RecordResolutionDuration(seconds float64)
}

// Projector mirrors resolved contacts into a secondary read model. Projection
// failures are logged and never fail the resolution.
type Projector interface {
	ProjectContact(ctx context.Context, contact *models.CanonicalContact) error
}

// Config contains configuration for the resolver.
type Config struct {
	// MergeThreshold is the minimum match confidence required to merge into
	// an existing contact instead of creating a new one (default: HIGH).
	MergeThreshold models.MatchConfidence
	// LockTTL bounds how long an identity lock may be held (default: 30s).
	LockTTL time.Duration
	// BatchWorkers is the batch resolution concurrency (default: 4).
	BatchWorkers int
	// MaxFailures bounds the failure detail list on batch results
	// (default: 25). Counts are always exact.
	MaxFailures int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MergeThreshold: models.ConfidenceHigh,
		LockTTL:        30 * time.Second,
		BatchWorkers:   4,
		MaxFailures:    25,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.MergeThreshold <= models.ConfidenceNone {
		c.MergeThreshold = defaults.MergeThreshold
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.BatchWorkers <= 0 {
		c.BatchWorkers = defaults.BatchWorkers
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = defaults.MaxFailures
	}
	return c
}

// Outcome describes what a resolution did.
type Outcome struct {
	Contact *models.CanonicalContact
	// Created is true when a new canonical contact was created.
	Created bool
	// Merged is true when the record was merged into an existing contact.
	Merged bool
	// Replayed is true when the record's pair was already linked and the
	// resolution was an idempotent re-apply.
	Replayed bool
	Match    *models.MatchResult
}

// Resolver drives source records through match, merge, and persistence.
type Resolver struct {
	logger    ectologger.Logger
	contacts  store.ContactStore
	records   store.RecordStore
	engine    *matching.Engine
	merger    *merging.FieldMerger
	locker    Locker
	publisher EventPublisher
	recorder  Recorder
	projector Projector
	cfg       Config
}

// NewResolver creates a new Resolver. Passing a nil locker falls back to
// in-process per-key locking.
func NewResolver(logger ectologger.Logger, contacts store.ContactStore, records store.RecordStore, engine *matching.Engine, locker Locker, cfg Config) *Resolver {
	if locker == nil {
		locker = NewKeyedLocker()
	}
	return &Resolver{
		logger:   logger,
		contacts: contacts,
		records:  records,
		engine:   engine,
		merger:   merging.NewFieldMerger(),
		locker:   locker,
		cfg:      cfg.withDefaults(),
	}
}

// WithPublisher attaches a contact event publisher.
func (r *Resolver) WithPublisher(p EventPublisher) *Resolver {
	r.publisher = p
	return r
}

// WithRecorder attaches a metrics recorder.
func (r *Resolver) WithRecorder(rec Recorder) *Resolver {
	r.recorder = rec
	return r
}

// WithProjector attaches a read-model projector.
func (r *Resolver) WithProjector(p Projector) *Resolver {
	r.projector = p
	return r
}

// Resolve matches the record against the canonical population and merges or
// creates accordingly. Safe to call concurrently and safe to replay.
func (r *Resolver) Resolve(ctx context.Context, record *models.SourceRecord) (*Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.Resolve")
	defer span.End()

	if err := validateRecord(record); err != nil {
		return nil, err
	}

	if r.recorder != nil {
		start := time.Now()
		defer func() {
			r.recorder.RecordResolutionDuration(time.Since(start).Seconds())
		}()
	}

	var outcome *Outcome
	err := r.locker.WithLock(ctx, identityKey(record), r.cfg.LockTTL, func() error {
		var err error
		outcome, err = r.resolveLocked(ctx, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (r *Resolver) resolveLocked(ctx context.Context, record *models.SourceRecord) (*Outcome, error) {
	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"source":    record.Source,
		"source_id": record.SourceID,
	})

	if err := r.records.Save(ctx, record); err != nil {
		log.WithError(err).Error("Failed to persist source record")
		return nil, err
	}

	// Replay: the pair is already linked to a contact. Skip matching and
	// return that contact unchanged so redelivery is a strict no-op.
	linked, err := r.contacts.GetBySourceRef(ctx, record.Ref())
	if err != nil {
		return nil, err
	}
	if linked != nil {
		log.WithField("contact_id", linked.ID).Debug("Record already linked, skipping match")
		r.record("replayed", models.ConfidenceNone)
		return &Outcome{Contact: linked, Replayed: true}, nil
	}

	candidates, err := r.contacts.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	match := r.engine.Score(ctx, record, candidates)
	if match.Candidate != nil && match.Confidence >= r.cfg.MergeThreshold {
		return r.mergeInto(ctx, log, record, match)
	}
	return r.createNew(ctx, log, record, match)
}

func (r *Resolver) mergeInto(ctx context.Context, log ectologger.Logger, record *models.SourceRecord, match *models.MatchResult) (*Outcome, error) {
	merged := r.merger.Merge(match.Candidate, record)
	updated, err := r.contacts.Update(ctx, merged)
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"contact_id": updated.ID,
		"confidence": match.Confidence.String(),
		"reason":     match.Reason,
	}).Info("Merged record into existing contact")

	if r.publisher != nil {
		if err := r.publisher.ContactMerged(ctx, updated, match, record.Ref()); err != nil {
			log.WithError(err).Warn("Failed to publish contact merged event")
		}
	}
	r.project(ctx, log, updated)
	r.record("merged", match.Confidence)

	return &Outcome{Contact: updated, Merged: true, Match: match}, nil
}

func (r *Resolver) createNew(ctx context.Context, log ectologger.Logger, record *models.SourceRecord, match *models.MatchResult) (*Outcome, error) {
	created, err := r.contacts.Create(ctx, r.merger.Merge(nil, record))
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"contact_id":      created.ID,
		"best_confidence": match.Confidence.String(),
	}).Info("Created new canonical contact")

	if r.publisher != nil {
		if err := r.publisher.ContactCreated(ctx, created, record.Ref()); err != nil {
			log.WithError(err).Warn("Failed to publish contact created event")
		}
	}
	r.project(ctx, log, created)
	r.record("created", match.Confidence)

	return &Outcome{Contact: created, Created: true, Match: match}, nil
}

func (r *Resolver) project(ctx context.Context, log ectologger.Logger, contact *models.CanonicalContact) {
	if r.projector == nil {
		return
	}
	if err := r.projector.ProjectContact(ctx, contact); err != nil {
		log.WithError(err).WithField("contact_id", contact.ID).Warn("Failed to project contact")
	}
}

func (r *Resolver) record(outcome string, confidence models.MatchConfidence) {
	if r.recorder != nil {
		r.recorder.RecordResolution(outcome, confidence.String())
	}
}

func validateRecord(record *models.SourceRecord) error {
	if record == nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "record is required")
	}
	if !record.Source.Valid() {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown source %q", record.Source)
	}
	if record.SourceID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "source_id is required")
	}
	if record.Name == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	return nil
}

// identityKey picks the strongest available identity field so concurrent
// deliveries of the same person contend on the same lock.
func identityKey(record *models.SourceRecord) string {
	if email := normalizers.NormalizeEmail(record.Email); email != "" {
		return "email:" + email
	}
	if phone := normalizers.NormalizePhone(record.Phone); phone != "" {
		return "phone:" + phone
	}
	return "ref:" + string(record.Source) + ":" + record.SourceID
}
