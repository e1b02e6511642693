// Package processor bridges the Kafka ingestion boundary and the resolution
// engine. Malformed payloads are logged and committed so they cannot wedge a
// partition; collaborator failures are returned so the message is redelivered.
package processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/resolver"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TouchPointRecorder persists raw activity rows for a contact.
type TouchPointRecorder interface {
	Record(ctx context.Context, contactID string, point *models.RawTouchPoint) error
}

// ContactLookup finds the contact linked to a source reference.
type ContactLookup interface {
	GetBySourceRef(ctx context.Context, ref models.SourceRef) (*models.CanonicalContact, error)
}

// Processor handles incoming collector messages
type Processor struct {
	logger      ectologger.Logger
	resolver    *resolver.Resolver
	contacts    ContactLookup
	touchPoints TouchPointRecorder
}

// NewProcessor creates a new message processor
func NewProcessor(logger ectologger.Logger, res *resolver.Resolver, contacts ContactLookup, touchPoints TouchPointRecorder) *Processor {
	return &Processor{
		logger:      logger,
		resolver:    res,
		contacts:    contacts,
		touchPoints: touchPoints,
	}
}

// HandleRecord processes one source record message from a collector
func (p *Processor) HandleRecord(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleRecord")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	if err := msg.ParseRecord(); err != nil {
		// Malformed payloads will never parse on retry
		log.WithError(err).Error("Failed to parse record message, skipping")
		return nil
	}

	if err := validate.Struct(msg.Record); err != nil {
		log.WithError(validationError(msg.Record, err)).Error("Invalid record message, skipping")
		return nil
	}

	outcome, err := p.resolver.Resolve(ctx, msg.Record.ToRecord())
	if err != nil {
		// Client-class errors are permanent, retrying cannot fix them. A
		// version conflict is the exception: another writer won the contact
		// update race and redelivery will merge cleanly.
		if httperror.IsHTTPError(err) {
			code := httperror.GetStatusCode(err)
			if code < 500 && code != http.StatusConflict {
				log.WithError(err).Error("Record rejected, skipping")
				return nil
			}
		}
		return err
	}

	log.WithFields(map[string]any{
		"contact_id": outcome.Contact.ID,
		"created":    outcome.Created,
		"merged":     outcome.Merged,
		"replayed":   outcome.Replayed,
	}).Debug("Record resolved")
	return nil
}

// HandleTouchPoint processes one activity event message from a collector.
// Events whose source record has not been resolved yet are returned as errors
// so redelivery retries them after the record arrives.
func (p *Processor) HandleTouchPoint(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleTouchPoint")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	if err := msg.ParseTouchPoint(); err != nil {
		log.WithError(err).Error("Failed to parse touch point message, skipping")
		return nil
	}

	if err := validate.Struct(msg.TouchPoint); err != nil {
		log.WithError(validationError(msg.TouchPoint, err)).Error("Invalid touch point message, skipping")
		return nil
	}

	ref := msg.TouchPoint.Ref()
	contact, err := p.contacts.GetBySourceRef(ctx, ref)
	if err != nil {
		return err
	}
	if contact == nil {
		return fmt.Errorf("no contact linked to %s:%s yet", ref.Source, ref.SourceID)
	}

	if err := p.touchPoints.Record(ctx, contact.ID, msg.TouchPoint.ToRawTouchPoint()); err != nil {
		return err
	}

	log.WithFields(map[string]any{
		"contact_id":      contact.ID,
		"source_event_id": msg.TouchPoint.SourceEventID,
	}).Debug("Touch point recorded")
	return nil
}

func validationError(input any, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msg := ""
	for _, fe := range verrs {
		msg += fmt.Sprintf("\n • Failed %T validation for field '%s': rule '%s' expected '%s', got '%v'.", input, fe.StructField(), fe.Tag(), fe.Param(), fe.Value())
	}
	return errors.New(msg)
}
