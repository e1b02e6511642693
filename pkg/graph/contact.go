package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ContactService projects canonical contacts and their linked source records
// into the graph. Satisfies the resolver's Projector interface.
type ContactService struct {
	client *Client
	logger ectologger.Logger
}

// NewContactService creates a new contact projection service
func NewContactService(client *Client, logger ectologger.Logger) *ContactService {
	return &ContactService{
		client: client,
		logger: logger,
	}
}

// ProjectContact upserts the contact node and one SourceRecord node per
// linked pair, connected by LINKED_TO edges
func (s *ContactService) ProjectContact(ctx context.Context, contact *models.CanonicalContact) error {
	ctx, span := tracing.StartSpan(ctx, "graph.ContactService.ProjectContact")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"contact_id":   contact.ID,
		"source_count": contact.SourceCount,
	})

	cypher := `
		MERGE (c:Contact {id: $id})
		SET c.name = $name,
			c.email = $email,
			c.phone = $phone,
			c.company = $company,
			c.source_count = $source_count,
			c.version = $version,
			c.updated_at = $updated_at
		WITH c
		UNWIND $refs AS ref
		MERGE (r:SourceRecord {source: ref.source, source_id: ref.source_id})
		MERGE (r)-[:LINKED_TO]->(c)
		RETURN c
	`

	refs := make([]map[string]any, 0, len(contact.LinkedSources))
	for _, ref := range contact.LinkedSources {
		refs = append(refs, map[string]any{
			"source":    string(ref.Source),
			"source_id": ref.SourceID,
		})
	}

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":           contact.ID,
			"name":         contact.Name,
			"email":        contact.Email,
			"phone":        contact.Phone,
			"company":      contact.Company,
			"source_count": contact.SourceCount,
			"version":      contact.Version,
			"updated_at":   contact.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			"refs":         refs,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})

	if err != nil {
		log.WithError(err).Error("Failed to project contact into graph")
		return fmt.Errorf("failed to project contact into graph: %w", err)
	}

	log.Debug("Projected contact into graph")
	return nil
}
