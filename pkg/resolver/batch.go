package resolver

import (
	"context"
	"sync"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ResolveBatch resolves a backlog of records with a bounded worker pool.
// Failures are isolated per record: the batch continues and the result carries
// exact counts plus a bounded list of failure reasons. A cancelled context
// stops dispatching; records already in flight finish.
func (r *Resolver) ResolveBatch(ctx context.Context, records []*models.SourceRecord) *models.BatchResult {
	ctx, span := tracing.StartSpan(ctx, "resolver.Resolver.ResolveBatch")
	defer span.End()

	result := &models.BatchResult{}
	if len(records) == 0 {
		return result
	}

	workers := r.cfg.BatchWorkers
	if workers > len(records) {
		workers = len(records)
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan *models.SourceRecord)
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				outcome, err := r.Resolve(ctx, record)

				mu.Lock()
				if err != nil {
					result.Failed++
					if len(result.Failures) < r.cfg.MaxFailures {
						result.Failures = append(result.Failures, models.ItemFailure{
							ItemID: string(record.Source) + ":" + record.SourceID,
							Reason: err.Error(),
						})
					}
				} else {
					result.Resolved++
					if outcome.Created {
						result.Created++
					}
					if outcome.Merged {
						result.Merged++
					}
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, record := range records {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- record:
		}
	}
	close(jobs)
	wg.Wait()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"total":    len(records),
		"resolved": result.Resolved,
		"created":  result.Created,
		"merged":   result.Merged,
		"failed":   result.Failed,
	}).Info("Batch resolution complete")

	return result
}
