// Package stats exposes the attribution statistics pass on the operational
// surface.
package stats

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/attribution"
	"github.com/Ramsey-B/clover/pkg/store"
)

// Handler serves attribution statistics over the whole contact population.
type Handler struct {
	logger     ectologger.Logger
	contacts   store.ContactStore
	aggregator *attribution.Aggregator
	opts       attribution.Options
}

// NewHandler creates a new stats Handler. The options act as defaults for
// every pass; seed and sample size can be overridden per request.
func NewHandler(logger ectologger.Logger, contacts store.ContactStore, aggregator *attribution.Aggregator, opts attribution.Options) *Handler {
	return &Handler{
		logger:     logger,
		contacts:   contacts,
		aggregator: aggregator,
		opts:       opts,
	}
}

// Register registers the stats endpoint
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/api/v1/stats/attribution", h.Attribution)
}

// Attribution runs one statistics pass and returns the aggregate result. A
// partial result from an exhausted budget still returns 200; the payload
// carries the partial flag.
func (h *Handler) Attribution(c echo.Context) error {
	ctx := c.Request().Context()

	contacts, err := h.contacts.FindAll(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, len(contacts))
	for i := range contacts {
		ids[i] = contacts[i].ID
	}

	opts := h.opts
	if sample := c.QueryParam("sample_size"); sample != "" {
		if n, err := strconv.Atoi(sample); err == nil {
			opts.SampleSize = n
		}
	}
	if seed := c.QueryParam("seed"); seed != "" {
		if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
			opts.Seed = n
		}
	}

	result, err := h.aggregator.ComputeStats(ctx, ids, opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
