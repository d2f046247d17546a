package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/quote-ingestion-service/internal/service"
)

// StatsHandler handles HTTP requests for aggregate statistics
type StatsHandler struct {
	quoteService service.QuoteService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(quoteService service.QuoteService) *StatsHandler {
	return &StatsHandler{
		quoteService: quoteService,
	}
}

// GetStats handles the GET /v1/stats endpoint
// @Summary Get aggregate quote statistics
// @Description Totals, average amount, per-supplier and monthly breakdowns, recomputed from the live collection
// @Tags stats
// @Produce json
// @Success 200 {object} domain.AggregateStats "Aggregate statistics"
// @Failure 500 {object} model.ErrorResponse "Internal server error"
// @Router /v1/stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.quoteService.GetStats(c.Request.Context())
	if err != nil {
		logError(c, "failed_to_compute_stats", err, nil)
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondOK(c, stats)
}
