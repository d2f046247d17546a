package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
	"github.com/ridwanfathin/quote-ingestion-service/internal/export"
	"github.com/ridwanfathin/quote-ingestion-service/internal/repository"
	"github.com/ridwanfathin/quote-ingestion-service/internal/service"
)

// ExportHandler handles HTTP requests for exporting stored quotes
type ExportHandler struct {
	quoteService service.QuoteService
}

// NewExportHandler creates a new export handler
func NewExportHandler(quoteService service.QuoteService) *ExportHandler {
	return &ExportHandler{
		quoteService: quoteService,
	}
}

// ExportQuotes handles the GET /v1/quotes/export endpoint
// @Summary Export every stored quote
// @Description Download the full collection as CSV (flat), JSON (nested, with items) or XLSX
// @Tags export
// @Produce json
// @Param format query string false "csv, json or xlsx (default csv)"
// @Success 200 {string} string "Exported document"
// @Failure 400 {object} model.ErrorResponse "Unsupported format"
// @Router /v1/quotes/export [get]
func (h *ExportHandler) ExportQuotes(c *gin.Context) {
	quotes, err := h.quoteService.ListQuotesWithItems(c.Request.Context())
	if err != nil {
		logError(c, "failed_to_list_quotes_for_export", err, nil)
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	h.writeExport(c, quotes, "quotes")
}

// ExportQuote handles the GET /v1/quotes/:id/export endpoint
// @Summary Export a single quote
// @Tags export
// @Produce json
// @Param id path int true "Quote ID"
// @Param format query string false "csv, json or xlsx (default csv)"
// @Success 200 {string} string "Exported document"
// @Failure 400 {object} model.ErrorResponse "Invalid id or format"
// @Failure 404 {object} model.ErrorResponse "Quote not found"
// @Router /v1/quotes/{id}/export [get]
func (h *ExportHandler) ExportQuote(c *gin.Context) {
	id, err := getPathID(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidID, newErrorDetail("id", err.Error()))
		return
	}

	quote, err := h.quoteService.GetQuote(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondNotFound(c, ErrResourceNotFound)
			return
		}
		logError(c, "failed_to_get_quote_for_export", err, map[string]interface{}{"id": id})
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	h.writeExport(c, []domain.Quote{*quote}, fmt.Sprintf("quote_%d", id))
}

func (h *ExportHandler) writeExport(c *gin.Context, quotes []domain.Quote, basename string) {
	format := c.DefaultQuery("format", "csv")

	var (
		out         []byte
		contentType string
		filename    string
		err         error
	)
	switch format {
	case "csv":
		out, err = export.QuotesCSV(quotes)
		contentType = "text/csv"
		filename = basename + ".csv"
	case "json":
		out, err = export.QuotesJSON(quotes)
		contentType = "application/json"
		filename = basename + ".json"
	case "xlsx":
		out, err = export.QuotesXLSX(quotes)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = basename + ".xlsx"
	default:
		respondBadRequest(c, "Unsupported format: expected csv, json or xlsx", newErrorDetail("format", format))
		return
	}
	if err != nil {
		logError(c, "failed_to_render_export", err, map[string]interface{}{"format": format})
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(StatusOK, contentType, out)
}
