package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
	"github.com/ridwanfathin/quote-ingestion-service/internal/model"
	"github.com/ridwanfathin/quote-ingestion-service/internal/repository"
	"github.com/ridwanfathin/quote-ingestion-service/internal/service"
)

// QuoteHandler handles HTTP requests for stored quotes
type QuoteHandler struct {
	quoteService service.QuoteService
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(quoteService service.QuoteService) *QuoteHandler {
	return &QuoteHandler{
		quoteService: quoteService,
	}
}

// SearchQuotes handles the GET /v1/quotes endpoint
// @Summary Search stored quotes
// @Description List quote summaries filtered by supplier substring, processed date range and status
// @Tags quotes
// @Produce json
// @Param supplier query string false "Supplier name substring (case-insensitive)"
// @Param start_date query string false "Earliest processed date (YYYY-MM-DD)"
// @Param end_date query string false "Latest processed date (YYYY-MM-DD)"
// @Param status query string false "Quote status (PENDING, COMPLETED, ARCHIVED)"
// @Success 200 {object} model.QuoteListResponse "Matching quotes, most recent first"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Router /v1/quotes [get]
func (h *QuoteHandler) SearchQuotes(c *gin.Context) {
	filter, err := buildQuoteFilter(c)
	if err != nil {
		respondBadRequest(c, ErrInvalidQueryParams, newErrorDetail("query", err.Error()))
		return
	}

	quotes, err := h.quoteService.SearchQuotes(c.Request.Context(), filter)
	if err != nil {
		logError(c, "failed_to_search_quotes", err, nil)
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondOK(c, model.QuoteListResponse{Quotes: quotes, Count: len(quotes)})
}

// RecentQuotes handles the GET /v1/quotes/recent endpoint
// @Summary List recently processed quotes
// @Tags quotes
// @Produce json
// @Param limit query int false "Maximum number of quotes (default 10)"
// @Success 200 {object} model.QuoteListResponse "Recent quotes, most recent first"
// @Failure 400 {object} model.ErrorResponse "Invalid query parameters"
// @Router /v1/quotes/recent [get]
func (h *QuoteHandler) RecentQuotes(c *gin.Context) {
	limit, err := getQueryInt(c, "limit", 0)
	if err != nil {
		respondBadRequest(c, ErrInvalidQueryParams, newErrorDetail("limit", err.Error()))
		return
	}

	quotes, err := h.quoteService.RecentQuotes(c.Request.Context(), limit)
	if err != nil {
		logError(c, "failed_to_list_recent_quotes", err, nil)
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondOK(c, model.QuoteListResponse{Quotes: quotes, Count: len(quotes)})
}

// GetQuote handles the GET /v1/quotes/:id endpoint
// @Summary Get a quote by id
// @Tags quotes
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} domain.Quote "Full quote with items and original text"
// @Failure 400 {object} model.ErrorResponse "Invalid id"
// @Failure 404 {object} model.ErrorResponse "Quote not found"
// @Router /v1/quotes/{id} [get]
func (h *QuoteHandler) GetQuote(c *gin.Context) {
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
		logError(c, "failed_to_get_quote", err, map[string]interface{}{"id": id})
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondOK(c, quote)
}

// DeleteQuote handles the DELETE /v1/quotes/:id endpoint
// @Summary Delete a quote
// @Tags quotes
// @Produce json
// @Param id path int true "Quote ID"
// @Success 204 "Quote deleted"
// @Failure 400 {object} model.ErrorResponse "Invalid id"
// @Failure 404 {object} model.ErrorResponse "Quote not found"
// @Failure 409 {object} model.ErrorResponse "Concurrent modification"
// @Router /v1/quotes/{id} [delete]
func (h *QuoteHandler) DeleteQuote(c *gin.Context) {
	id, err := getPathID(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidID, newErrorDetail("id", err.Error()))
		return
	}

	if err := h.quoteService.DeleteQuote(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondNotFound(c, ErrResourceNotFound)
			return
		}
		if errors.Is(err, repository.ErrWriteConflict) {
			respondConflict(c, "Quote was modified concurrently, retry the request")
			return
		}
		logError(c, "failed_to_delete_quote", err, map[string]interface{}{"id": id})
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondNoContent(c)
}

// UpdateQuoteStatus handles the PATCH /v1/quotes/:id/status endpoint
// @Summary Update a quote's review status
// @Tags quotes
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param status body model.StatusUpdateRequest true "New status"
// @Success 200 {object} domain.Quote "Updated quote"
// @Failure 400 {object} model.ErrorResponse "Invalid id or status"
// @Failure 404 {object} model.ErrorResponse "Quote not found"
// @Failure 409 {object} model.ErrorResponse "Concurrent modification"
// @Router /v1/quotes/{id}/status [patch]
func (h *QuoteHandler) UpdateQuoteStatus(c *gin.Context) {
	id, err := getPathID(c, "id")
	if err != nil {
		respondBadRequest(c, ErrInvalidID, newErrorDetail("id", err.Error()))
		return
	}

	var input model.StatusUpdateRequest
	if err := bindJSON(c, &input); err != nil {
		respondBadRequest(c, ErrInvalidInput, newErrorDetail("status", "Status is required"))
		return
	}

	quote, err := h.quoteService.UpdateQuoteStatus(c.Request.Context(), id, domain.QuoteStatus(input.Status))
	if err != nil {
		if errors.Is(err, service.ErrStatusInvalid) {
			respondBadRequest(c, ErrInvalidInput, newErrorDetail("status", err.Error()))
			return
		}
		if errors.Is(err, repository.ErrNotFound) {
			respondNotFound(c, ErrResourceNotFound)
			return
		}
		if errors.Is(err, repository.ErrWriteConflict) {
			respondConflict(c, "Quote was modified concurrently, retry the request")
			return
		}
		logError(c, "failed_to_update_quote_status", err, map[string]interface{}{"id": id})
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondOK(c, quote)
}

// ClearAllQuotes handles the DELETE /v1/quotes endpoint
// @Summary Delete every stored quote
// @Description Irreversibly removes all quotes. Requires confirm=true; ids are never reused afterwards.
// @Tags quotes
// @Produce json
// @Param confirm query bool true "Must be true"
// @Success 200 {object} model.SuccessResponse "All quotes deleted"
// @Failure 400 {object} model.ErrorResponse "Missing confirmation"
// @Router /v1/quotes [delete]
func (h *QuoteHandler) ClearAllQuotes(c *gin.Context) {
	if !getQueryBool(c, "confirm") {
		respondBadRequest(c, "Clearing all quotes requires confirm=true")
		return
	}

	if err := h.quoteService.ClearAllQuotes(c.Request.Context()); err != nil {
		logError(c, "failed_to_clear_quotes", err, nil)
		respondInternalServerError(c, ErrInternalServer)
		return
	}

	respondOK(c, model.SuccessResponse{Status: "OK", Message: "All quotes deleted"})
}

func buildQuoteFilter(c *gin.Context) (domain.QuoteFilter, error) {
	var filter domain.QuoteFilter
	filter.Supplier = c.Query("supplier")

	if start, err := parseDate(c.Query("start_date")); err != nil {
		return filter, err
	} else if !start.IsZero() {
		filter.StartDate = &start
	}
	if end, err := parseDate(c.Query("end_date")); err != nil {
		return filter, err
	} else if !end.IsZero() {
		// end_date covers the whole day, so filter up to the next midnight
		end = end.AddDate(0, 0, 1)
		filter.EndDate = &end
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.QuoteStatus(statusStr)
		if !status.Valid() {
			return filter, errors.New("status must be one of PENDING, COMPLETED, ARCHIVED")
		}
		filter.Status = &status
	}

	return filter, nil
}
