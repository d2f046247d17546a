package service

import (
	"context"
	"fmt"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
	"github.com/ridwanfathin/quote-ingestion-service/internal/repository"
)

// ErrStatusInvalid is returned when a status transition names an unknown
// status.
var ErrStatusInvalid = fmt.Errorf("invalid quote status")

// QuoteService defines the interface for stored-quote business logic
type QuoteService interface {
	GetQuote(ctx context.Context, id int64) (*domain.Quote, error)
	DeleteQuote(ctx context.Context, id int64) error
	UpdateQuoteStatus(ctx context.Context, id int64, status domain.QuoteStatus) (*domain.Quote, error)

	SearchQuotes(ctx context.Context, filter domain.QuoteFilter) ([]domain.QuoteSummary, error)
	RecentQuotes(ctx context.Context, limit int) ([]domain.QuoteSummary, error)
	ListQuotesWithItems(ctx context.Context) ([]domain.Quote, error)

	ClearAllQuotes(ctx context.Context) error
	GetStats(ctx context.Context) (*domain.AggregateStats, error)
}

// QuoteServiceImpl implements the QuoteService interface
type QuoteServiceImpl struct {
	repository       repository.QuoteRepository
	recentLimit      int
	recentWithinDays int
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(repo repository.QuoteRepository, recentLimit, recentWithinDays int) QuoteService {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	if recentWithinDays <= 0 {
		recentWithinDays = 7
	}
	return &QuoteServiceImpl{
		repository:       repo,
		recentLimit:      recentLimit,
		recentWithinDays: recentWithinDays,
	}
}

// GetQuote retrieves a quote by its id.
func (s *QuoteServiceImpl) GetQuote(ctx context.Context, id int64) (*domain.Quote, error) {
	return s.repository.GetByID(ctx, id)
}

// DeleteQuote removes a quote and its items.
func (s *QuoteServiceImpl) DeleteQuote(ctx context.Context, id int64) error {
	return s.repository.Delete(ctx, id)
}

// UpdateQuoteStatus moves a quote between review states.
func (s *QuoteServiceImpl) UpdateQuoteStatus(ctx context.Context, id int64, status domain.QuoteStatus) (*domain.Quote, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrStatusInvalid, status)
	}
	return s.repository.UpdateStatus(ctx, id, status)
}

// SearchQuotes returns summaries matching the filter, most recent first.
func (s *QuoteServiceImpl) SearchQuotes(ctx context.Context, filter domain.QuoteFilter) ([]domain.QuoteSummary, error) {
	return s.repository.Search(ctx, filter)
}

// RecentQuotes returns the most recently processed quotes. limit <= 0 falls
// back to the configured default.
func (s *QuoteServiceImpl) RecentQuotes(ctx context.Context, limit int) ([]domain.QuoteSummary, error) {
	if limit <= 0 {
		limit = s.recentLimit
	}
	return s.repository.Recent(ctx, limit, s.recentWithinDays)
}

// ListQuotesWithItems returns every stored quote in full, for export.
func (s *QuoteServiceImpl) ListQuotesWithItems(ctx context.Context) ([]domain.Quote, error) {
	return s.repository.ListAllWithItems(ctx)
}

// ClearAllQuotes irreversibly removes every stored quote. Confirmation is
// enforced at the transport layer, not here.
func (s *QuoteServiceImpl) ClearAllQuotes(ctx context.Context) error {
	return s.repository.ClearAll(ctx)
}

// GetStats computes aggregates over the current collection.
func (s *QuoteServiceImpl) GetStats(ctx context.Context) (*domain.AggregateStats, error) {
	return s.repository.Stats(ctx)
}
