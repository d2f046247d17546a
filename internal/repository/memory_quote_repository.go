package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

// MemoryQuoteRepository is an in-memory QuoteRepository. It backs tests and
// local runs without a database; semantics match the Postgres implementation,
// including ids that keep climbing after deletes and after ClearAll.
type MemoryQuoteRepository struct {
	mu     sync.RWMutex
	nextID int64
	quotes map[int64]*domain.Quote
}

// NewMemoryQuoteRepository creates an empty in-memory repository.
func NewMemoryQuoteRepository() *MemoryQuoteRepository {
	return &MemoryQuoteRepository{
		nextID: 1,
		quotes: make(map[int64]*domain.Quote),
	}
}

// Insert stores a new quote and returns it with its assigned id.
func (r *MemoryQuoteRepository) Insert(_ context.Context, quote *domain.Quote) (*domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := cloneQuote(quote)
	stored.ID = r.nextID
	r.nextID++
	if stored.ProcessedAt.IsZero() {
		stored.ProcessedAt = time.Now()
	}
	if stored.Status == "" {
		stored.Status = domain.StatusCompleted
	}
	r.quotes[stored.ID] = stored

	return cloneQuote(stored), nil
}

// GetByID retrieves a quote with its items.
func (r *MemoryQuoteRepository) GetByID(_ context.Context, id int64) (*domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quote, ok := r.quotes[id]
	if !ok {
		return nil, fmt.Errorf("quote %d: %w", id, ErrNotFound)
	}
	return cloneQuote(quote), nil
}

// Delete removes a quote and its items.
func (r *MemoryQuoteRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.quotes[id]; !ok {
		return fmt.Errorf("quote %d: %w", id, ErrNotFound)
	}
	delete(r.quotes, id)
	return nil
}

// UpdateStatus changes a quote's review status and returns the updated record.
func (r *MemoryQuoteRepository) UpdateStatus(_ context.Context, id int64, status domain.QuoteStatus) (*domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	quote, ok := r.quotes[id]
	if !ok {
		return nil, fmt.Errorf("quote %d: %w", id, ErrNotFound)
	}
	quote.Status = status
	return cloneQuote(quote), nil
}

// Search returns summaries matching the filter, most recent first.
func (r *MemoryQuoteRepository) Search(_ context.Context, filter domain.QuoteFilter) ([]domain.QuoteSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := []domain.QuoteSummary{}
	for _, quote := range r.quotes {
		if !matchesFilter(quote, filter) {
			continue
		}
		summaries = append(summaries, quote.Summary())
	}
	sortSummaries(summaries)
	return summaries, nil
}

// ListAll returns summaries for every stored quote, most recent first.
func (r *MemoryQuoteRepository) ListAll(_ context.Context) ([]domain.QuoteSummary, error) {
	return r.Search(context.Background(), domain.QuoteFilter{})
}

// ListAllWithItems returns every stored quote in full, most recent first.
func (r *MemoryQuoteRepository) ListAllWithItems(_ context.Context) ([]domain.Quote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quotes := []domain.Quote{}
	for _, quote := range r.quotes {
		quotes = append(quotes, *cloneQuote(quote))
	}
	sort.Slice(quotes, func(i, j int) bool {
		if !quotes[i].ProcessedAt.Equal(quotes[j].ProcessedAt) {
			return quotes[i].ProcessedAt.After(quotes[j].ProcessedAt)
		}
		return quotes[i].ID > quotes[j].ID
	})
	return quotes, nil
}

// Recent returns up to limit summaries processed within the last withinDays days.
func (r *MemoryQuoteRepository) Recent(_ context.Context, limit, withinDays int) ([]domain.QuoteSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -withinDays)
	summaries := []domain.QuoteSummary{}
	for _, quote := range r.quotes {
		if quote.ProcessedAt.Before(cutoff) {
			continue
		}
		summaries = append(summaries, quote.Summary())
	}
	sortSummaries(summaries)
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// ClearAll removes every quote. The id counter keeps climbing so later
// inserts never reuse an id from a cleared generation.
func (r *MemoryQuoteRepository) ClearAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.quotes = make(map[int64]*domain.Quote)
	return nil
}

// Stats computes aggregates over the current contents.
func (r *MemoryQuoteRepository) Stats(_ context.Context) (*domain.AggregateStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.AggregateStats{
		SupplierBreakdown: []domain.SupplierStat{},
		MonthlyBreakdown:  []domain.MonthlyStat{},
	}

	var amountCount int
	suppliers := make(map[string]*domain.SupplierStat)
	months := make(map[string]*domain.MonthlyStat)

	for _, quote := range r.quotes {
		stats.TotalCount++
		if quote.TotalAmount != nil {
			stats.TotalAmount += *quote.TotalAmount
			amountCount++
		}

		supplier := domain.UnspecifiedSupplier
		if quote.Supplier != nil && strings.TrimSpace(*quote.Supplier) != "" {
			supplier = strings.TrimSpace(*quote.Supplier)
		}
		ss, ok := suppliers[supplier]
		if !ok {
			ss = &domain.SupplierStat{Supplier: supplier}
			suppliers[supplier] = ss
		}
		ss.Count++
		if quote.TotalAmount != nil {
			ss.TotalAmount += *quote.TotalAmount
		}

		month := quote.ProcessedAt.Format("2006-01")
		ms, ok := months[month]
		if !ok {
			ms = &domain.MonthlyStat{Month: month}
			months[month] = ms
		}
		ms.Count++
		if quote.TotalAmount != nil {
			ms.TotalAmount += *quote.TotalAmount
		}
	}

	if amountCount > 0 {
		avg := stats.TotalAmount / float64(amountCount)
		stats.AverageAmount = &avg
	}

	for _, ss := range suppliers {
		stats.SupplierBreakdown = append(stats.SupplierBreakdown, *ss)
	}
	sort.Slice(stats.SupplierBreakdown, func(i, j int) bool {
		a, b := stats.SupplierBreakdown[i], stats.SupplierBreakdown[j]
		if a.TotalAmount != b.TotalAmount {
			return a.TotalAmount > b.TotalAmount
		}
		return a.Supplier < b.Supplier
	})

	for _, ms := range months {
		stats.MonthlyBreakdown = append(stats.MonthlyBreakdown, *ms)
	}
	sort.Slice(stats.MonthlyBreakdown, func(i, j int) bool {
		return stats.MonthlyBreakdown[i].Month < stats.MonthlyBreakdown[j].Month
	})

	return stats, nil
}

func matchesFilter(quote *domain.Quote, filter domain.QuoteFilter) bool {
	if filter.Supplier != "" {
		if quote.Supplier == nil || !strings.Contains(strings.ToLower(*quote.Supplier), strings.ToLower(filter.Supplier)) {
			return false
		}
	}
	if filter.Status != nil && quote.Status != *filter.Status {
		return false
	}
	if filter.StartDate != nil && quote.ProcessedAt.Before(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && !quote.ProcessedAt.Before(*filter.EndDate) {
		return false
	}
	return true
}

func sortSummaries(summaries []domain.QuoteSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].ProcessedAt.Equal(summaries[j].ProcessedAt) {
			return summaries[i].ProcessedAt.After(summaries[j].ProcessedAt)
		}
		return summaries[i].ID > summaries[j].ID
	})
}

func cloneQuote(quote *domain.Quote) *domain.Quote {
	clone := *quote
	if quote.Items != nil {
		clone.Items = make([]domain.QuoteItem, len(quote.Items))
		copy(clone.Items, quote.Items)
	}
	if quote.Warnings != nil {
		clone.Warnings = make([]string, len(quote.Warnings))
		copy(clone.Warnings, quote.Warnings)
	}
	if quote.QuoteDate != nil {
		d := *quote.QuoteDate
		clone.QuoteDate = &d
	}
	if quote.Supplier != nil {
		s := *quote.Supplier
		clone.Supplier = &s
	}
	if quote.TotalAmount != nil {
		a := *quote.TotalAmount
		clone.TotalAmount = &a
	}
	return &clone
}
