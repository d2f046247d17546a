package repository

import (
	"context"
	"errors"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

// ErrNotFound is returned when the requested quote does not exist or was
// already deleted. A delete racing a get surfaces this, never a half-deleted
// record.
var ErrNotFound = errors.New("quote not found")

// ErrWriteConflict is returned when a mutation lost a race it cannot
// resolve; callers may retry.
var ErrWriteConflict = errors.New("write conflict")

// QuoteRepository defines the interface for quote data operations.
// Implementations must assign monotonic ids that are never reused, keep all
// mutations atomic with respect to each other and to concurrent reads, and
// recompute aggregates from the live collection on every call.
type QuoteRepository interface {
	// Quote CRUD operations
	Insert(ctx context.Context, quote *domain.Quote) (*domain.Quote, error)
	GetByID(ctx context.Context, id int64) (*domain.Quote, error)
	Delete(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status domain.QuoteStatus) (*domain.Quote, error)

	// Quote querying operations, all most-recent-first by processed_at.
	Search(ctx context.Context, filter domain.QuoteFilter) ([]domain.QuoteSummary, error)
	ListAll(ctx context.Context) ([]domain.QuoteSummary, error)
	ListAllWithItems(ctx context.Context) ([]domain.Quote, error)
	Recent(ctx context.Context, limit, withinDays int) ([]domain.QuoteSummary, error)

	// ClearAll irreversibly removes every record. Confirmation is the
	// caller's problem; the store performs none.
	ClearAll(ctx context.Context) error

	// Stats computes aggregates over the live collection.
	Stats(ctx context.Context) (*domain.AggregateStats, error)
}
