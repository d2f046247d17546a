package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func datePtr(t time.Time) *domain.DateOnly {
	return &domain.DateOnly{Time: t}
}

func TestMemoryQuoteRepository_InsertAssignsMonotonicIDs(t *testing.T) {
	repo := NewMemoryQuoteRepository()
	ctx := context.Background()

	first, err := repo.Insert(ctx, &domain.Quote{Filename: "a.pdf"})
	require.NoError(t, err)
	second, err := repo.Insert(ctx, &domain.Quote{Filename: "b.pdf"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	// Deleting never frees an id for reuse.
	require.NoError(t, repo.Delete(ctx, second.ID))
	third, err := repo.Insert(ctx, &domain.Quote{Filename: "c.pdf"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.ID)
}

func TestMemoryQuoteRepository_ClearAllKeepsIDCounter(t *testing.T) {
	repo := NewMemoryQuoteRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Insert(ctx, &domain.Quote{Filename: "q.pdf"})
		require.NoError(t, err)
	}
	require.NoError(t, repo.ClearAll(ctx))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	next, err := repo.Insert(ctx, &domain.Quote{Filename: "after.pdf"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), next.ID)
}

func TestMemoryQuoteRepository_ConcurrentInserts(t *testing.T) {
	repo := NewMemoryQuoteRepository()
	ctx := context.Background()

	const n = 50
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			quote, err := repo.Insert(ctx, &domain.Quote{Filename: fmt.Sprintf("doc-%d.pdf", i)})
			if assert.NoError(t, err) {
				ids <- quote.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func TestMemoryQuoteRepository_DeleteRacingGet(t *testing.T) {
	repo := NewMemoryQuoteRepository()
	ctx := context.Background()

	quote, err := repo.Insert(ctx, &domain.Quote{
		Filename: "acme.pdf",
		Supplier: strPtr("Acme"),
		Items:    []domain.QuoteItem{{Description: "widget"}},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, repo.Delete(ctx, quote.ID))
	}()
	go func() {
		defer wg.Done()
		got, err := repo.GetByID(ctx, quote.ID)
		if err != nil {
			assert.ErrorIs(t, err, ErrNotFound)
			return
		}
		// A read that wins the race sees the full record, never a torn one.
		assert.Equal(t, "acme.pdf", got.Filename)
		assert.Len(t, got.Items, 1)
	}()
	wg.Wait()
}

func TestMemoryQuoteRepository_GetByIDNotFound(t *testing.T) {
	repo := NewMemoryQuoteRepository()

	_, err := repo.GetByID(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryQuoteRepository_DeleteNotFound(t *testing.T) {
	repo := NewMemoryQuoteRepository()

	err := repo.Delete(context.Background(), 7)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryQuoteRepository_UpdateStatus(t *testing.T) {
	repo := NewMemoryQuoteRepository()
	ctx := context.Background()

	quote, err := repo.Insert(ctx, &domain.Quote{Filename: "q.pdf", Status: domain.StatusPending})
	require.NoError(t, err)

	updated, err := repo.UpdateStatus(ctx, quote.ID, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, updated.Status)

	fetched, err := repo.GetByID(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, fetched.Status)

	_, err = repo.UpdateStatus(ctx, 999, domain.StatusArchived)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryQuoteRepository_InsertReturnsCopy(t *testing.T) {
	repo := NewMemoryQuoteRepository()
	ctx := context.Background()

	quote, err := repo.Insert(ctx, &domain.Quote{
		Filename: "q.pdf",
		Items:    []domain.QuoteItem{{Description: "widget"}},
	})
	require.NoError(t, err)

	// Mutating the returned value must not leak into the store.
	quote.Items[0].Description = "mutated"
	quote.Filename = "mutated.pdf"

	fetched, err := repo.GetByID(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, "q.pdf", fetched.Filename)
	assert.Equal(t, "widget", fetched.Items[0].Description)
}

func TestMemoryQuoteRepository_SearchFilters(t *testing.T) {
	repo := NewMemoryQuoteRepository()
	ctx := context.Background()

	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	_, err := repo.Insert(ctx, &domain.Quote{
		Filename:    "acme.pdf",
		Supplier:    strPtr("Acme Industrial"),
		QuoteDate:   datePtr(jan),
		Status:      domain.StatusCompleted,
		ProcessedAt: jan,
	})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &domain.Quote{
		Filename:    "globex.pdf",
		Supplier:    strPtr("Globex"),
		QuoteDate:   datePtr(mar),
		Status:      domain.StatusPending,
		ProcessedAt: mar,
	})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &domain.Quote{
		Filename: "nodate.pdf",
		Status:   domain.StatusCompleted,
	})
	require.NoError(t, err)

	t.Run("supplier substring is case insensitive", func(t *testing.T) {
		got, err := repo.Search(ctx, domain.QuoteFilter{Supplier: "acme"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "acme.pdf", got[0].Filename)
	})

	t.Run("status filter", func(t *testing.T) {
		pending := domain.StatusPending
		got, err := repo.Search(ctx, domain.QuoteFilter{Status: &pending})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "globex.pdf", got[0].Filename)
	})

	t.Run("date range filters on processed time", func(t *testing.T) {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		got, err := repo.Search(ctx, domain.QuoteFilter{StartDate: &start, EndDate: &end})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "acme.pdf", got[0].Filename)
	})

	t.Run("end bound is exclusive", func(t *testing.T) {
		got, err := repo.Search(ctx, domain.QuoteFilter{EndDate: &jan})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty filter matches everything", func(t *testing.T) {
		got, err := repo.Search(ctx, domain.QuoteFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("no match returns empty slice", func(t *testing.T) {
		got, err := repo.Search(ctx, domain.QuoteFilter{Supplier: "nonesuch"})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestMemoryQuoteRepository_RecentOrderAndLimit(t *testing.T) {
	repo := NewMemoryQuoteRepository()
	ctx := context.Background()

	now := time.Now()
	for i, age := range []time.Duration{72 * time.Hour, 48 * time.Hour, 24 * time.Hour} {
		_, err := repo.Insert(ctx, &domain.Quote{
			Filename:    string(rune('a'+i)) + ".pdf",
			ProcessedAt: now.Add(-age),
		})
		require.NoError(t, err)
	}
	// Too old for a 7 day window.
	_, err := repo.Insert(ctx, &domain.Quote{
		Filename:    "old.pdf",
		ProcessedAt: now.AddDate(0, 0, -30),
	})
	require.NoError(t, err)

	got, err := repo.Recent(ctx, 2, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c.pdf", got[0].Filename)
	assert.Equal(t, "b.pdf", got[1].Filename)
}

func TestMemoryQuoteRepository_Stats(t *testing.T) {
	repo := NewMemoryQuoteRepository()
	ctx := context.Background()

	feb := time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := repo.Insert(ctx, &domain.Quote{
		Filename:    "a.pdf",
		Supplier:    strPtr("Acme"),
		TotalAmount: floatPtr(100),
		ProcessedAt: feb,
	})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, &domain.Quote{
		Filename:    "b.pdf",
		Supplier:    strPtr("Acme"),
		TotalAmount: floatPtr(200),
		ProcessedAt: mar,
	})
	require.NoError(t, err)
	// No supplier, no amount: counted, but excluded from the average.
	_, err = repo.Insert(ctx, &domain.Quote{
		Filename:    "c.pdf",
		ProcessedAt: mar,
	})
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalCount)
	assert.InDelta(t, 300, stats.TotalAmount, 0.001)
	require.NotNil(t, stats.AverageAmount)
	assert.InDelta(t, 150, *stats.AverageAmount, 0.001)

	require.Len(t, stats.SupplierBreakdown, 2)
	assert.Equal(t, "Acme", stats.SupplierBreakdown[0].Supplier)
	assert.Equal(t, 2, stats.SupplierBreakdown[0].Count)
	assert.InDelta(t, 300, stats.SupplierBreakdown[0].TotalAmount, 0.001)
	assert.Equal(t, domain.UnspecifiedSupplier, stats.SupplierBreakdown[1].Supplier)

	require.Len(t, stats.MonthlyBreakdown, 2)
	assert.Equal(t, "2025-02", stats.MonthlyBreakdown[0].Month)
	assert.Equal(t, "2025-03", stats.MonthlyBreakdown[1].Month)
	assert.Equal(t, 2, stats.MonthlyBreakdown[1].Count)
}

func TestMemoryQuoteRepository_StatsEmpty(t *testing.T) {
	repo := NewMemoryQuoteRepository()

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalCount)
	assert.Zero(t, stats.TotalAmount)
	assert.Nil(t, stats.AverageAmount)
	assert.Empty(t, stats.SupplierBreakdown)
	assert.Empty(t, stats.MonthlyBreakdown)
}
