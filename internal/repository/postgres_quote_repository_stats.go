package repository

import (
	"context"
	"fmt"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

// Stats computes aggregates over the live collection. Nothing is cached;
// every call recomputes from the current rows.
func (r *PostgresQuoteRepository) Stats(ctx context.Context) (*domain.AggregateStats, error) {
	stats := &domain.AggregateStats{
		SupplierBreakdown: []domain.SupplierStat{},
		MonthlyBreakdown:  []domain.MonthlyStat{},
	}

	var amountCount int
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total_count,
			COALESCE(SUM(total_amount), 0) AS total_amount,
			COUNT(total_amount) AS amount_count
		FROM quotes
	`).Scan(&stats.TotalCount, &stats.TotalAmount, &amountCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote totals: %w", err)
	}

	// Average is reported as absent rather than risking a division by zero.
	if amountCount > 0 {
		avg := stats.TotalAmount / float64(amountCount)
		stats.AverageAmount = &avg
	}

	supplierRows, err := r.db.Query(ctx, `
		SELECT
			COALESCE(NULLIF(TRIM(supplier), ''), $1) AS supplier,
			COUNT(*) AS count,
			COALESCE(SUM(total_amount), 0) AS total_amount
		FROM quotes
		GROUP BY 1
		ORDER BY total_amount DESC, supplier
	`, domain.UnspecifiedSupplier)
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier breakdown: %w", err)
	}
	defer supplierRows.Close()

	for supplierRows.Next() {
		var s domain.SupplierStat
		if err := supplierRows.Scan(&s.Supplier, &s.Count, &s.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan supplier stat: %w", err)
		}
		stats.SupplierBreakdown = append(stats.SupplierBreakdown, s)
	}
	if err := supplierRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating supplier breakdown: %w", err)
	}

	monthlyRows, err := r.db.Query(ctx, `
		SELECT
			to_char(processed_at, 'YYYY-MM') AS month,
			COUNT(*) AS count,
			COALESCE(SUM(total_amount), 0) AS total_amount
		FROM quotes
		GROUP BY 1
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly breakdown: %w", err)
	}
	defer monthlyRows.Close()

	for monthlyRows.Next() {
		var m domain.MonthlyStat
		if err := monthlyRows.Scan(&m.Month, &m.Count, &m.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan monthly stat: %w", err)
		}
		stats.MonthlyBreakdown = append(stats.MonthlyBreakdown, m)
	}
	if err := monthlyRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly breakdown: %w", err)
	}

	return stats, nil
}
