package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

// PostgresQuoteRepository implements QuoteRepository on PostgreSQL. Quote ids
// come from a BIGSERIAL sequence, so they are monotonic and survive deletes
// without being reused.
type PostgresQuoteRepository struct {
	db *pgxpool.Pool
}

// NewPostgresQuoteRepository creates a new PostgreSQL quote repository
func NewPostgresQuoteRepository(db *pgxpool.Pool) *PostgresQuoteRepository {
	return &PostgresQuoteRepository{
		db: db,
	}
}

var _ QuoteRepository = (*PostgresQuoteRepository)(nil)

const summaryColumns = `
	q.id, q.filename, q.supplier, q.quote_date, q.total_amount,
	(SELECT COUNT(*) FROM quote_items qi WHERE qi.quote_id = q.id) AS item_count,
	q.status, q.processed_at`

// Insert saves a new quote and its items in one transaction.
// writeErr maps lost-race server errors (serialization failure, deadlock)
// to ErrWriteConflict so callers can retry or report them distinctly.
func writeErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %s", ErrWriteConflict, pgErr.Message)
	}
	return err
}

func (r *PostgresQuoteRepository) Insert(ctx context.Context, quote *domain.Quote) (*domain.Quote, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // Rollback if not committed

	stored := *quote
	err = tx.QueryRow(ctx, `
		INSERT INTO quotes (filename, supplier, quote_date, total_amount, original_text, status, warnings, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, processed_at
	`, quote.Filename, quote.Supplier, dateValue(quote.QuoteDate), quote.TotalAmount,
		quote.OriginalText, quote.Status, quote.Warnings, processedAtValue(quote.ProcessedAt),
	).Scan(&stored.ID, &stored.ProcessedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert quote: %w", err)
	}

	for i, item := range quote.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO quote_items (quote_id, position, description, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, stored.ID, i, item.Description, item.Quantity, item.UnitPrice, item.Subtotal)
		if err != nil {
			return nil, fmt.Errorf("failed to insert quote item: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", writeErr(err))
	}

	return &stored, nil
}

// GetByID retrieves a quote with its items.
func (r *PostgresQuoteRepository) GetByID(ctx context.Context, id int64) (*domain.Quote, error) {
	var quote domain.Quote
	var quoteDate *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT id, filename, supplier, quote_date, total_amount, original_text, status, warnings, processed_at
		FROM quotes
		WHERE id = $1
	`, id).Scan(
		&quote.ID, &quote.Filename, &quote.Supplier, &quoteDate, &quote.TotalAmount,
		&quote.OriginalText, &quote.Status, &quote.Warnings, &quote.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("quote %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	quote.QuoteDate = dateFromTime(quoteDate)

	items, err := r.itemsForQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	quote.Items = items

	return &quote, nil
}

func (r *PostgresQuoteRepository) itemsForQuote(ctx context.Context, quoteID int64) ([]domain.QuoteItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT description, quantity, unit_price, subtotal
		FROM quote_items
		WHERE quote_id = $1
		ORDER BY position
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote items: %w", err)
	}
	defer rows.Close()

	items := []domain.QuoteItem{}
	for rows.Next() {
		var item domain.QuoteItem
		if err := rows.Scan(&item.Description, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quote items: %w", err)
	}
	return items, nil
}

// Delete removes a quote by id. Items go with it via ON DELETE CASCADE;
// other ids are never renumbered.
func (r *PostgresQuoteRepository) Delete(ctx context.Context, id int64) error {
	commandTag, err := r.db.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete quote: %w", writeErr(err))
	}
	if commandTag.RowsAffected() == 0 {
		return fmt.Errorf("quote %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateStatus transitions the review status of a stored quote.
func (r *PostgresQuoteRepository) UpdateStatus(ctx context.Context, id int64, status domain.QuoteStatus) (*domain.Quote, error) {
	commandTag, err := r.db.Exec(ctx, `UPDATE quotes SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update quote status: %w", writeErr(err))
	}
	if commandTag.RowsAffected() == 0 {
		return nil, fmt.Errorf("quote %d: %w", id, ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

// Search retrieves quote summaries matching the filter, most recent first.
func (r *PostgresQuoteRepository) Search(ctx context.Context, filter domain.QuoteFilter) ([]domain.QuoteSummary, error) {
	conditions := []string{}
	args := []interface{}{}
	argCount := 1

	if filter.Supplier != "" {
		conditions = append(conditions, fmt.Sprintf("q.supplier ILIKE $%d", argCount))
		args = append(args, "%"+filter.Supplier+"%") // Case-insensitive partial match
		argCount++
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("q.processed_at >= $%d", argCount))
		args = append(args, filter.StartDate)
		argCount++
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("q.processed_at < $%d", argCount))
		args = append(args, filter.EndDate)
		argCount++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("q.status = $%d", argCount))
		args = append(args, *filter.Status)
		argCount++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM quotes q
		%s
		ORDER BY q.processed_at DESC, q.id DESC
	`, summaryColumns, whereClause)

	return r.querySummaries(ctx, query, args...)
}

// ListAll retrieves every quote summary, most recent first.
func (r *PostgresQuoteRepository) ListAll(ctx context.Context) ([]domain.QuoteSummary, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM quotes q
		ORDER BY q.processed_at DESC, q.id DESC
	`, summaryColumns)
	return r.querySummaries(ctx, query)
}

// Recent retrieves up to limit quotes processed within the last withinDays days.
func (r *PostgresQuoteRepository) Recent(ctx context.Context, limit, withinDays int) ([]domain.QuoteSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	if withinDays <= 0 {
		withinDays = 30
	}
	cutoff := time.Now().AddDate(0, 0, -withinDays)
	query := fmt.Sprintf(`
		SELECT %s
		FROM quotes q
		WHERE q.processed_at >= $1
		ORDER BY q.processed_at DESC, q.id DESC
		LIMIT $2
	`, summaryColumns)
	return r.querySummaries(ctx, query, cutoff, limit)
}

func (r *PostgresQuoteRepository) querySummaries(ctx context.Context, query string, args ...interface{}) ([]domain.QuoteSummary, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	summaries := []domain.QuoteSummary{}
	for rows.Next() {
		var s domain.QuoteSummary
		var quoteDate *time.Time
		if err := rows.Scan(
			&s.ID, &s.Filename, &s.Supplier, &quoteDate, &s.TotalAmount,
			&s.ItemCount, &s.Status, &s.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		s.QuoteDate = dateFromTime(quoteDate)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotes: %w", err)
	}
	return summaries, nil
}

// ListAllWithItems retrieves every quote with its full item list, most
// recent first. Items for all quotes are fetched in a single query.
func (r *PostgresQuoteRepository) ListAllWithItems(ctx context.Context) ([]domain.Quote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, filename, supplier, quote_date, total_amount, original_text, status, warnings, processed_at
		FROM quotes
		ORDER BY processed_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	quoteMap := make(map[int64]*domain.Quote)
	var quoteIDs []int64
	result := []domain.Quote{}

	for rows.Next() {
		var quote domain.Quote
		var quoteDate *time.Time
		if err := rows.Scan(
			&quote.ID, &quote.Filename, &quote.Supplier, &quoteDate, &quote.TotalAmount,
			&quote.OriginalText, &quote.Status, &quote.Warnings, &quote.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quote.QuoteDate = dateFromTime(quoteDate)
		quote.Items = []domain.QuoteItem{}
		quoteMap[quote.ID] = &quote
		quoteIDs = append(quoteIDs, quote.ID)
		result = append(result, quote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quotes: %w", err)
	}

	if len(quoteIDs) == 0 {
		return result, nil
	}

	// Get items for all quotes in a single query rather than one per quote.
	itemRows, err := r.db.Query(ctx, `
		SELECT quote_id, description, quantity, unit_price, subtotal
		FROM quote_items
		WHERE quote_id = ANY($1)
		ORDER BY quote_id, position
	`, quoteIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var quoteID int64
		var item domain.QuoteItem
		if err := itemRows.Scan(&quoteID, &item.Description, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}
		if quote, ok := quoteMap[quoteID]; ok {
			quote.Items = append(quote.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quote items: %w", err)
	}

	for i, id := range quoteIDs {
		if quote, ok := quoteMap[id]; ok {
			result[i] = *quote
		}
	}
	return result, nil
}

// ClearAll removes every record. The id sequence is left alone so ids are
// never reused.
func (r *PostgresQuoteRepository) ClearAll(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quotes`); err != nil {
		return fmt.Errorf("failed to clear quotes: %w", err)
	}
	return nil
}

func dateValue(d *domain.DateOnly) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func dateFromTime(t *time.Time) *domain.DateOnly {
	if t == nil {
		return nil
	}
	return &domain.DateOnly{Time: *t}
}

func processedAtValue(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
