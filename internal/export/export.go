// Package export renders stored quotes into interchange formats. The flat
// CSV shape and the nested JSON shape both round-trip: exporting, importing
// and exporting again yields identical bytes.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

// csvHeader is the fixed column order of the flat export.
var csvHeader = []string{
	"id", "filename", "supplier", "quote_date", "total_amount",
	"item_count", "processed_at", "status",
}

// SummariesCSV renders summaries as flat CSV, one row per quote, in the
// order given.
func SummariesCSV(summaries []domain.QuoteSummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range summaries {
		row := []string{
			strconv.FormatInt(s.ID, 10),
			s.Filename,
			stringOrEmpty(s.Supplier),
			dateOrEmpty(s.QuoteDate),
			floatOrEmpty(s.TotalAmount),
			strconv.Itoa(s.ItemCount),
			s.ProcessedAt.UTC().Format(time.RFC3339),
			string(s.Status),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// QuotesCSV renders full quotes as flat CSV. Line items are reduced to a
// count; use QuotesJSON to preserve them.
func QuotesCSV(quotes []domain.Quote) ([]byte, error) {
	summaries := make([]domain.QuoteSummary, 0, len(quotes))
	for i := range quotes {
		summaries = append(summaries, quotes[i].Summary())
	}
	return SummariesCSV(summaries)
}

// ReadSummariesCSV parses the flat CSV format back into summaries.
func ReadSummariesCSV(data []byte) ([]domain.QuoteSummary, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: missing header row")
	}
	if len(records[0]) != len(csvHeader) {
		return nil, fmt.Errorf("read csv: expected %d columns, got %d", len(csvHeader), len(records[0]))
	}

	summaries := make([]domain.QuoteSummary, 0, len(records)-1)
	for i, row := range records[1:] {
		s, err := parseSummaryRow(row)
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", i+2, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func parseSummaryRow(row []string) (domain.QuoteSummary, error) {
	var s domain.QuoteSummary

	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return s, fmt.Errorf("id: %w", err)
	}
	s.ID = id
	s.Filename = row[1]

	if row[2] != "" {
		supplier := row[2]
		s.Supplier = &supplier
	}
	if row[3] != "" {
		t, err := time.Parse("2006-01-02", row[3])
		if err != nil {
			return s, fmt.Errorf("quote_date: %w", err)
		}
		s.QuoteDate = &domain.DateOnly{Time: t}
	}
	if row[4] != "" {
		amount, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return s, fmt.Errorf("total_amount: %w", err)
		}
		s.TotalAmount = &amount
	}

	count, err := strconv.Atoi(row[5])
	if err != nil {
		return s, fmt.Errorf("item_count: %w", err)
	}
	s.ItemCount = count

	processedAt, err := time.Parse(time.RFC3339, row[6])
	if err != nil {
		return s, fmt.Errorf("processed_at: %w", err)
	}
	s.ProcessedAt = processedAt
	s.Status = domain.QuoteStatus(row[7])

	return s, nil
}

// QuotesJSON renders quotes as nested JSON, line items included.
func QuotesJSON(quotes []domain.Quote) ([]byte, error) {
	for i := range quotes {
		quotes[i].ProcessedAt = quotes[i].ProcessedAt.UTC()
		if quotes[i].Items == nil {
			quotes[i].Items = []domain.QuoteItem{}
		}
	}
	out, err := json.MarshalIndent(quotes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal quotes: %w", err)
	}
	return out, nil
}

// ReadQuotesJSON parses the nested JSON format back into quotes.
func ReadQuotesJSON(data []byte) ([]domain.Quote, error) {
	var quotes []domain.Quote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, fmt.Errorf("unmarshal quotes: %w", err)
	}
	return quotes, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateOrEmpty(d *domain.DateOnly) string {
	if d == nil || d.Time.IsZero() {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
