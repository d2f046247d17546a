package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

func sampleQuotes() []domain.Quote {
	supplier := "Acme Industrial"
	total := 300.5
	qty := 2.0
	unit := 100.0
	sub := 200.0
	return []domain.Quote{
		{
			ID:          1,
			Filename:    "acme.pdf",
			Supplier:    &supplier,
			QuoteDate:   &domain.DateOnly{Time: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
			TotalAmount: &total,
			Items: []domain.QuoteItem{
				{Description: "widget, large", Quantity: &qty, UnitPrice: &unit, Subtotal: &sub},
			},
			OriginalText: "QUOTATION\nAcme Industrial",
			Status:       domain.StatusCompleted,
			ProcessedAt:  time.Date(2025, 3, 2, 10, 30, 0, 0, time.UTC),
		},
		{
			ID:          2,
			Filename:    "bare.pdf",
			Status:      domain.StatusPending,
			Warnings:    []string{"AMOUNT_MISMATCH: items sum to 10.00 but stated total is 99.00"},
			ProcessedAt: time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC),
		},
	}
}

func TestSummariesCSV_ColumnOrderAndOptionalFields(t *testing.T) {
	out, err := QuotesCSV(sampleQuotes())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,filename,supplier,quote_date,total_amount,item_count,processed_at,status", lines[0])
	assert.Equal(t, "1,acme.pdf,Acme Industrial,2025-03-01,300.5,1,2025-03-02T10:30:00Z,COMPLETED", lines[1])
	// Absent supplier, date and amount stay empty rather than becoming "0".
	assert.Equal(t, "2,bare.pdf,,,,0,2025-03-03T08:00:00Z,PENDING", lines[2])
}

func TestCSV_RoundTripIsIdempotent(t *testing.T) {
	first, err := QuotesCSV(sampleQuotes())
	require.NoError(t, err)

	summaries, err := ReadSummariesCSV(first)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	second, err := SummariesCSV(summaries)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second), "export after import must reproduce identical bytes")
}

func TestReadSummariesCSV_Malformed(t *testing.T) {
	_, err := ReadSummariesCSV([]byte("not,a,quote,file\n"))
	assert.Error(t, err)

	_, err = ReadSummariesCSV([]byte(""))
	assert.Error(t, err)
}

func TestJSON_RoundTripIsIdempotent(t *testing.T) {
	first, err := QuotesJSON(sampleQuotes())
	require.NoError(t, err)

	quotes, err := ReadQuotesJSON(first)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "widget, large", quotes[0].Items[0].Description)
	assert.Equal(t, "QUOTATION\nAcme Industrial", quotes[0].OriginalText)

	second, err := QuotesJSON(quotes)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second), "export after import must reproduce identical bytes")
}

func TestQuotesXLSX_ProducesWorkbook(t *testing.T) {
	out, err := QuotesXLSX(sampleQuotes())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	// XLSX is a zip container.
	assert.Equal(t, []byte{'P', 'K'}, out[:2])
}

func TestEmptyCollectionExports(t *testing.T) {
	out, err := QuotesCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "id,filename,supplier,quote_date,total_amount,item_count,processed_at,status\n", string(out))

	jsonOut, err := QuotesJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(jsonOut))
}
