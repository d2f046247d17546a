package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/quote-ingestion-service/internal/domain"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestValidatePayload_NormalizesDates(t *testing.T) {
	cases := map[string]string{
		"2025-03-15":     "2025-03-15",
		"2025/03/15":     "2025-03-15",
		"15/03/2025":     "2025-03-15",
		"15-03-2025":     "2025-03-15",
		"March 15, 2025": "2025-03-15",
		"15 March 2025":  "2025-03-15",
		"  2025-03-15 ":  "2025-03-15",
	}
	for input, want := range cases {
		payload := &domain.QuotePayload{QuoteDate: strPtr(input)}
		out, err := ValidatePayload(payload, domain.FieldSet{domain.FieldDates: true})
		require.NoError(t, err, input)
		require.NotNil(t, out.QuoteDate, input)
		assert.Equal(t, want, *out.QuoteDate, input)
		assert.Empty(t, out.Warnings, input)
	}
}

func TestValidatePayload_UnparseableDateBecomesWarning(t *testing.T) {
	payload := &domain.QuotePayload{QuoteDate: strPtr("sometime next week")}

	out, err := ValidatePayload(payload, domain.FieldSet{domain.FieldDates: true})
	require.NoError(t, err)

	assert.Nil(t, out.QuoteDate, "the unparseable value must be dropped, not guessed at")
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], WarnUnparseableDate)
	assert.Contains(t, out.Warnings[0], "sometime next week")
	assert.Contains(t, out.MissingFields, domain.FieldDates)
}

func TestValidatePayload_RejectsBadNumerics(t *testing.T) {
	cases := []struct {
		name    string
		payload *domain.QuotePayload
	}{
		{"negative total", &domain.QuotePayload{TotalAmount: floatPtr(-5)}},
		{"nan total", &domain.QuotePayload{TotalAmount: floatPtr(math.NaN())}},
		{"inf total", &domain.QuotePayload{TotalAmount: floatPtr(math.Inf(1))}},
		{"negative item quantity", &domain.QuotePayload{
			Items: []domain.PayloadItem{{Description: "widget", Quantity: floatPtr(-1)}},
		}},
		{"negative item subtotal", &domain.QuotePayload{
			Items: []domain.PayloadItem{{Description: "widget", Subtotal: floatPtr(-10)}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidatePayload(tc.payload, domain.AllFields())
			require.Error(t, err)
			assert.Equal(t, KindMalformedResponse, KindOf(err))
		})
	}
}

func TestValidatePayload_DropsEmptyItemRows(t *testing.T) {
	payload := &domain.QuotePayload{
		Items: []domain.PayloadItem{
			{Description: "  real item ", Subtotal: floatPtr(10)},
			{Description: "   "},
			{},
		},
	}

	out, err := ValidatePayload(payload, domain.AllFields())
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "real item", out.Items[0].Description)
}

func TestValidatePayload_ReportsMissingRequestedFields(t *testing.T) {
	out, err := ValidatePayload(&domain.QuotePayload{}, domain.AllFields())
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]domain.Field{domain.FieldSupplier, domain.FieldItems, domain.FieldPricing, domain.FieldDates},
		out.MissingFields)
}

func TestValidatePayload_BlankSupplierIsMissing(t *testing.T) {
	out, err := ValidatePayload(&domain.QuotePayload{Supplier: strPtr("   ")},
		domain.FieldSet{domain.FieldSupplier: true})
	require.NoError(t, err)

	assert.Nil(t, out.Supplier)
	assert.Contains(t, out.MissingFields, domain.FieldSupplier)
}

func TestCheckAmounts(t *testing.T) {
	payload := func(total float64, subtotals ...float64) *domain.QuotePayload {
		p := &domain.QuotePayload{TotalAmount: &total}
		for _, s := range subtotals {
			v := s
			p.Items = append(p.Items, domain.PayloadItem{Description: "x", Subtotal: &v})
		}
		return p
	}

	t.Run("within tolerance is silent", func(t *testing.T) {
		assert.Empty(t, CheckAmounts(payload(300.04, 100, 200), 0.05))
	})

	t.Run("beyond tolerance warns with both values", func(t *testing.T) {
		warnings := CheckAmounts(payload(999, 100, 200), 0.05)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], WarnAmountMismatch)
		assert.Contains(t, warnings[0], "300.00")
		assert.Contains(t, warnings[0], "999.00")
	})

	t.Run("no stated total is not checked", func(t *testing.T) {
		p := &domain.QuotePayload{Items: []domain.PayloadItem{{Description: "x", Subtotal: floatPtr(10)}}}
		assert.Empty(t, CheckAmounts(p, 0.05))
	})

	t.Run("no item subtotals is not checked", func(t *testing.T) {
		total := 100.0
		p := &domain.QuotePayload{TotalAmount: &total, Items: []domain.PayloadItem{{Description: "x"}}}
		assert.Empty(t, CheckAmounts(p, 0.05))
	})
}
