package domain

// UnspecifiedSupplier is the breakdown bucket for quotes whose supplier the
// extraction service could not determine.
const UnspecifiedSupplier = "unspecified"

// SupplierStat represents per-supplier aggregate data
type SupplierStat struct {
	Supplier    string  `json:"supplier"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// MonthlyStat represents aggregate data for one calendar year-month,
// keyed by processed_at.
type MonthlyStat struct {
	Month       string  `json:"month"` // YYYY-MM
	Count       int     `json:"count"`
	TotalAmount float64 `json:"total_amount"`
}

// AggregateStats is a snapshot computed over the live quote collection.
// It is derived on demand and never stored.
type AggregateStats struct {
	TotalCount    int      `json:"total_count"`
	TotalAmount   float64  `json:"total_amount"`
	AverageAmount *float64 `json:"average_amount,omitempty"` // nil when no quote carries an amount

	SupplierBreakdown []SupplierStat `json:"supplier_breakdown"`
	MonthlyBreakdown  []MonthlyStat  `json:"monthly_breakdown"`
}
