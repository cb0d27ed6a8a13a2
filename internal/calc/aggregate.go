package calc

import "github.com/shopspring/decimal"

// Line is the per-loan input to aggregation and intent resolution: the loan's
// outstanding capital plus its freshly computed interest and penalty.
type Line struct {
	LoanID      string
	Capital     decimal.Decimal
	Interest    decimal.Decimal
	Penalty     decimal.Decimal
	ElapsedDays int
}

// Totals is the multi-loan aggregate shown on the payment panel.
type Totals struct {
	Capital        decimal.Decimal
	Interest       decimal.Decimal
	Penalty        decimal.Decimal
	Total          decimal.Decimal
	MaxElapsedDays int
}

// Aggregate sums capital, interest and penalty across the selected loans.
// MaxElapsedDays is display-only. An empty selection yields all zeros.
func Aggregate(lines []Line) Totals {
	t := Totals{
		Capital:  decimal.Zero,
		Interest: decimal.Zero,
		Penalty:  decimal.Zero,
		Total:    decimal.Zero,
	}
	for _, l := range lines {
		t.Capital = t.Capital.Add(l.Capital)
		t.Interest = t.Interest.Add(l.Interest)
		t.Penalty = t.Penalty.Add(l.Penalty)
		if l.ElapsedDays > t.MaxElapsedDays {
			t.MaxElapsedDays = l.ElapsedDays
		}
	}
	t.Total = t.Capital.Add(t.Interest).Add(t.Penalty)
	return t
}
