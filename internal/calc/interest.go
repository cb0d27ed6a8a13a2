package calc

import (
	"github.com/shopspring/decimal"

	"github.com/valadez/empenos-api/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	thirty  = decimal.NewFromInt(30)

	stepQuarter      = decimal.NewFromFloat(0.25)
	stepHalf         = decimal.NewFromFloat(0.50)
	stepThreeQuarter = decimal.NewFromFloat(0.75)
)

// Interest computes the accrued interest for a principal at a monthly rate
// over elapsed days, rounded to cents.
//
// ProrationDaily is linear: principal × rate/100 × days/30.
//
// ProrationWeekly is the printed-contract step schedule anchored at fixed
// 7/14/21-day offsets from disbursement: a started week up to day 13 charges
// 25% of the monthly rate, days 14-20 charge 50%, days 21-29 charge 75%, and
// day 30 the full rate. Past 30 days each completed month charges the full
// rate and the remainder re-enters the steps.
func Interest(principal, monthlyRate decimal.Decimal, days int, mode domain.ProrationMode) (decimal.Decimal, error) {
	if principal.IsNegative() {
		return decimal.Zero, &domain.ErrInvalidInput{Field: "principal", Message: "must not be negative"}
	}
	if monthlyRate.IsNegative() {
		return decimal.Zero, &domain.ErrInvalidInput{Field: "monthlyRate", Message: "must not be negative"}
	}
	if days < 0 {
		return decimal.Zero, &domain.ErrInvalidInput{Field: "elapsedDays", Message: "must not be negative"}
	}

	monthly := principal.Mul(monthlyRate).Div(hundred)

	switch mode {
	case domain.ProrationDaily:
		return monthly.Mul(decimal.NewFromInt(int64(days))).Div(thirty).Round(2), nil
	case domain.ProrationWeekly:
		if days == 0 {
			return decimal.Zero, nil
		}
		fullMonths := decimal.NewFromInt(int64(days / 30))
		factor := fullMonths.Add(weeklyStep(days % 30))
		return monthly.Mul(factor).Round(2), nil
	default:
		return decimal.Zero, &domain.ErrInvalidInput{Field: "mode", Message: "unknown proration mode: " + string(mode)}
	}
}

// weeklyStep maps days-into-month (0..29) to the contract step fraction.
func weeklyStep(rem int) decimal.Decimal {
	switch {
	case rem == 0:
		return decimal.Zero
	case rem < 14:
		return stepQuarter
	case rem < 21:
		return stepHalf
	default:
		return stepThreeQuarter
	}
}

// WeeklySchedule renders the printed-contract step table for a loan: the
// interest and payoff owed if the client settles at each weekly mark.
func WeeklySchedule(balance, monthlyRate decimal.Decimal) []domain.ScheduleEntry {
	marks := []struct {
		day    int
		factor decimal.Decimal
	}{
		{7, stepQuarter},
		{14, stepHalf},
		{21, stepThreeQuarter},
		{30, decimal.NewFromInt(1)},
	}

	monthly := balance.Mul(monthlyRate).Div(hundred)
	entries := make([]domain.ScheduleEntry, 0, len(marks))
	for _, m := range marks {
		interest := monthly.Mul(m.factor).Round(2)
		entries = append(entries, domain.ScheduleEntry{
			DayMark:  m.day,
			Factor:   m.factor.StringFixed(2),
			Interest: interest,
			Payoff:   balance.Add(interest).Round(2),
		})
	}
	return entries
}

// FormatAmount renders a money value as a two-decimal string for receipts.
func FormatAmount(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}
