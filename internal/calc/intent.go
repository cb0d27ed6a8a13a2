package calc

import (
	"github.com/shopspring/decimal"

	"github.com/valadez/empenos-api/internal/domain"
)

// WaiverNote is recorded on every payment line of a waived renewal so the
// forgiven charges leave an explicit trail instead of being silently dropped.
const WaiverNote = "Intereses y recargos condonados"

// Allocation is the resolved per-loan share of a payment intent. Each loan's
// share is computed independently from that loan's own figures and then
// summed; the total is never divided evenly across loans.
type Allocation struct {
	LoanID      string
	ElapsedDays int
	Amount      decimal.Decimal
	Capital     decimal.Decimal
	Interest    decimal.Decimal
	Penalty     decimal.Decimal
	Notes       string
}

// Quote is the resolved amount of an intent plus its per-loan breakdown.
type Quote struct {
	Kind        domain.IntentKind
	Amount      decimal.Decimal
	Totals      Totals
	Allocations []Allocation
}

// Resolve computes the payable amount for an intent over the selected loans.
//
//	RENEW:     interest + penalty per loan; capital untouched. WaiveInterest
//	           zeroes the amount and records the waiver on every line.
//	LIQUIDATE: capital + interest + penalty per loan (full payoff).
//	AMORTIZE:  customAmount if given, otherwise the accrued interest. A
//	           customAmount below the accrued interest is rejected; the
//	           surplus above it covers penalties and then reduces capital
//	           proportionally to each loan's outstanding balance.
func Resolve(intent domain.PaymentIntent, lines []Line) (*Quote, error) {
	if len(lines) == 0 {
		return nil, &domain.ErrEmptySelection{}
	}

	totals := Aggregate(lines)
	q := &Quote{Kind: intent.Kind, Totals: totals}

	switch intent.Kind {
	case domain.IntentRenew:
		for _, l := range lines {
			a := Allocation{LoanID: l.LoanID, ElapsedDays: l.ElapsedDays, Capital: decimal.Zero}
			if intent.WaiveInterest {
				a.Interest = decimal.Zero
				a.Penalty = decimal.Zero
				a.Amount = decimal.Zero
				a.Notes = WaiverNote
			} else {
				a.Interest = l.Interest
				a.Penalty = l.Penalty
				a.Amount = l.Interest.Add(l.Penalty)
			}
			q.Allocations = append(q.Allocations, a)
		}

	case domain.IntentLiquidate:
		for _, l := range lines {
			q.Allocations = append(q.Allocations, Allocation{
				LoanID:      l.LoanID,
				ElapsedDays: l.ElapsedDays,
				Capital:     l.Capital,
				Interest:    l.Interest,
				Penalty:     l.Penalty,
				Amount:      l.Capital.Add(l.Interest).Add(l.Penalty),
			})
		}

	case domain.IntentAmortize:
		allocs, err := resolveAmortize(intent, lines, totals)
		if err != nil {
			return nil, err
		}
		q.Allocations = allocs

	default:
		return nil, &domain.ErrInvalidInput{Field: "kind", Message: "unknown intent kind: " + string(intent.Kind)}
	}

	q.Amount = decimal.Zero
	for _, a := range q.Allocations {
		q.Amount = q.Amount.Add(a.Amount)
	}
	return q, nil
}

func resolveAmortize(intent domain.PaymentIntent, lines []Line, totals Totals) ([]Allocation, error) {
	// Default: the minimum required to avoid default — accrued interest only.
	if intent.CustomAmount == nil {
		allocs := make([]Allocation, 0, len(lines))
		for _, l := range lines {
			allocs = append(allocs, Allocation{
				LoanID:      l.LoanID,
				ElapsedDays: l.ElapsedDays,
				Capital:     decimal.Zero,
				Interest:    l.Interest,
				Penalty:     decimal.Zero,
				Amount:      l.Interest,
			})
		}
		return allocs, nil
	}

	amount := *intent.CustomAmount
	if amount.IsNegative() {
		return nil, &domain.ErrInvalidInput{Field: "customAmount", Message: "must not be negative"}
	}
	if amount.LessThan(totals.Interest) {
		return nil, &domain.ErrMinimumPayment{
			Required: totals.Interest.StringFixed(2),
			Given:    amount.StringFixed(2),
		}
	}
	if amount.GreaterThan(totals.Total) {
		return nil, &domain.ErrInvalidInput{Field: "customAmount", Message: "exceeds total payoff " + totals.Total.StringFixed(2)}
	}

	// Waterfall: interest in full, then penalties, then capital. Penalty and
	// capital portions are split proportionally to each loan's own figures.
	surplus := amount.Sub(totals.Interest)
	penaltyPaid := decimal.Min(surplus, totals.Penalty)
	capitalPaid := surplus.Sub(penaltyPaid)

	penaltyWeights := make([]decimal.Decimal, len(lines))
	capitalWeights := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		penaltyWeights[i] = l.Penalty
		capitalWeights[i] = l.Capital
	}
	penaltyShares := splitProportionally(penaltyPaid, penaltyWeights)
	capitalShares := splitProportionally(capitalPaid, capitalWeights)

	allocs := make([]Allocation, 0, len(lines))
	for i, l := range lines {
		allocs = append(allocs, Allocation{
			LoanID:      l.LoanID,
			ElapsedDays: l.ElapsedDays,
			Capital:     capitalShares[i],
			Interest:    l.Interest,
			Penalty:     penaltyShares[i],
			Amount:      l.Interest.Add(penaltyShares[i]).Add(capitalShares[i]),
		})
	}
	return allocs, nil
}

// splitProportionally divides amount across weights, rounding each share to
// cents and pushing the rounding remainder onto the last non-zero weight so
// the shares always sum exactly to amount.
func splitProportionally(amount decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	for i := range shares {
		shares[i] = decimal.Zero
	}
	if amount.IsZero() {
		return shares
	}

	totalWeight := decimal.Zero
	for _, w := range weights {
		totalWeight = totalWeight.Add(w)
	}
	if totalWeight.IsZero() {
		return shares
	}

	last := -1
	allocated := decimal.Zero
	for i, w := range weights {
		if w.IsZero() {
			continue
		}
		shares[i] = amount.Mul(w).Div(totalWeight).Round(2)
		allocated = allocated.Add(shares[i])
		last = i
	}
	if last >= 0 {
		shares[last] = shares[last].Add(amount.Sub(allocated))
	}
	return shares
}
