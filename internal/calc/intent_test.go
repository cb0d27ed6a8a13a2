package calc

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/valadez/empenos-api/internal/domain"
)

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil)

	if !got.Capital.IsZero() || !got.Interest.IsZero() || !got.Penalty.IsZero() || !got.Total.IsZero() {
		t.Errorf("expected all-zero totals for empty selection, got %+v", got)
	}
	if got.MaxElapsedDays != 0 {
		t.Errorf("expected MaxElapsedDays 0, got %d", got.MaxElapsedDays)
	}
}

func TestAggregate_SumsAndMaxDays(t *testing.T) {
	got := Aggregate([]Line{
		{LoanID: "a", Capital: d("300"), Interest: d("20"), Penalty: d("5"), ElapsedDays: 12},
		{LoanID: "b", Capital: d("700"), Interest: d("70"), Penalty: d("0"), ElapsedDays: 40},
	})

	if got.Capital.StringFixed(2) != "1000.00" {
		t.Errorf("capital: expected 1000.00, got %s", got.Capital.StringFixed(2))
	}
	if got.Interest.StringFixed(2) != "90.00" {
		t.Errorf("interest: expected 90.00, got %s", got.Interest.StringFixed(2))
	}
	if got.Total.StringFixed(2) != "1095.00" {
		t.Errorf("total: expected 1095.00, got %s", got.Total.StringFixed(2))
	}
	if got.MaxElapsedDays != 40 {
		t.Errorf("expected MaxElapsedDays 40, got %d", got.MaxElapsedDays)
	}
}

func TestResolve_EmptySelection(t *testing.T) {
	var empty *domain.ErrEmptySelection
	_, err := Resolve(domain.PaymentIntent{Kind: domain.IntentLiquidate}, nil)
	if !errors.As(err, &empty) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestResolve_Liquidate(t *testing.T) {
	lines := []Line{
		{LoanID: "a", Capital: d("300"), Interest: d("20"), Penalty: decimal.Zero},
		{LoanID: "b", Capital: d("700"), Interest: d("70"), Penalty: decimal.Zero},
	}

	q, err := Resolve(domain.PaymentIntent{Kind: domain.IntentLiquidate}, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Amount.StringFixed(2) != "1090.00" {
		t.Errorf("expected total 1090.00, got %s", q.Amount.StringFixed(2))
	}

	// Per-loan shares follow each loan's own figures, never an even division.
	if q.Allocations[0].Amount.StringFixed(2) != "320.00" {
		t.Errorf("loan a: expected 320.00, got %s", q.Allocations[0].Amount.StringFixed(2))
	}
	if q.Allocations[1].Amount.StringFixed(2) != "770.00" {
		t.Errorf("loan b: expected 770.00, got %s", q.Allocations[1].Amount.StringFixed(2))
	}
	if q.Allocations[0].Amount.Equal(q.Allocations[1].Amount) {
		t.Error("allocations must not be an even split of the total")
	}
}

func TestResolve_Renew(t *testing.T) {
	lines := []Line{
		{LoanID: "a", Capital: d("500"), Interest: d("100"), Penalty: d("25")},
		{LoanID: "b", Capital: d("200"), Interest: d("40"), Penalty: decimal.Zero},
	}

	q, err := Resolve(domain.PaymentIntent{Kind: domain.IntentRenew}, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Amount.StringFixed(2) != "165.00" {
		t.Errorf("expected 165.00 (interest+penalty), got %s", q.Amount.StringFixed(2))
	}
	for _, a := range q.Allocations {
		if !a.Capital.IsZero() {
			t.Errorf("loan %s: renewal must not touch capital, got %s", a.LoanID, a.Capital)
		}
	}
}

func TestResolve_RenewWithWaiver(t *testing.T) {
	lines := []Line{
		{LoanID: "a", Capital: d("500"), Interest: d("100"), Penalty: d("25")},
	}

	q, err := Resolve(domain.PaymentIntent{Kind: domain.IntentRenew, WaiveInterest: true}, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !q.Amount.IsZero() {
		t.Errorf("expected amount 0 for waived renewal, got %s", q.Amount)
	}
	if q.Allocations[0].Notes != WaiverNote {
		t.Errorf("waiver must be recorded on the line, got notes %q", q.Allocations[0].Notes)
	}
}

func TestResolve_AmortizeDefaultsToInterest(t *testing.T) {
	// Loan of 500 at 20%/month, 10 days elapsed, daily mode: 33.33 due.
	interest, err := Interest(d("500"), d("20"), 10, domain.ProrationDaily)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := []Line{{LoanID: "a", Capital: d("500"), Interest: interest, Penalty: decimal.Zero, ElapsedDays: 10}}

	q, err := Resolve(domain.PaymentIntent{Kind: domain.IntentAmortize}, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Amount.StringFixed(2) != "33.33" {
		t.Errorf("expected 33.33, got %s", q.Amount.StringFixed(2))
	}
	if !q.Allocations[0].Capital.IsZero() {
		t.Errorf("default amortization covers interest only, got capital %s", q.Allocations[0].Capital)
	}
}

func TestResolve_AmortizeBelowInterestRejected(t *testing.T) {
	lines := []Line{{LoanID: "a", Capital: d("500"), Interest: d("33.33"), Penalty: decimal.Zero}}
	low := d("20")

	var minErr *domain.ErrMinimumPayment
	_, err := Resolve(domain.PaymentIntent{Kind: domain.IntentAmortize, CustomAmount: &low}, lines)
	if !errors.As(err, &minErr) {
		t.Fatalf("expected ErrMinimumPayment, got %v", err)
	}
	if minErr.Required != "33.33" {
		t.Errorf("expected required 33.33, got %s", minErr.Required)
	}
}

func TestResolve_AmortizeSurplusReducesCapitalProportionally(t *testing.T) {
	lines := []Line{
		{LoanID: "a", Capital: d("300"), Interest: d("30"), Penalty: decimal.Zero},
		{LoanID: "b", Capital: d("700"), Interest: d("70"), Penalty: decimal.Zero},
	}
	amount := d("300") // 100 interest + 200 toward capital

	q, err := Resolve(domain.PaymentIntent{Kind: domain.IntentAmortize, CustomAmount: &amount}, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Amount.StringFixed(2) != "300.00" {
		t.Errorf("expected amount 300.00, got %s", q.Amount.StringFixed(2))
	}
	// Capital surplus 200 split 30/70 by outstanding balance.
	if q.Allocations[0].Capital.StringFixed(2) != "60.00" {
		t.Errorf("loan a: expected capital 60.00, got %s", q.Allocations[0].Capital.StringFixed(2))
	}
	if q.Allocations[1].Capital.StringFixed(2) != "140.00" {
		t.Errorf("loan b: expected capital 140.00, got %s", q.Allocations[1].Capital.StringFixed(2))
	}

	sum := q.Allocations[0].Amount.Add(q.Allocations[1].Amount)
	if !sum.Equal(q.Amount) {
		t.Errorf("allocations must sum to the amount exactly: %s vs %s", sum, q.Amount)
	}
}

func TestResolve_AmortizePenaltyPaidBeforeCapital(t *testing.T) {
	lines := []Line{
		{LoanID: "a", Capital: d("500"), Interest: d("50"), Penalty: d("20")},
	}
	amount := d("80") // 50 interest, 20 penalty, 10 capital

	q, err := Resolve(domain.PaymentIntent{Kind: domain.IntentAmortize, CustomAmount: &amount}, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := q.Allocations[0]
	if a.Penalty.StringFixed(2) != "20.00" {
		t.Errorf("expected penalty 20.00, got %s", a.Penalty.StringFixed(2))
	}
	if a.Capital.StringFixed(2) != "10.00" {
		t.Errorf("expected capital 10.00, got %s", a.Capital.StringFixed(2))
	}
}

func TestResolve_AmortizeAbovePayoffRejected(t *testing.T) {
	lines := []Line{{LoanID: "a", Capital: d("100"), Interest: d("10"), Penalty: decimal.Zero}}
	amount := d("500")

	var invalid *domain.ErrInvalidInput
	_, err := Resolve(domain.PaymentIntent{Kind: domain.IntentAmortize, CustomAmount: &amount}, lines)
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidInput when amount exceeds payoff, got %v", err)
	}
}

func TestResolve_RoundingRemainderLandsOnLastShare(t *testing.T) {
	// 100 split across three equal weights cannot round evenly; the last
	// share absorbs the remainder so the sum stays exact.
	lines := []Line{
		{LoanID: "a", Capital: d("100"), Interest: decimal.Zero, Penalty: decimal.Zero},
		{LoanID: "b", Capital: d("100"), Interest: decimal.Zero, Penalty: decimal.Zero},
		{LoanID: "c", Capital: d("100"), Interest: decimal.Zero, Penalty: decimal.Zero},
	}
	amount := d("100")

	q, err := Resolve(domain.PaymentIntent{Kind: domain.IntentAmortize, CustomAmount: &amount}, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := decimal.Zero
	for _, a := range q.Allocations {
		sum = sum.Add(a.Amount)
	}
	if !sum.Equal(amount) {
		t.Errorf("expected shares to sum to 100, got %s", sum)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	lines := []Line{
		{LoanID: "a", Capital: d("300"), Interest: d("20"), Penalty: d("5"), ElapsedDays: 12},
	}
	intent := domain.PaymentIntent{Kind: domain.IntentLiquidate}

	first, err := Resolve(intent, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Resolve(intent, lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Amount.Equal(second.Amount) {
		t.Errorf("expected identical amounts, got %s and %s", first.Amount, second.Amount)
	}
}
