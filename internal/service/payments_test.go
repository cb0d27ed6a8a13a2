package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/valadez/empenos-api/internal/domain"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// testLoan backs a loan exactly daysAgo days before now. The hour of slack
// keeps the ceiling day count at daysAgo even when the call under test runs
// some milliseconds after this helper.
func testLoan(id string, balance, rate string, daysAgo int) *domain.Loan {
	now := time.Now().Add(time.Hour)
	return &domain.Loan{
		ID:            id,
		TenantID:      "t1",
		BranchID:      "b1",
		ClientID:      "c1",
		Balance:       dec(balance),
		Principal:     dec(balance),
		MonthlyRate:   dec(rate),
		Penalty:       decimal.Zero,
		ProrationMode: domain.ProrationDaily,
		StartDate:     now.AddDate(0, 0, -daysAgo),
		DueDate:       now.AddDate(0, 0, 30-daysAgo),
		TermDays:      30,
		GraceDays:     15,
		Status:        domain.LoanStatusCurrent,
	}
}

func openDrawer(id, branchID string) *domain.Drawer {
	return &domain.Drawer{
		ID:           id,
		TenantID:     "t1",
		BranchID:     branchID,
		Status:       "open",
		OpeningFloat: dec("500"),
		OpenedAt:     time.Now(),
	}
}

func TestProcessPayment_RequiresIdempotencyKey(t *testing.T) {
	svc := newTestService(testStores{})

	_, err := svc.ProcessPayment(context.Background(), "t1", "op1", "b1",
		domain.PaymentIntent{Kind: domain.IntentRenew, LoanIDs: []string{"l1"}}, "")

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestProcessPayment_DuplicateKeyRejected(t *testing.T) {
	payments := newMockPaymentStore()
	payments.byKey["key-1"] = []domain.Payment{{ID: "p1", IdempotencyKey: "key-1"}}
	svc := newTestService(testStores{payments: payments})

	_, err := svc.ProcessPayment(context.Background(), "t1", "op1", "b1",
		domain.PaymentIntent{Kind: domain.IntentRenew, LoanIDs: []string{"l1"}}, "key-1")

	var dup *domain.ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if dup.Key != "key-1" {
		t.Errorf("expected key 'key-1', got '%s'", dup.Key)
	}
}

func TestProcessPayment_ClosedDrawerRejected(t *testing.T) {
	svc := newTestService(testStores{
		loans: newMockLoanStore(testLoan("l1", "1000", "10", 30)),
	})

	_, err := svc.ProcessPayment(context.Background(), "t1", "op1", "b1",
		domain.PaymentIntent{Kind: domain.IntentRenew, LoanIDs: []string{"l1"}}, "key-1")

	var closed *domain.ErrDrawerClosed
	if !errors.As(err, &closed) {
		t.Fatalf("expected ErrDrawerClosed, got %v", err)
	}
}

func TestProcessPayment_RenewPerLoanRows(t *testing.T) {
	// Two loans, 30 days at 10%: 100 and 50 of interest respectively.
	loans := newMockLoanStore(
		testLoan("l1", "1000", "10", 30),
		testLoan("l2", "500", "10", 30),
	)
	payments := newMockPaymentStore()
	drawers := newMockDrawerStore(openDrawer("d1", "b1"))
	svc := newTestService(testStores{loans: loans, payments: payments, drawers: drawers})

	resp, err := svc.ProcessPayment(context.Background(), "t1", "op1", "b1",
		domain.PaymentIntent{Kind: domain.IntentRenew, LoanIDs: []string{"l1", "l2"}}, "key-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(payments.created) != 2 {
		t.Fatalf("expected 2 payment rows, got %d", len(payments.created))
	}
	if !resp.Amount.Equal(dec("150")) {
		t.Errorf("expected total 150, got %s", resp.Amount)
	}
	// Per-loan shares come from each loan's own figures, never an even split.
	if !payments.created[0].Amount.Equal(dec("100")) {
		t.Errorf("expected loan l1 share 100, got %s", payments.created[0].Amount)
	}
	if !payments.created[1].Amount.Equal(dec("50")) {
		t.Errorf("expected loan l2 share 50, got %s", payments.created[1].Amount)
	}

	// Both loans re-anchor: penalty cleared, status back to current.
	for _, id := range []string{"l1", "l2"} {
		up := loans.updates[id]
		if up == nil {
			t.Fatalf("expected loan %s to be patched", id)
		}
		if up["penalty"] != "0" {
			t.Errorf("expected penalty reset on %s, got %v", id, up["penalty"])
		}
		if up["status"] != string(domain.LoanStatusCurrent) {
			t.Errorf("expected status current on %s, got %v", id, up["status"])
		}
	}

	// One cash-in movement for the whole group.
	if len(drawers.movements) != 1 {
		t.Fatalf("expected 1 drawer movement, got %d", len(drawers.movements))
	}
	mv := drawers.movements[0]
	if mv.Direction != "in" || mv.Concept != "payment" {
		t.Errorf("unexpected movement %s/%s", mv.Direction, mv.Concept)
	}
	if !mv.Amount.Equal(dec("150")) {
		t.Errorf("expected movement amount 150, got %s", mv.Amount)
	}
	if mv.RefID != resp.GroupID {
		t.Errorf("expected movement ref %s, got %s", resp.GroupID, mv.RefID)
	}
}

func TestProcessPayment_WaivedRenewalMovesNoCash(t *testing.T) {
	loans := newMockLoanStore(testLoan("l1", "1000", "10", 30))
	payments := newMockPaymentStore()
	drawers := newMockDrawerStore(openDrawer("d1", "b1"))
	svc := newTestService(testStores{loans: loans, payments: payments, drawers: drawers})

	resp, err := svc.ProcessPayment(context.Background(), "t1", "op1", "b1",
		domain.PaymentIntent{Kind: domain.IntentRenew, LoanIDs: []string{"l1"}, WaiveInterest: true}, "key-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !resp.Amount.IsZero() {
		t.Errorf("expected zero amount, got %s", resp.Amount)
	}
	if len(payments.created) != 1 {
		t.Fatalf("expected 1 payment row, got %d", len(payments.created))
	}
	if payments.created[0].Notes == "" {
		t.Error("expected waiver note on the payment row")
	}
	if len(drawers.movements) != 0 {
		t.Errorf("expected no drawer movement for a waived renewal, got %d", len(drawers.movements))
	}
	// The term still re-anchors even though no cash moved.
	if loans.updates["l1"] == nil {
		t.Fatal("expected loan to be re-anchored")
	}
}

func TestProcessPayment_LiquidateClosesLoan(t *testing.T) {
	loans := newMockLoanStore(testLoan("l1", "1000", "10", 30))
	drawers := newMockDrawerStore(openDrawer("d1", "b1"))
	svc := newTestService(testStores{loans: loans, drawers: drawers})

	resp, err := svc.ProcessPayment(context.Background(), "t1", "op1", "b1",
		domain.PaymentIntent{Kind: domain.IntentLiquidate, LoanIDs: []string{"l1"}}, "key-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Full payoff: capital 1000 + interest 100.
	if !resp.Amount.Equal(dec("1100")) {
		t.Errorf("expected 1100, got %s", resp.Amount)
	}
	up := loans.updates["l1"]
	if up["balance"] != "0" || up["status"] != string(domain.LoanStatusClosed) {
		t.Errorf("expected balance zeroed and loan closed, got %v", up)
	}
}

func TestProcessPayment_AmortizeBelowInterestRejected(t *testing.T) {
	loans := newMockLoanStore(testLoan("l1", "1000", "10", 30))
	drawers := newMockDrawerStore(openDrawer("d1", "b1"))
	svc := newTestService(testStores{loans: loans, drawers: drawers})

	amount := dec("50") // accrued interest is 100
	_, err := svc.ProcessPayment(context.Background(), "t1", "op1", "b1",
		domain.PaymentIntent{Kind: domain.IntentAmortize, LoanIDs: []string{"l1"}, CustomAmount: &amount}, "key-1")

	var minErr *domain.ErrMinimumPayment
	if !errors.As(err, &minErr) {
		t.Fatalf("expected ErrMinimumPayment, got %v", err)
	}
	if minErr.Required != "100.00" {
		t.Errorf("expected required 100.00, got %s", minErr.Required)
	}
}

func TestProcessPayment_AmortizeReducesBalance(t *testing.T) {
	loans := newMockLoanStore(testLoan("l1", "1000", "10", 30))
	drawers := newMockDrawerStore(openDrawer("d1", "b1"))
	svc := newTestService(testStores{loans: loans, drawers: drawers})

	amount := dec("400") // 100 interest + 300 capital
	resp, err := svc.ProcessPayment(context.Background(), "t1", "op1", "b1",
		domain.PaymentIntent{Kind: domain.IntentAmortize, LoanIDs: []string{"l1"}, CustomAmount: &amount}, "key-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !resp.Amount.Equal(dec("400")) {
		t.Errorf("expected 400, got %s", resp.Amount)
	}
	up := loans.updates["l1"]
	if up["balance"] != "700.00" {
		t.Errorf("expected new balance 700.00, got %v", up["balance"])
	}
	if _, reanchored := up["start_date"]; !reanchored {
		t.Error("expected start date re-anchor after interest was settled")
	}
	if _, closed := up["status"]; closed {
		t.Error("loan with remaining balance must not be closed")
	}
}

func TestProcessPayment_ClosedLoanRejected(t *testing.T) {
	loan := testLoan("l1", "0", "10", 0)
	loan.Status = domain.LoanStatusClosed
	svc := newTestService(testStores{
		loans:   newMockLoanStore(loan),
		drawers: newMockDrawerStore(openDrawer("d1", "b1")),
	})

	_, err := svc.ProcessPayment(context.Background(), "t1", "op1", "b1",
		domain.PaymentIntent{Kind: domain.IntentRenew, LoanIDs: []string{"l1"}}, "key-1")

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation for closed loan, got %v", err)
	}
}

func TestProcessPayment_DuplicateLoanIDsCollapsed(t *testing.T) {
	loans := newMockLoanStore(testLoan("l1", "1000", "10", 30))
	payments := newMockPaymentStore()
	svc := newTestService(testStores{
		loans:    loans,
		payments: payments,
		drawers:  newMockDrawerStore(openDrawer("d1", "b1")),
	})

	resp, err := svc.ProcessPayment(context.Background(), "t1", "op1", "b1",
		domain.PaymentIntent{Kind: domain.IntentRenew, LoanIDs: []string{"l1", "l1", ""}}, "key-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(payments.created) != 1 {
		t.Errorf("expected 1 payment row after dedup, got %d", len(payments.created))
	}
	if !resp.Amount.Equal(dec("100")) {
		t.Errorf("expected 100, got %s", resp.Amount)
	}
}

func TestQuotePayment_DoesNotPersist(t *testing.T) {
	loans := newMockLoanStore(testLoan("l1", "1000", "10", 30))
	payments := newMockPaymentStore()
	drawers := newMockDrawerStore(nil) // quoting needs no open drawer
	svc := newTestService(testStores{loans: loans, payments: payments, drawers: drawers})

	quote, err := svc.QuotePayment(context.Background(), "t1",
		domain.PaymentIntent{Kind: domain.IntentLiquidate, LoanIDs: []string{"l1"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !quote.Amount.Equal(dec("1100")) {
		t.Errorf("expected 1100, got %s", quote.Amount)
	}
	if quote.AmountFormatted != "$1100.00" {
		t.Errorf("expected formatted amount, got %s", quote.AmountFormatted)
	}
	if len(payments.created) != 0 || len(loans.updates) != 0 {
		t.Error("a quote must not write anything")
	}
}

func TestQuotePayment_ServesFromSnapshotCache(t *testing.T) {
	loans := newMockLoanStore(testLoan("l1", "1000", "10", 30))
	svc := newTestService(testStores{loans: loans})

	intent := domain.PaymentIntent{Kind: domain.IntentRenew, LoanIDs: []string{"l1"}}
	if _, err := svc.QuotePayment(context.Background(), "t1", intent); err != nil {
		t.Fatalf("first quote: %v", err)
	}
	if _, err := svc.QuotePayment(context.Background(), "t1", intent); err != nil {
		t.Fatalf("second quote: %v", err)
	}

	if got := loans.gets(); got != 1 {
		t.Errorf("expected 1 store read (second quote cached), got %d", got)
	}
}

func TestQuotePayment_ManyLoansFetchedConcurrently(t *testing.T) {
	// More loans than the snapshot fan-out limit, so goroutines overlap
	// on the store. Each loan contributes 10 of interest.
	var stored []*domain.Loan
	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("l%02d", i)
		stored = append(stored, testLoan(id, "100", "10", 30))
		ids = append(ids, id)
	}
	loans := newMockLoanStore(stored...)
	svc := newTestService(testStores{loans: loans})

	quote, err := svc.QuotePayment(context.Background(), "t1",
		domain.PaymentIntent{Kind: domain.IntentRenew, LoanIDs: ids})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !quote.Amount.Equal(dec("120")) {
		t.Errorf("expected 120, got %s", quote.Amount)
	}
	if len(quote.Lines) != 12 {
		t.Errorf("expected 12 lines, got %d", len(quote.Lines))
	}
	if got := loans.gets(); got != 12 {
		t.Errorf("expected 12 store reads, got %d", got)
	}
}

func TestQuotePayment_EmptySelection(t *testing.T) {
	svc := newTestService(testStores{})

	_, err := svc.QuotePayment(context.Background(), "t1",
		domain.PaymentIntent{Kind: domain.IntentRenew})

	var empty *domain.ErrEmptySelection
	if !errors.As(err, &empty) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestAnnulPayment_RequiresReason(t *testing.T) {
	svc := newTestService(testStores{})

	_, err := svc.AnnulPayment(context.Background(), "t1", "op1", "p1", &domain.AnnulPaymentRequest{})

	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAnnulPayment_SoftVoidWithCompensatingMovement(t *testing.T) {
	payments := newMockPaymentStore()
	payments.created = append(payments.created, domain.Payment{
		ID:       "p1",
		TenantID: "t1",
		Kind:     domain.IntentRenew,
		Amount:   dec("100"),
		DrawerID: "d1",
	})
	drawers := newMockDrawerStore(openDrawer("d1", "b1"))
	svc := newTestService(testStores{payments: payments, drawers: drawers})

	annulled, err := svc.AnnulPayment(context.Background(), "t1", "op2", "p1",
		&domain.AnnulPaymentRequest{Reason: "cobro equivocado"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !annulled.Annulled || annulled.AnnulReason != "cobro equivocado" || annulled.AnnulledBy != "op2" {
		t.Errorf("annul flags not set: %+v", annulled)
	}
	// Figures survive the void.
	if !annulled.Amount.Equal(dec("100")) {
		t.Errorf("expected amount kept, got %s", annulled.Amount)
	}
	if len(drawers.movements) != 1 {
		t.Fatalf("expected compensating movement, got %d", len(drawers.movements))
	}
	if drawers.movements[0].Direction != "out" || drawers.movements[0].Concept != "annulment" {
		t.Errorf("unexpected movement %+v", drawers.movements[0])
	}
}

func TestAnnulPayment_AlreadyAnnulled(t *testing.T) {
	payments := newMockPaymentStore()
	payments.created = append(payments.created, domain.Payment{
		ID: "p1", TenantID: "t1", Amount: dec("100"), Annulled: true,
	})
	svc := newTestService(testStores{payments: payments})

	_, err := svc.AnnulPayment(context.Background(), "t1", "op1", "p1",
		&domain.AnnulPaymentRequest{Reason: "x"})

	var annErr *domain.ErrAnnulled
	if !errors.As(err, &annErr) {
		t.Fatalf("expected ErrAnnulled, got %v", err)
	}
}

func TestAnnulPayment_ClosedDrawerSkipsMovement(t *testing.T) {
	payments := newMockPaymentStore()
	payments.created = append(payments.created, domain.Payment{
		ID: "p1", TenantID: "t1", Amount: dec("100"), DrawerID: "d1",
	})
	drawer := openDrawer("d1", "b1")
	drawer.Status = "closed"
	drawers := newMockDrawerStore(nil)
	drawers.drawers["d1"] = drawer
	svc := newTestService(testStores{payments: payments, drawers: drawers})

	annulled, err := svc.AnnulPayment(context.Background(), "t1", "op1", "p1",
		&domain.AnnulPaymentRequest{Reason: "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !annulled.Annulled {
		t.Error("expected payment annulled")
	}
	if len(drawers.movements) != 0 {
		t.Errorf("expected no movement against a closed drawer, got %d", len(drawers.movements))
	}
}
