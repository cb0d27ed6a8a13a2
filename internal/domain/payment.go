package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Payments (cobranza)
// ============================================================

// IntentKind is the cashier's choice for a payment transaction.
type IntentKind string

const (
	IntentRenew     IntentKind = "RENEW"
	IntentAmortize  IntentKind = "AMORTIZE"
	IntentLiquidate IntentKind = "LIQUIDATE"
)

// PaymentIntent is the ephemeral UI selection that produces payment records.
// It is never persisted as its own entity.
type PaymentIntent struct {
	Kind          IntentKind       `json:"kind"`
	LoanIDs       []string         `json:"loanIds"`
	CustomAmount  *decimal.Decimal `json:"customAmount,omitempty"`  // AMORTIZE only
	WaiveInterest bool             `json:"waiveInterest,omitempty"` // RENEW only
	Method        string           `json:"method,omitempty"`        // cash, card, transfer
}

// Payment is one persisted payment record. One row is created per loan of a
// processed intent; rows sharing a GroupID belong to the same transaction.
// Rows are never mutated after creation except by the annul flags.
type Payment struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	GroupID        string          `json:"group_id"`
	LoanID         string          `json:"loan_id"`
	ClientID       string          `json:"client_id"`
	Kind           IntentKind      `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	Capital        decimal.Decimal `json:"capital"`
	Interest       decimal.Decimal `json:"interest"`
	Penalty        decimal.Decimal `json:"penalty"`
	Method         string          `json:"method"`
	Notes          string          `json:"notes,omitempty"` // waiver records land here
	OperatorID     string          `json:"operator_id"`
	DrawerID       string          `json:"drawer_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Annulled       bool            `json:"annulled"`
	AnnulReason    string          `json:"annul_reason,omitempty"`
	AnnulledBy     string          `json:"annulled_by,omitempty"`
	AnnulledAt     *time.Time      `json:"annulled_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PaymentQuoteResponse is what the cashier sees before confirming.
type PaymentQuoteResponse struct {
	Kind            IntentKind       `json:"kind"`
	Amount          decimal.Decimal  `json:"amount"`
	AmountFormatted string           `json:"amountFormatted"`
	Capital         decimal.Decimal  `json:"capital"`
	Interest        decimal.Decimal  `json:"interest"`
	Penalty         decimal.Decimal  `json:"penalty"`
	MaxElapsedDays  int              `json:"maxElapsedDays"`
	Lines           []PaymentLineDTO `json:"lines"`
}

// PaymentLineDTO is the per-loan breakdown of a quote or processed payment.
type PaymentLineDTO struct {
	LoanID          string          `json:"loanId"`
	ContractNumber  string          `json:"contractNumber,omitempty"`
	ElapsedDays     int             `json:"elapsedDays"`
	Amount          decimal.Decimal `json:"amount"`
	AmountFormatted string          `json:"amountFormatted"`
	Capital         decimal.Decimal `json:"capital"`
	Interest        decimal.Decimal `json:"interest"`
	Penalty         decimal.Decimal `json:"penalty"`
	Notes           string          `json:"notes,omitempty"`
}

// ProcessPaymentResponse is returned after an intent is committed.
type ProcessPaymentResponse struct {
	GroupID         string           `json:"groupId"`
	Kind            IntentKind       `json:"kind"`
	Amount          decimal.Decimal  `json:"amount"`
	AmountFormatted string           `json:"amountFormatted"`
	Payments        []Payment        `json:"payments"`
	Lines           []PaymentLineDTO `json:"lines"`
	ProcessedAt     string           `json:"processedAt"`
}

// AnnulPaymentRequest soft-voids a payment with an audit trail.
type AnnulPaymentRequest struct {
	Reason string `json:"reason"`
}
