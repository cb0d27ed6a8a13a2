package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Investors / treasury contracts
// ============================================================

// ContractType tags the investor contract variant. Each variant carries its
// own strict field set instead of a free-form metadata blob.
type ContractType string

const (
	ContractLoan   ContractType = "LOAN_CONTRACT"
	ContractEquity ContractType = "EQUITY_CONTRACT"
)

// AccrualMethod selects how a LOAN_CONTRACT accrues yield.
type AccrualMethod string

const (
	AccrualSimple   AccrualMethod = "simple"
	AccrualCompound AccrualMethod = "compound"
)

// Investor funds the pawnshop's loan book.
type Investor struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InvestorContract is the tagged union of contract variants. LoanTerms is
// set iff Type == LOAN_CONTRACT; EquityTerms iff Type == EQUITY_CONTRACT.
type InvestorContract struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenant_id"`
	InvestorID string          `json:"investor_id"`
	Type       ContractType    `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	StartDate  time.Time       `json:"start_date"`
	Status     string          `json:"status"` // active, settled
	LoanTerms  *LoanTerms      `json:"loan_terms,omitempty"`
	EquityTerms *EquityTerms   `json:"equity_terms,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// LoanTerms are the LOAN_CONTRACT fields.
type LoanTerms struct {
	MonthlyRate decimal.Decimal `json:"monthly_rate"`
	Accrual     AccrualMethod   `json:"accrual"`
	TermMonths  int             `json:"term_months"`
}

// EquityTerms are the EQUITY_CONTRACT fields.
type EquityTerms struct {
	SharePercent decimal.Decimal `json:"share_percent"`
}

// ContractRequest creates a contract for an investor.
type ContractRequest struct {
	Type        ContractType    `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	StartDate   string          `json:"startDate"` // YYYY-MM-DD
	LoanTerms   *LoanTerms      `json:"loanTerms,omitempty"`
	EquityTerms *EquityTerms    `json:"equityTerms,omitempty"`
}

// YieldResponse reports a contract's accrued yield at a point in time.
type YieldResponse struct {
	ContractID     string          `json:"contractId"`
	Type           ContractType    `json:"type"`
	Principal      decimal.Decimal `json:"principal"`
	ElapsedDays    int             `json:"elapsedDays"`
	Yield          decimal.Decimal `json:"yield"`
	YieldFormatted string          `json:"yieldFormatted"`
	AsOf           string          `json:"asOf"`
}
