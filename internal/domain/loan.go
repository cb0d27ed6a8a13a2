package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Loans (créditos prendarios)
// ============================================================

// LoanStatus is the display band of a loan. It is driven by elapsed time
// against the due date and never alters interest arithmetic.
type LoanStatus string

const (
	LoanStatusCurrent    LoanStatus = "current"
	LoanStatusDueSoon    LoanStatus = "due_soon"
	LoanStatusOverdue    LoanStatus = "overdue"
	LoanStatusDelinquent LoanStatus = "delinquent"
	LoanStatusClosed     LoanStatus = "closed"
)

// ProrationMode selects how elapsed days convert into a fraction of the
// monthly rate: linear per day, or stepped at the weekly contract marks.
type ProrationMode string

const (
	ProrationDaily  ProrationMode = "daily"
	ProrationWeekly ProrationMode = "weekly"
)

// Loan represents a loan against collateral.
type Loan struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	BranchID       string          `json:"branch_id"`
	ClientID       string          `json:"client_id"`
	ContractNumber string          `json:"contract_number"`
	Collateral     string          `json:"collateral"`
	Principal      decimal.Decimal `json:"principal"`
	Balance        decimal.Decimal `json:"balance"` // outstanding capital
	MonthlyRate    decimal.Decimal `json:"monthly_rate"`
	Penalty        decimal.Decimal `json:"penalty"` // accumulated late charges
	ProrationMode  ProrationMode   `json:"proration_mode"`
	StartDate      time.Time       `json:"start_date"`
	DueDate        time.Time       `json:"due_date"`
	TermDays       int             `json:"term_days"`
	GraceDays      int             `json:"grace_days"`
	Status         LoanStatus      `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OriginateLoanRequest is the payload for creating a loan.
type OriginateLoanRequest struct {
	ClientID      string          `json:"clientId"`
	BranchID      string          `json:"branchId"`
	Collateral    string          `json:"collateral"`
	Principal     decimal.Decimal `json:"principal"`
	MonthlyRate   decimal.Decimal `json:"monthlyRate"`
	ProrationMode ProrationMode   `json:"prorationMode"`
	TermDays      int             `json:"termDays"`
	GraceDays     int             `json:"graceDays"`
}

// ScheduleEntry is one row of the printed-contract weekly schedule.
type ScheduleEntry struct {
	DayMark  int             `json:"day_mark"` // 7, 14, 21, 30
	Factor   string          `json:"factor"`   // fraction of the monthly rate, e.g. "0.25"
	Interest decimal.Decimal `json:"interest"`
	Payoff   decimal.Decimal `json:"payoff"` // balance + interest at the mark
}
