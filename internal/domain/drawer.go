package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Cash drawers (cajas)
// ============================================================

// Drawer represents one cashier shift's cash drawer. At most one drawer is
// open per branch at a time.
type Drawer struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	BranchID     string          `json:"branch_id"`
	OperatorID   string          `json:"operator_id"`
	Status       string          `json:"status"` // open, closed
	OpeningFloat decimal.Decimal `json:"opening_float"`
	CountedCash  decimal.Decimal `json:"counted_cash"`
	Difference   decimal.Decimal `json:"difference"` // counted - expected, set at close
	OpenedAt     time.Time       `json:"opened_at"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
}

// DrawerMovement is a single cash in/out against an open drawer.
type DrawerMovement struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	DrawerID  string          `json:"drawer_id"`
	Direction string          `json:"direction"` // in, out
	Concept   string          `json:"concept"`   // payment, disbursement, deposit, withdrawal
	Amount    decimal.Decimal `json:"amount"`
	RefID     string          `json:"ref_id,omitempty"` // payment group or loan id
	CreatedAt time.Time       `json:"created_at"`
}

// DrawerSummary aggregates a drawer's movements for the close screen.
type DrawerSummary struct {
	DrawerID     string          `json:"drawer_id"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
	TotalIn      decimal.Decimal `json:"total_in"`
	TotalOut     decimal.Decimal `json:"total_out"`
	Expected     decimal.Decimal `json:"expected"` // opening + in - out
	Movements    int             `json:"movements"`
}

// OpenDrawerRequest opens a drawer for a branch.
type OpenDrawerRequest struct {
	BranchID     string          `json:"branchId"`
	OpeningFloat decimal.Decimal `json:"openingFloat"`
}

// CloseDrawerRequest closes a drawer with the physically counted cash.
type CloseDrawerRequest struct {
	CountedCash decimal.Decimal `json:"countedCash"`
}

// DrawerMovementRequest records a manual cash in/out.
type DrawerMovementRequest struct {
	Direction string          `json:"direction"`
	Concept   string          `json:"concept"`
	Amount    decimal.Decimal `json:"amount"`
}
