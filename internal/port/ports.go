// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// DraftStore persists cashier form drafts so in-progress work survives
// navigation. Decoupled from any storage medium; tests use the in-memory one.
type DraftStore interface {
	Save(ctx context.Context, tenantID, key string, value []byte) error
	Load(ctx context.Context, tenantID, key string) ([]byte, error)
	Clear(ctx context.Context, tenantID, key string) error
}

// LoanStore defines data operations on loans. All queries are tenant-scoped.
type LoanStore interface {
	CreateLoan(ctx context.Context, loan *domain.Loan) (*domain.Loan, error)
	GetLoan(ctx context.Context, tenantID, loanID string) (*domain.Loan, error)
	GetLoansByIDs(ctx context.Context, tenantID string, loanIDs []string) ([]domain.Loan, error)
	ListLoans(ctx context.Context, tenantID, status string, page, pageSize int) ([]domain.Loan, error)
	ListClientLoans(ctx context.Context, tenantID, clientID string) ([]domain.Loan, error)
	UpdateLoan(ctx context.Context, tenantID, loanID string, updates map[string]any) error
}

// PaymentStore defines data operations on payment records.
type PaymentStore interface {
	CreatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	GetPayment(ctx context.Context, tenantID, paymentID string) (*domain.Payment, error)
	GetPaymentsByGroup(ctx context.Context, tenantID, groupID string) ([]domain.Payment, error)
	FindByIdempotencyKey(ctx context.Context, tenantID, key string) ([]domain.Payment, error)
	ListClientPayments(ctx context.Context, tenantID, clientID string, page, pageSize int) ([]domain.Payment, error)
	AnnulPayment(ctx context.Context, tenantID, paymentID string, updates map[string]any) error
}

// DrawerStore defines data operations on cash drawers and their movements.
type DrawerStore interface {
	OpenDrawer(ctx context.Context, drawer *domain.Drawer) (*domain.Drawer, error)
	GetDrawer(ctx context.Context, tenantID, drawerID string) (*domain.Drawer, error)
	GetOpenDrawer(ctx context.Context, tenantID, branchID string) (*domain.Drawer, error)
	CloseDrawer(ctx context.Context, tenantID, drawerID string, updates map[string]any) error
	CreateMovement(ctx context.Context, mv *domain.DrawerMovement) (*domain.DrawerMovement, error)
	ListMovements(ctx context.Context, tenantID, drawerID string) ([]domain.DrawerMovement, error)
}

// ClientStore defines data operations on pawnshop clients.
type ClientStore interface {
	CreateClient(ctx context.Context, client *domain.Client) (*domain.Client, error)
	GetClient(ctx context.Context, tenantID, clientID string) (*domain.Client, error)
	GetClientByDocument(ctx context.Context, tenantID, document string) (*domain.Client, error)
	UpdateClient(ctx context.Context, tenantID, clientID string, updates map[string]any) error
	SearchClients(ctx context.Context, tenantID, query string, page, pageSize int) ([]domain.Client, error)
}

// InvestorStore defines data operations on investors and their contracts.
type InvestorStore interface {
	CreateInvestor(ctx context.Context, inv *domain.Investor) (*domain.Investor, error)
	GetInvestor(ctx context.Context, tenantID, investorID string) (*domain.Investor, error)
	ListInvestors(ctx context.Context, tenantID string, page, pageSize int) ([]domain.Investor, error)
	CreateContract(ctx context.Context, c *domain.InvestorContract) (*domain.InvestorContract, error)
	GetContract(ctx context.Context, tenantID, investorID, contractID string) (*domain.InvestorContract, error)
	ListContracts(ctx context.Context, tenantID, investorID string) ([]domain.InvestorContract, error)
}

// TenantStore defines sysadmin provisioning operations.
type TenantStore interface {
	CreateTenant(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error)
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	ListTenants(ctx context.Context, page, pageSize int) ([]domain.Tenant, error)
	UpdateTenantStatus(ctx context.Context, tenantID, status string) error
	CreateBranch(ctx context.Context, b *domain.Branch) (*domain.Branch, error)
	CreateOperator(ctx context.Context, op *domain.Operator, passwordHash string) (*domain.Operator, error)
}

// AuthStore defines data operations for authentication.
type AuthStore interface {
	GetOperatorByUsername(ctx context.Context, tenantID, username string) (*domain.Operator, error)
	GetOperatorByID(ctx context.Context, tenantID, operatorID string) (*domain.Operator, error)
	GetCredentials(ctx context.Context, operatorID string) (*domain.Credential, error)
	UpdateCredentials(ctx context.Context, operatorID string, updates map[string]any) error
	StoreRefreshToken(ctx context.Context, operatorID, tenantID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, operatorID string) error
}
