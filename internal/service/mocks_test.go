package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
	"github.com/valadez/empenos-api/internal/infra/cache"
	"github.com/valadez/empenos-api/internal/infra/draft"
	"github.com/valadez/empenos-api/internal/infra/observability"
	"github.com/valadez/empenos-api/internal/service"

	"go.uber.org/zap"
)

// testStores bundles the mocks a test wants to inspect; nil fields get
// fresh empty mocks.
type testStores struct {
	loans     *mockLoanStore
	payments  *mockPaymentStore
	drawers   *mockDrawerStore
	clients   *mockClientStore
	investors *mockInvestorStore
}

func newTestService(st testStores) *service.PawnService {
	if st.loans == nil {
		st.loans = newMockLoanStore()
	}
	if st.payments == nil {
		st.payments = newMockPaymentStore()
	}
	if st.drawers == nil {
		st.drawers = newMockDrawerStore(nil)
	}
	if st.clients == nil {
		st.clients = newMockClientStore()
	}
	if st.investors == nil {
		st.investors = newMockInvestorStore()
	}
	return service.NewPawnService(
		st.loans,
		st.payments,
		st.drawers,
		st.clients,
		st.investors,
		draft.NewMemoryStore(time.Minute),
		cache.New[domain.Loan](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
		15,
	)
}

// --- Shared store mocks ---

// mockLoanStore is hit concurrently when a quote fans out snapshot
// fetches, so every method takes the mutex.
type mockLoanStore struct {
	mu       sync.Mutex
	loans    map[string]*domain.Loan
	updates  map[string]map[string]any
	getErr   error
	getCalls int
}

func newMockLoanStore(loans ...*domain.Loan) *mockLoanStore {
	m := &mockLoanStore{loans: map[string]*domain.Loan{}, updates: map[string]map[string]any{}}
	for _, l := range loans {
		m.loans[l.ID] = l
	}
	return m
}

func (m *mockLoanStore) CreateLoan(_ context.Context, loan *domain.Loan) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loans[loan.ID] = loan
	return loan, nil
}

func (m *mockLoanStore) GetLoan(_ context.Context, _, loanID string) (*domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	loan, ok := m.loans[loanID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: loanID}
	}
	cp := *loan
	return &cp, nil
}

func (m *mockLoanStore) gets() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.getCalls
}

func (m *mockLoanStore) GetLoansByIDs(_ context.Context, _ string, loanIDs []string) ([]domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Loan, 0, len(loanIDs))
	for _, id := range loanIDs {
		if loan, ok := m.loans[id]; ok {
			out = append(out, *loan)
		}
	}
	return out, nil
}

func (m *mockLoanStore) ListLoans(_ context.Context, _, status string, _, _ int) ([]domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Loan{}
	for _, loan := range m.loans {
		if status == "" || string(loan.Status) == status {
			out = append(out, *loan)
		}
	}
	return out, nil
}

func (m *mockLoanStore) ListClientLoans(_ context.Context, _, clientID string) ([]domain.Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Loan{}
	for _, loan := range m.loans {
		if loan.ClientID == clientID {
			out = append(out, *loan)
		}
	}
	return out, nil
}

func (m *mockLoanStore) UpdateLoan(_ context.Context, _, loanID string, updates map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updates[loanID] == nil {
		m.updates[loanID] = map[string]any{}
	}
	for k, v := range updates {
		m.updates[loanID][k] = v
	}
	return nil
}

type mockPaymentStore struct {
	created      []domain.Payment
	byKey        map[string][]domain.Payment
	annulUpdates map[string]map[string]any
	createErr    error
}

func newMockPaymentStore() *mockPaymentStore {
	return &mockPaymentStore{byKey: map[string][]domain.Payment{}, annulUpdates: map[string]map[string]any{}}
}

func (m *mockPaymentStore) CreatePayment(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, *p)
	m.byKey[p.IdempotencyKey] = append(m.byKey[p.IdempotencyKey], *p)
	return p, nil
}

func (m *mockPaymentStore) GetPayment(_ context.Context, _, paymentID string) (*domain.Payment, error) {
	for i := range m.created {
		if m.created[i].ID == paymentID {
			cp := m.created[i]
			return &cp, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "payment", ID: paymentID}
}

func (m *mockPaymentStore) GetPaymentsByGroup(_ context.Context, _, groupID string) ([]domain.Payment, error) {
	out := []domain.Payment{}
	for _, p := range m.created {
		if p.GroupID == groupID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentStore) FindByIdempotencyKey(_ context.Context, _, key string) ([]domain.Payment, error) {
	return m.byKey[key], nil
}

func (m *mockPaymentStore) ListClientPayments(_ context.Context, _, clientID string, _, _ int) ([]domain.Payment, error) {
	out := []domain.Payment{}
	for _, p := range m.created {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPaymentStore) AnnulPayment(_ context.Context, _, paymentID string, updates map[string]any) error {
	m.annulUpdates[paymentID] = updates
	for i := range m.created {
		if m.created[i].ID == paymentID {
			m.created[i].Annulled = true
		}
	}
	return nil
}

type mockDrawerStore struct {
	drawers   map[string]*domain.Drawer
	open      *domain.Drawer
	movements []domain.DrawerMovement
}

func newMockDrawerStore(open *domain.Drawer) *mockDrawerStore {
	m := &mockDrawerStore{drawers: map[string]*domain.Drawer{}, open: open}
	if open != nil {
		m.drawers[open.ID] = open
	}
	return m
}

func (m *mockDrawerStore) OpenDrawer(_ context.Context, d *domain.Drawer) (*domain.Drawer, error) {
	m.drawers[d.ID] = d
	m.open = d
	return d, nil
}

func (m *mockDrawerStore) GetDrawer(_ context.Context, _, drawerID string) (*domain.Drawer, error) {
	d, ok := m.drawers[drawerID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "drawer", ID: drawerID}
	}
	cp := *d
	return &cp, nil
}

func (m *mockDrawerStore) GetOpenDrawer(_ context.Context, _, branchID string) (*domain.Drawer, error) {
	if m.open == nil || m.open.BranchID != branchID {
		return nil, &domain.ErrNotFound{Resource: "drawer", ID: branchID}
	}
	cp := *m.open
	return &cp, nil
}

func (m *mockDrawerStore) CloseDrawer(_ context.Context, _, drawerID string, _ map[string]any) error {
	if d, ok := m.drawers[drawerID]; ok {
		d.Status = "closed"
		if m.open != nil && m.open.ID == drawerID {
			m.open = nil
		}
	}
	return nil
}

func (m *mockDrawerStore) CreateMovement(_ context.Context, mv *domain.DrawerMovement) (*domain.DrawerMovement, error) {
	m.movements = append(m.movements, *mv)
	return mv, nil
}

func (m *mockDrawerStore) ListMovements(_ context.Context, _, drawerID string) ([]domain.DrawerMovement, error) {
	out := []domain.DrawerMovement{}
	for _, mv := range m.movements {
		if mv.DrawerID == drawerID {
			out = append(out, mv)
		}
	}
	return out, nil
}

type mockClientStore struct {
	clients map[string]*domain.Client
	updates map[string]map[string]any
}

func newMockClientStore(clients ...*domain.Client) *mockClientStore {
	m := &mockClientStore{clients: map[string]*domain.Client{}, updates: map[string]map[string]any{}}
	for _, c := range clients {
		m.clients[c.ID] = c
	}
	return m
}

func (m *mockClientStore) CreateClient(_ context.Context, c *domain.Client) (*domain.Client, error) {
	m.clients[c.ID] = c
	return c, nil
}

func (m *mockClientStore) GetClient(_ context.Context, _, clientID string) (*domain.Client, error) {
	c, ok := m.clients[clientID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "client", ID: clientID}
	}
	cp := *c
	return &cp, nil
}

func (m *mockClientStore) GetClientByDocument(_ context.Context, _, document string) (*domain.Client, error) {
	for _, c := range m.clients {
		if c.Document == document {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockClientStore) UpdateClient(_ context.Context, _, clientID string, updates map[string]any) error {
	m.updates[clientID] = updates
	return nil
}

func (m *mockClientStore) SearchClients(_ context.Context, _, _ string, _, _ int) ([]domain.Client, error) {
	out := []domain.Client{}
	for _, c := range m.clients {
		out = append(out, *c)
	}
	return out, nil
}

type mockInvestorStore struct {
	investors map[string]*domain.Investor
	contracts map[string]*domain.InvestorContract
}

func newMockInvestorStore(investors ...*domain.Investor) *mockInvestorStore {
	m := &mockInvestorStore{investors: map[string]*domain.Investor{}, contracts: map[string]*domain.InvestorContract{}}
	for _, inv := range investors {
		m.investors[inv.ID] = inv
	}
	return m
}

func (m *mockInvestorStore) CreateInvestor(_ context.Context, inv *domain.Investor) (*domain.Investor, error) {
	m.investors[inv.ID] = inv
	return inv, nil
}

func (m *mockInvestorStore) GetInvestor(_ context.Context, _, investorID string) (*domain.Investor, error) {
	inv, ok := m.investors[investorID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "investor", ID: investorID}
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvestorStore) ListInvestors(_ context.Context, _ string, _, _ int) ([]domain.Investor, error) {
	out := []domain.Investor{}
	for _, inv := range m.investors {
		out = append(out, *inv)
	}
	return out, nil
}

func (m *mockInvestorStore) CreateContract(_ context.Context, c *domain.InvestorContract) (*domain.InvestorContract, error) {
	m.contracts[c.ID] = c
	return c, nil
}

func (m *mockInvestorStore) GetContract(_ context.Context, _, investorID, contractID string) (*domain.InvestorContract, error) {
	c, ok := m.contracts[contractID]
	if !ok || c.InvestorID != investorID {
		return nil, &domain.ErrNotFound{Resource: "contract", ID: contractID}
	}
	cp := *c
	return &cp, nil
}

func (m *mockInvestorStore) ListContracts(_ context.Context, _, investorID string) ([]domain.InvestorContract, error) {
	out := []domain.InvestorContract{}
	for _, c := range m.contracts {
		if c.InvestorID == investorID {
			out = append(out, *c)
		}
	}
	return out, nil
}

type mockTenantStore struct {
	tenants   map[string]*domain.Tenant
	bySlug    map[string]*domain.Tenant
	branches  []domain.Branch
	operators []domain.Operator
	hashes    map[string]string
	statuses  map[string]string
}

func newMockTenantStore(tenants ...*domain.Tenant) *mockTenantStore {
	m := &mockTenantStore{
		tenants:  map[string]*domain.Tenant{},
		bySlug:   map[string]*domain.Tenant{},
		hashes:   map[string]string{},
		statuses: map[string]string{},
	}
	for _, t := range tenants {
		m.tenants[t.ID] = t
		m.bySlug[t.Slug] = t
	}
	return m
}

func (m *mockTenantStore) CreateTenant(_ context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	m.tenants[t.ID] = t
	m.bySlug[t.Slug] = t
	return t, nil
}

func (m *mockTenantStore) GetTenant(_ context.Context, tenantID string) (*domain.Tenant, error) {
	t, ok := m.tenants[tenantID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: tenantID}
	}
	cp := *t
	return &cp, nil
}

func (m *mockTenantStore) GetTenantBySlug(_ context.Context, slug string) (*domain.Tenant, error) {
	t, ok := m.bySlug[slug]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "tenant", ID: slug}
	}
	cp := *t
	return &cp, nil
}

func (m *mockTenantStore) ListTenants(_ context.Context, _, _ int) ([]domain.Tenant, error) {
	out := []domain.Tenant{}
	for _, t := range m.tenants {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockTenantStore) UpdateTenantStatus(_ context.Context, tenantID, status string) error {
	m.statuses[tenantID] = status
	if t, ok := m.tenants[tenantID]; ok {
		t.Status = status
	}
	return nil
}

func (m *mockTenantStore) CreateBranch(_ context.Context, b *domain.Branch) (*domain.Branch, error) {
	m.branches = append(m.branches, *b)
	return b, nil
}

func (m *mockTenantStore) CreateOperator(_ context.Context, op *domain.Operator, passwordHash string) (*domain.Operator, error) {
	m.operators = append(m.operators, *op)
	m.hashes[op.ID] = passwordHash
	return op, nil
}

type mockAuthStore struct {
	operators     map[string]*domain.Operator
	credentials   map[string]*domain.Credential
	refreshTokens map[string]*domain.RefreshToken
	credUpdates   map[string][]map[string]any
	revokedAll    []string
}

func newMockAuthStore() *mockAuthStore {
	return &mockAuthStore{
		operators:     map[string]*domain.Operator{},
		credentials:   map[string]*domain.Credential{},
		refreshTokens: map[string]*domain.RefreshToken{},
		credUpdates:   map[string][]map[string]any{},
	}
}

func (m *mockAuthStore) GetOperatorByUsername(_ context.Context, tenantID, username string) (*domain.Operator, error) {
	for _, op := range m.operators {
		if op.TenantID == tenantID && op.Username == username {
			cp := *op
			return &cp, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "operator", ID: username}
}

func (m *mockAuthStore) GetOperatorByID(_ context.Context, _, operatorID string) (*domain.Operator, error) {
	op, ok := m.operators[operatorID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "operator", ID: operatorID}
	}
	cp := *op
	return &cp, nil
}

func (m *mockAuthStore) GetCredentials(_ context.Context, operatorID string) (*domain.Credential, error) {
	c, ok := m.credentials[operatorID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "credentials", ID: operatorID}
	}
	cp := *c
	return &cp, nil
}

func (m *mockAuthStore) UpdateCredentials(_ context.Context, operatorID string, updates map[string]any) error {
	m.credUpdates[operatorID] = append(m.credUpdates[operatorID], updates)
	c := m.credentials[operatorID]
	if c == nil {
		return nil
	}
	if v, ok := updates["failed_attempts"]; ok {
		if n, ok := v.(int); ok {
			c.FailedAttempts = n
		}
	}
	if v, ok := updates["password_hash"]; ok {
		if h, ok := v.(string); ok {
			c.PasswordHash = h
		}
	}
	return nil
}

func (m *mockAuthStore) StoreRefreshToken(_ context.Context, operatorID, tenantID, tokenHash string, expiresAt time.Time) error {
	m.refreshTokens[tokenHash] = &domain.RefreshToken{
		TokenHash:  tokenHash,
		OperatorID: operatorID,
		TenantID:   tenantID,
		ExpiresAt:  expiresAt,
	}
	return nil
}

func (m *mockAuthStore) GetRefreshToken(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	t, ok := m.refreshTokens[tokenHash]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "refresh token", ID: tokenHash}
	}
	cp := *t
	return &cp, nil
}

func (m *mockAuthStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	delete(m.refreshTokens, tokenHash)
	return nil
}

func (m *mockAuthStore) RevokeAllRefreshTokens(_ context.Context, operatorID string) error {
	m.revokedAll = append(m.revokedAll, operatorID)
	for hash, t := range m.refreshTokens {
		if t.OperatorID == operatorID {
			delete(m.refreshTokens, hash)
		}
	}
	return nil
}
