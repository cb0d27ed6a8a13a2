package domain

import "time"

// ============================================================
// Tenants & operators (sysadmin provisioning)
// ============================================================

// Tenant is one pawnshop business. Every row in every table is scoped to a
// tenant; the data service's row-level security enforces isolation and the
// stores filter by tenant_id on top of it.
type Tenant struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Plan      string    `json:"plan"`   // basic, pro
	Status    string    `json:"status"` // active, suspended
	CreatedAt time.Time `json:"created_at"`
}

// Branch is a tenant's physical location.
type Branch struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
}

// Operator is a tenant user (cashier, manager, admin).
type Operator struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	BranchID  string    `json:"branch_id,omitempty"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"` // cashier, manager, admin, sysadmin
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ProvisionTenantRequest creates a tenant with its first branch and admin.
type ProvisionTenantRequest struct {
	Slug          string `json:"slug"`
	Name          string `json:"name"`
	Plan          string `json:"plan"`
	BranchName    string `json:"branchName"`
	AdminUsername string `json:"adminUsername"`
	AdminFullName string `json:"adminFullName"`
	AdminPassword string `json:"adminPassword"`
}

// ProvisionTenantResponse reports the created ids.
type ProvisionTenantResponse struct {
	TenantID   string `json:"tenantId"`
	BranchID   string `json:"branchId"`
	OperatorID string `json:"operatorId"`
}
