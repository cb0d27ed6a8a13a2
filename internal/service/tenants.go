package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
	"github.com/valadez/empenos-api/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var adminTracer = otel.Tracer("service/admin")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// AdminService handles sysadmin tenant provisioning.
type AdminService struct {
	tenants port.TenantStore
	logger  *zap.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(tenants port.TenantStore, logger *zap.Logger) *AdminService {
	return &AdminService{tenants: tenants, logger: logger}
}

// ProvisionTenant creates a tenant with its first branch and admin operator.
func (s *AdminService) ProvisionTenant(ctx context.Context, req *domain.ProvisionTenantRequest) (*domain.ProvisionTenantResponse, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.ProvisionTenant")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.slug", req.Slug))

	if err := validateProvisionRequest(req); err != nil {
		return nil, err
	}

	if existing, err := s.tenants.GetTenantBySlug(ctx, req.Slug); err == nil && existing != nil {
		return nil, &domain.ErrConflict{Message: "slug already taken: " + req.Slug}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tenant := &domain.Tenant{
		ID:     uuid.New().String(),
		Slug:   req.Slug,
		Name:   req.Name,
		Plan:   req.Plan,
		Status: "active",
	}
	createdTenant, err := s.tenants.CreateTenant(ctx, tenant)
	if err != nil {
		s.logger.Error("failed to create tenant", zap.String("slug", req.Slug), zap.Error(err))
		return nil, err
	}

	branchName := req.BranchName
	if branchName == "" {
		branchName = "Matriz"
	}
	branch := &domain.Branch{
		ID:       uuid.New().String(),
		TenantID: createdTenant.ID,
		Name:     branchName,
	}
	createdBranch, err := s.tenants.CreateBranch(ctx, branch)
	if err != nil {
		s.logger.Error("failed to create branch", zap.String("tenant_id", createdTenant.ID), zap.Error(err))
		return nil, err
	}

	operator := &domain.Operator{
		ID:       uuid.New().String(),
		TenantID: createdTenant.ID,
		BranchID: createdBranch.ID,
		Username: req.AdminUsername,
		FullName: req.AdminFullName,
		Role:     "admin",
		Status:   "active",
	}
	createdOperator, err := s.tenants.CreateOperator(ctx, operator, string(hash))
	if err != nil {
		s.logger.Error("failed to create admin operator", zap.String("tenant_id", createdTenant.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("tenant provisioned",
		zap.String("tenant_id", createdTenant.ID),
		zap.String("slug", req.Slug),
		zap.String("plan", req.Plan),
	)

	return &domain.ProvisionTenantResponse{
		TenantID:   createdTenant.ID,
		BranchID:   createdBranch.ID,
		OperatorID: createdOperator.ID,
	}, nil
}

func (s *AdminService) ListTenants(ctx context.Context, page, pageSize int) ([]domain.Tenant, error) {
	ctx, span := adminTracer.Start(ctx, "AdminService.ListTenants")
	defer span.End()

	return s.tenants.ListTenants(ctx, page, pageSize)
}

func (s *AdminService) SuspendTenant(ctx context.Context, tenantID string) error {
	return s.setTenantStatus(ctx, tenantID, "suspended")
}

func (s *AdminService) ActivateTenant(ctx context.Context, tenantID string) error {
	return s.setTenantStatus(ctx, tenantID, "active")
}

func (s *AdminService) setTenantStatus(ctx context.Context, tenantID, status string) error {
	ctx, span := adminTracer.Start(ctx, "AdminService.setTenantStatus")
	defer span.End()

	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.Status == status {
		return &domain.ErrConflict{Message: fmt.Sprintf("tenant already %s: %s", status, tenantID)}
	}
	if err := s.tenants.UpdateTenantStatus(ctx, tenantID, status); err != nil {
		return err
	}

	s.logger.Info("tenant status changed",
		zap.String("tenant_id", tenantID),
		zap.String("status", status),
		zap.Time("at", time.Now()),
	)
	return nil
}

func validateProvisionRequest(req *domain.ProvisionTenantRequest) error {
	if !slugPattern.MatchString(req.Slug) {
		return &domain.ErrValidation{Field: "slug", Message: "must be lowercase letters, digits and dashes"}
	}
	if req.Name == "" {
		return &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if req.Plan != "basic" && req.Plan != "pro" {
		return &domain.ErrValidation{Field: "plan", Message: "must be basic or pro"}
	}
	if req.AdminUsername == "" {
		return &domain.ErrValidation{Field: "adminUsername", Message: "required"}
	}
	if len(req.AdminPassword) < 8 {
		return &domain.ErrValidation{Field: "adminPassword", Message: "must be at least 8 characters"}
	}
	return nil
}
