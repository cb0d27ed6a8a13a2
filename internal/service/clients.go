package service

import (
	"context"
	"strings"

	"github.com/valadez/empenos-api/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Clients — onboarding, lookup, search
// ============================================================

func (s *PawnService) CreateClient(ctx context.Context, tenantID string, req *domain.ClientRequest) (*domain.Client, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.CreateClient")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	if err := validateClientRequest(req); err != nil {
		return nil, err
	}

	existing, err := s.clients.GetClientByDocument(ctx, tenantID, req.Document)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "document already registered: " + req.Document}
	}

	client := &domain.Client{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Document:  req.Document,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		Notes:     req.Notes,
	}
	created, err := s.clients.CreateClient(ctx, client)
	if err != nil {
		s.logger.Error("failed to create client", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("client created",
		zap.String("tenant_id", tenantID),
		zap.String("client_id", created.ID),
	)
	return created, nil
}

func (s *PawnService) GetClient(ctx context.Context, tenantID, clientID string) (*domain.Client, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.GetClient")
	defer span.End()

	return s.clients.GetClient(ctx, tenantID, clientID)
}

func (s *PawnService) UpdateClient(ctx context.Context, tenantID, clientID string, req *domain.ClientRequest) (*domain.Client, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.UpdateClient")
	defer span.End()

	if _, err := s.clients.GetClient(ctx, tenantID, clientID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.FirstName != "" {
		updates["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		updates["last_name"] = req.LastName
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Address != "" {
		updates["address"] = req.Address
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}
	if len(updates) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}

	if err := s.clients.UpdateClient(ctx, tenantID, clientID, updates); err != nil {
		return nil, err
	}
	return s.clients.GetClient(ctx, tenantID, clientID)
}

func (s *PawnService) SearchClients(ctx context.Context, tenantID, query string, page, pageSize int) ([]domain.Client, error) {
	ctx, span := pawnTracer.Start(ctx, "PawnService.SearchClients")
	defer span.End()

	return s.clients.SearchClients(ctx, tenantID, strings.TrimSpace(query), page, pageSize)
}

func validateClientRequest(req *domain.ClientRequest) error {
	if strings.TrimSpace(req.FirstName) == "" {
		return &domain.ErrValidation{Field: "firstName", Message: "required"}
	}
	if strings.TrimSpace(req.LastName) == "" {
		return &domain.ErrValidation{Field: "lastName", Message: "required"}
	}
	if strings.TrimSpace(req.Document) == "" {
		return &domain.ErrValidation{Field: "document", Message: "required"}
	}
	if strings.TrimSpace(req.Phone) == "" {
		return &domain.ErrValidation{Field: "phone", Message: "required"}
	}
	return nil
}
