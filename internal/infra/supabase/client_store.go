package supabase

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
)

// ============================================================
// Clients (pawnshop customers)
// ============================================================

func (c *Client) CreateClient(ctx context.Context, cl *domain.Client) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateClient")
	defer span.End()

	body, err := c.post(ctx, "clients", map[string]any{
		"id":         cl.ID,
		"tenant_id":  cl.TenantID,
		"first_name": cl.FirstName,
		"last_name":  cl.LastName,
		"document":   cl.Document,
		"phone":      cl.Phone,
		"email":      cl.Email,
		"address":    cl.Address,
		"notes":      cl.Notes,
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/clients", Err: err}
	}

	rows, err := decodeRows[domain.Client](body, "client")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return cl, nil
	}
	return &rows[0], nil
}

func (c *Client) GetClient(ctx context.Context, tenantID, clientID string) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetClient")
	defer span.End()

	path := fmt.Sprintf("clients?tenant_id=eq.%s&id=eq.%s&limit=1", tenantID, clientID)
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/clients", Err: err}
	}

	rows, err := decodeRows[domain.Client](body, "client")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "client", ID: clientID}
	}
	return &rows[0], nil
}

func (c *Client) GetClientByDocument(ctx context.Context, tenantID, document string) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetClientByDocument")
	defer span.End()

	path := fmt.Sprintf("clients?tenant_id=eq.%s&document=eq.%s&limit=1", tenantID, url.QueryEscape(document))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/clients", Err: err}
	}

	rows, err := decodeRows[domain.Client](body, "client")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil // absence is not an error here; used for duplicate checks
	}
	return &rows[0], nil
}

func (c *Client) UpdateClient(ctx context.Context, tenantID, clientID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateClient")
	defer span.End()

	updates["updated_at"] = time.Now().Format(time.RFC3339)
	path := fmt.Sprintf("clients?tenant_id=eq.%s&id=eq.%s", tenantID, clientID)
	if err := c.patch(ctx, path, updates); err != nil {
		return &domain.ErrExternalService{Service: "supabase/clients", Err: err}
	}
	return nil
}

// SearchClients matches the query against name and document via PostgREST's
// or= filter with case-insensitive pattern matching.
func (c *Client) SearchClients(ctx context.Context, tenantID, query string, page, pageSize int) ([]domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SearchClients")
	defer span.End()

	path := fmt.Sprintf("clients?tenant_id=eq.%s&order=last_name.asc&%s", tenantID, paginationRange(page, pageSize))
	if query != "" {
		pattern := url.QueryEscape("*" + query + "*")
		path += fmt.Sprintf("&or=(first_name.ilike.%s,last_name.ilike.%s,document.ilike.%s)", pattern, pattern, pattern)
	}
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/clients", Err: err}
	}
	return decodeRows[domain.Client](body, "clients")
}
