package domain

import "fmt"

// Error types for consistent error handling across the API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrInvalidInput indicates a calculator or request input that must be
// rejected before computation (negative principal, negative rate, bad mode).
type ErrInvalidInput struct {
	Field   string
	Message string
}

func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("invalid input on '%s': %s", e.Field, e.Message)
}

// ErrMinimumPayment indicates an AMORTIZE amount below the accrued interest.
type ErrMinimumPayment struct {
	Required string
	Given    string
}

func (e *ErrMinimumPayment) Error() string {
	return fmt.Sprintf("payment below accrued interest: required=%s given=%s", e.Required, e.Given)
}

// ErrEmptySelection indicates a payment intent with no loans selected.
type ErrEmptySelection struct{}

func (e *ErrEmptySelection) Error() string {
	return "no loans selected"
}

// ErrDrawerClosed indicates a cash operation attempted without an open drawer.
type ErrDrawerClosed struct {
	BranchID string
}

func (e *ErrDrawerClosed) Error() string {
	return fmt.Sprintf("no open cash drawer for branch %s", e.BranchID)
}

// ErrAnnulled indicates an operation on a payment that was already annulled.
type ErrAnnulled struct {
	PaymentID string
}

func (e *ErrAnnulled) Error() string {
	return fmt.Sprintf("payment already annulled: %s", e.PaymentID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a request validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the operator lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrConflict indicates a resource already exists or a state conflict
// (e.g. second open drawer for the same branch).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrDuplicate indicates a duplicate operation (idempotency check).
type ErrDuplicate struct {
	Key string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate operation: %s", e.Key)
}

// ErrTenantSuspended indicates the tenant is suspended and cannot operate.
type ErrTenantSuspended struct {
	TenantID string
}

func (e *ErrTenantSuspended) Error() string {
	return fmt.Sprintf("tenant suspended: %s", e.TenantID)
}
