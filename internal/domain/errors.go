package domain

import "fmt"

// Error types for consistent error handling across the bank app.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInsufficientFunds indicates a withdrawal would take the balance below
// the account's overdraft allowance.
type ErrInsufficientFunds struct {
	AccountID int
	Available float64
	Required  float64
	Overdraft float64
}

func (e *ErrInsufficientFunds) Error() string {
	if e.Overdraft > 0 {
		return fmt.Sprintf("insufficient funds on account %d: available=%.2f overdraft=%.2f required=%.2f",
			e.AccountID, e.Available, e.Overdraft, e.Required)
	}
	return fmt.Sprintf("insufficient funds on account %d: available=%.2f required=%.2f",
		e.AccountID, e.Available, e.Required)
}

// ErrConflict indicates a resource already exists (e.g. duplicate client name).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
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
