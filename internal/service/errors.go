package service

import (
	"fmt"
	"strings"

	"github.com/cx-tal-miterani/seat-inventory/internal/repository"
)

// Role names the ownership a caller failed to prove
type Role string

const (
	RoleAgent  Role = "agent"
	RoleBooker Role = "booker"
)

// NotFoundError is returned when a referenced flight or booking does not
// exist. It matches repository.ErrNotFound with errors.Is.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func (e *NotFoundError) Unwrap() error { return repository.ErrNotFound }

func flightNotFound(id uint64) *NotFoundError {
	return &NotFoundError{Msg: fmt.Sprintf("a flight with id=%d not found", id)}
}

func bookingNotFound(id uint64) *NotFoundError {
	return &NotFoundError{Msg: fmt.Sprintf("a booking with id=%d not found", id)}
}

// InvalidPayloadError carries every field-level violation found in a payload
type InvalidPayloadError struct {
	Errors []string
}

func (e *InvalidPayloadError) Error() string {
	return "invalid payload: " + strings.Join(e.Errors, " ")
}

// NotAuthorizedError is returned when the caller does not own the flight or
// booking it tries to change.
type NotAuthorizedError struct {
	Role Role
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("caller is not the owning %s", e.Role)
}

// DomainError is a business-rule violation that is neither a missing record
// nor a payload problem.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string { return e.Msg }
