package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// ValidationError is returned when an input field is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Precondition names the check that rejected an operation.
type Precondition string

const (
	PreconditionAlreadyDeleted      Precondition = "already_deleted"
	PreconditionNotDeleted          Precondition = "not_deleted"
	PreconditionRequestDeleted      Precondition = "request_deleted"
	PreconditionApprovalNotRequired Precondition = "approval_not_required"
	PreconditionAlreadyDecided      Precondition = "already_decided"
	PreconditionAlreadyEnrolled     Precondition = "already_enrolled"
	PreconditionNoCheckingAccount   Precondition = "checking_account_required"
	PreconditionNoCreditCard        Precondition = "credit_card_required"
	PreconditionDepositUnpaid       Precondition = "security_deposit_required"
	PreconditionLeaseDatesMissing   Precondition = "lease_dates_required"
	PreconditionRentNotPositive     Precondition = "monthly_rent_required"
	PreconditionDepositAlreadyPaid  Precondition = "deposit_already_paid"
	PreconditionApplicationState    Precondition = "application_state"
	PreconditionPaymentRequestState Precondition = "payment_request_state"
	PreconditionNotEnrolled         Precondition = "not_enrolled"
	PreconditionInvoiced            Precondition = "payment_request_exists"
)

// PreconditionError is returned when the entity's current state forbids the operation.
type PreconditionError struct {
	Precondition Precondition
	Message      string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed (%s): %s", e.Precondition, e.Message)
}

func NewPreconditionError(p Precondition, msg string) error {
	return &PreconditionError{Precondition: p, Message: msg}
}

// IsPrecondition reports whether err is a PreconditionError for p.
func IsPrecondition(err error, p Precondition) bool {
	var pe *PreconditionError
	return errors.As(err, &pe) && pe.Precondition == p
}

func NotFound(entity string, id int32) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}
