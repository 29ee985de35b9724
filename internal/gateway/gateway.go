package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentops-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type Operation string

const (
	OpCreateCustomer      Operation = "create_customer"
	OpCreateFundingSource Operation = "create_funding_source"
	OpAttachSource        Operation = "attach_source"
	OpSetDefaultSource    Operation = "set_default_source"
	OpCreateRecurringPlan Operation = "create_recurring_plan"
	OpCreateCharge        Operation = "create_charge"
)

type Interval string

const IntervalMonth Interval = "month"

// PlanRequest describes a recurring plan. Exactly one of Anchor and TrialEnd is
// set: Anchor pins an immediate schedule, TrialEnd defers the first charge.
type PlanRequest struct {
	CustomerRef string
	Amount      decimal.Decimal
	Interval    Interval
	Anchor      *time.Time
	TrialEnd    *time.Time
	Metadata    map[string]string
}

type ChargeRequest struct {
	CustomerRef string
	SourceKind  domain.FundingSourceKind
	Amount      decimal.Decimal
	Description string
	Metadata    map[string]string
}

// PaymentGateway is the external payment processor. Every call either succeeds
// and returns an opaque reference or fails with *Error.
type PaymentGateway interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	CreateFundingSource(ctx context.Context, customerRef string, kind domain.FundingSourceKind, token string) (string, error)
	AttachSource(ctx context.Context, customerRef, sourceRef string) error
	SetDefaultSource(ctx context.Context, customerRef, sourceRef string) error
	CreateRecurringPlan(ctx context.Context, req PlanRequest) (string, error)
	CreateCharge(ctx context.Context, req ChargeRequest) (string, error)
}

// Error is a rejection from the payment gateway.
type Error struct {
	Op      Operation
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("payment gateway %s failed (%s): %s", e.Op, e.Code, e.Message)
}

func NewError(op Operation, code, msg string) error {
	return &Error{Op: op, Code: code, Message: msg}
}

// IsGatewayError reports whether err came from the payment gateway.
func IsGatewayError(err error) bool {
	var ge *Error
	return errors.As(err, &ge)
}
