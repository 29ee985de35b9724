package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentRequestStatus string

const (
	PaymentRequestStatusPending   PaymentRequestStatus = "pending"
	PaymentRequestStatusPaid      PaymentRequestStatus = "paid"
	PaymentRequestStatusCancelled PaymentRequestStatus = "cancelled"
	PaymentRequestStatusDisputed  PaymentRequestStatus = "disputed"
)

// InvoiceDueDays is the number of days an owner has to settle a new payment request.
const InvoiceDueDays = 30

// PaymentRequest is an invoice to a property owner for completed maintenance work.
type PaymentRequest struct {
	ID               int32                `json:"id"`
	ManagerRequestID int32                `json:"manager_request_id"`
	OwnerID          int32                `json:"owner_id"`
	PropertyID       int32                `json:"property_id"`
	Amount           decimal.Decimal      `json:"amount"`
	ActualCost       decimal.NullDecimal  `json:"actual_cost"`
	ProposedBudget   decimal.NullDecimal  `json:"proposed_budget"`
	Status           PaymentRequestStatus `json:"status"`
	DueDate          time.Time            `json:"due_date"`
	PaidDate         *time.Time           `json:"paid_date,omitempty"`
	PaidAmount       decimal.NullDecimal  `json:"paid_amount"`
	CreatedBy        string               `json:"created_by"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Open reports whether the owner still owes money on this request.
func (p *PaymentRequest) Open() bool {
	return p.Status == PaymentRequestStatusPending || p.Status == PaymentRequestStatusDisputed
}

type PaymentRequestActionType string

const (
	PaymentRequestActionCreated     PaymentRequestActionType = "CREATED"
	PaymentRequestActionRebilled    PaymentRequestActionType = "REBILLED"
	PaymentRequestActionStatusReset PaymentRequestActionType = "STATUS_RESET"
	PaymentRequestActionPaid        PaymentRequestActionType = "PAID"
	PaymentRequestActionCancelled   PaymentRequestActionType = "CANCELLED"
	PaymentRequestActionDisputed    PaymentRequestActionType = "DISPUTED"
	PaymentRequestActionReminder    PaymentRequestActionType = "REMINDER_SENT"
)

type PaymentRequestAction struct {
	ID               int32                    `json:"id"`
	PaymentRequestID int32                    `json:"payment_request_id"`
	ActorEmail       *string                  `json:"actor_email"` // NULL for system actions
	ActionType       PaymentRequestActionType `json:"action_type"`
	FromStatus       PaymentRequestStatus     `json:"from_status,omitempty"`
	ToStatus         PaymentRequestStatus     `json:"to_status,omitempty"`
	Notes            string                   `json:"notes"`
	CreatedAt        time.Time                `json:"created_at"`
}

// InvoiceUpsert is the write model for the at-most-one-per-request upsert.
type InvoiceUpsert struct {
	ManagerRequestID int32
	OwnerID          int32
	PropertyID       int32
	Amount           decimal.Decimal
	ActualCost       decimal.NullDecimal
	ProposedBudget   decimal.NullDecimal
	DueDate          time.Time
	CreatedBy        string
}

// InvoiceUpsertResult tells the caller what the upsert did.
type InvoiceUpsertResult struct {
	PaymentRequest *PaymentRequest
	Created        bool
	PreviousStatus PaymentRequestStatus
}

type PaymentRequestFilter struct {
	Status   PaymentRequestStatus
	OwnerID  int32
	Page     int32
	PageSize int32
}
