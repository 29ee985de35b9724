package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusWorking  RequestStatus = "working"
	RequestStatusFinished RequestStatus = "finished"
	RequestStatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusWorking, RequestStatusFinished, RequestStatusRejected:
		return true
	}
	return false
}

type UserType string

const (
	UserTypeTenant        UserType = "tenant"
	UserTypePropertyOwner UserType = "property-owner"
	UserTypeHomeOwner     UserType = "home-owner"
)

func (u UserType) Valid() bool {
	switch u {
	case UserTypeTenant, UserTypePropertyOwner, UserTypeHomeOwner:
		return true
	}
	return false
}

// Billable reports whether completed work for this requester type can be
// invoiced through a PaymentRequest.
func (u UserType) Billable() bool {
	return u == UserTypePropertyOwner || u == UserTypeHomeOwner
}

type SubmittedBy string

const (
	SubmittedByUser  SubmittedBy = "user"
	SubmittedByAdmin SubmittedBy = "admin"
)

type ApprovalStatus string

const (
	ApprovalStatusNone            ApprovalStatus = ""
	ApprovalStatusPendingApproval ApprovalStatus = "pending-approval"
	ApprovalStatusApproved        ApprovalStatus = "approved"
	ApprovalStatusDeclined        ApprovalStatus = "declined"
)

type ApprovalDecision string

const (
	ApprovalDecisionApprove ApprovalDecision = "approve"
	ApprovalDecisionDecline ApprovalDecision = "decline"
)

// Status maps a decision to the approval status it produces.
func (d ApprovalDecision) Status() (ApprovalStatus, bool) {
	switch d {
	case ApprovalDecisionApprove:
		return ApprovalStatusApproved, true
	case ApprovalDecisionDecline:
		return ApprovalStatusDeclined, true
	}
	return ApprovalStatusNone, false
}

// GracePeriod is how long a soft-deleted request stays recoverable.
const GracePeriod = 14 * 24 * time.Hour

type MaintenanceRequest struct {
	ID              int32         `json:"id"`
	RequesterName   string        `json:"requester_name"`
	RequesterEmail  string        `json:"requester_email"`
	RequesterPhone  string        `json:"requester_phone"`
	Issue           string        `json:"issue"`
	PropertyID      *int32        `json:"property_id,omitempty"`
	PropertyAddress string        `json:"property_address"`
	Status          RequestStatus `json:"status"`
	UserType        UserType      `json:"user_type"`
	SubmittedBy     SubmittedBy   `json:"submitted_by"`

	RequiresApproval bool           `json:"requires_approval"`
	ApprovalStatus   ApprovalStatus `json:"approval_status,omitempty"`
	ApprovedBy       *string        `json:"approved_by,omitempty"`
	ApprovalDate     *time.Time     `json:"approval_date,omitempty"`

	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at"`
	DeletedBy *string    `json:"deleted_by"`

	// ProposedBudget is the requester's estimate and never changes after submission.
	ProposedBudget decimal.NullDecimal `json:"proposed_budget"`
	ActualCost     decimal.NullDecimal `json:"actual_cost"`
	AmountToBill   decimal.NullDecimal `json:"amount_to_bill"`

	AdminNotes string `json:"admin_notes"`
	PhotoKey   string `json:"photo_key,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PermanentRemovalDate is when a soft-deleted request becomes eligible for purge.
func (r *MaintenanceRequest) PermanentRemovalDate() *time.Time {
	if !r.IsDeleted || r.DeletedAt == nil {
		return nil
	}
	t := r.DeletedAt.Add(GracePeriod)
	return &t
}

type ConversationMessage struct {
	ID          int32     `json:"id"`
	RequestID   int32     `json:"request_id"`
	SenderEmail string    `json:"sender_email"`
	SenderRole  Role      `json:"sender_role"`
	IsInternal  bool      `json:"is_internal"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// RequestFilter narrows ListRequests. Deleted requests are hidden unless asked for.
type RequestFilter struct {
	Status         RequestStatus
	IncludeDeleted bool
	OnlyDeleted    bool
	Page           int32
	PageSize       int32
}

// RequestUpdate carries the admin-editable fields. Nil means "leave unchanged".
type RequestUpdate struct {
	Status     *RequestStatus `json:"status,omitempty"`
	AdminNotes *string        `json:"admin_notes,omitempty"`
	PhotoKey   *string        `json:"photo_key,omitempty"`
}

// CostEntry carries the admin-entered cost fields. Nil means "not provided".
type CostEntry struct {
	ActualCost   *decimal.Decimal `json:"actual_cost,omitempty"`
	AmountToBill *decimal.Decimal `json:"amount_to_bill,omitempty"`
}
