package repository

import (
	"context"
	"time"

	"rentops-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Conditional updates return (false, nil) when no row matched the guard; callers
// load the entity first so they can tell a missing row from a failed guard.
// Lookups of missing rows return an error wrapping domain.ErrNotFound.

type MaintenanceRequestRepository interface {
	Create(ctx context.Context, req *domain.MaintenanceRequest) error
	GetByID(ctx context.Context, id int32) (*domain.MaintenanceRequest, error)
	// GetByIDForUpdate holds a row lock until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.MaintenanceRequest, error)
	List(ctx context.Context, filter domain.RequestFilter) ([]domain.MaintenanceRequest, int32, error)

	// UpdateDetails applies the non-nil fields of upd to a request that is not soft-deleted.
	UpdateDetails(ctx context.Context, id int32, upd domain.RequestUpdate, at time.Time) (bool, error)
	UpdateCosts(ctx context.Context, id int32, actualCost, amountToBill decimal.NullDecimal, at time.Time) error
	MarkDeleted(ctx context.Context, id int32, by string, at time.Time) (bool, error)
	ClearDeleted(ctx context.Context, id int32, at time.Time) (bool, error)
	DecideApproval(ctx context.Context, id int32, status domain.ApprovalStatus, by string, at time.Time) (bool, error)
	HardDelete(ctx context.Context, id int32) error
	ListExpiredDeleted(ctx context.Context, deletedBefore time.Time, limit int32) ([]domain.MaintenanceRequest, error)

	// Conversation log
	AppendMessage(ctx context.Context, msg *domain.ConversationMessage) error
	ListMessages(ctx context.Context, requestID int32, includeInternal bool) ([]domain.ConversationMessage, error)
}

type PaymentRequestRepository interface {
	// Upsert creates the payment request for in.ManagerRequestID or re-bills the
	// existing one, resetting it to pending. There is never more than one row per
	// maintenance request.
	Upsert(ctx context.Context, in domain.InvoiceUpsert, at time.Time) (*domain.InvoiceUpsertResult, error)
	GetByID(ctx context.Context, id int32) (*domain.PaymentRequest, error)
	GetByManagerRequestID(ctx context.Context, requestID int32) (*domain.PaymentRequest, error)
	List(ctx context.Context, filter domain.PaymentRequestFilter) ([]domain.PaymentRequest, int32, error)
	ListOverdue(ctx context.Context, asOf time.Time, limit int32) ([]domain.PaymentRequest, error)

	MarkPaid(ctx context.Context, id int32, amount decimal.Decimal, paidDate time.Time, at time.Time) (bool, error)
	// Transition moves the status to `to` only when the current status is one of from.
	Transition(ctx context.Context, id int32, from []domain.PaymentRequestStatus, to domain.PaymentRequestStatus, at time.Time) (bool, error)

	CreateAction(ctx context.Context, action *domain.PaymentRequestAction) error
	ListActions(ctx context.Context, paymentRequestID int32) ([]domain.PaymentRequestAction, error)
	LastActionAt(ctx context.Context, paymentRequestID int32, actionType domain.PaymentRequestActionType) (*time.Time, error)
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.RentalApplication) error
	GetByID(ctx context.Context, id int32) (*domain.RentalApplication, error)
	Approve(ctx context.Context, id int32, approval domain.LeaseApproval, at time.Time) (bool, error)
	Reject(ctx context.Context, id int32, at time.Time) (bool, error)

	// Funding
	SetGatewayCustomer(ctx context.Context, id int32, customerRef string, at time.Time) (bool, error)
	SetFundingFlag(ctx context.Context, id int32, kind domain.FundingSourceKind, at time.Time) error
	ClaimDepositCharge(ctx context.Context, id int32, at, staleBefore time.Time) (bool, error)
	ReleaseDepositClaim(ctx context.Context, id int32) error
	MarkDepositPaid(ctx context.Context, id int32, amount decimal.Decimal, at time.Time) (bool, error)

	// Enrollment
	ClaimEnrollment(ctx context.Context, id int32, at, staleBefore time.Time) (bool, error)
	ReleaseEnrollment(ctx context.Context, id int32) error
	CompleteEnrollment(ctx context.Context, id int32, e domain.Enrollment, at time.Time) (bool, error)

	// Rent standing
	RecordRentPayment(ctx context.Context, id int32, previous *time.Time, covered time.Time, at time.Time) (bool, error)
	ListEnrolled(ctx context.Context, afterID int32, limit int32) ([]domain.RentalApplication, error)
	UpdateStanding(ctx context.Context, id int32, next time.Time, status domain.RentPaymentStatus, at time.Time) error
}

type OwnerRepository interface {
	Create(ctx context.Context, owner *domain.Owner) error
	GetByID(ctx context.Context, id int32) (*domain.Owner, error)
	Delete(ctx context.Context, id int32) error
	AddProperty(ctx context.Context, prop *domain.Property) error
	GetProperty(ctx context.Context, id int32) (*domain.Property, error)
}

// TxManager runs fn so that every repository call made with the ctx it
// receives commits or rolls back together.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
