package service

import (
	"context"
	"fmt"
	"time"

	"rentops-backend/internal/domain"

	"github.com/shopspring/decimal"
)

type MaintenanceService interface {
	SubmitRequest(ctx context.Context, actor domain.Actor, in SubmitRequestInput) (*domain.MaintenanceRequest, error)
	GetRequest(ctx context.Context, actor domain.Actor, id int32) (*RequestView, error)
	ListRequests(ctx context.Context, actor domain.Actor, filter domain.RequestFilter) ([]domain.MaintenanceRequest, int32, error)
	UpdateRequest(ctx context.Context, actor domain.Actor, id int32, upd domain.RequestUpdate) (*domain.MaintenanceRequest, error)
	RequestPhotoUpload(ctx context.Context, actor domain.Actor, id int32, filename, contentType string) (*PhotoUpload, error)

	SoftDelete(ctx context.Context, actor domain.Actor, id int32) (*domain.MaintenanceRequest, error)
	Recover(ctx context.Context, actor domain.Actor, id int32) (*domain.MaintenanceRequest, error)
	HardDelete(ctx context.Context, actor domain.Actor, id int32) error
	PurgeExpired(ctx context.Context, batchSize int32) (int, error)

	DecideApproval(ctx context.Context, actor domain.Actor, id int32, decision domain.ApprovalDecision) (*domain.MaintenanceRequest, error)

	AppendMessage(ctx context.Context, actor domain.Actor, id int32, text string, isInternal bool) (*domain.ConversationMessage, error)
	ListMessages(ctx context.Context, actor domain.Actor, id int32) ([]domain.ConversationMessage, error)
}

type InvoiceService interface {
	SetCosts(ctx context.Context, actor domain.Actor, requestID int32, entry domain.CostEntry) (*CostResult, error)
	GetPaymentRequest(ctx context.Context, actor domain.Actor, id int32) (*domain.PaymentRequest, error)
	ListPaymentRequests(ctx context.Context, actor domain.Actor, filter domain.PaymentRequestFilter) ([]domain.PaymentRequest, int32, error)
	ListActions(ctx context.Context, actor domain.Actor, id int32) ([]domain.PaymentRequestAction, error)
	MarkPaid(ctx context.Context, actor domain.Actor, id int32, paidAmount decimal.Decimal, paidDate *time.Time) (*domain.PaymentRequest, error)
	Cancel(ctx context.Context, actor domain.Actor, id int32, reason string) (*domain.PaymentRequest, error)
	Dispute(ctx context.Context, actor domain.Actor, id int32, reason string) (*domain.PaymentRequest, error)
	SendOverdueReminders(ctx context.Context, batchSize int32) (int, error)
}

type BillingService interface {
	SubmitApplication(ctx context.Context, actor domain.Actor, in SubmitApplicationInput) (*domain.RentalApplication, error)
	GetApplication(ctx context.Context, actor domain.Actor, id int32) (*domain.RentalApplication, error)
	ApproveApplication(ctx context.Context, actor domain.Actor, id int32, in ApproveApplicationInput) (*domain.RentalApplication, error)
	RejectApplication(ctx context.Context, actor domain.Actor, id int32) (*domain.RentalApplication, error)
	EnableAutoPay(ctx context.Context, actor domain.Actor, id int32) (*domain.RentalApplication, error)
	RecordRentPayment(ctx context.Context, actor domain.Actor, id int32) (*domain.RentalApplication, error)
	GetRentStanding(ctx context.Context, actor domain.Actor, id int32) (*domain.RentStanding, error)
	RefreshStandings(ctx context.Context, batchSize int32) (int, error)
}

type FundingService interface {
	AttachFundingSource(ctx context.Context, actor domain.Actor, appID int32, kind domain.FundingSourceKind, token string) (*domain.RentalApplication, error)
	ChargeDeposit(ctx context.Context, actor domain.Actor, appID int32, amount decimal.Decimal) (*domain.RentalApplication, error)
	RecordDeposit(ctx context.Context, actor domain.Actor, appID int32, amount decimal.Decimal, note string) (*domain.RentalApplication, error)
}

type OwnerService interface {
	CreateOwner(ctx context.Context, actor domain.Actor, name, email, phone string) (*domain.Owner, error)
	GetOwner(ctx context.Context, actor domain.Actor, id int32) (*domain.Owner, error)
	AddProperty(ctx context.Context, actor domain.Actor, ownerID int32, name, address string) (*domain.Property, error)
	DeleteOwner(ctx context.Context, actor domain.Actor, id int32) error
}

// EmailService is the outbound notification channel. Callers treat every
// failure as non-fatal.
type EmailService interface {
	Send(ctx context.Context, to, subject, body string) error
	SendRequestMessageNotification(ctx context.Context, to string, req *domain.MaintenanceRequest, msg *domain.ConversationMessage) error
	SendPaymentRequestNotice(ctx context.Context, to, ccEmail string, notice InvoiceNotice) error
	SendPaymentReminder(ctx context.Context, to string, notice InvoiceNotice) error
}

type SubmitRequestInput struct {
	RequesterName    string           `json:"requester_name"`
	RequesterEmail   string           `json:"requester_email"`
	RequesterPhone   string           `json:"requester_phone"`
	Issue            string           `json:"issue"`
	PropertyID       *int32           `json:"property_id,omitempty"`
	PropertyAddress  string           `json:"property_address"`
	UserType         domain.UserType  `json:"user_type"`
	RequiresApproval bool             `json:"requires_approval"`
	ProposedBudget   *decimal.Decimal `json:"proposed_budget,omitempty"`
}

// RequestView is a request as shown to a caller, with derived fields.
type RequestView struct {
	*domain.MaintenanceRequest
	PhotoURL             string     `json:"photo_url,omitempty"`
	PermanentRemovalDate *time.Time `json:"permanent_removal_date,omitempty"`
	GraceDaysLeft        *int       `json:"grace_days_left,omitempty"`
}

type PhotoUpload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CostResult reports the request after a cost entry and the payment request
// it produced, if any.
type CostResult struct {
	Request        *domain.MaintenanceRequest `json:"request"`
	PaymentRequest *domain.PaymentRequest     `json:"payment_request,omitempty"`
	Created        bool                       `json:"created"`
}

type InvoiceNotice struct {
	PaymentRequestID int32
	PropertyName     string
	PropertyAddress  string
	Description      string
	ProposedBudget   decimal.NullDecimal
	ActualCost       decimal.NullDecimal
	AmountDue        decimal.Decimal
	DueDate          time.Time
	Rebilled         bool
}

type SubmitApplicationInput struct {
	ApplicantName  string `json:"applicant_name"`
	ApplicantEmail string `json:"applicant_email"`
	ApplicantPhone string `json:"applicant_phone"`
	PropertyID     *int32 `json:"property_id,omitempty"`
}

type ApproveApplicationInput struct {
	MonthlyRent    decimal.Decimal `json:"monthly_rent"`
	LeaseStartDate time.Time       `json:"lease_start_date"`
	LeaseEndDate   time.Time       `json:"lease_end_date"`
}

// Options carries the tunables shared by the services. Zero values fall back
// to the defaults below.
type Options struct {
	GracePeriod      time.Duration
	InvoiceDueDays   int
	AdminEmail       string
	ClaimTimeout     time.Duration
	ReminderInterval time.Duration
	PhotoURLExpiry   time.Duration
	Now              func() time.Time
}

func (o Options) withDefaults() Options {
	if o.GracePeriod <= 0 {
		o.GracePeriod = domain.GracePeriod
	}
	if o.InvoiceDueDays <= 0 {
		o.InvoiceDueDays = domain.InvoiceDueDays
	}
	if o.ClaimTimeout <= 0 {
		o.ClaimTimeout = 10 * time.Minute
	}
	if o.ReminderInterval <= 0 {
		o.ReminderInterval = 7 * 24 * time.Hour
	}
	if o.PhotoURLExpiry <= 0 {
		o.PhotoURLExpiry = 15 * time.Minute
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

func (o Options) graceDays() int {
	return int(o.GracePeriod / (24 * time.Hour))
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin role required", domain.ErrForbidden)
	}
	return nil
}
