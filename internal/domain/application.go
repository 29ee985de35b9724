package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

type RentPaymentStatus string

const (
	RentPaymentStatusCurrent   RentPaymentStatus = "current"
	RentPaymentStatusLate      RentPaymentStatus = "late"
	RentPaymentStatusPaidAhead RentPaymentStatus = "paid_ahead"
)

type FundingSourceKind string

const (
	FundingSourceBank FundingSourceKind = "bank"
	FundingSourceCard FundingSourceKind = "card"
)

func (k FundingSourceKind) Valid() bool {
	return k == FundingSourceBank || k == FundingSourceCard
}

// RentalApplication doubles as the lease once approved.
type RentalApplication struct {
	ID             int32             `json:"id"`
	ApplicantName  string            `json:"applicant_name"`
	ApplicantEmail string            `json:"applicant_email"`
	ApplicantPhone string            `json:"applicant_phone"`
	PropertyID     *int32            `json:"property_id,omitempty"`
	Status         ApplicationStatus `json:"status"`

	MonthlyRent        decimal.Decimal     `json:"monthly_rent"`
	LeaseStartDate     *time.Time          `json:"lease_start_date,omitempty"`
	LeaseEndDate       *time.Time          `json:"lease_end_date,omitempty"`
	FirstPaymentAmount decimal.NullDecimal `json:"first_payment_amount"`
	IsProrated         bool                `json:"is_prorated"`
	FirstPaymentDue    *time.Time          `json:"first_payment_due,omitempty"`

	GatewayCustomerRef    *string         `json:"gateway_customer_ref,omitempty"`
	HasCheckingAccount    bool            `json:"has_checking_account"`
	HasCreditCard         bool            `json:"has_credit_card"`
	SecurityDepositPaid   bool            `json:"security_deposit_paid"`
	SecurityDepositAmount decimal.Decimal `json:"security_deposit_amount"`

	AutoPayEnabled    bool              `json:"auto_pay_enabled"`
	SubscriptionRef   *string           `json:"subscription_ref"`
	NextPaymentDate   *time.Time        `json:"next_payment_date,omitempty"`
	LastPaymentDate   *time.Time        `json:"last_payment_date,omitempty"`
	RentPaymentStatus RentPaymentStatus `json:"rent_payment_status,omitempty"`

	ApprovedBy *string   `json:"approved_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LeaseApproval is what an admin supplies when turning an application into a lease.
type LeaseApproval struct {
	MonthlyRent        decimal.Decimal
	LeaseStartDate     time.Time
	LeaseEndDate       time.Time
	FirstPaymentAmount decimal.Decimal
	IsProrated         bool
	FirstPaymentDue    time.Time
	ApprovedBy         string
}

// Enrollment is persisted when the gateway accepts the recurring plan.
type Enrollment struct {
	SubscriptionRef string
	NextPaymentDate time.Time
	MonthlyRent     decimal.Decimal
	LeaseStartDate  time.Time
	LeaseEndDate    time.Time
}

// RentStanding is the advisory view returned to the admin surface.
type RentStanding struct {
	ApplicationID   int32             `json:"application_id"`
	Status          RentPaymentStatus `json:"status"`
	NextPaymentDate *time.Time        `json:"next_payment_date,omitempty"`
	LastPaymentDate *time.Time        `json:"last_payment_date,omitempty"`
	AsOf            time.Time         `json:"as_of"`
}
